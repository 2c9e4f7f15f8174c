// Package service holds the domain logic that sits between HTTP
// handlers and the repositories: the note revision chain manager, the
// external summarization capability and the event publisher.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/dmytrik/notesApi/internal/model"
	"github.com/dmytrik/notesApi/internal/repository"
)

// ErrEmptyText is returned when a note would be created or revised with
// no text after trimming.
var ErrEmptyText = errors.New("note text required")

// NoteTxRunner runs a chain mutation inside one store transaction.
// repository.NoteRepo is the production implementation.
type NoteTxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s repository.NoteStore) error) error
}

// RevisionManager maintains singly-linked-list integrity over note
// rows. Edits never touch an existing row: every update inserts a new
// version pointing back at the one it supersedes, and deletion splices
// the removed version out of its chain. All multi-step mutations run
// in a single transaction so an interrupted splice can never leave a
// dangling or duplicated previous_version_id.
type RevisionManager struct {
	store NoteTxRunner
}

func NewRevisionManager(store NoteTxRunner) *RevisionManager {
	return &RevisionManager{store: store}
}

// CreateRoot inserts a note with no predecessor, starting a new
// lineage owned by the given user.
func (m *RevisionManager) CreateRoot(ctx context.Context, userID uint64, text string, summary *string) (model.Note, error) {
	if strings.TrimSpace(text) == "" {
		return model.Note{}, ErrEmptyText
	}
	note := model.Note{Text: text, Summary: summary, UserID: userID}
	err := m.store.RunInTx(ctx, func(ctx context.Context, s repository.NoteStore) error {
		return s.Insert(ctx, &note)
	})
	if err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// CreateRevision inserts a new version on top of an existing note. The
// base row is left untouched and becomes this row's predecessor; the
// new row is owned by the acting user, who may differ from the base
// note's owner. A base that already has a successor is refused with
// repository.ErrConflict, because two rows pointing at the same
// predecessor would turn the chain into a tree.
func (m *RevisionManager) CreateRevision(ctx context.Context, baseID, userID uint64, text string, summary *string) (model.Note, error) {
	if strings.TrimSpace(text) == "" {
		return model.Note{}, ErrEmptyText
	}
	base := baseID
	note := model.Note{Text: text, Summary: summary, PreviousVersionID: &base, UserID: userID}
	err := m.store.RunInTx(ctx, func(ctx context.Context, s repository.NoteStore) error {
		if _, err := s.FindByID(ctx, baseID); err != nil {
			return err
		}
		if _, err := s.FindByPreviousVersionID(ctx, baseID); err == nil {
			return repository.ErrConflict
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return s.Insert(ctx, &note)
	})
	if err != nil {
		return model.Note{}, err
	}
	return note, nil
}

// Delete removes one version from its chain. Only the owner of the
// specific row may delete it; anything else reports ErrNotFound
// without revealing whether the row exists. The removal is a splice:
// the at-most-one newer note pointing at the victim is relinked to the
// victim's predecessor (or to nothing when the victim is the root, or
// when the predecessor row is itself already gone), then the victim
// row is deleted. Head deletions need no relinking at all.
func (m *RevisionManager) Delete(ctx context.Context, noteID, actingUserID uint64) error {
	return m.store.RunInTx(ctx, func(ctx context.Context, s repository.NoteStore) error {
		victim, err := s.FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		if victim.UserID != actingUserID {
			return repository.ErrNotFound
		}

		parent, err := s.FindByPreviousVersionID(ctx, noteID)
		switch {
		case err == nil:
			next := victim.PreviousVersionID
			if next != nil {
				if _, err := s.FindByID(ctx, *next); errors.Is(err, repository.ErrNotFound) {
					next = nil
				} else if err != nil {
					return err
				}
			}
			if err := s.SetPreviousVersionID(ctx, parent.ID, next); err != nil {
				return err
			}
		case errors.Is(err, repository.ErrNotFound):
			// The victim is the head of its lineage; nothing points
			// at it, so nothing needs relinking.
		default:
			return err
		}

		return s.Delete(ctx, noteID)
	})
}
