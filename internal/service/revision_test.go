package service

import (
	"context"
	"errors"
	"testing"

	"github.com/dmytrik/notesApi/internal/model"
	"github.com/dmytrik/notesApi/internal/repository"
)

// memNoteStore is an in-memory arena keyed by surrogate id. RunInTx
// snapshots the state and restores it when the callback fails, mirroring
// the rollback semantics of the SQL implementation.
type memNoteStore struct {
	notes  map[uint64]model.Note
	nextID uint64

	failSetPrevious bool // inject a failure mid-splice
}

func newMemNoteStore() *memNoteStore {
	return &memNoteStore{notes: map[uint64]model.Note{}, nextID: 1}
}

func (m *memNoteStore) RunInTx(ctx context.Context, fn func(ctx context.Context, s repository.NoteStore) error) error {
	snapshot := make(map[uint64]model.Note, len(m.notes))
	for id, n := range m.notes {
		snapshot[id] = n
	}
	snapID := m.nextID
	if err := fn(ctx, m); err != nil {
		m.notes = snapshot
		m.nextID = snapID
		return err
	}
	return nil
}

func (m *memNoteStore) FindByID(_ context.Context, id uint64) (model.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return model.Note{}, repository.ErrNotFound
	}
	return n, nil
}

func (m *memNoteStore) FindByPreviousVersionID(_ context.Context, previousID uint64) (model.Note, error) {
	for _, n := range m.notes {
		if n.PreviousVersionID != nil && *n.PreviousVersionID == previousID {
			return n, nil
		}
	}
	return model.Note{}, repository.ErrNotFound
}

func (m *memNoteStore) Insert(_ context.Context, n *model.Note) error {
	n.ID = m.nextID
	m.nextID++
	m.notes[n.ID] = *n
	return nil
}

func (m *memNoteStore) SetPreviousVersionID(_ context.Context, id uint64, previousID *uint64) error {
	if m.failSetPrevious {
		return errors.New("injected failure")
	}
	n, ok := m.notes[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.PreviousVersionID = previousID
	m.notes[id] = n
	return nil
}

func (m *memNoteStore) Delete(_ context.Context, id uint64) error {
	if _, ok := m.notes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.notes, id)
	return nil
}

// buildChain creates a lineage of n versions owned by userID and
// returns the notes oldest first (index 0 is the root).
func buildChain(t *testing.T, m *RevisionManager, userID uint64, n int) []model.Note {
	t.Helper()
	ctx := context.Background()

	notes := make([]model.Note, 0, n)
	root, err := m.CreateRoot(ctx, userID, "v1", nil)
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	notes = append(notes, root)
	for i := 1; i < n; i++ {
		rev, err := m.CreateRevision(ctx, notes[i-1].ID, userID, "v"+string(rune('1'+i)), nil)
		if err != nil {
			t.Fatalf("create revision %d: %v", i, err)
		}
		notes = append(notes, rev)
	}
	return notes
}

// assertChainIntegrity checks the two structural invariants: no two
// notes share a previous_version_id, and every note reaches a nil-
// previous root in finitely many steps.
func assertChainIntegrity(t *testing.T, store *memNoteStore) {
	t.Helper()
	seen := map[uint64]uint64{}
	for id, n := range store.notes {
		if n.PreviousVersionID == nil {
			continue
		}
		if other, dup := seen[*n.PreviousVersionID]; dup {
			t.Fatalf("notes %d and %d both point at %d", id, other, *n.PreviousVersionID)
		}
		seen[*n.PreviousVersionID] = id
	}
	for id, n := range store.notes {
		steps := 0
		cur := n
		for cur.PreviousVersionID != nil {
			next, ok := store.notes[*cur.PreviousVersionID]
			if !ok {
				// Dangling pointers can only come from chains built by
				// hand in a test; the manager never produces them.
				break
			}
			cur = next
			steps++
			if steps > len(store.notes) {
				t.Fatalf("cycle detected starting from note %d", id)
			}
		}
	}
}

func TestCreateRootStartsLineage(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)

	summary := "short"
	note, err := m.CreateRoot(context.Background(), 1, "hello", &summary)
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if note.ID == 0 {
		t.Fatal("expected an assigned id")
	}
	if note.PreviousVersionID != nil {
		t.Fatalf("root must have nil previous version, got %v", *note.PreviousVersionID)
	}
	if note.UserID != 1 || note.Text != "hello" || note.Summary == nil || *note.Summary != "short" {
		t.Fatalf("unexpected note: %+v", note)
	}
}

func TestCreateRootEmptyText(t *testing.T) {
	m := NewRevisionManager(newMemNoteStore())
	if _, err := m.CreateRoot(context.Background(), 1, "   ", nil); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestCreateRevisionThreadsChain(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	root, err := m.CreateRoot(ctx, 1, "first", nil)
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	rev, err := m.CreateRevision(ctx, root.ID, 2, "second", nil)
	if err != nil {
		t.Fatalf("create revision: %v", err)
	}
	if rev.PreviousVersionID == nil || *rev.PreviousVersionID != root.ID {
		t.Fatalf("revision must point at base, got %v", rev.PreviousVersionID)
	}
	// The new row belongs to the editor, not the base note's owner.
	if rev.UserID != 2 {
		t.Fatalf("revision owner = %d, want editor 2", rev.UserID)
	}
	// The base row stays untouched.
	base, err := store.FindByID(ctx, root.ID)
	if err != nil {
		t.Fatalf("base disappeared: %v", err)
	}
	if base.Text != "first" || base.PreviousVersionID != nil {
		t.Fatalf("base was mutated: %+v", base)
	}
	assertChainIntegrity(t, store)
}

func TestCreateRevisionMissingBase(t *testing.T) {
	m := NewRevisionManager(newMemNoteStore())
	if _, err := m.CreateRevision(context.Background(), 99, 1, "text", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRevisionOnNonHead(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	chain := buildChain(t, m, 1, 2)

	// Revising the root again would give it two successors.
	if _, err := m.CreateRevision(context.Background(), chain[0].ID, 1, "fork", nil); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	assertChainIntegrity(t, store)
}

func TestChainUniquenessUnderRepeatedRevisions(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	buildChain(t, m, 1, 6)
	assertChainIntegrity(t, store)
}

func TestDeleteSoleNote(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	root, err := m.CreateRoot(ctx, 1, "only", nil)
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if err := m.Delete(ctx, root.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.notes) != 0 {
		t.Fatalf("store not empty: %+v", store.notes)
	}
	// Nothing may still reference the deleted id.
	if _, err := store.FindByPreviousVersionID(ctx, root.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("dangling reference to deleted note: %v", err)
	}
}

func TestDeleteHeadLeavesRestIntact(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()
	chain := buildChain(t, m, 1, 3)

	head := chain[2]
	if err := m.Delete(ctx, head.ID, 1); err != nil {
		t.Fatalf("delete head: %v", err)
	}
	mid, err := store.FindByID(ctx, chain[1].ID)
	if err != nil {
		t.Fatalf("middle gone: %v", err)
	}
	if mid.PreviousVersionID == nil || *mid.PreviousVersionID != chain[0].ID {
		t.Fatalf("middle's pointer changed: %v", mid.PreviousVersionID)
	}
	assertChainIntegrity(t, store)
}

func TestDeleteMiddleSplices(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	// Chain A -> B -> C with A newest: C is chain[0], A is chain[2].
	chain := buildChain(t, m, 1, 3)
	c, b, a := chain[0], chain[1], chain[2]

	if err := m.Delete(ctx, b.ID, 1); err != nil {
		t.Fatalf("delete middle: %v", err)
	}
	if _, err := store.FindByID(ctx, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("middle still present: %v", err)
	}
	newest, err := store.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("head gone: %v", err)
	}
	if newest.PreviousVersionID == nil || *newest.PreviousVersionID != c.ID {
		t.Fatalf("head must point at root after splice, got %v", newest.PreviousVersionID)
	}
	assertChainIntegrity(t, store)
}

func TestDeleteRootPromotesSuccessor(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	// Chain A -> B with B the root.
	chain := buildChain(t, m, 1, 2)
	b, a := chain[0], chain[1]

	if err := m.Delete(ctx, b.ID, 1); err != nil {
		t.Fatalf("delete root: %v", err)
	}
	newRoot, err := store.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("successor gone: %v", err)
	}
	if newRoot.PreviousVersionID != nil {
		t.Fatalf("successor must become root, still points at %d", *newRoot.PreviousVersionID)
	}
	assertChainIntegrity(t, store)
}

func TestDeleteMiddleScenario(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	n1, err := m.CreateRoot(ctx, 1, "first", nil)
	if err != nil {
		t.Fatalf("create n1: %v", err)
	}
	n2, err := m.CreateRevision(ctx, n1.ID, 1, "second", nil)
	if err != nil {
		t.Fatalf("create n2: %v", err)
	}
	n3, err := m.CreateRevision(ctx, n2.ID, 1, "third", nil)
	if err != nil {
		t.Fatalf("create n3: %v", err)
	}

	if err := m.Delete(ctx, n2.ID, 1); err != nil {
		t.Fatalf("delete n2: %v", err)
	}
	got, err := store.FindByID(ctx, n3.ID)
	if err != nil {
		t.Fatalf("n3 gone: %v", err)
	}
	if got.PreviousVersionID == nil || *got.PreviousVersionID != n1.ID {
		t.Fatalf("n3 must point at n1, got %v", got.PreviousVersionID)
	}
	if _, err := store.FindByID(ctx, n2.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("n2 still present: %v", err)
	}
}

func TestDeleteRequiresOwnership(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	note, err := m.CreateRoot(ctx, 1, "mine", nil)
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if err := m.Delete(ctx, note.ID, 2); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("foreign delete must look like not-found, got %v", err)
	}
	if _, err := store.FindByID(ctx, note.ID); err != nil {
		t.Fatalf("note must survive a foreign delete: %v", err)
	}
}

func TestDeleteMissing(t *testing.T) {
	m := NewRevisionManager(newMemNoteStore())
	if err := m.Delete(context.Background(), 404, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteWithDanglingPredecessor(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()

	// Hand-build parent -> victim -> (missing) to simulate a chain
	// whose tail row is gone; the splice must fall back to nil.
	missing := uint64(77)
	victim := model.Note{Text: "victim", UserID: 1, PreviousVersionID: &missing}
	if err := store.Insert(ctx, &victim); err != nil {
		t.Fatalf("insert victim: %v", err)
	}
	vid := victim.ID
	parent := model.Note{Text: "parent", UserID: 1, PreviousVersionID: &vid}
	if err := store.Insert(ctx, &parent); err != nil {
		t.Fatalf("insert parent: %v", err)
	}

	if err := m.Delete(ctx, victim.ID, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := store.FindByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("parent gone: %v", err)
	}
	if got.PreviousVersionID != nil {
		t.Fatalf("parent must become root when predecessor is gone, points at %d", *got.PreviousVersionID)
	}
}

func TestSpliceIsAtomic(t *testing.T) {
	store := newMemNoteStore()
	m := NewRevisionManager(store)
	ctx := context.Background()
	chain := buildChain(t, m, 1, 3)

	store.failSetPrevious = true
	if err := m.Delete(ctx, chain[1].ID, 1); err == nil {
		t.Fatal("expected injected failure")
	}
	store.failSetPrevious = false

	// The failed splice must leave the chain exactly as it was.
	if _, err := store.FindByID(ctx, chain[1].ID); err != nil {
		t.Fatalf("victim must survive a failed splice: %v", err)
	}
	head, err := store.FindByID(ctx, chain[2].ID)
	if err != nil {
		t.Fatalf("head gone: %v", err)
	}
	if head.PreviousVersionID == nil || *head.PreviousVersionID != chain[1].ID {
		t.Fatalf("head pointer changed by failed splice: %v", head.PreviousVersionID)
	}
	assertChainIntegrity(t, store)
}
