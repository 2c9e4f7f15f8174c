package repository

import (
	"context"
	"database/sql"

	"github.com/dmytrik/notesApi/internal/model"
)

// NoteStore is the mutation surface the revision chain manager runs
// against. Every implementation must keep the chain invariant: at most
// one note points at a given previous version. The SQL implementation
// below executes inside a single transaction; tests provide an
// in-memory arena.
type NoteStore interface {
	FindByID(ctx context.Context, id uint64) (model.Note, error)
	FindByPreviousVersionID(ctx context.Context, previousID uint64) (model.Note, error)
	Insert(ctx context.Context, n *model.Note) error
	SetPreviousVersionID(ctx context.Context, id uint64, previousID *uint64) error
	Delete(ctx context.Context, id uint64) error
}

// NoteRepo provides reads over the notes table and runs chain
// mutations inside one transaction via RunInTx. A crash or error
// between the splice's find-parent and update-parent steps rolls the
// whole transaction back, so the chain never ends up with a dangling
// or duplicated previous_version_id.
type NoteRepo struct{ db *sql.DB }

func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{db: db} }

// RunInTx begins a transaction, hands the callback a NoteStore bound to
// it and commits on success. Any error from the callback rolls back.
func (r *NoteRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, s NoteStore) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(ctx, &noteTxStore{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// FindByID fetches a single note outside any transaction.
func (r *NoteRepo) FindByID(ctx context.Context, id uint64) (model.Note, error) {
	return scanNote(r.db.QueryRowContext(ctx,
		"SELECT id,text,summary,previous_version_id,created_at,user_id FROM notes WHERE id=? LIMIT 1", id))
}

// ListAll returns every note, newest first.
func (r *NoteRepo) ListAll(ctx context.Context) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,text,summary,previous_version_id,created_at,user_id FROM notes ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectNotes(rows)
}

// ListByUser returns the notes owned by one user, newest first.
func (r *NoteRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,text,summary,previous_version_id,created_at,user_id FROM notes WHERE user_id=? ORDER BY id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectNotes(rows)
}

// noteTxStore implements NoteStore over an open transaction.
type noteTxStore struct{ tx *sql.Tx }

func (s *noteTxStore) FindByID(ctx context.Context, id uint64) (model.Note, error) {
	return scanNote(s.tx.QueryRowContext(ctx,
		"SELECT id,text,summary,previous_version_id,created_at,user_id FROM notes WHERE id=? LIMIT 1", id))
}

func (s *noteTxStore) FindByPreviousVersionID(ctx context.Context, previousID uint64) (model.Note, error) {
	return scanNote(s.tx.QueryRowContext(ctx,
		"SELECT id,text,summary,previous_version_id,created_at,user_id FROM notes WHERE previous_version_id=? LIMIT 1",
		previousID))
}

func (s *noteTxStore) Insert(ctx context.Context, n *model.Note) error {
	res, err := s.tx.ExecContext(ctx,
		"INSERT INTO notes (text, summary, previous_version_id, user_id) VALUES (?,?,?,?)",
		n.Text, n.Summary, n.PreviousVersionID, n.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	// Query back the row to populate created_at set by the database.
	return s.tx.QueryRowContext(ctx,
		"SELECT created_at FROM notes WHERE id=?", n.ID).Scan(&n.CreatedAt)
}

func (s *noteTxStore) SetPreviousVersionID(ctx context.Context, id uint64, previousID *uint64) error {
	res, err := s.tx.ExecContext(ctx,
		"UPDATE notes SET previous_version_id=? WHERE id=?", previousID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *noteTxStore) Delete(ctx context.Context, id uint64) error {
	res, err := s.tx.ExecContext(ctx, "DELETE FROM notes WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (model.Note, error) {
	var (
		n        model.Note
		summary  sql.NullString
		previous sql.NullInt64
	)
	err := row.Scan(&n.ID, &n.Text, &summary, &previous, &n.CreatedAt, &n.UserID)
	if err == sql.ErrNoRows {
		return model.Note{}, ErrNotFound
	}
	if err != nil {
		return model.Note{}, err
	}
	if summary.Valid {
		s := summary.String
		n.Summary = &s
	}
	if previous.Valid {
		p := uint64(previous.Int64)
		n.PreviousVersionID = &p
	}
	return n, nil
}

func collectNotes(rows *sql.Rows) ([]model.Note, error) {
	notes := make([]model.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}
