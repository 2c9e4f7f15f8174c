package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmytrik/notesApi/internal/model"
	"github.com/dmytrik/notesApi/internal/utils"
)

// UserRepo persists user accounts. Password hashing happens here on the
// way in; the digest is scanned back only into the write-only field of
// model.User and never leaves the model as plain data.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a user with a freshly hashed password and returns the
// new id. Email is normalized to lower case before the uniqueness
// check; a duplicate yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	digest, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password_digest) VALUES (?,?)",
		email, digest)
	if err != nil {
		// MySQL error 1062: duplicate entry for unique key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx,
		"SELECT id,email,password_digest,created_at FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx,
		"SELECT id,email,password_digest,created_at FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) scanOne(ctx context.Context, query string, arg interface{}) (model.User, error) {
	var (
		id        uint64
		email     string
		digest    string
		createdAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&id, &email, &digest, &createdAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return model.RestoreUser(id, email, digest, createdAt), nil
}

// Delete removes a user and cascades the deletion of their refresh
// tokens in the same transaction. Notes do not cascade: while any note
// row still names the user as owner the deletion is refused with
// ErrConflict, so a dangling notes.user_id can never occur.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var owned int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE user_id=?", id).Scan(&owned); err != nil {
		return err
	}
	if owned > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
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
	return tx.Commit()
}
