package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmytrik/notesApi/internal/model"
)

// TokenRepo persists refresh-token rows. The signed token string is
// itself the lookup key; a row exists only for tokens the authority
// issued that have not been logged out or cascaded away with their
// user. Expired rows are left in place and rejected at lookup time by
// the authority, not collected by a background reaper.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh inserts a refresh-token row for a user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES (?,?,?)",
		userID, token, expiresAt)
	return err
}

// FindByToken returns the row for the exact token string, or
// ErrNotFound. This satisfies the authority's rotation store surface.
func (r *TokenRepo) FindByToken(ctx context.Context, token string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx,
		"SELECT id,token,expires_at,user_id,created_at FROM refresh_tokens WHERE token=? LIMIT 1",
		token).Scan(&t.ID, &t.Token, &t.ExpiresAt, &t.UserID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return model.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	return t, nil
}

// DeleteByToken removes a single refresh-token row (logout of one
// session). Deleting an already-absent token is not an error.
func (r *TokenRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token=?", token)
	return err
}

// DeleteAllForUser removes every refresh token belonging to a user,
// logging them out of all sessions.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
