package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. The
// signed credential itself is the storage key: a row exists only for
// tokens the token authority issued that have not been logged out or
// removed with their owning user. Expired rows are not reaped in the
// background; expiry is checked when the token is presented.
//
// Fields:
//  ID        – primary key identifier.
//  Token     – the signed refresh credential (unique).
//  ExpiresAt – expiration timestamp of the token.
//  UserID    – owner of the token.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64    // refresh_tokens.id
	Token     string    // refresh_tokens.token
	ExpiresAt time.Time // refresh_tokens.expires_at
	UserID    uint64    // refresh_tokens.user_id
	CreatedAt time.Time // refresh_tokens.created_at
}
