package model

import (
	"time"

	"github.com/dmytrik/notesApi/internal/utils"
)

// User represents a row in the `users` table. The password digest is
// deliberately unexported: callers outside the storage layer can only
// verify a candidate password, never read the stored hash. Rows are
// rebuilt from the database via RestoreUser.
//
// Fields:
//  ID        – primary key identifier of the user.
//  Email     – unique, lowercased email address.
//  CreatedAt – timestamp of creation.
type User struct {
	ID             uint64    // users.id
	Email          string    // users.email
	passwordDigest string    // users.password_digest (write-only)
	CreatedAt      time.Time // users.created_at
}

// RestoreUser rebuilds a User from its stored columns. Only the
// repository layer should call this; the digest never travels
// anywhere else.
func RestoreUser(id uint64, email, passwordDigest string, createdAt time.Time) User {
	return User{ID: id, Email: email, passwordDigest: passwordDigest, CreatedAt: createdAt}
}

// VerifyPassword reports whether the candidate password matches the
// stored digest. This is the only operation exposed over the digest.
func (u *User) VerifyPassword(candidate string) bool {
	return utils.VerifyPassword(u.passwordDigest, candidate)
}
