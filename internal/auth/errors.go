// Package auth implements the token authority: it turns a user id into
// signed access and refresh credentials and turns a presented credential
// back into a user id. Access and refresh tokens live in separate trust
// domains, each signed with its own key, so neither can ever be replayed
// as the other.
package auth

import "errors"

// ErrInvalidCredential is returned when a token's signature does not
// verify under the key of the expected kind. A structurally valid
// refresh token presented as an access token fails this way.
var ErrInvalidCredential = errors.New("invalid credential")

// ErrCredentialExpired is returned when a token verified correctly but
// its expiry has passed. Expiry is terminal; the client must log in
// again to obtain a fresh pair.
var ErrCredentialExpired = errors.New("credential expired")

// ErrMalformedCredential is returned when a token cannot be parsed or
// is missing required claims.
var ErrMalformedCredential = errors.New("malformed credential")

// ErrCredentialRevoked is returned by rotation when a refresh token
// verifies cryptographically but no matching store row exists anymore,
// e.g. after logout or deletion of the owning user.
var ErrCredentialRevoked = errors.New("credential revoked")
