package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmytrik/notesApi/internal/model"
	"github.com/dmytrik/notesApi/internal/repository"
)

// Kind tags the two credential variants the authority issues. Each kind
// carries its own signing key and lifetime; parameterizing one signing
// routine by kind keeps the key-separation invariant enforced in a
// single place instead of two diverging code paths.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Config carries the signing keys and lifetimes for both credential
// kinds. It is passed in at construction so multiple authorities (e.g.
// one per test) can coexist without shared global state.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// RefreshTokenFinder is the slice of the credential store the authority
// needs for rotation: looking up a refresh-token row by its exact token
// string. Absence must surface as repository.ErrNotFound.
type RefreshTokenFinder interface {
	FindByToken(ctx context.Context, token string) (model.RefreshToken, error)
}

// Authority issues and validates the two token kinds. Issuing and
// resolving are stateless; only Rotate consults the store, because a
// refresh token is honored solely while its persisted row survives.
type Authority struct {
	cfg    Config
	tokens RefreshTokenFinder
	now    func() time.Time
}

// New constructs an Authority. tokens may be nil when rotation is not
// needed (e.g. middleware that only resolves access tokens).
func New(cfg Config, tokens RefreshTokenFinder) *Authority {
	return &Authority{cfg: cfg, tokens: tokens, now: time.Now}
}

func (a *Authority) secret(k Kind) []byte {
	if k == KindRefresh {
		return []byte(a.cfg.RefreshSecret)
	}
	return []byte(a.cfg.AccessSecret)
}

func (a *Authority) lifetime(k Kind) time.Duration {
	if k == KindRefresh {
		return a.cfg.RefreshTTL
	}
	return a.cfg.AccessTTL
}

// Issue signs a credential of the given kind for a user. The token
// encodes subject, issued-at and expiry; nothing is persisted here.
// For refresh tokens the caller stores the returned string as the
// matching credential-store row.
func (a *Authority) Issue(k Kind, userID uint64) (string, error) {
	now := a.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime(k))),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(a.secret(k))
}

// IssueAccessToken signs a short-lived access credential. Access tokens
// are stateless and cannot be individually revoked.
func (a *Authority) IssueAccessToken(userID uint64) (string, error) {
	return a.Issue(KindAccess, userID)
}

// IssueRefreshToken signs a refresh credential. The caller must persist
// the returned string so Rotate can later find it.
func (a *Authority) IssueRefreshToken(userID uint64) (string, error) {
	return a.Issue(KindRefresh, userID)
}

// Resolve verifies signature and expiry using the key of the expected
// kind and returns the user id the token was issued for. A token signed
// with the other kind's key fails with ErrInvalidCredential.
func (a *Authority) Resolve(token string, k Kind) (uint64, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return a.secret(k), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, ErrCredentialExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return 0, ErrMalformedCredential
		default:
			return 0, ErrInvalidCredential
		}
	}
	if !parsed.Valid {
		return 0, ErrInvalidCredential
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return 0, ErrMalformedCredential
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrMalformedCredential
	}
	return uid, nil
}

// Rotate exchanges a refresh token for a new access token. Beyond the
// cryptographic check, the exact token string must still have a
// non-expired row in the credential store: a deleted row means the
// session was revoked, and a verifying token is rejected regardless.
// The refresh token itself is not rotated; one login keeps one refresh
// token for its whole lifetime.
func (a *Authority) Rotate(ctx context.Context, refreshToken string) (string, error) {
	uid, err := a.Resolve(refreshToken, KindRefresh)
	if err != nil {
		return "", err
	}
	row, err := a.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrCredentialRevoked
		}
		return "", err
	}
	if a.now().UTC().After(row.ExpiresAt) {
		return "", ErrCredentialExpired
	}
	return a.IssueAccessToken(uid)
}
