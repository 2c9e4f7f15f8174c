package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmytrik/notesApi/internal/model"
	"github.com/dmytrik/notesApi/internal/repository"
)

type fakeTokenStore struct {
	rows map[string]model.RefreshToken
	err  error
}

func (f *fakeTokenStore) FindByToken(_ context.Context, token string) (model.RefreshToken, error) {
	if f.err != nil {
		return model.RefreshToken{}, f.err
	}
	row, ok := f.rows[token]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return row, nil
}

func testConfig() Config {
	return Config{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}
}

func newTestAuthority(store RefreshTokenFinder) (*Authority, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := New(testConfig(), store)
	a.now = func() time.Time { return now }
	return a, &now
}

func TestIssueResolveRoundTrip(t *testing.T) {
	a, _ := newTestAuthority(nil)

	for _, kind := range []Kind{KindAccess, KindRefresh} {
		token, err := a.Issue(kind, 42)
		if err != nil {
			t.Fatalf("issue %s: %v", kind, err)
		}
		uid, err := a.Resolve(token, kind)
		if err != nil {
			t.Fatalf("resolve %s: %v", kind, err)
		}
		if uid != 42 {
			t.Fatalf("resolve %s: got uid %d, want 42", kind, uid)
		}
	}
}

func TestKeyDomainSeparation(t *testing.T) {
	a, _ := newTestAuthority(nil)

	refresh, err := a.IssueRefreshToken(7)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if _, err := a.Resolve(refresh, KindAccess); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("refresh token accepted as access: err=%v", err)
	}

	access, err := a.IssueAccessToken(7)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if _, err := a.Resolve(access, KindRefresh); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("access token accepted as refresh: err=%v", err)
	}
}

func TestResolveExpiry(t *testing.T) {
	a, now := newTestAuthority(nil)

	token, err := a.IssueAccessToken(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Still valid one second before expiry.
	*now = now.Add(a.cfg.AccessTTL - time.Second)
	if _, err := a.Resolve(token, KindAccess); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}

	// Expired one second after.
	*now = now.Add(2 * time.Second)
	if _, err := a.Resolve(token, KindAccess); !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestResolveMalformed(t *testing.T) {
	a, _ := newTestAuthority(nil)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c"} {
		if _, err := a.Resolve(token, KindAccess); !errors.Is(err, ErrMalformedCredential) {
			t.Fatalf("token %q: expected ErrMalformedCredential, got %v", token, err)
		}
	}
}

func TestResolveMissingSubject(t *testing.T) {
	a, _ := newTestAuthority(nil)

	// Correctly signed with the access key but without a subject claim.
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(a.now()),
		ExpiresAt: jwt.NewNumericDate(a.now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.AccessSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := a.Resolve(token, KindAccess); !errors.Is(err, ErrMalformedCredential) {
		t.Fatalf("expected ErrMalformedCredential, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	store := &fakeTokenStore{rows: map[string]model.RefreshToken{}}
	a, now := newTestAuthority(store)

	refresh, err := a.IssueRefreshToken(9)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	store.rows[refresh] = model.RefreshToken{
		Token: refresh, UserID: 9, ExpiresAt: now.Add(a.cfg.RefreshTTL),
	}

	access, err := a.Rotate(context.Background(), refresh)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	uid, err := a.Resolve(access, KindAccess)
	if err != nil || uid != 9 {
		t.Fatalf("rotated access token: uid=%d err=%v", uid, err)
	}
}

func TestRotateRevoked(t *testing.T) {
	store := &fakeTokenStore{rows: map[string]model.RefreshToken{}}
	a, _ := newTestAuthority(store)

	refresh, err := a.IssueRefreshToken(9)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	// No row stored: the token verifies cryptographically but the
	// session has been revoked.
	if _, err := a.Rotate(context.Background(), refresh); !errors.Is(err, ErrCredentialRevoked) {
		t.Fatalf("expected ErrCredentialRevoked, got %v", err)
	}
}

func TestRotateExpiredRow(t *testing.T) {
	store := &fakeTokenStore{rows: map[string]model.RefreshToken{}}
	a, now := newTestAuthority(store)

	refresh, err := a.IssueRefreshToken(9)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	// Row present but already expired (rows are not reaped in the
	// background; expiry is enforced here).
	store.rows[refresh] = model.RefreshToken{
		Token: refresh, UserID: 9, ExpiresAt: now.Add(-time.Hour),
	}
	if _, err := a.Rotate(context.Background(), refresh); !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestRotateRejectsAccessToken(t *testing.T) {
	store := &fakeTokenStore{rows: map[string]model.RefreshToken{}}
	a, _ := newTestAuthority(store)

	access, err := a.IssueAccessToken(9)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	// A leaked access token must never mint further access tokens.
	if _, err := a.Rotate(context.Background(), access); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestRotateStoreFailure(t *testing.T) {
	store := &fakeTokenStore{err: errors.New("connection lost")}
	a, _ := newTestAuthority(store)

	refresh, err := a.IssueRefreshToken(9)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	_, err = a.Rotate(context.Background(), refresh)
	if err == nil || errors.Is(err, ErrCredentialRevoked) {
		t.Fatalf("storage failure must not masquerade as revocation: %v", err)
	}
}

func TestAuthoritiesAreIndependent(t *testing.T) {
	a, _ := newTestAuthority(nil)
	b := New(Config{
		AccessSecret:  "other-access-secret",
		RefreshSecret: "other-refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, nil)

	token, err := a.IssueAccessToken(3)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Resolve(token, KindAccess); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("token from another authority accepted: %v", err)
	}
}
