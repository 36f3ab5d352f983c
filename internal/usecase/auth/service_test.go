package auth

import (
	"context"
	"testing"
	"time"

	domain "bookshelf/backend/internal/domain/identity"
	"bookshelf/backend/internal/domain/identity/identitytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubTokens struct {
	generated   []string
	parseClaims *Claims
	parseErr    error
}

func (s *stubTokens) Generate(subject string) (string, error) {
	s.generated = append(s.generated, subject)
	return "token-for-" + subject, nil
}

func (s *stubTokens) Parse(string) (*Claims, error) {
	return s.parseClaims, s.parseErr
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func TestVerifyRequiresAnIdentifier(t *testing.T) {
	svc := NewService(identitytest.New(), &stubTokens{}, "")
	_, err := svc.Verify(context.Background(), domain.Credentials{Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrMissingIdentifier)
}

func TestVerifyByUsernameAndEmail(t *testing.T) {
	repo := identitytest.New()
	repo.Seed(domain.Identity{
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         domain.RoleReader,
		PasswordHash: hashOf(t, "correct horse"),
	})
	svc := NewService(repo, &stubTokens{}, "")
	ctx := context.Background()

	id, err := svc.Verify(ctx, domain.Credentials{Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)

	id, err = svc.Verify(ctx, domain.Credentials{Email: "Alice@Example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)

	_, err = svc.Verify(ctx, domain.Credentials{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrBadCredentials)

	_, err = svc.Verify(ctx, domain.Credentials{Username: "nobody", Password: "correct horse"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVerifyGuestBypassesPassword(t *testing.T) {
	repo := identitytest.New()
	repo.Seed(domain.Identity{
		Username: "kiosk",
		Email:    "kiosk@example.com",
		Role:     domain.RoleGuest,
	})
	svc := NewService(repo, &stubTokens{}, "")

	for _, password := range []string{"", "anything", "literally anything"} {
		id, err := svc.Verify(context.Background(), domain.Credentials{Username: "kiosk", Password: password})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleGuest, id.Role)
	}
}

func TestIssueTokenSubstitutesGuest(t *testing.T) {
	tokens := &stubTokens{}
	svc := NewService(identitytest.New(), tokens, "guestuser")
	ctx := context.Background()

	tok, err := svc.IssueToken(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "token-for-guestuser", tok)

	tok, err = svc.IssueToken(ctx, domain.NewGuest("guestuser"))
	require.NoError(t, err)
	assert.Equal(t, "token-for-guestuser", tok)
	assert.Equal(t, []string{"guestuser", "guestuser"}, tokens.generated)
}

func TestIssueTokenRejectsUnknownSubject(t *testing.T) {
	repo := identitytest.New()
	svc := NewService(repo, &stubTokens{}, "guestuser")

	stale := &domain.Identity{ID: 42, Username: "deleted", Role: domain.RoleReader}
	_, err := svc.IssueToken(context.Background(), stale)
	assert.ErrorIs(t, err, domain.ErrUnknownSubject)
}

func TestGuestSession(t *testing.T) {
	svc := NewService(identitytest.New(), &stubTokens{}, "guestuser")
	tok, guest, err := svc.GuestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-for-guestuser", tok)
	assert.Equal(t, domain.RoleGuest, guest.Role)
	assert.Equal(t, "guestuser", guest.Username)
	assert.True(t, guest.IsGuest())
}

func TestAuthenticateGuestSkipsStore(t *testing.T) {
	tokens := &stubTokens{parseClaims: &Claims{Subject: "guestuser", ExpiresAt: time.Now().Add(time.Hour)}}
	svc := NewService(identitytest.New(), tokens, "guestuser")

	actor, err := svc.Authenticate(context.Background(), "whatever")
	require.NoError(t, err)
	assert.True(t, actor.IsGuest())
}

func TestAuthenticateDeletedSubject(t *testing.T) {
	tokens := &stubTokens{parseClaims: &Claims{Subject: "ghost", ExpiresAt: time.Now().Add(time.Hour)}}
	svc := NewService(identitytest.New(), tokens, "guestuser")

	_, err := svc.Authenticate(context.Background(), "whatever")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	tokens := &stubTokens{
		parseClaims: &Claims{Subject: "alice", ExpiresAt: time.Now().Add(-time.Minute)},
		parseErr:    domain.ErrTokenExpired,
	}
	svc := NewService(identitytest.New(), tokens, "guestuser")

	_, err := svc.Authenticate(context.Background(), "whatever")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestIsValidRequiresSubjectMatchAndFreshExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alice := &domain.Identity{Username: "alice", Role: domain.RoleReader}
	bob := &domain.Identity{Username: "bob", Role: domain.RoleReader}

	tokens := &stubTokens{parseClaims: &Claims{Subject: "alice", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}}
	svc := NewService(identitytest.New(), tokens, "guestuser")
	svc.nowFunc = func() time.Time { return now }

	assert.True(t, svc.IsValid("tok", alice))
	assert.False(t, svc.IsValid("tok", bob))
	assert.False(t, svc.IsValid("tok", nil))

	svc.nowFunc = func() time.Time { return now.Add(2 * time.Hour) }
	assert.False(t, svc.IsValid("tok", alice))
}

func TestChangePassword(t *testing.T) {
	repo := identitytest.New()
	seeded := repo.Seed(domain.Identity{
		Username:     "alice",
		Email:        "alice@example.com",
		Role:         domain.RoleReader,
		PasswordHash: hashOf(t, "old-secret"),
	})
	svc := NewService(repo, &stubTokens{}, "")
	ctx := context.Background()

	assert.ErrorIs(t, svc.ChangePassword(ctx, seeded.ID, "wrong", "new-secret"), domain.ErrPasswordMismatch)
	assert.ErrorIs(t, svc.ChangePassword(ctx, seeded.ID, "old-secret", "old-secret"), domain.ErrPasswordUnchanged)
	require.NoError(t, svc.ChangePassword(ctx, seeded.ID, "old-secret", "new-secret"))

	_, err := svc.Verify(ctx, domain.Credentials{Username: "alice", Password: "new-secret"})
	assert.NoError(t, err)
}
