package token

import (
	"encoding/base64"
	"testing"
	"time"

	domain "bookshelf/backend/internal/domain/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("an-adequately-long-test-secret"))

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, ttl, "bookshelf-test")
	require.NoError(t, err)
	return m
}

func TestNewJWTManagerRejectsBadSecret(t *testing.T) {
	_, err := NewJWTManager("not!!base64", time.Hour, "x")
	assert.Error(t, err)

	_, err = NewJWTManager("", time.Hour, "x")
	assert.Error(t, err)
}

func TestGenerateParseRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Hour)
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.nowFunc = func() time.Time { return issued }

	tok, err := m.Generate("alice")
	require.NoError(t, err)

	claims, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, issued, claims.IssuedAt)
	assert.Equal(t, issued.Add(time.Hour), claims.ExpiresAt)
}

func TestParseExpiredStillYieldsClaims(t *testing.T) {
	m := newTestManager(t, time.Minute)
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.nowFunc = func() time.Time { return issued }

	tok, err := m.Generate("bob")
	require.NoError(t, err)

	m.nowFunc = func() time.Time { return issued.Add(2 * time.Minute) }
	claims, err := m.Parse(tok)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	require.NotNil(t, claims)
	assert.Equal(t, "bob", claims.Subject)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	m := newTestManager(t, time.Hour)
	tok, err := m.Generate("carol")
	require.NoError(t, err)

	tampered := tok[:len(tok)-2] + "xx"
	claims, err := m.Parse(tampered)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.Nil(t, claims)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	m := newTestManager(t, time.Hour)
	other, err := NewJWTManager(base64.StdEncoding.EncodeToString([]byte("a-different-secret-entirely")), time.Hour, "bookshelf-test")
	require.NoError(t, err)

	tok, err := other.Generate("dave")
	require.NoError(t, err)

	claims, err := m.Parse(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.Nil(t, claims)
}

func TestParseRejectsGarbage(t *testing.T) {
	m := newTestManager(t, time.Hour)
	claims, err := m.Parse("definitely.not.a-jwt")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.Nil(t, claims)
}
