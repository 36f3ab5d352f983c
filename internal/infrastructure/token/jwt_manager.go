package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domain "bookshelf/backend/internal/domain/identity"
	usecase "bookshelf/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates HS256 tokens carrying sub/iat/exp claims.
type JWTManager struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	nowFunc func() time.Time
}

// NewJWTManager constructs a manager from base64 key material. The secret is
// decoded once here so every signing and parsing call uses the same bytes.
func NewJWTManager(secretBase64 string, ttl time.Duration, issuer string) (*JWTManager, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding token secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	return &JWTManager{
		secret:  secret,
		ttl:     ttl,
		issuer:  issuer,
		nowFunc: time.Now,
	}, nil
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Generate creates a signed JWT for the subject.
func (m *JWTManager) Generate(subject string) (string, error) {
	now := m.nowFunc().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse verifies the signature and returns the decoded claims. An expired
// but otherwise sound token yields its claims alongside
// domain.ErrTokenExpired so the caller can still read who it belonged to;
// signature or format defects yield nil claims and domain.ErrTokenInvalid.
func (m *JWTManager) Parse(tokenString string) (*usecase.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.nowFunc().UTC() }))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && parsed != nil {
			if claims := extract(parsed); claims != nil {
				return claims, domain.ErrTokenExpired
			}
		}
		return nil, domain.ErrTokenInvalid
	}

	claims := extract(parsed)
	if claims == nil || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

func extract(t *jwt.Token) *usecase.Claims {
	registered, ok := t.Claims.(*jwt.RegisteredClaims)
	if !ok || registered == nil {
		return nil
	}
	out := &usecase.Claims{Subject: registered.Subject}
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out
}
