package auth

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	domain "bookshelf/backend/internal/domain/identity"

	"golang.org/x/crypto/bcrypt"
)

// Service coordinates authentication workflows: credential verification,
// token issuance and per-request actor resolution.
type Service struct {
	identities    domain.Repository
	tokens        TokenManager
	guestUsername string
	nowFunc       func() time.Time
}

// NewService constructs an auth service.
func NewService(identities domain.Repository, tokens TokenManager, guestUsername string) *Service {
	if guestUsername == "" {
		guestUsername = domain.DefaultGuestUsername
	}
	return &Service{
		identities:    identities,
		tokens:        tokens,
		guestUsername: guestUsername,
		nowFunc:       time.Now,
	}
}

// GuestUsername exposes the reserved guest identifier.
func (s *Service) GuestUsername() string {
	return s.guestUsername
}

// Verify resolves the identity behind the supplied credentials. Exactly one
// of username or email must be given. GUEST-role records bypass the secret
// check entirely; everyone else must match the stored hash.
func (s *Service) Verify(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	username := strings.TrimSpace(creds.Username)
	email := strings.TrimSpace(strings.ToLower(creds.Email))
	if username == "" && email == "" {
		return nil, domain.ErrMissingIdentifier
	}

	var (
		id  *domain.Identity
		err error
	)
	if username != "" {
		id, err = s.identities.GetByUsername(ctx, username)
	} else {
		id, err = s.identities.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	if id.Role == domain.RoleGuest {
		// Guest accounts have no password; verification short-circuits.
		return id, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, domain.ErrBadCredentials
	}
	return id, nil
}

// Login verifies credentials and mints a token for the resolved identity.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, *domain.Identity, error) {
	id, err := s.Verify(ctx, creds)
	if err != nil {
		return "", nil, err
	}
	token, err := s.IssueToken(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return token, sanitize(id), nil
}

// IssueToken mints a signed token for the given identity. A nil identity or
// the reserved guest username is substituted with the synthetic guest, so a
// token is always mintable without a real principal. Any other subject must
// still exist in the store.
func (s *Service) IssueToken(ctx context.Context, id *domain.Identity) (string, error) {
	if id == nil || id.Username == s.guestUsername {
		id = domain.NewGuest(s.guestUsername)
	} else {
		if _, err := s.identities.GetByUsername(ctx, id.Username); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return "", domain.ErrUnknownSubject
			}
			return "", err
		}
	}
	return s.tokens.Generate(id.Username)
}

// GuestSession mints a token for the synthetic guest. This is the only
// unauthenticated path to a guest token.
func (s *Service) GuestSession(ctx context.Context) (string, *domain.Identity, error) {
	guest := domain.NewGuest(s.guestUsername)
	token, err := s.IssueToken(ctx, nil)
	if err != nil {
		return "", nil, err
	}
	return token, guest, nil
}

// Authenticate resolves a bearer token to the effective actor. The reserved
// guest subject is synthesized without a store lookup; every other subject
// must resolve to a persisted record.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) && claims != nil {
			log.Printf("rejected expired token for subject %q", claims.Subject)
		}
		return nil, err
	}

	if claims.Subject == s.guestUsername {
		return domain.NewGuest(s.guestUsername), nil
	}

	id, err := s.identities.GetByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return sanitize(id), nil
}

// IsValid reports whether the token belongs to the candidate identity and is
// still within its lifetime. Both conditions are required.
func (s *Service) IsValid(token string, candidate *domain.Identity) bool {
	if candidate == nil {
		return false
	}
	claims, err := s.tokens.Parse(token)
	if err != nil || claims == nil {
		return false
	}
	return claims.Subject == candidate.Username && claims.ExpiresAt.After(s.nowFunc())
}

// RenewToken exchanges a still-valid token for a fresh one.
func (s *Service) RenewToken(ctx context.Context, token string) (string, error) {
	actor, err := s.Authenticate(ctx, token)
	if err != nil {
		return "", err
	}
	return s.IssueToken(ctx, actor)
}

// ChangePassword rotates the caller's password after verifying the current
// one.
func (s *Service) ChangePassword(ctx context.Context, id int64, current, next string) error {
	current = strings.TrimSpace(current)
	next = strings.TrimSpace(next)
	if next == "" {
		return errors.New("new password is required")
	}
	if current == next {
		return domain.ErrPasswordUnchanged
	}

	stored, err := s.identities.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(current)); err != nil {
		return domain.ErrPasswordMismatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.identities.UpdatePassword(ctx, id, string(hashed), s.nowFunc().UTC())
}

func sanitize(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	copy := *id
	copy.PasswordHash = ""
	return &copy
}
