package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "bookshelf/backend/internal/domain/identity"

	"golang.org/x/crypto/bcrypt"
)

// Service provides identity management use cases. Every mutating operation
// takes the resolved actor explicitly and consults the policy table before
// touching the store.
type Service struct {
	repo    domain.Repository
	nowFunc func() time.Time
}

// NewService constructs an identity service around the provided repository.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// Filter captures supported filters for listing identities.
type Filter struct {
	Role string
}

// CreateInput defines the payload to create a new identity.
type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// UpdateInput defines the payload to update an identity.
type UpdateInput struct {
	Username *string
	Email    *string
	Role     *string
}

// Signup registers a self-service account. Only READER signups are accepted;
// requesting any other role fails before anything is persisted.
func (s *Service) Signup(ctx context.Context, input CreateInput) (*domain.Identity, error) {
	if raw := strings.TrimSpace(input.Role); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		if role != domain.RoleReader {
			return nil, domain.ErrRoleNotAllowed
		}
	}
	input.Role = string(domain.RoleReader)
	return s.persistNew(ctx, input)
}

// Create persists a new identity on behalf of an administrator.
func (s *Service) Create(ctx context.Context, actor *domain.Identity, input CreateInput) (*domain.Identity, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}

	role := domain.RoleReader
	if raw := strings.TrimSpace(input.Role); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		role = parsed
	}
	input.Role = string(role)

	same := strings.EqualFold(strings.TrimSpace(input.Username), actor.Username)
	if !domain.CanCreateIdentity(actor.Role, role, same) {
		return nil, domain.ErrForbidden
	}
	return s.persistNew(ctx, input)
}

func (s *Service) persistNew(ctx context.Context, input CreateInput) (*domain.Identity, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	id := &domain.Identity{
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, id); err != nil {
		return nil, err
	}
	return sanitize(id), nil
}

// List returns identities matching the supplied filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*domain.Identity, error) {
	domainFilter := domain.Filter{}
	if trimmed := strings.TrimSpace(filter.Role); trimmed != "" {
		role, err := domain.ParseRole(trimmed)
		if err != nil {
			return nil, err
		}
		domainFilter.Role = role
	}

	items, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Identity, 0, len(items))
	for _, item := range items {
		out = append(out, sanitize(item))
	}
	return out, nil
}

// Get retrieves a single identity by its identifier.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Identity, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitize(found), nil
}

// Update modifies the target identity if the policy table permits the actor.
func (s *Service) Update(ctx context.Context, actor *domain.Identity, id int64, input UpdateInput) (*domain.Identity, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !domain.CanUpdateIdentity(actor.Role, target.Role, actor.ID == target.ID) {
		return nil, domain.ErrForbidden
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, errors.New("username is required")
		}
		target.Username = username
	}
	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		if email == "" {
			return nil, errors.New("email is required")
		}
		target.Email = email
	}
	if input.Role != nil {
		role, err := domain.ParseRole(*input.Role)
		if err != nil {
			return nil, err
		}
		target.Role = role
	}

	target.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return sanitize(target), nil
}

// Delete removes the target identity if the policy table permits the actor.
func (s *Service) Delete(ctx context.Context, actor *domain.Identity, id int64) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanDeleteIdentity(actor.Role, target.Role, actor.ID == target.ID) {
		return domain.ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

// SetCoverImage stores the uploaded cover reference for the identity.
func (s *Service) SetCoverImage(ctx context.Context, actor *domain.Identity, id int64, reference string) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanUpdateIdentity(actor.Role, target.Role, actor.ID == target.ID) {
		return domain.ErrForbidden
	}
	return s.repo.UpdateCoverImage(ctx, id, reference, s.nowFunc().UTC())
}

func sanitize(id *domain.Identity) *domain.Identity {
	if id == nil {
		return nil
	}
	copy := *id
	copy.PasswordHash = ""
	return &copy
}
