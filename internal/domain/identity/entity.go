package identity

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates a missing identity record.
	ErrNotFound = errors.New("identity not found")
	// ErrUsernameExists signals a duplicate username registration.
	ErrUsernameExists = errors.New("username already taken")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrBadCredentials indicates a login failure without revealing which half failed.
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrMissingIdentifier indicates neither username nor email was supplied.
	ErrMissingIdentifier = errors.New("username or email is required")
	// ErrInvalidRole indicates the provided role is not supported.
	ErrInvalidRole = errors.New("invalid role")
	// ErrRoleNotAllowed indicates the requested role is not permitted for the operation.
	ErrRoleNotAllowed = errors.New("role not allowed")
	// ErrForbidden indicates the actor lacks permission for the target.
	ErrForbidden = errors.New("operation not permitted")
	// ErrUnauthenticated indicates no actor could be resolved for a gated operation.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrTokenInvalid means a supplied token cannot be validated.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means a token was well-formed and signed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrUnknownSubject means token issuance was requested for a non-existent identity.
	ErrUnknownSubject = errors.New("token subject no longer exists")
	// ErrVersionConflict indicates a concurrent writer moved a version counter.
	ErrVersionConflict = errors.New("concurrent modification detected")
	// ErrBookAlreadyOnShelf indicates a duplicate membership add.
	ErrBookAlreadyOnShelf = errors.New("book already on shelf")
	// ErrBookNotOnShelf indicates a membership remove for an absent book.
	ErrBookNotOnShelf = errors.New("book not on shelf")
	// ErrPasswordMismatch indicates the current password is incorrect.
	ErrPasswordMismatch = errors.New("current password does not match")
	// ErrPasswordUnchanged indicates the new password matches the current one.
	ErrPasswordUnchanged = errors.New("new password must be different from current password")
)

// Role identifies the privileges assigned to an identity.
type Role string

const (
	// RoleSuper represents the highest-privilege administrative identity.
	RoleSuper Role = "super"
	// RoleAdmin represents an administrative identity.
	RoleAdmin Role = "admin"
	// RoleReader represents a standard catalog user.
	RoleReader Role = "reader"
	// RoleGuest represents the synthetic browse-only identity.
	RoleGuest Role = "guest"
)

// DefaultGuestUsername is the reserved identifier for the synthetic guest.
const DefaultGuestUsername = "guestuser"

// Rank orders roles: super > admin > reader > guest. Unknown roles rank zero.
func (r Role) Rank() int {
	switch r {
	case RoleSuper:
		return 4
	case RoleAdmin:
		return 3
	case RoleReader:
		return 2
	case RoleGuest:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the role belongs to the closed enum.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// ParseRole normalises raw input into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(normalise(raw))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

func normalise(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Identity models a principal persisted in storage.
type Identity struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CoverImage   string    `json:"coverImage,omitempty"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsGuest reports whether this identity is the synthetic guest.
func (i *Identity) IsGuest() bool {
	return i != nil && i.Role == RoleGuest && i.ID == 0
}

// NewGuest is the single factory for the synthetic guest identity. The guest
// is never persisted: no id, no email, no password hash.
func NewGuest(username string) *Identity {
	if username == "" {
		username = DefaultGuestUsername
	}
	return &Identity{
		Username: username,
		Role:     RoleGuest,
	}
}

// Credentials captures raw credential input for login. Exactly one of
// Username or Email must be non-empty.
type Credentials struct {
	Username string
	Email    string
	Password string
}
