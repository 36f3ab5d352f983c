package identity

import (
	"context"
	"time"

	"bookshelf/backend/internal/domain/book"
)

// Repository defines persistence operations for identities and their shelf
// membership. Save operations assign ids and bump version counters; updates
// are conditional on the caller's observed version.
type Repository interface {
	Create(ctx context.Context, id *Identity) error
	GetByID(ctx context.Context, id int64) (*Identity, error)
	GetByUsername(ctx context.Context, username string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	List(ctx context.Context, filter Filter) ([]*Identity, error)
	// Update persists profile changes iff the stored version equals
	// id.Version, then increments it. Returns ErrVersionConflict otherwise.
	Update(ctx context.Context, id *Identity) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	UpdateCoverImage(ctx context.Context, id int64, coverImage string, updatedAt time.Time) error
	Delete(ctx context.Context, id int64) error

	ListBooks(ctx context.Context, identityID int64) ([]*book.Book, error)
	HasBook(ctx context.Context, identityID, bookID int64) (bool, error)
	// AttachBook adds a membership row and bumps both version counters as a
	// single transaction, conditional on the observed versions. A concurrent
	// writer on either row yields ErrVersionConflict and nothing is written.
	AttachBook(ctx context.Context, identityID, identityVersion, bookID, bookVersion int64) error
	// DetachBook is the removal counterpart of AttachBook.
	DetachBook(ctx context.Context, identityID, identityVersion, bookID, bookVersion int64) error
}

// Filter allows narrowing identity queries.
type Filter struct {
	Role Role
}
