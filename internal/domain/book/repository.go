package book

import (
	"context"
	"time"
)

// Repository defines persistence behaviours for catalog entries. Update is
// conditional on the caller's observed version counter.
type Repository interface {
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByTitle(ctx context.Context, title string) (*Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	List(ctx context.Context, limit, offset int) ([]*Book, error)
	Update(ctx context.Context, b *Book) error
	UpdateCoverImage(ctx context.Context, id int64, coverImage string, updatedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}
