// Package booktest provides an in-memory book.Repository for tests.
package booktest

import (
	"context"
	"sort"
	"sync"
	"time"

	"bookshelf/backend/internal/domain/book"
	"bookshelf/backend/internal/domain/identity"
)

// Repo is a map-backed book.Repository with the same version semantics as
// the PostgreSQL implementation.
type Repo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*book.Book
}

// New constructs an empty repository.
func New() *Repo {
	return &Repo{byID: make(map[int64]*book.Book)}
}

var _ book.Repository = (*Repo)(nil)

// Seed inserts a book directly, assigning an id, and returns a copy.
func (r *Repo) Seed(b book.Book) *book.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	r.byID[b.ID] = &b
	out := b
	return &out
}

// BumpVersion simulates a concurrent writer moving the version counter.
func (r *Repo) BumpVersion(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		b.Version++
	}
}

// Version reports the stored version counter.
func (r *Repo) Version(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		return b.Version
	}
	return -1
}

func (r *Repo) Create(_ context.Context, b *book.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Title == b.Title {
			return book.ErrDuplicateTitle
		}
		if existing.ISBN == b.ISBN {
			return book.ErrDuplicateISBN
		}
	}
	r.nextID++
	b.ID = r.nextID
	b.Version = 0
	stored := *b
	r.byID[b.ID] = &stored
	return nil
}

func (r *Repo) GetByID(_ context.Context, id int64) (*book.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byID[id]; ok {
		out := *b
		return &out, nil
	}
	return nil, book.ErrNotFound
}

func (r *Repo) GetByTitle(_ context.Context, title string) (*book.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.Title == title {
			out := *b
			return &out, nil
		}
	}
	return nil, book.ErrNotFound
}

func (r *Repo) GetByISBN(_ context.Context, isbn string) (*book.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.ISBN == isbn {
			out := *b
			return &out, nil
		}
	}
	return nil, book.ErrNotFound
}

func (r *Repo) List(_ context.Context, limit, offset int) ([]*book.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*book.Book, 0, len(r.byID))
	for _, b := range r.byID {
		out := *b
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *Repo) Update(_ context.Context, b *book.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[b.ID]
	if !ok {
		return book.ErrNotFound
	}
	if stored.Version != b.Version {
		return identity.ErrVersionConflict
	}
	for id, existing := range r.byID {
		if id == b.ID {
			continue
		}
		if existing.Title == b.Title {
			return book.ErrDuplicateTitle
		}
		if existing.ISBN == b.ISBN {
			return book.ErrDuplicateISBN
		}
	}
	next := *b
	next.Version++
	r.byID[b.ID] = &next
	b.Version++
	return nil
}

func (r *Repo) UpdateCoverImage(_ context.Context, id int64, coverImage string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return book.ErrNotFound
	}
	b.CoverImage = coverImage
	b.UpdatedAt = updatedAt
	b.Version++
	return nil
}

func (r *Repo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return book.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
