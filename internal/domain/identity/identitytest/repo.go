// Package identitytest provides an in-memory identity.Repository for tests.
package identitytest

import (
	"context"
	"sync"
	"time"

	"bookshelf/backend/internal/domain/book"
	"bookshelf/backend/internal/domain/book/booktest"
	"bookshelf/backend/internal/domain/identity"
)

// Repo is a map-backed identity.Repository with the same version and
// membership semantics as the PostgreSQL implementation. Books, when set,
// backs the membership operations. BeforeAttach, when set, runs between the
// caller's read and the conditional write so tests can simulate a racing
// writer.
type Repo struct {
	mu           sync.Mutex
	nextID       int64
	byID         map[int64]*identity.Identity
	shelves      map[int64]map[int64]bool
	Books        *booktest.Repo
	BeforeAttach func()
}

// New constructs an empty repository.
func New() *Repo {
	return &Repo{
		byID:    make(map[int64]*identity.Identity),
		shelves: make(map[int64]map[int64]bool),
	}
}

var _ identity.Repository = (*Repo)(nil)

// Seed inserts an identity directly, assigning an id, and returns a copy.
func (r *Repo) Seed(id identity.Identity) *identity.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id.ID = r.nextID
	r.byID[id.ID] = &id
	out := id
	return &out
}

// BumpVersion simulates a concurrent writer moving the version counter.
func (r *Repo) BumpVersion(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.byID[id]; ok {
		stored.Version++
	}
}

// Version reports the stored version counter.
func (r *Repo) Version(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.byID[id]; ok {
		return stored.Version
	}
	return -1
}

// ShelfSize reports the membership set size.
func (r *Repo) ShelfSize(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shelves[id])
}

func (r *Repo) Create(_ context.Context, id *identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == id.Username {
			return identity.ErrUsernameExists
		}
		if existing.Email == id.Email {
			return identity.ErrEmailExists
		}
	}
	r.nextID++
	id.ID = r.nextID
	id.Version = 0
	stored := *id
	r.byID[id.ID] = &stored
	return nil
}

func (r *Repo) GetByID(_ context.Context, id int64) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.byID[id]; ok {
		out := *stored
		return &out, nil
	}
	return nil, identity.ErrNotFound
}

func (r *Repo) GetByUsername(_ context.Context, username string) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.byID {
		if stored.Username == username {
			out := *stored
			return &out, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (r *Repo) GetByEmail(_ context.Context, email string) (*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.byID {
		if stored.Email == email {
			out := *stored
			return &out, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (r *Repo) List(_ context.Context, filter identity.Filter) ([]*identity.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*identity.Identity
	for _, stored := range r.byID {
		if filter.Role != "" && stored.Role != filter.Role {
			continue
		}
		copy := *stored
		out = append(out, &copy)
	}
	return out, nil
}

func (r *Repo) Update(_ context.Context, id *identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id.ID]
	if !ok {
		return identity.ErrNotFound
	}
	if stored.Version != id.Version {
		return identity.ErrVersionConflict
	}
	next := *id
	next.Version++
	r.byID[id.ID] = &next
	id.Version++
	return nil
}

func (r *Repo) UpdatePassword(_ context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = updatedAt
	stored.Version++
	return nil
}

func (r *Repo) UpdateCoverImage(_ context.Context, id int64, coverImage string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	stored.CoverImage = coverImage
	stored.UpdatedAt = updatedAt
	stored.Version++
	return nil
}

func (r *Repo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return identity.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.shelves, id)
	return nil
}

func (r *Repo) ListBooks(ctx context.Context, identityID int64) ([]*book.Book, error) {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.shelves[identityID]))
	for bookID := range r.shelves[identityID] {
		ids = append(ids, bookID)
	}
	r.mu.Unlock()

	var out []*book.Book
	for _, bookID := range ids {
		b, err := r.Books.GetByID(ctx, bookID)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *Repo) HasBook(_ context.Context, identityID, bookID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shelves[identityID][bookID], nil
}

func (r *Repo) AttachBook(_ context.Context, identityID, identityVersion, bookID, bookVersion int64) error {
	if r.BeforeAttach != nil {
		r.BeforeAttach()
	}
	return r.mutateShelf(identityID, identityVersion, bookID, bookVersion, func(shelf map[int64]bool) error {
		if shelf[bookID] {
			return identity.ErrBookAlreadyOnShelf
		}
		shelf[bookID] = true
		return nil
	})
}

func (r *Repo) DetachBook(_ context.Context, identityID, identityVersion, bookID, bookVersion int64) error {
	if r.BeforeAttach != nil {
		r.BeforeAttach()
	}
	return r.mutateShelf(identityID, identityVersion, bookID, bookVersion, func(shelf map[int64]bool) error {
		if !shelf[bookID] {
			return identity.ErrBookNotOnShelf
		}
		delete(shelf, bookID)
		return nil
	})
}

// mutateShelf mirrors the transactional CAS of the real store: both version
// counters must match or nothing changes.
func (r *Repo) mutateShelf(identityID, identityVersion, bookID, bookVersion int64, mutate func(map[int64]bool) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[identityID]
	if !ok {
		return identity.ErrNotFound
	}
	if stored.Version != identityVersion {
		return identity.ErrVersionConflict
	}
	if r.Books == nil || r.Books.Version(bookID) < 0 {
		return book.ErrNotFound
	}
	if r.Books.Version(bookID) != bookVersion {
		return identity.ErrVersionConflict
	}

	shelf := r.shelves[identityID]
	if shelf == nil {
		shelf = make(map[int64]bool)
		r.shelves[identityID] = shelf
	}
	if err := mutate(shelf); err != nil {
		return err
	}
	stored.Version++
	r.Books.BumpVersion(bookID)
	return nil
}
