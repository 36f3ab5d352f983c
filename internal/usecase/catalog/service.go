package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	bookdomain "bookshelf/backend/internal/domain/book"
	iddomain "bookshelf/backend/internal/domain/identity"
)

// Service encapsulates catalog use cases: book lifecycle and the shelf
// membership between identities and books.
type Service struct {
	books      bookdomain.Repository
	identities iddomain.Repository
	nowFunc    func() time.Time
}

// NewService constructs a catalog service.
func NewService(books bookdomain.Repository, identities iddomain.Repository) *Service {
	return &Service{
		books:      books,
		identities: identities,
		nowFunc:    time.Now,
	}
}

// CreateInput contains the payload required for book creation.
type CreateInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Price       string `json:"price"`
	PublishDate string `json:"publishDate"`
}

// UpdateInput encapsulates partial book updates.
type UpdateInput struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	ISBN        *string `json:"isbn"`
	Price       *string `json:"price"`
	PublishDate *string `json:"publishDate"`
}

// CreateBook stores a new catalog entry after validation. Supers and admins
// only.
func (s *Service) CreateBook(ctx context.Context, actor *iddomain.Identity, input CreateInput) (*bookdomain.Book, error) {
	if actor == nil {
		return nil, iddomain.ErrUnauthenticated
	}
	if !iddomain.CanMutateBooks(actor.Role) {
		return nil, iddomain.ErrForbidden
	}

	input.Title = strings.TrimSpace(input.Title)
	input.ISBN = strings.TrimSpace(input.ISBN)
	if input.Title == "" {
		return nil, errors.New("title is required")
	}
	if err := bookdomain.ValidateISBN(input.ISBN); err != nil {
		return nil, err
	}
	if err := bookdomain.ValidatePublishDate(input.PublishDate); err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	b := &bookdomain.Book{
		Title:       input.Title,
		Author:      strings.TrimSpace(input.Author),
		ISBN:        input.ISBN,
		Price:       strings.TrimSpace(input.Price),
		PublishDate: input.PublishDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.books.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// UpdateBook applies partial updates to a catalog entry. Supers and admins
// only; a changed ISBN must pass checksum validation again.
func (s *Service) UpdateBook(ctx context.Context, actor *iddomain.Identity, id int64, input UpdateInput) (*bookdomain.Book, error) {
	if actor == nil {
		return nil, iddomain.ErrUnauthenticated
	}
	if !iddomain.CanMutateBooks(actor.Role) {
		return nil, iddomain.ErrForbidden
	}

	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, errors.New("title cannot be empty")
		}
		b.Title = title
	}
	if input.Author != nil {
		b.Author = strings.TrimSpace(*input.Author)
	}
	if input.ISBN != nil {
		isbn := strings.TrimSpace(*input.ISBN)
		if err := bookdomain.ValidateISBN(isbn); err != nil {
			return nil, err
		}
		b.ISBN = isbn
	}
	if input.Price != nil {
		b.Price = strings.TrimSpace(*input.Price)
	}
	if input.PublishDate != nil {
		if err := bookdomain.ValidatePublishDate(*input.PublishDate); err != nil {
			return nil, err
		}
		b.PublishDate = *input.PublishDate
	}

	b.UpdatedAt = s.nowFunc().UTC()
	if err := s.books.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBook removes a catalog entry. Supers and admins only.
func (s *Service) DeleteBook(ctx context.Context, actor *iddomain.Identity, id int64) error {
	if actor == nil {
		return iddomain.ErrUnauthenticated
	}
	if !iddomain.CanMutateBooks(actor.Role) {
		return iddomain.ErrForbidden
	}
	return s.books.Delete(ctx, id)
}

// GetBook resolves a catalog entry via one of its unique keys.
func (s *Service) GetBook(ctx context.Context, lookup bookdomain.Lookup) (*bookdomain.Book, error) {
	return s.resolve(ctx, lookup)
}

// ListBooks returns a page of the catalog.
func (s *Service) ListBooks(ctx context.Context, limit, offset int) ([]*bookdomain.Book, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.books.List(ctx, limit, offset)
}

// SetBookCover stores the uploaded cover reference. Supers and admins only.
func (s *Service) SetBookCover(ctx context.Context, actor *iddomain.Identity, id int64, reference string) error {
	if actor == nil {
		return iddomain.ErrUnauthenticated
	}
	if !iddomain.CanMutateBooks(actor.Role) {
		return iddomain.ErrForbidden
	}
	if _, err := s.books.GetByID(ctx, id); err != nil {
		return err
	}
	return s.books.UpdateCoverImage(ctx, id, reference, s.nowFunc().UTC())
}

// AddBookToShelf attaches a book to the caller's own membership set. The
// attach is conditional on the version counters observed here; a concurrent
// writer on either the identity or the book row surfaces as
// iddomain.ErrVersionConflict with nothing persisted.
func (s *Service) AddBookToShelf(ctx context.Context, actor *iddomain.Identity, lookup bookdomain.Lookup) (*bookdomain.Book, error) {
	caller, b, err := s.resolveMembership(ctx, actor, lookup)
	if err != nil {
		return nil, err
	}

	present, err := s.identities.HasBook(ctx, caller.ID, b.ID)
	if err != nil {
		return nil, err
	}
	if present {
		return nil, iddomain.ErrBookAlreadyOnShelf
	}

	if err := s.identities.AttachBook(ctx, caller.ID, caller.Version, b.ID, b.Version); err != nil {
		return nil, err
	}
	return b, nil
}

// RemoveBookFromShelf detaches a book from the caller's own membership set
// under the same version guard as AddBookToShelf.
func (s *Service) RemoveBookFromShelf(ctx context.Context, actor *iddomain.Identity, lookup bookdomain.Lookup) error {
	caller, b, err := s.resolveMembership(ctx, actor, lookup)
	if err != nil {
		return err
	}

	present, err := s.identities.HasBook(ctx, caller.ID, b.ID)
	if err != nil {
		return err
	}
	if !present {
		return iddomain.ErrBookNotOnShelf
	}

	return s.identities.DetachBook(ctx, caller.ID, caller.Version, b.ID, b.Version)
}

// ListShelf returns the caller's own membership set.
func (s *Service) ListShelf(ctx context.Context, actor *iddomain.Identity) ([]*bookdomain.Book, error) {
	if actor == nil {
		return nil, iddomain.ErrUnauthenticated
	}
	if !iddomain.CanMutateShelf(actor) {
		return nil, iddomain.ErrForbidden
	}
	return s.identities.ListBooks(ctx, actor.ID)
}

// resolveMembership loads fresh copies of the caller and the target book so
// the membership mutation carries current version counters.
func (s *Service) resolveMembership(ctx context.Context, actor *iddomain.Identity, lookup bookdomain.Lookup) (*iddomain.Identity, *bookdomain.Book, error) {
	if actor == nil {
		return nil, nil, iddomain.ErrUnauthenticated
	}
	if !iddomain.CanMutateShelf(actor) {
		return nil, nil, iddomain.ErrForbidden
	}

	caller, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.resolve(ctx, lookup)
	if err != nil {
		return nil, nil, err
	}
	return caller, b, nil
}

func (s *Service) resolve(ctx context.Context, lookup bookdomain.Lookup) (*bookdomain.Book, error) {
	switch {
	case lookup.ID != 0:
		return s.books.GetByID(ctx, lookup.ID)
	case strings.TrimSpace(lookup.Title) != "":
		return s.books.GetByTitle(ctx, strings.TrimSpace(lookup.Title))
	case strings.TrimSpace(lookup.ISBN) != "":
		return s.books.GetByISBN(ctx, strings.TrimSpace(lookup.ISBN))
	default:
		return nil, bookdomain.ErrMissingLookup
	}
}
