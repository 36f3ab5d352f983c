package catalog

import (
	"context"
	"testing"

	bookdomain "bookshelf/backend/internal/domain/book"
	"bookshelf/backend/internal/domain/book/booktest"
	iddomain "bookshelf/backend/internal/domain/identity"
	"bookshelf/backend/internal/domain/identity/identitytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture() (*Service, *identitytest.Repo, *booktest.Repo) {
	books := booktest.New()
	identities := identitytest.New()
	identities.Books = books
	return NewService(books, identities), identities, books
}

func seedReader(identities *identitytest.Repo, username string) *iddomain.Identity {
	return identities.Seed(iddomain.Identity{
		Username: username,
		Email:    username + "@example.com",
		Role:     iddomain.RoleReader,
	})
}

func seedBook(books *booktest.Repo, title, isbn string) *bookdomain.Book {
	return books.Seed(bookdomain.Book{Title: title, Author: "Anon", ISBN: isbn})
}

func TestCreateBookRequiresAdminRole(t *testing.T) {
	svc, identities, _ := newFixture()
	ctx := context.Background()

	admin := identities.Seed(iddomain.Identity{Username: "ops", Email: "ops@example.com", Role: iddomain.RoleAdmin})
	reader := seedReader(identities, "casual")

	input := CreateInput{Title: "Dune", Author: "Herbert", ISBN: "9780306406157", Price: "9.99", PublishDate: "08/1965"}

	created, err := svc.CreateBook(ctx, admin, input)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	input.Title = "Dune Messiah"
	input.ISBN = "0306406152"
	_, err = svc.CreateBook(ctx, reader, input)
	assert.ErrorIs(t, err, iddomain.ErrForbidden)

	_, err = svc.CreateBook(ctx, nil, input)
	assert.ErrorIs(t, err, iddomain.ErrUnauthenticated)

	_, err = svc.CreateBook(ctx, iddomain.NewGuest(""), input)
	assert.ErrorIs(t, err, iddomain.ErrForbidden)
}

func TestCreateBookValidatesISBNAndDate(t *testing.T) {
	svc, identities, _ := newFixture()
	admin := identities.Seed(iddomain.Identity{Username: "ops", Email: "ops@example.com", Role: iddomain.RoleAdmin})
	ctx := context.Background()

	_, err := svc.CreateBook(ctx, admin, CreateInput{Title: "Bad", ISBN: "1234567890"})
	assert.ErrorIs(t, err, bookdomain.ErrInvalidISBN)

	_, err = svc.CreateBook(ctx, admin, CreateInput{Title: "Bad Date", ISBN: "9780306406157", PublishDate: "31/1999"})
	assert.ErrorIs(t, err, bookdomain.ErrInvalidPublishDate)
}

func TestUpdateBookRevalidatesChangedISBN(t *testing.T) {
	svc, identities, books := newFixture()
	super := identities.Seed(iddomain.Identity{Username: "root", Email: "root@example.com", Role: iddomain.RoleSuper})
	b := seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	bad := "9780306406158"
	_, err := svc.UpdateBook(ctx, super, b.ID, UpdateInput{ISBN: &bad})
	assert.ErrorIs(t, err, bookdomain.ErrInvalidISBN)

	good := "0306406152"
	updated, err := svc.UpdateBook(ctx, super, b.ID, UpdateInput{ISBN: &good})
	require.NoError(t, err)
	assert.Equal(t, good, updated.ISBN)
}

func TestGetBookByAnyLookupKey(t *testing.T) {
	svc, _, books := newFixture()
	b := seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	byID, err := svc.GetBook(ctx, bookdomain.Lookup{ID: b.ID})
	require.NoError(t, err)
	byTitle, err := svc.GetBook(ctx, bookdomain.Lookup{Title: "Dune"})
	require.NoError(t, err)
	byISBN, err := svc.GetBook(ctx, bookdomain.Lookup{ISBN: "9780306406157"})
	require.NoError(t, err)

	assert.Equal(t, byID.ID, byTitle.ID)
	assert.Equal(t, byID.ID, byISBN.ID)

	_, err = svc.GetBook(ctx, bookdomain.Lookup{})
	assert.ErrorIs(t, err, bookdomain.ErrMissingLookup)

	_, err = svc.GetBook(ctx, bookdomain.Lookup{Title: "Missing"})
	assert.ErrorIs(t, err, bookdomain.ErrNotFound)
}

func TestAddBookToShelf(t *testing.T) {
	svc, identities, books := newFixture()
	reader := seedReader(identities, "casual")
	b := seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	added, err := svc.AddBookToShelf(ctx, reader, bookdomain.Lookup{ID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, b.ID, added.ID)
	assert.Equal(t, 1, identities.ShelfSize(reader.ID))
}

func TestAddDuplicateBookIsConflictWithoutMutation(t *testing.T) {
	svc, identities, books := newFixture()
	reader := seedReader(identities, "casual")
	b := seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	_, err := svc.AddBookToShelf(ctx, reader, bookdomain.Lookup{ID: b.ID})
	require.NoError(t, err)

	sizeBefore := identities.ShelfSize(reader.ID)
	identityVersionBefore := identities.Version(reader.ID)
	bookVersionBefore := books.Version(b.ID)

	_, err = svc.AddBookToShelf(ctx, reader, bookdomain.Lookup{ID: b.ID})
	assert.ErrorIs(t, err, iddomain.ErrBookAlreadyOnShelf)
	assert.Equal(t, sizeBefore, identities.ShelfSize(reader.ID))
	assert.Equal(t, identityVersionBefore, identities.Version(reader.ID))
	assert.Equal(t, bookVersionBefore, books.Version(b.ID))
}

func TestRemoveAbsentBookIsNotFoundWithoutMutation(t *testing.T) {
	svc, identities, books := newFixture()
	reader := seedReader(identities, "casual")
	b := seedBook(books, "Dune", "9780306406157")

	err := svc.RemoveBookFromShelf(context.Background(), reader, bookdomain.Lookup{ID: b.ID})
	assert.ErrorIs(t, err, iddomain.ErrBookNotOnShelf)
	assert.Equal(t, 0, identities.ShelfSize(reader.ID))
}

func TestAddThenRemoveRoundTrip(t *testing.T) {
	svc, identities, books := newFixture()
	reader := seedReader(identities, "casual")
	seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	_, err := svc.AddBookToShelf(ctx, reader, bookdomain.Lookup{ISBN: "9780306406157"})
	require.NoError(t, err)

	shelf, err := svc.ListShelf(ctx, reader)
	require.NoError(t, err)
	require.Len(t, shelf, 1)
	assert.Equal(t, "Dune", shelf[0].Title)

	require.NoError(t, svc.RemoveBookFromShelf(ctx, reader, bookdomain.Lookup{Title: "Dune"}))
	assert.Equal(t, 0, identities.ShelfSize(reader.ID))
}

func TestConcurrentIdentityWriterTriggersConflict(t *testing.T) {
	svc, identities, books := newFixture()
	reader := seedReader(identities, "casual")
	b := seedBook(books, "Dune", "9780306406157")

	// Another writer bumps the identity row between the service's read and
	// the conditional write.
	raced := false
	identities.BeforeAttach = func() {
		if !raced {
			raced = true
			identities.BumpVersion(reader.ID)
		}
	}

	_, err := svc.AddBookToShelf(context.Background(), reader, bookdomain.Lookup{ID: b.ID})
	assert.ErrorIs(t, err, iddomain.ErrVersionConflict)
	assert.Equal(t, 0, identities.ShelfSize(reader.ID))

	// The whole read-decide-write sequence is retryable from scratch.
	_, err = svc.AddBookToShelf(context.Background(), reader, bookdomain.Lookup{ID: b.ID})
	assert.NoError(t, err)
	assert.Equal(t, 1, identities.ShelfSize(reader.ID))
}

func TestConcurrentBookWriterTriggersConflict(t *testing.T) {
	svc, identities, books := newFixture()
	reader := seedReader(identities, "casual")
	b := seedBook(books, "Dune", "9780306406157")

	raced := false
	identities.BeforeAttach = func() {
		if !raced {
			raced = true
			books.BumpVersion(b.ID)
		}
	}

	_, err := svc.AddBookToShelf(context.Background(), reader, bookdomain.Lookup{ID: b.ID})
	assert.ErrorIs(t, err, iddomain.ErrVersionConflict)
	assert.Equal(t, 0, identities.ShelfSize(reader.ID))
}

func TestShelfRejectsGuestsAndAnonymous(t *testing.T) {
	svc, _, books := newFixture()
	b := seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	_, err := svc.AddBookToShelf(ctx, nil, bookdomain.Lookup{ID: b.ID})
	assert.ErrorIs(t, err, iddomain.ErrUnauthenticated)

	_, err = svc.AddBookToShelf(ctx, iddomain.NewGuest(""), bookdomain.Lookup{ID: b.ID})
	assert.ErrorIs(t, err, iddomain.ErrForbidden)

	_, err = svc.ListShelf(ctx, iddomain.NewGuest(""))
	assert.ErrorIs(t, err, iddomain.ErrForbidden)
}

func TestDeleteBookRequiresAdminRole(t *testing.T) {
	svc, identities, books := newFixture()
	super := identities.Seed(iddomain.Identity{Username: "root", Email: "root@example.com", Role: iddomain.RoleSuper})
	reader := seedReader(identities, "casual")
	b := seedBook(books, "Dune", "9780306406157")
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteBook(ctx, reader, b.ID), iddomain.ErrForbidden)
	assert.NoError(t, svc.DeleteBook(ctx, super, b.ID))
	assert.ErrorIs(t, svc.DeleteBook(ctx, super, b.ID), bookdomain.ErrNotFound)
}

func TestListBooksClampsPaging(t *testing.T) {
	svc, _, books := newFixture()
	seedBook(books, "A", "9780306406157")
	seedBook(books, "B", "0306406152")
	ctx := context.Background()

	items, err := svc.ListBooks(ctx, -5, -1)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.ListBooks(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Title)
}
