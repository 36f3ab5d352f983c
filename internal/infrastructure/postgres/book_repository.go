package postgres

import (
	"context"
	"errors"
	"time"

	domain "bookshelf/backend/internal/domain/book"
	iddomain "bookshelf/backend/internal/domain/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookRepository persists catalog entries in PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository constructs a repository.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

var _ domain.Repository = (*BookRepository)(nil)

// Create inserts a new book; the store assigns id and version.
func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	const query = `
INSERT INTO books (title, author, isbn, price, publish_date, cover_image, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, version
`
	err := r.pool.QueryRow(ctx, query,
		b.Title,
		b.Author,
		b.ISBN,
		b.Price,
		b.PublishDate,
		b.CoverImage,
		b.CreatedAt,
		b.UpdatedAt,
	).Scan(&b.ID, &b.Version)
	if err != nil {
		switch {
		case uniqueViolationOn(err, "title"):
			return domain.ErrDuplicateTitle
		case uniqueViolationOn(err, "isbn"):
			return domain.ErrDuplicateISBN
		}
		return err
	}
	return nil
}

// GetByID fetches a book by id.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetByTitle fetches a book by its unique title.
func (r *BookRepository) GetByTitle(ctx context.Context, title string) (*domain.Book, error) {
	return r.getWhere(ctx, "title = $1", title)
}

// GetByISBN fetches a book by its unique ISBN.
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.getWhere(ctx, "isbn = $1", isbn)
}

func (r *BookRepository) getWhere(ctx context.Context, where string, arg any) (*domain.Book, error) {
	query := `
SELECT id, title, author, isbn, price, publish_date, cover_image, version, created_at, updated_at
FROM books WHERE ` + where
	row := r.pool.QueryRow(ctx, query, arg)
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// List returns a page of books sorted by title.
func (r *BookRepository) List(ctx context.Context, limit, offset int) ([]*domain.Book, error) {
	const query = `
SELECT id, title, author, isbn, price, publish_date, cover_image, version, created_at, updated_at
FROM books
ORDER BY title ASC
LIMIT $1 OFFSET $2
`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Update writes book changes conditional on the observed version.
func (r *BookRepository) Update(ctx context.Context, b *domain.Book) error {
	const query = `
UPDATE books
SET title = $3,
    author = $4,
    isbn = $5,
    price = $6,
    publish_date = $7,
    updated_at = $8,
    version = version + 1
WHERE id = $1 AND version = $2
`
	ct, err := r.pool.Exec(ctx, query,
		b.ID,
		b.Version,
		b.Title,
		b.Author,
		b.ISBN,
		b.Price,
		b.PublishDate,
		b.UpdatedAt,
	)
	if err != nil {
		switch {
		case uniqueViolationOn(err, "title"):
			return domain.ErrDuplicateTitle
		case uniqueViolationOn(err, "isbn"):
			return domain.ErrDuplicateISBN
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missOrConflict(ctx, b.ID)
	}
	b.Version++
	return nil
}

// UpdateCoverImage stores the cover reference for a book.
func (r *BookRepository) UpdateCoverImage(ctx context.Context, id int64, coverImage string, updatedAt time.Time) error {
	const query = `
UPDATE books
SET cover_image = $2, updated_at = $3, version = version + 1
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, coverImage, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a book by id.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM books WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookRepository) missOrConflict(ctx context.Context, id int64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return iddomain.ErrVersionConflict
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.ISBN,
		&b.Price,
		&b.PublishDate,
		&b.CoverImage,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
