package postgres

import (
	"context"
	"errors"
	"time"

	bookdomain "bookshelf/backend/internal/domain/book"
	domain "bookshelf/backend/internal/domain/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityRepository persists identities and shelf membership in PostgreSQL.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository constructs a repository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

var _ domain.Repository = (*IdentityRepository)(nil)

// Create inserts a new identity record; the store assigns id and version.
func (r *IdentityRepository) Create(ctx context.Context, id *domain.Identity) error {
	const query = `
INSERT INTO users (username, email, role, password_hash, cover_image, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, version
`
	err := r.pool.QueryRow(ctx, query,
		id.Username,
		id.Email,
		id.Role,
		id.PasswordHash,
		id.CoverImage,
		id.CreatedAt,
		id.UpdatedAt,
	).Scan(&id.ID, &id.Version)
	if err != nil {
		switch {
		case uniqueViolationOn(err, "username"):
			return domain.ErrUsernameExists
		case uniqueViolationOn(err, "email"):
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByID retrieves an identity by id.
func (r *IdentityRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetByUsername fetches an identity by username.
func (r *IdentityRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.getWhere(ctx, "username = $1", username)
}

// GetByEmail fetches an identity by email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.getWhere(ctx, "email = $1", email)
}

func (r *IdentityRepository) getWhere(ctx context.Context, where string, arg any) (*domain.Identity, error) {
	query := `
SELECT id, username, email, role, password_hash, cover_image, version, created_at, updated_at
FROM users WHERE ` + where
	row := r.pool.QueryRow(ctx, query, arg)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return id, nil
}

// List returns identities filtered by the provided criteria.
func (r *IdentityRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.Identity, error) {
	query := `
SELECT id, username, email, role, password_hash, cover_image, version, created_at, updated_at
FROM users
`
	var args []any
	if filter.Role != "" {
		query += "WHERE role = $1 "
		args = append(args, filter.Role)
	}
	query += "ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Update modifies an identity record conditional on its observed version.
func (r *IdentityRepository) Update(ctx context.Context, id *domain.Identity) error {
	const query = `
UPDATE users
SET username = $3, email = $4, role = $5, updated_at = $6, version = version + 1
WHERE id = $1 AND version = $2
`
	ct, err := r.pool.Exec(ctx, query,
		id.ID,
		id.Version,
		id.Username,
		id.Email,
		id.Role,
		id.UpdatedAt,
	)
	if err != nil {
		switch {
		case uniqueViolationOn(err, "username"):
			return domain.ErrUsernameExists
		case uniqueViolationOn(err, "email"):
			return domain.ErrEmailExists
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missOrConflict(ctx, id.ID)
	}
	id.Version++
	return nil
}

// UpdatePassword updates the stored password hash for an identity.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `
UPDATE users
SET password_hash = $2, updated_at = $3, version = version + 1
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query, id, passwordHash, updatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateCoverImage stores the cover reference for an identity.
func (r *IdentityRepository) UpdateCoverImage(ctx context.Context, id int64, coverImage string, updatedAt time.Time) error {
	const query = `
UPDATE users
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

// Delete removes an identity by id.
func (r *IdentityRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM users WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBooks returns the books attached to the identity.
func (r *IdentityRepository) ListBooks(ctx context.Context, identityID int64) ([]*bookdomain.Book, error) {
	const query = `
SELECT b.id, b.title, b.author, b.isbn, b.price, b.publish_date, b.cover_image, b.version, b.created_at, b.updated_at
FROM books b
JOIN user_books ub ON ub.book_id = b.id
WHERE ub.user_id = $1
ORDER BY ub.added_at DESC
`
	rows, err := r.pool.Query(ctx, query, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*bookdomain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HasBook reports whether the membership row exists.
func (r *IdentityRepository) HasBook(ctx context.Context, identityID, bookID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM user_books WHERE user_id = $1 AND book_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, identityID, bookID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AttachBook adds a membership row. Both version counters are bumped
// conditionally inside one transaction; if either row moved since the caller
// read it the whole transaction aborts with ErrVersionConflict and nothing
// is written.
func (r *IdentityRepository) AttachBook(ctx context.Context, identityID, identityVersion, bookID, bookVersion int64) error {
	return r.withMembershipTx(ctx, identityID, identityVersion, bookID, bookVersion, func(tx pgx.Tx) error {
		const insert = `INSERT INTO user_books (user_id, book_id, added_at) VALUES ($1, $2, now())`
		if _, err := tx.Exec(ctx, insert, identityID, bookID); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrBookAlreadyOnShelf
			}
			return err
		}
		return nil
	})
}

// DetachBook removes a membership row under the same version guard as
// AttachBook.
func (r *IdentityRepository) DetachBook(ctx context.Context, identityID, identityVersion, bookID, bookVersion int64) error {
	return r.withMembershipTx(ctx, identityID, identityVersion, bookID, bookVersion, func(tx pgx.Tx) error {
		const remove = `DELETE FROM user_books WHERE user_id = $1 AND book_id = $2`
		ct, err := tx.Exec(ctx, remove, identityID, bookID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrBookNotOnShelf
		}
		return nil
	})
}

func (r *IdentityRepository) withMembershipTx(ctx context.Context, identityID, identityVersion, bookID, bookVersion int64, mutate func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const bumpUser = `UPDATE users SET version = version + 1, updated_at = now() WHERE id = $1 AND version = $2`
	ct, err := tx.Exec(ctx, bumpUser, identityID, identityVersion)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missOrConflict(ctx, identityID)
	}

	const bumpBook = `UPDATE books SET version = version + 1, updated_at = now() WHERE id = $1 AND version = $2`
	ct, err = tx.Exec(ctx, bumpBook, bookID, bookVersion)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return bookdomain.ErrNotFound
		}
		return domain.ErrVersionConflict
	}

	if err := mutate(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// missOrConflict distinguishes a vanished row from a moved version counter.
func (r *IdentityRepository) missOrConflict(ctx context.Context, id int64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var id domain.Identity
	err := row.Scan(
		&id.ID,
		&id.Username,
		&id.Email,
		&id.Role,
		&id.PasswordHash,
		&id.CoverImage,
		&id.Version,
		&id.CreatedAt,
		&id.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
