package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a book could not be located.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateTitle signals title uniqueness constraint breaches.
	ErrDuplicateTitle = errors.New("book with title already exists")
	// ErrDuplicateISBN signals ISBN uniqueness constraint breaches.
	ErrDuplicateISBN = errors.New("book with ISBN already exists")
	// ErrInvalidISBN indicates the ISBN fails both checksum forms.
	ErrInvalidISBN = errors.New("invalid ISBN")
	// ErrInvalidPublishDate indicates the publish date is not MM/YYYY.
	ErrInvalidPublishDate = errors.New("publish date must be MM/YYYY")
	// ErrMissingLookup indicates no lookup key was supplied.
	ErrMissingLookup = errors.New("book id, title or isbn is required")
)

// PublishDateLayout is the serialized month/year form used on the wire and in
// storage.
const PublishDateLayout = "01/2006"

// Book captures the state of an individual catalog entry.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	ISBN        string    `json:"isbn"`
	Price       string    `json:"price"`
	PublishDate string    `json:"publishDate"`
	CoverImage  string    `json:"coverImage,omitempty"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ValidatePublishDate checks the MM/YYYY serialization. Empty is allowed.
func ValidatePublishDate(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(PublishDateLayout, value); err != nil {
		return ErrInvalidPublishDate
	}
	return nil
}

// Lookup identifies a book by exactly one of its unique keys.
type Lookup struct {
	ID    int64
	Title string
	ISBN  string
}

// Empty reports whether no key was supplied.
func (l Lookup) Empty() bool {
	return l.ID == 0 && l.Title == "" && l.ISBN == ""
}
