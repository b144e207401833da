package domain

import "context"

// Book represents a library book.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Content         string `json:"content,omitempty"`
	PublicationYear int    `json:"publicationYear"`
	ISBN            string `json:"isbn"`
	// Available is false exactly while an ACTIVE loan references this book.
	// It is owned by the loan workflow and never patched directly.
	Available bool    `json:"available"`
	AuthorIDs []int64 `json:"authorIds,omitempty"`
}

// PageRequest describes pagination and sorting for list endpoints.
type PageRequest struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection string
}

// BookPage is one page of books with paging metadata.
type BookPage struct {
	Content       []*Book `json:"content"`
	Page          int     `json:"page"`
	Size          int     `json:"size"`
	TotalElements int64   `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
}

// BookRepository defines data access for books.
type BookRepository interface {
	Create(ctx context.Context, book *Book) error
	CreateMany(ctx context.Context, books []*Book) error
	GetByID(ctx context.Context, id int64) (*Book, error)
	List(ctx context.Context, page PageRequest) (*BookPage, error)
	Update(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id int64) error
}
