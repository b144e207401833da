package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/libris/internal/domain"
)

// BookService handles book CRUD. Availability is never set from request
// data: new books start available and only the loan workflow changes the
// flag afterwards.
type BookService struct {
	repo   domain.BookRepository
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(repo domain.BookRepository, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}

	return &BookService{
		repo:   repo,
		logger: logger,
	}
}

// List returns one page of books.
func (s *BookService) List(ctx context.Context, page domain.PageRequest) (*domain.BookPage, error) {
	return s.repo.List(ctx, page)
}

// Get retrieves one book by id.
func (s *BookService) Get(ctx context.Context, id int64) (*domain.Book, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: book id must be positive", domain.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

// Create validates and stores a new book, discarding any client-supplied id.
func (s *BookService) Create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	if err := validateBook(book); err != nil {
		return nil, err
	}

	book.ID = 0
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book created",
		slog.Int64("book_id", book.ID),
		slog.String("title", book.Title),
	)
	return book, nil
}

// CreateMany stores a bounded batch of books.
func (s *BookService) CreateMany(ctx context.Context, books []*domain.Book, limit int) ([]*domain.Book, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: book list cannot be empty", domain.ErrInvalidInput)
	}
	if limit > 0 && len(books) > limit {
		return nil, fmt.Errorf("%w: at most %d books per request", domain.ErrInvalidInput, limit)
	}

	for _, book := range books {
		if err := validateBook(book); err != nil {
			return nil, err
		}
		book.ID = 0
	}

	if err := s.repo.CreateMany(ctx, books); err != nil {
		return nil, err
	}

	s.logger.Info("books created in bulk", slog.Int("count", len(books)))
	return books, nil
}

// Update merges non-blank fields from patch into the stored book. The
// available flag is not patchable.
func (s *BookService) Update(ctx context.Context, id int64, patch *domain.Book) (*domain.Book, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: book id must be positive", domain.ErrInvalidInput)
	}

	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(patch.Title) != "" {
		book.Title = patch.Title
	}
	if strings.TrimSpace(patch.Author) != "" {
		book.Author = patch.Author
	}
	if strings.TrimSpace(patch.Content) != "" {
		book.Content = patch.Content
	}
	if patch.PublicationYear != 0 {
		book.PublicationYear = patch.PublicationYear
	}
	if strings.TrimSpace(patch.ISBN) != "" {
		book.ISBN = patch.ISBN
	}
	if patch.AuthorIDs != nil {
		book.AuthorIDs = patch.AuthorIDs
	}

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}

	return book, nil
}

// Delete removes a book.
func (s *BookService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: book id must be positive", domain.ErrInvalidInput)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("book deleted", slog.Int64("book_id", id))
	return nil
}

func validateBook(book *domain.Book) error {
	if book == nil {
		return fmt.Errorf("%w: book data is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(book.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(book.ISBN) == "" {
		return fmt.Errorf("%w: isbn is required", domain.ErrInvalidInput)
	}
	if book.PublicationYear < 1000 {
		return fmt.Errorf("%w: publication year must be at least 1000", domain.ErrInvalidInput)
	}
	return nil
}
