package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/libris/internal/domain"
)

var bookSortColumns = map[string]string{
	"id":              "id",
	"title":           "title",
	"author":          "author",
	"publicationYear": "publication_year",
	"isbn":            "isbn",
}

// PostgresBookRepository implements domain.BookRepository using PostgreSQL.
type PostgresBookRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBookRepository creates a new book repository.
func NewPostgresBookRepository(db *sql.DB, logger *slog.Logger) *PostgresBookRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresBookRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new book and its author links, assigning a fresh id.
// New books always start available.
func (r *PostgresBookRepository) Create(ctx context.Context, book *domain.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertBook(ctx, tx, book); err != nil {
		r.logger.Error("failed to create book",
			slog.String("title", book.Title),
			slog.String("error", err.Error()),
		)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit book: %w", err)
	}

	return nil
}

// CreateMany inserts a batch of books inside one transaction.
func (r *PostgresBookRepository) CreateMany(ctx context.Context, books []*domain.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, book := range books {
		if err := insertBook(ctx, tx, book); err != nil {
			return fmt.Errorf("book %q: %w", book.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit books: %w", err)
	}

	return nil
}

func insertBook(ctx context.Context, tx *sql.Tx, book *domain.Book) error {
	query := `
		INSERT INTO books (title, author, content, publication_year, isbn, available)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id, available
	`

	err := tx.QueryRowContext(ctx, query,
		book.Title,
		book.Author,
		book.Content,
		book.PublicationYear,
		book.ISBN,
	).Scan(&book.ID, &book.Available)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	return linkAuthors(ctx, tx, book.ID, book.AuthorIDs)
}

func linkAuthors(ctx context.Context, tx *sql.Tx, bookID int64, authorIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM book_authors WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("failed to clear author links: %w", err)
	}

	for _, authorID := range authorIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2)`, bookID, authorID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("author %d: %w", authorID, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to link author %d: %w", authorID, err)
		}
	}

	return nil
}

// GetByID retrieves a book with its linked author ids.
func (r *PostgresBookRepository) GetByID(ctx context.Context, id int64) (*domain.Book, error) {
	book := &domain.Book{}

	query := `
		SELECT id, title, author, content, publication_year, isbn, available
		FROM books
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Content,
		&book.PublicationYear,
		&book.ISBN,
		&book.Available,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get book by id",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	authorIDs, err := r.authorIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	book.AuthorIDs = authorIDs

	return book, nil
}

// List returns one page of books.
func (r *PostgresBookRepository) List(ctx context.Context, page domain.PageRequest) (*domain.BookPage, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, title, author, content, publication_year, isbn, available
		FROM books
		ORDER BY %s
		LIMIT $1 OFFSET $2
	`, orderClause(bookSortColumns, page.SortBy, page.SortDirection))

	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Page*page.Size)
	if err != nil {
		r.logger.Error("failed to list books", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := []*domain.Book{}
	for rows.Next() {
		book := &domain.Book{}
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Content,
			&book.PublicationYear,
			&book.ISBN,
			&book.Available,
		); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}

	return &domain.BookPage{
		Content:       books,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, page.Size),
	}, nil
}

// Update overwrites a book's descriptive fields and author links. The
// available flag is deliberately excluded; only the loan workflow moves it.
func (r *PostgresBookRepository) Update(ctx context.Context, book *domain.Book) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE books
		SET title = $1, author = $2, content = $3, publication_year = $4, isbn = $5
		WHERE id = $6
	`

	result, err := tx.ExecContext(ctx, query,
		book.Title,
		book.Author,
		book.Content,
		book.PublicationYear,
		book.ISBN,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	if book.AuthorIDs != nil {
		if err := linkAuthors(ctx, tx, book.ID, book.AuthorIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit book update: %w", err)
	}

	return nil
}

// Delete removes a book.
func (r *PostgresBookRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			// Loans still reference this book.
			return fmt.Errorf("%w: book has loans", domain.ErrConflict)
		}
		return fmt.Errorf("failed to delete book: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *PostgresBookRepository) authorIDs(ctx context.Context, bookID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT author_id FROM book_authors WHERE book_id = $1 ORDER BY author_id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list book authors: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan author id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	pages := total / int64(size)
	if total%int64(size) != 0 {
		pages++
	}
	return int(pages)
}
