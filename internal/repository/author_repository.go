package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/libris/internal/domain"
)

// PostgresAuthorRepository implements domain.AuthorRepository using PostgreSQL.
type PostgresAuthorRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAuthorRepository creates a new author repository.
func NewPostgresAuthorRepository(db *sql.DB, logger *slog.Logger) *PostgresAuthorRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAuthorRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new author, assigning a fresh id.
func (r *PostgresAuthorRepository) Create(ctx context.Context, author *domain.Author) error {
	query := `
		INSERT INTO authors (first_name, last_name, biography, nationality)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		author.FirstName,
		author.LastName,
		author.Biography,
		author.Nationality,
	).Scan(&author.ID)

	if err != nil {
		r.logger.Error("failed to create author",
			slog.String("name", author.FullName()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create author: %w", err)
	}

	return nil
}

// CreateMany inserts a batch of authors inside one transaction.
func (r *PostgresAuthorRepository) CreateMany(ctx context.Context, authors []*domain.Author) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO authors (first_name, last_name, biography, nationality)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	for _, author := range authors {
		if err := tx.QueryRowContext(ctx, query,
			author.FirstName,
			author.LastName,
			author.Biography,
			author.Nationality,
		).Scan(&author.ID); err != nil {
			return fmt.Errorf("failed to create author %q: %w", author.FullName(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit authors: %w", err)
	}

	return nil
}

// GetByID retrieves an author with its linked book ids.
func (r *PostgresAuthorRepository) GetByID(ctx context.Context, id int64) (*domain.Author, error) {
	author := &domain.Author{}

	query := `
		SELECT id, first_name, last_name, biography, nationality
		FROM authors
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&author.ID,
		&author.FirstName,
		&author.LastName,
		&author.Biography,
		&author.Nationality,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get author by id",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get author: %w", err)
	}

	bookIDs, err := r.bookIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	author.BookIDs = bookIDs

	return author, nil
}

// List returns all authors ordered by last name.
func (r *PostgresAuthorRepository) List(ctx context.Context) ([]*domain.Author, error) {
	query := `
		SELECT id, first_name, last_name, biography, nationality
		FROM authors
		ORDER BY last_name, first_name
	`
	return r.queryAuthors(ctx, query)
}

// SearchByName returns authors whose first or last name contains name.
func (r *PostgresAuthorRepository) SearchByName(ctx context.Context, name string) ([]*domain.Author, error) {
	query := `
		SELECT id, first_name, last_name, biography, nationality
		FROM authors
		WHERE first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'
		ORDER BY last_name, first_name
	`
	return r.queryAuthors(ctx, query, name)
}

// ListByNationality returns authors filtered by exact nationality.
func (r *PostgresAuthorRepository) ListByNationality(ctx context.Context, nationality string) ([]*domain.Author, error) {
	query := `
		SELECT id, first_name, last_name, biography, nationality
		FROM authors
		WHERE nationality = $1
		ORDER BY last_name, first_name
	`
	return r.queryAuthors(ctx, query, nationality)
}

// Update overwrites an author's fields.
func (r *PostgresAuthorRepository) Update(ctx context.Context, author *domain.Author) error {
	query := `
		UPDATE authors
		SET first_name = $1, last_name = $2, biography = $3, nationality = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		author.FirstName,
		author.LastName,
		author.Biography,
		author.Nationality,
		author.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update author: %w", err)
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

// Delete removes an author; join rows cascade.
func (r *PostgresAuthorRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
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

func (r *PostgresAuthorRepository) queryAuthors(ctx context.Context, query string, args ...any) ([]*domain.Author, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list authors", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		author := &domain.Author{}
		if err := rows.Scan(
			&author.ID,
			&author.FirstName,
			&author.LastName,
			&author.Biography,
			&author.Nationality,
		); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, author)
	}

	return authors, rows.Err()
}

func (r *PostgresAuthorRepository) bookIDs(ctx context.Context, authorID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT book_id FROM book_authors WHERE author_id = $1 ORDER BY book_id`, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list author books: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan book id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
