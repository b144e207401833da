package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/libris/internal/domain"
)

var userSortColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"surname":   "surname",
	"email":     "email",
	"city":      "city",
	"createdAt": "created_at",
}

// PostgresUserRepository implements domain.UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository.
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user. Returns ErrEmailTaken when the unique email
// constraint rejects the row.
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (name, surname, email, address, city, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.Surname,
		user.Email,
		user.Address,
		user.City,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by id.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `
		SELECT id, name, surname, email, address, city, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
}

// GetByEmail retrieves a user by email.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `
		SELECT id, name, surname, email, address, city, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Surname,
		&user.Email,
		&user.Address,
		&user.City,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// List returns one page of users.
func (r *PostgresUserRepository) List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, surname, email, address, city, password_hash, role, created_at, updated_at
		FROM users
		ORDER BY %s
		LIMIT $1 OFFSET $2
	`, orderClause(userSortColumns, page.SortBy, page.SortDirection))

	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Page*page.Size)
	if err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Surname,
			&user.Email,
			&user.Address,
			&user.City,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}

	return &domain.UserPage{
		Content:       users,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, page.Size),
	}, nil
}

// Update overwrites a user's fields. Returns ErrEmailTaken when the new
// email collides with another user.
func (r *PostgresUserRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, surname = $2, email = $3, address = $4, city = $5,
		    password_hash = $6, role = $7, updated_at = now()
		WHERE id = $8
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.Surname,
		user.Email,
		user.Address,
		user.City,
		user.PasswordHash,
		user.Role,
		user.ID,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}

// Delete removes a user.
func (r *PostgresUserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user has loans", domain.ErrConflict)
		}
		return fmt.Errorf("failed to delete user: %w", err)
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
