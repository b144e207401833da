package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/libris/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserService handles user CRUD. Passwords are bcrypt-hashed before they
// reach the repository; plaintext is never stored.
type UserService struct {
	repo   domain.UserRepository
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo domain.UserRepository, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, page domain.PageRequest) (*domain.UserPage, error) {
	return s.repo.List(ctx, page)
}

// Get retrieves one user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", domain.ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

// Create validates, hashes the password and stores a new user. Returns
// ErrEmailTaken when the email is already registered.
func (s *UserService) Create(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.ID = 0
	user.PasswordHash = string(hash)
	if user.Role == "" {
		user.Role = domain.RoleMember
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Update merges non-blank fields from patch into the stored user. A
// non-empty password of sufficient length replaces the stored hash; shorter
// values are ignored, matching the original behavior.
func (s *UserService) Update(ctx context.Context, id int64, patch *domain.User, password string) (*domain.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", domain.ErrInvalidInput)
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Email != "" && patch.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, patch.Email); err == nil {
			return nil, domain.ErrEmailTaken
		}
	}

	if strings.TrimSpace(patch.Name) != "" {
		user.Name = patch.Name
	}
	if strings.TrimSpace(patch.Surname) != "" {
		user.Surname = patch.Surname
	}
	if strings.TrimSpace(patch.Email) != "" {
		user.Email = patch.Email
	}
	if strings.TrimSpace(patch.Address) != "" {
		user.Address = patch.Address
	}
	if strings.TrimSpace(patch.City) != "" {
		user.City = patch.City
	}
	if patch.Role != "" {
		switch patch.Role {
		case domain.RoleAdmin, domain.RoleLibrarian, domain.RoleMember:
			user.Role = patch.Role
		default:
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, patch.Role)
		}
	}

	if len(password) >= minPasswordLength {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
		s.logger.Info("password updated", slog.Int64("user_id", id))
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: user id must be positive", domain.ErrInvalidInput)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

func validateUser(user *domain.User) error {
	if user == nil {
		return fmt.Errorf("%w: user data is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(user.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if !strings.Contains(user.Email, "@") {
		return fmt.Errorf("%w: email is malformed", domain.ErrInvalidInput)
	}
	return nil
}
