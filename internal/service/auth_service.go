package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/libris/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer mints signed tokens for authenticated users.
type TokenIssuer interface {
	Generate(userID int64, email string, role domain.Role) (string, error)
}

// AuthService handles registration and login.
type AuthService struct {
	users  *UserService
	repo   domain.UserRepository
	tokens TokenIssuer
	logger *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users *UserService, repo domain.UserRepository, tokens TokenIssuer, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:  users,
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// Register creates a new member account. New registrations always get the
// MEMBER role; elevated roles are assigned through the user API.
func (s *AuthService) Register(ctx context.Context, user *domain.User, password string) (*domain.User, error) {
	user.Role = domain.RoleMember

	created, err := s.users.Create(ctx, user, password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			s.logger.Warn("registration with taken email", slog.String("email", user.Email))
		}
		return nil, err
	}

	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	return created, nil
}

// Login verifies credentials and returns a signed token. Missing
// credentials are an input error; a wrong email or password is reported as
// ErrInvalidCredentials without revealing which part failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", slog.String("email", email))
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return token, user, nil
}
