package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yourorg/libris/internal/domain"
)

type stubTokenIssuer struct {
	token string
	err   error
}

func (s *stubTokenIssuer) Generate(userID int64, email string, role domain.Role) (string, error) {
	return s.token, s.err
}

func newAuthService(repo *fakeUserRepo) *AuthService {
	users := NewUserService(repo, nil)
	return NewAuthService(users, repo, &stubTokenIssuer{token: "signed-token"}, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), &domain.User{
		Name:  "Ada",
		Email: "ada@example.com",
	}, "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleMember {
		t.Errorf("expected MEMBER role, got %q", user.Role)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	token, logged, err := svc.Login(context.Background(), "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "signed-token" {
		t.Errorf("unexpected token %q", token)
	}
	if logged.ID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, logged.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), &domain.User{Name: "Ada", Email: "ada@example.com"}, "secret123")
	if err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err = svc.Register(context.Background(), &domain.User{Name: "Eve", Email: "ada@example.com"}, "secret456")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterForcesMemberRole(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	user, err := svc.Register(context.Background(), &domain.User{
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  domain.RoleAdmin,
	}, "secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != domain.RoleMember {
		t.Errorf("registration must not grant elevated roles, got %q", user.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	if _, err := svc.Register(context.Background(), &domain.User{Name: "Ada", Email: "ada@example.com"}, "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, err := svc.Login(context.Background(), "ada@example.com", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, _, err := svc.Login(context.Background(), "", "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), &domain.User{Name: "Ada", Email: "ada@example.com"}, "abc")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for short password, got %v", err)
	}
}
