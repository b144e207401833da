package domain

import (
	"context"
	"time"
)

// Role is a user's access level.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RoleMember    Role = "MEMBER"
)

// User represents a library user account.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"` // unique
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	// PasswordHash holds the bcrypt hash, never the plaintext.
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserPage is one page of users with paging metadata.
type UserPage struct {
	Content       []*User `json:"content"`
	Page          int     `json:"page"`
	Size          int     `json:"size"`
	TotalElements int64   `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, page PageRequest) (*UserPage, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int64) error
}
