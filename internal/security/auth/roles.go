package auth

import "github.com/yourorg/libris/internal/domain"

// IsStaff reports whether the role may manage catalog data.
func IsStaff(role domain.Role) bool {
	return role == domain.RoleAdmin || role == domain.RoleLibrarian
}

// CanManageUsers reports whether the role may modify or delete other users.
func CanManageUsers(role domain.Role) bool {
	return role == domain.RoleAdmin
}

// CanDelete reports whether the role may hit destructive endpoints.
func CanDelete(role domain.Role) bool {
	return IsStaff(role)
}
