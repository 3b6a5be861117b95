// Package user holds accounts, roles, and the capability check used by
// privileged operations.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Role is a user's access level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	RoleStaff Role = "STAFF"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin, RoleStaff:
		return Role(s), nil
	default:
		return "", errors.Errorf("unknown role %q", s)
	}
}

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrExists is returned when a username or email is already taken.
	ErrExists = errors.New("user or email already exists")
	// ErrInvalidCredentials is returned on a failed login. Deliberately
	// identical for unknown identifier and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is returned when the actor lacks the required role.
	ErrForbidden = errors.New("operation not permitted")
)

// User is an account. PasswordHash is an opaque bcrypt hash and never leaves
// the identity layer.
type User struct {
	ID             uuid.UUID
	Username       string
	Email          string
	Role           Role
	PasswordHash   string
	MobileNumber   string
	ProfilePicture string
	CreatedAt      time.Time
}

// RequireRole is the single capability check for privileged operations:
// it passes when u holds any of the given roles. A nil user always fails.
func RequireRole(u *User, roles ...Role) error {
	if u == nil {
		return ErrForbidden
	}
	for _, r := range roles {
		if u.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// FindByIdentifier matches either username or email.
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	UpdateMobile(ctx context.Context, id uuid.UUID, mobile string) error
}
