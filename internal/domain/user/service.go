package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Sentinel errors for registration input.
var (
	ErrMissingUsername = errors.New("username is required")
	ErrInvalidEmail    = errors.New("a valid email is required")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
)

const minPasswordLen = 8

// Hasher abstracts password hashing so the service stays free of crypto
// details (and tests stay fast).
type Hasher interface {
	Password(password string) (string, error)
	Verify(storedHash, password string) bool
}

// Service handles registration and login.
type Service struct {
	repo   Repository
	hasher Hasher
}

// NewService creates a user Service.
func NewService(repo Repository, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// Register creates a new account with the USER role. Role escalation is not
// exposed here; admin and staff accounts are provisioned by the seed tool.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, ErrMissingUsername
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	passwordHash, err := s.hasher.Password(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		Role:         RoleUser,
		PasswordHash: passwordHash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates by username or email. Both unknown identifiers and
// wrong passwords fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, identifier, password string) (*User, error) {
	u, err := s.repo.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find user")
	}

	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
