package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FitnessFreakCoder/freshmart/internal/domain/user"
)

const (
	userColumns = `id, username, email, password_hash, role, mobile_number, profile_picture, created_at`

	createUserSQL = `INSERT INTO users (id, username, email, password_hash, role, mobile_number, profile_picture)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getUserByIDSQL = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	getUserByIdentifierSQL = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`

	updateUserMobileSQL = `UPDATE users SET mobile_number = $2 WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (id, username, email, password_hash, role, mobile_number, profile_picture)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new account. A taken username or email fails with
// user.ErrExists.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, createUserSQL,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.MobileNumber, u.ProfilePicture,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.ErrExists
		}
		return fmt.Errorf("creating user %q: %w", u.Username, err)
	}
	return nil
}

// Upsert inserts an account or refreshes its password and role, keyed by
// username. Used by the seed tool to provision admin and staff accounts.
func (r *UserRepository) Upsert(ctx context.Context, u *user.User) error {
	_, err := r.pool.Exec(ctx, upsertUserSQL,
		u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.MobileNumber, u.ProfilePicture,
	)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", u.Username, err)
	}
	return nil
}

// FindByID returns the account with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return r.findOne(ctx, getUserByIDSQL, id)
}

// FindByIdentifier returns the account whose username or email matches
// identifier.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) (*user.User, error) {
	return r.findOne(ctx, getUserByIdentifierSQL, identifier)
}

// UpdateMobile stores the user's latest delivery contact number.
func (r *UserRepository) UpdateMobile(ctx context.Context, id uuid.UUID, mobile string) error {
	tag, err := r.pool.Exec(ctx, updateUserMobileSQL, id, mobile)
	if err != nil {
		return fmt.Errorf("updating mobile for user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, sql string, arg any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &u, nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role,
		&u.MobileNumber, &u.ProfilePicture, &u.CreatedAt,
	)
	if err != nil {
		return u, err
	}
	u.Role, err = user.ParseRole(role)
	return u, err
}
