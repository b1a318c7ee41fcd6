package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"resto-be/internal/domain"
	"resto-be/pkg/database"
)

// userRepository handles identity record operations with PostgreSQL
type userRepository struct {
	db *database.PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.PostgresDB) UserRepository {
	return &userRepository{
		db: db,
	}
}

// Create inserts a new identity record
func (r *userRepository) Create(ctx context.Context, user *domain.AuthUser) error {
	query := `
		INSERT INTO auth_users (uid, email, password_hash, display_name, phone_number, role, disabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		user.UID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.PhoneNumber,
		user.Role,
		user.Disabled,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if uniqueErr := mapUniqueViolation(err); uniqueErr != nil {
			return uniqueErr
		}
		return fmt.Errorf("failed to create auth user: %w", err)
	}

	return nil
}

// GetByUID retrieves an identity record by subject id
func (r *userRepository) GetByUID(ctx context.Context, uid string) (*domain.AuthUser, error) {
	query := `
		SELECT uid, email, password_hash, display_name, COALESCE(phone_number, ''), role, disabled, created_at, updated_at
		FROM auth_users
		WHERE uid = $1
	`

	return r.scanOne(r.db.GetReadPool().QueryRow(ctx, query, uid))
}

// GetByEmail retrieves an identity record by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.AuthUser, error) {
	query := `
		SELECT uid, email, password_hash, display_name, COALESCE(phone_number, ''), role, disabled, created_at, updated_at
		FROM auth_users
		WHERE email = $1
	`

	return r.scanOne(r.db.GetReadPool().QueryRow(ctx, query, email))
}

// UpdatePhone links a verified phone number to the identity record
func (r *userRepository) UpdatePhone(ctx context.Context, uid, phoneNumber string) error {
	query := `
		UPDATE auth_users
		SET phone_number = $2, updated_at = $3
		WHERE uid = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, uid, phoneNumber, time.Now().UTC())
	if err != nil {
		if uniqueErr := mapUniqueViolation(err); uniqueErr != nil {
			return uniqueErr
		}
		return fmt.Errorf("failed to update phone number: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.AuthUser, error) {
	user := &domain.AuthUser{}
	err := row.Scan(
		&user.UID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.PhoneNumber,
		&user.Role,
		&user.Disabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan auth user row: %w", err)
	}

	return user, nil
}

// mapUniqueViolation translates a postgres unique violation into the
// matching sentinel error, or returns nil for unrelated errors
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}

	if strings.Contains(pgErr.ConstraintName, "phone") {
		return ErrPhoneExists
	}
	return ErrEmailExists
}
