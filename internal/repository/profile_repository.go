package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"resto-be/internal/domain"
	"resto-be/pkg/database"
)

// profileRepository handles profile document operations with PostgreSQL.
// Addresses are stored as a JSONB array on the profile row, mirroring the
// one-document-per-user shape the rest of the system assumes.
type profileRepository struct {
	db *database.PostgresDB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.PostgresDB) ProfileRepository {
	return &profileRepository{
		db: db,
	}
}

// Create inserts a new profile document
func (r *profileRepository) Create(ctx context.Context, profile *domain.UserProfile) error {
	addresses, err := marshalAddresses(profile.Addresses)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_profiles (uid, email, display_name, role, loyalty_points, phone_number, phone_verified, photo_url, restaurant_id, addresses, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		profile.UID,
		profile.Email,
		profile.DisplayName,
		profile.Role,
		profile.LoyaltyPoints,
		profile.PhoneNumber,
		profile.PhoneVerified,
		profile.PhotoURL,
		profile.RestaurantID,
		addresses,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create user profile: %w", err)
	}

	return nil
}

// GetByUID retrieves a profile document by subject id
func (r *profileRepository) GetByUID(ctx context.Context, uid string) (*domain.UserProfile, error) {
	query := `
		SELECT uid, email, display_name, role, loyalty_points, COALESCE(phone_number, ''), phone_verified, COALESCE(photo_url, ''), COALESCE(restaurant_id, ''), addresses, created_at, updated_at
		FROM user_profiles
		WHERE uid = $1
	`

	profile := &domain.UserProfile{}
	var addresses []byte

	err := r.db.GetReadPool().QueryRow(ctx, query, uid).Scan(
		&profile.UID,
		&profile.Email,
		&profile.DisplayName,
		&profile.Role,
		&profile.LoyaltyPoints,
		&profile.PhoneNumber,
		&profile.PhoneVerified,
		&profile.PhotoURL,
		&profile.RestaurantID,
		&addresses,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if err := json.Unmarshal(addresses, &profile.Addresses); err != nil {
		return nil, fmt.Errorf("failed to decode addresses: %w", err)
	}
	if profile.Addresses == nil {
		profile.Addresses = []domain.Address{}
	}

	return profile, nil
}

// Update applies an allow-listed profile update and returns the result.
// Only columns present in the update are touched. Writing a different phone
// number resets phone_verified; the sub-flow has to confirm the new number.
func (r *profileRepository) Update(ctx context.Context, uid string, update *domain.ProfileUpdate) (*domain.UserProfile, error) {
	query := `
		UPDATE user_profiles
		SET display_name   = COALESCE($2, display_name),
		    phone_number   = COALESCE($3, phone_number),
		    photo_url      = COALESCE($4, photo_url),
		    phone_verified = CASE WHEN $3 IS NOT NULL AND $3 IS DISTINCT FROM phone_number THEN FALSE ELSE phone_verified END,
		    updated_at     = $5
		WHERE uid = $1
	`

	result, err := r.db.Pool.Exec(ctx, query,
		uid,
		update.DisplayName,
		update.PhoneNumber,
		update.PhotoURL,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByUID(ctx, uid)
}

// SetPhoneVerified records a verified phone number on the profile
func (r *profileRepository) SetPhoneVerified(ctx context.Context, uid, phoneNumber string) error {
	query := `
		UPDATE user_profiles
		SET phone_number = $2, phone_verified = TRUE, updated_at = $3
		WHERE uid = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, uid, phoneNumber, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark phone verified: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ReplaceAddresses overwrites the address list for a user
func (r *profileRepository) ReplaceAddresses(ctx context.Context, uid string, addresses []domain.Address) error {
	encoded, err := marshalAddresses(addresses)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_profiles
		SET addresses = $2, updated_at = $3
		WHERE uid = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, uid, encoded, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to replace addresses: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func marshalAddresses(addresses []domain.Address) ([]byte, error) {
	if addresses == nil {
		addresses = []domain.Address{}
	}
	encoded, err := json.Marshal(addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode addresses: %w", err)
	}
	return encoded, nil
}
