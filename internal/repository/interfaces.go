package repository

import (
	"context"
	"errors"

	"resto-be/internal/domain"
)

// Sentinel errors returned by repositories so services can map them to the
// right response status without inspecting driver internals.
var (
	ErrNotFound    = errors.New("record not found")
	ErrEmailExists = errors.New("email already in use")
	ErrPhoneExists = errors.New("phone number already in use")
)

// UserRepository defines the interface for identity record operations
type UserRepository interface {
	// Create creates a new identity record
	Create(ctx context.Context, user *domain.AuthUser) error

	// GetByUID retrieves an identity record by subject id
	GetByUID(ctx context.Context, uid string) (*domain.AuthUser, error)

	// GetByEmail retrieves an identity record by email
	GetByEmail(ctx context.Context, email string) (*domain.AuthUser, error)

	// UpdatePhone links a verified phone number to the identity record
	UpdatePhone(ctx context.Context, uid, phoneNumber string) error
}

// ProfileRepository defines the interface for profile document operations
type ProfileRepository interface {
	// Create creates a new profile document
	Create(ctx context.Context, profile *domain.UserProfile) error

	// GetByUID retrieves a profile document by subject id
	GetByUID(ctx context.Context, uid string) (*domain.UserProfile, error)

	// Update applies an allow-listed profile update and returns the result
	Update(ctx context.Context, uid string, update *domain.ProfileUpdate) (*domain.UserProfile, error)

	// SetPhoneVerified records a verified phone number on the profile
	SetPhoneVerified(ctx context.Context, uid, phoneNumber string) error

	// ReplaceAddresses overwrites the address list for a user
	ReplaceAddresses(ctx context.Context, uid string, addresses []domain.Address) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
}
