package service

import (
	"context"

	"resto-be/internal/domain"
)

// IdentityProvider defines the capability interface for the identity vendor.
// Everything the rest of the system knows about credentials, session cookies
// and phone challenges goes through this interface, so the vendor is
// swappable and mockable in tests.
type IdentityProvider interface {
	// CreateUser creates a new identity record with a hashed password
	CreateUser(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthUser, error)

	// SignIn verifies a password and returns a fresh short-lived credential
	SignIn(ctx context.Context, email, password string) (string, error)

	// IssueCredential mints a fresh credential for an existing identity,
	// with auth_time set to now (used after phone verification)
	IssueCredential(ctx context.Context, uid string) (string, error)

	// VerifyCredential validates a short-lived credential and returns its claims
	VerifyCredential(ctx context.Context, idToken string) (*domain.Claims, error)

	// ExchangeForSession trades a recently-issued credential for a
	// long-lived session cookie value. Credentials older than the replay
	// mitigation window are refused.
	ExchangeForSession(ctx context.Context, idToken string) (string, error)

	// VerifySession validates a session cookie value, optionally checking
	// for revocation, and returns its claims
	VerifySession(ctx context.Context, cookie string, checkRevoked bool) (*domain.Claims, error)

	// RevokeSessions invalidates every session issued to the user so far
	RevokeSessions(ctx context.Context, uid string) error

	// SendPhoneChallenge starts a phone verification challenge, tearing down
	// any prior live challenge for the user first
	SendPhoneChallenge(ctx context.Context, uid, phoneNumber string) (string, error)

	// ConfirmPhoneChallenge checks the submitted code and returns the
	// verified phone number on success
	ConfirmPhoneChallenge(ctx context.Context, uid, verificationID, code string) (string, error)

	// LinkPhone attaches a verified phone number to the identity record
	LinkPhone(ctx context.Context, uid, phoneNumber string) error
}

// ProfileService defines the interface for profile and address operations
type ProfileService interface {
	// CreateInitial creates the profile document for a new identity
	CreateInitial(ctx context.Context, user *domain.AuthUser, restaurantID string) (*domain.UserProfile, error)

	// GetMe returns the merged claim + profile view
	GetMe(ctx context.Context, claims *domain.Claims) (*domain.MeResponse, error)

	// GetProfile returns the profile document for a user
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)

	// UpdateProfile applies an allow-listed update and returns the result
	UpdateProfile(ctx context.Context, uid string, update *domain.ProfileUpdate) (*domain.UserProfile, error)

	// MarkPhoneVerified persists the verified phone number on the profile
	MarkPhoneVerified(ctx context.Context, uid, phoneNumber string) error

	// ListAddresses returns all addresses for a user
	ListAddresses(ctx context.Context, uid string) ([]domain.Address, error)

	// AddAddress appends an address, keeping the single-default invariant
	AddAddress(ctx context.Context, uid string, req *domain.AddAddressRequest) (*domain.Address, error)

	// UpdateAddress updates an address, keeping the single-default invariant
	UpdateAddress(ctx context.Context, uid string, req *domain.UpdateAddressRequest) (*domain.Address, error)

	// DeleteAddress removes an address, promoting a new default if needed
	DeleteAddress(ctx context.Context, uid, addressID string) error
}

// Services aggregates all service interfaces
type Services struct {
	Identity IdentityProvider
	Profile  ProfileService
}
