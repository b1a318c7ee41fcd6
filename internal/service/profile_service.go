package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"resto-be/internal/domain"
	"resto-be/internal/repository"
	"resto-be/pkg/errors"
	"resto-be/pkg/logger"
	"resto-be/pkg/redis"
	"resto-be/pkg/utils"
)

// profileService implements the ProfileService interface
type profileService struct {
	profiles repository.ProfileRepository
	cache    *redis.Client // may be nil when Redis is not configured
	logger   *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(profiles repository.ProfileRepository, cache *redis.Client, log *logger.Logger) ProfileService {
	return &profileService{
		profiles: profiles,
		cache:    cache,
		logger:   log,
	}
}

// CreateInitial creates the profile document for a new identity
func (s *profileService) CreateInitial(ctx context.Context, user *domain.AuthUser, restaurantID string) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	profile := &domain.UserProfile{
		UID:           user.UID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		Role:          domain.RoleCustomer,
		LoyaltyPoints: 0,
		PhoneNumber:   user.PhoneNumber,
		PhoneVerified: false,
		RestaurantID:  restaurantID,
		Addresses:     []domain.Address{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, errors.NewUpstreamError("Failed to create user profile", err)
	}

	s.logger.WithField("user_id", user.UID).Info("Profile created")
	return profile, nil
}

// GetMe returns the merged claim + profile view
func (s *profileService) GetMe(ctx context.Context, claims *domain.Claims) (*domain.MeResponse, error) {
	profile, err := s.GetProfile(ctx, claims.Sub)
	if err != nil {
		return nil, err
	}

	email := profile.Email
	if email == "" {
		email = claims.Email
	}

	role := profile.Role
	if role == "" {
		role = claims.EffectiveRole()
	}

	return &domain.MeResponse{
		UID:           claims.Sub,
		Email:         email,
		DisplayName:   profile.DisplayName,
		Role:          role,
		LoyaltyPoints: profile.LoyaltyPoints,
		PhotoURL:      profile.PhotoURL,
		PhoneNumber:   profile.PhoneNumber,
		PhoneVerified: profile.PhoneVerified,
	}, nil
}

// GetProfile returns the profile document for a user, served from cache when possible
func (s *profileService) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	if cached := s.fromCache(ctx, uid); cached != nil {
		return cached, nil
	}

	profile, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NewNotFoundError("User profile not found")
		}
		return nil, errors.NewUpstreamError("Failed to fetch user profile", err)
	}

	s.toCache(ctx, profile)
	return profile, nil
}

// UpdateProfile applies an allow-listed update and returns the result
func (s *profileService) UpdateProfile(ctx context.Context, uid string, update *domain.ProfileUpdate) (*domain.UserProfile, error) {
	if update.IsEmpty() {
		return nil, errors.NewValidationError("No valid fields provided for update.", nil)
	}

	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) == "" {
		return nil, errors.NewValidationError("Display name cannot be empty", nil)
	}

	if update.PhoneNumber != nil {
		normalized, err := utils.NormalizePhoneNumber(*update.PhoneNumber)
		if err != nil {
			return nil, errors.NewValidationError("Invalid phone number", map[string]interface{}{
				"phoneNumber": err.Error(),
			})
		}
		update.PhoneNumber = &normalized
	}

	profile, err := s.profiles.Update(ctx, uid, update)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NewNotFoundError("User profile not found")
		}
		return nil, errors.NewUpstreamError("Failed to update user profile", err)
	}

	s.invalidate(ctx, uid)
	return profile, nil
}

// MarkPhoneVerified persists the verified phone number on the profile
func (s *profileService) MarkPhoneVerified(ctx context.Context, uid, phoneNumber string) error {
	if err := s.profiles.SetPhoneVerified(ctx, uid, phoneNumber); err != nil {
		if err == repository.ErrNotFound {
			return errors.NewNotFoundError("User profile not found")
		}
		return errors.NewUpstreamError("Failed to mark phone verified", err)
	}

	s.invalidate(ctx, uid)
	return nil
}

// ListAddresses returns all addresses for a user
func (s *profileService) ListAddresses(ctx context.Context, uid string) ([]domain.Address, error) {
	profile, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	return profile.Addresses, nil
}

// AddAddress appends an address, keeping the single-default invariant
func (s *profileService) AddAddress(ctx context.Context, uid string, req *domain.AddAddressRequest) (*domain.Address, error) {
	if len(strings.TrimSpace(req.Address)) < 5 {
		return nil, errors.NewValidationError("Address is too short", map[string]interface{}{
			"address": "address must be at least 5 characters",
		})
	}

	profile, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	isDefault := len(profile.Addresses) == 0
	if req.IsDefault != nil {
		isDefault = *req.IsDefault
	}

	newAddress := domain.Address{
		ID:        newAddressID(),
		Address:   strings.TrimSpace(req.Address),
		IsDefault: isDefault,
	}

	addresses := append([]domain.Address{}, profile.Addresses...)
	if newAddress.IsDefault {
		for i := range addresses {
			addresses[i].IsDefault = false
		}
	}
	addresses = append(addresses, newAddress)
	ensureSingleDefault(addresses)

	if err := s.saveAddresses(ctx, uid, addresses); err != nil {
		return nil, err
	}

	// ensureSingleDefault may have promoted the new address
	return findAddress(addresses, newAddress.ID), nil
}

// UpdateAddress updates an address, keeping the single-default invariant
func (s *profileService) UpdateAddress(ctx context.Context, uid string, req *domain.UpdateAddressRequest) (*domain.Address, error) {
	if req.ID == "" {
		return nil, errors.NewValidationError("Address ID is required", nil)
	}
	if req.Address != nil && len(strings.TrimSpace(*req.Address)) < 5 {
		return nil, errors.NewValidationError("Address is too short", map[string]interface{}{
			"address": "address must be at least 5 characters",
		})
	}

	profile, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	addresses := append([]domain.Address{}, profile.Addresses...)
	target := findAddress(addresses, req.ID)
	if target == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("Address with ID %s not found.", req.ID))
	}

	if req.Address != nil {
		target.Address = strings.TrimSpace(*req.Address)
	}
	if req.IsDefault != nil {
		if *req.IsDefault {
			for i := range addresses {
				addresses[i].IsDefault = addresses[i].ID == req.ID
			}
		} else {
			target.IsDefault = false
		}
	}
	ensureSingleDefault(addresses)

	if err := s.saveAddresses(ctx, uid, addresses); err != nil {
		return nil, err
	}

	return findAddress(addresses, req.ID), nil
}

// DeleteAddress removes an address, promoting a new default if needed
func (s *profileService) DeleteAddress(ctx context.Context, uid, addressID string) error {
	if addressID == "" {
		return errors.NewValidationError("Address ID is required in query parameters.", nil)
	}

	profile, err := s.GetProfile(ctx, uid)
	if err != nil {
		return err
	}

	addresses := make([]domain.Address, 0, len(profile.Addresses))
	for _, addr := range profile.Addresses {
		if addr.ID != addressID {
			addresses = append(addresses, addr)
		}
	}

	if len(addresses) == len(profile.Addresses) {
		return errors.NewNotFoundError(fmt.Sprintf("Address with ID %s not found.", addressID))
	}

	ensureSingleDefault(addresses)

	return s.saveAddresses(ctx, uid, addresses)
}

func (s *profileService) saveAddresses(ctx context.Context, uid string, addresses []domain.Address) error {
	if err := s.profiles.ReplaceAddresses(ctx, uid, addresses); err != nil {
		if err == repository.ErrNotFound {
			return errors.NewNotFoundError("User profile not found")
		}
		return errors.NewUpstreamError("Failed to save addresses", err)
	}

	s.invalidate(ctx, uid)
	return nil
}

// ensureSingleDefault enforces the invariant that a non-empty address list
// has exactly one default: the first default wins, extras are demoted, and
// if none is default the first address in list order is promoted.
func ensureSingleDefault(addresses []domain.Address) {
	if len(addresses) == 0 {
		return
	}

	seen := false
	for i := range addresses {
		if addresses[i].IsDefault {
			if seen {
				addresses[i].IsDefault = false
			}
			seen = true
		}
	}

	if !seen {
		addresses[0].IsDefault = true
	}
}

func findAddress(addresses []domain.Address, id string) *domain.Address {
	for i := range addresses {
		if addresses[i].ID == id {
			return &addresses[i]
		}
	}
	return nil
}

const addressIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newAddressID generates a time+random composite id, e.g. "1714089600123-k3f9a2b"
func newAddressID() string {
	suffix := make([]byte, 7)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(addressIDAlphabet))))
		if err != nil {
			// crypto/rand failing is unrecoverable for id generation
			panic(fmt.Sprintf("address id generation: %v", err))
		}
		suffix[i] = addressIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

func (s *profileService) fromCache(ctx context.Context, uid string) *domain.UserProfile {
	if s.cache == nil {
		return nil
	}

	val, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyProfile(uid))
	if err != nil {
		return nil
	}

	profile := &domain.UserProfile{}
	if err := json.Unmarshal([]byte(val), profile); err != nil {
		s.logger.WithError(err).Warn("Discarding malformed cached profile")
		return nil
	}
	return profile
}

func (s *profileService) toCache(ctx context.Context, profile *domain.UserProfile) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.KeyBuilder.KeyProfile(profile.UID), payload, redis.TTLProfile); err != nil {
		s.logger.WithError(err).Warn("Failed to cache profile")
	}
}

func (s *profileService) invalidate(ctx context.Context, uid string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, s.cache.KeyBuilder.KeyProfile(uid)); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate profile cache")
	}
}
