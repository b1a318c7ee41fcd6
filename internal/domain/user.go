package domain

import "time"

// User roles. Every identity gets RoleCustomer unless staff assigns otherwise.
const (
	RoleCustomer = "customer"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

// AuthUser represents an identity record (credentials live here, never in the profile)
type AuthUser struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Role         string    `json:"role"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Claims is the decoded, verified assertion of identity carried by a
// credential or session cookie
type Claims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	AuthTime    int64  `json:"auth_time"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
	SessionID   string `json:"sid,omitempty"`
}

// EffectiveRole returns the role claim, defaulting absent claims to customer
func (c *Claims) EffectiveRole() string {
	if c.Role == "" {
		return RoleCustomer
	}
	return c.Role
}

// UserProfile is the persisted profile document for a user
type UserProfile struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	Role          string    `json:"role"`
	LoyaltyPoints int       `json:"loyaltyPoints"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	PhoneVerified bool      `json:"phoneVerified"`
	PhotoURL      string    `json:"photoURL,omitempty"`
	RestaurantID  string    `json:"restaurantId,omitempty"`
	Addresses     []Address `json:"addresses"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Address is a delivery address; at most one per user carries IsDefault
type Address struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	IsDefault bool   `json:"isDefault"`
}

// ProfileUpdate is the allow-list projection of a profile update payload.
// Role, loyalty points and email can never arrive from the client: they are
// not fields here, so they cannot be smuggled into a write.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all
func (u *ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.PhoneNumber == nil && u.PhotoURL == nil
}
