package domain

// LoginRequest carries a short-lived credential to exchange for a session cookie
type LoginRequest struct {
	IDToken string `json:"idToken"`
}

// TokenRequest is a password sign-in against the identity service
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse returns a fresh short-lived credential
type TokenResponse struct {
	IDToken string `json:"idToken"`
}

// RegisterRequest creates an identity plus its profile record
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	PhoneNumber string `json:"phoneNumber"`
}

// RegisterResponse returns the new subject id and a fresh credential so the
// client can continue into phone verification and auto-login
type RegisterResponse struct {
	Message string `json:"message"`
	UID     string `json:"uid"`
	IDToken string `json:"idToken"`
}

// SendCodeRequest starts (or restarts) a phone verification challenge
type SendCodeRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// SendCodeResponse correlates the sent challenge with its later confirmation
type SendCodeResponse struct {
	VerificationID string `json:"verificationId"`
}

// VerifyPhoneRequest confirms a challenge with the 6-digit code
type VerifyPhoneRequest struct {
	VerificationID string `json:"verificationId"`
	Code           string `json:"code"`
}

// VerifyPhoneResponse returns a fresh credential reflecting the now-verified
// phone, so the client can re-login
type VerifyPhoneResponse struct {
	Message string `json:"message"`
	IDToken string `json:"idToken"`
}

// StatusResponse is the minimal success envelope for login/logout
type StatusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// AddAddressRequest adds a delivery address
type AddAddressRequest struct {
	Address   string `json:"address"`
	IsDefault *bool  `json:"isDefault,omitempty"`
}

// UpdateAddressRequest updates an existing address by id
type UpdateAddressRequest struct {
	ID        string  `json:"id"`
	Address   *string `json:"address,omitempty"`
	IsDefault *bool   `json:"isDefault,omitempty"`
}

// MeResponse is the merged claim + profile view returned by /api/auth/me
type MeResponse struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	LoyaltyPoints int    `json:"loyaltyPoints"`
	PhotoURL      string `json:"photoURL,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	PhoneVerified bool   `json:"phoneVerified"`
}
