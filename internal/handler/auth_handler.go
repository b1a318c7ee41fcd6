package handler

import (
	"net/http"
	"time"

	"resto-be/internal/container"
	"resto-be/internal/domain"
	"resto-be/internal/middleware"
	"resto-be/internal/service/identity"
	"resto-be/pkg/errors"
)

// AuthHandler handles authentication related requests
type AuthHandler struct {
	container *container.Container
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(container *container.Container) *AuthHandler {
	return &AuthHandler{
		container: container,
	}
}

// Login handles POST /api/auth/login. It exchanges a recently-issued
// credential for the long-lived session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	req := &domain.LoginRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	if req.IDToken == "" {
		writeError(w, errors.NewValidationError("ID token is required.", nil), log)
		return
	}

	cookie, err := h.container.GetIdentityService().ExchangeForSession(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err, log)
		return
	}

	http.SetCookie(w, h.sessionCookie(cookie, identity.SessionTTL))

	writeJSON(w, http.StatusOK, &domain.StatusResponse{Status: true, Message: "Login successful"}, log)
}

// Logout handles POST /api/auth/logout. The cookie is always cleared;
// server-side revocation failures are logged but never block sign-out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		identitySvc := h.container.GetIdentityService()
		if claims, err := identitySvc.VerifySession(r.Context(), cookie.Value, false); err == nil {
			if err := identitySvc.RevokeSessions(r.Context(), claims.Sub); err != nil {
				log.WithError(err).WithField("user_id", claims.Sub).Warn("Session revocation failed during logout")
			}
		}
	}

	http.SetCookie(w, h.sessionCookie("", -time.Second))

	writeJSON(w, http.StatusOK, &domain.StatusResponse{Status: true, Message: "Logout successful"}, log)
}

// Me handles GET /api/auth/me, returning the merged claim + profile view
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	me, err := h.container.GetProfileService().GetMe(r.Context(), claims)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, me, log)
}

// Register handles POST /api/auth/register. It creates the identity and its
// profile record, then returns a fresh credential so the client can continue
// into phone verification and auto-login.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	req := &domain.RegisterRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	user, err := h.container.GetIdentityService().CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, err, log)
		return
	}

	if _, err := h.container.GetProfileService().CreateInitial(r.Context(), user, h.container.GetConfig().RestaurantID); err != nil {
		// The identity exists without a profile; me/profile reads will 404
		// until a retry recreates it.
		log.WithError(err).WithField("user_id", user.UID).Error("Profile creation failed after registration")
		writeError(w, err, log)
		return
	}

	idToken, err := h.container.GetIdentityService().IssueCredential(r.Context(), user.UID)
	if err != nil {
		writeError(w, err, log)
		return
	}

	log.WithField("user_id", user.UID).Info("User registered")

	writeJSON(w, http.StatusCreated, &domain.RegisterResponse{
		Message: "User registered successfully",
		UID:     user.UID,
		IDToken: idToken,
	}, log)
}

// Token handles POST /api/auth/token: password sign-in returning a fresh
// short-lived credential for the session exchange.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	req := &domain.TokenRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, errors.NewValidationError("Email and password are required", nil), log)
		return
	}

	idToken, err := h.container.GetIdentityService().SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, &domain.TokenResponse{IDToken: idToken}, log)
}

// SendPhoneCode handles POST /api/auth/phone/send. Starting a new challenge
// always tears down the previous one first.
func (h *AuthHandler) SendPhoneCode(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	req := &domain.SendCodeRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	verificationID, err := h.container.GetIdentityService().SendPhoneChallenge(r.Context(), claims.Sub, req.PhoneNumber)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, &domain.SendCodeResponse{VerificationID: verificationID}, log)
}

// VerifyPhone handles POST /api/auth/verify-phone: confirm the challenge,
// link the phone to the identity record, persist the verified flag, and
// return a fresh credential reflecting the updated identity.
func (h *AuthHandler) VerifyPhone(w http.ResponseWriter, r *http.Request) {
	log := h.container.GetLogger()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, errors.NewAuthenticationError("Unauthorized: No session cookie"), log)
		return
	}

	req := &domain.VerifyPhoneRequest{}
	if err := decodeBody(r, req); err != nil {
		writeError(w, err, log)
		return
	}

	if req.VerificationID == "" || req.Code == "" {
		writeError(w, errors.NewValidationError("Verification ID and code are required", nil), log)
		return
	}

	identitySvc := h.container.GetIdentityService()

	phoneNumber, err := identitySvc.ConfirmPhoneChallenge(r.Context(), claims.Sub, req.VerificationID, req.Code)
	if err != nil {
		writeError(w, err, log)
		return
	}

	if err := identitySvc.LinkPhone(r.Context(), claims.Sub, phoneNumber); err != nil {
		writeError(w, err, log)
		return
	}

	if err := h.container.GetProfileService().MarkPhoneVerified(r.Context(), claims.Sub, phoneNumber); err != nil {
		writeError(w, err, log)
		return
	}

	idToken, err := identitySvc.IssueCredential(r.Context(), claims.Sub)
	if err != nil {
		writeError(w, err, log)
		return
	}

	log.WithField("user_id", claims.Sub).Info("Phone number verified")

	writeJSON(w, http.StatusOK, &domain.VerifyPhoneResponse{
		Message: "Phone number updated successfully",
		IDToken: idToken,
	}, log)
}

// sessionCookie builds the session cookie with the security attributes the
// deployment environment requires
func (h *AuthHandler) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.container.GetConfig().IsProduction(),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}
