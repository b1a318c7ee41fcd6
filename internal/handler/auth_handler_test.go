package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-be/internal/config"
	"resto-be/internal/container"
	"resto-be/internal/domain"
	"resto-be/internal/middleware"
	"resto-be/internal/service"
	"resto-be/pkg/errors"
	"resto-be/pkg/logger"
)

// scriptedIdentity implements service.IdentityProvider with canned outcomes
type scriptedIdentity struct {
	createUserFn func(req *domain.RegisterRequest) (*domain.AuthUser, error)
	signInFn     func(email, password string) (string, error)
	exchangeFn   func(idToken string) (string, error)
	verifySessFn func(cookie string, checkRevoked bool) (*domain.Claims, error)
	confirmFn    func(uid, verificationID, code string) (string, error)
	sendFn       func(uid, phoneNumber string) (string, error)
	issuedFor    []string
	revokedFor   []string
	linkedPhone  string
}

func (s *scriptedIdentity) CreateUser(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthUser, error) {
	return s.createUserFn(req)
}

func (s *scriptedIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	return s.signInFn(email, password)
}

func (s *scriptedIdentity) IssueCredential(ctx context.Context, uid string) (string, error) {
	s.issuedFor = append(s.issuedFor, uid)
	return "issued-credential", nil
}

func (s *scriptedIdentity) VerifyCredential(ctx context.Context, idToken string) (*domain.Claims, error) {
	return nil, nil
}

func (s *scriptedIdentity) ExchangeForSession(ctx context.Context, idToken string) (string, error) {
	return s.exchangeFn(idToken)
}

func (s *scriptedIdentity) VerifySession(ctx context.Context, cookie string, checkRevoked bool) (*domain.Claims, error) {
	if s.verifySessFn != nil {
		return s.verifySessFn(cookie, checkRevoked)
	}
	return nil, errors.NewAuthenticationError("Unauthorized: Invalid session cookie")
}

func (s *scriptedIdentity) RevokeSessions(ctx context.Context, uid string) error {
	s.revokedFor = append(s.revokedFor, uid)
	return nil
}

func (s *scriptedIdentity) SendPhoneChallenge(ctx context.Context, uid, phoneNumber string) (string, error) {
	return s.sendFn(uid, phoneNumber)
}

func (s *scriptedIdentity) ConfirmPhoneChallenge(ctx context.Context, uid, verificationID, code string) (string, error) {
	return s.confirmFn(uid, verificationID, code)
}

func (s *scriptedIdentity) LinkPhone(ctx context.Context, uid, phoneNumber string) error {
	s.linkedPhone = phoneNumber
	return nil
}

// scriptedProfile implements service.ProfileService
type scriptedProfile struct {
	created       []*domain.UserProfile
	markedPhone   string
	getMeFn       func(claims *domain.Claims) (*domain.MeResponse, error)
	createInitErr error
}

func (s *scriptedProfile) CreateInitial(ctx context.Context, user *domain.AuthUser, restaurantID string) (*domain.UserProfile, error) {
	if s.createInitErr != nil {
		return nil, s.createInitErr
	}
	profile := &domain.UserProfile{
		UID:           user.UID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		Role:          domain.RoleCustomer,
		LoyaltyPoints: 0,
		RestaurantID:  restaurantID,
		Addresses:     []domain.Address{},
	}
	s.created = append(s.created, profile)
	return profile, nil
}

func (s *scriptedProfile) GetMe(ctx context.Context, claims *domain.Claims) (*domain.MeResponse, error) {
	if s.getMeFn != nil {
		return s.getMeFn(claims)
	}
	return &domain.MeResponse{UID: claims.Sub, Email: claims.Email, Role: claims.EffectiveRole()}, nil
}

func (s *scriptedProfile) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	return nil, errors.NewNotFoundError("User profile not found")
}

func (s *scriptedProfile) UpdateProfile(ctx context.Context, uid string, update *domain.ProfileUpdate) (*domain.UserProfile, error) {
	return nil, errors.NewNotFoundError("User profile not found")
}

func (s *scriptedProfile) MarkPhoneVerified(ctx context.Context, uid, phoneNumber string) error {
	s.markedPhone = phoneNumber
	return nil
}

func (s *scriptedProfile) ListAddresses(ctx context.Context, uid string) ([]domain.Address, error) {
	return nil, nil
}

func (s *scriptedProfile) AddAddress(ctx context.Context, uid string, req *domain.AddAddressRequest) (*domain.Address, error) {
	return nil, nil
}

func (s *scriptedProfile) UpdateAddress(ctx context.Context, uid string, req *domain.UpdateAddressRequest) (*domain.Address, error) {
	return nil, nil
}

func (s *scriptedProfile) DeleteAddress(ctx context.Context, uid, addressID string) error {
	return nil
}

func newTestContainer(identity service.IdentityProvider, profile service.ProfileService) *container.Container {
	return &container.Container{
		Config: &config.Config{Environment: "test", RestaurantID: "resto-1"},
		Logger: logger.NewNop(),
		Services: &service.Services{
			Identity: identity,
			Profile:  profile,
		},
	}
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withClaims(req *http.Request, claims *domain.Claims) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ClaimsContextKey, claims)
	return req.WithContext(ctx)
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestRegisterSuccess(t *testing.T) {
	identity := &scriptedIdentity{
		createUserFn: func(req *domain.RegisterRequest) (*domain.AuthUser, error) {
			return &domain.AuthUser{
				UID:         "new-uid",
				Email:       req.Email,
				DisplayName: req.DisplayName,
				Role:        domain.RoleCustomer,
			}, nil
		},
	}
	profile := &scriptedProfile{}
	h := NewAuthHandler(newTestContainer(identity, profile))

	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"email":       "ann@example.com",
		"password":    "secret123",
		"displayName": "Ann",
	}))

	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := &domain.RegisterResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "new-uid", resp.UID)
	assert.Equal(t, "issued-credential", resp.IDToken)

	// The profile document is created under the configured tenant with the
	// customer defaults
	require.Len(t, profile.created, 1)
	assert.Equal(t, "resto-1", profile.created[0].RestaurantID)
	assert.Equal(t, domain.RoleCustomer, profile.created[0].Role)
	assert.Equal(t, 0, profile.created[0].LoyaltyPoints)
	assert.False(t, profile.created[0].PhoneVerified)
	assert.Equal(t, []string{"new-uid"}, identity.issuedFor)
}

func TestRegisterConflict(t *testing.T) {
	identity := &scriptedIdentity{
		createUserFn: func(req *domain.RegisterRequest) (*domain.AuthUser, error) {
			return nil, errors.NewConflictError("Email already in use")
		},
	}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Register(rec, jsonRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"email":       "taken@example.com",
		"password":    "secret123",
		"displayName": "Ann",
	}))

	assert.Equal(t, http.StatusConflict, rec.Code)

	envelope := &errors.ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), envelope))
	assert.Equal(t, errors.ErrorTypeConflict, envelope.Error.Type)
	assert.Equal(t, "Email already in use", envelope.Error.Message)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	identity := &scriptedIdentity{
		exchangeFn: func(idToken string) (string, error) {
			require.Equal(t, "fresh-credential", idToken)
			return "session-cookie-value", nil
		},
	}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"idToken": "fresh-credential",
	}))

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "session-cookie-value", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 14*24*60*60, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.False(t, cookie.Secure, "Secure is reserved for production")

	resp := &domain.StatusResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.True(t, resp.Status)
	assert.Equal(t, "Login successful", resp.Message)
}

func TestLoginMissingToken(t *testing.T) {
	h := NewAuthHandler(newTestContainer(&scriptedIdentity{}, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	envelope := &errors.ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), envelope))
	assert.Equal(t, "ID token is required.", envelope.Error.Message)
	assert.Nil(t, sessionCookieFrom(t, rec))
}

func TestLoginStaleCredential(t *testing.T) {
	identity := &scriptedIdentity{
		exchangeFn: func(idToken string) (string, error) {
			return "", errors.NewAuthenticationError("Recent sign-in required.")
		},
	}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Login(rec, jsonRequest(http.MethodPost, "/api/auth/login", map[string]string{
		"idToken": "old-credential",
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookieFrom(t, rec), "no cookie on a refused exchange")

	envelope := &errors.ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), envelope))
	assert.Equal(t, "Recent sign-in required.", envelope.Error.Message)
}

func TestLogoutClearsCookieAndRevokes(t *testing.T) {
	identity := &scriptedIdentity{
		verifySessFn: func(cookie string, checkRevoked bool) (*domain.Claims, error) {
			assert.False(t, checkRevoked, "logout revokes even already-revoked sessions")
			return &domain.Claims{Sub: "user-1"}, nil
		},
	}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	req := jsonRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "live-session"})

	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"user-1"}, identity.revokedFor)

	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestLogoutWithoutSessionStillSucceeds(t *testing.T) {
	identity := &scriptedIdentity{}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Logout(rec, jsonRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, identity.revokedFor)
	require.NotNil(t, sessionCookieFrom(t, rec))
}

func TestMeRequiresClaims(t *testing.T) {
	h := NewAuthHandler(newTestContainer(&scriptedIdentity{}, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Me(rec, jsonRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsMergedView(t *testing.T) {
	profile := &scriptedProfile{
		getMeFn: func(claims *domain.Claims) (*domain.MeResponse, error) {
			return &domain.MeResponse{
				UID:           claims.Sub,
				Email:         "ann@example.com",
				DisplayName:   "Ann",
				Role:          domain.RoleCustomer,
				LoyaltyPoints: 120,
				PhoneVerified: true,
			}, nil
		},
	}
	h := NewAuthHandler(newTestContainer(&scriptedIdentity{}, profile))

	req := withClaims(jsonRequest(http.MethodGet, "/api/auth/me", nil), &domain.Claims{Sub: "user-1"})
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	me := &domain.MeResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), me))
	assert.Equal(t, "user-1", me.UID)
	assert.Equal(t, 120, me.LoyaltyPoints)
	assert.True(t, me.PhoneVerified)
}

func TestSendPhoneCode(t *testing.T) {
	identity := &scriptedIdentity{
		sendFn: func(uid, phoneNumber string) (string, error) {
			assert.Equal(t, "user-1", uid)
			assert.Equal(t, "+12125551234", phoneNumber)
			return "verification-1", nil
		},
	}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	req := withClaims(jsonRequest(http.MethodPost, "/api/auth/phone/send", map[string]string{
		"phoneNumber": "+12125551234",
	}), &domain.Claims{Sub: "user-1"})

	rec := httptest.NewRecorder()
	h.SendPhoneCode(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := &domain.SendCodeResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, "verification-1", resp.VerificationID)
}

func TestVerifyPhoneSuccess(t *testing.T) {
	identity := &scriptedIdentity{
		confirmFn: func(uid, verificationID, code string) (string, error) {
			assert.Equal(t, "user-1", uid)
			assert.Equal(t, "verification-1", verificationID)
			assert.Equal(t, "123456", code)
			return "+12125551234", nil
		},
	}
	profile := &scriptedProfile{}
	h := NewAuthHandler(newTestContainer(identity, profile))

	req := withClaims(jsonRequest(http.MethodPost, "/api/auth/verify-phone", map[string]string{
		"verificationId": "verification-1",
		"code":           "123456",
	}), &domain.Claims{Sub: "user-1"})

	rec := httptest.NewRecorder()
	h.VerifyPhone(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "+12125551234", identity.linkedPhone)
	assert.Equal(t, "+12125551234", profile.markedPhone)
	assert.Equal(t, []string{"user-1"}, identity.issuedFor)

	resp := &domain.VerifyPhoneResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, "Phone number updated successfully", resp.Message)
	assert.Equal(t, "issued-credential", resp.IDToken)
}

func TestVerifyPhoneMissingFields(t *testing.T) {
	h := NewAuthHandler(newTestContainer(&scriptedIdentity{}, &scriptedProfile{}))

	req := withClaims(jsonRequest(http.MethodPost, "/api/auth/verify-phone", map[string]string{
		"code": "123456",
	}), &domain.Claims{Sub: "user-1"})

	rec := httptest.NewRecorder()
	h.VerifyPhone(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenSignIn(t *testing.T) {
	identity := &scriptedIdentity{
		signInFn: func(email, password string) (string, error) {
			if password != "secret123" {
				return "", errors.NewAuthenticationError("Invalid email or password")
			}
			return "fresh-credential", nil
		},
	}
	h := NewAuthHandler(newTestContainer(identity, &scriptedProfile{}))

	rec := httptest.NewRecorder()
	h.Token(rec, jsonRequest(http.MethodPost, "/api/auth/token", map[string]string{
		"email":    "ann@example.com",
		"password": "secret123",
	}))

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := &domain.TokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	assert.Equal(t, "fresh-credential", resp.IDToken)

	rec = httptest.NewRecorder()
	h.Token(rec, jsonRequest(http.MethodPost, "/api/auth/token", map[string]string{
		"email":    "ann@example.com",
		"password": "wrong",
	}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Token(rec, jsonRequest(http.MethodPost, "/api/auth/token", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPhoneWrongCode(t *testing.T) {
	identity := &scriptedIdentity{
		confirmFn: func(uid, verificationID, code string) (string, error) {
			return "", errors.NewValidationError("Invalid verification code", nil)
		},
	}
	profile := &scriptedProfile{}
	h := NewAuthHandler(newTestContainer(identity, profile))

	req := withClaims(jsonRequest(http.MethodPost, "/api/auth/verify-phone", map[string]string{
		"verificationId": "verification-1",
		"code":           "999999",
	}), &domain.Claims{Sub: "user-1"})

	rec := httptest.NewRecorder()
	h.VerifyPhone(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, identity.linkedPhone, "phone is never linked on a failed confirm")
	assert.Empty(t, profile.markedPhone)
}
