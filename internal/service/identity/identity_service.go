package identity

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"resto-be/internal/domain"
	"resto-be/internal/repository"
	"resto-be/internal/service"
	"resto-be/pkg/errors"
	"resto-be/pkg/logger"
	"resto-be/pkg/redis"
	"resto-be/pkg/utils"
)

const (
	// CredentialTTL is the lifetime of a short-lived credential (ID token)
	CredentialTTL = time.Hour

	// SessionTTL is the lifetime of a session cookie
	SessionTTL = 14 * 24 * time.Hour

	// SignInFreshness is the replay mitigation window: a credential is
	// exchangeable for a session cookie only this soon after sign-in
	SignInFreshness = 5 * time.Minute

	issuer = "resto-identity"

	tokenUseCredential = "id"
	tokenUseSession    = "session"
)

// Service implements the IdentityProvider interface with first-party
// PostgreSQL identity records, HMAC-signed JWTs and Redis revocation markers
type Service struct {
	users        repository.UserRepository
	cache        *redis.Client
	sms          SMSSender
	signingKey   []byte
	restaurantID string
	now          func() time.Time
	logger       *logger.Logger
}

// Option customizes service construction
type Option func(*Service)

// WithClock injects a custom clock (useful for tests)
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSMSSender injects an SMS delivery implementation
func WithSMSSender(sender SMSSender) Option {
	return func(s *Service) {
		if sender != nil {
			s.sms = sender
		}
	}
}

// NewService creates a new identity service
func NewService(users repository.UserRepository, cache *redis.Client, signingKey, restaurantID string, log *logger.Logger, opts ...Option) service.IdentityProvider {
	s := &Service{
		users:        users,
		cache:        cache,
		sms:          &logSender{log: log},
		signingKey:   []byte(signingKey),
		restaurantID: restaurantID,
		now:          time.Now,
		logger:       log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// tokenClaims extends the registered JWT claims with the identity fields
// this system reads
type tokenClaims struct {
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	AuthTime    int64  `json:"auth_time"`
	TokenUse    string `json:"token_use"`
	SessionID   string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// CreateUser creates a new identity record with a hashed password
func (s *Service) CreateUser(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthUser, error) {
	if details := validateRegistration(req); len(details) > 0 {
		return nil, errors.NewValidationError("Missing required fields (email, password, displayName)", details)
	}

	phone := ""
	if req.PhoneNumber != "" {
		normalized, err := utils.NormalizePhoneNumber(req.PhoneNumber)
		if err != nil {
			return nil, errors.NewValidationError("Invalid phone number format", map[string]interface{}{
				"phoneNumber": err.Error(),
			})
		}
		phone = normalized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.NewInternalError("Failed to hash password", err)
	}

	now := s.now().UTC()
	user := &domain.AuthUser{
		UID:          uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		PhoneNumber:  phone,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch err {
		case repository.ErrEmailExists:
			return nil, errors.NewConflictError("Email already in use")
		case repository.ErrPhoneExists:
			return nil, errors.NewConflictError("Phone number already in use by another account.")
		}
		return nil, errors.NewUpstreamError("Registration failed", err)
	}

	s.logger.WithField("user_id", user.UID).Info("Identity created")
	return user, nil
}

// SignIn verifies a password and returns a fresh short-lived credential
func (s *Service) SignIn(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", errors.NewAuthenticationError("Invalid email or password")
		}
		return "", errors.NewUpstreamError("Sign-in failed", err)
	}

	if user.Disabled {
		return "", errors.NewAuthenticationError("Account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errors.NewAuthenticationError("Invalid email or password")
	}

	return s.mintCredential(user, s.now())
}

// IssueCredential mints a fresh credential for an existing identity
func (s *Service) IssueCredential(ctx context.Context, uid string) (string, error) {
	user, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", errors.NewAuthenticationError("Unknown user")
		}
		return "", errors.NewUpstreamError("Failed to issue credential", err)
	}

	return s.mintCredential(user, s.now())
}

// VerifyCredential validates a short-lived credential and returns its claims
func (s *Service) VerifyCredential(ctx context.Context, idToken string) (*domain.Claims, error) {
	claims, err := s.parseToken(idToken, tokenUseCredential)
	if err != nil {
		return nil, err
	}
	return toDomainClaims(claims), nil
}

// ExchangeForSession trades a recently-issued credential for a session cookie value
func (s *Service) ExchangeForSession(ctx context.Context, idToken string) (string, error) {
	claims, err := s.parseToken(idToken, tokenUseCredential)
	if err != nil {
		return "", err
	}

	// Only exchange if the user signed in within the freshness window.
	// An older stolen token cannot be replayed into a long-lived session.
	if s.now().Unix()-claims.AuthTime >= int64(SignInFreshness.Seconds()) {
		return "", errors.NewAuthenticationError("Recent sign-in required.")
	}

	now := s.now()
	sessionClaims := &tokenClaims{
		Email:       claims.Email,
		Role:        claims.Role,
		PhoneNumber: claims.PhoneNumber,
		AuthTime:    claims.AuthTime,
		TokenUse:    tokenUseSession,
		SessionID:   uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{s.restaurantID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}

	cookie, err := s.sign(sessionClaims)
	if err != nil {
		return "", err
	}

	s.logger.WithField("user_id", claims.Subject).Debug("Session cookie issued")
	return cookie, nil
}

// VerifySession validates a session cookie value, optionally checking revocation
func (s *Service) VerifySession(ctx context.Context, cookie string, checkRevoked bool) (*domain.Claims, error) {
	claims, err := s.parseSession(cookie)
	if err != nil {
		return nil, err
	}

	if checkRevoked {
		revoked, err := s.isRevoked(ctx, claims.Subject, claims.IssuedAt.Unix())
		if err != nil {
			return nil, errors.NewUpstreamError("Session verification failed", err)
		}
		if revoked {
			return nil, errors.NewAuthenticationError("Unauthorized: Session revoked")
		}
	}

	return toDomainClaims(claims), nil
}

// RevokeSessions invalidates every session issued to the user so far
func (s *Service) RevokeSessions(ctx context.Context, uid string) error {
	key := s.cache.KeyBuilder.KeySessionRevoked(uid)
	if err := s.cache.Set(ctx, key, s.now().Unix(), redis.TTLSessionRevoked); err != nil {
		return errors.NewUpstreamError("Failed to revoke sessions", err)
	}

	s.logger.WithField("user_id", uid).Info("Sessions revoked")
	return nil
}

func (s *Service) isRevoked(ctx context.Context, uid string, issuedAt int64) (bool, error) {
	key := s.cache.KeyBuilder.KeySessionRevoked(uid)
	val, err := s.cache.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, err
	}

	revokedAt, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("malformed revocation marker: %w", err)
	}

	// Sessions minted before the revocation instant are dead; a fresh
	// login after revocation produces a session with a later iat.
	return issuedAt < revokedAt, nil
}

// mintCredential issues a short-lived credential with auth_time = authTime
func (s *Service) mintCredential(user *domain.AuthUser, authTime time.Time) (string, error) {
	now := s.now()
	claims := &tokenClaims{
		Email:       user.Email,
		Role:        user.Role,
		PhoneNumber: user.PhoneNumber,
		AuthTime:    authTime.Unix(),
		TokenUse:    tokenUseCredential,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{s.restaurantID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(CredentialTTL)),
		},
	}

	return s.sign(claims)
}

func (s *Service) sign(claims *tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", errors.NewInternalError("Failed to sign token", err)
	}
	return signed, nil
}

// parseToken parses and validates a credential token
func (s *Service) parseToken(tokenString, expectedUse string) (*tokenClaims, error) {
	claims, err := s.parse(tokenString, expectedUse)
	if err != nil {
		if err == jwt.ErrTokenExpired {
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		return nil, errors.NewAuthenticationError("Invalid token")
	}
	return claims, nil
}

// parseSession parses a session cookie, distinguishing expiry from other
// failures so the caller can report the exact cause
func (s *Service) parseSession(tokenString string) (*tokenClaims, error) {
	claims, err := s.parse(tokenString, tokenUseSession)
	if err != nil {
		if err == jwt.ErrTokenExpired {
			return nil, errors.NewAuthenticationError("Unauthorized: Session expired")
		}
		return nil, errors.NewAuthenticationError("Unauthorized: Invalid session cookie")
	}
	return claims, nil
}

func (s *Service) parse(tokenString, expectedUse string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(issuer), jwt.WithAudience(s.restaurantID))

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, jwt.ErrTokenExpired
		}
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	if claims.TokenUse != expectedUse {
		return nil, fmt.Errorf("unexpected token use %q", claims.TokenUse)
	}

	return claims, nil
}

func toDomainClaims(claims *tokenClaims) *domain.Claims {
	return &domain.Claims{
		Sub:         claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		PhoneNumber: claims.PhoneNumber,
		AuthTime:    claims.AuthTime,
		IssuedAt:    claims.IssuedAt.Unix(),
		ExpiresAt:   claims.ExpiresAt.Unix(),
		SessionID:   claims.SessionID,
	}
}

func validateRegistration(req *domain.RegisterRequest) map[string]interface{} {
	details := map[string]interface{}{}
	if req.Email == "" {
		details["email"] = "email is required"
	}
	if len(req.Password) < 6 {
		details["password"] = "password must be at least 6 characters"
	}
	if req.DisplayName == "" {
		details["displayName"] = "display name is required"
	}
	return details
}

// phoneChallenge is the Redis payload for a live verification challenge
type phoneChallenge struct {
	UID         string `json:"uid"`
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

// SendPhoneChallenge starts a phone verification challenge. Any prior live
// challenge for the user is torn down first: two challenges never coexist.
func (s *Service) SendPhoneChallenge(ctx context.Context, uid, phoneNumber string) (string, error) {
	normalized, err := utils.NormalizePhoneNumber(phoneNumber)
	if err != nil {
		return "", errors.NewValidationError("Phone number must be in E.164 format (e.g., +12125551234)", map[string]interface{}{
			"phoneNumber": err.Error(),
		})
	}

	if err := s.teardownChallenge(ctx, uid); err != nil {
		return "", errors.NewUpstreamError("Failed to reset verification challenge", err)
	}

	code, err := generateCode()
	if err != nil {
		return "", errors.NewInternalError("Failed to generate verification code", err)
	}

	verificationID := uuid.NewString()
	payload, err := json.Marshal(&phoneChallenge{
		UID:         uid,
		PhoneNumber: normalized,
		Code:        code,
	})
	if err != nil {
		return "", errors.NewInternalError("Failed to encode verification challenge", err)
	}

	challengeKey := s.cache.KeyBuilder.KeyPhoneChallenge(verificationID)
	if err := s.cache.Set(ctx, challengeKey, payload, redis.TTLPhoneChallenge); err != nil {
		return "", errors.NewUpstreamError("Failed to store verification challenge", err)
	}

	activeKey := s.cache.KeyBuilder.KeyPhoneActiveChallenge(uid)
	if err := s.cache.Set(ctx, activeKey, verificationID, redis.TTLPhoneChallenge); err != nil {
		// Roll back so a half-created challenge never dangles
		_ = s.cache.Delete(ctx, challengeKey)
		return "", errors.NewUpstreamError("Failed to store verification challenge", err)
	}

	if err := s.sms.Send(ctx, normalized, fmt.Sprintf("Your verification code is %s", code)); err != nil {
		_ = s.teardownChallenge(ctx, uid)
		return "", errors.NewUpstreamError("Failed to send verification code", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": uid,
		"phone":   utils.MaskPhoneNumber(normalized),
	}).Info("Phone verification code sent")

	return verificationID, nil
}

// ConfirmPhoneChallenge checks the submitted code against the live challenge.
// On success the challenge is deleted; on a wrong code it stays live so the
// user can retry without a resend.
func (s *Service) ConfirmPhoneChallenge(ctx context.Context, uid, verificationID, code string) (string, error) {
	challengeKey := s.cache.KeyBuilder.KeyPhoneChallenge(verificationID)
	val, err := s.cache.Get(ctx, challengeKey)
	if err != nil {
		if redis.IsNil(err) {
			return "", errors.NewValidationError("Verification code expired or not found", nil)
		}
		return "", errors.NewUpstreamError("Failed to load verification challenge", err)
	}

	challenge := &phoneChallenge{}
	if err := json.Unmarshal([]byte(val), challenge); err != nil {
		return "", errors.NewInternalError("Failed to decode verification challenge", err)
	}

	if challenge.UID != uid {
		return "", errors.NewAuthorizationError("Verification challenge belongs to another user")
	}

	if challenge.Code != code {
		return "", errors.NewValidationError("Invalid verification code", nil)
	}

	if err := s.teardownChallenge(ctx, uid); err != nil {
		return "", errors.NewUpstreamError("Failed to clear verification challenge", err)
	}

	return challenge.PhoneNumber, nil
}

// LinkPhone attaches a verified phone number to the identity record
func (s *Service) LinkPhone(ctx context.Context, uid, phoneNumber string) error {
	if err := s.users.UpdatePhone(ctx, uid, phoneNumber); err != nil {
		switch err {
		case repository.ErrPhoneExists:
			return errors.NewConflictError("Phone number already in use by another account.")
		case repository.ErrNotFound:
			return errors.NewNotFoundError("User not found")
		}
		return errors.NewUpstreamError("Failed to link phone number", err)
	}
	return nil
}

// teardownChallenge removes the live challenge for a user, if any
func (s *Service) teardownChallenge(ctx context.Context, uid string) error {
	activeKey := s.cache.KeyBuilder.KeyPhoneActiveChallenge(uid)
	verificationID, err := s.cache.Get(ctx, activeKey)
	if err != nil {
		if redis.IsNil(err) {
			return nil
		}
		return err
	}

	return s.cache.Delete(ctx,
		s.cache.KeyBuilder.KeyPhoneChallenge(verificationID),
		activeKey,
	)
}
