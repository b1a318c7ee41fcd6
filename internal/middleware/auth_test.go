package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resto-be/internal/domain"
	"resto-be/pkg/errors"
	"resto-be/pkg/logger"
)

// fakeIdentity implements service.IdentityProvider for middleware tests.
// Only VerifySession matters here; the rest is unused.
type fakeIdentity struct {
	sessions map[string]*domain.Claims
	errs     map[string]error
}

func (f *fakeIdentity) VerifySession(ctx context.Context, cookie string, checkRevoked bool) (*domain.Claims, error) {
	if err, ok := f.errs[cookie]; ok {
		return nil, err
	}
	if claims, ok := f.sessions[cookie]; ok {
		return claims, nil
	}
	return nil, errors.NewAuthenticationError("Unauthorized: Invalid session cookie")
}

func (f *fakeIdentity) CreateUser(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthUser, error) {
	return nil, nil
}
func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (string, error) {
	return "", nil
}
func (f *fakeIdentity) IssueCredential(ctx context.Context, uid string) (string, error) {
	return "", nil
}
func (f *fakeIdentity) VerifyCredential(ctx context.Context, idToken string) (*domain.Claims, error) {
	return nil, nil
}
func (f *fakeIdentity) ExchangeForSession(ctx context.Context, idToken string) (string, error) {
	return "", nil
}
func (f *fakeIdentity) RevokeSessions(ctx context.Context, uid string) error { return nil }
func (f *fakeIdentity) SendPhoneChallenge(ctx context.Context, uid, phoneNumber string) (string, error) {
	return "", nil
}
func (f *fakeIdentity) ConfirmPhoneChallenge(ctx context.Context, uid, verificationID, code string) (string, error) {
	return "", nil
}
func (f *fakeIdentity) LinkPhone(ctx context.Context, uid, phoneNumber string) error { return nil }

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		sessions: map[string]*domain.Claims{
			"good-cookie":    {Sub: "user-1", Email: "ann@example.com", Role: domain.RoleCustomer},
			"admin-cookie":   {Sub: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin},
			"no-role-cookie": {Sub: "user-2", Email: "bob@example.com"},
		},
		errs: map[string]error{
			"revoked-cookie": errors.NewAuthenticationError("Unauthorized: Session revoked"),
			"expired-cookie": errors.NewAuthenticationError("Unauthorized: Session expired"),
		},
	}
}

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok, "claims must be attached before the handler runs")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(claims.Sub))
	})
}

func doRequest(handler http.Handler, cookieValue string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookieValue != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookieValue})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) *errors.ErrorResponse {
	t.Helper()
	body := &errors.ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), body))
	return body
}

func TestSessionAuthNoCookie(t *testing.T) {
	handler := SessionAuth(newFakeIdentity(), logger.NewNop())(protectedEcho(t))

	rec := doRequest(handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: No session cookie", decodeErrorBody(t, rec).Error.Message)
}

func TestSessionAuthInvalidCookie(t *testing.T) {
	handler := SessionAuth(newFakeIdentity(), logger.NewNop())(protectedEcho(t))

	rec := doRequest(handler, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Invalid session cookie", decodeErrorBody(t, rec).Error.Message)
}

func TestSessionAuthRevokedAndExpired(t *testing.T) {
	handler := SessionAuth(newFakeIdentity(), logger.NewNop())(protectedEcho(t))

	rec := doRequest(handler, "revoked-cookie")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Session revoked", decodeErrorBody(t, rec).Error.Message)

	rec = doRequest(handler, "expired-cookie")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Session expired", decodeErrorBody(t, rec).Error.Message)
}

func TestSessionAuthValidCookie(t *testing.T) {
	handler := SessionAuth(newFakeIdentity(), logger.NewNop())(protectedEcho(t))

	rec := doRequest(handler, "good-cookie")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestRequireRoleAllows(t *testing.T) {
	log := logger.NewNop()
	handler := SessionAuth(newFakeIdentity(), log)(
		RequireRole(log, domain.RoleAdmin)(protectedEcho(t)),
	)

	rec := doRequest(handler, "admin-cookie")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleForbidden(t *testing.T) {
	log := logger.NewNop()
	handler := SessionAuth(newFakeIdentity(), log)(
		RequireRole(log, domain.RoleAdmin)(protectedEcho(t)),
	)

	rec := doRequest(handler, "good-cookie")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: Insufficient permissions", decodeErrorBody(t, rec).Error.Message)
}

func TestRequireRoleMissingClaimCountsAsCustomer(t *testing.T) {
	log := logger.NewNop()
	handler := SessionAuth(newFakeIdentity(), log)(
		RequireRole(log, domain.RoleCustomer)(protectedEcho(t)),
	)

	rec := doRequest(handler, "no-role-cookie")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	handler := RequestID(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
