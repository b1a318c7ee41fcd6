// Package authclient is a Go client for the resto auth backend. It keeps a
// cookie jar for the session cookie and folds every operation outcome into a
// subscribable state store, so UIs can render auth state from one snapshot.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// APIError is a structured error returned by the backend
type APIError struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
}

// Client orchestrates the auth flows against the backend route surface
type Client struct {
	baseURL string
	http    *http.Client
	store   *Store

	phone *challenge
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is
// attached if the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   NewStore(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	return c, nil
}

// Store exposes the state store for snapshots and subscriptions
func (c *Client) Store() *Store {
	return c.store
}

// CheckStatus probes the session. A 401 means "not signed in" and is folded
// silently: no operation slot records an error. Any other failure lands in
// the Login slot.
func (c *Client) CheckStatus(ctx context.Context) error {
	user := &User{}
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, user)
	if err != nil {
		var apiErr *APIError
		if asAPIError(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			c.store.dispatch(statusUnauthenticated{})
			return nil
		}
		c.store.dispatch(statusCheckFailed{err: err})
		return err
	}

	c.store.dispatch(statusChecked{user: user})
	return nil
}

// SignIn performs the full password login: credential issuance, session
// exchange, then a claim fetch to populate the user.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	c.store.dispatch(loginRequested{})

	tokenResp := &struct {
		IDToken string `json:"idToken"`
	}{}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", body, tokenResp); err != nil {
		c.store.dispatch(loginFailed{err: err})
		return err
	}

	return c.loginWithToken(ctx, tokenResp.IDToken)
}

// LoginWithToken exchanges an existing credential for the session cookie and
// chains a status fetch.
func (c *Client) LoginWithToken(ctx context.Context, idToken string) error {
	c.store.dispatch(loginRequested{})
	return c.loginWithToken(ctx, idToken)
}

func (c *Client) loginWithToken(ctx context.Context, idToken string) error {
	body := map[string]string{"idToken": idToken}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, nil); err != nil {
		c.store.dispatch(loginFailed{err: err})
		return err
	}

	user := &User{}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, user); err != nil {
		c.store.dispatch(loginFailed{err: err})
		return err
	}

	c.store.dispatch(loginSucceeded{user: user})
	return nil
}

// RegisterResult carries what the registration endpoint returned. The
// credential feeds the phone verification step or an explicit login; the
// session is NOT established by registering.
type RegisterResult struct {
	UID     string `json:"uid"`
	IDToken string `json:"idToken"`
}

// Register creates an account. On success the store records the outcome but
// the client stays unauthenticated.
func (c *Client) Register(ctx context.Context, email, password, displayName, phoneNumber string) (*RegisterResult, error) {
	c.store.dispatch(registerRequested{})

	body := map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
		"phoneNumber": phoneNumber,
	}
	result := &RegisterResult{}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, result); err != nil {
		c.store.dispatch(registerFailed{err: err})
		return nil, err
	}

	c.store.dispatch(registerSucceeded{})
	return result, nil
}

// Logout is fail-safe: the local state is forced logged-out and the cookie
// jar replaced even when the backend call fails. A failure is still recorded
// in the Logout operation slot.
func (c *Client) Logout(ctx context.Context) error {
	c.store.dispatch(logoutRequested{})
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)

	if jar, jarErr := cookiejar.New(nil); jarErr == nil {
		c.http.Jar = jar
	}
	c.teardownChallenge()
	if err != nil {
		c.store.dispatch(logoutFailed{err: err})
		return err
	}
	c.store.dispatch(logoutSucceeded{})

	return nil
}

// ClearErrors resets every failed operation slot back to idle
func (c *Client) ClearErrors() {
	c.store.dispatch(errorsCleared{})
}

// do issues one JSON request and decodes either the success body into out or
// the error envelope into an APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	envelope := struct {
		Error APIError `json:"error"`
	}{}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Type:       "upstream",
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	apiErr := envelope.Error
	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}

func asAPIError(err error, target **APIError) bool {
	apiErr, ok := err.(*APIError)
	if ok {
		*target = apiErr
	}
	return ok
}
