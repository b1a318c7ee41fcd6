package authclient

import (
	"context"
	"net/http"
)

// challenge is the scoped artifact for one phone verification attempt. Only
// one may exist at a time; a new send destroys the previous one first.
type challenge struct {
	verificationID string
	destroyed      bool
}

func (ch *challenge) destroy() {
	ch.destroyed = true
}

// teardownChallenge destroys the active challenge handle, if any
func (c *Client) teardownChallenge() {
	if c.phone != nil {
		c.phone.destroy()
		c.phone = nil
	}
}

// SendVerificationCode starts (or restarts) the phone verification sub-flow.
// Any previous challenge is torn down before the new code is requested, so a
// resend never leaves two live challenges.
func (c *Client) SendVerificationCode(ctx context.Context, phoneNumber string) error {
	c.teardownChallenge()
	c.store.dispatch(codeSendRequested{})

	resp := &struct {
		VerificationID string `json:"verificationId"`
	}{}
	body := map[string]string{"phoneNumber": phoneNumber}
	if err := c.do(ctx, http.MethodPost, "/api/auth/phone/send", body, resp); err != nil {
		c.store.dispatch(codeSendFailed{err: err})
		return err
	}

	c.phone = &challenge{verificationID: resp.VerificationID}
	c.store.dispatch(codeSendSucceeded{verificationID: resp.VerificationID})
	return nil
}

// VerifyPhone submits the received code. On success the returned credential
// is used for an immediate login and a fresh claim fetch. On failure the
// verification id survives so the user can retry the code, though the local
// challenge handle is torn down either way.
func (c *Client) VerifyPhone(ctx context.Context, code string) error {
	verificationID := c.store.Snapshot().VerificationID
	if verificationID == "" {
		err := &APIError{
			StatusCode: http.StatusBadRequest,
			Type:       "validation",
			Message:    "No verification in progress",
		}
		c.store.dispatch(verifyFailed{err: err})
		return err
	}

	c.store.dispatch(verifyRequested{})

	resp := &struct {
		IDToken string `json:"idToken"`
	}{}
	body := map[string]string{"verificationId": verificationID, "code": code}
	err := c.do(ctx, http.MethodPost, "/api/auth/verify-phone", body, resp)
	c.teardownChallenge()
	if err != nil {
		c.store.dispatch(verifyFailed{err: err})
		return err
	}

	// Auto-login with the fresh credential so the session reflects the
	// verified phone number.
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"idToken": resp.IDToken}, nil); err != nil {
		c.store.dispatch(verifyFailed{err: err})
		return err
	}

	user := &User{}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, user); err != nil {
		c.store.dispatch(verifyFailed{err: err})
		return err
	}

	c.store.dispatch(verifySucceeded{user: user})
	return nil
}
