package client

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// User is the authenticated account returned by login.
type User struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"full_name"`
	Role     string  `json:"role"`
	SchoolID *string `json:"school_id,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token. The refresh token arrives as a cookie and
// stays in the jar.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	env, err := c.callAnonymous(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var session Session
	if err := env.decode(&session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, errors.New("client: login returned no access token")
	}
	c.SetToken(session.AccessToken)
	return &session, nil
}

// RestoreSession obtains a new access token from the refresh cookie. Any failure yields
// ErrNotAuthenticated.
func (c *Client) RestoreSession(ctx context.Context) error {
	if err := c.refresh(ctx, c.Token()); err != nil {
		c.logger.Debug("session restore failed", zap.Error(err))
		return ErrNotAuthenticated
	}
	if !c.Authenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Logout revokes the refresh cookie server side. Failures are logged and ignored; the local
// token is always cleared.
func (c *Client) Logout(ctx context.Context) {
	if _, err := c.callAnonymous(ctx, http.MethodPost, "/auth/logout", nil); err != nil {
		c.logger.Warn("logout request failed", zap.Error(err))
	}
	c.SetToken("")
}
