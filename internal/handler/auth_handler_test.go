package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/service"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type fakeAuthSrv struct {
	loginReq      models.LoginRequest
	refreshToken  string
	refreshErr    error
	logoutToken   string
	logoutAllUser string
	changedUser   string
	changeErr     error
	expiresAt     time.Time
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	f.loginReq = req
	if req.Password != "secret123" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResult{
		AccessToken:      "access-1",
		ExpiresIn:        900,
		User:             &models.User{ID: "gtk-1", Email: req.Email},
		RefreshToken:     "refresh-1",
		RefreshExpiresAt: f.expiresAt,
	}, nil
}

func (f *fakeAuthSrv) Refresh(_ context.Context, token string, _ service.RequestMeta) (*models.RefreshResult, error) {
	f.refreshToken = token
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &models.RefreshResult{AccessToken: "access-2", ExpiresIn: 900, RefreshToken: "refresh-2", RefreshExpiresAt: f.expiresAt}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, token string, _ service.RequestMeta) error {
	f.logoutToken = token
	return nil
}

func (f *fakeAuthSrv) LogoutAll(_ context.Context, userID string, _ service.RequestMeta) (int64, error) {
	f.logoutAllUser = userID
	return 2, nil
}

func (f *fakeAuthSrv) ChangePassword(_ context.Context, userID string, _ models.ChangePasswordRequest, _ service.RequestMeta) error {
	f.changedUser = userID
	return f.changeErr
}

func newAuthHandler(srv *fakeAuthSrv) *AuthHandler {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	srv.expiresAt = now.Add(7 * 24 * time.Hour)
	h := NewAuthHandler(srv, RefreshCookie{Name: "refresh_token", Path: "/api/v1/auth"})
	h.now = func() time.Time { return now }
	return h
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandlerLoginSetsRefreshCookie(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := newAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "guru@example.com", "password": "secret123"}, nil)
	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "handler-test", srv.loginReq.UserAgent)

	cookie := findCookie(rec.Result().Cookies(), "refresh_token")
	require.NotNil(t, cookie)
	assert.Equal(t, "refresh-1", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/api/v1/auth", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((7 * 24 * time.Hour).Seconds()), cookie.MaxAge)

	assert.NotContains(t, rec.Body.String(), "refresh-1")
	var data map[string]interface{}
	decodeEnvelope(t, rec).decodeData(t, &data)
	assert.Equal(t, "access-1", data["access_token"])
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	h := newAuthHandler(&fakeAuthSrv{})

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/login", "{", nil)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Error.Code)

	c, rec = newTestContext(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "guru@example.com", "password": "nope"}, nil)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Error.Code)
	assert.Nil(t, findCookie(rec.Result().Cookies(), "refresh_token"))
}

func TestAuthHandlerRefreshRotatesCookie(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := newAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/refresh", nil, nil)
	c.Request.AddCookie(&http.Cookie{Name: "refresh_token", Value: "refresh-1"})
	h.Refresh(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refresh-1", srv.refreshToken)
	cookie := findCookie(rec.Result().Cookies(), "refresh_token")
	require.NotNil(t, cookie)
	assert.Equal(t, "refresh-2", cookie.Value)
}

func TestAuthHandlerRefreshWithoutCookie(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := newAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/refresh", nil, nil)
	h.Refresh(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, srv.refreshToken)
}

func TestAuthHandlerRefreshFailureClearsCookie(t *testing.T) {
	srv := &fakeAuthSrv{refreshErr: appErrors.Clone(appErrors.ErrUnauthorized, "refresh token expired")}
	h := newAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/refresh", nil, nil)
	c.Request.AddCookie(&http.Cookie{Name: "refresh_token", Value: "stale"})
	h.Refresh(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cookie := findCookie(rec.Result().Cookies(), "refresh_token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestAuthHandlerLogoutAndLogoutAll(t *testing.T) {
	srv := &fakeAuthSrv{}
	h := newAuthHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.Request.AddCookie(&http.Cookie{Name: "refresh_token", Value: "refresh-1"})
	h.Logout(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refresh-1", srv.logoutToken)
	require.NotNil(t, findCookie(rec.Result().Cookies(), "refresh_token"))

	c, rec = newTestContext(http.MethodPost, "/api/v1/auth/logout-all", nil, nil)
	h.LogoutAll(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/api/v1/auth/logout-all", nil, gtkClaims)
	h.LogoutAll(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gtk-1", srv.logoutAllUser)
}

func TestAuthHandlerChangePassword(t *testing.T) {
	srv := &fakeAuthSrv{changeErr: appErrors.Validation("current password is incorrect", appErrors.FieldError{Field: "current_password", Message: "incorrect"})}
	h := newAuthHandler(srv)

	body := map[string]string{"current_password": "x", "new_password": "newsecret1", "confirm_password": "newsecret1"}
	c, rec := newTestContext(http.MethodPatch, "/api/v1/me/password", body, gtkClaims)
	h.ChangePassword(c)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "current_password", env.Error.Details[0].Field)
	assert.Equal(t, "gtk-1", srv.changedUser)

	srv.changeErr = nil
	c, rec = newTestContext(http.MethodPatch, "/api/v1/me/password", body, gtkClaims)
	h.ChangePassword(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}
