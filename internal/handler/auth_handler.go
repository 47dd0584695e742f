package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/service"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, meta service.RequestMeta) (*models.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string, meta service.RequestMeta) error
	LogoutAll(ctx context.Context, userID string, meta service.RequestMeta) (int64, error)
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest, meta service.RequestMeta) error
}

// RefreshCookie describes the HttpOnly cookie carrying the refresh token.
type RefreshCookie struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	cookie  RefreshCookie
	now     func() time.Time
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, cookie RefreshCookie) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "refresh_token"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{service: svc, cookie: cookie, now: time.Now}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email and password. The refresh token is set as an HttpOnly cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req, "invalid login payload") {
		return
	}
	meta := requestMeta(c)
	req.IP = meta.IP
	req.UserAgent = meta.UserAgent

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.RefreshToken, res.RefreshExpiresAt)
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Rotate the refresh cookie and issue a new access token
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie(h.cookie.Name)
	if err != nil || token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token missing"))
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), token, requestMeta(c))
	if err != nil {
		if appErrors.FromError(err).Status == http.StatusUnauthorized {
			h.clearCookie(c)
		}
		response.Error(c, err)
		return
	}

	h.setCookie(c, res.RefreshToken, res.RefreshExpiresAt)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout
// @Description Revoke the current refresh token and clear the cookie
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	if err := h.service.Logout(c.Request.Context(), token, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.clearCookie(c)
	response.Message(c, http.StatusOK, nil, "logged out")
}

// LogoutAll godoc
// @Summary Logout from every device
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	revoked, err := h.service.LogoutAll(c.Request.Context(), actor.UserID, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.clearCookie(c)
	response.JSON(c, http.StatusOK, gin.H{"revoked_sessions": revoked}, nil)
}

// ChangePassword godoc
// @Summary Change password
// @Description Change the caller's password. Every session is revoked afterwards.
// @Tags Authentication
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /me/password [patch]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req, "invalid change password payload") {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), actor.UserID, req, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.clearCookie(c)
	response.Message(c, http.StatusOK, nil, "password updated")
}

func (h *AuthHandler) setCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(h.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, h.cookie.Path, h.cookie.Domain, h.cookie.Secure, true)
}
