package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator map[string]*models.JWTClaims

func (v stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	claims, ok := v[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return claims, nil
}

var testTokens = stubValidator{
	"gtk-token":   {UserID: "gtk-1", Role: models.RoleGTK},
	"admin-token": {UserID: "adm-1", Role: models.RoleAdminSekolah},
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestJWTAndRoles(t *testing.T) {
	r := gin.New()
	r.GET("/reviews", JWT(testTokens), RequireReviewer(), func(c *gin.Context) {
		c.String(http.StatusOK, Actor(c).UserID+":"+c.GetString(logger.UserIDKey))
	})

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"gtk forbidden", "Bearer gtk-token", http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/reviews", nil)
	req.Header.Set("Authorization", "bearer admin-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "adm-1:adm-1", rec.Body.String())
}

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (a *recordingAudit) Create(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func TestAuditRecordsOnlySuccessfulRequests(t *testing.T) {
	audit := &recordingAudit{}
	r := gin.New()
	r.POST("/talents/:id/approve", JWT(testTokens), Audit(audit, nil, models.AuditActionTalentDecide, "talents"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/talents/t-1/approve", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/talents/t-1/approve?fail=1", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "t-1", *audit.logs[0].ResourceID)
	assert.Equal(t, "adm-1", *audit.logs[0].UserID)
	assert.Equal(t, models.AuditActionTalentDecide, audit.logs[0].Action)

	audit.err = errors.New("insert failed")
	req = httptest.NewRequest(http.MethodPost, "/talents/t-2/approve", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	r := gin.New()
	r.Use(ResponseMeta())
	r.GET("/cached", func(c *gin.Context) {
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, Meta(c))
	})
	r.GET("/plain", func(c *gin.Context) {
		c.JSON(http.StatusOK, Meta(c))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cached", nil))
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	meta = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.NotContains(t, meta, "cache_hit")
}

type observed struct {
	paths    []string
	statuses []int
}

func (o *observed) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.paths = append(o.paths, path)
	o.statuses = append(o.statuses, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &observed{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/talents/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/talents/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []string{"/talents/:id", "unmatched"}, obs.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, obs.statuses)
}

func TestMetricsSkipsHealthRoutes(t *testing.T) {
	obs := &observed{}
	r := gin.New()
	r.Use(Metrics(obs, "/health", "/metrics"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/me", func(c *gin.Context) { c.Status(http.StatusUnauthorized) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, []string{"/me"}, obs.paths)
	assert.Equal(t, []int{http.StatusUnauthorized}, obs.statuses)
}
