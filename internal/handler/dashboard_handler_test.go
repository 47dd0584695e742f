package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/middleware"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
)

type fakeDashboardSrv struct {
	summary  *dto.DashboardSummary
	hit      bool
	statsErr error
	actor    models.Actor
}

func (f *fakeDashboardSrv) Summary(_ context.Context, actor models.Actor) (*dto.DashboardSummary, bool, error) {
	f.actor = actor
	return f.summary, f.hit, nil
}

func (f *fakeDashboardSrv) SchoolStatistics(_ context.Context, actor models.Actor) ([]models.SchoolStatistics, error) {
	f.actor = actor
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return []models.SchoolStatistics{{ID: "school-1", Name: "SMA 1", GTKCount: 12, TalentCount: 30}}, nil
}

func (f *fakeDashboardSrv) TalentStatistics(_ context.Context, actor models.Actor) (*models.TalentStatistics, error) {
	f.actor = actor
	return &models.TalentStatistics{Total: 3, ByStatus: map[string]int{"pending": 1, "approved": 2}}, nil
}

func TestDashboardHandlerSummaryCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{
		summary: &dto.DashboardSummary{PendingVerifications: 4, TalentsByStatus: map[string]int{"pending": 4}},
		hit:     true,
	}
	handler := NewDashboardHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/api/v1/dashboard/summary", nil, adminClaim)
	middleware.ResponseMeta()(c)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, env.Meta, "processing_time_ms")
	var data map[string]interface{}
	env.decodeData(t, &data)
	assert.Equal(t, float64(4), data["pending_verifications"])
	assert.Equal(t, models.RoleAdminSekolah, srv.actor.Role)
}

func TestDashboardHandlerSummaryWithoutMetaMiddleware(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{summary: &dto.DashboardSummary{TotalSchools: 2}})

	c, rec := newTestContext(http.MethodGet, "/api/v1/dashboard/summary", nil, gtkClaims)
	handler.Summary(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestDashboardHandlerStatistics(t *testing.T) {
	srv := &fakeDashboardSrv{}
	handler := NewDashboardHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/api/v1/dashboard/schools/statistics", nil, adminClaim)
	handler.SchoolStatistics(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []models.SchoolStatistics
	decodeEnvelope(t, rec).decodeData(t, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, 12, rows[0].GTKCount)

	c, rec = newTestContext(http.MethodGet, "/api/v1/dashboard/talents/statistics", nil, gtkClaims)
	handler.TalentStatistics(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.TalentStatistics
	decodeEnvelope(t, rec).decodeData(t, &stats)
	assert.Equal(t, 3, stats.Total)

	srv.statsErr = appErrors.Clone(appErrors.ErrForbidden, "only reviewers can view school statistics")
	c, rec = newTestContext(http.MethodGet, "/api/v1/dashboard/schools/statistics", nil, gtkClaims)
	handler.SchoolStatistics(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
