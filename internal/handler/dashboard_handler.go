package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/middleware"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, actor models.Actor) (*dto.DashboardSummary, bool, error)
	SchoolStatistics(ctx context.Context, actor models.Actor) ([]models.SchoolStatistics, error)
	TalentStatistics(ctx context.Context, actor models.Actor) (*models.TalentStatistics, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Payload depends on the caller's role. meta.cache_hit reports whether it came from cache.
// @Tags Dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.Meta(c)
	if meta == nil {
		meta = map[string]interface{}{"cache_hit": cacheHit}
	}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}

// SchoolStatistics godoc
// @Summary Per-school statistics
// @Tags Dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /dashboard/schools/statistics [get]
func (h *DashboardHandler) SchoolStatistics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	stats, err := h.service.SchoolStatistics(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.Meta(c))
}

// TalentStatistics godoc
// @Summary Talent statistics
// @Description Counts by kind, status, level and field
// @Tags Dashboard
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/talents/statistics [get]
func (h *DashboardHandler) TalentStatistics(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	stats, err := h.service.TalentStatistics(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.Meta(c))
}
