package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/service"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

type talentService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateTalentRequest) (*dto.TalentResponse, error)
	Edit(ctx context.Context, actor models.Actor, id string, req dto.UpdateTalentRequest) (*dto.TalentResponse, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Get(ctx context.Context, actor models.Actor, id string) (*dto.TalentResponse, error)
	List(ctx context.Context, actor models.Actor, filter models.TalentFilter) ([]dto.TalentResponse, *models.Pagination, error)
	ListMine(ctx context.Context, actor models.Actor, filter models.TalentFilter) ([]dto.TalentResponse, *models.Pagination, error)
	History(ctx context.Context, actor models.Actor, id string) ([]models.TalentEvent, error)
	Approve(ctx context.Context, actor models.Actor, id string) (*dto.TalentResponse, error)
	Reject(ctx context.Context, actor models.Actor, id string, reason string) (*dto.TalentResponse, error)
	BatchApprove(ctx context.Context, actor models.Actor, req dto.BatchApproveRequest) (*dto.BatchResult, error)
	BatchReject(ctx context.Context, actor models.Actor, req dto.BatchRejectRequest) (*dto.BatchResult, error)
}

// TalentHandler exposes talent submission and verification endpoints.
type TalentHandler struct {
	service talentService
}

// NewTalentHandler constructs the handler.
func NewTalentHandler(svc talentService) *TalentHandler {
	return &TalentHandler{service: svc}
}

// Create godoc
// @Summary Submit talent
// @Description GTK only. The detail shape depends on talent_type.
// @Tags Talents
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateTalentRequest true "Talent payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /talents [post]
func (h *TalentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateTalentRequest
	if !bindJSON(c, &req, "invalid talent payload") {
		return
	}
	talent, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, talent)
}

// Update godoc
// @Summary Edit pending talent
// @Tags Talents
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Talent ID"
// @Param payload body dto.UpdateTalentRequest true "Talent payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /talents/{id} [put]
func (h *TalentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTalentRequest
	if !bindJSON(c, &req, "invalid talent payload") {
		return
	}
	talent, err := h.service.Edit(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, talent, nil)
}

// Delete godoc
// @Summary Delete pending talent
// @Tags Talents
// @Security BearerAuth
// @Param id path string true "Talent ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /talents/{id} [delete]
func (h *TalentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Talent detail
// @Tags Talents
// @Security BearerAuth
// @Produce json
// @Param id path string true "Talent ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /talents/{id} [get]
func (h *TalentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	talent, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, talent, nil)
}

// List godoc
// @Summary List talents
// @Description Scoped by role: super admin all, school admin own school, GTK own submissions
// @Tags Talents
// @Security BearerAuth
// @Produce json
// @Param talent_type query string false "Talent kind"
// @Param status query string false "pending, approved or rejected"
// @Param school_id query string false "School filter"
// @Param search query string false "Submitter name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /talents [get]
func (h *TalentHandler) List(c *gin.Context) {
	h.list(c, h.service.List)
}

// ListMine godoc
// @Summary List own talents
// @Tags Talents
// @Security BearerAuth
// @Produce json
// @Param talent_type query string false "Talent kind"
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /me/talents [get]
func (h *TalentHandler) ListMine(c *gin.Context) {
	h.list(c, h.service.ListMine)
}

type talentLister func(ctx context.Context, actor models.Actor, filter models.TalentFilter) ([]dto.TalentResponse, *models.Pagination, error)

func (h *TalentHandler) list(c *gin.Context, fetch talentLister) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.TalentQuery
	if !bindQuery(c, &query, "invalid talent query") {
		return
	}
	filter, err := service.TalentFilterFromQuery(query)
	if err != nil {
		response.Error(c, err)
		return
	}
	talents, pagination, err := fetch(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, talents, pagination)
}

// History godoc
// @Summary Talent history
// @Description Append-only lifecycle events, oldest first
// @Tags Talents
// @Security BearerAuth
// @Produce json
// @Param id path string true "Talent ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /talents/{id}/history [get]
func (h *TalentHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.service.History(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Approve godoc
// @Summary Approve talent
// @Tags Verifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "Talent ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /verifications/talents/{id}/approve [post]
func (h *TalentHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	talent, err := h.service.Approve(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, talent, "talent approved")
}

// Reject godoc
// @Summary Reject talent
// @Tags Verifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Talent ID"
// @Param payload body dto.RejectTalentRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /verifications/talents/{id}/reject [post]
func (h *TalentHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RejectTalentRequest
	if !bindJSON(c, &req, "invalid rejection payload") {
		return
	}
	talent, err := h.service.Reject(c.Request.Context(), actor, id, req.RejectionReason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, talent, "talent rejected")
}

// BatchApprove godoc
// @Summary Approve many talents
// @Description Each id is decided independently. Failures are reported per id.
// @Tags Verifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.BatchApproveRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /verifications/talents/batch/approve [post]
func (h *TalentHandler) BatchApprove(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.BatchApproveRequest
	if !bindJSON(c, &req, "invalid batch payload") {
		return
	}
	result, err := h.service.BatchApprove(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// BatchReject godoc
// @Summary Reject many talents
// @Tags Verifications
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.BatchRejectRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /verifications/talents/batch/reject [post]
func (h *TalentHandler) BatchReject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.BatchRejectRequest
	if !bindJSON(c, &req, "invalid batch payload") {
		return
	}
	result, err := h.service.BatchReject(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
