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

type schoolService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateSchoolRequest, meta service.RequestMeta) (*models.School, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.SchoolDetail, error)
	List(ctx context.Context, query dto.SchoolQuery) ([]models.School, *models.Pagination, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateSchoolRequest, meta service.RequestMeta) (*models.School, error)
	Delete(ctx context.Context, actor models.Actor, id string, meta service.RequestMeta) error
	Users(ctx context.Context, actor models.Actor, id string, query dto.UserQuery) ([]models.User, *models.Pagination, error)
}

// SchoolHandler exposes school endpoints.
type SchoolHandler struct {
	service schoolService
}

// NewSchoolHandler constructs the handler.
func NewSchoolHandler(svc schoolService) *SchoolHandler {
	return &SchoolHandler{service: svc}
}

// List godoc
// @Summary List schools
// @Tags Schools
// @Security BearerAuth
// @Produce json
// @Param status query string false "negeri or swasta"
// @Param search query string false "Name or NPSN"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools [get]
func (h *SchoolHandler) List(c *gin.Context) {
	var query dto.SchoolQuery
	if !bindQuery(c, &query, "invalid school query") {
		return
	}
	schools, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schools, pagination)
}

// Get godoc
// @Summary School detail
// @Description Includes GTK counts by type
// @Tags Schools
// @Security BearerAuth
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schools/{id} [get]
func (h *SchoolHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	school, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Create godoc
// @Summary Create school
// @Tags Schools
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateSchoolRequest true "School payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schools [post]
func (h *SchoolHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateSchoolRequest
	if !bindJSON(c, &req, "invalid school payload") {
		return
	}
	school, err := h.service.Create(c.Request.Context(), actor, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, school)
}

// Update godoc
// @Summary Update school
// @Tags Schools
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "School ID"
// @Param payload body dto.UpdateSchoolRequest true "School payload"
// @Success 200 {object} response.Envelope
// @Router /schools/{id} [put]
func (h *SchoolHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSchoolRequest
	if !bindJSON(c, &req, "invalid school payload") {
		return
	}
	school, err := h.service.Update(c.Request.Context(), actor, id, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, school, nil)
}

// Delete godoc
// @Summary Delete school
// @Tags Schools
// @Security BearerAuth
// @Param id path string true "School ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schools/{id} [delete]
func (h *SchoolHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Users godoc
// @Summary Users of a school
// @Tags Schools
// @Security BearerAuth
// @Produce json
// @Param id path string true "School ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /schools/{id}/users [get]
func (h *SchoolHandler) Users(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var query dto.UserQuery
	if !bindQuery(c, &query, "invalid user query") {
		return
	}
	users, pagination, err := h.service.Users(c.Request.Context(), actor, id, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}
