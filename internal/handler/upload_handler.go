package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

type uploadService interface {
	Presign(ctx context.Context, actor models.Actor, req dto.PresignRequest) (*dto.PresignResponse, error)
	Confirm(ctx context.Context, actor models.Actor, uploadID string) (*dto.ConfirmUploadResponse, error)
	Cancel(ctx context.Context, actor models.Actor, uploadID string) error
}

// UploadHandler exposes the presigned upload protocol.
type UploadHandler struct {
	service uploadService
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(svc uploadService) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Presign godoc
// @Summary Request a presigned upload URL
// @Description The client PUTs the file to presigned_url with the returned headers, then confirms.
// @Tags Uploads
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.PresignRequest true "Upload descriptor"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /uploads/presign [post]
func (h *UploadHandler) Presign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.PresignRequest
	if !bindJSON(c, &req, "invalid upload payload") {
		return
	}
	res, err := h.service.Presign(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Confirm godoc
// @Summary Confirm an upload
// @Tags Uploads
// @Security BearerAuth
// @Produce json
// @Param upload_id path string true "Upload ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /uploads/{upload_id}/confirm [post]
func (h *UploadHandler) Confirm(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "upload_id")
	if !ok {
		return
	}
	res, err := h.service.Confirm(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Cancel godoc
// @Summary Cancel an upload
// @Tags Uploads
// @Security BearerAuth
// @Param upload_id path string true "Upload ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /uploads/{upload_id} [delete]
func (h *UploadHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "upload_id")
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
