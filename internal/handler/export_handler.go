package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sipodi-api/internal/models"
	"github.com/noah-isme/sipodi-api/internal/service"
	"github.com/noah-isme/sipodi-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, actor models.Actor, dataset, format string, meta service.RequestMeta) (*service.ExportFile, error)
}

// ExportHandler streams CSV and PDF downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// GTK godoc
// @Summary Export GTK
// @Tags Exports
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/gtk [get]
func (h *ExportHandler) GTK(c *gin.Context) {
	h.export(c, service.ExportGTK)
}

// Talents godoc
// @Summary Export talents
// @Tags Exports
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /exports/talents [get]
func (h *ExportHandler) Talents(c *gin.Context) {
	h.export(c, service.ExportTalents)
}

// Schools godoc
// @Summary Export school statistics
// @Tags Exports
// @Security BearerAuth
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /exports/schools [get]
func (h *ExportHandler) Schools(c *gin.Context) {
	h.export(c, service.ExportSchools)
}

func (h *ExportHandler) export(c *gin.Context, dataset string) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", service.FormatCSV)))
	file, err := h.service.Export(c.Request.Context(), actor, dataset, format, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
