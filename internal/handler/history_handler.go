package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/middleware"
	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
	"github.com/campusevents/event-api/pkg/response"
)

type historyService interface {
	Rows(ctx context.Context, principal *models.Principal, search string) ([]dto.HistoryRow, error)
	Export(ctx context.Context, principal *models.Principal, query dto.HistoryQuery) (*dto.ExportFile, error)
}

// HistoryHandler serves the flattened request status history.
type HistoryHandler struct {
	service historyService
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(service historyService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List godoc
// @Summary Status history
// @Tags Event Requests
// @Produce json
// @Security BearerAuth
// @Param q query string false "Case-insensitive search"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /event-requests/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	rows, err := h.service.Rows(c.Request.Context(), principalFromContext(c), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, middleware.MetaCount, len(rows))
	response.JSON(c, http.StatusOK, rows, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export status history
// @Tags Event Requests
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param q query string false "Case-insensitive search"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /event-requests/history/export [get]
func (h *HistoryHandler) Export(c *gin.Context) {
	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}

	file, err := h.service.Export(c.Request.Context(), principalFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Payload)
}
