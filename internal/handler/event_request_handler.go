package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
	"github.com/campusevents/event-api/pkg/response"
)

type workflowService interface {
	Submit(ctx context.Context, input dto.EventInput, principal *models.Principal) (*models.EventRequest, error)
	Edit(ctx context.Context, id string, patch models.EventPatch, principal *models.Principal) (*models.EventRequest, error)
	Approve(ctx context.Context, id, note string, principal *models.Principal) (*dto.ApprovalResult, error)
	Reject(ctx context.Context, id, note string, principal *models.Principal) (*models.EventRequest, error)
	Get(ctx context.Context, id string, principal *models.Principal) (*models.EventRequest, error)
	List(ctx context.Context, principal *models.Principal) ([]models.EventRequest, error)
	Changes(ctx context.Context, principal *models.Principal, previous map[string]models.EventStatus) (*dto.StatusChangesResponse, error)
}

// EventRequestHandler exposes the approval workflow.
type EventRequestHandler struct {
	service workflowService
}

// NewEventRequestHandler constructs the handler.
func NewEventRequestHandler(service workflowService) *EventRequestHandler {
	return &EventRequestHandler{service: service}
}

// Submit godoc
// @Summary Submit event request
// @Description Committee proposal, stored as Pending
// @Tags Event Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EventInput true "Event details"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /event-requests [post]
func (h *EventRequestHandler) Submit(c *gin.Context) {
	var req dto.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event request payload"))
		return
	}

	created, err := h.service.Submit(c.Request.Context(), req, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List event requests
// @Description Admins see every request, committees their own
// @Tags Event Requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /event-requests [get]
func (h *EventRequestHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get event request
// @Tags Event Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /event-requests/{id} [get]
func (h *EventRequestHandler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Edit godoc
// @Summary Edit pending request
// @Description Owner-only partial update while Pending
// @Tags Event Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body models.EventPatch true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /event-requests/{id} [put]
func (h *EventRequestHandler) Edit(c *gin.Context) {
	var patch models.EventPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event request payload"))
		return
	}

	req, err := h.service.Edit(c.Request.Context(), c.Param("id"), patch, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Approve godoc
// @Summary Approve request
// @Description Publishes the event. Repeating the call returns the same event.
// @Tags Event Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /event-requests/{id}/approve [put]
func (h *EventRequestHandler) Approve(c *gin.Context) {
	decision, ok := bindDecision(c)
	if !ok {
		return
	}

	result, err := h.service.Approve(c.Request.Context(), c.Param("id"), decision.Note, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject request
// @Tags Event Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest false "Optional note"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /event-requests/{id}/reject [put]
func (h *EventRequestHandler) Reject(c *gin.Context) {
	decision, ok := bindDecision(c)
	if !ok {
		return
	}

	req, err := h.service.Reject(c.Request.Context(), c.Param("id"), decision.Note, principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Changes godoc
// @Summary Status changes since snapshot
// @Description Diffs the posted snapshot against current request statuses. Omit previous for the initial sync.
// @Tags Event Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StatusSnapshotRequest true "Last seen statuses"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /event-requests/changes [post]
func (h *EventRequestHandler) Changes(c *gin.Context) {
	var req dto.StatusSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid snapshot payload"))
		return
	}

	changes, err := h.service.Changes(c.Request.Context(), principalFromContext(c), req.Previous)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, changes, nil)
}

func bindDecision(c *gin.Context) (dto.DecisionRequest, bool) {
	var decision dto.DecisionRequest
	if err := c.ShouldBindJSON(&decision); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return decision, false
	}
	return decision, true
}
