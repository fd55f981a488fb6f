package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type eventRequestStore interface {
	Create(ctx context.Context, req *models.EventRequest, first models.StatusLog) error
	FindByID(ctx context.Context, id string) (*models.EventRequest, error)
	List(ctx context.Context, filter models.EventRequestFilter) ([]models.EventRequest, error)
	UpdateDetails(ctx context.Context, req *models.EventRequest) error
	TransitionStatus(ctx context.Context, id string, from models.EventStatus, log *models.StatusLog) error
}

type eventMaterializer interface {
	FindByKey(ctx context.Context, key models.EventKey) (*models.Event, error)
	CreateOrGet(ctx context.Context, event *models.Event) (bool, error)
}

// approveAttempts bounds retries after losing a concurrent status update.
const approveAttempts = 2

// WorkflowService drives event requests from Pending to Approved or Rejected.
type WorkflowService struct {
	requests eventRequestStore
	events   eventMaterializer
	audit    auditLogger
	validate *validator.Validate
	logger   *zap.Logger

	strict   bool
	notifier Notifier
	cache    *CacheService
	metrics  *MetricsService
	now      func() time.Time
}

// WorkflowOption configures WorkflowService.
type WorkflowOption func(*WorkflowService)

// WithStrictTerminalStates makes Approved and Rejected final.
func WithStrictTerminalStates(strict bool) WorkflowOption {
	return func(s *WorkflowService) {
		s.strict = strict
	}
}

// WithNotifier registers the receiver of status changes.
func WithNotifier(notifier Notifier) WorkflowOption {
	return func(s *WorkflowService) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithCatalogCache invalidates the catalog cache whenever an event is materialized.
func WithCatalogCache(cache *CacheService) WorkflowOption {
	return func(s *WorkflowService) {
		s.cache = cache
	}
}

// WithWorkflowMetrics records transitions and materializations.
func WithWorkflowMetrics(metrics *MetricsService) WorkflowOption {
	return func(s *WorkflowService) {
		s.metrics = metrics
	}
}

// WithClock overrides the time source used for log entries.
func WithClock(now func() time.Time) WorkflowOption {
	return func(s *WorkflowService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewWorkflowService constructs the workflow engine. Terminal states are strict by default.
func NewWorkflowService(requests eventRequestStore, events eventMaterializer, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...WorkflowOption) *WorkflowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{
		requests: requests,
		events:   events,
		audit:    audit,
		validate: validate,
		logger:   logger,
		strict:   true,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit records a committee's proposal as Pending with its first log entry.
func (s *WorkflowService) Submit(ctx context.Context, input dto.EventInput, principal *models.Principal) (*models.EventRequest, error) {
	if err := requireRole(principal, models.RoleCommittee); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and date are required")
	}
	details := input.Details()
	details.Title = strings.TrimSpace(details.Title)
	if details.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	now := s.now()
	req := &models.EventRequest{
		EventDetails: details,
		RequestedBy:  principal.UserID,
		Status:       models.StatusPending,
		CreatedAt:    now,
	}
	first := models.StatusLog{
		Status:  models.StatusPending,
		ActorID: strPtr(principal.UserID),
		Note:    models.NoteRequested,
		At:      now,
	}
	if err := s.requests.Create(ctx, req, first); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit event request")
	}

	s.metrics.RecordTransition(models.StatusPending)
	s.emitAudit(ctx, principal.UserID, models.AuditActionRequestSubmit, req.ID)
	s.notify(ctx, req, "", principal.UserID, models.NoteRequested, "")
	return req, nil
}

// Edit applies a partial update to a Pending request owned by the caller.
func (s *WorkflowService) Edit(ctx context.Context, id string, patch models.EventPatch, principal *models.Principal) (*models.EventRequest, error) {
	if principal == nil || principal.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.OwnedBy(principal.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitting committee can edit this request")
	}
	if req.Status != models.StatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be edited")
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event fields")
	}
	if patch.Status != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request status changes through approve and reject")
	}

	patch.Apply(&req.EventDetails)
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
	}
	if err := s.requests.UpdateDetails(ctx, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "only pending requests can be edited")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event request")
	}

	s.emitAudit(ctx, principal.UserID, models.AuditActionRequestEdit, req.ID)
	return req, nil
}

// Approve moves a request to Approved and materializes its catalog event.
// Approving an already approved request returns the existing event without
// appending to the log.
func (s *WorkflowService) Approve(ctx context.Context, id, note string, principal *models.Principal) (*dto.ApprovalResult, error) {
	if err := requireRole(principal, models.RoleAdmin); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = models.NoteApproved
	}

	for attempt := 0; attempt < approveAttempts; attempt++ {
		req, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}

		switch req.Status {
		case models.StatusApproved:
			return s.resolveApproved(ctx, req)
		case models.StatusRejected:
			if s.strict {
				return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been rejected")
			}
		}

		previous := req.Status
		log := models.StatusLog{
			Status:  models.StatusApproved,
			ActorID: strPtr(principal.UserID),
			Note:    note,
			At:      s.now(),
		}
		if err := s.requests.TransitionStatus(ctx, req.ID, previous, &log); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Debug("approval lost status race", zap.String("request_id", req.ID), zap.Int("attempt", attempt+1))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve event request")
		}
		req.Status = models.StatusApproved
		req.UpdatedAt = log.At
		req.StatusLogs = append(req.StatusLogs, log)
		s.metrics.RecordTransition(models.StatusApproved)

		event, err := s.materialize(ctx, req)
		if err != nil {
			return nil, err
		}

		s.emitAudit(ctx, principal.UserID, models.AuditActionRequestApprove, req.ID)
		s.notify(ctx, req, previous, principal.UserID, note, event.ID)
		return &dto.ApprovalResult{Event: event, Request: req}, nil
	}

	return nil, appErrors.Clone(appErrors.ErrInvalidState, "request status changed concurrently")
}

// Reject moves a request to Rejected. Materialized events are left untouched.
func (s *WorkflowService) Reject(ctx context.Context, id, note string, principal *models.Principal) (*models.EventRequest, error) {
	if err := requireRole(principal, models.RoleAdmin); err != nil {
		return nil, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		note = models.NoteRejected
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.strict {
		switch req.Status {
		case models.StatusRejected:
			return req, nil
		case models.StatusApproved:
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request has already been approved")
		}
	}

	previous := req.Status
	log := models.StatusLog{
		Status:  models.StatusRejected,
		ActorID: strPtr(principal.UserID),
		Note:    note,
		At:      s.now(),
	}
	if err := s.requests.TransitionStatus(ctx, req.ID, previous, &log); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "request status changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject event request")
	}
	req.Status = models.StatusRejected
	req.UpdatedAt = log.At
	req.StatusLogs = append(req.StatusLogs, log)

	s.metrics.RecordTransition(models.StatusRejected)
	s.emitAudit(ctx, principal.UserID, models.AuditActionRequestReject, req.ID)
	s.notify(ctx, req, previous, principal.UserID, note, "")
	return req, nil
}

// Get returns one request. Committees only see their own.
func (s *WorkflowService) Get(ctx context.Context, id string, principal *models.Principal) (*models.EventRequest, error) {
	if err := requireRole(principal, models.RoleAdmin, models.RoleCommittee); err != nil {
		return nil, err
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && !req.OwnedBy(principal.UserID) {
		return nil, appErrors.ErrForbidden
	}
	return req, nil
}

// List returns the requests visible to principal, newest first.
func (s *WorkflowService) List(ctx context.Context, principal *models.Principal) ([]models.EventRequest, error) {
	if err := requireRole(principal, models.RoleAdmin, models.RoleCommittee); err != nil {
		return nil, err
	}
	filter := models.EventRequestFilter{}
	if !principal.IsAdmin() {
		filter.RequestedBy = principal.UserID
	}
	requests, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list event requests")
	}
	if requests == nil {
		requests = []models.EventRequest{}
	}
	return requests, nil
}

// Changes diffs the caller's last seen statuses against the current requests.
func (s *WorkflowService) Changes(ctx context.Context, principal *models.Principal, previous map[string]models.EventStatus) (*dto.StatusChangesResponse, error) {
	requests, err := s.List(ctx, principal)
	if err != nil {
		return nil, err
	}
	return &dto.StatusChangesResponse{
		Changes:  DiffRequestStatuses(previous, requests),
		Snapshot: StatusSnapshot(requests),
	}, nil
}

func (s *WorkflowService) resolveApproved(ctx context.Context, req *models.EventRequest) (*dto.ApprovalResult, error) {
	existing, err := s.events.FindByKey(ctx, req.Key())
	if err == nil {
		return &dto.ApprovalResult{Event: existing, Request: req, AlreadyApproved: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approved event")
	}
	event, err := s.materialize(ctx, req)
	if err != nil {
		return nil, err
	}
	return &dto.ApprovalResult{Event: event, Request: req, AlreadyApproved: true}, nil
}

func (s *WorkflowService) materialize(ctx context.Context, req *models.EventRequest) (*models.Event, error) {
	event := req.Materialize()
	created, err := s.events.CreateOrGet(ctx, &event)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish approved event")
	}
	s.metrics.RecordMaterialization(created)
	if created {
		s.cache.Invalidate(ctx, catalogCachePattern)
	}
	return &event, nil
}

func (s *WorkflowService) load(ctx context.Context, id string) (*models.EventRequest, error) {
	if err := validateID(id, "event request"); err != nil {
		return nil, err
	}
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event request")
	}
	return req, nil
}

func (s *WorkflowService) notify(ctx context.Context, req *models.EventRequest, previous models.EventStatus, actorID, note, eventID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, dto.StatusChangeNotification{
		RequestID:   req.ID,
		Title:       req.Title,
		RequestedBy: req.RequestedBy,
		Previous:    previous,
		Current:     req.Status,
		ActorID:     actorID,
		Note:        note,
		EventID:     eventID,
		At:          req.UpdatedAt,
	})
}

func (s *WorkflowService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     strPtr(userID),
		Action:     action,
		Resource:   "event_request",
		ResourceID: strPtr(resourceID),
		IPAddress:  "system",
		UserAgent:  "workflow-service",
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
