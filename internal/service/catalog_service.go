package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/internal/repository"
	"github.com/campusevents/event-api/pkg/cache"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

var (
	approvedCatalogKey  = cache.CatalogKey("approved")
	catalogCachePattern = cache.CatalogKey("*")
)

type eventStore interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListByStatus(ctx context.Context, status models.EventStatus) ([]models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

type registrationCounter interface {
	CountForEvent(ctx context.Context, eventID string) (int, error)
}

type requestLister interface {
	List(ctx context.Context, filter models.EventRequestFilter) ([]models.EventRequest, error)
}

// CatalogService serves published events and admin-direct catalog edits.
type CatalogService struct {
	events        eventStore
	registrations registrationCounter
	requests      requestLister
	cache         *CacheService
	audit         auditLogger
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(events eventStore, registrations registrationCounter, requests requestLister, cache *CacheService, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		events:        events,
		registrations: registrations,
		requests:      requests,
		cache:         cache,
		audit:         audit,
		validate:      validate,
		logger:        logger,
	}
}

// ListApproved returns approved events ordered by date. The boolean reports a cache hit.
func (s *CatalogService) ListApproved(ctx context.Context) ([]models.Event, bool, error) {
	var events []models.Event
	hit, err := s.cache.Remember(ctx, approvedCatalogKey, &events, func(ctx context.Context) (interface{}, error) {
		loaded, err := s.events.ListByStatus(ctx, models.StatusApproved)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
		}
		if loaded == nil {
			loaded = []models.Event{}
		}
		events = loaded
		return loaded, nil
	})
	if err != nil {
		return nil, false, err
	}
	return events, hit, nil
}

// GetByID returns one event. Non-approved events are visible to admins only.
func (s *CatalogService) GetByID(ctx context.Context, id string, principal *models.Principal) (*models.Event, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.VisibleTo(principal) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "event is not published")
	}
	return event, nil
}

// ListAll returns the role-filtered catalog: events for everyone, plus the
// requests an admin or committee may see.
func (s *CatalogService) ListAll(ctx context.Context, principal *models.Principal) (*dto.CatalogView, error) {
	status := models.StatusApproved
	if principal.IsAdmin() {
		status = ""
	}
	events, err := s.events.ListByStatus(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	if events == nil {
		events = []models.Event{}
	}
	view := &dto.CatalogView{Events: events}

	if !models.AuthorizeAny(principal, models.RoleAdmin, models.RoleCommittee) {
		return view, nil
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
	view.Requests = requests
	return view, nil
}

// Create publishes an admin-authored event, Approved unless the input says otherwise.
func (s *CatalogService) Create(ctx context.Context, input dto.EventInput, principal *models.Principal) (*models.Event, error) {
	if err := requireRole(principal, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "title and date are required")
	}
	event := &models.Event{
		EventDetails: input.Details(),
		Status:       input.CatalogStatus(),
		CreatedBy:    principal.UserID,
	}
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if err := s.events.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "an event with this title and date already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	s.emitAudit(ctx, principal.UserID, models.AuditActionEventCreate, event.ID)
	return event, nil
}

// Update applies a partial update to a catalog event.
func (s *CatalogService) Update(ctx context.Context, id string, patch models.EventPatch, principal *models.Principal) (*models.Event, error) {
	if err := requireRole(principal, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event fields")
	}
	event, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.ApplyToEvent(event)
	event.Title = strings.TrimSpace(event.Title)
	if event.Title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
	}
	if err := s.events.Update(ctx, event); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "an event with this title and date already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	s.emitAudit(ctx, principal.UserID, models.AuditActionEventUpdate, event.ID)
	return event, nil
}

// Delete removes an event that nobody has registered for.
func (s *CatalogService) Delete(ctx context.Context, id string, principal *models.Principal) error {
	if err := requireRole(principal, models.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	count, err := s.registrations.CountForEvent(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrInvalidState, "event has registrations and cannot be deleted")
	}
	if err := s.events.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		case errors.Is(err, repository.ErrReferenceViolation):
			return appErrors.Clone(appErrors.ErrInvalidState, "event has registrations and cannot be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.cache.Invalidate(ctx, catalogCachePattern)
	s.emitAudit(ctx, principal.UserID, models.AuditActionEventDelete, id)
	return nil
}

func (s *CatalogService) load(ctx context.Context, id string) (*models.Event, error) {
	if err := validateID(id, "event"); err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *CatalogService) emitAudit(ctx context.Context, userID, action, resourceID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     strPtr(userID),
		Action:     action,
		Resource:   "event",
		ResourceID: strPtr(resourceID),
		IPAddress:  "system",
		UserAgent:  "catalog-service",
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}
