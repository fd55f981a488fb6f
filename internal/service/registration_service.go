package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/internal/repository"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type registrationStore interface {
	Exists(ctx context.Context, userID, eventID string) (bool, error)
	Create(ctx context.Context, reg *models.Registration) error
	ListByUser(ctx context.Context, userID string) ([]models.Registration, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Event, error)
}

// RegistrationService records which users signed up for which published events.
type RegistrationService struct {
	registrations registrationStore
	events        eventReader
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewRegistrationService constructs the ledger service.
func NewRegistrationService(registrations registrationStore, events eventReader, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{registrations: registrations, events: events, metrics: metrics, logger: logger}
}

// Register signs principal up for an approved event, at most once.
func (s *RegistrationService) Register(ctx context.Context, eventID string, principal *models.Principal) (*models.Registration, error) {
	if principal == nil || principal.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := validateID(eventID, "event"); err != nil {
		return nil, err
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if event == nil || event.Status != models.StatusApproved {
		s.metrics.RecordRegistration("unavailable")
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "event is not open for registration")
	}

	exists, err := s.registrations.Exists(ctx, principal.UserID, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if exists {
		s.metrics.RecordRegistration("duplicate")
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "already registered for this event")
	}

	reg := &models.Registration{UserID: principal.UserID, EventID: eventID}
	if err := s.registrations.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordRegistration("duplicate")
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "already registered for this event")
		}
		if errors.Is(err, repository.ErrReferenceViolation) {
			s.metrics.RecordRegistration("unavailable")
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "event is not open for registration")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register for event")
	}
	s.metrics.RecordRegistration("created")
	s.logger.Debug("registration created", zap.String("user_id", reg.UserID), zap.String("event_id", reg.EventID))
	return reg, nil
}

// ListForUser returns principal's registrations resolved with their events.
// Registrations whose event has since been removed carry a nil Event.
func (s *RegistrationService) ListForUser(ctx context.Context, principal *models.Principal) ([]models.RegistrationWithEvent, error) {
	if principal == nil || principal.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	regs, err := s.registrations.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	result := make([]models.RegistrationWithEvent, 0, len(regs))
	if len(regs) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		ids = append(ids, reg.EventID)
	}
	events, err := s.events.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registered events")
	}
	for _, reg := range regs {
		item := models.RegistrationWithEvent{Registration: reg}
		if event, ok := events[reg.EventID]; ok {
			event := event
			item.Event = &event
		}
		result = append(result, item)
	}
	return result, nil
}

// CountForEvent returns the number of registrations for eventID.
func (s *RegistrationService) CountForEvent(ctx context.Context, eventID string) (int, error) {
	count, err := s.registrations.CountByEvent(ctx, eventID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	return count, nil
}
