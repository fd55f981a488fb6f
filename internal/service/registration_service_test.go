package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/internal/repository"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type registrationRepoStub struct {
	regs      []models.Registration
	skipCheck bool
	countErr  error
	createErr error
}

func (r *registrationRepoStub) Exists(ctx context.Context, userID, eventID string) (bool, error) {
	if r.skipCheck {
		return false, nil
	}
	for _, reg := range r.regs {
		if reg.UserID == userID && reg.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (r *registrationRepoStub) Create(ctx context.Context, reg *models.Registration) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.regs {
		if existing.UserID == reg.UserID && existing.EventID == reg.EventID {
			return repository.ErrDuplicate
		}
	}
	reg.ID = uuid.NewString()
	reg.CreatedAt = time.Now()
	r.regs = append(r.regs, *reg)
	return nil
}

func (r *registrationRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Registration, error) {
	var result []models.Registration
	for _, reg := range r.regs {
		if reg.UserID == userID {
			result = append(result, reg)
		}
	}
	return result, nil
}

func (r *registrationRepoStub) CountByEvent(ctx context.Context, eventID string) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	count := 0
	for _, reg := range r.regs {
		if reg.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func TestRegistrationRejectsUnpublishedEvent(t *testing.T) {
	events := newEventRepoStub()
	pending := events.add(models.Event{EventDetails: models.EventDetails{Title: "Event A"}, Status: models.StatusPending})
	repo := &registrationRepoStub{}
	svc := NewRegistrationService(repo, events, NewMetricsService(), nil)

	_, err := svc.Register(context.Background(), pending.ID, plainUser)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Empty(t, repo.regs)

	_, err = svc.Register(context.Background(), uuid.NewString(), plainUser)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)

	_, err = svc.Register(context.Background(), "bogus", plainUser)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Register(context.Background(), pending.ID, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestRegistrationForEventDeletedMidRequest(t *testing.T) {
	events := newEventRepoStub()
	live := events.add(models.Event{EventDetails: models.EventDetails{Title: "Live"}, Status: models.StatusApproved})
	repo := &registrationRepoStub{createErr: repository.ErrReferenceViolation}
	svc := NewRegistrationService(repo, events, NewMetricsService(), nil)

	_, err := svc.Register(context.Background(), live.ID, plainUser)
	assert.ErrorIs(t, err, appErrors.ErrInvalidState)
	assert.Empty(t, repo.regs)
}

func TestRegistrationIsUniquePerUserAndEvent(t *testing.T) {
	events := newEventRepoStub()
	live := events.add(models.Event{EventDetails: models.EventDetails{Title: "Live"}, Status: models.StatusApproved})
	repo := &registrationRepoStub{}
	svc := NewRegistrationService(repo, events, nil, nil)
	ctx := context.Background()

	reg, err := svc.Register(ctx, live.ID, plainUser)
	require.NoError(t, err)
	assert.Equal(t, plainUser.UserID, reg.UserID)

	_, err = svc.Register(ctx, live.ID, plainUser)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyExists)

	repo.skipCheck = true
	_, err = svc.Register(ctx, live.ID, plainUser)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyExists)
	assert.Len(t, repo.regs, 1)

	_, err = svc.Register(ctx, live.ID, committeeOne)
	require.NoError(t, err)

	count, err := svc.CountForEvent(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegistrationListForUser(t *testing.T) {
	events := newEventRepoStub()
	live := events.add(models.Event{EventDetails: models.EventDetails{Title: "Live"}, Status: models.StatusApproved})
	repo := &registrationRepoStub{regs: []models.Registration{
		{ID: "r1", UserID: plainUser.UserID, EventID: live.ID},
		{ID: "r2", UserID: plainUser.UserID, EventID: "removed"},
		{ID: "r3", UserID: committeeOne.UserID, EventID: live.ID},
	}}
	svc := NewRegistrationService(repo, events, nil, nil)

	regs, err := svc.ListForUser(context.Background(), plainUser)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	require.NotNil(t, regs[0].Event)
	assert.Equal(t, "Live", regs[0].Event.Title)
	assert.Nil(t, regs[1].Event)

	empty, err := svc.ListForUser(context.Background(), adminPrincipal)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	_, err = svc.ListForUser(context.Background(), nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestRegistrationCountError(t *testing.T) {
	svc := NewRegistrationService(&registrationRepoStub{countErr: errors.New("db down")}, newEventRepoStub(), nil, nil)
	_, err := svc.CountForEvent(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
