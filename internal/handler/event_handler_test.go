package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/middleware"
	"github.com/campusevents/event-api/internal/models"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func withPrincipal(principal *models.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal != nil {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: principal.UserID, Role: principal.Role})
		}
		c.Next()
	}
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var (
	adminUser     = &models.Principal{UserID: "admin-1", Role: models.RoleAdmin}
	committeeUser = &models.Principal{UserID: "committee-1", Role: models.RoleCommittee}
)

type fakeCatalog struct {
	events    []models.Event
	hit       bool
	err       error
	principal *models.Principal
	input     dto.EventInput
	patch     models.EventPatch
}

func (f *fakeCatalog) ListApproved(context.Context) ([]models.Event, bool, error) {
	return f.events, f.hit, f.err
}

func (f *fakeCatalog) GetByID(_ context.Context, id string, principal *models.Principal) (*models.Event, error) {
	f.principal = principal
	if f.err != nil {
		return nil, f.err
	}
	return &models.Event{ID: id, Status: models.StatusApproved}, nil
}

func (f *fakeCatalog) ListAll(_ context.Context, principal *models.Principal) (*dto.CatalogView, error) {
	f.principal = principal
	return &dto.CatalogView{Events: f.events}, f.err
}

func (f *fakeCatalog) Create(_ context.Context, input dto.EventInput, principal *models.Principal) (*models.Event, error) {
	f.input = input
	f.principal = principal
	if f.err != nil {
		return nil, f.err
	}
	return &models.Event{ID: "new", EventDetails: input.Details(), Status: models.StatusApproved}, nil
}

func (f *fakeCatalog) Update(_ context.Context, id string, patch models.EventPatch, principal *models.Principal) (*models.Event, error) {
	f.patch = patch
	if f.err != nil {
		return nil, f.err
	}
	return &models.Event{ID: id}, nil
}

func (f *fakeCatalog) Delete(_ context.Context, id string, principal *models.Principal) error {
	return f.err
}

func catalogRouter(fake *fakeCatalog, principal *models.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewEventHandler(fake)
	router := gin.New()
	router.Use(middleware.WithResponseMeta(), withPrincipal(principal))
	router.GET("/events", h.ListApproved)
	router.GET("/events/all", h.ListAll)
	router.GET("/events/:id", h.Get)
	router.POST("/events", h.Create)
	router.PUT("/events/:id", h.Update)
	router.DELETE("/events/:id", h.Delete)
	return router
}

func TestEventHandlerListApprovedReportsCacheHit(t *testing.T) {
	fake := &fakeCatalog{events: []models.Event{{ID: "e1", Status: models.StatusApproved}}, hit: true}
	rec := doRequest(catalogRouter(fake, nil), http.MethodGet, "/events", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Contains(t, string(env.Data), `"id":"e1"`)
}

func TestEventHandlerGetPassesPrincipal(t *testing.T) {
	fake := &fakeCatalog{}
	rec := doRequest(catalogRouter(fake, adminUser), http.MethodGet, "/events/e1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminUser.UserID, fake.principal.UserID)

	fake.err = appErrors.Clone(appErrors.ErrForbidden, "event is not published")
	rec = doRequest(catalogRouter(fake, nil), http.MethodGet, "/events/e1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, fake.principal)
}

func TestEventHandlerCreate(t *testing.T) {
	fake := &fakeCatalog{}
	router := catalogRouter(fake, adminUser)

	rec := doRequest(router, http.MethodPost, "/events", `{"title":"Freshers","date":"2025-07-10","venue":"Lawn"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Freshers", fake.input.Title)
	require.NotNil(t, fake.input.Date)
	assert.Equal(t, "2025-07-10", fake.input.Date.String())

	rec = doRequest(router, http.MethodPost, "/events", `{"title":"Freshers","date":"10/07/2025"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestEventHandlerUpdateAndDelete(t *testing.T) {
	fake := &fakeCatalog{}
	router := catalogRouter(fake, adminUser)

	rec := doRequest(router, http.MethodPut, "/events/e1", `{"venue":"Auditorium"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.patch.Venue)
	assert.Nil(t, fake.patch.Title)
	assert.Nil(t, fake.patch.Status)

	rec = doRequest(router, http.MethodPut, "/events/e1", `{"status":"Pending"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.patch.Status)
	assert.Equal(t, models.StatusPending, *fake.patch.Status)

	fake.err = appErrors.Clone(appErrors.ErrInvalidState, "event has registrations and cannot be deleted")
	rec = doRequest(router, http.MethodDelete, "/events/e1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_STATE", decodeEnvelope(t, rec).Error.Code)

	fake.err = nil
	rec = doRequest(router, http.MethodDelete, "/events/e1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEventHandlerHidesInternalErrors(t *testing.T) {
	fake := &fakeCatalog{err: appErrors.Wrap(assert.AnError, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")}
	rec := doRequest(catalogRouter(fake, nil), http.MethodGet, "/events", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
