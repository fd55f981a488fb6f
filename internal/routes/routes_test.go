package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campusevents/event-api/internal/handler"
	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/internal/service"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type staticTokens map[string]models.UserRole

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: token + "-id", Role: role}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	h := Handlers{
		Auth:          handler.NewAuthHandler(service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "x"})),
		Users:         handler.NewUserHandler(service.NewUserService(nil, nil)),
		Events:        handler.NewEventHandler(service.NewCatalogService(nil, nil, nil, nil, nil, nil, nil)),
		Requests:      handler.NewEventRequestHandler(service.NewWorkflowService(nil, nil, nil, nil, nil)),
		History:       handler.NewHistoryHandler(service.NewHistoryService(nil, nil)),
		Registrations: handler.NewRegistrationHandler(service.NewRegistrationService(nil, nil, metrics, nil)),
		Metrics:       handler.NewMetricsHandler(metrics, nil),
	}
	r := gin.New()
	Register(r, h, Options{
		APIPrefix: "/api/v1/",
		Tokens: staticTokens{
			"admin":     models.RoleAdmin,
			"committee": models.RoleCommittee,
			"user":      models.RoleUser,
		},
	})
	return r
}

func call(r *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRoleGates(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		method string
		path   string
		token  string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodPost, "/api/v1/event-requests", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/event-requests", "forged", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/event-requests", "user", http.StatusForbidden},
		{http.MethodPost, "/api/v1/event-requests", "admin", http.StatusForbidden},
		{http.MethodPut, "/api/v1/event-requests/r1/approve", "committee", http.StatusForbidden},
		{http.MethodPut, "/api/v1/event-requests/r1/reject", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/event-requests/history", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/event-requests/history/export", "user", http.StatusForbidden},
		{http.MethodPost, "/api/v1/events", "committee", http.StatusForbidden},
		{http.MethodDelete, "/api/v1/events/e1", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/users", "committee", http.StatusForbidden},
		{http.MethodGet, "/api/v1/metrics/snapshot", "user", http.StatusForbidden},
		{http.MethodGet, "/api/v1/metrics/snapshot", "admin", http.StatusOK},
		{http.MethodPost, "/api/v1/registrations", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, call(r, tc.method, tc.path, tc.token), "%s %s as %q", tc.method, tc.path, tc.token)
	}
}

func TestRoutesReachServices(t *testing.T) {
	r := newTestRouter()

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/api/v1/event-requests/not-a-uuid", "committee"))
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/api/v1/events/not-a-uuid", ""))
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPut, "/api/v1/event-requests/not-a-uuid/approve", "admin"))
}
