package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusevents/event-api/internal/middleware"
	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/internal/repository"
	"github.com/campusevents/event-api/internal/service"
)

type memoryUserStore struct {
	users map[string]*models.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]*models.User)}
}

func (m *memoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUserStore) Create(ctx context.Context, user *models.User) error {
	if _, err := m.FindByEmail(ctx, user.Email); err == nil {
		return repository.ErrDuplicate
	}
	user.ID = "user-" + user.Email
	m.users[user.ID] = user
	return nil
}

func (m *memoryUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *memoryUserStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func authRouter(store *memoryUserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(store, nil, nil, service.AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "event-api-test",
	})
	auth := NewAuthHandler(authSvc)
	users := NewUserHandler(service.NewUserService(store, nil))

	router := gin.New()
	router.POST("/auth/register", auth.Register)
	router.POST("/auth/login", auth.Login)
	protected := router.Group("/", middleware.JWT(authSvc))
	protected.GET("/auth/me", auth.Me)
	protected.GET("/users/profile", users.Profile)
	protected.GET("/users", middleware.RequireRoles(models.RoleAdmin), users.List)
	return router
}

func TestAuthHandlerRegisterLoginMe(t *testing.T) {
	store := newMemoryUserStore()
	router := authRouter(store)

	rec := doRequest(router, http.MethodPost, "/auth/register", `{"name":"Coding Club","email":"club@college.edu","password":"secret1","role":"committee","committee_name":"Coding Club","department":"CSE","id_proof":"C-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = doRequest(router, http.MethodPost, "/auth/login", `{"email":"club@college.edu","password":"secret1","role":"Committee"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &login))
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, models.RoleCommittee, login.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "club@college.edu")

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set(middleware.AuthTokenHeader, login.AccessToken)
	list := httptest.NewRecorder()
	router.ServeHTTP(list, req)
	assert.Equal(t, http.StatusForbidden, list.Code)
}

func TestAuthHandlerLoginFailures(t *testing.T) {
	router := authRouter(newMemoryUserStore())

	rec := doRequest(router, http.MethodPost, "/auth/login", `{"email":"nobody@college.edu","password":"x","role":"User"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(router, http.MethodPost, "/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerRejectsAdminWithoutCode(t *testing.T) {
	router := authRouter(newMemoryUserStore())

	rec := doRequest(router, http.MethodPost, "/auth/register", `{"name":"Dean","email":"dean@college.edu","password":"secret1","role":"Admin","admin_code":"guess"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
