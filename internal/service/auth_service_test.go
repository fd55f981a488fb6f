package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/internal/repository"
	appErrors "github.com/campusevents/event-api/pkg/errors"
)

type mockAuthRepo struct {
	users          map[string]*models.User
	findByEmailErr error
	createErr      error
	auditLogs      []*models.AuditLog
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: make(map[string]*models.User)}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = "user-" + user.Email
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newTestAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "test",
		AdminCode:         "letmein",
	})
}

func seedUser(t *testing.T, repo *mockAuthRepo, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: "id-" + email, Name: "Seed", Email: email, PasswordHash: string(hash), Role: role}
	repo.users[user.ID] = user
	return user
}

func TestAuthRegisterNormalizesRole(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Name:        "Tech Club",
		Email:       "club@college.edu",
		Password:    "secret1",
		Role:        "cOMMITTEE",
		UserProfile: models.UserProfile{CommitteeName: "Tech Club", Department: "CSE", IDProof: "ID-42"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCommittee, user.Role)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Empty(t, user.Course)
	assert.Len(t, repo.auditLogs, 1)
}

func TestAuthRegisterValidatesProfile(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo())

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Stu", Email: "s@college.edu", Password: "secret1", Role: "User"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Register(context.Background(), models.RegisterRequest{Name: "Stu", Email: "s@college.edu", Password: "secret1", Role: "Dean"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Register(context.Background(), models.RegisterRequest{Name: "Boss", Email: "b@college.edu", Password: "secret1", Role: "admin", AdminCode: "nope"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	admin, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Boss", Email: "b@college.edu", Password: "secret1", Role: "admin", AdminCode: "letmein"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newTestAuthService(repo)
	req := models.RegisterRequest{Name: "Stu", Email: "s@college.edu", Password: "secret1", Role: "User", UserProfile: models.UserProfile{Course: "BSc", Year: "2"}}

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrAlreadyExists)
}

func TestAuthRegisterInternalError(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = errors.New("db down")
	svc := newTestAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Name: "Stu", Email: "s@college.edu", Password: "secret1", Role: "User", UserProfile: models.UserProfile{Course: "BSc", Year: "2"}})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAuthLoginIssuesValidToken(t *testing.T) {
	repo := newMockAuthRepo()
	user := seedUser(t, repo, "club@college.edu", "secret1", models.RoleCommittee)
	svc := newTestAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "club@college.edu", Password: "secret1", Role: "committee"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleCommittee, claims.Role)
	assert.Equal(t, &models.Principal{UserID: user.ID, Role: models.RoleCommittee}, claims.Principal())
}

func TestAuthLoginRejectsWrongRoleOrPassword(t *testing.T) {
	repo := newMockAuthRepo()
	seedUser(t, repo, "u@college.edu", "secret1", models.RoleUser)
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "u@college.edu", Password: "secret1", Role: "Admin"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "u@college.edu", Password: "wrong", Role: "User"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@college.edu", Password: "secret1", Role: "User"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(newMockAuthRepo())
	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
