package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"odinbook/internal/cache"
	"odinbook/internal/config"
	"odinbook/internal/models"
	"odinbook/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a testify mock of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) DeleteAll(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                  "test",
		AuthMode:             config.AuthModeToken,
		JWTSecret:            "test-secret",
		TokenTTL:             time.Hour,
		SessionTTL:           time.Hour,
		SessionCookieName:    "odinbook_session",
		ImageMaxUploadSizeMB: 1,
		RateLimitPerMinute:   60,
	}
}

// newTestServer builds a fully wired server over a private sqlite database.
// rdb may be nil.
func newTestServer(t *testing.T, cfg *config.Config, rdb *redis.Client) *Server {
	t.Helper()
	cache.SetClient(nil)
	s, err := NewServerWithDeps(cfg, testutil.NewSQLiteDB(t), rdb)
	require.NoError(t, err)
	t.Cleanup(s.shutdownFn)
	return s
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type userEnvelope struct {
	User models.User `json:"user"`
}

type loginEnvelope struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    models.User `json:"user"`
}

// signupAndLogin registers username and returns the user and its token.
func signupAndLogin(t *testing.T, app *fiber.App, name, username string) (models.User, string) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup",
		map[string]string{"name": name, "username": username, "password": "secret1"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[loginEnvelope](t, resp)
	return login.User, login.Token
}
