package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"timetodo_backend/internal/app"
	"timetodo_backend/internal/auth"
	"timetodo_backend/internal/cache"
	"timetodo_backend/internal/config"
	"timetodo_backend/internal/messaging"
	"timetodo_backend/internal/services"
	"timetodo_backend/internal/storage"
)

const testSecret = "integration_test_secret_key_0123456789"

type TestServer struct {
	Server   *httptest.Server
	DB       *gorm.DB
	Services *services.ServiceContainer
	Tokens   *auth.TokenManager
}

// NewTestServer поднимает полный роутер поверх тестовой БД.
// Кэш и брокер заменены на Noop, файлы пишутся во временную директорию.
func NewTestServer(t *testing.T, db *gorm.DB) *TestServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.JWT.Secret = testSecret
	cfg.JWT.Issuer = "timetodo-test"
	cfg.JWT.TTL = 60
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = t.TempDir()
	cfg.Storage.BaseURL = "/uploads"
	cfg.RateLimit.EventsRPS = 1000
	cfg.RateLimit.EventsBurst = 1000

	store, err := storage.NewStorage(context.Background(), app.StorageConfig(cfg))
	require.NoError(t, err)

	container := services.NewServiceContainer(services.Dependencies{
		Storage:         store,
		LimitsCache:     cache.NewNoopCache(),
		LimitsTTL:       time.Minute,
		Publisher:       messaging.NoopPublisher{},
		EventRoutingKey: "events.tracked",
	})

	router := app.SetupRouter(cfg, db, container, store)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:   server,
		DB:       db,
		Services: container,
		Tokens:   auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Hour),
	}
}

// Token выпускает bearer-токен для пользователя
func (ts *TestServer) Token(t *testing.T, userID, role string, superuser bool) string {
	t.Helper()
	token, err := ts.Tokens.Issue(userID, role, superuser)
	require.NoError(t, err)
	return token
}

func (ts *TestServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, string) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err, "ошибка кодирования JSON для запроса")
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return ts.Do(t, req)
}

// Do отправляет готовый запрос (multipart и т.п.)
func (ts *TestServer) Do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()

	res, err := ts.Server.Client().Do(req)
	require.NoError(t, err, "ошибка отправки HTTP-запроса")
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(resBody)
}
