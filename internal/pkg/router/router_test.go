package router

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/controllers"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/jobqueue"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/notifications"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/security"
)

const (
	testAPIKey = "admin-key-123"
	testSecret = "hook-secret"
)

func testHandlers(apiKey, secret string) Handlers {
	repos := repository.NewMemoryRepositories()
	lic := licensing.NewService(repos.License, repos.Transaction, &licensing.Config{Location: time.UTC})
	rem := notifications.NewService(repos.NotificationJob, repos.NotificationLog, notifications.Config{DefaultChannel: models.ChannelLog})
	manager := jobqueue.NewManager(nil, lic, rem, nil, jobqueue.ManagerConfig{})

	return Handlers{
		Licenses:        controllers.NewLicenseController(lic, rem, manager, 3),
		Notifications:   controllers.NewNotificationController(rem, manager),
		Transactions:    controllers.NewTransactionController(repos.Transaction, lic),
		Admin:           controllers.NewAdminController(manager, nil),
		APIKey:          security.NewKeyVerifier(apiKey),
		WebhookSecret:   secret,
		MetricsUser:     "ops",
		MetricsPassword: "s3cret",
	}
}

func newTestApp(h Handlers) *fiber.App {
	app := fiber.New()
	InstallRouter(app, h)
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw)
}

func TestHealth(t *testing.T) {
	h := testHandlers(testAPIKey, "")
	status, body := send(t, newTestApp(h), fiber.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	h.Health = func() error { return errors.New("database: ping timeout") }
	status, body = send(t, newTestApp(h), fiber.MethodGet, "/health", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, body, "ping timeout")
}

func TestAPIKeyProtectsV1(t *testing.T) {
	app := newTestApp(testHandlers(testAPIKey, ""))

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
	}{
		{"no key", "/api/v1/licenses", nil, fiber.StatusUnauthorized},
		{"wrong key", "/api/v1/licenses", map[string]string{"X-API-Key": "nope"}, fiber.StatusUnauthorized},
		{"header key", "/api/v1/licenses", map[string]string{"X-API-Key": testAPIKey}, fiber.StatusOK},
		{"bearer key", "/api/v1/notification-jobs", map[string]string{"Authorization": "Bearer " + testAPIKey}, fiber.StatusOK},
		{"transactions list", "/api/v1/transactions", map[string]string{"X-API-Key": testAPIKey}, fiber.StatusOK},
		{"admin without key", "/api/v1/admin/queue", nil, fiber.StatusUnauthorized},
		{"admin with key", "/api/v1/admin/queue", map[string]string{"X-API-Key": testAPIKey}, fiber.StatusOK},
		{"api root is public", "/api", nil, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := send(t, app, fiber.MethodGet, tt.path, "", tt.headers)
			assert.Equal(t, tt.status, status, body)
		})
	}
}

func TestAPIKeyUnset(t *testing.T) {
	app := newTestApp(testHandlers("", ""))
	status, body := send(t, app, fiber.MethodGet, "/api/v1/licenses", "", map[string]string{"X-API-Key": "anything"})
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Contains(t, body, "unavailable")
}

func TestTransactionIngestAuth(t *testing.T) {
	app := newTestApp(testHandlers(testAPIKey, testSecret))
	signed := `{"transactionId":"yape-1","amount":25}`

	status, body := send(t, app, fiber.MethodPost, "/api/v1/transactions", signed, map[string]string{
		security.SignatureHeader: security.SignPayload([]byte(signed), testSecret),
	})
	assert.Equal(t, fiber.StatusCreated, status, body)

	status, body = send(t, app, fiber.MethodPost, "/api/v1/transactions", `{"transactionId":"yape-2","amount":25}`, map[string]string{
		security.SignatureHeader: security.SignPayload([]byte(signed), testSecret),
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Contains(t, body, "invalid_signature")

	status, body = send(t, app, fiber.MethodPost, "/api/v1/transactions", `{"transactionId":"yape-3","amount":25}`, map[string]string{
		"X-API-Key": testAPIKey,
	})
	assert.Equal(t, fiber.StatusCreated, status, body)

	status, _ = send(t, app, fiber.MethodPost, "/api/v1/transactions", `{"transactionId":"yape-4","amount":25}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = send(t, app, fiber.MethodGet, "/api/v1/transactions/yape-1", "", map[string]string{
		security.SignatureHeader: security.SignPayload(nil, testSecret),
	})
	assert.Equal(t, fiber.StatusUnauthorized, status, "reads need the API key")
}

func TestMetricsBasicAuth(t *testing.T) {
	app := newTestApp(testHandlers(testAPIKey, ""))

	status, _ := send(t, app, fiber.MethodGet, "/metrics/prometheus", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics/prometheus", nil)
	req.SetBasicAuth("ops", "s3cret")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestRateLimit(t *testing.T) {
	h := testHandlers(testAPIKey, "")
	h.RateLimit = 2
	app := newTestApp(h)

	for i := 0; i < 2; i++ {
		status, _ := send(t, app, fiber.MethodGet, "/api", "", nil)
		require.Equal(t, fiber.StatusOK, status)
	}
	status, body := send(t, app, fiber.MethodGet, "/api", "", nil)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, body, "rate_limited")
}
