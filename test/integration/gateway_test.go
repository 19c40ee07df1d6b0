//go:build integration

// Package integration runs end-to-end tests of the gateway API against PostgreSQL
// and MySQL. Start the databases with docker compose and run
// go test -tags integration ./test/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/resourcegateway/internal/app"
	"github.com/allisson/resourcegateway/internal/config"
	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
	"github.com/allisson/resourcegateway/internal/testutil"
)

type integrationTestContext struct {
	container  *app.Container
	server     *httptest.Server
	adminToken string
	startedAt  time.Time
}

type requestOption func(*http.Request)

func withBasicAuth(login, password string) requestOption {
	return func(r *http.Request) { r.SetBasicAuth(login, password) }
}

func withToken(token string) requestOption {
	return func(r *http.Request) { r.Header.Set(identityHTTP.HeaderAuthToken, token) }
}

func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body any,
	opts ...requestOption,
) (*http.Response, map[string]any) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	var decoded map[string]any
	if len(respBody) > 0 {
		require.NoError(t, json.Unmarshal(respBody, &decoded), "invalid JSON: %s", respBody)
	}
	return resp, decoded
}

func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := testutil.SetupDB(t, dbDriver)
	t.Cleanup(func() { testutil.TeardownDB(t, db) })

	cfg := &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   testutil.TestDSN(dbDriver),
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		AuthTokenTTL:         time.Hour,
		AuthUITokenTTL:       time.Hour,
		AuthWSTokenTTL:       time.Minute,
		ServerGUID:           "00000000-0000-0000-0000-000000000001",
		AuditLogEnabled:      true,
		AuditSigningSecret:   "integration-signing-secret",
		TaskWorkerInterval:   time.Second,
		TaskBatchSize:        10,
		TaskMaxRetries:       1,
		TaskQueueBackend:     config.TaskQueueDatabase,
		MetricsNamespace:     "gateway_integration",
	}

	container := app.NewContainer(cfg)
	t.Cleanup(func() {
		if err := container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	})

	httpSrv, err := container.HTTPServer(context.Background())
	require.NoError(t, err, "failed to get HTTP server")

	ctx := &integrationTestContext{
		container: container,
		server:    httptest.NewServer(httpSrv.GetHandler()),
		startedAt: time.Now().UTC().Add(-time.Minute),
	}
	t.Cleanup(ctx.server.Close)

	resp, body := ctx.makeRequest(t, http.MethodGet, "/api/auth", nil, withBasicAuth("admin", "smartvm"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ctx.adminToken = body["auth_token"].(string)
	require.NotEmpty(t, ctx.adminToken)

	return ctx
}

func TestIntegration(t *testing.T) {
	for _, dbDriver := range []string{"postgres", "mysql"} {
		t.Run(dbDriver, func(t *testing.T) {
			ctx := setupIntegrationTest(t, dbDriver)

			t.Run("Entrypoint", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/api", nil, withToken(ctx.adminToken))
				require.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, "admin", body["identity"].(map[string]any)["userid"])
				assert.NotEmpty(t, body["collections"])
			})

			t.Run("BadCredentials", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/api/zones", nil, withBasicAuth("admin", "wrong"))
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("ListAndShow", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/api/zones?expand=resources&sort_by=name", nil,
					withToken(ctx.adminToken))
				require.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, float64(2), body["count"])
				first := body["resources"].([]any)[0].(map[string]any)
				assert.Equal(t, "default", first["name"])

				resp, body = ctx.makeRequest(t, http.MethodGet, "/api/vms/1", nil, withToken(ctx.adminToken))
				require.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, "web-01", body["name"])
			})

			t.Run("ForbiddenForRegularUser", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/api/zones", nil, withBasicAuth("jdoe", "jdoe"))
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			})

			t.Run("DelegatedTask", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/api/vms/2", map[string]any{"action": "start"},
					withToken(ctx.adminToken))
				require.Equal(t, http.StatusOK, resp.StatusCode)
				require.Equal(t, true, body["success"])
				taskID := body["task_id"].(string)
				require.NotEmpty(t, taskID)

				worker, err := ctx.container.Worker()
				require.NoError(t, err)
				require.NoError(t, worker.ProcessQueued(context.Background()))

				resp, body = ctx.makeRequest(t, http.MethodGet, "/api/tasks/"+taskID, nil, withToken(ctx.adminToken))
				require.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, "finished", body["state"])
				assert.Equal(t, "ok", body["status"])

				resp, body = ctx.makeRequest(t, http.MethodGet, "/api/vms/2", nil, withToken(ctx.adminToken))
				require.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, "on", body["power_state"])
			})

			t.Run("AuditTrailIsSigned", func(t *testing.T) {
				auditLogUseCase, err := ctx.container.AuditLogUseCase()
				require.NoError(t, err)

				end := time.Now().UTC().Add(time.Minute)
				report, err := auditLogUseCase.VerifyBatch(context.Background(), &ctx.startedAt, &end)
				require.NoError(t, err)
				assert.Positive(t, report.TotalChecked)
				assert.Equal(t, report.TotalChecked, report.ValidCount)
				assert.Zero(t, report.InvalidCount)
			})

			t.Run("RevokeToken", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodDelete, "/api/auth", nil, withToken(ctx.adminToken))
				require.Equal(t, http.StatusNoContent, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodGet, "/api", nil, withToken(ctx.adminToken))
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	}
}
