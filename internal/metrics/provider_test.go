package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, provider *Provider) string {
	t.Helper()
	w := httptest.NewRecorder()
	provider.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("gateway")
	require.NoError(t, err)
	defer func() { assert.NoError(t, provider.Shutdown(context.Background())) }()

	assert.Equal(t, "gateway", provider.Namespace())
	assert.NotNil(t, provider.MeterProvider())
}

func TestProvider_HandlerExposesRuntimeAndInstruments(t *testing.T) {
	provider, err := NewProvider("gateway")
	require.NoError(t, err)
	defer func() { assert.NoError(t, provider.Shutdown(context.Background())) }()

	counter, err := provider.MeterProvider().Meter("gateway").Int64Counter("gateway_probe_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	body := scrape(t, provider)
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "gateway_probe_total")
}

func TestProvider_Shutdown(t *testing.T) {
	t.Run("flushes a live provider", func(t *testing.T) {
		provider, err := NewProvider("gateway")
		require.NoError(t, err)
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	t.Run("zero value is a no-op", func(t *testing.T) {
		assert.NoError(t, (&Provider{}).Shutdown(context.Background()))
	})
}
