package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelaudit/modelaudit/internal/integrations"
	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/logging"
	"github.com/modelaudit/modelaudit/pkg/metrics"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

func testRouter(t *testing.T, scannerURL string) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: "info"},
	}

	ic := config.DefaultIntegrationConfig(scannerURL)
	ic.Timeout = 2 * time.Second
	ic.RetryDelay = time.Millisecond

	manager := integrations.NewManager()
	require.NoError(t, manager.Register(integrations.NewGarak(ic, integrations.Deps{})))

	return NewRouter(cfg, manager, metrics.NewMetrics(metrics.DefaultConfig()), logging.GetLogger())
}

func fakeScanner(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/probes":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"probes": []probe.ProbeInfo{{ID: "promptinject.basic"}},
			})
		case "/api/v1/probes/promptinject.basic":
			json.NewEncoder(w).Encode(probe.ProbeInfo{ID: "promptinject.basic", Category: "injection"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)
	rec := doRequest(t, router, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var response APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.NotEmpty(t, response.RequestID)
}

func TestRouter_IntegrationHealth(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)

	rec := doRequest(t, router, http.MethodGet, "/health/garak")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/health/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ListIntegrations(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/integrations")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "garak")
}

func TestRouter_ListProbes(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/integrations/garak/probes")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "promptinject.basic")
}

func TestRouter_ProbeInfo(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/integrations/garak/probes/promptinject.basic")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "injection")

	rec = doRequest(t, router, http.MethodGet, "/api/v1/integrations/garak/probes/no.such.probe")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_IntegrationMetrics(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)
	rec := doRequest(t, router, http.MethodGet, "/api/v1/integrations/garak/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)

	var response APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
}

func TestRouter_PrometheusEndpoint(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)
	rec := doRequest(t, router, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_UnknownEndpoint(t *testing.T) {
	scanner := fakeScanner(t)
	defer scanner.Close()

	router := testRouter(t, scanner.URL)
	rec := doRequest(t, router, http.MethodGet, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
