package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/errors"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

func testIntegrationConfig(baseURL string) config.IntegrationConfig {
	cfg := config.DefaultIntegrationConfig(baseURL)
	cfg.Timeout = 2 * time.Second
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func testTarget() probe.ModelTarget {
	return probe.ModelTarget{Name: "gpt-4", Provider: "openai"}
}

func probesHandler(t *testing.T, result rawProbeResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/probes":
			json.NewEncoder(w).Encode(probeListResponse{Probes: []probe.ProbeInfo{
				{ID: "promptinject.basic", Name: "Prompt injection"},
				{ID: "jailbreak.dan", Name: "DAN jailbreak"},
			}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/probes/promptinject.basic":
			json.NewEncoder(w).Encode(probe.ProbeInfo{ID: "promptinject.basic", Name: "Prompt injection", Category: "injection"})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/probes/promptinject.basic/run":
			json.NewEncoder(w).Encode(result)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestIntegration_RunProbeEndToEnd(t *testing.T) {
	server := httptest.NewServer(probesHandler(t, rawProbeResult{
		Passed:   false,
		Severity: "high",
		Score:    0.8,
		Findings: []rawFinding{
			{ID: "f-1", Title: "Injection succeeded", Severity: "high", Confidence: 0.9},
		},
	}))
	defer server.Close()

	garak := NewGarak(testIntegrationConfig(server.URL), Deps{})
	assert.Equal(t, "garak", garak.Name())

	result := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())

	assert.Equal(t, probe.StatusCompleted, result.Status)
	assert.False(t, result.Passed)
	assert.Equal(t, probe.RiskHigh, result.RiskLevel)
	assert.Equal(t, "garak", result.Source)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, probe.RiskHigh, result.Findings[0].RiskLevel)
}

func TestIntegration_ListProbesAndInfo(t *testing.T) {
	server := httptest.NewServer(probesHandler(t, rawProbeResult{Passed: true}))
	defer server.Close()

	garak := NewGarak(testIntegrationConfig(server.URL), Deps{})

	ids, err := garak.ListProbes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"promptinject.basic", "jailbreak.dan"}, ids)

	info, err := garak.GetProbeInfo(context.Background(), "promptinject.basic")
	require.NoError(t, err)
	assert.Equal(t, "injection", info.Category)

	_, err = garak.GetProbeInfo(context.Background(), "no.such.probe")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestIntegration_RepeatedRunHitsCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(rawProbeResult{Passed: true, Severity: "low"})
	}))
	defer server.Close()

	garak := NewGarak(testIntegrationConfig(server.URL), Deps{})

	first := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())
	second := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())

	assert.Equal(t, probe.StatusCompleted, first.Status)
	assert.False(t, first.CacheHit)
	assert.True(t, second.CacheHit)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIntegration_ServerErrorsAreRetriedThenReported(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testIntegrationConfig(server.URL)
	cfg.RetryAttempts = 3

	garak := NewGarak(cfg, Deps{})
	result := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())

	assert.Equal(t, probe.StatusError, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestIntegration_AuthFailureIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	garak := NewGarak(testIntegrationConfig(server.URL), Deps{})
	result := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())

	assert.Equal(t, probe.StatusError, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIntegration_BreakerOpensAgainstDeadBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testIntegrationConfig(server.URL)
	cfg.CacheEnabled = false
	cfg.RetryAttempts = 1
	cfg.CircuitBreakerThreshold = 2
	cfg.CircuitBreakerTimeout = time.Minute

	garak := NewGarak(cfg, Deps{})

	for i := 0; i < 2; i++ {
		result := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())
		require.Equal(t, probe.StatusError, result.Status)
	}

	rejected := garak.RunProbe(context.Background(), "promptinject.basic", testTarget())
	assert.Equal(t, probe.StatusCircuitOpen, rejected.Status)
	assert.Equal(t, 0, rejected.Attempts)

	health := garak.Health()
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "OPEN", health.CircuitStates["openai:gpt-4"])
}

func TestIntegration_RunProbesPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rawProbeResult{Passed: true, Severity: "low"})
	}))
	defer server.Close()

	garak := NewGarak(testIntegrationConfig(server.URL), Deps{})

	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	results := garak.RunProbes(context.Background(), ids, testTarget())

	require.Len(t, results, 5)
	for i, result := range results {
		assert.Equal(t, ids[i], result.ProbeID)
		assert.Equal(t, probe.StatusCompleted, result.Status)
	}
}

func TestIntegration_MetricsReportReflectsRuns(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rawProbeResult{Passed: true, Severity: "low"})
	}))
	defer server.Close()

	garak := NewGarak(testIntegrationConfig(server.URL), Deps{})

	garak.RunProbe(context.Background(), "promptinject.basic", testTarget())
	garak.RunProbe(context.Background(), "promptinject.basic", testTarget())

	report := garak.Metrics()
	require.Contains(t, report.Probes, "promptinject.basic")
	assert.Equal(t, int64(2), report.Probes["promptinject.basic"].Executions)
	assert.Equal(t, 0.5, report.CacheHitRate)
}
