// Package integrations exposes the four scanner adapters (Garak, Counterfit,
// ART, SecureTopTen) behind the uniform ScannerAdapter interface, each one
// wrapped in its own resilient execution core.
package integrations

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modelaudit/modelaudit/internal/cache"
	"github.com/modelaudit/modelaudit/internal/orchestrator"
	"github.com/modelaudit/modelaudit/pkg/config"
	"github.com/modelaudit/modelaudit/pkg/logging"
	"github.com/modelaudit/modelaudit/pkg/metrics"
	"github.com/modelaudit/modelaudit/pkg/probe"
	"github.com/modelaudit/modelaudit/pkg/resilience"
	"github.com/modelaudit/modelaudit/pkg/tracing"
)

// Deps carries the shared observability handles injected into every
// integration
type Deps struct {
	Metrics    *metrics.Metrics
	Tracer     *tracing.TracingService
	HTTPClient *http.Client
}

// normalizeFunc converts a scanner-specific raw result into the normalized
// ProbeResult payload. Terminal status, attempts and timing are filled in by
// the executor.
type normalizeFunc func(raw *rawProbeResult) *probe.ProbeResult

// Integration is one scanner adapter plus its resilient execution core. All
// four integrations share this implementation and differ only in name,
// endpoint and result normalization.
type Integration struct {
	name     string
	cfg      config.IntegrationConfig
	client   *scannerClient
	executor *orchestrator.Executor
	batch    *orchestrator.BatchRunner
}

var _ probe.ScannerAdapter = (*Integration)(nil)

// newIntegration wires the resilience pipeline around a scanner client
func newIntegration(name string, cfg config.IntegrationConfig, deps Deps, normalize normalizeFunc) *Integration {
	client := newScannerClient(name, cfg.BaseURL, deps.HTTPClient)

	var resultCache *cache.ResultCache
	if cfg.CacheEnabled {
		resultCache = cache.NewResultCache(cache.Config{
			MaxEntries: cfg.CacheMaxEntries,
			DefaultTTL: cfg.CacheTTL,
		})
	}

	breakers := resilience.NewBreakerSet(resilience.CircuitBreakerConfig{
		Name:              name,
		FailureThreshold:  cfg.CircuitBreakerThreshold,
		RecoveryTimeout:   cfg.CircuitBreakerTimeout,
		HalfOpenSuccesses: 2,
		OnStateChange:     breakerStateHook(name, deps.Metrics),
	})

	limiter := resilience.NewSlidingWindowLimiter(resilience.DefaultRateLimiterConfig(cfg.RateLimitPerMinute))

	retrier := resilience.NewRetrier(resilience.RetryConfig{
		MaxAttempts:  cfg.RetryAttempts,
		InitialDelay: cfg.RetryDelay,
		Jitter:       true,
	})

	invoke := func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error) {
		raw, err := client.InvokeProbe(ctx, inv)
		if err != nil {
			return nil, err
		}
		return normalize(raw), nil
	}

	executor := orchestrator.NewExecutor(orchestrator.ExecutorConfig{
		Integration: name,
		Invoke:      invoke,
		Timeout:     cfg.Timeout,
		CacheTTL:    cfg.CacheTTL,
		Cache:       resultCache,
		Breakers:    breakers,
		Limiter:     limiter,
		Retrier:     retrier,
		Metrics:     deps.Metrics,
		Tracer:      deps.Tracer,
	})

	logging.GetLogger().LogIntegrationEvent(context.Background(), "integration_initialized", name, map[string]interface{}{
		"base_url":       cfg.BaseURL,
		"cache_enabled":  cfg.CacheEnabled,
		"max_concurrent": cfg.MaxConcurrent,
	})

	return &Integration{
		name:     name,
		cfg:      cfg,
		client:   client,
		executor: executor,
		batch:    orchestrator.NewBatchRunner(executor, cfg.MaxConcurrent, deps.Tracer),
	}
}

// breakerStateHook feeds circuit breaker transitions into Prometheus
func breakerStateHook(integration string, prom *metrics.Metrics) func(string, resilience.CircuitState, resilience.CircuitState) {
	if prom == nil || !prom.Enabled() {
		return nil
	}

	return func(name string, from, to resilience.CircuitState) {
		model := name
		if idx := strings.Index(name, "/"); idx >= 0 {
			model = name[idx+1:]
		}

		prom.CircuitBreakerState.WithLabelValues(integration, model).Set(float64(to))
		if to == resilience.StateOpen {
			prom.CircuitBreakerTrips.WithLabelValues(integration, model).Inc()
		}
	}
}

// Name returns the integration identifier
func (i *Integration) Name() string {
	return i.name
}

// ListProbes returns the identifiers of all probes the scanner offers
func (i *Integration) ListProbes(ctx context.Context) ([]string, error) {
	return i.client.ListProbes(ctx)
}

// GetProbeInfo returns descriptive metadata for a single probe
func (i *Integration) GetProbeInfo(ctx context.Context, probeID string) (*probe.ProbeInfo, error) {
	return i.client.GetProbeInfo(ctx, probeID)
}

// RunProbe executes one probe against the target through the resilience
// pipeline
func (i *Integration) RunProbe(ctx context.Context, probeID string, target probe.ModelTarget) *probe.ProbeResult {
	return i.executor.Run(ctx, probe.Invocation{
		ID:      uuid.New().String(),
		ProbeID: probeID,
		Target:  target,
		Timeout: i.cfg.Timeout,
	})
}

// RunProbes executes a set of probes under the integration's concurrency cap
func (i *Integration) RunProbes(ctx context.Context, probeIDs []string, target probe.ModelTarget) []*probe.ProbeResult {
	invocations := make([]probe.Invocation, len(probeIDs))
	for idx, id := range probeIDs {
		invocations[idx] = probe.Invocation{
			ID:      uuid.New().String(),
			ProbeID: id,
			Target:  target,
			Timeout: i.cfg.Timeout,
		}
	}

	return i.batch.RunMany(ctx, invocations)
}

// Health reports the integration's current health
func (i *Integration) Health() probe.HealthReport {
	return i.executor.GetHealth()
}

// Metrics reports execution statistics
func (i *Integration) Metrics() probe.MetricsReport {
	return i.executor.GetMetrics()
}
