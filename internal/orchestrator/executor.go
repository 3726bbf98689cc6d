// Package orchestrator implements the resilient execution core shared by all
// scanner integrations: per-probe orchestration of cache, circuit breaker,
// rate limiter and retry, plus bounded-concurrency batch execution.
package orchestrator

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/modelaudit/modelaudit/internal/cache"
	"github.com/modelaudit/modelaudit/pkg/errors"
	"github.com/modelaudit/modelaudit/pkg/logging"
	"github.com/modelaudit/modelaudit/pkg/metrics"
	"github.com/modelaudit/modelaudit/pkg/probe"
	"github.com/modelaudit/modelaudit/pkg/resilience"
	"github.com/modelaudit/modelaudit/pkg/tracing"
)

// InvokeFunc performs one raw probe invocation against the scanner backend.
// Adapters supply it; the executor wraps it with the full resilience stack.
type InvokeFunc func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error)

// ExecutorConfig wires an executor from explicitly constructed components so
// tests and integrations can scope shared state as they see fit.
type ExecutorConfig struct {
	Integration string
	Invoke      InvokeFunc
	Timeout     time.Duration
	CacheTTL    time.Duration

	Cache    *cache.ResultCache // nil disables caching
	Breakers *resilience.BreakerSet
	Limiter  *resilience.SlidingWindowLimiter
	Retrier  *resilience.Retrier
	Recorder *Recorder
	Metrics  *metrics.Metrics
	Tracer   *tracing.TracingService
}

// Executor runs single probe invocations through the resilience pipeline:
// cache lookup, circuit check, rate-limit check, retried invocation, cache
// store and metrics update, strictly in that order.
type Executor struct {
	integration string
	invoke      InvokeFunc
	timeout     time.Duration
	cacheTTL    time.Duration

	cache    *cache.ResultCache
	breakers *resilience.BreakerSet
	limiter  *resilience.SlidingWindowLimiter
	retrier  *resilience.Retrier
	recorder *Recorder
	prom     *metrics.Metrics
	tracer   *tracing.TracingService
	logger   *logging.Logger
}

// NewExecutor creates a probe executor
func NewExecutor(config ExecutorConfig) *Executor {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	if config.Retrier == nil {
		config.Retrier = resilience.NewRetrier(resilience.DefaultRetryConfig())
	}
	if config.Breakers == nil {
		config.Breakers = resilience.NewBreakerSet(resilience.DefaultCircuitBreakerConfig(config.Integration))
	}
	if config.Limiter == nil {
		config.Limiter = resilience.NewSlidingWindowLimiter(resilience.DefaultRateLimiterConfig(60))
	}
	if config.Recorder == nil {
		config.Recorder = NewRecorder(config.Integration, config.Metrics)
	}

	return &Executor{
		integration: config.Integration,
		invoke:      config.Invoke,
		timeout:     config.Timeout,
		cacheTTL:    config.CacheTTL,
		cache:       config.Cache,
		breakers:    config.Breakers,
		limiter:     config.Limiter,
		retrier:     config.Retrier,
		recorder:    config.Recorder,
		prom:        config.Metrics,
		tracer:      config.Tracer,
		logger:      logging.GetLogger(),
	}
}

// Integration returns the integration this executor serves
func (e *Executor) Integration() string {
	return e.integration
}

// Recorder exposes the metrics recorder backing this executor
func (e *Executor) Recorder() *Recorder {
	return e.recorder
}

// Run executes one probe invocation and always returns a result; execution
// failures are normalized into the result status, never raised.
func (e *Executor) Run(ctx context.Context, inv probe.Invocation) *probe.ProbeResult {
	start := time.Now()

	if e.tracer != nil {
		spanCtx, span := e.tracer.StartProbeSpan(ctx, e.integration, inv.ProbeID, inv.Target.Name)
		defer span.End()
		ctx = spanCtx
	}

	// Gate 1: cache. A hit bypasses circuit, rate-limit and retry entirely
	// and must not touch the breaker.
	key := probe.Fingerprint(inv.ProbeID, inv.Target)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			cached.CacheHit = true
			cached.ExecutionTime = time.Since(start)
			e.observeCache(true)
			e.recorder.Record(cached)
			e.logger.Debug("Probe result served from cache",
				"integration", e.integration,
				"probe_id", inv.ProbeID,
				"model", inv.Target.Name,
			)
			return cached
		}
		e.observeCache(false)
	}

	// Gate 2: circuit breaker.
	modelKey := probe.ModelKey(inv.Target)
	breaker := e.breakers.Get(modelKey)
	if !breaker.Allow() {
		result := e.rejectedResult(inv, probe.StatusCircuitOpen, errors.NewCircuitOpenError(breaker.Name()), start)
		e.recorder.Record(result)
		return result
	}

	// Gate 3: rate limiter. The breaker trial slot reserved above is released
	// without counting; a rate-limit rejection is not an invocation failure.
	if !e.limiter.TryAdmit(modelKey) {
		breaker.Cancel()
		if e.prom != nil && e.prom.Enabled() {
			e.prom.RateLimitRejectionsTotal.WithLabelValues(e.integration, modelKey).Inc()
		}
		result := e.rejectedResult(inv, probe.StatusRateLimited, errors.NewRateLimitError(modelKey), start)
		e.recorder.Record(result)
		return result
	}

	// Gate 4: the invocation itself, bounded by the per-invocation deadline
	// and wrapped with retry.
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if e.prom != nil && e.prom.Enabled() {
		e.prom.ProbesInFlight.WithLabelValues(e.integration).Inc()
		defer e.prom.ProbesInFlight.WithLabelValues(e.integration).Dec()
	}

	var attempts int
	var result *probe.ProbeResult

	err := e.retrier.Execute(runCtx, func(attemptCtx context.Context) error {
		attempts++
		if attempts > 1 && e.prom != nil && e.prom.Enabled() {
			e.prom.ProbeRetriesTotal.WithLabelValues(e.integration, inv.ProbeID).Inc()
		}

		res, err := e.invoke(attemptCtx, inv)
		if err != nil {
			if stderrors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
				return errors.NewTimeoutError("probe " + inv.ProbeID).WithCause(err)
			}
			return err
		}
		if res == nil {
			return errors.NewExternalError(e.integration, "scanner returned an empty result")
		}

		result = res
		return nil
	})

	duration := time.Since(start)

	if err != nil {
		// Only a genuine attempted-and-failed invocation counts toward the
		// failure threshold; a caller-side cancel does not, but it must still
		// release a half-open trial slot reserved by Allow.
		if attempts > 0 && !stderrors.Is(err, context.Canceled) {
			breaker.RecordFailure()
		} else {
			breaker.Cancel()
		}

		status := probe.StatusError
		if errors.IsType(err, errors.ErrorTypeTimeout) || stderrors.Is(err, context.DeadlineExceeded) {
			status = probe.StatusTimeout
		}

		failed := &probe.ProbeResult{
			ProbeID:       inv.ProbeID,
			Status:        status,
			Passed:        false,
			Error:         err.Error(),
			ExecutionTime: duration,
			Attempts:      attempts,
			Source:        e.integration,
			Timestamp:     time.Now(),
		}
		e.recorder.Record(failed)

		e.logger.Warn("Probe invocation failed",
			"integration", e.integration,
			"probe_id", inv.ProbeID,
			"model", inv.Target.Name,
			"status", string(status),
			"attempts", attempts,
			"error", err.Error(),
		)
		return failed
	}

	breaker.RecordSuccess()

	result.ProbeID = inv.ProbeID
	result.Status = probe.StatusCompleted
	result.ExecutionTime = duration
	result.Attempts = attempts
	result.Source = e.integration
	result.CacheHit = false
	result.Timestamp = time.Now()

	if e.cache != nil {
		e.cache.Put(key, result, e.cacheTTL)
	}
	e.recorder.Record(result)

	e.logger.LogProbeEvent(ctx, "probe_completed", e.integration, inv.ProbeID, inv.Target.Name, map[string]interface{}{
		"passed":      result.Passed,
		"risk_level":  string(result.RiskLevel),
		"attempts":    attempts,
		"duration_ms": duration.Milliseconds(),
	})

	return result
}

// rejectedResult synthesizes a result for an invocation that was never
// attempted
func (e *Executor) rejectedResult(inv probe.Invocation, status probe.Status, cause error, start time.Time) *probe.ProbeResult {
	return &probe.ProbeResult{
		ProbeID:       inv.ProbeID,
		Status:        status,
		Passed:        false,
		Error:         cause.Error(),
		ExecutionTime: time.Since(start),
		Attempts:      0,
		Source:        e.integration,
		Timestamp:     time.Now(),
	}
}

func (e *Executor) observeCache(hit bool) {
	if e.prom == nil || !e.prom.Enabled() {
		return
	}
	if hit {
		e.prom.CacheHitsTotal.WithLabelValues(e.integration).Inc()
	} else {
		e.prom.CacheMissesTotal.WithLabelValues(e.integration).Inc()
	}
}
