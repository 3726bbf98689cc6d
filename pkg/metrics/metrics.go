package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the probe execution core
type Metrics struct {
	// Execution metrics
	ProbeExecutionsTotal   *prometheus.CounterVec
	ProbeExecutionDuration *prometheus.HistogramVec
	ProbeRetriesTotal      *prometheus.CounterVec
	ProbesInFlight         *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Resilience metrics
	CircuitBreakerState      *prometheus.GaugeVec
	CircuitBreakerTrips      *prometheus.CounterVec
	RateLimitRejectionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "modelaudit",
		Subsystem: "",
		Enabled:   true,
	}
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Metrics{}
	}

	m := &Metrics{
		ProbeExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "probe_executions_total",
				Help:      "Total number of probe executions by terminal status",
			},
			[]string{"integration", "probe", "status"},
		),
		ProbeExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "probe_execution_duration_seconds",
				Help:      "Probe execution duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"integration", "probe"},
		),
		ProbeRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "probe_retries_total",
				Help:      "Total number of probe invocation retries",
			},
			[]string{"integration", "probe"},
		),
		ProbesInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "probes_in_flight",
				Help:      "Number of probe invocations currently executing",
			},
			[]string{"integration"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "result_cache_hits_total",
				Help:      "Total number of result cache hits",
			},
			[]string{"integration"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "result_cache_misses_total",
				Help:      "Total number of result cache misses",
			},
			[]string{"integration"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"integration", "model"},
		),
		CircuitBreakerTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_breaker_trips_total",
				Help:      "Total number of circuit breaker transitions to open",
			},
			[]string{"integration", "model"},
		),
		RateLimitRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "rate_limit_rejections_total",
				Help:      "Total number of invocations rejected by the rate limiter",
			},
			[]string{"integration", "model"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.ProbeExecutionsTotal,
		m.ProbeExecutionDuration,
		m.ProbeRetriesTotal,
		m.ProbesInFlight,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
		m.RateLimitRejectionsTotal,
	)

	return m
}

// Registry returns the Prometheus registry backing these metrics, or nil when
// metrics are disabled
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Enabled reports whether metrics collection is active
func (m *Metrics) Enabled() bool {
	return m.registry != nil
}
