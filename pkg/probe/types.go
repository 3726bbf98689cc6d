package probe

import (
	"context"
	"time"
)

// ScannerAdapter defines the interface that all scanner integrations must implement
type ScannerAdapter interface {
	// Name returns the integration identifier (e.g. "garak")
	Name() string

	// ListProbes returns the identifiers of all probes the scanner offers
	ListProbes(ctx context.Context) ([]string, error)

	// GetProbeInfo returns descriptive metadata for a single probe
	GetProbeInfo(ctx context.Context, probeID string) (*ProbeInfo, error)

	// RunProbe executes one probe against the target; it never returns an
	// error for execution failures, those are normalized into the result status
	RunProbe(ctx context.Context, probeID string, target ModelTarget) *ProbeResult

	// RunProbes executes a set of probes under the integration's concurrency
	// cap; the result order matches the probe order
	RunProbes(ctx context.Context, probeIDs []string, target ModelTarget) []*ProbeResult

	// Health reports the integration's current health
	Health() HealthReport

	// Metrics reports execution statistics
	Metrics() MetricsReport
}

// ModelTarget identifies the model under test
type ModelTarget struct {
	Name     string            `json:"name"`
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config,omitempty"`
}

// Invocation is a request to run one probe against one configured model.
// It is immutable once constructed; retries bump the attempt counter on the
// result, not the invocation identity.
type Invocation struct {
	ID      string        `json:"id"`
	ProbeID string        `json:"probe_id"`
	Target  ModelTarget   `json:"target"`
	Timeout time.Duration `json:"timeout"`
}

// Status classifies the outcome of an invocation
type Status string

const (
	// StatusCompleted - the probe ran to completion; pass/fail is in the payload
	StatusCompleted Status = "completed"
	// StatusError - attempted and failed after exhausting retries
	StatusError Status = "error"
	// StatusTimeout - attempted and exceeded its deadline after exhausting retries
	StatusTimeout Status = "timeout"
	// StatusCircuitOpen - never attempted, breaker is open
	StatusCircuitOpen Status = "circuit_open"
	// StatusRateLimited - never attempted, rate window exhausted
	StatusRateLimited Status = "rate_limited"
)

// RiskLevel grades the severity of a probe finding
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// Finding represents a single structured observation produced by a probe
type Finding struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Evidence    string    `json:"evidence,omitempty"`
	Confidence  float64   `json:"confidence"`
	References  []string  `json:"references,omitempty"`
}

// ProbeResult is the normalized outcome of one invocation
type ProbeResult struct {
	ProbeID       string        `json:"probe_id"`
	Status        Status        `json:"status"`
	Passed        bool          `json:"passed"`
	RiskLevel     RiskLevel     `json:"risk_level"`
	Findings      []Finding     `json:"findings"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	Attempts      int           `json:"attempts"`
	Source        string        `json:"source"`
	CacheHit      bool          `json:"cache_hit"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Clone returns a copy of the result so cached values stay immutable
func (r *ProbeResult) Clone() *ProbeResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Findings != nil {
		clone.Findings = make([]Finding, len(r.Findings))
		copy(clone.Findings, r.Findings)
	}
	return &clone
}

// ProbeInfo contains descriptive metadata about a probe
type ProbeInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Tags        []string  `json:"tags,omitempty"`
}

// HealthReport is the read-only health surface exposed by an integration
type HealthReport struct {
	Status            string             `json:"status"`
	RecentSuccessRate float64            `json:"recent_success_rate"`
	CircuitStates     map[string]string  `json:"circuit_breaker_state"`
	CacheStats        CacheStats         `json:"cache_stats"`
	RateLimiter       map[string]int     `json:"rate_limiter_state"`
	CheckedAt         time.Time          `json:"checked_at"`
}

// CacheStats summarizes result cache effectiveness
type CacheStats struct {
	Entries   int     `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// MetricsReport is the read-only metrics surface exposed by an integration
type MetricsReport struct {
	Probes           map[string]ProbeStats `json:"probes"`
	ErrorCounts      map[string]int64      `json:"error_counts"`
	RecentExecutions []ExecutionRecord     `json:"recent_executions"`
	CacheHitRate     float64               `json:"cache_hit_rate"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// ProbeStats aggregates execution statistics for one probe
type ProbeStats struct {
	Executions  int64         `json:"executions"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
	MinDuration time.Duration `json:"min_duration"`
	MaxDuration time.Duration `json:"max_duration"`
}

// ExecutionRecord is one entry in the rolling execution history
type ExecutionRecord struct {
	ProbeID   string        `json:"probe_id"`
	Status    Status        `json:"status"`
	Duration  time.Duration `json:"duration"`
	CacheHit  bool          `json:"cache_hit"`
	Timestamp time.Time     `json:"timestamp"`
}
