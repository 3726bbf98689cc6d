package orchestrator

import (
	"sync"
	"time"

	"github.com/modelaudit/modelaudit/pkg/metrics"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

// recentHistorySize bounds the rolling execution history kept per recorder
const recentHistorySize = 100

// Recorder collects per-probe execution statistics. It is purely
// observational: nothing in the execution path reads it back to make
// decisions.
type Recorder struct {
	integration string
	prom        *metrics.Metrics

	mutex       sync.Mutex
	probes      map[string]*probeAggregate
	errorCounts map[string]int64
	recent      []probe.ExecutionRecord
	recentNext  int
	recentCount int
	cacheHits   int64
	total       int64
}

type probeAggregate struct {
	executions    int64
	successes     int64
	failures      int64
	timed         int64
	totalDuration time.Duration
	minDuration   time.Duration
	maxDuration   time.Duration
}

// NewRecorder creates a metrics recorder for one integration. The Prometheus
// metrics handle may be nil.
func NewRecorder(integration string, prom *metrics.Metrics) *Recorder {
	return &Recorder{
		integration: integration,
		prom:        prom,
		probes:      make(map[string]*probeAggregate),
		errorCounts: make(map[string]int64),
		recent:      make([]probe.ExecutionRecord, recentHistorySize),
	}
}

// Record registers one terminal probe result
func (r *Recorder) Record(result *probe.ProbeResult) {
	if result == nil {
		return
	}

	r.mutex.Lock()

	agg, ok := r.probes[result.ProbeID]
	if !ok {
		agg = &probeAggregate{}
		r.probes[result.ProbeID] = agg
	}

	agg.executions++
	if result.Status == probe.StatusCompleted {
		agg.successes++
	} else {
		agg.failures++
		r.errorCounts[string(result.Status)]++
	}

	// Cache hits return in microseconds and would skew the latency profile
	if !result.CacheHit {
		agg.timed++
		agg.totalDuration += result.ExecutionTime
		if agg.minDuration == 0 || result.ExecutionTime < agg.minDuration {
			agg.minDuration = result.ExecutionTime
		}
		if result.ExecutionTime > agg.maxDuration {
			agg.maxDuration = result.ExecutionTime
		}
	} else {
		r.cacheHits++
	}

	r.total++
	r.recent[r.recentNext] = probe.ExecutionRecord{
		ProbeID:   result.ProbeID,
		Status:    result.Status,
		Duration:  result.ExecutionTime,
		CacheHit:  result.CacheHit,
		Timestamp: result.Timestamp,
	}
	r.recentNext = (r.recentNext + 1) % len(r.recent)
	if r.recentCount < len(r.recent) {
		r.recentCount++
	}

	r.mutex.Unlock()

	if r.prom != nil && r.prom.Enabled() {
		r.prom.ProbeExecutionsTotal.WithLabelValues(r.integration, result.ProbeID, string(result.Status)).Inc()
		if !result.CacheHit {
			r.prom.ProbeExecutionDuration.WithLabelValues(r.integration, result.ProbeID).Observe(result.ExecutionTime.Seconds())
		}
	}
}

// Snapshot returns a copy of all collected statistics
func (r *Recorder) Snapshot() probe.MetricsReport {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	report := probe.MetricsReport{
		Probes:      make(map[string]probe.ProbeStats, len(r.probes)),
		ErrorCounts: make(map[string]int64, len(r.errorCounts)),
		GeneratedAt: time.Now(),
	}

	for id, agg := range r.probes {
		stats := probe.ProbeStats{
			Executions:  agg.executions,
			Successes:   agg.successes,
			Failures:    agg.failures,
			MinDuration: agg.minDuration,
			MaxDuration: agg.maxDuration,
		}
		if agg.executions > 0 {
			stats.SuccessRate = float64(agg.successes) / float64(agg.executions)
		}
		// Divide by the executions that actually contributed latency, not by
		// the cache hits excluded above
		if agg.timed > 0 {
			stats.AvgDuration = agg.totalDuration / time.Duration(agg.timed)
		}
		report.Probes[id] = stats
	}

	for status, count := range r.errorCounts {
		report.ErrorCounts[status] = count
	}

	report.RecentExecutions = r.recentChronological()
	if r.total > 0 {
		report.CacheHitRate = float64(r.cacheHits) / float64(r.total)
	}

	return report
}

// RecentSuccessRate returns the completed fraction of the rolling history
func (r *Recorder) RecentSuccessRate() float64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.recentCount == 0 {
		return 1.0
	}

	successes := 0
	for _, rec := range r.recentChronological() {
		if rec.Status == probe.StatusCompleted {
			successes++
		}
	}

	return float64(successes) / float64(r.recentCount)
}

// recentChronological returns the ring buffer oldest-first. Callers must hold
// the mutex.
func (r *Recorder) recentChronological() []probe.ExecutionRecord {
	out := make([]probe.ExecutionRecord, 0, r.recentCount)

	start := 0
	if r.recentCount == len(r.recent) {
		start = r.recentNext
	}
	for i := 0; i < r.recentCount; i++ {
		out = append(out, r.recent[(start+i)%len(r.recent)])
	}

	return out
}
