package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/modelaudit/modelaudit/pkg/logging"
	"github.com/modelaudit/modelaudit/pkg/probe"
	"github.com/modelaudit/modelaudit/pkg/tracing"
)

// BatchRunner fans a set of invocations out to the executor under a global
// concurrency cap. One invocation's failure never aborts the batch; the batch
// completes when every invocation has produced a result.
type BatchRunner struct {
	executor      *Executor
	maxConcurrent int
	tracer        *tracing.TracingService
	logger        *logging.Logger
}

// NewBatchRunner creates a batch runner over the given executor
func NewBatchRunner(executor *Executor, maxConcurrent int, tracer *tracing.TracingService) *BatchRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	return &BatchRunner{
		executor:      executor,
		maxConcurrent: maxConcurrent,
		tracer:        tracer,
		logger:        logging.GetLogger(),
	}
}

// RunMany executes the invocations concurrently, bounded by the configured
// cap. The returned slice matches the input order regardless of completion
// order, with exactly one result per invocation.
func (b *BatchRunner) RunMany(ctx context.Context, invocations []probe.Invocation) []*probe.ProbeResult {
	if b.tracer != nil {
		batchCtx, span := b.tracer.StartBatchSpan(ctx, b.executor.Integration(), len(invocations), b.maxConcurrent)
		defer span.End()
		ctx = batchCtx
	}

	start := time.Now()
	results := make([]*probe.ProbeResult, len(invocations))
	sem := make(chan struct{}, b.maxConcurrent)

	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv probe.Invocation) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				// Never attempted; the context expired while waiting for a
				// batch slot. Timeout status is reserved for invocations that
				// actually ran past their deadline.
				results[i] = &probe.ProbeResult{
					ProbeID:       inv.ProbeID,
					Status:        probe.StatusError,
					Error:         ctx.Err().Error(),
					Source:        b.executor.Integration(),
					Timestamp:     time.Now(),
					ExecutionTime: 0,
				}
				return
			}

			results[i] = b.executor.Run(ctx, inv)
		}(i, inv)
	}

	wg.Wait()

	b.logger.Info("Batch run finished",
		"integration", b.executor.Integration(),
		"invocations", len(invocations),
		"max_concurrent", b.maxConcurrent,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return results
}
