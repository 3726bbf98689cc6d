package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelaudit/modelaudit/pkg/errors"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

func batchInvocations(n int) []probe.Invocation {
	invocations := make([]probe.Invocation, n)
	for i := range invocations {
		invocations[i] = probe.Invocation{
			ID:      fmt.Sprintf("inv-%d", i),
			ProbeID: fmt.Sprintf("probe-%d", i),
			Target:  testTarget(),
		}
	}
	return invocations
}

func TestBatchRunner_ResultsMatchInputOrder(t *testing.T) {
	exec := NewExecutor(testExecutorConfig(func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error) {
		return okResult(), nil
	}))

	runner := NewBatchRunner(exec, 3, nil)
	results := runner.RunMany(context.Background(), batchInvocations(10))

	require.Len(t, results, 10)
	for i, result := range results {
		require.NotNil(t, result, "result %d missing", i)
		assert.Equal(t, fmt.Sprintf("probe-%d", i), result.ProbeID)
		assert.Equal(t, probe.StatusCompleted, result.Status)
	}
}

func TestBatchRunner_HonorsConcurrencyCap(t *testing.T) {
	var current, peak int32

	exec := NewExecutor(testExecutorConfig(func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error) {
		n := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return okResult(), nil
	}))

	runner := NewBatchRunner(exec, 3, nil)
	results := runner.RunMany(context.Background(), batchInvocations(10))

	require.Len(t, results, 10)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestBatchRunner_PartialFailuresDoNotAbortBatch(t *testing.T) {
	exec := NewExecutor(testExecutorConfig(func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error) {
		if inv.ProbeID == "probe-3" || inv.ProbeID == "probe-7" {
			return nil, errors.NewExternalError("garak", "backend error")
		}
		return okResult(), nil
	}))

	runner := NewBatchRunner(exec, 4, nil)
	results := runner.RunMany(context.Background(), batchInvocations(10))

	require.Len(t, results, 10)
	for i, result := range results {
		if i == 3 || i == 7 {
			assert.Equal(t, probe.StatusError, result.Status)
		} else {
			assert.Equal(t, probe.StatusCompleted, result.Status)
		}
	}
}

func TestBatchRunner_ContextExpiryWhileQueued(t *testing.T) {
	exec := NewExecutor(testExecutorConfig(func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error) {
		time.Sleep(50 * time.Millisecond)
		return okResult(), nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	runner := NewBatchRunner(exec, 1, nil)
	results := runner.RunMany(ctx, batchInvocations(5))

	require.Len(t, results, 5)

	// Every invocation produced a result even though most never got a slot.
	// A probe that never ran is an error, not a timeout; timeout is reserved
	// for attempts that exceeded their own deadline.
	queued := 0
	for _, result := range results {
		require.NotNil(t, result)
		require.NotEqual(t, probe.StatusTimeout, result.Status)
		if result.Status == probe.StatusError {
			assert.Equal(t, 0, result.Attempts)
			queued++
		}
	}
	assert.Greater(t, queued, 0)
}

func TestBatchRunner_DefaultsConcurrency(t *testing.T) {
	exec := NewExecutor(testExecutorConfig(func(ctx context.Context, inv probe.Invocation) (*probe.ProbeResult, error) {
		return okResult(), nil
	}))

	runner := NewBatchRunner(exec, 0, nil)
	assert.Equal(t, 3, runner.maxConcurrent)
}
