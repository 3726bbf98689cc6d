package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlidingWindowLimiter_AdmitsUpToLimit(t *testing.T) {
	limiter := NewSlidingWindowLimiter(RateLimiterConfig{
		Limit:  3,
		Window: time.Minute,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.TryAdmit("openai:gpt-4"), "admission %d should pass", i+1)
	}

	// The N+1th admission in the window is rejected
	assert.False(t, limiter.TryAdmit("openai:gpt-4"))
}

func TestSlidingWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindowLimiter(RateLimiterConfig{
		Limit:  1,
		Window: time.Minute,
	})

	assert.True(t, limiter.TryAdmit("openai:gpt-4"))
	assert.False(t, limiter.TryAdmit("openai:gpt-4"))

	// A different model key has its own window
	assert.True(t, limiter.TryAdmit("anthropic:claude"))
}

func TestSlidingWindowLimiter_ReadmitsAfterWindowSlides(t *testing.T) {
	limiter := NewSlidingWindowLimiter(RateLimiterConfig{
		Limit:  2,
		Window: 50 * time.Millisecond,
	})

	assert.True(t, limiter.TryAdmit("openai:gpt-4"))
	assert.True(t, limiter.TryAdmit("openai:gpt-4"))
	assert.False(t, limiter.TryAdmit("openai:gpt-4"))

	// Once the earlier admissions age out the key is admitted again
	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.TryAdmit("openai:gpt-4"))
}

func TestSlidingWindowLimiter_RejectionIsNotRecorded(t *testing.T) {
	limiter := NewSlidingWindowLimiter(RateLimiterConfig{
		Limit:  1,
		Window: 50 * time.Millisecond,
	})

	assert.True(t, limiter.TryAdmit("openai:gpt-4"))

	// Hammering rejected admissions must not extend the window
	for i := 0; i < 10; i++ {
		assert.False(t, limiter.TryAdmit("openai:gpt-4"))
	}

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.TryAdmit("openai:gpt-4"))
}

func TestSlidingWindowLimiter_Snapshot(t *testing.T) {
	limiter := NewSlidingWindowLimiter(RateLimiterConfig{
		Limit:  5,
		Window: time.Minute,
	})

	limiter.TryAdmit("openai:gpt-4")
	limiter.TryAdmit("openai:gpt-4")
	limiter.TryAdmit("anthropic:claude")

	snapshot := limiter.Snapshot()
	assert.Equal(t, 2, snapshot["openai:gpt-4"])
	assert.Equal(t, 1, snapshot["anthropic:claude"])
}

func TestSlidingWindowLimiter_Defaults(t *testing.T) {
	limiter := NewSlidingWindowLimiter(RateLimiterConfig{})

	assert.Equal(t, 60, limiter.Limit())
}
