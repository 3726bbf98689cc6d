// Package resilience provides the failure-handling building blocks used when
// invoking external LLM security scanners: circuit breaking, bounded retry
// with exponential backoff, and sliding-window rate limiting.
//
// This package implements the following patterns:
//
// # Circuit Breaker Pattern
//
// The circuit breaker prevents cascading failures by counting consecutive
// failed invocations against a scanner backend and temporarily rejecting
// further attempts once a threshold is reached. Recovery is evaluated lazily
// on the next admission check, so no background scheduler is needed.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("garak"))
//
//	if cb.Allow() {
//		err := runProbe(ctx)
//		if err != nil {
//			cb.RecordFailure()
//		} else {
//			cb.RecordSuccess()
//		}
//	}
//
// Only genuine attempted-and-failed invocations may be reported through
// RecordFailure. Rejections caused by the breaker itself, the rate limiter,
// or a cache hit must never be counted, otherwise the half-open trial always
// "fails" and the breaker never recovers.
//
// # Retry with Exponential Backoff
//
// The retry mechanism automatically retries transient failures with
// exponential backoff and jitter to avoid thundering herd problems.
//
//	retrier := resilience.NewRetrier(resilience.DefaultRetryConfig())
//	err := retrier.Execute(ctx, func(ctx context.Context) error {
//		return runProbe(ctx)
//	})
//
// # Sliding-Window Rate Limiting
//
// The limiter performs per-model admission control over a rolling window.
//
//	limiter := resilience.NewSlidingWindowLimiter(resilience.DefaultRateLimiterConfig(60))
//	if !limiter.TryAdmit("openai:gpt-4") {
//		// return a rate_limited result without attempting the invocation
//	}
//
// All types are safe for concurrent use and never hold a lock across a
// suspension point.
package resilience
