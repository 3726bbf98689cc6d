package resilience

import (
	"sync"
	"time"

	"github.com/modelaudit/modelaudit/pkg/logging"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed - circuit is closed, invocations are allowed
	StateClosed CircuitState = iota
	// StateOpen - circuit is open, invocations are rejected
	StateOpen
	// StateHalfOpen - circuit is half-open, a single trial invocation is allowed
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	// Name of the circuit breaker for logging/metrics
	Name string
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. A threshold of 5 proved too sensitive against slow scanner
	// backends, so the default is 10.
	FailureThreshold int
	// RecoveryTimeout is the period of the open state, after which the next
	// admission check moves the breaker to half-open
	RecoveryTimeout time.Duration
	// HalfOpenSuccesses is the number of consecutive successful trials
	// required to close the circuit from half-open
	HalfOpenSuccesses int
	// OnStateChange is called whenever the state of the circuit breaker changes
	OnStateChange func(name string, from CircuitState, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the default breaker configuration
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:              name,
		FailureThreshold:  10,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenSuccesses: 2,
	}
}

// Counts holds the bookkeeping numbers of the breaker
type Counts struct {
	TotalSuccesses      uint32
	TotalFailures       uint32
	ConsecutiveFailures uint32
	HalfOpenSuccesses   uint32
}

// CircuitBreaker is a state machine that prevents hammering a scanner backend
// that is likely to fail. Only genuine attempted-and-failed invocations may be
// reported through RecordFailure; rejections produced by the breaker itself,
// by the rate limiter, or by a cache hit must never be counted, otherwise the
// breaker can never recover.
type CircuitBreaker struct {
	name              string
	failureThreshold  int
	recoveryTimeout   time.Duration
	halfOpenSuccesses int
	onStateChange     func(name string, from CircuitState, to CircuitState)

	mutex            sync.Mutex
	state            CircuitState
	counts           Counts
	openedAt         time.Time
	lastTransitionAt time.Time
	halfOpenInFlight int

	logger *logging.Logger
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 10
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 2
	}

	return &CircuitBreaker{
		name:              config.Name,
		failureThreshold:  config.FailureThreshold,
		recoveryTimeout:   config.RecoveryTimeout,
		halfOpenSuccesses: config.HalfOpenSuccesses,
		onStateChange:     config.OnStateChange,
		state:             StateClosed,
		lastTransitionAt:  time.Now(),
		logger:            logging.GetLogger(),
	}
}

// Allow reports whether an invocation may proceed. The OPEN to HALF_OPEN
// transition is evaluated lazily here rather than by a background timer. In
// half-open state at most one trial is admitted at a time; the slot is freed
// by RecordSuccess, RecordFailure, or Cancel.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()

	switch cb.currentState(now) {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.halfOpenInFlight > 0 {
			return false
		}
		cb.halfOpenInFlight++
		return true
	default:
		return false
	}
}

// RecordSuccess reports a successful invocation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()
	state := cb.currentState(now)

	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen {
		cb.releaseTrial()
		cb.counts.HalfOpenSuccesses++
		if int(cb.counts.HalfOpenSuccesses) >= cb.halfOpenSuccesses {
			cb.setState(StateClosed, now)
		}
	}
}

// RecordFailure reports a genuine attempted-and-failed invocation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	now := time.Now()
	state := cb.currentState(now)

	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++

	switch state {
	case StateClosed:
		if int(cb.counts.ConsecutiveFailures) >= cb.failureThreshold {
			cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		cb.releaseTrial()
		// A single failed trial reopens the circuit and restarts the clock
		cb.setState(StateOpen, now)
	}
}

// Cancel releases a half-open trial slot reserved by Allow when the
// invocation was aborted before any attempt was made (e.g. rate limited).
// Cancelled trials count neither as success nor as failure.
func (cb *CircuitBreaker) Cancel() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateHalfOpen {
		cb.releaseTrial()
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.currentState(time.Now())
}

// Counts returns a copy of the current counts
func (cb *CircuitBreaker) Counts() Counts {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.counts
}

// Name returns the name of the circuit breaker
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// currentState applies the lazy time-based OPEN -> HALF_OPEN transition.
// Callers must hold the mutex.
func (cb *CircuitBreaker) currentState(now time.Time) CircuitState {
	if cb.state == StateOpen && now.Sub(cb.openedAt) >= cb.recoveryTimeout {
		cb.setState(StateHalfOpen, now)
	}
	return cb.state
}

func (cb *CircuitBreaker) setState(state CircuitState, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.lastTransitionAt = now
	cb.halfOpenInFlight = 0
	cb.counts.HalfOpenSuccesses = 0

	if state == StateOpen {
		cb.openedAt = now
	}
	if state == StateClosed {
		cb.counts.ConsecutiveFailures = 0
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}

	cb.logger.Info("Circuit breaker state changed",
		"name", cb.name,
		"from", prev.String(),
		"to", state.String(),
		"consecutive_failures", cb.counts.ConsecutiveFailures,
	)
}

func (cb *CircuitBreaker) releaseTrial() {
	if cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}
}

// BreakerSet manages one circuit breaker per model key within an integration.
// Scoping per (integration, model) keeps one misbehaving model from blacking
// out every model tested through the same scanner.
type BreakerSet struct {
	config   CircuitBreakerConfig
	mutex    sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerSet creates a breaker set that stamps out breakers from config
func NewBreakerSet(config CircuitBreakerConfig) *BreakerSet {
	return &BreakerSet{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for a model key, creating it in CLOSED state on
// first use
func (bs *BreakerSet) Get(modelKey string) *CircuitBreaker {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	cb, ok := bs.breakers[modelKey]
	if !ok {
		cfg := bs.config
		if cfg.Name == "" {
			cfg.Name = modelKey
		} else {
			cfg.Name = cfg.Name + "/" + modelKey
		}
		cb = NewCircuitBreaker(cfg)
		bs.breakers[modelKey] = cb
	}

	return cb
}

// States returns the current state of every breaker in the set
func (bs *BreakerSet) States() map[string]string {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	states := make(map[string]string, len(bs.breakers))
	for key, cb := range bs.breakers {
		states[key] = cb.State().String()
	}

	return states
}
