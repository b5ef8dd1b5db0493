package swarm

import (
	"context"
	"sync"
	"time"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// BreakerState is one provider breaker's position in the Closed/Open/
// HalfOpen state machine (spec.md §4.O).
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerConfig tunes a single provider's breaker.
type BreakerConfig struct {
	FailureThreshold    int
	RecoveryTimeout     time.Duration
	SuccessThreshold    int
	HalfOpenMaxRequests int
}

// NewBreakerConfig returns the spec defaults: 5 failures to open, 30s
// recovery, 3 successes to close, 1 half-open probe at a time.
func NewBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:    5,
		RecoveryTimeout:     30 * time.Second,
		SuccessThreshold:    3,
		HalfOpenMaxRequests: 1,
	}
}

// Breaker is a per-oracle-provider circuit breaker implementing
// core.CircuitBreaker: Closed admits everything and counts failures toward
// FailureThreshold; Open rejects everything until RecoveryTimeout elapses,
// then allows HalfOpenMaxRequests probes; HalfOpen closes again after
// SuccessThreshold consecutive successes, or reopens on a single failure
// (spec.md §4.O).
type Breaker struct {
	Name   string
	Config BreakerConfig

	mu               sync.Mutex
	state            BreakerState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	halfOpenInFlight int
}

// NewBreaker builds a Breaker starting Closed.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg = NewBreakerConfig()
	}
	return &Breaker{Name: name, Config: cfg, state: StateClosed}
}

// CanExecute reports whether a call may proceed right now, transitioning
// Open -> HalfOpen if RecoveryTimeout has elapsed.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *Breaker) canExecuteLocked() bool {
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.lastFailureTime) >= b.Config.RecoveryTimeout {
			b.state = StateHalfOpen
			b.successCount = 0
			b.halfOpenInFlight = 0
			return b.canExecuteLocked()
		}
		return false
	case StateHalfOpen:
		return b.halfOpenInFlight < b.Config.HalfOpenMaxRequests
	default:
		return false
	}
}

// GetState returns the breaker's current state as a string, satisfying
// core.CircuitBreaker.
func (b *Breaker) GetState() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.state)
}

// RecordFailure registers a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailureTime = time.Now()
	switch b.state {
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.Config.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.successCount = 0
		b.halfOpenInFlight = 0
	}
}

// RecordSuccess registers a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.successCount++
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		if b.successCount >= b.Config.SuccessThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
		}
	}
}

// Execute runs fn under breaker protection: rejects immediately with a
// BreakerOpenError if the circuit won't admit the call, otherwise runs fn
// and records the outcome. Satisfies core.CircuitBreaker.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	if !b.canExecuteLocked() {
		retryAfter := b.Config.RecoveryTimeout - time.Since(b.lastFailureTime)
		if retryAfter < 0 {
			retryAfter = 0
		}
		b.mu.Unlock()
		return &BreakerOpenError{Provider: b.Name, RetryAfter: retryAfter}
	}
	if b.state == StateHalfOpen {
		b.halfOpenInFlight++
	}
	b.mu.Unlock()

	err := fn()
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// ExecuteWithTimeout wraps Execute with a context deadline, satisfying
// core.CircuitBreaker.
func (b *Breaker) ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.Execute(ctx, func() error {
		done := make(chan error, 1)
		go func() { done <- fn() }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// GetMetrics returns a snapshot of the breaker's counters, satisfying
// core.CircuitBreaker.
func (b *Breaker) GetMetrics() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return map[string]interface{}{
		"provider":      b.Name,
		"state":         string(b.state),
		"failure_count": b.failureCount,
		"success_count": b.successCount,
	}
}

// Reset returns the breaker to Closed with all counters cleared.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenInFlight = 0
}

var _ core.CircuitBreaker = (*Breaker)(nil)

// BreakerRegistry maps provider name to its shared Breaker handle.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	config   BreakerConfig
}

// NewBreakerRegistry builds a registry that hands out breakers configured
// with cfg.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	if cfg.FailureThreshold <= 0 {
		cfg = NewBreakerConfig()
	}
	return &BreakerRegistry{breakers: make(map[string]*Breaker), config: cfg}
}

// GetOrCreate returns provider's shared Breaker, creating it on first use.
func (r *BreakerRegistry) GetOrCreate(provider string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[provider]
	if !ok {
		b = NewBreaker(provider, r.config)
		r.breakers[provider] = b
	}
	return b
}
