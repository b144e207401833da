// Package circuitbreaker provides fast-fail behavior for a dependency that
// fails repeatedly. The book read cache uses it to stop talking to Redis
// while it is down and go straight to the database.
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker trips open after failureThreshold consecutive failures and probes
// again after cooldown; successThreshold consecutive successes in half-open
// close it.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	lastFailure      time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	onStateChange    func(from, to State)
}

// New creates a breaker in the closed state.
func New(failureThreshold, successThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

// OnStateChange registers a callback invoked on every transition.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Allow reports whether a request may proceed, moving to half-open when the
// cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		if time.Since(b.lastFailure) > b.cooldown {
			b.transition(StateHalfOpen)
			b.failures = 0
			b.successes = 0
			return true
		}
		return false
	}
}

// RecordSuccess counts a success; enough of them close a half-open breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.transition(StateClosed)
			b.failures = 0
			b.successes = 0
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure counts a failure; enough of them trip the breaker, and any
// failure while half-open reopens it.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.transition(StateOpen)
			b.failures = 0
			b.successes = 0
		}
	case StateHalfOpen:
		b.transition(StateOpen)
		b.failures = 0
		b.successes = 0
	}
}

// GetState returns the current state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
