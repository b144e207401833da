package circuitbreaker

import (
	"testing"
	"time"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := New(3, 1, time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if b.GetState() != StateClosed {
		t.Fatalf("breaker tripped before threshold")
	}

	b.RecordFailure()
	if b.GetState() != StateOpen {
		t.Fatalf("breaker should be open after %d failures", 3)
	}
	if b.Allow() {
		t.Fatalf("open breaker must reject requests before cooldown")
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := New(1, 2, 10*time.Millisecond)

	b.RecordFailure()
	if b.GetState() != StateOpen {
		t.Fatalf("expected open state")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatalf("breaker should probe after cooldown")
	}
	if b.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open state, got %v", b.GetState())
	}

	b.RecordSuccess()
	b.RecordSuccess()
	if b.GetState() != StateClosed {
		t.Fatalf("expected closed state after %d successes", 2)
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := New(1, 1, 10*time.Millisecond)

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	b.Allow()

	b.RecordFailure()
	if b.GetState() != StateOpen {
		t.Fatalf("half-open failure should reopen the breaker")
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	b := New(1, 1, time.Minute)

	var transitions []string
	b.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	b.RecordFailure()
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}
