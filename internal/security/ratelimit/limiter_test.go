package ratelimit

import (
	"testing"
	"time"
)

func TestAllowUnderLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("user-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("user-1") {
		t.Fatal("fourth request should be denied")
	}
}

func TestAllowEmptyKey(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	for i := 0; i < 10; i++ {
		if !l.Allow("") {
			t.Fatal("empty key should never be limited")
		}
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("first request for a should pass")
	}
	if !l.Allow("b") {
		t.Fatal("first request for b should pass")
	}
	if l.Allow("a") {
		t.Fatal("second request for a should be denied")
	}
}

func TestAllowStrictSeparateBudget(t *testing.T) {
	l := NewLimiter(100, time.Minute)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.AllowStrict("login:a@b.c", 5, time.Minute) {
			t.Fatalf("strict request %d should be allowed", i+1)
		}
	}
	if l.AllowStrict("login:a@b.c", 5, time.Minute) {
		t.Fatal("sixth strict request should be denied")
	}
	// The general budget must be untouched.
	if !l.Allow("login:a@b.c") {
		t.Fatal("general budget should be unaffected by strict counts")
	}
}

func TestWindowExpiry(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)
	defer l.Stop()

	if !l.Allow("user-1") {
		t.Fatal("first request should pass")
	}
	if l.Allow("user-1") {
		t.Fatal("second request inside window should be denied")
	}
	time.Sleep(80 * time.Millisecond)
	if !l.Allow("user-1") {
		t.Fatal("request after window should pass")
	}
}
