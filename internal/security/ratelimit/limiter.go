package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps per client in sliding windows.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
	}
	go limiter.cleanupOldBuckets()
	return limiter
}

// Allow records a request for key and reports whether it fits inside the
// default window. Empty keys are never limited.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return l.allow(key, l.maxReqs, l.window)
}

// AllowStrict applies a tighter limit for sensitive endpoints such as
// login. The strict prefix keeps its counts apart from the general ones.
func (l *Limiter) AllowStrict(identifier string, maxReqs int, window time.Duration) bool {
	return l.allow("strict:"+identifier, maxReqs, window)
}

func (l *Limiter) allow(key string, maxReqs int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{requests: []time.Time{}}
		l.buckets[key] = b
	}

	cutoff := now.Add(-window)
	var reqs []time.Time
	for _, t := range b.requests {
		if t.After(cutoff) {
			reqs = append(reqs, t)
		}
	}
	b.requests = reqs
	b.lastSeen = now

	if len(b.requests) >= maxReqs {
		return false
	}

	b.requests = append(b.requests, now)
	return true
}

func (l *Limiter) cleanupOldBuckets() {
	for range l.cleanup.C {
		l.mu.Lock()
		staleThreshold := time.Now().Add(-15 * time.Minute)
		for key, b := range l.buckets {
			if b.lastSeen.Before(staleThreshold) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *Limiter) Stop() {
	l.cleanup.Stop()
}
