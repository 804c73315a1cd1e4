package pubsite

import (
	"sync"
	"time"
)

// RateLimiter counts attempts per key (usually a client IP) in a sliding
// window. It guards admin login and public form posts.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter creates a RateLimiter that allows max attempts per window.
// Call Stop to end its cleanup goroutine.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *RateLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		l.mu.Lock()
		for key := range l.attempts {
			l.prune(key)
		}
		l.mu.Unlock()
	}
}

// prune drops expired hits for key. Callers hold l.mu.
func (l *RateLimiter) prune(key string) int {
	cutoff := l.now().Add(-l.window)
	hits := l.attempts[key]
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
		return 0
	}
	l.attempts[key] = kept
	return len(kept)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *RateLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Allow records an attempt for key if it is under the limit.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.prune(key) >= l.max {
		return false
	}
	l.attempts[key] = append(l.attempts[key], l.now())
	return true
}

// Check reports whether key is under the limit without recording an attempt.
func (l *RateLimiter) Check(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(key) < l.max
}

// Record registers an attempt (e.g. a failed login) for key.
func (l *RateLimiter) Record(key string) {
	l.mu.Lock()
	l.attempts[key] = append(l.attempts[key], l.now())
	l.mu.Unlock()
}

// Reset forgets all attempts for key, e.g. after a successful login.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}
