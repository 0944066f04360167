package validation

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket per session. Each bucket holds up to burst tokens
// and refills at rate tokens per second.
type RateLimiter struct {
	rate        float64
	burst       float64
	sessions    map[string]*bucket
	mu          sync.Mutex
	cleanupTick *time.Ticker
	idleAfter   time.Duration
	now         func() time.Time
	done        chan struct{}
	closeOnce   sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rate messages per second with bursts of up to burst
func NewRateLimiter(rate, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		rate:      float64(rate),
		burst:     float64(burst),
		sessions:  make(map[string]*bucket),
		idleAfter: time.Minute,
		now:       time.Now,
		done:      make(chan struct{}),
	}

	rl.cleanupTick = time.NewTicker(rl.idleAfter)
	go rl.cleanup()

	return rl
}

// Allow consumes a token for the session, reporting false when its bucket is empty
func (rl *RateLimiter) Allow(sessionID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.sessions[sessionID]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.sessions[sessionID] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Forget drops the session's bucket
func (rl *RateLimiter) Forget(sessionID string) {
	rl.mu.Lock()
	delete(rl.sessions, sessionID)
	rl.mu.Unlock()
}

// Sessions returns the number of tracked sessions
func (rl *RateLimiter) Sessions() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sessions)
}

func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.removeIdle()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) removeIdle() {
	cutoff := rl.now().Add(-rl.idleAfter)

	rl.mu.Lock()
	for id, b := range rl.sessions {
		if b.lastSeen.Before(cutoff) {
			delete(rl.sessions, id)
		}
	}
	rl.mu.Unlock()
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
