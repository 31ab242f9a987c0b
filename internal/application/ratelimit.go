package application

import (
	"sync"
	"time"
)

// RateLimiter gates web submissions per client address. State is process-local
// and never pruned; one timestamp per address, reset on restart.
type RateLimiter struct {
	cooldown time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewRateLimiter(cooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		cooldown: cooldown,
		seen:     make(map[string]time.Time),
	}
}

// Allow reports whether a submission from addr may proceed. An accepted call
// records its timestamp; a rejected call must not, so hammering the endpoint
// cannot extend the window.
func (l *RateLimiter) Allow(addr string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.seen[addr]; ok && now.Sub(last) < l.cooldown {
		return false
	}
	l.seen[addr] = now
	return true
}
