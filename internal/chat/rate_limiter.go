package chat

import (
	"time"
)

// RateLimit bounds how many chat messages one connection may send: Burst
// messages, refilled evenly over RefillInterval. A zero Burst disables it.
type RateLimit struct {
	Burst          int
	RefillInterval time.Duration
}

// limiter is a token bucket owned by a single handler goroutine.
type limiter struct {
	tokens    float64
	capacity  float64
	rate      float64
	lastCheck time.Time
	now       func() time.Time
}

func newLimiter(cfg RateLimit) *limiter {
	if cfg.Burst <= 0 {
		return nil
	}
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	l := &limiter{
		tokens:   float64(cfg.Burst),
		capacity: float64(cfg.Burst),
		rate:     float64(cfg.Burst) / interval.Seconds(),
		now:      time.Now,
	}
	l.lastCheck = l.now()
	return l
}

// allow takes a token if one is available. A nil limiter allows everything.
func (l *limiter) allow() bool {
	if l == nil {
		return true
	}

	now := l.now()
	if elapsed := now.Sub(l.lastCheck).Seconds(); elapsed > 0 {
		l.tokens += elapsed * l.rate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
	}
	l.lastCheck = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
