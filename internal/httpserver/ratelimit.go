package httpserver

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// guessLimiter is a token bucket per (room, participant).
type guessLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
	lastGC  time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// newGuessLimiter returns nil (no limiting) when limit is not positive.
func newGuessLimiter(limit rate.Limit, burst int) *guessLimiter {
	if limit <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &guessLimiter{limit: limit, burst: burst, buckets: make(map[string]*bucket)}
}

func (g *guessLimiter) Allow(code, participantID string) bool {
	if g == nil {
		return true
	}
	now := time.Now()
	key := code + "|" + participantID

	g.mu.Lock()
	defer g.mu.Unlock()
	if now.Sub(g.lastGC) > limiterIdle {
		for k, b := range g.buckets {
			if now.Sub(b.seen) > limiterIdle {
				delete(g.buckets, k)
			}
		}
		g.lastGC = now
	}

	b, ok := g.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(g.limit, g.burst)}
		g.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}
