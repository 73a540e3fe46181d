package throttle

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a per-process fixed-window limiter.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	period time.Duration
	now    func() time.Time
	seen   map[string]*window
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		period: period,
		now:    time.Now,
		seen:   make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.seen[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.seen[key] = w
		l.sweep(now)
	}
	w.count++
	return w.count <= l.limit, nil
}

// sweep drops expired windows so the map does not grow without bound.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.seen {
		if !now.Before(w.resetAt) {
			delete(l.seen, k)
		}
	}
}
