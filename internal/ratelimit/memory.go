package ratelimit

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter is a fixed window limiter local to one process.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration

	now func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, time.Minute),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	k, left := windowKey("", key, l.now(), l.window)

	var hits int64 = 1
	if err := l.c.Add(k, hits, left); err != nil {
		var incErr error
		hits, incErr = l.c.IncrementInt64(k, 1)
		if incErr != nil {
			// Expired between the two calls.
			hits = 1
			l.c.Set(k, hits, left)
		}
	}
	return result(hits, l.max, left), nil
}
