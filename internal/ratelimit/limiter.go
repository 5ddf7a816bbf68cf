package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	rdb "github.com/redis/go-redis/v9"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
	Hits       int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type Config struct {
	Driver    string
	RedisAddr string
	RedisDB   int
	Max       int
	Window    time.Duration
}

func New(config Config) (Limiter, error) {
	if config.Max <= 0 || config.Window <= 0 {
		return nil, errors.Errorf("Invalid rate limit %d per %s", config.Max, config.Window)
	}
	switch config.Driver {
	case DriverMemory, "":
		return NewMemoryLimiter(config.Max, config.Window), nil
	case DriverRedis:
		client := rdb.NewClient(&rdb.Options{Addr: config.RedisAddr, DB: config.RedisDB})
		return NewRedisLimiter(client, "ccx:rl:", config.Max, config.Window), nil
	default:
		return nil, errors.Errorf("Unknown rate limit driver %q", config.Driver)
	}
}

// windowKey buckets hits into fixed windows aligned to the epoch.
func windowKey(prefix, key string, now time.Time, window time.Duration) (string, time.Duration) {
	start := now.Truncate(window)
	left := start.Add(window).Sub(now)
	return fmt.Sprintf("%s%s:%d", prefix, strings.ReplaceAll(key, " ", "_"), start.Unix()), left
}

func result(hits, max int64, left time.Duration) Result {
	res := Result{
		Allowed: hits <= max,
		Hits:    hits,
	}
	if remaining := max - hits; remaining > 0 {
		res.Remaining = remaining
	}
	if !res.Allowed {
		res.RetryAfter = left
	}
	return res
}
