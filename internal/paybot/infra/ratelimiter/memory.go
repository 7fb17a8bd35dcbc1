package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per chat in memory
type RateLimiter struct {
	buckets   map[int64]*chatBucket
	mutex     sync.Mutex
	logger    *slog.Logger
	config    Config
	every     rate.Limit
	lastSweep time.Time
}

type Config struct {
	// RequestsPerMinute is the refill rate of every bucket.
	RequestsPerMinute int
	// BurstSize defaults to half the rate, at least 1.
	BurstSize int
	// IdleTTL is how long an untouched bucket is kept.
	IdleTTL time.Duration
	Now     func() time.Time
	Logger  *slog.Logger
}

type chatBucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	blocked    int
}

// New creates a rate limiter. A non-positive rate disables limiting.
func New(cfg Config) *RateLimiter {
	if cfg.BurstSize < 1 {
		cfg.BurstSize = max(cfg.RequestsPerMinute/2, 1)
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	rl := &RateLimiter{
		buckets:   make(map[int64]*chatBucket),
		logger:    cfg.Logger,
		config:    cfg,
		lastSweep: cfg.Now(),
	}
	if cfg.RequestsPerMinute > 0 {
		rl.every = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return rl
}

// Allow consumes one token for chatID and reports whether one was available.
func (rl *RateLimiter) Allow(ctx context.Context, chatID int64) bool {
	if rl.config.RequestsPerMinute <= 0 {
		return true
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.config.Now()
	rl.sweep(now)

	bucket, ok := rl.buckets[chatID]
	if !ok {
		bucket = &chatBucket{limiter: rate.NewLimiter(rl.every, rl.config.BurstSize)}
		rl.buckets[chatID] = bucket
	}
	bucket.lastAccess = now

	if !bucket.limiter.AllowN(now, 1) {
		bucket.blocked++
		rl.logger.WarnContext(ctx, "Rate limit exceeded",
			"chat_id", chatID,
			"blocked_count", bucket.blocked,
		)
		return false
	}
	return true
}

// Len is the number of tracked chats
func (rl *RateLimiter) Len() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.buckets)
}

// sweep drops idle buckets, at most once per IdleTTL
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.IdleTTL {
		return
	}
	cutoff := now.Add(-rl.config.IdleTTL)
	for chatID, b := range rl.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(rl.buckets, chatID)
		}
	}
	rl.lastSweep = now
}
