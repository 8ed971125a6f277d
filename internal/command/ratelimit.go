// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Rate limiting defaults.
const (
	DefaultBurst           = 10
	DefaultPerSecond       = 2.0
	DefaultCleanupInterval = 5 * time.Minute
	DefaultMaxIdle         = time.Hour
)

// ResourceRateLimit is the resource checked with the bypass action to skip
// rate limiting.
const ResourceRateLimit = "ratelimit"

// RateLimiterConfig configures a RateLimiter. Zero values take the defaults.
type RateLimiterConfig struct {
	Burst           int     `koanf:"burst" json:"burst"`
	PerSecond       float64 `koanf:"per-second" json:"per-second"`
	CleanupInterval time.Duration
	MaxIdle         time.Duration
	// Clock is used in tests; nil means time.Now.
	Clock func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per player and drops buckets of idle
// players in the background. Call Close to stop the cleanup goroutine.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[uuid.UUID]*bucket
	burst   int
	limit   rate.Limit
	maxIdle time.Duration
	now     func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRateLimiter creates a RateLimiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = DefaultPerSecond
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = DefaultMaxIdle
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	rl := &RateLimiter{
		buckets: make(map[uuid.UUID]*bucket),
		burst:   cfg.Burst,
		limit:   rate.Limit(cfg.PerSecond),
		maxIdle: cfg.MaxIdle,
		now:     cfg.Clock,
		stop:    make(chan struct{}),
	}
	rl.wg.Add(1)
	go rl.cleanupLoop(cfg.CleanupInterval)
	return rl
}

// Allow consumes a token for player. When none is left it reports how long
// until the next one.
func (rl *RateLimiter) Allow(player uuid.UUID) (allowed bool, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[player]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[player] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked players.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Cleanup drops players not seen for maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	threshold := rl.now().Add(-maxIdle)
	for id, b := range rl.buckets {
		if b.lastSeen.Before(threshold) {
			delete(rl.buckets, id)
		}
	}
	RateLimitedPlayers.Set(float64(len(rl.buckets)))
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Cleanup(rl.maxIdle)
		}
	}
}

// Close stops the cleanup goroutine and waits for it.
func (rl *RateLimiter) Close() {
	close(rl.stop)
	rl.wg.Wait()
}
