package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava's published limits: 100 requests per 15 minutes, 1000 per day.
const (
	defaultShortLimit  = 100
	defaultDailyLimit  = 1000
	shortWindow        = 15 * time.Minute
	defaultMinInterval = 150 * time.Millisecond
)

// RateLimiter paces requests so neither Strava window is exceeded. The
// server's X-RateLimit headers override the local counts after each call.
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a new rate limiter with Strava's limits
func NewRateLimiter() *RateLimiter {
	return newRateLimiter(defaultShortLimit, defaultDailyLimit, defaultMinInterval, time.Now)
}

func newRateLimiter(shortLimit, dailyLimit int, minInterval time.Duration, now func() time.Time) *RateLimiter {
	t := now()
	return &RateLimiter{
		now:           now,
		shortLimit:    shortLimit,
		shortResetsAt: t.Add(shortWindow),
		dailyLimit:    dailyLimit,
		dailyResetsAt: nextUTCMidnight(t),
		minInterval:   minInterval,
	}
}

func nextUTCMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resetExpired(r.now())

	if r.shortUsage >= r.shortLimit {
		if err := r.sleepUnlocked(ctx, r.shortResetsAt.Sub(r.now())); err != nil {
			return err
		}
		r.shortUsage = 0
		r.shortResetsAt = r.now().Add(shortWindow)
	}

	if r.dailyUsage >= r.dailyLimit {
		if err := r.sleepUnlocked(ctx, r.dailyResetsAt.Sub(r.now())); err != nil {
			return err
		}
		r.dailyUsage = 0
		r.dailyResetsAt = nextUTCMidnight(r.now())
	}

	if gap := r.minInterval - r.now().Sub(r.lastRequest); gap > 0 {
		if err := r.sleepUnlocked(ctx, gap); err != nil {
			return err
		}
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = r.now()
	return nil
}

func (r *RateLimiter) resetExpired(now time.Time) {
	if now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(shortWindow)
	}
	if now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = nextUTCMidnight(now)
	}
}

// sleepUnlocked releases the lock for d. The caller must hold r.mu, and
// still holds it when this returns, including on cancellation.
func (r *RateLimiter) sleepUnlocked(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders updates rate limit state from Strava response headers.
// Strava sends X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Status returns current rate limit status
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}
