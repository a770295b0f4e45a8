package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relato/internal/config"
)

// ErrUnavailable is returned when the counter backend cannot be
// reached. Callers on security-critical tiers treat it as a denial.
var ErrUnavailable = errors.New("rate limit backend unavailable")

// Tier is one hard quota: a fixed window, a ceiling and the error code
// surfaced when the ceiling is exceeded.
type Tier struct {
	Name   string
	Code   string
	Window time.Duration
	Max    int
}

// The three tiers every gated route falls into.
func LoginTier(cfg config.RateLimitConfig) Tier {
	return Tier{Name: "login", Code: "LOGIN_RATE_LIMIT", Window: cfg.LoginWindow, Max: cfg.LoginMax}
}

func GeneralTier(cfg config.RateLimitConfig) Tier {
	return Tier{Name: "general", Code: "RATE_LIMIT_EXCEEDED", Window: cfg.GeneralWindow, Max: cfg.GeneralMax}
}

func CriticalTier(cfg config.RateLimitConfig) Tier {
	return Tier{Name: "critical", Code: "CRITICAL_RATE_LIMIT", Window: cfg.CriticalWindow, Max: cfg.CriticalMax}
}

// Result carries what a response needs for the standard quota headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces fixed-window quotas with Redis counters. One INCR
// per request makes concurrent bursts count exactly; there is no
// read-then-write window to race through.
type Limiter struct {
	redis redis.UniversalClient
}

func New(redisClient redis.UniversalClient) *Limiter {
	return &Limiter{redis: redisClient}
}

func tierKey(tier Tier, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", tier.Name, key)
}

// Allow counts this request against the tier window for key and
// reports whether it is within the ceiling.
func (l *Limiter) Allow(ctx context.Context, tier Tier, key string) (Result, error) {
	count, resetAt, err := l.bump(ctx, tierKey(tier, key), tier.Window)
	if err != nil {
		return Result{}, err
	}
	return buildResult(tier, count, resetAt), nil
}

// Check reads the current counter without incrementing it. Used by the
// login tier, where the ceiling is checked before the credential check
// and only failures count.
func (l *Limiter) Check(ctx context.Context, tier Tier, key string) (Result, error) {
	k := tierKey(tier, key)

	pipe := l.redis.Pipeline()
	getCmd := pipe.Get(ctx, k)
	ttlCmd := pipe.PTTL(ctx, k)
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	count, _ := getCmd.Int64()
	resetAt := time.Now().Add(tier.Window)
	if ttl := ttlCmd.Val(); ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	res := buildResult(tier, count, resetAt)
	// The ceiling rejects the request that would exceed it, so a full
	// counter already blocks the next attempt.
	res.Allowed = count < int64(tier.Max)
	return res, nil
}

// Record counts one attempt against the tier window for key.
func (l *Limiter) Record(ctx context.Context, tier Tier, key string) error {
	_, _, err := l.bump(ctx, tierKey(tier, key), tier.Window)
	return err
}

// Reset clears the counter for key. Called after a successful login so
// past failures stop counting.
func (l *Limiter) Reset(ctx context.Context, tier Tier, key string) error {
	if err := l.redis.Del(ctx, tierKey(tier, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// bump atomically increments the window counter, starting the window
// TTL on first use, and returns the new count and window reset time.
func (l *Limiter) bump(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	pipe := l.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resetAt := time.Now().Add(window)
	if ttl := ttlCmd.Val(); ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}
	return incrCmd.Val(), resetAt, nil
}

func buildResult(tier Tier, count int64, resetAt time.Time) Result {
	remaining := int64(tier.Max) - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= int64(tier.Max),
		Limit:     tier.Max,
		Remaining: int(remaining),
		ResetAt:   resetAt,
	}
}
