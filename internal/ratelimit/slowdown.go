package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"relato/internal/config"
)

// Slowdown is the soft layer: above a threshold of requests in a shared
// window, each further request is delayed by a growing, capped amount.
// It degrades instead of rejecting and is independent of the hard tiers.
type Slowdown struct {
	redis     redis.UniversalClient
	window    time.Duration
	threshold int
	step      time.Duration
	max       time.Duration
}

func NewSlowdown(redisClient redis.UniversalClient, cfg config.RateLimitConfig) *Slowdown {
	return &Slowdown{
		redis:     redisClient,
		window:    cfg.SlowdownWindow,
		threshold: cfg.SlowdownThreshold,
		step:      cfg.SlowdownStep,
		max:       cfg.SlowdownMax,
	}
}

// Delay counts this request for key and returns how long it should be
// held before proceeding. Zero while under the threshold.
func (s *Slowdown) Delay(ctx context.Context, key string) (time.Duration, error) {
	k := fmt.Sprintf("slowdown:%s", key)

	pipe := s.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	over := incrCmd.Val() - int64(s.threshold)
	if over <= 0 {
		return 0, nil
	}

	delay := time.Duration(over) * s.step
	if delay > s.max {
		delay = s.max
	}
	return delay, nil
}

// Sleep holds the request for the given delay, waking early if the
// request context is cancelled.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
