package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relato/internal/config"
)

func newTestSlowdown(t *testing.T) (*Slowdown, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := config.RateLimitConfig{
		SlowdownWindow:    15 * time.Minute,
		SlowdownThreshold: 5,
		SlowdownStep:      100 * time.Millisecond,
		SlowdownMax:       time.Second,
	}
	return NewSlowdown(client, cfg), mr
}

func TestNoDelayUnderThreshold(t *testing.T) {
	s, _ := newTestSlowdown(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		delay, err := s.Delay(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Zero(t, delay)
	}
}

func TestDelayGrowsPerRequestOverThreshold(t *testing.T) {
	s, _ := newTestSlowdown(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Delay(ctx, "1.2.3.4")
		require.NoError(t, err)
	}

	delay, err := s.Delay(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, delay)

	delay, err = s.Delay(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, delay)
}

func TestDelayIsCapped(t *testing.T) {
	s, _ := newTestSlowdown(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := s.Delay(ctx, "1.2.3.4")
		require.NoError(t, err)
	}

	delay, err := s.Delay(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, time.Second, delay)
}

func TestDelayWindowExpires(t *testing.T) {
	s, mr := newTestSlowdown(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.Delay(ctx, "1.2.3.4")
	}
	mr.FastForward(16 * time.Minute)

	delay, err := s.Delay(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.Zero(t, delay)
}

func TestSleepRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Minute)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepZeroIsImmediate(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
}
