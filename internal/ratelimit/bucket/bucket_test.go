package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	Reset(ctx context.Context, key string) error
}

func TestStores(t *testing.T) {
	clock := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	stores := map[string]func(t *testing.T) store{
		"memory": func(t *testing.T) store {
			s := NewInMemory()
			s.now = now
			return s
		},
		"redis": func(t *testing.T) store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			s := NewRedis(client)
			s.now = now
			return s
		},
	}

	for name, build := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
			s := build(t)

			for i := range 3 {
				res, err := s.Allow(ctx, "alice", 3, time.Minute)
				require.NoError(t, err)
				assert.True(t, res.Allowed)
				assert.Equal(t, 2-i, res.Remaining)
				clock = clock.Add(time.Second)
			}

			res, err := s.Allow(ctx, "alice", 3, time.Minute)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, 57, res.RetryAfter(clock))

			other, err := s.Allow(ctx, "bob", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, other.Allowed, "keys are counted separately")

			clock = clock.Add(58 * time.Second)
			res, err = s.Allow(ctx, "alice", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed, "the oldest hit left the window")

			require.NoError(t, s.Reset(ctx, "alice"))
			res, err = s.Allow(ctx, "alice", 3, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, 2, res.Remaining)
		})
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Result{Allowed: true}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now}.RetryAfter(now))
	assert.Equal(t, 2, Result{ResetAt: now.Add(1500 * time.Millisecond)}.RetryAfter(now))
}
