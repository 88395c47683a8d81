package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/pkg/cache"
)

func TestMemoryClaimer(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	claimer := NewMemoryClaimer(15*time.Minute, clock)
	ctx := context.Background()

	won, err := claimer.Claim(ctx, 1)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = claimer.Claim(ctx, 1)
	require.NoError(t, err)
	assert.False(t, won, "second claim on same recipient must lose")

	won, err = claimer.Claim(ctx, 2)
	require.NoError(t, err)
	assert.True(t, won, "different recipient is independent")

	// Claim expires after the TTL.
	now = now.Add(16 * time.Minute)
	won, err = claimer.Claim(ctx, 1)
	require.NoError(t, err)
	assert.True(t, won)

	// Release frees the claim immediately.
	require.NoError(t, claimer.Release(ctx, 2))
	won, err = claimer.Claim(ctx, 2)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedisClaimer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &cache.Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	claimer := NewRedisClaimer(client, 15*time.Minute)
	ctx := context.Background()

	won, err := claimer.Claim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = claimer.Claim(ctx, 42)
	require.NoError(t, err)
	assert.False(t, won)

	// TTL expiry frees the key.
	mr.FastForward(16 * time.Minute)
	won, err = claimer.Claim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, won)

	require.NoError(t, claimer.Release(ctx, 42))
	won, err = claimer.Claim(ctx, 42)
	require.NoError(t, err)
	assert.True(t, won)
}
