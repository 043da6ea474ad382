package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/escrow-ledger/internal/domain/escrow"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestAssignmentCounter(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	counter := NewAssignmentCounter(slog.New(slog.NewTextHandler(io.Discard, nil)), client, "test")
	verifier := uuid.New()

	t.Run("absent counts as zero", func(t *testing.T) {
		n, err := counter.Count(ctx, verifier)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("increment and decrement", func(t *testing.T) {
		require.NoError(t, counter.Increment(ctx, verifier))
		require.NoError(t, counter.Increment(ctx, verifier))
		assert.Equal(t, "2", mr.HGet("test:verifier_assignments", verifier.String()))

		require.NoError(t, counter.Decrement(ctx, verifier))
		n, err := counter.Count(ctx, verifier)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("decrement floors at zero", func(t *testing.T) {
		other := uuid.New()
		require.NoError(t, counter.Decrement(ctx, other))
		n, err := counter.Count(ctx, other)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unavailable", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")

		_, err := counter.Count(ctx, verifier)
		assert.ErrorContains(t, err, "failed to read assignment count")
		assert.Error(t, counter.Increment(ctx, verifier))
	})
}

func TestEscrowStateCache(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)
	cache := NewEscrowStateCache(client, "test")
	jobID := uuid.New()

	_, ok, err := cache.Get(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, jobID, escrow.StatusFunded, time.Minute))
	status, ok, err := cache.Get(ctx, jobID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, escrow.StatusFunded, status)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, jobID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, jobID, escrow.StatusDisputed, 0))
	require.NoError(t, cache.Invalidate(ctx, jobID))
	assert.False(t, mr.Exists("test:escrow_state:"+jobID.String()))
}
