package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalExcludesSecondHolder(t *testing.T) {
	locker := NewLocal()
	ctx := context.Background()

	lease, err := locker.Obtain(ctx, "user:1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Obtain(ctx, "user:1", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := locker.Obtain(ctx, "user:2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := locker.Obtain(ctx, "user:1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLeaseExpires(t *testing.T) {
	locker := NewLocal()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	locker.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := locker.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := locker.Obtain(ctx, "k", time.Second)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	_, err = locker.Obtain(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrNotObtained, "stale release must not free the new holder")
	require.NoError(t, fresh.Release(ctx))
}

func TestLocalHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal().Obtain(ctx, "k", time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, url)
	require.NoError(t, err)
	defer rdb.Close()

	locker := NewRedis(rdb, nil)
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	lease, err := locker.Obtain(ctx, key, 5*time.Second)
	require.NoError(t, err)
	_, err = locker.Obtain(ctx, key, 5*time.Second)
	assert.ErrorIs(t, err, ErrNotObtained)

	require.NoError(t, lease.Release(ctx))
	again, err := locker.Obtain(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
