package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedup_FirstDeliveryOnly(t *testing.T) {
	repo := NewMemoryDedupRepo(time.Hour)
	ctx := context.Background()

	first, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.False(t, again, "same payment and status must be reported as seen")
}

func TestMemoryDedup_StatusIsPartOfKey(t *testing.T) {
	repo := NewMemoryDedupRepo(time.Hour)
	ctx := context.Background()

	first, _ := repo.MarkProcessed(ctx, "tr_test", "open")
	assert.True(t, first)
	paid, _ := repo.MarkProcessed(ctx, "tr_test", "paid")
	assert.True(t, paid)
	other, _ := repo.MarkProcessed(ctx, "tr_other", "paid")
	assert.True(t, other)
}

func TestMemoryDedup_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 6, 6, 12, 0, 0, 0, time.UTC)
	repo := newMemoryDedupRepo(time.Minute, func() time.Time { return now })
	ctx := context.Background()

	first, _ := repo.MarkProcessed(ctx, "tr_test", "paid")
	assert.True(t, first)

	now = now.Add(30 * time.Second)
	within, _ := repo.MarkProcessed(ctx, "tr_test", "paid")
	assert.False(t, within)

	now = now.Add(time.Minute)
	after, _ := repo.MarkProcessed(ctx, "tr_test", "paid")
	assert.True(t, after)
	assert.Len(t, repo.seen, 1)
}

func TestMemoryDedup_Release(t *testing.T) {
	repo := NewMemoryDedupRepo(time.Hour)
	ctx := context.Background()

	first, _ := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.True(t, first)
	require.NoError(t, repo.Release(ctx, "tr_test", "paid"))

	again, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMemoryDedup_SweepIsRateLimited(t *testing.T) {
	now := time.Date(2026, 6, 6, 12, 0, 0, 0, time.UTC)
	repo := newMemoryDedupRepo(time.Second, func() time.Time { return now })
	ctx := context.Background()

	_, _ = repo.MarkProcessed(ctx, "tr_a", "paid")

	// tr_a has expired, but the last sweep is too recent to scan again
	now = now.Add(10 * time.Second)
	_, _ = repo.MarkProcessed(ctx, "tr_b", "paid")
	assert.Len(t, repo.seen, 2)

	now = now.Add(memorySweepInterval)
	_, _ = repo.MarkProcessed(ctx, "tr_c", "paid")
	assert.Len(t, repo.seen, 1)
	assert.Contains(t, repo.seen, "tr_c:paid")
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisDedup_SetNXWithTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisDedupRepo(client, 72*time.Hour)
	ctx := context.Background()

	first, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.True(t, first)

	assert.True(t, mr.Exists("webhook:payment:tr_test:paid"))
	assert.Equal(t, 72*time.Hour, mr.TTL("webhook:payment:tr_test:paid"))

	again, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.False(t, again)

	failed, err := repo.MarkProcessed(ctx, "tr_test", "failed")
	require.NoError(t, err)
	assert.True(t, failed)
}

func TestRedisDedup_ExpiresAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisDedupRepo(client, time.Minute)
	ctx := context.Background()

	_, _ = repo.MarkProcessed(ctx, "tr_test", "paid")
	mr.FastForward(2 * time.Minute)
	afterTTL, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.True(t, afterTTL)

	require.NoError(t, repo.Release(ctx, "tr_test", "paid"))
	assert.False(t, mr.Exists("webhook:payment:tr_test:paid"))
	released, err := repo.MarkProcessed(ctx, "tr_test", "paid")
	require.NoError(t, err)
	assert.True(t, released)
}

func TestRedisDedup_ServerDown(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisDedupRepo(client, time.Minute)
	mr.Close()

	_, err := repo.MarkProcessed(context.Background(), "tr_test", "paid")
	assert.Error(t, err)
}
