package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "notify:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, "notify:1", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	seen, err := store.IsProcessed(ctx, "notify:1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.IsProcessed(ctx, "notify:2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestInMemoryIdempotencyStore_Release(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	ok, err := store.MarkProcessed(ctx, "notify:1", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "notify:1"))
	require.NoError(t, store.Release(ctx, "never-claimed"))

	ok, err = store.MarkProcessed(ctx, "notify:1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ok, _ := store.MarkProcessed(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	seen, _ := store.IsProcessed(ctx, "k")
	assert.False(t, seen)

	store.removeExpired()
	assert.Zero(t, store.Size())

	ok, _ = store.MarkProcessed(ctx, "k", time.Minute)
	assert.True(t, ok)
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.MarkProcessed(context.Background(), "same", time.Hour); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore_FallsBackWithoutRedis(t *testing.T) {
	store := NewIdempotencyStore(nil, zap.NewNop())
	defer store.Close()
	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)
}
