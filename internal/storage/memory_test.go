package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgellow/login-front/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttempt(id string, now time.Time, ttl time.Duration) Attempt {
	return Attempt{
		ID:        id,
		AppID:     "1234",
		PageQuery: "next=%2Fdashboard",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryStore_PutTake(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	attempt := newAttempt("a1", time.Now(), time.Minute)

	require.NoError(t, store.Put(ctx, attempt))
	assert.ErrorIs(t, store.Put(ctx, attempt), ErrAttemptExists)

	got, err := store.Take(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, got.ID)
	assert.Equal(t, attempt.PageQuery, got.PageQuery)

	_, err = store.Take(ctx, "a1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	_, err = store.Take(ctx, "never-stored")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	start := time.Now()
	store.now = func() time.Time { return start }

	require.NoError(t, store.Put(ctx, newAttempt("old", start, time.Minute)))
	require.NoError(t, store.Put(ctx, newAttempt("fresh", start, time.Hour)))
	require.NoError(t, store.Put(ctx, newAttempt("stale", start, time.Minute)))

	store.now = func() time.Time { return start.Add(2 * time.Minute) }

	_, err := store.Take(ctx, "stale")
	assert.ErrorIs(t, err, ErrAttemptNotFound)

	removed, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, err = store.Take(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryStore_TakeOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, newAttempt("race", time.Now(), time.Minute)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, "race"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(context.Background(), config.StorageConfig{Kind: config.StorageKindMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = NewStore(context.Background(), config.StorageConfig{Kind: "etcd"})
	assert.Error(t, err)

	_, err = NewStore(context.Background(), config.StorageConfig{Kind: config.StorageKindRedis})
	assert.Error(t, err)
}

type countingStore struct {
	*MemoryStore
	calls atomic.Int32
}

func (c *countingStore) CleanupExpired(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return c.MemoryStore.CleanupExpired(ctx)
}

func TestCleanupManager(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	cm := NewCleanupManager(store, 10*time.Millisecond)

	cm.Start(context.Background())
	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cm.Stop()

	after := store.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, store.calls.Load())
}

func TestCleanupManager_StopIdempotent(t *testing.T) {
	cm := NewCleanupManager(NewMemoryStore(), time.Minute)
	assert.NotPanics(t, func() {
		cm.Stop()
		cm.Stop()
	})
}
