package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "login-front:attempt:abc", redisKey("abc"))
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "", "", 0)
	assert.Error(t, err)
}

// Runs against a real server when LOGIN_FRONT_TEST_REDIS_ADDR is set
func TestRedisStore_PutTake(t *testing.T) {
	addr := os.Getenv("LOGIN_FRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LOGIN_FRONT_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	id := "test-" + time.Now().Format("150405.000000000")
	attempt := newAttempt(id, time.Now(), time.Minute)

	require.NoError(t, store.Put(ctx, attempt))
	assert.ErrorIs(t, store.Put(ctx, attempt), ErrAttemptExists)

	got, err := store.Take(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, attempt.AppID, got.AppID)
	assert.Equal(t, attempt.PageQuery, got.PageQuery)

	_, err = store.Take(ctx, id)
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}
