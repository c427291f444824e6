package library

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisStorage connects to the server named by BIBLIOFLOW_TEST_REDIS_ADDR or
// skips the test.
func redisStorage(t *testing.T) *RedisStorage {
	t.Helper()
	addr := os.Getenv("BIBLIOFLOW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BIBLIOFLOW_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := NewRedisClient(ctx, addr, os.Getenv("BIBLIOFLOW_TEST_REDIS_PASSWORD"))
	require.NoError(t, err)
	s := NewRedisStorage(rdb)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStorage_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := redisStorage(t)
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(context.Background(), key) })

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, "dark"))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorage_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := redisStorage(t)
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(context.Background(), key) })

	changes, err := s.Watch(ctx, key)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, key, "v1"))
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after set")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
