package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cached struct {
	ID    string `json:"id"`
	Views int64  `json:"views"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	c, err := New(context.Background(), "redis://"+s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestCache_SetGetDelete(t *testing.T) {
	c, s := newCache(t)
	ctx := context.Background()

	var out cached
	hit, err := c.Get(ctx, "event:1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "event:1", cached{ID: "1", Views: 7}, time.Minute))
	assert.True(t, s.Exists("ewm:event:1"), "keys are namespaced")

	hit, err = c.Get(ctx, "event:1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, cached{ID: "1", Views: 7}, out)

	require.NoError(t, c.Delete(ctx, "event:1", "event:2"))
	assert.False(t, s.Exists("ewm:event:1"))
	require.NoError(t, c.Delete(ctx))
}

func TestCache_TTLExpires(t *testing.T) {
	c, s := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "event:1", cached{ID: "1"}, time.Minute))
	s.FastForward(2 * time.Minute)

	var out cached
	hit, err := c.Get(ctx, "event:1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCache_CorruptEntryIsAMiss(t *testing.T) {
	c, s := newCache(t)
	require.NoError(t, s.Set("ewm:event:1", "{not json"))

	var out cached
	hit, err := c.Get(context.Background(), "event:1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, s.Exists("ewm:event:1"))
}

func TestCache_BackendDown(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1}))
	defer c.Close()
	s.Close()

	var out cached
	_, err = c.Get(context.Background(), "event:1", &out)
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), "not-a-url")
	assert.Error(t, err)
}
