package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*LinkCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLinkCache(client, zap.NewNop()), mr
}

func TestLinkCache_SetGetDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "abcdefg")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "abcdefg", "https://example.com", time.Minute))
	assert.True(t, mr.Exists("link:abcdefg"))

	v, ok, err := c.Get(ctx, "abcdefg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", v)

	require.NoError(t, c.Delete(ctx, "abcdefg"))
	_, ok, err = c.Get(ctx, "abcdefg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinkCache_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short01", "https://example.com", 30*time.Second))
	assert.Equal(t, 30*time.Second, mr.TTL("link:short01"))

	mr.FastForward(31 * time.Second)
	_, ok, err := c.Get(ctx, "short01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinkCache_NonPositiveTTLSkipsWrite(t *testing.T) {
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(context.Background(), "gone000", "https://example.com", 0))
	assert.False(t, mr.Exists("link:gone000"))
}

func TestLinkCache_BackendDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, ok, err := c.Get(context.Background(), "abcdefg")
	assert.Error(t, err)
	assert.False(t, ok)
}
