package xdlock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xlock/pkg/distributed/xdlock"
)

// setupMiniredis 启动 miniredis 并返回基于它的 RedisStore。
func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *xdlock.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := xdlock.NewRedisStore(client)
	require.NoError(t, err)
	return mr, store
}

func TestNewRedisStore_NilClient(t *testing.T) {
	_, err := xdlock.NewRedisStore(nil)
	assert.ErrorIs(t, err, xdlock.ErrNilClient)
}

func TestRedisStore_SetIfAbsent(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	ok, err := store.SetIfAbsent(ctx, "k", "t1", 1500*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, mr.TTL("k"))

	ok, err = store.SetIfAbsent(ctx, "k", "t2", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "t1", v)
}

func TestRedisStore_Get(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mr.Set("k", "v"))
	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRedisStore_DeleteIfEqual(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", "owner"))

	ok, err := store.DeleteIfEqual(ctx, "k", "other")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("k"))

	ok, err = store.DeleteIfEqual(ctx, "k", "owner")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("k"))

	ok, err = store.DeleteIfEqual(ctx, "k", "owner")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ExpireIfEqual(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("k", "owner"))
	mr.SetTTL("k", time.Second)

	ok, err := store.ExpireIfEqual(ctx, "k", "other", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Second, mr.TTL("k"))

	ok, err = store.ExpireIfEqual(ctx, "k", "owner", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, mr.TTL("k"))

	ok, err = store.ExpireIfEqual(ctx, "missing", "owner", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ScriptFallback(t *testing.T) {
	_, store := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, store.WarmupScripts(ctx))
	release, update := xdlock.ScriptHashes()
	exists, err := store.Client().ScriptExists(ctx, release, update).Result()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, exists)

	// 清空脚本缓存后 EVALSHA 返回 NOSCRIPT，应自动回退到 EVAL。
	require.NoError(t, store.Client().ScriptFlush(ctx).Err())

	ok, err := store.SetIfAbsent(ctx, "k", "owner", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.ExpireIfEqual(ctx, "k", "owner", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DeleteIfEqual(ctx, "k", "owner")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	mr, store := setupMiniredis(t)
	ctx := context.Background()
	mr.Close()

	assert.Error(t, store.Ping(ctx))

	_, err := store.SetIfAbsent(ctx, "k", "t", time.Second)
	assert.Error(t, err)
	_, _, err = store.Get(ctx, "k")
	assert.Error(t, err)
	_, err = store.DeleteIfEqual(ctx, "k", "t")
	assert.Error(t, err)
	_, err = store.ExpireIfEqual(ctx, "k", "t", time.Second)
	assert.Error(t, err)
}

func TestScriptHashes(t *testing.T) {
	release, update := xdlock.ScriptHashes()
	assert.Len(t, release, 40)
	assert.Len(t, update, 40)
	assert.NotEqual(t, release, update)
}
