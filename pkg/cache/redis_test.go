package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anyArgs(_, _ []interface{}) error { return nil }

func newMockRedis(t *testing.T) (*RedisCache, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	rc := newRedisCache(db, "kangbo")
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mock
}

func TestRedisCacheGet(t *testing.T) {
	rc, mock := newMockRedis(t)
	ctx := context.Background()

	mock.ExpectGet("kangbo:series:TSLA").SetVal(`[{"day":"2024-06-03","close":177.5}]`)
	mock.ExpectGet("kangbo:series:BABA").RedisNil()

	var pts []point
	require.NoError(t, rc.Get(ctx, "series:TSLA", &pts))
	assert.Equal(t, []point{{Day: "2024-06-03", Close: 177.5}}, pts)

	assert.ErrorIs(t, rc.Get(ctx, "series:BABA", &pts), ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheLockIsTokenOwned(t *testing.T) {
	rc, mock := newMockRedis(t)
	ctx := context.Background()

	mock.CustomMatch(anyArgs).ExpectSetNX("kangbo:lock:pipeline", "token", time.Minute).SetVal(true)
	mock.CustomMatch(anyArgs).ExpectEvalSha(releaseScript.Hash(), []string{"kangbo:lock:pipeline"}, "token").SetVal(int64(1))

	ok, err := rc.TryLock(ctx, "lock:pipeline", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, rc.Unlock(ctx, "lock:pipeline"))

	assert.ErrorIs(t, rc.Unlock(ctx, "lock:pipeline"), ErrNotHeld, "second release has no token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheUnlockAfterTakeover(t *testing.T) {
	rc, mock := newMockRedis(t)
	ctx := context.Background()

	mock.CustomMatch(anyArgs).ExpectSetNX("kangbo:lock:pipeline", "token", time.Second).SetVal(true)
	mock.CustomMatch(anyArgs).ExpectEvalSha(releaseScript.Hash(), []string{"kangbo:lock:pipeline"}, "token").SetVal(int64(0))

	ok, err := rc.TryLock(ctx, "lock:pipeline", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.ErrorIs(t, rc.Unlock(ctx, "lock:pipeline"), ErrNotHeld)
}

func TestRedisCacheLockContended(t *testing.T) {
	rc, mock := newMockRedis(t)

	mock.CustomMatch(anyArgs).ExpectSetNX("kangbo:lock:pipeline", "token", time.Minute).SetVal(false)

	ok, err := rc.TryLock(context.Background(), "lock:pipeline", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, rc.Unlock(context.Background(), "lock:pipeline"), ErrNotHeld)
}

func TestLayeredCacheDegradesOnRedisErrors(t *testing.T) {
	rc, mock := newMockRedis(t)
	lc := &LayeredCache{l1: NewMemoryCache(), l2: rc, l1TTL: time.Minute}
	t.Cleanup(func() { _ = lc.l1.Close() })
	ctx := context.Background()

	down := errors.New("connection refused")
	mock.CustomMatch(anyArgs).ExpectSet("kangbo:k", "v", time.Hour).SetErr(down)
	mock.ExpectGet("kangbo:other").SetErr(down)

	err := lc.Set(ctx, "k", 42, time.Hour)
	require.ErrorIs(t, err, down)

	var v int
	require.NoError(t, lc.Get(ctx, "k", &v), "memory layer still holds the value")
	assert.Equal(t, 42, v)

	assert.ErrorIs(t, lc.Get(ctx, "other", &v), ErrCacheMiss)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLayeredCachePromotesRedisHits(t *testing.T) {
	rc, mock := newMockRedis(t)
	lc := &LayeredCache{l1: NewMemoryCache(), l2: rc, l1TTL: time.Minute}
	t.Cleanup(func() { _ = lc.l1.Close() })
	ctx := context.Background()

	mock.ExpectGet("kangbo:k").SetVal("7")

	var v int
	require.NoError(t, lc.Get(ctx, "k", &v))
	require.NoError(t, lc.Get(ctx, "k", &v))
	assert.Equal(t, 7, v)
	assert.NoError(t, mock.ExpectationsWereMet(), "second read is served from memory")
}
