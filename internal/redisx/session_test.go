package redisx

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop/internal/cart"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestSessions_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	s := &Sessions{RDB: rdb, TTL: time.Hour}

	c, err := cart.Open(ctx, s.Handle("sid-1"))
	require.NoError(t, err)
	require.NoError(t, c.Add(ctx, "p1", decimal.RequireFromString("1.80"), 2))

	key := fmt.Sprintf(KeySessionCart, "sid-1")
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Hour, mr.TTL(key))

	again, err := cart.Open(ctx, s.Handle("sid-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, again.Quantity("p1"))
	assert.True(t, again.Total().Equal(decimal.RequireFromString("3.60")))

	other, err := cart.Open(ctx, s.Handle("sid-2"))
	require.NoError(t, err)
	assert.True(t, other.Empty())

	require.NoError(t, again.Clear(ctx))
	assert.False(t, mr.Exists(key))
}

func TestSessions_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	s := &Sessions{RDB: rdb, TTL: time.Minute}

	c, err := cart.Open(ctx, s.Handle("sid"))
	require.NoError(t, err)
	require.NoError(t, c.Add(ctx, "p1", decimal.NewFromInt(1), 1))

	mr.FastForward(2 * time.Minute)

	c, err = cart.Open(ctx, s.Handle("sid"))
	require.NoError(t, err)
	assert.True(t, c.Empty())
}

func TestClaim(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)

	ok, err := Claim(ctx, rdb, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Claim(ctx, rdb, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, time.Minute, mr.TTL("k"))
}
