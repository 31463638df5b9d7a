package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := New(rdb, DefaultTTL)
	ctx := context.Background()
	player := uuid.New()

	ok, err := l.Acquire(ctx, player, false)
	require.NoError(t, err)
	assert.False(t, ok, "cannot renew a lease that was never taken")

	ok, err = l.Acquire(ctx, player, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultTTL, mr.TTL(key(player)))

	ok, err = l.Acquire(ctx, player, true)
	require.NoError(t, err)
	assert.False(t, ok, "second connection is refused")

	mr.FastForward(20 * time.Second)
	ok, err = l.Acquire(ctx, player, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultTTL, mr.TTL(key(player)), "renewal resets the lease")

	held, err := l.IsHeld(ctx, player)
	require.NoError(t, err)
	assert.True(t, held)

	mr.FastForward(DefaultTTL + time.Second)
	held, err = l.IsHeld(ctx, player)
	require.NoError(t, err)
	assert.False(t, held, "lease lapses without renewal")

	ok, err = l.Acquire(ctx, player, true)
	require.NoError(t, err)
	assert.True(t, ok)

	released, err := l.Release(ctx, player)
	require.NoError(t, err)
	assert.True(t, released)
	released, err = l.Release(ctx, player)
	require.NoError(t, err)
	assert.False(t, released)
}
