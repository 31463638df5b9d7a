// internal/presence/presence.go
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a lease lives without being renewed.
const DefaultTTL = 30 * time.Second

// Lock is a per-player lease in Redis that marks a player as connected. A live lease blocks a
// second connection for the same player; it lapses on its own when renewals stop.
type Lock struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// New returns a Lock whose leases live for ttl.
func New(rdb redis.Cmdable, ttl time.Duration) *Lock {
	return &Lock{rdb: rdb, ttl: ttl}
}

func key(playerID uuid.UUID) string { return "user-active:" + playerID.String() }

// Acquire takes (create) or renews the player's lease. Taking fails when a lease is already
// held; renewing fails when the lease has lapsed.
func (l *Lock) Acquire(ctx context.Context, playerID uuid.UUID, create bool) (bool, error) {
	var cmd *redis.BoolCmd
	if create {
		cmd = l.rdb.SetNX(ctx, key(playerID), "locked", l.ttl)
	} else {
		cmd = l.rdb.SetXX(ctx, key(playerID), "locked", l.ttl)
	}
	ok, err := cmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("presence lease for %s: %w", playerID, err)
	}
	return ok, nil
}

// Release drops the lease. It reports whether a lease existed.
func (l *Lock) Release(ctx context.Context, playerID uuid.UUID) (bool, error) {
	n, err := l.rdb.Del(ctx, key(playerID)).Result()
	if err != nil {
		return false, fmt.Errorf("release presence for %s: %w", playerID, err)
	}
	return n > 0, nil
}

// IsHeld reports whether the player currently has a live lease.
func (l *Lock) IsHeld(ctx context.Context, playerID uuid.UUID) (bool, error) {
	n, err := l.rdb.Exists(ctx, key(playerID)).Result()
	if err != nil {
		return false, fmt.Errorf("check presence for %s: %w", playerID, err)
	}
	return n == 1, nil
}
