// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound    = errors.New("game not found")
	ErrExists      = errors.New("game already exists")
	ErrLockTimeout = errors.New("timed out waiting for the game lock")
	ErrMissingID   = errors.New("game state has no id")
)

// Options tune the game lock and record expiry.
type Options struct {
	LockExpiry     time.Duration
	LockTries      int
	LockRetryDelay time.Duration
	TTL            time.Duration
}

// DefaultOptions match a 3s lock and a 24h record lifetime.
var DefaultOptions = Options{
	LockExpiry:     3 * time.Second,
	LockTries:      32,
	LockRetryDelay: 100 * time.Millisecond,
	TTL:            24 * time.Hour,
}

// Store keeps one JSON record per game in Redis. Transact is the only way to change a stored game.
type Store struct {
	rdb    redis.UniversalClient
	rs     *redsync.Redsync
	opts   Options
	logger logrus.FieldLogger
}

// New returns a Store backed by rdb.
func New(rdb redis.UniversalClient, opts Options, logger logrus.FieldLogger) *Store {
	return &Store{
		rdb:    rdb,
		rs:     redsync.New(goredis.NewPool(rdb)),
		opts:   opts,
		logger: logger,
	}
}

func gameKey(id uuid.UUID) string { return "game:" + id.String() }
func lockKey(id uuid.UUID) string { return "lock:game:" + id.String() }

// Get loads a game without locking it.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (models.GameState, error) {
	data, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.GameState{}, ErrNotFound
	}
	if err != nil {
		return models.GameState{}, fmt.Errorf("get game %s: %w", id, err)
	}
	var state models.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.GameState{}, fmt.Errorf("decode game %s: %w", id, err)
	}
	return state, nil
}

// Create writes a new game. It fails with ErrExists if the id is already taken.
func (s *Store) Create(ctx context.Context, state models.GameState) error {
	if state.Game.ID == uuid.Nil {
		return ErrMissingID
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", state.Game.ID, err)
	}
	ok, err := s.rdb.SetNX(ctx, gameKey(state.Game.ID), data, s.opts.TTL).Result()
	if err != nil {
		return fmt.Errorf("create game %s: %w", state.Game.ID, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Transact runs fn on the current state of a game while holding the game's lock and persists
// what fn returns. Nothing is written when fn fails. The lock is always released.
func (s *Store) Transact(ctx context.Context, id uuid.UUID, fn func(models.GameState) (models.GameState, error)) (models.GameState, error) {
	log := s.logger.WithField("game", id)

	mutex := s.rs.NewMutex(lockKey(id),
		redsync.WithExpiry(s.opts.LockExpiry),
		redsync.WithTries(s.opts.LockTries),
		redsync.WithRetryDelay(s.opts.LockRetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return models.GameState{}, ctx.Err()
		}
		return models.GameState{}, fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	log.Debug("holding game lock")
	defer func() {
		// The unlock must run even when the caller's context is done.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			log.WithError(err).Warn("game lock expired before release")
		}
	}()

	prev, err := s.Get(ctx, id)
	if err != nil {
		return models.GameState{}, err
	}
	next, err := fn(prev)
	if err != nil {
		return prev, err
	}
	if next.Game.ID == uuid.Nil {
		return prev, ErrMissingID
	}

	data, err := json.Marshal(next)
	if err != nil {
		return prev, fmt.Errorf("encode game %s: %w", id, err)
	}
	ok, err := s.rdb.SetXX(ctx, gameKey(id), data, s.opts.TTL).Result()
	if err != nil {
		return prev, fmt.Errorf("write game %s: %w", id, err)
	}
	if !ok {
		return prev, ErrNotFound
	}
	return next, nil
}
