// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "promptparty_actions"

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ActionQueue appends game actions to a Redis list drained by the historian.
type ActionQueue struct {
	rdb   redis.Cmdable
	queue string
}

// NewActionQueue returns an ActionQueue pushing to queue, or DefaultQueueName when empty.
func NewActionQueue(rdb redis.Cmdable, queue string) *ActionQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionQueue{rdb: rdb, queue: queue}
}

// actionIndexTTL matches the lifetime of the game record itself.
const actionIndexTTL = 24 * time.Hour

func actionIndexKey(gameID uuid.UUID) string {
	return "actions:game:" + gameID.String()
}

// Record numbers the action within its game and pushes it to the queue.
// This does not block the calling logic (other than a quick network send).
func (q *ActionQueue) Record(ctx context.Context, action models.GameAction) error {
	// The counter lives as long as the game keeps changing, like the game record.
	key := actionIndexKey(action.GameID)
	var incr *redis.IntCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, actionIndexTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to number action for game %s: %w", action.GameID, err)
	}
	action.ActionIndex = int(incr.Val())

	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal GameAction: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}
