package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Relay subscribes to the game channels of every game and feeds the local hub.
type Relay struct {
	rdb    *redis.Client
	hub    *Hub
	logger logrus.FieldLogger
	ready  chan struct{}
}

// NewRelay returns a relay for hub.
func NewRelay(rdb *redis.Client, hub *Hub, logger logrus.FieldLogger) *Relay {
	return &Relay{rdb: rdb, hub: hub, logger: logger, ready: make(chan struct{})}
}

// Ready is closed once the subscription is active.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run relays messages until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to game events: %w", err)
	}
	close(r.ready)
	r.logger.Info("game event relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg)
		}
	}
}

func (r *Relay) forward(msg *redis.Message) {
	gameID, ok := gameFromChannel(msg.Channel)
	if !ok {
		r.logger.WithField("channel", msg.Channel).Warn("ignoring message on unknown channel")
		return
	}
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.logger.WithError(err).WithField("game", gameID).Warn("ignoring malformed event")
		return
	}
	r.hub.Deliver(gameID, env.Target, env.Message)
}
