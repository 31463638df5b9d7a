// internal/broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/game"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/redis/go-redis/v9"
)

// Outbound message types.
const (
	TypeGameState = "gamestate_updated"
	TypeRound     = "round_updated"
	TypePlayer    = "player_updated"
	TypeException = "exception"
)

const channelPrefix = "events:game:"

// Message is what a client receives over its socket.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RoundPayload is the payload of a round_updated message.
type RoundPayload struct {
	RoundIndex int          `json:"roundIndex"`
	Round      models.Round `json:"round"`
}

// ExceptionPayload tells a client why its last event was rejected.
type ExceptionPayload struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// envelope travels over Redis pub/sub. A nil Target addresses the whole game room.
type envelope struct {
	Target  uuid.UUID       `json:"target"`
	Message json.RawMessage `json:"message"`
}

// Encode serializes a client message.
func Encode(msgType string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Payload: payload})
}

func channel(gameID uuid.UUID) string { return channelPrefix + gameID.String() }

// gameFromChannel extracts the game id from a pub/sub channel name.
func gameFromChannel(ch string) (uuid.UUID, bool) {
	if !strings.HasPrefix(ch, channelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(ch, channelPrefix))
	return id, err == nil
}

// Publisher sends game updates to every server instance through Redis pub/sub. Each instance's
// Relay hands them to its local sockets.
type Publisher struct {
	rdb redis.Cmdable
}

// NewPublisher returns a Publisher on rdb.
func NewPublisher(rdb redis.Cmdable) *Publisher {
	return &Publisher{rdb: rdb}
}

// GameUpdated sends the redacted game to all players of the game.
func (p *Publisher) GameUpdated(ctx context.Context, gameID uuid.UUID, view game.GameView) error {
	return p.publish(ctx, gameID, uuid.Nil, TypeGameState, view)
}

// RoundUpdated sends a redacted round to all players of the game.
func (p *Publisher) RoundUpdated(ctx context.Context, gameID uuid.UUID, roundIdx int, round models.Round) error {
	return p.publish(ctx, gameID, uuid.Nil, TypeRound, RoundPayload{RoundIndex: roundIdx, Round: round})
}

// PlayerUpdated sends a player their own record, hand included.
func (p *Publisher) PlayerUpdated(ctx context.Context, gameID uuid.UUID, player models.Player) error {
	return p.publish(ctx, gameID, player.ID, TypePlayer, player)
}

func (p *Publisher) publish(ctx context.Context, gameID, target uuid.UUID, msgType string, payload interface{}) error {
	msg, err := Encode(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	data, err := json.Marshal(envelope{Target: target, Message: msg})
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, channel(gameID), data).Err(); err != nil {
		return fmt.Errorf("publish %s for game %s: %w", msgType, gameID, err)
	}
	return nil
}
