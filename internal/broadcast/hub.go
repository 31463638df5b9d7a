package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Client is one local socket of a player. The socket's writer drains Send.
type Client struct {
	GameID   uuid.UUID
	PlayerID uuid.UUID
	Send     chan []byte
}

// Hub tracks the sockets connected to this server instance, grouped by game.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Client]struct{}
	logger logrus.FieldLogger
}

// NewHub returns an empty hub.
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*Client]struct{}), logger: logger}
}

// Register adds a socket for the player and returns its client.
func (h *Hub) Register(gameID, playerID uuid.UUID, buffer int) *Client {
	c := &Client{GameID: gameID, PlayerID: playerID, Send: make(chan []byte, buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[gameID] = room
	}
	room[c] = struct{}{}
	return c
}

// Unregister removes the client and closes its Send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.GameID]
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.Send)
	if len(room) == 0 {
		delete(h.rooms, c.GameID)
	}
}

// Deliver queues msg for every local socket of the game, or only for target's sockets when
// target is set. A socket whose queue is full misses the message.
func (h *Hub) Deliver(gameID, target uuid.UUID, msg []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.rooms[gameID] {
		if target != uuid.Nil && c.PlayerID != target {
			continue
		}
		select {
		case c.Send <- msg:
			n++
		default:
			h.logger.WithFields(logrus.Fields{"game": gameID, "player": c.PlayerID}).Warn("dropping message for slow socket")
		}
	}
	return n
}

// Size returns the number of local sockets in a game.
func (h *Hub) Size(gameID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}
