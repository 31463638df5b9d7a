package models

import "github.com/google/uuid"

type Player struct {
	ID       uuid.UUID      `json:"id"`
	Nickname string         `json:"nickname"`
	Points   int            `json:"points"`
	IsActive bool           `json:"isActive"`
	IsHost   bool           `json:"isHost"`
	IsAI     bool           `json:"isAI"`
	Hand     []ResponseCard `json:"hand,omitempty"`

	// ConnID identifies the live connection currently bound to this player, if any.
	ConnID string `json:"connId,omitempty"`
}

// Clone returns a copy of the player with its own hand slice.
func (p Player) Clone() Player {
	p.Hand = cloneSlice(p.Hand)
	return p
}
