// internal/game/sync_state.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
)

// PlayerView is what every participant sees of a player: no hand, no connection handle.
type PlayerView struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
	Points   int       `json:"points"`
	IsActive bool      `json:"isActive"`
	IsHost   bool      `json:"isHost"`
	IsAI     bool      `json:"isAI"`
	HandSize int       `json:"handSize"`
}

// GameView is the redacted game state broadcast to a whole game room.
type GameView struct {
	Game    models.Game    `json:"game"`
	Players []PlayerView   `json:"players"`
	Rounds  []models.Round `json:"rounds"`
}

// redactedCard replaces the face of a card nobody may see yet.
var redactedCard = models.ResponseCard{Type: models.CardRedacted}

// StripGameState projects a full state for broadcasting to all participants.
func StripGameState(s models.GameState) GameView {
	v := GameView{
		Game:    s.Game,
		Players: make([]PlayerView, len(s.Players)),
		Rounds:  make([]models.Round, len(s.Rounds)),
	}
	v.Game.Password = ""
	v.Game.Packs = append([]string(nil), s.Game.Packs...)
	for i, p := range s.Players {
		v.Players[i] = PlayerView{
			ID:       p.ID,
			Nickname: p.Nickname,
			Points:   p.Points,
			IsActive: p.IsActive,
			IsHost:   p.IsHost,
			IsAI:     p.IsAI,
			HandSize: len(p.Hand),
		}
	}
	for i, r := range s.Rounds {
		v.Rounds[i] = StripRound(r)
	}
	return v
}

// StripRound hides what players may not know yet. While a round is open, unrevealed
// submissions lose their card faces and no submission reveals its author, either by id or by
// submission time. Ended rounds are returned unchanged.
func StripRound(r models.Round) models.Round {
	out := r.Clone()
	if r.Status == models.RoundEnded {
		return out
	}
	for i := range out.Submissions {
		sub := &out.Submissions[i]
		sub.PlayerID = uuid.Nil
		sub.Timestamp = time.Time{}
		if sub.IsRevealed {
			continue
		}
		for j := range sub.Cards {
			sub.Cards[j] = redactedCard
		}
	}
	return out
}

// StripPlayer returns the player record sent to that player only: their own hand, without the
// connection handle.
func StripPlayer(p models.Player) models.Player {
	out := p.Clone()
	out.ConnID = ""
	if out.Hand == nil {
		out.Hand = []models.ResponseCard{}
	}
	return out
}
