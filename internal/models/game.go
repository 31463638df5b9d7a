package models

import "github.com/google/uuid"

type GameStatus string

const (
	GameCreated GameStatus = "created"
	GameRunning GameStatus = "running"
	GameEnded   GameStatus = "ended"
)

// Timeouts are the per-phase round durations in seconds.
type Timeouts struct {
	Playing       int `json:"playing"`
	Revealing     int `json:"revealing"`
	Judging       int `json:"judging"`
	BetweenRounds int `json:"betweenRounds"`
}

// Seconds returns the configured duration of a phase in seconds.
func (t Timeouts) Seconds(p Phase) int {
	switch p {
	case PhasePlaying:
		return t.Playing
	case PhaseRevealing:
		return t.Revealing
	case PhaseJudging:
		return t.Judging
	case PhaseBetweenRounds:
		return t.BetweenRounds
	}
	return 0
}

// DiscardRule lets players throw away response cards (and judges the prompt) at a point cost.
type DiscardRule struct {
	Enabled bool `json:"enabled"`
	Penalty int  `json:"penalty"`
}

// SpecialRules are the optional rule toggles chosen at game creation.
type SpecialRules struct {
	// AIPlayers is the number of AI filler players that submit random cards every round.
	AIPlayers  int         `json:"aiPlayers"`
	Discarding DiscardRule `json:"discarding"`
	// PickExtra hands players one extra card for multi-pick prompts.
	PickExtra bool `json:"pickExtra"`
}

type Game struct {
	ID           uuid.UUID    `json:"id"`
	Status       GameStatus   `json:"status"`
	Packs        []string     `json:"packs"`
	Timeouts     Timeouts     `json:"timeouts"`
	HandSize     int          `json:"handSize"`
	WinnerPoints int          `json:"winnerPoints"` // 0 disables the point threshold
	HasPassword  bool         `json:"hasPassword"`
	Password     string       `json:"password,omitempty"`
	Rules        SpecialRules `json:"rules"`
}

// GameState is the full record persisted under game:<id>.
type GameState struct {
	Game    Game     `json:"game"`
	Piles   Piles    `json:"piles"`
	Players []Player `json:"players"`
	Rounds  []Round  `json:"rounds"`
}

// Clone returns a deep copy; mutating the copy never affects the receiver.
func (s GameState) Clone() GameState {
	out := GameState{
		Game:  s.Game,
		Piles: s.Piles.Clone(),
	}
	out.Game.Packs = cloneSlice(s.Game.Packs)
	if s.Players != nil {
		out.Players = make([]Player, len(s.Players))
		for i, p := range s.Players {
			out.Players[i] = p.Clone()
		}
	}
	if s.Rounds != nil {
		out.Rounds = make([]Round, len(s.Rounds))
		for i, r := range s.Rounds {
			out.Rounds[i] = r.Clone()
		}
	}
	return out
}

// Player returns the index of the player with the given id, or -1.
func (s GameState) Player(id uuid.UUID) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// CurrentRound returns the index of the most recent round, or -1 if none exist.
func (s GameState) CurrentRound() int {
	return len(s.Rounds) - 1
}
