// internal/game/game.go
package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
)

// NewGameState builds the record for a freshly created game: status created, the host as its
// only human player and the requested number of AI fillers.
func (e *Engine) NewGameState(opts Options, hostNickname string) (models.GameState, error) {
	if err := opts.Validate(); err != nil {
		return models.GameState{}, err
	}
	if strings.TrimSpace(hostNickname) == "" {
		return models.GameState{}, ErrMissingNickname
	}
	opts = opts.withDefaults()
	for _, abbr := range opts.Packs {
		if _, ok := e.Packs.Pack(abbr); !ok {
			return models.GameState{}, fmt.Errorf("%w: %q", ErrUnknownPack, abbr)
		}
	}

	s := models.GameState{
		Game: models.Game{
			ID:           e.NewID(),
			Status:       models.GameCreated,
			Packs:        append([]string(nil), opts.Packs...),
			Timeouts:     opts.Timeouts,
			HandSize:     opts.HandSize,
			WinnerPoints: *opts.WinnerPoints,
			HasPassword:  opts.PasswordHash != "",
			Password:     opts.PasswordHash,
			Rules:        opts.Rules,
		},
		Players: []models.Player{{
			ID:       e.NewID(),
			Nickname: strings.TrimSpace(hostNickname),
			IsActive: false,
			IsHost:   true,
		}},
		Rounds: []models.Round{},
	}
	for i := 0; i < opts.Rules.AIPlayers; i++ {
		name := aiNickname
		if i > 0 {
			name = fmt.Sprintf("%s %d", aiNickname, i+1)
		}
		s.Players = append(s.Players, models.Player{
			ID:       e.NewID(),
			Nickname: name,
			IsActive: true,
			IsAI:     true,
		})
	}
	return s, nil
}

// AddPlayer appends a new human player. Players connect later, so they start inactive.
func (e *Engine) AddPlayer(state models.GameState, nickname string) (models.GameState, models.Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return state, models.Player{}, ErrMissingNickname
	}
	if state.Game.Status == models.GameEnded {
		return state, models.Player{}, ErrGameEnded
	}
	for _, p := range state.Players {
		if strings.EqualFold(p.Nickname, nickname) {
			return state, models.Player{}, ErrNicknameTaken
		}
	}
	s := state.Clone()
	p := models.Player{ID: e.NewID(), Nickname: nickname}
	s.Players = append(s.Players, p)
	return s, p, nil
}

// StartGame deals the piles and opens the first round.
func (e *Engine) StartGame(state models.GameState) (models.GameState, error) {
	if state.Game.Status != models.GameCreated {
		return state, ErrGameNotJoinable
	}
	s := state.Clone()
	humans := len(activeHumans(&s))
	if humans < 2 || activeCount(&s) < 3 {
		return state, ErrNotEnoughPlayers
	}

	piles, err := e.BuildPiles(s.Game.Packs, s.Game.Rules.PickExtra)
	if err != nil {
		return state, err
	}
	worstHand := s.Game.HandSize + maxDraw(piles.Prompts)
	if len(piles.Prompts) == 0 || len(piles.Responses) < humans*worstHand {
		return state, ErrNotEnoughPacks
	}
	s.Piles = piles

	// Seating decides the judge rotation, so it is shuffled once here.
	e.Shuffle(len(s.Players), func(i, j int) { s.Players[i], s.Players[j] = s.Players[j], s.Players[i] })
	for i := range s.Players {
		s.Players[i].Hand = nil
		s.Players[i].Points = 0
	}
	s.Game.Status = models.GameRunning
	return e.NewRound(s)
}

// NewRound opens the next round: picks the judge, draws a prompt and refills hands.
func (e *Engine) NewRound(state models.GameState) (models.GameState, error) {
	if state.Game.Status != models.GameRunning {
		return state, ErrGameNotRunning
	}
	for _, r := range state.Rounds {
		if r.Status != models.RoundEnded {
			return state, ErrRoundStillOpen
		}
	}
	s := state.Clone()
	humans := activeHumans(&s)
	if len(humans) < 2 {
		return state, ErrNotEnoughPlayers
	}

	prompt, ok := e.drawPrompt(&s, false)
	if !ok {
		return state, ErrNotEnoughPacks
	}
	round := models.Round{
		JudgeID:     s.Players[humans[len(s.Rounds)%len(humans)]].ID,
		Status:      models.RoundCreated,
		Prompt:      prompt,
		Submissions: []models.Submission{},
		Discard:     []models.Submission{},
	}
	round.Deadlines.Set(models.PhasePlaying, e.deadline(s.Game.Timeouts.Playing))

	e.refillHands(&s, nonJudgeHumans(&s, &round), handTarget(&s, prompt))
	s.Rounds = append(s.Rounds, round)
	return s, nil
}

// EndGame closes every round and the game itself.
func (e *Engine) EndGame(state models.GameState) (models.GameState, error) {
	if state.Game.Status == models.GameEnded {
		return state, ErrGameEnded
	}
	s := state.Clone()
	for i := range s.Rounds {
		s.Rounds[i].Status = models.RoundEnded
	}
	if r := s.CurrentRound(); r >= 0 {
		s.Rounds[r].Deadlines.Unset(models.PhaseBetweenRounds)
	}
	s.Game.Status = models.GameEnded
	return s, nil
}

// JoinPlayer marks a player as connected. A player joining a running game gets their hand
// topped up so they can take part in the open round.
func (e *Engine) JoinPlayer(state models.GameState, playerID uuid.UUID, connID string) (models.GameState, error) {
	idx := state.Player(playerID)
	if idx < 0 {
		return state, ErrPlayerNotFound
	}
	if state.Game.Status == models.GameEnded {
		return state, ErrGameEnded
	}
	s := state.Clone()
	p := &s.Players[idx]
	p.IsActive = true
	p.ConnID = connID

	if s.Game.Status == models.GameRunning && !p.IsAI {
		if r := s.CurrentRound(); r >= 0 && s.Rounds[r].JudgeID != playerID {
			e.refillHands(&s, []int{idx}, handTarget(&s, s.Rounds[r].Prompt))
		}
	}
	return s, nil
}

// LeavePlayer marks a player as disconnected. The connection handle is only cleared when it
// still belongs to the closing connection, so a fast reconnect is not undone.
func (e *Engine) LeavePlayer(state models.GameState, playerID uuid.UUID, connID string) (models.GameState, error) {
	idx := state.Player(playerID)
	if idx < 0 {
		return state, ErrPlayerNotFound
	}
	s := state.Clone()
	p := &s.Players[idx]
	if connID != "" && p.ConnID != "" && p.ConnID != connID {
		return s, nil
	}
	p.IsActive = false
	p.ConnID = ""
	return s, nil
}

// DeactivatePlayers marks the given human players inactive, e.g. after their presence lease
// lapsed without an explicit disconnect.
func (e *Engine) DeactivatePlayers(state models.GameState, ids []uuid.UUID) (models.GameState, error) {
	s := state.Clone()
	for _, id := range ids {
		if idx := s.Player(id); idx >= 0 && !s.Players[idx].IsAI {
			s.Players[idx].IsActive = false
			s.Players[idx].ConnID = ""
		}
	}
	return s, nil
}

// WinnerReached reports whether any player has met the game's point threshold.
func WinnerReached(s models.GameState) bool {
	if s.Game.WinnerPoints <= 0 {
		return false
	}
	for _, p := range s.Players {
		if p.Points >= s.Game.WinnerPoints {
			return true
		}
	}
	return false
}

// IsHost reports whether the player hosts the game.
func IsHost(s models.GameState, playerID uuid.UUID) bool {
	idx := s.Player(playerID)
	return idx >= 0 && s.Players[idx].IsHost
}

// IsJudge reports whether the player judges the given round.
func IsJudge(s models.GameState, roundIdx int, playerID uuid.UUID) bool {
	return roundIdx >= 0 && roundIdx < len(s.Rounds) && s.Rounds[roundIdx].JudgeID == playerID
}
