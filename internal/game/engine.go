// internal/game/engine.go
package game

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
)

// PackSource resolves pack abbreviations to their card lists.
type PackSource interface {
	Pack(abbr string) (models.Pack, bool)
}

// Engine implements every game and round transition as a function from one GameState to the
// next. It performs no I/O. Each operation works on a deep copy of its input, so a caller's
// state is left untouched whether the transition succeeds or is rejected.
type Engine struct {
	Packs   PackSource
	Now     func() time.Time
	Shuffle func(n int, swap func(i, j int))
	NewID   func() uuid.UUID
}

// NewEngine returns an engine using wall-clock time and the global random source.
func NewEngine(packs PackSource) *Engine {
	return &Engine{
		Packs:   packs,
		Now:     time.Now,
		Shuffle: rand.Shuffle,
		NewID:   uuid.New,
	}
}

func (e *Engine) deadline(seconds int) time.Time {
	return e.Now().Add(time.Duration(seconds) * time.Second)
}

// activeHumans returns the indices of active, non-AI players in seating order.
func activeHumans(s *models.GameState) []int {
	var idx []int
	for i, p := range s.Players {
		if p.IsActive && !p.IsAI {
			idx = append(idx, i)
		}
	}
	return idx
}

func activeCount(s *models.GameState) int {
	n := 0
	for _, p := range s.Players {
		if p.IsActive {
			n++
		}
	}
	return n
}

// drawPrompt takes the next prompt and puts it straight onto the prompt discard, so a later
// prompt discard by the judge always yields a different card. When holdCurrent is set the
// newest discarded prompt (the one in play) is kept out of a reshuffle.
func (e *Engine) drawPrompt(s *models.GameState, holdCurrent bool) (models.PromptCard, bool) {
	if len(s.Piles.Prompts) == 0 {
		recycle := s.Piles.DiscardedPrompts
		var held []models.PromptCard
		if holdCurrent && len(recycle) > 0 {
			held = []models.PromptCard{recycle[len(recycle)-1]}
			recycle = recycle[:len(recycle)-1]
		}
		pile := append([]models.PromptCard(nil), recycle...)
		e.Shuffle(len(pile), func(i, j int) { pile[i], pile[j] = pile[j], pile[i] })
		s.Piles.Prompts = pile
		s.Piles.DiscardedPrompts = held
	}
	if len(s.Piles.Prompts) == 0 {
		return models.PromptCard{}, false
	}
	prompt := s.Piles.Prompts[0]
	s.Piles.Prompts = s.Piles.Prompts[1:]
	s.Piles.DiscardedPrompts = append(s.Piles.DiscardedPrompts, prompt)
	return prompt, true
}

// ensureResponses makes sure at least n response cards are on the live pile, shuffling the
// discards back in if needed. Cards still shown in the open round stay on the discard pile.
func (e *Engine) ensureResponses(s *models.GameState, n int) {
	if len(s.Piles.Responses) >= n || len(s.Piles.DiscardedResponses) == 0 {
		return
	}
	held := map[models.ResponseCard]int{}
	if r := s.CurrentRound(); r >= 0 && s.Rounds[r].Status != models.RoundEnded {
		for _, sub := range s.Rounds[r].Submissions {
			for _, c := range sub.Cards {
				held[c]++
			}
		}
		for _, sub := range s.Rounds[r].Discard {
			for _, c := range sub.Cards {
				held[c]++
			}
		}
	}
	var keep, recycle []models.ResponseCard
	for _, c := range s.Piles.DiscardedResponses {
		if held[c] > 0 {
			held[c]--
			keep = append(keep, c)
			continue
		}
		recycle = append(recycle, c)
	}
	pile := append(append([]models.ResponseCard(nil), s.Piles.Responses...), recycle...)
	e.Shuffle(len(pile), func(i, j int) { pile[i], pile[j] = pile[j], pile[i] })
	s.Piles.Responses = pile
	s.Piles.DiscardedResponses = keep
}

// drawResponses removes up to n cards from the top of the response pile.
func (e *Engine) drawResponses(s *models.GameState, n int) []models.ResponseCard {
	if n <= 0 {
		return nil
	}
	e.ensureResponses(s, n)
	if n > len(s.Piles.Responses) {
		n = len(s.Piles.Responses)
	}
	cards := append([]models.ResponseCard(nil), s.Piles.Responses[:n]...)
	s.Piles.Responses = s.Piles.Responses[n:]
	return cards
}

// refillHands tops up the hands of the given players to size cards. Hands that already hold
// size or more cards are left as they are.
func (e *Engine) refillHands(s *models.GameState, players []int, size int) {
	need := 0
	for _, i := range players {
		if d := size - len(s.Players[i].Hand); d > 0 {
			need += d
		}
	}
	if need == 0 {
		return
	}
	e.ensureResponses(s, need)
	for _, i := range players {
		p := &s.Players[i]
		if d := size - len(p.Hand); d > 0 {
			p.Hand = append(p.Hand, e.drawResponses(s, d)...)
		}
	}
}

// handTarget is the number of cards every non-judge player should hold for the given prompt.
func handTarget(s *models.GameState, prompt models.PromptCard) int {
	return s.Game.HandSize + prompt.Draw
}

// nonJudgeHumans returns the active, non-AI players of a round other than its judge.
func nonJudgeHumans(s *models.GameState, round *models.Round) []int {
	var idx []int
	for _, i := range activeHumans(s) {
		if s.Players[i].ID != round.JudgeID {
			idx = append(idx, i)
		}
	}
	return idx
}

// openRound validates that roundIdx names the mutable round of a running game.
func openRound(s *models.GameState, roundIdx int) (*models.Round, error) {
	if s.Game.Status != models.GameRunning {
		return nil, ErrGameNotRunning
	}
	if roundIdx < 0 || roundIdx >= len(s.Rounds) {
		return nil, ErrRoundNotFound
	}
	if roundIdx != len(s.Rounds)-1 {
		return nil, ErrNotLastRound
	}
	r := &s.Rounds[roundIdx]
	if r.Status == models.RoundEnded {
		return nil, ErrRoundEnded
	}
	return r, nil
}
