// internal/game/round.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
)

// ErrWinnerChosen is returned when a judge tries to pick a second winner.
var ErrWinnerChosen = precondition("a winner was already chosen")

// PickCards submits the player's cards for the open round. The cards leave the hand for the
// response discard pile; the submission keeps a record of them. The first human submission of
// a round also makes every AI player submit.
func (e *Engine) PickCards(state models.GameState, roundIdx int, playerID uuid.UUID, cards []models.ResponseCard) (models.GameState, error) {
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundCreated {
		return state, ErrWrongRoundStatus
	}
	idx := s.Player(playerID)
	if idx < 0 {
		return state, ErrPlayerNotFound
	}
	if r.JudgeID == playerID {
		return state, ErrJudgeCannotSubmit
	}
	if r.Submitted(playerID) {
		return state, ErrAlreadySubmitted
	}
	if len(cards) != r.Prompt.Pick {
		return state, ErrWrongCardCount
	}
	rest, taken, ok := takeFromHand(s.Players[idx].Hand, cards)
	if !ok {
		return state, ErrCardsNotInHand
	}

	first := !hasHumanSubmission(&s, r)
	s.Players[idx].Hand = rest
	s.Piles.DiscardedResponses = append(s.Piles.DiscardedResponses, taken...)
	r.Submissions = append(r.Submissions, models.Submission{
		PlayerID:  playerID,
		Timestamp: e.Now(),
		Cards:     taken,
	})
	if first {
		e.submitForAI(&s, r)
	}
	return s, nil
}

// submitForAI draws and immediately submits cards for every active AI player.
func (e *Engine) submitForAI(s *models.GameState, r *models.Round) {
	for _, p := range s.Players {
		if !p.IsAI || !p.IsActive || r.Submitted(p.ID) {
			continue
		}
		cards := e.drawResponses(s, r.Prompt.Pick)
		s.Piles.DiscardedResponses = append(s.Piles.DiscardedResponses, cards...)
		if len(cards) < r.Prompt.Pick {
			break
		}
		r.Submissions = append(r.Submissions, models.Submission{
			PlayerID:  p.ID,
			Timestamp: e.Now(),
			Cards:     cards,
		})
	}
}

func hasHumanSubmission(s *models.GameState, r *models.Round) bool {
	for _, sub := range r.Submissions {
		if idx := s.Player(sub.PlayerID); idx >= 0 && !s.Players[idx].IsAI {
			return true
		}
	}
	return false
}

// DiscardCards throws away cards from a player's hand at the cost of the discard penalty, which
// is booked when the round ends. The player's hand is refilled right away.
func (e *Engine) DiscardCards(state models.GameState, roundIdx int, playerID uuid.UUID, cards []models.ResponseCard) (models.GameState, error) {
	if !state.Game.Rules.Discarding.Enabled {
		return state, ErrDiscardDisabled
	}
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundCreated {
		return state, ErrWrongRoundStatus
	}
	idx := s.Player(playerID)
	if idx < 0 {
		return state, ErrPlayerNotFound
	}
	if r.JudgeID == playerID {
		return state, ErrJudgeCannotSubmit
	}
	if r.Submitted(playerID) {
		return state, ErrAlreadySubmitted
	}
	if len(cards) == 0 {
		return state, ErrWrongCardCount
	}
	rest, taken, ok := takeFromHand(s.Players[idx].Hand, cards)
	if !ok {
		return state, ErrCardsNotInHand
	}

	s.Players[idx].Hand = rest
	s.Piles.DiscardedResponses = append(s.Piles.DiscardedResponses, taken...)
	r.Discard = append(r.Discard, models.Submission{
		PlayerID:    playerID,
		Timestamp:   e.Now(),
		Cards:       taken,
		PointsDelta: -s.Game.Rules.Discarding.Penalty,
		IsRevealed:  true,
	})
	e.refillHands(&s, []int{idx}, handTarget(&s, r.Prompt))
	return s, nil
}

// DiscardPrompt lets the judge swap the prompt before anyone has submitted. Hands are only
// topped up for the new prompt; players keep any surplus from the discarded one.
func (e *Engine) DiscardPrompt(state models.GameState, roundIdx int, playerID uuid.UUID) (models.GameState, error) {
	if !state.Game.Rules.Discarding.Enabled {
		return state, ErrDiscardDisabled
	}
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundCreated {
		return state, ErrWrongRoundStatus
	}
	if r.JudgeID != playerID {
		return state, ErrNotJudge
	}
	if len(r.Submissions) > 0 {
		return state, ErrPromptHasSubmissions
	}
	prompt, ok := e.drawPrompt(&s, true)
	if !ok {
		return state, ErrNotEnoughPacks
	}
	r.Prompt = prompt
	e.refillHands(&s, nonJudgeHumans(&s, r), handTarget(&s, prompt))
	return s, nil
}

// PlayRound closes submissions. A round nobody played in ends at once with every deadline set
// to now; otherwise submissions are shuffled and the reveal phase opens.
func (e *Engine) PlayRound(state models.GameState, roundIdx int) (models.GameState, error) {
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundCreated {
		return state, ErrWrongRoundStatus
	}
	if len(r.Submissions) == 0 {
		now := e.Now()
		for _, p := range models.Phases {
			r.Deadlines.Set(p, now)
		}
		r.Status = models.RoundEnded
		return s, nil
	}
	subs := r.Submissions
	e.Shuffle(len(subs), func(i, j int) { subs[i], subs[j] = subs[j], subs[i] })
	r.Status = models.RoundPlayed
	r.Deadlines.Set(models.PhaseRevealing, e.deadline(s.Game.Timeouts.Revealing))
	return s, nil
}

// RevealSubmission uncovers a single submission.
func (e *Engine) RevealSubmission(state models.GameState, roundIdx, submissionIdx int) (models.GameState, error) {
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundPlayed {
		return state, ErrWrongRoundStatus
	}
	if submissionIdx < 0 || submissionIdx >= len(r.Submissions) {
		return state, ErrSubmissionNotFound
	}
	r.Submissions[submissionIdx].IsRevealed = true
	return s, nil
}

// RevealRound uncovers every submission and opens the judging phase.
func (e *Engine) RevealRound(state models.GameState, roundIdx int) (models.GameState, error) {
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundPlayed {
		return state, ErrWrongRoundStatus
	}
	for i := range r.Submissions {
		r.Submissions[i].IsRevealed = true
	}
	r.Status = models.RoundRevealed
	r.Deadlines.Set(models.PhaseJudging, e.deadline(s.Game.Timeouts.Judging))
	return s, nil
}

// ChooseWinner awards the point of the round to one submission. It does not end the round.
func (e *Engine) ChooseWinner(state models.GameState, roundIdx, submissionIdx int) (models.GameState, error) {
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	if r.Status != models.RoundRevealed {
		return state, ErrWrongRoundStatus
	}
	if submissionIdx < 0 || submissionIdx >= len(r.Submissions) {
		return state, ErrSubmissionNotFound
	}
	for _, sub := range r.Submissions {
		if sub.PointsDelta > 0 {
			return state, ErrWinnerChosen
		}
	}
	r.Submissions[submissionIdx].PointsDelta = 1
	return s, nil
}

// EndRound books the round's point changes for every active player and closes it. The
// between-rounds phase opens unless a player reached the winning score.
func (e *Engine) EndRound(state models.GameState, roundIdx int) (models.GameState, error) {
	s := state.Clone()
	r, err := openRound(&s, roundIdx)
	if err != nil {
		return state, err
	}
	for i := range s.Players {
		p := &s.Players[i]
		if !p.IsActive {
			continue
		}
		for _, sub := range r.Submissions {
			if sub.PlayerID == p.ID {
				p.Points += sub.PointsDelta
			}
		}
		for _, sub := range r.Discard {
			if sub.PlayerID == p.ID {
				p.Points += sub.PointsDelta
			}
		}
	}
	r.Status = models.RoundEnded
	if !WinnerReached(s) {
		r.Deadlines.Set(models.PhaseBetweenRounds, e.deadline(s.Game.Timeouts.BetweenRounds))
	}
	return s, nil
}

// PickComplete reports whether every active player except the judge has submitted.
func PickComplete(s models.GameState, roundIdx int) bool {
	if roundIdx < 0 || roundIdx >= len(s.Rounds) {
		return false
	}
	return len(s.Rounds[roundIdx].Submissions) >= activeCount(&s)-1
}

// AllRevealed reports whether every submission of the round has been revealed.
func AllRevealed(s models.GameState, roundIdx int) bool {
	if roundIdx < 0 || roundIdx >= len(s.Rounds) {
		return false
	}
	for _, sub := range s.Rounds[roundIdx].Submissions {
		if !sub.IsRevealed {
			return false
		}
	}
	return true
}
