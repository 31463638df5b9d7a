package models

import (
	"time"

	"github.com/google/uuid"
)

type RoundStatus string

const (
	RoundCreated  RoundStatus = "created"
	RoundPlayed   RoundStatus = "played"
	RoundRevealed RoundStatus = "revealed"
	RoundEnded    RoundStatus = "ended"
)

// Phase names a timed round phase. Each phase owns one deadline and one timeout job.
type Phase string

const (
	PhasePlaying       Phase = "playing"
	PhaseRevealing     Phase = "revealing"
	PhaseJudging       Phase = "judging"
	PhaseBetweenRounds Phase = "betweenRounds"
)

// Phases lists every phase in round order.
var Phases = []Phase{PhasePlaying, PhaseRevealing, PhaseJudging, PhaseBetweenRounds}

// Deadlines grows as a round progresses; a nil entry means the phase has not been opened.
type Deadlines struct {
	Playing       *time.Time `json:"playing,omitempty"`
	Revealing     *time.Time `json:"revealing,omitempty"`
	Judging       *time.Time `json:"judging,omitempty"`
	BetweenRounds *time.Time `json:"betweenRounds,omitempty"`
}

// Get returns the deadline for a phase.
func (d Deadlines) Get(p Phase) *time.Time {
	switch p {
	case PhasePlaying:
		return d.Playing
	case PhaseRevealing:
		return d.Revealing
	case PhaseJudging:
		return d.Judging
	case PhaseBetweenRounds:
		return d.BetweenRounds
	}
	return nil
}

// Set opens (or overwrites) the deadline of a phase.
func (d *Deadlines) Set(p Phase, t time.Time) {
	switch p {
	case PhasePlaying:
		d.Playing = &t
	case PhaseRevealing:
		d.Revealing = &t
	case PhaseJudging:
		d.Judging = &t
	case PhaseBetweenRounds:
		d.BetweenRounds = &t
	}
}

// Unset removes the deadline of a phase.
func (d *Deadlines) Unset(p Phase) {
	switch p {
	case PhasePlaying:
		d.Playing = nil
	case PhaseRevealing:
		d.Revealing = nil
	case PhaseJudging:
		d.Judging = nil
	case PhaseBetweenRounds:
		d.BetweenRounds = nil
	}
}

// Latest returns the deadline of the most advanced phase opened so far. A phase closed early
// leaves its deadline behind, so this is not always the largest timestamp.
func (d Deadlines) Latest() (Phase, time.Time, bool) {
	for i := len(Phases) - 1; i >= 0; i-- {
		if t := d.Get(Phases[i]); t != nil {
			return Phases[i], *t, true
		}
	}
	return "", time.Time{}, false
}

// Count returns how many phases have a deadline.
func (d Deadlines) Count() int {
	n := 0
	for _, p := range Phases {
		if d.Get(p) != nil {
			n++
		}
	}
	return n
}

func (d Deadlines) clone() Deadlines {
	var out Deadlines
	for _, p := range Phases {
		if t := d.Get(p); t != nil {
			out.Set(p, *t)
		}
	}
	return out
}

type Submission struct {
	PlayerID    uuid.UUID      `json:"playerId"`
	Timestamp   time.Time      `json:"timestamp"`
	Cards       []ResponseCard `json:"cards"`
	PointsDelta int            `json:"pointsChange"`
	IsRevealed  bool           `json:"isRevealed"`
}

// Clone returns a copy with its own card slice.
func (s Submission) Clone() Submission {
	s.Cards = cloneSlice(s.Cards)
	return s
}

type Round struct {
	JudgeID     uuid.UUID    `json:"judgeId"`
	Status      RoundStatus  `json:"status"`
	Deadlines   Deadlines    `json:"timeouts"`
	Prompt      PromptCard   `json:"prompt"`
	Submissions []Submission `json:"submissions"`
	Discard     []Submission `json:"discard"`
}

// Clone returns a deep copy of the round.
func (r Round) Clone() Round {
	out := r
	out.Deadlines = r.Deadlines.clone()
	out.Submissions = cloneSubmissions(r.Submissions)
	out.Discard = cloneSubmissions(r.Discard)
	return out
}

// Submitted reports whether the player already has a submission in this round.
func (r Round) Submitted(playerID uuid.UUID) bool {
	for _, s := range r.Submissions {
		if s.PlayerID == playerID {
			return true
		}
	}
	return false
}

func cloneSubmissions(in []Submission) []Submission {
	if in == nil {
		return nil
	}
	out := make([]Submission, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
