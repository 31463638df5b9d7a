// internal/game/rules.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/promptparty/internal/models"
)

const (
	DefaultHandSize     = 10
	DefaultWinnerPoints = 20
	MaxAIPlayers        = 3
	aiNickname          = "Rando Cardrissian"
)

// DefaultTimeouts are the phase durations used when a game does not set its own.
var DefaultTimeouts = models.Timeouts{
	Playing:       120,
	Revealing:     60,
	Judging:       120,
	BetweenRounds: 30,
}

// Options are the settings a host picks when creating a game. Zero values fall back to defaults.
type Options struct {
	Packs        []string            `json:"packs"`
	Timeouts     models.Timeouts     `json:"timeouts"`
	HandSize     int                 `json:"handSize"`
	WinnerPoints *int                `json:"winnerPoints"` // nil => default, 0 => no limit
	Rules        models.SpecialRules `json:"rules"`

	// PasswordHash is the already-hashed game password, empty for open games.
	PasswordHash string `json:"-"`
}

// Validate checks the options for values the engine cannot work with.
func (o Options) Validate() error {
	if o.HandSize < 0 {
		return fmt.Errorf("%w: handSize must be non-negative", ErrInvalidOptions)
	}
	if o.WinnerPoints != nil && *o.WinnerPoints < 0 {
		return fmt.Errorf("%w: winnerPoints must be non-negative", ErrInvalidOptions)
	}
	t := o.Timeouts
	if t.Playing < 0 || t.Revealing < 0 || t.Judging < 0 || t.BetweenRounds < 0 {
		return fmt.Errorf("%w: timeouts must be non-negative", ErrInvalidOptions)
	}
	if o.Rules.AIPlayers < 0 || o.Rules.AIPlayers > MaxAIPlayers {
		return fmt.Errorf("%w: aiPlayers must be between 0 and %d", ErrInvalidOptions, MaxAIPlayers)
	}
	if o.Rules.Discarding.Penalty < 0 {
		return fmt.Errorf("%w: discard penalty must be non-negative", ErrInvalidOptions)
	}
	return nil
}

// withDefaults fills every unset option.
func (o Options) withDefaults() Options {
	if o.HandSize == 0 {
		o.HandSize = DefaultHandSize
	}
	if o.WinnerPoints == nil {
		wp := DefaultWinnerPoints
		o.WinnerPoints = &wp
	}
	if o.Timeouts.Playing == 0 {
		o.Timeouts.Playing = DefaultTimeouts.Playing
	}
	if o.Timeouts.Revealing == 0 {
		o.Timeouts.Revealing = DefaultTimeouts.Revealing
	}
	if o.Timeouts.Judging == 0 {
		o.Timeouts.Judging = DefaultTimeouts.Judging
	}
	if o.Timeouts.BetweenRounds == 0 {
		o.Timeouts.BetweenRounds = DefaultTimeouts.BetweenRounds
	}
	return o
}
