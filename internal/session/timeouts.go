package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/game"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/jason-s-yu/promptparty/internal/scheduler"
)

var _ scheduler.Handlers = (*Controller)(nil)

// AutoClosePlay closes submissions when the playing deadline passes.
func (c *Controller) AutoClosePlay(ctx context.Context, gameID uuid.UUID, round int) error {
	return c.onTimeout(ctx, gameID, models.PhasePlaying, round, func(s models.GameState) (models.GameState, error) {
		return c.Engine.PlayRound(s, round)
	}, notifyRound|notifyPlayers)
}

// AutoReveal reveals every submission when the revealing deadline passes.
func (c *Controller) AutoReveal(ctx context.Context, gameID uuid.UUID, round int) error {
	return c.onTimeout(ctx, gameID, models.PhaseRevealing, round, func(s models.GameState) (models.GameState, error) {
		return c.Engine.RevealRound(s, round)
	}, notifyRound)
}

// AutoEndRound ends the round when the judge runs out of time, with or without a winner.
func (c *Controller) AutoEndRound(ctx context.Context, gameID uuid.UUID, round int) error {
	return c.onTimeout(ctx, gameID, models.PhaseJudging, round, func(s models.GameState) (models.GameState, error) {
		return c.endRound(s, round)
	}, notifyAll)
}

// AutoStartNextRound opens the round after round. Players whose presence lease lapsed are
// marked inactive first, so they are neither dealt in nor picked as judge. When too few players
// remain, only the deactivation is kept and the game waits for a manual start.
func (c *Controller) AutoStartNextRound(ctx context.Context, gameID uuid.UUID, round int) error {
	current, err := c.Store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	var lapsed []uuid.UUID
	for _, p := range current.Players {
		if !p.IsActive || p.IsAI {
			continue
		}
		held, err := c.Presence.IsHeld(ctx, p.ID)
		if err != nil {
			return err
		}
		if !held {
			lapsed = append(lapsed, p.ID)
		}
	}
	if len(lapsed) > 0 {
		c.Logger.WithField("game", gameID).WithField("players", lapsed).Info("deactivating players without presence")
	}

	return c.onTimeout(ctx, gameID, models.PhaseBetweenRounds, round, func(s models.GameState) (models.GameState, error) {
		if round != s.CurrentRound() {
			return s, game.ErrNotLastRound
		}
		s, err := c.Engine.DeactivatePlayers(s, lapsed)
		if err != nil {
			return s, err
		}
		next, err := c.Engine.NewRound(s)
		if errors.Is(err, game.ErrNotEnoughPlayers) && len(lapsed) > 0 {
			return s, nil
		}
		return next, err
	}, notifyAll)
}

func (c *Controller) onTimeout(ctx context.Context, gameID uuid.UUID, phase models.Phase, round int, fn func(models.GameState) (models.GameState, error), what notify) error {
	if err := c.apply(ctx, gameID, fn, what); err != nil {
		return err
	}
	c.record(ctx, gameID, timeoutActor, "timeout_"+string(phase), map[string]interface{}{"roundIndex": round})
	return nil
}
