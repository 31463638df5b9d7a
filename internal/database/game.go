// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/promptparty/internal/models"
)

// GameActions persists the action history of games.
type GameActions struct {
	pool *pgxpool.Pool
}

// NewGameActions returns a GameActions backed by pool.
func NewGameActions(pool *pgxpool.Pool) *GameActions {
	return &GameActions{pool: pool}
}

// SaveActions inserts a batch of actions in one transaction. Each action upserts its game row,
// and a game_ended action completes the game.
func (g *GameActions) SaveActions(ctx context.Context, actions []models.GameAction) error {
	err := pgx.BeginTxFunc(ctx, g.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, a := range actions {
			if err := insertGameActionTx(ctx, tx, a); err != nil {
				return fmt.Errorf("insert action %d of game %s: %w", a.ActionIndex, a.GameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx save actions: %w", err)
	}
	return nil
}

// MarkAbandoned marks a game as abandoned if it was still in progress.
func (g *GameActions) MarkAbandoned(ctx context.Context, gameID uuid.UUID) error {
	q := `
		UPDATE games
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := g.pool.Exec(ctx, q, gameID); err != nil {
		return fmt.Errorf("mark game %s abandoned: %w", gameID, err)
	}
	return nil
}

func insertGameActionTx(ctx context.Context, tx pgx.Tx, a models.GameAction) error {
	upsertGameQ := `
		INSERT INTO games (id, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertGameQ, a.GameID); err != nil {
		return err
	}

	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO game_actions (
			game_id, action_index, actor_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
		ON CONFLICT (game_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		a.GameID, a.ActionIndex, a.ActorID, a.ActionType, payload, a.Timestamp,
	); err != nil {
		return err
	}

	if a.ActionType == models.ActionGameEnded {
		finalizeQ := `
			UPDATE games
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalizeQ, a.GameID); err != nil {
			return err
		}
	}
	return nil
}
