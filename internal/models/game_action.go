package models

import "github.com/google/uuid"

// GameAction records one applied transition for the history archive.
type GameAction struct {
	GameID      uuid.UUID              `json:"game_id"`
	ActionIndex int                    `json:"action_index"`
	ActorID     uuid.UUID              `json:"actor_id"`
	ActionType  string                 `json:"action_type"`
	Payload     map[string]interface{} `json:"action_payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// ActionGameEnded is recorded once when a game reaches its ended status, whatever ended it.
const ActionGameEnded = "game_ended"
