package session

import "github.com/jason-s-yu/promptparty/internal/models"

// EventKind names an inbound player event.
type EventKind string

const (
	EventJoin             EventKind = "join_game"
	EventStartGame        EventKind = "start_game"
	EventPickCards        EventKind = "pick_cards"
	EventDiscardCards     EventKind = "discard_cards"
	EventDiscardPrompt    EventKind = "discard_prompt"
	EventRevealSubmission EventKind = "reveal_submission"
	EventChooseWinner     EventKind = "choose_winner"
	EventStartNextRound   EventKind = "start_next_round"
	EventEndGame          EventKind = "end_game"
	EventDisconnect       EventKind = "disconnect"
)

// Event is an inbound message from a player's connection. Fields a kind does not use are ignored.
type Event struct {
	Kind            EventKind             `json:"type"`
	RoundIndex      int                   `json:"roundIndex"`
	SubmissionIndex int                   `json:"submissionIndex"`
	Cards           []models.ResponseCard `json:"cards,omitempty"`
}

// payload is the part of the event worth keeping in the action history.
func (e Event) payload() map[string]interface{} {
	p := map[string]interface{}{}
	switch e.Kind {
	case EventPickCards, EventDiscardCards:
		p["roundIndex"] = e.RoundIndex
		values := make([]string, len(e.Cards))
		for i, c := range e.Cards {
			values[i] = c.Value
		}
		p["cards"] = values
	case EventDiscardPrompt:
		p["roundIndex"] = e.RoundIndex
	case EventRevealSubmission, EventChooseWinner:
		p["roundIndex"] = e.RoundIndex
		p["submissionIndex"] = e.SubmissionIndex
	}
	return p
}
