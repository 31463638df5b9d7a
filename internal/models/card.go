package models

// CardType distinguishes playable text cards from redacted placeholders sent to clients.
type CardType string

const (
	CardText     CardType = "text"
	CardRedacted CardType = "redacted"
)

// PromptCard asks every non-judge player for Pick response cards. Draw is the number of extra
// cards a player needs in hand on top of the regular hand size while this prompt is active.
type PromptCard struct {
	Type     CardType `json:"type"`
	Value    string   `json:"value"`
	PackAbbr string   `json:"packAbbr"`
	Pick     int      `json:"pick"`
	Draw     int      `json:"draw"`
}

type ResponseCard struct {
	Type     CardType `json:"type"`
	Value    string   `json:"value"`
	PackAbbr string   `json:"packAbbr"`
}

// Piles holds the live draw stacks and their discard stacks for a running game.
type Piles struct {
	Prompts            []PromptCard   `json:"prompts"`
	Responses          []ResponseCard `json:"responses"`
	DiscardedPrompts   []PromptCard   `json:"discardedPrompts"`
	DiscardedResponses []ResponseCard `json:"discardedResponses"`
}

// Clone returns a deep copy of the piles.
func (p Piles) Clone() Piles {
	return Piles{
		Prompts:            cloneSlice(p.Prompts),
		Responses:          cloneSlice(p.Responses),
		DiscardedPrompts:   cloneSlice(p.DiscardedPrompts),
		DiscardedResponses: cloneSlice(p.DiscardedResponses),
	}
}

// ResponseCount is the number of response cards held by the piles (live + discard).
func (p Piles) ResponseCount() int {
	return len(p.Responses) + len(p.DiscardedResponses)
}

// PromptCount is the number of prompt cards held by the piles (live + discard).
func (p Piles) PromptCount() int {
	return len(p.Prompts) + len(p.DiscardedPrompts)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
