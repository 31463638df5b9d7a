package game

import (
	"github.com/jason-s-yu/promptparty/internal/models"
)

// promptDraw is the number of extra cards a player holds for a prompt asking for pick cards.
func promptDraw(pick int, pickExtra bool) int {
	d := pick - 2
	if pickExtra {
		d = pick - 1
	}
	if d < 0 {
		return 0
	}
	return d
}

// BuildPiles resolves the chosen packs and returns freshly shuffled prompt and response piles.
// Cards with the same text are kept once per category, even across packs.
func (e *Engine) BuildPiles(packs []string, pickExtra bool) (models.Piles, error) {
	var (
		piles         models.Piles
		seenPrompts   = map[string]bool{}
		seenResponses = map[string]bool{}
	)
	for _, abbr := range packs {
		pack, ok := e.Packs.Pack(abbr)
		if !ok {
			return models.Piles{}, ErrUnknownPack
		}
		for _, p := range pack.Prompts {
			if seenPrompts[p.Text] {
				continue
			}
			seenPrompts[p.Text] = true
			pick := p.Pick
			if pick < 1 {
				pick = 1
			}
			piles.Prompts = append(piles.Prompts, models.PromptCard{
				Type:     models.CardText,
				Value:    p.Text,
				PackAbbr: pack.Abbr,
				Pick:     pick,
				Draw:     promptDraw(pick, pickExtra),
			})
		}
		for _, text := range pack.Responses {
			if seenResponses[text] {
				continue
			}
			seenResponses[text] = true
			piles.Responses = append(piles.Responses, models.ResponseCard{
				Type:     models.CardText,
				Value:    text,
				PackAbbr: pack.Abbr,
			})
		}
	}

	e.Shuffle(len(piles.Prompts), func(i, j int) {
		piles.Prompts[i], piles.Prompts[j] = piles.Prompts[j], piles.Prompts[i]
	})
	e.Shuffle(len(piles.Responses), func(i, j int) {
		piles.Responses[i], piles.Responses[j] = piles.Responses[j], piles.Responses[i]
	})
	return piles, nil
}

// maxDraw returns the largest Draw across a prompt pile.
func maxDraw(prompts []models.PromptCard) int {
	m := 0
	for _, p := range prompts {
		if p.Draw > m {
			m = p.Draw
		}
	}
	return m
}
