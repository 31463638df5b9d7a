// internal/game/utils.go
package game

import "github.com/jason-s-yu/promptparty/internal/models"

// takeFromHand removes the requested cards from hand, matching by value. Each hand card can
// satisfy one request only. ok is false when any requested card is missing.
func takeFromHand(hand, cards []models.ResponseCard) (rest, taken []models.ResponseCard, ok bool) {
	used := make([]bool, len(hand))
	for _, want := range cards {
		found := false
		for i, c := range hand {
			if !used[i] && c == want {
				used[i] = true
				taken = append(taken, c)
				found = true
				break
			}
		}
		if !found {
			return hand, nil, false
		}
	}
	rest = make([]models.ResponseCard, 0, len(hand)-len(taken))
	for i, c := range hand {
		if !used[i] {
			rest = append(rest, c)
		}
	}
	return rest, taken, true
}
