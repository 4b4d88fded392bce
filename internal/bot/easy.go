// internal/bot/easy.go
package bot

import (
	"math/rand"

	"fortyone/internal/models"
)

// easyBrain never competes in the auction and plays uniformly random
// legal cards.
type easyBrain struct {
	rng *rand.Rand
}

func (b *easyBrain) ChooseBet(v BetView) BetChoice {
	if v.MustBid {
		color := longestColor(v.Hand)
		return BetChoice{Amount: models.MinBet, Trump: &color}
	}
	return BetChoice{Skip: true}
}

func (b *easyBrain) ChooseCard(v PlayView) models.Card {
	return v.Legal[b.rng.Intn(len(v.Legal))]
}

// longestColor picks the most-held color, ties broken in canonical
// color order.
func longestColor(hand []models.Card) models.Color {
	counts := make(map[models.Color]int, len(models.Colors))
	for _, c := range hand {
		counts[c.Color]++
	}
	best := models.Colors[0]
	for _, color := range models.Colors[1:] {
		if counts[color] > counts[best] {
			best = color
		}
	}
	return best
}
