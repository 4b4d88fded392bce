// internal/bot/medium.go
package bot

import (
	"math/rand"

	"fortyone/internal/models"
)

// mediumBrain bids from a hand-strength estimate and plays the cheapest
// card that still does the job.
type mediumBrain struct {
	rng *rand.Rand
}

func (b *mediumBrain) ChooseBet(v BetView) BetChoice {
	color, strength := bestColorBid(v.Hand)
	amount := strength
	if amount > models.MaxBet {
		amount = models.MaxBet
	}

	bid := BetChoice{Amount: amount, Trump: &color}
	if amount >= models.MinBet && outranksHighest(bid, v.Highest) {
		return bid
	}
	if v.MustBid {
		forced := longestColor(v.Hand)
		return BetChoice{Amount: models.MinBet, Trump: &forced}
	}
	return BetChoice{Skip: true}
}

func (b *mediumBrain) ChooseCard(v PlayView) models.Card {
	if v.Led == nil {
		return b.lead(v)
	}

	var winners []models.Card
	for _, c := range v.Legal {
		if canBeat(c, v) {
			winners = append(winners, c)
		}
	}
	if len(winners) > 0 && v.WinningSeat != partnerOf(v.Seat) {
		return lowest(winners, v.Trump)
	}
	return lowest(v.Legal, v.Trump)
}

// lead opens a trick: a sure winner if one is held, otherwise the
// cheapest card of the longest color.
func (b *mediumBrain) lead(v PlayView) models.Card {
	for _, c := range v.Legal {
		if c.Value == models.CardsPerColor-1 {
			return c
		}
	}
	color := longestColor(v.Legal)
	var ofColor []models.Card
	for _, c := range v.Legal {
		if c.Color == color {
			ofColor = append(ofColor, c)
		}
	}
	return lowest(ofColor, v.Trump)
}

// bestColorBid estimates the trick take with each color as trump and
// returns the best color with its estimate.
func bestColorBid(hand []models.Card) (models.Color, int) {
	best := models.Colors[0]
	bestScore := -1
	for _, color := range models.Colors {
		score := estimateTricks(hand, color)
		if score > bestScore {
			best = color
			bestScore = score
		}
	}
	return best, bestScore
}

// estimateTricks counts trump length plus the high cards that win on
// their own in the side colors.
func estimateTricks(hand []models.Card, trump models.Color) int {
	est := 0
	for _, c := range hand {
		switch {
		case c.Color == trump:
			est++
		case c.Value >= models.CardsPerColor-2:
			est++
		}
	}
	return est
}

// outranksHighest reports whether the choice would stand against the
// current high bet.
func outranksHighest(c BetChoice, highest *models.Bet) bool {
	if highest == nil {
		return true
	}
	b := models.Bet{Amount: c.Amount, NoTrump: c.NoTrump, Trump: c.Trump}
	return b.Outranks(*highest)
}
