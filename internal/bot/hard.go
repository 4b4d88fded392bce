// internal/bot/hard.go
package bot

import (
	"fortyone/internal/models"
)

// hardBrain layers table memory on top of the medium heuristics: it
// tracks voids shown in earlier tricks, feeds the red bonus card to a
// winning partner, sticks the brown penalty card to winning opponents,
// and bids no-trump from master-heavy hands.
type hardBrain struct {
	mediumBrain
}

func (b *hardBrain) ChooseBet(v BetView) BetChoice {
	if masters := countMasters(v.Hand); masters >= 7 {
		amount := masters
		if amount > models.MaxBet {
			amount = models.MaxBet
		}
		bid := BetChoice{Amount: amount, NoTrump: true}
		if outranksHighest(bid, v.Highest) {
			return bid
		}
	}
	return b.mediumBrain.ChooseBet(v)
}

func (b *hardBrain) ChooseCard(v PlayView) models.Card {
	if v.Led == nil {
		return b.leadInformed(v)
	}

	partnerWinning := v.WinningSeat == partnerOf(v.Seat)
	lastToAct := len(v.Trick) == 3

	if partnerWinning && lastToAct {
		// The trick is the partnership's; gift the +5 card if legal.
		if c, ok := findCard(v.Legal, models.ColorRed, 0); ok {
			return c
		}
		return b.cheapDump(v)
	}

	var winners []models.Card
	for _, c := range v.Legal {
		if canBeat(c, v) {
			winners = append(winners, c)
		}
	}
	if len(winners) > 0 && !partnerWinning {
		return lowest(winners, v.Trump)
	}
	return b.cheapDump(v)
}

// cheapDump throws the least useful legal card into a trick the
// partnership is not taking: the -2 card first, then the cheapest card
// that is not the +5 card.
func (b *hardBrain) cheapDump(v PlayView) models.Card {
	if v.WinningSeat != partnerOf(v.Seat) && v.WinningSeat != v.Seat {
		if c, ok := findCard(v.Legal, models.ColorBrown, 0); ok {
			return c
		}
	}
	var safe []models.Card
	for _, c := range v.Legal {
		if !(c.Color == models.ColorRed && c.Value == 0) {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		safe = v.Legal
	}
	return lowest(safe, v.Trump)
}

// leadInformed opens a trick avoiding colors an opponent has shown out
// of, so a master is not trumped on the spot.
func (b *hardBrain) leadInformed(v PlayView) models.Card {
	voids := voidsFromHistory(v.History)
	opp1, opp2 := (v.Seat+1)%4, (v.Seat+3)%4

	var safeMasters []models.Card
	for _, c := range v.Legal {
		if c.Value != models.CardsPerColor-1 {
			continue
		}
		if voids[opp1][c.Color] || voids[opp2][c.Color] {
			continue
		}
		safeMasters = append(safeMasters, c)
	}
	if len(safeMasters) > 0 {
		return safeMasters[0]
	}
	return b.mediumBrain.lead(v)
}

// voidsFromHistory replays the resolved tricks and marks every seat
// that failed to follow a led color.
func voidsFromHistory(history []TrickRecord) map[int]map[models.Color]bool {
	voids := make(map[int]map[models.Color]bool)
	for seat := 0; seat < 4; seat++ {
		voids[seat] = make(map[models.Color]bool)
	}
	for _, t := range history {
		for _, sc := range t.Plays {
			if sc.Card.Color != t.Led {
				voids[sc.Seat][t.Led] = true
			}
		}
	}
	return voids
}

// countMasters counts the cards that win their color outright: each 7,
// plus the 6 sitting behind its own 7.
func countMasters(hand []models.Card) int {
	has := make(map[models.Card]bool, len(hand))
	for _, c := range hand {
		has[c] = true
	}
	masters := 0
	for _, color := range models.Colors {
		if has[models.Card{Color: color, Value: 7}] {
			masters++
			if has[models.Card{Color: color, Value: 6}] {
				masters++
			}
		}
	}
	return masters
}

// findCard locates a specific card in a set.
func findCard(cards []models.Card, color models.Color, value int) (models.Card, bool) {
	for _, c := range cards {
		if c.Color == color && c.Value == value {
			return c, true
		}
	}
	return models.Card{}, false
}
