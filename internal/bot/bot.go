// internal/bot/bot.go

// Package bot provides seat-filling agents in three skill tiers. A
// brain sees exactly what a human client at that seat would see and
// returns moves that go through the same validation as everyone
// else's.
package bot

import (
	"math/rand"

	"fortyone/internal/models"
)

// BetView is what a seat knows when the auction reaches it.
type BetView struct {
	Seat    int
	Hand    []models.Card
	Highest *models.Bet // nil while everyone has skipped
	MustBid bool        // dealer after a full round of skips
}

// BetChoice is one auction entry: a skip, or an amount with either a
// trump color or the no-trump flag.
type BetChoice struct {
	Skip    bool
	Amount  int
	Trump   *models.Color
	NoTrump bool
}

// SeatCard pairs a seat with the card it put into a trick.
type SeatCard struct {
	Seat int
	Card models.Card
}

// TrickRecord is a finished trick as the whole table saw it.
type TrickRecord struct {
	Led    models.Color
	Winner int
	Plays  []SeatCard
}

// PlayView is what a seat knows when it must put a card into the
// current trick.
type PlayView struct {
	Seat        int
	Team        int
	Hand        []models.Card
	Legal       []models.Card
	Trump       *models.Color
	NoTrump     bool
	Led         *models.Color // nil when this seat leads
	Trick       []SeatCard    // cards already on the table
	WinningSeat int           // seat currently taking the trick, -1 when leading
	History     []TrickRecord // resolved tricks this round
}

// Brain decides one seat's moves.
type Brain interface {
	ChooseBet(v BetView) BetChoice
	ChooseCard(v PlayView) models.Card
}

// New returns the brain for a skill tier. Unknown tiers fall back to
// medium.
func New(skill string, rng *rand.Rand) Brain {
	switch skill {
	case models.BotEasy:
		return &easyBrain{rng: rng}
	case models.BotHard:
		return &hardBrain{mediumBrain{rng: rng}}
	default:
		return &mediumBrain{rng: rng}
	}
}

// partnerOf maps a seat to the one across the table.
func partnerOf(seat int) int {
	return (seat + 2) % 4
}

// winningCard returns the card currently taking the trick.
func winningCard(v PlayView) (models.Card, bool) {
	for _, sc := range v.Trick {
		if sc.Seat == v.WinningSeat {
			return sc.Card, true
		}
	}
	return models.Card{}, false
}

// canBeat reports whether playing c would take the trick as it stands.
func canBeat(c models.Card, v PlayView) bool {
	if v.Led == nil {
		return true
	}
	w, ok := winningCard(v)
	if !ok {
		return true
	}
	return c.Beats(w, *v.Led, v.Trump)
}

// lowest returns the card of least rank from a non-empty set, counting
// trumps above everything else.
func lowest(cards []models.Card, trump *models.Color) models.Card {
	best := cards[0]
	for _, c := range cards[1:] {
		if rankOf(c, trump) < rankOf(best, trump) {
			best = c
		}
	}
	return best
}

// rankOf orders cards for cheapness comparisons: plain value, with
// trumps lifted above every plain card.
func rankOf(c models.Card, trump *models.Color) int {
	r := c.Value
	if trump != nil && c.Color == *trump {
		r += models.CardsPerColor
	}
	return r
}
