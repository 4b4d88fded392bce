// internal/game/trick.go
package game

import (
	"time"

	"fortyone/internal/models"
)

// TricksPerRound is fixed by the deal: 32 cards, 4 players, 8 each.
const TricksPerRound = 8

// TrickPlay is one card entering the current trick.
type TrickPlay struct {
	Seat   int         `json:"seat"`
	Player string      `json:"player"`
	Card   models.Card `json:"card"`
}

// Trick holds the cards played so far in the current trick. The led
// color is fixed by the first card and never changes afterwards.
type Trick struct {
	Plays []TrickPlay   `json:"plays"`
	Led   *models.Color `json:"led,omitempty"`
}

func newTrick() *Trick {
	return &Trick{}
}

// add appends a play, fixing the led color on the first card.
func (t *Trick) add(play TrickPlay) {
	if len(t.Plays) == 0 {
		led := play.Card.Color
		t.Led = &led
	}
	t.Plays = append(t.Plays, play)
}

func (t *Trick) complete() bool {
	return len(t.Plays) == 4
}

// winnerSeat resolves the trick so far: the highest trump if any was
// played, otherwise the highest card of the led color. Works on partial
// tricks too, which is how bots tell who currently holds the trick.
func (t *Trick) winnerSeat(trump *models.Color) int {
	if len(t.Plays) == 0 || t.Led == nil {
		return -1
	}
	winning := t.Plays[0]
	for _, play := range t.Plays[1:] {
		if play.Card.Beats(winning.Card, *t.Led, trump) {
			winning = play
		}
	}
	return winning.Seat
}

// points returns the trick's worth: 1 for the trick itself plus any
// bonus cards it contains.
func (t *Trick) points() int {
	pts := 1
	for _, play := range t.Plays {
		pts += play.Card.BonusPoints()
	}
	return pts
}

// ResolvedTrick is the immutable record of a completed trick.
type ResolvedTrick struct {
	Number int           `json:"number"` // 1-based within the round
	Led    models.Color  `json:"led"`
	Plays  []TrickPlay   `json:"plays"`
	Winner int           `json:"winner_seat"`
	Points int           `json:"points"`
	Trump  *models.Color `json:"trump,omitempty"`
}

// RoundRecord captures everything about a finished round. Records are
// append-only; they feed round_ended events and the fact pipeline.
type RoundRecord struct {
	Round       int             `json:"round"` // 1-based
	Dealer      int             `json:"dealer_seat"`
	Bets        []models.Bet    `json:"bets"`
	WinningBet  models.Bet      `json:"winning_bet"`
	Trump       *models.Color   `json:"trump,omitempty"`
	OffenseTeam int             `json:"offense_team"`
	BetMet      bool            `json:"bet_met"`
	TeamPoints  [2]int          `json:"team_points"` // trick points taken this round
	Deltas      [2]int          `json:"deltas"`      // score movement this round
	Totals      [2]int          `json:"totals"`      // cumulative scores after the round
	Tricks      []ResolvedTrick `json:"tricks"`
	EndedAt     time.Time       `json:"ended_at"`
}

// scoreRound computes the two teams' score deltas. The offense swings by
// the bet's value (doubled without trump) in either direction; the
// defense always banks the trick points it took.
func scoreRound(bet models.Bet, offenseTeam int, teamPoints [2]int) (deltas [2]int, met bool) {
	off := offenseTeam - 1
	def := 1 - off
	met = teamPoints[off] >= bet.Amount
	if met {
		deltas[off] = bet.Value()
	} else {
		deltas[off] = -bet.Value()
	}
	deltas[def] = teamPoints[def]
	return deltas, met
}
