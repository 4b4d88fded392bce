// internal/game/auction.go
package game

import "fortyone/internal/models"

// auction tracks one round's bidding. The dealer opens, turns proceed in
// seat order, and a skip takes the seat out of the auction for the rest
// of the round (pass-and-out). The one exception is the opening cycle:
// if all four seats skip, the dealer is put back in and must place a bid,
// which then stands unopposed.
type auction struct {
	dealer       int
	bets         []models.Bet // accepted entries in order, skips included
	highest      *models.Bet
	passed       [4]bool
	dealerForced bool
	closed       bool
}

func newAuction(dealer int) *auction {
	return &auction{dealer: dealer}
}

// mustBid reports whether the seat is the dealer under the forced-bid
// rule: every other seat skipped and no bid was ever placed.
func (a *auction) mustBid(seat int) bool {
	return seat == a.dealer && a.dealerForced
}

// validate checks a bet against the auction state. Turn order and phase
// are the Match's concern; this only judges the bet's content.
func (a *auction) validate(seat int, b models.Bet) error {
	if a.passed[seat] {
		return ErrAlreadyPassed
	}
	if b.Skip {
		if a.mustBid(seat) {
			return ErrDealerMustBid
		}
		return nil
	}
	if b.Amount < models.MinBet || b.Amount > models.MaxBet {
		return ErrBetOutOfRange
	}
	// A bid names exactly one of: a trump color, or withoutTrump.
	if b.NoTrump && b.Trump != nil {
		return ErrBetTrumpShape
	}
	if !b.NoTrump && (b.Trump == nil || !models.ValidColor(*b.Trump)) {
		return ErrBetTrumpShape
	}
	if a.highest != nil && !b.Outranks(*a.highest) {
		return ErrBetTooLow
	}
	return nil
}

// apply records a validated bet and updates auction bookkeeping.
func (a *auction) apply(seat int, b models.Bet) {
	a.bets = append(a.bets, b)

	if b.Skip {
		a.passed[seat] = true
		if a.highest == nil && a.passedCount() == 4 {
			// Opening cycle came up empty: reinstate the dealer, who now
			// has to open with a minimum bid or better.
			a.passed[a.dealer] = false
			a.dealerForced = true
		}
	} else {
		bid := b
		a.highest = &bid
	}

	// A bid stands once the other three seats are out.
	if a.highest != nil && a.passedCount() == 3 {
		a.closed = true
	}
}

func (a *auction) passedCount() int {
	n := 0
	for _, p := range a.passed {
		if p {
			n++
		}
	}
	return n
}

// nextSeat returns the next seat still in the auction, clockwise from
// the given seat. Only meaningful while the auction is open.
func (a *auction) nextSeat(from int) int {
	seat := from
	for i := 0; i < 4; i++ {
		seat = (seat + 1) % 4
		if !a.passed[seat] {
			return seat
		}
	}
	return from
}

// winner returns the standing bet once the auction has closed.
func (a *auction) winner() (models.Bet, bool) {
	if !a.closed || a.highest == nil {
		return models.Bet{}, false
	}
	return *a.highest, true
}
