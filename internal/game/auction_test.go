// internal/game/auction_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyone/internal/models"
)

func colorRef(c models.Color) *models.Color { return &c }

func TestAuctionBidAndThreeSkipsCloses(t *testing.T) {
	a := newAuction(0)

	bid := models.Bet{Seat: 0, Amount: 7, Trump: colorRef(models.ColorGreen)}
	require.NoError(t, a.validate(0, bid))
	a.apply(0, bid)
	assert.False(t, a.closed)

	for seat := 1; seat <= 3; seat++ {
		skip := models.Bet{Seat: seat, Skip: true}
		require.NoError(t, a.validate(seat, skip))
		a.apply(seat, skip)
	}

	require.True(t, a.closed)
	won, ok := a.winner()
	require.True(t, ok)
	assert.Equal(t, 0, won.Seat)
	assert.Equal(t, 7, won.Amount)
}

func TestAuctionAllSkipsForceDealer(t *testing.T) {
	a := newAuction(2)

	// Dealer opens, everyone passes.
	for i := 0; i < 4; i++ {
		seat := (2 + i) % 4
		skip := models.Bet{Seat: seat, Skip: true}
		require.NoError(t, a.validate(seat, skip))
		a.apply(seat, skip)
	}

	assert.False(t, a.closed)
	assert.True(t, a.mustBid(2))
	assert.Equal(t, 2, a.nextSeat(1), "dealer is the only seat left in")

	// The dealer may no longer skip.
	assert.ErrorIs(t, a.validate(2, models.Bet{Seat: 2, Skip: true}), ErrDealerMustBid)

	forced := models.Bet{Seat: 2, Amount: models.MinBet, Trump: colorRef(models.ColorBlue)}
	require.NoError(t, a.validate(2, forced))
	a.apply(2, forced)

	// Three seats already passed, so the forced bid stands immediately.
	require.True(t, a.closed)
	won, ok := a.winner()
	require.True(t, ok)
	assert.Equal(t, 2, won.Seat)
	assert.Equal(t, models.MinBet, won.Amount)
}

func TestAuctionOutbidding(t *testing.T) {
	a := newAuction(0)

	a.apply(0, models.Bet{Seat: 0, Skip: true})

	first := models.Bet{Seat: 1, Amount: 8, Trump: colorRef(models.ColorRed)}
	require.NoError(t, a.validate(1, first))
	a.apply(1, first)

	// Equal amount with a trump color does not outrank.
	equal := models.Bet{Seat: 2, Amount: 8, Trump: colorRef(models.ColorGreen)}
	assert.ErrorIs(t, a.validate(2, equal), ErrBetTooLow)

	// Equal amount without trump does.
	noTrump := models.Bet{Seat: 2, Amount: 8, NoTrump: true}
	require.NoError(t, a.validate(2, noTrump))
	a.apply(2, noTrump)

	a.apply(3, models.Bet{Seat: 3, Skip: true})
	assert.False(t, a.closed, "seat 1 can still raise")

	// Turn passes over the seat 0 skip back to seat 1.
	assert.Equal(t, 1, a.nextSeat(3))

	a.apply(1, models.Bet{Seat: 1, Skip: true})
	require.True(t, a.closed)
	won, ok := a.winner()
	require.True(t, ok)
	assert.Equal(t, 2, won.Seat)
	assert.True(t, won.NoTrump)
}

func TestAuctionValidateRejectsMalformedBets(t *testing.T) {
	a := newAuction(0)

	assert.ErrorIs(t, a.validate(0, models.Bet{Amount: 6, Trump: colorRef(models.ColorRed)}), ErrBetOutOfRange)
	assert.ErrorIs(t, a.validate(0, models.Bet{Amount: 13, Trump: colorRef(models.ColorRed)}), ErrBetOutOfRange)

	// A bid names exactly one of trump color or withoutTrump.
	assert.ErrorIs(t, a.validate(0, models.Bet{Amount: 8}), ErrBetTrumpShape)
	assert.ErrorIs(t, a.validate(0, models.Bet{Amount: 8, NoTrump: true, Trump: colorRef(models.ColorRed)}), ErrBetTrumpShape)

	bad := models.Color("purple")
	assert.ErrorIs(t, a.validate(0, models.Bet{Amount: 8, Trump: &bad}), ErrBetTrumpShape)

	// A passed seat stays out.
	a.apply(1, models.Bet{Seat: 1, Skip: true})
	assert.ErrorIs(t, a.validate(1, models.Bet{Amount: 8, Trump: colorRef(models.ColorRed)}), ErrAlreadyPassed)
}
