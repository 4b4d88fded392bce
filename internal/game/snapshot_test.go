// internal/game/snapshot_test.go
package game

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyone/internal/models"
)

func TestSnapshotFiltersHands(t *testing.T) {
	m, _ := setupTestMatch(t, 30)

	snap := m.stateFor("ben")
	assert.Equal(t, m.findPlayer("ben").Hand, snap.Hand)
	require.Len(t, snap.Seats, 4)
	for _, sv := range snap.Seats {
		assert.Equal(t, TricksPerRound, sv.HandCount)
	}
	assert.Equal(t, PhaseBetting, snap.Phase)
	assert.Equal(t, 0, snap.CurrentSeat)
	assert.Equal(t, 41, snap.TargetScore)

	// An unknown recipient gets no hand at all.
	anon := m.stateFor("")
	assert.Empty(t, anon.Hand)
	assert.Len(t, anon.Seats, 4)
}

// The serialized snapshot must not leak anyone else's cards: the only
// card objects on the wire are the recipient's own hand.
func TestSnapshotMarshalLeaksNoOtherHands(t *testing.T) {
	m, _ := setupTestMatch(t, 31)

	data, err := json.Marshal(m.stateFor("ava"))
	require.NoError(t, err)

	assert.Equal(t, TricksPerRound, strings.Count(string(data), `"color"`))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	seats, ok := decoded["seats"].([]interface{})
	require.True(t, ok)
	for _, s := range seats {
		sv, ok := s.(map[string]interface{})
		require.True(t, ok)
		_, hasHand := sv["hand"]
		assert.False(t, hasHand)
	}
}

func TestSnapshotCarriesAuctionOutcome(t *testing.T) {
	m, _ := setupTestMatch(t, 32)

	placeBet(t, m, "ava", bid(9, models.ColorBlue))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}

	snap := m.stateFor("dan")
	assert.Equal(t, PhasePlaying, snap.Phase)
	require.NotNil(t, snap.WinningBet)
	assert.Equal(t, 9, snap.WinningBet.Amount)
	require.NotNil(t, snap.Trump)
	assert.Equal(t, models.ColorBlue, *snap.Trump)
	assert.Equal(t, 1, snap.TrickNumber)
	assert.Len(t, snap.Bets, 4)
	assert.Empty(t, snap.Trick)
}

func TestSnapshotCarriesRoundSummaryInScoring(t *testing.T) {
	m, _ := setupTestMatch(t, 33)
	setHands(m, oneColorEach())

	placeBet(t, m, "ava", bid(7, models.ColorRed))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}
	playOutRound(t, m)
	require.Equal(t, PhaseScoring, m.Phase)

	snap := m.stateFor("cara")
	require.NotNil(t, snap.LastRound)
	assert.Equal(t, 1, snap.LastRound.Round)
	assert.True(t, snap.LastRound.BetMet)
	assert.Equal(t, [2]int{7, 0}, snap.Scores)
	assert.Empty(t, snap.Hand, "all cards were played")
	assert.Zero(t, snap.TurnDeadline)
}
