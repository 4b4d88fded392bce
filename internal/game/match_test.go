// internal/game/match_test.go
package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyone/internal/models"
)

// mockBroadcaster captures events in place of the websocket layer.
type mockBroadcaster struct {
	mu           sync.Mutex
	allEvents    []MatchEvent
	playerEvents map[string][]MatchEvent
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[string][]MatchEvent)}
}

func (mb *mockBroadcaster) broadcastFn(ev MatchEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = append(mb.allEvents, ev)
}

func (mb *mockBroadcaster) broadcastToPlayerFn(player string, ev MatchEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.playerEvents[player] = append(mb.playerEvents[player], ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.allEvents = nil
	mb.playerEvents = make(map[string][]MatchEvent)
}

func (mb *mockBroadcaster) eventsOfType(typ EventType) []MatchEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []MatchEvent
	for _, ev := range mb.allEvents {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) lastOfType(typ EventType) *MatchEvent {
	evs := mb.eventsOfType(typ)
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

func (mb *mockBroadcaster) playerEventsFor(player string) []MatchEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return append([]MatchEvent{}, mb.playerEvents[player]...)
}

func (mb *mockBroadcaster) lastPlayerEvent(player string) *MatchEvent {
	evs := mb.playerEventsFor(player)
	if len(evs) == 0 {
		return nil
	}
	return &evs[len(evs)-1]
}

// waitForEvent polls until an event of the given type shows up. Only
// needed by tests that run the intent loop for real.
func (mb *mockBroadcaster) waitForEvent(typ EventType, timeout time.Duration) *MatchEvent {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ev := mb.lastOfType(typ); ev != nil {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}

var testNames = []string{"ava", "ben", "cara", "dan"}

// setupTestMatch seats four connected humans and deals round 1 with a
// fixed seed. The intent loop is not started; tests call the handlers
// directly, so every mutation is synchronous. Turn timers are off.
func setupTestMatch(t *testing.T, seed int64) (*Match, *mockBroadcaster) {
	t.Helper()
	cfg := DefaultMatchConfig()
	cfg.TurnTimeoutSec = 0
	m := NewMatch(cfg)
	m.rng = rand.New(rand.NewSource(seed))
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	t.Cleanup(m.Stop)

	for _, name := range testNames {
		require.NoError(t, m.handleJoin(name, 0, false, ""))
	}
	require.Equal(t, PhaseBetting, m.Phase)
	mb.clear()
	return m, mb
}

func bid(amount int, color models.Color) *models.Bet {
	c := color
	return &models.Bet{Amount: amount, Trump: &c}
}

func skipBet() *models.Bet {
	return &models.Bet{Skip: true}
}

func placeBet(t *testing.T, m *Match, name string, b *models.Bet) {
	t.Helper()
	require.NoError(t, m.handleAction(name, models.Action{Type: models.ActionPlaceBet, Bet: b}))
}

func playCard(t *testing.T, m *Match, name string, c models.Card) {
	t.Helper()
	require.NoError(t, m.handleAction(name, models.Action{Type: models.ActionPlayCard, Card: &c}))
}

// setHands replaces the dealt hands with a crafted partition so a test
// can script an exact round.
func setHands(m *Match, hands [4][]models.Card) {
	for seat := range hands {
		m.seats[seat].Hand = append([]models.Card{}, hands[seat]...)
	}
}

func colorRun(color models.Color, lo, hi int) []models.Card {
	var cards []models.Card
	for v := lo; v <= hi; v++ {
		cards = append(cards, models.Card{Color: color, Value: v})
	}
	return cards
}

// oneColorEach deals the whole red color to seat 0, brown to 1, green
// to 2, blue to 3. With red as trump seat 0 cannot lose a trick.
func oneColorEach() [4][]models.Card {
	return [4][]models.Card{
		colorRun(models.ColorRed, 0, 7),
		colorRun(models.ColorBrown, 0, 7),
		colorRun(models.ColorGreen, 0, 7),
		colorRun(models.ColorBlue, 0, 7),
	}
}

// playOutRound has the current seat play its first legal card until
// the round closes. Returns the number of plays made.
func playOutRound(t *testing.T, m *Match) int {
	t.Helper()
	plays := 0
	for m.Phase == PhasePlaying {
		p := m.seats[m.current]
		legal := m.legalCards(p)
		require.NotEmpty(t, legal)
		playCard(t, m, p.Name, legal[0])
		plays++
		require.LessOrEqual(t, plays, 32, "round did not terminate")
	}
	return plays
}

func TestMatchStartsWhenFourJoin(t *testing.T) {
	m, _ := setupTestMatch(t, 1)

	assert.Equal(t, 1, m.round)
	assert.Equal(t, 0, m.dealer)
	assert.Equal(t, 0, m.current, "dealer opens the auction")
	for seat, p := range m.seats {
		require.NotNil(t, p)
		assert.Equal(t, seat, p.Seat)
		assert.Len(t, p.Hand, TricksPerRound)
	}
	// Partners sit opposite: seats 0/2 team 1, seats 1/3 team 2.
	assert.Equal(t, models.Team1, m.seats[0].Team)
	assert.Equal(t, models.Team2, m.seats[1].Team)
	assert.Equal(t, models.Team1, m.seats[2].Team)
	assert.Equal(t, models.Team2, m.seats[3].Team)
}

func TestJoinRejections(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.TurnTimeoutSec = 0
	m := NewMatch(cfg)
	t.Cleanup(m.Stop)

	require.NoError(t, m.handleJoin("ava", models.Team1, false, ""))
	assert.ErrorIs(t, m.handleJoin("ava", 0, false, ""), ErrNameTaken)
	assert.ErrorIs(t, m.handleJoin("eve", 3, false, ""), ErrInvalidTeam)

	require.NoError(t, m.handleJoin("ben", models.Team1, false, ""))
	assert.ErrorIs(t, m.handleJoin("eve", models.Team1, false, ""), ErrTeamFull)

	require.NoError(t, m.handleJoin("cara", models.Team2, false, ""))
	require.NoError(t, m.handleJoin("dan", models.Team2, false, ""))
	require.Equal(t, PhaseBetting, m.Phase)

	assert.ErrorIs(t, m.handleJoin("eve", 0, false, ""), ErrMatchFull)
}

func TestTeamSwitchBeforeStart(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.TurnTimeoutSec = 0
	m := NewMatch(cfg)
	t.Cleanup(m.Stop)

	require.NoError(t, m.handleJoin("ava", models.Team1, false, ""))
	require.NoError(t, m.handleJoin("ben", models.Team1, false, ""))
	require.NoError(t, m.handleJoin("cara", models.Team2, false, ""))

	// Team 1 is full.
	err := m.handleAction("cara", models.Action{Type: models.ActionSelectTeam, Team: models.Team1})
	assert.ErrorIs(t, err, ErrTeamFull)

	// ben moves over, freeing a slot.
	require.NoError(t, m.handleAction("ben", models.Action{Type: models.ActionSelectTeam, Team: models.Team2}))
	assert.Equal(t, models.Team2, m.findPlayer("ben").Team)

	// The fourth join balances the teams and play begins.
	require.NoError(t, m.handleJoin("dan", models.Team1, false, ""))
	assert.Equal(t, PhaseBetting, m.Phase)
}

func TestDealerForcedBidAfterFourSkips(t *testing.T) {
	m, mb := setupTestMatch(t, 2)

	for _, name := range testNames {
		placeBet(t, m, name, skipBet())
	}

	// All four skipped: the auction is still open, back at the dealer,
	// and skipping again is barred.
	assert.Equal(t, PhaseBetting, m.Phase)
	assert.Equal(t, 0, m.current)
	err := m.handleAction("ava", models.Action{Type: models.ActionPlaceBet, Bet: skipBet()})
	assert.ErrorIs(t, err, ErrDealerMustBid)

	placeBet(t, m, "ava", bid(models.MinBet, models.ColorGreen))

	assert.Equal(t, PhasePlaying, m.Phase)
	require.NotNil(t, m.winningBet)
	assert.Equal(t, 0, m.winningBet.Seat)
	assert.Equal(t, models.MinBet, m.winningBet.Amount)
	assert.Equal(t, models.Team1, m.offenseTeam)
	assert.Equal(t, 1, m.current, "seat left of the dealer leads")

	ended := mb.lastOfType(EventBettingEnded)
	require.NotNil(t, ended)
	assert.Equal(t, "ava", ended.Player)
	assert.Len(t, mb.eventsOfType(EventBetPlaced), 5, "four skips plus the forced bid")
}

func TestBetRejections(t *testing.T) {
	m, _ := setupTestMatch(t, 3)

	err := m.handleAction("ben", models.Action{Type: models.ActionPlaceBet, Bet: bid(8, models.ColorRed)})
	assert.ErrorIs(t, err, ErrNotYourTurn)

	card := m.seats[0].Hand[0]
	err = m.handleAction("ava", models.Action{Type: models.ActionPlayCard, Card: &card})
	assert.ErrorIs(t, err, ErrWrongPhase)

	err = m.handleAction("zoe", models.Action{Type: models.ActionPlaceBet, Bet: skipBet()})
	assert.ErrorIs(t, err, ErrSeatNotInMatch)

	err = m.handleAction("ava", models.Action{Type: models.ActionPlaceBet, Bet: bid(6, models.ColorRed)})
	assert.ErrorIs(t, err, ErrBetOutOfRange)

	err = m.handleAction("ava", models.Action{Type: models.ActionReady})
	assert.ErrorIs(t, err, ErrWrongPhase)

	// Rejections leave the auction untouched.
	assert.Equal(t, 0, m.current)
	assert.Empty(t, m.auction.bets)
}

// Seat 0 holds all of red and bids 7 with red as trump: it cannot lose
// a trick, and the round is worth exactly 11 points (8 tricks, +5 for
// red 0, -2 for brown 0).
func TestScriptedRoundBetMet(t *testing.T) {
	m, mb := setupTestMatch(t, 4)
	setHands(m, oneColorEach())

	placeBet(t, m, "ava", bid(7, models.ColorRed))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}
	require.Equal(t, PhasePlaying, m.Phase)

	plays := playOutRound(t, m)
	assert.Equal(t, 32, plays)

	require.Equal(t, PhaseScoring, m.Phase)
	assert.Len(t, mb.eventsOfType(EventTrickResolved), 8)
	assert.Equal(t, 8, m.seats[0].TricksWon)
	assert.Equal(t, [2]int{7, 0}, m.scores)

	require.Len(t, m.history, 1)
	rec := m.history[0]
	assert.True(t, rec.BetMet)
	assert.Equal(t, [2]int{11, 0}, rec.TeamPoints)
	assert.Equal(t, [2]int{7, 0}, rec.Deltas)
	assert.Equal(t, -1, m.current, "no turn pending during scoring")

	// Duplicate ready acks are suppressed; the round advances once all
	// four are in.
	require.NoError(t, m.handleAction("ava", models.Action{Type: models.ActionReady}))
	require.NoError(t, m.handleAction("ava", models.Action{Type: models.ActionReady}))
	assert.Len(t, mb.eventsOfType(EventPlayerReady), 1)
	for _, name := range testNames[1:] {
		require.NoError(t, m.handleAction(name, models.Action{Type: models.ActionReady}))
	}

	assert.Equal(t, PhaseBetting, m.Phase)
	assert.Equal(t, 2, m.round)
	assert.Equal(t, 1, m.dealer, "deal rotates left")
	assert.Equal(t, 1, m.current)
	for _, p := range m.seats {
		assert.Len(t, p.Hand, TricksPerRound)
	}
}

// The deck only yields 11 trick points, so a 12 bet fails even when the
// offense takes every trick, and the defense banks nothing.
func TestScriptedRoundBetFailed(t *testing.T) {
	m, _ := setupTestMatch(t, 5)
	setHands(m, oneColorEach())

	placeBet(t, m, "ava", bid(models.MaxBet, models.ColorRed))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}
	playOutRound(t, m)

	require.Equal(t, PhaseScoring, m.Phase)
	rec := m.history[0]
	assert.False(t, rec.BetMet)
	assert.Equal(t, [2]int{11, 0}, rec.TeamPoints)
	assert.Equal(t, [2]int{-models.MaxBet, 0}, rec.Deltas)
	assert.Equal(t, [2]int{-models.MaxBet, 0}, m.scores, "totals may go negative")
}

// Without trump, seat 0's reds are just another side color: seat 1
// leads brown every trick and nobody can touch it. The failed
// without-trump bet costs double.
func TestScriptedRoundWithoutTrumpFailed(t *testing.T) {
	m, _ := setupTestMatch(t, 6)
	setHands(m, oneColorEach())

	placeBet(t, m, "ava", &models.Bet{Amount: 7, NoTrump: true})
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}
	require.Equal(t, PhasePlaying, m.Phase)
	assert.Nil(t, m.trump)
	assert.True(t, m.noTrump)

	playOutRound(t, m)

	rec := m.history[0]
	assert.False(t, rec.BetMet)
	assert.Equal(t, 8, m.seats[1].TricksWon)
	assert.Equal(t, [2]int{0, 11}, rec.TeamPoints)
	assert.Equal(t, [2]int{-14, 11}, rec.Deltas, "failed without-trump bet costs double")
}

func TestScriptedRoundWithoutTrumpMet(t *testing.T) {
	m, _ := setupTestMatch(t, 7)
	setHands(m, oneColorEach())

	placeBet(t, m, "ava", skipBet())
	placeBet(t, m, "ben", &models.Bet{Amount: 7, NoTrump: true})
	placeBet(t, m, "cara", skipBet())
	placeBet(t, m, "dan", skipBet())
	require.Equal(t, PhasePlaying, m.Phase)
	assert.Equal(t, models.Team2, m.offenseTeam)
	assert.Equal(t, 1, m.current)

	playOutRound(t, m)

	rec := m.history[0]
	assert.True(t, rec.BetMet)
	assert.Equal(t, [2]int{0, 11}, rec.TeamPoints)
	assert.Equal(t, [2]int{0, 14}, rec.Deltas, "met without-trump bet pays double")
}

func TestFollowColorEnforced(t *testing.T) {
	m, _ := setupTestMatch(t, 8)
	ava := append([]models.Card{{Color: models.ColorGreen, Value: 1}}, colorRun(models.ColorRed, 0, 6)...)
	ben := append(colorRun(models.ColorGreen, 2, 7),
		models.Card{Color: models.ColorBrown, Value: 0},
		models.Card{Color: models.ColorBrown, Value: 1})
	cara := colorRun(models.ColorBlue, 0, 7)
	dan := append(colorRun(models.ColorBrown, 2, 7),
		models.Card{Color: models.ColorRed, Value: 7},
		models.Card{Color: models.ColorGreen, Value: 0})
	setHands(m, [4][]models.Card{ava, ben, cara, dan})

	placeBet(t, m, "ava", bid(7, models.ColorRed))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}
	require.Equal(t, PhasePlaying, m.Phase)

	playCard(t, m, "ben", models.Card{Color: models.ColorGreen, Value: 7})

	// cara is void in green and may throw anything.
	playCard(t, m, "cara", models.Card{Color: models.ColorBlue, Value: 3})

	// dan holds green 0 and must play it.
	err := m.handleAction("dan", models.Action{Type: models.ActionPlayCard, Card: &models.Card{Color: models.ColorBrown, Value: 2}})
	assert.ErrorIs(t, err, ErrMustFollowColor)
	playCard(t, m, "dan", models.Card{Color: models.ColorGreen, Value: 0})

	// Holding the led color bars even a trump.
	err = m.handleAction("ava", models.Action{Type: models.ActionPlayCard, Card: &models.Card{Color: models.ColorRed, Value: 3}})
	assert.ErrorIs(t, err, ErrMustFollowColor)

	// A card the player does not hold is its own rejection.
	err = m.handleAction("ava", models.Action{Type: models.ActionPlayCard, Card: &models.Card{Color: models.ColorGreen, Value: 2}})
	assert.ErrorIs(t, err, ErrCardNotInHand)

	playCard(t, m, "ava", models.Card{Color: models.ColorGreen, Value: 1})

	require.Len(t, m.resolved, 1)
	assert.Equal(t, 1, m.resolved[0].Winner, "highest green takes it, nobody trumped")
	assert.Equal(t, 1, m.current, "winner leads the next trick")
	assert.Equal(t, 2, m.trickNum)
}

// A full round on a real shuffled deal, each seat playing its first
// legal card. Checks the bookkeeping that must hold however the cards
// fell.
func TestFullRandomRoundInvariants(t *testing.T) {
	m, mb := setupTestMatch(t, 9)

	placeBet(t, m, "ava", bid(8, models.ColorBlue))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}

	plays := playOutRound(t, m)
	assert.Equal(t, 32, plays)

	require.Equal(t, PhaseScoring, m.Phase)
	assert.Len(t, mb.eventsOfType(EventTrickResolved), 8)

	tricks := 0
	for _, p := range m.seats {
		assert.Empty(t, p.Hand)
		tricks += p.TricksWon
	}
	assert.Equal(t, TricksPerRound, tricks)

	rec := m.history[0]
	assert.Equal(t, 11, rec.TeamPoints[0]+rec.TeamPoints[1], "the deck always yields 11 trick points")
	off := rec.OffenseTeam - 1
	def := 1 - off
	assert.Equal(t, rec.TeamPoints[def], rec.Deltas[def], "defense banks its trick points")
	if rec.BetMet {
		assert.Equal(t, rec.WinningBet.Value(), rec.Deltas[off])
	} else {
		assert.Equal(t, -rec.WinningBet.Value(), rec.Deltas[off])
	}
	assert.Equal(t, rec.Totals, m.scores)
}

func TestGameOverAndRematch(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.TurnTimeoutSec = 0
	cfg.TargetScore = 7
	m := NewMatch(cfg)
	m.rng = rand.New(rand.NewSource(10))
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	t.Cleanup(m.Stop)
	for _, name := range testNames {
		require.NoError(t, m.handleJoin(name, 0, false, ""))
	}
	setHands(m, oneColorEach())

	placeBet(t, m, "ava", bid(7, models.ColorRed))
	for _, name := range []string{"ben", "cara", "dan"} {
		placeBet(t, m, name, skipBet())
	}
	playOutRound(t, m)

	require.Equal(t, PhaseGameOver, m.Phase)
	over := mb.lastOfType(EventGameOver)
	require.NotNil(t, over)
	assert.Equal(t, models.Team1, over.Team)
	assert.Equal(t, -1, m.current)

	// Play is refused now; rematch votes are not.
	card := models.Card{Color: models.ColorRed, Value: 0}
	err := m.handleAction("ava", models.Action{Type: models.ActionPlayCard, Card: &card})
	assert.ErrorIs(t, err, ErrMatchOver)

	for _, name := range testNames {
		require.NoError(t, m.handleAction(name, models.Action{Type: models.ActionRematch}))
	}

	require.NotNil(t, mb.lastOfType(EventRematchStarted))
	assert.Equal(t, PhaseBetting, m.Phase)
	assert.Equal(t, [2]int{0, 0}, m.scores)
	assert.Equal(t, 1, m.round)
	assert.Equal(t, 1, m.dealer, "rematch rotates the deal")
	assert.Empty(t, m.history)
	for _, p := range m.seats {
		assert.Len(t, p.Hand, TricksPerRound)
		assert.False(t, p.RematchVote)
	}
}

func TestDisconnectDuringTurnAutoActs(t *testing.T) {
	m, mb := setupTestMatch(t, 11)

	require.NoError(t, m.handleConnLost("ava"))

	assert.False(t, m.findPlayer("ava").Connected)
	require.NotNil(t, mb.lastOfType(EventPlayerDisconnected))

	// ava's turn resolved with a synthesized skip.
	evs := mb.eventsOfType(EventBetPlaced)
	require.Len(t, evs, 1)
	assert.Equal(t, "ava", evs[0].Player)
	assert.True(t, evs[0].Bet.Skip)
	assert.Equal(t, 1, m.current)

	assert.Contains(t, m.graceTimers, "ava", "grace window armed")
}

func TestDisconnectOffTurnWaits(t *testing.T) {
	m, mb := setupTestMatch(t, 12)

	require.NoError(t, m.handleConnLost("ben"))
	assert.Empty(t, mb.eventsOfType(EventBetPlaced), "off-turn seat keeps its cards")
	assert.Equal(t, 0, m.current)

	// When the turn reaches the empty seat it resolves immediately.
	placeBet(t, m, "ava", skipBet())
	evs := mb.eventsOfType(EventBetPlaced)
	require.Len(t, evs, 2)
	assert.Equal(t, "ben", evs[1].Player)
	assert.True(t, evs[1].Bet.Skip)
	assert.Equal(t, 2, m.current, "play moved past the empty seat")
}

func TestReconnectWithinGrace(t *testing.T) {
	m, mb := setupTestMatch(t, 13)

	require.NoError(t, m.handleConnLost("ben"))
	require.Contains(t, m.graceTimers, "ben")

	require.NoError(t, m.handleResume("ben"))

	p := m.findPlayer("ben")
	assert.True(t, p.Connected)
	assert.False(t, p.IsBot)
	assert.NotContains(t, m.graceTimers, "ben")
	require.NotNil(t, mb.lastOfType(EventPlayerReconnected))

	// The replayed snapshot goes to ben alone and carries his hand.
	snap := mb.lastPlayerEvent("ben")
	require.NotNil(t, snap)
	require.Equal(t, EventSnapshot, snap.Type)
	require.NotNil(t, snap.State)
	assert.Equal(t, p.Hand, snap.State.Hand)
	assert.Empty(t, mb.playerEventsFor("cara"), "nobody else got a replay")
}

func TestResumeRejections(t *testing.T) {
	m, _ := setupTestMatch(t, 14)

	assert.ErrorIs(t, m.handleResume("zoe"), ErrBadCredential)

	// A seat already converted to a bot is gone for good.
	require.NoError(t, m.handleConnLost("ben"))
	require.NoError(t, m.handleGraceExpired("ben"))
	assert.ErrorIs(t, m.handleResume("ben"), ErrGraceExpired)
}

func TestGraceExpiryConvertsSeat(t *testing.T) {
	m, mb := setupTestMatch(t, 15)

	require.NoError(t, m.handleConnLost("ben"))
	require.NoError(t, m.handleGraceExpired("ben"))

	p := m.findPlayer("ben")
	assert.True(t, p.IsBot)
	assert.Equal(t, m.Config.BotSkill, p.BotSkill)

	ev := mb.lastOfType(EventSeatConverted)
	require.NotNil(t, ev)
	assert.Equal(t, "ben", ev.Player)

	// Expiry after a reconnect is a stale no-op.
	require.NoError(t, m.handleConnLost("cara"))
	require.NoError(t, m.handleResume("cara"))
	require.NoError(t, m.handleGraceExpired("cara"))
	assert.False(t, m.findPlayer("cara").IsBot)
}

// A voluntary leave skips the grace window: the seat converts on the
// spot and the credential stops rebinding.
func TestLeaveConvertsSeatImmediately(t *testing.T) {
	m, mb := setupTestMatch(t, 16)

	require.NoError(t, m.handleLeave("ben"))

	p := m.findPlayer("ben")
	assert.True(t, p.IsBot)
	assert.False(t, p.Connected)
	assert.Empty(t, m.graceTimers, "no grace window after a deliberate leave")

	ev := mb.lastOfType(EventSeatConverted)
	require.NotNil(t, ev)
	assert.Equal(t, "ben", ev.Player)

	assert.ErrorIs(t, m.handleResume("ben"), ErrGraceExpired)
}

func TestLastHumanGraceExpiryTerminates(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.TurnTimeoutSec = 0
	cfg.BotDelayMs = 0
	m := NewMatch(cfg)
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	var terminated bool
	m.OnTerminated = func(uuid.UUID) { terminated = true }

	require.NoError(t, m.handleJoin("ava", 0, false, ""))
	for _, name := range []string{"bot-1", "bot-2", "bot-3"} {
		require.NoError(t, m.handleJoin(name, 0, true, models.BotEasy))
	}
	require.Equal(t, PhaseBetting, m.Phase)

	require.NoError(t, m.handleConnLost("ava"))
	require.NoError(t, m.handleGraceExpired("ava"))

	assert.True(t, terminated)
	assert.Equal(t, PhaseGameOver, m.Phase)
	require.NotNil(t, mb.lastOfType(EventMatchTerminated))
}

// With every seat disconnected the engine plays the whole match by
// synthesis alone. Whatever the deal, every synthesized action must
// pass its own validation and the match must reach game over.
func TestDisconnectedMatchPlaysItselfOut(t *testing.T) {
	for seed := int64(0); seed < 25; seed++ {
		cfg := DefaultMatchConfig()
		cfg.TurnTimeoutSec = 0
		m := NewMatch(cfg)
		m.rng = rand.New(rand.NewSource(seed))
		for _, name := range testNames {
			require.NoError(t, m.handleJoin(name, 0, false, ""))
		}

		for _, name := range testNames {
			require.NoError(t, m.handleConnLost(name), "seed %d", seed)
		}

		require.Equal(t, PhaseGameOver, m.Phase, "seed %d", seed)
		winner := m.gameWinner()
		require.NotZero(t, winner, "seed %d", seed)
		assert.GreaterOrEqual(t, m.scores[winner-1], cfg.TargetScore, "seed %d", seed)
		m.Stop()
	}
}

func TestTurnTimeoutSynthesizesAction(t *testing.T) {
	cfg := DefaultMatchConfig()
	m := NewMatch(cfg)
	m.TurnDuration = 60 * time.Millisecond
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Start()
	defer m.Stop()

	for _, name := range testNames {
		require.NoError(t, m.Join(name, 0))
	}

	require.NotNil(t, mb.waitForEvent(EventTimeoutStarted, time.Second))
	started := mb.eventsOfType(EventTimeoutStarted)[0]
	assert.Equal(t, "ava", started.Player)
	deadline, ok := started.Payload["deadline"].(int64)
	require.True(t, ok)
	assert.Greater(t, deadline, int64(0))

	// Nobody acts; the countdown resolves ava's turn with a skip.
	require.NotNil(t, mb.waitForEvent(EventBetPlaced, time.Second))
	ev := mb.eventsOfType(EventBetPlaced)[0]
	assert.Equal(t, "ava", ev.Player)
	assert.True(t, ev.Bet.Skip)
}

func TestActionBeatsTimeout(t *testing.T) {
	cfg := DefaultMatchConfig()
	m := NewMatch(cfg)
	m.TurnDuration = 80 * time.Millisecond
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Start()
	defer m.Stop()
	for _, name := range testNames {
		require.NoError(t, m.Join(name, 0))
	}

	// ava acts well inside the window.
	require.NoError(t, m.SubmitAction("ava", models.Action{Type: models.ActionPlaceBet, Bet: bid(8, models.ColorGreen)}))

	// Wait out the original deadline; the stale timer must not act for
	// ava a second time.
	time.Sleep(150 * time.Millisecond)

	avaBets := 0
	for _, ev := range mb.eventsOfType(EventBetPlaced) {
		if ev.Player == "ava" {
			avaBets++
		}
	}
	assert.Equal(t, 1, avaBets, "stale timeout for a finished turn is discarded")
}

func TestGraceWindowExpiresOverLoop(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.TurnTimeoutSec = 0
	cfg.GraceSec = 1
	m := NewMatch(cfg)
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Start()
	defer m.Stop()
	for _, name := range testNames {
		require.NoError(t, m.Join(name, 0))
	}

	require.NoError(t, m.ConnLost("ben"))

	ev := mb.waitForEvent(EventSeatConverted, 3*time.Second)
	require.NotNil(t, ev)
	assert.Equal(t, "ben", ev.Player)

	snap, err := m.StateFor("")
	require.NoError(t, err)
	assert.True(t, snap.Seats[1].IsBot)
}

// Four bots drive a whole match through the public API with no human
// input and no timers shortened.
func TestAllBotMatchRunsToCompletion(t *testing.T) {
	cfg := DefaultMatchConfig()
	cfg.BotDelayMs = 0
	m := NewMatch(cfg)
	mb := newMockBroadcaster()
	m.BroadcastFn = mb.broadcastFn
	m.BroadcastToPlayerFn = mb.broadcastToPlayerFn
	m.Start()
	defer m.Stop()

	skills := []string{models.BotEasy, models.BotMedium, models.BotHard, models.BotMedium}
	for i, name := range testNames {
		require.NoError(t, m.JoinBot(name, 0, skills[i]))
	}

	over := mb.waitForEvent(EventGameOver, 15*time.Second)
	require.NotNil(t, over, "four bots must finish a match unaided")
	assert.Empty(t, mb.eventsOfType(EventMatchTerminated), "no invariant tripped along the way")

	totals, ok := over.Payload["totals"].([2]int)
	require.True(t, ok)
	winner := over.Team - 1
	require.Contains(t, []int{0, 1}, winner)
	assert.GreaterOrEqual(t, totals[winner], cfg.TargetScore)
}

func TestStoppedMatchAnswersMatchOver(t *testing.T) {
	m := NewMatch(DefaultMatchConfig())
	m.Start()
	m.Stop()

	assert.ErrorIs(t, m.Join("ava", 0), ErrMatchOver)
	_, err := m.StateFor("ava")
	assert.ErrorIs(t, err, ErrMatchOver)
}
