// internal/game/timers.go
package game

import (
	"log"
	"time"

	"fortyone/internal/models"
)

// setTurn hands the turn to a seat and starts whatever will resolve it:
// a countdown for a connected human, a scheduled move for a bot, or an
// immediate synthesized action for a disconnected seat.
func (m *Match) setTurn(seat int) error {
	m.current = seat
	m.turnID++
	m.cancelTurnTimer()

	p := m.seats[seat]
	switch {
	case p.IsBot:
		m.scheduleBotMove(p)
		return nil
	case !p.Connected:
		return m.autoAct(p)
	default:
		m.armTurnTimer(p)
		return nil
	}
}

// clearTurn retires the current turn so that late timer fires match
// nothing.
func (m *Match) clearTurn() {
	m.current = -1
	m.turnID++
	m.cancelTurnTimer()
}

func (m *Match) cancelTurnTimer() {
	if m.turnTimer != nil {
		m.turnTimer.Stop()
		m.turnTimer = nil
	}
	m.turnDeadline = time.Time{}
}

// armTurnTimer starts the auto-action countdown for a human turn and
// announces the deadline. The fired timer posts an intent stamped with
// the turn generation; the loop discards it if any action won the race.
func (m *Match) armTurnTimer(p *models.Player) {
	if m.TurnDuration <= 0 {
		return
	}
	m.turnDeadline = time.Now().Add(m.TurnDuration)
	m.fireEvent(MatchEvent{
		Type:   EventTimeoutStarted,
		Player: p.Name,
		Seat:   seatRef(p.Seat),
		Payload: map[string]interface{}{
			"deadline": m.turnDeadline.UnixMilli(),
		},
	})

	name, turnID := p.Name, m.turnID
	m.turnTimer = time.AfterFunc(m.TurnDuration, func() {
		_ = m.post(intent{kind: intentTimeout, player: name, turnID: turnID})
	})
}

// handleTimeoutIntent fires the synthesized action for an expired turn.
// Stale generations are no-ops: an action accepted between the timer
// firing and this intent reaching the loop already advanced the turn.
func (m *Match) handleTimeoutIntent(name string, turnID int) error {
	if turnID != m.turnID {
		return nil
	}
	if m.Phase != PhaseBetting && m.Phase != PhasePlaying {
		return nil
	}
	p := m.findPlayer(name)
	if p == nil || p.IsBot || p.Seat != m.current {
		return nil
	}
	log.Printf("Match %s: %s timed out on turn %d, acting for them", m.ID, name, turnID)
	return m.autoAct(p)
}

// autoAct plays the synthesized action for a seat nobody is driving.
// The synthesis is legal by construction, so a rejection here is an
// engine bug and fatal to the match.
func (m *Match) autoAct(p *models.Player) error {
	act := m.synthesizeAction(p)
	if err := m.handleAction(p.Name, act); err != nil {
		return invariantf("match %s: synthesized action for %s rejected: %v", m.ID, p.Name, err)
	}
	return nil
}

// synthesizeAction builds the minimal legal action for the current
// phase: skip the bet (or the forced minimum when skipping is barred),
// or play a uniformly random legal card.
func (m *Match) synthesizeAction(p *models.Player) models.Action {
	switch m.Phase {
	case PhaseBetting:
		if m.auction.mustBid(p.Seat) {
			color := p.LongestColor()
			return models.Action{Type: models.ActionPlaceBet, Bet: &models.Bet{Amount: models.MinBet, Trump: &color}}
		}
		return models.Action{Type: models.ActionPlaceBet, Bet: &models.Bet{Skip: true}}
	case PhasePlaying:
		legal := m.legalCards(p)
		card := legal[m.rng.Intn(len(legal))]
		return models.Action{Type: models.ActionPlayCard, Card: &card}
	}
	return models.Action{}
}

// armGraceTimer opens the reconnection window for a disconnected seat.
// Expiry converts the seat to a bot.
func (m *Match) armGraceTimer(p *models.Player) {
	m.cancelGraceTimer(p.Name)
	name := p.Name
	t := time.AfterFunc(m.Config.GraceWindow(), func() {
		_ = m.post(intent{kind: intentGrace, player: name})
	})
	m.graceTimers[name] = t
}

func (m *Match) cancelGraceTimer(name string) {
	if t, ok := m.graceTimers[name]; ok {
		t.Stop()
		delete(m.graceTimers, name)
	}
}
