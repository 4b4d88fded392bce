// internal/game/loop.go
package game

import (
	"log"

	"fortyone/internal/models"
)

type intentKind int

const (
	intentAction intentKind = iota
	intentJoin
	intentResume
	intentConnLost
	intentLeave
	intentTimeout
	intentBotMove
	intentGrace
	intentState
)

// intent is one message to the match loop. resp carries the outcome
// back to the submitter; state is set on snapshot requests only.
type intent struct {
	kind   intentKind
	player string
	action models.Action
	team   int
	isBot  bool
	skill  string
	turnID int
	resp   chan error
	state  chan Snapshot
}

// Start launches the match's intent loop. Call once, after the
// broadcast callbacks are wired.
func (m *Match) Start() {
	go m.run()
}

// Stop halts the loop. Timers already armed fire into a closed match
// and are discarded. Idempotent.
func (m *Match) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

func (m *Match) run() {
	for {
		select {
		case in := <-m.intents:
			err := m.dispatch(in)
			if in.resp != nil {
				in.resp <- err
			}
		case <-m.done:
			return
		}
	}
}

// dispatch handles one intent on the loop goroutine. A panic or an
// invariant violation is fatal to this match only: the loop logs it,
// tears the match down, and still answers the submitter.
func (m *Match) dispatch(in intent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = invariantf("match %s: panic in dispatch: %v", m.ID, r)
		}
		if err != nil && IsInvariantError(err) {
			log.Printf("Match %s: fatal: %v", m.ID, err)
			m.terminate("internal error")
		}
	}()

	switch in.kind {
	case intentAction:
		err = m.handleAction(in.player, in.action)
	case intentJoin:
		err = m.handleJoin(in.player, in.team, in.isBot, in.skill)
	case intentResume:
		err = m.handleResume(in.player)
	case intentConnLost:
		err = m.handleConnLost(in.player)
	case intentLeave:
		err = m.handleLeave(in.player)
	case intentTimeout:
		err = m.handleTimeoutIntent(in.player, in.turnID)
	case intentBotMove:
		err = m.handleBotIntent(in.player, in.turnID)
	case intentGrace:
		err = m.handleGraceExpired(in.player)
	case intentState:
		in.state <- m.stateFor(in.player)
	}
	return err
}

// post submits an intent and waits for the loop's answer. A stopped
// match answers every caller with ErrMatchOver.
func (m *Match) post(in intent) error {
	if in.resp == nil {
		in.resp = make(chan error, 1)
	}
	select {
	case m.intents <- in:
	case <-m.done:
		return ErrMatchOver
	}
	select {
	case err := <-in.resp:
		return err
	case <-m.done:
		return ErrMatchOver
	}
}

// SubmitAction applies one player action through the match loop. The
// returned error, if any, carries the rejection reason.
func (m *Match) SubmitAction(player string, act models.Action) error {
	return m.post(intent{kind: intentAction, player: player, action: act})
}

// Join claims a spot for a human player during team selection. Team 0
// lets the match pick the emptier side.
func (m *Match) Join(player string, team int) error {
	return m.post(intent{kind: intentJoin, player: player, team: team})
}

// JoinBot seats a bot of the given skill.
func (m *Match) JoinBot(name string, team int, skill string) error {
	return m.post(intent{kind: intentJoin, player: name, team: team, isBot: true, skill: skill})
}

// Resume rebinds a returning player whose credential checked out.
func (m *Match) Resume(player string) error {
	return m.post(intent{kind: intentResume, player: player})
}

// ConnLost reports a dropped connection for the named player.
func (m *Match) ConnLost(player string) error {
	return m.post(intent{kind: intentConnLost, player: player})
}

// Leave abandons the player's seat on purpose. No grace window applies
// and the seat's credential stops rebinding.
func (m *Match) Leave(player string) error {
	return m.post(intent{kind: intentLeave, player: player})
}

// StateFor returns the match state filtered for one recipient: their
// own hand in full, everyone else's as counts.
func (m *Match) StateFor(player string) (Snapshot, error) {
	in := intent{kind: intentState, player: player, state: make(chan Snapshot, 1)}
	if err := m.post(in); err != nil {
		return Snapshot{}, err
	}
	return <-in.state, nil
}

// terminate tears the match down from inside the loop: timers
// cancelled, clients told, registry callback fired, loop stopped.
func (m *Match) terminate(reason string) {
	m.clearTurn()
	for name, t := range m.graceTimers {
		t.Stop()
		delete(m.graceTimers, name)
	}
	m.Phase = PhaseGameOver
	m.fireEvent(MatchEvent{Type: EventMatchTerminated, Reason: reason})
	log.Printf("Match %s: terminated: %s", m.ID, reason)
	if m.OnTerminated != nil {
		m.OnTerminated(m.ID)
	}
	m.Stop()
}
