// internal/game/match.go
package game

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"fortyone/internal/models"
)

// Phase names the match lifecycle states.
type Phase string

const (
	PhaseTeamSelection Phase = "team_selection"
	PhaseBetting       Phase = "betting"
	PhasePlaying       Phase = "playing"
	PhaseScoring       Phase = "scoring"
	PhaseGameOver      Phase = "game_over"
)

// OnMatchEndFunc handles a naturally finished match (a team reached the
// target score).
type OnMatchEndFunc func(matchID uuid.UUID, winnerTeam int, totals [2]int)

// OnTerminatedFunc handles a torn-down match: fatal invariant violation,
// or the last human gone with nothing left to serve.
type OnTerminatedFunc func(matchID uuid.UUID)

// Match holds the entire state for a single match instance in memory.
// Every field below is owned by the match's intent loop; nothing outside
// the loop reads or writes them. External callers go through the
// Submit/Join/Resume methods in loop.go, which post intents and wait for
// the loop's answer.
type Match struct {
	ID        uuid.UUID
	Config    MatchConfig
	CreatedAt time.Time

	Phase   Phase
	players []*models.Player  // join order
	seats   [4]*models.Player // play order; nil until team selection completes
	dealer  int
	current int // seat to act in betting/playing, -1 otherwise
	turnID  int // increments each turn; stale timer fires are discarded against it

	auction     *auction
	winningBet  *models.Bet
	offenseTeam int
	trump       *models.Color
	noTrump     bool

	trick    *Trick
	trickNum int // 1-based within the round
	resolved []ResolvedTrick

	scores  [2]int
	round   int // 1-based
	history []RoundRecord

	rng          *rand.Rand
	TurnDuration time.Duration // derived from config; tests shorten it

	turnTimer    *time.Timer
	turnDeadline time.Time
	graceTimers  map[string]*time.Timer

	intents  chan intent
	done     chan struct{}
	stopOnce sync.Once

	// BroadcastFn sends an event to every connected client. If nil, no
	// broadcast is done.
	BroadcastFn func(ev MatchEvent)

	// BroadcastToPlayerFn sends an event to a single named player.
	BroadcastToPlayerFn func(player string, ev MatchEvent)

	// OnMatchEnd is invoked when a team reaches the target score.
	OnMatchEnd OnMatchEndFunc

	// OnTerminated is invoked when the match is torn down.
	OnTerminated OnTerminatedFunc
}

// NewMatch builds an empty match in team selection.
func NewMatch(cfg MatchConfig) *Match {
	id, _ := uuid.NewRandom()
	return &Match{
		ID:           id,
		Config:       cfg,
		CreatedAt:    time.Now(),
		Phase:        PhaseTeamSelection,
		current:      -1,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		TurnDuration: cfg.TurnTimeout(),
		graceTimers:  make(map[string]*time.Timer),
		intents:      make(chan intent, 64),
		done:         make(chan struct{}),
	}
}

// findPlayer returns the player with the given name, or nil.
func (m *Match) findPlayer(name string) *models.Player {
	for _, p := range m.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// teamCount counts current members of a team.
func (m *Match) teamCount(team int) int {
	n := 0
	for _, p := range m.players {
		if p.Team == team {
			n++
		}
	}
	return n
}

// connectedHumans counts human seats with a live connection.
func (m *Match) connectedHumans() int {
	n := 0
	for _, p := range m.players {
		if !p.IsBot && p.Connected {
			n++
		}
	}
	return n
}

// fireEvent broadcasts an event to all connected players.
func (m *Match) fireEvent(ev MatchEvent) {
	if m.BroadcastFn != nil {
		m.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends an event only to a specific player.
func (m *Match) fireEventToPlayer(name string, ev MatchEvent) {
	if m.BroadcastToPlayerFn != nil {
		m.BroadcastToPlayerFn(name, ev)
	}
}

// sendSnapshot delivers the full state, filtered for the recipient, on
// their private channel only.
func (m *Match) sendSnapshot(name string) {
	snap := m.stateFor(name)
	m.fireEventToPlayer(name, MatchEvent{Type: EventSnapshot, State: &snap})
}

// broadcastSnapshots pushes a per-recipient snapshot to every connected
// player. Used to deliver a fresh deal at round start.
func (m *Match) broadcastSnapshots() {
	for _, p := range m.players {
		if p.Connected && !p.IsBot {
			m.sendSnapshot(p.Name)
		}
	}
}

// --- joining and seating ---

// handleJoin claims a spot during team selection. team 0 auto-assigns to
// the emptier side.
func (m *Match) handleJoin(name string, team int, isBot bool, botSkill string) error {
	if m.Phase != PhaseTeamSelection {
		return ErrMatchFull
	}
	if len(m.players) >= 4 {
		return ErrMatchFull
	}
	if m.findPlayer(name) != nil {
		return ErrNameTaken
	}

	if team == 0 {
		if m.teamCount(models.Team1) <= m.teamCount(models.Team2) {
			team = models.Team1
		} else {
			team = models.Team2
		}
	}
	if team != models.Team1 && team != models.Team2 {
		return ErrInvalidTeam
	}
	if m.teamCount(team) >= 2 {
		return ErrTeamFull
	}

	p := &models.Player{
		Name:      name,
		Team:      team,
		Seat:      -1,
		Connected: !isBot,
		IsBot:     isBot,
		BotSkill:  botSkill,
	}
	m.players = append(m.players, p)
	log.Printf("Match %s: %s joined team %d (bot=%v)", m.ID, name, team, isBot)

	m.fireEvent(MatchEvent{
		Type:    EventPlayerJoined,
		Player:  name,
		Team:    team,
		Payload: map[string]interface{}{"is_bot": isBot},
	})
	if !isBot {
		m.sendSnapshot(name)
	}

	return m.maybeStartMatch()
}

// handleSelectTeam moves a player to the other team pre-start.
func (m *Match) handleSelectTeam(p *models.Player, team int) error {
	if m.Phase != PhaseTeamSelection {
		return ErrWrongPhase
	}
	if team != models.Team1 && team != models.Team2 {
		return ErrInvalidTeam
	}
	if team != p.Team && m.teamCount(team) >= 2 {
		return ErrTeamFull
	}
	p.Team = team
	m.fireEvent(MatchEvent{Type: EventTeamSelected, Player: p.Name, Team: team})
	return m.maybeStartMatch()
}

// maybeStartMatch seats everyone and opens round 1 once four players are
// present and the teams are balanced two against two.
func (m *Match) maybeStartMatch() error {
	if m.Phase != PhaseTeamSelection || len(m.players) != 4 {
		return nil
	}
	if m.teamCount(models.Team1) != 2 || m.teamCount(models.Team2) != 2 {
		return nil
	}
	m.seatPlayers()
	m.round = 1
	m.dealer = 0
	return m.startRound()
}

// seatPlayers fixes the play order so partners sit opposite: team 1 in
// seats 0 and 2, team 2 in seats 1 and 3, each in join order.
func (m *Match) seatPlayers() {
	var t1, t2 []*models.Player
	for _, p := range m.players {
		if p.Team == models.Team1 {
			t1 = append(t1, p)
		} else {
			t2 = append(t2, p)
		}
	}
	order := [4]*models.Player{t1[0], t2[0], t1[1], t2[1]}
	for seat, p := range order {
		p.Seat = seat
		m.seats[seat] = p
	}
	log.Printf("Match %s: seated %s/%s vs %s/%s", m.ID, t1[0].Name, t1[1].Name, t2[0].Name, t2[1].Name)
}

// --- round lifecycle ---

// startRound deals a fresh 8-card hand to each seat and opens the
// auction with the dealer. The caller sets m.round and m.dealer first.
func (m *Match) startRound() error {
	deck := models.NewDeck()
	models.ShuffleDeck(deck, m.rng)
	for seat, p := range m.seats {
		p.Hand = append([]models.Card{}, deck[seat*TricksPerRound:(seat+1)*TricksPerRound]...)
		p.TricksWon = 0
		p.RoundPoints = 0
		p.Ready = false
	}

	m.auction = newAuction(m.dealer)
	m.winningBet = nil
	m.offenseTeam = 0
	m.trump = nil
	m.noTrump = false
	m.trick = nil
	m.trickNum = 0
	m.resolved = nil
	m.Phase = PhaseBetting

	log.Printf("Match %s: round %d dealt, dealer seat %d", m.ID, m.round, m.dealer)
	m.broadcastSnapshots()
	return m.setTurn(m.dealer)
}

// handlePlaceBet validates and applies one auction entry.
func (m *Match) handlePlaceBet(p *models.Player, bet *models.Bet) error {
	if m.Phase != PhaseBetting {
		return ErrWrongPhase
	}
	if bet == nil {
		return ErrUnknownAction
	}
	if p.Seat != m.current {
		return ErrNotYourTurn
	}

	b := *bet
	b.Player = p.Name
	b.Seat = p.Seat
	if b.Skip {
		b.Amount = 0
		b.Trump = nil
		b.NoTrump = false
	}
	if err := m.auction.validate(p.Seat, b); err != nil {
		return err
	}

	m.auction.apply(p.Seat, b)
	m.fireEvent(MatchEvent{Type: EventBetPlaced, Player: p.Name, Seat: seatRef(p.Seat), Bet: &b})

	if _, done := m.auction.winner(); done {
		return m.closeAuction()
	}
	return m.setTurn(m.auction.nextSeat(p.Seat))
}

// closeAuction fixes the winning bet, the trump color, and the offense
// team, then starts trick play with the seat left of the dealer.
func (m *Match) closeAuction() error {
	bet, _ := m.auction.winner()
	m.winningBet = &bet
	m.offenseTeam = m.seats[bet.Seat].Team
	m.trump = bet.Trump
	m.noTrump = bet.NoTrump

	payload := map[string]interface{}{"offense_team": m.offenseTeam, "no_trump": m.noTrump}
	if m.trump != nil {
		payload["trump"] = *m.trump
	}
	m.fireEvent(MatchEvent{Type: EventBettingEnded, Player: bet.Player, Seat: seatRef(bet.Seat), Bet: &bet, Payload: payload})
	log.Printf("Match %s: auction closed, %s holds %d (noTrump=%v), offense team %d", m.ID, bet.Player, bet.Amount, bet.NoTrump, m.offenseTeam)

	m.Phase = PhasePlaying
	m.trick = newTrick()
	m.trickNum = 1
	return m.setTurn((m.dealer + 1) % 4)
}

// legalCards returns the subset of the hand the player may play into the
// current trick: cards of the led color if they hold any, else anything.
func (m *Match) legalCards(p *models.Player) []models.Card {
	if m.trick == nil || m.trick.Led == nil || !p.HasColor(*m.trick.Led) {
		return append([]models.Card{}, p.Hand...)
	}
	var legal []models.Card
	for _, c := range p.Hand {
		if c.Color == *m.trick.Led {
			legal = append(legal, c)
		}
	}
	return legal
}

// handlePlayCard validates and applies one card into the current trick.
func (m *Match) handlePlayCard(p *models.Player, card *models.Card) error {
	if m.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if card == nil {
		return ErrUnknownAction
	}
	if p.Seat != m.current {
		return ErrNotYourTurn
	}
	if !p.HoldsCard(*card) {
		return ErrCardNotInHand
	}
	if m.trick.Led != nil && card.Color != *m.trick.Led && p.HasColor(*m.trick.Led) {
		return ErrMustFollowColor
	}

	p.RemoveCard(*card)
	m.trick.add(TrickPlay{Seat: p.Seat, Player: p.Name, Card: *card})
	m.fireEvent(MatchEvent{Type: EventCardPlayed, Player: p.Name, Seat: seatRef(p.Seat), Card: card})

	if m.trick.complete() {
		return m.resolveTrick()
	}
	return m.setTurn((m.current + 1) % 4)
}

// resolveTrick scores the completed trick and either opens the next one
// with the winner leading, or closes the round after the eighth.
func (m *Match) resolveTrick() error {
	winner := m.trick.winnerSeat(m.trump)
	if winner < 0 {
		return invariantf("match %s: trick %d resolved without a winner", m.ID, m.trickNum)
	}
	pts := m.trick.points()
	wp := m.seats[winner]
	wp.TricksWon++
	wp.RoundPoints += pts

	rec := ResolvedTrick{
		Number: m.trickNum,
		Led:    *m.trick.Led,
		Plays:  m.trick.Plays,
		Winner: winner,
		Points: pts,
		Trump:  m.trump,
	}
	m.resolved = append(m.resolved, rec)

	m.fireEvent(MatchEvent{
		Type:   EventTrickResolved,
		Player: wp.Name,
		Seat:   seatRef(winner),
		Payload: map[string]interface{}{
			"trick_number": m.trickNum,
			"led":          rec.Led,
			"points":       pts,
		},
	})

	// Played counts and hand sizes must stay in lockstep.
	for seat, p := range m.seats {
		if len(p.Hand) != TricksPerRound-m.trickNum {
			return invariantf("match %s: seat %d holds %d cards after trick %d", m.ID, seat, len(p.Hand), m.trickNum)
		}
	}

	if m.trickNum == TricksPerRound {
		return m.finishRound()
	}
	m.trick = newTrick()
	m.trickNum++
	return m.setTurn(winner)
}

// finishRound applies round scoring, records and publishes the round
// fact, and either ends the match or waits for ready acks.
func (m *Match) finishRound() error {
	var teamPoints [2]int
	for _, p := range m.seats {
		teamPoints[p.Team-1] += p.RoundPoints
	}
	deltas, met := scoreRound(*m.winningBet, m.offenseTeam, teamPoints)
	m.scores[0] += deltas[0]
	m.scores[1] += deltas[1]

	rec := RoundRecord{
		Round:       m.round,
		Dealer:      m.dealer,
		Bets:        m.auction.bets,
		WinningBet:  *m.winningBet,
		Trump:       m.trump,
		OffenseTeam: m.offenseTeam,
		BetMet:      met,
		TeamPoints:  teamPoints,
		Deltas:      deltas,
		Totals:      m.scores,
		Tricks:      m.resolved,
		EndedAt:     time.Now(),
	}
	m.history = append(m.history, rec)

	m.fireEvent(MatchEvent{
		Type: EventRoundEnded,
		Payload: map[string]interface{}{
			"round":        m.round,
			"offense_team": m.offenseTeam,
			"bet":          rec.WinningBet,
			"bet_met":      met,
			"team_points":  teamPoints,
			"deltas":       deltas,
			"totals":       m.scores,
		},
	})
	log.Printf("Match %s: round %d ended, bet %d met=%v, totals %v", m.ID, m.round, rec.WinningBet.Amount, met, m.scores)
	m.publishRoundFact(rec)

	if winner := m.gameWinner(); winner != 0 {
		m.endMatch(winner)
		return nil
	}

	m.Phase = PhaseScoring
	m.clearTurn()
	for _, p := range m.seats {
		p.Ready = p.IsBot || !p.Connected
	}
	return m.checkAllReady()
}

// gameWinner returns the winning team once a cumulative total reaches
// the target, 0 while the match continues. If both teams cross in the
// same round the higher total wins; an exact tie goes to the offense.
func (m *Match) gameWinner() int {
	t1, t2 := m.scores[0], m.scores[1]
	if t1 < m.Config.TargetScore && t2 < m.Config.TargetScore {
		return 0
	}
	if t1 > t2 {
		return models.Team1
	}
	if t2 > t1 {
		return models.Team2
	}
	return m.offenseTeam
}

// endMatch closes the match after a natural finish.
func (m *Match) endMatch(winner int) {
	m.Phase = PhaseGameOver
	m.clearTurn()
	for _, p := range m.players {
		p.RematchVote = false
	}

	m.fireEvent(MatchEvent{
		Type: EventGameOver,
		Team: winner,
		Payload: map[string]interface{}{
			"totals": m.scores,
			"rounds": len(m.history),
		},
	})
	log.Printf("Match %s: game over, team %d wins %v after %d rounds", m.ID, winner, m.scores, len(m.history))
	m.publishMatchFact(winner)

	if m.OnMatchEnd != nil {
		m.OnMatchEnd(m.ID, winner, m.scores)
	}
}

// handleReady acks the round summary. The round advances once every
// seat has acked; bots and vacant seats are pre-acked.
func (m *Match) handleReady(p *models.Player) error {
	if m.Phase != PhaseScoring {
		return ErrWrongPhase
	}
	if p.Ready {
		return nil // duplicate delivery, nothing to do
	}
	p.Ready = true
	m.fireEvent(MatchEvent{Type: EventPlayerReady, Player: p.Name})
	return m.checkAllReady()
}

func (m *Match) checkAllReady() error {
	if m.Phase != PhaseScoring {
		return nil
	}
	for _, p := range m.seats {
		if !p.Ready {
			return nil
		}
	}
	m.round++
	m.dealer = (m.dealer + 1) % 4
	return m.startRound()
}

// handleRematch registers a rematch vote after game over. When every
// connected human has voted the match restarts with the same seats and
// zeroed scores; bots assent implicitly.
func (m *Match) handleRematch(p *models.Player) error {
	if m.Phase != PhaseGameOver {
		return ErrWrongPhase
	}
	if p.RematchVote {
		return nil
	}
	p.RematchVote = true
	m.fireEvent(MatchEvent{Type: EventRematchVote, Player: p.Name})
	return m.checkRematch()
}

func (m *Match) checkRematch() error {
	if m.Phase != PhaseGameOver {
		return nil
	}
	if m.connectedHumans() == 0 {
		return nil
	}
	for _, p := range m.players {
		if !p.IsBot && p.Connected && !p.RematchVote {
			return nil
		}
	}

	m.scores = [2]int{}
	m.history = nil
	for _, p := range m.players {
		p.RematchVote = false
		p.TricksWon = 0
		p.RoundPoints = 0
	}
	m.round = 1
	m.dealer = (m.dealer + 1) % 4
	m.fireEvent(MatchEvent{Type: EventRematchStarted})
	log.Printf("Match %s: rematch starting", m.ID)
	return m.startRound()
}

// --- session handling ---

// handleConnLost marks a seat disconnected, keeps the match moving, and
// opens the grace window. Pre-start the seat is simply vacated.
func (m *Match) handleConnLost(name string) error {
	p := m.findPlayer(name)
	if p == nil || p.IsBot {
		return nil
	}
	if !p.Connected {
		return nil
	}
	p.Connected = false

	if m.Phase == PhaseTeamSelection {
		// No seat to preserve yet; drop the player entirely.
		for i, q := range m.players {
			if q == p {
				m.players = append(m.players[:i], m.players[i+1:]...)
				break
			}
		}
		m.fireEvent(MatchEvent{Type: EventPlayerDisconnected, Player: name, Payload: map[string]interface{}{"removed": true}})
		if m.connectedHumans() == 0 {
			m.terminate("lobby empty")
		}
		return nil
	}

	m.fireEvent(MatchEvent{Type: EventPlayerDisconnected, Player: name})
	log.Printf("Match %s: %s disconnected", m.ID, name)

	if m.Phase == PhaseGameOver {
		if m.connectedHumans() == 0 {
			m.terminate("all players left")
			return nil
		}
		return m.checkRematch()
	}

	m.armGraceTimer(p)

	switch m.Phase {
	case PhaseScoring:
		if !p.Ready {
			p.Ready = true
			return m.checkAllReady()
		}
	case PhaseBetting, PhasePlaying:
		// A disconnected seat's turn is never waited for.
		if p.Seat == m.current {
			return m.autoAct(p)
		}
	}
	return nil
}

// handleResume rebinds a returning player inside the grace window and
// replays the full state to them alone.
func (m *Match) handleResume(name string) error {
	p := m.findPlayer(name)
	if p == nil {
		return ErrBadCredential
	}
	if p.IsBot {
		return ErrGraceExpired
	}
	if m.Phase == PhaseGameOver {
		return ErrMatchOver
	}

	m.cancelGraceTimer(name)
	p.Connected = true
	log.Printf("Match %s: %s reconnected", m.ID, name)

	m.fireEvent(MatchEvent{Type: EventPlayerReconnected, Player: name})
	m.sendSnapshot(name)
	return nil
}

// handleGraceExpired converts an abandoned seat to a bot, or tears the
// match down when nobody human is left to play for.
func (m *Match) handleGraceExpired(name string) error {
	p := m.findPlayer(name)
	if p == nil || p.IsBot || p.Connected {
		return nil
	}
	if m.Phase == PhaseTeamSelection || m.Phase == PhaseGameOver {
		return nil
	}

	if m.connectedHumans() == 0 {
		m.terminate("no players remaining")
		return nil
	}

	log.Printf("Match %s: %s grace expired, seat %d now a %s bot", m.ID, name, p.Seat, m.Config.BotSkill)
	m.convertSeat(p)
	return nil
}

// convertSeat hands an abandoned seat to a bot and, when that seat's
// turn is already pending, keeps play moving.
func (m *Match) convertSeat(p *models.Player) {
	p.IsBot = true
	p.BotSkill = m.Config.BotSkill
	m.fireEvent(MatchEvent{
		Type:    EventSeatConverted,
		Player:  p.Name,
		Seat:    seatRef(p.Seat),
		Payload: map[string]interface{}{"skill": p.BotSkill},
	})

	if (m.Phase == PhaseBetting || m.Phase == PhasePlaying) && p.Seat == m.current {
		m.scheduleBotMove(p)
	}
}

// handleLeave abandons a seat for good. Unlike a dropped connection
// there is no grace window: the seat converts at once, so the reconnect
// credential stops rebinding from here on.
func (m *Match) handleLeave(name string) error {
	p := m.findPlayer(name)
	if p == nil || p.IsBot {
		return nil
	}
	m.cancelGraceTimer(name)
	wasConnected := p.Connected
	p.Connected = false

	if m.Phase == PhaseTeamSelection {
		for i, q := range m.players {
			if q == p {
				m.players = append(m.players[:i], m.players[i+1:]...)
				break
			}
		}
		m.fireEvent(MatchEvent{Type: EventPlayerDisconnected, Player: name, Payload: map[string]interface{}{"removed": true}})
		if m.connectedHumans() == 0 {
			m.terminate("lobby empty")
		}
		return nil
	}

	if wasConnected {
		m.fireEvent(MatchEvent{Type: EventPlayerDisconnected, Player: name})
	}
	log.Printf("Match %s: %s left", m.ID, name)

	if m.Phase == PhaseGameOver {
		if m.connectedHumans() == 0 {
			m.terminate("all players left")
			return nil
		}
		return m.checkRematch()
	}
	if m.connectedHumans() == 0 {
		m.terminate("no players remaining")
		return nil
	}

	m.convertSeat(p)
	if m.Phase == PhaseScoring && !p.Ready {
		p.Ready = true
		return m.checkAllReady()
	}
	return nil
}

// handleAction routes a submitted action to its phase handler. Every
// accepted action mutates state exactly once; every rejection leaves
// state untouched.
func (m *Match) handleAction(name string, act models.Action) error {
	if m.Phase == PhaseGameOver && act.Type != models.ActionRematch {
		return ErrMatchOver
	}
	p := m.findPlayer(name)
	if p == nil {
		return ErrSeatNotInMatch
	}

	switch act.Type {
	case models.ActionSelectTeam:
		return m.handleSelectTeam(p, act.Team)
	case models.ActionPlaceBet:
		return m.handlePlaceBet(p, act.Bet)
	case models.ActionPlayCard:
		return m.handlePlayCard(p, act.Card)
	case models.ActionReady:
		return m.handleReady(p)
	case models.ActionRematch:
		return m.handleRematch(p)
	default:
		return ErrUnknownAction
	}
}
