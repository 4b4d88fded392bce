// internal/game/bots.go
package game

import (
	"time"

	"fortyone/internal/bot"
	"fortyone/internal/models"
)

// scheduleBotMove arms a bot decision for the current turn after the
// configured think delay. The posted intent carries the turn
// generation, so a move scheduled for a turn that has since advanced
// is discarded like a stale timeout.
func (m *Match) scheduleBotMove(p *models.Player) {
	delay := time.Duration(m.Config.BotDelayMs) * time.Millisecond
	name, turnID := p.Name, m.turnID
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		_ = m.post(intent{kind: intentBotMove, player: name, turnID: turnID})
	}()
}

// handleBotIntent asks the seat's brain for a move and applies it
// through the normal action path. A rejected bot move is an engine bug
// and fatal to the match.
func (m *Match) handleBotIntent(name string, turnID int) error {
	if turnID != m.turnID {
		return nil
	}
	if m.Phase != PhaseBetting && m.Phase != PhasePlaying {
		return nil
	}
	p := m.findPlayer(name)
	if p == nil || !p.IsBot || p.Seat != m.current {
		return nil
	}

	act := m.botAction(p)
	if err := m.handleAction(name, act); err != nil {
		return invariantf("match %s: bot %s move rejected: %v", m.ID, name, err)
	}
	return nil
}

// botAction builds the brain's move from the same filtered view a
// client at that seat gets.
func (m *Match) botAction(p *models.Player) models.Action {
	brain := bot.New(p.BotSkill, m.rng)
	switch m.Phase {
	case PhaseBetting:
		choice := brain.ChooseBet(m.betViewFor(p))
		b := &models.Bet{Skip: choice.Skip, Amount: choice.Amount, Trump: choice.Trump, NoTrump: choice.NoTrump}
		return models.Action{Type: models.ActionPlaceBet, Bet: b}
	case PhasePlaying:
		card := brain.ChooseCard(m.playViewFor(p))
		return models.Action{Type: models.ActionPlayCard, Card: &card}
	}
	return models.Action{}
}

func (m *Match) betViewFor(p *models.Player) bot.BetView {
	v := bot.BetView{
		Seat:    p.Seat,
		Hand:    append([]models.Card{}, p.Hand...),
		MustBid: m.auction.mustBid(p.Seat),
	}
	if m.auction.highest != nil {
		h := *m.auction.highest
		v.Highest = &h
	}
	return v
}

func (m *Match) playViewFor(p *models.Player) bot.PlayView {
	v := bot.PlayView{
		Seat:        p.Seat,
		Team:        p.Team,
		Hand:        append([]models.Card{}, p.Hand...),
		Legal:       m.legalCards(p),
		Trump:       m.trump,
		NoTrump:     m.noTrump,
		WinningSeat: -1,
	}
	if m.trick != nil && len(m.trick.Plays) > 0 {
		led := *m.trick.Led
		v.Led = &led
		for _, play := range m.trick.Plays {
			v.Trick = append(v.Trick, bot.SeatCard{Seat: play.Seat, Card: play.Card})
		}
		v.WinningSeat = m.trick.winnerSeat(m.trump)
	}
	for _, rt := range m.resolved {
		tr := bot.TrickRecord{Led: rt.Led, Winner: rt.Winner}
		for _, play := range rt.Plays {
			tr.Plays = append(tr.Plays, bot.SeatCard{Seat: play.Seat, Card: play.Card})
		}
		v.History = append(v.History, tr)
	}
	return v
}
