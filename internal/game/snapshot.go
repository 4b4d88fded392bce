// internal/game/snapshot.go
package game

import (
	"fortyone/internal/models"
)

// SeatView is one seat as the whole table may see it: identity, trick
// totals, hand count, never the cards.
type SeatView struct {
	Seat        int    `json:"seat"`
	Name        string `json:"name"`
	Team        int    `json:"team"`
	HandCount   int    `json:"hand_count"`
	TricksWon   int    `json:"tricks_won"`
	RoundPoints int    `json:"round_points"`
	Connected   bool   `json:"connected"`
	IsBot       bool   `json:"is_bot"`
	Ready       bool   `json:"ready,omitempty"`
}

// Snapshot is the full match state filtered for one recipient. Only
// the recipient's own hand is present; everyone else's is a count in
// their SeatView. Sent on join, on reconnect, and at each deal.
type Snapshot struct {
	MatchID      string          `json:"match_id"`
	Phase        Phase           `json:"phase"`
	Round        int             `json:"round,omitempty"`
	Dealer       int             `json:"dealer_seat"`
	CurrentSeat  int             `json:"current_seat"`
	TurnDeadline int64           `json:"turn_deadline,omitempty"` // unix ms, 0 when no timer runs
	Seats        []SeatView      `json:"seats"`
	Bets         []models.Bet    `json:"bets,omitempty"`
	WinningBet   *models.Bet     `json:"winning_bet,omitempty"`
	Trump        *models.Color   `json:"trump,omitempty"`
	NoTrump      bool            `json:"no_trump,omitempty"`
	TrickNumber  int             `json:"trick_number,omitempty"`
	Trick        []TrickPlay     `json:"trick,omitempty"`
	LastRound    *RoundRecord    `json:"last_round,omitempty"`
	Scores       [2]int          `json:"scores"`
	TargetScore  int             `json:"target_score"`
	Hand         []models.Card   `json:"hand,omitempty"`
	RematchVotes []string        `json:"rematch_votes,omitempty"`
}

// stateFor assembles the snapshot for one recipient. Loop-owned state
// only; callers outside the loop go through StateFor.
func (m *Match) stateFor(name string) Snapshot {
	snap := Snapshot{
		MatchID:     m.ID.String(),
		Phase:       m.Phase,
		Round:       m.round,
		Dealer:      m.dealer,
		CurrentSeat: m.current,
		Scores:      m.scores,
		TargetScore: m.Config.TargetScore,
	}
	if !m.turnDeadline.IsZero() {
		snap.TurnDeadline = m.turnDeadline.UnixMilli()
	}

	if m.seats[0] != nil {
		for _, p := range m.seats {
			snap.Seats = append(snap.Seats, seatView(p))
		}
	} else {
		for _, p := range m.players {
			snap.Seats = append(snap.Seats, seatView(p))
		}
	}

	if m.auction != nil {
		snap.Bets = append([]models.Bet{}, m.auction.bets...)
	}
	if m.winningBet != nil {
		b := *m.winningBet
		snap.WinningBet = &b
		snap.Trump = m.trump
		snap.NoTrump = m.noTrump
	}
	if m.trick != nil {
		snap.TrickNumber = m.trickNum
		snap.Trick = append([]TrickPlay{}, m.trick.Plays...)
	}
	if n := len(m.history); n > 0 && (m.Phase == PhaseScoring || m.Phase == PhaseGameOver) {
		rec := m.history[n-1]
		snap.LastRound = &rec
	}
	if m.Phase == PhaseGameOver {
		for _, p := range m.players {
			if p.RematchVote {
				snap.RematchVotes = append(snap.RematchVotes, p.Name)
			}
		}
	}

	if p := m.findPlayer(name); p != nil {
		snap.Hand = append([]models.Card{}, p.Hand...)
	}
	return snap
}

func seatView(p *models.Player) SeatView {
	return SeatView{
		Seat:        p.Seat,
		Name:        p.Name,
		Team:        p.Team,
		HandCount:   len(p.Hand),
		TricksWon:   p.TricksWon,
		RoundPoints: p.RoundPoints,
		Connected:   p.Connected,
		IsBot:       p.IsBot,
		Ready:       p.Ready,
	}
}
