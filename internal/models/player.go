// internal/models/player.go
package models

// Team identifiers. Partners sit opposite each other, so seats 0 and 2
// belong to one team and seats 1 and 3 to the other once play begins.
const (
	Team1 = 1
	Team2 = 2
)

// BotSkill tiers accepted by match configuration and seat conversion.
const (
	BotEasy   = "easy"
	BotMedium = "medium"
	BotHard   = "hard"
)

// Player is one seat's occupant. The display name is the stable identity
// within a match; connection handling lives in the transport layer, the
// engine only tracks the Connected flag.
type Player struct {
	Name string `json:"name"`
	Team int    `json:"team"`
	Seat int    `json:"seat"` // 0..3 once seated, -1 before team selection completes

	Hand []Card `json:"-"` // engine-owned; exposed only through filtered snapshots

	TricksWon   int `json:"tricks_won"`
	RoundPoints int `json:"round_points"`

	Connected bool   `json:"connected"`
	IsBot     bool   `json:"is_bot"`
	BotSkill  string `json:"-"`

	Ready       bool `json:"ready"`        // acked the round summary
	RematchVote bool `json:"rematch_vote"` // voted to restart after game over
}

// HasColor reports whether the player still holds any card of the color.
func (p *Player) HasColor(color Color) bool {
	for _, c := range p.Hand {
		if c.Color == color {
			return true
		}
	}
	return false
}

// HoldsCard reports whether the exact card is in the player's hand.
func (p *Player) HoldsCard(card Card) bool {
	for _, c := range p.Hand {
		if c == card {
			return true
		}
	}
	return false
}

// RemoveCard deletes the first occurrence of card from the hand and
// reports whether it was present.
func (p *Player) RemoveCard(card Card) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// LongestColor returns the color the player holds the most cards of,
// breaking ties by canonical color order. Used when a forced minimum bid
// has to name a trump color.
func (p *Player) LongestColor() Color {
	counts := map[Color]int{}
	for _, c := range p.Hand {
		counts[c.Color]++
	}
	best := Colors[0]
	for _, color := range Colors {
		if counts[color] > counts[best] {
			best = color
		}
	}
	return best
}
