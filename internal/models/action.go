// internal/models/action.go
package models

// ActionType names every player-originated move the engine accepts.
// Timeout synthesis and bot agents produce the same action types and go
// through the same validation as human submissions.
type ActionType string

const (
	ActionSelectTeam ActionType = "select_team"
	ActionPlaceBet   ActionType = "place_bet"
	ActionPlayCard   ActionType = "play_card"
	ActionReady      ActionType = "ready_next_round"
	ActionRematch    ActionType = "vote_rematch"
)

// Action is a single submitted move. Exactly one of the optional fields
// is meaningful depending on Type.
type Action struct {
	Type ActionType `json:"type"`
	Team int        `json:"team,omitempty"` // select_team
	Bet  *Bet       `json:"bet,omitempty"`  // place_bet
	Card *Card      `json:"card,omitempty"` // play_card
}
