// internal/game/events.go
package game

import "fortyone/internal/models"

// EventType is an enum-like type for events broadcast to clients.
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"        // seat claimed, public
	EventSessionIssued      EventType = "session_issued"       // credential delivery, private
	EventSnapshot           EventType = "match_state_snapshot" // full filtered state, private
	EventTeamSelected       EventType = "team_selected"        // team choice confirmed, public
	EventBetPlaced          EventType = "bet_placed"           // bid or skip entered the auction
	EventBettingEnded       EventType = "betting_ended"        // auction closed, trump fixed
	EventCardPlayed         EventType = "card_played"          // card entered the current trick
	EventTrickResolved      EventType = "trick_resolved"       // winner and points for a trick
	EventRoundEnded         EventType = "round_ended"          // round deltas and totals
	EventPlayerReady        EventType = "player_ready"         // round summary acked
	EventGameOver           EventType = "game_over"            // winning team and final totals
	EventRematchVote        EventType = "rematch_vote"
	EventRematchStarted     EventType = "rematch_started" // scores reset, same seats
	EventTimeoutStarted     EventType = "player_timeout_started"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventSeatConverted      EventType = "seat_converted" // grace window expired, seat now a bot
	EventActionRejected     EventType = "action_rejected"
	EventMatchTerminated    EventType = "match_terminated" // fatal engine fault, match torn down
)

// MatchEvent is the single wire shape for everything the engine emits.
// Fields are pointers or omitempty so each event type carries only what
// it needs; Payload holds per-type extras that don't warrant a field.
type MatchEvent struct {
	Type   EventType    `json:"type"`
	Player string       `json:"player,omitempty"`
	Seat   *int         `json:"seat,omitempty"`
	Team   int          `json:"team,omitempty"`
	Card   *models.Card `json:"card,omitempty"`
	Bet    *models.Bet  `json:"bet,omitempty"`
	Reason string       `json:"reason,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	// State rides on match_state_snapshot events only.
	State *Snapshot `json:"state,omitempty"`
}

// seatRef returns a pointer suitable for MatchEvent.Seat.
func seatRef(seat int) *int {
	return &seat
}
