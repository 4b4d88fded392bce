// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// Rejection errors are sentinels whose message doubles as the stable
// reason code carried on action_rejected events. They fall into three
// recoverable families: invalid actions (state unchanged, play continues),
// session errors (the connection attempt is refused), and capacity errors
// (the join attempt is refused).
var (
	// Invalid actions.
	ErrWrongPhase      = errors.New("wrong_phase")
	ErrNotYourTurn     = errors.New("not_your_turn")
	ErrSeatNotInMatch  = errors.New("seat_not_in_match")
	ErrInvalidTeam     = errors.New("invalid_team")
	ErrBetOutOfRange   = errors.New("bet_out_of_range")
	ErrBetTooLow       = errors.New("bet_too_low")
	ErrBetTrumpShape   = errors.New("bet_trump_shape")
	ErrDealerMustBid   = errors.New("dealer_must_bid")
	ErrAlreadyPassed   = errors.New("already_passed")
	ErrCardNotInHand   = errors.New("card_not_in_hand")
	ErrMustFollowColor = errors.New("must_follow_color")
	ErrUnknownAction   = errors.New("unknown_action")

	// Session errors.
	ErrBadCredential = errors.New("bad_credential")
	ErrGraceExpired  = errors.New("grace_expired")
	ErrMatchOver     = errors.New("match_over")

	// Capacity errors.
	ErrMatchFull = errors.New("match_full")
	ErrTeamFull  = errors.New("team_full")
	ErrNameTaken = errors.New("name_taken")
)

var (
	invalidActionErrors = []error{
		ErrWrongPhase, ErrNotYourTurn, ErrSeatNotInMatch, ErrInvalidTeam,
		ErrBetOutOfRange, ErrBetTooLow, ErrBetTrumpShape, ErrDealerMustBid,
		ErrAlreadyPassed, ErrCardNotInHand, ErrMustFollowColor, ErrUnknownAction,
	}
	sessionErrors  = []error{ErrBadCredential, ErrGraceExpired, ErrMatchOver}
	capacityErrors = []error{ErrMatchFull, ErrTeamFull, ErrNameTaken}
)

// IsSessionError reports whether err belongs to the session family.
func IsSessionError(err error) bool {
	for _, s := range sessionErrors {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// IsCapacityError reports whether err belongs to the capacity family.
func IsCapacityError(err error) bool {
	for _, c := range capacityErrors {
		if errors.Is(err, c) {
			return true
		}
	}
	return false
}

// InvariantError marks a corrupted match state. Unlike the sentinel
// families it is fatal: the loop broadcasts match_terminated, drops the
// match from the registry, and stops. Other matches are unaffected.
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return "invariant_violation: " + e.Detail
}

// invariantf builds an InvariantError with a formatted detail message.
func invariantf(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Detail: fmt.Sprintf(format, args...)}
}

// IsInvariantError reports whether err is fatal to the match.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// ReasonCode extracts the stable code sent to clients on rejection.
// Wrapped details are stripped; unknown errors map to internal_error.
func ReasonCode(err error) string {
	for _, family := range [][]error{invalidActionErrors, sessionErrors, capacityErrors} {
		for _, s := range family {
			if errors.Is(err, s) {
				return s.Error()
			}
		}
	}
	return "internal_error"
}
