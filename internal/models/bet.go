// internal/models/bet.go
package models

// Betting bounds. A numeric bet commits the bidding team to taking at
// least Amount trick points in the round.
const (
	MinBet = 7
	MaxBet = 12
)

// Bet is one entry in a round's auction: either a skip or a numeric bid.
// A numeric bid announces its trump color up front; NoTrump bids carry no
// color and outrank a trump bid of the same amount.
type Bet struct {
	Player  string `json:"player"`
	Seat    int    `json:"seat"`
	Amount  int    `json:"amount,omitempty"`
	Skip    bool   `json:"skip,omitempty"`
	Trump   *Color `json:"trump,omitempty"`
	NoTrump bool   `json:"noTrump,omitempty"`
}

// Outranks reports whether b is a strictly higher bid than other.
// Ordering is lexicographic on (amount, noTrump): a without-trump bid
// beats a trump bid of equal amount, and nothing else breaks ties.
// The trump color itself never affects rank.
func (b Bet) Outranks(other Bet) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.NoTrump && !other.NoTrump
}

// Value is the score swing the bet puts at stake for the offense team:
// the amount itself, doubled for a without-trump bid. Applied as a gain
// when the bet is met and as a loss when it fails.
func (b Bet) Value() int {
	if b.NoTrump {
		return b.Amount * 2
	}
	return b.Amount
}
