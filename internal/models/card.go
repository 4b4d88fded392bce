// internal/models/card.go
package models

import (
	"fmt"
	"math/rand"
)

// Color is one of the four card colors in the deck.
type Color string

const (
	ColorRed   Color = "red"
	ColorBrown Color = "brown"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
)

// Colors lists every color in canonical order. Used for deck construction
// and for deterministic tie-breaking when picking a trump color.
var Colors = [4]Color{ColorRed, ColorBrown, ColorGreen, ColorBlue}

// ValidColor reports whether s names one of the four colors.
func ValidColor(s Color) bool {
	for _, c := range Colors {
		if c == s {
			return true
		}
	}
	return false
}

// Card is a single card, identified entirely by its color and value.
// Values run 0..7 within each color. Two bonus cards carry extra points
// for whoever wins the trick containing them: red 0 (+5) and brown 0 (-2).
type Card struct {
	Color Color `json:"color"`
	Value int   `json:"value"`
}

// CardsPerColor is the number of values per color (0 through 7).
const CardsPerColor = 8

// DeckSize is the total card count: 4 colors x 8 values.
const DeckSize = 32

// BonusPoints returns the extra trick points this card carries, if any.
func (c Card) BonusPoints() int {
	switch {
	case c.Color == ColorRed && c.Value == 0:
		return 5
	case c.Color == ColorBrown && c.Value == 0:
		return -2
	default:
		return 0
	}
}

// Beats reports whether c wins over other given the led color and the
// trump color for the round (nil when the round is played without trump).
// A trump beats any non-trump; within a color, higher value wins; a card
// that is neither trump nor of the led color never wins.
func (c Card) Beats(other Card, led Color, trump *Color) bool {
	if trump != nil {
		cTrump := c.Color == *trump
		oTrump := other.Color == *trump
		if cTrump && !oTrump {
			return true
		}
		if !cTrump && oTrump {
			return false
		}
		if cTrump && oTrump {
			return c.Value > other.Value
		}
	}
	// Neither card is trump; only the led color can win.
	if c.Color != led {
		return false
	}
	if other.Color != led {
		return true
	}
	return c.Value > other.Value
}

func (c Card) String() string {
	return fmt.Sprintf("%s-%d", c.Color, c.Value)
}

// NewDeck returns the full 32-card deck in canonical order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, color := range Colors {
		for v := 0; v < CardsPerColor; v++ {
			deck = append(deck, Card{Color: color, Value: v})
		}
	}
	return deck
}

// ShuffleDeck shuffles the deck in place using the provided source.
// Callers seed the source; tests pass a fixed seed for reproducible deals.
func ShuffleDeck(deck []Card, r *rand.Rand) {
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}
