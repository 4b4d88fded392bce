// internal/models/player_test.go
package models

import "testing"

func TestPlayerHandQueries(t *testing.T) {
	p := &Player{Hand: []Card{
		{ColorGreen, 3},
		{ColorGreen, 7},
		{ColorBlue, 1},
	}}

	if !p.HasColor(ColorGreen) {
		t.Error("expected HasColor(green) true")
	}
	if p.HasColor(ColorRed) {
		t.Error("expected HasColor(red) false")
	}
	if !p.HoldsCard(Card{ColorBlue, 1}) {
		t.Error("expected HoldsCard(blue-1) true")
	}
	if p.HoldsCard(Card{ColorBlue, 2}) {
		t.Error("expected HoldsCard(blue-2) false")
	}

	if !p.RemoveCard(Card{ColorGreen, 3}) {
		t.Fatal("RemoveCard reported card missing")
	}
	if len(p.Hand) != 2 || p.HoldsCard(Card{ColorGreen, 3}) {
		t.Errorf("hand after removal = %v", p.Hand)
	}
	if p.RemoveCard(Card{ColorGreen, 3}) {
		t.Error("RemoveCard succeeded twice for the same card")
	}
}

func TestLongestColor(t *testing.T) {
	p := &Player{Hand: []Card{
		{ColorBlue, 0},
		{ColorBlue, 4},
		{ColorBlue, 6},
		{ColorGreen, 2},
		{ColorRed, 5},
	}}
	if got := p.LongestColor(); got != ColorBlue {
		t.Errorf("LongestColor = %s, want blue", got)
	}

	// Ties resolve in canonical color order: red before brown.
	tied := &Player{Hand: []Card{
		{ColorBrown, 1},
		{ColorBrown, 2},
		{ColorRed, 1},
		{ColorRed, 2},
	}}
	if got := tied.LongestColor(); got != ColorRed {
		t.Errorf("LongestColor tie = %s, want red", got)
	}
}
