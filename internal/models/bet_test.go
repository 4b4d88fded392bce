// internal/models/bet_test.go
package models

import "testing"

func TestBetOutranks(t *testing.T) {
	green := ColorGreen
	blue := ColorBlue
	cases := []struct {
		name  string
		b     Bet
		other Bet
		want  bool
	}{
		{"higher amount outranks", Bet{Amount: 8, Trump: &green}, Bet{Amount: 7, Trump: &blue}, true},
		{"lower amount does not", Bet{Amount: 7, Trump: &green}, Bet{Amount: 8, Trump: &blue}, false},
		{"equal amount without trump outranks trump", Bet{Amount: 9, NoTrump: true}, Bet{Amount: 9, Trump: &green}, true},
		{"equal amount trump does not outrank without trump", Bet{Amount: 9, Trump: &green}, Bet{Amount: 9, NoTrump: true}, false},
		{"equal trump bids tie", Bet{Amount: 9, Trump: &green}, Bet{Amount: 9, Trump: &blue}, false},
		{"equal without-trump bids tie", Bet{Amount: 9, NoTrump: true}, Bet{Amount: 9, NoTrump: true}, false},
		{"higher amount beats without trump", Bet{Amount: 10, Trump: &green}, Bet{Amount: 9, NoTrump: true}, true},
	}
	for _, tc := range cases {
		if got := tc.b.Outranks(tc.other); got != tc.want {
			t.Errorf("%s: Outranks = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBetValue(t *testing.T) {
	green := ColorGreen
	if got := (Bet{Amount: 7, Trump: &green}).Value(); got != 7 {
		t.Errorf("trump bet value = %d, want 7", got)
	}
	if got := (Bet{Amount: 7, NoTrump: true}).Value(); got != 14 {
		t.Errorf("without-trump bet value = %d, want 14", got)
	}
	if got := (Bet{Amount: 12, NoTrump: true}).Value(); got != 24 {
		t.Errorf("without-trump max bet value = %d, want 24", got)
	}
}
