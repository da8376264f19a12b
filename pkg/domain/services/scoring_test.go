package services

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, whole int
		want        float64
	}{
		{2, 3, 66.67},
		{1, 3, 33.33},
		{0, 0, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		got := Score(Percentage(tt.part, tt.whole))
		if got != tt.want {
			t.Errorf("Expected %d/%d = %v, got %v", tt.part, tt.whole, tt.want, got)
		}
	}
}

func TestScoreRoundsHalfAwayFromZero(t *testing.T) {
	if got := Score(decimal.RequireFromString("86.665")); got != 86.67 {
		t.Errorf("Expected 86.67, got %v", got)
	}
}
