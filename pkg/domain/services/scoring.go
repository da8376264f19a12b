package services

import "github.com/shopspring/decimal"

// Percentage returns part/whole × 100, or zero when whole is zero
func Percentage(part, whole int) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).Mul(hundred).Div(decimal.NewFromInt(int64(whole)))
}

// Score rounds a score to two places for reporting
func Score(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
