package services

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
)

var hundred = decimal.NewFromInt(100)

// Classify compares a measurement against critical limits. Both bounds are inclusive.
func Classify(limits entities.Limits, value decimal.Decimal) entities.LogStatus {
	if limits.Min != nil && value.LessThan(*limits.Min) {
		return entities.LogOutOfLimits
	}
	if limits.Max != nil && value.GreaterThan(*limits.Max) {
		return entities.LogOutOfLimits
	}
	return entities.LogWithinLimits
}

// DeviationPercentage returns how far value lies outside the limits, relative to the
// breached limit and rounded to two places. Negative below the minimum, zero inside.
func DeviationPercentage(limits entities.Limits, value decimal.Decimal) decimal.Decimal {
	if limits.Min != nil && !limits.Min.IsZero() && value.LessThan(*limits.Min) {
		return limits.Min.Sub(value).Div(*limits.Min).Mul(hundred).Neg().Round(2)
	}
	if limits.Max != nil && !limits.Max.IsZero() && value.GreaterThan(*limits.Max) {
		return value.Sub(*limits.Max).Div(*limits.Max).Mul(hundred).Round(2)
	}
	return decimal.Zero
}
