package services

import (
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// LotDraw is the quantity taken from one lot during a walk
type LotDraw struct {
	Lot      *entities.MaterialLot
	Quantity decimal.Decimal
}

// LotWalk is the outcome of walking an ordered lot list against a requirement
type LotWalk struct {
	Draws     []LotDraw
	Covered   decimal.Decimal
	Available decimal.Decimal
}

// Sufficient reports whether the walk covered the whole requirement
func (w LotWalk) Sufficient(required decimal.Decimal) bool {
	return w.Covered.GreaterThanOrEqual(required)
}

// WeightedPrice returns the quantity-weighted unit price of the draws, or false when nothing was drawn
func (w LotWalk) WeightedPrice() (decimal.Decimal, bool) {
	if w.Covered.Sign() <= 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, d := range w.Draws {
		total = total.Add(d.Lot.UnitPrice.Mul(d.Quantity))
	}
	return total.Div(w.Covered), true
}

// WalkLots takes quantity from lots in the given order until required is covered.
// It never mutates the lots. Available is the total stock across all lots.
func WalkLots(lots []*entities.MaterialLot, required decimal.Decimal) LotWalk {
	walk := LotWalk{Covered: decimal.Zero, Available: decimal.Zero}
	remaining := required

	for _, lot := range lots {
		if lot.QuantityCurrent.Sign() <= 0 {
			continue
		}
		walk.Available = walk.Available.Add(lot.QuantityCurrent)
		if remaining.Sign() <= 0 {
			continue
		}

		used := decimal.Min(remaining, lot.QuantityCurrent)
		walk.Draws = append(walk.Draws, LotDraw{Lot: lot, Quantity: used})
		walk.Covered = walk.Covered.Add(used)
		remaining = remaining.Sub(used)
	}
	return walk
}
