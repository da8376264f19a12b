package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotAllocation is the quantity taken from one lot
type LotAllocation struct {
	LotID     uuid.UUID       `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Remaining decimal.Decimal `json:"remaining"`
	Emptied   bool            `json:"emptied"`
}

// MaterialRequirement asks for a quantity of one material
type MaterialRequirement struct {
	MaterialCode string          `json:"material_code" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// AllocationResult is the committed FIFO draw for one material
type AllocationResult struct {
	MaterialID        uuid.UUID       `json:"material_id"`
	MaterialCode      string          `json:"material_code"`
	Required          decimal.Decimal `json:"required"`
	ProductionOrderID *uuid.UUID      `json:"production_order_id,omitempty"`
	Lots              []LotAllocation `json:"lots"`
	Attempts          int             `json:"attempts"`
}

// TotalCost is the value of the allocated lots at their unit prices
func (r AllocationResult) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lots {
		total = total.Add(l.UnitPrice.Mul(l.Quantity))
	}
	return total
}
