package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostMethod names the price source used for a material line
type CostMethod string

const (
	MethodCurrentLot        CostMethod = "current_lot"
	MethodRecentAverage     CostMethod = "recent_average"
	MethodHistoricalAverage CostMethod = "historical_average"
	MethodNoData            CostMethod = "no_data"
	MethodError             CostMethod = "error"
)

// Weakness orders methods by how little the price can be trusted
func (m CostMethod) Weakness() int {
	switch m {
	case MethodCurrentLot:
		return 0
	case MethodRecentAverage:
		return 1
	case MethodHistoricalAverage:
		return 2
	case MethodNoData:
		return 3
	default:
		return 4
	}
}

// Weaker returns whichever of m and other is less reliable
func (m CostMethod) Weaker(other CostMethod) CostMethod {
	if other.Weakness() > m.Weakness() {
		return other
	}
	return m
}

// MaterialCost is the cost of one BOM line
type MaterialCost struct {
	RawMaterialID    uuid.UUID       `json:"raw_material_id"`
	MaterialCode     string          `json:"material_code"`
	MaterialName     string          `json:"material_name"`
	QuantityPerUnit  decimal.Decimal `json:"quantity_per_unit"`
	RequiredQuantity decimal.Decimal `json:"required_quantity"`
	Unit             string          `json:"unit"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	Method           CostMethod      `json:"calculation_method"`
}

// ProductCost is the estimated material cost of producing a quantity of a product
type ProductCost struct {
	ProductID          uuid.UUID       `json:"product_id"`
	ProductCode        string          `json:"product_code"`
	ProductName        string          `json:"product_name"`
	ProductionQuantity decimal.Decimal `json:"production_quantity"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	MaterialCosts      []MaterialCost  `json:"material_costs"`
	BOMMissing         bool            `json:"bom_missing"`
	Method             CostMethod      `json:"calculation_method"`
	Warnings           []string        `json:"warnings"`
	Error              string          `json:"error,omitempty"`
}

// CostSummary lists the unit cost of every active product
type CostSummary struct {
	Products      []ProductCost `json:"products"`
	TotalProducts int           `json:"total_products"`
	WithBOM       int           `json:"with_bom"`
	Failed        int           `json:"failed"`
}
