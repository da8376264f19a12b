package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinishedProduct is a sellable product made from raw materials
type FinishedProduct struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string    `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	Version       string    `gorm:"size:20;not null;default:1.0" json:"version"`
	ShelfLifeDays int       `json:"shelf_life_days"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (FinishedProduct) TableName() string { return "finished_products" }

// BOMLine defines how much of one raw material a single unit of product consumes
type BOMLine struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FinishedProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bom_product_material" json:"finished_product_id"`
	RawMaterialID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_bom_product_material" json:"raw_material_id"`
	QuantityPerUnit   decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity_per_unit"`
	Unit              string          `gorm:"size:20;not null" json:"unit"`
	IsActive          bool            `gorm:"not null;default:true" json:"is_active"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (BOMLine) TableName() string { return "bom_lines" }

// NewBOMLine creates a validated, active BOMLine
func NewBOMLine(productID, materialID uuid.UUID, qtyPerUnit decimal.Decimal, unit string) (*BOMLine, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("finished product cannot be empty")
	}
	if materialID == uuid.Nil {
		return nil, fmt.Errorf("raw material cannot be empty")
	}
	if qtyPerUnit.Sign() <= 0 {
		return nil, fmt.Errorf("quantity per unit must be positive, got %s", qtyPerUnit)
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty")
	}

	return &BOMLine{
		ID:                uuid.New(),
		FinishedProductID: productID,
		RawMaterialID:     materialID,
		QuantityPerUnit:   qtyPerUnit,
		Unit:              unit,
		IsActive:          true,
	}, nil
}

// RequiredQuantity returns the material needed for productionQty units
func (b *BOMLine) RequiredQuantity(productionQty decimal.Decimal) decimal.Decimal {
	return b.QuantityPerUnit.Mul(productionQty)
}
