package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialCategory groups raw materials
type MaterialCategory string

const (
	CategoryIngredient MaterialCategory = "ingredient"
	CategoryPackaging  MaterialCategory = "packaging"
	CategoryAdditive   MaterialCategory = "additive"
	CategoryChemical   MaterialCategory = "chemical"
)

// RawMaterial is a catalog entry for a purchasable input
type RawMaterial struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string           `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name          string           `gorm:"size:200;not null" json:"name"`
	Category      MaterialCategory `gorm:"size:20;not null" json:"category"`
	Unit          string           `gorm:"size:10;not null;default:kg" json:"unit"`
	ShelfLifeDays *int             `json:"shelf_life_days,omitempty"`
	SupplierID    uuid.UUID        `gorm:"type:uuid;index" json:"supplier_id"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (RawMaterial) TableName() string { return "raw_materials" }

// LotStatus represents where a lot is in its lifecycle
type LotStatus string

const (
	LotReceived  LotStatus = "received"
	LotInStorage LotStatus = "in_storage"
	LotInUse     LotStatus = "in_use"
	LotUsed      LotStatus = "used"
	LotExpired   LotStatus = "expired"
	LotRejected  LotStatus = "rejected"
)

// MaterialLot is a traceable batch of one raw material received from one supplier
type MaterialLot struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LotNumber         string          `gorm:"size:100;not null;uniqueIndex" json:"lot_number"`
	RawMaterialID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"raw_material_id"`
	SupplierID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	ReceivedDate      time.Time       `gorm:"not null;index" json:"received_date"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	QuantityReceived  decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity_received"`
	QuantityCurrent   decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity_current"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Status            LotStatus       `gorm:"size:20;not null;default:received;index" json:"status"`
	QualityTestPassed *bool           `json:"quality_test_passed,omitempty"`
	QualityTestDate   *time.Time      `json:"quality_test_date,omitempty"`
	QualityTestNotes  string          `gorm:"type:text" json:"quality_test_notes,omitempty"`
	StorageLocation   string          `gorm:"size:100" json:"storage_location,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (MaterialLot) TableName() string { return "material_lots" }

// NewMaterialLot creates a validated MaterialLot in received status
func NewMaterialLot(
	lotNumber string,
	rawMaterialID, supplierID uuid.UUID,
	receivedDate time.Time,
	expiryDate *time.Time,
	quantity, unitPrice decimal.Decimal,
) (*MaterialLot, error) {
	if lotNumber == "" {
		return nil, fmt.Errorf("lot number cannot be empty")
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity received must be positive, got %s", quantity)
	}
	if unitPrice.Sign() < 0 {
		return nil, fmt.Errorf("unit price cannot be negative, got %s", unitPrice)
	}
	if expiryDate != nil && expiryDate.Before(receivedDate) {
		return nil, fmt.Errorf("expiry date %s cannot be before received date %s",
			expiryDate.Format("2006-01-02"), receivedDate.Format("2006-01-02"))
	}

	return &MaterialLot{
		ID:               uuid.New(),
		LotNumber:        lotNumber,
		RawMaterialID:    rawMaterialID,
		SupplierID:       supplierID,
		ReceivedDate:     receivedDate,
		ExpiryDate:       expiryDate,
		QuantityReceived: quantity,
		QuantityCurrent:  quantity,
		UnitPrice:        unitPrice,
		Status:           LotReceived,
	}, nil
}

// QualityPassed reports a definite pass; pending (nil) is not a pass
func (l *MaterialLot) QualityPassed() bool {
	return l.QualityTestPassed != nil && *l.QualityTestPassed
}

// QualityFailed reports a definite fail; pending (nil) is not a fail
func (l *MaterialLot) QualityFailed() bool {
	return l.QualityTestPassed != nil && !*l.QualityTestPassed
}

// Consume removes qty from the lot. The lot becomes used exactly when it is emptied.
func (l *MaterialLot) Consume(qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return fmt.Errorf("consumed quantity must be positive, got %s", qty)
	}
	if qty.GreaterThan(l.QuantityCurrent) {
		return fmt.Errorf("lot %s has %s remaining, cannot consume %s", l.LotNumber, l.QuantityCurrent, qty)
	}

	l.QuantityCurrent = l.QuantityCurrent.Sub(qty)
	if l.QuantityCurrent.IsZero() {
		l.Status = LotUsed
	}
	return nil
}

// LotConsumption records a draw from a lot, optionally for a production order
type LotConsumption struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LotID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"lot_id"`
	RawMaterialID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"raw_material_id"`
	ProductionOrderID *uuid.UUID      `gorm:"type:uuid;index" json:"production_order_id,omitempty"`
	Quantity          decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	ConsumedAt        time.Time       `gorm:"not null" json:"consumed_at"`
}

func (LotConsumption) TableName() string { return "lot_consumptions" }
