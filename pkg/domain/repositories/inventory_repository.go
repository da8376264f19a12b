package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// MaterialRepository provides access to raw material master data
type MaterialRepository interface {
	GetMaterial(ctx context.Context, id uuid.UUID) (*entities.RawMaterial, error)
	GetMaterialByCode(ctx context.Context, code string) (*entities.RawMaterial, error)
	ListMaterials(ctx context.Context, activeOnly bool) ([]*entities.RawMaterial, error)
	SaveMaterial(ctx context.Context, material *entities.RawMaterial) error
}

// LotOrder is the read order applied to lot queries
type LotOrder int

const (
	// LotOrderFIFO orders by received_date, then id
	LotOrderFIFO LotOrder = iota
	// LotOrderExpiryFirst orders by expiry_date (missing last), received_date, then id
	LotOrderExpiryFirst
)

// LotFilter selects material lots
type LotFilter struct {
	RawMaterialID *uuid.UUID
	SupplierID    *uuid.UUID
	Statuses      []entities.LotStatus
	QualityPassed bool
	QualityFailed bool
	InStockOnly   bool
	ReceivedFrom  *time.Time
	ReceivedTo    *time.Time
	Order         LotOrder

	// ForUpdate row-locks the selected lots until the surrounding transaction ends
	ForUpdate bool
}

// LotRepository provides access to material lots
type LotRepository interface {
	GetLot(ctx context.Context, id uuid.UUID) (*entities.MaterialLot, error)
	GetLotByNumber(ctx context.Context, lotNumber string) (*entities.MaterialLot, error)
	FindLots(ctx context.Context, filter LotFilter) ([]*entities.MaterialLot, error)
	SaveLot(ctx context.Context, lot *entities.MaterialLot) error

	// ConsumeLot sets quantity_current to remaining only if it still equals expected.
	// A mismatch means a concurrent writer got there first and yields a Conflict.
	ConsumeLot(ctx context.Context, id uuid.UUID, expected, remaining decimal.Decimal, status entities.LotStatus) error
}

// ConsumptionFilter selects lot consumption records
type ConsumptionFilter struct {
	LotID             *uuid.UUID
	ProductionOrderID *uuid.UUID
}

// ConsumptionRepository records which lots fed which production orders
type ConsumptionRepository interface {
	RecordConsumption(ctx context.Context, consumption *entities.LotConsumption) error
	FindConsumptions(ctx context.Context, filter ConsumptionFilter) ([]*entities.LotConsumption, error)
}
