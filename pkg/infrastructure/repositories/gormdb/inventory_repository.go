package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetMaterial returns a raw material by id
func (s *Store) GetMaterial(ctx context.Context, id uuid.UUID) (*entities.RawMaterial, error) {
	var m entities.RawMaterial
	if err := s.conn(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate("GetMaterial", err, "raw material", id)
	}
	return &m, nil
}

// GetMaterialByCode returns a raw material by its unique code
func (s *Store) GetMaterialByCode(ctx context.Context, code string) (*entities.RawMaterial, error) {
	var m entities.RawMaterial
	if err := s.conn(ctx).First(&m, "code = ?", code).Error; err != nil {
		return nil, translate("GetMaterialByCode", err, "raw material", code)
	}
	return &m, nil
}

// ListMaterials returns materials ordered by code
func (s *Store) ListMaterials(ctx context.Context, activeOnly bool) ([]*entities.RawMaterial, error) {
	q := s.conn(ctx).Order("code ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	result := make([]*entities.RawMaterial, 0)
	if err := q.Find(&result).Error; err != nil {
		return nil, errs.Wrap("ListMaterials", err)
	}
	return result, nil
}

// SaveMaterial creates or replaces a raw material
func (s *Store) SaveMaterial(ctx context.Context, material *entities.RawMaterial) error {
	taken, err := s.taken(ctx, &entities.RawMaterial{}, "code", material.Code, material.ID)
	if err != nil {
		return errs.Wrap("SaveMaterial", err)
	}
	if taken {
		return errs.Conflict("SaveMaterial", "raw material code %s already exists", material.Code)
	}
	s.stamp(&material.CreatedAt, &material.UpdatedAt)
	return translate("SaveMaterial", s.conn(ctx).Save(material).Error, "raw material", material.Code)
}

// GetLot returns a lot by id
func (s *Store) GetLot(ctx context.Context, id uuid.UUID) (*entities.MaterialLot, error) {
	var l entities.MaterialLot
	if err := s.conn(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, translate("GetLot", err, "lot", id)
	}
	return &l, nil
}

// GetLotByNumber returns a lot by its unique lot number
func (s *Store) GetLotByNumber(ctx context.Context, lotNumber string) (*entities.MaterialLot, error) {
	var l entities.MaterialLot
	if err := s.conn(ctx).First(&l, "lot_number = ?", lotNumber).Error; err != nil {
		return nil, translate("GetLotByNumber", err, "lot", lotNumber)
	}
	return &l, nil
}

func lotQuery(db *gorm.DB, f repositories.LotFilter) *gorm.DB {
	q := db.Model(&entities.MaterialLot{})
	if f.RawMaterialID != nil {
		q = q.Where("raw_material_id = ?", *f.RawMaterialID)
	}
	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.QualityPassed {
		q = q.Where("quality_test_passed = ?", true)
	}
	if f.QualityFailed {
		q = q.Where("quality_test_passed = ?", false)
	}
	if f.InStockOnly {
		q = q.Where("quantity_current > 0")
	}
	if f.ReceivedFrom != nil {
		q = q.Where("received_date >= ?", *f.ReceivedFrom)
	}
	if f.ReceivedTo != nil {
		q = q.Where("received_date <= ?", *f.ReceivedTo)
	}

	if f.Order == repositories.LotOrderExpiryFirst {
		q = q.Order("CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END").Order("expiry_date ASC")
	}
	q = q.Order("received_date ASC").Order("id ASC")

	if f.ForUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// FindLots returns lots matching the filter in the requested order.
// ForUpdate holds row locks until the surrounding transaction ends.
func (s *Store) FindLots(ctx context.Context, filter repositories.LotFilter) ([]*entities.MaterialLot, error) {
	result := make([]*entities.MaterialLot, 0)
	if err := lotQuery(s.conn(ctx), filter).Find(&result).Error; err != nil {
		return nil, errs.Wrap("FindLots", err)
	}
	return result, nil
}

// SaveLot creates or replaces a lot
func (s *Store) SaveLot(ctx context.Context, lot *entities.MaterialLot) error {
	if lot.QuantityCurrent.IsNegative() || lot.QuantityCurrent.GreaterThan(lot.QuantityReceived) {
		return errs.InvariantViolation("SaveLot", "lot %s quantity %s outside [0, %s]",
			lot.LotNumber, lot.QuantityCurrent, lot.QuantityReceived)
	}
	taken, err := s.taken(ctx, &entities.MaterialLot{}, "lot_number", lot.LotNumber, lot.ID)
	if err != nil {
		return errs.Wrap("SaveLot", err)
	}
	if taken {
		return errs.Conflict("SaveLot", "lot number %s already exists", lot.LotNumber)
	}
	s.stamp(&lot.CreatedAt, &lot.UpdatedAt)
	return translate("SaveLot", s.conn(ctx).Save(lot).Error, "lot", lot.LotNumber)
}

func consumeQuery(db *gorm.DB, id uuid.UUID, expected, remaining decimal.Decimal, status entities.LotStatus, at any) *gorm.DB {
	return db.Model(&entities.MaterialLot{}).
		Where("id = ? AND quantity_current = ?", id, expected).
		Updates(map[string]any{
			"quantity_current": remaining,
			"status":           status,
			"updated_at":       at,
		})
}

// ConsumeLot is a conditional UPDATE on quantity_current. No matched row means
// the lot is gone or another writer changed it first.
func (s *Store) ConsumeLot(ctx context.Context, id uuid.UUID, expected, remaining decimal.Decimal, status entities.LotStatus) error {
	if remaining.IsNegative() || remaining.GreaterThan(expected) {
		return errs.InvariantViolation("ConsumeLot", "lot %s cannot move from %s to %s", id, expected, remaining)
	}

	res := consumeQuery(s.conn(ctx), id, expected, remaining, status, s.now())
	if res.Error != nil {
		return errs.Wrap("ConsumeLot", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	current, err := s.GetLot(ctx, id)
	if err != nil {
		return err
	}
	return errs.Conflict("ConsumeLot", "lot %s changed concurrently: expected %s, found %s",
		current.LotNumber, expected, current.QuantityCurrent)
}

// RecordConsumption appends a lot consumption record
func (s *Store) RecordConsumption(ctx context.Context, consumption *entities.LotConsumption) error {
	var n int64
	if err := s.conn(ctx).Model(&entities.MaterialLot{}).Where("id = ?", consumption.LotID).Count(&n).Error; err != nil {
		return errs.Wrap("RecordConsumption", err)
	}
	if n == 0 {
		return errs.NotFound("RecordConsumption", "lot %s not found", consumption.LotID)
	}
	if consumption.ConsumedAt.IsZero() {
		consumption.ConsumedAt = s.now()
	}
	return translate("RecordConsumption", s.conn(ctx).Create(consumption).Error, "lot consumption", consumption.ID)
}

// FindConsumptions returns consumption records oldest first
func (s *Store) FindConsumptions(ctx context.Context, filter repositories.ConsumptionFilter) ([]*entities.LotConsumption, error) {
	q := s.conn(ctx).Order("consumed_at ASC").Order("id ASC")
	if filter.LotID != nil {
		q = q.Where("lot_id = ?", *filter.LotID)
	}
	if filter.ProductionOrderID != nil {
		q = q.Where("production_order_id = ?", *filter.ProductionOrderID)
	}
	result := make([]*entities.LotConsumption, 0)
	if err := q.Find(&result).Error; err != nil {
		return nil, errs.Wrap("FindConsumptions", err)
	}
	return result, nil
}
