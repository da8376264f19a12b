package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

// GetMaterial returns a raw material by id
func (s *Store) GetMaterial(ctx context.Context, id uuid.UUID) (*entities.RawMaterial, error) {
	var found *entities.RawMaterial
	s.read(func(t *tables) {
		if m, ok := t.materials[id]; ok {
			found = clone(m)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetMaterial", "raw material %s not found", id)
	}
	return found, nil
}

// GetMaterialByCode returns a raw material by its unique code
func (s *Store) GetMaterialByCode(ctx context.Context, code string) (*entities.RawMaterial, error) {
	var found *entities.RawMaterial
	s.read(func(t *tables) {
		for _, m := range t.materials {
			if m.Code == code {
				found = clone(m)
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetMaterialByCode", "raw material %s not found", code)
	}
	return found, nil
}

// ListMaterials returns materials ordered by code
func (s *Store) ListMaterials(ctx context.Context, activeOnly bool) ([]*entities.RawMaterial, error) {
	result := make([]*entities.RawMaterial, 0)
	s.read(func(t *tables) {
		for _, m := range t.materials {
			if activeOnly && !m.IsActive {
				continue
			}
			result = append(result, clone(m))
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// SaveMaterial creates or replaces a raw material
func (s *Store) SaveMaterial(ctx context.Context, material *entities.RawMaterial) error {
	return s.write(func(t *tables) error {
		for _, m := range t.materials {
			if m.Code == material.Code && m.ID != material.ID {
				return errs.Conflict("SaveMaterial", "raw material code %s already exists", material.Code)
			}
		}
		s.touch(&material.CreatedAt, &material.UpdatedAt)
		t.materials[material.ID] = clone(material)
		return nil
	})
}

// GetLot returns a lot by id
func (s *Store) GetLot(ctx context.Context, id uuid.UUID) (*entities.MaterialLot, error) {
	var found *entities.MaterialLot
	s.read(func(t *tables) {
		if l, ok := t.lots[id]; ok {
			found = clone(l)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetLot", "lot %s not found", id)
	}
	return found, nil
}

// GetLotByNumber returns a lot by its unique lot number
func (s *Store) GetLotByNumber(ctx context.Context, lotNumber string) (*entities.MaterialLot, error) {
	var found *entities.MaterialLot
	s.read(func(t *tables) {
		for _, l := range t.lots {
			if l.LotNumber == lotNumber {
				found = clone(l)
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetLotByNumber", "lot %s not found", lotNumber)
	}
	return found, nil
}

// FindLots returns lots matching the filter in the requested order.
// ForUpdate needs no extra work here since writers are serialized.
func (s *Store) FindLots(ctx context.Context, filter repositories.LotFilter) ([]*entities.MaterialLot, error) {
	result := make([]*entities.MaterialLot, 0)
	s.read(func(t *tables) {
		for _, l := range t.lots {
			if matchLot(l, filter) {
				result = append(result, clone(l))
			}
		}
	})
	SortLots(result, filter.Order)
	return result, nil
}

// SortLots applies a LotOrder with a stable id tiebreak
func SortLots(lots []*entities.MaterialLot, order repositories.LotOrder) {
	sort.Slice(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if order == repositories.LotOrderExpiryFirst {
			switch {
			case a.ExpiryDate == nil && b.ExpiryDate != nil:
				return false
			case a.ExpiryDate != nil && b.ExpiryDate == nil:
				return true
			case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		}
		if !a.ReceivedDate.Equal(b.ReceivedDate) {
			return a.ReceivedDate.Before(b.ReceivedDate)
		}
		return idLess(a.ID, b.ID)
	})
}

// SaveLot creates or replaces a lot
func (s *Store) SaveLot(ctx context.Context, lot *entities.MaterialLot) error {
	return s.write(func(t *tables) error {
		for _, l := range t.lots {
			if l.LotNumber == lot.LotNumber && l.ID != lot.ID {
				return errs.Conflict("SaveLot", "lot number %s already exists", lot.LotNumber)
			}
		}
		if lot.QuantityCurrent.IsNegative() || lot.QuantityCurrent.GreaterThan(lot.QuantityReceived) {
			return errs.InvariantViolation("SaveLot", "lot %s quantity %s outside [0, %s]",
				lot.LotNumber, lot.QuantityCurrent, lot.QuantityReceived)
		}
		s.touch(&lot.CreatedAt, &lot.UpdatedAt)
		t.lots[lot.ID] = clone(lot)
		return nil
	})
}

// ConsumeLot performs the compare-and-set on quantity_current
func (s *Store) ConsumeLot(ctx context.Context, id uuid.UUID, expected, remaining decimal.Decimal, status entities.LotStatus) error {
	return s.write(func(t *tables) error {
		existing, ok := t.lots[id]
		if !ok {
			return errs.NotFound("ConsumeLot", "lot %s not found", id)
		}
		if !existing.QuantityCurrent.Equal(expected) {
			return errs.Conflict("ConsumeLot", "lot %s changed concurrently: expected %s, found %s",
				existing.LotNumber, expected, existing.QuantityCurrent)
		}
		if remaining.IsNegative() || remaining.GreaterThan(expected) {
			return errs.InvariantViolation("ConsumeLot", "lot %s cannot move from %s to %s",
				existing.LotNumber, expected, remaining)
		}
		updated := clone(existing)
		updated.QuantityCurrent = remaining
		updated.Status = status
		s.touch(nil, &updated.UpdatedAt)
		t.lots[id] = updated
		return nil
	})
}

// RecordConsumption appends a lot consumption record
func (s *Store) RecordConsumption(ctx context.Context, consumption *entities.LotConsumption) error {
	return s.write(func(t *tables) error {
		if _, ok := t.lots[consumption.LotID]; !ok {
			return errs.NotFound("RecordConsumption", "lot %s not found", consumption.LotID)
		}
		t.consumptions = append(t.consumptions, clone(consumption))
		return nil
	})
}

// FindConsumptions returns consumption records in the order they were written
func (s *Store) FindConsumptions(ctx context.Context, filter repositories.ConsumptionFilter) ([]*entities.LotConsumption, error) {
	result := make([]*entities.LotConsumption, 0)
	s.read(func(t *tables) {
		for _, c := range t.consumptions {
			if filter.LotID != nil && c.LotID != *filter.LotID {
				continue
			}
			if filter.ProductionOrderID != nil && (c.ProductionOrderID == nil || *c.ProductionOrderID != *filter.ProductionOrderID) {
				continue
			}
			result = append(result, clone(c))
		}
	})
	return result, nil
}

func matchLot(l *entities.MaterialLot, f repositories.LotFilter) bool {
	if f.RawMaterialID != nil && l.RawMaterialID != *f.RawMaterialID {
		return false
	}
	if f.SupplierID != nil && l.SupplierID != *f.SupplierID {
		return false
	}
	if !contains(f.Statuses, l.Status) {
		return false
	}
	if f.QualityPassed && !l.QualityPassed() {
		return false
	}
	if f.QualityFailed && !l.QualityFailed() {
		return false
	}
	if f.InStockOnly && l.QuantityCurrent.Sign() <= 0 {
		return false
	}
	if f.ReceivedFrom != nil && l.ReceivedDate.Before(*f.ReceivedFrom) {
		return false
	}
	if f.ReceivedTo != nil && l.ReceivedDate.After(*f.ReceivedTo) {
		return false
	}
	return true
}
