package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

// GetSupplier returns a supplier by id
func (s *Store) GetSupplier(ctx context.Context, id uuid.UUID) (*entities.Supplier, error) {
	var sp entities.Supplier
	if err := s.conn(ctx).First(&sp, "id = ?", id).Error; err != nil {
		return nil, translate("GetSupplier", err, "supplier", id)
	}
	return &sp, nil
}

// GetSupplierByCode returns a supplier by its unique code
func (s *Store) GetSupplierByCode(ctx context.Context, code string) (*entities.Supplier, error) {
	var sp entities.Supplier
	if err := s.conn(ctx).First(&sp, "code = ?", code).Error; err != nil {
		return nil, translate("GetSupplierByCode", err, "supplier", code)
	}
	return &sp, nil
}

// FindSuppliers returns matching suppliers ordered by code. Email matches case-insensitively.
func (s *Store) FindSuppliers(ctx context.Context, filter repositories.SupplierFilter) ([]*entities.Supplier, error) {
	q := s.conn(ctx).Order("code ASC")
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Email != "" {
		q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
	}
	result := make([]*entities.Supplier, 0)
	if err := q.Find(&result).Error; err != nil {
		return nil, errs.Wrap("FindSuppliers", err)
	}
	return result, nil
}

// SaveSupplier creates or replaces a supplier
func (s *Store) SaveSupplier(ctx context.Context, supplier *entities.Supplier) error {
	taken, err := s.taken(ctx, &entities.Supplier{}, "code", supplier.Code, supplier.ID)
	if err != nil {
		return errs.Wrap("SaveSupplier", err)
	}
	if taken {
		return errs.Conflict("SaveSupplier", "supplier code %s already exists", supplier.Code)
	}
	s.stamp(&supplier.CreatedAt, nil)
	if supplier.UpdatedAt.IsZero() {
		supplier.UpdatedAt = supplier.CreatedAt
	}
	return translate("SaveSupplier", s.conn(ctx).Save(supplier).Error, "supplier", supplier.Code)
}
