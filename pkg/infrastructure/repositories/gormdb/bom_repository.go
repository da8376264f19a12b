package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
)

// GetProduct returns a finished product by id
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*entities.FinishedProduct, error) {
	var p entities.FinishedProduct
	if err := s.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate("GetProduct", err, "finished product", id)
	}
	return &p, nil
}

// GetProductByCode returns a finished product by its unique code
func (s *Store) GetProductByCode(ctx context.Context, code string) (*entities.FinishedProduct, error) {
	var p entities.FinishedProduct
	if err := s.conn(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, translate("GetProductByCode", err, "finished product", code)
	}
	return &p, nil
}

// ListProducts returns products ordered by code
func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]*entities.FinishedProduct, error) {
	q := s.conn(ctx).Order("code ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	result := make([]*entities.FinishedProduct, 0)
	if err := q.Find(&result).Error; err != nil {
		return nil, errs.Wrap("ListProducts", err)
	}
	return result, nil
}

// SaveProduct creates or replaces a finished product
func (s *Store) SaveProduct(ctx context.Context, product *entities.FinishedProduct) error {
	taken, err := s.taken(ctx, &entities.FinishedProduct{}, "code", product.Code, product.ID)
	if err != nil {
		return errs.Wrap("SaveProduct", err)
	}
	if taken {
		return errs.Conflict("SaveProduct", "finished product code %s already exists", product.Code)
	}
	s.stamp(&product.CreatedAt, &product.UpdatedAt)
	return translate("SaveProduct", s.conn(ctx).Save(product).Error, "finished product", product.Code)
}

// GetBOMLines returns a product's BOM lines in the order they were added
func (s *Store) GetBOMLines(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]*entities.BOMLine, error) {
	q := s.conn(ctx).Where("finished_product_id = ?", productID).Order("created_at ASC").Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	result := make([]*entities.BOMLine, 0)
	if err := q.Find(&result).Error; err != nil {
		return nil, errs.Wrap("GetBOMLines", err)
	}
	return result, nil
}

// SaveBOMLine creates or replaces a BOM line. A product lists each material once.
func (s *Store) SaveBOMLine(ctx context.Context, line *entities.BOMLine) error {
	var n int64
	err := s.conn(ctx).Model(&entities.BOMLine{}).
		Where("finished_product_id = ? AND raw_material_id = ? AND id <> ?", line.FinishedProductID, line.RawMaterialID, line.ID).
		Count(&n).Error
	if err != nil {
		return errs.Wrap("SaveBOMLine", err)
	}
	if n > 0 {
		return errs.Conflict("SaveBOMLine", "material %s already in BOM of product %s", line.RawMaterialID, line.FinishedProductID)
	}
	s.stamp(&line.CreatedAt, &line.UpdatedAt)
	return translate("SaveBOMLine", s.conn(ctx).Save(line).Error, "bom line", line.ID)
}
