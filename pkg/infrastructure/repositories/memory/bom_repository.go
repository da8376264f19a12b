package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
)

// GetProduct returns a finished product by id
func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*entities.FinishedProduct, error) {
	var found *entities.FinishedProduct
	s.read(func(t *tables) {
		if p, ok := t.products[id]; ok {
			found = clone(p)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetProduct", "finished product %s not found", id)
	}
	return found, nil
}

// GetProductByCode returns a finished product by its unique code
func (s *Store) GetProductByCode(ctx context.Context, code string) (*entities.FinishedProduct, error) {
	var found *entities.FinishedProduct
	s.read(func(t *tables) {
		for _, p := range t.products {
			if p.Code == code {
				found = clone(p)
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetProductByCode", "finished product %s not found", code)
	}
	return found, nil
}

// ListProducts returns products ordered by code
func (s *Store) ListProducts(ctx context.Context, activeOnly bool) ([]*entities.FinishedProduct, error) {
	result := make([]*entities.FinishedProduct, 0)
	s.read(func(t *tables) {
		for _, p := range t.products {
			if activeOnly && !p.IsActive {
				continue
			}
			result = append(result, clone(p))
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// SaveProduct creates or replaces a finished product
func (s *Store) SaveProduct(ctx context.Context, product *entities.FinishedProduct) error {
	return s.write(func(t *tables) error {
		for _, p := range t.products {
			if p.Code == product.Code && p.ID != product.ID {
				return errs.Conflict("SaveProduct", "finished product code %s already exists", product.Code)
			}
		}
		s.touch(&product.CreatedAt, &product.UpdatedAt)
		t.products[product.ID] = clone(product)
		return nil
	})
}

// GetBOMLines returns the BOM of one product, ordered by creation then id
func (s *Store) GetBOMLines(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]*entities.BOMLine, error) {
	result := make([]*entities.BOMLine, 0)
	s.read(func(t *tables) {
		for _, l := range t.bomLines {
			if l.FinishedProductID != productID || (activeOnly && !l.IsActive) {
				continue
			}
			result = append(result, clone(l))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return idLess(result[i].ID, result[j].ID)
	})
	return result, nil
}

// SaveBOMLine creates or replaces a BOM line. (product, material) is unique.
func (s *Store) SaveBOMLine(ctx context.Context, line *entities.BOMLine) error {
	return s.write(func(t *tables) error {
		for _, l := range t.bomLines {
			if l.FinishedProductID == line.FinishedProductID && l.RawMaterialID == line.RawMaterialID && l.ID != line.ID {
				return errs.Conflict("SaveBOMLine", "material %s already on the BOM of product %s",
					line.RawMaterialID, line.FinishedProductID)
			}
		}
		s.touch(&line.CreatedAt, &line.UpdatedAt)
		t.bomLines[line.ID] = clone(line)
		return nil
	})
}
