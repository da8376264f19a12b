package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

// GetSupplier returns a supplier by id
func (s *Store) GetSupplier(ctx context.Context, id uuid.UUID) (*entities.Supplier, error) {
	var found *entities.Supplier
	s.read(func(t *tables) {
		if sp, ok := t.suppliers[id]; ok {
			found = clone(sp)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetSupplier", "supplier %s not found", id)
	}
	return found, nil
}

// GetSupplierByCode returns a supplier by its unique code
func (s *Store) GetSupplierByCode(ctx context.Context, code string) (*entities.Supplier, error) {
	var found *entities.Supplier
	s.read(func(t *tables) {
		for _, sp := range t.suppliers {
			if sp.Code == code {
				found = clone(sp)
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetSupplierByCode", "supplier %s not found", code)
	}
	return found, nil
}

// FindSuppliers returns matching suppliers ordered by code
func (s *Store) FindSuppliers(ctx context.Context, filter repositories.SupplierFilter) ([]*entities.Supplier, error) {
	result := make([]*entities.Supplier, 0)
	s.read(func(t *tables) {
		for _, sp := range t.suppliers {
			if !contains(filter.Statuses, sp.Status) {
				continue
			}
			if filter.Email != "" && !strings.EqualFold(sp.Email, filter.Email) {
				continue
			}
			result = append(result, clone(sp))
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// SaveSupplier creates or replaces a supplier
func (s *Store) SaveSupplier(ctx context.Context, supplier *entities.Supplier) error {
	return s.write(func(t *tables) error {
		for _, sp := range t.suppliers {
			if sp.Code == supplier.Code && sp.ID != supplier.ID {
				return errs.Conflict("SaveSupplier", "supplier code %s already exists", supplier.Code)
			}
		}
		s.touch(&supplier.CreatedAt, nil)
		if supplier.UpdatedAt.IsZero() {
			supplier.UpdatedAt = supplier.CreatedAt
		}
		t.suppliers[supplier.ID] = clone(supplier)
		return nil
	})
}
