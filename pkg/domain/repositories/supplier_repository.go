package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// SupplierFilter selects suppliers
type SupplierFilter struct {
	Statuses []entities.SupplierStatus
	Email    string
}

// SupplierRepository provides access to suppliers
type SupplierRepository interface {
	GetSupplier(ctx context.Context, id uuid.UUID) (*entities.Supplier, error)
	GetSupplierByCode(ctx context.Context, code string) (*entities.Supplier, error)
	FindSuppliers(ctx context.Context, filter SupplierFilter) ([]*entities.Supplier, error)
	SaveSupplier(ctx context.Context, supplier *entities.Supplier) error
}
