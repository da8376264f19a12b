package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// ProductRepository provides access to finished products
type ProductRepository interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*entities.FinishedProduct, error)
	GetProductByCode(ctx context.Context, code string) (*entities.FinishedProduct, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]*entities.FinishedProduct, error)
	SaveProduct(ctx context.Context, product *entities.FinishedProduct) error
}

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	GetBOMLines(ctx context.Context, productID uuid.UUID, activeOnly bool) ([]*entities.BOMLine, error)
	SaveBOMLine(ctx context.Context, line *entities.BOMLine) error
}
