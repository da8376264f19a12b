package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// OrderFilter selects production orders
type OrderFilter struct {
	Statuses           []entities.OrderStatus
	FinishedProductID  *uuid.UUID
	AssignedOperatorID *uuid.UUID

	// OverlapStart/OverlapEnd select orders whose planned window intersects [start, end)
	OverlapStart *time.Time
	OverlapEnd   *time.Time
}

// ProductionOrderRepository provides access to production orders
type ProductionOrderRepository interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*entities.ProductionOrder, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*entities.ProductionOrder, error)
	FindOrders(ctx context.Context, filter OrderFilter) ([]*entities.ProductionOrder, error)
	CreateOrder(ctx context.Context, order *entities.ProductionOrder) error
	UpdateOrder(ctx context.Context, order *entities.ProductionOrder) error
}
