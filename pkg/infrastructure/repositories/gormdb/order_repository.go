package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"gorm.io/gorm"
)

// GetOrder returns a production order by id
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*entities.ProductionOrder, error) {
	var o entities.ProductionOrder
	if err := s.conn(ctx).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate("GetOrder", err, "production order", id)
	}
	return &o, nil
}

// GetOrderByNumber returns a production order by its unique number
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*entities.ProductionOrder, error) {
	var o entities.ProductionOrder
	if err := s.conn(ctx).First(&o, "order_number = ?", orderNumber).Error; err != nil {
		return nil, translate("GetOrderByNumber", err, "production order", orderNumber)
	}
	return &o, nil
}

func orderQuery(db *gorm.DB, f repositories.OrderFilter) *gorm.DB {
	q := db.Model(&entities.ProductionOrder{})
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.FinishedProductID != nil {
		q = q.Where("finished_product_id = ?", *f.FinishedProductID)
	}
	if f.AssignedOperatorID != nil {
		q = q.Where("assigned_operator_id = ?", *f.AssignedOperatorID)
	}
	if f.OverlapStart != nil && f.OverlapEnd != nil {
		q = q.Where("planned_start < ? AND planned_end > ?", *f.OverlapEnd, *f.OverlapStart)
	}
	return q.Order("planned_start ASC").Order("id ASC")
}

// FindOrders returns matching orders ordered by planned start
func (s *Store) FindOrders(ctx context.Context, filter repositories.OrderFilter) ([]*entities.ProductionOrder, error) {
	result := make([]*entities.ProductionOrder, 0)
	if err := orderQuery(s.conn(ctx), filter).Find(&result).Error; err != nil {
		return nil, errs.Wrap("FindOrders", err)
	}
	return result, nil
}

// CreateOrder stores a new production order
func (s *Store) CreateOrder(ctx context.Context, order *entities.ProductionOrder) error {
	taken, err := s.taken(ctx, &entities.ProductionOrder{}, "order_number", order.OrderNumber, order.ID)
	if err != nil {
		return errs.Wrap("CreateOrder", err)
	}
	if taken {
		return errs.Conflict("CreateOrder", "order number %s already exists", order.OrderNumber)
	}
	s.stamp(&order.CreatedAt, &order.UpdatedAt)
	return translate("CreateOrder", s.conn(ctx).Create(order).Error, "production order", order.OrderNumber)
}

// UpdateOrder replaces an existing production order
func (s *Store) UpdateOrder(ctx context.Context, order *entities.ProductionOrder) error {
	if _, err := s.GetOrder(ctx, order.ID); err != nil {
		return err
	}
	s.stamp(nil, &order.UpdatedAt)
	return translate("UpdateOrder", s.conn(ctx).Save(order).Error, "production order", order.OrderNumber)
}
