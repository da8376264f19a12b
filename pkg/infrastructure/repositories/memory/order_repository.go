package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

// GetOrder returns a production order by id
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*entities.ProductionOrder, error) {
	var found *entities.ProductionOrder
	s.read(func(t *tables) {
		if o, ok := t.orders[id]; ok {
			found = clone(o)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetOrder", "production order %s not found", id)
	}
	return found, nil
}

// GetOrderByNumber returns a production order by its unique number
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*entities.ProductionOrder, error) {
	var found *entities.ProductionOrder
	s.read(func(t *tables) {
		for _, o := range t.orders {
			if o.OrderNumber == orderNumber {
				found = clone(o)
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetOrderByNumber", "production order %s not found", orderNumber)
	}
	return found, nil
}

// FindOrders returns matching orders ordered by planned start
func (s *Store) FindOrders(ctx context.Context, filter repositories.OrderFilter) ([]*entities.ProductionOrder, error) {
	result := make([]*entities.ProductionOrder, 0)
	s.read(func(t *tables) {
		for _, o := range t.orders {
			if !contains(filter.Statuses, o.Status) {
				continue
			}
			if filter.FinishedProductID != nil && o.FinishedProductID != *filter.FinishedProductID {
				continue
			}
			if filter.AssignedOperatorID != nil && (o.AssignedOperatorID == nil || *o.AssignedOperatorID != *filter.AssignedOperatorID) {
				continue
			}
			if filter.OverlapStart != nil && filter.OverlapEnd != nil && !o.Overlaps(*filter.OverlapStart, *filter.OverlapEnd) {
				continue
			}
			result = append(result, clone(o))
		}
	})
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PlannedStart.Equal(result[j].PlannedStart) {
			return result[i].PlannedStart.Before(result[j].PlannedStart)
		}
		return idLess(result[i].ID, result[j].ID)
	})
	return result, nil
}

// CreateOrder stores a new production order
func (s *Store) CreateOrder(ctx context.Context, order *entities.ProductionOrder) error {
	return s.write(func(t *tables) error {
		for _, o := range t.orders {
			if o.OrderNumber == order.OrderNumber {
				return errs.Conflict("CreateOrder", "order number %s already exists", order.OrderNumber)
			}
		}
		s.touch(&order.CreatedAt, &order.UpdatedAt)
		t.orders[order.ID] = clone(order)
		return nil
	})
}

// UpdateOrder replaces an existing production order
func (s *Store) UpdateOrder(ctx context.Context, order *entities.ProductionOrder) error {
	return s.write(func(t *tables) error {
		if _, ok := t.orders[order.ID]; !ok {
			return errs.NotFound("UpdateOrder", "production order %s not found", order.ID)
		}
		s.touch(nil, &order.UpdatedAt)
		t.orders[order.ID] = clone(order)
		return nil
	})
}
