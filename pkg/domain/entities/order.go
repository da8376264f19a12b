package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of a production order
type OrderStatus string

const (
	OrderPlanned    OrderStatus = "planned"
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderOnHold     OrderStatus = "on_hold"
)

// OrderPriority ranks production orders
type OrderPriority string

const (
	PriorityLow    OrderPriority = "low"
	PriorityNormal OrderPriority = "normal"
	PriorityHigh   OrderPriority = "high"
	PriorityUrgent OrderPriority = "urgent"
)

// ProductionOrder is a request to produce a quantity of one finished product
type ProductionOrder struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber        string          `gorm:"size:50;not null;uniqueIndex" json:"order_number"`
	FinishedProductID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"finished_product_id"`
	PlannedQuantity    decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"planned_quantity"`
	ProducedQuantity   decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"produced_quantity"`
	PlannedStart       time.Time       `gorm:"not null" json:"planned_start"`
	PlannedEnd         time.Time       `gorm:"not null" json:"planned_end"`
	ActualStart        *time.Time      `json:"actual_start,omitempty"`
	ActualEnd          *time.Time      `json:"actual_end,omitempty"`
	Status             OrderStatus     `gorm:"size:20;not null;default:planned;index" json:"status"`
	Priority           OrderPriority   `gorm:"size:10;not null;default:normal" json:"priority"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	AssignedOperatorID *uuid.UUID      `gorm:"type:uuid;index" json:"assigned_operator_id,omitempty"`
	CreatedBy          uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (ProductionOrder) TableName() string { return "production_orders" }

// NewProductionOrder creates a validated ProductionOrder in planned status
func NewProductionOrder(
	orderNumber string,
	productID uuid.UUID,
	plannedQty decimal.Decimal,
	plannedStart, plannedEnd time.Time,
	priority OrderPriority,
) (*ProductionOrder, error) {
	if orderNumber == "" {
		return nil, fmt.Errorf("order number cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("finished product cannot be empty")
	}
	if plannedQty.Sign() <= 0 {
		return nil, fmt.Errorf("planned quantity must be positive, got %s", plannedQty)
	}
	if !plannedStart.Before(plannedEnd) {
		return nil, fmt.Errorf("planned end %v must be after planned start %v", plannedEnd, plannedStart)
	}
	if priority == "" {
		priority = PriorityNormal
	}

	return &ProductionOrder{
		ID:                uuid.New(),
		OrderNumber:       orderNumber,
		FinishedProductID: productID,
		PlannedQuantity:   plannedQty,
		ProducedQuantity:  decimal.Zero,
		PlannedStart:      plannedStart,
		PlannedEnd:        plannedEnd,
		Status:            OrderPlanned,
		Priority:          priority,
	}, nil
}

// Start moves a planned order into production
func (o *ProductionOrder) Start(now time.Time, operator *uuid.UUID) error {
	if o.Status != OrderPlanned {
		return fmt.Errorf("only planned orders can be started, order %s is %s", o.OrderNumber, o.Status)
	}
	o.Status = OrderInProgress
	o.ActualStart = &now
	if operator != nil {
		o.AssignedOperatorID = operator
	}
	return nil
}

// Complete closes an in-progress order. produced may exceed planned by at most tolerance (e.g. 1.10).
func (o *ProductionOrder) Complete(produced, tolerance decimal.Decimal, now time.Time) error {
	if o.Status != OrderInProgress {
		return fmt.Errorf("only in-progress orders can be completed, order %s is %s", o.OrderNumber, o.Status)
	}
	if produced.Sign() <= 0 {
		return fmt.Errorf("produced quantity must be positive, got %s", produced)
	}
	limit := o.PlannedQuantity.Mul(tolerance)
	if produced.GreaterThan(limit) {
		return fmt.Errorf("produced quantity %s exceeds %s (planned %s x %s)", produced, limit, o.PlannedQuantity, tolerance)
	}
	o.Status = OrderCompleted
	o.ProducedQuantity = produced
	o.ActualEnd = &now
	return nil
}

// Hold pauses a planned or in-progress order
func (o *ProductionOrder) Hold() error {
	if o.Status != OrderPlanned && o.Status != OrderInProgress {
		return fmt.Errorf("order %s cannot be put on hold from %s", o.OrderNumber, o.Status)
	}
	o.Status = OrderOnHold
	return nil
}

// Resume returns an order on hold to the state it was paused from
func (o *ProductionOrder) Resume() error {
	if o.Status != OrderOnHold {
		return fmt.Errorf("order %s is not on hold", o.OrderNumber)
	}
	if o.ActualStart != nil {
		o.Status = OrderInProgress
	} else {
		o.Status = OrderPlanned
	}
	return nil
}

// Cancel terminates an order that has not completed
func (o *ProductionOrder) Cancel() error {
	switch o.Status {
	case OrderPlanned, OrderInProgress, OrderOnHold:
		o.Status = OrderCancelled
		return nil
	default:
		return fmt.Errorf("order %s cannot be cancelled from %s", o.OrderNumber, o.Status)
	}
}

// Overlaps reports whether the planned window intersects [start, end)
func (o *ProductionOrder) Overlaps(start, end time.Time) bool {
	return o.PlannedStart.Before(end) && o.PlannedEnd.After(start)
}
