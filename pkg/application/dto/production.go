package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// Efficiency measures a completed production order against its plan
type Efficiency struct {
	OrderNumber        string  `json:"order_number"`
	QuantityEfficiency float64 `json:"quantity_efficiency"`
	TimeEfficiency     float64 `json:"time_efficiency"`
	HACCPCompliance    float64 `json:"haccp_compliance"`
	OverallEfficiency  float64 `json:"overall_efficiency"`
}

// OrderUsage is one production order that consumed a lot
type OrderUsage struct {
	OrderID     uuid.UUID            `json:"order_id"`
	OrderNumber string               `json:"order_number"`
	ProductCode string               `json:"product_code"`
	ProductName string               `json:"product_name"`
	Status      entities.OrderStatus `json:"status"`
	ActualStart *time.Time           `json:"actual_start,omitempty"`
	Quantity    decimal.Decimal      `json:"quantity"`
}

// LotTrace follows a lot back to its supplier and forward to the orders that used it
type LotTrace struct {
	Lot           *entities.MaterialLot `json:"lot"`
	MaterialCode  string                `json:"material_code"`
	MaterialName  string                `json:"material_name"`
	SupplierCode  string                `json:"supplier_code"`
	SupplierName  string                `json:"supplier_name"`
	SupplierEmail string                `json:"supplier_email"`
	Usage         []OrderUsage          `json:"usage"`
}

// LotUsage is one lot consumed by a production order
type LotUsage struct {
	LotID        uuid.UUID       `json:"lot_id"`
	LotNumber    string          `json:"lot_number"`
	MaterialCode string          `json:"material_code"`
	MaterialName string          `json:"material_name"`
	SupplierCode string          `json:"supplier_code"`
	SupplierName string          `json:"supplier_name"`
	ReceivedDate time.Time       `json:"received_date"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// OrderTrace lists the lots a production order consumed
type OrderTrace struct {
	Order       *entities.ProductionOrder `json:"order"`
	ProductCode string                    `json:"product_code"`
	ProductName string                    `json:"product_name"`
	Materials   []LotUsage                `json:"materials"`
}

// ProductionDashboard is the production summary for managers
type ProductionDashboard struct {
	TodayTotal        int     `json:"today_total"`
	TodayInProgress   int     `json:"today_in_progress"`
	TodayCompleted    int     `json:"today_completed"`
	TodayPlanned      int     `json:"today_planned"`
	WeekTotal         int     `json:"week_total"`
	WeekCompleted     int     `json:"week_completed"`
	WeekAvgEfficiency float64 `json:"week_avg_efficiency"`
	UrgentOrders      int     `json:"urgent_orders"`
	OverdueOrders     int     `json:"overdue_orders"`
}

// StartedOrder is an order moved into production with the lots drawn for it
type StartedOrder struct {
	Order       *entities.ProductionOrder `json:"order"`
	Allocations []AllocationResult        `json:"allocations"`
}
