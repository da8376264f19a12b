package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	CCPLogRecordedEvent  = "ccp_log.recorded"
	CCPLogDeviationEvent = "ccp_log.deviation"
	CCPLogResolvedEvent  = "ccp_log.resolved"

	MaterialAllocatedEvent  = "material.allocated"
	ShortageIdentifiedEvent = "material.shortage"

	OrderCreatedEvent   = "production_order.created"
	OrderStartedEvent   = "production_order.started"
	OrderCompletedEvent = "production_order.completed"
	OrderStatusEvent    = "production_order.status_changed"

	SupplierRegisteredEvent = "supplier.registered"
)

// CCPLogStream names the stream of one CCP's monitoring events
func CCPLogStream(ccpID uuid.UUID) string { return "ccp-" + ccpID.String() }

// MaterialStream names the stream of one raw material's stock events
func MaterialStream(materialID uuid.UUID) string { return "material-" + materialID.String() }

// OrderStream names the stream of one production order
func OrderStream(orderID uuid.UUID) string { return "order-" + orderID.String() }

// SupplierStream names the stream of one supplier
func SupplierStream(supplierID uuid.UUID) string { return "supplier-" + supplierID.String() }

type CCPLogRecorded struct {
	LogID          uuid.UUID       `json:"log_id"`
	CCPCode        string          `json:"ccp_code"`
	MeasuredValue  decimal.Decimal `json:"measured_value"`
	IsWithinLimits bool            `json:"is_within_limits"`
}

type CCPLogDeviation struct {
	LogID               uuid.UUID       `json:"log_id"`
	CCPCode             string          `json:"ccp_code"`
	MeasuredValue       decimal.Decimal `json:"measured_value"`
	DeviationPercentage decimal.Decimal `json:"deviation_percentage"`
}

type CCPLogResolved struct {
	LogID            uuid.UUID `json:"log_id"`
	CorrectiveAction bool      `json:"corrective_action"`
	Verified         bool      `json:"verified"`
}

type LotDrawn struct {
	LotID     uuid.UUID       `json:"lot_id"`
	LotNumber string          `json:"lot_number"`
	Quantity  decimal.Decimal `json:"quantity"`
	Remaining decimal.Decimal `json:"remaining"`
}

type MaterialAllocated struct {
	MaterialCode      string          `json:"material_code"`
	Required          decimal.Decimal `json:"required"`
	ProductionOrderID *uuid.UUID      `json:"production_order_id,omitempty"`
	Draws             []LotDrawn      `json:"draws"`
}

type ShortageIdentified struct {
	MaterialCode string          `json:"material_code"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
}

type OrderStatusChanged struct {
	OrderNumber string `json:"order_number"`
	From        string `json:"from"`
	To          string `json:"to"`
}

type SupplierRegistered struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
