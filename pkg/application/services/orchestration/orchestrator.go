package orchestration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/application/services/allocation"
	"github.com/vsinha/mes/pkg/application/services/costing"
	"github.com/vsinha/mes/pkg/application/services/haccp"
	"github.com/vsinha/mes/pkg/application/services/production"
	"github.com/vsinha/mes/pkg/application/services/supplier"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
	"github.com/vsinha/mes/pkg/infrastructure/events"
	"github.com/vsinha/mes/pkg/infrastructure/locking"
)

// Orchestrator wires every engine over one store and exposes the code-based
// lookups the CLI and HTTP layers need
type Orchestrator struct {
	Store      repositories.Store
	Settings   config.Settings
	CCPs       *haccp.CCPService
	Logs       *haccp.LogService
	Alerts     *haccp.AlertDetector
	Compliance *haccp.ComplianceScorer
	Reports    *haccp.ReportService
	Allocation *allocation.Engine
	Costing    *costing.Calculator
	Suppliers  *supplier.Registry
	Evaluator  *supplier.Evaluator
	Production *production.Service
	Tracer     *production.Tracer
}

// NewOrchestrator creates the engines. locker and publisher may be nil.
func NewOrchestrator(
	store repositories.Store,
	locker locking.Locker,
	settings config.Settings,
	publisher events.Publisher,
	logger logrus.FieldLogger,
) *Orchestrator {
	engine := allocation.NewEngine(store, locker, settings.Production, publisher, logger.WithField("module", "allocation"))
	return &Orchestrator{
		Store:      store,
		Settings:   settings,
		CCPs:       haccp.NewCCPService(store, logger.WithField("module", "ccp")),
		Logs:       haccp.NewLogService(store, settings.HACCP, publisher, logger.WithField("module", "ccp_log")),
		Alerts:     haccp.NewAlertDetector(store, settings.HACCP),
		Compliance: haccp.NewComplianceScorer(store, settings.HACCP),
		Reports:    haccp.NewReportService(store, settings.HACCP),
		Allocation: engine,
		Costing:    costing.NewCalculator(store, settings.Costing, logger.WithField("module", "costing")),
		Suppliers:  supplier.NewRegistry(store, publisher, logger.WithField("module", "supplier")),
		Evaluator:  supplier.NewEvaluator(store, settings.Supplier),
		Production: production.NewService(store, engine, settings.Production, publisher, logger.WithField("module", "production")),
		Tracer:     production.NewTracer(store),
	}
}

// SetClock replaces the clock of every engine
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.Logs.Now = now
	o.Alerts.Now = now
	o.Reports.Now = now
	o.Allocation.Now = now
	o.Costing.Now = now
	o.Suppliers.Now = now
	o.Evaluator.Now = now
	o.Production.Now = now
}

// SupplierReview combines the performance scores and risk assessment of one supplier
type SupplierReview struct {
	Performance *dto.SupplierPerformance `json:"performance"`
	Risk        *dto.RiskAssessment      `json:"risk"`
}

// AllocateMaterial draws quantity of a material by code, optionally against an order number
func (o *Orchestrator) AllocateMaterial(ctx context.Context, actor entities.Actor, materialCode string, quantity decimal.Decimal, orderNumber string) (*dto.AllocationResult, error) {
	if err := services.Authorize(actor, services.ActionAllocateMaterial); err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		return nil, errs.Validation("AllocateMaterial", "required quantity must be positive, got %s", quantity)
	}
	if orderNumber == "" {
		return o.Allocation.Allocate(ctx, materialCode, quantity, nil)
	}
	order, err := o.Store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return o.Allocation.Allocate(ctx, materialCode, quantity, &order.ID)
}

// ProductCost estimates the material cost of a product by code
func (o *Orchestrator) ProductCost(ctx context.Context, productCode string, quantity decimal.Decimal) (*dto.ProductCost, error) {
	product, err := o.Store.GetProductByCode(ctx, productCode)
	if err != nil {
		return nil, err
	}
	return o.Costing.CalculateProductCost(ctx, product.ID, quantity)
}

// ReviewSupplier evaluates a supplier by code over [from, to]; nil bounds use the configured window
func (o *Orchestrator) ReviewSupplier(ctx context.Context, supplierCode string, from, to *time.Time) (*SupplierReview, error) {
	s, err := o.Store.GetSupplierByCode(ctx, supplierCode)
	if err != nil {
		return nil, err
	}
	performance, err := o.Evaluator.EvaluatePerformance(ctx, s.ID, from, to)
	if err != nil {
		return nil, err
	}
	risk, err := o.Evaluator.RiskAssessment(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return &SupplierReview{Performance: performance, Risk: risk}, nil
}

// TraceLot returns the origin of a lot and the orders that consumed it
func (o *Orchestrator) TraceLot(ctx context.Context, lotNumber string) (*dto.LotTrace, error) {
	lot, err := o.Store.GetLotByNumber(ctx, lotNumber)
	if err != nil {
		return nil, err
	}
	return o.Tracer.LotTrace(ctx, lot.ID)
}

// TraceOrder returns the lots an order consumed
func (o *Orchestrator) TraceOrder(ctx context.Context, orderNumber string) (*dto.OrderTrace, error) {
	order, err := o.Store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return o.Tracer.OrderTrace(ctx, order.ID)
}
