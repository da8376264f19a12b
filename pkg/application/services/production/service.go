package production

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/application/services/allocation"
	"github.com/vsinha/mes/pkg/application/validation"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
	"github.com/vsinha/mes/pkg/infrastructure/events"
)

var activeStatuses = []entities.OrderStatus{entities.OrderPlanned, entities.OrderInProgress}

// OrderInput describes a production order to plan
type OrderInput struct {
	OrderNumber       string                 `json:"order_number" validate:"required,max=50"`
	FinishedProductID uuid.UUID              `json:"finished_product_id" validate:"required"`
	PlannedQuantity   decimal.Decimal        `json:"planned_quantity"`
	PlannedStart      time.Time              `json:"planned_start" validate:"required"`
	PlannedEnd        time.Time              `json:"planned_end" validate:"required"`
	Priority          entities.OrderPriority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Notes             string                 `json:"notes"`
}

// OrderQuery narrows ListOrders. From bounds planned start, To bounds planned end.
type OrderQuery struct {
	Status   entities.OrderStatus
	Priority entities.OrderPriority
	From     *time.Time
	To       *time.Time
}

// Service runs production orders through their lifecycle
type Service struct {
	store     repositories.Store
	engine    *allocation.Engine
	cfg       config.ProductionConfig
	publisher events.Publisher
	logger    logrus.FieldLogger
	Now       func() time.Time
}

func NewService(store repositories.Store, engine *allocation.Engine, cfg config.ProductionConfig, publisher events.Publisher, logger logrus.FieldLogger) *Service {
	return &Service{store: store, engine: engine, cfg: cfg, publisher: publisher, logger: logger, Now: time.Now}
}

// CreateOrder plans a new order for an active product
func (s *Service) CreateOrder(ctx context.Context, actor entities.Actor, in OrderInput) (*entities.ProductionOrder, error) {
	const op = "CreateProductionOrder"

	if err := services.Authorize(actor, services.ActionCreateOrder); err != nil {
		return nil, err
	}
	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}
	now := s.Now()
	if in.PlannedStart.Before(now) {
		return nil, errs.Validation(op, "planned start %s is in the past", in.PlannedStart.Format(time.RFC3339))
	}

	order, err := entities.NewProductionOrder(in.OrderNumber, in.FinishedProductID, in.PlannedQuantity, in.PlannedStart, in.PlannedEnd, in.Priority)
	if err != nil {
		return nil, errs.Validation(op, "%v", err)
	}

	product, err := s.store.GetProduct(ctx, in.FinishedProductID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if !product.IsActive {
		return nil, errs.Inactive(op, "finished product %s is inactive", product.Code)
	}
	if err := s.validateBOM(ctx, op, product); err != nil {
		return nil, err
	}

	overlapping, err := s.store.FindOrders(ctx, repositories.OrderFilter{
		Statuses:     activeStatuses,
		OverlapStart: &in.PlannedStart,
		OverlapEnd:   &in.PlannedEnd,
	})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if len(overlapping) >= s.cfg.MaxConcurrentOrders {
		return nil, errs.Validation(op, "%d orders already planned in this window, the limit is %d", len(overlapping), s.cfg.MaxConcurrentOrders)
	}

	order.Notes = in.Notes
	order.CreatedBy = actor.ID
	order.CreatedAt = now
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, errs.Wrap(op, err)
	}

	s.publishStatus(events.OrderCreatedEvent, order, "")
	s.logger.WithFields(logrus.Fields{
		"module":  "production",
		"order":   order.OrderNumber,
		"product": product.Code,
		"actor":   actor.Username,
	}).Info("production order created")
	return order, nil
}

// validateBOM rejects products whose recipe cannot drive production
func (s *Service) validateBOM(ctx context.Context, op string, product *entities.FinishedProduct) error {
	lines, err := s.store.GetBOMLines(ctx, product.ID, true)
	if err != nil {
		return errs.Wrap(op, err)
	}
	materials := make(map[uuid.UUID]*entities.RawMaterial, len(lines))
	for _, line := range lines {
		material, err := s.store.GetMaterial(ctx, line.RawMaterialID)
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return errs.Wrap(op, err)
		}
		materials[material.ID] = material
	}

	result := services.NewBOMValidator().ValidateBOM(lines, materials)
	if !result.Valid() {
		return errs.Validation(op, "BOM of %s is not usable: %s", product.Code, strings.Join(result.Errors, "; "))
	}
	return nil
}

// Start allocates the order's BOM requirements oldest lot first and moves it into
// production. Allocation and the status change commit together or not at all.
func (s *Service) Start(ctx context.Context, actor entities.Actor, orderID uuid.UUID) (*dto.StartedOrder, error) {
	const op = "StartProduction"

	if err := services.Authorize(actor, services.ActionOperateProduction); err != nil {
		return nil, err
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if order.Status != entities.OrderPlanned {
		return nil, errs.Validation(op, "only planned orders can be started, order %s is %s", order.OrderNumber, order.Status)
	}

	reqs, err := s.requirements(ctx, order)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	var operator *uuid.UUID
	if actor.Role == entities.RoleOperator {
		operator = &actor.ID
	}
	now := s.Now()

	var started *entities.ProductionOrder
	results, err := s.engine.AllocateWith(ctx, reqs, &order.ID, func(ctx context.Context, tx repositories.Store, _ []dto.AllocationResult) error {
		current, err := tx.GetOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := current.Start(now, operator); err != nil {
			return errs.Validation(op, "%v", err)
		}
		if err := tx.UpdateOrder(ctx, current); err != nil {
			return err
		}
		started = current
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	s.publishStatus(events.OrderStartedEvent, started, entities.OrderPlanned)
	s.logger.WithFields(logrus.Fields{
		"module":    "production",
		"order":     started.OrderNumber,
		"materials": len(results),
		"actor":     actor.Username,
	}).Info("production started")
	return &dto.StartedOrder{Order: started, Allocations: results}, nil
}

// requirements scales the product's active BOM to the planned quantity
func (s *Service) requirements(ctx context.Context, order *entities.ProductionOrder) ([]dto.MaterialRequirement, error) {
	lines, err := s.store.GetBOMLines(ctx, order.FinishedProductID, true)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errs.Validation("StartProduction", "order %s has no active BOM to allocate from", order.OrderNumber)
	}

	reqs := make([]dto.MaterialRequirement, 0, len(lines))
	for _, line := range lines {
		material, err := s.store.GetMaterial(ctx, line.RawMaterialID)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, dto.MaterialRequirement{
			MaterialCode: material.Code,
			Quantity:     line.RequiredQuantity(order.PlannedQuantity),
		})
	}
	return reqs, nil
}

// Complete closes an in-progress order once every CCP log taken for it is verified
func (s *Service) Complete(ctx context.Context, actor entities.Actor, orderID uuid.UUID, produced decimal.Decimal) (*entities.ProductionOrder, error) {
	const op = "CompleteProduction"

	if err := services.Authorize(actor, services.ActionOperateProduction); err != nil {
		return nil, err
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if err := order.Complete(produced, s.cfg.OverproductionTolerance, s.Now()); err != nil {
		return nil, errs.Validation(op, "%v", err)
	}

	unverified := false
	pending, err := s.store.CountLogs(ctx, repositories.CCPLogFilter{ProductionOrderID: &order.ID, Verified: &unverified})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if pending > 0 {
		return nil, errs.Validation(op, "%d unverified HACCP logs for order %s", pending, order.OrderNumber)
	}

	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, errs.Wrap(op, err)
	}
	s.publishStatus(events.OrderCompletedEvent, order, entities.OrderInProgress)
	s.logger.WithFields(logrus.Fields{
		"module":   "production",
		"order":    order.OrderNumber,
		"produced": produced.String(),
	}).Info("production completed")
	return order, nil
}

// Hold pauses a planned or in-progress order
func (s *Service) Hold(ctx context.Context, actor entities.Actor, orderID uuid.UUID) (*entities.ProductionOrder, error) {
	return s.transition(ctx, actor, services.ActionOperateProduction, orderID, "HoldProduction", (*entities.ProductionOrder).Hold)
}

// Resume continues an order from hold
func (s *Service) Resume(ctx context.Context, actor entities.Actor, orderID uuid.UUID) (*entities.ProductionOrder, error) {
	return s.transition(ctx, actor, services.ActionOperateProduction, orderID, "ResumeProduction", (*entities.ProductionOrder).Resume)
}

// Cancel terminates an order. Material already drawn stays consumed.
func (s *Service) Cancel(ctx context.Context, actor entities.Actor, orderID uuid.UUID) (*entities.ProductionOrder, error) {
	return s.transition(ctx, actor, services.ActionCreateOrder, orderID, "CancelProduction", (*entities.ProductionOrder).Cancel)
}

func (s *Service) transition(ctx context.Context, actor entities.Actor, action services.Action, orderID uuid.UUID, op string, apply func(*entities.ProductionOrder) error) (*entities.ProductionOrder, error) {
	if err := services.Authorize(actor, action); err != nil {
		return nil, err
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	from := order.Status
	if err := apply(order); err != nil {
		return nil, errs.Validation(op, "%v", err)
	}
	if err := s.store.UpdateOrder(ctx, order); err != nil {
		return nil, errs.Wrap(op, err)
	}
	s.publishStatus(events.OrderStatusEvent, order, from)
	return order, nil
}

// Efficiency measures a completed order against its plan; other orders yield nil
func (s *Service) Efficiency(ctx context.Context, orderID uuid.UUID) (*dto.Efficiency, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap("ProductionEfficiency", err)
	}
	return s.efficiency(ctx, order)
}

func (s *Service) efficiency(ctx context.Context, order *entities.ProductionOrder) (*dto.Efficiency, error) {
	if order.Status != entities.OrderCompleted || order.ActualStart == nil || order.ActualEnd == nil {
		return nil, nil
	}

	hundred := decimal.NewFromInt(100)
	quantity := order.ProducedQuantity.Div(order.PlannedQuantity).Mul(hundred)

	timeEff := decimal.Zero
	planned := decimal.NewFromInt(int64(order.PlannedEnd.Sub(order.PlannedStart) / time.Second))
	actual := decimal.NewFromInt(int64(order.ActualEnd.Sub(*order.ActualStart) / time.Second))
	if actual.Sign() > 0 {
		timeEff = planned.Div(actual).Mul(hundred)
	}

	logs, err := s.store.FindLogs(ctx, repositories.CCPLogFilter{ProductionOrderID: &order.ID})
	if err != nil {
		return nil, errs.Wrap("ProductionEfficiency", err)
	}
	haccp := hundred
	if len(logs) > 0 {
		within := 0
		for _, l := range logs {
			if l.IsWithinLimits {
				within++
			}
		}
		haccp = services.Percentage(within, len(logs))
	}

	return &dto.Efficiency{
		OrderNumber:        order.OrderNumber,
		QuantityEfficiency: services.Score(quantity),
		TimeEfficiency:     services.Score(timeEff),
		HACCPCompliance:    services.Score(haccp),
		OverallEfficiency:  services.Score(quantity.Add(timeEff).Add(haccp).Div(decimal.NewFromInt(3))),
	}, nil
}

// ListOrders returns the orders visible to the actor, newest first
func (s *Service) ListOrders(ctx context.Context, actor entities.Actor, q OrderQuery) ([]*entities.ProductionOrder, error) {
	filter := repositories.OrderFilter{}
	if q.Status != "" {
		filter.Statuses = []entities.OrderStatus{q.Status}
	}
	if actor.Role == entities.RoleOperator {
		filter.AssignedOperatorID = &actor.ID
	}
	all, err := s.store.FindOrders(ctx, filter)
	if err != nil {
		return nil, errs.Wrap("ListProductionOrders", err)
	}

	result := make([]*entities.ProductionOrder, 0, len(all))
	for _, o := range all {
		if !services.CanAccess(actor, services.ResourceProductionOrder, o) {
			continue
		}
		if q.Priority != "" && o.Priority != q.Priority {
			continue
		}
		if q.From != nil && o.PlannedStart.Before(*q.From) {
			continue
		}
		if q.To != nil && o.PlannedEnd.After(*q.To) {
			continue
		}
		result = append(result, o)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// Dashboard summarizes today's orders, the last week and open urgent or overdue work
func (s *Service) Dashboard(ctx context.Context, actor entities.Actor) (*dto.ProductionDashboard, error) {
	const op = "ProductionDashboard"

	if err := services.Authorize(actor, services.ActionCreateOrder); err != nil {
		return nil, err
	}
	orders, err := s.store.FindOrders(ctx, repositories.OrderFilter{})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	now := s.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekAgo := now.AddDate(0, 0, -7)

	d := &dto.ProductionDashboard{}
	var efficiencies []decimal.Decimal
	for _, o := range orders {
		open := o.Status == entities.OrderPlanned || o.Status == entities.OrderInProgress

		if !o.PlannedStart.Before(dayStart) && o.PlannedStart.Before(dayEnd) {
			d.TodayTotal++
			switch o.Status {
			case entities.OrderInProgress:
				d.TodayInProgress++
			case entities.OrderCompleted:
				d.TodayCompleted++
			case entities.OrderPlanned:
				d.TodayPlanned++
			}
		}

		if !o.CreatedAt.Before(weekAgo) {
			d.WeekTotal++
			if o.Status == entities.OrderCompleted {
				d.WeekCompleted++
				eff, err := s.efficiency(ctx, o)
				if err != nil {
					return nil, errs.Wrap(op, err)
				}
				if eff != nil {
					efficiencies = append(efficiencies, decimal.NewFromFloat(eff.OverallEfficiency))
				}
			}
		}

		if open && o.Priority == entities.PriorityUrgent {
			d.UrgentOrders++
		}
		if open && o.PlannedEnd.Before(now) {
			d.OverdueOrders++
		}
	}

	if len(efficiencies) > 0 {
		d.WeekAvgEfficiency = services.Score(decimal.Sum(efficiencies[0], efficiencies[1:]...).Div(decimal.NewFromInt(int64(len(efficiencies)))))
	}
	return d, nil
}

func (s *Service) publishStatus(eventType string, order *entities.ProductionOrder, from entities.OrderStatus) {
	event := events.NewEvent(eventType, events.OrderStream(order.ID), events.OrderStatusChanged{
		OrderNumber: order.OrderNumber,
		From:        string(from),
		To:          string(order.Status),
	}, s.Now())
	if err := events.Publish(s.publisher, event); err != nil {
		config.LogError(s.logger, "production", "publishStatus", fmt.Sprintf("%s %s", eventType, order.OrderNumber), err)
	}
}

