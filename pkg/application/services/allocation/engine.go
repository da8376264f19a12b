package allocation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
	"github.com/vsinha/mes/pkg/infrastructure/events"
	"github.com/vsinha/mes/pkg/infrastructure/locking"
)

// AfterAllocation runs inside the allocation transaction once every lot has been drawn.
// Returning an error rolls the allocation back.
type AfterAllocation func(ctx context.Context, tx repositories.Store, results []dto.AllocationResult) error

// Engine draws raw material from in-storage lots oldest first.
//
// Each material's lot pool is guarded by a lock, and every draw is a
// compare-and-set on quantity_current inside one transaction. A lost race
// rolls the whole transaction back and the allocation is retried.
type Engine struct {
	store     repositories.Store
	locker    locking.Locker
	cfg       config.ProductionConfig
	publisher events.Publisher
	logger    logrus.FieldLogger
	Now       func() time.Time
}

func NewEngine(store repositories.Store, locker locking.Locker, cfg config.ProductionConfig, publisher events.Publisher, logger logrus.FieldLogger) *Engine {
	if locker == nil {
		locker = locking.NewLocalLocker()
	}
	if cfg.AllocationRetries < 1 {
		cfg.AllocationRetries = 1
	}
	return &Engine{store: store, locker: locker, cfg: cfg, publisher: publisher, logger: logger, Now: time.Now}
}

type demand struct {
	material *entities.RawMaterial
	required decimal.Decimal
}

// Allocate draws required of one material, optionally for a production order
func (e *Engine) Allocate(ctx context.Context, materialCode string, required decimal.Decimal, productionOrderID *uuid.UUID) (*dto.AllocationResult, error) {
	results, err := e.AllocateWith(ctx, []dto.MaterialRequirement{{MaterialCode: materialCode, Quantity: required}}, productionOrderID, nil)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// AllocateBatch draws every requirement or none of them
func (e *Engine) AllocateBatch(ctx context.Context, reqs []dto.MaterialRequirement, productionOrderID *uuid.UUID) ([]dto.AllocationResult, error) {
	return e.AllocateWith(ctx, reqs, productionOrderID, nil)
}

// AllocateWith draws every requirement and runs after in the same transaction.
// Availability of all materials is checked before any lot is touched.
func (e *Engine) AllocateWith(ctx context.Context, reqs []dto.MaterialRequirement, productionOrderID *uuid.UUID, after AfterAllocation) ([]dto.AllocationResult, error) {
	const op = "AllocateMaterial"

	demands, err := e.resolve(ctx, op, reqs, productionOrderID)
	if err != nil {
		return nil, err
	}

	release, err := e.lockAll(ctx, demands)
	if err != nil {
		return nil, err
	}
	defer release()

	var results []dto.AllocationResult
	attempts := 0
	for attempts < e.cfg.AllocationRetries {
		attempts++
		err = e.store.Atomic(ctx, func(ctx context.Context, tx repositories.Store) error {
			var txErr error
			results, txErr = e.draw(ctx, tx, op, demands, productionOrderID)
			if txErr != nil {
				return txErr
			}
			if after != nil {
				return after(ctx, tx, results)
			}
			return nil
		})
		if !errors.Is(err, errs.ErrConflict) {
			break
		}
		e.logger.WithFields(logrus.Fields{
			"module":  "allocation",
			"attempt": attempts,
		}).WithError(err).Warn("concurrent lot update, retrying allocation")
	}

	if err != nil {
		if errors.Is(err, errs.ErrInsufficientMaterial) {
			e.publishShortages(err)
		}
		return nil, err
	}

	for i := range results {
		results[i].Attempts = attempts
	}
	e.publishAllocations(demands, results)
	return results, nil
}

// resolve validates the requirements, merges repeated materials and orders them by
// code so locks are always taken in the same order
func (e *Engine) resolve(ctx context.Context, op string, reqs []dto.MaterialRequirement, productionOrderID *uuid.UUID) ([]demand, error) {
	if len(reqs) == 0 {
		return nil, errs.Validation(op, "no material requirements given")
	}
	if productionOrderID != nil {
		if _, err := e.store.GetOrder(ctx, *productionOrderID); err != nil {
			return nil, errs.Wrap(op, err)
		}
	}

	byCode := make(map[string]*demand)
	for _, r := range reqs {
		if r.Quantity.Sign() <= 0 {
			return nil, errs.Validation(op, "required quantity for %s must be positive, got %s", r.MaterialCode, r.Quantity)
		}
		if d, ok := byCode[r.MaterialCode]; ok {
			d.required = d.required.Add(r.Quantity)
			continue
		}
		material, err := e.store.GetMaterialByCode(ctx, r.MaterialCode)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		if !material.IsActive {
			return nil, errs.Inactive(op, "raw material %s is inactive", material.Code)
		}
		byCode[r.MaterialCode] = &demand{material: material, required: r.Quantity}
	}

	demands := make([]demand, 0, len(byCode))
	for _, d := range byCode {
		demands = append(demands, *d)
	}
	sort.Slice(demands, func(i, j int) bool { return demands[i].material.Code < demands[j].material.Code })
	return demands, nil
}

func (e *Engine) lockAll(ctx context.Context, demands []demand) (func(), error) {
	held := make([]locking.Lock, 0, len(demands))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(context.Background()); err != nil {
				config.LogError(e.logger, "allocation", "releaseLock", nil, err)
			}
		}
	}
	for _, d := range demands {
		lock, err := e.locker.Obtain(ctx, lockKey(d.material.ID), e.cfg.LockTTL)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}

func lockKey(materialID uuid.UUID) string {
	return "mes:lock:material:" + materialID.String()
}

// draw is the two-phase check-then-consume run inside a transaction
func (e *Engine) draw(ctx context.Context, tx repositories.Store, op string, demands []demand, productionOrderID *uuid.UUID) ([]dto.AllocationResult, error) {
	walks := make([]services.LotWalk, len(demands))
	var shortfalls []errs.Shortfall

	for i, d := range demands {
		lots, err := tx.FindLots(ctx, repositories.LotFilter{
			RawMaterialID: &d.material.ID,
			Statuses:      []entities.LotStatus{entities.LotInStorage},
			InStockOnly:   true,
			Order:         repositories.LotOrderFIFO,
			ForUpdate:     true,
		})
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		walks[i] = services.WalkLots(lots, d.required)
		if !walks[i].Sufficient(d.required) {
			shortfalls = append(shortfalls, errs.Shortfall{
				MaterialCode: d.material.Code,
				Required:     d.required,
				Available:    walks[i].Available,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, errs.InsufficientMaterial(op, shortfalls)
	}

	now := e.Now()
	results := make([]dto.AllocationResult, 0, len(demands))
	for i, d := range demands {
		result := dto.AllocationResult{
			MaterialID:        d.material.ID,
			MaterialCode:      d.material.Code,
			Required:          d.required,
			ProductionOrderID: productionOrderID,
		}
		for _, drawn := range walks[i].Draws {
			lot := drawn.Lot
			expected := lot.QuantityCurrent
			if err := lot.Consume(drawn.Quantity); err != nil {
				return nil, errs.InvariantViolation(op, "%v", err)
			}
			if err := tx.ConsumeLot(ctx, lot.ID, expected, lot.QuantityCurrent, lot.Status); err != nil {
				return nil, errs.Wrap(op, err)
			}
			if err := tx.RecordConsumption(ctx, &entities.LotConsumption{
				ID:                uuid.New(),
				LotID:             lot.ID,
				RawMaterialID:     d.material.ID,
				ProductionOrderID: productionOrderID,
				Quantity:          drawn.Quantity,
				UnitPrice:         lot.UnitPrice,
				ConsumedAt:        now,
			}); err != nil {
				return nil, errs.Wrap(op, err)
			}
			result.Lots = append(result.Lots, dto.LotAllocation{
				LotID:     lot.ID,
				LotNumber: lot.LotNumber,
				Quantity:  drawn.Quantity,
				UnitPrice: lot.UnitPrice,
				Remaining: lot.QuantityCurrent,
				Emptied:   lot.Status == entities.LotUsed,
			})
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *Engine) publishAllocations(demands []demand, results []dto.AllocationResult) {
	now := e.Now()
	for i, r := range results {
		payload := events.MaterialAllocated{
			MaterialCode:      r.MaterialCode,
			Required:          r.Required,
			ProductionOrderID: r.ProductionOrderID,
		}
		for _, l := range r.Lots {
			payload.Draws = append(payload.Draws, events.LotDrawn{
				LotID:     l.LotID,
				LotNumber: l.LotNumber,
				Quantity:  l.Quantity,
				Remaining: l.Remaining,
			})
		}
		e.publish(events.NewEvent(events.MaterialAllocatedEvent, events.MaterialStream(demands[i].material.ID), payload, now))

		e.logger.WithFields(logrus.Fields{
			"module":   "allocation",
			"material": r.MaterialCode,
			"required": r.Required.String(),
			"lots":     len(r.Lots),
			"attempts": r.Attempts,
		}).Info("material allocated")
	}
}

func (e *Engine) publishShortages(err error) {
	now := e.Now()
	for _, s := range errs.ShortfallsOf(err) {
		e.logger.WithFields(logrus.Fields{
			"module":    "allocation",
			"material":  s.MaterialCode,
			"required":  s.Required.String(),
			"available": s.Available.String(),
		}).Warn("material shortage")
		e.publish(events.NewEvent(events.ShortageIdentifiedEvent, "shortage-"+s.MaterialCode, events.ShortageIdentified{
			MaterialCode: s.MaterialCode,
			Required:     s.Required,
			Available:    s.Available,
		}, now))
	}
}

func (e *Engine) publish(event events.Event) {
	if err := events.Publish(e.publisher, event); err != nil {
		config.LogError(e.logger, "allocation", "publish", event.Type, err)
	}
}
