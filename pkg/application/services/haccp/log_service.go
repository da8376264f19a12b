package haccp

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/application/validation"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
	"github.com/vsinha/mes/pkg/infrastructure/events"
)

// MeasurementInput is a new CCP measurement
type MeasurementInput struct {
	CCPID                   uuid.UUID        `json:"ccp_id" validate:"required"`
	ProductionOrderID       *uuid.UUID       `json:"production_order_id"`
	MeasuredValue           *decimal.Decimal `json:"measured_value" validate:"required"`
	Unit                    string           `json:"unit" validate:"required,max=20"`
	MeasuredAt              time.Time        `json:"measured_at" validate:"required"`
	DeviationNotes          string           `json:"deviation_notes" validate:"max=2000"`
	MeasurementDevice       string           `json:"measurement_device" validate:"max=100"`
	EnvironmentalConditions string           `json:"environmental_conditions" validate:"max=2000"`
}

// ResolutionInput attaches a corrective action and/or the caller's verification to a log
type ResolutionInput struct {
	CorrectiveActionTaken string     `json:"corrective_action_taken" validate:"max=2000"`
	Verify                bool       `json:"verify"`
	VerificationDate      *time.Time `json:"verification_date"`
}

// LogQuery narrows a log listing. Zero values mean no restriction.
type LogQuery struct {
	CCPID             *uuid.UUID
	ProductionOrderID *uuid.UUID
	From              *time.Time
	To                *time.Time
	WithinLimits      *bool
	Limit             int
}

// LogService records and lists CCP monitoring logs
type LogService struct {
	store     repositories.Store
	validator *Validator
	publisher events.Publisher
	logger    logrus.FieldLogger
	Now       func() time.Time
}

// NewLogService wires a log service. publisher may be nil.
func NewLogService(store repositories.Store, cfg config.HACCPConfig, publisher events.Publisher, logger logrus.FieldLogger) *LogService {
	s := &LogService{store: store, publisher: publisher, logger: logger, Now: time.Now}
	s.validator = NewValidator(store, cfg)
	s.validator.Now = func() time.Time { return s.Now() }
	return s
}

// RecordMeasurement validates, classifies and stores a measurement
func (s *LogService) RecordMeasurement(ctx context.Context, actor entities.Actor, in MeasurementInput) (*entities.CCPLog, error) {
	const op = "RecordMeasurement"

	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}
	value := *in.MeasuredValue
	ccp, err := s.validator.Validate(ctx, in.CCPID, value, in.MeasuredAt, actor)
	if err != nil {
		return nil, err
	}

	if in.ProductionOrderID != nil {
		order, err := s.store.GetOrder(ctx, *in.ProductionOrderID)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		if !ccp.AppliesTo(order.FinishedProductID) {
			return nil, errs.Validation(op, "ccp %s does not apply to the product of order %s", ccp.Code, order.OrderNumber)
		}
	}

	status := services.Classify(ccp.Limits(), value)
	log := &entities.CCPLog{
		ID:                      uuid.New(),
		CCPID:                   ccp.ID,
		ProductionOrderID:       in.ProductionOrderID,
		MeasuredValue:           value,
		Unit:                    in.Unit,
		MeasuredAt:              in.MeasuredAt,
		Status:                  status,
		IsWithinLimits:          status == entities.LogWithinLimits,
		DeviationNotes:          in.DeviationNotes,
		MeasurementDevice:       in.MeasurementDevice,
		EnvironmentalConditions: in.EnvironmentalConditions,
		CreatedBy:               actor.ID,
	}
	if err := s.store.CreateLog(ctx, log); err != nil {
		return nil, errs.Wrap(op, err)
	}

	now := s.Now()
	s.publish(events.NewEvent(events.CCPLogRecordedEvent, events.CCPLogStream(ccp.ID), events.CCPLogRecorded{
		LogID:          log.ID,
		CCPCode:        ccp.Code,
		MeasuredValue:  log.MeasuredValue,
		IsWithinLimits: log.IsWithinLimits,
	}, now))

	if !log.IsWithinLimits {
		deviation := services.DeviationPercentage(ccp.Limits(), log.MeasuredValue)
		s.logger.WithFields(logrus.Fields{
			"module":    "haccp",
			"ccp":       ccp.Code,
			"log_id":    log.ID,
			"value":     log.MeasuredValue.String(),
			"deviation": deviation.String(),
		}).Warn("critical limit deviation recorded")
		s.publish(events.NewEvent(events.CCPLogDeviationEvent, events.CCPLogStream(ccp.ID), events.CCPLogDeviation{
			LogID:               log.ID,
			CCPCode:             ccp.Code,
			MeasuredValue:       log.MeasuredValue,
			DeviationPercentage: deviation,
		}, now))
	}
	return log, nil
}

// RecordResolution attaches a corrective action and/or a verification to a stored log
func (s *LogService) RecordResolution(ctx context.Context, actor entities.Actor, logID uuid.UUID, in ResolutionInput) (*entities.CCPLog, error) {
	const op = "RecordResolution"

	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}
	if in.CorrectiveActionTaken != "" {
		if err := services.Authorize(actor, services.ActionResolveLog); err != nil {
			return nil, err
		}
	}
	if in.Verify {
		if err := services.Authorize(actor, services.ActionVerifyLog); err != nil {
			return nil, err
		}
	}

	log, err := s.store.GetLog(ctx, logID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	now := s.Now()
	resolution := entities.LogResolution{CorrectiveActionTaken: in.CorrectiveActionTaken}
	if in.CorrectiveActionTaken != "" {
		resolution.CorrectiveActionBy = &actor.ID
	}
	if in.Verify {
		at := now
		if in.VerificationDate != nil {
			at = *in.VerificationDate
		}
		if at.After(now) {
			return nil, errs.Validation(op, "verification date %s is in the future", at.Format(time.RFC3339))
		}
		resolution.VerifiedBy = &actor.ID
		resolution.VerificationDate = &at
	}
	if err := log.ApplyResolution(resolution); err != nil {
		return nil, errs.Validation(op, "%v", err)
	}
	if err := s.store.UpdateLog(ctx, log); err != nil {
		return nil, errs.Wrap(op, err)
	}

	s.publish(events.NewEvent(events.CCPLogResolvedEvent, events.CCPLogStream(log.CCPID), events.CCPLogResolved{
		LogID:            log.ID,
		CorrectiveAction: in.CorrectiveActionTaken != "",
		Verified:         in.Verify,
	}, now))
	return log, nil
}

// ListLogs returns the logs the actor may see, newest first
func (s *LogService) ListLogs(ctx context.Context, actor entities.Actor, q LogQuery) ([]dto.LogView, error) {
	const op = "ListLogs"

	filter := repositories.CCPLogFilter{
		CCPID:             q.CCPID,
		ProductionOrderID: q.ProductionOrderID,
		MeasuredFrom:      q.From,
		MeasuredTo:        q.To,
		WithinLimits:      q.WithinLimits,
		NewestFirst:       true,
		Limit:             q.Limit,
	}
	if actor.Role == entities.RoleOperator {
		filter.CreatedBy = &actor.ID
	}

	logs, err := s.store.FindLogs(ctx, filter)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	now := s.Now()
	ccps := make(map[uuid.UUID]*entities.CCP)
	views := make([]dto.LogView, 0, len(logs))
	for _, log := range logs {
		if !services.CanAccess(actor, services.ResourceCCPLog, log) {
			continue
		}
		ccp, ok := ccps[log.CCPID]
		if !ok {
			if ccp, err = s.store.GetCCP(ctx, log.CCPID); err != nil {
				return nil, errs.Wrap(op, err)
			}
			ccps[log.CCPID] = ccp
		}
		views = append(views, dto.LogView{
			Log:                 log,
			CCPCode:             ccp.Code,
			CCPName:             ccp.Name,
			DeviationPercentage: services.DeviationPercentage(ccp.Limits(), log.MeasuredValue),
			HoursSinceMeasured:  math.Round(now.Sub(log.MeasuredAt).Hours()*100) / 100,
		})
	}
	return views, nil
}

func (s *LogService) publish(event events.Event) {
	if err := events.Publish(s.publisher, event); err != nil {
		config.LogError(s.logger, "haccp", "publish", event.Type, err)
	}
}
