package haccp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

// Repository is the slice of the entity store the HACCP services read and write
type Repository interface {
	repositories.CCPRepository
	repositories.CCPLogRepository
}

// Validator checks a measurement before it is persisted. It never writes.
//
// The duplicate check and the later insert are separate statements, so two
// measurements for the same CCP submitted at the same instant can both pass.
type Validator struct {
	repo Repository
	cfg  config.HACCPConfig
	Now  func() time.Time
}

// NewValidator creates a validator using the wall clock
func NewValidator(repo Repository, cfg config.HACCPConfig) *Validator {
	return &Validator{repo: repo, cfg: cfg, Now: time.Now}
}

// Validate returns the CCP a measurement belongs to, or the first rule it breaks:
// CCP exists and is active, the actor may record, the time is not in the future,
// and no other log for the CCP lies within the duplicate window.
func (v *Validator) Validate(ctx context.Context, ccpID uuid.UUID, measuredValue decimal.Decimal, measuredAt time.Time, actor entities.Actor) (*entities.CCP, error) {
	const op = "ValidateMeasurement"

	ccp, err := v.repo.GetCCP(ctx, ccpID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if !ccp.IsActive {
		return nil, errs.Inactive(op, "ccp %s is inactive", ccp.Code)
	}
	if err := services.Authorize(actor, services.ActionRecordLog); err != nil {
		return nil, err
	}
	if measuredAt.After(v.Now()) {
		return nil, errs.Validation(op, "future measurement: measured_at %s is after the current time", measuredAt.Format(time.RFC3339))
	}

	from, to := measuredAt.Add(-v.cfg.DuplicateWindow), measuredAt.Add(v.cfg.DuplicateWindow)
	existing, err := v.repo.CountLogs(ctx, repositories.CCPLogFilter{
		CCPID:        &ccp.ID,
		MeasuredFrom: &from,
		MeasuredTo:   &to,
	})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if existing > 0 {
		return nil, errs.Validation(op, "duplicate measurement: ccp %s already has a log within %s of %s (value %s)",
			ccp.Code, v.cfg.DuplicateWindow, measuredAt.Format(time.RFC3339), measuredValue)
	}
	return ccp, nil
}
