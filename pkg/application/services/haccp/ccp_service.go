package haccp

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/validation"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

// CCPInput defines or redefines a critical control point
type CCPInput struct {
	Code                string           `json:"code" validate:"required,max=20"`
	Name                string           `json:"name" validate:"required,max=200"`
	Type                entities.CCPType `json:"ccp_type" validate:"required"`
	Description         string           `json:"description"`
	ProcessStep         string           `json:"process_step" validate:"max=100"`
	CriticalLimitMin    *decimal.Decimal `json:"critical_limit_min"`
	CriticalLimitMax    *decimal.Decimal `json:"critical_limit_max"`
	MonitoringFrequency string           `json:"monitoring_frequency" validate:"max=100"`
	CorrectiveAction    string           `json:"corrective_action"`
	ResponsiblePerson   string           `json:"responsible_person" validate:"max=100"`
	FinishedProductID   *uuid.UUID       `json:"finished_product_id"`
}

func (in CCPInput) apply(c *entities.CCP) {
	c.Code = in.Code
	c.Name = in.Name
	c.Type = in.Type
	c.Description = in.Description
	c.ProcessStep = in.ProcessStep
	c.CriticalLimitMin = in.CriticalLimitMin
	c.CriticalLimitMax = in.CriticalLimitMax
	c.MonitoringFrequency = in.MonitoringFrequency
	c.CorrectiveAction = in.CorrectiveAction
	c.ResponsiblePerson = in.ResponsiblePerson
	c.FinishedProductID = in.FinishedProductID
}

// CCPService maintains CCP definitions. A CCP with logs can only be deactivated.
type CCPService struct {
	store  repositories.Store
	logger logrus.FieldLogger
}

func NewCCPService(store repositories.Store, logger logrus.FieldLogger) *CCPService {
	return &CCPService{store: store, logger: logger}
}

// CreateCCP defines a new active CCP
func (s *CCPService) CreateCCP(ctx context.Context, actor entities.Actor, in CCPInput) (*entities.CCP, error) {
	const op = "CreateCCP"

	if err := services.Authorize(actor, services.ActionManageCCP); err != nil {
		return nil, err
	}
	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, op, in.FinishedProductID); err != nil {
		return nil, err
	}

	ccp, err := entities.NewCCP(in.Code, in.Name, in.Type, in.CriticalLimitMin, in.CriticalLimitMax)
	if err != nil {
		return nil, errs.Validation(op, "%v", err)
	}
	in.Code = ccp.Code
	in.apply(ccp)

	if err := s.store.SaveCCP(ctx, ccp); err != nil {
		return nil, errs.Wrap(op, err)
	}
	s.logger.WithFields(logrus.Fields{"module": "haccp", "ccp": ccp.Code}).Info("ccp created")
	return ccp, nil
}

// UpdateCCP redefines a CCP that has no monitoring history yet
func (s *CCPService) UpdateCCP(ctx context.Context, actor entities.Actor, id uuid.UUID, in CCPInput) (*entities.CCP, error) {
	const op = "UpdateCCP"

	if err := services.Authorize(actor, services.ActionManageCCP); err != nil {
		return nil, err
	}
	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}

	ccp, err := s.store.GetCCP(ctx, id)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	logged, err := s.store.CountLogs(ctx, repositories.CCPLogFilter{CCPID: &ccp.ID})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if logged > 0 {
		return nil, errs.InvariantViolation(op, "ccp %s has %d monitoring logs and can only be deactivated", ccp.Code, logged)
	}
	if err := s.checkProduct(ctx, op, in.FinishedProductID); err != nil {
		return nil, err
	}

	in.apply(ccp)
	if err := ccp.Validate(); err != nil {
		return nil, errs.Validation(op, "%v", err)
	}
	if err := s.store.SaveCCP(ctx, ccp); err != nil {
		return nil, errs.Wrap(op, err)
	}
	return ccp, nil
}

// DeactivateCCP stops a CCP from accepting measurements
func (s *CCPService) DeactivateCCP(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.CCP, error) {
	const op = "DeactivateCCP"

	if err := services.Authorize(actor, services.ActionManageCCP); err != nil {
		return nil, err
	}
	ccp, err := s.store.GetCCP(ctx, id)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if !ccp.IsActive {
		return ccp, nil
	}
	ccp.IsActive = false
	if err := s.store.SaveCCP(ctx, ccp); err != nil {
		return nil, errs.Wrap(op, err)
	}
	s.logger.WithFields(logrus.Fields{"module": "haccp", "ccp": ccp.Code}).Info("ccp deactivated")
	return ccp, nil
}

// ListCCPs returns the active CCPs the actor is responsible for or may oversee
func (s *CCPService) ListCCPs(ctx context.Context, actor entities.Actor, productID *uuid.UUID) ([]*entities.CCP, error) {
	ccps, err := s.store.ListCCPs(ctx, repositories.CCPFilter{ActiveOnly: true, FinishedProductID: productID})
	if err != nil {
		return nil, errs.Wrap("ListCCPs", err)
	}
	visible := make([]*entities.CCP, 0, len(ccps))
	for _, c := range ccps {
		if services.CanAccess(actor, services.ResourceCCP, c) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (s *CCPService) checkProduct(ctx context.Context, op string, productID *uuid.UUID) error {
	if productID == nil {
		return nil
	}
	product, err := s.store.GetProduct(ctx, *productID)
	if err != nil {
		return errs.Wrap(op, err)
	}
	if !product.IsActive {
		return errs.Inactive(op, "finished product %s is inactive", product.Code)
	}
	return nil
}
