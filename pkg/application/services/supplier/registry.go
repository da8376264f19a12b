package supplier

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
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

const recentActivityWindow = 30 * day

var (
	baseChecklist = []string{
		"HACCP certificate validity check",
		"facility hygiene inspection",
		"QC system operation check",
		"raw material storage environment check",
		"staff hygiene training completion check",
	}
	extraChecklist = map[dto.AuditType][]string{
		dto.AuditRoutine: nil,
		dto.AuditQualityIssue: {
			"root cause analysis results",
			"corrective plan and execution status",
			"recurrence prevention measures",
		},
		dto.AuditRecertification: {
			"certification renewal application status",
			"compliance with latest regulations",
			"improvement of past audit findings",
		},
	}
)

// RegistrationInput describes a new supplier
type RegistrationInput struct {
	Code          string `json:"code" validate:"required,max=50"`
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=20"`
	Address       string `json:"address"`
	Certification string `json:"certification" validate:"required"`
}

// SupplierQuery narrows ListSuppliers
type SupplierQuery struct {
	Status                entities.SupplierStatus
	CertificationContains string
}

// Registry maintains the supplier base
type Registry struct {
	repo      Repository
	publisher events.Publisher
	logger    logrus.FieldLogger
	Now       func() time.Time
}

func NewRegistry(repo Repository, publisher events.Publisher, logger logrus.FieldLogger) *Registry {
	return &Registry{repo: repo, publisher: publisher, logger: logger, Now: time.Now}
}

// Register adds a HACCP-certified supplier with a unique code and email
func (r *Registry) Register(ctx context.Context, actor entities.Actor, in RegistrationInput) (*entities.Supplier, error) {
	const op = "RegisterSupplier"

	if err := services.Authorize(actor, services.ActionRegisterSupplier); err != nil {
		return nil, err
	}
	if err := validation.Struct(op, in); err != nil {
		return nil, err
	}

	if _, err := r.repo.GetSupplierByCode(ctx, in.Code); err == nil {
		return nil, errs.Validation(op, "supplier code %s already exists", in.Code)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Wrap(op, err)
	}
	sameEmail, err := r.repo.FindSuppliers(ctx, repositories.SupplierFilter{Email: in.Email})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if len(sameEmail) > 0 {
		return nil, errs.Validation(op, "email %s is already registered to supplier %s", in.Email, sameEmail[0].Code)
	}

	supplier, err := entities.NewSupplier(in.Code, in.Name, in.Email, in.Certification)
	if err != nil {
		return nil, errs.Validation(op, "%v", err)
	}
	if !supplier.HasHACCPCertification() {
		return nil, errs.Validation(op, "supplier %s must hold a HACCP certification", in.Code)
	}
	supplier.ContactPerson = in.ContactPerson
	supplier.Phone = in.Phone
	supplier.Address = in.Address
	supplier.CreatedAt = r.Now()
	supplier.UpdatedAt = supplier.CreatedAt

	if err := r.repo.SaveSupplier(ctx, supplier); err != nil {
		return nil, errs.Wrap(op, err)
	}

	event := events.NewEvent(events.SupplierRegisteredEvent, events.SupplierStream(supplier.ID),
		events.SupplierRegistered{Code: supplier.Code, Name: supplier.Name}, supplier.CreatedAt)
	if err := events.Publish(r.publisher, event); err != nil {
		config.LogError(r.logger, "supplier", "Register", supplier.Code, err)
	}
	r.logger.WithFields(logrus.Fields{
		"module":   "supplier",
		"supplier": supplier.Code,
		"actor":    actor.Username,
	}).Info("supplier registered")
	return supplier, nil
}

// ListSuppliers returns the suppliers visible to the actor ordered by name
func (r *Registry) ListSuppliers(ctx context.Context, actor entities.Actor, q SupplierQuery) ([]*entities.Supplier, error) {
	filter := repositories.SupplierFilter{}
	if q.Status != "" {
		filter.Statuses = []entities.SupplierStatus{q.Status}
	}
	all, err := r.repo.FindSuppliers(ctx, filter)
	if err != nil {
		return nil, errs.Wrap("ListSuppliers", err)
	}

	needle := strings.ToLower(q.CertificationContains)
	result := make([]*entities.Supplier, 0, len(all))
	for _, s := range all {
		if !services.CanAccess(actor, services.ResourceSupplier, s) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(s.Certification), needle) {
			continue
		}
		result = append(result, s)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Statistics summarizes supplier status and certification coverage
func (r *Registry) Statistics(ctx context.Context, actor entities.Actor) (*dto.SupplierStatistics, error) {
	const op = "SupplierStatistics"

	if err := services.Authorize(actor, services.ActionSupplierStats); err != nil {
		return nil, err
	}
	suppliers, err := r.repo.FindSuppliers(ctx, repositories.SupplierFilter{})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	stats := &dto.SupplierStatistics{TotalSuppliers: len(suppliers)}
	for _, s := range suppliers {
		switch s.Status {
		case entities.SupplierActive:
			stats.ActiveSuppliers++
		case entities.SupplierInactive:
			stats.InactiveSuppliers++
		}
		if s.HasHACCPCertification() {
			stats.HACCPCertifiedCount++
		}
		if s.HasISOCertification() {
			stats.ISOCertifiedCount++
		}
	}

	since := r.Now().Add(-recentActivityWindow)
	lots, err := r.repo.FindLots(ctx, repositories.LotFilter{ReceivedFrom: &since})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	recent := make(map[uuid.UUID]struct{})
	for _, l := range lots {
		recent[l.SupplierID] = struct{}{}
	}
	stats.RecentActiveSuppliers = len(recent)
	stats.CertificationRate = services.Score(services.Percentage(stats.HACCPCertifiedCount, stats.TotalSuppliers))
	return stats, nil
}

// AuditChecklist returns the base checklist plus the items specific to auditType
func AuditChecklist(auditType dto.AuditType) ([]string, error) {
	extra, ok := extraChecklist[auditType]
	if !ok {
		return nil, errs.Validation("AuditChecklist", "unknown audit type %q", auditType)
	}
	items := make([]string, 0, len(baseChecklist)+len(extra))
	items = append(items, baseChecklist...)
	return append(items, extra...), nil
}

// ScheduleAudit plans a future audit of a supplier
func (r *Registry) ScheduleAudit(ctx context.Context, actor entities.Actor, supplierID uuid.UUID, date time.Time, auditType dto.AuditType) (*dto.AuditPlan, error) {
	const op = "ScheduleAudit"

	if err := services.Authorize(actor, services.ActionScheduleAudit); err != nil {
		return nil, err
	}
	supplier, err := r.repo.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if !date.After(r.Now()) {
		return nil, errs.Validation(op, "audit date %s must be in the future", date.Format("2006-01-02"))
	}
	checklist, err := AuditChecklist(auditType)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"module":   "supplier",
		"supplier": supplier.Code,
		"type":     auditType,
		"date":     date.Format("2006-01-02"),
	}).Info("supplier audit scheduled")

	return &dto.AuditPlan{
		SupplierID:    supplier.ID,
		SupplierCode:  supplier.Code,
		SupplierName:  supplier.Name,
		AuditType:     auditType,
		ScheduledDate: date,
		Checklist:     checklist,
		ScheduledBy:   actor.Username,
	}, nil
}
