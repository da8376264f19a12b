package supplier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/mes/pkg/infrastructure/testing"
)

func newRegistry(f *testhelpers.Fixture) (*Registry, *events.Journal) {
	logger, _ := test.NewNullLogger()
	store := events.NewJournal(logger)
	r := NewRegistry(f.Store, store, logger)
	r.Now = f.Clock()
	return r, store
}

func validInput() RegistrationInput {
	return RegistrationInput{
		Code:          "SUP-NEW",
		Name:          "Fresh Farms",
		ContactPerson: "Park",
		Email:         "orders@freshfarms.example",
		Phone:         "02-123-4567",
		Address:       "Incheon",
		Certification: "HACCP, ISO 22000",
	}
}

func TestRegistry_Register(t *testing.T) {
	f := testhelpers.NewFixture(now)
	r, eventStore := newRegistry(f)

	supplier, err := r.Register(context.Background(), testhelpers.QualityManager(), validInput())
	if err != nil {
		t.Fatalf("Expected registration to succeed, got %v", err)
	}
	if supplier.Status != entities.SupplierActive || !supplier.ContactComplete() {
		t.Errorf("Expected an active supplier with full contact details, got %+v", supplier)
	}

	stored, err := f.Store.GetSupplierByCode(context.Background(), "SUP-NEW")
	if err != nil || stored.ID != supplier.ID {
		t.Fatalf("Expected supplier to be stored, got %v", err)
	}
	registered := eventStore.OfType(events.SupplierRegisteredEvent)
	if len(registered) != 1 {
		t.Errorf("Expected 1 registration event, got %d", len(registered))
	}
}

func TestRegistry_RegisterRejects(t *testing.T) {
	tests := []struct {
		name     string
		actor    entities.Actor
		mutate   func(in *RegistrationInput)
		wantKind errs.Kind
		wantText string
	}{
		{"operator", testhelpers.Operator("op1"), func(*RegistrationInput) {}, errs.KindPermissionDenied, ""},
		{"duplicate code", testhelpers.Admin(), func(in *RegistrationInput) { in.Code = "SUP-MILL" }, errs.KindValidation, "already exists"},
		{"duplicate email ignores case", testhelpers.Admin(), func(in *RegistrationInput) { in.Email = "SUP-MILL@EXAMPLE.COM" }, errs.KindValidation, "already registered"},
		{"no haccp", testhelpers.Admin(), func(in *RegistrationInput) { in.Certification = "ISO 9001" }, errs.KindValidation, "HACCP"},
		{"bad email", testhelpers.Admin(), func(in *RegistrationInput) { in.Email = "not-an-email" }, errs.KindValidation, "Email"},
		{"missing name", testhelpers.Admin(), func(in *RegistrationInput) { in.Name = "" }, errs.KindValidation, "Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testhelpers.BuildBakeryScenario(now)
			r, _ := newRegistry(f)
			in := validInput()
			tt.mutate(&in)

			_, err := r.Register(context.Background(), tt.actor, in)
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Fatalf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("Expected error to mention %q, got %v", tt.wantText, err)
			}
			if in.Code != "SUP-MILL" {
				if _, err := f.Store.GetSupplierByCode(context.Background(), in.Code); !errors.Is(err, errs.ErrNotFound) {
					t.Errorf("Expected nothing stored, got %v", err)
				}
			}
		})
	}
}

func seedSupplierBase(f *testhelpers.Fixture) {
	a := f.Supplier("SUP-A", "HACCP, ISO 22000")
	a.Name = "Zeta Mills"
	_ = f.Store.SaveSupplier(context.Background(), a)
	f.Supplier("SUP-B", "HACCP")
	f.Supplier("SUP-C", "ISO 9001", testhelpers.WithSupplierStatus(entities.SupplierInactive))
	f.Supplier("SUP-D", "haccp", testhelpers.WithSupplierStatus(entities.SupplierSuspended))

	m := f.Material("RM-1", a, nil)
	f.Lot("L-1", m, a.ID, daysAgo(3), "1", "1")
	f.Lot("L-2", m, a.ID, daysAgo(4), "1", "1")
}

func codes(suppliers []*entities.Supplier) string {
	out := make([]string, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, s.Code)
	}
	return strings.Join(out, ",")
}

func TestRegistry_ListSuppliers(t *testing.T) {
	f := testhelpers.NewFixture(now)
	seedSupplierBase(f)
	r, _ := newRegistry(f)

	tests := []struct {
		name  string
		actor entities.Actor
		query SupplierQuery
		want  string
	}{
		{"admin sees all by name", testhelpers.Admin(), SupplierQuery{}, "SUP-B,SUP-C,SUP-D,SUP-A"},
		{"operator sees active only", testhelpers.Operator("op1"), SupplierQuery{}, "SUP-B,SUP-A"},
		{"auditor sees nothing", testhelpers.Auditor(), SupplierQuery{}, ""},
		{"status filter", testhelpers.QualityManager(), SupplierQuery{Status: entities.SupplierInactive}, "SUP-C"},
		{"certification filter ignores case", testhelpers.Admin(), SupplierQuery{CertificationContains: "HACCP"}, "SUP-B,SUP-D,SUP-A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ListSuppliers(context.Background(), tt.actor, tt.query)
			if err != nil {
				t.Fatalf("Expected listing, got %v", err)
			}
			if codes(got) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, codes(got))
			}
		})
	}
}

func TestRegistry_Statistics(t *testing.T) {
	f := testhelpers.NewFixture(now)
	seedSupplierBase(f)
	r, _ := newRegistry(f)

	stats, err := r.Statistics(context.Background(), testhelpers.Admin())
	if err != nil {
		t.Fatalf("Expected statistics, got %v", err)
	}
	want := dto.SupplierStatistics{
		TotalSuppliers:        4,
		ActiveSuppliers:       2,
		InactiveSuppliers:     1,
		HACCPCertifiedCount:   3,
		ISOCertifiedCount:     2,
		RecentActiveSuppliers: 1,
		CertificationRate:     75,
	}
	if *stats != want {
		t.Errorf("Expected %+v, got %+v", want, *stats)
	}

	if _, err := r.Statistics(context.Background(), testhelpers.Operator("op1")); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Errorf("Expected PermissionDenied for operator, got %v", err)
	}
}

func TestAuditChecklist(t *testing.T) {
	tests := []struct {
		auditType dto.AuditType
		wantLen   int
		wantLast  string
	}{
		{dto.AuditRoutine, 5, "staff hygiene training completion check"},
		{dto.AuditQualityIssue, 8, "recurrence prevention measures"},
		{dto.AuditRecertification, 8, "improvement of past audit findings"},
	}
	for _, tt := range tests {
		t.Run(string(tt.auditType), func(t *testing.T) {
			items, err := AuditChecklist(tt.auditType)
			if err != nil {
				t.Fatalf("Expected checklist, got %v", err)
			}
			if len(items) != tt.wantLen || items[len(items)-1] != tt.wantLast {
				t.Errorf("Expected %d items ending with %q, got %v", tt.wantLen, tt.wantLast, items)
			}
		})
	}

	if _, err := AuditChecklist("surprise"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected ValidationError for unknown type, got %v", err)
	}
}

func TestRegistry_ScheduleAudit(t *testing.T) {
	f := testhelpers.NewFixture(now)
	supplier := f.Supplier("SUP-A", "HACCP")
	r, _ := newRegistry(f)
	qm := testhelpers.QualityManager()

	plan, err := r.ScheduleAudit(context.Background(), qm, supplier.ID, now.AddDate(0, 0, 14), dto.AuditQualityIssue)
	if err != nil {
		t.Fatalf("Expected audit plan, got %v", err)
	}
	if plan.SupplierCode != "SUP-A" || len(plan.Checklist) != 8 || plan.ScheduledBy != "qm" {
		t.Errorf("Unexpected plan %+v", plan)
	}

	tests := []struct {
		name     string
		actor    entities.Actor
		id       uuid.UUID
		offset   int
		wantKind errs.Kind
	}{
		{"past date", qm, supplier.ID, -1, errs.KindValidation},
		{"today is not future", qm, supplier.ID, 0, errs.KindValidation},
		{"unknown supplier", qm, uuid.New(), 7, errs.KindNotFound},
		{"production manager", testhelpers.ProductionManager(), supplier.ID, 7, errs.KindPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ScheduleAudit(context.Background(), tt.actor, tt.id, now.AddDate(0, 0, tt.offset), dto.AuditRoutine)
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
		})
	}
}
