package haccp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/mes/pkg/infrastructure/testing"
)

func newLogService(t *testing.T, f *testhelpers.Fixture) (*LogService, *events.Journal) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := events.NewJournal(logger)
	s := NewLogService(f.Store, config.Default().HACCP, store, logger)
	s.Now = f.Clock()
	return s, store
}

func TestLogService_RecordMeasurementClassifies(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	ccp, _ := f.Store.GetCCPByCode(ctx, "CCP-COOK")
	s, eventStore := newLogService(t, f)
	operator := testhelpers.Operator("operator1")

	tests := []struct {
		name       string
		value      string
		at         time.Time
		wantStatus entities.LogStatus
	}{
		{"above max", "95", now.Add(-10 * time.Minute), entities.LogOutOfLimits},
		{"at max", "90", now.Add(-20 * time.Minute), entities.LogWithinLimits},
		{"at min", "80", now.Add(-30 * time.Minute), entities.LogWithinLimits},
		{"below min", "79.9", now.Add(-40 * time.Minute), entities.LogOutOfLimits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := s.RecordMeasurement(ctx, operator, MeasurementInput{
				CCPID:         ccp.ID,
				MeasuredValue: testhelpers.DP(tt.value),
				Unit:          "C",
				MeasuredAt:    tt.at,
			})
			if err != nil {
				t.Fatalf("Expected measurement to be recorded, got %v", err)
			}
			if log.Status != tt.wantStatus {
				t.Errorf("Expected status %s, got %s", tt.wantStatus, log.Status)
			}
			if log.IsWithinLimits != (tt.wantStatus == entities.LogWithinLimits) {
				t.Errorf("Expected is_within_limits to mirror status %s", log.Status)
			}
			if log.CreatedBy != operator.ID {
				t.Errorf("Expected created_by %s, got %s", operator.ID, log.CreatedBy)
			}
		})
	}

	recorded := eventStore.OfType(events.CCPLogRecordedEvent)
	if len(recorded) != 4 {
		t.Errorf("Expected 4 recorded events, got %d", len(recorded))
	}
	deviations := eventStore.OfType(events.CCPLogDeviationEvent)
	if len(deviations) != 2 {
		t.Fatalf("Expected 2 deviation events, got %d", len(deviations))
	}
	payload := deviations[0].Payload.(events.CCPLogDeviation)
	if !payload.DeviationPercentage.Equal(testhelpers.D("5.56")) {
		t.Errorf("Expected deviation 5.56, got %s", payload.DeviationPercentage)
	}
}

func TestLogService_DuplicateCreatesNothing(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	ccp, _ := f.Store.GetCCPByCode(ctx, "CCP-COOK")
	s, _ := newLogService(t, f)
	operator := testhelpers.Operator("operator1")

	in := MeasurementInput{CCPID: ccp.ID, MeasuredValue: testhelpers.DP("85"), Unit: "C", MeasuredAt: now.Add(-5 * time.Minute)}
	if _, err := s.RecordMeasurement(ctx, operator, in); err != nil {
		t.Fatalf("Expected first measurement to succeed, got %v", err)
	}

	in.MeasuredAt = in.MeasuredAt.Add(40 * time.Second)
	_, err := s.RecordMeasurement(ctx, operator, in)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("Expected ValidationError for duplicate, got %v", err)
	}

	n, _ := f.Store.CountLogs(ctx, repositories.CCPLogFilter{CCPID: &ccp.ID})
	if n != 1 {
		t.Errorf("Expected 1 stored log, got %d", n)
	}
}

func TestLogService_RecordMeasurementRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	ccp, _ := f.Store.GetCCPByCode(ctx, "CCP-COOK")
	s, _ := newLogService(t, f)

	_, err := s.RecordMeasurement(ctx, testhelpers.Operator("operator1"), MeasurementInput{
		CCPID:         ccp.ID,
		MeasuredValue: testhelpers.DP("85"),
		MeasuredAt:    now.Add(-time.Minute),
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected ValidationError for missing unit, got %v", err)
	}

	_, err = s.RecordMeasurement(ctx, testhelpers.Operator("operator1"), MeasurementInput{
		CCPID:      ccp.ID,
		Unit:       "C",
		MeasuredAt: now.Add(-time.Minute),
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected ValidationError for missing measured value, got %v", err)
	}
	n, _ := f.Store.CountLogs(ctx, repositories.CCPLogFilter{CCPID: &ccp.ID})
	if n != 0 {
		t.Errorf("Expected no stored log, got %d", n)
	}
}

func TestLogService_RecordMeasurementChecksOrderProduct(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	bread, _ := f.Store.GetProductByCode(ctx, "FP-BREAD")
	cake := f.Product("FP-CAKE")
	ccp := f.CCP("CCP-BAKE", entities.CCPTemperature, "170", "190")
	ccp.FinishedProductID = &cake.ID
	_ = f.Store.SaveCCP(ctx, ccp)
	order := f.Order("PO-1", bread, "100", now.Add(-2*time.Hour), entities.OrderInProgress)

	s, _ := newLogService(t, f)
	_, err := s.RecordMeasurement(ctx, testhelpers.Operator("operator1"), MeasurementInput{
		CCPID:             ccp.ID,
		ProductionOrderID: &order.ID,
		MeasuredValue:     testhelpers.DP("180"),
		Unit:              "C",
		MeasuredAt:        now.Add(-time.Minute),
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected ValidationError for ccp of another product, got %v", err)
	}
}

func TestLogService_RecordResolution(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	ccp, _ := f.Store.GetCCPByCode(ctx, "CCP-COOK")
	s, eventStore := newLogService(t, f)

	out := f.Log(ccp, "95", now.Add(-2*time.Hour), false)
	within := f.Log(ccp, "85", now.Add(-3*time.Hour), true)
	operator := testhelpers.Operator("operator1")
	qm := testhelpers.QualityManager()

	resolved, err := s.RecordResolution(ctx, operator, out.ID, ResolutionInput{CorrectiveActionTaken: "Re-cooked batch"})
	if err != nil {
		t.Fatalf("Expected corrective action to be recorded, got %v", err)
	}
	if resolved.Status != entities.LogCorrectiveAction {
		t.Errorf("Expected status corrective_action, got %s", resolved.Status)
	}
	if resolved.CorrectiveActionBy == nil || *resolved.CorrectiveActionBy != operator.ID {
		t.Errorf("Expected corrective action by %s", operator.ID)
	}

	tests := []struct {
		name     string
		actor    entities.Actor
		logID    func() *entities.CCPLog
		input    ResolutionInput
		wantKind errs.Kind
	}{
		{"operator cannot verify", operator, func() *entities.CCPLog { return out }, ResolutionInput{Verify: true}, errs.KindPermissionDenied},
		{"second corrective action", operator, func() *entities.CCPLog { return out }, ResolutionInput{CorrectiveActionTaken: "again"}, errs.KindValidation},
		{"corrective action on within-limits log", qm, func() *entities.CCPLog { return within }, ResolutionInput{CorrectiveActionTaken: "none needed"}, errs.KindValidation},
		{"future verification date", qm, func() *entities.CCPLog { return within }, ResolutionInput{Verify: true, VerificationDate: timePtr(now.Add(time.Hour))}, errs.KindValidation},
		{"empty resolution", qm, func() *entities.CCPLog { return within }, ResolutionInput{}, errs.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RecordResolution(ctx, tt.actor, tt.logID().ID, tt.input)
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
		})
	}

	verified, err := s.RecordResolution(ctx, qm, out.ID, ResolutionInput{Verify: true})
	if err != nil {
		t.Fatalf("Expected verification to succeed, got %v", err)
	}
	if verified.VerifiedBy == nil || *verified.VerifiedBy != qm.ID || !verified.VerificationDate.Equal(now) {
		t.Errorf("Expected verification by %s at %v", qm.ID, now)
	}
	if _, err := s.RecordResolution(ctx, qm, out.ID, ResolutionInput{Verify: true}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("Expected ValidationError for second verification, got %v", err)
	}

	stored, _ := f.Store.GetLog(ctx, out.ID)
	if !stored.MeasuredValue.Equal(testhelpers.D("95")) || stored.IsWithinLimits {
		t.Errorf("Expected measurement to stay unchanged, got %s within=%v", stored.MeasuredValue, stored.IsWithinLimits)
	}
	resolvedEvents := eventStore.OfType(events.CCPLogResolvedEvent)
	if len(resolvedEvents) != 2 {
		t.Errorf("Expected 2 resolved events, got %d", len(resolvedEvents))
	}
}

func TestLogService_ListLogsByRole(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	ccp, _ := f.Store.GetCCPByCode(ctx, "CCP-COOK")
	s, _ := newLogService(t, f)
	operator := testhelpers.Operator("operator1")

	mine := f.Log(ccp, "95", now.Add(-2*time.Hour), false, testhelpers.CreatedBy(operator))
	f.Log(ccp, "85", now.Add(-time.Hour), true)

	tests := []struct {
		name  string
		actor entities.Actor
		want  int
	}{
		{"quality manager sees all", testhelpers.QualityManager(), 2},
		{"admin sees all", testhelpers.Admin(), 2},
		{"operator sees own", operator, 1},
		{"auditor sees nothing", testhelpers.Auditor(), 0},
		{"production manager sees nothing", testhelpers.ProductionManager(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views, err := s.ListLogs(ctx, tt.actor, LogQuery{})
			if err != nil {
				t.Fatalf("Expected listing to succeed, got %v", err)
			}
			if len(views) != tt.want {
				t.Errorf("Expected %d logs, got %d", tt.want, len(views))
			}
		})
	}

	views, _ := s.ListLogs(ctx, operator, LogQuery{})
	if len(views) != 1 || views[0].Log.ID != mine.ID {
		t.Fatalf("Expected operator to see only their log")
	}
	if !views[0].DeviationPercentage.Equal(testhelpers.D("5.56")) {
		t.Errorf("Expected deviation 5.56, got %s", views[0].DeviationPercentage)
	}
	if views[0].HoursSinceMeasured != 2 {
		t.Errorf("Expected 2 hours since measurement, got %v", views[0].HoursSinceMeasured)
	}

	all, _ := s.ListLogs(ctx, testhelpers.Admin(), LogQuery{})
	if !all[0].Log.MeasuredAt.After(all[1].Log.MeasuredAt) {
		t.Errorf("Expected newest log first")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
