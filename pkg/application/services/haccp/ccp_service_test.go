package haccp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	testhelpers "github.com/vsinha/mes/pkg/infrastructure/testing"
)

func TestCCPService_CreateCCP(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(now)
	logger, _ := test.NewNullLogger()
	s := NewCCPService(f.Store, logger)

	valid := CCPInput{
		Code:              "CCP-COOK",
		Name:              "Cooking",
		Type:              entities.CCPTemperature,
		CriticalLimitMin:  testhelpers.DP("75"),
		ResponsiblePerson: "operator1",
	}

	ccp, err := s.CreateCCP(ctx, testhelpers.QualityManager(), valid)
	if err != nil {
		t.Fatalf("Expected ccp to be created, got %v", err)
	}
	if !ccp.IsActive || ccp.ResponsiblePerson != "operator1" {
		t.Errorf("Expected active ccp with responsible person, got %+v", ccp)
	}

	noLimits := valid
	noLimits.Code = "CCP-2"
	noLimits.CriticalLimitMin = nil
	inverted := valid
	inverted.Code = "CCP-3"
	inverted.CriticalLimitMin = testhelpers.DP("10")
	inverted.CriticalLimitMax = testhelpers.DP("5")
	missingName := valid
	missingName.Code = "CCP-4"
	missingName.Name = ""

	tests := []struct {
		name     string
		actor    entities.Actor
		input    CCPInput
		wantKind errs.Kind
	}{
		{"operator cannot define", testhelpers.Operator("operator1"), valid, errs.KindPermissionDenied},
		{"duplicate code", testhelpers.Admin(), valid, errs.KindConflict},
		{"numeric type without limits", testhelpers.Admin(), noLimits, errs.KindValidation},
		{"min above max", testhelpers.Admin(), inverted, errs.KindValidation},
		{"missing name", testhelpers.Admin(), missingName, errs.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateCCP(ctx, tt.actor, tt.input)
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
		})
	}
}

func TestCCPService_UpdateLockedByLogs(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(now)
	logger, _ := test.NewNullLogger()
	s := NewCCPService(f.Store, logger)
	admin := testhelpers.Admin()

	fresh := f.CCP("CCP-FRESH", entities.CCPTemperature, "80", "90")
	used := f.CCP("CCP-USED", entities.CCPTemperature, "80", "90")
	f.Log(used, "85", now.Add(-time.Hour), true)

	update := CCPInput{Code: "CCP-FRESH", Name: "Fresh", Type: entities.CCPTemperature, CriticalLimitMin: testhelpers.DP("82"), CriticalLimitMax: testhelpers.DP("92")}
	updated, err := s.UpdateCCP(ctx, admin, fresh.ID, update)
	if err != nil {
		t.Fatalf("Expected update of unused ccp, got %v", err)
	}
	if !updated.CriticalLimitMin.Equal(testhelpers.D("82")) {
		t.Errorf("Expected new min 82, got %s", updated.CriticalLimitMin)
	}

	update.Code = "CCP-USED"
	if _, err := s.UpdateCCP(ctx, admin, used.ID, update); !errors.Is(err, errs.ErrInvariantViolation) {
		t.Errorf("Expected InvariantViolation for ccp with logs, got %v", err)
	}

	deactivated, err := s.DeactivateCCP(ctx, admin, used.ID)
	if err != nil || deactivated.IsActive {
		t.Errorf("Expected deactivation to succeed, got %v", err)
	}
}

func TestCCPService_ListCCPs(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(now)
	logger, _ := test.NewNullLogger()
	s := NewCCPService(f.Store, logger)

	f.CCP("CCP-1", entities.CCPTemperature, "80", "90")
	other := f.CCP("CCP-2", entities.CCPTemperature, "80", "90")
	other.ResponsiblePerson = "kim"
	_ = f.Store.SaveCCP(ctx, other)
	retired := f.CCP("CCP-3", entities.CCPTemperature, "80", "90")
	retired.IsActive = false
	_ = f.Store.SaveCCP(ctx, retired)

	tests := []struct {
		name  string
		actor entities.Actor
		want  int
	}{
		{"quality manager sees active", testhelpers.QualityManager(), 2},
		{"operator sees responsible", testhelpers.Operator("OPERATOR1"), 1},
		{"other operator", testhelpers.Operator("lee"), 0},
		{"auditor", testhelpers.Auditor(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ccps, err := s.ListCCPs(ctx, tt.actor, nil)
			if err != nil {
				t.Fatalf("Expected listing, got %v", err)
			}
			if len(ccps) != tt.want {
				t.Errorf("Expected %d ccps, got %d", tt.want, len(ccps))
			}
		})
	}
}
