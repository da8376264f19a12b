package haccp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	testhelpers "github.com/vsinha/mes/pkg/infrastructure/testing"
)

func newDetector(f *testhelpers.Fixture) *AlertDetector {
	d := NewAlertDetector(f.Store, config.Default().HACCP)
	d.Now = f.Clock()
	return d
}

func TestAlertDetector_SeverityOrder(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(now)
	cook := f.CCP("CCP-COOK", entities.CCPTemperature, "80", "90")
	chill := f.CCP("CCP-CHILL", entities.CCPTemperature, "0", "5")

	f.Log(cook, "95", now.Add(-30*time.Minute), false)
	f.Log(cook, "85", now.Add(-100*time.Hour), true)
	f.Log(chill, "9", now.Add(-3*time.Hour), false)
	f.Log(chill, "8", now.Add(-2*time.Hour), false)
	f.Log(chill, "7", now.Add(-1*time.Hour), false)

	report, err := newDetector(f).DetectAlerts(ctx, testhelpers.QualityManager(), 0)
	if err != nil {
		t.Fatalf("Expected alerts, got %v", err)
	}

	want := []dto.Severity{
		dto.SeverityCritical,
		dto.SeverityHigh, dto.SeverityHigh, dto.SeverityHigh, dto.SeverityHigh,
		dto.SeverityMedium,
	}
	if report.TotalAlerts != len(want) || len(report.Alerts) != len(want) {
		t.Fatalf("Expected %d alerts, got %d", len(want), report.TotalAlerts)
	}
	for i, sev := range want {
		if report.Alerts[i].Severity != sev {
			t.Errorf("Expected alert %d to be %s, got %s", i, sev, report.Alerts[i].Severity)
		}
	}

	critical := report.Alerts[0]
	if critical.Type != dto.AlertConsecutive || critical.CCPCode != "CCP-CHILL" || critical.ConsecutiveCount != 3 {
		t.Errorf("Expected 3 consecutive deviations on CCP-CHILL, got %+v", critical)
	}
	if report.Alerts[1].Message != "CCP-COOK deviation - corrective action required" {
		t.Errorf("Expected newest deviation first, got %q", report.Alerts[1].Message)
	}
	if report.AlertPeriod != "last 24 hours" {
		t.Errorf("Expected period 'last 24 hours', got %q", report.AlertPeriod)
	}
	if report.Alerts[5].Type != dto.AlertVerificationPending {
		t.Errorf("Expected verification alert last, got %s", report.Alerts[5].Type)
	}
}

func TestAlertDetector_ConsecutiveReset(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		// oldest first; true = within limits
		sequence  []bool
		wantCount int
	}{
		{"three in a row", []bool{false, false, false}, 3},
		{"reset by a within-limits log", []bool{false, false, true, false, false}, 0},
		{"older run still counts", []bool{false, false, false, true}, 3},
		{"newest run of four", []bool{true, false, false, false, false}, 4},
		{"two only", []bool{false, false}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testhelpers.NewFixture(now)
			ccp := f.CCP("CCP-COOK", entities.CCPTemperature, "80", "90")
			for i, within := range tt.sequence {
				value := "95"
				if within {
					value = "85"
				}
				at := now.Add(-time.Duration(len(tt.sequence)-i) * time.Hour)
				f.Log(ccp, value, at, within)
			}

			report, err := newDetector(f).DetectAlerts(ctx, testhelpers.Admin(), 0)
			if err != nil {
				t.Fatalf("Expected alerts, got %v", err)
			}
			count := 0
			for _, a := range report.Alerts {
				if a.Type == dto.AlertConsecutive {
					count = a.ConsecutiveCount
				}
			}
			if count != tt.wantCount {
				t.Errorf("Expected consecutive count %d, got %d", tt.wantCount, count)
			}
		})
	}
}

func TestAlertDetector_Windows(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(now)
	ccp := f.CCP("CCP-COOK", entities.CCPTemperature, "80", "90")
	qm := testhelpers.QualityManager()

	f.Log(ccp, "95", now.Add(-30*time.Hour), false, testhelpers.VerifiedBy(qm, now))
	f.Log(ccp, "96", now.Add(-2*time.Hour), false, testhelpers.CorrectedWith("Re-cooked"))
	f.Log(ccp, "97", now.Add(-71*time.Hour), true)

	d := newDetector(f)
	report, _ := d.DetectAlerts(ctx, qm, 0)
	if report.TotalAlerts != 0 {
		t.Fatalf("Expected no alerts, got %+v", report.Alerts)
	}

	report, _ = d.DetectAlerts(ctx, qm, 48*time.Hour)
	if report.TotalAlerts != 1 || report.Alerts[0].Type != dto.AlertDeviation {
		t.Errorf("Expected one deviation in a 48h window, got %+v", report.Alerts)
	}
	if report.AlertPeriod != "last 48 hours" {
		t.Errorf("Expected period 'last 48 hours', got %q", report.AlertPeriod)
	}
}

func TestAlertDetector_RequiresQualityRole(t *testing.T) {
	f := testhelpers.NewFixture(now)
	for _, actor := range []entities.Actor{testhelpers.Operator("operator1"), testhelpers.ProductionManager(), testhelpers.Auditor()} {
		_, err := newDetector(f).DetectAlerts(context.Background(), actor, 0)
		if !errors.Is(err, errs.ErrPermissionDenied) {
			t.Errorf("Expected PermissionDenied for %s, got %v", actor.Role, err)
		}
	}
}

func TestAlertDetector_EmptyReport(t *testing.T) {
	report, err := newDetector(testhelpers.NewFixture(now)).DetectAlerts(context.Background(), testhelpers.Admin(), 0)
	if err != nil {
		t.Fatalf("Expected empty report, got %v", err)
	}
	if report.Alerts == nil || report.TotalAlerts != 0 {
		t.Errorf("Expected an empty, non-nil alert list, got %v", report.Alerts)
	}
}
