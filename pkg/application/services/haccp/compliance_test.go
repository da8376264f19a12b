package haccp

import (
	"context"
	"testing"
	"time"

	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	testhelpers "github.com/vsinha/mes/pkg/infrastructure/testing"
)

func TestComplianceScorer_Score(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.NewFixture(now)
	cook := f.CCP("CCP-COOK", entities.CCPTemperature, "80", "90")
	chill := f.CCP("CCP-CHILL", entities.CCPTemperature, "0", "5")
	qm := testhelpers.QualityManager()

	f.Log(cook, "85", now.Add(-3*time.Hour), true, testhelpers.VerifiedBy(qm, now))
	f.Log(cook, "86", now.Add(-2*time.Hour), true)
	f.Log(cook, "95", now.Add(-1*time.Hour), false)
	f.Log(chill, "3", now.Add(-30*24*time.Hour), true, testhelpers.VerifiedBy(qm, now))

	scorer := NewComplianceScorer(f.Store, config.Default().HACCP)
	from := now.Add(-24 * time.Hour)
	empty := now.Add(-100 * 24 * time.Hour)
	emptyTo := empty.Add(time.Hour)

	tests := []struct {
		name       string
		filter     ComplianceFilter
		wantScore  float64
		wantTotal  int
		wantWithin int
		wantCR     float64
		wantVR     float64
	}{
		{"no logs scores 100", ComplianceFilter{From: &empty, To: &emptyTo}, 100, 0, 0, 0, 0},
		{"cook ccp", ComplianceFilter{CCPID: &cook.ID}, 56.67, 3, 2, 66.67, 33.33},
		{"last day", ComplianceFilter{From: &from}, 56.67, 3, 2, 66.67, 33.33},
		{"chill ccp", ComplianceFilter{CCPID: &chill.ID}, 100, 1, 1, 100, 100},
		{"everything", ComplianceFilter{}, 67.5, 4, 3, 75, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scorer.Score(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Expected score, got %v", err)
			}
			if got.ComplianceScore != tt.wantScore {
				t.Errorf("Expected score %v, got %v", tt.wantScore, got.ComplianceScore)
			}
			if got.TotalMeasurements != tt.wantTotal || got.WithinLimitsCount != tt.wantWithin {
				t.Errorf("Expected %d/%d within, got %d/%d", tt.wantWithin, tt.wantTotal, got.WithinLimitsCount, got.TotalMeasurements)
			}
			if got.OutOfLimitsCount != tt.wantTotal-tt.wantWithin {
				t.Errorf("Expected %d out of limits, got %d", tt.wantTotal-tt.wantWithin, got.OutOfLimitsCount)
			}
			if got.ComplianceRate != tt.wantCR || got.VerificationRate != tt.wantVR {
				t.Errorf("Expected rates %v/%v, got %v/%v", tt.wantCR, tt.wantVR, got.ComplianceRate, got.VerificationRate)
			}
		})
	}
}

func TestComplianceScorer_ProductionOrderFilter(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	cook, _ := f.Store.GetCCPByCode(ctx, "CCP-COOK")
	bread, _ := f.Store.GetProductByCode(ctx, "FP-BREAD")
	order := f.Order("PO-1", bread, "100", now.Add(-4*time.Hour), entities.OrderInProgress)

	f.Log(cook, "95", now.Add(-3*time.Hour), false, testhelpers.ForOrder(order.ID))
	f.Log(cook, "85", now.Add(-2*time.Hour), true)

	got, _ := NewComplianceScorer(f.Store, config.Default().HACCP).Score(ctx, ComplianceFilter{ProductionOrderID: &order.ID})
	if got.TotalMeasurements != 1 || got.ComplianceScore != 0 {
		t.Errorf("Expected one failing log scoring 0, got %d logs scoring %v", got.TotalMeasurements, got.ComplianceScore)
	}
}
