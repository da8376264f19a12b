package production

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	testhelpers "github.com/vsinha/mes/pkg/infrastructure/testing"
)

func TestTracer_BothDirections(t *testing.T) {
	ctx := context.Background()
	f := testhelpers.BuildBakeryScenario(now)
	p := bread(t, f)
	first := f.Order("PO-1", p, "16", now.Add(time.Hour), entities.OrderPlanned)
	second := f.Order("PO-2", p, "10", now.Add(2*time.Hour), entities.OrderPlanned)
	s, _ := newService(f)
	for _, o := range []*entities.ProductionOrder{first, second} {
		if _, err := s.Start(ctx, testhelpers.Admin(), o.ID); err != nil {
			t.Fatalf("Failed to start %s: %v", o.OrderNumber, err)
		}
	}
	tracer := NewTracer(f.Store)

	// PO-1 draws 8 flour from FLOUR-001, PO-2 draws the remaining 2 and 3 from FLOUR-002
	lot, _ := f.Store.GetLotByNumber(ctx, "FLOUR-001")
	trace, err := tracer.LotTrace(ctx, lot.ID)
	if err != nil {
		t.Fatalf("Expected lot trace, got %v", err)
	}
	if trace.MaterialCode != "RM-FLOUR" || trace.SupplierCode != "SUP-MILL" {
		t.Errorf("Expected RM-FLOUR from SUP-MILL, got %s from %s", trace.MaterialCode, trace.SupplierCode)
	}
	if len(trace.Usage) != 2 {
		t.Fatalf("Expected usage by 2 orders, got %d", len(trace.Usage))
	}
	usage := map[string]string{}
	for _, u := range trace.Usage {
		usage[u.OrderNumber] = u.Quantity.String()
		if u.ProductCode != "FP-BREAD" || u.Status != entities.OrderInProgress {
			t.Errorf("Unexpected usage %+v", u)
		}
	}
	if usage["PO-1"] != "8" || usage["PO-2"] != "2" {
		t.Errorf("Expected PO-1 8 and PO-2 2, got %v", usage)
	}

	orderTrace, err := tracer.OrderTrace(ctx, second.ID)
	if err != nil {
		t.Fatalf("Expected order trace, got %v", err)
	}
	drawn := map[string]string{}
	for _, m := range orderTrace.Materials {
		drawn[m.LotNumber] = m.Quantity.String()
	}
	want := map[string]string{"FLOUR-001": "2", "FLOUR-002": "3", "SUGAR-001": "1"}
	if len(drawn) != len(want) {
		t.Fatalf("Expected %d lots, got %v", len(want), drawn)
	}
	for number, qty := range want {
		if drawn[number] != qty {
			t.Errorf("Expected %s from %s, got %s", qty, number, drawn[number])
		}
	}
}

func TestTracer_UnusedLot(t *testing.T) {
	f := testhelpers.BuildBakeryScenario(now)
	lot, _ := f.Store.GetLotByNumber(context.Background(), "FLOUR-003")

	trace, err := NewTracer(f.Store).LotTrace(context.Background(), lot.ID)
	if err != nil {
		t.Fatalf("Expected lot trace, got %v", err)
	}
	if trace.Usage == nil || len(trace.Usage) != 0 {
		t.Errorf("Expected empty usage, got %v", trace.Usage)
	}
}

func TestTracer_NotFound(t *testing.T) {
	tracer := NewTracer(testhelpers.NewFixture(now).Store)
	if _, err := tracer.LotTrace(context.Background(), uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected NotFound for lot, got %v", err)
	}
	if _, err := tracer.OrderTrace(context.Background(), uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected NotFound for order, got %v", err)
	}
}
