package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

func TestStore_SaveAndGetBOMLines(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	product := &entities.FinishedProduct{ID: uuid.New(), Code: "FP-BREAD", Name: "Bread", IsActive: true}
	if err := s.SaveProduct(ctx, product); err != nil {
		t.Fatalf("Failed to save product: %v", err)
	}

	active, _ := entities.NewBOMLine(product.ID, uuid.New(), decimal.NewFromInt(2), "kg")
	inactive, _ := entities.NewBOMLine(product.ID, uuid.New(), decimal.NewFromInt(1), "kg")
	inactive.IsActive = false
	for _, line := range []*entities.BOMLine{active, inactive} {
		if err := s.SaveBOMLine(ctx, line); err != nil {
			t.Fatalf("Failed to save BOM line: %v", err)
		}
	}

	lines, err := s.GetBOMLines(ctx, product.ID, true)
	if err != nil {
		t.Fatalf("Failed to get BOM lines: %v", err)
	}
	if len(lines) != 1 || lines[0].ID != active.ID {
		t.Fatalf("Expected only the active line, got %d lines", len(lines))
	}

	all, _ := s.GetBOMLines(ctx, product.ID, false)
	if len(all) != 2 {
		t.Errorf("Expected 2 lines including inactive, got %d", len(all))
	}

	dup, _ := entities.NewBOMLine(product.ID, active.RawMaterialID, decimal.NewFromInt(3), "kg")
	if err := s.SaveBOMLine(ctx, dup); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("Expected Conflict for duplicate product/material pair, got %v", err)
	}
}

func TestStore_GetProductNotFound(t *testing.T) {
	_, err := NewStore().GetProduct(context.Background(), uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestStore_CCPLogImmutability(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ccp, err := entities.NewCCP("CCP-1", "Metal check", entities.CCPVisual, nil, nil)
	if err != nil {
		t.Fatalf("Failed to build CCP: %v", err)
	}
	if err := s.SaveCCP(ctx, ccp); err != nil {
		t.Fatalf("Failed to save CCP: %v", err)
	}

	newLog := func(t *testing.T) *entities.CCPLog {
		t.Helper()
		log := &entities.CCPLog{
			ID: uuid.New(), CCPID: ccp.ID, MeasuredValue: decimal.NewFromInt(95), Unit: "C",
			MeasuredAt: time.Now().Add(-time.Hour), Status: entities.LogOutOfLimits, CreatedBy: uuid.New(),
		}
		if err := s.CreateLog(ctx, log); err != nil {
			t.Fatalf("Failed to create log: %v", err)
		}
		return log
	}

	otherOrder := uuid.New()
	tests := []struct {
		name   string
		mutate func(l *entities.CCPLog)
	}{
		{"measured value", func(l *entities.CCPLog) { l.MeasuredValue = decimal.NewFromInt(85) }},
		{"status to within limits", func(l *entities.CCPLog) { l.Status = entities.LogWithinLimits }},
		{"within limits flag", func(l *entities.CCPLog) { l.IsWithinLimits = true }},
		{"production order", func(l *entities.CCPLog) { l.ProductionOrderID = &otherOrder }},
		{"deviation notes", func(l *entities.CCPLog) { l.DeviationNotes = "rewritten" }},
		{"measurement device", func(l *entities.CCPLog) { l.MeasurementDevice = "probe-2" }},
		{"environmental conditions", func(l *entities.CCPLog) { l.EnvironmentalConditions = "humid" }},
		{"corrected without action", func(l *entities.CCPLog) { l.Status = entities.LogCorrectiveAction }},
		{"several at once", func(l *entities.CCPLog) {
			l.Status = entities.LogWithinLimits
			l.ProductionOrderID = &otherOrder
			l.DeviationNotes = "rewritten"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := newLog(t)
			tampered, _ := s.GetLog(ctx, log.ID)
			tt.mutate(tampered)
			if err := s.UpdateLog(ctx, tampered); !errors.Is(err, errs.ErrInvariantViolation) {
				t.Fatalf("Expected InvariantViolation, got %v", err)
			}

			stored, _ := s.GetLog(ctx, log.ID)
			if stored.Status != entities.LogOutOfLimits || stored.IsWithinLimits || stored.ProductionOrderID != nil ||
				stored.DeviationNotes != "" || stored.MeasurementDevice != "" || stored.EnvironmentalConditions != "" ||
				!stored.MeasuredValue.Equal(decimal.NewFromInt(95)) {
				t.Errorf("Expected stored log untouched, got %+v", stored)
			}
		})
	}

	log := newLog(t)
	resolved, _ := s.GetLog(ctx, log.ID)
	resolved.CorrectiveActionTaken = "Re-cooked"
	resolved.Status = entities.LogCorrectiveAction
	if err := s.UpdateLog(ctx, resolved); err != nil {
		t.Fatalf("Expected resolution update to succeed: %v", err)
	}

	rewritten, _ := s.GetLog(ctx, log.ID)
	rewritten.CorrectiveActionTaken = "Binned"
	if err := s.UpdateLog(ctx, rewritten); !errors.Is(err, errs.ErrInvariantViolation) {
		t.Errorf("Expected InvariantViolation for rewritten action, got %v", err)
	}
	if stored, _ := s.GetLog(ctx, log.ID); stored.CorrectiveActionTaken != "Re-cooked" {
		t.Errorf("Expected action Re-cooked kept, got %q", stored.CorrectiveActionTaken)
	}
}

func TestStore_FindLogsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ccp := &entities.CCP{ID: uuid.New(), Code: "CCP-1", Name: "Chill", Type: entities.CCPVisual, IsActive: true}
	_ = s.SaveCCP(ctx, ccp)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		_ = s.CreateLog(ctx, &entities.CCPLog{
			ID: uuid.New(), CCPID: ccp.ID, MeasuredAt: base.Add(time.Duration(i) * time.Hour),
			IsWithinLimits: i%2 == 0, CreatedBy: uuid.New(),
		})
	}

	from, to := base.Add(time.Hour), base.Add(3*time.Hour)
	within := false
	logs, _ := s.FindLogs(ctx, repositories.CCPLogFilter{CCPID: &ccp.ID, MeasuredFrom: &from, MeasuredTo: &to, NewestFirst: true})
	if len(logs) != 3 {
		t.Fatalf("Expected 3 logs in inclusive window, got %d", len(logs))
	}
	if !logs[0].MeasuredAt.Equal(to) {
		t.Errorf("Expected newest first, got %v", logs[0].MeasuredAt)
	}

	n, _ := s.CountLogs(ctx, repositories.CCPLogFilter{WithinLimits: &within})
	if n != 2 {
		t.Errorf("Expected 2 out-of-limits logs, got %d", n)
	}
}
