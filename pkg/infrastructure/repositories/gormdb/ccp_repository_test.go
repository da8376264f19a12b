package gormdb

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
)

func TestReviseLog(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 5, 0, 0, time.UTC)
	otherOrder := uuid.New()
	corrector := uuid.New()

	tests := []struct {
		name    string
		mutate  func(l *entities.CCPLog)
		wantErr bool
	}{
		{"corrective action", func(l *entities.CCPLog) {
			l.CorrectiveActionTaken = "Re-cooked"
			l.CorrectiveActionBy = &corrector
			l.Status = entities.LogCorrectiveAction
		}, false},
		{"status to within limits", func(l *entities.CCPLog) { l.Status = entities.LogWithinLimits }, true},
		{"within limits flag", func(l *entities.CCPLog) { l.IsWithinLimits = true }, true},
		{"production order", func(l *entities.CCPLog) { l.ProductionOrderID = &otherOrder }, true},
		{"deviation notes", func(l *entities.CCPLog) { l.DeviationNotes = "rewritten" }, true},
		{"measurement device", func(l *entities.CCPLog) { l.MeasurementDevice = "probe-2" }, true},
		{"environmental conditions", func(l *entities.CCPLog) { l.EnvironmentalConditions = "humid" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := &entities.CCPLog{
				ID: uuid.New(), CCPID: uuid.New(), MeasuredValue: decimal.NewFromInt(95), Unit: "C",
				MeasuredAt: created.Add(-5 * time.Minute), Status: entities.LogOutOfLimits,
				CreatedBy: uuid.New(), CreatedAt: created,
			}
			next := *existing
			next.CreatedAt = time.Time{}
			tt.mutate(&next)

			err := reviseLog(existing, &next)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrInvariantViolation) {
					t.Errorf("Expected InvariantViolation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected revision to be accepted, got %v", err)
			}
			if !next.CreatedAt.Equal(created) {
				t.Errorf("Expected creation time %s kept, got %s", created, next.CreatedAt)
			}
		})
	}
}
