package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LogStatus is the classification of a CCP measurement
type LogStatus string

const (
	LogWithinLimits     LogStatus = "within_limits"
	LogOutOfLimits      LogStatus = "out_of_limits"
	LogCorrectiveAction LogStatus = "corrective_action"
)

// CCPLog is an append-only monitoring record for one measurement
type CCPLog struct {
	ID                      uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CCPID                   uuid.UUID       `gorm:"type:uuid;not null;index:idx_ccp_logs_ccp_measured" json:"ccp_id"`
	ProductionOrderID       *uuid.UUID      `gorm:"type:uuid;index" json:"production_order_id,omitempty"`
	MeasuredValue           decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"measured_value"`
	Unit                    string          `gorm:"size:20;not null" json:"unit"`
	MeasuredAt              time.Time       `gorm:"not null;index:idx_ccp_logs_ccp_measured" json:"measured_at"`
	Status                  LogStatus       `gorm:"size:20;not null;index" json:"status"`
	IsWithinLimits          bool            `gorm:"not null;index" json:"is_within_limits"`
	DeviationNotes          string          `gorm:"type:text" json:"deviation_notes,omitempty"`
	CorrectiveActionTaken   string          `gorm:"type:text" json:"corrective_action_taken,omitempty"`
	CorrectiveActionBy      *uuid.UUID      `gorm:"type:uuid" json:"corrective_action_by,omitempty"`
	VerifiedBy              *uuid.UUID      `gorm:"type:uuid" json:"verified_by,omitempty"`
	VerificationDate        *time.Time      `json:"verification_date,omitempty"`
	MeasurementDevice       string          `gorm:"size:100" json:"measurement_device,omitempty"`
	EnvironmentalConditions string          `gorm:"type:text" json:"environmental_conditions,omitempty"`
	CreatedBy               uuid.UUID       `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

func (CCPLog) TableName() string { return "ccp_logs" }

// HasCorrectiveAction reports whether a corrective action has been recorded
func (l *CCPLog) HasCorrectiveAction() bool {
	return strings.TrimSpace(l.CorrectiveActionTaken) != ""
}

// Verified reports whether the log carries a verification
func (l *CCPLog) Verified() bool {
	return l.VerifiedBy != nil
}

// CheckRevision reports why next may not replace l in the store. Only resolution
// metadata may be added, each part once, and the status may only move
// out_of_limits -> corrective_action when a corrective action comes with it.
func (l *CCPLog) CheckRevision(next *CCPLog) error {
	switch {
	case l.CCPID != next.CCPID,
		!sameID(l.ProductionOrderID, next.ProductionOrderID),
		!l.MeasuredValue.Equal(next.MeasuredValue),
		l.Unit != next.Unit,
		!l.MeasuredAt.Equal(next.MeasuredAt),
		l.IsWithinLimits != next.IsWithinLimits,
		l.DeviationNotes != next.DeviationNotes,
		l.MeasurementDevice != next.MeasurementDevice,
		l.EnvironmentalConditions != next.EnvironmentalConditions,
		l.CreatedBy != next.CreatedBy:
		return fmt.Errorf("measurement of ccp log %s cannot be changed", l.ID)
	}

	if l.Status != next.Status {
		if l.Status != LogOutOfLimits || next.Status != LogCorrectiveAction || !next.HasCorrectiveAction() {
			return fmt.Errorf("ccp log %s cannot move from %s to %s", l.ID, l.Status, next.Status)
		}
	}
	if next.Status == LogCorrectiveAction && !next.HasCorrectiveAction() {
		return fmt.Errorf("ccp log %s is marked corrected without a corrective action", l.ID)
	}

	if l.HasCorrectiveAction() &&
		(l.CorrectiveActionTaken != next.CorrectiveActionTaken || !sameID(l.CorrectiveActionBy, next.CorrectiveActionBy)) {
		return fmt.Errorf("corrective action of ccp log %s cannot be changed", l.ID)
	}
	if l.Verified() &&
		(!sameID(l.VerifiedBy, next.VerifiedBy) || !sameTime(l.VerificationDate, next.VerificationDate)) {
		return fmt.Errorf("verification of ccp log %s cannot be changed", l.ID)
	}
	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// LogResolution is the follow-up metadata attached to an existing log
type LogResolution struct {
	CorrectiveActionTaken string
	CorrectiveActionBy    *uuid.UUID
	VerifiedBy            *uuid.UUID
	VerificationDate      *time.Time
}

// ApplyResolution attaches a corrective action and/or a verification.
// Each can be attached once; the status only moves out_of_limits -> corrective_action.
func (l *CCPLog) ApplyResolution(r LogResolution) error {
	action := strings.TrimSpace(r.CorrectiveActionTaken)
	if action == "" && r.VerifiedBy == nil && r.VerificationDate == nil {
		return fmt.Errorf("resolution must carry a corrective action or a verification")
	}
	if (r.VerifiedBy == nil) != (r.VerificationDate == nil) {
		return fmt.Errorf("verified_by and verification_date must be provided together")
	}

	if action != "" {
		if l.IsWithinLimits {
			return fmt.Errorf("corrective action cannot be recorded for a within-limits measurement")
		}
		if l.HasCorrectiveAction() {
			return fmt.Errorf("corrective action already recorded for log %s", l.ID)
		}
	}
	if r.VerifiedBy != nil && l.Verified() {
		return fmt.Errorf("log %s is already verified", l.ID)
	}
	if r.VerificationDate != nil && r.VerificationDate.Before(l.MeasuredAt) {
		return fmt.Errorf("verification date cannot precede the measurement")
	}

	if action != "" {
		l.CorrectiveActionTaken = action
		l.CorrectiveActionBy = r.CorrectiveActionBy
		if l.Status == LogOutOfLimits {
			l.Status = LogCorrectiveAction
		}
	}
	if r.VerifiedBy != nil {
		l.VerifiedBy = r.VerifiedBy
		l.VerificationDate = r.VerificationDate
	}
	return nil
}
