package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// ComplianceScore summarizes monitoring logs over a filter window
type ComplianceScore struct {
	ComplianceScore   float64 `json:"compliance_score"`
	TotalMeasurements int     `json:"total_measurements"`
	WithinLimitsCount int     `json:"within_limits_count"`
	OutOfLimitsCount  int     `json:"out_of_limits_count"`
	VerifiedCount     int     `json:"verified_count"`
	ComplianceRate    float64 `json:"compliance_rate"`
	VerificationRate  float64 `json:"verification_rate"`
}

// Severity ranks alerts; lower rank sorts first
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// Rank returns the sort position of the severity
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// AlertType names the rule that raised an alert
type AlertType string

const (
	AlertDeviation           AlertType = "deviation"
	AlertVerificationPending AlertType = "verification_pending"
	AlertConsecutive         AlertType = "consecutive_violations"
)

// Alert is one actionable monitoring finding
type Alert struct {
	Type             AlertType  `json:"type"`
	Severity         Severity   `json:"severity"`
	CCPID            uuid.UUID  `json:"ccp_id"`
	CCPCode          string     `json:"ccp_code"`
	CCPName          string     `json:"ccp_name"`
	LogID            *uuid.UUID `json:"log_id,omitempty"`
	MeasuredAt       *time.Time `json:"measured_at,omitempty"`
	ConsecutiveCount int        `json:"consecutive_count,omitempty"`
	Message          string     `json:"message"`
}

// AlertReport is the result of an alert scan
type AlertReport struct {
	Alerts      []Alert   `json:"alerts"`
	TotalAlerts int       `json:"total_alerts"`
	AlertPeriod string    `json:"alert_period"`
	GeneratedAt time.Time `json:"generated_at"`
}

// LogView is a CCP log decorated for display
type LogView struct {
	Log                 *entities.CCPLog `json:"log"`
	CCPCode             string           `json:"ccp_code"`
	CCPName             string           `json:"ccp_name"`
	DeviationPercentage decimal.Decimal  `json:"deviation_percentage"`
	HoursSinceMeasured  float64          `json:"hours_since_measured"`
}

// CCPStatistics is the per-CCP section of a compliance report
type CCPStatistics struct {
	CCPID            uuid.UUID        `json:"ccp_id"`
	CCPCode          string           `json:"ccp_code"`
	CCPName          string           `json:"ccp_name"`
	CCPType          entities.CCPType `json:"ccp_type"`
	CriticalLimitMin *decimal.Decimal `json:"critical_limit_min,omitempty"`
	CriticalLimitMax *decimal.Decimal `json:"critical_limit_max,omitempty"`
	AverageValue     *decimal.Decimal `json:"average_value,omitempty"`
	Score            ComplianceScore  `json:"score"`
}

// TrendPoint is one week of a compliance trend
type TrendPoint struct {
	WeekStart         time.Time `json:"week_start"`
	WeekEnd           time.Time `json:"week_end"`
	ComplianceScore   float64   `json:"compliance_score"`
	TotalMeasurements int       `json:"total_measurements"`
}

// ComplianceReport is the period report for quality management
type ComplianceReport struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Overall     ComplianceScore `json:"overall"`
	CCPs        []CCPStatistics `json:"ccps"`
	WeeklyTrend []TrendPoint    `json:"weekly_trend"`
	GeneratedAt time.Time       `json:"generated_at"`
	GeneratedBy string          `json:"generated_by"`
}
