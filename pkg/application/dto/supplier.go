package dto

import (
	"time"

	"github.com/google/uuid"
)

// SupplierPerformance scores one supplier's deliveries over a window
type SupplierPerformance struct {
	SupplierID           uuid.UUID `json:"supplier_id"`
	SupplierCode         string    `json:"supplier_code"`
	OverallScore         float64   `json:"overall_score"`
	QualityScore         float64   `json:"quality_score"`
	DeliveryScore        float64   `json:"delivery_score"`
	ComplianceScore      float64   `json:"compliance_score"`
	TotalDeliveries      int       `json:"total_deliveries"`
	QualityPassedCount   int       `json:"quality_passed_count"`
	OnTimeDeliveryCount  int       `json:"on_time_delivery_count"`
	EvaluationPeriodFrom time.Time `json:"evaluation_period_from"`
	EvaluationPeriodTo   time.Time `json:"evaluation_period_to"`
}

// RiskLevel buckets a supplier risk score
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskFactor is one contribution to a supplier risk score
type RiskFactor struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Points      int    `json:"points"`
}

// RiskAssessment is the supply risk of one supplier
type RiskAssessment struct {
	SupplierID      uuid.UUID    `json:"supplier_id"`
	SupplierCode    string       `json:"supplier_code"`
	RiskLevel       RiskLevel    `json:"risk_level"`
	RiskScore       int          `json:"risk_score"`
	RiskFactors     []RiskFactor `json:"risk_factors"`
	Recommendations []string     `json:"recommendations"`
}

// SupplierStatistics summarizes the supplier base
type SupplierStatistics struct {
	TotalSuppliers        int     `json:"total_suppliers"`
	ActiveSuppliers       int     `json:"active_suppliers"`
	InactiveSuppliers     int     `json:"inactive_suppliers"`
	HACCPCertifiedCount   int     `json:"haccp_certified_count"`
	ISOCertifiedCount     int     `json:"iso_certified_count"`
	RecentActiveSuppliers int     `json:"recent_active_suppliers"`
	CertificationRate     float64 `json:"certification_rate"`
}

// AuditType selects the checklist used for a supplier audit
type AuditType string

const (
	AuditRoutine         AuditType = "routine"
	AuditQualityIssue    AuditType = "quality_issue"
	AuditRecertification AuditType = "recertification"
)

// AuditPlan is a scheduled supplier audit with its checklist
type AuditPlan struct {
	SupplierID    uuid.UUID `json:"supplier_id"`
	SupplierCode  string    `json:"supplier_code"`
	SupplierName  string    `json:"supplier_name"`
	AuditType     AuditType `json:"audit_type"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Checklist     []string  `json:"checklist"`
	ScheduledBy   string    `json:"scheduled_by"`
}
