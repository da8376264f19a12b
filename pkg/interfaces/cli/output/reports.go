package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/application/services/orchestration"
	"github.com/vsinha/mes/pkg/domain/entities"
)

const (
	dateFormat     = "2006-01-02"
	dateTimeFormat = "2006-01-02 15:04"
)

func pct(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) + "%" }

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func optionalDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateTimeFormat)
}

// Alerts renders an alert report
func Alerts(report dto.AlertReport) Report {
	rows := make([][]string, 0, len(report.Alerts))
	for _, a := range report.Alerts {
		measured := optionalTime(a.MeasuredAt)
		rows = append(rows, []string{string(a.Severity), string(a.Type), a.CCPCode, measured, a.Message})
	}
	return Report{
		Name:  "alerts",
		Title: "HACCP Alerts",
		Summary: []Field{
			{"Total alerts", strconv.Itoa(report.TotalAlerts)},
			{"Period", report.AlertPeriod},
			{"Generated at", report.GeneratedAt.Format(dateTimeFormat)},
		},
		Tables: []Table{{
			Name:    "Alerts",
			Headers: []string{"Severity", "Type", "CCP", "Measured At", "Message"},
			Rows:    rows,
		}},
		Data: report,
	}
}

func scoreFields(s dto.ComplianceScore) []Field {
	return []Field{
		{"Compliance score", num(s.ComplianceScore)},
		{"Measurements", strconv.Itoa(s.TotalMeasurements)},
		{"Within limits", strconv.Itoa(s.WithinLimitsCount)},
		{"Out of limits", strconv.Itoa(s.OutOfLimitsCount)},
		{"Verified", strconv.Itoa(s.VerifiedCount)},
		{"Compliance rate", pct(s.ComplianceRate)},
		{"Verification rate", pct(s.VerificationRate)},
	}
}

// ComplianceScore renders a bare score
func ComplianceScore(score dto.ComplianceScore) Report {
	return Report{
		Name:    "compliance",
		Title:   "HACCP Compliance Score",
		Summary: scoreFields(score),
		Data:    score,
	}
}

// ComplianceReport renders the per-CCP compliance report with its weekly trend
func ComplianceReport(report *dto.ComplianceReport) Report {
	summary := append([]Field{
		{"From", report.From.Format(dateFormat)},
		{"To", report.To.Format(dateFormat)},
		{"Generated by", report.GeneratedBy},
	}, scoreFields(report.Overall)...)

	ccps := make([][]string, 0, len(report.CCPs))
	for _, c := range report.CCPs {
		ccps = append(ccps, []string{
			c.CCPCode,
			c.CCPName,
			string(c.CCPType),
			optionalDecimal(c.CriticalLimitMin),
			optionalDecimal(c.CriticalLimitMax),
			optionalDecimal(c.AverageValue),
			strconv.Itoa(c.Score.TotalMeasurements),
			num(c.Score.ComplianceScore),
		})
	}
	trend := make([][]string, 0, len(report.WeeklyTrend))
	for _, p := range report.WeeklyTrend {
		trend = append(trend, []string{
			p.WeekStart.Format(dateFormat),
			p.WeekEnd.Format(dateFormat),
			strconv.Itoa(p.TotalMeasurements),
			num(p.ComplianceScore),
		})
	}

	return Report{
		Name:    "compliance_report",
		Title:   "HACCP Compliance Report",
		Summary: summary,
		Tables: []Table{
			{
				Name:    "CCPs",
				Headers: []string{"Code", "Name", "Type", "Min", "Max", "Average", "Measurements", "Score"},
				Rows:    ccps,
			},
			{
				Name:    "Weekly Trend",
				Headers: []string{"Week Start", "Week End", "Measurements", "Score"},
				Rows:    trend,
			},
		},
		Data: report,
	}
}

func materialRows(costs []dto.MaterialCost) [][]string {
	rows := make([][]string, 0, len(costs))
	for _, m := range costs {
		rows = append(rows, []string{
			m.MaterialCode,
			m.QuantityPerUnit.String(),
			m.RequiredQuantity.String() + " " + m.Unit,
			m.UnitPrice.StringFixed(2),
			m.TotalCost.StringFixed(2),
			string(m.Method),
		})
	}
	return rows
}

// ProductCost renders the cost breakdown of one product
func ProductCost(cost *dto.ProductCost) Report {
	summary := []Field{
		{"Product", cost.ProductCode + " " + cost.ProductName},
		{"Quantity", cost.ProductionQuantity.String()},
		{"Total cost", cost.TotalCost.StringFixed(2)},
		{"Unit cost", cost.UnitCost.StringFixed(2)},
		{"Method", string(cost.Method)},
	}
	if cost.BOMMissing {
		summary = append(summary, Field{"BOM", "missing"})
	}
	if len(cost.Warnings) > 0 {
		summary = append(summary, Field{"Warnings", strings.Join(cost.Warnings, "; ")})
	}
	return Report{
		Name:    "cost_" + slug(cost.ProductCode),
		Title:   "Product Cost",
		Summary: summary,
		Tables: []Table{{
			Name:    "Materials",
			Headers: []string{"Material", "Per Unit", "Required", "Unit Price", "Total", "Method"},
			Rows:    materialRows(cost.MaterialCosts),
		}},
		Data: cost,
	}
}

// CostSummary renders the unit cost of every active product
func CostSummary(summary *dto.CostSummary) Report {
	rows := make([][]string, 0, len(summary.Products))
	for _, p := range summary.Products {
		rows = append(rows, []string{
			p.ProductCode,
			p.ProductName,
			p.UnitCost.StringFixed(2),
			string(p.Method),
			strings.Join(p.Warnings, "; "),
			p.Error,
		})
	}
	return Report{
		Name:  "costs",
		Title: "Product Cost Summary",
		Summary: []Field{
			{"Products", strconv.Itoa(summary.TotalProducts)},
			{"With BOM", strconv.Itoa(summary.WithBOM)},
			{"Failed", strconv.Itoa(summary.Failed)},
		},
		Tables: []Table{{
			Name:    "Products",
			Headers: []string{"Code", "Name", "Unit Cost", "Method", "Warnings", "Error"},
			Rows:    rows,
		}},
		Data: summary,
	}
}

func riskTables(risk *dto.RiskAssessment) []Table {
	factors := make([][]string, 0, len(risk.RiskFactors))
	for _, f := range risk.RiskFactors {
		factors = append(factors, []string{f.Code, f.Description, strconv.Itoa(f.Points)})
	}
	recommendations := make([][]string, 0, len(risk.Recommendations))
	for _, r := range risk.Recommendations {
		recommendations = append(recommendations, []string{r})
	}
	return []Table{
		{Name: "Risk Factors", Headers: []string{"Code", "Description", "Points"}, Rows: factors},
		{Name: "Recommendations", Headers: []string{"Recommendation"}, Rows: recommendations},
	}
}

// SupplierReview renders performance and risk of one supplier
func SupplierReview(review *orchestration.SupplierReview) Report {
	p := review.Performance
	return Report{
		Name:  "supplier_" + slug(p.SupplierCode),
		Title: "Supplier Review " + p.SupplierCode,
		Summary: []Field{
			{"Period", p.EvaluationPeriodFrom.Format(dateFormat) + " to " + p.EvaluationPeriodTo.Format(dateFormat)},
			{"Deliveries", strconv.Itoa(p.TotalDeliveries)},
			{"Quality passed", strconv.Itoa(p.QualityPassedCount)},
			{"On time", strconv.Itoa(p.OnTimeDeliveryCount)},
			{"Quality score", num(p.QualityScore)},
			{"Delivery score", num(p.DeliveryScore)},
			{"Compliance score", num(p.ComplianceScore)},
			{"Overall score", num(p.OverallScore)},
			{"Risk level", string(review.Risk.RiskLevel)},
			{"Risk score", strconv.Itoa(review.Risk.RiskScore)},
		},
		Tables: riskTables(review.Risk),
		Data:   review,
	}
}

// RiskAssessment renders the risk assessment of one supplier
func RiskAssessment(risk *dto.RiskAssessment) Report {
	return Report{
		Name:  "risk_" + slug(risk.SupplierCode),
		Title: "Supplier Risk " + risk.SupplierCode,
		Summary: []Field{
			{"Risk level", string(risk.RiskLevel)},
			{"Risk score", strconv.Itoa(risk.RiskScore)},
		},
		Tables: riskTables(risk),
		Data:   risk,
	}
}

// Suppliers renders the supplier list with the registry statistics
func Suppliers(suppliers []*entities.Supplier, stats *dto.SupplierStatistics) Report {
	rows := make([][]string, 0, len(suppliers))
	for _, s := range suppliers {
		rows = append(rows, []string{s.Code, s.Name, string(s.Status), s.Certification, s.Email})
	}
	return Report{
		Name:  "suppliers",
		Title: "Suppliers",
		Summary: []Field{
			{"Total", strconv.Itoa(stats.TotalSuppliers)},
			{"Active", strconv.Itoa(stats.ActiveSuppliers)},
			{"Inactive", strconv.Itoa(stats.InactiveSuppliers)},
			{"HACCP certified", strconv.Itoa(stats.HACCPCertifiedCount)},
			{"ISO certified", strconv.Itoa(stats.ISOCertifiedCount)},
			{"Recently active", strconv.Itoa(stats.RecentActiveSuppliers)},
			{"Certification rate", pct(stats.CertificationRate)},
		},
		Tables: []Table{{
			Name:    "Suppliers",
			Headers: []string{"Code", "Name", "Status", "Certification", "Email"},
			Rows:    rows,
		}},
		Data: struct {
			Suppliers  []*entities.Supplier     `json:"suppliers"`
			Statistics *dto.SupplierStatistics `json:"statistics"`
		}{suppliers, stats},
	}
}

// Allocation renders a committed FIFO draw
func Allocation(result *dto.AllocationResult) Report {
	rows := make([][]string, 0, len(result.Lots))
	for _, l := range result.Lots {
		rows = append(rows, []string{
			l.LotNumber,
			l.Quantity.String(),
			l.UnitPrice.StringFixed(2),
			l.Remaining.String(),
			strconv.FormatBool(l.Emptied),
		})
	}
	return Report{
		Name:  "allocation_" + slug(result.MaterialCode),
		Title: "Material Allocation",
		Summary: []Field{
			{"Material", result.MaterialCode},
			{"Required", result.Required.String()},
			{"Lots drawn", strconv.Itoa(len(result.Lots))},
			{"Total cost", result.TotalCost().StringFixed(2)},
		},
		Tables: []Table{{
			Name:    "Lots",
			Headers: []string{"Lot", "Quantity", "Unit Price", "Remaining", "Emptied"},
			Rows:    rows,
		}},
		Data: result,
	}
}

// LotTrace renders where a lot came from and which orders consumed it
func LotTrace(trace *dto.LotTrace) Report {
	quality := "pending"
	if trace.Lot.QualityTestPassed != nil {
		quality = "failed"
		if *trace.Lot.QualityTestPassed {
			quality = "passed"
		}
	}
	rows := make([][]string, 0, len(trace.Usage))
	for _, u := range trace.Usage {
		rows = append(rows, []string{u.OrderNumber, u.ProductCode, string(u.Status), optionalTime(u.ActualStart), u.Quantity.String()})
	}
	return Report{
		Name:  "trace_" + slug(trace.Lot.LotNumber),
		Title: "Lot Trace " + trace.Lot.LotNumber,
		Summary: []Field{
			{"Material", trace.MaterialCode + " " + trace.MaterialName},
			{"Supplier", trace.SupplierCode + " " + trace.SupplierName},
			{"Received", trace.Lot.ReceivedDate.Format(dateFormat)},
			{"Quantity", fmt.Sprintf("%s of %s", trace.Lot.QuantityCurrent, trace.Lot.QuantityReceived)},
			{"Status", string(trace.Lot.Status)},
			{"Quality", quality},
		},
		Tables: []Table{{
			Name:    "Usage",
			Headers: []string{"Order", "Product", "Status", "Started", "Quantity"},
			Rows:    rows,
		}},
		Data: trace,
	}
}

// OrderTrace renders the lots a production order consumed
func OrderTrace(trace *dto.OrderTrace) Report {
	rows := make([][]string, 0, len(trace.Materials))
	for _, m := range trace.Materials {
		rows = append(rows, []string{m.LotNumber, m.MaterialCode, m.SupplierCode, m.ReceivedDate.Format(dateFormat), m.Quantity.String()})
	}
	return Report{
		Name:  "trace_" + slug(trace.Order.OrderNumber),
		Title: "Order Trace " + trace.Order.OrderNumber,
		Summary: []Field{
			{"Product", trace.ProductCode + " " + trace.ProductName},
			{"Status", string(trace.Order.Status)},
			{"Planned", trace.Order.PlannedQuantity.String()},
			{"Produced", trace.Order.ProducedQuantity.String()},
		},
		Tables: []Table{{
			Name:    "Materials",
			Headers: []string{"Lot", "Material", "Supplier", "Received", "Quantity"},
			Rows:    rows,
		}},
		Data: trace,
	}
}

// Orders renders a production order listing with the dashboard counters
func Orders(orders []*entities.ProductionOrder, dashboard *dto.ProductionDashboard) Report {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{
			o.OrderNumber,
			string(o.Status),
			string(o.Priority),
			o.PlannedQuantity.String(),
			o.ProducedQuantity.String(),
			o.PlannedStart.Format(dateTimeFormat),
			o.PlannedEnd.Format(dateTimeFormat),
		})
	}
	var summary []Field
	if dashboard != nil {
		summary = []Field{
			{"Today", fmt.Sprintf("%d (%d planned, %d in progress, %d completed)",
				dashboard.TodayTotal, dashboard.TodayPlanned, dashboard.TodayInProgress, dashboard.TodayCompleted)},
			{"This week", fmt.Sprintf("%d (%d completed)", dashboard.WeekTotal, dashboard.WeekCompleted)},
			{"Week efficiency", pct(dashboard.WeekAvgEfficiency)},
			{"Urgent", strconv.Itoa(dashboard.UrgentOrders)},
			{"Overdue", strconv.Itoa(dashboard.OverdueOrders)},
		}
	}
	return Report{
		Name:    "orders",
		Title:   "Production Orders",
		Summary: summary,
		Tables: []Table{{
			Name:    "Orders",
			Headers: []string{"Order", "Status", "Priority", "Planned", "Produced", "Start", "End"},
			Rows:    rows,
		}},
		Data: struct {
			Orders    []*entities.ProductionOrder `json:"orders"`
			Dashboard *dto.ProductionDashboard     `json:"dashboard,omitempty"`
		}{orders, dashboard},
	}
}
