package haccp

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

const (
	week = 7 * 24 * time.Hour

	// MaxReportPeriod is the longest period a compliance report may cover
	MaxReportPeriod = 366 * 24 * time.Hour
)

// ReportService builds period compliance reports for quality management
type ReportService struct {
	repo Repository
	cfg  config.HACCPConfig
	Now  func() time.Time
}

func NewReportService(repo Repository, cfg config.HACCPConfig) *ReportService {
	return &ReportService{repo: repo, cfg: cfg, Now: time.Now}
}

// ComplianceReport scores the period overall, per active CCP and per week
func (r *ReportService) ComplianceReport(ctx context.Context, actor entities.Actor, from, to time.Time) (*dto.ComplianceReport, error) {
	const op = "ComplianceReport"

	if err := services.Authorize(actor, services.ActionViewCompliance); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, errs.Validation(op, "report end %s is before start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	if to.Sub(from) > MaxReportPeriod {
		return nil, errs.Validation(op, "report period %s to %s exceeds %d days",
			from.Format(time.RFC3339), to.Format(time.RFC3339), int(MaxReportPeriod/(24*time.Hour)))
	}

	logs, err := r.repo.FindLogs(ctx, repositories.CCPLogFilter{MeasuredFrom: &from, MeasuredTo: &to})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	ccps, err := r.repo.ListCCPs(ctx, repositories.CCPFilter{ActiveOnly: true})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	report := &dto.ComplianceReport{
		From:        from,
		To:          to,
		Overall:     scoreLogs(logs, r.cfg),
		CCPs:        make([]dto.CCPStatistics, 0, len(ccps)),
		GeneratedAt: r.Now(),
		GeneratedBy: actor.Username,
	}

	for _, ccp := range ccps {
		var own []*entities.CCPLog
		for _, l := range logs {
			if l.CCPID == ccp.ID {
				own = append(own, l)
			}
		}
		report.CCPs = append(report.CCPs, dto.CCPStatistics{
			CCPID:            ccp.ID,
			CCPCode:          ccp.Code,
			CCPName:          ccp.Name,
			CCPType:          ccp.Type,
			CriticalLimitMin: ccp.CriticalLimitMin,
			CriticalLimitMax: ccp.CriticalLimitMax,
			AverageValue:     averageValue(own),
			Score:            scoreLogs(own, r.cfg),
		})
	}

	for start := from; !start.After(to); start = start.Add(week) {
		end := start.Add(week - time.Nanosecond)
		if end.After(to) {
			end = to
		}
		var inWeek []*entities.CCPLog
		for _, l := range logs {
			if !l.MeasuredAt.Before(start) && !l.MeasuredAt.After(end) {
				inWeek = append(inWeek, l)
			}
		}
		score := scoreLogs(inWeek, r.cfg)
		report.WeeklyTrend = append(report.WeeklyTrend, dto.TrendPoint{
			WeekStart:         start,
			WeekEnd:           end,
			ComplianceScore:   score.ComplianceScore,
			TotalMeasurements: score.TotalMeasurements,
		})
	}
	return report, nil
}

func averageValue(logs []*entities.CCPLog) *decimal.Decimal {
	if len(logs) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, l := range logs {
		sum = sum.Add(l.MeasuredValue)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(logs)))).Round(3)
	return &avg
}
