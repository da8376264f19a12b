package haccp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

// AlertDetector scans recent logs for deviations, overdue verifications and
// runs of consecutive violations
type AlertDetector struct {
	repo Repository
	cfg  config.HACCPConfig
	Now  func() time.Time
}

func NewAlertDetector(repo Repository, cfg config.HACCPConfig) *AlertDetector {
	return &AlertDetector{repo: repo, cfg: cfg, Now: time.Now}
}

// DetectAlerts returns every open alert, critical first. A non-positive window uses the configured default.
func (d *AlertDetector) DetectAlerts(ctx context.Context, actor entities.Actor, window time.Duration) (dto.AlertReport, error) {
	const op = "DetectAlerts"

	if err := services.Authorize(actor, services.ActionViewAlerts); err != nil {
		return dto.AlertReport{}, err
	}
	if window <= 0 {
		window = d.cfg.AlertWindow
	}
	now := d.Now()
	ccps := make(map[uuid.UUID]*entities.CCP)

	var alerts []dto.Alert
	for _, detect := range []func(context.Context, time.Time, time.Duration, map[uuid.UUID]*entities.CCP) ([]dto.Alert, error){
		d.deviations,
		d.pendingVerifications,
		d.consecutiveViolations,
	} {
		found, err := detect(ctx, now, window, ccps)
		if err != nil {
			return dto.AlertReport{}, errs.Wrap(op, err)
		}
		alerts = append(alerts, found...)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	if alerts == nil {
		alerts = []dto.Alert{}
	}

	return dto.AlertReport{
		Alerts:      alerts,
		TotalAlerts: len(alerts),
		AlertPeriod: fmt.Sprintf("last %s hours", formatHours(window)),
		GeneratedAt: now,
	}, nil
}

func (d *AlertDetector) deviations(ctx context.Context, now time.Time, window time.Duration, ccps map[uuid.UUID]*entities.CCP) ([]dto.Alert, error) {
	from := now.Add(-window)
	within, corrected := false, false
	logs, err := d.repo.FindLogs(ctx, repositories.CCPLogFilter{
		WithinLimits:  &within,
		HasCorrective: &corrected,
		MeasuredFrom:  &from,
		NewestFirst:   true,
	})
	if err != nil {
		return nil, err
	}

	alerts := make([]dto.Alert, 0, len(logs))
	for _, l := range logs {
		ccp, err := d.ccp(ctx, l.CCPID, ccps)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, logAlert(dto.AlertDeviation, dto.SeverityHigh, ccp, l,
			fmt.Sprintf("%s deviation - corrective action required", ccp.Name)))
	}
	return alerts, nil
}

func (d *AlertDetector) pendingVerifications(ctx context.Context, now time.Time, _ time.Duration, ccps map[uuid.UUID]*entities.CCP) ([]dto.Alert, error) {
	to := now.Add(-d.cfg.VerificationRequiredAfter)
	verified := false
	logs, err := d.repo.FindLogs(ctx, repositories.CCPLogFilter{
		Verified:    &verified,
		MeasuredTo:  &to,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}

	alerts := make([]dto.Alert, 0, len(logs))
	for _, l := range logs {
		ccp, err := d.ccp(ctx, l.CCPID, ccps)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, logAlert(dto.AlertVerificationPending, dto.SeverityMedium, ccp, l,
			fmt.Sprintf("%s log awaiting verification for more than %s hours", ccp.Name, formatHours(d.cfg.VerificationRequiredAfter))))
	}
	return alerts, nil
}

// consecutiveViolations walks each CCP's logs newest first. The run counter resets on
// any within-limits log; a CCP alerts once if any run reaches the threshold, reporting
// its longest run.
func (d *AlertDetector) consecutiveViolations(ctx context.Context, now time.Time, _ time.Duration, ccps map[uuid.UUID]*entities.CCP) ([]dto.Alert, error) {
	from := now.Add(-d.cfg.ConsecutiveDetectionWindow)
	logs, err := d.repo.FindLogs(ctx, repositories.CCPLogFilter{MeasuredFrom: &from, NewestFirst: true})
	if err != nil {
		return nil, err
	}

	var order []uuid.UUID
	longest := make(map[uuid.UUID]int)
	running := make(map[uuid.UUID]int)
	for _, l := range logs {
		if _, seen := running[l.CCPID]; !seen {
			order = append(order, l.CCPID)
			running[l.CCPID] = 0
		}
		if l.IsWithinLimits {
			running[l.CCPID] = 0
			continue
		}
		running[l.CCPID]++
		if running[l.CCPID] > longest[l.CCPID] {
			longest[l.CCPID] = running[l.CCPID]
		}
	}

	var alerts []dto.Alert
	for _, id := range order {
		count := longest[id]
		if count < d.cfg.ConsecutiveThreshold {
			continue
		}
		ccp, err := d.ccp(ctx, id, ccps)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, dto.Alert{
			Type:             dto.AlertConsecutive,
			Severity:         dto.SeverityCritical,
			CCPID:            ccp.ID,
			CCPCode:          ccp.Code,
			CCPName:          ccp.Name,
			ConsecutiveCount: count,
			Message:          fmt.Sprintf("%s has %d consecutive deviations", ccp.Name, count),
		})
	}
	return alerts, nil
}

func (d *AlertDetector) ccp(ctx context.Context, id uuid.UUID, cache map[uuid.UUID]*entities.CCP) (*entities.CCP, error) {
	if c, ok := cache[id]; ok {
		return c, nil
	}
	c, err := d.repo.GetCCP(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = c
	return c, nil
}

func logAlert(kind dto.AlertType, severity dto.Severity, ccp *entities.CCP, l *entities.CCPLog, message string) dto.Alert {
	id, at := l.ID, l.MeasuredAt
	return dto.Alert{
		Type:       kind,
		Severity:   severity,
		CCPID:      ccp.ID,
		CCPCode:    ccp.Code,
		CCPName:    ccp.Name,
		LogID:      &id,
		MeasuredAt: &at,
		Message:    message,
	}
}

func formatHours(d time.Duration) string {
	h := d.Hours()
	if h == math.Trunc(h) {
		return fmt.Sprintf("%d", int(h))
	}
	return fmt.Sprintf("%.1f", h)
}
