package haccp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

// ComplianceFilter selects the logs a score is computed over. Time bounds are inclusive.
type ComplianceFilter struct {
	ProductionOrderID *uuid.UUID
	CCPID             *uuid.UUID
	From              *time.Time
	To                *time.Time
}

// ComplianceScorer blends the within-limits rate and the verification rate of logs
type ComplianceScorer struct {
	logs repositories.CCPLogRepository
	cfg  config.HACCPConfig
}

func NewComplianceScorer(logs repositories.CCPLogRepository, cfg config.HACCPConfig) *ComplianceScorer {
	return &ComplianceScorer{logs: logs, cfg: cfg}
}

// Score computes the compliance score of the logs matching f. No logs scores 100.
func (s *ComplianceScorer) Score(ctx context.Context, f ComplianceFilter) (dto.ComplianceScore, error) {
	logs, err := s.logs.FindLogs(ctx, repositories.CCPLogFilter{
		CCPID:             f.CCPID,
		ProductionOrderID: f.ProductionOrderID,
		MeasuredFrom:      f.From,
		MeasuredTo:        f.To,
	})
	if err != nil {
		return dto.ComplianceScore{}, errs.Wrap("ComplianceScore", err)
	}
	return scoreLogs(logs, s.cfg), nil
}

func scoreLogs(logs []*entities.CCPLog, cfg config.HACCPConfig) dto.ComplianceScore {
	total := len(logs)
	if total == 0 {
		return dto.ComplianceScore{ComplianceScore: 100}
	}

	within, verified := 0, 0
	for _, l := range logs {
		if l.IsWithinLimits {
			within++
		}
		if l.Verified() {
			verified++
		}
	}

	complianceRate := services.Percentage(within, total)
	verificationRate := services.Percentage(verified, total)
	score := complianceRate.Mul(cfg.ComplianceWeight).Add(verificationRate.Mul(cfg.VerificationWeight))

	return dto.ComplianceScore{
		ComplianceScore:   services.Score(score),
		TotalMeasurements: total,
		WithinLimitsCount: within,
		OutOfLimitsCount:  total - within,
		VerifiedCount:     verified,
		ComplianceRate:    services.Score(complianceRate),
		VerificationRate:  services.Score(verificationRate),
	}
}
