package supplier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

const day = 24 * time.Hour

// Compliance awards, out of 100
const (
	pointsHACCP      = 25
	pointsISO        = 15
	pointsActive     = 20
	pointsContact    = 15
	pointsRecentInfo = 25
)

// Risk factor points
const (
	riskNoDeliveries  = 30
	riskLowFrequency  = 15
	riskPerFailedLot  = 10
	riskNoHACCP       = 40
	riskStaleInfo     = 20
	riskNotActive     = 50
	riskHighThreshold = 70
	riskMedThreshold  = 40
)

// Risk factor codes
const (
	FactorNoDeliveries = "no_recent_deliveries"
	FactorLowFrequency = "low_delivery_frequency"
	FactorQuality      = "quality_failures"
	FactorNoHACCP      = "missing_haccp"
	FactorStaleInfo    = "stale_information"
	FactorNotActive    = "not_active"
)

var (
	qualityWeight    = decimal.RequireFromString("0.4")
	deliveryWeight   = decimal.RequireFromString("0.4")
	complianceWeight = decimal.RequireFromString("0.2")
)

// Repository is the read side the supplier engines need
type Repository interface {
	repositories.SupplierRepository
	repositories.MaterialRepository
	repositories.LotRepository
}

// Evaluator scores supplier performance and supply risk from lot history
type Evaluator struct {
	repo Repository
	cfg  config.SupplierConfig
	Now  func() time.Time
}

func NewEvaluator(repo Repository, cfg config.SupplierConfig) *Evaluator {
	return &Evaluator{repo: repo, cfg: cfg, Now: time.Now}
}

// EvaluatePerformance scores the lots received from a supplier within [from, to].
// Missing bounds default to the evaluation window ending now. No deliveries scores 0 everywhere.
func (e *Evaluator) EvaluatePerformance(ctx context.Context, supplierID uuid.UUID, from, to *time.Time) (*dto.SupplierPerformance, error) {
	const op = "EvaluatePerformance"

	supplier, err := e.repo.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	end := e.Now()
	if to != nil {
		end = *to
	}
	start := end.Add(-e.cfg.EvaluationWindow)
	if from != nil {
		start = *from
	}
	if end.Before(start) {
		return nil, errs.Validation(op, "evaluation end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	perf := &dto.SupplierPerformance{
		SupplierID:           supplier.ID,
		SupplierCode:         supplier.Code,
		EvaluationPeriodFrom: start,
		EvaluationPeriodTo:   end,
	}

	lots, err := e.repo.FindLots(ctx, repositories.LotFilter{SupplierID: &supplier.ID, ReceivedFrom: &start, ReceivedTo: &end})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if len(lots) == 0 {
		return perf, nil
	}

	shelfLives := make(map[uuid.UUID]int)
	for _, lot := range lots {
		if lot.QualityPassed() {
			perf.QualityPassedCount++
		}
		fresh, err := e.deliveredFresh(ctx, lot, shelfLives)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		if fresh {
			perf.OnTimeDeliveryCount++
		}
	}
	perf.TotalDeliveries = len(lots)

	quality := services.Percentage(perf.QualityPassedCount, perf.TotalDeliveries)
	delivery := services.Percentage(perf.OnTimeDeliveryCount, perf.TotalDeliveries)
	compliance := decimal.NewFromInt(int64(e.compliancePoints(supplier)))

	perf.QualityScore = services.Score(quality)
	perf.DeliveryScore = services.Score(delivery)
	perf.ComplianceScore = services.Score(compliance)
	perf.OverallScore = services.Score(quality.Mul(qualityWeight).
		Add(delivery.Mul(deliveryWeight)).
		Add(compliance.Mul(complianceWeight)))
	return perf, nil
}

// deliveredFresh approximates on-time delivery: the lot arrived with at least
// FreshShelfLifeRatio of its material's shelf life remaining
func (e *Evaluator) deliveredFresh(ctx context.Context, lot *entities.MaterialLot, shelfLives map[uuid.UUID]int) (bool, error) {
	if lot.ExpiryDate == nil {
		return false, nil
	}
	shelfLife, ok := shelfLives[lot.RawMaterialID]
	if !ok {
		material, err := e.repo.GetMaterial(ctx, lot.RawMaterialID)
		if err != nil {
			return false, err
		}
		shelfLife = e.cfg.DefaultShelfLifeDays
		if material.ShelfLifeDays != nil {
			shelfLife = *material.ShelfLifeDays
		}
		shelfLives[lot.RawMaterialID] = shelfLife
	}

	remainingDays := int64(lot.ExpiryDate.Sub(lot.ReceivedDate) / day)
	threshold := decimal.NewFromInt(int64(shelfLife)).Mul(e.cfg.FreshShelfLifeRatio)
	return decimal.NewFromInt(remainingDays).GreaterThanOrEqual(threshold), nil
}

func (e *Evaluator) compliancePoints(s *entities.Supplier) int {
	points := 0
	if s.HasHACCPCertification() {
		points += pointsHACCP
	}
	if s.HasISOCertification() {
		points += pointsISO
	}
	if s.Status == entities.SupplierActive {
		points += pointsActive
	}
	if s.ContactComplete() {
		points += pointsContact
	}
	if !s.UpdatedAt.Before(e.Now().Add(-e.cfg.ComplianceFreshness)) {
		points += pointsRecentInfo
	}
	return points
}

// RiskAssessment accumulates weighted risk factors into a 0-100 score
func (e *Evaluator) RiskAssessment(ctx context.Context, supplierID uuid.UUID) (*dto.RiskAssessment, error) {
	const op = "RiskAssessment"

	supplier, err := e.repo.GetSupplier(ctx, supplierID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	now := e.Now()

	var factors []dto.RiskFactor
	add := func(code, description string, points int) {
		factors = append(factors, dto.RiskFactor{Code: code, Description: description, Points: points})
	}

	recentFrom := now.Add(-e.cfg.RecentDeliveryWindow)
	recent, err := e.repo.FindLots(ctx, repositories.LotFilter{SupplierID: &supplier.ID, ReceivedFrom: &recentFrom, ReceivedTo: &now})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	switch {
	case len(recent) == 0:
		add(FactorNoDeliveries, "no deliveries in the last 2 months", riskNoDeliveries)
	case len(recent) < e.cfg.LowFrequencyThreshold:
		add(FactorLowFrequency, "low delivery frequency", riskLowFrequency)
	}

	qualityFrom := now.Add(-e.cfg.QualityLookback)
	failed, err := e.repo.FindLots(ctx, repositories.LotFilter{SupplierID: &supplier.ID, QualityFailed: true, ReceivedFrom: &qualityFrom, ReceivedTo: &now})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if n := len(failed); n > 0 {
		add(FactorQuality, fmt.Sprintf("%d lot(s) failed quality inspection in the last 3 months", n), n*riskPerFailedLot)
	}

	if !supplier.HasHACCPCertification() {
		add(FactorNoHACCP, "no HACCP certification", riskNoHACCP)
	}
	if supplier.UpdatedAt.Before(now.Add(-e.cfg.StaleAfter)) {
		add(FactorStaleInfo, "supplier information not updated for over a year", riskStaleInfo)
	}
	if supplier.Status != entities.SupplierActive {
		add(FactorNotActive, "supplier status is "+string(supplier.Status), riskNotActive)
	}

	score := 0
	for _, f := range factors {
		score += f.Points
	}
	if score > 100 {
		score = 100
	}

	assessment := &dto.RiskAssessment{
		SupplierID:   supplier.ID,
		SupplierCode: supplier.Code,
		RiskLevel:    riskLevel(score),
		RiskScore:    score,
		RiskFactors:  factors,
	}
	if assessment.RiskFactors == nil {
		assessment.RiskFactors = []dto.RiskFactor{}
	}
	assessment.Recommendations = recommendations(assessment)
	return assessment, nil
}

func riskLevel(score int) dto.RiskLevel {
	switch {
	case score >= riskHighThreshold:
		return dto.RiskHigh
	case score >= riskMedThreshold:
		return dto.RiskMedium
	default:
		return dto.RiskLow
	}
}

func recommendations(a *dto.RiskAssessment) []string {
	recs := []string{}
	if a.RiskLevel == dto.RiskHigh {
		recs = append(recs,
			"secure an alternative supplier",
			"request an urgent meeting with the supplier")
	}
	fired := make(map[string]bool, len(a.RiskFactors))
	for _, f := range a.RiskFactors {
		fired[f.Code] = true
	}
	if fired[FactorQuality] {
		recs = append(recs,
			"require a quality improvement plan",
			"strengthen inbound inspection")
	}
	if fired[FactorNoHACCP] {
		recs = append(recs,
			"require HACCP certification",
			"confirm the certification schedule")
	}
	if fired[FactorNoDeliveries] {
		recs = append(recs,
			"review the contract status",
			"check communication channels")
	}
	return recs
}
