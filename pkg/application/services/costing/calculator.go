package costing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

// Warnings attached to a line priced from something other than current stock
const (
	WarnBOMMissing        = "no active BOM is defined for this product"
	WarnRecentAverage     = "insufficient current stock, priced at the 30-day average"
	WarnHistoricalAverage = "no recent receipts, priced at the historical average"
	WarnNoData            = "no price information found"
)

// Repository is the read side the calculator needs
type Repository interface {
	repositories.ProductRepository
	repositories.BOMRepository
	repositories.MaterialRepository
	repositories.LotRepository
}

// Calculator estimates the material cost of finished products from lot prices
type Calculator struct {
	repo   Repository
	cfg    config.CostingConfig
	logger logrus.FieldLogger
	Now    func() time.Time
}

func NewCalculator(repo Repository, cfg config.CostingConfig, logger logrus.FieldLogger) *Calculator {
	return &Calculator{repo: repo, cfg: cfg, logger: logger, Now: time.Now}
}

// CalculateProductCost prices every active BOM line of the product for productionQuantity units
func (c *Calculator) CalculateProductCost(ctx context.Context, productID uuid.UUID, productionQuantity decimal.Decimal) (*dto.ProductCost, error) {
	const op = "CalculateProductCost"

	product, err := c.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	result := &dto.ProductCost{
		ProductID:          product.ID,
		ProductCode:        product.Code,
		ProductName:        product.Name,
		ProductionQuantity: productionQuantity,
		TotalCost:          decimal.Zero,
		UnitCost:           decimal.Zero,
		MaterialCosts:      []dto.MaterialCost{},
		Method:             dto.MethodCurrentLot,
		Warnings:           []string{},
	}

	lines, err := c.repo.GetBOMLines(ctx, product.ID, true)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if len(lines) == 0 {
		result.BOMMissing = true
		result.Warnings = append(result.Warnings, WarnBOMMissing)
		return result, nil
	}

	for _, line := range lines {
		cost, warning, err := c.materialCost(ctx, line, productionQuantity)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		result.MaterialCosts = append(result.MaterialCosts, cost)
		result.TotalCost = result.TotalCost.Add(cost.TotalCost)
		result.Method = result.Method.Weaker(cost.Method)
		if warning != "" {
			result.Warnings = append(result.Warnings, cost.MaterialCode+": "+warning)
		}
	}

	if productionQuantity.Sign() > 0 {
		result.UnitCost = result.TotalCost.Div(productionQuantity)
	}
	return result, nil
}

func (c *Calculator) materialCost(ctx context.Context, line *entities.BOMLine, productionQuantity decimal.Decimal) (dto.MaterialCost, string, error) {
	material, err := c.repo.GetMaterial(ctx, line.RawMaterialID)
	if err != nil {
		return dto.MaterialCost{}, "", err
	}

	required := line.RequiredQuantity(productionQuantity)
	price, method, warning, err := c.unitPrice(ctx, material.ID, required)
	if err != nil {
		return dto.MaterialCost{}, "", err
	}

	return dto.MaterialCost{
		RawMaterialID:    material.ID,
		MaterialCode:     material.Code,
		MaterialName:     material.Name,
		QuantityPerUnit:  line.QuantityPerUnit,
		RequiredQuantity: required,
		Unit:             line.Unit,
		UnitPrice:        price,
		TotalCost:        price.Mul(required),
		Method:           method,
	}, warning, nil
}

// unitPrice resolves a material's price from the most reliable source that has data
func (c *Calculator) unitPrice(ctx context.Context, materialID uuid.UUID, required decimal.Decimal) (decimal.Decimal, dto.CostMethod, string, error) {
	current, err := c.repo.FindLots(ctx, repositories.LotFilter{
		RawMaterialID: &materialID,
		Statuses:      []entities.LotStatus{entities.LotReceived, entities.LotInStorage},
		QualityPassed: true,
		InStockOnly:   true,
		Order:         repositories.LotOrderExpiryFirst,
	})
	if err != nil {
		return decimal.Zero, "", "", err
	}
	if len(current) > 0 {
		return currentLotPrice(current, required), dto.MethodCurrentLot, "", nil
	}

	since := c.Now().Add(-c.cfg.RecentPriceWindow)
	recent, err := c.repo.FindLots(ctx, repositories.LotFilter{RawMaterialID: &materialID, ReceivedFrom: &since})
	if err != nil {
		return decimal.Zero, "", "", err
	}
	if len(recent) > 0 {
		return averagePrice(recent), dto.MethodRecentAverage, WarnRecentAverage, nil
	}

	all, err := c.repo.FindLots(ctx, repositories.LotFilter{RawMaterialID: &materialID})
	if err != nil {
		return decimal.Zero, "", "", err
	}
	if len(all) > 0 {
		return averagePrice(all), dto.MethodHistoricalAverage, WarnHistoricalAverage, nil
	}
	return decimal.Zero, dto.MethodNoData, WarnNoData, nil
}

// currentLotPrice is the weighted price of a read-only walk over the lots.
// When stock falls short the average covers only what is available; when the
// walk prices nothing the first lot's price is used.
func currentLotPrice(lots []*entities.MaterialLot, required decimal.Decimal) decimal.Decimal {
	if required.Sign() <= 0 {
		return decimal.Zero
	}
	walk := services.WalkLots(lots, required)
	if price, ok := walk.WeightedPrice(); ok && price.Sign() > 0 {
		return price
	}
	return lots[0].UnitPrice
}

func averagePrice(lots []*entities.MaterialLot) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lots {
		sum = sum.Add(l.UnitPrice)
	}
	return sum.Div(decimal.NewFromInt(int64(len(lots))))
}

// CostSummary prices one unit of every active product. A product whose
// calculation fails is listed with the error method instead of aborting the summary.
func (c *Calculator) CostSummary(ctx context.Context) (*dto.CostSummary, error) {
	products, err := c.repo.ListProducts(ctx, true)
	if err != nil {
		return nil, errs.Wrap("CostSummary", err)
	}

	summary := &dto.CostSummary{Products: make([]dto.ProductCost, 0, len(products))}
	for _, p := range products {
		cost, err := c.CalculateProductCost(ctx, p.ID, decimal.NewFromInt(1))
		if err != nil {
			config.LogError(c.logger, "costing", "CostSummary", p.Code, err)
			summary.Failed++
			summary.Products = append(summary.Products, dto.ProductCost{
				ProductID:          p.ID,
				ProductCode:        p.Code,
				ProductName:        p.Name,
				ProductionQuantity: decimal.NewFromInt(1),
				TotalCost:          decimal.Zero,
				UnitCost:           decimal.Zero,
				BOMMissing:         true,
				Method:             dto.MethodError,
				Warnings:           []string{},
				Error:              err.Error(),
			})
			continue
		}
		if !cost.BOMMissing {
			summary.WithBOM++
		}
		summary.Products = append(summary.Products, *cost)
	}
	summary.TotalProducts = len(summary.Products)
	return summary, nil
}
