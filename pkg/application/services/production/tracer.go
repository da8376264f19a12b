package production

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/application/dto"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

// Tracer follows recorded lot consumption in both directions
type Tracer struct {
	store repositories.Store
}

func NewTracer(store repositories.Store) *Tracer {
	return &Tracer{store: store}
}

// LotTrace traces a lot back to its material and supplier and forward to the orders that consumed it
func (t *Tracer) LotTrace(ctx context.Context, lotID uuid.UUID) (*dto.LotTrace, error) {
	const op = "LotTrace"

	lot, err := t.store.GetLot(ctx, lotID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	material, err := t.store.GetMaterial(ctx, lot.RawMaterialID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	supplier, err := t.store.GetSupplier(ctx, lot.SupplierID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	trace := &dto.LotTrace{
		Lot:           lot,
		MaterialCode:  material.Code,
		MaterialName:  material.Name,
		SupplierCode:  supplier.Code,
		SupplierName:  supplier.Name,
		SupplierEmail: supplier.Email,
		Usage:         []dto.OrderUsage{},
	}

	consumptions, err := t.store.FindConsumptions(ctx, repositories.ConsumptionFilter{LotID: &lot.ID})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	index := make(map[uuid.UUID]int)
	for _, c := range consumptions {
		if c.ProductionOrderID == nil {
			continue
		}
		if i, ok := index[*c.ProductionOrderID]; ok {
			trace.Usage[i].Quantity = trace.Usage[i].Quantity.Add(c.Quantity)
			continue
		}

		order, err := t.store.GetOrder(ctx, *c.ProductionOrderID)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		product, err := t.store.GetProduct(ctx, order.FinishedProductID)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		index[order.ID] = len(trace.Usage)
		trace.Usage = append(trace.Usage, dto.OrderUsage{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			ProductCode: product.Code,
			ProductName: product.Name,
			Status:      order.Status,
			ActualStart: order.ActualStart,
			Quantity:    c.Quantity,
		})
	}
	return trace, nil
}

// OrderTrace lists every lot a production order consumed
func (t *Tracer) OrderTrace(ctx context.Context, orderID uuid.UUID) (*dto.OrderTrace, error) {
	const op = "OrderTrace"

	order, err := t.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	product, err := t.store.GetProduct(ctx, order.FinishedProductID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}

	trace := &dto.OrderTrace{
		Order:       order,
		ProductCode: product.Code,
		ProductName: product.Name,
		Materials:   []dto.LotUsage{},
	}

	consumptions, err := t.store.FindConsumptions(ctx, repositories.ConsumptionFilter{ProductionOrderID: &order.ID})
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	index := make(map[uuid.UUID]int)
	for _, c := range consumptions {
		if i, ok := index[c.LotID]; ok {
			trace.Materials[i].Quantity = trace.Materials[i].Quantity.Add(c.Quantity)
			continue
		}

		lot, err := t.store.GetLot(ctx, c.LotID)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		material, err := t.store.GetMaterial(ctx, lot.RawMaterialID)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		supplier, err := t.store.GetSupplier(ctx, lot.SupplierID)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		index[lot.ID] = len(trace.Materials)
		trace.Materials = append(trace.Materials, dto.LotUsage{
			LotID:        lot.ID,
			LotNumber:    lot.LotNumber,
			MaterialCode: material.Code,
			MaterialName: material.Name,
			SupplierCode: supplier.Code,
			SupplierName: supplier.Name,
			ReceivedDate: lot.ReceivedDate,
			Quantity:     c.Quantity,
		})
	}
	return trace, nil
}
