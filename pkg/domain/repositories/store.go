package repositories

import "context"

// Store is the entity store consumed by the application services
type Store interface {
	CCPRepository
	CCPLogRepository
	MaterialRepository
	LotRepository
	ConsumptionRepository
	ProductRepository
	BOMRepository
	ProductionOrderRepository
	SupplierRepository

	// Atomic runs fn against a transactional view of the store. Every write made
	// through tx is committed when fn returns nil and discarded otherwise.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
