package testing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/infrastructure/repositories/memory"
)

// Fixture seeds an in-memory store for tests. Every helper panics on error.
type Fixture struct {
	Store *memory.Store
	Now   time.Time
	ctx   context.Context
}

// NewFixture creates an empty fixture whose clock reads now
func NewFixture(now time.Time) *Fixture {
	return &Fixture{Store: memory.NewStore(), Now: now, ctx: context.Background()}
}

// Clock returns a fixed clock for services under test
func (f *Fixture) Clock() func() time.Time {
	return func() time.Time { return f.Now }
}

// D parses a decimal literal
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DP parses a decimal literal into a pointer; "" yields nil
func DP(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d := D(s)
	return &d
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Actor builds a caller with the given role
func Actor(username string, role entities.Role) entities.Actor {
	return entities.Actor{ID: uuid.New(), Username: username, Role: role}
}

func Admin() entities.Actor             { return Actor("admin", entities.RoleAdmin) }
func QualityManager() entities.Actor    { return Actor("qm", entities.RoleQualityManager) }
func ProductionManager() entities.Actor { return Actor("pm", entities.RoleProductionManager) }
func Operator(name string) entities.Actor {
	return Actor(name, entities.RoleOperator)
}
func Auditor() entities.Actor { return Actor("auditor", entities.RoleAuditor) }

// SupplierOption customizes a supplier fixture
type SupplierOption func(*entities.Supplier)

func WithSupplierStatus(status entities.SupplierStatus) SupplierOption {
	return func(s *entities.Supplier) { s.Status = status }
}

func WithContact(person, phone, address string) SupplierOption {
	return func(s *entities.Supplier) {
		s.ContactPerson, s.Phone, s.Address = person, phone, address
	}
}

func WithUpdatedAt(t time.Time) SupplierOption {
	return func(s *entities.Supplier) { s.UpdatedAt = t }
}

// Supplier stores an active supplier
func (f *Fixture) Supplier(code, certification string, opts ...SupplierOption) *entities.Supplier {
	s, err := entities.NewSupplier(code, code+" Foods", code+"@example.com", certification)
	must(err)
	s.CreatedAt = f.Now.AddDate(-1, 0, 0)
	s.UpdatedAt = f.Now
	for _, opt := range opts {
		opt(s)
	}
	must(f.Store.SaveSupplier(f.ctx, s))
	return s
}

// Material stores an active raw material
func (f *Fixture) Material(code string, supplier *entities.Supplier, shelfLifeDays *int) *entities.RawMaterial {
	m := &entities.RawMaterial{
		ID:            uuid.New(),
		Code:          code,
		Name:          code,
		Category:      entities.CategoryIngredient,
		Unit:          "kg",
		ShelfLifeDays: shelfLifeDays,
		IsActive:      true,
	}
	if supplier != nil {
		m.SupplierID = supplier.ID
	}
	must(f.Store.SaveMaterial(f.ctx, m))
	return m
}

// LotOption customizes a lot fixture
type LotOption func(*entities.MaterialLot)

func WithStatus(status entities.LotStatus) LotOption {
	return func(l *entities.MaterialLot) { l.Status = status }
}

func WithQuality(passed bool) LotOption {
	return func(l *entities.MaterialLot) { l.QualityTestPassed = &passed }
}

func WithExpiry(t time.Time) LotOption {
	return func(l *entities.MaterialLot) { l.ExpiryDate = &t }
}

func WithRemaining(qty string) LotOption {
	return func(l *entities.MaterialLot) { l.QuantityCurrent = D(qty) }
}

// Lot stores an in-storage, quality-passed lot received at the given time
func (f *Fixture) Lot(number string, material *entities.RawMaterial, supplierID uuid.UUID, received time.Time, qty, price string, opts ...LotOption) *entities.MaterialLot {
	l, err := entities.NewMaterialLot(number, material.ID, supplierID, received, nil, D(qty), D(price))
	must(err)
	l.Status = entities.LotInStorage
	passed := true
	l.QualityTestPassed = &passed
	for _, opt := range opts {
		opt(l)
	}
	must(f.Store.SaveLot(f.ctx, l))
	return l
}

// Product stores an active finished product
func (f *Fixture) Product(code string) *entities.FinishedProduct {
	p := &entities.FinishedProduct{ID: uuid.New(), Code: code, Name: code, Version: "1.0", ShelfLifeDays: 7, IsActive: true}
	must(f.Store.SaveProduct(f.ctx, p))
	return p
}

// BOM stores an active BOM line
func (f *Fixture) BOM(product *entities.FinishedProduct, material *entities.RawMaterial, qtyPerUnit string) *entities.BOMLine {
	line, err := entities.NewBOMLine(product.ID, material.ID, D(qtyPerUnit), material.Unit)
	must(err)
	must(f.Store.SaveBOMLine(f.ctx, line))
	return line
}

// CCP stores an active CCP; empty limits are absent
func (f *Fixture) CCP(code string, ccpType entities.CCPType, min, max string) *entities.CCP {
	c, err := entities.NewCCP(code, code, ccpType, DP(min), DP(max))
	must(err)
	c.ResponsiblePerson = "operator1"
	must(f.Store.SaveCCP(f.ctx, c))
	return c
}

// LogOption customizes a CCP log fixture
type LogOption func(*entities.CCPLog)

func VerifiedBy(actor entities.Actor, at time.Time) LogOption {
	return func(l *entities.CCPLog) {
		l.VerifiedBy = &actor.ID
		l.VerificationDate = &at
	}
}

func CorrectedWith(action string) LogOption {
	return func(l *entities.CCPLog) {
		l.CorrectiveActionTaken = action
		if !l.IsWithinLimits {
			l.Status = entities.LogCorrectiveAction
		}
	}
}

func ForOrder(orderID uuid.UUID) LogOption {
	return func(l *entities.CCPLog) { l.ProductionOrderID = &orderID }
}

func CreatedBy(actor entities.Actor) LogOption {
	return func(l *entities.CCPLog) { l.CreatedBy = actor.ID }
}

// Log stores a log already classified as within or out of limits
func (f *Fixture) Log(ccp *entities.CCP, value string, measuredAt time.Time, within bool, opts ...LogOption) *entities.CCPLog {
	status := entities.LogWithinLimits
	if !within {
		status = entities.LogOutOfLimits
	}
	l := &entities.CCPLog{
		ID:             uuid.New(),
		CCPID:          ccp.ID,
		MeasuredValue:  D(value),
		Unit:           "C",
		MeasuredAt:     measuredAt,
		Status:         status,
		IsWithinLimits: within,
		CreatedBy:      uuid.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	must(f.Store.CreateLog(f.ctx, l))
	return l
}

// OrderOption customizes a production order fixture
type OrderOption func(*entities.ProductionOrder)

func WithPriority(p entities.OrderPriority) OrderOption {
	return func(o *entities.ProductionOrder) { o.Priority = p }
}

func WithPlannedEnd(t time.Time) OrderOption {
	return func(o *entities.ProductionOrder) { o.PlannedEnd = t }
}

func WithCreatedAt(t time.Time) OrderOption {
	return func(o *entities.ProductionOrder) { o.CreatedAt = t }
}

func AssignedTo(actor entities.Actor) OrderOption {
	return func(o *entities.ProductionOrder) { o.AssignedOperatorID = &actor.ID }
}

// Ran records an actual run window and output
func Ran(start, end time.Time, produced string) OrderOption {
	return func(o *entities.ProductionOrder) {
		o.ActualStart = &start
		o.ActualEnd = &end
		o.ProducedQuantity = D(produced)
	}
}

// Order stores a production order in the given status planned for eight hours from start
func (f *Fixture) Order(number string, product *entities.FinishedProduct, planned string, start time.Time, status entities.OrderStatus, opts ...OrderOption) *entities.ProductionOrder {
	o, err := entities.NewProductionOrder(number, product.ID, D(planned), start, start.Add(8*time.Hour), entities.PriorityNormal)
	must(err)
	o.Status = status
	o.CreatedAt = f.Now
	if status == entities.OrderInProgress || status == entities.OrderCompleted {
		o.ActualStart = &start
	}
	for _, opt := range opts {
		opt(o)
	}
	must(f.Store.CreateOrder(f.ctx, o))
	return o
}

// BuildBakeryScenario seeds a small bakery line: one supplier, flour and sugar
// lots, a bread product with its BOM and a cooking CCP.
func BuildBakeryScenario(now time.Time) *Fixture {
	f := NewFixture(now)
	shelfLife := 180

	mill := f.Supplier("SUP-MILL", "HACCP, ISO 22000", WithContact("Lee", "010-0000-0000", "Busan"))
	flour := f.Material("RM-FLOUR", mill, &shelfLife)
	sugar := f.Material("RM-SUGAR", mill, &shelfLife)

	f.Lot("FLOUR-001", flour, mill.ID, now.AddDate(0, 0, -20), "10", "5")
	f.Lot("FLOUR-002", flour, mill.ID, now.AddDate(0, 0, -10), "10", "6")
	f.Lot("FLOUR-003", flour, mill.ID, now.AddDate(0, 0, -5), "10", "7")
	f.Lot("SUGAR-001", sugar, mill.ID, now.AddDate(0, 0, -3), "50", "2")

	bread := f.Product("FP-BREAD")
	f.BOM(bread, flour, "0.5")
	f.BOM(bread, sugar, "0.1")

	f.CCP("CCP-COOK", entities.CCPTemperature, "80", "90")
	return f
}
