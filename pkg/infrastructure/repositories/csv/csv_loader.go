package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
)

// Scenario file names inside a scenario directory. Suppliers, materials and
// products are required; the rest are loaded when present.
const (
	SuppliersFile = "suppliers.csv"
	MaterialsFile = "materials.csv"
	LotsFile      = "lots.csv"
	ProductsFile  = "products.csv"
	BOMFile       = "bom.csv"
	CCPsFile      = "ccps.csv"
	OrdersFile    = "orders.csv"
	LogsFile      = "ccp_logs.csv"
)

var (
	supplierHeader = []string{"code", "name", "email", "certification", "status", "contact_person", "phone", "address", "updated_at"}
	materialHeader = []string{"code", "name", "category", "unit", "shelf_life_days", "supplier_code", "is_active"}
	lotHeader      = []string{"lot_number", "material_code", "supplier_code", "received_date", "expiry_date", "quantity_received", "quantity_current", "unit_price", "status", "quality_passed"}
	productHeader  = []string{"code", "name", "version", "shelf_life_days", "is_active"}
	bomHeader      = []string{"product_code", "material_code", "quantity_per_unit", "unit"}
	ccpHeader      = []string{"code", "name", "ccp_type", "critical_limit_min", "critical_limit_max", "process_step", "monitoring_frequency", "responsible_person", "product_code", "is_active"}
	orderHeader    = []string{"order_number", "product_code", "planned_quantity", "planned_start", "planned_end", "status", "priority", "assigned_operator", "actual_start", "actual_end", "produced_quantity"}
	logHeader      = []string{"ccp_code", "measured_value", "unit", "measured_at", "order_number", "created_by", "corrective_action", "verified_by", "verified_at"}
)

// ActorID maps a username from a scenario file to a stable actor id
func ActorID(username string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("mes-user:"+strings.ToLower(username)))
}

// Summary counts the rows loaded per file
type Summary struct {
	Suppliers int
	Materials int
	Lots      int
	Products  int
	BOMLines  int
	CCPs      int
	Orders    int
	Logs      int
}

// Loader reads a scenario directory of CSV files into a store
type Loader struct {
	suppliers map[string]uuid.UUID
	materials map[string]*entities.RawMaterial
	products  map[string]uuid.UUID
	ccps      map[string]*entities.CCP
	orders    map[string]uuid.UUID
}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario loads every scenario file from dir into store in one transaction
func (l *Loader) LoadScenario(ctx context.Context, dir string, store repositories.Store) (*Summary, error) {
	l.suppliers = make(map[string]uuid.UUID)
	l.materials = make(map[string]*entities.RawMaterial)
	l.products = make(map[string]uuid.UUID)
	l.ccps = make(map[string]*entities.CCP)
	l.orders = make(map[string]uuid.UUID)

	summary := &Summary{}
	steps := []struct {
		file     string
		header   []string
		required bool
		load     func(ctx context.Context, tx repositories.Store, record []string) error
		count    *int
	}{
		{SuppliersFile, supplierHeader, true, l.loadSupplier, &summary.Suppliers},
		{MaterialsFile, materialHeader, true, l.loadMaterial, &summary.Materials},
		{LotsFile, lotHeader, false, l.loadLot, &summary.Lots},
		{ProductsFile, productHeader, true, l.loadProduct, &summary.Products},
		{BOMFile, bomHeader, false, l.loadBOMLine, &summary.BOMLines},
		{CCPsFile, ccpHeader, false, l.loadCCP, &summary.CCPs},
		{OrdersFile, orderHeader, false, l.loadOrder, &summary.Orders},
		{LogsFile, logHeader, false, l.loadLog, &summary.Logs},
	}

	err := store.Atomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		for _, step := range steps {
			records, err := readTable(filepath.Join(dir, step.file), step.header)
			if errors.Is(err, fs.ErrNotExist) && !step.required {
				continue
			}
			if err != nil {
				return err
			}
			for i, record := range records {
				if err := step.load(ctx, tx, record); err != nil {
					return fmt.Errorf("%s row %d: %w", step.file, i+2, err)
				}
				*step.count++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// readTable returns the data rows of a CSV file after checking its header
func readTable(filename string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s must have a header row", filepath.Base(filename))
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s header mismatch. Expected: %v, Got: %v", filepath.Base(filename), expectedHeader, records[0])
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", filepath.Base(filename), i+2, len(expectedHeader), len(record))
		}
	}
	return rows, nil
}

func (l *Loader) loadSupplier(ctx context.Context, tx repositories.Store, r []string) error {
	s, err := entities.NewSupplier(r[0], r[1], r[2], r[3])
	if err != nil {
		return err
	}
	if r[4] != "" {
		s.Status, err = parseSupplierStatus(r[4])
		if err != nil {
			return err
		}
	}
	s.ContactPerson, s.Phone, s.Address = r[5], r[6], r[7]
	if r[8] != "" {
		if s.UpdatedAt, err = parseTime("updated_at", r[8]); err != nil {
			return err
		}
		s.CreatedAt = s.UpdatedAt
	}
	if err := tx.SaveSupplier(ctx, s); err != nil {
		return err
	}
	l.suppliers[s.Code] = s.ID
	return nil
}

func (l *Loader) loadMaterial(ctx context.Context, tx repositories.Store, r []string) error {
	supplierID, err := lookup(l.suppliers, "supplier", r[5])
	if err != nil {
		return err
	}
	shelfLife, err := parseOptionalInt("shelf_life_days", r[4])
	if err != nil {
		return err
	}
	active, err := parseBool("is_active", r[6], true)
	if err != nil {
		return err
	}
	category := entities.MaterialCategory(strings.ToLower(r[2]))
	if category == "" {
		category = entities.CategoryIngredient
	}
	unit := r[3]
	if unit == "" {
		unit = "kg"
	}

	m := &entities.RawMaterial{
		ID:            uuid.New(),
		Code:          r[0],
		Name:          r[1],
		Category:      category,
		Unit:          unit,
		ShelfLifeDays: shelfLife,
		SupplierID:    supplierID,
		IsActive:      active,
	}
	if err := tx.SaveMaterial(ctx, m); err != nil {
		return err
	}
	l.materials[m.Code] = m
	return nil
}

func (l *Loader) loadLot(ctx context.Context, tx repositories.Store, r []string) error {
	material, ok := l.materials[r[1]]
	if !ok {
		return fmt.Errorf("unknown material %q", r[1])
	}
	supplierID, err := lookup(l.suppliers, "supplier", r[2])
	if err != nil {
		return err
	}
	received, err := parseTime("received_date", r[3])
	if err != nil {
		return err
	}
	expiry, err := parseOptionalTime("expiry_date", r[4])
	if err != nil {
		return err
	}
	qtyReceived, err := parseDecimal("quantity_received", r[5])
	if err != nil {
		return err
	}
	price, err := parseDecimal("unit_price", r[7])
	if err != nil {
		return err
	}

	lot, err := entities.NewMaterialLot(r[0], material.ID, supplierID, received, expiry, qtyReceived, price)
	if err != nil {
		return err
	}
	if r[6] != "" {
		if lot.QuantityCurrent, err = parseDecimal("quantity_current", r[6]); err != nil {
			return err
		}
	}
	if r[8] != "" {
		if lot.Status, err = parseLotStatus(r[8]); err != nil {
			return err
		}
	}
	if r[9] != "" {
		passed, err := parseBool("quality_passed", r[9], false)
		if err != nil {
			return err
		}
		lot.QualityTestPassed = &passed
	}
	return tx.SaveLot(ctx, lot)
}

func (l *Loader) loadProduct(ctx context.Context, tx repositories.Store, r []string) error {
	shelfLife, err := strconv.Atoi(r[3])
	if err != nil {
		return fmt.Errorf("invalid shelf_life_days: %s", r[3])
	}
	active, err := parseBool("is_active", r[4], true)
	if err != nil {
		return err
	}
	version := r[2]
	if version == "" {
		version = "1.0"
	}

	p := &entities.FinishedProduct{ID: uuid.New(), Code: r[0], Name: r[1], Version: version, ShelfLifeDays: shelfLife, IsActive: active}
	if err := tx.SaveProduct(ctx, p); err != nil {
		return err
	}
	l.products[p.Code] = p.ID
	return nil
}

func (l *Loader) loadBOMLine(ctx context.Context, tx repositories.Store, r []string) error {
	productID, err := lookup(l.products, "product", r[0])
	if err != nil {
		return err
	}
	material, ok := l.materials[r[1]]
	if !ok {
		return fmt.Errorf("unknown material %q", r[1])
	}
	qty, err := parseDecimal("quantity_per_unit", r[2])
	if err != nil {
		return err
	}
	unit := r[3]
	if unit == "" {
		unit = material.Unit
	}

	line, err := entities.NewBOMLine(productID, material.ID, qty, unit)
	if err != nil {
		return err
	}
	return tx.SaveBOMLine(ctx, line)
}

func (l *Loader) loadCCP(ctx context.Context, tx repositories.Store, r []string) error {
	lo, err := parseOptionalDecimal("critical_limit_min", r[3])
	if err != nil {
		return err
	}
	hi, err := parseOptionalDecimal("critical_limit_max", r[4])
	if err != nil {
		return err
	}
	ccp, err := entities.NewCCP(r[0], r[1], entities.CCPType(strings.ToLower(r[2])), lo, hi)
	if err != nil {
		return err
	}
	ccp.ProcessStep, ccp.MonitoringFrequency, ccp.ResponsiblePerson = r[5], r[6], r[7]
	if r[8] != "" {
		productID, err := lookup(l.products, "product", r[8])
		if err != nil {
			return err
		}
		ccp.FinishedProductID = &productID
	}
	if ccp.IsActive, err = parseBool("is_active", r[9], true); err != nil {
		return err
	}
	if err := tx.SaveCCP(ctx, ccp); err != nil {
		return err
	}
	l.ccps[ccp.Code] = ccp
	return nil
}

func (l *Loader) loadOrder(ctx context.Context, tx repositories.Store, r []string) error {
	productID, err := lookup(l.products, "product", r[1])
	if err != nil {
		return err
	}
	qty, err := parseDecimal("planned_quantity", r[2])
	if err != nil {
		return err
	}
	start, err := parseTime("planned_start", r[3])
	if err != nil {
		return err
	}
	end, err := parseTime("planned_end", r[4])
	if err != nil {
		return err
	}

	order, err := entities.NewProductionOrder(r[0], productID, qty, start, end, entities.OrderPriority(strings.ToLower(r[6])))
	if err != nil {
		return err
	}
	if r[5] != "" {
		if order.Status, err = parseOrderStatus(r[5]); err != nil {
			return err
		}
	}
	if r[7] != "" {
		id := ActorID(r[7])
		order.AssignedOperatorID = &id
	}
	if order.ActualStart, err = parseOptionalTime("actual_start", r[8]); err != nil {
		return err
	}
	if order.ActualEnd, err = parseOptionalTime("actual_end", r[9]); err != nil {
		return err
	}
	if r[10] != "" {
		if order.ProducedQuantity, err = parseDecimal("produced_quantity", r[10]); err != nil {
			return err
		}
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return err
	}
	l.orders[order.OrderNumber] = order.ID
	return nil
}

// loadLog classifies the measurement against the CCP limits like a live recording would
func (l *Loader) loadLog(ctx context.Context, tx repositories.Store, r []string) error {
	ccp, ok := l.ccps[r[0]]
	if !ok {
		return fmt.Errorf("unknown ccp %q", r[0])
	}
	value, err := parseDecimal("measured_value", r[1])
	if err != nil {
		return err
	}
	measuredAt, err := parseTime("measured_at", r[3])
	if err != nil {
		return err
	}

	status := services.Classify(ccp.Limits(), value)
	log := &entities.CCPLog{
		ID:             uuid.New(),
		CCPID:          ccp.ID,
		MeasuredValue:  value,
		Unit:           r[2],
		MeasuredAt:     measuredAt,
		Status:         status,
		IsWithinLimits: status == entities.LogWithinLimits,
		CreatedBy:      ActorID(r[5]),
	}
	if r[4] != "" {
		orderID, err := lookup(l.orders, "order", r[4])
		if err != nil {
			return err
		}
		log.ProductionOrderID = &orderID
	}
	if r[6] != "" {
		log.CorrectiveActionTaken = r[6]
		log.CorrectiveActionBy = &log.CreatedBy
		if !log.IsWithinLimits {
			log.Status = entities.LogCorrectiveAction
		}
	}
	if r[7] != "" {
		verifier := ActorID(r[7])
		log.VerifiedBy = &verifier
		at := measuredAt
		if r[8] != "" {
			if at, err = parseTime("verified_at", r[8]); err != nil {
				return err
			}
		}
		log.VerificationDate = &at
	}
	return tx.CreateLog(ctx, log)
}

// Helper functions for parsing CSV records

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func lookup(ids map[string]uuid.UUID, kind, code string) (uuid.UUID, error) {
	id, ok := ids[code]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown %s %q", kind, code)
	}
	return id, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseTime(field, s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC 3339)", field, s)
}

func parseOptionalTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

func parseOptionalDecimal(field, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := parseDecimal(field, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalInt(field, s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %s", field, s)
	}
	return &n, nil
}

func parseBool(field, s string, fallback bool) (bool, error) {
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", field, s)
	}
	return b, nil
}

func parseSupplierStatus(s string) (entities.SupplierStatus, error) {
	switch status := entities.SupplierStatus(strings.ToLower(s)); status {
	case entities.SupplierActive, entities.SupplierInactive, entities.SupplierSuspended:
		return status, nil
	default:
		return "", fmt.Errorf("invalid status: %s (expected: active, inactive or suspended)", s)
	}
}

func parseLotStatus(s string) (entities.LotStatus, error) {
	switch status := entities.LotStatus(strings.ToLower(s)); status {
	case entities.LotReceived, entities.LotInStorage, entities.LotInUse, entities.LotUsed, entities.LotExpired, entities.LotRejected:
		return status, nil
	default:
		return "", fmt.Errorf("invalid lot status: %s", s)
	}
}

func parseOrderStatus(s string) (entities.OrderStatus, error) {
	switch status := entities.OrderStatus(strings.ToLower(s)); status {
	case entities.OrderPlanned, entities.OrderInProgress, entities.OrderCompleted, entities.OrderCancelled, entities.OrderOnHold:
		return status, nil
	default:
		return "", fmt.Errorf("invalid order status: %s", s)
	}
}
