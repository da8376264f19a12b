package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/application/services/haccp"
	"github.com/vsinha/mes/pkg/application/services/orchestration"
	"github.com/vsinha/mes/pkg/application/services/production"
	"github.com/vsinha/mes/pkg/application/services/supplier"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"github.com/vsinha/mes/pkg/domain/services"
	"github.com/vsinha/mes/pkg/infrastructure/events"
	"github.com/vsinha/mes/pkg/infrastructure/locking"
	"github.com/vsinha/mes/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mes/pkg/infrastructure/repositories/gormdb"
	"github.com/vsinha/mes/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mes/pkg/interfaces/api"
	"github.com/vsinha/mes/pkg/interfaces/cli/output"
)

var commandNames = []string{
	"alerts", "compliance", "report", "cost", "costs", "supplier", "suppliers",
	"risk", "allocate", "trace", "orders", "serve",
}

// Config holds configuration for the MES command
type Config struct {
	Command     string
	ScenarioDir string
	UseDB       bool
	Migrate     bool
	EnvFile     string
	OutputDir   string
	Format      string
	Verbose     bool
	Help        bool

	User     string
	Role     string
	Code     string
	Lot      string
	Order    string
	Quantity string
	From     string
	To       string
	Now      string
	Window   time.Duration

	Stdout io.Writer
}

// MESCommand runs one MES query or operation against a scenario or the database
type MESCommand struct {
	config Config
	out    io.Writer
	now    func() time.Time
}

// NewMESCommand creates a new MES command with the given configuration
func NewMESCommand(config Config) *MESCommand {
	out := config.Stdout
	if out == nil {
		out = os.Stdout
	}
	return &MESCommand{config: config, out: out, now: time.Now}
}

// Execute runs the MES command
func (c *MESCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	var envFiles []string
	if c.config.EnvFile != "" {
		envFiles = append(envFiles, c.config.EnvFile)
	}
	settings, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	logger := config.NewLogger(settings.Log)
	logger.SetOutput(os.Stderr)

	if c.config.Now != "" {
		fixed, err := parseTime("now", c.config.Now)
		if err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
		c.now = func() time.Time { return fixed }
	}

	if c.config.Verbose {
		c.printHeader()
	}

	store, closeStore, err := c.openStore(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := c.openLocker(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	journal := events.NewBoundedJournal(logger, settings.Events.Capacity)
	journal.Subscribe(events.LogTo(logger), events.CCPLogDeviationEvent, events.ShortageIdentifiedEvent)
	orch := orchestration.NewOrchestrator(store, locker, settings, journal, logger)
	orch.SetClock(c.now)

	if c.config.Command == "serve" {
		return c.serve(ctx, orch, settings, logger)
	}

	report, err := c.run(ctx, orch)
	if err != nil {
		return fmt.Errorf("%s failed: %w", c.config.Command, err)
	}

	return output.Generate(report, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Stdout:    c.out,
	})
}

// validateInputs validates the command configuration
func (c *MESCommand) validateInputs() error {
	known := false
	for _, name := range commandNames {
		if c.config.Command == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown command %q, expected one of %s", c.config.Command, strings.Join(commandNames, ", "))
	}
	if c.config.ScenarioDir == "" && !c.config.UseDB {
		return fmt.Errorf("must specify either -data directory or -db")
	}
	if c.config.ScenarioDir != "" && c.config.UseDB {
		return fmt.Errorf("-data and -db are mutually exclusive")
	}
	if !entities.Role(c.config.Role).Valid() {
		return fmt.Errorf("unknown role %q", c.config.Role)
	}

	switch c.config.Command {
	case "cost", "supplier", "risk", "allocate":
		if c.config.Code == "" {
			return fmt.Errorf("%s requires -code", c.config.Command)
		}
	case "trace":
		if (c.config.Lot == "") == (c.config.Order == "") {
			return fmt.Errorf("trace requires exactly one of -lot or -order")
		}
	}
	if c.config.Command == "allocate" && c.config.Quantity == "" {
		return fmt.Errorf("allocate requires -qty")
	}
	return nil
}

// openStore loads the scenario into memory or connects to the configured database
func (c *MESCommand) openStore(ctx context.Context, settings config.Settings, logger *logrus.Logger) (repositories.Store, func(), error) {
	if c.config.ScenarioDir != "" {
		store := memory.NewStore()
		summary, err := csv.NewLoader().LoadScenario(ctx, c.config.ScenarioDir, store)
		if err != nil {
			return nil, nil, fmt.Errorf("error loading scenario: %w", err)
		}
		if c.config.Verbose {
			fmt.Fprintf(c.out, "Scenario loaded:\n")
			fmt.Fprintf(c.out, "  Suppliers: %d\n  Materials: %d\n  Lots: %d\n  Products: %d\n",
				summary.Suppliers, summary.Materials, summary.Lots, summary.Products)
			fmt.Fprintf(c.out, "  BOM Lines: %d\n  CCPs: %d\n  Orders: %d\n  CCP Logs: %d\n\n",
				summary.BOMLines, summary.CCPs, summary.Orders, summary.Logs)
		}
		return store, func() {}, nil
	}

	store, err := gormdb.Open(settings.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			config.LogError(logger, "commands", "openStore", nil, err)
		}
	}
	if c.config.Migrate {
		if err := store.Migrate(ctx); err != nil {
			closeStore()
			return nil, nil, err
		}
	}
	return store, closeStore, nil
}

// openLocker shares allocation locks through Redis when an address is configured
func (c *MESCommand) openLocker(ctx context.Context, settings config.Settings, logger *logrus.Logger) (locking.Locker, func(), error) {
	if !settings.Redis.Enabled() {
		return locking.NewLocalLocker(), func() {}, nil
	}
	rdb, err := locking.Connect(ctx, settings.Redis)
	if err != nil {
		return nil, nil, err
	}
	return locking.NewRedisLocker(rdb, logger), func() { _ = rdb.Close() }, nil
}

func (c *MESCommand) actor() entities.Actor {
	return entities.Actor{ID: csv.ActorID(c.config.User), Username: c.config.User, Role: entities.Role(c.config.Role)}
}

func (c *MESCommand) run(ctx context.Context, orch *orchestration.Orchestrator) (output.Report, error) {
	actor := c.actor()
	from, to, err := c.period()
	if err != nil {
		return output.Report{}, err
	}

	switch c.config.Command {
	case "alerts":
		report, err := orch.Alerts.DetectAlerts(ctx, actor, c.config.Window)
		if err != nil {
			return output.Report{}, err
		}
		return output.Alerts(report), nil

	case "compliance":
		if err := services.Authorize(actor, services.ActionViewCompliance); err != nil {
			return output.Report{}, err
		}
		filter := haccp.ComplianceFilter{From: from, To: to}
		if c.config.Code != "" {
			ccp, err := orch.Store.GetCCPByCode(ctx, c.config.Code)
			if err != nil {
				return output.Report{}, err
			}
			filter.CCPID = &ccp.ID
		}
		if c.config.Order != "" {
			order, err := orch.Store.GetOrderByNumber(ctx, c.config.Order)
			if err != nil {
				return output.Report{}, err
			}
			filter.ProductionOrderID = &order.ID
		}
		score, err := orch.Compliance.Score(ctx, filter)
		if err != nil {
			return output.Report{}, err
		}
		return output.ComplianceScore(score), nil

	case "report":
		end := c.now()
		if to != nil {
			end = *to
		}
		start := end.AddDate(0, 0, -30)
		if from != nil {
			start = *from
		}
		report, err := orch.Reports.ComplianceReport(ctx, actor, start, end)
		if err != nil {
			return output.Report{}, err
		}
		return output.ComplianceReport(report), nil

	case "cost":
		qty, err := c.quantity("1")
		if err != nil {
			return output.Report{}, err
		}
		cost, err := orch.ProductCost(ctx, c.config.Code, qty)
		if err != nil {
			return output.Report{}, err
		}
		return output.ProductCost(cost), nil

	case "costs":
		summary, err := orch.Costing.CostSummary(ctx)
		if err != nil {
			return output.Report{}, err
		}
		return output.CostSummary(summary), nil

	case "supplier":
		review, err := orch.ReviewSupplier(ctx, c.config.Code, from, to)
		if err != nil {
			return output.Report{}, err
		}
		return output.SupplierReview(review), nil

	case "suppliers":
		list, err := orch.Suppliers.ListSuppliers(ctx, actor, supplier.SupplierQuery{})
		if err != nil {
			return output.Report{}, err
		}
		stats, err := orch.Suppliers.Statistics(ctx, actor)
		if err != nil {
			return output.Report{}, err
		}
		return output.Suppliers(list, stats), nil

	case "risk":
		s, err := orch.Store.GetSupplierByCode(ctx, c.config.Code)
		if err != nil {
			return output.Report{}, err
		}
		risk, err := orch.Evaluator.RiskAssessment(ctx, s.ID)
		if err != nil {
			return output.Report{}, err
		}
		return output.RiskAssessment(risk), nil

	case "allocate":
		qty, err := c.quantity("")
		if err != nil {
			return output.Report{}, err
		}
		result, err := orch.AllocateMaterial(ctx, actor, c.config.Code, qty, c.config.Order)
		if err != nil {
			return output.Report{}, err
		}
		return output.Allocation(result), nil

	case "trace":
		if c.config.Lot != "" {
			trace, err := orch.TraceLot(ctx, c.config.Lot)
			if err != nil {
				return output.Report{}, err
			}
			return output.LotTrace(trace), nil
		}
		trace, err := orch.TraceOrder(ctx, c.config.Order)
		if err != nil {
			return output.Report{}, err
		}
		return output.OrderTrace(trace), nil

	case "orders":
		orders, err := orch.Production.ListOrders(ctx, actor, production.OrderQuery{From: from, To: to})
		if err != nil {
			return output.Report{}, err
		}
		dashboard, err := orch.Production.Dashboard(ctx, actor)
		if err != nil && !errors.Is(err, errs.ErrPermissionDenied) {
			return output.Report{}, err
		}
		return output.Orders(orders, dashboard), nil
	}
	return output.Report{}, fmt.Errorf("unknown command %q", c.config.Command)
}

func (c *MESCommand) serve(ctx context.Context, orch *orchestration.Orchestrator, settings config.Settings, logger *logrus.Logger) error {
	server, err := api.NewServer(orch, settings.HTTP, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(":" + settings.HTTP.Port)
	}()
	logger.WithField("port", settings.HTTP.Port).Info("MES API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down MES API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (c *MESCommand) period() (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if c.config.From != "" {
		t, err := parseTime("from", c.config.From)
		if err != nil {
			return nil, nil, err
		}
		from = &t
	}
	if c.config.To != "" {
		t, err := parseTime("to", c.config.To)
		if err != nil {
			return nil, nil, err
		}
		to = &t
	}
	return from, to, nil
}

func (c *MESCommand) quantity(fallback string) (decimal.Decimal, error) {
	raw := c.config.Quantity
	if raw == "" {
		raw = fallback
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errs.Validation("ParseQuantity", "invalid -qty %q", raw)
	}
	return qty, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseTime(flag, s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.Validation("ParseTime", "invalid -%s %q, expected YYYY-MM-DD[ HH:MM] or RFC3339", flag, s)
}

// printHeader prints the command header information
func (c *MESCommand) printHeader() {
	fmt.Fprintf(c.out, "HACCP MES CLI\n")
	fmt.Fprintf(c.out, "Command: %s\n", c.config.Command)
	if c.config.ScenarioDir != "" {
		fmt.Fprintf(c.out, "Scenario: %s\n", c.config.ScenarioDir)
	} else {
		fmt.Fprintf(c.out, "Store: database\n")
	}
	fmt.Fprintf(c.out, "Caller: %s (%s)\n", c.config.User, c.config.Role)
	fmt.Fprintf(c.out, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(c.out, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(c.out)
}

// showHelp displays the help message
func (c *MESCommand) showHelp() {
	fmt.Fprintf(c.out, `MES CLI - HACCP compliance and traceability for food production

USAGE:
    mes -command <name> -data <directory> [options]   # Use a CSV scenario in memory
    mes -command <name> -db [options]                 # Use the configured database

COMMANDS:
    alerts       Open HACCP alerts (deviations, pending verification, consecutive violations)
    compliance   Compliance score over -from/-to, optionally for -code <ccp> or -order <number>
    report       Per-CCP compliance report with weekly trend (default: last 30 days)
    cost         Material cost of -qty units of product -code
    costs        Unit cost of every active product
    supplier     Performance and risk review of supplier -code over -from/-to
    suppliers    Supplier list and statistics
    risk         Risk assessment of supplier -code
    allocate     FIFO draw of -qty of material -code, optionally for -order <number>
    trace        Trace -lot <number> to its orders or -order <number> to its lots
    orders       Production orders and dashboard
    serve        Start the HTTP API

OPTIONS:
    -data <dir>         Scenario directory containing CSV files
    -db                 Use the database configured by DB_* variables
    -migrate            Create or update database tables before running
    -env <file>         .env file to load (default: .env if present)
    -user <name>        Caller username (default: qm)
    -role <role>        admin, quality_manager, production_manager, operator or auditor
    -now <time>         Evaluate as of this time instead of the wall clock
    -window <duration>  Alert window (default: MES_ALERT_WINDOW)
    -output <dir>       Output directory for results (required for csv and xlsx)
    -format <fmt>       Output format: text, json, csv, xlsx (default: text)
    -verbose            Enable verbose output
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── suppliers.csv
    ├── materials.csv
    ├── lots.csv        # optional
    ├── products.csv
    ├── bom.csv         # optional
    ├── ccps.csv        # optional
    ├── orders.csv      # optional
    └── ccp_logs.csv    # optional

EXAMPLES:
    # Replay the bakery scenario's alerts
    mes -command alerts -data example/bakery -now "2025-05-31 16:00"

    # Export the compliance report as a workbook
    mes -command report -data example/bakery -from 2025-05-26 -to 2025-06-01 -format xlsx -output results/

    # Trace a flour lot
    mes -command trace -data example/bakery -lot FLOUR-2505-01

    # Allocate against the database with Redis locks
    REDIS_ADDRESS=localhost:6379 mes -command allocate -db -code RM-FLOUR -qty 25 -role production_manager
`)
}
