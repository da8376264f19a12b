package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/mes/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		command     = flag.String("command", "alerts", "Command to run (see -help)")
		scenarioDir = flag.String("data", "", "Path to scenario directory containing CSV files")
		useDB       = flag.Bool("db", false, "Use the database configured by DB_* variables")
		migrate     = flag.Bool("migrate", false, "Create or update database tables before running")
		envFile     = flag.String("env", "", "Path to .env file")
		outputDir   = flag.String("output", "", "Output directory for results (optional)")
		format      = flag.String("format", "text", "Output format: text, json, csv, xlsx")
		verbose     = flag.Bool("verbose", false, "Enable verbose output")
		help        = flag.Bool("help", false, "Show help message")

		user     = flag.String("user", "qm", "Caller username")
		role     = flag.String("role", "quality_manager", "Caller role")
		code     = flag.String("code", "", "Material, product, supplier or CCP code")
		lot      = flag.String("lot", "", "Lot number to trace")
		order    = flag.String("order", "", "Production order number")
		quantity = flag.String("qty", "", "Quantity to cost or allocate")
		from     = flag.String("from", "", "Period start")
		to       = flag.String("to", "", "Period end")
		now      = flag.String("now", "", "Evaluate as of this time")
		window   = flag.Duration("window", 0, "Alert window")
	)

	flag.Parse()

	config := commands.Config{
		Command:     *command,
		ScenarioDir: *scenarioDir,
		UseDB:       *useDB,
		Migrate:     *migrate,
		EnvFile:     *envFile,
		OutputDir:   *outputDir,
		Format:      *format,
		Verbose:     *verbose,
		Help:        *help,
		User:        *user,
		Role:        *role,
		Code:        *code,
		Lot:         *lot,
		Order:       *order,
		Quantity:    *quantity,
		From:        *from,
		To:          *to,
		Now:         *now,
		Window:      *window,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := commands.NewMESCommand(config)
	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
