package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	Stdout    io.Writer
}

// Field is one labelled summary value
type Field struct {
	Label string
	Value string
}

// Table is a titled grid of cells
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Report is a command result ready to be rendered. Data is the value
// marshalled for JSON output; Summary and Tables drive the other formats.
type Report struct {
	Name    string
	Title   string
	Summary []Field
	Tables  []Table
	Data    any
}

// Generate writes the report in the configured format
func Generate(report Report, config Config) error {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	switch config.Format {
	case "", "text":
		return generateTextOutput(report, config)
	case "json":
		return generateJSONOutput(report, config)
	case "csv":
		return generateCSVOutput(report, config)
	case "xlsx":
		return generateXLSXOutput(report, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateTextOutput(report Report, config Config) error {
	w := config.Stdout
	fmt.Fprintf(w, "%s\n%s\n\n", report.Title, strings.Repeat("=", len(report.Title)))

	width := 0
	for _, f := range report.Summary {
		width = max(width, len(f.Label))
	}
	for _, f := range report.Summary {
		fmt.Fprintf(w, "%-*s  %s\n", width+1, f.Label+":", f.Value)
	}
	if len(report.Summary) > 0 {
		fmt.Fprintln(w)
	}

	for _, t := range report.Tables {
		fmt.Fprintf(w, "%s:\n", t.Name)
		if len(t.Rows) == 0 {
			fmt.Fprintf(w, "  (none)\n\n")
			continue
		}
		widths := columnWidths(t)
		printRow(w, t.Headers, widths)
		dashes := make([]string, len(widths))
		for i, n := range widths {
			dashes[i] = strings.Repeat("-", n)
		}
		printRow(w, dashes, widths)
		for _, row := range t.Rows {
			printRow(w, row, widths)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func columnWidths(t Table) []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}
	return widths
}

func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}
	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

func generateJSONOutput(report Report, config Config) error {
	data, err := json.MarshalIndent(report.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.Stdout, string(data))
		return nil
	}

	path, err := outputPath(config, report.Name+".json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Stdout, "Results written to: %s\n", path)
	}
	return nil
}

// generateCSVOutput writes the summary and each table to its own file
func generateCSVOutput(report Report, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("CSV output requires -output directory")
	}

	if len(report.Summary) > 0 {
		rows := make([][]string, len(report.Summary))
		for i, f := range report.Summary {
			rows[i] = []string{f.Label, f.Value}
		}
		if err := writeCSV(config, report.Name+"_summary.csv", []string{"field", "value"}, rows); err != nil {
			return err
		}
	}
	for _, t := range report.Tables {
		if err := writeCSV(config, report.Name+"_"+slug(t.Name)+".csv", t.Headers, t.Rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(config Config, name string, headers []string, rows [][]string) error {
	path, err := outputPath(config, name)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Stdout, "Results written to: %s\n", path)
	}
	return nil
}

// generateXLSXOutput writes one workbook with a Summary sheet followed by one sheet per table
func generateXLSXOutput(report Report, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("XLSX output requires -output directory")
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if err := f.SetCellValue(summarySheet, "A1", report.Title); err != nil {
		return err
	}
	for i, field := range report.Summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+3), &[]any{field.Label, field.Value}); err != nil {
			return err
		}
	}

	for _, t := range report.Tables {
		sheet := sheetName(t.Name)
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		header := make([]any, len(t.Headers))
		for i, h := range t.Headers {
			header[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		for r, row := range t.Rows {
			cells := make([]any, len(row))
			for i, c := range row {
				cells[i] = c
			}
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", r+2), &cells); err != nil {
				return err
			}
		}
	}

	path, err := outputPath(config, report.Name+".xlsx")
	if err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write XLSX file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Stdout, "Results written to: %s\n", path)
	}
	return nil
}

func outputPath(config Config, name string) (string, error) {
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(config.OutputDir, name), nil
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// sheetName fits the 31 character Excel limit
func sheetName(s string) string {
	if len(s) > 31 {
		return s[:31]
	}
	return s
}
