package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const bakeryScenario = "../../../../example/bakery"

func runCommand(t *testing.T, config Config) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	config.Stdout = &buf
	if config.ScenarioDir == "" && !config.UseDB {
		config.ScenarioDir = bakeryScenario
	}
	if config.User == "" {
		config.User = "qm"
	}
	if config.Role == "" {
		config.Role = "quality_manager"
	}
	if config.Now == "" {
		config.Now = "2025-05-31 16:00"
	}
	err := NewMESCommand(config).Execute(context.Background())
	return buf.String(), err
}

func TestMESCommand_Alerts(t *testing.T) {
	out, err := runCommand(t, Config{Command: "alerts", Format: "json"})
	if err != nil {
		t.Fatalf("Expected alerts to succeed, got %v", err)
	}

	var report struct {
		TotalAlerts int `json:"total_alerts"`
		Alerts      []struct {
			Type             string `json:"type"`
			CCPCode          string `json:"ccp_code"`
			ConsecutiveCount int    `json:"consecutive_count"`
		} `json:"alerts"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("Expected JSON alert report, got %v:\n%s", err, out)
	}
	if report.TotalAlerts != 4 {
		t.Fatalf("Expected 4 alerts, got %d", report.TotalAlerts)
	}
	first := report.Alerts[0]
	if first.Type != "consecutive_violations" || first.CCPCode != "CCP-2P" || first.ConsecutiveCount != 3 {
		t.Errorf("Expected 3 consecutive CCP-2P violations first, got %+v", first)
	}
	for _, a := range report.Alerts[1:] {
		if a.Type != "deviation" || a.CCPCode != "CCP-2P" {
			t.Errorf("Expected CCP-2P deviation, got %+v", a)
		}
	}
}

func TestMESCommand_AlertsRequireQualityRole(t *testing.T) {
	_, err := runCommand(t, Config{Command: "alerts", Format: "json", User: "op", Role: "operator"})
	if err == nil || !strings.Contains(err.Error(), "alerts failed") {
		t.Errorf("Expected permission failure, got %v", err)
	}
}

func TestMESCommand_Allocate(t *testing.T) {
	out, err := runCommand(t, Config{
		Command:  "allocate",
		Code:     "RM-FLOUR",
		Quantity: "70",
		Role:     "production_manager",
		Format:   "json",
	})
	if err != nil {
		t.Fatalf("Expected allocation to succeed, got %v", err)
	}

	var result struct {
		Lots []struct {
			LotNumber string `json:"lot_number"`
			Quantity  string `json:"quantity"`
			Emptied   bool   `json:"emptied"`
		} `json:"lots"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Expected JSON allocation, got %v:\n%s", err, out)
	}
	if len(result.Lots) != 2 {
		t.Fatalf("Expected 2 lots drawn, got %d", len(result.Lots))
	}
	if result.Lots[0].LotNumber != "FLOUR-2505-01" || result.Lots[0].Quantity != "40" || !result.Lots[0].Emptied {
		t.Errorf("Expected FLOUR-2505-01 emptied with 40, got %+v", result.Lots[0])
	}
	if result.Lots[1].LotNumber != "FLOUR-2505-02" || result.Lots[1].Quantity != "30" {
		t.Errorf("Expected 30 from FLOUR-2505-02, got %+v", result.Lots[1])
	}
}

func TestMESCommand_CostText(t *testing.T) {
	out, err := runCommand(t, Config{Command: "cost", Code: "FP-BREAD", Quantity: "10", Format: "text"})
	if err != nil {
		t.Fatalf("Expected cost to succeed, got %v", err)
	}
	for _, want := range []string{"Product Cost", "FP-BREAD White bread", "7.78", "RM-YEAST"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestMESCommand_TraceLot(t *testing.T) {
	out, err := runCommand(t, Config{Command: "trace", Lot: "BUTTER-2505-01", Format: "json"})
	if err != nil {
		t.Fatalf("Expected trace to succeed, got %v", err)
	}
	var trace struct {
		MaterialCode string `json:"material_code"`
		SupplierCode string `json:"supplier_code"`
		Usage        []any  `json:"usage"`
	}
	if err := json.Unmarshal([]byte(out), &trace); err != nil {
		t.Fatalf("Expected JSON trace, got %v:\n%s", err, out)
	}
	if trace.MaterialCode != "RM-BUTTER" || trace.SupplierCode != "SUP-DAIRY" {
		t.Errorf("Expected RM-BUTTER from SUP-DAIRY, got %s from %s", trace.MaterialCode, trace.SupplierCode)
	}
	if len(trace.Usage) != 0 {
		t.Errorf("Expected no usage, got %d", len(trace.Usage))
	}
}

func TestMESCommand_ReportXLSX(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, Config{
		Command:   "report",
		From:      "2025-05-26",
		To:        "2025-06-01",
		Format:    "xlsx",
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("Expected report to succeed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "compliance_report.xlsx")); err != nil {
		t.Errorf("Expected workbook to be written, got %v", err)
	}
}

func TestMESCommand_Suppliers(t *testing.T) {
	out, err := runCommand(t, Config{Command: "suppliers", Format: "text"})
	if err != nil {
		t.Fatalf("Expected suppliers to succeed, got %v", err)
	}
	for _, want := range []string{"SUP-DAIRY", "SUP-MILL", "SUP-SWEET", "suspended"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestMESCommand_ValidateInputs(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"unknown command", Config{Command: "explode"}, "unknown command"},
		{"cost without code", Config{Command: "cost"}, "cost requires -code"},
		{"allocate without qty", Config{Command: "allocate", Code: "RM-FLOUR"}, "allocate requires -qty"},
		{"trace without target", Config{Command: "trace"}, "exactly one of -lot or -order"},
		{"trace with both", Config{Command: "trace", Lot: "L", Order: "O"}, "exactly one of -lot or -order"},
		{"unknown role", Config{Command: "alerts", Role: "baker"}, "unknown role"},
		{"data and db", Config{Command: "alerts", ScenarioDir: bakeryScenario, UseDB: true}, "mutually exclusive"},
		{"bad now", Config{Command: "alerts", Now: "yesterday"}, "invalid -now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMESCommand_Help(t *testing.T) {
	out, err := runCommand(t, Config{Help: true})
	if err != nil {
		t.Fatalf("Expected help to succeed, got %v", err)
	}
	if !strings.Contains(out, "USAGE:") || !strings.Contains(out, "allocate") {
		t.Errorf("Expected usage text, got:\n%s", out)
	}
}
