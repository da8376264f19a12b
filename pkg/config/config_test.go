package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func TestDefault(t *testing.T) {
	s := Default()

	if s.HACCP.DuplicateWindow != time.Minute {
		t.Errorf("Expected duplicate window 1m, got %s", s.HACCP.DuplicateWindow)
	}
	if s.HACCP.VerificationRequiredAfter != 72*time.Hour {
		t.Errorf("Expected verification threshold 72h, got %s", s.HACCP.VerificationRequiredAfter)
	}
	if s.HACCP.ConsecutiveThreshold != 3 {
		t.Errorf("Expected consecutive threshold 3, got %d", s.HACCP.ConsecutiveThreshold)
	}
	if !s.Production.OverproductionTolerance.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("Expected tolerance 1.10, got %s", s.Production.OverproductionTolerance)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected default settings to validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MES_ALERT_WINDOW", "48h")
	t.Setenv("MES_CONSECUTIVE_THRESHOLD", "5")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_USER", "mes")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "haccp")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("MES_EVENT_CAPACITY", "500")

	s, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Expected load to succeed: %v", err)
	}
	if s.HACCP.AlertWindow != 48*time.Hour {
		t.Errorf("Expected alert window 48h, got %s", s.HACCP.AlertWindow)
	}
	if s.HACCP.ConsecutiveThreshold != 5 {
		t.Errorf("Expected threshold 5, got %d", s.HACCP.ConsecutiveThreshold)
	}
	if s.Events.Capacity != 500 {
		t.Errorf("Expected event capacity 500, got %d", s.Events.Capacity)
	}
	if !s.Redis.Enabled() {
		t.Errorf("Expected redis to be enabled")
	}
	if !strings.HasPrefix(s.Database.DSN(), "mes:secret@tcp(db:3306)/haccp") {
		t.Errorf("Expected mysql DSN, got %s", s.Database.DSN())
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("MES_DUPLICATE_WINDOW=90s\n"), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	// godotenv does not override variables that already exist
	t.Setenv("MES_DUPLICATE_WINDOW", "")
	os.Unsetenv("MES_DUPLICATE_WINDOW")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Expected load to succeed: %v", err)
	}
	if s.HACCP.DuplicateWindow != 90*time.Second {
		t.Errorf("Expected duplicate window 90s, got %s", s.HACCP.DuplicateWindow)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "MES_ALERT_WINDOW", "soon"},
		{"negative duration", "MES_LOCK_TTL", "-5s"},
		{"bad integer", "MES_MAX_CONCURRENT_ORDERS", "five"},
		{"bad decimal", "MES_OVERPRODUCTION_TOLERANCE", "lots"},
		{"unknown driver", "DB_DRIVER", "sqlite"},
		{"weights do not sum", "MES_COMPLIANCE_WEIGHT", "0.9"},
		{"zero event capacity", "MES_EVENT_CAPACITY", "0"},
		{"zero allocation retries", "MES_ALLOCATION_RETRIES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logg := newLogger(LogConfig{Level: "warn", Format: "json"}, &buf)

	if logg.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn level, got %s", logg.GetLevel())
	}

	LogError(logg, "haccp", "RecordMeasurement", map[string]string{"ccp": "CCP-1"}, errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, `"module":"haccp"`) || !strings.Contains(out, `"msg":"boom"`) {
		t.Errorf("Expected JSON log with module and message, got %s", out)
	}
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logg := newLogger(LogConfig{Level: "chatty"}, &bytes.Buffer{})
	if logg.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %s", logg.GetLevel())
	}
}
