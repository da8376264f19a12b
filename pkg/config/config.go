package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// Settings holds all configuration for the application. Engines receive it by value.
type Settings struct {
	HACCP      HACCPConfig
	Costing    CostingConfig
	Production ProductionConfig
	Supplier   SupplierConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Events     EventsConfig
	HTTP       HTTPConfig
	Log        LogConfig
}

// HACCPConfig holds monitoring thresholds
type HACCPConfig struct {
	DuplicateWindow            time.Duration
	VerificationRequiredAfter  time.Duration
	AlertWindow                time.Duration
	ConsecutiveDetectionWindow time.Duration
	ConsecutiveThreshold       int
	ComplianceWeight           decimal.Decimal
	VerificationWeight         decimal.Decimal
}

// CostingConfig holds price fallback settings
type CostingConfig struct {
	RecentPriceWindow time.Duration
}

// ProductionConfig holds production order rules
type ProductionConfig struct {
	OverproductionTolerance decimal.Decimal
	MaxConcurrentOrders     int
	AllocationRetries       int
	LockTTL                 time.Duration
}

// SupplierConfig holds supplier evaluation windows and thresholds
type SupplierConfig struct {
	EvaluationWindow      time.Duration
	FreshShelfLifeRatio   decimal.Decimal
	DefaultShelfLifeDays  int
	RecentDeliveryWindow  time.Duration
	LowFrequencyThreshold int
	QualityLookback       time.Duration
	StaleAfter            time.Duration
	ComplianceFreshness   time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds the distributed lock backend address. Empty disables it.
type RedisConfig struct {
	Address string
}

// Enabled reports whether a Redis address is configured
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// EventsConfig bounds the in-process event journal
type EventsConfig struct {
	Capacity int
}

// HTTPConfig holds API server configuration
type HTTPConfig struct {
	Port      string
	JWTSecret string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// Default returns the built-in settings
func Default() Settings {
	return Settings{
		HACCP: HACCPConfig{
			DuplicateWindow:            time.Minute,
			VerificationRequiredAfter:  72 * time.Hour,
			AlertWindow:                24 * time.Hour,
			ConsecutiveDetectionWindow: 12 * time.Hour,
			ConsecutiveThreshold:       3,
			ComplianceWeight:           decimal.RequireFromString("0.7"),
			VerificationWeight:         decimal.RequireFromString("0.3"),
		},
		Costing: CostingConfig{
			RecentPriceWindow: 30 * day,
		},
		Production: ProductionConfig{
			OverproductionTolerance: decimal.RequireFromString("1.10"),
			MaxConcurrentOrders:     5,
			AllocationRetries:       3,
			LockTTL:                 30 * time.Second,
		},
		Supplier: SupplierConfig{
			EvaluationWindow:      90 * day,
			FreshShelfLifeRatio:   decimal.RequireFromString("0.8"),
			DefaultShelfLifeDays:  365,
			RecentDeliveryWindow:  60 * day,
			LowFrequencyThreshold: 3,
			QualityLookback:       90 * day,
			StaleAfter:            365 * day,
			ComplianceFreshness:   180 * day,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			DBName:       "mes",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 10,
		},
		Events: EventsConfig{
			Capacity: 10000,
		},
		HTTP: HTTPConfig{
			Port: "8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .env files (missing files are ignored) and applies environment overrides to Default
func Load(envFiles ...string) (Settings, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Settings{}, fmt.Errorf("loading %s: %w", f, err)
			}
		}
	}
	if len(envFiles) == 0 {
		// It's okay if .env doesn't exist
		_ = godotenv.Load()
	}

	s := Default()
	p := &envParser{}

	p.duration("MES_DUPLICATE_WINDOW", &s.HACCP.DuplicateWindow)
	p.duration("MES_VERIFICATION_REQUIRED_AFTER", &s.HACCP.VerificationRequiredAfter)
	p.duration("MES_ALERT_WINDOW", &s.HACCP.AlertWindow)
	p.duration("MES_CONSECUTIVE_WINDOW", &s.HACCP.ConsecutiveDetectionWindow)
	p.integer("MES_CONSECUTIVE_THRESHOLD", &s.HACCP.ConsecutiveThreshold)
	p.decimal("MES_COMPLIANCE_WEIGHT", &s.HACCP.ComplianceWeight)
	p.decimal("MES_VERIFICATION_WEIGHT", &s.HACCP.VerificationWeight)

	p.duration("MES_RECENT_PRICE_WINDOW", &s.Costing.RecentPriceWindow)

	p.decimal("MES_OVERPRODUCTION_TOLERANCE", &s.Production.OverproductionTolerance)
	p.integer("MES_MAX_CONCURRENT_ORDERS", &s.Production.MaxConcurrentOrders)
	p.integer("MES_ALLOCATION_RETRIES", &s.Production.AllocationRetries)
	p.duration("MES_LOCK_TTL", &s.Production.LockTTL)

	p.duration("MES_SUPPLIER_EVALUATION_WINDOW", &s.Supplier.EvaluationWindow)
	p.decimal("MES_FRESH_SHELF_LIFE_RATIO", &s.Supplier.FreshShelfLifeRatio)
	p.integer("MES_DEFAULT_SHELF_LIFE_DAYS", &s.Supplier.DefaultShelfLifeDays)
	p.duration("MES_RECENT_DELIVERY_WINDOW", &s.Supplier.RecentDeliveryWindow)
	p.integer("MES_LOW_FREQUENCY_THRESHOLD", &s.Supplier.LowFrequencyThreshold)
	p.duration("MES_QUALITY_LOOKBACK", &s.Supplier.QualityLookback)
	p.duration("MES_SUPPLIER_STALE_AFTER", &s.Supplier.StaleAfter)
	p.duration("MES_COMPLIANCE_FRESHNESS", &s.Supplier.ComplianceFreshness)

	p.str("DB_DRIVER", &s.Database.Driver)
	p.str("DB_HOST", &s.Database.Host)
	p.str("DB_PORT", &s.Database.Port)
	p.str("DB_USER", &s.Database.User)
	p.str("DB_PASSWORD", &s.Database.Password)
	p.str("DB_NAME", &s.Database.DBName)
	p.str("DB_SSLMODE", &s.Database.SSLMode)
	p.integer("DB_MAX_OPEN_CONNS", &s.Database.MaxOpenConns)
	p.integer("DB_MAX_IDLE_CONNS", &s.Database.MaxIdleConns)

	p.str("REDIS_ADDRESS", &s.Redis.Address)
	p.integer("MES_EVENT_CAPACITY", &s.Events.Capacity)
	p.str("APP_PORT", &s.HTTP.Port)
	p.str("JWT_SECRET", &s.HTTP.JWTSecret)
	p.str("LOG_LEVEL", &s.Log.Level)
	p.str("LOG_FORMAT", &s.Log.Format)

	if len(p.errs) > 0 {
		return Settings{}, fmt.Errorf("invalid configuration: %s", strings.Join(p.errs, "; "))
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks cross-field rules
func (s Settings) Validate() error {
	switch s.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q, expected postgres or mysql", s.Database.Driver)
	}
	if s.HACCP.ConsecutiveThreshold < 1 {
		return fmt.Errorf("consecutive threshold must be at least 1, got %d", s.HACCP.ConsecutiveThreshold)
	}
	if !s.HACCP.ComplianceWeight.Add(s.HACCP.VerificationWeight).Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("compliance and verification weights must sum to 1, got %s and %s",
			s.HACCP.ComplianceWeight, s.HACCP.VerificationWeight)
	}
	if s.Production.OverproductionTolerance.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("overproduction tolerance must be at least 1, got %s", s.Production.OverproductionTolerance)
	}
	if s.Production.AllocationRetries < 1 {
		return fmt.Errorf("allocation retries must be at least 1, got %d", s.Production.AllocationRetries)
	}
	if s.Events.Capacity < 1 {
		return fmt.Errorf("event capacity must be at least 1, got %d", s.Events.Capacity)
	}
	return nil
}

// DSN returns the driver-specific connection string
func (c DatabaseConfig) DSN() string {
	if c.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type envParser struct {
	errs []string
}

func (p *envParser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *envParser) str(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *envParser) duration(key string, dst *time.Duration) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not a positive duration", key, v))
		return
	}
	*dst = parsed
}

func (p *envParser) integer(key string, dst *int) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not an integer", key, v))
		return
	}
	*dst = parsed
}

func (p *envParser) decimal(key string, dst *decimal.Decimal) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	parsed, err := decimal.NewFromString(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s=%q is not a number", key, v))
		return
	}
	*dst = parsed
}
