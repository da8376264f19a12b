package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vsinha/mes/pkg/config"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store implements repositories.Store on a relational database through gorm.
// The mysql driver expects a server with a native uuid column type (MariaDB 10.7+).
type Store struct {
	db   *gorm.DB
	inTx bool
	now  func() time.Time
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

// Dialector picks the gorm driver for cfg.Driver
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open connects to the configured database. SQL warnings and slow queries go to logger.
func Open(cfg config.DatabaseConfig, logger logrus.FieldLogger) (*Store, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(logger),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.WithFields(logrus.Fields{"module": "gormdb", "driver": cfg.Driver, "host": cfg.Host}).Info("database connection established")
	return New(db), nil
}

// NewLogger routes gorm's SQL log through logrus
func NewLogger(logger logrus.FieldLogger) gormlogger.Interface {
	return gormlogger.New(logger.WithField("module", "gormdb"), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// New wraps an open gorm handle
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates or updates every table
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&entities.Supplier{},
		&entities.RawMaterial{},
		&entities.MaterialLot{},
		&entities.LotConsumption{},
		&entities.FinishedProduct{},
		&entities.BOMLine{},
		&entities.CCP{},
		&entities.CCPLog{},
		&entities.ProductionOrder{},
	)
}

// Close releases the connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomic runs fn in a database transaction. Nested calls join the outer transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, inTx: true, now: s.now})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// translate maps gorm errors onto the domain error kinds
func translate(op string, err error, what string, key any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NotFound(op, "%s %v not found", what, key)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.Conflict(op, "%s %v already exists", what, key)
	default:
		return errs.Wrap(op, err)
	}
}

// taken reports whether another row of model already uses value in column
func (s *Store) taken(ctx context.Context, model any, column string, value any, id any) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(model).Where(column+" = ? AND id <> ?", value, id).Count(&n).Error
	return n > 0, err
}
