package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// CCPFilter narrows CCP listings
type CCPFilter struct {
	ActiveOnly        bool
	FinishedProductID *uuid.UUID
}

// CCPRepository provides access to CCP definitions
type CCPRepository interface {
	GetCCP(ctx context.Context, id uuid.UUID) (*entities.CCP, error)
	GetCCPByCode(ctx context.Context, code string) (*entities.CCP, error)
	ListCCPs(ctx context.Context, filter CCPFilter) ([]*entities.CCP, error)
	SaveCCP(ctx context.Context, ccp *entities.CCP) error
}

// CCPLogFilter selects monitoring logs. Time bounds are inclusive.
type CCPLogFilter struct {
	IDs               []uuid.UUID
	CCPID             *uuid.UUID
	ProductionOrderID *uuid.UUID
	CreatedBy         *uuid.UUID
	MeasuredFrom      *time.Time
	MeasuredTo        *time.Time
	WithinLimits      *bool
	Verified          *bool
	HasCorrective     *bool

	// NewestFirst orders by measured_at descending; otherwise ascending. Ties break on id.
	NewestFirst bool
	Limit       int
}

// CCPLogRepository provides append-only access to monitoring logs.
// UpdateLog must reject any change to the measurement fields with an InvariantViolation.
type CCPLogRepository interface {
	GetLog(ctx context.Context, id uuid.UUID) (*entities.CCPLog, error)
	FindLogs(ctx context.Context, filter CCPLogFilter) ([]*entities.CCPLog, error)
	CountLogs(ctx context.Context, filter CCPLogFilter) (int64, error)
	CreateLog(ctx context.Context, log *entities.CCPLog) error
	UpdateLog(ctx context.Context, log *entities.CCPLog) error
}
