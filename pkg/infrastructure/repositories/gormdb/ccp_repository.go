package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
	"gorm.io/gorm"
)

// GetCCP returns a CCP by id
func (s *Store) GetCCP(ctx context.Context, id uuid.UUID) (*entities.CCP, error) {
	var ccp entities.CCP
	if err := s.conn(ctx).First(&ccp, "id = ?", id).Error; err != nil {
		return nil, translate("GetCCP", err, "ccp", id)
	}
	return &ccp, nil
}

// GetCCPByCode returns a CCP by its unique code
func (s *Store) GetCCPByCode(ctx context.Context, code string) (*entities.CCP, error) {
	var ccp entities.CCP
	if err := s.conn(ctx).First(&ccp, "code = ?", code).Error; err != nil {
		return nil, translate("GetCCPByCode", err, "ccp", code)
	}
	return &ccp, nil
}

func ccpQuery(db *gorm.DB, filter repositories.CCPFilter) *gorm.DB {
	q := db.Model(&entities.CCP{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.FinishedProductID != nil {
		q = q.Where("finished_product_id IS NULL OR finished_product_id = ?", *filter.FinishedProductID)
	}
	return q.Order("code ASC")
}

// ListCCPs returns CCPs ordered by code
func (s *Store) ListCCPs(ctx context.Context, filter repositories.CCPFilter) ([]*entities.CCP, error) {
	result := make([]*entities.CCP, 0)
	if err := ccpQuery(s.conn(ctx), filter).Find(&result).Error; err != nil {
		return nil, errs.Wrap("ListCCPs", err)
	}
	return result, nil
}

// SaveCCP creates or replaces a CCP
func (s *Store) SaveCCP(ctx context.Context, ccp *entities.CCP) error {
	taken, err := s.taken(ctx, &entities.CCP{}, "code", ccp.Code, ccp.ID)
	if err != nil {
		return errs.Wrap("SaveCCP", err)
	}
	if taken {
		return errs.Conflict("SaveCCP", "ccp code %s already exists", ccp.Code)
	}
	s.stamp(&ccp.CreatedAt, &ccp.UpdatedAt)
	return translate("SaveCCP", s.conn(ctx).Save(ccp).Error, "ccp", ccp.Code)
}

// GetLog returns a CCP log by id
func (s *Store) GetLog(ctx context.Context, id uuid.UUID) (*entities.CCPLog, error) {
	var log entities.CCPLog
	if err := s.conn(ctx).First(&log, "id = ?", id).Error; err != nil {
		return nil, translate("GetLog", err, "ccp log", id)
	}
	return &log, nil
}

func logQuery(db *gorm.DB, f repositories.CCPLogFilter) *gorm.DB {
	q := db.Model(&entities.CCPLog{})
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if f.CCPID != nil {
		q = q.Where("ccp_id = ?", *f.CCPID)
	}
	if f.ProductionOrderID != nil {
		q = q.Where("production_order_id = ?", *f.ProductionOrderID)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by = ?", *f.CreatedBy)
	}
	if f.MeasuredFrom != nil {
		q = q.Where("measured_at >= ?", *f.MeasuredFrom)
	}
	if f.MeasuredTo != nil {
		q = q.Where("measured_at <= ?", *f.MeasuredTo)
	}
	if f.WithinLimits != nil {
		q = q.Where("is_within_limits = ?", *f.WithinLimits)
	}
	if f.Verified != nil {
		if *f.Verified {
			q = q.Where("verified_by IS NOT NULL")
		} else {
			q = q.Where("verified_by IS NULL")
		}
	}
	if f.HasCorrective != nil {
		if *f.HasCorrective {
			q = q.Where("TRIM(COALESCE(corrective_action_taken, '')) <> ''")
		} else {
			q = q.Where("TRIM(COALESCE(corrective_action_taken, '')) = ''")
		}
	}
	return q
}

// FindLogs returns logs matching the filter, ordered by measured_at then id
func (s *Store) FindLogs(ctx context.Context, filter repositories.CCPLogFilter) ([]*entities.CCPLog, error) {
	q := logQuery(s.conn(ctx), filter)
	if filter.NewestFirst {
		q = q.Order("measured_at DESC")
	} else {
		q = q.Order("measured_at ASC")
	}
	q = q.Order("id ASC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	result := make([]*entities.CCPLog, 0)
	if err := q.Find(&result).Error; err != nil {
		return nil, errs.Wrap("FindLogs", err)
	}
	return result, nil
}

// CountLogs counts logs matching the filter, ignoring its limit
func (s *Store) CountLogs(ctx context.Context, filter repositories.CCPLogFilter) (int64, error) {
	var n int64
	if err := logQuery(s.conn(ctx), filter).Count(&n).Error; err != nil {
		return 0, errs.Wrap("CountLogs", err)
	}
	return n, nil
}

// CreateLog appends a new log
func (s *Store) CreateLog(ctx context.Context, log *entities.CCPLog) error {
	if _, err := s.GetCCP(ctx, log.CCPID); err != nil {
		return err
	}
	s.stamp(&log.CreatedAt, &log.UpdatedAt)
	return translate("CreateLog", s.conn(ctx).Create(log).Error, "ccp log", log.ID)
}

// UpdateLog stores resolution metadata. Anything else is an InvariantViolation.
func (s *Store) UpdateLog(ctx context.Context, log *entities.CCPLog) error {
	return s.Atomic(ctx, func(ctx context.Context, tx repositories.Store) error {
		existing, err := tx.GetLog(ctx, log.ID)
		if err != nil {
			return err
		}
		if err := reviseLog(existing, log); err != nil {
			return err
		}
		store := tx.(*Store)
		store.stamp(nil, &log.UpdatedAt)
		return translate("UpdateLog", store.conn(ctx).Save(log).Error, "ccp log", log.ID)
	})
}

// reviseLog accepts log as the next version of existing and keeps its creation time
func reviseLog(existing, log *entities.CCPLog) error {
	if err := existing.CheckRevision(log); err != nil {
		return errs.InvariantViolation("UpdateLog", "%v", err)
	}
	log.CreatedAt = existing.CreatedAt
	return nil
}
