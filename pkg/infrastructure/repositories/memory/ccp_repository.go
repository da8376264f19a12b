package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
	"github.com/vsinha/mes/pkg/domain/repositories"
)

// GetCCP returns a CCP by id
func (s *Store) GetCCP(ctx context.Context, id uuid.UUID) (*entities.CCP, error) {
	var found *entities.CCP
	s.read(func(t *tables) {
		if c, ok := t.ccps[id]; ok {
			found = clone(c)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetCCP", "ccp %s not found", id)
	}
	return found, nil
}

// GetCCPByCode returns a CCP by its unique code
func (s *Store) GetCCPByCode(ctx context.Context, code string) (*entities.CCP, error) {
	var found *entities.CCP
	s.read(func(t *tables) {
		for _, c := range t.ccps {
			if c.Code == code {
				found = clone(c)
				return
			}
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetCCPByCode", "ccp %s not found", code)
	}
	return found, nil
}

// ListCCPs returns CCPs ordered by code
func (s *Store) ListCCPs(ctx context.Context, filter repositories.CCPFilter) ([]*entities.CCP, error) {
	result := make([]*entities.CCP, 0)
	s.read(func(t *tables) {
		for _, c := range t.ccps {
			if filter.ActiveOnly && !c.IsActive {
				continue
			}
			if filter.FinishedProductID != nil && !c.AppliesTo(*filter.FinishedProductID) {
				continue
			}
			result = append(result, clone(c))
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// SaveCCP creates or replaces a CCP
func (s *Store) SaveCCP(ctx context.Context, ccp *entities.CCP) error {
	return s.write(func(t *tables) error {
		for _, c := range t.ccps {
			if c.Code == ccp.Code && c.ID != ccp.ID {
				return errs.Conflict("SaveCCP", "ccp code %s already exists", ccp.Code)
			}
		}
		s.touch(&ccp.CreatedAt, &ccp.UpdatedAt)
		t.ccps[ccp.ID] = clone(ccp)
		return nil
	})
}

// GetLog returns a CCP log by id
func (s *Store) GetLog(ctx context.Context, id uuid.UUID) (*entities.CCPLog, error) {
	var found *entities.CCPLog
	s.read(func(t *tables) {
		if l, ok := t.logs[id]; ok {
			found = clone(l)
		}
	})
	if found == nil {
		return nil, errs.NotFound("GetLog", "ccp log %s not found", id)
	}
	return found, nil
}

// FindLogs returns logs matching the filter, ordered by measured_at then id
func (s *Store) FindLogs(ctx context.Context, filter repositories.CCPLogFilter) ([]*entities.CCPLog, error) {
	result := make([]*entities.CCPLog, 0)
	s.read(func(t *tables) {
		for _, l := range t.logs {
			if matchLog(l, filter) {
				result = append(result, clone(l))
			}
		}
	})

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.MeasuredAt.Equal(b.MeasuredAt) {
			if filter.NewestFirst {
				return a.MeasuredAt.After(b.MeasuredAt)
			}
			return a.MeasuredAt.Before(b.MeasuredAt)
		}
		return idLess(a.ID, b.ID)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CountLogs counts logs matching the filter, ignoring its limit
func (s *Store) CountLogs(ctx context.Context, filter repositories.CCPLogFilter) (int64, error) {
	var n int64
	s.read(func(t *tables) {
		for _, l := range t.logs {
			if matchLog(l, filter) {
				n++
			}
		}
	})
	return n, nil
}

// CreateLog appends a new log
func (s *Store) CreateLog(ctx context.Context, log *entities.CCPLog) error {
	return s.write(func(t *tables) error {
		if _, exists := t.logs[log.ID]; exists {
			return errs.Conflict("CreateLog", "ccp log %s already exists", log.ID)
		}
		if _, ok := t.ccps[log.CCPID]; !ok {
			return errs.NotFound("CreateLog", "ccp %s not found", log.CCPID)
		}
		s.touch(&log.CreatedAt, &log.UpdatedAt)
		t.logs[log.ID] = clone(log)
		return nil
	})
}

// UpdateLog stores resolution metadata. Anything else is an InvariantViolation.
func (s *Store) UpdateLog(ctx context.Context, log *entities.CCPLog) error {
	return s.write(func(t *tables) error {
		existing, ok := t.logs[log.ID]
		if !ok {
			return errs.NotFound("UpdateLog", "ccp log %s not found", log.ID)
		}
		if err := existing.CheckRevision(log); err != nil {
			return errs.InvariantViolation("UpdateLog", "%v", err)
		}
		log.CreatedAt = existing.CreatedAt
		s.touch(nil, &log.UpdatedAt)
		t.logs[log.ID] = clone(log)
		return nil
	})
}

func matchLog(l *entities.CCPLog, f repositories.CCPLogFilter) bool {
	if len(f.IDs) > 0 && !contains(f.IDs, l.ID) {
		return false
	}
	if f.CCPID != nil && l.CCPID != *f.CCPID {
		return false
	}
	if f.ProductionOrderID != nil && (l.ProductionOrderID == nil || *l.ProductionOrderID != *f.ProductionOrderID) {
		return false
	}
	if f.CreatedBy != nil && l.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.MeasuredFrom != nil && l.MeasuredAt.Before(*f.MeasuredFrom) {
		return false
	}
	if f.MeasuredTo != nil && l.MeasuredAt.After(*f.MeasuredTo) {
		return false
	}
	if f.WithinLimits != nil && l.IsWithinLimits != *f.WithinLimits {
		return false
	}
	if f.Verified != nil && l.Verified() != *f.Verified {
		return false
	}
	if f.HasCorrective != nil && l.HasCorrectiveAction() != *f.HasCorrective {
		return false
	}
	return true
}
