package services

import (
	"strings"

	"github.com/vsinha/mes/pkg/domain/entities"
	"github.com/vsinha/mes/pkg/domain/errs"
)

// Action is an operation guarded by role
type Action string

const (
	ActionRecordLog         Action = "record_ccp_log"
	ActionResolveLog        Action = "resolve_ccp_log"
	ActionVerifyLog         Action = "verify_ccp_log"
	ActionViewAlerts        Action = "view_alerts"
	ActionViewCompliance    Action = "view_compliance_report"
	ActionManageCCP         Action = "manage_ccp"
	ActionRegisterSupplier  Action = "register_supplier"
	ActionSupplierStats     Action = "supplier_statistics"
	ActionScheduleAudit     Action = "schedule_supplier_audit"
	ActionCreateOrder       Action = "create_production_order"
	ActionOperateProduction Action = "operate_production"
	ActionAllocateMaterial  Action = "allocate_material"
)

var (
	qualityRoles    = []entities.Role{entities.RoleAdmin, entities.RoleQualityManager}
	floorRoles      = []entities.Role{entities.RoleAdmin, entities.RoleQualityManager, entities.RoleOperator}
	planningRoles   = []entities.Role{entities.RoleAdmin, entities.RoleQualityManager, entities.RoleProductionManager}
	actionAllowance = map[Action][]entities.Role{
		ActionRecordLog:         floorRoles,
		ActionResolveLog:        floorRoles,
		ActionVerifyLog:         qualityRoles,
		ActionViewAlerts:        qualityRoles,
		ActionViewCompliance:    qualityRoles,
		ActionManageCCP:         qualityRoles,
		ActionRegisterSupplier:  qualityRoles,
		ActionSupplierStats:     qualityRoles,
		ActionScheduleAudit:     qualityRoles,
		ActionCreateOrder:       planningRoles,
		ActionOperateProduction: floorRoles,
		ActionAllocateMaterial:  planningRoles,
	}
)

// Authorize fails with PermissionDenied unless the actor's role may perform action
func Authorize(actor entities.Actor, action Action) error {
	if actor.HasRole(actionAllowance[action]...) {
		return nil
	}
	return errs.PermissionDenied(string(action), "role %q may not %s", actor.Role, strings.ReplaceAll(string(action), "_", " "))
}

// ResourceKind names a kind of record exposed by list operations
type ResourceKind string

const (
	ResourceCCPLog          ResourceKind = "ccp_log"
	ResourceCCP             ResourceKind = "ccp"
	ResourceProductionOrder ResourceKind = "production_order"
	ResourceSupplier        ResourceKind = "supplier"
)

// CanAccess is the row-level visibility rule shared by every listing
func CanAccess(actor entities.Actor, kind ResourceKind, instance any) bool {
	switch kind {
	case ResourceCCPLog:
		log, ok := instance.(*entities.CCPLog)
		if !ok {
			return false
		}
		switch actor.Role {
		case entities.RoleAdmin, entities.RoleQualityManager:
			return true
		case entities.RoleOperator:
			return log.CreatedBy == actor.ID
		}

	case ResourceCCP:
		ccp, ok := instance.(*entities.CCP)
		if !ok || !ccp.IsActive {
			return false
		}
		switch actor.Role {
		case entities.RoleAdmin, entities.RoleQualityManager:
			return true
		case entities.RoleOperator:
			return actor.Username != "" &&
				strings.Contains(strings.ToLower(ccp.ResponsiblePerson), strings.ToLower(actor.Username))
		}

	case ResourceProductionOrder:
		order, ok := instance.(*entities.ProductionOrder)
		if !ok {
			return false
		}
		switch actor.Role {
		case entities.RoleAdmin, entities.RoleQualityManager, entities.RoleProductionManager:
			return true
		case entities.RoleOperator:
			return order.AssignedOperatorID != nil && *order.AssignedOperatorID == actor.ID
		}

	case ResourceSupplier:
		supplier, ok := instance.(*entities.Supplier)
		if !ok {
			return false
		}
		switch actor.Role {
		case entities.RoleAdmin, entities.RoleQualityManager:
			return true
		case entities.RoleOperator:
			return supplier.Status == entities.SupplierActive
		}
	}
	return false
}
