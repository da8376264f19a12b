package entities

import "github.com/google/uuid"

// Role is the authorization role carried by a caller identity
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleQualityManager    Role = "quality_manager"
	RoleProductionManager Role = "production_manager"
	RoleOperator          Role = "operator"
	RoleAuditor           Role = "auditor"
)

// Valid reports whether the role is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleQualityManager, RoleProductionManager, RoleOperator, RoleAuditor:
		return true
	default:
		return false
	}
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}

// HasRole reports whether the actor holds any of the given roles
func (a Actor) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
