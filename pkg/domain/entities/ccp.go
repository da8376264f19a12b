package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CCPType is the kind of measurement taken at a critical control point
type CCPType string

const (
	CCPTemperature    CCPType = "temperature"
	CCPPH             CCPType = "ph"
	CCPTime           CCPType = "time"
	CCPPressure       CCPType = "pressure"
	CCPVisual         CCPType = "visual"
	CCPMetalDetection CCPType = "metal_detection"
	CCPWeight         CCPType = "weight"
)

// Valid reports whether t is a known CCP type
func (t CCPType) Valid() bool {
	switch t {
	case CCPTemperature, CCPPH, CCPTime, CCPPressure, CCPVisual, CCPMetalDetection, CCPWeight:
		return true
	}
	return false
}

// Numeric reports whether measurements of this type must be checked against a limit
func (t CCPType) Numeric() bool {
	switch t {
	case CCPTemperature, CCPPH, CCPPressure, CCPWeight:
		return true
	}
	return false
}

// Limits are the critical limits of a CCP. Either bound may be absent.
type Limits struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// CCP is a critical control point definition
type CCP struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Code                string           `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name                string           `gorm:"size:200;not null" json:"name"`
	Type                CCPType          `gorm:"size:20;not null" json:"ccp_type"`
	Description         string           `gorm:"type:text" json:"description"`
	ProcessStep         string           `gorm:"size:100" json:"process_step"`
	CriticalLimitMin    *decimal.Decimal `gorm:"type:decimal(10,3)" json:"critical_limit_min,omitempty"`
	CriticalLimitMax    *decimal.Decimal `gorm:"type:decimal(10,3)" json:"critical_limit_max,omitempty"`
	MonitoringFrequency string           `gorm:"size:100" json:"monitoring_frequency"`
	CorrectiveAction    string           `gorm:"type:text" json:"corrective_action"`
	ResponsiblePerson   string           `gorm:"size:100" json:"responsible_person"`
	FinishedProductID   *uuid.UUID       `gorm:"type:uuid;index" json:"finished_product_id,omitempty"`
	IsActive            bool             `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (CCP) TableName() string { return "ccps" }

// NewCCP creates a validated, active CCP
func NewCCP(code, name string, ccpType CCPType, limitMin, limitMax *decimal.Decimal) (*CCP, error) {
	c := &CCP{
		ID:               uuid.New(),
		Code:             strings.TrimSpace(code),
		Name:             name,
		Type:             ccpType,
		CriticalLimitMin: limitMin,
		CriticalLimitMax: limitMax,
		IsActive:         true,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the definition rules of a CCP
func (c *CCP) Validate() error {
	if c.Code == "" {
		return fmt.Errorf("ccp code cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("ccp name cannot be empty")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("unknown ccp type %q", c.Type)
	}
	if c.Type.Numeric() && c.CriticalLimitMin == nil && c.CriticalLimitMax == nil {
		return fmt.Errorf("ccp type %s requires at least one critical limit", c.Type)
	}
	if c.CriticalLimitMin != nil && c.CriticalLimitMax != nil && c.CriticalLimitMin.GreaterThan(*c.CriticalLimitMax) {
		return fmt.Errorf("critical limit min %s cannot exceed max %s", c.CriticalLimitMin, c.CriticalLimitMax)
	}
	return nil
}

// Limits returns the critical limits of the CCP
func (c *CCP) Limits() Limits {
	return Limits{Min: c.CriticalLimitMin, Max: c.CriticalLimitMax}
}

// AppliesTo reports whether the CCP covers the given product. A CCP without a product covers all.
func (c *CCP) AppliesTo(productID uuid.UUID) bool {
	return c.FinishedProductID == nil || *c.FinishedProductID == productID
}
