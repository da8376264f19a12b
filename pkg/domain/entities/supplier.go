package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SupplierStatus represents the commercial status of a supplier
type SupplierStatus string

const (
	SupplierActive    SupplierStatus = "active"
	SupplierInactive  SupplierStatus = "inactive"
	SupplierSuspended SupplierStatus = "suspended"
)

// Supplier is a raw-material vendor
type Supplier struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string         `gorm:"size:50;not null;uniqueIndex" json:"code"`
	Name          string         `gorm:"size:200;not null" json:"name"`
	ContactPerson string         `gorm:"size:100" json:"contact_person"`
	Email         string         `gorm:"size:254;index" json:"email"`
	Phone         string         `gorm:"size:20" json:"phone"`
	Address       string         `gorm:"type:text" json:"address"`
	Certification string         `gorm:"type:text" json:"certification"`
	Status        SupplierStatus `gorm:"size:20;not null;default:active" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (Supplier) TableName() string { return "suppliers" }

// NewSupplier creates a validated Supplier in active status
func NewSupplier(code, name, email, certification string) (*Supplier, error) {
	if code == "" {
		return nil, fmt.Errorf("supplier code cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("supplier name cannot be empty")
	}

	return &Supplier{
		ID:            uuid.New(),
		Code:          code,
		Name:          name,
		Email:         email,
		Certification: certification,
		Status:        SupplierActive,
	}, nil
}

// HasHACCPCertification reports whether the certification text mentions HACCP
func (s *Supplier) HasHACCPCertification() bool {
	return strings.Contains(strings.ToUpper(s.Certification), "HACCP")
}

// HasISOCertification reports whether the certification text mentions ISO
func (s *Supplier) HasISOCertification() bool {
	return strings.Contains(strings.ToUpper(s.Certification), "ISO")
}

// ContactComplete reports whether every contact field is populated
func (s *Supplier) ContactComplete() bool {
	return s.ContactPerson != "" && s.Email != "" && s.Phone != "" && s.Address != ""
}
