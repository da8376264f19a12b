package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vsinha/mes/pkg/domain/entities"
)

// BOMValidator checks that a product's bill of materials can drive production
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	DuplicateLines    []*entities.BOMLine
	MissingMaterials  []uuid.UUID
	InactiveMaterials []string
	Errors            []string
}

// Valid reports whether no problem was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM validates the active lines of one product against the material catalog
func (v *BOMValidator) ValidateBOM(lines []*entities.BOMLine, materials map[uuid.UUID]*entities.RawMaterial) *ValidationResult {
	result := &ValidationResult{
		DuplicateLines:    make([]*entities.BOMLine, 0),
		MissingMaterials:  make([]uuid.UUID, 0),
		InactiveMaterials: make([]string, 0),
		Errors:            make([]string, 0),
	}

	active := make([]*entities.BOMLine, 0, len(lines))
	for _, line := range lines {
		if line.IsActive {
			active = append(active, line)
		}
	}
	if len(active) == 0 {
		result.Errors = append(result.Errors, "product has no active BOM lines")
		return result
	}

	result.DuplicateLines = v.detectDuplicateLines(active)
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	for _, line := range active {
		if line.QuantityPerUnit.Sign() <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("BOM line %s has non-positive quantity %s", line.ID, line.QuantityPerUnit))
		}

		material, ok := materials[line.RawMaterialID]
		if !ok {
			result.MissingMaterials = append(result.MissingMaterials, line.RawMaterialID)
			result.Errors = append(result.Errors, fmt.Sprintf("BOM references unknown material %s", line.RawMaterialID))
			continue
		}
		if !material.IsActive {
			result.InactiveMaterials = append(result.InactiveMaterials, material.Code)
			result.Errors = append(result.Errors, fmt.Sprintf("BOM references inactive material %s", material.Code))
		}
	}

	return result
}

// detectDuplicateLines finds lines repeating the same (product, material) pair
func (v *BOMValidator) detectDuplicateLines(lines []*entities.BOMLine) []*entities.BOMLine {
	seen := make(map[string]*entities.BOMLine)
	duplicates := make([]*entities.BOMLine, 0)

	for _, line := range lines {
		key := fmt.Sprintf("%s|%s", line.FinishedProductID, line.RawMaterialID)
		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, line, existing)
		} else {
			seen[key] = line
		}
	}

	return duplicates
}
