package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vsinha/mes/pkg/domain/entities"
)

func TestBOMValidator_ValidBOM(t *testing.T) {
	product := uuid.New()
	flour := &entities.RawMaterial{ID: uuid.New(), Code: "RM-FLOUR", IsActive: true}
	sugar := &entities.RawMaterial{ID: uuid.New(), Code: "RM-SUGAR", IsActive: true}
	materials := map[uuid.UUID]*entities.RawMaterial{flour.ID: flour, sugar.ID: sugar}

	lines := []*entities.BOMLine{
		{ID: uuid.New(), FinishedProductID: product, RawMaterialID: flour.ID, QuantityPerUnit: decimal.NewFromInt(2), IsActive: true},
		{ID: uuid.New(), FinishedProductID: product, RawMaterialID: sugar.ID, QuantityPerUnit: d("0.5"), IsActive: true},
	}

	result := NewBOMValidator().ValidateBOM(lines, materials)
	if !result.Valid() {
		t.Errorf("Expected valid BOM, got errors %v", result.Errors)
	}
}

func TestBOMValidator_DetectsProblems(t *testing.T) {
	product := uuid.New()
	flour := &entities.RawMaterial{ID: uuid.New(), Code: "RM-FLOUR", IsActive: true}
	retired := &entities.RawMaterial{ID: uuid.New(), Code: "RM-OLD", IsActive: false}
	materials := map[uuid.UUID]*entities.RawMaterial{flour.ID: flour, retired.ID: retired}

	lines := []*entities.BOMLine{
		{ID: uuid.New(), FinishedProductID: product, RawMaterialID: flour.ID, QuantityPerUnit: decimal.NewFromInt(1), IsActive: true},
		{ID: uuid.New(), FinishedProductID: product, RawMaterialID: flour.ID, QuantityPerUnit: decimal.NewFromInt(1), IsActive: true},
		{ID: uuid.New(), FinishedProductID: product, RawMaterialID: retired.ID, QuantityPerUnit: decimal.NewFromInt(1), IsActive: true},
		{ID: uuid.New(), FinishedProductID: product, RawMaterialID: uuid.New(), QuantityPerUnit: decimal.NewFromInt(1), IsActive: true},
	}

	result := NewBOMValidator().ValidateBOM(lines, materials)

	if len(result.DuplicateLines) != 2 {
		t.Errorf("Expected 2 duplicate lines, got %d", len(result.DuplicateLines))
	}
	if len(result.InactiveMaterials) != 1 || result.InactiveMaterials[0] != "RM-OLD" {
		t.Errorf("Expected inactive material RM-OLD, got %v", result.InactiveMaterials)
	}
	if len(result.MissingMaterials) != 1 {
		t.Errorf("Expected 1 missing material, got %d", len(result.MissingMaterials))
	}
	if result.Valid() {
		t.Errorf("Expected invalid BOM")
	}
}

func TestBOMValidator_NoActiveLines(t *testing.T) {
	lines := []*entities.BOMLine{{ID: uuid.New(), IsActive: false, QuantityPerUnit: decimal.NewFromInt(1)}}
	result := NewBOMValidator().ValidateBOM(lines, nil)
	if result.Valid() {
		t.Errorf("Expected BOM without active lines to be invalid")
	}
}
