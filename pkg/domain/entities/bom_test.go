package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestBOMLine_Validation(t *testing.T) {
	product, material := uuid.New(), uuid.New()

	line, err := NewBOMLine(product, material, decimal.RequireFromString("0.25"), "kg")
	if err != nil {
		t.Fatalf("Expected valid BOM line creation to succeed: %v", err)
	}
	if !line.IsActive {
		t.Errorf("Expected new BOM line to be active")
	}

	testCases := []struct {
		name        string
		product     uuid.UUID
		material    uuid.UUID
		qty         decimal.Decimal
		unit        string
		expectError string
	}{
		{"no product", uuid.Nil, material, decimal.NewFromInt(1), "kg", "finished product cannot be empty"},
		{"no material", product, uuid.Nil, decimal.NewFromInt(1), "kg", "raw material cannot be empty"},
		{"zero quantity", product, material, decimal.Zero, "kg", "quantity per unit must be positive, got 0"},
		{"negative quantity", product, material, decimal.NewFromInt(-2), "kg", "quantity per unit must be positive, got -2"},
		{"empty unit", product, material, decimal.NewFromInt(1), "", "unit cannot be empty"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBOMLine(tc.product, tc.material, tc.qty, tc.unit)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestBOMLine_RequiredQuantity(t *testing.T) {
	line, err := NewBOMLine(uuid.New(), uuid.New(), decimal.RequireFromString("0.25"), "kg")
	if err != nil {
		t.Fatalf("Expected valid BOM line: %v", err)
	}

	got := line.RequiredQuantity(decimal.NewFromInt(60))
	if !got.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected required quantity 15, got %s", got)
	}
}
