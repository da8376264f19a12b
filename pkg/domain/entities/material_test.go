package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMaterialLot_Validation(t *testing.T) {
	received := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	before := received.AddDate(0, 0, -1)

	lot, err := NewMaterialLot("LOT-1", uuid.New(), uuid.New(), received, nil, decimal.NewFromInt(100), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected valid lot creation to succeed: %v", err)
	}
	if !lot.QuantityCurrent.Equal(lot.QuantityReceived) {
		t.Errorf("Expected current quantity to start at received quantity, got %s", lot.QuantityCurrent)
	}
	if lot.Status != LotReceived {
		t.Errorf("Expected status received, got %s", lot.Status)
	}

	testCases := []struct {
		name        string
		lotNumber   string
		expiry      *time.Time
		qty         decimal.Decimal
		price       decimal.Decimal
		expectError string
	}{
		{"empty lot number", "", nil, decimal.NewFromInt(1), decimal.NewFromInt(1), "lot number cannot be empty"},
		{"zero quantity", "LOT-2", nil, decimal.Zero, decimal.NewFromInt(1), "quantity received must be positive, got 0"},
		{"negative price", "LOT-2", nil, decimal.NewFromInt(1), decimal.NewFromInt(-1), "unit price cannot be negative, got -1"},
		{"expiry before receipt", "LOT-2", &before, decimal.NewFromInt(1), decimal.NewFromInt(1), "expiry date 2025-01-31 cannot be before received date 2025-02-01"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMaterialLot(tc.lotNumber, uuid.New(), uuid.New(), received, tc.expiry, tc.qty, tc.price)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestMaterialLot_ConsumeToZeroMarksUsed(t *testing.T) {
	lot, err := NewMaterialLot("LOT-1", uuid.New(), uuid.New(), time.Now(), nil, decimal.NewFromInt(100), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected valid lot: %v", err)
	}
	lot.Status = LotInStorage

	if err := lot.Consume(decimal.NewFromInt(40)); err != nil {
		t.Fatalf("Expected partial consume to succeed: %v", err)
	}
	if lot.Status != LotInStorage {
		t.Errorf("Expected status in_storage after partial consume, got %s", lot.Status)
	}

	if err := lot.Consume(decimal.NewFromInt(60)); err != nil {
		t.Fatalf("Expected final consume to succeed: %v", err)
	}
	if !lot.QuantityCurrent.IsZero() {
		t.Errorf("Expected quantity 0, got %s", lot.QuantityCurrent)
	}
	if lot.Status != LotUsed {
		t.Errorf("Expected status used, got %s", lot.Status)
	}
}

func TestMaterialLot_ConsumeRejectsInvalidQuantities(t *testing.T) {
	lot, err := NewMaterialLot("LOT-1", uuid.New(), uuid.New(), time.Now(), nil, decimal.NewFromInt(10), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("Expected valid lot: %v", err)
	}

	for _, qty := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-1), decimal.NewFromInt(11)} {
		if err := lot.Consume(qty); err == nil {
			t.Errorf("Expected consume of %s to fail", qty)
		}
	}
	if !lot.QuantityCurrent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected rejected consumes to leave quantity 10, got %s", lot.QuantityCurrent)
	}
}

func TestMaterialLot_QualityTriState(t *testing.T) {
	lot := &MaterialLot{}
	if lot.QualityPassed() || lot.QualityFailed() {
		t.Errorf("Expected pending lot to be neither passed nor failed")
	}

	passed := true
	lot.QualityTestPassed = &passed
	if !lot.QualityPassed() {
		t.Errorf("Expected passed lot")
	}

	failed := false
	lot.QualityTestPassed = &failed
	if !lot.QualityFailed() {
		t.Errorf("Expected failed lot")
	}
}
