package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestError_IsMatchesKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		match  bool
	}{
		{"not found", NotFound("GetCCP", "ccp %s not found", "CCP-1"), ErrNotFound, true},
		{"validation vs not found", Validation("Validate", "future measurement"), ErrNotFound, false},
		{"wrapped permission", fmt.Errorf("handler: %w", PermissionDenied("DetectAlerts", "role operator")), ErrPermissionDenied, true},
		{"conflict", Conflict("ConsumeLot", "lot changed"), ErrConflict, true},
		{"plain error", errors.New("boom"), ErrValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.match {
				t.Errorf("Expected errors.Is = %v, got %v", tt.match, got)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", Inactive("Allocate", "material RM-1 is inactive"))
	if KindOf(err) != KindInactive {
		t.Errorf("Expected kind Inactive, got %s", KindOf(err))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Errorf("Expected kind Unknown for plain errors")
	}
}

func TestInsufficientMaterial_CarriesShortfalls(t *testing.T) {
	err := InsufficientMaterial("Allocate", []Shortfall{
		{MaterialCode: "RM-FLOUR", Required: decimal.NewFromInt(120), Available: decimal.NewFromInt(100)},
	})

	if !errors.Is(err, ErrInsufficientMaterial) {
		t.Fatalf("Expected InsufficientMaterial, got %v", err)
	}

	shortfalls := ShortfallsOf(err)
	if len(shortfalls) != 1 {
		t.Fatalf("Expected 1 shortfall, got %d", len(shortfalls))
	}
	if !shortfalls[0].Missing().Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected missing 20, got %s", shortfalls[0].Missing())
	}
	if !strings.Contains(err.Error(), "RM-FLOUR") {
		t.Errorf("Expected message to name the material, got %q", err.Error())
	}
}

func TestWrap_KeepsKind(t *testing.T) {
	original := NotFound("GetLot", "lot missing")
	if got := Wrap("Allocate", original); KindOf(got) != KindNotFound {
		t.Errorf("Expected wrapped kind NotFound, got %s", KindOf(got))
	}

	storageErr := Wrap("FindLots", errors.New("connection reset"))
	if KindOf(storageErr) != KindUnknown {
		t.Errorf("Expected storage failure kind Unknown, got %s", KindOf(storageErr))
	}
	if Wrap("noop", nil) != nil {
		t.Errorf("Expected nil for nil error")
	}
}
