package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/vsinha/mes/pkg/domain/errs"
)

type sample struct {
	Code string `validate:"required,max=5"`
	Unit string `validate:"required"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		input   sample
		wantErr bool
		wantIn  string
	}{
		{name: "valid", input: sample{Code: "A1", Unit: "kg"}},
		{name: "missing unit", input: sample{Code: "A1"}, wantErr: true, wantIn: "Unit failed required"},
		{name: "code too long", input: sample{Code: "ABCDEFG", Unit: "kg"}, wantErr: true, wantIn: "Code failed max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("test", tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("Expected error to mention %q, got %q", tt.wantIn, err.Error())
			}
		})
	}
}
