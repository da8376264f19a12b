package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vsinha/mes/pkg/domain/errs"
)

var validate = validator.New()

// Struct checks the validate tags of an input struct and reports every failing field
// as a single ValidationError
func Struct(op string, input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.Validation(op, "invalid input: %v", err)
	}

	fields := FieldErrors(fieldErrs)
	parts := make([]string, 0, len(fields))
	for field, tag := range fields {
		parts = append(parts, fmt.Sprintf("%s failed %s", field, tag))
	}
	sort.Strings(parts)
	return errs.Validation(op, "invalid input: %s", strings.Join(parts, ", "))
}

// FieldErrors maps each failing field to the tag it failed
func FieldErrors(fieldErrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
