package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a failure so callers can render an actionable message
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInactive
	KindPermissionDenied
	KindValidation
	KindInsufficientMaterial
	KindInvariantViolation
	KindConflict
)

// String method for Kind enum
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInactive:
		return "Inactive"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindValidation:
		return "ValidationError"
	case KindInsufficientMaterial:
		return "InsufficientMaterial"
	case KindInvariantViolation:
		return "InvariantViolation"
	case KindConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is matching by kind
var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInactive             = &Error{Kind: KindInactive}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInsufficientMaterial = &Error{Kind: KindInsufficientMaterial}
	ErrInvariantViolation   = &Error{Kind: KindInvariantViolation}
	ErrConflict             = &Error{Kind: KindConflict}
)

// Shortfall reports how much of a material an allocation could not cover
type Shortfall struct {
	MaterialCode string          `json:"material_code"`
	Required     decimal.Decimal `json:"required"`
	Available    decimal.Decimal `json:"available"`
}

// Missing returns the uncovered quantity
func (s Shortfall) Missing() decimal.Decimal {
	return s.Required.Sub(s.Available)
}

// Error is the single error type returned by the core operations
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	Shortfalls []Shortfall
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	for _, s := range e.Shortfalls {
		fmt.Fprintf(&b, " [%s required=%s available=%s]", s.MaterialCode, s.Required.String(), s.Available.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ShortfallsOf returns shortfall details carried by an InsufficientMaterial error
func ShortfallsOf(err error) []Shortfall {
	var e *Error
	if errors.As(err, &e) {
		return e.Shortfalls
	}
	return nil
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, format string, args ...any) error {
	return newf(KindNotFound, op, format, args...)
}

func Inactive(op, format string, args ...any) error {
	return newf(KindInactive, op, format, args...)
}

func PermissionDenied(op, format string, args ...any) error {
	return newf(KindPermissionDenied, op, format, args...)
}

func Validation(op, format string, args ...any) error {
	return newf(KindValidation, op, format, args...)
}

func InvariantViolation(op, format string, args ...any) error {
	return newf(KindInvariantViolation, op, format, args...)
}

func Conflict(op, format string, args ...any) error {
	return newf(KindConflict, op, format, args...)
}

// InsufficientMaterial reports every material that cannot be covered
func InsufficientMaterial(op string, shortfalls []Shortfall) error {
	codes := make([]string, 0, len(shortfalls))
	for _, s := range shortfalls {
		codes = append(codes, s.MaterialCode)
	}
	return &Error{
		Kind:       KindInsufficientMaterial,
		Op:         op,
		Message:    fmt.Sprintf("insufficient material: %s", strings.Join(codes, ", ")),
		Shortfalls: shortfalls,
	}
}

// Wrap attaches an operation name to a storage or infrastructure error.
// Errors that already carry a kind keep it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindUnknown, Op: op, Message: "storage failure", Err: err}
}
