package errs

import (
	"errors"
	"strings"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnavailable marks a counter or store that could not be reached.
	ErrUnavailable = errors.New("unavailable")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
)

// FieldError describes one invalid request field.
type FieldError struct {
	Param string `json:"param"`
	Msg   string `json:"msg"`
	Value any    `json:"value"`
}

// ValidationErrors accumulates every invalid field of a request.
// errors.Is(v, ErrInvalid) reports true.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "invalid"
	}
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Param+": "+fe.Msg)
	}
	return "invalid: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool { return target == ErrInvalid }

// Add appends a field error.
func (v *ValidationErrors) Add(param, msg string, value any) {
	*v = append(*v, FieldError{Param: param, Msg: msg, Value: value})
}

// Merge appends other, skipping params that already carry an error.
func (v *ValidationErrors) Merge(other ValidationErrors) {
	for _, fe := range other {
		dup := false
		for _, have := range *v {
			if have.Param == fe.Param {
				dup = true
				break
			}
		}
		if !dup {
			*v = append(*v, fe)
		}
	}
}

// Err returns nil when nothing was accumulated.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// Field builds a single-field validation error.
func Field(param, msg string, value any) error {
	return ValidationErrors{{Param: param, Msg: msg, Value: value}}
}

// AsValidation extracts accumulated field errors from err, if any.
func AsValidation(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }
