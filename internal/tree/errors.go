package tree

import (
	"errors"
	"fmt"
)

// BuildErrorCode categorizes tree construction errors.
type BuildErrorCode string

const (
	// ErrUndeclaredField indicates a constraint names a field the profile
	// does not declare.
	ErrUndeclaredField BuildErrorCode = "UNDECLARED_FIELD"

	// ErrInvalidConstraint indicates an atomic that cannot be compiled to a
	// restriction (bad regex, unknown standard, unsupported negation).
	ErrInvalidConstraint BuildErrorCode = "INVALID_CONSTRAINT"

	// ErrInvalidField indicates a field declaration the builder cannot type.
	ErrInvalidField BuildErrorCode = "INVALID_FIELD"
)

// BuildError reports a profile that cannot be normalised into a tree.
type BuildError struct {
	Code BuildErrorCode

	// Field is the field involved, when known.
	Field string

	// Constraint is the rendered constraint involved, when known.
	Constraint string

	Err error
}

func (e *BuildError) Error() string {
	msg := string(e.Code)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Constraint != "" {
		msg += fmt.Sprintf(" in %q", e.Constraint)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// IsUndeclaredField returns true if err reports an undeclared field.
// Uses errors.As to handle wrapped errors.
func IsUndeclaredField(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrUndeclaredField
	}
	return false
}
