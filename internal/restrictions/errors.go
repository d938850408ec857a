package restrictions

import (
	"errors"
	"fmt"
)

// UnsupportedCombinationError reports two restrictions with no defined merge
// rule. It is a defect in the profile or the normaliser and must abort the
// generation run; it is never folded into Success or Unsatisfiable.
type UnsupportedCombinationError struct {
	// Field is the field being merged, when known.
	Field string

	// Left and Right describe the restrictions involved.
	Left  string
	Right string

	// Err is the underlying cause, if any.
	Err error
}

func (e *UnsupportedCombinationError) Error() string {
	msg := fmt.Sprintf("unsupported restriction combination: %s with %s", e.Left, e.Right)
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UnsupportedCombinationError) Unwrap() error { return e.Err }

// IsUnsupportedCombination reports whether err wraps an
// UnsupportedCombinationError.
func IsUnsupportedCombination(err error) bool {
	var uc *UnsupportedCombinationError
	return errors.As(err, &uc)
}

// WithField stamps the field name onto an UnsupportedCombinationError found
// in err. Other errors are returned unchanged.
func WithField(err error, field string) error {
	var uc *UnsupportedCombinationError
	if errors.As(err, &uc) && uc.Field == "" {
		stamped := *uc
		stamped.Field = field
		return &stamped
	}
	return err
}
