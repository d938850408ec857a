package generator

import (
	"errors"
	"fmt"
)

// GenerationError represents an error detected while generating rows.
//
// Generation errors include:
//   - Build failure: the profile could not be built into decision trees
//   - Walk failure: a branch hit an unsupported restriction combination or
//     a merge conflict
//   - Cancellation: the context ended the run
type GenerationError struct {
	// Code identifies the error category.
	Code GenerationErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run.
	RunID string

	// Branch is the index of the branch being walked, or -1.
	Branch int

	// Violated names the negated rule in violating mode.
	Violated string

	// Err is the underlying cause.
	Err error
}

// GenerationErrorCode categorizes generation errors.
type GenerationErrorCode string

const (
	// ErrCodeBuildFailed indicates the profile could not be built.
	ErrCodeBuildFailed GenerationErrorCode = "BUILD_FAILED"

	// ErrCodeWalkFailed indicates a branch could not be walked.
	ErrCodeWalkFailed GenerationErrorCode = "WALK_FAILED"

	// ErrCodeCancelled indicates the context was cancelled mid-run.
	ErrCodeCancelled GenerationErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.RunID != "" && e.Branch >= 0:
		msg = fmt.Sprintf("%s (run=%s, branch=%d)", msg, e.RunID, e.Branch)
	case e.RunID != "":
		msg = fmt.Sprintf("%s (run=%s)", msg, e.RunID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

func isCode(err error, code GenerationErrorCode) bool {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsBuildError returns true if the profile could not be built.
// Uses errors.As to handle wrapped errors.
func IsBuildError(err error) bool { return isCode(err, ErrCodeBuildFailed) }

// IsWalkError returns true if a branch could not be walked.
func IsWalkError(err error) bool { return isCode(err, ErrCodeWalkFailed) }

// IsCancelled returns true if the run was cancelled.
func IsCancelled(err error) bool { return isCode(err, ErrCodeCancelled) }
