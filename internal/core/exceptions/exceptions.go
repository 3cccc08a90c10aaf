// Package exceptions defines the error taxonomy shared by the metamodel and the runtime.
//
// Metamodel construction problems are collected into ValidationFailures and reported together.
// States that the adapter and memento contracts declare impossible surface as UnrecoverableError.
// Assertion failures are programming errors: they are logged and then raised as a panic.
package exceptions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnrecoverable is the sentinel matched by every UnrecoverableError
	ErrUnrecoverable = errors.New("unrecoverable")
	// ErrMetamodelInvalid is the sentinel matched by ValidationFailures
	ErrMetamodelInvalid = errors.New("metamodel is invalid")
)

// UnrecoverableError terminates the current interaction; callers must not retry it
type UnrecoverableError struct {
	Message string
	Cause   error
}

// Unrecoverable creates an UnrecoverableError with a formatted message
func Unrecoverable(format string, args ...interface{}) *UnrecoverableError {
	return &UnrecoverableError{Message: fmt.Sprintf(format, args...)}
}

// UnrecoverableWrap creates an UnrecoverableError caused by err
func UnrecoverableWrap(err error, format string, args ...interface{}) *UnrecoverableError {
	return &UnrecoverableError{Message: fmt.Sprintf(format, args...), Cause: err}
}

func (e *UnrecoverableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("unrecoverable: %s: %v", e.Message, e.Cause)
	}
	return "unrecoverable: " + e.Message
}

// Is reports whether target is ErrUnrecoverable
func (e *UnrecoverableError) Is(target error) bool {
	return target == ErrUnrecoverable
}

func (e *UnrecoverableError) Unwrap() error {
	return e.Cause
}

// IsUnrecoverable checks whether err (or anything it wraps) is unrecoverable
func IsUnrecoverable(err error) bool {
	return errors.Is(err, ErrUnrecoverable)
}

// ValidationFailure is one problem found while building or validating the metamodel
type ValidationFailure struct {
	// Origin identifies the type or member the failure belongs to, e.g. "petclinic.Owner#lastName"
	Origin  string
	Message string
}

func (f ValidationFailure) String() string {
	if f.Origin == "" {
		return f.Message
	}
	return f.Origin + ": " + f.Message
}

// ValidationFailures aggregates metamodel construction problems
type ValidationFailures struct {
	failures []ValidationFailure
}

// NewValidationFailures creates an empty aggregate
func NewValidationFailures() *ValidationFailures {
	return &ValidationFailures{}
}

// Add records a failure for origin
func (vf *ValidationFailures) Add(origin, format string, args ...interface{}) {
	vf.failures = append(vf.failures, ValidationFailure{
		Origin:  origin,
		Message: fmt.Sprintf(format, args...),
	})
}

// Merge appends all failures of other
func (vf *ValidationFailures) Merge(other *ValidationFailures) {
	if other == nil {
		return
	}
	vf.failures = append(vf.failures, other.failures...)
}

// HasFailures returns true if at least one failure was recorded
func (vf *ValidationFailures) HasFailures() bool {
	return vf != nil && len(vf.failures) > 0
}

// Count returns the number of failures
func (vf *ValidationFailures) Count() int {
	if vf == nil {
		return 0
	}
	return len(vf.failures)
}

// Failures returns the failures sorted by origin, then message
func (vf *ValidationFailures) Failures() []ValidationFailure {
	if vf == nil {
		return nil
	}
	result := make([]ValidationFailure, len(vf.failures))
	copy(result, vf.failures)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Origin != result[j].Origin {
			return result[i].Origin < result[j].Origin
		}
		return result[i].Message < result[j].Message
	})
	return result
}

// AsError returns nil when there are no failures, the aggregate otherwise
func (vf *ValidationFailures) AsError() error {
	if !vf.HasFailures() {
		return nil
	}
	return vf
}

func (vf *ValidationFailures) Error() string {
	if !vf.HasFailures() {
		return "metamodel validation failed"
	}
	failures := vf.Failures()
	if len(failures) == 1 {
		return fmt.Sprintf("metamodel validation failed: %s", failures[0])
	}
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, "  - "+f.String())
	}
	return fmt.Sprintf("metamodel validation failed (%d):\n%s", len(failures), strings.Join(lines, "\n"))
}

// Is reports whether target is ErrMetamodelInvalid
func (vf *ValidationFailures) Is(target error) bool {
	return target == ErrMetamodelInvalid
}
