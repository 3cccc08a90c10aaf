package exceptions

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// AssertionError is raised (as a panic value) when an internal invariant does not hold
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return "assertion failed: " + e.Message
}

// asserter is swapped in tests to capture the log line
var asserter = zap.NewNop()

// SetAssertionLogger sets the logger assertion failures are reported to before panicking
func SetAssertionLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	asserter = logger
}

// Assert panics with an AssertionError if cond is false
func Assert(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	fail(fmt.Sprintf(format, args...))
}

// AssertNotNil panics with an AssertionError if v is nil (including typed nil pointers)
func AssertNotNil(v interface{}, what string) {
	if !isNil(v) {
		return
	}
	fail(what + " must not be nil")
}

// AssertEquals panics with an AssertionError if expected != actual
func AssertEquals(expected, actual interface{}, what string) {
	if expected == actual {
		return
	}
	fail(fmt.Sprintf("%s: expected %v, got %v", what, expected, actual))
}

func fail(msg string) {
	asserter.Error("assertion failed", zap.String("message", msg), zap.Stack("stack"))
	panic(&AssertionError{Message: msg})
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
