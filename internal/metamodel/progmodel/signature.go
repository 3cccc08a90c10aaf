package progmodel

import (
	"fmt"
	"reflect"
	"strings"
)

// memberPrefixes are the naming-convention prefixes of member support functions
var memberPrefixes = []string{"hide", "disable", "validate", "choices", "default"}

// parameterPrefixes are the prefixes of per-parameter support functions, e.g. choices0AddVisit
var parameterPrefixes = []string{"validate", "choices", "default"}

var (
	boolType   = reflect.TypeOf(false)
	stringType = reflect.TypeOf("")
)

// signature describes what a support function must look like
type signature struct {
	in  []reflect.Type
	out func(reflect.Type) bool
	// wants is the human-readable form of out
	wants string
}

// check returns nil when fn matches sig
func (sig signature) check(fn reflect.Value) error {
	ft := fn.Type()
	if ft.IsVariadic() || ft.NumIn() != len(sig.in) {
		return fmt.Errorf("must have signature %s", sig)
	}
	for i, want := range sig.in {
		if !want.AssignableTo(ft.In(i)) {
			return fmt.Errorf("must have signature %s", sig)
		}
	}
	if ft.NumOut() != 1 || !sig.out(ft.Out(0)) {
		return fmt.Errorf("must have signature %s", sig)
	}
	return nil
}

func (sig signature) String() string {
	parts := make([]string, len(sig.in))
	for i, t := range sig.in {
		parts[i] = t.String()
	}
	return "func(" + strings.Join(parts, ", ") + ") " + sig.wants
}

func returns(t reflect.Type) func(reflect.Type) bool {
	return func(out reflect.Type) bool { return out == t }
}

func returnsAssignableTo(t reflect.Type) func(reflect.Type) bool {
	return func(out reflect.Type) bool { return out.AssignableTo(t) }
}

func returnsSliceOf(t reflect.Type) func(reflect.Type) bool {
	return func(out reflect.Type) bool {
		return out.Kind() == reflect.Slice && out.Elem().AssignableTo(t)
	}
}
