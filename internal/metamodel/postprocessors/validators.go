package postprocessors

import (
	"reflect"
	"strings"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

// ReferenceValidator reports members referring to domain types missing from the metamodel.
// Types from packages without a dot in their import path (the standard library) are exempt.
type ReferenceValidator struct{}

// Name identifies the validator
func (ReferenceValidator) Name() string { return "ReferenceValidator" }

// Validate checks property, collection, parameter and action result types
func (ReferenceValidator) Validate(specs []*spec.ObjectSpecification, failures *exceptions.ValidationFailures) {
	known := make(map[reflect.Type]bool, len(specs))
	for _, s := range specs {
		known[s.GoType()] = true
	}
	check := func(origin string, t reflect.Type) {
		if t == nil {
			return
		}
		for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct || t.Name() == "" || !strings.Contains(t.PkgPath(), ".") {
			return
		}
		if !known[t] {
			failures.Add(origin, "refers to %s, which is not part of the metamodel", t)
		}
	}

	for _, s := range specs {
		for _, p := range s.Properties() {
			check(p.FeatureIdentifier().String(), p.Type())
		}
		for _, c := range s.Collections() {
			check(c.FeatureIdentifier().String(), c.ElementType())
		}
		for _, a := range s.Actions() {
			check(a.FeatureIdentifier().String(), a.ReturnType())
			for _, p := range a.Parameters() {
				check(p.FeatureIdentifier().String(), p.Type())
			}
		}
	}
}
