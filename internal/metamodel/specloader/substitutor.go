// Package specloader builds and caches the ObjectSpecification of every domain type.
package specloader

import (
	"reflect"
	"strings"
)

// Unwrapper is implemented by proxy types that stand in for a domain type. UnwrapType is called
// on the zero value of the proxy and must not depend on its state.
type Unwrapper interface {
	UnwrapType() reflect.Type
}

// Enhanced marks a type generated around a domain type; the domain type is its first embedded
// struct field
type Enhanced interface {
	Enhanced()
}

// maxUnwrap bounds proxy chains so that a proxy unwrapping to itself cannot loop
const maxUnwrap = 8

var (
	unwrapperType = reflect.TypeOf((*Unwrapper)(nil)).Elem()
	enhancedType  = reflect.TypeOf((*Enhanced)(nil)).Elem()
)

// Substitutor maps the types the runtime encounters back to the domain types they represent
type Substitutor struct {
	ignoredPackages []string
	// ignore reports types excluded by declaration (Programmatic)
	ignore func(reflect.Type) bool
}

// NewSubstitutor creates a substitutor. Types from ignoredPackages (import path prefixes) and types
// for which ignore returns true are never substituted.
func NewSubstitutor(ignoredPackages []string, ignore func(reflect.Type) bool) *Substitutor {
	return &Substitutor{
		ignoredPackages: append([]string(nil), ignoredPackages...),
		ignore:          ignore,
	}
}

// Substitute returns the domain type t stands for, or false when t must not appear in the metamodel
func (s *Substitutor) Substitute(t reflect.Type) (reflect.Type, bool) {
	for i := 0; i < maxUnwrap; i++ {
		if t == nil {
			return nil, false
		}
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}

		if next, ok := unwrap(t); ok {
			t = next
			continue
		}

		if t.Kind() != reflect.Struct || t.Name() == "" {
			return nil, false
		}
		if s.isIgnoredPackage(t.PkgPath()) {
			return nil, false
		}
		if s.ignore != nil && s.ignore(t) {
			return nil, false
		}
		return t, true
	}
	return nil, false
}

// SubstituteValue substitutes the dynamic type of pojo
func (s *Substitutor) SubstituteValue(pojo interface{}) (reflect.Type, bool) {
	if pojo == nil {
		return nil, false
	}
	return s.Substitute(reflect.TypeOf(pojo))
}

func (s *Substitutor) isIgnoredPackage(pkg string) bool {
	for _, prefix := range s.ignoredPackages {
		if pkg == prefix || strings.HasPrefix(pkg, prefix+"/") {
			return true
		}
	}
	return false
}

// unwrap follows Unwrapper and Enhanced one step
func unwrap(t reflect.Type) (reflect.Type, bool) {
	ptr := reflect.PtrTo(t)
	switch {
	case t.Implements(unwrapperType):
		return reflect.Zero(t).Interface().(Unwrapper).UnwrapType(), true
	case ptr.Implements(unwrapperType):
		return reflect.New(t).Interface().(Unwrapper).UnwrapType(), true
	case t.Kind() == reflect.Struct && (t.Implements(enhancedType) || ptr.Implements(enhancedType)):
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.Anonymous {
				return f.Type, true
			}
		}
		return nil, true
	}
	return nil, false
}
