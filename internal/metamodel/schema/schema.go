// Package schema provides explicit registration of domain types.
//
// A TypeSchema enumerates a type's properties, collections, actions and parameters together with
// their declared annotations and named support functions. Facet factories read schemas instead of
// scanning annotations at runtime.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/causeway-lang/causeway/internal/metamodel/feature"
)

var (
	// ErrArgument is returned when action arguments do not match the declared parameters
	ErrArgument = errors.New("invalid argument")
	// ErrReadOnly is returned when setting a property that has no setter
	ErrReadOnly = errors.New("property is read-only")
	// ErrTarget is returned when a pojo is not an instance of the schema's type
	ErrTarget = errors.New("invalid target")
)

// BeanSort classifies how instances of a type are managed
type BeanSort int

const (
	// SortUnknown is a type the metamodel cannot classify
	SortUnknown BeanSort = iota
	// SortEntity is a persistent domain object
	SortEntity
	// SortValue is an immutable value type
	SortValue
	// SortViewModel is a transient object whose state lives in its memento
	SortViewModel
	// SortMixin contributes behavior to another type
	SortMixin
	// SortCollection is a plain container of other objects
	SortCollection
	// SortBean is a singleton service
	SortBean
)

var sortNames = map[BeanSort]string{
	SortUnknown:    "UNKNOWN",
	SortEntity:     "ENTITY",
	SortValue:      "VALUE",
	SortViewModel:  "VIEW_MODEL",
	SortMixin:      "MIXIN",
	SortCollection: "COLLECTION",
	SortBean:       "BEAN",
}

// String returns the string representation of the sort
func (s BeanSort) String() string {
	if name, ok := sortNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseBeanSort converts a name such as "view_model" to a BeanSort
func ParseBeanSort(s string) (BeanSort, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for sort, name := range sortNames {
		if name == norm {
			return sort, nil
		}
	}
	return SortUnknown, fmt.Errorf("unknown bean sort: %s", s)
}

// IsEntity returns true for entities
func (s BeanSort) IsEntity() bool { return s == SortEntity }

// IsBean returns true for singleton services
func (s BeanSort) IsBean() bool { return s == SortBean }

// Member is the part common to properties, collections and actions
type Member struct {
	ID          string
	FeatureType feature.Type
	Annotations Annotations
}

// PropertySchema describes a scalar association
type PropertySchema struct {
	Member
	Type reflect.Type
	// Get reads the value from a pojo
	Get func(pojo interface{}) interface{}
	// Set writes a value; nil for derived properties
	Set func(pojo interface{}, value interface{}) error
}

// CollectionSchema describes a one-to-many association
type CollectionSchema struct {
	Member
	ElementType reflect.Type
	Get         func(pojo interface{}) []interface{}
}

// ParameterSchema describes one action parameter
type ParameterSchema struct {
	Index       int
	Name        string
	Type        reflect.Type
	Annotations Annotations
}

// ActionSchema describes an invokable behavior
type ActionSchema struct {
	Member
	Parameters []*ParameterSchema
	// ReturnType is nil for actions returning nothing (or only an error)
	ReturnType reflect.Type

	fn       reflect.Value
	hasError bool
}

// SupportFunc is a named function following a naming convention (hideLastName, choices0AddVisit, ...)
type SupportFunc struct {
	Name string
	Fn   reflect.Value
}

// TypeSchema describes one registered domain type
type TypeSchema struct {
	GoType      reflect.Type
	LogicalName string
	Sort        BeanSort
	Annotations Annotations

	Properties  []*PropertySchema
	Collections []*CollectionSchema
	Actions     []*ActionSchema
	Supports    []SupportFunc

	// Embedded lists the struct types embedded by GoType, in field order
	Embedded []reflect.Type

	factory func() interface{}
}

// NewInstance creates a new zero-valued (or factory-built) pojo
func (s *TypeSchema) NewInstance() interface{} {
	if s.factory != nil {
		return s.factory()
	}
	return reflect.New(s.GoType).Interface()
}

// IsInstance reports whether pojo is a pointer to the schema's type
func (s *TypeSchema) IsInstance(pojo interface{}) bool {
	if pojo == nil {
		return false
	}
	t := reflect.TypeOf(pojo)
	return t.Kind() == reflect.Ptr && t.Elem() == s.GoType
}

// Property returns the property with id
func (s *TypeSchema) Property(id string) (*PropertySchema, bool) {
	for _, p := range s.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Collection returns the collection with id
func (s *TypeSchema) Collection(id string) (*CollectionSchema, bool) {
	for _, c := range s.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Action returns the action with id
func (s *TypeSchema) Action(id string) (*ActionSchema, bool) {
	for _, a := range s.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Support returns the support function called name
func (s *TypeSchema) Support(name string) (SupportFunc, bool) {
	for _, fn := range s.Supports {
		if fn.Name == name {
			return fn, true
		}
	}
	return SupportFunc{}, false
}

// PrimaryKey returns the property annotated with PrimaryKey, if any
func (s *TypeSchema) PrimaryKey() (*PropertySchema, bool) {
	for _, p := range s.Properties {
		if Has[PrimaryKey](p.Annotations) {
			return p, true
		}
	}
	return nil, false
}

// Invoke calls the action on pojo, converting args to the parameter types
func (a *ActionSchema) Invoke(pojo interface{}, args []interface{}) (interface{}, error) {
	if len(args) != len(a.Parameters) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArgument, a.ID, len(a.Parameters), len(args))
	}
	in := make([]reflect.Value, 0, len(args)+1)
	target := reflect.ValueOf(pojo)
	if !target.IsValid() || target.Type() != a.fn.Type().In(0) {
		return nil, fmt.Errorf("%w: %s cannot be invoked on %T", ErrTarget, a.ID, pojo)
	}
	in = append(in, target)
	for i, p := range a.Parameters {
		v, err := coerce(args[i], p.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s parameter %d (%s): %v", ErrArgument, a.ID, i, p.Name, err)
		}
		in = append(in, v)
	}

	out := a.fn.Call(in)
	var result interface{}
	if a.ReturnType != nil {
		result = out[0].Interface()
	}
	if a.hasError {
		if errV := out[len(out)-1]; !errV.IsNil() {
			return result, errV.Interface().(error)
		}
	}
	return result, nil
}

// coerce converts value to t, treating nil as the zero value
func coerce(value interface{}, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Type().ConvertibleTo(t) && v.Kind() != reflect.String && t.Kind() != reflect.String:
		return v.Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("cannot use %T as %s", value, t)
	}
}
