package schema

import (
	"fmt"
	"reflect"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	casing "github.com/causeway-lang/causeway/internal/util/strings"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// TypeBuilder registers the members of domain type T, whose instances are *T
type TypeBuilder[T any] struct {
	schema   *TypeSchema
	failures *exceptions.ValidationFailures
}

// For starts the schema of T under logicalName (e.g. "petclinic.Owner")
func For[T any](logicalName string, sort BeanSort) *TypeBuilder[T] {
	b := &TypeBuilder[T]{
		schema: &TypeSchema{
			GoType:      reflect.TypeOf((*T)(nil)).Elem(),
			LogicalName: logicalName,
			Sort:        sort,
		},
		failures: exceptions.NewValidationFailures(),
	}
	if b.schema.GoType.Kind() != reflect.Struct {
		b.failures.Add(logicalName, "%s is not a struct type", b.schema.GoType)
		return b
	}
	for i := 0; i < b.schema.GoType.NumField(); i++ {
		f := b.schema.GoType.Field(i)
		if !f.Anonymous {
			continue
		}
		t := f.Type
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() == reflect.Struct {
			b.schema.Embedded = append(b.schema.Embedded, t)
		}
	}
	return b
}

// Annotate adds type-level annotations
func (b *TypeBuilder[T]) Annotate(anns ...Annotation) *TypeBuilder[T] {
	b.schema.Annotations = append(b.schema.Annotations, anns...)
	return b
}

// Factory sets the constructor used for new instances
func (b *TypeBuilder[T]) Factory(fn func() *T) *TypeBuilder[T] {
	b.schema.factory = func() interface{} { return fn() }
	return b
}

// Property registers the exported struct field as a read-write property. The member id is the
// field name in lower camel case (LastName -> lastName).
func (b *TypeBuilder[T]) Property(field string, anns ...Annotation) *TypeBuilder[T] {
	id := casing.ToLowerCamel(field)
	if !b.checkMember(id) {
		return b
	}
	sf, ok := b.schema.GoType.FieldByName(field)
	if !ok || sf.PkgPath != "" {
		b.failures.Add(b.origin(id), "no exported field %s on %s", field, b.schema.GoType)
		return b
	}
	index := sf.Index
	fieldType := sf.Type
	b.schema.Properties = append(b.schema.Properties, &PropertySchema{
		Member: Member{ID: id, FeatureType: feature.Property, Annotations: anns},
		Type:   fieldType,
		Get: func(pojo interface{}) interface{} {
			v, ok := structValue(pojo)
			if !ok {
				return nil
			}
			return v.FieldByIndex(index).Interface()
		},
		Set: func(pojo interface{}, value interface{}) error {
			v, ok := structValue(pojo)
			if !ok {
				return fmt.Errorf("%w: %T", ErrTarget, pojo)
			}
			converted, err := coerce(value, fieldType)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrArgument, id, err)
			}
			v.FieldByIndex(index).Set(converted)
			return nil
		},
	})
	return b
}

// Derived registers a read-only property computed by get
func (b *TypeBuilder[T]) Derived(id string, resultType reflect.Type, get func(*T) interface{}, anns ...Annotation) *TypeBuilder[T] {
	if !b.checkMember(id) {
		return b
	}
	b.schema.Properties = append(b.schema.Properties, &PropertySchema{
		Member: Member{ID: id, FeatureType: feature.Property, Annotations: anns},
		Type:   resultType,
		Get: func(pojo interface{}) interface{} {
			typed, ok := pojo.(*T)
			if !ok || typed == nil {
				return nil
			}
			return get(typed)
		},
	})
	return b
}

// Collection registers the exported slice field as a collection
func (b *TypeBuilder[T]) Collection(field string, anns ...Annotation) *TypeBuilder[T] {
	id := casing.ToLowerCamel(field)
	if !b.checkMember(id) {
		return b
	}
	sf, ok := b.schema.GoType.FieldByName(field)
	if !ok || sf.PkgPath != "" {
		b.failures.Add(b.origin(id), "no exported field %s on %s", field, b.schema.GoType)
		return b
	}
	if sf.Type.Kind() != reflect.Slice {
		b.failures.Add(b.origin(id), "collection field %s must be a slice, is %s", field, sf.Type)
		return b
	}
	index := sf.Index
	b.schema.Collections = append(b.schema.Collections, &CollectionSchema{
		Member:      Member{ID: id, FeatureType: feature.Collection, Annotations: anns},
		ElementType: sf.Type.Elem(),
		Get: func(pojo interface{}) []interface{} {
			v, ok := structValue(pojo)
			if !ok {
				return nil
			}
			slice := v.FieldByIndex(index)
			result := make([]interface{}, slice.Len())
			for i := range result {
				result[i] = slice.Index(i).Interface()
			}
			return result
		},
	})
	return b
}

// Action registers fn as an action. fn must take *T first, followed by the parameters, and return
// nothing, a result, an error, or a result and an error.
func (b *TypeBuilder[T]) Action(id string, fn interface{}, anns ...Annotation) *TypeBuilder[T] {
	if !b.checkMember(id) {
		return b
	}
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		b.failures.Add(b.origin(id), "action must be a function, got %T", fn)
		return b
	}
	ft := fv.Type()
	if ft.NumIn() == 0 || ft.In(0) != reflect.PtrTo(b.schema.GoType) {
		b.failures.Add(b.origin(id), "action must take *%s as its first argument", b.schema.GoType.Name())
		return b
	}
	if ft.IsVariadic() {
		b.failures.Add(b.origin(id), "variadic actions are not supported")
		return b
	}

	action := &ActionSchema{
		Member: Member{ID: id, FeatureType: feature.Action, Annotations: anns},
		fn:     fv,
	}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			action.hasError = true
		} else {
			action.ReturnType = ft.Out(0)
		}
	case 2:
		if ft.Out(1) != errorType {
			b.failures.Add(b.origin(id), "second result of an action must be error")
			return b
		}
		action.ReturnType = ft.Out(0)
		action.hasError = true
	default:
		b.failures.Add(b.origin(id), "action returns too many results")
		return b
	}
	for i := 1; i < ft.NumIn(); i++ {
		action.Parameters = append(action.Parameters, &ParameterSchema{
			Index: i - 1,
			Name:  fmt.Sprintf("arg%d", i-1),
			Type:  ft.In(i),
		})
	}
	b.schema.Actions = append(b.schema.Actions, action)
	return b
}

// Parameter names and annotates parameter index of action
func (b *TypeBuilder[T]) Parameter(action string, index int, name string, anns ...Annotation) *TypeBuilder[T] {
	a, ok := b.schema.Action(action)
	if !ok {
		b.failures.Add(b.origin(action), "parameter %d declared for unknown action", index)
		return b
	}
	if index < 0 || index >= len(a.Parameters) {
		b.failures.Add(b.origin(action), "parameter index %d out of range (%d parameters)", index, len(a.Parameters))
		return b
	}
	p := a.Parameters[index]
	if name != "" {
		p.Name = name
	}
	p.Annotations = append(p.Annotations, anns...)
	return b
}

// Support registers a support function found by naming convention, e.g. "hideLastName"
func (b *TypeBuilder[T]) Support(name string, fn interface{}) *TypeBuilder[T] {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		b.failures.Add(b.origin(name), "support %s must be a function, got %T", name, fn)
		return b
	}
	if _, exists := b.schema.Support(name); exists {
		b.failures.Add(b.origin(name), "support %s registered twice", name)
		return b
	}
	b.schema.Supports = append(b.schema.Supports, SupportFunc{Name: name, Fn: fv})
	return b
}

// Build returns the schema, or the accumulated declaration errors
func (b *TypeBuilder[T]) Build() (*TypeSchema, error) {
	if b.schema.LogicalName == "" {
		b.failures.Add(b.schema.GoType.String(), "logical type name is required")
	}
	if b.failures.HasFailures() {
		return nil, b.failures.AsError()
	}
	return b.schema, nil
}

// Register builds the schema and adds it to reg
func (b *TypeBuilder[T]) Register(reg *Registry) error {
	s, err := b.Build()
	if err != nil {
		return err
	}
	return reg.Register(s)
}

// MustRegister is Register for package initialization; it panics on error
func (b *TypeBuilder[T]) MustRegister(reg *Registry) *TypeSchema {
	s, err := b.Build()
	if err == nil {
		err = reg.Register(s)
	}
	if err != nil {
		panic(err)
	}
	return s
}

func (b *TypeBuilder[T]) origin(member string) string {
	return feature.MemberIdentifier(b.schema.LogicalName, member).String()
}

func (b *TypeBuilder[T]) checkMember(id string) bool {
	if id == "" {
		b.failures.Add(b.schema.LogicalName, "member id is required")
		return false
	}
	_, p := b.schema.Property(id)
	_, c := b.schema.Collection(id)
	_, a := b.schema.Action(id)
	if p || c || a {
		b.failures.Add(b.origin(id), "member %s declared twice", id)
		return false
	}
	return true
}

func structValue(pojo interface{}) (reflect.Value, bool) {
	v := reflect.ValueOf(pojo)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	return v.Elem(), true
}
