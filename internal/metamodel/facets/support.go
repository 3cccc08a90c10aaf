package facets

import (
	"fmt"
	"reflect"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
)

// HideForContextFacet hides a member when its hide<Member> function returns true
type HideForContextFacet interface {
	consent.HidingAdvisor
	SupportName() string
}

// DisableForContextFacet disables a member when its disable<Member> function returns a reason
type DisableForContextFacet interface {
	consent.DisablingAdvisor
	SupportName() string
}

// ValidateFacet rejects a property value or an argument when validate<Member> returns a reason
type ValidateFacet interface {
	consent.ValidatingAdvisor
	SupportName() string
}

// ActionValidationFacet rejects an action's complete argument list
type ActionValidationFacet interface {
	consent.ValidatingAdvisor
	SupportName() string
}

// supportFn calls a user function with the target pojo first
type supportFn struct {
	facet.Base
	name string
	fn   reflect.Value
}

func (f *supportFn) SupportName() string { return f.name }

func (f *supportFn) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["origin"] = string(OriginSupport)
	attrs["support"] = f.name
	return attrs
}

// call invokes the function; it returns nil results when target is missing or of the wrong type
func (f *supportFn) call(target object.Managed, args ...interface{}) []reflect.Value {
	pojo := object.Pojo(target)
	ft := f.fn.Type()
	if pojo == nil || !reflect.TypeOf(pojo).AssignableTo(ft.In(0)) {
		return nil
	}
	in := []reflect.Value{reflect.ValueOf(pojo)}
	for i, arg := range args {
		pt := ft.In(i + 1)
		if arg == nil {
			in = append(in, reflect.Zero(pt))
			continue
		}
		v := reflect.ValueOf(arg)
		switch {
		case v.Type().AssignableTo(pt):
		case v.Type().ConvertibleTo(pt) && v.Kind() != reflect.String && pt.Kind() != reflect.String:
			v = v.Convert(pt)
		default:
			return []reflect.Value{reflect.ValueOf(fmt.Sprintf("Invalid value: %v", arg))}
		}
		in = append(in, v)
	}
	return f.fn.Call(in)
}

type hideForContext struct{ supportFn }

// NewHideForContextFacet wraps fn, which must be func(*T) bool
func NewHideForContextFacet(name string, fn reflect.Value, holder facet.Holder) HideForContextFacet {
	return &hideForContext{supportFn{
		Base: facet.NewBase(facet.TypeOf[HideForContextFacet](), holder, facet.PrecedenceLow),
		name: name,
		fn:   fn,
	}}
}

// Hides implements consent.HidingAdvisor
func (f *hideForContext) Hides(ctx *consent.VisibilityContext) string {
	out := f.call(ctx.Target)
	if len(out) == 1 && out[0].Kind() == reflect.Bool && out[0].Bool() {
		return "Hidden"
	}
	return ""
}

type disableForContext struct{ supportFn }

// NewDisableForContextFacet wraps fn, which must be func(*T) string
func NewDisableForContextFacet(name string, fn reflect.Value, holder facet.Holder) DisableForContextFacet {
	return &disableForContext{supportFn{
		Base: facet.NewBase(facet.TypeOf[DisableForContextFacet](), holder, facet.PrecedenceLow),
		name: name,
		fn:   fn,
	}}
}

// Disables implements consent.DisablingAdvisor
func (f *disableForContext) Disables(ctx *consent.UsabilityContext) string {
	return reasonOf(f.call(ctx.Target))
}

type validateValue struct{ supportFn }

// NewValidateFacet wraps fn, which must be func(*T, V) string; it validates ctx.Proposed
func NewValidateFacet(name string, fn reflect.Value, holder facet.Holder) ValidateFacet {
	return &validateValue{supportFn{
		Base: facet.NewBase(facet.TypeOf[ValidateFacet](), holder, facet.PrecedenceLow),
		name: name,
		fn:   fn,
	}}
}

// Invalidates implements consent.ValidatingAdvisor
func (f *validateValue) Invalidates(ctx *consent.ValidityContext) string {
	return reasonOf(f.call(ctx.Target, ctx.Proposed))
}

type validateArgs struct{ supportFn }

// NewActionValidationFacet wraps fn, which must be func(*T, P0, P1, ...) string; it validates ctx.Args
func NewActionValidationFacet(name string, fn reflect.Value, holder facet.Holder) ActionValidationFacet {
	return &validateArgs{supportFn{
		Base: facet.NewBase(facet.TypeOf[ActionValidationFacet](), holder, facet.PrecedenceLow),
		name: name,
		fn:   fn,
	}}
}

// Invalidates implements consent.ValidatingAdvisor
func (f *validateArgs) Invalidates(ctx *consent.ValidityContext) string {
	if len(ctx.Args) != f.fn.Type().NumIn()-1 {
		return ""
	}
	return reasonOf(f.call(ctx.Target, ctx.Args...))
}

func reasonOf(out []reflect.Value) string {
	if len(out) == 1 && out[0].Kind() == reflect.String {
		return out[0].String()
	}
	return ""
}

// ChoicesFacet offers the allowed values of a property or parameter
type ChoicesFacet interface {
	facet.Facet
	Choices(target object.Managed) []interface{}
}

// DefaultFacet supplies the initial value of a property or parameter
type DefaultFacet interface {
	facet.Facet
	Default(target object.Managed) interface{}
}

type choices struct{ supportFn }

// NewChoicesFacet wraps fn, which must be func(*T) []V
func NewChoicesFacet(name string, fn reflect.Value, holder facet.Holder) ChoicesFacet {
	return &choices{supportFn{
		Base: facet.NewBase(facet.TypeOf[ChoicesFacet](), holder, facet.PrecedenceLow),
		name: name,
		fn:   fn,
	}}
}

func (f *choices) Choices(target object.Managed) []interface{} {
	out := f.call(target)
	if len(out) != 1 || out[0].Kind() != reflect.Slice {
		return nil
	}
	result := make([]interface{}, out[0].Len())
	for i := range result {
		result[i] = out[0].Index(i).Interface()
	}
	return result
}

type defaults struct{ supportFn }

// NewDefaultFacet wraps fn, which must be func(*T) V
func NewDefaultFacet(name string, fn reflect.Value, holder facet.Holder) DefaultFacet {
	return &defaults{supportFn{
		Base: facet.NewBase(facet.TypeOf[DefaultFacet](), holder, facet.PrecedenceLow),
		name: name,
		fn:   fn,
	}}
}

func (f *defaults) Default(target object.Managed) interface{} {
	out := f.call(target)
	if len(out) != 1 {
		return nil
	}
	return out[0].Interface()
}
