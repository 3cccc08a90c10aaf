// Package facets contains the concrete facet types of the metamodel.
//
// Each facet type is an interface (the key it is ranked under) with one or more implementations.
// Facets that take part in consent checks implement the advisor interfaces of package consent.
package facets

import (
	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
)

// Origin records where a facet came from, for introspection
type Origin string

const (
	// OriginAnnotation is a declared schema annotation
	OriginAnnotation Origin = "annotation"
	// OriginSupport is a naming-convention support function
	OriginSupport Origin = "support"
	// OriginLayout is a layout file
	OriginLayout Origin = "layout"
	// OriginSynthesized is derived by convention or a postprocessor
	OriginSynthesized Origin = "synthesized"
	// OriginEvent is a domain event
	OriginEvent Origin = "event"
)

// HiddenFacet hides a feature in some locations, depending on the target's persistence state
type HiddenFacet interface {
	consent.HidingAdvisor
	Where() consent.Where
	When() consent.When
}

// DisabledFacet disables a feature in some locations, depending on the target's persistence state
type DisabledFacet interface {
	consent.DisablingAdvisor
	Where() consent.Where
	When() consent.When
	Reason() string
}

type whenAndWhere struct {
	facet.Base
	where  consent.Where
	when   consent.When
	origin Origin
}

func (f *whenAndWhere) Where() consent.Where { return f.where }

func (f *whenAndWhere) When() consent.When { return f.when }

func (f *whenAndWhere) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["where"] = f.where.String()
	attrs["when"] = f.when.String()
	attrs["origin"] = string(f.origin)
	return attrs
}

// applies reports whether the policy is active for a target in state, rendered at context.
// A nil target only matters for ALWAYS.
func (f *whenAndWhere) applies(context consent.Where, target object.Managed, state object.State) (bool, bool) {
	if !f.where.Includes(context) {
		return false, false
	}
	switch f.when {
	case consent.WhenAlways:
		return true, true
	case consent.WhenNever:
		return false, false
	}
	if target == nil {
		return false, false
	}
	switch f.when {
	case consent.WhenUntilPersisted:
		return state.IsTransient(), false
	case consent.WhenOncePersisted:
		return state.IsPersistent(), false
	}
	return false, false
}

type hiddenFacet struct {
	whenAndWhere
}

// NewHiddenFacet creates a hidden facet. Annotations use PrecedenceLow and layout files PrecedenceHigh.
func NewHiddenFacet(where consent.Where, when consent.When, origin Origin, holder facet.Holder, precedence facet.Precedence) HiddenFacet {
	return &hiddenFacet{whenAndWhere{
		Base:   facet.NewBase(facet.TypeOf[HiddenFacet](), holder, precedence),
		where:  where,
		when:   when,
		origin: origin,
	}}
}

// Hides implements consent.HidingAdvisor
func (f *hiddenFacet) Hides(ctx *consent.VisibilityContext) string {
	return HiddenReason(f, ctx.Target, ctx.Where)
}

// HiddenReason evaluates a hidden facet for target rendered at context, "" when not hidden
func HiddenReason(f HiddenFacet, target object.Managed, context consent.Where) string {
	ww := whenAndWhere{where: f.Where(), when: f.When()}
	applies, always := ww.applies(context, target, stateOf(target))
	switch {
	case !applies:
		return ""
	case always:
		return "Always hidden"
	case f.When() == consent.WhenUntilPersisted:
		return "Hidden until persisted"
	default:
		return "Hidden once persisted"
	}
}

type disabledFacet struct {
	whenAndWhere
	reason string
}

// NewDisabledFacet creates a disabled facet; reason replaces the default wording when set
func NewDisabledFacet(where consent.Where, when consent.When, reason string, origin Origin, holder facet.Holder, precedence facet.Precedence) DisabledFacet {
	return &disabledFacet{
		whenAndWhere: whenAndWhere{
			Base:   facet.NewBase(facet.TypeOf[DisabledFacet](), holder, precedence),
			where:  where,
			when:   when,
			origin: origin,
		},
		reason: reason,
	}
}

func (f *disabledFacet) Reason() string { return f.reason }

// Disables implements consent.DisablingAdvisor
func (f *disabledFacet) Disables(ctx *consent.UsabilityContext) string {
	applies, always := f.applies(ctx.Where, ctx.Target, ctx.TargetState())
	switch {
	case !applies:
		return ""
	case f.reason != "":
		return f.reason
	case always:
		return "Always disabled"
	case f.when == consent.WhenUntilPersisted:
		return "Disabled until persisted"
	default:
		return "Disabled once persisted"
	}
}

func (f *disabledFacet) Attributes() map[string]interface{} {
	attrs := f.whenAndWhere.Attributes()
	if f.reason != "" {
		attrs["reason"] = f.reason
	}
	return attrs
}

func stateOf(target object.Managed) object.State {
	if target == nil {
		return object.StateNotApplicable
	}
	return target.State()
}
