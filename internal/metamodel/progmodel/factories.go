package progmodel

import (
	"reflect"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/events"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
)

var propertiesAndParameters = feature.Types{feature.Property, feature.ActionParameter}

// ProgrammaticFacetFactory marks types declared Programmatic
type ProgrammaticFacetFactory struct{}

func (*ProgrammaticFacetFactory) Name() string                { return "ProgrammaticFacetFactory" }
func (*ProgrammaticFacetFactory) FeatureTypes() feature.Types { return feature.ObjectsOnly }

func (*ProgrammaticFacetFactory) ProcessClass(ctx *ClassContext) {
	if schema.Has[schema.Programmatic](ctx.Schema.Annotations) {
		ctx.Holder.AddFacet(facets.NewProgrammaticFacet(ctx.Holder))
	}
}

// AccessorFacetFactory installs the getters, setters and invokers of members
type AccessorFacetFactory struct{}

func (*AccessorFacetFactory) Name() string                { return "AccessorFacetFactory" }
func (*AccessorFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (*AccessorFacetFactory) ProcessMember(ctx *MemberContext) {
	switch {
	case ctx.Property != nil:
		ctx.Holder.AddFacet(facets.NewPropertyAccessorFacet(ctx.Property.Get, ctx.Holder))
		if ctx.Property.Set != nil {
			ctx.Holder.AddFacet(facets.NewPropertySetterFacet(ctx.Property.Set, ctx.Holder))
		}
	case ctx.Collection != nil:
		ctx.Holder.AddFacet(facets.NewCollectionAccessorFacet(ctx.Collection.Get, ctx.Holder))
	case ctx.Action != nil:
		ctx.Holder.AddFacet(facets.NewActionInvocationFacet(ctx.Action.Invoke, ctx.Holder))
	}
}

// NamedFacetFactory installs declared names and descriptions
type NamedFacetFactory struct{}

func (*NamedFacetFactory) Name() string                { return "NamedFacetFactory" }
func (*NamedFacetFactory) FeatureTypes() feature.Types { return feature.Everything }

func (f *NamedFacetFactory) ProcessClass(ctx *ClassContext) {
	f.process(ctx.Schema.Annotations, ctx.Holder)
}

func (f *NamedFacetFactory) ProcessMember(ctx *MemberContext) {
	f.process(ctx.Member.Annotations, ctx.Holder)
}

func (f *NamedFacetFactory) ProcessParameter(ctx *ParameterContext) {
	f.process(ctx.Parameter.Annotations, ctx.Holder)
}

func (*NamedFacetFactory) process(anns schema.Annotations, holder facet.Holder) {
	if named, ok := schema.Find[schema.Named](anns); ok && named.Name != "" {
		holder.AddFacet(facets.NewNamedFacet(named.Name, facets.OriginAnnotation, holder, facet.PrecedenceLow))
	}
	if described, ok := schema.Find[schema.DescribedAs](anns); ok && described.Text != "" {
		holder.AddFacet(facets.NewDescribedAsFacet(described.Text, facets.OriginAnnotation, holder, facet.PrecedenceLow))
	}
}

// WhenAndWhereFacetFactory installs Hidden and Disabled annotations
type WhenAndWhereFacetFactory struct{}

func (*WhenAndWhereFacetFactory) Name() string                { return "WhenAndWhereFacetFactory" }
func (*WhenAndWhereFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (*WhenAndWhereFacetFactory) ProcessMember(ctx *MemberContext) {
	for _, ann := range ctx.Member.Annotations {
		switch a := ann.(type) {
		case schema.Hidden:
			ctx.Holder.AddFacet(facets.NewHiddenFacet(defaultWhere(a.Where), a.When, facets.OriginAnnotation, ctx.Holder, facet.PrecedenceLow))
		case schema.Disabled:
			ctx.Holder.AddFacet(facets.NewDisabledFacet(defaultWhere(a.Where), a.When, a.Reason, facets.OriginAnnotation, ctx.Holder, facet.PrecedenceLow))
		}
	}
}

func defaultWhere(w consent.Where) consent.Where {
	if w == consent.WhereNotSpecified {
		return consent.WhereEverywhere
	}
	return w
}

// MandatoryFacetFactory makes writable properties and parameters mandatory unless declared Optional
type MandatoryFacetFactory struct{}

func (*MandatoryFacetFactory) Name() string                { return "MandatoryFacetFactory" }
func (*MandatoryFacetFactory) FeatureTypes() feature.Types { return propertiesAndParameters }

func (f *MandatoryFacetFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Property == nil || ctx.Property.Set == nil {
		return
	}
	f.process(ctx.Member.Annotations, ctx.Holder)
}

func (f *MandatoryFacetFactory) ProcessParameter(ctx *ParameterContext) {
	f.process(ctx.Parameter.Annotations, ctx.Holder)
}

func (*MandatoryFacetFactory) process(anns schema.Annotations, holder facet.Holder) {
	holder.AddFacet(facets.NewMandatoryFacet(true, holder, facet.PrecedenceDefault))
	if schema.Has[schema.Optional](anns) {
		holder.AddFacet(facets.NewMandatoryFacet(false, holder, facet.PrecedenceLow))
	}
}

// ValueSemanticsFacetFactory installs MaxLength, RegEx and Mask
type ValueSemanticsFacetFactory struct{}

func (*ValueSemanticsFacetFactory) Name() string                { return "ValueSemanticsFacetFactory" }
func (*ValueSemanticsFacetFactory) FeatureTypes() feature.Types { return propertiesAndParameters }

func (f *ValueSemanticsFacetFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Property == nil {
		return
	}
	f.process(ctx.Member.Annotations, ctx.Property.Type, ctx.Holder, ctx.Identifier(), ctx.Failures)
}

func (f *ValueSemanticsFacetFactory) ProcessParameter(ctx *ParameterContext) {
	f.process(ctx.Parameter.Annotations, ctx.Parameter.Type, ctx.Holder, ctx.Identifier(), ctx.Failures)
}

func (*ValueSemanticsFacetFactory) process(anns schema.Annotations, valueType reflect.Type, holder facet.Holder, id feature.Identifier, failures *exceptions.ValidationFailures) {
	for _, ann := range anns {
		switch a := ann.(type) {
		case schema.MaxLength:
			if valueType.Kind() != reflect.String {
				failures.Add(id.String(), "MaxLength requires a string, not %s", valueType)
				continue
			}
			if a.Length <= 0 {
				failures.Add(id.String(), "MaxLength must be positive, got %d", a.Length)
				continue
			}
			holder.AddFacet(facets.NewMaxLengthFacet(a.Length, holder))
		case schema.RegEx:
			if valueType.Kind() != reflect.String {
				failures.Add(id.String(), "RegEx requires a string, not %s", valueType)
				continue
			}
			re, err := facets.NewRegExFacet(a.Pattern, holder)
			if err != nil {
				failures.Add(id.String(), "%v", err)
				continue
			}
			holder.AddFacet(re)
		case schema.Mask:
			holder.AddFacet(facets.NewMaskFacet(a.Pattern, holder))
		}
	}
}

// MemberOrderFacetFactory installs declared member ordering
type MemberOrderFacetFactory struct{}

func (*MemberOrderFacetFactory) Name() string                { return "MemberOrderFacetFactory" }
func (*MemberOrderFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (*MemberOrderFacetFactory) ProcessMember(ctx *MemberContext) {
	if order, ok := schema.Find[schema.MemberOrder](ctx.Member.Annotations); ok {
		ctx.Holder.AddFacet(facets.NewMemberOrderFacet(order.Group, order.Sequence, ctx.Holder, facet.PrecedenceLow))
	}
}

// AuthorizationFacetFactory installs role checks
type AuthorizationFacetFactory struct{}

func (*AuthorizationFacetFactory) Name() string                { return "AuthorizationFacetFactory" }
func (*AuthorizationFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (*AuthorizationFacetFactory) ProcessMember(ctx *MemberContext) {
	role, ok := schema.Find[schema.RequiresRole](ctx.Member.Annotations)
	if !ok {
		return
	}
	if len(role.Roles) == 0 {
		ctx.Failures.Add(ctx.Identifier().String(), "RequiresRole declares no roles")
		return
	}
	ctx.Holder.AddFacet(facets.NewAuthorizationFacet(role.Roles, role.Disable, ctx.Holder))
}

// PrimaryKeyFacetFactory marks identity properties and checks entities have exactly one
type PrimaryKeyFacetFactory struct{}

func (*PrimaryKeyFacetFactory) Name() string { return "PrimaryKeyFacetFactory" }
func (*PrimaryKeyFacetFactory) FeatureTypes() feature.Types {
	return feature.Types{feature.Object, feature.Property}
}

func (*PrimaryKeyFacetFactory) ProcessClass(ctx *ClassContext) {
	keys := 0
	for _, p := range ctx.Schema.Properties {
		if schema.Has[schema.PrimaryKey](p.Annotations) {
			keys++
		}
	}
	switch {
	case keys > 1:
		ctx.Failures.Add(ctx.Schema.LogicalName, "declares %d primary keys", keys)
	case keys == 0 && ctx.Schema.Sort.IsEntity():
		ctx.Failures.Add(ctx.Schema.LogicalName, "entity has no primary key")
	}
}

func (*PrimaryKeyFacetFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Property != nil && schema.Has[schema.PrimaryKey](ctx.Member.Annotations) {
		ctx.Holder.AddFacet(facets.NewPrimaryKeyFacet(ctx.Holder))
	}
}

// HideMethodFacetFactory consumes hide<Member> functions: func(*T) bool
type HideMethodFacetFactory struct{}

func (*HideMethodFacetFactory) Name() string                { return "HideMethodFacetFactory" }
func (*HideMethodFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (f *HideMethodFacetFactory) ProcessMember(ctx *MemberContext) {
	name := SupportName("hide", ctx.Member.ID)
	fn, ok := take(ctx.Remover, ctx.Failures, ctx.Identifier(), name, f.Name(), signature{
		in:    []reflect.Type{reflect.PtrTo(ctx.Schema.GoType)},
		out:   returns(boolType),
		wants: "bool",
	})
	if ok {
		ctx.Holder.AddFacet(facets.NewHideForContextFacet(name, fn, ctx.Holder))
	}
}

// DisableMethodFacetFactory consumes disable<Member> functions: func(*T) string
type DisableMethodFacetFactory struct{}

func (*DisableMethodFacetFactory) Name() string                { return "DisableMethodFacetFactory" }
func (*DisableMethodFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (f *DisableMethodFacetFactory) ProcessMember(ctx *MemberContext) {
	name := SupportName("disable", ctx.Member.ID)
	fn, ok := take(ctx.Remover, ctx.Failures, ctx.Identifier(), name, f.Name(), signature{
		in:    []reflect.Type{reflect.PtrTo(ctx.Schema.GoType)},
		out:   returns(stringType),
		wants: "string",
	})
	if ok {
		ctx.Holder.AddFacet(facets.NewDisableForContextFacet(name, fn, ctx.Holder))
	}
}

// ValidateMethodFacetFactory consumes validate<Property> (func(*T, V) string) and
// validate<Action> (func(*T, P0, ..., Pn) string) functions
type ValidateMethodFacetFactory struct{}

func (*ValidateMethodFacetFactory) Name() string                { return "ValidateMethodFacetFactory" }
func (*ValidateMethodFacetFactory) FeatureTypes() feature.Types { return feature.PropertiesAndActions }

func (f *ValidateMethodFacetFactory) ProcessMember(ctx *MemberContext) {
	name := SupportName("validate", ctx.Member.ID)
	in := []reflect.Type{reflect.PtrTo(ctx.Schema.GoType)}
	switch {
	case ctx.Property != nil:
		in = append(in, ctx.Property.Type)
	case ctx.Action != nil:
		for _, p := range ctx.Action.Parameters {
			in = append(in, p.Type)
		}
	default:
		return
	}
	fn, ok := take(ctx.Remover, ctx.Failures, ctx.Identifier(), name, f.Name(), signature{in: in, out: returns(stringType), wants: "string"})
	if !ok {
		return
	}
	if ctx.Property != nil {
		ctx.Holder.AddFacet(facets.NewValidateFacet(name, fn, ctx.Holder))
	} else {
		ctx.Holder.AddFacet(facets.NewActionValidationFacet(name, fn, ctx.Holder))
	}
}

// ChoicesMethodFacetFactory consumes choices<Property> functions: func(*T) []V
type ChoicesMethodFacetFactory struct{}

func (*ChoicesMethodFacetFactory) Name() string                { return "ChoicesMethodFacetFactory" }
func (*ChoicesMethodFacetFactory) FeatureTypes() feature.Types { return feature.PropertiesOnly }

func (f *ChoicesMethodFacetFactory) ProcessMember(ctx *MemberContext) {
	name := SupportName("choices", ctx.Member.ID)
	fn, ok := take(ctx.Remover, ctx.Failures, ctx.Identifier(), name, f.Name(), signature{
		in:    []reflect.Type{reflect.PtrTo(ctx.Schema.GoType)},
		out:   returnsSliceOf(ctx.Property.Type),
		wants: "[]" + ctx.Property.Type.String(),
	})
	if ok {
		ctx.Holder.AddFacet(facets.NewChoicesFacet(name, fn, ctx.Holder))
	}
}

// DefaultMethodFacetFactory consumes default<Property> functions: func(*T) V
type DefaultMethodFacetFactory struct{}

func (*DefaultMethodFacetFactory) Name() string                { return "DefaultMethodFacetFactory" }
func (*DefaultMethodFacetFactory) FeatureTypes() feature.Types { return feature.PropertiesOnly }

func (f *DefaultMethodFacetFactory) ProcessMember(ctx *MemberContext) {
	name := SupportName("default", ctx.Member.ID)
	fn, ok := take(ctx.Remover, ctx.Failures, ctx.Identifier(), name, f.Name(), signature{
		in:    []reflect.Type{reflect.PtrTo(ctx.Schema.GoType)},
		out:   returnsAssignableTo(ctx.Property.Type),
		wants: ctx.Property.Type.String(),
	})
	if ok {
		ctx.Holder.AddFacet(facets.NewDefaultFacet(name, fn, ctx.Holder))
	}
}

// ParameterMethodFacetFactory consumes validate<N><Action>, choices<N><Action> and default<N><Action>
type ParameterMethodFacetFactory struct{}

func (*ParameterMethodFacetFactory) Name() string                { return "ParameterMethodFacetFactory" }
func (*ParameterMethodFacetFactory) FeatureTypes() feature.Types { return feature.ParametersOnly }

func (f *ParameterMethodFacetFactory) ProcessParameter(ctx *ParameterContext) {
	receiver := reflect.PtrTo(ctx.Schema.GoType)
	paramType := ctx.Parameter.Type
	id := ctx.Identifier()

	name := ParameterSupportName("validate", ctx.Parameter.Index, ctx.Action.ID)
	if fn, ok := take(ctx.Remover, ctx.Failures, id, name, f.Name(), signature{
		in:    []reflect.Type{receiver, paramType},
		out:   returns(stringType),
		wants: "string",
	}); ok {
		ctx.Holder.AddFacet(facets.NewValidateFacet(name, fn, ctx.Holder))
	}

	name = ParameterSupportName("choices", ctx.Parameter.Index, ctx.Action.ID)
	if fn, ok := take(ctx.Remover, ctx.Failures, id, name, f.Name(), signature{
		in:    []reflect.Type{receiver},
		out:   returnsSliceOf(paramType),
		wants: "[]" + paramType.String(),
	}); ok {
		ctx.Holder.AddFacet(facets.NewChoicesFacet(name, fn, ctx.Holder))
	}

	name = ParameterSupportName("default", ctx.Parameter.Index, ctx.Action.ID)
	if fn, ok := take(ctx.Remover, ctx.Failures, id, name, f.Name(), signature{
		in:    []reflect.Type{receiver},
		out:   returnsAssignableTo(paramType),
		wants: paramType.String(),
	}); ok {
		ctx.Holder.AddFacet(facets.NewDefaultFacet(name, fn, ctx.Holder))
	}
}

// TitleFacetFactory consumes the title function (func(*T) string), falling back to Title properties
type TitleFacetFactory struct{}

func (*TitleFacetFactory) Name() string                { return "TitleFacetFactory" }
func (*TitleFacetFactory) FeatureTypes() feature.Types { return feature.ObjectsOnly }

func (f *TitleFacetFactory) ProcessClass(ctx *ClassContext) {
	fn, ok := take(ctx.Remover, ctx.Failures, feature.TypeIdentifier(ctx.Schema.LogicalName), "title", f.Name(), signature{
		in:    []reflect.Type{reflect.PtrTo(ctx.Schema.GoType)},
		out:   returns(stringType),
		wants: "string",
	})
	if ok {
		render := func(pojo interface{}) string {
			return fn.Call([]reflect.Value{reflect.ValueOf(pojo)})[0].String()
		}
		ctx.Holder.AddFacet(facets.NewTitleFacet(render, facets.OriginSupport, ctx.Holder, facet.PrecedenceLow))
		return
	}

	var parts []facets.TitlePart
	for _, p := range ctx.Schema.Properties {
		if title, ok := schema.Find[schema.Title](p.Annotations); ok {
			parts = append(parts, facets.TitlePart{Sequence: title.Sequence, Get: p.Get})
		}
	}
	if len(parts) > 0 {
		ctx.Holder.AddFacet(facets.NewTitleFacet(facets.ComposeTitle(parts), facets.OriginAnnotation, ctx.Holder, facet.PrecedenceLow))
	}
}

// DerivedPropertyFacetFactory always disables properties without a setter, replacing any
// annotation-level Disabled facet
type DerivedPropertyFacetFactory struct{}

func (*DerivedPropertyFacetFactory) Name() string                { return "DerivedPropertyFacetFactory" }
func (*DerivedPropertyFacetFactory) FeatureTypes() feature.Types { return feature.PropertiesOnly }

func (*DerivedPropertyFacetFactory) ProcessMember(ctx *MemberContext) {
	if ctx.Property.Set != nil {
		return
	}
	ctx.Holder.ReplaceFacet(facets.NewDisabledFacet(consent.WhereEverywhere, consent.WhenAlways, "Derived property",
		facets.OriginSynthesized, ctx.Holder, facet.PrecedenceLow))
}

// DomainEventFacetFactory installs domain event facets publishing to Bus
type DomainEventFacetFactory struct {
	Bus *events.Bus
}

func (*DomainEventFacetFactory) Name() string                { return "DomainEventFacetFactory" }
func (*DomainEventFacetFactory) FeatureTypes() feature.Types { return feature.Members }

func (f *DomainEventFacetFactory) ProcessMember(ctx *MemberContext) {
	event, ok := schema.Find[schema.DomainEvent](ctx.Member.Annotations)
	if !ok {
		return
	}
	name := event.Name
	if name == "" {
		name = ctx.Identifier().String()
	}
	ctx.Holder.AddFacet(facets.NewDomainEventFacet(name, f.Bus, ctx.Holder))
}

// take consumes name and checks its signature; a mismatch is recorded as a failure
func take(remover *MethodRemover, failures *exceptions.ValidationFailures, id feature.Identifier, name, factory string, sig signature) (reflect.Value, bool) {
	fn, ok := remover.Take(name, factory)
	if !ok {
		return reflect.Value{}, false
	}
	if err := sig.check(fn.Fn); err != nil {
		failures.Add(id.String(), "support function %s %v", name, err)
		return reflect.Value{}, false
	}
	return fn.Fn, true
}
