package progmodel

import (
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/events"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
)

// Target supplies the holders facets are attached to while a type is processed
type Target interface {
	TypeHolder() facet.Holder
	MemberHolder(id string) (facet.Holder, bool)
	ParameterHolder(actionID string, index int) (facet.Holder, bool)
}

// ProgrammingModel is the ordered facet factory pipeline
type ProgrammingModel struct {
	factories []FacetFactory
	logger    *zap.Logger
}

// New creates a programming model running factories in the given order
func New(logger *zap.Logger, factories ...FacetFactory) *ProgrammingModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgrammingModel{factories: factories, logger: logger}
}

// Default creates the standard pipeline. bus receives domain events; nil disables them.
func Default(logger *zap.Logger, bus *events.Bus) *ProgrammingModel {
	factories := []FacetFactory{
		&ProgrammaticFacetFactory{},
		&AccessorFacetFactory{},
		&NamedFacetFactory{},
		&WhenAndWhereFacetFactory{},
		&MandatoryFacetFactory{},
		&ValueSemanticsFacetFactory{},
		&MemberOrderFacetFactory{},
		&AuthorizationFacetFactory{},
		&PrimaryKeyFacetFactory{},
		&HideMethodFacetFactory{},
		&DisableMethodFacetFactory{},
		&ValidateMethodFacetFactory{},
		&ChoicesMethodFacetFactory{},
		&DefaultMethodFacetFactory{},
		&ParameterMethodFacetFactory{},
		&TitleFacetFactory{},
		&DerivedPropertyFacetFactory{},
	}
	if bus != nil {
		factories = append(factories, &DomainEventFacetFactory{Bus: bus})
	}
	return New(logger, factories...)
}

// Factories returns the pipeline in order
func (pm *ProgrammingModel) Factories() []FacetFactory {
	result := make([]FacetFactory, len(pm.factories))
	copy(result, pm.factories)
	return result
}

// Append adds factories to the end of the pipeline
func (pm *ProgrammingModel) Append(factories ...FacetFactory) {
	pm.factories = append(pm.factories, factories...)
}

// Process runs the pipeline over s, attaching facets to the holders of target.
// Declaration problems and orphaned support functions are returned as failures.
func (pm *ProgrammingModel) Process(s *schema.TypeSchema, target Target) *exceptions.ValidationFailures {
	failures := exceptions.NewValidationFailures()
	remover := NewMethodRemover(s)

	classCtx := &ClassContext{Schema: s, Holder: target.TypeHolder(), Remover: remover, Failures: failures}
	for _, f := range pm.factories {
		if cf, ok := f.(ClassFactory); ok && f.FeatureTypes().Contains(feature.Object) {
			cf.ProcessClass(classCtx)
		}
	}

	for _, p := range s.Properties {
		pm.processMember(&MemberContext{Schema: s, Member: &p.Member, Property: p, Remover: remover, Failures: failures}, target)
	}
	for _, c := range s.Collections {
		pm.processMember(&MemberContext{Schema: s, Member: &c.Member, Collection: c, Remover: remover, Failures: failures}, target)
	}
	for _, a := range s.Actions {
		pm.processMember(&MemberContext{Schema: s, Member: &a.Member, Action: a, Remover: remover, Failures: failures}, target)
		for _, param := range a.Parameters {
			holder, ok := target.ParameterHolder(a.ID, param.Index)
			if !ok {
				continue
			}
			ctx := &ParameterContext{Schema: s, Action: a, Parameter: param, Holder: holder, Remover: remover, Failures: failures}
			for _, f := range pm.factories {
				if pf, ok := f.(ParameterFactory); ok && f.FeatureTypes().Contains(feature.ActionParameter) {
					pf.ProcessParameter(ctx)
				}
			}
		}
	}

	for _, name := range remover.Remaining() {
		failures.Add(s.LogicalName, "orphaned support function %s (no member matches its naming convention)", name)
	}

	pm.logger.Debug("processed type",
		zap.String("type", s.LogicalName),
		zap.Int("failures", failures.Count()))
	return failures
}

func (pm *ProgrammingModel) processMember(ctx *MemberContext, target Target) {
	holder, ok := target.MemberHolder(ctx.Member.ID)
	if !ok {
		// programmatic members have no holder; their support functions go with them
		for _, prefix := range memberPrefixes {
			ctx.Remover.Take(SupportName(prefix, ctx.Member.ID), "programmatic")
		}
		if ctx.Action != nil {
			for _, param := range ctx.Action.Parameters {
				for _, prefix := range parameterPrefixes {
					ctx.Remover.Take(ParameterSupportName(prefix, param.Index, ctx.Member.ID), "programmatic")
				}
			}
		}
		return
	}
	ctx.Holder = holder
	for _, f := range pm.factories {
		if mf, ok := f.(MemberFactory); ok && f.FeatureTypes().Contains(ctx.Member.FeatureType) {
			mf.ProcessMember(ctx)
		}
	}
}
