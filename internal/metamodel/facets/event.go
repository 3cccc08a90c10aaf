package facets

import (
	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/events"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
)

// DomainEventFacet posts domain events to a bus during consent checks and execution.
// It is ranked at PrecedenceEvent and therefore never a non-event winner.
type DomainEventFacet interface {
	consent.HidingAdvisor
	consent.DisablingAdvisor
	consent.ValidatingAdvisor
	EventName() string
	// Executing is posted before the member runs; a subscriber error aborts the interaction
	Executing(target object.Managed, args []interface{}) error
	// Executed is posted after the member ran
	Executed(target object.Managed, args []interface{}, result interface{}) error
}

type domainEvent struct {
	facet.Base
	name string
	bus  *events.Bus
}

// NewDomainEventFacet creates a domain event facet publishing to bus
func NewDomainEventFacet(name string, bus *events.Bus, holder facet.Holder) DomainEventFacet {
	return &domainEvent{
		Base: facet.NewBase(facet.TypeOf[DomainEventFacet](), holder, facet.PrecedenceEvent),
		name: name,
		bus:  bus,
	}
}

func (f *domainEvent) EventName() string { return f.name }

func (f *domainEvent) newEvent(phase events.Phase, ctx *consent.InteractionContext) *events.Event {
	return &events.Event{
		Name:       f.name,
		Phase:      phase,
		Identifier: ctx.Identifier,
		Source:     object.Pojo(ctx.Target),
	}
}

// Hides implements consent.HidingAdvisor
func (f *domainEvent) Hides(ctx *consent.VisibilityContext) string {
	e := f.newEvent(events.PhaseHide, &ctx.InteractionContext)
	if err := f.bus.Post(e); err != nil {
		return err.Error()
	}
	if e.IsHidden() {
		return "Hidden by subscriber"
	}
	return ""
}

// Disables implements consent.DisablingAdvisor
func (f *domainEvent) Disables(ctx *consent.UsabilityContext) string {
	e := f.newEvent(events.PhaseDisable, &ctx.InteractionContext)
	if err := f.bus.Post(e); err != nil {
		return err.Error()
	}
	return e.DisabledReason()
}

// Invalidates implements consent.ValidatingAdvisor
func (f *domainEvent) Invalidates(ctx *consent.ValidityContext) string {
	e := f.newEvent(events.PhaseValidate, &ctx.InteractionContext)
	e.Proposed = ctx.Proposed
	e.Args = ctx.Args
	if err := f.bus.Post(e); err != nil {
		return err.Error()
	}
	return e.InvalidReason()
}

func (f *domainEvent) Executing(target object.Managed, args []interface{}) error {
	return f.bus.Post(&events.Event{
		Name:       f.name,
		Phase:      events.PhaseExecuting,
		Identifier: f.Holder().FeatureIdentifier(),
		Source:     object.Pojo(target),
		Args:       args,
	})
}

func (f *domainEvent) Executed(target object.Managed, args []interface{}, result interface{}) error {
	return f.bus.Post(&events.Event{
		Name:       f.name,
		Phase:      events.PhaseExecuted,
		Identifier: f.Holder().FeatureIdentifier(),
		Source:     object.Pojo(target),
		Args:       args,
		Result:     result,
	})
}

func (f *domainEvent) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["event"] = f.name
	attrs["origin"] = string(OriginEvent)
	return attrs
}
