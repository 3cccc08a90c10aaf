package spec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	casing "github.com/causeway-lang/causeway/internal/util/strings"
)

// ErrVetoed is matched by errors returned when an interaction is not allowed
var ErrVetoed = errors.New("interaction vetoed")

// VetoError carries the consent that refused an interaction
type VetoError struct {
	Consent consent.Consent
}

func (e *VetoError) Error() string {
	return "interaction vetoed: " + e.Consent.Reason()
}

// Is reports whether target is ErrVetoed
func (e *VetoError) Is(target error) bool {
	return target == ErrVetoed
}

// Interaction describes who asks and where the feature is rendered
type Interaction struct {
	Actor       consent.Actor
	InitiatedBy consent.InitiatedBy
	Where       consent.Where
}

// UserInteraction is an interaction on behalf of actor rendered on an object form
func UserInteraction(actor consent.Actor) Interaction {
	return Interaction{Actor: actor, InitiatedBy: consent.InitiatedByUser, Where: consent.WhereObjectForms}
}

// FrameworkInteraction is an internal interaction that ignores role restrictions
var FrameworkInteraction = Interaction{InitiatedBy: consent.InitiatedByFramework, Where: consent.WhereAnywhere}

// Member is a property, collection or action
type Member interface {
	facet.Holder
	ID() string
	Name() string
	Owner() *ObjectSpecification

	IsVisible(target object.Managed, in Interaction) consent.Consent
	IsUsable(target object.Managed, in Interaction) consent.Consent
	HiddenReason(target object.Managed, in Interaction) string
	DisabledReason(target object.Managed, in Interaction) string
}

type memberBase struct {
	*facet.BaseHolder
	owner *ObjectSpecification
	id    string
}

// ID is the member id, e.g. "lastName"
func (m *memberBase) ID() string { return m.id }

// Owner is the declaring specification
func (m *memberBase) Owner() *ObjectSpecification { return m.owner }

// Name is the display name, synthesized from the id unless declared or laid out
func (m *memberBase) Name() string {
	return displayName(m, casing.ToNaturalName(m.id))
}

// Description is the DescribedAs text, if any
func (m *memberBase) Description() string {
	if d, ok := facet.Get[facets.DescribedAsFacet](m); ok {
		return d.Text()
	}
	return ""
}

func (m *memberBase) visibility(target object.Managed, in Interaction) *consent.VisibilityContext {
	return consent.NewVisibilityContext(target, m.FeatureIdentifier(), in.Actor, in.InitiatedBy, in.Where)
}

func (m *memberBase) usability(target object.Managed, in Interaction) *consent.UsabilityContext {
	return consent.NewUsabilityContext(target, m.FeatureIdentifier(), in.Actor, in.InitiatedBy, in.Where)
}

// IsVisible consults every hiding advisor of the member
func (m *memberBase) IsVisible(target object.Managed, in Interaction) consent.Consent {
	return consent.IsVisibleResult(m, m.visibility(target, in)).CreateConsent()
}

// IsUsable consults every disabling advisor of the member
func (m *memberBase) IsUsable(target object.Managed, in Interaction) consent.Consent {
	return consent.IsUsableResult(m, m.usability(target, in)).CreateConsent()
}

// HiddenReason is the first hiding reason, "" when visible
func (m *memberBase) HiddenReason(target object.Managed, in Interaction) string {
	return consent.HiddenReason(m, m.visibility(target, in))
}

// DisabledReason is the first disabling reason, "" when usable
func (m *memberBase) DisabledReason(target object.Managed, in Interaction) string {
	return consent.DisabledReason(m, m.usability(target, in))
}

// checkAccess vetoes when the member is hidden or disabled for target
func (m *memberBase) checkAccess(target object.Managed, in Interaction) error {
	if c := m.IsVisible(target, in); c.IsVetoed() {
		return &VetoError{Consent: c}
	}
	if c := m.IsUsable(target, in); c.IsVetoed() {
		return &VetoError{Consent: c}
	}
	return nil
}

func (m *memberBase) executing(target object.Managed, args []interface{}) error {
	for _, ev := range facet.WinnersImplementing[facets.DomainEventFacet](m) {
		if err := ev.Executing(target, args); err != nil {
			return err
		}
	}
	return nil
}

func (m *memberBase) executed(target object.Managed, args []interface{}, result interface{}) error {
	for _, ev := range facet.WinnersImplementing[facets.DomainEventFacet](m) {
		if err := ev.Executed(target, args, result); err != nil {
			return err
		}
	}
	return nil
}

// OneToOneAssociation is a scalar property
type OneToOneAssociation struct {
	memberBase
	schema *schema.PropertySchema
}

// Type is the value type of the property
func (p *OneToOneAssociation) Type() reflect.Type {
	return p.schema.Type
}

// Get reads the property of target
func (p *OneToOneAssociation) Get(target object.Managed) interface{} {
	if accessor, ok := facet.Get[facets.PropertyAccessorFacet](p); ok {
		return accessor.Get(target)
	}
	return nil
}

// IsDerived is true for properties without a setter
func (p *OneToOneAssociation) IsDerived() bool {
	return !facet.Contains[facets.PropertySetterFacet](p)
}

// IsMandatory reports whether a value is required
func (p *OneToOneAssociation) IsMandatory() bool {
	if m, ok := facet.Get[facets.MandatoryFacet](p); ok {
		return m.IsMandatory()
	}
	return false
}

// IsValid consults every validating advisor for proposed
func (p *OneToOneAssociation) IsValid(target object.Managed, proposed interface{}, in Interaction) consent.Consent {
	ctx := consent.NewValidityContext(target, p.FeatureIdentifier(), in.Actor, in.InitiatedBy, proposed)
	ctx.Where = in.Where
	return consent.IsValidResult(p, ctx).CreateConsent()
}

// Choices returns the allowed values, nil when unrestricted
func (p *OneToOneAssociation) Choices(target object.Managed) []interface{} {
	if c, ok := facet.Get[facets.ChoicesFacet](p); ok {
		return c.Choices(target)
	}
	return nil
}

// Default returns the initial value for a new instance
func (p *OneToOneAssociation) Default(target object.Managed) interface{} {
	if d, ok := facet.Get[facets.DefaultFacet](p); ok {
		return d.Default(target)
	}
	return nil
}

// Set writes value without consent checks
func (p *OneToOneAssociation) Set(target object.Managed, value interface{}) error {
	setter, ok := facet.Get[facets.PropertySetterFacet](p)
	if !ok {
		return fmt.Errorf("%s: %w", p.FeatureIdentifier(), schema.ErrReadOnly)
	}
	return setter.Set(target, value)
}

// Modify checks visibility, usability and validity for in, then sets value and posts domain events
func (p *OneToOneAssociation) Modify(target object.Managed, value interface{}, in Interaction) error {
	if err := p.checkAccess(target, in); err != nil {
		return err
	}
	if c := p.IsValid(target, value, in); c.IsVetoed() {
		return &VetoError{Consent: c}
	}
	args := []interface{}{value}
	if err := p.executing(target, args); err != nil {
		return err
	}
	if err := p.Set(target, value); err != nil {
		return err
	}
	return p.executed(target, args, nil)
}

// OneToManyAssociation is a collection
type OneToManyAssociation struct {
	memberBase
	schema *schema.CollectionSchema
}

// ElementType is the type of the collection's elements
func (c *OneToManyAssociation) ElementType() reflect.Type {
	return c.schema.ElementType
}

// Elements reads the collection of target
func (c *OneToManyAssociation) Elements(target object.Managed) []interface{} {
	if accessor, ok := facet.Get[facets.CollectionAccessorFacet](c); ok {
		return accessor.Elements(target)
	}
	return nil
}

// ObjectAction is an invokable member
type ObjectAction struct {
	memberBase
	schema     *schema.ActionSchema
	parameters []*ActionParameter
}

// Parameters returns the parameters in declaration order
func (a *ObjectAction) Parameters() []*ActionParameter {
	result := make([]*ActionParameter, len(a.parameters))
	copy(result, a.parameters)
	return result
}

// Parameter returns the parameter at index
func (a *ObjectAction) Parameter(index int) (*ActionParameter, bool) {
	if index < 0 || index >= len(a.parameters) {
		return nil, false
	}
	return a.parameters[index], true
}

// ReturnType is the type of the action's result, nil when it returns nothing
func (a *ObjectAction) ReturnType() reflect.Type {
	return a.schema.ReturnType
}

// ArgumentsValidity validates each argument against its parameter, then the argument list as a whole
func (a *ObjectAction) ArgumentsValidity(target object.Managed, args []interface{}, in Interaction) *consent.InteractionResultSet {
	set := consent.NewInteractionResultSet()
	for i, p := range a.parameters {
		var arg interface{}
		if i < len(args) {
			arg = args[i]
		}
		set.Add(p.validityResult(target, arg, in))
	}
	ctx := consent.NewArgumentsValidityContext(target, a.FeatureIdentifier(), in.Actor, in.InitiatedBy, args)
	ctx.Where = in.Where
	set.Add(consent.IsValidResult(a, ctx))
	return set
}

// IsProposedArgumentSetValid is the consent form of ArgumentsValidity
func (a *ObjectAction) IsProposedArgumentSetValid(target object.Managed, args []interface{}, in Interaction) consent.Consent {
	return a.ArgumentsValidity(target, args, in).CreateConsent()
}

// Invoke runs the action without consent checks
func (a *ObjectAction) Invoke(target object.Managed, args []interface{}) (interface{}, error) {
	invocation, ok := facet.Get[facets.ActionInvocationFacet](a)
	if !ok {
		return nil, fmt.Errorf("%s has no invocation", a.FeatureIdentifier())
	}
	return invocation.Invoke(target, args)
}

// Execute checks visibility, usability and argument validity for in, then invokes the action and
// posts domain events
func (a *ObjectAction) Execute(target object.Managed, args []interface{}, in Interaction) (interface{}, error) {
	if err := a.checkAccess(target, in); err != nil {
		return nil, err
	}
	if c := a.IsProposedArgumentSetValid(target, args, in); c.IsVetoed() {
		return nil, &VetoError{Consent: c}
	}
	if err := a.executing(target, args); err != nil {
		return nil, err
	}
	result, err := a.Invoke(target, args)
	if err != nil {
		return nil, err
	}
	if err := a.executed(target, args, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ActionParameter is one parameter of an action
type ActionParameter struct {
	*facet.BaseHolder
	action *ObjectAction
	schema *schema.ParameterSchema
}

// Index is the zero-based position of the parameter
func (p *ActionParameter) Index() int { return p.schema.Index }

// Action is the owning action
func (p *ActionParameter) Action() *ObjectAction { return p.action }

// Type is the parameter type
func (p *ActionParameter) Type() reflect.Type { return p.schema.Type }

// Schema is the declaration the parameter was built from
func (p *ActionParameter) Schema() *schema.ParameterSchema { return p.schema }

// Name is the display name of the parameter
func (p *ActionParameter) Name() string {
	return displayName(p, casing.ToNaturalName(p.schema.Name))
}

// IsMandatory reports whether an argument is required
func (p *ActionParameter) IsMandatory() bool {
	if m, ok := facet.Get[facets.MandatoryFacet](p); ok {
		return m.IsMandatory()
	}
	return false
}

func (p *ActionParameter) validityResult(target object.Managed, proposed interface{}, in Interaction) *consent.InteractionResult {
	ctx := consent.NewValidityContext(target, p.FeatureIdentifier(), in.Actor, in.InitiatedBy, proposed)
	ctx.Where = in.Where
	return consent.IsValidResult(p, ctx)
}

// IsValid validates a single proposed argument
func (p *ActionParameter) IsValid(target object.Managed, proposed interface{}, in Interaction) consent.Consent {
	return p.validityResult(target, proposed, in).CreateConsent()
}

// Choices returns the allowed arguments, nil when unrestricted
func (p *ActionParameter) Choices(target object.Managed) []interface{} {
	if c, ok := facet.Get[facets.ChoicesFacet](p); ok {
		return c.Choices(target)
	}
	return nil
}

// Default returns the default argument
func (p *ActionParameter) Default(target object.Managed) interface{} {
	if d, ok := facet.Get[facets.DefaultFacet](p); ok {
		return d.Default(target)
	}
	return nil
}
