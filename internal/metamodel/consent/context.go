package consent

import (
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
)

// Kind identifies the question an interaction asks
type Kind int

const (
	// KindVisibility asks whether a feature may be seen
	KindVisibility Kind = iota
	// KindUsability asks whether a feature may be used
	KindUsability
	// KindValidity asks whether a proposed value or argument set is acceptable
	KindValidity
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindVisibility:
		return "VISIBILITY"
	case KindUsability:
		return "USABILITY"
	case KindValidity:
		return "VALIDITY"
	default:
		return "UNKNOWN"
	}
}

// InitiatedBy distinguishes interactions started by an end user from those the framework performs
type InitiatedBy int

const (
	// InitiatedByUser is an interaction on behalf of the current actor
	InitiatedByUser InitiatedBy = iota
	// InitiatedByFramework is an internal interaction (fixtures, rendering bookkeeping)
	InitiatedByFramework
)

// IsUser is true for user-initiated interactions
func (i InitiatedBy) IsUser() bool {
	return i == InitiatedByUser
}

// String returns the string representation of the initiator
func (i InitiatedBy) String() string {
	if i == InitiatedByFramework {
		return "FRAMEWORK"
	}
	return "USER"
}

// Actor is the user an interaction is evaluated for
type Actor struct {
	User  string
	Roles []string
}

// Anonymous is an actor with no user and no roles
var Anonymous = Actor{}

// HasRole reports whether the actor carries role
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the actor carries at least one of roles
func (a Actor) HasAnyRole(roles []string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// InteractionContext is the common part of every interaction check
type InteractionContext struct {
	Kind        Kind
	Target      object.Managed
	Identifier  feature.Identifier
	Where       Where
	InitiatedBy InitiatedBy
	Actor       Actor
}

// VisibilityContext asks whether Identifier is visible on Target
type VisibilityContext struct {
	InteractionContext
}

// NewVisibilityContext creates a visibility check
func NewVisibilityContext(target object.Managed, id feature.Identifier, actor Actor, initiatedBy InitiatedBy, where Where) *VisibilityContext {
	return &VisibilityContext{InteractionContext{
		Kind:        KindVisibility,
		Target:      target,
		Identifier:  id,
		Where:       where,
		InitiatedBy: initiatedBy,
		Actor:       actor,
	}}
}

// UsabilityContext asks whether Identifier may be used on Target
type UsabilityContext struct {
	InteractionContext
}

// NewUsabilityContext creates a usability check
func NewUsabilityContext(target object.Managed, id feature.Identifier, actor Actor, initiatedBy InitiatedBy, where Where) *UsabilityContext {
	return &UsabilityContext{InteractionContext{
		Kind:        KindUsability,
		Target:      target,
		Identifier:  id,
		Where:       where,
		InitiatedBy: initiatedBy,
		Actor:       actor,
	}}
}

// ValidityContext asks whether Proposed (a property value or a single argument) or Args
// (a complete action argument list) is acceptable
type ValidityContext struct {
	InteractionContext
	Proposed interface{}
	Args     []interface{}
}

// NewValidityContext creates a validity check for a single proposed value
func NewValidityContext(target object.Managed, id feature.Identifier, actor Actor, initiatedBy InitiatedBy, proposed interface{}) *ValidityContext {
	return &ValidityContext{
		InteractionContext: InteractionContext{
			Kind:        KindValidity,
			Target:      target,
			Identifier:  id,
			Where:       WhereNotSpecified,
			InitiatedBy: initiatedBy,
			Actor:       actor,
		},
		Proposed: proposed,
	}
}

// NewArgumentsValidityContext creates a validity check for a complete action argument list
func NewArgumentsValidityContext(target object.Managed, id feature.Identifier, actor Actor, initiatedBy InitiatedBy, args []interface{}) *ValidityContext {
	ctx := NewValidityContext(target, id, actor, initiatedBy, nil)
	ctx.Args = args
	return ctx
}

// TargetState returns the persistence state of the target, tolerating a nil target
func (c *InteractionContext) TargetState() object.State {
	if c.Target == nil {
		return object.StateNotApplicable
	}
	return c.Target.State()
}
