package schema

import (
	"fmt"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
)

// Annotation is a declared capability of a type, member or parameter.
// The set of variants is closed; facet factories switch on the concrete type.
type Annotation interface {
	annotation()
	// String describes the annotation for introspection
	String() string
}

// Hidden hides the annotated feature in the Where locations, subject to When
type Hidden struct {
	Where consent.Where
	When  consent.When
}

// Disabled makes the annotated feature read-only in the Where locations, subject to When
type Disabled struct {
	Where  consent.Where
	When   consent.When
	Reason string
}

// Named overrides the synthesized display name
type Named struct {
	Name string
}

// DescribedAs is a longer description shown as a tooltip or help text
type DescribedAs struct {
	Text string
}

// MaxLength bounds the length of string values
type MaxLength struct {
	Length int
}

// Optional marks a property or parameter as not mandatory
type Optional struct{}

// RegEx constrains string values to Pattern
type RegEx struct {
	Pattern string
}

// Mask is a display mask for entry, e.g. "###-####"
type Mask struct {
	Pattern string
}

// Programmatic excludes the annotated type or member from the metamodel
type Programmatic struct{}

// MemberOrder positions a member within a named group
type MemberOrder struct {
	Group    string
	Sequence string
}

// RequiresRole restricts the feature to actors with at least one of Roles.
// Actors without a role have the feature hidden, or disabled when Disable is set.
type RequiresRole struct {
	Roles   []string
	Disable bool
}

// DomainEvent publishes Name when the feature is checked or invoked, letting
// subscribers hide, disable or veto it
type DomainEvent struct {
	Name string
}

// PrimaryKey marks the property that identifies persistent instances
type PrimaryKey struct{}

// Title marks a property as part of the type's title
type Title struct {
	Sequence int
}

func (Hidden) annotation() {}
func (Disabled) annotation() {}
func (Named) annotation() {}
func (DescribedAs) annotation() {}
func (MaxLength) annotation() {}
func (Optional) annotation() {}
func (RegEx) annotation() {}
func (Mask) annotation() {}
func (Programmatic) annotation() {}
func (MemberOrder) annotation() {}
func (RequiresRole) annotation() {}
func (DomainEvent) annotation() {}
func (PrimaryKey) annotation() {}
func (Title) annotation() {}

func (a Hidden) String() string {
	return fmt.Sprintf("@Hidden(where=%s, when=%s)", a.Where, a.When)
}

func (a Disabled) String() string {
	return fmt.Sprintf("@Disabled(where=%s, when=%s, reason=%q)", a.Where, a.When, a.Reason)
}

func (a Named) String() string { return fmt.Sprintf("@Named(%q)", a.Name) }
func (a DescribedAs) String() string { return fmt.Sprintf("@DescribedAs(%q)", a.Text) }
func (a MaxLength) String() string { return fmt.Sprintf("@MaxLength(%d)", a.Length) }
func (Optional) String() string { return "@Optional" }
func (a RegEx) String() string { return fmt.Sprintf("@RegEx(%q)", a.Pattern) }
func (a Mask) String() string { return fmt.Sprintf("@Mask(%q)", a.Pattern) }
func (Programmatic) String() string { return "@Programmatic" }
func (a MemberOrder) String() string { return fmt.Sprintf("@MemberOrder(%s:%s)", a.Group, a.Sequence) }
func (a RequiresRole) String() string { return fmt.Sprintf("@RequiresRole(%v, disable=%t)", a.Roles, a.Disable) }
func (a DomainEvent) String() string { return fmt.Sprintf("@DomainEvent(%q)", a.Name) }
func (PrimaryKey) String() string { return "@PrimaryKey" }
func (a Title) String() string { return fmt.Sprintf("@Title(%d)", a.Sequence) }

// Annotations is an ordered list of annotations on one element
type Annotations []Annotation

// Find returns the first annotation of type A
func Find[A Annotation](anns Annotations) (A, bool) {
	for _, a := range anns {
		if typed, ok := a.(A); ok {
			return typed, true
		}
	}
	var zero A
	return zero, false
}

// Has reports whether anns contains an annotation of type A
func Has[A Annotation](anns Annotations) bool {
	_, ok := Find[A](anns)
	return ok
}
