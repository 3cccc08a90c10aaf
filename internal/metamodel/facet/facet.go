// Package facet provides the capability system attached to every metamodel element.
//
// A Facet is a small behavior or metadata object keyed by its facet type (a Go interface type).
// A Holder keeps, per facet type, a Ranking of every facet contributed for that type together with
// its Precedence. Lookups resolve to the winning facet without discarding the losers, so a layout
// override can be reverted or reported alongside the annotation it replaced.
package facet

import (
	"reflect"
	"sort"
)

// Precedence orders facets of the same type on the same holder.
// Higher values win; Event facets never take part in WinnerNonEvent.
type Precedence int

const (
	// PrecedenceDefault is used for synthesized facets (naming conventions, fallbacks)
	PrecedenceDefault Precedence = iota
	// PrecedenceLow is used for facets derived from declared annotations and support functions
	PrecedenceLow
	// PrecedenceHigh is used for facets derived from layout files and explicit overrides
	PrecedenceHigh
	// PrecedenceEvent is used for facets driven by domain events
	PrecedenceEvent
)

// String returns the string representation of the precedence
func (p Precedence) String() string {
	switch p {
	case PrecedenceDefault:
		return "DEFAULT"
	case PrecedenceLow:
		return "LOW"
	case PrecedenceHigh:
		return "HIGH"
	case PrecedenceEvent:
		return "EVENT"
	default:
		return "UNKNOWN"
	}
}

// IsEvent returns true for the event tier
func (p Precedence) IsEvent() bool {
	return p == PrecedenceEvent
}

// Facet is a unit of behavior or metadata owned by exactly one Holder
type Facet interface {
	// FacetType is the interface type the facet is ranked under
	FacetType() reflect.Type
	// Holder is the element the facet is attached to
	Holder() Holder
	// Precedence is the rank of the facet within its type
	Precedence() Precedence
	// Attributes describes the facet for introspection
	Attributes() map[string]interface{}
}

// TypeOf returns the facet type key for the interface F
func TypeOf[F any]() reflect.Type {
	return reflect.TypeOf((*F)(nil)).Elem()
}

// Base carries the bookkeeping common to all facets and is meant to be embedded
type Base struct {
	facetType  reflect.Type
	holder     Holder
	precedence Precedence
}

// NewBase creates the embedded part of a facet
func NewBase(facetType reflect.Type, holder Holder, precedence Precedence) Base {
	return Base{
		facetType:  facetType,
		holder:     holder,
		precedence: precedence,
	}
}

// FacetType implements Facet
func (b *Base) FacetType() reflect.Type {
	return b.facetType
}

// Holder implements Facet
func (b *Base) Holder() Holder {
	return b.holder
}

// Precedence implements Facet
func (b *Base) Precedence() Precedence {
	return b.precedence
}

// Attributes implements Facet
func (b *Base) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"precedence": b.precedence.String(),
	}
}

// Name returns the short name of a facet type, e.g. "HiddenFacet"
func Name(facetType reflect.Type) string {
	if facetType == nil {
		return ""
	}
	return facetType.Name()
}

// SortedAttributeKeys returns the attribute keys of f in lexical order
func SortedAttributeKeys(f Facet) []string {
	attrs := f.Attributes()
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
