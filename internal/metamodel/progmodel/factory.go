// Package progmodel turns registered schemas into facets.
//
// The programming model is an ordered pipeline of facet factories. Each factory declares the
// feature types it applies to and is handed a processing context per type, member or parameter.
// Support functions found by naming convention are consumed through a MethodRemover so that no
// two factories can claim the same function; whatever is left unconsumed is reported as orphaned.
package progmodel

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
)

// FacetFactory is one stage of the programming model
type FacetFactory interface {
	// Name identifies the factory in logs and introspection
	Name() string
	// FeatureTypes lists the feature types the factory is invoked for
	FeatureTypes() feature.Types
}

// ClassFactory processes a domain type as a whole
type ClassFactory interface {
	FacetFactory
	ProcessClass(ctx *ClassContext)
}

// MemberFactory processes properties, collections and actions
type MemberFactory interface {
	FacetFactory
	ProcessMember(ctx *MemberContext)
}

// ParameterFactory processes action parameters
type ParameterFactory interface {
	FacetFactory
	ProcessParameter(ctx *ParameterContext)
}

// MethodRemover hands out the support functions of one type, each at most once
type MethodRemover struct {
	mu       sync.Mutex
	funcs    map[string]schema.SupportFunc
	consumed map[string]string
}

// NewMethodRemover creates a remover over the support functions of s
func NewMethodRemover(s *schema.TypeSchema) *MethodRemover {
	r := &MethodRemover{
		funcs:    make(map[string]schema.SupportFunc, len(s.Supports)),
		consumed: make(map[string]string),
	}
	for _, fn := range s.Supports {
		r.funcs[fn.Name] = fn
	}
	return r
}

// Take consumes the support function called name on behalf of factory
func (r *MethodRemover) Take(name, factory string) (schema.SupportFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.funcs[name]
	if !ok {
		return schema.SupportFunc{}, false
	}
	delete(r.funcs, name)
	r.consumed[name] = factory
	return fn, true
}

// ConsumedBy reports which factory took name
func (r *MethodRemover) ConsumedBy(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.consumed[name]
	return factory, ok
}

// Remaining returns the names not yet consumed, sorted
func (r *MethodRemover) Remaining() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassContext is handed to class factories
type ClassContext struct {
	Schema   *schema.TypeSchema
	Holder   facet.Holder
	Remover  *MethodRemover
	Failures *exceptions.ValidationFailures
}

// MemberContext is handed to member factories; exactly one of Property, Collection and Action is set
type MemberContext struct {
	Schema     *schema.TypeSchema
	Member     *schema.Member
	Property   *schema.PropertySchema
	Collection *schema.CollectionSchema
	Action     *schema.ActionSchema
	Holder     facet.Holder
	Remover    *MethodRemover
	Failures   *exceptions.ValidationFailures
}

// Identifier returns the identifier of the member being processed
func (c *MemberContext) Identifier() feature.Identifier {
	return feature.MemberIdentifier(c.Schema.LogicalName, c.Member.ID)
}

// SupportName builds the conventional support function name, e.g. ("hide", "lastName") -> "hideLastName"
func SupportName(prefix, memberID string) string {
	if memberID == "" {
		return prefix
	}
	return prefix + strings.ToUpper(memberID[:1]) + memberID[1:]
}

// ParameterSupportName builds the per-parameter name, e.g. ("choices", 0, "addVisit") -> "choices0AddVisit"
func ParameterSupportName(prefix string, index int, actionID string) string {
	return SupportName(prefix+strconv.Itoa(index), actionID)
}

// ParameterContext is handed to parameter factories
type ParameterContext struct {
	Schema    *schema.TypeSchema
	Action    *schema.ActionSchema
	Parameter *schema.ParameterSchema
	Holder    facet.Holder
	Remover   *MethodRemover
	Failures  *exceptions.ValidationFailures
}

// Identifier returns the identifier of the parameter being processed
func (c *ParameterContext) Identifier() feature.Identifier {
	return feature.ParameterIdentifier(c.Schema.LogicalName, c.Action.ID, c.Parameter.Index)
}
