// Package spec holds the metamodel of loaded domain types: one ObjectSpecification per type,
// with its properties, collections, actions and parameters. Every element is a facet holder.
package spec

import (
	"reflect"
	"sort"

	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
)

// ObjectSpecification is the metamodel node of one domain type
type ObjectSpecification struct {
	*facet.BaseHolder

	schema     *schema.TypeSchema
	superclass *ObjectSpecification

	properties  []*OneToOneAssociation
	collections []*OneToManyAssociation
	actions     []*ObjectAction
	members     map[string]Member
}

// New creates the specification of s with empty facet holders. Members declared Programmatic
// are left out. superclass may be nil.
func New(s *schema.TypeSchema, superclass *ObjectSpecification) *ObjectSpecification {
	spec := &ObjectSpecification{
		BaseHolder: facet.NewBaseHolder(feature.Object, feature.TypeIdentifier(s.LogicalName)),
		schema:     s,
		superclass: superclass,
		members:    make(map[string]Member),
	}
	for _, p := range s.Properties {
		if schema.Has[schema.Programmatic](p.Annotations) {
			continue
		}
		m := &OneToOneAssociation{memberBase: spec.newMember(feature.Property, p.ID), schema: p}
		spec.properties = append(spec.properties, m)
		spec.members[p.ID] = m
	}
	for _, c := range s.Collections {
		if schema.Has[schema.Programmatic](c.Annotations) {
			continue
		}
		m := &OneToManyAssociation{memberBase: spec.newMember(feature.Collection, c.ID), schema: c}
		spec.collections = append(spec.collections, m)
		spec.members[c.ID] = m
	}
	for _, a := range s.Actions {
		if schema.Has[schema.Programmatic](a.Annotations) {
			continue
		}
		m := &ObjectAction{memberBase: spec.newMember(feature.Action, a.ID), schema: a}
		for _, p := range a.Parameters {
			m.parameters = append(m.parameters, &ActionParameter{
				BaseHolder: facet.NewBaseHolder(feature.ActionParameter, feature.ParameterIdentifier(s.LogicalName, a.ID, p.Index)),
				action:     m,
				schema:     p,
			})
		}
		spec.actions = append(spec.actions, m)
		spec.members[a.ID] = m
	}
	return spec
}

func (s *ObjectSpecification) newMember(ft feature.Type, id string) memberBase {
	return memberBase{
		BaseHolder: facet.NewBaseHolder(ft, feature.MemberIdentifier(s.schema.LogicalName, id)),
		owner:      s,
		id:         id,
	}
}

// TypeHolder implements progmodel.Target
func (s *ObjectSpecification) TypeHolder() facet.Holder {
	return s
}

// MemberHolder implements progmodel.Target
func (s *ObjectSpecification) MemberHolder(id string) (facet.Holder, bool) {
	m, ok := s.members[id]
	return m, ok
}

// ParameterHolder implements progmodel.Target
func (s *ObjectSpecification) ParameterHolder(actionID string, index int) (facet.Holder, bool) {
	a, ok := s.Action(actionID)
	if !ok || index < 0 || index >= len(a.parameters) {
		return nil, false
	}
	return a.parameters[index], true
}

// GoType is the struct type instances point to
func (s *ObjectSpecification) GoType() reflect.Type {
	return s.schema.GoType
}

// LogicalTypeName is the stable name of the type, e.g. "petclinic.Owner"
func (s *ObjectSpecification) LogicalTypeName() string {
	return s.schema.LogicalName
}

// BeanSort classifies how instances are managed
func (s *ObjectSpecification) BeanSort() schema.BeanSort {
	return s.schema.Sort
}

// Schema is the registration the specification was built from
func (s *ObjectSpecification) Schema() *schema.TypeSchema {
	return s.schema
}

// Superclass is the specification of the first embedded registered type, or nil
func (s *ObjectSpecification) Superclass() *ObjectSpecification {
	return s.superclass
}

// IsOfType reports whether s is other or embeds it, directly or transitively
func (s *ObjectSpecification) IsOfType(other *ObjectSpecification) bool {
	for cur := s; cur != nil; cur = cur.superclass {
		if cur == other {
			return true
		}
	}
	return false
}

// Properties returns the properties in member order
func (s *ObjectSpecification) Properties() []*OneToOneAssociation {
	return sortedMembers(s.properties)
}

// Collections returns the collections in member order
func (s *ObjectSpecification) Collections() []*OneToManyAssociation {
	return sortedMembers(s.collections)
}

// Actions returns the actions in member order
func (s *ObjectSpecification) Actions() []*ObjectAction {
	return sortedMembers(s.actions)
}

// Members returns properties, collections and actions, each group in member order
func (s *ObjectSpecification) Members() []Member {
	result := make([]Member, 0, len(s.members))
	for _, p := range s.Properties() {
		result = append(result, p)
	}
	for _, c := range s.Collections() {
		result = append(result, c)
	}
	for _, a := range s.Actions() {
		result = append(result, a)
	}
	return result
}

// Member returns the member with id
func (s *ObjectSpecification) Member(id string) (Member, bool) {
	m, ok := s.members[id]
	return m, ok
}

// Property returns the property with id
func (s *ObjectSpecification) Property(id string) (*OneToOneAssociation, bool) {
	p, ok := s.members[id].(*OneToOneAssociation)
	return p, ok
}

// Collection returns the collection with id
func (s *ObjectSpecification) Collection(id string) (*OneToManyAssociation, bool) {
	c, ok := s.members[id].(*OneToManyAssociation)
	return c, ok
}

// Action returns the action with id
func (s *ObjectSpecification) Action(id string) (*ObjectAction, bool) {
	a, ok := s.members[id].(*ObjectAction)
	return a, ok
}

// Holders returns the type itself, then every member, each action followed by its parameters
func (s *ObjectSpecification) Holders() []facet.Holder {
	result := []facet.Holder{s}
	for _, m := range s.Members() {
		result = append(result, m)
		if a, ok := m.(*ObjectAction); ok {
			for _, p := range a.parameters {
				result = append(result, p)
			}
		}
	}
	return result
}

// PrimaryKey returns the identity property of an entity
func (s *ObjectSpecification) PrimaryKey() (*OneToOneAssociation, bool) {
	for _, p := range s.properties {
		if facet.Contains[facets.PrimaryKeyFacet](p) {
			return p, true
		}
	}
	return nil, false
}

// IsProgrammatic reports whether the type was excluded from the metamodel
func (s *ObjectSpecification) IsProgrammatic() bool {
	return facet.Contains[facets.ProgrammaticFacet](s)
}

// Name is the display name of the type
func (s *ObjectSpecification) Name() string {
	return displayName(s, s.schema.GoType.Name())
}

// Title renders target, falling back to "Untitled <Name>"
func (s *ObjectSpecification) Title(target object.Managed) string {
	if title, ok := facet.Get[facets.TitleFacet](s); ok {
		if t := title.Title(target); t != "" {
			return t
		}
	}
	return "Untitled " + s.Name()
}

// NewInstance creates a new pojo of the type
func (s *ObjectSpecification) NewInstance() interface{} {
	return s.schema.NewInstance()
}

// IsInstance reports whether pojo is a *T of the type
func (s *ObjectSpecification) IsInstance(pojo interface{}) bool {
	return s.schema.IsInstance(pojo)
}

func (s *ObjectSpecification) String() string {
	return "ObjectSpecification[" + s.LogicalTypeName() + "]"
}

func displayName(h facet.Holder, fallback string) string {
	if named, ok := facet.Get[facets.NamedFacet](h); ok {
		return named.Text()
	}
	return fallback
}

type ordered interface {
	facet.Holder
	ID() string
}

// sortedMembers orders by MemberOrder sequence; members without one keep declaration order at the end
func sortedMembers[M ordered](members []M) []M {
	result := make([]M, len(members))
	copy(result, members)
	sort.SliceStable(result, func(i, j int) bool {
		return facets.CompareSequence(sequenceOf(result[i]), sequenceOf(result[j])) < 0
	})
	return result
}

func sequenceOf(h facet.Holder) string {
	if order, ok := facet.Get[facets.MemberOrderFacet](h); ok {
		return order.Sequence()
	}
	return ""
}
