package facets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
)

// PropertyAccessorFacet reads a property value
type PropertyAccessorFacet interface {
	facet.Facet
	Get(target object.Managed) interface{}
}

// PropertySetterFacet writes a property value
type PropertySetterFacet interface {
	facet.Facet
	Set(target object.Managed, value interface{}) error
}

// CollectionAccessorFacet reads the elements of a collection
type CollectionAccessorFacet interface {
	facet.Facet
	Elements(target object.Managed) []interface{}
}

// ActionInvocationFacet runs an action
type ActionInvocationFacet interface {
	facet.Facet
	Invoke(target object.Managed, args []interface{}) (interface{}, error)
}

type propertyAccessor struct {
	facet.Base
	get func(pojo interface{}) interface{}
}

// NewPropertyAccessorFacet creates an accessor backed by get
func NewPropertyAccessorFacet(get func(pojo interface{}) interface{}, holder facet.Holder) PropertyAccessorFacet {
	return &propertyAccessor{Base: facet.NewBase(facet.TypeOf[PropertyAccessorFacet](), holder, facet.PrecedenceLow), get: get}
}

func (f *propertyAccessor) Get(target object.Managed) interface{} {
	pojo := object.Pojo(target)
	if pojo == nil {
		return nil
	}
	return f.get(pojo)
}

type propertySetter struct {
	facet.Base
	set func(pojo interface{}, value interface{}) error
}

// NewPropertySetterFacet creates a setter backed by set
func NewPropertySetterFacet(set func(pojo interface{}, value interface{}) error, holder facet.Holder) PropertySetterFacet {
	return &propertySetter{Base: facet.NewBase(facet.TypeOf[PropertySetterFacet](), holder, facet.PrecedenceLow), set: set}
}

func (f *propertySetter) Set(target object.Managed, value interface{}) error {
	pojo := object.Pojo(target)
	if pojo == nil {
		return fmt.Errorf("cannot set %s on a nil target", f.Holder().FeatureIdentifier())
	}
	return f.set(pojo, value)
}

type collectionAccessor struct {
	facet.Base
	get func(pojo interface{}) []interface{}
}

// NewCollectionAccessorFacet creates an accessor backed by get
func NewCollectionAccessorFacet(get func(pojo interface{}) []interface{}, holder facet.Holder) CollectionAccessorFacet {
	return &collectionAccessor{Base: facet.NewBase(facet.TypeOf[CollectionAccessorFacet](), holder, facet.PrecedenceLow), get: get}
}

func (f *collectionAccessor) Elements(target object.Managed) []interface{} {
	pojo := object.Pojo(target)
	if pojo == nil {
		return nil
	}
	return f.get(pojo)
}

type actionInvocation struct {
	facet.Base
	invoke func(pojo interface{}, args []interface{}) (interface{}, error)
}

// NewActionInvocationFacet creates an invocation facet backed by invoke
func NewActionInvocationFacet(invoke func(pojo interface{}, args []interface{}) (interface{}, error), holder facet.Holder) ActionInvocationFacet {
	return &actionInvocation{Base: facet.NewBase(facet.TypeOf[ActionInvocationFacet](), holder, facet.PrecedenceLow), invoke: invoke}
}

func (f *actionInvocation) Invoke(target object.Managed, args []interface{}) (interface{}, error) {
	pojo := object.Pojo(target)
	if pojo == nil {
		return nil, fmt.Errorf("cannot invoke %s on a nil target", f.Holder().FeatureIdentifier())
	}
	return f.invoke(pojo, args)
}

// MemberOrderFacet positions a member within a group
type MemberOrderFacet interface {
	facet.Facet
	Group() string
	Sequence() string
}

type memberOrder struct {
	facet.Base
	group    string
	sequence string
}

// NewMemberOrderFacet creates a member order facet
func NewMemberOrderFacet(group, sequence string, holder facet.Holder, precedence facet.Precedence) MemberOrderFacet {
	return &memberOrder{Base: facet.NewBase(facet.TypeOf[MemberOrderFacet](), holder, precedence), group: group, sequence: sequence}
}

func (f *memberOrder) Group() string { return f.group }
func (f *memberOrder) Sequence() string { return f.sequence }

func (f *memberOrder) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["group"] = f.group
	attrs["sequence"] = f.sequence
	return attrs
}

// CompareSequence orders dewey-decimal sequences ("1", "1.2", "10"); empty sequences sort last
func CompareSequence(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := compareComponent(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return len(pa) - len(pb)
}

func compareComponent(a, b string) int {
	var na, nb int
	_, errA := fmt.Sscanf(a, "%d", &na)
	_, errB := fmt.Sscanf(b, "%d", &nb)
	if errA == nil && errB == nil && na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// TitleFacet renders the title of an instance
type TitleFacet interface {
	facet.Facet
	Title(target object.Managed) string
}

type titleFn struct {
	facet.Base
	render func(pojo interface{}) string
	origin Origin
}

// NewTitleFacet creates a title facet from a rendering function
func NewTitleFacet(render func(pojo interface{}) string, origin Origin, holder facet.Holder, precedence facet.Precedence) TitleFacet {
	return &titleFn{Base: facet.NewBase(facet.TypeOf[TitleFacet](), holder, precedence), render: render, origin: origin}
}

func (f *titleFn) Title(target object.Managed) string {
	pojo := object.Pojo(target)
	if pojo == nil {
		return ""
	}
	return f.render(pojo)
}

func (f *titleFn) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["origin"] = string(f.origin)
	return attrs
}

// TitlePart is one property contributing to a composite title
type TitlePart struct {
	Sequence int
	Get      func(pojo interface{}) interface{}
}

// ComposeTitle joins the non-empty parts in sequence order with a space
func ComposeTitle(parts []TitlePart) func(pojo interface{}) string {
	sorted := make([]TitlePart, len(parts))
	copy(sorted, parts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	return func(pojo interface{}) string {
		words := make([]string, 0, len(sorted))
		for _, p := range sorted {
			if v := p.Get(pojo); v != nil {
				if s := fmt.Sprint(v); s != "" {
					words = append(words, s)
				}
			}
		}
		return strings.Join(words, " ")
	}
}

// ProgrammaticFacet marks a type or member excluded from the metamodel
type ProgrammaticFacet interface {
	facet.Facet
	programmatic()
}

type programmatic struct{ facet.Base }

func (*programmatic) programmatic() {}

// NewProgrammaticFacet creates a programmatic marker
func NewProgrammaticFacet(holder facet.Holder) ProgrammaticFacet {
	return &programmatic{facet.NewBase(facet.TypeOf[ProgrammaticFacet](), holder, facet.PrecedenceLow)}
}

// PrimaryKeyFacet marks the property holding an entity's identity
type PrimaryKeyFacet interface {
	facet.Facet
	primaryKey()
}

type primaryKey struct{ facet.Base }

func (*primaryKey) primaryKey() {}

// NewPrimaryKeyFacet creates a primary key marker
func NewPrimaryKeyFacet(holder facet.Holder) PrimaryKeyFacet {
	return &primaryKey{facet.NewBase(facet.TypeOf[PrimaryKeyFacet](), holder, facet.PrecedenceLow)}
}
