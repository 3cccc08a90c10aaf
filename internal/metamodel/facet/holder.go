package facet

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/causeway-lang/causeway/internal/metamodel/feature"
)

// Holder is a metamodel element that carries ranked facets
type Holder interface {
	// FeatureType classifies the element
	FeatureType() feature.Type
	// FeatureIdentifier names the element
	FeatureIdentifier() feature.Identifier

	// AddFacet ranks f alongside any facets of the same type
	AddFacet(f Facet)
	// ReplaceFacet drops facets of f's type at f's precedence, then adds f
	ReplaceFacet(f Facet)
	// RemoveFacet removes exactly f, reporting whether it was present
	RemoveFacet(f Facet) bool

	// Facet returns the non-event winner for facetType
	Facet(facetType reflect.Type) (Facet, bool)
	// Ranking returns a snapshot of all facets contributed for facetType
	Ranking(facetType reflect.Type) (*Ranking, bool)
	// Types lists facet types in the order they were first contributed
	Types() []reflect.Type
	// Winners returns, per facet type, the winner (falling back to event facets)
	Winners() []Facet
	// FacetCount is the total number of ranked facets across all types
	FacetCount() int
}

// BaseHolder implements Holder and is meant to be embedded by specifications and members.
// It is written during metamodel construction and read concurrently afterwards.
type BaseHolder struct {
	featureType feature.Type
	identifier  feature.Identifier

	mu       sync.RWMutex
	rankings map[reflect.Type]*Ranking
	order    []reflect.Type
}

// NewBaseHolder creates an empty holder
func NewBaseHolder(featureType feature.Type, identifier feature.Identifier) *BaseHolder {
	return &BaseHolder{
		featureType: featureType,
		identifier:  identifier,
		rankings:    make(map[reflect.Type]*Ranking),
	}
}

// FeatureType implements Holder
func (h *BaseHolder) FeatureType() feature.Type {
	return h.featureType
}

// FeatureIdentifier implements Holder
func (h *BaseHolder) FeatureIdentifier() feature.Identifier {
	return h.identifier
}

// AddFacet implements Holder
func (h *BaseHolder) AddFacet(f Facet) {
	if f == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rankingFor(f.FacetType()).add(f)
}

// ReplaceFacet implements Holder
func (h *BaseHolder) ReplaceFacet(f Facet) {
	if f == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rankingFor(f.FacetType()).replace(f)
}

// RemoveFacet implements Holder
func (h *BaseHolder) RemoveFacet(f Facet) bool {
	if f == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rankings[f.FacetType()]
	if !ok {
		return false
	}
	return r.remove(f)
}

// Facet implements Holder
func (h *BaseHolder) Facet(facetType reflect.Type) (Facet, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rankings[facetType]
	if !ok {
		return nil, false
	}
	return r.WinnerNonEvent()
}

// Ranking implements Holder
func (h *BaseHolder) Ranking(facetType reflect.Type) (*Ranking, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rankings[facetType]
	if !ok || r.Size() == 0 {
		return nil, false
	}
	return r.clone(), true
}

// Types implements Holder
func (h *BaseHolder) Types() []reflect.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]reflect.Type, 0, len(h.order))
	for _, t := range h.order {
		if h.rankings[t].Size() > 0 {
			result = append(result, t)
		}
	}
	return result
}

// Winners implements Holder
func (h *BaseHolder) Winners() []Facet {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]Facet, 0, len(h.order))
	for _, t := range h.order {
		if f, ok := h.rankings[t].Winner(); ok {
			result = append(result, f)
		}
	}
	return result
}

// FacetCount implements Holder
func (h *BaseHolder) FacetCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, r := range h.rankings {
		n += r.Size()
	}
	return n
}

func (h *BaseHolder) String() string {
	return fmt.Sprintf("%s[%s]", h.featureType, h.identifier)
}

// rankingFor must be called with mu held for writing
func (h *BaseHolder) rankingFor(facetType reflect.Type) *Ranking {
	r, ok := h.rankings[facetType]
	if !ok {
		r = newRanking(facetType)
		h.rankings[facetType] = r
		h.order = append(h.order, facetType)
	}
	return r
}

// Get returns the non-event winner of facet type F on h
func Get[F any](h Holder) (F, bool) {
	var zero F
	if h == nil {
		return zero, false
	}
	f, ok := h.Facet(TypeOf[F]())
	if !ok {
		return zero, false
	}
	typed, ok := f.(F)
	return typed, ok
}

// Contains reports whether h carries a non-event facet of type F
func Contains[F any](h Holder) bool {
	_, ok := Get[F](h)
	return ok
}

// WinnersImplementing returns the winners of h that also implement I (an advisor interface, say)
func WinnersImplementing[I any](h Holder) []I {
	if h == nil {
		return nil
	}
	var result []I
	for _, f := range h.Winners() {
		if typed, ok := f.(I); ok {
			result = append(result, typed)
		}
	}
	return result
}
