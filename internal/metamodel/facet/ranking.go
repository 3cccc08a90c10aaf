package facet

import (
	"reflect"
)

// Ranking holds every facet contributed for one facet type, in insertion order
type Ranking struct {
	facetType reflect.Type
	facets    []Facet
}

func newRanking(facetType reflect.Type) *Ranking {
	return &Ranking{facetType: facetType}
}

// FacetType returns the type all ranked facets share
func (r *Ranking) FacetType() reflect.Type {
	return r.facetType
}

// Size returns the number of ranked facets
func (r *Ranking) Size() int {
	return len(r.facets)
}

// All returns the ranked facets in insertion order
func (r *Ranking) All() []Facet {
	result := make([]Facet, len(r.facets))
	copy(result, r.facets)
	return result
}

// WinnerNonEvent returns the non-event facet with the highest precedence.
// Ties go to the most recently added facet.
func (r *Ranking) WinnerNonEvent() (Facet, bool) {
	return r.best(func(p Precedence) bool { return !p.IsEvent() })
}

// EventFacet returns the most recently added event facet
func (r *Ranking) EventFacet() (Facet, bool) {
	return r.best(func(p Precedence) bool { return p.IsEvent() })
}

// Winner returns WinnerNonEvent, falling back to the event facet
func (r *Ranking) Winner() (Facet, bool) {
	if f, ok := r.WinnerNonEvent(); ok {
		return f, true
	}
	return r.EventFacet()
}

// TopRank returns all non-event facets sharing the winner's precedence, in insertion order
func (r *Ranking) TopRank() []Facet {
	winner, ok := r.WinnerNonEvent()
	if !ok {
		return nil
	}
	var result []Facet
	for _, f := range r.facets {
		if f.Precedence() == winner.Precedence() {
			result = append(result, f)
		}
	}
	return result
}

// AtPrecedence returns the facets ranked at exactly p
func (r *Ranking) AtPrecedence(p Precedence) []Facet {
	var result []Facet
	for _, f := range r.facets {
		if f.Precedence() == p {
			result = append(result, f)
		}
	}
	return result
}

// best walks the list in reverse so that, among equal precedences, the latest facet is found first
// and only displaced by a strictly higher precedence.
func (r *Ranking) best(accept func(Precedence) bool) (Facet, bool) {
	var winner Facet
	for i := len(r.facets) - 1; i >= 0; i-- {
		f := r.facets[i]
		if !accept(f.Precedence()) {
			continue
		}
		if winner == nil || f.Precedence() > winner.Precedence() {
			winner = f
		}
	}
	return winner, winner != nil
}

func (r *Ranking) add(f Facet) {
	r.facets = append(r.facets, f)
}

// replace drops facets ranked at the same precedence as f, then adds f
func (r *Ranking) replace(f Facet) int {
	kept := r.facets[:0]
	dropped := 0
	for _, existing := range r.facets {
		if existing.Precedence() == f.Precedence() {
			dropped++
			continue
		}
		kept = append(kept, existing)
	}
	r.facets = append(kept, f)
	return dropped
}

func (r *Ranking) remove(f Facet) bool {
	for i, existing := range r.facets {
		if existing == f {
			r.facets = append(r.facets[:i], r.facets[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Ranking) clone() *Ranking {
	return &Ranking{facetType: r.facetType, facets: r.All()}
}
