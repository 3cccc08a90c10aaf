// Package postprocessors rewrites and augments facets once a specification has been built
package postprocessors

import (
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	casing "github.com/causeway-lang/causeway/internal/util/strings"
)

// Naming synthesizes a DEFAULT precedence name for every element that has none
type Naming struct{}

// Name identifies the postprocessor
func (Naming) Name() string { return "Naming" }

// Postprocess adds the synthesized names
func (Naming) Postprocess(s *spec.ObjectSpecification) {
	synthesize(s, casing.ToNaturalName(s.GoType().Name()))
	for _, m := range s.Members() {
		synthesize(m, casing.ToNaturalName(m.ID()))
		if a, ok := m.(*spec.ObjectAction); ok {
			for _, p := range a.Parameters() {
				synthesize(p, casing.ToNaturalName(p.Schema().Name))
			}
		}
	}
}

func synthesize(h facet.Holder, name string) {
	if facet.Contains[facets.NamedFacet](h) {
		return
	}
	h.AddFacet(facets.NewNamedFacet(name, facets.OriginSynthesized, h, facet.PrecedenceDefault))
}

// Translation decorates the winning Named and DescribedAs facets so that they translate through
// Translator. Running it twice has no further effect.
type Translation struct {
	Translator facets.Translator
}

// Name identifies the postprocessor
func (Translation) Name() string { return "Translation" }

// Postprocess wraps the text facets of every holder of s
func (t Translation) Postprocess(s *spec.ObjectSpecification) {
	for _, h := range s.Holders() {
		t.Apply(h)
	}
}

// Apply wraps the text facets of h; the wrappers replace the facets they wrap at the same precedence
func (t Translation) Apply(h facet.Holder) {
	if t.Translator == nil {
		return
	}
	context := h.FeatureIdentifier().TranslationContext()
	if named, ok := facet.Get[facets.NamedFacet](h); ok && !facets.IsTranslated(named) {
		h.ReplaceFacet(facets.NewTranslatedNamedFacet(named, context, t.Translator))
	}
	if described, ok := facet.Get[facets.DescribedAsFacet](h); ok && !facets.IsTranslated(described) {
		h.ReplaceFacet(facets.NewTranslatedDescribedAsFacet(described, context, t.Translator))
	}
}
