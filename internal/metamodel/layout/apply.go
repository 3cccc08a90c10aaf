package layout

import (
	"errors"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

// facetTypes are the facet types a layout can contribute; PrecedenceHigh is reserved for them
var facetTypes = []reflect.Type{
	facet.TypeOf[facets.NamedFacet](),
	facet.TypeOf[facets.DescribedAsFacet](),
	facet.TypeOf[facets.HiddenFacet](),
	facet.TypeOf[facets.DisabledFacet](),
	facet.TypeOf[facets.MemberOrderFacet](),
}

// Apply adds the facets of l to s. Members l names that s does not have are reported as failures;
// the rest of the layout is still applied.
func Apply(s *spec.ObjectSpecification, l *Layout) error {
	failures := exceptions.NewValidationFailures()
	if l.Named != "" {
		s.AddFacet(facets.NewNamedFacet(l.Named, facets.OriginLayout, s, facet.PrecedenceHigh))
	}
	if l.DescribedAs != "" {
		s.AddFacet(facets.NewDescribedAsFacet(l.DescribedAs, facets.OriginLayout, s, facet.PrecedenceHigh))
	}
	for _, m := range l.Members {
		member, ok := s.Member(m.ID)
		if !ok {
			failures.Add(s.LogicalTypeName(), "layout names unknown member %s", m.ID)
			continue
		}
		applyMember(member, m)
	}
	return failures.AsError()
}

func applyMember(h facet.Holder, m Member) {
	if m.Named != "" {
		h.AddFacet(facets.NewNamedFacet(m.Named, facets.OriginLayout, h, facet.PrecedenceHigh))
	}
	if m.DescribedAs != "" {
		h.AddFacet(facets.NewDescribedAsFacet(m.DescribedAs, facets.OriginLayout, h, facet.PrecedenceHigh))
	}
	// checked when the layout was parsed
	if where, when, hidden, _ := m.HiddenWhere(); hidden {
		h.AddFacet(facets.NewHiddenFacet(where, when, facets.OriginLayout, h, facet.PrecedenceHigh))
	}
	if m.Disabled != "" {
		h.AddFacet(facets.NewDisabledFacet(consent.WhereEverywhere, consent.WhenAlways, m.Disabled, facets.OriginLayout, h, facet.PrecedenceHigh))
	}
	if m.Group != "" || m.Sequence != "" {
		h.AddFacet(facets.NewMemberOrderFacet(m.Group, m.Sequence, h, facet.PrecedenceHigh))
	}
}

// Clear removes every layout facet from s and its members, returning how many were removed
func Clear(s *spec.ObjectSpecification) int {
	removed := 0
	for _, h := range s.Holders() {
		for _, t := range facetTypes {
			r, ok := h.Ranking(t)
			if !ok {
				continue
			}
			for _, f := range r.AtPrecedence(facet.PrecedenceHigh) {
				if h.RemoveFacet(f) {
					removed++
				}
			}
		}
	}
	return removed
}

// RefreshLayout replaces the layout facets of s with those of l; a nil l only clears them
func RefreshLayout(s *spec.ObjectSpecification, l *Layout) error {
	Clear(s)
	if l == nil {
		return nil
	}
	return Apply(s, l)
}

// Postprocessor applies layout files while specifications are built
type Postprocessor struct {
	Source *Source
	Logger *zap.Logger
}

// NewPostprocessor creates a postprocessor reading layouts from source
func NewPostprocessor(source *Source, logger *zap.Logger) *Postprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postprocessor{Source: source, Logger: logger}
}

// Name identifies the postprocessor
func (p *Postprocessor) Name() string { return "Layout" }

// Postprocess applies the layout of s, if it has one. Broken layouts are logged and skipped.
func (p *Postprocessor) Postprocess(s *spec.ObjectSpecification) {
	l, err := p.Source.Load(s.LogicalTypeName())
	if errors.Is(err, ErrNoLayout) {
		return
	}
	if err != nil {
		p.Logger.Warn("ignoring layout", zap.String("type", s.LogicalTypeName()), zap.Error(err))
		return
	}
	if err := Apply(s, l); err != nil {
		p.Logger.Warn("layout partially applied", zap.String("type", s.LogicalTypeName()), zap.Error(err))
	}
}

// Lookup finds loaded specifications by logical type name
type Lookup interface {
	LookupByName(name string) (*spec.ObjectSpecification, bool)
}

// Reapplier is run over a specification after its layout was refreshed, e.g. translation
type Reapplier interface {
	Postprocess(s *spec.ObjectSpecification)
}

// Refresher applies changed layout files to already loaded specifications
type Refresher struct {
	source *Source
	lookup Lookup
	then   []Reapplier
	logger *zap.Logger
}

// NewRefresher creates a refresher; then runs after every refreshed specification
func NewRefresher(source *Source, lookup Lookup, logger *zap.Logger, then ...Reapplier) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{source: source, lookup: lookup, then: then, logger: logger}
}

// Refresh re-reads the layout files at paths and returns the logical names of the refreshed types.
// Files for types that are not loaded are skipped. A file that fails to parse leaves the previous
// layout in place and is reported in the returned error.
func (r *Refresher) Refresh(paths []string) ([]string, error) {
	names := make(map[string]bool)
	for _, p := range paths {
		if name, ok := TypeNameOf(p); ok {
			names[name] = true
		}
	}

	var refreshed []string
	failures := exceptions.NewValidationFailures()
	for name := range names {
		s, ok := r.lookup.LookupByName(name)
		if !ok {
			r.logger.Debug("layout for unloaded type", zap.String("type", name))
			continue
		}
		l, err := r.source.Load(name)
		switch {
		case errors.Is(err, ErrNoLayout):
			l = nil
		case err != nil:
			failures.Add(name, "%v", err)
			continue
		}
		if err := RefreshLayout(s, l); err != nil {
			failures.Merge(asFailures(err))
		}
		for _, p := range r.then {
			p.Postprocess(s)
		}
		refreshed = append(refreshed, name)
		r.logger.Info("layout refreshed", zap.String("type", name))
	}
	sort.Strings(refreshed)
	return refreshed, failures.AsError()
}

func asFailures(err error) *exceptions.ValidationFailures {
	var vf *exceptions.ValidationFailures
	if errors.As(err, &vf) {
		return vf
	}
	vf = exceptions.NewValidationFailures()
	vf.Add("", "%v", err)
	return vf
}
