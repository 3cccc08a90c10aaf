// Package introspect describes specifications, their facet rankings and member consents as plain
// structs, shared by the CLI and the REST viewer.
package introspect

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

// TypeSummary is one line of a type listing
type TypeSummary struct {
	LogicalType string `json:"logicalType"`
	Sort        string `json:"sort"`
	Name        string `json:"name"`
	GoType      string `json:"goType"`
	Properties  int    `json:"properties"`
	Collections int    `json:"collections"`
	Actions     int    `json:"actions"`
}

// TypeDetail describes a type and its members
type TypeDetail struct {
	TypeSummary
	Description string         `json:"description,omitempty"`
	Superclass  string         `json:"superclass,omitempty"`
	Members     []MemberDetail `json:"members"`
	Facets      []FacetDetail  `json:"facets"`
}

// MemberDetail describes a property, collection or action
type MemberDetail struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type,omitempty"`
	Parameters  []ParameterDetail `json:"parameters,omitempty"`
	Facets      []FacetDetail     `json:"facets,omitempty"`
}

// ParameterDetail describes an action parameter
type ParameterDetail struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Mandatory bool   `json:"mandatory"`
}

// FacetDetail is one facet of a ranking; Winner marks the facet consulted for its type
type FacetDetail struct {
	Type       string            `json:"type"`
	Precedence string            `json:"precedence"`
	Winner     bool              `json:"winner"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ConsentDetail is the outcome of the visibility and usability checks of a member
type ConsentDetail struct {
	Member         string `json:"member"`
	Visible        bool   `json:"visible"`
	HiddenReason   string `json:"hiddenReason,omitempty"`
	Usable         bool   `json:"usable"`
	DisabledReason string `json:"disabledReason,omitempty"`
}

// Summarize lists s in locale
func Summarize(s *spec.ObjectSpecification, locale language.Tag) TypeSummary {
	return TypeSummary{
		LogicalType: s.LogicalTypeName(),
		Sort:        s.BeanSort().String(),
		Name:        NameIn(s, s.Name(), locale),
		GoType:      s.GoType().String(),
		Properties:  len(s.Properties()),
		Collections: len(s.Collections()),
		Actions:     len(s.Actions()),
	}
}

// SummarizeAll lists specs ordered by logical type name
func SummarizeAll(specs []*spec.ObjectSpecification, locale language.Tag) []TypeSummary {
	result := make([]TypeSummary, 0, len(specs))
	for _, s := range specs {
		result = append(result, Summarize(s, locale))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LogicalType < result[j].LogicalType })
	return result
}

// Describe details s in locale; withFacets adds the facet rankings of the type and every member
func Describe(s *spec.ObjectSpecification, locale language.Tag, withFacets bool) TypeDetail {
	d := TypeDetail{
		TypeSummary: Summarize(s, locale),
		Description: DescriptionIn(s, locale),
		Members:     []MemberDetail{},
		Facets:      []FacetDetail{},
	}
	if super := s.Superclass(); super != nil {
		d.Superclass = super.LogicalTypeName()
	}
	if withFacets {
		d.Facets = Facets(s)
	}

	for _, m := range s.Members() {
		md := MemberDetail{
			ID:          m.ID(),
			Kind:        m.FeatureType().String(),
			Name:        NameIn(m, m.Name(), locale),
			Description: DescriptionIn(m, locale),
		}
		switch member := m.(type) {
		case *spec.OneToOneAssociation:
			md.Type = member.Type().String()
		case *spec.OneToManyAssociation:
			md.Type = "[]" + member.ElementType().String()
		case *spec.ObjectAction:
			if rt := member.ReturnType(); rt != nil {
				md.Type = rt.String()
			}
			for _, p := range member.Parameters() {
				md.Parameters = append(md.Parameters, ParameterDetail{
					Index:     p.Index(),
					Name:      NameIn(p, p.Name(), locale),
					Type:      p.Type().String(),
					Mandatory: p.IsMandatory(),
				})
			}
		}
		if withFacets {
			md.Facets = Facets(m)
		}
		d.Members = append(d.Members, md)
	}
	return d
}

// Facets lists every ranked facet of h: facet types in registration order, each ranking by
// descending precedence with later additions first
func Facets(h facet.Holder) []FacetDetail {
	result := []FacetDetail{}
	for _, t := range h.Types() {
		ranking, ok := h.Ranking(t)
		if !ok {
			continue
		}
		winner, _ := ranking.Winner()
		all := ranking.All()
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].Precedence() > all[j].Precedence() })
		for _, f := range all {
			result = append(result, FacetDetail{
				Type:       facet.Name(t),
				Precedence: f.Precedence().String(),
				Winner:     f == winner,
				Attributes: attributes(f),
			})
		}
	}
	return result
}

func attributes(f facet.Facet) map[string]string {
	attrs := f.Attributes()
	result := make(map[string]string, len(attrs))
	for _, k := range facet.SortedAttributeKeys(f) {
		if k == "precedence" {
			continue
		}
		result[k] = fmt.Sprint(attrs[k])
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// Consent checks m against target for in
func Consent(m spec.Member, target object.Managed, in spec.Interaction) ConsentDetail {
	d := ConsentDetail{Member: m.ID()}
	d.HiddenReason = m.HiddenReason(target, in)
	d.Visible = d.HiddenReason == ""
	if d.Visible {
		d.DisabledReason = m.DisabledReason(target, in)
		d.Usable = d.DisabledReason == ""
	}
	return d
}

// NameIn is the name of h in locale, or fallback when h has no named facet
func NameIn(h facet.Holder, fallback string, locale language.Tag) string {
	if named, ok := facet.Get[facets.NamedFacet](h); ok {
		if text := named.Translated(locale); text != "" {
			return text
		}
	}
	return fallback
}

// DescriptionIn is the description of h in locale
func DescriptionIn(h facet.Holder, locale language.Tag) string {
	if described, ok := facet.Get[facets.DescribedAsFacet](h); ok {
		return described.Translated(locale)
	}
	return ""
}
