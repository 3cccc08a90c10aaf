package facets

import (
	"fmt"
	"reflect"
	"regexp"
	"unicode/utf8"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
)

// MaxLengthFacet rejects strings longer than Limit runes
type MaxLengthFacet interface {
	consent.ValidatingAdvisor
	Limit() int
}

// MandatoryFacet rejects missing values; an Optional annotation installs the non-mandatory variant
type MandatoryFacet interface {
	consent.ValidatingAdvisor
	IsMandatory() bool
}

// RegExFacet rejects strings not matching a pattern
type RegExFacet interface {
	consent.ValidatingAdvisor
	Pattern() string
}

// MaskFacet is an entry mask passed through to viewers
type MaskFacet interface {
	facet.Facet
	Mask() string
}

type maxLength struct {
	facet.Base
	limit int
}

// NewMaxLengthFacet creates a max length facet
func NewMaxLengthFacet(limit int, holder facet.Holder) MaxLengthFacet {
	return &maxLength{Base: facet.NewBase(facet.TypeOf[MaxLengthFacet](), holder, facet.PrecedenceLow), limit: limit}
}

func (f *maxLength) Limit() int { return f.limit }

// Invalidates implements consent.ValidatingAdvisor
func (f *maxLength) Invalidates(ctx *consent.ValidityContext) string {
	s, ok := ctx.Proposed.(string)
	if !ok {
		return ""
	}
	if n := utf8.RuneCountInString(s); n > f.limit {
		return fmt.Sprintf("Proposed value is too long (%d characters, maximum is %d)", n, f.limit)
	}
	return ""
}

func (f *maxLength) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["maxLength"] = f.limit
	return attrs
}

type mandatory struct {
	facet.Base
	mandatory bool
}

// NewMandatoryFacet creates a mandatory (or explicitly optional) facet. Synthesized defaults use
// PrecedenceDefault so that an Optional annotation at PrecedenceLow wins.
func NewMandatoryFacet(isMandatory bool, holder facet.Holder, precedence facet.Precedence) MandatoryFacet {
	return &mandatory{Base: facet.NewBase(facet.TypeOf[MandatoryFacet](), holder, precedence), mandatory: isMandatory}
}

func (f *mandatory) IsMandatory() bool { return f.mandatory }

// Invalidates implements consent.ValidatingAdvisor
func (f *mandatory) Invalidates(ctx *consent.ValidityContext) string {
	if !f.mandatory || ctx.Args != nil {
		return ""
	}
	if isMissing(ctx.Proposed) {
		return "Mandatory"
	}
	return ""
}

func (f *mandatory) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["mandatory"] = f.mandatory
	return attrs
}

func isMissing(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

type regex struct {
	facet.Base
	re *regexp.Regexp
}

// NewRegExFacet compiles pattern into a facet
func NewRegExFacet(pattern string, holder facet.Holder) (RegExFacet, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &regex{Base: facet.NewBase(facet.TypeOf[RegExFacet](), holder, facet.PrecedenceLow), re: re}, nil
}

func (f *regex) Pattern() string { return f.re.String() }

// Invalidates implements consent.ValidatingAdvisor
func (f *regex) Invalidates(ctx *consent.ValidityContext) string {
	s, ok := ctx.Proposed.(string)
	if !ok || s == "" {
		return ""
	}
	if !f.re.MatchString(s) {
		return "Doesn't match pattern"
	}
	return ""
}

func (f *regex) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["pattern"] = f.re.String()
	return attrs
}

type mask struct {
	facet.Base
	pattern string
}

// NewMaskFacet creates a mask facet
func NewMaskFacet(pattern string, holder facet.Holder) MaskFacet {
	return &mask{Base: facet.NewBase(facet.TypeOf[MaskFacet](), holder, facet.PrecedenceLow), pattern: pattern}
}

func (f *mask) Mask() string { return f.pattern }

func (f *mask) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["mask"] = f.pattern
	return attrs
}
