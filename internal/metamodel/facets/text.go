package facets

import (
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/metamodel/facet"
)

// Translator translates text within a context (a feature identifier) to locale
type Translator interface {
	Translate(context, text string, locale language.Tag) string
}

// NamedFacet is the display name of a type, member or parameter
type NamedFacet interface {
	facet.Facet
	// Text is the untranslated name
	Text() string
	// Translated is the name in locale, falling back to Text
	Translated(locale language.Tag) string
}

// DescribedAsFacet is the longer description of a feature
type DescribedAsFacet interface {
	facet.Facet
	Text() string
	Translated(locale language.Tag) string
}

type text struct {
	facet.Base
	value  string
	origin Origin
}

func (f *text) Text() string { return f.value }

func (f *text) Translated(language.Tag) string { return f.value }

func (f *text) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["text"] = f.value
	attrs["origin"] = string(f.origin)
	return attrs
}

// NewNamedFacet creates a named facet
func NewNamedFacet(name string, origin Origin, holder facet.Holder, precedence facet.Precedence) NamedFacet {
	return &text{Base: facet.NewBase(facet.TypeOf[NamedFacet](), holder, precedence), value: name, origin: origin}
}

// NewDescribedAsFacet creates a described-as facet
func NewDescribedAsFacet(description string, origin Origin, holder facet.Holder, precedence facet.Precedence) DescribedAsFacet {
	return &text{Base: facet.NewBase(facet.TypeOf[DescribedAsFacet](), holder, precedence), value: description, origin: origin}
}

// translated decorates an existing text facet; it keeps the wrapped facet's type and precedence
type translated struct {
	facet.Base
	underlying interface {
		Text() string
	}
	context    string
	translator Translator
}

func (f *translated) Text() string { return f.underlying.Text() }

func (f *translated) Translated(locale language.Tag) string {
	if t := f.translator.Translate(f.context, f.underlying.Text(), locale); t != "" {
		return t
	}
	return f.underlying.Text()
}

func (f *translated) Attributes() map[string]interface{} {
	attrs := f.Base.Attributes()
	attrs["text"] = f.underlying.Text()
	attrs["translationContext"] = f.context
	return attrs
}

// NewTranslatedNamedFacet wraps named so that Translated consults translator
func NewTranslatedNamedFacet(named NamedFacet, context string, translator Translator) NamedFacet {
	return &translated{
		Base:       facet.NewBase(named.FacetType(), named.Holder(), named.Precedence()),
		underlying: named,
		context:    context,
		translator: translator,
	}
}

// NewTranslatedDescribedAsFacet wraps described so that Translated consults translator
func NewTranslatedDescribedAsFacet(described DescribedAsFacet, context string, translator Translator) DescribedAsFacet {
	return &translated{
		Base:       facet.NewBase(described.FacetType(), described.Holder(), described.Precedence()),
		underlying: described,
		context:    context,
		translator: translator,
	}
}

// IsTranslated reports whether f was already wrapped by a translator
func IsTranslated(f facet.Facet) bool {
	_, ok := f.(*translated)
	return ok
}
