package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

type book struct {
	Title  string
	ISBN   string
	Pages  int
	Copies []string
}

func (b *book) lend(to string) string { return to }

type managed struct{ pojo interface{} }

func (m managed) Pojo() interface{}   { return m.pojo }
func (m managed) State() object.State { return object.StatePersistent }

func newBookSpec(t *testing.T) *spec.ObjectSpecification {
	t.Helper()
	s, err := schema.For[book]("library.Book", schema.SortViewModel).
		Property("Title", schema.DescribedAs{Text: "As printed on the cover"}, schema.MemberOrder{Sequence: "1"}).
		Property("ISBN", schema.Named{Name: "ISBN"}, schema.Disabled{Reason: "Assigned by the publisher"}, schema.MemberOrder{Sequence: "2"}).
		Property("Pages", schema.Hidden{}).
		Collection("Copies").
		Action("lend", (*book).lend).
		Parameter("lend", 0, "borrower").
		Build()
	require.NoError(t, err)
	result := spec.New(s, nil)
	require.False(t, progmodel.Default(zaptest.NewLogger(t), nil).Process(s, result).HasFailures())
	return result
}

type german map[string]string

func (g german) Translate(_, text string, locale language.Tag) string {
	if locale != language.German {
		return ""
	}
	return g[text]
}

func TestSummarize(t *testing.T) {
	s := newBookSpec(t)
	summaries := SummarizeAll([]*spec.ObjectSpecification{s}, language.English)
	require.Len(t, summaries, 1)
	assert.Equal(t, TypeSummary{
		LogicalType: "library.Book",
		Sort:        schema.SortViewModel.String(),
		Name:        s.Name(),
		GoType:      "introspect.book",
		Properties:  3,
		Collections: 1,
		Actions:     1,
	}, summaries[0])
}

func TestDescribe(t *testing.T) {
	s := newBookSpec(t)
	d := Describe(s, language.English, false)

	byID := make(map[string]MemberDetail)
	for _, m := range d.Members {
		byID[m.ID] = m
		assert.Nil(t, m.Facets)
	}
	assert.Len(t, byID, 5)
	assert.Equal(t, "title", d.Members[0].ID)

	title := byID["title"]
	assert.Equal(t, "PROPERTY", title.Kind)
	assert.Equal(t, "string", title.Type)
	assert.Equal(t, "As printed on the cover", title.Description)
	assert.Equal(t, "[]string", byID["copies"].Type)
	assert.Equal(t, "ISBN", byID["isbn"].Name)

	lend := byID["lend"]
	assert.Equal(t, "ACTION", lend.Kind)
	assert.Equal(t, "string", lend.Type)
	require.Len(t, lend.Parameters, 1)
	assert.Equal(t, "string", lend.Parameters[0].Type)
	assert.Equal(t, 0, lend.Parameters[0].Index)
}

func TestDescribeTranslates(t *testing.T) {
	s := newBookSpec(t)
	title, _ := s.Property("title")
	described, ok := facet.Get[facets.DescribedAsFacet](title)
	require.True(t, ok)
	title.ReplaceFacet(facets.NewTranslatedDescribedAsFacet(described, "library.Book#title", german{"As printed on the cover": "Wie auf dem Umschlag"}))

	assert.Equal(t, "Wie auf dem Umschlag", Describe(s, language.German, false).Members[0].Description)
	assert.Equal(t, "As printed on the cover", Describe(s, language.English, false).Members[0].Description)
}

func TestFacetsMarkWinners(t *testing.T) {
	s := newBookSpec(t)
	isbn, _ := s.Property("isbn")
	isbn.AddFacet(facets.NewNamedFacet("Book number", facets.OriginLayout, isbn, facet.PrecedenceHigh))

	var named []FacetDetail
	for _, f := range Facets(isbn) {
		if f.Type == facet.Name(facet.TypeOf[facets.NamedFacet]()) {
			named = append(named, f)
		}
	}
	require.Len(t, named, 2)
	assert.True(t, named[0].Winner)
	assert.Equal(t, facet.PrecedenceHigh.String(), named[0].Precedence)
	assert.False(t, named[1].Winner)
	assert.NotContains(t, named[0].Attributes, "precedence")

	for _, m := range Describe(s, language.English, true).Members {
		if m.ID == "isbn" {
			assert.Len(t, m.Facets, len(Facets(isbn)))
			assert.NotEmpty(t, m.Facets)
		}
	}
}

func TestConsent(t *testing.T) {
	s := newBookSpec(t)
	target := managed{pojo: &book{Title: "Dune"}}
	in := spec.UserInteraction(consent.Anonymous)

	isbn, _ := s.Property("isbn")
	assert.Equal(t, ConsentDetail{Member: "isbn", Visible: true, DisabledReason: "Assigned by the publisher"}, Consent(isbn, target, in))

	pages, _ := s.Property("pages")
	c := Consent(pages, target, in)
	assert.False(t, c.Visible)
	assert.False(t, c.Usable)
	assert.NotEmpty(t, c.HiddenReason)

	title, _ := s.Property("title")
	assert.Equal(t, ConsentDetail{Member: "title", Visible: true, Usable: true}, Consent(title, target, in))
}
