package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/facets"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

type visit struct {
	Reason string
}

type petOwner struct {
	LastName     string
	EmailAddress string
	Visits       []*visit
}

func (o *petOwner) bookVisit(reason string) *visit {
	v := &visit{Reason: reason}
	o.Visits = append(o.Visits, v)
	return v
}

func newOwnerSpec(t *testing.T) *spec.ObjectSpecification {
	t.Helper()
	s, err := schema.For[petOwner]("petclinic.PetOwner", schema.SortViewModel).
		Property("LastName", schema.DescribedAs{Text: "Family name"}).
		Property("EmailAddress", schema.Named{Name: "E-mail"}).
		Collection("Visits").
		Action("bookVisit", (*petOwner).bookVisit).
		Parameter("bookVisit", 0, "reason").
		Build()
	require.NoError(t, err)

	result := spec.New(s, nil)
	require.False(t, progmodel.Default(zaptest.NewLogger(t), nil).Process(s, result).HasFailures())
	return result
}

type dictionary map[string]string

func (d dictionary) Translate(context, text string, locale language.Tag) string {
	if locale != language.German {
		return ""
	}
	if v, ok := d[context+"|"+text]; ok {
		return v
	}
	return d[text]
}

func TestNamingSynthesizesMissingNames(t *testing.T) {
	s := newOwnerSpec(t)
	Naming{}.Postprocess(s)

	named, ok := facet.Get[facets.NamedFacet](s)
	require.True(t, ok)
	assert.Equal(t, "Pet Owner", named.Text())
	assert.Equal(t, facet.PrecedenceDefault, named.Precedence())

	lastName, _ := s.Property("lastName")
	assert.Equal(t, "Last Name", lastName.Name())

	email, _ := s.Property("emailAddress")
	assert.Equal(t, "E-mail", email.Name())
	ranking, ok := email.Ranking(facet.TypeOf[facets.NamedFacet]())
	require.True(t, ok)
	assert.Equal(t, 1, ranking.Size())

	book, _ := s.Action("bookVisit")
	param, _ := book.Parameter(0)
	assert.Equal(t, "Reason", param.Name())
	assert.True(t, facet.Contains[facets.NamedFacet](param))
}

func TestTranslationWrapsWinners(t *testing.T) {
	s := newOwnerSpec(t)
	Naming{}.Postprocess(s)

	translator := Translation{Translator: dictionary{
		"petclinic.PetOwner#lastName|Last Name": "Nachname",
		"Family name":                           "Familienname",
	}}
	translator.Postprocess(s)

	lastName, _ := s.Property("lastName")
	named, ok := facet.Get[facets.NamedFacet](lastName)
	require.True(t, ok)
	assert.True(t, facets.IsTranslated(named))
	assert.Equal(t, "Last Name", named.Text())
	assert.Equal(t, "Nachname", named.Translated(language.German))
	assert.Equal(t, "Last Name", named.Translated(language.French))

	described, ok := facet.Get[facets.DescribedAsFacet](lastName)
	require.True(t, ok)
	assert.Equal(t, "Familienname", described.Translated(language.German))

	count := lastName.FacetCount()
	translator.Postprocess(s)
	assert.Equal(t, count, lastName.FacetCount())
	again, _ := facet.Get[facets.NamedFacet](lastName)
	assert.Same(t, named, again)
}

func TestTranslationWithoutTranslator(t *testing.T) {
	s := newOwnerSpec(t)
	Translation{}.Postprocess(s)

	email, _ := s.Property("emailAddress")
	named, _ := facet.Get[facets.NamedFacet](email)
	assert.False(t, facets.IsTranslated(named))
}

func TestReferenceValidator(t *testing.T) {
	owner := newOwnerSpec(t)
	failures := exceptions.NewValidationFailures()

	ReferenceValidator{}.Validate([]*spec.ObjectSpecification{owner}, failures)
	var messages []string
	for _, f := range failures.Failures() {
		messages = append(messages, f.String())
	}
	assert.Equal(t, []string{
		"petclinic.PetOwner#bookVisit: refers to postprocessors.visit, which is not part of the metamodel",
		"petclinic.PetOwner#visits: refers to postprocessors.visit, which is not part of the metamodel",
	}, messages)

	s, err := schema.For[visit]("petclinic.Visit", schema.SortViewModel).Property("Reason").Build()
	require.NoError(t, err)
	visitSpec := spec.New(s, nil)

	failures = exceptions.NewValidationFailures()
	ReferenceValidator{}.Validate([]*spec.ObjectSpecification{owner, visitSpec}, failures)
	assert.False(t, failures.HasFailures())
}
