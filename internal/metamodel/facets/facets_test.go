package facets

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/events"
	"github.com/causeway-lang/causeway/internal/metamodel/facet"
	"github.com/causeway-lang/causeway/internal/metamodel/feature"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
)

type owner struct {
	Name string
}

type managed struct {
	pojo  interface{}
	state object.State
}

func (m managed) Pojo() interface{}   { return m.pojo }
func (m managed) State() object.State { return m.state }

var nameID = feature.MemberIdentifier("petclinic.Owner", "name")

func newHolder() *facet.BaseHolder {
	return facet.NewBaseHolder(feature.Property, nameID)
}

func visibility(target object.Managed, where consent.Where) *consent.VisibilityContext {
	return consent.NewVisibilityContext(target, nameID, consent.Anonymous, consent.InitiatedByUser, where)
}

func usability(target object.Managed, actor consent.Actor) *consent.UsabilityContext {
	return consent.NewUsabilityContext(target, nameID, actor, consent.InitiatedByUser, consent.WhereObjectForms)
}

func TestHiddenFacet(t *testing.T) {
	transient := managed{pojo: &owner{}, state: object.StateTransient}
	persistent := managed{pojo: &owner{}, state: object.StatePersistent}

	t.Run("until persisted", func(t *testing.T) {
		h := newHolder()
		f := NewHiddenFacet(consent.WhereEverywhere, consent.WhenUntilPersisted, OriginAnnotation, h, facet.PrecedenceLow)
		assert.Equal(t, "Hidden until persisted", f.Hides(visibility(transient, consent.WhereObjectForms)))
		assert.Equal(t, "", f.Hides(visibility(persistent, consent.WhereObjectForms)))
		assert.Equal(t, "", f.Hides(visibility(nil, consent.WhereObjectForms)))
	})

	t.Run("once persisted", func(t *testing.T) {
		f := NewHiddenFacet(consent.WhereEverywhere, consent.WhenOncePersisted, OriginAnnotation, newHolder(), facet.PrecedenceLow)
		assert.Equal(t, "", f.Hides(visibility(transient, consent.WhereObjectForms)))
		assert.Equal(t, "Hidden once persisted", f.Hides(visibility(persistent, consent.WhereObjectForms)))
	})

	t.Run("always and never", func(t *testing.T) {
		always := NewHiddenFacet(consent.WhereAllTables, consent.WhenAlways, OriginAnnotation, newHolder(), facet.PrecedenceLow)
		assert.Equal(t, "Always hidden", always.Hides(visibility(nil, consent.WhereParentedTables)))
		assert.Equal(t, "", always.Hides(visibility(nil, consent.WhereObjectForms)))

		never := NewHiddenFacet(consent.WhereEverywhere, consent.WhenNever, OriginAnnotation, newHolder(), facet.PrecedenceLow)
		assert.Equal(t, "", never.Hides(visibility(transient, consent.WhereObjectForms)))
	})

	t.Run("layout replaces annotation scope", func(t *testing.T) {
		h := newHolder()
		h.AddFacet(NewHiddenFacet(consent.WhereEverywhere, consent.WhenAlways, OriginAnnotation, h, facet.PrecedenceLow))
		h.AddFacet(NewHiddenFacet(consent.WhereStandaloneTables, consent.WhenAlways, OriginLayout, h, facet.PrecedenceHigh))

		assert.Equal(t, "", consent.HiddenReason(h, visibility(persistent, consent.WhereObjectForms)))
		assert.Equal(t, "Always hidden", consent.HiddenReason(h, visibility(persistent, consent.WhereStandaloneTables)))
		r, ok := h.Ranking(facet.TypeOf[HiddenFacet]())
		require.True(t, ok)
		assert.Equal(t, 2, r.Size())
	})
}

func TestDisabledFacet(t *testing.T) {
	persistent := managed{pojo: &owner{}, state: object.StatePersistent}
	f := NewDisabledFacet(consent.WhereEverywhere, consent.WhenOncePersisted, "", OriginAnnotation, newHolder(), facet.PrecedenceLow)
	assert.Equal(t, "Disabled once persisted", f.Disables(usability(persistent, consent.Anonymous)))

	withReason := NewDisabledFacet(consent.WhereEverywhere, consent.WhenAlways, "Immutable", OriginAnnotation, newHolder(), facet.PrecedenceLow)
	assert.Equal(t, "Immutable", withReason.Disables(usability(persistent, consent.Anonymous)))
	assert.Equal(t, "Immutable", withReason.Attributes()["reason"])
}

func TestSupportFacets(t *testing.T) {
	o := &owner{Name: "Jones"}
	target := managed{pojo: o, state: object.StatePersistent}
	h := newHolder()

	hide := NewHideForContextFacet("hideName", reflect.ValueOf(func(o *owner) bool { return o.Name == "Jones" }), h)
	assert.Equal(t, "Hidden", hide.Hides(visibility(target, consent.WhereObjectForms)))

	disable := NewDisableForContextFacet("disableName", reflect.ValueOf(func(o *owner) string { return "locked" }), h)
	assert.Equal(t, "locked", disable.Disables(usability(target, consent.Anonymous)))

	validate := NewValidateFacet("validateName", reflect.ValueOf(func(o *owner, name string) string {
		if name == o.Name {
			return "unchanged"
		}
		return ""
	}), h)
	ctx := consent.NewValidityContext(target, nameID, consent.Anonymous, consent.InitiatedByUser, "Jones")
	assert.Equal(t, "unchanged", validate.Invalidates(ctx))
	ctx.Proposed = "Smith"
	assert.Equal(t, "", validate.Invalidates(ctx))
	ctx.Proposed = 42
	assert.Equal(t, "Invalid value: 42", validate.Invalidates(ctx))

	args := NewActionValidationFacet("validateRename", reflect.ValueOf(func(o *owner, first, last string) string {
		if first == last {
			return "names must differ"
		}
		return ""
	}), h)
	argsCtx := consent.NewArgumentsValidityContext(target, nameID, consent.Anonymous, consent.InitiatedByUser, []interface{}{"a", "a"})
	assert.Equal(t, "names must differ", args.Invalidates(argsCtx))

	choices := NewChoicesFacet("choicesName", reflect.ValueOf(func(o *owner) []string { return []string{"a", "b"} }), h)
	assert.Equal(t, []interface{}{"a", "b"}, choices.Choices(target))

	def := NewDefaultFacet("defaultName", reflect.ValueOf(func(o *owner) string { return "anon" }), h)
	assert.Equal(t, "anon", def.Default(target))

	t.Run("wrong target type is ignored", func(t *testing.T) {
		other := managed{pojo: &struct{}{}}
		assert.Equal(t, "", hide.Hides(visibility(other, consent.WhereObjectForms)))
		assert.Nil(t, choices.Choices(other))
	})
}

func TestValueFacets(t *testing.T) {
	h := newHolder()
	ctx := func(v interface{}) *consent.ValidityContext {
		return consent.NewValidityContext(nil, nameID, consent.Anonymous, consent.InitiatedByUser, v)
	}

	maxLen := NewMaxLengthFacet(3, h)
	assert.Equal(t, "", maxLen.Invalidates(ctx("abc")))
	assert.Contains(t, maxLen.Invalidates(ctx("abcd")), "too long")

	mandatory := NewMandatoryFacet(true, h, facet.PrecedenceDefault)
	assert.Equal(t, "Mandatory", mandatory.Invalidates(ctx("")))
	assert.Equal(t, "Mandatory", mandatory.Invalidates(ctx(nil)))
	assert.Equal(t, "", mandatory.Invalidates(ctx(0)))

	optional := NewMandatoryFacet(false, h, facet.PrecedenceLow)
	assert.Equal(t, "", optional.Invalidates(ctx(nil)))

	re, err := NewRegExFacet(`^[A-Z]`, h)
	require.NoError(t, err)
	assert.Equal(t, "Doesn't match pattern", re.Invalidates(ctx("jones")))
	assert.Equal(t, "", re.Invalidates(ctx("Jones")))

	_, err = NewRegExFacet(`(`, h)
	assert.Error(t, err)

	assert.Equal(t, "###", NewMaskFacet("###", h).Mask())
}

type dictionary map[string]string

func (d dictionary) Translate(context, text string, locale language.Tag) string {
	if locale == language.German {
		return d[context+"|"+text]
	}
	return ""
}

func TestTranslatedNamedFacet(t *testing.T) {
	h := newHolder()
	named := NewNamedFacet("Name", OriginSynthesized, h, facet.PrecedenceDefault)
	tr := NewTranslatedNamedFacet(named, nameID.String(), dictionary{"petclinic.Owner#name|Name": "Nachname"})

	assert.Equal(t, "Name", tr.Text())
	assert.Equal(t, "Nachname", tr.Translated(language.German))
	assert.Equal(t, "Name", tr.Translated(language.French))
	assert.Equal(t, facet.PrecedenceDefault, tr.Precedence())
	assert.Equal(t, facet.TypeOf[NamedFacet](), tr.FacetType())
	assert.True(t, IsTranslated(tr))
	assert.False(t, IsTranslated(named))
}

func TestAuthorizationFacet(t *testing.T) {
	h := newHolder()
	vet := consent.Actor{User: "sam", Roles: []string{"vet"}}
	owner := consent.Actor{User: "joe", Roles: []string{"owner"}}

	hiding := NewAuthorizationFacet([]string{"vet"}, false, h)
	assert.Equal(t, "", hiding.Hides(consent.NewVisibilityContext(nil, nameID, vet, consent.InitiatedByUser, consent.WhereObjectForms)))
	assert.Equal(t, "Not authorized to view", hiding.Hides(consent.NewVisibilityContext(nil, nameID, owner, consent.InitiatedByUser, consent.WhereObjectForms)))
	assert.Equal(t, "", hiding.Hides(consent.NewVisibilityContext(nil, nameID, owner, consent.InitiatedByFramework, consent.WhereObjectForms)))

	disabling := NewAuthorizationFacet([]string{"vet"}, true, h)
	assert.Equal(t, "", disabling.Hides(consent.NewVisibilityContext(nil, nameID, owner, consent.InitiatedByUser, consent.WhereObjectForms)))
	assert.Contains(t, disabling.Disables(usability(nil, owner)), "requires vet")
}

func TestDomainEventFacet(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	bus.Subscribe("owner.name", 0, func(e *events.Event) error {
		switch e.Phase {
		case events.PhaseHide:
			e.Hide()
		case events.PhaseValidate:
			if e.Proposed == "" {
				e.Invalidate("empty")
			}
		}
		return nil
	})

	h := newHolder()
	f := NewDomainEventFacet("owner.name", bus, h)
	h.AddFacet(f)

	_, ok := h.Facet(facet.TypeOf[DomainEventFacet]())
	assert.False(t, ok, "event facets are never non-event winners")
	assert.Len(t, facet.WinnersImplementing[consent.HidingAdvisor](h), 1)

	target := managed{pojo: &owner{}, state: object.StatePersistent}
	assert.Equal(t, "Hidden by subscriber", consent.HiddenReason(h, visibility(target, consent.WhereObjectForms)))
	assert.Equal(t, "", f.Disables(usability(target, consent.Anonymous)))
	assert.Equal(t, "empty", f.Invalidates(consent.NewValidityContext(target, nameID, consent.Anonymous, consent.InitiatedByUser, "")))
	assert.NoError(t, f.Executed(target, nil, nil))
}

func TestCompareSequence(t *testing.T) {
	assert.Less(t, CompareSequence("1", "2"), 0)
	assert.Less(t, CompareSequence("2", "10"), 0)
	assert.Less(t, CompareSequence("1.2", "1.10"), 0)
	assert.Less(t, CompareSequence("1", "1.1"), 0)
	assert.Less(t, CompareSequence("3", ""), 0)
	assert.Equal(t, 0, CompareSequence("1.1", "1.1"))
}

func TestComposeTitle(t *testing.T) {
	render := ComposeTitle([]TitlePart{
		{Sequence: 2, Get: func(p interface{}) interface{} { return p.(*owner).Name }},
		{Sequence: 1, Get: func(interface{}) interface{} { return "Mr" }},
		{Sequence: 3, Get: func(interface{}) interface{} { return nil }},
	})
	title := NewTitleFacet(render, OriginAnnotation, newHolder(), facet.PrecedenceLow)
	assert.Equal(t, "Mr Jones", title.Title(managed{pojo: &owner{Name: "Jones"}}))
	assert.Equal(t, "", title.Title(nil))
}
