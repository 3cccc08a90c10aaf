package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

type owners struct{ calls int }

type clock struct{}

type owner struct{ Name string }

func specOf[T any](t *testing.T, name string, sort schema.BeanSort) *spec.ObjectSpecification {
	t.Helper()
	s, err := schema.For[T](name, sort).Build()
	require.NoError(t, err)
	return spec.New(s, nil)
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	ownersSpec := specOf[owners](t, "petclinic.Owners", schema.SortBean)

	bean := &owners{}
	require.NoError(t, r.Register(ownersSpec, bean))
	assert.ErrorIs(t, r.Register(ownersSpec, &owners{}), ErrAlreadyRegistered)

	got, ok := r.Lookup("petclinic.Owners")
	require.True(t, ok)
	assert.Same(t, bean, got)

	assert.ErrorIs(t, r.Register(specOf[owner](t, "petclinic.Owner", schema.SortEntity), &owner{}), ErrNotBean)
	assert.ErrorIs(t, r.Register(specOf[clock](t, "petclinic.Clock", schema.SortBean), &owners{}), ErrNotBean)
}

func TestInstantiate(t *testing.T) {
	r := NewRegistry()
	ownersSpec := specOf[owners](t, "petclinic.Owners", schema.SortBean)
	existing := &owners{calls: 3}
	require.NoError(t, r.Register(ownersSpec, existing))

	created := r.Instantiate([]*spec.ObjectSpecification{
		ownersSpec,
		specOf[clock](t, "petclinic.Clock", schema.SortBean),
		specOf[owner](t, "petclinic.Owner", schema.SortEntity),
	})
	assert.Equal(t, []string{"petclinic.Clock"}, created)
	assert.Equal(t, []string{"petclinic.Clock", "petclinic.Owners"}, r.Names())

	got, _ := r.Lookup("petclinic.Owners")
	assert.Same(t, existing, got)

	r.Clear()
	assert.Empty(t, r.Names())
}
