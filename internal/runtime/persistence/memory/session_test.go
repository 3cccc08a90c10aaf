package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
)

type owner struct {
	ID       int
	LastName string
}

type vet struct {
	Code string
	Name string
}

type address struct {
	Street string
}

func specFor[T any](t *testing.T, name string, sort schema.BeanSort, key string, fields ...string) *spec.ObjectSpecification {
	t.Helper()
	b := schema.For[T](name, sort)
	if key != "" {
		b.Property(key, schema.PrimaryKey{})
	}
	for _, f := range fields {
		b.Property(f)
	}
	s, err := b.Build()
	require.NoError(t, err)
	return spec.New(s, nil)
}

func TestPersistAssignsKeys(t *testing.T) {
	ctx := context.Background()
	owners := specFor[owner](t, "petclinic.Owner", schema.SortEntity, "ID", "LastName")
	vets := specFor[vet](t, "petclinic.Vet", schema.SortEntity, "Code", "Name")
	m := NewSession()

	first, second := &owner{LastName: "Davis"}, &owner{LastName: "Franklin"}
	require.NoError(t, m.Persist(ctx, owners, first))
	require.NoError(t, m.Persist(ctx, owners, second))
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)

	key, ok := m.Identifier(second)
	require.True(t, ok)
	assert.Equal(t, "2", key)

	v := &vet{Name: "Carter"}
	require.NoError(t, m.Persist(ctx, vets, v))
	assert.NotEmpty(t, v.Code)

	explicit := &owner{ID: 10, LastName: "Black"}
	require.NoError(t, m.Persist(ctx, owners, explicit))
	assert.ErrorIs(t, m.Persist(ctx, owners, &owner{ID: 10}), persistence.ErrDuplicateKey)

	all, err := m.AllInstances(ctx, owners)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{first, second, explicit}, all)
}

func TestFetchReturnsSameInstance(t *testing.T) {
	ctx := context.Background()
	owners := specFor[owner](t, "petclinic.Owner", schema.SortEntity, "ID", "LastName")
	m := NewSession()

	o := &owner{LastName: "Davis"}
	assert.False(t, m.IsPersistent(o))
	require.NoError(t, m.Persist(ctx, owners, o))
	assert.True(t, m.IsPersistent(o))

	fetched, err := m.Fetch(ctx, owners, "1")
	require.NoError(t, err)
	assert.Same(t, o, fetched)

	_, err = m.Fetch(ctx, owners, "99")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestVersionAndDelete(t *testing.T) {
	ctx := context.Background()
	owners := specFor[owner](t, "petclinic.Owner", schema.SortEntity, "ID", "LastName")
	m := NewSession()

	o := &owner{LastName: "Davis"}
	require.NoError(t, m.Persist(ctx, owners, o))
	require.NoError(t, m.Persist(ctx, owners, o))
	version, ok := m.Version(o)
	require.True(t, ok)
	assert.Equal(t, int64(2), version)

	require.NoError(t, m.Delete(ctx, owners, o))
	assert.False(t, m.IsPersistent(o))
	assert.ErrorIs(t, m.Delete(ctx, owners, o), persistence.ErrNotPersistent)
	_, err := m.Fetch(ctx, owners, "1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestRejectsNonEntities(t *testing.T) {
	ctx := context.Background()
	addresses := specFor[address](t, "petclinic.Address", schema.SortValue, "", "Street")
	m := NewSession()

	assert.ErrorIs(t, m.Persist(ctx, addresses, &address{}), persistence.ErrNotEntity)
	_, err := m.AllInstances(ctx, addresses)
	assert.ErrorIs(t, err, persistence.ErrNotEntity)
	assert.False(t, m.IsPersistent(address{}))
	assert.False(t, m.IsPersistent([]string{"not comparable"}))
}
