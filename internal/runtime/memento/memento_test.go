package memento_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/demo/petclinic"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/specloader"
	"github.com/causeway-lang/causeway/internal/runtime/adapter"
	"github.com/causeway-lang/causeway/internal/runtime/cache"
	"github.com/causeway-lang/causeway/internal/runtime/memento"
	"github.com/causeway-lang/causeway/internal/runtime/oid"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
	"github.com/causeway-lang/causeway/internal/runtime/persistence/memory"
	"github.com/causeway-lang/causeway/internal/runtime/services"
)

type world struct {
	objects *adapter.ObjectManager
	support *memento.Support
}

func newWorld(t *testing.T, store memento.Store, extra ...func(*schema.Registry) error) *world {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := schema.NewRegistry()
	repo := &adapter.Repository{}
	require.NoError(t, petclinic.Register(reg, repo))
	for _, register := range extra {
		require.NoError(t, register(reg))
	}

	loader := specloader.NewLoader(reg, progmodel.Default(logger, nil), specloader.Config{Logger: logger})
	require.NoError(t, loader.CreateMetaModel(context.Background()))

	beans := services.NewRegistry()
	beans.Instantiate(loader.AllSpecifications())
	objects := adapter.NewObjectManager(loader, memory.NewSession(), beans, logger)
	repo.Objects = objects
	return &world{objects: objects, support: memento.NewSupport(objects, store, logger)}
}

func newInstanceStore(t *testing.T) *memento.InstanceStore {
	s := memento.NewInstanceStore(time.Minute, time.Minute)
	t.Cleanup(func() { s.Close() })
	return s
}

// roundTrip passes the memento through its string form, as a UI would
func (w *world) roundTrip(t *testing.T, pojo interface{}) (memento.Memento, *adapter.ObjectAdapter) {
	t.Helper()
	ctx := context.Background()
	m, err := w.support.MementoForPojo(ctx, pojo)
	require.NoError(t, err)
	parsed, err := memento.Parse(m.String())
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
	a, err := w.support.ReconstructObjectAdapter(ctx, parsed)
	require.NoError(t, err)
	return m, a
}

func TestBeanRoundTrip(t *testing.T) {
	w := newWorld(t, newInstanceStore(t))
	bean, ok := w.objects.Services().Lookup(petclinic.OwnersType)
	require.True(t, ok)

	m, a := w.roundTrip(t, bean)
	assert.Equal(t, memento.KindBean, m.Kind)
	assert.Equal(t, oid.ForService(petclinic.OwnersType), m.Oid)
	assert.Same(t, bean, a.Pojo())
}

func TestPersistentEntityRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newInstanceStore(t))

	owner := &petclinic.Owner{FirstName: "Harold", LastName: "Davis"}
	a, err := w.objects.Adapt(ctx, owner)
	require.NoError(t, err)
	require.NoError(t, w.objects.Persist(ctx, a))

	m, restored := w.roundTrip(t, owner)
	assert.Equal(t, memento.KindEntity, m.Kind)
	assert.True(t, m.Oid.Equal(a.Oid()))
	assert.True(t, restored.Oid().Equal(a.Oid()))
	assert.Same(t, owner, restored.Pojo())
}

type customer struct {
	Email string
	Name  string
}

func registerCustomer(reg *schema.Registry) error {
	return schema.For[customer]("crm.Customer", schema.SortEntity).
		Property("Email", schema.PrimaryKey{}).
		Property("Name").
		Register(reg)
}

func TestEmailKeyedEntityRoundTrip(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newInstanceStore(t), registerCustomer)

	c := &customer{Email: "alice@example.com", Name: "Alice"}
	a, err := w.objects.Adapt(ctx, c)
	require.NoError(t, err)
	require.NoError(t, w.objects.Persist(ctx, a))

	m, restored := w.roundTrip(t, c)
	assert.Equal(t, memento.KindEntity, m.Kind)
	assert.Equal(t, "alice@example.com", m.Oid.Key)
	assert.True(t, restored.Oid().Equal(a.Oid()))
	assert.Same(t, c, restored.Pojo())
}

func TestTransientValueRoundTrip(t *testing.T) {
	w := newWorld(t, newInstanceStore(t))
	visit := &petclinic.Visit{Date: "2024-05-01", Reason: "checkup"}

	m, a := w.roundTrip(t, visit)
	assert.Equal(t, memento.KindStored, m.Kind)
	assert.Equal(t, oid.Value, m.Oid.State)
	assert.Same(t, visit, a.Pojo())
	assert.Equal(t, m.Oid, a.Oid())
}

func TestTransientEntityIsStored(t *testing.T) {
	w := newWorld(t, newInstanceStore(t))
	owner := &petclinic.Owner{FirstName: "Eduardo", LastName: "Rodriquez"}

	m, a := w.roundTrip(t, owner)
	assert.Equal(t, memento.KindStored, m.Kind)
	assert.Equal(t, oid.Transient, m.Oid.State)
	assert.Same(t, owner, a.Pojo())
	assert.Equal(t, m.Oid, a.Oid())
}

func TestCacheStoreRoundTripsCopies(t *testing.T) {
	c := cache.NewMemoryCache(cache.DefaultConfig(), time.Minute)
	defer c.Close()
	w := newWorld(t, memento.NewCacheStore(c, time.Minute))

	pet := &petclinic.Pet{Name: "Leo", Species: "cat", Visits: []*petclinic.Visit{{Date: "2024-01-02", Reason: "vaccination"}}}
	m, a := w.roundTrip(t, pet)
	assert.Equal(t, memento.KindStored, m.Kind)
	assert.NotSame(t, pet, a.Pojo())
	assert.Equal(t, pet, a.Pojo())
	assert.Equal(t, m.Oid, a.Oid())
}

func TestMissingKeyIsUnrecoverable(t *testing.T) {
	ctx := context.Background()
	store := newInstanceStore(t)
	w := newWorld(t, store)

	_, err := w.support.ReconstructObjectAdapter(ctx, memento.Memento{Kind: memento.KindStored, Oid: oid.NewValue(petclinic.VisitType)})
	assert.True(t, exceptions.IsUnrecoverable(err))
	assert.ErrorIs(t, err, memento.ErrUnknownKey)

	_, err = w.support.ReconstructObjectAdapter(ctx, memento.Memento{Kind: 'X', Oid: oid.NewValue(petclinic.VisitType)})
	assert.True(t, exceptions.IsUnrecoverable(err))

	_, err = w.support.ReconstructObjectAdapter(ctx, memento.Memento{Kind: memento.KindStored, Oid: oid.NewValue("petclinic.Gone")})
	assert.True(t, exceptions.IsUnrecoverable(err))
}

func TestDeletedEntityIsNotRetried(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t, newInstanceStore(t))

	a, err := w.objects.NewInstance(petclinic.VetType)
	require.NoError(t, err)
	require.NoError(t, w.objects.Persist(ctx, a))
	m, err := w.support.MementoForAdapter(ctx, a)
	require.NoError(t, err)

	require.NoError(t, w.objects.Delete(ctx, a))
	_, err = w.support.MementoForAdapter(ctx, a)
	assert.True(t, exceptions.IsUnrecoverable(err))

	_, err = w.support.ReconstructObjectAdapter(ctx, m)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.False(t, exceptions.IsUnrecoverable(err))
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "!!!", "Qg", "WHxQOnBldGNsaW5pYy5Pd25lcg"} {
		_, err := memento.Parse(s)
		assert.ErrorIs(t, err, memento.ErrInvalid, s)
	}
}
