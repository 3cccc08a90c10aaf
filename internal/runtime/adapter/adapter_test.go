package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/causeway-lang/causeway/internal/demo/petclinic"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/specloader"
	"github.com/causeway-lang/causeway/internal/runtime/adapter"
	"github.com/causeway-lang/causeway/internal/runtime/oid"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
	"github.com/causeway-lang/causeway/internal/runtime/persistence/memory"
	"github.com/causeway-lang/causeway/internal/runtime/services"
)

func newObjectManager(t *testing.T) *adapter.ObjectManager {
	t.Helper()
	return newObjectManagerWith(t, memory.NewSession(), zaptest.NewLogger(t))
}

func newObjectManagerWith(t *testing.T, session persistence.Session, logger *zap.Logger) *adapter.ObjectManager {
	t.Helper()
	reg := schema.NewRegistry()
	repo := &adapter.Repository{}
	require.NoError(t, petclinic.Register(reg, repo))

	loader := specloader.NewLoader(reg, progmodel.Default(logger, nil), specloader.Config{Logger: logger})
	require.NoError(t, loader.CreateMetaModel(context.Background()))

	beans := services.NewRegistry()
	beans.Instantiate(loader.AllSpecifications())
	objects := adapter.NewObjectManager(loader, session, beans, logger)
	repo.Objects = objects
	return objects
}

// keylessSession persists entities but never reports their identifier
type keylessSession struct {
	*memory.Session
}

func (keylessSession) Identifier(interface{}) (string, bool) { return "", false }

func TestPersistentEntityWithoutIdentifierKeepsTransientOid(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	objects := newObjectManagerWith(t, keylessSession{memory.NewSession()}, zap.New(core))

	pojo := &petclinic.Owner{FirstName: "Betty", LastName: "Davis"}
	a, err := objects.Adapt(ctx, pojo)
	require.NoError(t, err)
	require.NoError(t, objects.Persist(ctx, a))

	assert.Equal(t, object.StatePersistent, a.State())
	assert.Equal(t, oid.NewTransient(petclinic.OwnerType), a.Oid())
	_, err = oid.Parse(a.Oid().String())
	assert.NoError(t, err)

	again, err := objects.Adapt(ctx, pojo)
	require.NoError(t, err)
	assert.Equal(t, oid.Transient, again.Oid().State)
	assert.GreaterOrEqual(t, logs.FilterMessage("persistent entity has no identifier").Len(), 2)
}

func TestAdaptAssignsOidsBySort(t *testing.T) {
	ctx := context.Background()
	objects := newObjectManager(t)

	owner, err := objects.Adapt(ctx, &petclinic.Owner{FirstName: "George", LastName: "Franklin"})
	require.NoError(t, err)
	assert.Equal(t, oid.Transient, owner.Oid().State)
	assert.Equal(t, object.StateTransient, owner.State())
	assert.Equal(t, "George Franklin", owner.Title())

	visit, err := objects.Adapt(ctx, &petclinic.Visit{Date: "2024-05-01", Reason: "rabies shot"})
	require.NoError(t, err)
	assert.Equal(t, oid.Value, visit.Oid().State)
	assert.Equal(t, object.StateNotApplicable, visit.State())

	bean, ok := objects.Services().Lookup(petclinic.OwnersType)
	require.True(t, ok)
	owners, err := objects.Adapt(ctx, bean)
	require.NoError(t, err)
	assert.Equal(t, oid.ForService(petclinic.OwnersType), owners.Oid())

	_, err = objects.Adapt(ctx, nil)
	assert.Error(t, err)
	_, err = objects.Adapt(ctx, &struct{ X int }{})
	assert.ErrorIs(t, err, specloader.ErrNotLoadable)
}

func TestPersistedEntitiesShareOid(t *testing.T) {
	ctx := context.Background()
	objects := newObjectManager(t)

	pojo := &petclinic.Owner{FirstName: "Betty", LastName: "Davis"}
	first, err := objects.Adapt(ctx, pojo)
	require.NoError(t, err)
	transient := first.Oid()
	require.NoError(t, objects.Persist(ctx, first))

	assert.Equal(t, object.StatePersistent, first.State())
	assert.False(t, first.Oid().Equal(transient))
	assert.Equal(t, oid.NewPersistent(petclinic.OwnerType, "1").WithVersion("1"), first.Oid())

	second, err := objects.Adapt(ctx, pojo)
	require.NoError(t, err)
	assert.True(t, first.Oid().Equal(second.Oid()))

	loaded, err := objects.Load(ctx, first.Oid())
	require.NoError(t, err)
	assert.Same(t, pojo, loaded.Pojo())

	require.NoError(t, objects.Persist(ctx, second))
	assert.Equal(t, "2", first.Oid().Version)
	assert.True(t, first.Oid().Equal(second.Oid()))
}

func TestLoadRejectsUnloadableOids(t *testing.T) {
	ctx := context.Background()
	objects := newObjectManager(t)

	_, err := objects.Load(ctx, oid.NewTransient(petclinic.OwnerType))
	assert.ErrorIs(t, err, adapter.ErrNotLoadable)
	_, err = objects.Load(ctx, oid.NewPersistent("petclinic.Unknown", "1"))
	assert.ErrorIs(t, err, adapter.ErrUnknownType)

	bean, err := objects.Load(ctx, oid.ForService(petclinic.OwnersType))
	require.NoError(t, err)
	assert.IsType(t, &petclinic.Owners{}, bean.Pojo())
}

func TestDeleteMarksAdapter(t *testing.T) {
	ctx := context.Background()
	objects := newObjectManager(t)

	vet, err := objects.NewInstance(petclinic.VetType)
	require.NoError(t, err)
	require.NoError(t, objects.Persist(ctx, vet))
	persisted := vet.Oid()

	require.NoError(t, objects.Delete(ctx, vet))
	assert.Equal(t, object.StateDeleted, vet.State())
	assert.True(t, persisted.Equal(vet.Oid()))

	all, err := objects.AllInstances(ctx, petclinic.VetType)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRestoreKeepsIssuedOid(t *testing.T) {
	ctx := context.Background()
	objects := newObjectManager(t)

	issued := oid.NewValue(petclinic.PetType)
	restored, err := objects.Restore(ctx, &petclinic.Pet{Name: "Leo"}, issued)
	require.NoError(t, err)
	assert.Equal(t, issued, restored.Oid())

	_, err = objects.Restore(ctx, &petclinic.Pet{}, oid.NewValue(petclinic.VisitType))
	assert.Error(t, err)
}

func TestRepositoryBacksOwnersBean(t *testing.T) {
	ctx := context.Background()
	objects := newObjectManager(t)

	owners, err := objects.Load(ctx, oid.ForService(petclinic.OwnersType))
	require.NoError(t, err)
	create, ok := owners.Specification().Action("create")
	require.True(t, ok)

	created, err := create.Invoke(owners, []interface{}{"Jean", "Coleman", "Monona"})
	require.NoError(t, err)
	assert.Equal(t, 1, created.(*petclinic.Owner).ID)

	find, ok := owners.Specification().Action("findByLastName")
	require.True(t, ok)
	found, err := find.Invoke(owners, []interface{}{"coleman"})
	require.NoError(t, err)
	assert.Equal(t, []*petclinic.Owner{created.(*petclinic.Owner)}, found)

	unwired := &adapter.Repository{}
	assert.ErrorIs(t, unwired.Persist(&petclinic.Owner{}), adapter.ErrNotWired)
}
