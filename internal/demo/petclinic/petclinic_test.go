package petclinic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/causeway-lang/causeway/internal/demo/petclinic"
	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/metamodel/specloader"
)

type managed struct {
	pojo  interface{}
	state object.State
}

func (m managed) Pojo() interface{}   { return m.pojo }
func (m managed) State() object.State { return m.state }

var frontDesk = spec.UserInteraction(consent.Actor{User: "jane", Roles: []string{"front-desk"}})

func load(t *testing.T) *specloader.Loader {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := schema.NewRegistry()
	require.NoError(t, petclinic.Register(reg, nil))
	loader := specloader.NewLoader(reg, progmodel.Default(logger, nil), specloader.Config{Logger: logger})
	require.NoError(t, loader.CreateMetaModel(context.Background()))
	assert.Empty(t, loader.Failures())
	return loader
}

func lookup(t *testing.T, loader *specloader.Loader, name string) *spec.ObjectSpecification {
	t.Helper()
	s, ok := loader.LookupByName(name)
	require.True(t, ok, name)
	return s
}

func TestMetamodel(t *testing.T) {
	loader := load(t)
	for _, name := range []string{petclinic.OwnerType, petclinic.PetType, petclinic.VisitType, petclinic.VetType, petclinic.OwnersType} {
		lookup(t, loader, name)
	}
	assert.Equal(t, schema.SortBean, lookup(t, loader, petclinic.OwnersType).BeanSort())

	owner := lookup(t, loader, petclinic.OwnerType)
	key, ok := owner.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "id", key.ID())
}

func TestOwnerTitle(t *testing.T) {
	owner := lookup(t, load(t), petclinic.OwnerType)
	target := managed{pojo: &petclinic.Owner{FirstName: "Jean", LastName: "Coleman"}, state: object.StatePersistent}
	assert.Equal(t, "Jean Coleman", owner.Title(target))
}

func TestAddPet(t *testing.T) {
	owner := lookup(t, load(t), petclinic.OwnerType)
	pojo := &petclinic.Owner{FirstName: "Jean", LastName: "Coleman", Pets: []*petclinic.Pet{{Name: "Samantha", Species: "cat"}}}
	target := managed{pojo: pojo, state: object.StatePersistent}

	addPet, ok := owner.Action("addPet")
	require.True(t, ok)
	name, _ := addPet.Parameter(0)
	species, _ := addPet.Parameter(1)

	assert.Equal(t, "Already has a pet called Samantha", name.IsValid(target, "samantha", frontDesk).Reason())
	assert.True(t, name.IsValid(target, "Max", frontDesk).IsAllowed())
	assert.Len(t, species.Choices(target), len(petclinic.Species))
	assert.Equal(t, "dog", species.Default(target))

	result, err := addPet.Execute(target, []interface{}{"Max", "dog"}, frontDesk)
	require.NoError(t, err)
	assert.Equal(t, &petclinic.Pet{Name: "Max", Species: "dog"}, result)
	assert.Len(t, pojo.Pets, 2)

	_, err = addPet.Execute(target, []interface{}{"Max", "cat"}, frontDesk)
	assert.ErrorIs(t, err, spec.ErrVetoed)
}

func TestRelocateNeedsAPet(t *testing.T) {
	owner := lookup(t, load(t), petclinic.OwnerType)
	relocate, ok := owner.Action("relocate")
	require.True(t, ok)

	pojo := &petclinic.Owner{FirstName: "Carlos", LastName: "Estaban"}
	target := managed{pojo: pojo, state: object.StatePersistent}
	assert.Equal(t, "Register a pet first", relocate.DisabledReason(target, frontDesk))

	pojo.Pets = append(pojo.Pets, &petclinic.Pet{Name: "Lucky", Species: "dog"})
	assert.Empty(t, relocate.DisabledReason(target, frontDesk))

	city, _ := owner.Property("city")
	assert.Equal(t, "Madison", city.Default(target))
}

func TestOwnerVisibility(t *testing.T) {
	owner := lookup(t, load(t), petclinic.OwnerType)
	pojo := &petclinic.Owner{FirstName: "Maria", LastName: "Escobito"}

	notes, _ := owner.Property("notes")
	assert.NotEmpty(t, notes.HiddenReason(managed{pojo: pojo, state: object.StateTransient}, frontDesk))
	assert.Empty(t, notes.HiddenReason(managed{pojo: pojo, state: object.StatePersistent}, frontDesk))

	email, _ := owner.Property("email")
	persisted := managed{pojo: pojo, state: object.StatePersistent}
	assert.Empty(t, email.HiddenReason(persisted, frontDesk))
	inTable := frontDesk
	inTable.Where = consent.WhereStandaloneTables
	assert.NotEmpty(t, email.HiddenReason(persisted, inTable))

	telephone, _ := owner.Property("telephone")
	assert.True(t, telephone.IsValid(persisted, "+1 608 555 0100", frontDesk).IsAllowed())
	assert.True(t, telephone.IsValid(persisted, "call me", frontDesk).IsVetoed())
}

func TestVetSpecialtyNeedsAdmin(t *testing.T) {
	vet := lookup(t, load(t), petclinic.VetType)
	target := managed{pojo: &petclinic.Vet{FirstName: "Helen", LastName: "Leary"}, state: object.StatePersistent}

	specialty, ok := vet.Property("specialty")
	require.True(t, ok)
	assert.Empty(t, specialty.HiddenReason(target, frontDesk))
	assert.Equal(t, "Not authorized to edit (requires clinic-admin)", specialty.DisabledReason(target, frontDesk))

	admin := spec.UserInteraction(consent.Actor{User: "root", Roles: []string{"clinic-admin"}})
	assert.Empty(t, specialty.DisabledReason(target, admin))
	assert.Len(t, specialty.Choices(target), 3)
}

func TestOwnersWithoutRepository(t *testing.T) {
	owners := lookup(t, load(t), petclinic.OwnersType)
	bean := managed{pojo: owners.NewInstance(), state: object.StateNotApplicable}

	find, ok := owners.Action("findByLastName")
	require.True(t, ok)
	_, err := find.Invoke(bean, []interface{}{"Davis"})
	assert.ErrorIs(t, err, petclinic.ErrNoRepository)

	create, _ := owners.Action("create")
	assert.NotEmpty(t, create.HiddenReason(bean, spec.UserInteraction(consent.Anonymous)))
}
