// Package petclinic is the example domain served by the causeway command and used in tests.
package petclinic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
)

// Logical type names
const (
	OwnerType  = "petclinic.Owner"
	PetType    = "petclinic.Pet"
	VisitType  = "petclinic.Visit"
	VetType    = "petclinic.Vet"
	OwnersType = "petclinic.Owners"
)

// Species a pet can be registered as
var Species = []string{"bird", "cat", "dog", "hamster", "lizard", "snake"}

// ErrNoRepository is returned by bean actions when no repository was wired
var ErrNoRepository = errors.New("petclinic: no repository")

// Repository stores owners on behalf of the Owners bean
type Repository interface {
	Persist(pojo interface{}) error
	AllInstances(logicalName string) ([]interface{}, error)
}

// Owner is a client of the clinic
type Owner struct {
	ID        int
	FirstName string
	LastName  string
	City      string
	Telephone string
	Email     string
	Notes     string
	Pets      []*Pet
}

func (o *Owner) addPet(name, species string) *Pet {
	p := &Pet{Name: name, Species: species}
	o.Pets = append(o.Pets, p)
	return p
}

func (o *Owner) relocate(city, telephone string) *Owner {
	o.City = city
	o.Telephone = telephone
	return o
}

// Pet belongs to an owner
type Pet struct {
	Name    string
	Species string
	Visits  []*Visit
}

func (p *Pet) bookVisit(date, reason string) *Visit {
	v := &Visit{Date: date, Reason: reason}
	p.Visits = append(p.Visits, v)
	return v
}

// Visit is one appointment of a pet
type Visit struct {
	Date   string
	Reason string
}

// Vet works at the clinic
type Vet struct {
	ID        int
	FirstName string
	LastName  string
	Specialty string
}

// Owners is the bean for finding and registering owners
type Owners struct {
	repo Repository
}

func (s *Owners) findByLastName(lastName string) ([]*Owner, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	all, err := s.repo.AllInstances(OwnerType)
	if err != nil {
		return nil, err
	}
	var found []*Owner
	for _, pojo := range all {
		if o := pojo.(*Owner); strings.EqualFold(o.LastName, lastName) {
			found = append(found, o)
		}
	}
	return found, nil
}

func (s *Owners) create(firstName, lastName, city string) (*Owner, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	o := &Owner{FirstName: firstName, LastName: lastName, City: city}
	if err := s.repo.Persist(o); err != nil {
		return nil, fmt.Errorf("failed to register %s %s: %w", firstName, lastName, err)
	}
	return o, nil
}

// Register adds the petclinic types to reg; repo backs the Owners bean and may be nil
func Register(reg *schema.Registry, repo Repository) error {
	builders := []interface{ Register(*schema.Registry) error }{
		schema.For[Owner](OwnerType, schema.SortEntity).
			Property("ID", schema.PrimaryKey{}, schema.Disabled{Reason: "Assigned when saved"}, schema.MemberOrder{Sequence: "1"}).
			Property("FirstName", schema.Title{Sequence: 1}, schema.MemberOrder{Group: "Name", Sequence: "1"}).
			Property("LastName", schema.Title{Sequence: 2}, schema.MemberOrder{Group: "Name", Sequence: "2"}).
			Property("City", schema.MemberOrder{Group: "Contact", Sequence: "1"}).
			Property("Telephone", schema.Optional{}, schema.RegEx{Pattern: `^[0-9 +()-]*$`}, schema.MemberOrder{Group: "Contact", Sequence: "2"}).
			Property("Email", schema.Optional{}, schema.Hidden{Where: consent.WhereAllTables}, schema.MemberOrder{Group: "Contact", Sequence: "3"}).
			Property("Notes", schema.Optional{}, schema.MaxLength{Length: 400}, schema.Hidden{When: consent.WhenUntilPersisted}).
			Collection("Pets").
			Action("addPet", (*Owner).addPet, schema.DomainEvent{Name: "petclinic.addPet"}).
			Parameter("addPet", 0, "name").
			Parameter("addPet", 1, "species").
			Action("relocate", (*Owner).relocate).
			Parameter("relocate", 0, "city").
			Parameter("relocate", 1, "telephone", schema.Optional{}).
			Support("validate0AddPet", func(o *Owner, name string) string {
				for _, p := range o.Pets {
					if strings.EqualFold(p.Name, name) {
						return fmt.Sprintf("Already has a pet called %s", p.Name)
					}
				}
				return ""
			}).
			Support("choices1AddPet", func(*Owner) []string { return Species }).
			Support("default1AddPet", func(*Owner) string { return "dog" }).
			Support("disableRelocate", func(o *Owner) string {
				if len(o.Pets) == 0 {
					return "Register a pet first"
				}
				return ""
			}).
			Support("defaultCity", func(*Owner) string { return "Madison" }),

		schema.For[Pet](PetType, schema.SortViewModel).
			Property("Name", schema.Title{Sequence: 1}).
			Property("Species").
			Collection("Visits").
			Action("bookVisit", (*Pet).bookVisit).
			Parameter("bookVisit", 0, "date").
			Parameter("bookVisit", 1, "reason", schema.MaxLength{Length: 120}).
			Support("choicesSpecies", func(*Pet) []string { return Species }),

		schema.For[Visit](VisitType, schema.SortValue).
			Property("Date", schema.Title{Sequence: 1}).
			Property("Reason", schema.Title{Sequence: 2}),

		schema.For[Vet](VetType, schema.SortEntity).
			Property("ID", schema.PrimaryKey{}, schema.Hidden{}).
			Property("FirstName", schema.Title{Sequence: 1}).
			Property("LastName", schema.Title{Sequence: 2}).
			Property("Specialty", schema.Optional{}, schema.RequiresRole{Roles: []string{"clinic-admin"}, Disable: true}).
			Support("choicesSpecialty", func(*Vet) []string { return []string{"dentistry", "radiology", "surgery"} }),

		schema.For[Owners](OwnersType, schema.SortBean).
			Factory(func() *Owners { return &Owners{repo: repo} }).
			Action("findByLastName", (*Owners).findByLastName).
			Parameter("findByLastName", 0, "lastName").
			Action("create", (*Owners).create, schema.RequiresRole{Roles: []string{"front-desk", "clinic-admin"}}).
			Parameter("create", 0, "firstName").
			Parameter("create", 1, "lastName").
			Parameter("create", 2, "city"),
	}
	for _, b := range builders {
		if err := b.Register(reg); err != nil {
			return err
		}
	}
	return nil
}
