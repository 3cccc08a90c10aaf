// Package adapter binds domain objects to their specification, identity and persistence state.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/oid"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
	"github.com/causeway-lang/causeway/internal/runtime/services"
)

var (
	// ErrUnknownType is returned for oids naming a type that is not in the metamodel
	ErrUnknownType = errors.New("unknown logical type")
	// ErrNotLoadable is returned for oids that cannot be resolved without a memento store
	ErrNotLoadable = errors.New("oid cannot be loaded")
	// ErrNotWired is returned by a Repository whose object manager was never set
	ErrNotWired = errors.New("repository is not wired to an object manager")
)

// Specifications resolves pojos and logical names to specifications
type Specifications interface {
	SpecificationFor(pojo interface{}) (*spec.ObjectSpecification, error)
	LookupByName(name string) (*spec.ObjectSpecification, bool)
}

// ObjectAdapter is a pojo together with its specification and identity. It is request scoped.
type ObjectAdapter struct {
	pojo    interface{}
	spec    *spec.ObjectSpecification
	oid     oid.Oid
	session persistence.Session
	logger  *zap.Logger
	deleted atomic.Bool
}

var _ object.Managed = (*ObjectAdapter)(nil)

// Pojo returns the wrapped domain object
func (a *ObjectAdapter) Pojo() interface{} { return a.pojo }

// Specification returns the metamodel of the pojo's type
func (a *ObjectAdapter) Specification() *spec.ObjectSpecification { return a.spec }

// State is read from the persistence session on every call
func (a *ObjectAdapter) State() object.State {
	if !a.spec.BeanSort().IsEntity() {
		return object.StateNotApplicable
	}
	switch {
	case a.deleted.Load():
		return object.StateDeleted
	case a.session.IsPersistent(a.pojo):
		return object.StatePersistent
	default:
		return object.StateTransient
	}
}

// Oid returns the identity of the pojo. A persisted entity's oid carries its key and version even
// when the adapter was created while the entity was transient.
func (a *ObjectAdapter) Oid() oid.Oid {
	if a.spec.BeanSort().IsEntity() && a.session.IsPersistent(a.pojo) {
		if o, ok := persistentOid(a.session, a.spec, a.pojo); ok {
			return o
		}
		a.logger.Warn("persistent entity has no identifier", zap.String("type", a.spec.LogicalTypeName()))
	}
	return a.oid
}

// Title renders the pojo
func (a *ObjectAdapter) Title() string {
	return a.spec.Title(a)
}

func (a *ObjectAdapter) String() string {
	return fmt.Sprintf("ObjectAdapter[%s]", a.Oid())
}

// persistentOid reports false when the session knows no identifier for pojo
func persistentOid(session persistence.Session, s *spec.ObjectSpecification, pojo interface{}) (oid.Oid, bool) {
	key, ok := session.Identifier(pojo)
	if !ok || key == "" {
		return oid.Oid{}, false
	}
	o := oid.NewPersistent(s.LogicalTypeName(), key)
	if version, ok := session.Version(pojo); ok {
		o = o.WithVersion(strconv.FormatInt(version, 10))
	}
	return o, true
}

// ObjectManager creates adapters and resolves oids
type ObjectManager struct {
	specs    Specifications
	session  persistence.Session
	services *services.Registry
	logger   *zap.Logger
}

// NewObjectManager wires the manager to the metamodel, the session and the bean registry
func NewObjectManager(specs Specifications, session persistence.Session, beans *services.Registry, logger *zap.Logger) *ObjectManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObjectManager{specs: specs, session: session, services: beans, logger: logger.Named("objects")}
}

// Session returns the persistence session
func (m *ObjectManager) Session() persistence.Session { return m.session }

// Services returns the bean registry
func (m *ObjectManager) Services() *services.Registry { return m.services }

// Specifications returns the metamodel lookup
func (m *ObjectManager) Specifications() Specifications { return m.specs }

// Adapt wraps pojo, assigning it an oid according to its bean sort
func (m *ObjectManager) Adapt(_ context.Context, pojo interface{}) (*ObjectAdapter, error) {
	if pojo == nil {
		return nil, fmt.Errorf("cannot adapt nil")
	}
	s, err := m.specs.SpecificationFor(pojo)
	if err != nil {
		return nil, err
	}
	return m.adapt(s, pojo), nil
}

func (m *ObjectManager) adapt(s *spec.ObjectSpecification, pojo interface{}) *ObjectAdapter {
	a := &ObjectAdapter{pojo: pojo, spec: s, session: m.session, logger: m.logger}
	name := s.LogicalTypeName()
	switch s.BeanSort() {
	case schema.SortBean:
		a.oid = oid.ForService(name)
	case schema.SortEntity:
		a.oid = oid.NewTransient(name)
		if m.session.IsPersistent(pojo) {
			if o, ok := persistentOid(m.session, s, pojo); ok {
				a.oid = o
			} else {
				m.logger.Warn("persistent entity has no identifier", zap.String("type", name))
			}
		}
	default:
		a.oid = oid.NewValue(name)
	}
	return a
}

// Restore adapts pojo under an oid issued earlier, e.g. by a memento. Persisted entities keep the
// oid the session gives them.
func (m *ObjectManager) Restore(ctx context.Context, pojo interface{}, o oid.Oid) (*ObjectAdapter, error) {
	a, err := m.Adapt(ctx, pojo)
	if err != nil {
		return nil, err
	}
	if a.spec.LogicalTypeName() != o.LogicalType {
		return nil, fmt.Errorf("cannot restore %s as %s", a.spec.LogicalTypeName(), o)
	}
	if o.State == oid.Transient || o.State == oid.Value {
		a.oid = o
	}
	return a, nil
}

// NewInstance creates and adapts a new pojo of the named type
func (m *ObjectManager) NewInstance(logicalName string) (*ObjectAdapter, error) {
	s, ok := m.specs.LookupByName(logicalName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, logicalName)
	}
	return m.adapt(s, s.NewInstance()), nil
}

// Load resolves a persistent or service oid
func (m *ObjectManager) Load(ctx context.Context, o oid.Oid) (*ObjectAdapter, error) {
	s, ok := m.specs.LookupByName(o.LogicalType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, o.LogicalType)
	}
	switch o.State {
	case oid.Persistent:
		pojo, err := m.session.Fetch(ctx, s, o.Key)
		if err != nil {
			return nil, err
		}
		return m.adapt(s, pojo), nil
	case oid.Service:
		bean, ok := m.services.Lookup(o.LogicalType)
		if !ok {
			return nil, fmt.Errorf("%w: no bean %s", ErrNotLoadable, o.LogicalType)
		}
		return m.adapt(s, bean), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotLoadable, o)
	}
}

// Persist stores the adapted entity
func (m *ObjectManager) Persist(ctx context.Context, a *ObjectAdapter) error {
	if err := m.session.Persist(ctx, a.spec, a.pojo); err != nil {
		return err
	}
	m.logger.Debug("persisted", zap.Stringer("oid", a.Oid()))
	return nil
}

// Delete removes the adapted entity; the adapter reports StateDeleted afterwards
func (m *ObjectManager) Delete(ctx context.Context, a *ObjectAdapter) error {
	o := a.Oid()
	if err := m.session.Delete(ctx, a.spec, a.pojo); err != nil {
		return err
	}
	a.oid = o
	a.deleted.Store(true)
	m.logger.Debug("deleted", zap.Stringer("oid", o))
	return nil
}

// AllInstances adapts every stored entity of the named type
func (m *ObjectManager) AllInstances(ctx context.Context, logicalName string) ([]*ObjectAdapter, error) {
	s, ok := m.specs.LookupByName(logicalName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, logicalName)
	}
	pojos, err := m.session.AllInstances(ctx, s)
	if err != nil {
		return nil, err
	}
	result := make([]*ObjectAdapter, 0, len(pojos))
	for _, pojo := range pojos {
		result = append(result, m.adapt(s, pojo))
	}
	return result, nil
}

// Repository lets domain code without a context persist and list entities through a manager.
// Objects may be set after the repository was handed out.
type Repository struct {
	Objects *ObjectManager
}

// Persist adapts and stores pojo
func (r *Repository) Persist(pojo interface{}) error {
	if r.Objects == nil {
		return ErrNotWired
	}
	ctx := context.Background()
	a, err := r.Objects.Adapt(ctx, pojo)
	if err != nil {
		return err
	}
	return r.Objects.Persist(ctx, a)
}

// AllInstances lists the stored pojos of the named type
func (r *Repository) AllInstances(logicalName string) ([]interface{}, error) {
	if r.Objects == nil {
		return nil, ErrNotWired
	}
	adapters, err := r.Objects.AllInstances(context.Background(), logicalName)
	if err != nil {
		return nil, err
	}
	pojos := make([]interface{}, len(adapters))
	for i, a := range adapters {
		pojos[i] = a.Pojo()
	}
	return pojos, nil
}
