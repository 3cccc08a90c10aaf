package memento

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/object"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/runtime/adapter"
	"github.com/causeway-lang/causeway/internal/runtime/oid"
)

// Support creates mementos and reconstructs adapters from them
type Support struct {
	objects *adapter.ObjectManager
	store   Store
	logger  *zap.Logger
}

// NewSupport creates the memento support over objects, parking non-persistent pojos in store
func NewSupport(objects *adapter.ObjectManager, store Store, logger *zap.Logger) *Support {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Support{objects: objects, store: store, logger: logger.Named("memento")}
}

// MementoForPojo adapts pojo and returns its memento
func (s *Support) MementoForPojo(ctx context.Context, pojo interface{}) (Memento, error) {
	a, err := s.objects.Adapt(ctx, pojo)
	if err != nil {
		return Memento{}, err
	}
	return s.MementoForAdapter(ctx, a)
}

// MementoForAdapter classifies a by bean sort. Beans are remembered by type and persistent
// entities by oid; transient entities, values, view models, mixins and collections are parked in
// the store. A sort or state outside these cases is unrecoverable.
func (s *Support) MementoForAdapter(ctx context.Context, a *adapter.ObjectAdapter) (Memento, error) {
	sp := a.Specification()
	switch sp.BeanSort() {
	case schema.SortBean:
		return Memento{Kind: KindBean, Oid: oid.ForService(sp.LogicalTypeName())}, nil

	case schema.SortEntity:
		switch a.State() {
		case object.StatePersistent:
			return Memento{Kind: KindEntity, Oid: a.Oid()}, nil
		case object.StateTransient:
			return s.park(ctx, a)
		default:
			return Memento{}, exceptions.Unrecoverable("no memento for %s entity %s", a.State(), sp.LogicalTypeName())
		}

	case schema.SortValue, schema.SortViewModel, schema.SortMixin, schema.SortCollection:
		return s.park(ctx, a)

	default:
		return Memento{}, exceptions.Unrecoverable("no memento for %s of bean sort %s", sp.LogicalTypeName(), sp.BeanSort())
	}
}

func (s *Support) park(ctx context.Context, a *adapter.ObjectAdapter) (Memento, error) {
	o := a.Oid()
	if err := s.store.Put(ctx, o.Key, a.Specification(), a.Pojo()); err != nil {
		return Memento{}, fmt.Errorf("failed to park %s: %w", o, err)
	}
	return Memento{Kind: KindStored, Oid: o}, nil
}

// ReconstructObjectAdapter resolves m. A bean that is not registered, a type that left the
// metamodel and a store key that is no longer known are unrecoverable; failing to fetch a
// persistent entity is returned as is.
func (s *Support) ReconstructObjectAdapter(ctx context.Context, m Memento) (*adapter.ObjectAdapter, error) {
	switch m.Kind {
	case KindBean:
		a, err := s.objects.Load(ctx, m.Oid)
		if err != nil {
			return nil, exceptions.UnrecoverableWrap(err, "cannot reconstruct bean %s", m.Oid.LogicalType)
		}
		return a, nil

	case KindEntity:
		a, err := s.objects.Load(ctx, m.Oid)
		if errors.Is(err, adapter.ErrUnknownType) {
			return nil, exceptions.UnrecoverableWrap(err, "cannot reconstruct %s", m.Oid)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", m.Oid, err)
		}
		return a, nil

	case KindStored:
		sp, ok := s.objects.Specifications().LookupByName(m.Oid.LogicalType)
		if !ok {
			return nil, exceptions.Unrecoverable("cannot reconstruct %s: unknown type", m.Oid)
		}
		pojo, err := s.store.Get(ctx, m.Oid.Key, sp)
		if errors.Is(err, ErrUnknownKey) {
			s.logger.Warn("memento key not found", zap.Stringer("oid", m.Oid))
			return nil, exceptions.UnrecoverableWrap(err, "cannot reconstruct %s: the store no longer holds it", m.Oid)
		}
		if err != nil {
			return nil, err
		}
		return s.objects.Restore(ctx, pojo, m.Oid)

	default:
		return nil, exceptions.Unrecoverable("unknown memento kind %s", m.Kind)
	}
}
