// Package persistence defines the session the runtime uses to store entities, plus the key
// handling shared by its implementations.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

var (
	// ErrNotFound is returned when no entity has the requested key
	ErrNotFound = errors.New("entity not found")
	// ErrNotEntity is returned for types whose bean sort is not ENTITY
	ErrNotEntity = errors.New("not an entity")
	// ErrNotPersistent is returned when an operation needs an attached entity
	ErrNotPersistent = errors.New("entity is not persistent")
	// ErrDuplicateKey is returned when persisting a second entity with an existing key
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConcurrentModification is returned when the stored version moved on since the entity was read
	ErrConcurrentModification = errors.New("entity was modified concurrently")
)

// Session stores and retrieves entities. Fetching the same key twice within a session returns
// the same pojo.
type Session interface {
	// IsPersistent reports whether pojo is attached to the session
	IsPersistent(pojo interface{}) bool
	// Identifier returns the key of an attached pojo
	Identifier(pojo interface{}) (string, bool)
	// Version returns the optimistic locking version of an attached pojo
	Version(pojo interface{}) (int64, bool)
	// Persist inserts a transient pojo or writes back an attached one
	Persist(ctx context.Context, s *spec.ObjectSpecification, pojo interface{}) error
	// Fetch returns the entity of type s with key
	Fetch(ctx context.Context, s *spec.ObjectSpecification, key string) (interface{}, error)
	// Delete removes an attached pojo
	Delete(ctx context.Context, s *spec.ObjectSpecification, pojo interface{}) error
	// AllInstances returns every stored entity of type s, ordered by key
	AllInstances(ctx context.Context, s *spec.ObjectSpecification) ([]interface{}, error)
}

// CheckEntity returns ErrNotEntity unless s describes an entity
func CheckEntity(s *spec.ObjectSpecification) error {
	if !s.BeanSort().IsEntity() {
		return fmt.Errorf("%w: %s is a %s", ErrNotEntity, s.LogicalTypeName(), s.BeanSort())
	}
	return nil
}

// KeyOf renders the primary key of pojo; false when the type has none or it is still zero
func KeyOf(s *spec.ObjectSpecification, pojo interface{}) (string, bool) {
	pk, ok := s.Schema().PrimaryKey()
	if !ok {
		return "", false
	}
	v := reflect.ValueOf(pk.Get(pojo))
	if !v.IsValid() || v.IsZero() {
		return "", false
	}
	return fmt.Sprint(v.Interface()), true
}

// AssignKey gives pojo a key. An existing primary key value is kept; otherwise an integer primary
// key receives next() and a string one a random uuid. Types without a primary key are keyed by next().
func AssignKey(s *spec.ObjectSpecification, pojo interface{}, next func() (int64, error)) (string, error) {
	if key, ok := KeyOf(s, pojo); ok {
		return key, nil
	}
	pk, ok := s.Schema().PrimaryKey()
	if ok && pk.Type.Kind() == reflect.String {
		key := uuid.NewString()
		return key, pk.Set(pojo, key)
	}

	n, err := next()
	if err != nil {
		return "", err
	}
	if !ok {
		return strconv.FormatInt(n, 10), nil
	}
	switch pk.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if err := pk.Set(pojo, n); err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	default:
		return "", fmt.Errorf("%s: cannot generate a %s primary key", s.LogicalTypeName(), pk.Type)
	}
}

// SortKeys orders keys numerically when both are integers, lexically otherwise
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
}
