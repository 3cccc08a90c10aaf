// Package memory is a persistence session that keeps entities in maps, for tests and demos.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
)

type record struct {
	logicalType string
	key         string
	pojo        interface{}
	version     int64
}

// Session keeps every entity in memory; pojos are stored by reference
type Session struct {
	mu     sync.RWMutex
	byKey  map[string]map[string]*record
	byPojo map[interface{}]*record
	seq    map[string]int64
}

var _ persistence.Session = (*Session)(nil)

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{
		byKey:  make(map[string]map[string]*record),
		byPojo: make(map[interface{}]*record),
		seq:    make(map[string]int64),
	}
}

// IsPersistent reports whether pojo was persisted and not deleted
func (m *Session) IsPersistent(pojo interface{}) bool {
	_, ok := m.lookup(pojo)
	return ok
}

// Identifier returns the key of an attached pojo
func (m *Session) Identifier(pojo interface{}) (string, bool) {
	r, ok := m.lookup(pojo)
	if !ok {
		return "", false
	}
	return r.key, true
}

// Version returns how many times pojo was written
func (m *Session) Version(pojo interface{}) (int64, bool) {
	r, ok := m.lookup(pojo)
	if !ok {
		return 0, false
	}
	return r.version, true
}

func (m *Session) lookup(pojo interface{}) (*record, bool) {
	if pojo == nil || !reflect.TypeOf(pojo).Comparable() {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byPojo[pojo]
	return r, ok
}

// Persist attaches pojo, or bumps its version when already attached
func (m *Session) Persist(_ context.Context, s *spec.ObjectSpecification, pojo interface{}) error {
	if err := persistence.CheckEntity(s); err != nil {
		return err
	}
	if !s.IsInstance(pojo) {
		return fmt.Errorf("cannot persist %T as %s", pojo, s.LogicalTypeName())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.byPojo[pojo]; ok {
		r.version++
		return nil
	}

	name := s.LogicalTypeName()
	key, err := persistence.AssignKey(s, pojo, func() (int64, error) {
		m.seq[name]++
		return m.seq[name], nil
	})
	if err != nil {
		return err
	}
	if _, taken := m.byKey[name][key]; taken {
		return fmt.Errorf("%w: %s:%s", persistence.ErrDuplicateKey, name, key)
	}

	r := &record{logicalType: name, key: key, pojo: pojo, version: 1}
	if m.byKey[name] == nil {
		m.byKey[name] = make(map[string]*record)
	}
	m.byKey[name][key] = r
	m.byPojo[pojo] = r
	return nil
}

// Fetch returns the stored pojo itself
func (m *Session) Fetch(_ context.Context, s *spec.ObjectSpecification, key string) (interface{}, error) {
	if err := persistence.CheckEntity(s); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.byKey[s.LogicalTypeName()][key]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", persistence.ErrNotFound, s.LogicalTypeName(), key)
	}
	return r.pojo, nil
}

// Delete detaches pojo
func (m *Session) Delete(_ context.Context, s *spec.ObjectSpecification, pojo interface{}) error {
	if !s.IsInstance(pojo) {
		return fmt.Errorf("%w: %T", persistence.ErrNotPersistent, pojo)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byPojo[pojo]
	if !ok || r.logicalType != s.LogicalTypeName() {
		return fmt.Errorf("%w: %T", persistence.ErrNotPersistent, pojo)
	}
	delete(m.byPojo, pojo)
	delete(m.byKey[r.logicalType], r.key)
	return nil
}

// AllInstances returns the stored pojos of s ordered by key
func (m *Session) AllInstances(_ context.Context, s *spec.ObjectSpecification) ([]interface{}, error) {
	if err := persistence.CheckEntity(s); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.byKey[s.LogicalTypeName()]
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	persistence.SortKeys(keys)

	result := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		result = append(result, records[key].pojo)
	}
	return result, nil
}
