package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrDuplicate is returned when a type or logical name is registered twice
var ErrDuplicate = errors.New("already registered")

// Registry manages all domain type schemas of the application
type Registry struct {
	byType map[reflect.Type]*TypeSchema
	byName map[string]*TypeSchema
	order  []*TypeSchema
	mu     sync.RWMutex
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*TypeSchema),
		byName: make(map[string]*TypeSchema),
	}
}

// Register adds a schema; both its Go type and logical name must be unused
func (r *Registry) Register(s *TypeSchema) error {
	if s == nil {
		return fmt.Errorf("cannot register nil schema")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.byType[s.GoType]; exists {
		return fmt.Errorf("type %s %w as %s", s.GoType, ErrDuplicate, existing.LogicalName)
	}
	if existing, exists := r.byName[s.LogicalName]; exists {
		return fmt.Errorf("logical name %s %w for %s", s.LogicalName, ErrDuplicate, existing.GoType)
	}

	r.byType[s.GoType] = s
	r.byName[s.LogicalName] = s
	r.order = append(r.order, s)
	return nil
}

// Lookup retrieves the schema registered for t
func (r *Registry) Lookup(t reflect.Type) (*TypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.byType[t]
	return s, exists
}

// LookupName retrieves the schema registered under a logical name
func (r *Registry) LookupName(name string) (*TypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.byName[name]
	return s, exists
}

// All returns the schemas in registration order
func (r *Registry) All() []*TypeSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*TypeSchema, len(r.order))
	copy(result, r.order)
	return result
}

// Names returns the sorted logical names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Exists checks if a logical name is registered
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.byName[name]
	return exists
}

// Clear removes all registered schemas (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byType = make(map[reflect.Type]*TypeSchema)
	r.byName = make(map[string]*TypeSchema)
	r.order = nil
}
