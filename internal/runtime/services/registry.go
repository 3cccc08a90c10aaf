// Package services holds the singleton beans of the application, keyed by logical type name.
package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

var (
	// ErrNotBean is returned when registering an instance of a type that is not a singleton bean
	ErrNotBean = errors.New("not a bean")
	// ErrAlreadyRegistered is returned when a bean name is taken
	ErrAlreadyRegistered = errors.New("bean already registered")
)

// Registry maps logical type names to bean instances
type Registry struct {
	mu    sync.RWMutex
	beans map[string]interface{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{beans: make(map[string]interface{})}
}

// Register adds bean as the singleton of s
func (r *Registry) Register(s *spec.ObjectSpecification, bean interface{}) error {
	if !s.BeanSort().IsBean() {
		return fmt.Errorf("%w: %s is a %s", ErrNotBean, s.LogicalTypeName(), s.BeanSort())
	}
	if !s.IsInstance(bean) {
		return fmt.Errorf("%w: %T is not a %s", ErrNotBean, bean, s.LogicalTypeName())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.beans[s.LogicalTypeName()]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, s.LogicalTypeName())
	}
	r.beans[s.LogicalTypeName()] = bean
	return nil
}

// Instantiate creates a bean for every bean specification that has none yet and returns the
// names of the beans it created
func (r *Registry) Instantiate(specs []*spec.ObjectSpecification) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var created []string
	for _, s := range specs {
		if !s.BeanSort().IsBean() || s.IsProgrammatic() {
			continue
		}
		if _, exists := r.beans[s.LogicalTypeName()]; exists {
			continue
		}
		r.beans[s.LogicalTypeName()] = s.NewInstance()
		created = append(created, s.LogicalTypeName())
	}
	sort.Strings(created)
	return created
}

// Lookup returns the bean registered under name
func (r *Registry) Lookup(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bean, ok := r.beans[name]
	return bean, ok
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.beans))
	for name := range r.beans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes every bean
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beans = make(map[string]interface{})
}
