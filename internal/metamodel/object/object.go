// Package object defines the minimal view of a managed domain object that consent checks rely on
package object

// State is the persistence state of a managed object
type State int

const (
	// StateNotApplicable is used for values, view models, services and collections
	StateNotApplicable State = iota
	// StateTransient is an entity that has not been persisted yet
	StateTransient
	// StatePersistent is an entity attached to the persistence session
	StatePersistent
	// StateDeleted is an entity that was removed from the persistence session
	StateDeleted
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateTransient:
		return "TRANSIENT"
	case StatePersistent:
		return "PERSISTENT"
	case StateDeleted:
		return "DELETED"
	default:
		return "NOT_APPLICABLE"
	}
}

// IsTransient is true for entities not yet persisted
func (s State) IsTransient() bool {
	return s == StateTransient
}

// IsPersistent is true for attached entities
func (s State) IsPersistent() bool {
	return s == StatePersistent
}

// Managed is a domain object together with what the framework knows about it
type Managed interface {
	// Pojo returns the wrapped domain object
	Pojo() interface{}
	// State returns the current persistence state
	State() State
}

// Pojo unwraps m, tolerating nil
func Pojo(m Managed) interface{} {
	if m == nil {
		return nil
	}
	return m.Pojo()
}
