// Package oid identifies domain object instances across requests.
package oid

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalid is returned by Parse for malformed oids
var ErrInvalid = errors.New("invalid oid")

// State tells how the key of an oid was obtained
type State byte

const (
	// Transient entities carry a random key until they are persisted
	Transient State = 'T'
	// Persistent entities carry their primary key
	Persistent State = 'P'
	// Value covers values, view models, mixins and collections, all keyed at random
	Value State = 'V'
	// Service beans are keyed by their logical type name alone
	Service State = 'S'
)

func (s State) String() string {
	switch s {
	case Transient:
		return "TRANSIENT"
	case Persistent:
		return "PERSISTENT"
	case Value:
		return "VALUE"
	case Service:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

func (s State) valid() bool {
	switch s {
	case Transient, Persistent, Value, Service:
		return true
	}
	return false
}

// Oid is the identity of one domain object
type Oid struct {
	State       State
	LogicalType string
	Key         string
	// Version is the optimistic locking version of a persistent entity, empty when unknown
	Version string
}

// NewTransient creates an oid with a random key for an entity that is not persisted yet
func NewTransient(logicalType string) Oid {
	return Oid{State: Transient, LogicalType: logicalType, Key: uuid.NewString()}
}

// NewValue creates an oid with a random key for a non-entity
func NewValue(logicalType string) Oid {
	return Oid{State: Value, LogicalType: logicalType, Key: uuid.NewString()}
}

// NewPersistent creates the oid of a persisted entity
func NewPersistent(logicalType, key string) Oid {
	return Oid{State: Persistent, LogicalType: logicalType, Key: key}
}

// ForService creates the oid of a singleton bean
func ForService(logicalType string) Oid {
	return Oid{State: Service, LogicalType: logicalType, Key: logicalType}
}

// WithVersion returns a copy of o carrying version
func (o Oid) WithVersion(version string) Oid {
	o.Version = version
	return o
}

// IsZero reports whether o is the zero oid
func (o Oid) IsZero() bool {
	return o == Oid{}
}

// IsPersistent is true for persisted entities
func (o Oid) IsPersistent() bool { return o.State == Persistent }

// Equal compares state, type and key; versions are ignored
func (o Oid) Equal(other Oid) bool {
	return o.State == other.State && o.LogicalType == other.LogicalType && o.Key == other.Key
}

// String encodes o as <state>:<logical type>:<key>[@<version>], escaping the key and version
func (o Oid) String() string {
	var b strings.Builder
	b.WriteByte(byte(o.State))
	b.WriteByte(':')
	b.WriteString(o.LogicalType)
	b.WriteByte(':')
	b.WriteString(escape(o.Key))
	if o.Version != "" {
		b.WriteByte('@')
		b.WriteString(escape(o.Version))
	}
	return b.String()
}

// escape path-escapes s; '@' is escaped too since it separates the version
func escape(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "@", "%40")
}

// Parse decodes the String form of an oid
func Parse(s string) (Oid, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || len(parts[0]) != 1 || parts[1] == "" || parts[2] == "" {
		return Oid{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	o := Oid{State: State(parts[0][0]), LogicalType: parts[1]}
	if !o.State.valid() {
		return Oid{}, fmt.Errorf("%w: unknown state %q", ErrInvalid, parts[0])
	}

	key, version, _ := strings.Cut(parts[2], "@")
	var err error
	if o.Key, err = url.PathUnescape(key); err != nil || o.Key == "" {
		return Oid{}, fmt.Errorf("%w: bad key in %q", ErrInvalid, s)
	}
	if o.Version, err = url.PathUnescape(version); err != nil {
		return Oid{}, fmt.Errorf("%w: bad version in %q", ErrInvalid, s)
	}
	return o, nil
}
