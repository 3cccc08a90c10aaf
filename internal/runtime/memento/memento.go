// Package memento turns object adapters into strings that survive a UI round-trip and back.
//
// Beans are remembered by type, persistent entities by oid. Everything else is parked in a Store
// under its oid key and only lives as long as the store keeps it.
package memento

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/causeway-lang/causeway/internal/runtime/oid"
)

// ErrInvalid is returned by Parse for strings that are not mementos
var ErrInvalid = errors.New("invalid memento")

// Kind tells how a memento is resolved
type Kind byte

const (
	// KindBean resolves through the bean registry
	KindBean Kind = 'B'
	// KindEntity resolves by fetching the oid from the persistence session
	KindEntity Kind = 'E'
	// KindStored resolves through the memento store
	KindStored Kind = 'S'
)

func (k Kind) String() string {
	switch k {
	case KindBean:
		return "BEAN"
	case KindEntity:
		return "ENTITY"
	case KindStored:
		return "STORED"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// Memento is the serializable stand-in of an adapter
type Memento struct {
	Kind Kind
	Oid  oid.Oid
}

// String encodes m for use in URLs
func (m Memento) String() string {
	return base64.RawURLEncoding.EncodeToString([]byte(string(m.Kind) + "|" + m.Oid.String()))
}

// Parse decodes the String form
func Parse(s string) (Memento, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Memento{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	kind, rest, ok := strings.Cut(string(raw), "|")
	if !ok || len(kind) != 1 {
		return Memento{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	o, err := oid.Parse(rest)
	if err != nil {
		return Memento{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return Memento{Kind: Kind(kind[0]), Oid: o}, nil
}
