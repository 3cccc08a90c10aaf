// Package feature identifies the elements of the metamodel that carry facets
package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// Type classifies a facet holder
type Type int

const (
	// Object is a domain type as a whole
	Object Type = iota
	// Property is a scalar (one-to-one) association
	Property
	// Collection is a one-to-many association
	Collection
	// Action is an invokable behavior
	Action
	// ActionParameter is one parameter of an action
	ActionParameter
)

// String returns the string representation of the feature type
func (t Type) String() string {
	switch t {
	case Object:
		return "OBJECT"
	case Property:
		return "PROPERTY"
	case Collection:
		return "COLLECTION"
	case Action:
		return "ACTION"
	case ActionParameter:
		return "ACTION_PARAMETER"
	default:
		return "UNKNOWN"
	}
}

// IsMember returns true for properties, collections and actions
func (t Type) IsMember() bool {
	return t == Property || t == Collection || t == Action
}

// IsAssociation returns true for properties and collections
func (t Type) IsAssociation() bool {
	return t == Property || t == Collection
}

// Types is a set of feature types a facet factory applies to
type Types []Type

var (
	// ObjectsOnly applies to domain types
	ObjectsOnly = Types{Object}
	// PropertiesOnly applies to properties
	PropertiesOnly = Types{Property}
	// CollectionsOnly applies to collections
	CollectionsOnly = Types{Collection}
	// ActionsOnly applies to actions
	ActionsOnly = Types{Action}
	// ParametersOnly applies to action parameters
	ParametersOnly = Types{ActionParameter}
	// Members applies to properties, collections and actions
	Members = Types{Property, Collection, Action}
	// PropertiesAndActions applies to properties and actions
	PropertiesAndActions = Types{Property, Action}
	// MembersAndParameters applies to every member and every parameter
	MembersAndParameters = Types{Property, Collection, Action, ActionParameter}
	// Everything applies to all features
	Everything = Types{Object, Property, Collection, Action, ActionParameter}
)

// Contains reports whether t is in the set
func (ts Types) Contains(t Type) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

// Identifier names a feature: a type, a member of a type, or a parameter of an action
type Identifier struct {
	LogicalTypeName string
	MemberID        string
	// ParamIndex is -1 unless the identifier refers to an action parameter
	ParamIndex int
}

// TypeIdentifier identifies a domain type
func TypeIdentifier(logicalTypeName string) Identifier {
	return Identifier{LogicalTypeName: logicalTypeName, ParamIndex: -1}
}

// MemberIdentifier identifies a property, collection or action
func MemberIdentifier(logicalTypeName, memberID string) Identifier {
	return Identifier{LogicalTypeName: logicalTypeName, MemberID: memberID, ParamIndex: -1}
}

// ParameterIdentifier identifies the n-th parameter of an action
func ParameterIdentifier(logicalTypeName, actionID string, n int) Identifier {
	return Identifier{LogicalTypeName: logicalTypeName, MemberID: actionID, ParamIndex: n}
}

// IsType is true when the identifier has no member part
func (id Identifier) IsType() bool {
	return id.MemberID == ""
}

// IsParameter is true when the identifier refers to an action parameter
func (id Identifier) IsParameter() bool {
	return id.MemberID != "" && id.ParamIndex >= 0
}

// Member returns the identifier of the owning member (drops the parameter index)
func (id Identifier) Member() Identifier {
	return MemberIdentifier(id.LogicalTypeName, id.MemberID)
}

// String renders the identifier as "type", "type#member" or "type#action[n]"
func (id Identifier) String() string {
	if id.IsType() {
		return id.LogicalTypeName
	}
	if id.IsParameter() {
		return fmt.Sprintf("%s#%s[%d]", id.LogicalTypeName, id.MemberID, id.ParamIndex)
	}
	return id.LogicalTypeName + "#" + id.MemberID
}

// ParseIdentifier is the inverse of Identifier.String
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, fmt.Errorf("empty identifier")
	}
	typeName, member, hasMember := strings.Cut(s, "#")
	if typeName == "" {
		return Identifier{}, fmt.Errorf("identifier %q has no type name", s)
	}
	if !hasMember {
		return TypeIdentifier(typeName), nil
	}
	if member == "" {
		return Identifier{}, fmt.Errorf("identifier %q has an empty member", s)
	}
	if open := strings.IndexByte(member, '['); open >= 0 {
		if !strings.HasSuffix(member, "]") {
			return Identifier{}, fmt.Errorf("identifier %q has a malformed parameter index", s)
		}
		n, err := strconv.Atoi(member[open+1 : len(member)-1])
		if err != nil || n < 0 {
			return Identifier{}, fmt.Errorf("identifier %q has a malformed parameter index", s)
		}
		return ParameterIdentifier(typeName, member[:open], n), nil
	}
	return MemberIdentifier(typeName, member), nil
}

// TranslationContext is the key used to look up translations for the feature
func (id Identifier) TranslationContext() string {
	return id.Member().String()
}
