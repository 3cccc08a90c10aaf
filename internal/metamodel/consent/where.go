package consent

import (
	"fmt"
	"strings"
)

// Where is the rendering location an interaction is evaluated for
type Where int

const (
	// WhereNotSpecified means the location was not declared
	WhereNotSpecified Where = iota
	// WhereEverywhere includes every location
	WhereEverywhere
	// WhereAnywhere is a synonym of WhereEverywhere
	WhereAnywhere
	// WhereObjectForms is the object's own page
	WhereObjectForms
	// WhereReferencesParent is a reference back to the parent in a parented table
	WhereReferencesParent
	// WhereParentedTables is a table of a parent's collection
	WhereParentedTables
	// WhereStandaloneTables is a table returned by an action
	WhereStandaloneTables
	// WhereAllTables is any table
	WhereAllTables
	// WhereAllExceptStandaloneTables is everywhere but standalone tables
	WhereAllExceptStandaloneTables
	// WhereNowhere includes no location
	WhereNowhere
)

var whereNames = map[Where]string{
	WhereNotSpecified:              "NOT_SPECIFIED",
	WhereEverywhere:                "EVERYWHERE",
	WhereAnywhere:                  "ANYWHERE",
	WhereObjectForms:               "OBJECT_FORMS",
	WhereReferencesParent:          "REFERENCES_PARENT",
	WhereParentedTables:            "PARENTED_TABLES",
	WhereStandaloneTables:          "STANDALONE_TABLES",
	WhereAllTables:                 "ALL_TABLES",
	WhereAllExceptStandaloneTables: "ALL_EXCEPT_STANDALONE_TABLES",
	WhereNowhere:                   "NOWHERE",
}

// String returns the string representation of where
func (w Where) String() string {
	if name, ok := whereNames[w]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseWhere converts a name (case-insensitive, '-' or '_' separated) to a Where
func ParseWhere(s string) (Where, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for w, name := range whereNames {
		if name == norm {
			return w, nil
		}
	}
	return WhereNotSpecified, fmt.Errorf("unknown where: %s", s)
}

// Includes reports whether a facet scoped to w applies when rendering in context
func (w Where) Includes(context Where) bool {
	switch w {
	case WhereEverywhere, WhereAnywhere:
		return true
	case WhereObjectForms, WhereReferencesParent, WhereParentedTables, WhereStandaloneTables:
		return context == w
	case WhereAllTables:
		return context == w || WhereParentedTables.Includes(context) || WhereStandaloneTables.Includes(context)
	case WhereAllExceptStandaloneTables:
		return context != WhereStandaloneTables
	default:
		return false
	}
}

// InTable is true for table contexts
func (w Where) InTable() bool {
	return WhereAllTables.Includes(w)
}

// When is the temporal policy of a hidden or disabled facet
type When int

const (
	// WhenAlways applies regardless of persistence state
	WhenAlways When = iota
	// WhenNever never applies
	WhenNever
	// WhenUntilPersisted applies while the target is transient
	WhenUntilPersisted
	// WhenOncePersisted applies once the target is persistent
	WhenOncePersisted
)

var whenNames = map[When]string{
	WhenAlways:         "ALWAYS",
	WhenNever:          "NEVER",
	WhenUntilPersisted: "UNTIL_PERSISTED",
	WhenOncePersisted:  "ONCE_PERSISTED",
}

// String returns the string representation of when
func (w When) String() string {
	if name, ok := whenNames[w]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseWhen converts a name to a When
func ParseWhen(s string) (When, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for w, name := range whenNames {
		if name == norm {
			return w, nil
		}
	}
	return WhenAlways, fmt.Errorf("unknown when: %s", s)
}
