// Package layout reads per-type layout files and turns them into HIGH precedence facets.
//
// A layout file is named after the logical type it describes, e.g. petclinic.Owner.layout.xml or
// petclinic.Owner.layout.yaml, and may rename, describe, hide, disable and reorder members. Layout
// facets outrank annotations without discarding them; refreshing a layout swaps only the layout
// facets.
package layout

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/causeway-lang/causeway/internal/metamodel/consent"
)

// ErrNoLayout is returned when a type has no layout file
var ErrNoLayout = errors.New("no layout file")

var suffixes = []string{".layout.xml", ".layout.yaml", ".layout.yml"}

// Layout is the parsed content of one layout file
type Layout struct {
	XMLName     xml.Name `xml:"layout" yaml:"-"`
	Type        string   `xml:"type,attr" yaml:"type"`
	Named       string   `xml:"named,omitempty" yaml:"named,omitempty"`
	DescribedAs string   `xml:"describedAs,omitempty" yaml:"describedAs,omitempty"`
	Members     []Member `xml:"member" yaml:"members"`
}

// Member is the layout of one property, collection or action
type Member struct {
	ID          string `xml:"id,attr" yaml:"id"`
	Named       string `xml:"named,attr,omitempty" yaml:"named,omitempty"`
	DescribedAs string `xml:"describedAs,attr,omitempty" yaml:"describedAs,omitempty"`
	// Hidden is a Where name such as ALL_TABLES; empty means not hidden by the layout
	Hidden string `xml:"hidden,attr,omitempty" yaml:"hidden,omitempty"`
	// When defaults to ALWAYS
	When     string `xml:"when,attr,omitempty" yaml:"when,omitempty"`
	Disabled string `xml:"disabled,attr,omitempty" yaml:"disabled,omitempty"`
	Group    string `xml:"group,attr,omitempty" yaml:"group,omitempty"`
	Sequence string `xml:"sequence,attr,omitempty" yaml:"sequence,omitempty"`
}

// HiddenWhere resolves the Hidden and When attributes
func (m Member) HiddenWhere() (consent.Where, consent.When, bool, error) {
	if m.Hidden == "" {
		return consent.WhereNotSpecified, consent.WhenAlways, false, nil
	}
	where, err := consent.ParseWhere(m.Hidden)
	if err != nil {
		return where, consent.WhenAlways, false, err
	}
	when := consent.WhenAlways
	if m.When != "" {
		if when, err = consent.ParseWhen(m.When); err != nil {
			return where, when, false, err
		}
	}
	return where, when, true, nil
}

// Member returns the layout of id
func (l *Layout) Member(id string) (Member, bool) {
	for _, m := range l.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// ParseXML decodes an XML layout
func ParseXML(data []byte) (*Layout, error) {
	var l Layout
	if err := xml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("invalid layout xml: %w", err)
	}
	return &l, l.check()
}

// ParseYAML decodes a YAML layout
func ParseYAML(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("invalid layout yaml: %w", err)
	}
	return &l, l.check()
}

func (l *Layout) check() error {
	seen := make(map[string]bool, len(l.Members))
	for _, m := range l.Members {
		if m.ID == "" {
			return fmt.Errorf("layout %s: member without id", l.Type)
		}
		if seen[m.ID] {
			return fmt.Errorf("layout %s: member %s laid out twice", l.Type, m.ID)
		}
		seen[m.ID] = true
		if _, _, _, err := m.HiddenWhere(); err != nil {
			return fmt.Errorf("layout %s: member %s: %w", l.Type, m.ID, err)
		}
	}
	return nil
}

// Source finds layout files in a directory
type Source struct {
	Dir string
}

// NewSource creates a source reading from dir
func NewSource(dir string) *Source {
	return &Source{Dir: dir}
}

// Load reads the layout of the logical type name, returning ErrNoLayout when there is none
func (s *Source) Load(logicalName string) (*Layout, error) {
	if s == nil || s.Dir == "" {
		return nil, ErrNoLayout
	}
	for _, suffix := range suffixes {
		path := filepath.Join(s.Dir, logicalName+suffix)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
		}
		l, err := ParseFile(path, data)
		if err != nil {
			return nil, err
		}
		if l.Type == "" {
			l.Type = logicalName
		}
		if l.Type != logicalName {
			return nil, fmt.Errorf("layout %s describes %s, not %s", path, l.Type, logicalName)
		}
		return l, nil
	}
	return nil, ErrNoLayout
}

// ParseFile decodes data according to the extension of path
func ParseFile(path string, data []byte) (*Layout, error) {
	if strings.HasSuffix(path, ".xml") {
		return ParseXML(data)
	}
	return ParseYAML(data)
}

// TypeNameOf returns the logical type name a layout file path refers to
func TypeNameOf(path string) (string, bool) {
	base := filepath.Base(path)
	for _, suffix := range suffixes {
		if strings.HasSuffix(base, suffix) && len(base) > len(suffix) {
			return strings.TrimSuffix(base, suffix), true
		}
	}
	return "", false
}
