package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a problem report with optional suggestions and follow-up commands
//
// Example output:
//
//	❌ TYPE NOT FOUND: petclinic.Ownr
//
//	   Did you mean: petclinic.Owner, petclinic.Owners?
//
//	   → List all types: causeway introspect types
type Message struct {
	Level        Level
	Context      string
	Problem      string
	Details      []string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// String formats the message
func (m Message) String() string {
	var b strings.Builder

	var header *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, symbol = paint(m.NoColor, color.FgYellow, color.Bold), "⚠"
	case LevelInfo:
		header, symbol = paint(m.NoColor, color.FgCyan, color.Bold), "ℹ"
	default:
		header, symbol = paint(m.NoColor, color.FgRed, color.Bold), "❌"
	}

	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}

	if len(m.Details) > 0 {
		b.WriteString("\n")
		for _, d := range m.Details {
			fmt.Fprintf(&b, "   %s\n", d)
		}
	}
	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		paint(m.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := paint(m.NoColor, color.FgCyan)
		for _, cmd := range m.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// Write prints the message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.String())
}

// Success formats a green confirmation line
func Success(message string, noColor bool) string {
	return paint(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// TypeNotFound reports an unknown logical type name, suggesting loaded names close to it
func TypeNotFound(name string, loaded []string, noColor bool) Message {
	return Message{
		Context:      "type not found",
		Problem:      name,
		Suggestions:  Suggest(name, loaded),
		HelpCommands: []string{"List all types: causeway introspect types"},
		NoColor:      noColor,
	}
}

// MemberNotFound reports an unknown member id of a type
func MemberNotFound(typeName, id string, members []string, noColor bool) Message {
	return Message{
		Context:      "member not found",
		Problem:      typeName + "#" + id,
		Suggestions:  Suggest(id, members),
		HelpCommands: []string{"List the members: causeway introspect type " + typeName},
		NoColor:      noColor,
	}
}

// MetamodelInvalid reports metamodel validation failures, one per detail line
func MetamodelInvalid(failures []string, noColor bool) Message {
	return Message{
		Context: "metamodel invalid",
		Problem: fmt.Sprintf("%d validation failure(s)", len(failures)),
		Details: failures,
		HelpCommands: []string{
			"Inspect a type: causeway introspect type <name>",
			"Inspect facet rankings: causeway introspect facets <name> <member>",
		},
		NoColor: noColor,
	}
}

// ConfigInvalid reports a configuration problem
func ConfigInvalid(err error, noColor bool) Message {
	return Message{
		Context:      "configuration error",
		Problem:      err.Error(),
		HelpCommands: []string{"View config: cat causeway.yaml", "Get help: causeway --help"},
		NoColor:      noColor,
	}
}
