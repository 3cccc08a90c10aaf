package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/app"
	"github.com/causeway-lang/causeway/internal/cli/ui"
	"github.com/causeway-lang/causeway/internal/metamodel/introspect"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type introspectOptions struct {
	*options
	format string
	locale string
}

func newIntrospectCommand(opts *options) *cobra.Command {
	o := &introspectOptions{options: opts}

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Inspect the metamodel",
		Long: `Inspect the metamodel built from the registered domain types.

The introspect command lists specifications, describes their members and shows
how facets of each type are ranked. The facet marked with a star is the one
consulted at runtime; the others stay in the ranking and take over when a
higher precedence facet is removed, for example when a layout file is deleted.`,
		Example: `  # List all types
  causeway introspect types

  # Describe a type with its facets
  causeway introspect type petclinic.Owner --facets

  # Show the facet ranking of a member in German
  causeway introspect facets petclinic.Owner lastName --locale de

  # Output JSON for tooling
  causeway introspect types --format json`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if o.format != formatTable && o.format != formatJSON {
				return fmt.Errorf("unknown format %q: use table or json", o.format)
			}
			if o.locale != "" {
				if _, err := language.Parse(o.locale); err != nil {
					return fmt.Errorf("invalid locale %q: %w", o.locale, err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&o.format, "format", formatTable, "Output format: table or json")
	cmd.PersistentFlags().StringVar(&o.locale, "locale", "", "Render names in this locale (default: metamodel.locale)")

	cmd.AddCommand(newIntrospectTypesCommand(o))
	cmd.AddCommand(newIntrospectTypeCommand(o))
	cmd.AddCommand(newIntrospectFacetsCommand(o))
	return cmd
}

func (o *introspectOptions) tag(a *app.App) language.Tag {
	if o.locale == "" {
		return a.Config.Metamodel.Tag()
	}
	return language.Make(o.locale)
}

func newIntrospectTypesCommand(o *introspectOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List all specifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, nil, func(a *app.App) error {
				types := introspect.SummarizeAll(a.Loader.AllSpecifications(), o.tag(a))
				if o.format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), types)
				}
				renderTypes(cmd.OutOrStdout(), types, o.noColor)
				return nil
			})
		},
	}
}

func renderTypes(w io.Writer, types []introspect.TypeSummary, noColor bool) {
	table := ui.NewTable(w, []string{"TYPE", "SORT", "NAME", "PROPS", "COLLS", "ACTIONS"}, noColor)
	for _, t := range types {
		table.AddRow(t.LogicalType, t.Sort, t.Name, strconv.Itoa(t.Properties), strconv.Itoa(t.Collections), strconv.Itoa(t.Actions))
	}
	table.Render()
	fmt.Fprintf(w, "\n%d type(s)\n", len(types))
}

func newIntrospectTypeCommand(o *introspectOptions) *cobra.Command {
	var withFacets bool
	cmd := &cobra.Command{
		Use:   "type <name>",
		Short: "Describe a specification and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, nil, func(a *app.App) error {
				s, err := o.lookup(cmd, a, args[0])
				if err != nil {
					return err
				}
				detail := introspect.Describe(s, o.tag(a), withFacets)
				if o.format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), detail)
				}
				renderType(cmd.OutOrStdout(), detail, o.noColor)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withFacets, "facets", false, "Include the facet rankings of the type and its members")
	return cmd
}

func renderType(w io.Writer, d introspect.TypeDetail, noColor bool) {
	ui.Header(w, d.LogicalType, noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("Name", d.Name)
	kv.AddRow("Sort", d.Sort)
	kv.AddRow("Go type", d.GoType)
	kv.AddRow("Description", d.Description)
	kv.AddRow("Superclass", d.Superclass)
	kv.Render()

	fmt.Fprintln(w)
	members := ui.NewTable(w, []string{"ID", "KIND", "NAME", "TYPE"}, noColor)
	for _, m := range d.Members {
		typ := m.Type
		if len(m.Parameters) > 0 {
			params := make([]string, len(m.Parameters))
			for i, p := range m.Parameters {
				params[i] = p.Name + " " + p.Type
				if !p.Mandatory {
					params[i] += "?"
				}
			}
			typ = "(" + strings.Join(params, ", ") + ") " + typ
		}
		members.AddRow(m.ID, m.Kind, m.Name, typ)
	}
	members.Render()

	if len(d.Facets) > 0 {
		fmt.Fprintln(w)
		ui.Header(w, "Type facets", noColor)
		renderFacets(w, d.Facets, noColor)
	}
	for _, m := range d.Members {
		if len(m.Facets) == 0 {
			continue
		}
		fmt.Fprintln(w)
		ui.Header(w, d.LogicalType+"#"+m.ID, noColor)
		renderFacets(w, m.Facets, noColor)
	}
}

func renderFacets(w io.Writer, facets []introspect.FacetDetail, noColor bool) {
	table := ui.NewTable(w, []string{"", "FACET", "PRECEDENCE", "ATTRIBUTES"}, noColor)
	for _, f := range facets {
		table.AddRow(ui.Winner(f.Winner, noColor), f.Type, f.Precedence, formatAttributes(f.Attributes))
	}
	table.Render()
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}

func newIntrospectFacetsCommand(o *introspectOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "facets <name> <member>",
		Short: "Show the facet ranking of a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, nil, func(a *app.App) error {
				s, err := o.lookup(cmd, a, args[0])
				if err != nil {
					return err
				}
				m, ok := s.Member(args[1])
				if !ok {
					ui.MemberNotFound(s.LogicalTypeName(), args[1], memberIDs(s), o.noColor).Write(cmd.ErrOrStderr())
					return errReported
				}
				details := introspect.Facets(m)
				if o.format == formatJSON {
					return writeJSON(cmd.OutOrStdout(), details)
				}
				ui.Header(cmd.OutOrStdout(), s.LogicalTypeName()+"#"+m.ID(), o.noColor)
				renderFacets(cmd.OutOrStdout(), details, o.noColor)
				return nil
			})
		},
	}
}

// lookup finds a specification, reporting close names when there is none
func (o *options) lookup(cmd *cobra.Command, a *app.App, name string) (*spec.ObjectSpecification, error) {
	if s, ok := a.Loader.LookupByName(name); ok {
		return s, nil
	}
	var loaded []string
	for _, s := range a.Loader.AllSpecifications() {
		loaded = append(loaded, s.LogicalTypeName())
	}
	ui.TypeNotFound(name, loaded, o.noColor).Write(cmd.ErrOrStderr())
	return nil, errReported
}

func memberIDs(s *spec.ObjectSpecification) []string {
	var ids []string
	for _, m := range s.Members() {
		ids = append(ids, m.ID())
	}
	return ids
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
