package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/causeway-lang/causeway/internal/app"
	"github.com/causeway-lang/causeway/internal/cli/ui"
	"github.com/causeway-lang/causeway/internal/metamodel/consent"
	"github.com/causeway-lang/causeway/internal/metamodel/introspect"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
)

// prompter asks the questions of the explore command
type prompter interface {
	Select(message string, options []string) (string, error)
	Input(message, defaultValue string) (string, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Select(message string, options []string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Select{Message: message, Options: options}, &answer)
	return answer, err
}

func (surveyPrompter) Input(message, defaultValue string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message, Default: defaultValue}, &answer)
	return answer, err
}

// placements offered by explore, in the order they are listed
var placements = []consent.Where{
	consent.WhereObjectForms,
	consent.WhereParentedTables,
	consent.WhereStandaloneTables,
	consent.WhereReferencesParent,
}

func newExploreCommand(opts *options, p prompter) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Interactively check who may see and use a member",
		Long: `Pick a type, a member, a user with roles and a placement, then see whether the
member is visible and usable for a fresh instance, together with the facet
ranking that decided it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, nil, func(a *app.App) error {
				return explore(cmd.OutOrStdout(), a, p, opts.noColor)
			})
		},
	}
}

func explore(w io.Writer, a *app.App, p prompter, noColor bool) error {
	var names []string
	for _, s := range a.Loader.AllSpecifications() {
		if len(s.Members()) > 0 {
			names = append(names, s.LogicalTypeName())
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("the metamodel has no type with members")
	}
	typeName, err := p.Select("Type:", names)
	if err != nil {
		return err
	}
	s, ok := a.Loader.LookupByName(typeName)
	if !ok {
		return fmt.Errorf("unknown type %s", typeName)
	}

	memberID, err := p.Select("Member:", memberIDs(s))
	if err != nil {
		return err
	}
	m, ok := s.Member(memberID)
	if !ok {
		return fmt.Errorf("unknown member %s", memberID)
	}

	user, err := p.Input("User (empty for anonymous):", "")
	if err != nil {
		return err
	}
	roles, err := p.Input("Roles (comma separated):", "")
	if err != nil {
		return err
	}
	whereNames := make([]string, len(placements))
	for i, where := range placements {
		whereNames[i] = where.String()
	}
	whereName, err := p.Select("Rendered in:", whereNames)
	if err != nil {
		return err
	}
	where, err := consent.ParseWhere(whereName)
	if err != nil {
		return err
	}

	target, err := a.Objects.NewInstance(typeName)
	if err != nil {
		return err
	}
	in := spec.Interaction{Actor: actor(user, roles), InitiatedBy: consent.InitiatedByUser, Where: where}
	detail := introspect.Consent(m, target, in)

	fmt.Fprintln(w)
	ui.Header(w, s.LogicalTypeName()+"#"+m.ID(), noColor)
	kv := ui.NewKeyValueTable(w, noColor)
	kv.AddRow("User", describeActor(in.Actor))
	kv.AddRow("Rendered in", where.String())
	kv.AddRow("Target", target.State().String())
	kv.AddRow("Visible", ui.Allowed(detail.Visible, detail.HiddenReason, noColor))
	if detail.Visible {
		kv.AddRow("Usable", ui.Allowed(detail.Usable, detail.DisabledReason, noColor))
	}
	kv.Render()

	fmt.Fprintln(w)
	renderFacets(w, introspect.Facets(m), noColor)
	return nil
}

func actor(user, roles string) consent.Actor {
	a := consent.Actor{User: strings.TrimSpace(user)}
	for _, r := range strings.Split(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			a.Roles = append(a.Roles, r)
		}
	}
	return a
}

func describeActor(a consent.Actor) string {
	if a.User == "" {
		return "anonymous"
	}
	if len(a.Roles) == 0 {
		return a.User
	}
	return a.User + " (" + strings.Join(a.Roles, ", ") + ")"
}
