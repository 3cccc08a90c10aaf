package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/causeway-lang/causeway/internal/app"
	"github.com/causeway-lang/causeway/internal/cli/config"
	"github.com/causeway-lang/causeway/internal/cli/ui"
)

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Build the metamodel and report every validation failure",
		Long: `Build the metamodel, apply layouts and translations, and run the validators.

Unlike serve, validate does not stop at the first invalid type: every failure
is collected and listed. The command exits non-zero when there is any.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keepGoing := func(cfg *config.Config) { cfg.Metamodel.ValidateOnStartup = false }
			return opts.withApp(cmd, keepGoing, func(a *app.App) error {
				failures := a.Loader.Failures()
				if len(failures) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Success(
						fmt.Sprintf("metamodel is valid: %d specification(s)", len(a.Loader.AllSpecifications())), opts.noColor))
					return nil
				}
				lines := make([]string, len(failures))
				for i, f := range failures {
					lines[i] = f.String()
				}
				ui.MetamodelInvalid(lines, opts.noColor).Write(cmd.ErrOrStderr())
				return errReported
			})
		},
	}
}
