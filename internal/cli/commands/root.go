package commands

import (
	"context"
	"errors"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/app"
	"github.com/causeway-lang/causeway/internal/cli/config"
	"github.com/causeway-lang/causeway/internal/cli/ui"
	"github.com/causeway-lang/causeway/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errReported is returned once a command has already printed its own diagnosis
var errReported = errors.New("command failed")

// options are the persistent flags shared by every subcommand
type options struct {
	configFile string
	noColor    bool
	logLevel   string
	domain     app.Domain
}

// NewRootCommand creates the root command serving the petclinic domain
func NewRootCommand() *cobra.Command {
	return newRootCommand(app.Petclinic)
}

func newRootCommand(domain app.Domain) *cobra.Command {
	return newRootCommandWith(domain, surveyPrompter{})
}

func newRootCommandWith(domain app.Domain, p prompter) *cobra.Command {
	opts := &options{domain: domain}

	rootCmd := &cobra.Command{
		Use:   "causeway",
		Short: "Metamodel introspection and REST viewer for domain objects",
		Long: color.CyanString(`Causeway - domain-driven metamodel runtime

Causeway builds a metamodel of your domain types from their annotations, layout
files and translations, then lets you inspect it and serve it over REST.

Features:
  • Facet rankings: annotations, layouts and domain events by precedence
  • Consent evaluation: who sees and edits which member, where
  • Mementos: stable handles for beans, entities and view models
  • Hot layout reload over a websocket`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: causeway.yaml in the working directory)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newIntrospectCommand(opts))
	rootCmd.AddCommand(newValidateCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newExploreCommand(opts, p))
	rootCmd.AddCommand(newTokenCommand(opts))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the causeway version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			titleColor.Fprint(out, "Causeway version: ")
			valueColor.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			valueColor.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			valueColor.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			valueColor.Fprintln(out, goVer)
		},
	}
}

// loadConfig reads the configuration and applies the flag overrides
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		ui.ConfigInvalid(err, o.noColor).Write(cmd.ErrOrStderr())
		return nil, errReported
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
		if err := config.Validate(cfg); err != nil {
			ui.ConfigInvalid(err, o.noColor).Write(cmd.ErrOrStderr())
			return nil, errReported
		}
	}
	return cfg, nil
}

// loadApp builds the app for cfg; the caller closes it
func (o *options) loadApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger, o.domain)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// withApp loads the config and the app, runs fn and releases the app
func (o *options) withApp(cmd *cobra.Command, adjust func(*config.Config), fn func(*app.App) error) error {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(cfg)
	}
	a, err := o.loadApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger.Warn("failed to release resources", zap.Error(err))
		}
		_ = a.Logger.Sync()
	}()
	return fn(a)
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
