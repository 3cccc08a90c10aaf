package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/app"
	"github.com/causeway-lang/causeway/internal/cli/config"
	"github.com/causeway-lang/causeway/internal/viewer/rest"
)

type serveOptions struct {
	host  string
	port  int
	watch bool
}

func newServeCommand(opts *options) *cobra.Command {
	var so serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST viewer",
		Long: `Build the metamodel and serve it over REST until interrupted.

With --watch, layout files are reloaded as they change and websocket clients
connected to /live are told which types were refreshed.`,
		Example: `  # Serve on the configured address
  causeway serve

  # Serve on another port and reload layouts on change
  causeway serve --port 9090 --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adjust := func(cfg *config.Config) {
				if cmd.Flags().Changed("host") {
					cfg.Server.Host = so.host
				}
				if cmd.Flags().Changed("port") {
					cfg.Server.Port = so.port
				}
				if cmd.Flags().Changed("watch") {
					cfg.Metamodel.WatchLayouts = so.watch
				}
			}
			return opts.withApp(cmd, adjust, func(a *app.App) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, a)
			})
		},
	}
	cmd.Flags().StringVar(&so.host, "host", "", "Override server.host")
	cmd.Flags().IntVar(&so.port, "port", 0, "Override server.port")
	cmd.Flags().BoolVar(&so.watch, "watch", false, "Reload layouts when their files change")
	return cmd
}

// serve runs the REST viewer of a until ctx is done
func serve(ctx context.Context, a *app.App) error {
	server := rest.New(a, rest.ConfigFrom(a))
	if a.Config.Metamodel.WatchLayouts {
		_, err := a.WatchLayouts(func(types []string, err error) {
			if len(types) > 0 {
				server.Hub().NotifyRefreshed(types)
			}
			if err != nil {
				server.Hub().NotifyError(err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to watch layouts: %w", err)
		}
	}
	a.Logger.Info("serving", zap.String("addr", a.Config.Server.Addr()), zap.Bool("watch", a.Config.Metamodel.WatchLayouts))
	return server.ListenAndServe(ctx)
}
