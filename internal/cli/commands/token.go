package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/causeway-lang/causeway/internal/viewer/rest"
)

func newTokenCommand(opts *options) *cobra.Command {
	var (
		user  string
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the REST viewer",
		Long:  "Sign a token with server.jwt_secret naming a user and the roles consent checks see.",
		Example: `  causeway token --user jane --role front-desk
  curl -H "Authorization: Bearer $(causeway token --user jane --role front-desk)" localhost:8080/services`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := rest.NewAuthenticator(cfg.Server.JWTSecret, ttl).GenerateToken(user, roles)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User the token is issued to")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role of the user; repeat or separate with commas")
	cmd.Flags().DurationVar(&ttl, "ttl", rest.DefaultTokenTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
