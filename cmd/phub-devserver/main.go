// Command phub-devserver serves an in-memory ProjectHub backend seeded
// with the demo account, for running the client without a real server.
package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tgienger/phub/internal/apitest"
	"github.com/tgienger/phub/internal/logging"
)

func main() {
	var addr, secret string

	cmd := &cobra.Command{
		Use:          "phub-devserver",
		Short:        "Serve a fake ProjectHub GraphQL endpoint",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Logger = logging.New(os.Stderr, zerolog.DebugLevel)

			var opts []apitest.Option
			if secret != "" {
				opts = append(opts, apitest.WithSecret(secret))
			}
			b := apitest.NewBackend(opts...)
			seed := b.SeedDemo()

			log.Info().
				Str("addr", addr).
				Str("user", apitest.DemoUsername).
				Str("organization", seed.Org.Name).
				Msg("listening on /graphql/")
			return http.ListenAndServe(addr, b.Handler())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8000", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing secret (random when empty)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
