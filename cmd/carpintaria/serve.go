package main

import (
	"github.com/aretw0/carpintaria/internal/cli"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the chat API and, when an origin is configured, proxies every other
request to it through the offline cache. The manifest is precached on startup.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		signals := runner.NewSignalManager(cmd.Context())
		defer signals.Stop()

		return cli.Serve(signals.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("server-addr", "", "Address to listen on (default :8080)")
	serveCmd.Flags().String("server-origin", "", "Origin to proxy and precache, e.g. https://example.com")
	serveCmd.Flags().String("cache-manifest", "", "Precache manifest file (default: embedded)")
	serveCmd.Flags().String("cache-store", "", "Cache store: memory or redis")
	serveCmd.Flags().String("session-store", "", "Session store: memory, file or redis")
}
