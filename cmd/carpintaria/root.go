package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/carpintaria/internal/cli"
	"github.com/aretw0/carpintaria/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "carpintaria",
	Short: "Offline-first site proxy and scripted chat assistant",
	Long: `Carpintaria serves a website through an offline cache that keeps pages
available when the origin is down, and hosts the menu-driven chat assistant
over HTTP, MCP or the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./carpintaria.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")
}

// setup loads the configuration for cmd, honoring its flags, and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := cli.NewLogger(os.Stderr, cfg.Log, debug)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
