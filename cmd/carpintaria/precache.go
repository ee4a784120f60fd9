package main

import (
	"fmt"

	"github.com/aretw0/carpintaria/internal/cli"
	"github.com/spf13/cobra"
)

var precacheCmd = &cobra.Command{
	Use:   "precache",
	Short: "Install the precache manifest into the cache store",
	Long: `Fetches every manifest entry from the origin, stores it as a new cache
generation and evicts all other generations. With the default all-or-nothing
policy a single failed entry aborts the install and nothing is stored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		stores, err := cli.OpenStores(cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		return cli.Precache(cmd.Context(), cfg, stores.Cache, cmd.OutOrStdout(), logger)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge cache generations",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache generations and their entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(cmd)
		if err != nil {
			return err
		}
		defer stores.Close()

		return cli.ListCache(cmd.Context(), stores.Cache, cmd.OutOrStdout())
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [generation...]",
	Short: "Delete the given generations, or all of them",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, err := openStores(cmd)
		if err != nil {
			return err
		}
		defer stores.Close()

		purged, err := cli.PurgeCache(cmd.Context(), stores.Cache, args)
		if err != nil {
			return err
		}
		for _, gen := range purged {
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", gen)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(precacheCmd)
	precacheCmd.Flags().String("server-origin", "", "Origin that relative manifest entries resolve against")
	precacheCmd.Flags().String("cache-manifest", "", "Precache manifest file (default: embedded)")
	precacheCmd.Flags().String("cache-policy", "", "Install policy: all-or-nothing or best-effort")
	precacheCmd.Flags().String("cache-store", "", "Cache store: memory or redis")

	rootCmd.AddCommand(cacheCmd)
	cacheCmd.PersistentFlags().String("cache-store", "", "Cache store: memory or redis")
	cacheCmd.AddCommand(cacheListCmd, cachePurgeCmd)
}
