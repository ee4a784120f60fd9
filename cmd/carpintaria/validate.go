package main

import (
	"fmt"

	"github.com/aretw0/carpintaria/internal/cli"
	"github.com/aretw0/carpintaria/internal/validator"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph-file]",
	Short: "Check the conversation graph for consistency",
	Long: `Loads the graph (the embedded one when no file is given) and reports dangling
links, missing action targets and menus without a way back to the entry node.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGraph(cmd, args)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		for _, id := range validator.Unreachable(g) {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: node %q is unreachable from %q\n", id, g.Entry)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Graph is valid! ✅ (%d nodes)\n", len(g.Nodes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// loadGraph builds the engine, which validates the graph on load.
func loadGraph(cmd *cobra.Command, args []string) (*domain.Graph, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Chat.Graph = args[0]
	}
	engine, err := cli.NewEngine(cfg.Chat, domain.LifecycleHooks{}, logger)
	if err != nil {
		return nil, err
	}
	return engine.Graph(), nil
}
