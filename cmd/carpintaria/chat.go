package main

import (
	"github.com/aretw0/carpintaria/internal/cli"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Opens the chat widget in the terminal. Pick options by number, type
/fechar to hide the widget and /sair to quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		jsonMode, _ := cmd.Flags().GetBool("json")
		immediate, _ := cmd.Flags().GetBool("immediate")
		openBrowser, _ := cmd.Flags().GetBool("open")

		signals := runner.NewSignalManager(cmd.Context())
		defer signals.Stop()

		err = cli.RunChat(signals.Context(), cfg, cli.ChatOptions{
			SessionID:   sessionID,
			JSON:        jsonMode,
			Immediate:   immediate,
			OpenBrowser: openBrowser,
			In:          cmd.InOrStdin(),
			Out:         cmd.OutOrStdout(),
		}, logger)
		if err != nil && signals.Interrupted() {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Persist the conversation under this session id")
	chatCmd.Flags().Bool("json", false, "Read and write NDJSON instead of text")
	chatCmd.Flags().Bool("immediate", false, "Skip typing delays")
	chatCmd.Flags().Bool("open", false, "Open links in the system browser")
	chatCmd.Flags().String("chat-graph", "", "Conversation graph file (default: embedded)")
	chatCmd.Flags().String("session-store", "", "Session store: memory, file or redis")
}
