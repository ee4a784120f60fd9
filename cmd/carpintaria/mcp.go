package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/carpintaria/internal/cli"
	"github.com/aretw0/carpintaria/pkg/adapters/mcp"
	"github.com/aretw0/carpintaria/pkg/domain"
	"github.com/aretw0/carpintaria/pkg/runner"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the chat assistant as MCP tools so AI agents can drive the menus.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		engine, err := cli.NewEngine(cfg.Chat, domain.LifecycleHooks{}, logger)
		if err != nil {
			return err
		}
		stores, err := cli.OpenStores(cfg)
		if err != nil {
			return err
		}
		defer stores.Close()

		srv := mcp.NewServer(engine,
			mcp.WithSessions(stores.SessionManager(logger)),
			mcp.WithLogger(logger),
		)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting carpintaria MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			signals := runner.NewSignalManager(cmd.Context())
			defer signals.Stop()

			logger.Info("Starting carpintaria MCP server (SSE)", "addr", addr)
			if err := srv.ServeSSE(signals.Context(), addr, baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients")
	mcpCmd.Flags().String("session-store", "", "Session store: memory, file or redis")
}
