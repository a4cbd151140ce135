package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa"
	"github.com/aretw0/youvisa/internal/cli"
	"github.com/aretw0/youvisa/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the task overview to MCP clients",
	Long: `Starts a read-only Model Context Protocol server over the task store.
By default it talks over stdio; --sse serves it over HTTP instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg, debugFlag(cmd))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, closeStore, err := cli.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		sessionDir, _ := cmd.Flags().GetString("session-dir")
		sessions, closeSessions, err := cli.OpenSessions(ctx, cfg, logger, sessionDir)
		if err != nil {
			return err
		}
		defer closeSessions()

		srv := mcp.NewServer(store, sessions, youvisa.Version, logger)

		sseAddr, _ := cmd.Flags().GetString("sse")
		if sseAddr == "" {
			return srv.ServeStdio()
		}
		baseURL, _ := cmd.Flags().GetString("base-url")
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost%s", sseAddr)
		}
		return srv.ServeSSE(ctx, sseAddr, baseURL)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("sse", "", "Serve over SSE on this address (e.g. :8081) instead of stdio")
	mcpCmd.Flags().String("base-url", "", "Public base URL announced to SSE clients")
	mcpCmd.Flags().String("session-dir", "", "Read conversation steps from this session directory")
}
