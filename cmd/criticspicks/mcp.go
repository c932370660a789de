package main

import (
	"github.com/spf13/cobra"

	"github.com/vadimtrunov/CriticsPicks/internal/config"
	mcpserver "github.com/vadimtrunov/CriticsPicks/internal/mcp"
)

// newMCPServeCmd returns the "mcp-serve" subcommand. It starts an MCP server
// over stdin/stdout so an assistant can page through the picks with tools.
func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-serve",
		Short: "Start MCP server over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := config.SetupLogger(cfg.App.LogLevel)
			svc, err := initServices(cfg, logger)
			if err != nil {
				return err
			}

			srv := mcpserver.NewServer(svc.newController(), version, logger)
			return srv.ServeStdio(cmd.Context())
		},
	}
}
