package main

import (
	"fmt"
	"path/filepath"

	"github.com/nvandessel/pamem/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the memory over MCP on stdio",
		Long: `Run an MCP server on stdin/stdout exposing the pam_excite, pam_buffer
and pam_node tools and a pam://buffers/{name} resource. Tool calls are
rate limited per tool and recorded in .pamem/audit.jsonl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "pamem",
				Version: version,
				Root:    absRoot,
				Pam:     cfg,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			return server.Run(cmd.Context())
		},
	}
}
