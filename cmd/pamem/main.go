package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nvandessel/pamem/internal/config"
	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/logging"
	"github.com/nvandessel/pamem/internal/store"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pamem",
		Short: "Perceptual associative memory with spreading activation",
		Long: `pamem runs a perceptual associative memory over a semantic graph.

Exciting a node spreads activation along its links, tracks what is
believed real or virtual, and routes nodes and links into downstream
buffers such as the current scene, goals and plan sequences.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newLoadCmd(),
		newExportCmd(),
		newValidateCmd(),
		newExciteCmd(),
		newLastCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "pamem version %s\n", version)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a .pamem directory with default config and an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			scopeFlag, _ := cmd.Flags().GetString("scope")
			jsonOut, _ := cmd.Flags().GetBool("json")

			scope := constants.Scope(scopeFlag)
			if !scope.Valid() {
				return fmt.Errorf("invalid scope %q (must be local, global, or both)", scopeFlag)
			}

			var created []map[string]string
			if scope.Includes(constants.ScopeGlobal) {
				dir, err := store.GlobalPamemPath()
				if err != nil {
					return err
				}
				if err := writeDefaultConfig(dir); err != nil {
					return err
				}
				created = append(created, map[string]string{"scope": "global", "path": dir})
			}
			if scope.Includes(constants.ScopeLocal) {
				dir, err := store.EnsureLocalPamemDir(root)
				if err != nil {
					return err
				}
				if err := writeDefaultConfig(dir); err != nil {
					return err
				}
				db, err := store.NewSQLiteSemanticStore(filepath.Join(dir, store.DBFileName))
				if err != nil {
					return fmt.Errorf("failed to create store: %w", err)
				}
				db.Close()
				created = append(created, map[string]string{"scope": "local", "path": dir})
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status":      "initialized",
					"directories": created,
				})
			}
			for _, c := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s .pamem at %s\n", c["scope"], c["path"])
			}
			return nil
		},
	}
	cmd.Flags().String("scope", string(constants.ScopeLocal), "Directory to initialize: local, global, or both")
	return cmd
}

// writeDefaultConfig writes config.yaml into dir unless one already exists.
func writeDefaultConfig(dir string) error {
	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := config.Default().WriteFile(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// loadConfig loads the effective configuration for root and a logger at the
// configured level writing to stderr.
func loadConfig(cmd *cobra.Command) (*config.PamConfig, *slog.Logger, error) {
	root, _ := cmd.Flags().GetString("root")
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()), nil
}

// openStore opens the configured store for root.
func openStore(cmd *cobra.Command, cfg *config.PamConfig) (store.SemanticStore, error) {
	root, _ := cmd.Flags().GetString("root")
	switch cfg.Store.Backend {
	case constants.BackendMemory:
		return nil, fmt.Errorf("store backend %q does not persist; set store.backend to sqlite", cfg.Store.Backend)
	default:
		s, err := store.NewSQLiteSemanticStore(store.ResolveDBPath(root, cfg.Store.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return s, nil
	}
}
