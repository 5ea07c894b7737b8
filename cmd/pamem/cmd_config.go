package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/pamem/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration pamem runs with after layering defaults,
~/.pamem/config.yaml, <root>/.pamem/config.yaml and PAMEM_* environment
variables.

Examples:
  pamem config
  pamem config --json
  pamem config validate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration for invalid values",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			verr := cfg.Validate()
			_, _, bad := config.ParsePerceptMappings(cfg.Propagation.PerceptMappings)

			if jsonOut {
				out := map[string]any{"valid": verr == nil && len(bad) == 0}
				if verr != nil {
					out["error"] = verr.Error()
				}
				if len(bad) > 0 {
					out["bad_percept_mappings"] = bad
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			for _, b := range bad {
				fmt.Fprintf(cmd.OutOrStdout(), "ignored percept mapping: %q\n", b)
			}
			if verr != nil {
				return verr
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}
}
