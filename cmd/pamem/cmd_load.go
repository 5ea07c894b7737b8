package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/pamem/internal/store"
	"github.com/spf13/cobra"
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Import a JSONL graph into the semantic store",
		Long: `Import nodes and links from JSONL files into the SQLite store.

Each node line is a record such as
  {"id":"n1","label":"apple","tags":["scene"],"weight":0.8}
and each link line names its endpoints by id or label:
  {"source":"banana","sink":"apple","category":"content"}

Nodes are imported before links so links may refer to labels from the
same run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodesPath, _ := cmd.Flags().GetString("nodes")
			linksPath, _ := cmd.Flags().GetString("links")
			jsonOut, _ := cmd.Flags().GetBool("json")
			if nodesPath == "" && linksPath == "" {
				return fmt.Errorf("at least one of --nodes or --links is required")
			}

			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			im := store.NewImporter(s, logger)
			var stats store.ImportStats
			if nodesPath != "" {
				if err := im.ImportNodes(ctx, nodesPath, &stats); err != nil {
					return err
				}
			}
			if linksPath != "" {
				if err := im.ImportLinks(ctx, linksPath, &stats); err != nil {
					return err
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes and %d links", stats.Nodes, stats.Links)
			if stats.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d malformed lines skipped)", stats.Skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().String("nodes", "", "JSONL file of node records")
	cmd.Flags().String("links", "", "JSONL file of link records")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the semantic store as JSONL node and link files",
		RunE: func(cmd *cobra.Command, args []string) error {
			nodesPath, _ := cmd.Flags().GetString("nodes")
			linksPath, _ := cmd.Flags().GetString("links")
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			d, ok := s.(store.Dumper)
			if !ok {
				return fmt.Errorf("store does not support export")
			}
			if err := store.ExportJSONL(cmd.Context(), d, nodesPath, linksPath); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"nodes": nodesPath,
					"links": linksPath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s and %s\n", nodesPath, linksPath)
			return nil
		},
	}
	cmd.Flags().String("nodes", "nodes.jsonl", "Output file for node records")
	cmd.Flags().String("links", "links.jsonl", "Output file for link records")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the semantic store for dangling links and missing roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, err := openStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			d, ok := s.(store.Dumper)
			if !ok {
				return fmt.Errorf("store does not support validation")
			}
			issues, err := store.Validate(cmd.Context(), d)
			if err != nil {
				return err
			}

			if jsonOut {
				if issues == nil {
					issues = []store.ValidationError{}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"valid":  len(issues) == 0,
					"issues": issues,
				})
			}
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", issue)
			}
			return fmt.Errorf("found %d issue(s)", len(issues))
		},
	}
}
