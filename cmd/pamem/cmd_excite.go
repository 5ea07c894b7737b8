package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/nvandessel/pamem/internal/buffer"
	"github.com/nvandessel/pamem/internal/constants"
	"github.com/nvandessel/pamem/internal/session"
	"github.com/nvandessel/pamem/internal/store"
	"github.com/nvandessel/pamem/internal/visualization"
	"github.com/nvandessel/pamem/internal/world"
	"github.com/spf13/cobra"
)

func newExciteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "excite <label>...",
		Short: "Excite nodes and print the resulting buffer contents",
		Long: `Excite one or more nodes by label, spread activation through the
semantic graph, and print what each buffer holds once the scheduler is
idle or the tick budget is spent.

The run is saved to .pamem/last-run.json; 'pamem last' prints it again.

Examples:
  pamem excite apple
  pamem excite rockFront --agent-x 2 --agent-y 2 --facing east
  pamem excite hunger --buffer goal --buffer sequence --json
  pamem excite apple --format dot | dot -Tsvg > graph.svg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			amount, _ := cmd.Flags().GetFloat64("amount")
			ticks, _ := cmd.Flags().GetInt("ticks")
			bufferNames, _ := cmd.Flags().GetStringSlice("buffer")
			format, _ := cmd.Flags().GetString("format")

			if format != "text" && format != "dot" {
				return fmt.Errorf("--format must be text or dot, got %q", format)
			}
			if amount <= 0 || amount > 1 {
				return fmt.Errorf("--amount must be in (0, 1], got %v", amount)
			}
			names, err := parseBufferNames(bufferNames)
			if err != nil {
				return err
			}
			env, err := gridFromFlags(cmd)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			sess, err := session.Open(session.Options{Root: root, Config: cfg, Env: env, Logger: logger})
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			report, err := sess.Excite(ctx, args, amount, constants.SourceCLI, ticks)
			if err != nil {
				return err
			}
			if len(names) > 0 {
				report.Buffers = sess.Buffers(names...)
			}

			if dir, err := store.EnsureLocalPamemDir(root); err == nil {
				if err := session.SaveReport(report, dir); err != nil {
					logger.Warn("could not save run report", "error", err)
				}
			}

			switch {
			case jsonOut:
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			case format == "dot":
				nodes, links := sess.Resident()
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(nodes, links))
			default:
				printReport(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "text", "Output format when --json is not set: text or dot (Graphviz, resident graph)")
	cmd.Flags().Float64("amount", 1.0, "Excitation amount in (0, 1]")
	cmd.Flags().Int("ticks", constants.DefaultMaxTicks, "Maximum scheduler ticks to run (0 for no limit)")
	cmd.Flags().StringSlice("buffer", nil, "Only print these buffers (repeatable)")
	cmd.Flags().Int("agent-x", -1, "Agent column; negative disables site tagging")
	cmd.Flags().Int("agent-y", 0, "Agent row")
	cmd.Flags().String("facing", "north", "Agent facing: north, east, south, or west")
	cmd.Flags().Int("grid-width", 10, "Environment grid width")
	cmd.Flags().Int("grid-height", 10, "Environment grid height")
	return cmd
}

func newLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Print the report of the last excite run",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")

			report, err := session.LoadReport(store.LocalPamemPath(root))
			if err != nil {
				return err
			}
			if report == nil {
				return fmt.Errorf("no saved run; use 'pamem excite' first")
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}
			printReport(cmd.OutOrStdout(), *report)
			return nil
		},
	}
}

// gridFromFlags builds the agent environment, or nil when --agent-x is
// negative.
func gridFromFlags(cmd *cobra.Command) (world.Environment, error) {
	x, _ := cmd.Flags().GetInt("agent-x")
	if x < 0 {
		return nil, nil
	}
	y, _ := cmd.Flags().GetInt("agent-y")
	facingFlag, _ := cmd.Flags().GetString("facing")
	width, _ := cmd.Flags().GetInt("grid-width")
	height, _ := cmd.Flags().GetInt("grid-height")

	facing, err := world.ParseDirection(facingFlag)
	if err != nil {
		return nil, err
	}
	grid := world.NewGrid(width, height)
	cell := world.Cell{X: x, Y: y}
	if !grid.InBounds(cell) {
		return nil, fmt.Errorf("agent cell %s is outside the %dx%d grid", cell.Key(), width, height)
	}
	grid.Place(cell, facing)
	return grid, nil
}

func parseBufferNames(raw []string) ([]buffer.Name, error) {
	names := make([]buffer.Name, 0, len(raw))
	for _, r := range raw {
		n, ok := buffer.ParseName(r)
		if !ok {
			return nil, fmt.Errorf("unknown buffer %q", r)
		}
		names = append(names, n)
	}
	return names, nil
}

func printReport(w io.Writer, r session.Report) {
	fmt.Fprintf(w, "Excited %v (amount %.2f) over %d tick(s)", r.Labels, r.Amount, r.Ticks)
	if r.Pending > 0 {
		fmt.Fprintf(w, ", %d task(s) pending", r.Pending)
	}
	fmt.Fprintln(w)

	if len(r.Buffers) == 0 {
		fmt.Fprintln(w, "\nNo buffer received anything.")
		return
	}
	for _, c := range r.Buffers {
		fmt.Fprintf(w, "\n[%s] %d node(s), %d link(s)\n", c.Name, len(c.Nodes), len(c.Links))
		for _, n := range c.Nodes {
			fmt.Fprintf(w, "  %-20s act=%.3f inc=%.3f truth=%s", n.Label, n.Activation, n.Incentive, n.Truth)
			if n.Location != "" {
				fmt.Fprintf(w, " at=%s", n.Location)
			}
			fmt.Fprintln(w)
		}
		for _, l := range c.Links {
			fmt.Fprintf(w, "  %s\n", l.Key)
		}
	}
}
