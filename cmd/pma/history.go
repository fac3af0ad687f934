package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pma/internal/storage"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List previous analysis runs",
	Long: `List analysis runs recorded in .pma/pma.db, newest first, or show one
run's summary when a run ID is given.

Examples:
  pma history
  pma history --limit 5
  pma history 0b5c7e9e-5d3a-4a8e-9d64-3f0a8f1c2b7d --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum runs to list (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := envForRoot(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	store, err := env.openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = newContext()
	}
	w := cmd.OutOrStdout()

	if len(args) == 1 {
		rec, err := store.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		if historyJSON {
			return writeJSON(w, rec)
		}
		printRun(cmd, rec)
		return nil
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		if runs == nil {
			runs = []storage.RunRecord{}
		}
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Started", "Range", "Platform", "Files", "Issues", "Critical", "Hours"})
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		if r.Cancelled {
			id += "*"
		}
		t.AppendRow(table.Row{
			id,
			humanize.Time(r.StartedAt),
			r.From + " -> " + r.To,
			r.Platform,
			r.Files,
			r.Issues,
			r.Critical,
			fmt.Sprintf("%.1f", r.EffortHours),
		})
	}
	t.Render()
	return nil
}

func printRun(cmd *cobra.Command, r *storage.RunRecord) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:       %s\n", r.ID)
	fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "Duration:  %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Range:     PHP %s -> %s\n", r.From, r.To)
	if r.Platform != "" {
		fmt.Fprintf(w, "Platform:  %s\n", r.Platform)
	}
	fmt.Fprintf(w, "Files:     %d scanned, %d with issues\n", r.Summary.FilesScanned, r.Summary.FilesWithIssues)
	fmt.Fprintf(w, "Issues:    %d\n", r.Issues)
	for _, line := range r.Summary.EffortBreakdown {
		fmt.Fprintf(w, "  %-9s %4d  %6.1fh\n", line.Severity, line.Count, line.Hours)
	}
	fmt.Fprintf(w, "Effort:    %.1f hours\n", r.EffortHours)
	if r.Cancelled {
		fmt.Fprintln(w, "Status:    cancelled (partial results)")
	}
}
