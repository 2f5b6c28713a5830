package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/jarcompare/internal/history"
	"github.com/harrison/jarcompare/internal/models"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded scans",
		Long: `Show scans recorded in the history database.

Runs are only recorded when history is enabled, either with --history on a
scan or with history.enabled in the config file.

Examples:
  jarcompare history                 # List the 20 most recent runs
  jarcompare history --limit 5       # List the 5 most recent runs
  jarcompare history --run 2f0c6b1e  # Show the duplicates found by one run
  jarcompare history --top 10        # Libraries flagged most often`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .jarcompare/config.yaml)")
	cmd.Flags().String("db", "", "History database path (overrides config)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")
	cmd.Flags().String("run", "", "Show the duplicates of one run (full ID or unambiguous prefix)")
	cmd.Flags().Int("top", 0, "Show the N libraries flagged most often")

	return cmd
}

// runHistory executes the history command
func runHistory(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db") {
		dbPath, _ := cmd.Flags().GetString("db")
		cfg.History.DBPath = dbPath
	}

	dbPath, err := cfg.HistoryPath()
	if err != nil {
		return fmt.Errorf("failed to get history database path: %w", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(output, "No run history found\n")
		fmt.Fprintf(output, "Database path: %s\n", dbPath)
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		run, dups, err := store.GetRun(ctx, runID)
		if errors.Is(err, history.ErrRunNotFound) {
			return fmt.Errorf("no run with id %q", runID)
		}
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		printRun(output, run, dups)
		return nil
	}

	if top, _ := cmd.Flags().GetInt("top"); top > 0 {
		counts, err := store.BaseNameCounts(ctx, top)
		if err != nil {
			return fmt.Errorf("get library counts: %w", err)
		}
		printBaseNameCounts(output, counts)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	printRuns(output, runs)
	return nil
}

func shortID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

func printRuns(w io.Writer, runs []*history.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded\n")
		return
	}

	bold := color.New(color.Bold)
	bold.Fprintf(w, "%-8s  %-19s  %-8s  %7s  %10s  %s\n", "RUN", "STARTED", "MODE", "SCANNED", "DUPLICATES", "DIRECTORY")
	for _, r := range runs {
		fmt.Fprintf(w, "%-8s  %-19s  %-8s  %7d  %10d  %s\n",
			shortID(r.RunID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Mode,
			r.Scanned,
			r.DuplicateCount,
			r.Dir,
		)
	}
}

func printRun(w io.Writer, run *history.RunRecord, dups []models.DuplicateRecord) {
	fmt.Fprintf(w, "Run:        %s\n", run.RunID)
	fmt.Fprintf(w, "Directory:  %s\n", run.Dir)
	fmt.Fprintf(w, "Extension:  %s\n", run.Extension)
	fmt.Fprintf(w, "Mode:       %s\n", run.Mode)
	fmt.Fprintf(w, "Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:   %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Scanned:    %d\n", run.Scanned)
	if run.WriteFailures > 0 {
		fmt.Fprintf(w, "Log errors: %d\n", run.WriteFailures)
	}

	if len(dups) == 0 {
		fmt.Fprintf(w, "\nNo duplicated library detected\n")
		return
	}

	fmt.Fprintf(w, "\nDuplicates (%d):\n", len(dups))
	for i, d := range dups {
		fmt.Fprintf(w, "  %d. %s (library %s, previous %s)\n", i+1, d.File, d.BaseName, d.Previous)
	}
}

func printBaseNameCounts(w io.Writer, counts []history.BaseNameCount) {
	if len(counts) == 0 {
		fmt.Fprintf(w, "No duplicated library recorded\n")
		return
	}

	bold := color.New(color.Bold)
	bold.Fprintf(w, "%-40s  %s\n", "LIBRARY", "TIMES FLAGGED")
	for _, c := range counts {
		fmt.Fprintf(w, "%-40s  %d\n", c.BaseName, c.Count)
	}
}
