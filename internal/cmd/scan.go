package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/harrison/jarcompare/internal/config"
	"github.com/harrison/jarcompare/internal/logger"
	"github.com/harrison/jarcompare/internal/orchestrator"
	"github.com/spf13/cobra"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Scan a directory for duplicated libraries",
		Long: `Scan a directory for libraries present in more than one version.

Files are sorted by name and each one is compared with its predecessor after
removing the version suffix (the first "-" followed by a digit, up to the end
of the name). Matches are appended to the run log.

Examples:
  jarcompare scan                       # Scan the current directory
  jarcompare scan /opt/app/lib          # Scan another directory
  jarcompare scan --mode grouped lib/   # Also catch non-adjacent versions
  jarcompare scan --report dups.html    # Write an HTML report
  jarcompare scan --history             # Record the run in the history database`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}

	addScanFlags(cmd)

	return cmd
}

// addScanFlags registers the flags shared by the root and scan commands.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .jarcompare/config.yaml)")
	cmd.Flags().String("dir", "", "Directory to scan (default: current directory)")
	cmd.Flags().String("ext", "", "Archive extension to look for (default: .jar)")
	cmd.Flags().String("log-file", "", "Run log path, relative paths resolve against the scanned directory")
	cmd.Flags().String("mode", "", "Detection mode: adjacent or grouped")
	cmd.Flags().String("log-level", "", "Console diagnostic level: trace, debug, info, warn, error")
	cmd.Flags().String("report", "", "Also write a report (.md or .html)")
	cmd.Flags().Bool("history", false, "Record this run in the history database")
	cmd.Flags().Bool("no-history", false, "Do not record this run (overrides config)")
	cmd.Flags().Bool("quiet", false, "Do not print the duplicate summary")
}

// loadConfig reads the config file named by --config, or the default one.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// scanOverrides collects the flags the user actually set.
func scanOverrides(cmd *cobra.Command, args []string) (config.FlagOverrides, error) {
	var f config.FlagOverrides
	flags := cmd.Flags()

	if flags.Changed("history") && flags.Changed("no-history") {
		return f, fmt.Errorf("cannot use both --history and --no-history flags")
	}

	stringFlags := []struct {
		name   string
		target **string
	}{
		{"dir", &f.Dir},
		{"ext", &f.Extension},
		{"log-file", &f.LogFile},
		{"mode", &f.Mode},
		{"log-level", &f.LogLevel},
		{"report", &f.Report},
	}
	for _, sf := range stringFlags {
		if flags.Changed(sf.name) {
			v, _ := flags.GetString(sf.name)
			*sf.target = &v
		}
	}

	if len(args) > 0 {
		if flags.Changed("dir") {
			return f, fmt.Errorf("directory given both as argument and --dir")
		}
		dir := args[0]
		f.Dir = &dir
	}

	if flags.Changed("history") {
		enabled := true
		f.HistoryEnabled = &enabled
	} else if flags.Changed("no-history") {
		enabled := false
		f.HistoryEnabled = &enabled
	}

	if flags.Changed("quiet") {
		quiet, _ := flags.GetBool("quiet")
		f.Quiet = &quiet
	}

	return f, nil
}

// runScan implements the root and scan commands
func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	overrides, err := scanOverrides(cmd, args)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(overrides)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if abs, err := filepath.Abs(cfg.Dir); err == nil {
		cfg.Dir = abs
	}

	out := cmd.OutOrStdout()
	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	runner := orchestrator.NewRunner(*cfg, console, orchestrator.WithOutput(out, logger.IsTerminal(out)))

	if _, err := runner.Run(cmd.Context()); err != nil {
		return err
	}
	return nil
}
