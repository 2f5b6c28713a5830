// Package orchestrator runs one duplicate scan: discovery, detection and the
// run log, followed by the optional history record, report file and console
// summary.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/harrison/jarcompare/internal/config"
	"github.com/harrison/jarcompare/internal/detector"
	"github.com/harrison/jarcompare/internal/discovery"
	"github.com/harrison/jarcompare/internal/display"
	"github.com/harrison/jarcompare/internal/filelock"
	"github.com/harrison/jarcompare/internal/history"
	"github.com/harrison/jarcompare/internal/logger"
	"github.com/harrison/jarcompare/internal/models"
	"github.com/harrison/jarcompare/internal/report"
)

// Run log messages. Some end with a space, as in the established log format.
const (
	MsgStarted      = "Program started "
	MsgFinished     = "Program successfully executed "
	MsgNoDuplicates = "No duplicated library detected "
	MsgWarningFmt   = "WARNING : DUPLICATION OF THE FILE %s"
	MsgScannedFmt   = "Number of %s files scanned : %d"
	MsgNoFilesFmt   = "No %s file found "
	MsgDuplicateFmt = "Number of %s files duplicated : %d"
	MsgNotReadable  = "Directory not readable : %s"
)

// WriteErrorMessage prefixes run log write failures on the console.
const WriteErrorMessage = "ERROR DETECTED DURING THE WRITING INTO THE LOG FILE"

// RunLog is the destination of the timestamped run log lines.
type RunLog interface {
	WriteLine(message string) error
	Close() error
}

// Logger receives console diagnostics.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogErrorChain(message string, err error)
}

// Runner executes scans for one configuration.
type Runner struct {
	cfg      config.Config
	console  Logger
	out      io.Writer
	useColor bool
	openLog  func(path string) (RunLog, error)
	now      func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithOutput sets where the end-of-run summary is printed and whether it is
// colored. A nil writer disables the summary.
func WithOutput(w io.Writer, useColor bool) Option {
	return func(r *Runner) {
		r.out = w
		r.useColor = useColor
	}
}

// WithRunLog replaces how the run log is opened.
func WithRunLog(open func(path string) (RunLog, error)) Option {
	return func(r *Runner) {
		r.openLog = open
	}
}

// WithClock replaces the clock used for run start and finish times.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// openFileLog opens the run log, telling the user when another run holds it.
func (r *Runner) openFileLog(path string) (RunLog, error) {
	return logger.NewFileLoggerWaiting(path, func(lockPath string) {
		r.console.LogInfo(fmt.Sprintf("Waiting for another jarcompare run on %s (lock %s)", path, lockPath))
	})
}

// NewRunner creates a Runner. The configuration is copied, so later changes
// by the caller do not affect the run.
func NewRunner(cfg config.Config, console Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		console: console,
		now:     time.Now,
	}
	r.openLog = r.openFileLog
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() config.Config {
	return r.cfg
}

// Run performs one scan. Finding duplicates is not an error; an error is
// returned when the run log cannot be opened, the directory cannot be read
// or the requested report cannot be written.
func (r *Runner) Run(ctx context.Context) (models.RunSummary, error) {
	cfg := r.cfg
	summary := models.RunSummary{
		RunID:     history.NewRunID(),
		Dir:       cfg.Dir,
		Extension: cfg.Extension,
		Mode:      cfg.Mode,
		StartedAt: r.now(),
	}

	det, err := detector.New(cfg.Mode)
	if err != nil {
		return summary, err
	}

	// Checked before opening the log, which by default lives inside Dir.
	dirErr := discovery.CheckDir(cfg.Dir)

	logPath := cfg.LogPath()
	runLog, err := r.openLog(logPath)
	if err != nil {
		if dirErr != nil {
			r.console.LogErrorChain("Failed to open run log", err)
			return summary, fmt.Errorf("failed to scan directory: %w", dirErr)
		}
		return summary, fmt.Errorf("failed to initialize run log %s: %w", logPath, err)
	}
	r.console.LogDebug(fmt.Sprintf("Run %s logging to %s", summary.RunID, logPath))

	scanErr := r.scan(runLog, det, logPath, &summary)

	if err := runLog.Close(); err != nil {
		r.console.LogErrorChain("Failed to close run log", err)
	}
	summary.FinishedAt = r.now()

	if scanErr != nil {
		return summary, scanErr
	}

	r.recordHistory(ctx, summary)

	if cfg.Report != "" {
		if err := report.Write(cfg.Report, summary); err != nil {
			return summary, fmt.Errorf("failed to write report: %w", err)
		}
		r.console.LogInfo(fmt.Sprintf("Report written to %s", cfg.Report))
	}

	if r.out != nil && !cfg.Quiet {
		display.Summary(r.out, summary, logPath, r.useColor)
	}

	return summary, nil
}

// scan writes the run log block and fills in the summary.
func (r *Runner) scan(runLog RunLog, det *detector.Detector, logPath string, summary *models.RunSummary) error {
	label := r.cfg.ExtensionLabel()

	r.write(runLog, summary, MsgStarted)

	entries, err := discovery.Scan(r.cfg.Dir, discovery.ScanOptions{
		Extension: r.cfg.Extension,
		Exclude:   r.ownFiles(logPath),
	})
	if err != nil {
		r.write(runLog, summary, fmt.Sprintf(MsgNotReadable, r.cfg.Dir))
		return fmt.Errorf("failed to scan directory: %w", err)
	}
	summary.Scanned = len(entries)
	r.console.LogDebug(fmt.Sprintf("Found %d %s files in %s", len(entries), label, r.cfg.Dir))

	if len(entries) == 0 {
		r.write(runLog, summary, fmt.Sprintf(MsgNoFilesFmt, label))
		r.write(runLog, summary, MsgFinished)
		return nil
	}
	r.write(runLog, summary, fmt.Sprintf(MsgScannedFmt, label, len(entries)))

	result := det.Detect(entries)
	summary.Duplicates = result.Records

	r.write(runLog, summary, "")
	for _, rec := range result.Records {
		r.console.LogDebug(fmt.Sprintf("%s duplicates %s (library %s)", rec.File, rec.Previous, rec.BaseName))
		r.write(runLog, summary, fmt.Sprintf(MsgWarningFmt, rec.BaseName))
	}
	r.write(runLog, summary, "")

	if result.HasDuplicates() {
		r.write(runLog, summary, fmt.Sprintf(MsgDuplicateFmt, label, result.Count()))
	} else {
		r.write(runLog, summary, MsgNoDuplicates)
	}

	r.write(runLog, summary, MsgFinished)
	return nil
}

// ownFiles returns the run log and lock filenames when they sit in the
// scanned directory, so a matching extension never reports them.
func (r *Runner) ownFiles(logPath string) []string {
	if filepath.Clean(filepath.Dir(logPath)) != filepath.Clean(r.cfg.Dir) {
		return nil
	}
	return []string{filepath.Base(logPath), filepath.Base(filelock.LockPathFor(logPath))}
}

// write appends one line. Failures go to the console and the run goes on.
func (r *Runner) write(runLog RunLog, summary *models.RunSummary, message string) {
	if err := runLog.WriteLine(message); err != nil {
		summary.WriteFailures++
		r.console.LogErrorChain(WriteErrorMessage+" = "+err.Error(), err)
	}
}

// recordHistory stores the run when history is enabled. History problems
// never fail the run.
func (r *Runner) recordHistory(ctx context.Context, summary models.RunSummary) {
	if !r.cfg.History.Enabled {
		return
	}

	dbPath, err := r.cfg.HistoryPath()
	if err != nil {
		r.console.LogErrorChain("Run history disabled", err)
		return
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		r.console.LogErrorChain("Failed to open run history", err)
		return
	}
	defer store.Close()

	if err := store.RecordRun(ctx, summary); err != nil {
		r.console.LogErrorChain("Failed to record run history", err)
		return
	}
	r.console.LogDebug(fmt.Sprintf("Recorded run %s in %s", summary.RunID, dbPath))

	if keep := r.cfg.History.KeepRuns; keep > 0 {
		removed, err := store.Prune(ctx, keep)
		if err != nil {
			r.console.LogErrorChain("Failed to prune run history", err)
			return
		}
		if removed > 0 {
			r.console.LogDebug(fmt.Sprintf("Pruned %d old runs from history", removed))
		}
	}
}
