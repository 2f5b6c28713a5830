package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/harrison/jarcompare/internal/config"
	"github.com/harrison/jarcompare/internal/discovery"
	"github.com/harrison/jarcompare/internal/filelock"
	"github.com/harrison/jarcompare/internal/history"
	"github.com/harrison/jarcompare/internal/logger"
	"github.com/harrison/jarcompare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linePrefix = regexp.MustCompile(`^\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2} : `)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
}

func testConfig(dir string) config.Config {
	cfg := *config.DefaultConfig()
	cfg.Dir = dir
	return cfg
}

// logMessages returns the run log lines with their timestamps removed.
func logMessages(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	msgs := make([]string, 0, len(lines))
	for _, line := range lines {
		require.Regexp(t, linePrefix, line)
		msgs = append(msgs, linePrefix.ReplaceAllString(line, ""))
	}
	return msgs
}

func newTestRunner(cfg config.Config, console *bytes.Buffer, opts ...Option) *Runner {
	return NewRunner(cfg, logger.NewConsoleLogger(console, "debug"), opts...)
}

type failingLog struct {
	lines  []string
	failOn map[string]bool
	closed bool
}

func (f *failingLog) WriteLine(message string) error {
	if f.failOn[message] {
		return errors.New("disk full")
	}
	f.lines = append(f.lines, message)
	return nil
}

func (f *failingLog) Close() error {
	f.closed = true
	return nil
}

func TestRun_OneDuplicate(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "lib-1.0.0.jar", "lib-1.2.0.jar", "other-2.0.jar", "notes.txt")

	var console bytes.Buffer
	summary, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	require.Len(t, summary.Duplicates, 1)
	assert.Equal(t, models.DuplicateRecord{BaseName: "lib", File: "lib-1.2.0.jar", Previous: "lib-1.0.0.jar"}, summary.Duplicates[0])
	assert.Zero(t, summary.WriteFailures)
	assert.NotEmpty(t, summary.RunID)

	assert.Equal(t, []string{
		"Program started ",
		"Number of jar files scanned : 3",
		"",
		"WARNING : DUPLICATION OF THE FILE lib",
		"",
		"Number of jar files duplicated : 1",
		"Program successfully executed ",
	}, logMessages(t, filepath.Join(dir, logger.DefaultLogFile)))
}

func TestRun_ThreeVersions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-3.jar", "a-1.jar", "a-2.jar")

	var console bytes.Buffer
	summary, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.DuplicateCount())

	msgs := logMessages(t, filepath.Join(dir, logger.DefaultLogFile))
	assert.Equal(t, "WARNING : DUPLICATION OF THE FILE a", msgs[3])
	assert.Equal(t, "WARNING : DUPLICATION OF THE FILE a", msgs[4])
	assert.Equal(t, "Number of jar files duplicated : 2", msgs[6])
}

func TestRun_NoFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md")

	var console bytes.Buffer
	summary, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)

	msgs := logMessages(t, filepath.Join(dir, logger.DefaultLogFile))
	assert.Equal(t, []string{"Program started ", "No jar file found ", "Program successfully executed "}, msgs)
	for _, m := range msgs {
		assert.NotContains(t, m, "WARNING")
	}
}

func TestRun_NoDuplicates(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme-1.0.jar", "readme.jar")

	var console bytes.Buffer
	summary, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.DuplicateCount())

	msgs := logMessages(t, filepath.Join(dir, logger.DefaultLogFile))
	assert.Contains(t, msgs, "No duplicated library detected ")
	assert.Contains(t, msgs, "Number of jar files scanned : 2")
}

func TestRun_AppendsAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x-1.jar")

	var console bytes.Buffer
	for i := 0; i < 2; i++ {
		_, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
		require.NoError(t, err)
	}

	msgs := logMessages(t, filepath.Join(dir, logger.DefaultLogFile))
	started := 0
	for _, m := range msgs {
		if m == "Program started " {
			started++
		}
	}
	assert.Equal(t, 2, started)
	assert.Equal(t, "Program successfully executed ", msgs[len(msgs)-1])
}

func TestRun_CustomExtensionLabel(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "app-1.war", "app-2.war", "lib-1.jar")

	cfg := testConfig(dir)
	cfg.Extension = ".war"

	var console bytes.Buffer
	_, err := newTestRunner(cfg, &console).Run(context.Background())
	require.NoError(t, err)

	msgs := logMessages(t, filepath.Join(dir, logger.DefaultLogFile))
	assert.Contains(t, msgs, "Number of war files scanned : 2")
	assert.Contains(t, msgs, "Number of war files duplicated : 1")
}

func TestRun_GroupedMode(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x.jar", "x.jar+y.jar", "x.jar-1.jar")

	var console bytes.Buffer
	adjacent, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, adjacent.DuplicateCount())

	cfg := testConfig(dir)
	cfg.Mode = models.ModeGrouped
	grouped, err := newTestRunner(cfg, &console).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, grouped.DuplicateCount())
	assert.Equal(t, models.ModeGrouped, grouped.Mode)
}

func TestRun_UnreadableDirectory(t *testing.T) {
	base := t.TempDir()
	missing := filepath.Join(base, "missing")

	cfg := testConfig(missing)
	cfg.LogFile = filepath.Join(base, "run.log")

	var console bytes.Buffer
	_, err := newTestRunner(cfg, &console).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, discovery.ErrNotReadable))

	msgs := logMessages(t, cfg.LogFile)
	assert.Equal(t, []string{"Program started ", "Directory not readable : " + missing}, msgs)
}

func TestRun_MissingDirectoryWithDefaultLog(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	var console bytes.Buffer
	_, err := newTestRunner(testConfig(missing), &console).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrNotReadable)

	var nre *discovery.NotReadableError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, missing, nre.Dir)
	assert.NoDirExists(t, missing)
}

func TestRun_LogOpenFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	var console bytes.Buffer
	runner := newTestRunner(cfg, &console, WithRunLog(func(string) (RunLog, error) {
		return nil, errors.New("permission denied")
	}))

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize run log")
	assert.NoFileExists(t, filepath.Join(dir, logger.DefaultLogFile))
}

func TestRun_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Mode = "fuzzy"

	var console bytes.Buffer
	_, err := newTestRunner(cfg, &console).Run(context.Background())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, logger.DefaultLogFile))
}

func TestRun_WriteFailuresAreReportedAndSkipped(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1.jar", "a-2.jar")

	fake := &failingLog{failOn: map[string]bool{"WARNING : DUPLICATION OF THE FILE a": true}}

	var console bytes.Buffer
	runner := newTestRunner(testConfig(dir), &console, WithRunLog(func(string) (RunLog, error) {
		return fake, nil
	}))

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.WriteFailures)
	assert.True(t, fake.closed)
	assert.Equal(t, "Program successfully executed ", fake.lines[len(fake.lines)-1])
	assert.Contains(t, console.String(), "ERROR DETECTED DURING THE WRITING INTO THE LOG FILE = disk full")
}

func TestRun_ConsoleSummary(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1.jar", "a-2.jar")

	var console, out bytes.Buffer
	_, err := newTestRunner(testConfig(dir), &console, WithOutput(&out, false)).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Found 1 duplicated library in "+dir)
	assert.Contains(t, out.String(), "a-2.jar (library a, previous a-1.jar)")

	cfg := testConfig(dir)
	cfg.Quiet = true
	out.Reset()
	_, err = newTestRunner(cfg, &console, WithOutput(&out, false)).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestRun_Report(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1.jar", "a-2.jar")

	cfg := testConfig(dir)
	cfg.Report = filepath.Join(dir, "reports", "dups.md")

	var console bytes.Buffer
	_, err := newTestRunner(cfg, &console).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 1 | a | a-2.jar | a-1.jar |")
}

func TestRun_History(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1.jar", "a-2.jar")

	cfg := testConfig(dir)
	cfg.History.Enabled = true
	cfg.History.DBPath = filepath.Join(t.TempDir(), "history.db")
	cfg.History.KeepRuns = 2

	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		tick := start.Add(time.Duration(i) * time.Hour)
		var console bytes.Buffer
		summary, err := newTestRunner(cfg, &console, WithClock(func() time.Time { return tick })).Run(context.Background())
		require.NoError(t, err)
		ids = append(ids, summary.RunID)
	}

	store, err := history.NewStore(cfg.History.DBPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].RunID)
	assert.Equal(t, ids[1], runs[1].RunID)

	_, dups, err := store.GetRun(context.Background(), ids[2])
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "a-2.jar", dups[0].File)
}

func TestRun_HistoryDisabledByDefault(t *testing.T) {
	dir := t.TempDir()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	touch(t, dir, "a-1.jar")

	var console bytes.Buffer
	_, err := newTestRunner(testConfig(dir), &console).Run(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewRunner_ConfigIsCopied(t *testing.T) {
	cfg := testConfig("/opt/lib")
	var console bytes.Buffer
	runner := newTestRunner(cfg, &console)

	cfg.Dir = "/elsewhere"
	assert.Equal(t, "/opt/lib", runner.Config().Dir)
}

func TestRun_SkipsOwnLogFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "notes-1.txt", "notes-2.txt")

	cfg := testConfig(dir)
	cfg.Extension = ".txt"

	var console bytes.Buffer
	for i := 0; i < 2; i++ {
		summary, err := newTestRunner(cfg, &console).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Scanned, "run %d", i+1)
	}

	cfg.Extension = ".lock"
	summary, err := newTestRunner(cfg, &console).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Scanned)
}

func TestRun_LogOutsideDirectoryIsScanned(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "CompareJarFilesLog.txt")

	cfg := testConfig(dir)
	cfg.Extension = ".txt"
	cfg.LogFile = filepath.Join(t.TempDir(), logger.DefaultLogFile)

	var console bytes.Buffer
	summary, err := newTestRunner(cfg, &console).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Scanned)
}

type waitLogger struct {
	info chan string
}

func (w *waitLogger) LogDebug(string) {}

func (w *waitLogger) LogInfo(message string) {
	select {
	case w.info <- message:
	default:
	}
}

func (w *waitLogger) LogErrorChain(string, error) {}

func TestRun_WaitsForConcurrentRun(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1.jar", "a-2.jar")
	cfg := testConfig(dir)

	holder := filelock.ForTarget(cfg.LogPath())
	require.NoError(t, holder.Lock())

	console := &waitLogger{info: make(chan string, 4)}
	done := make(chan error, 1)
	go func() {
		_, err := NewRunner(cfg, console).Run(context.Background())
		done <- err
	}()

	select {
	case msg := <-console.info:
		assert.Contains(t, msg, "Waiting for another jarcompare run on "+cfg.LogPath())
	case <-time.After(5 * time.Second):
		t.Fatal("expected a waiting message while the log is locked")
	}

	require.NoError(t, holder.Unlock())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish after the lock was released")
	}
	assert.Contains(t, logMessages(t, cfg.LogPath()), "Number of jar files duplicated : 1")
}
