package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrison/jarcompare/internal/filelock"
)

// DefaultLogFile is the run log name created in the scanned directory.
const DefaultLogFile = "CompareJarFilesLog.txt"

// TimestampLayout formats run log timestamps as dd/MM/yyyy HH:mm:ss.
const TimestampLayout = "02/01/2006 15:04:05"

// ErrClosed is returned when writing to a FileLogger after Close.
var ErrClosed = errors.New("log file is closed")

// FileLogger appends timestamped lines to the run log.
// The file is opened once in create+append mode, so every run adds a new
// block after the previous ones. An exclusive lock on "<log>.lock" is held
// while the file is open.
type FileLogger struct {
	path string
	file *os.File
	lock *filelock.FileLock
	now  func() time.Time
	mu   sync.Mutex
}

// NewFileLogger opens DefaultLogFile inside dir.
func NewFileLogger(dir string) (*FileLogger, error) {
	return NewFileLoggerAt(filepath.Join(dir, DefaultLogFile))
}

// NewFileLoggerAt opens (creating if needed) the log file at path.
// Nothing is left open or locked when an error is returned.
func NewFileLoggerAt(path string) (*FileLogger, error) {
	return NewFileLoggerWaiting(path, nil)
}

// NewFileLoggerWaiting is NewFileLoggerAt with a callback invoked with the
// lock path when another process holds the log, just before blocking on it.
func NewFileLoggerWaiting(path string, onWait func(lockPath string)) (*FileLogger, error) {
	lock := filelock.ForTarget(path)
	err := lock.TryLock()
	if errors.Is(err, filelock.ErrLocked) {
		if onWait != nil {
			onWait(lock.Path())
		}
		err = lock.Lock()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock log file: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{
		path: path,
		file: file,
		lock: lock,
		now:  time.Now,
	}, nil
}

// Path returns the log file path.
func (fl *FileLogger) Path() string {
	return fl.path
}

// FormatLine renders "<timestamp> : <message>\n".
func FormatLine(ts time.Time, message string) string {
	return fmt.Sprintf("%s : %s\n", ts.Format(TimestampLayout), message)
}

// WriteLine appends one timestamped line. The timestamp is taken per call.
// A failed write is returned; the logger stays usable.
func (fl *FileLogger) WriteLine(message string) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file == nil {
		return ErrClosed
	}

	if _, err := fl.file.WriteString(FormatLine(fl.now(), message)); err != nil {
		return fmt.Errorf("failed to write to %s: %w", fl.path, err)
	}
	return nil
}

// Close syncs and closes the log file and releases the lock.
// Calling Close more than once is a no-op.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file == nil {
		return nil
	}

	syncErr := fl.file.Sync()
	closeErr := fl.file.Close()
	fl.file = nil
	var unlockErr error
	if fl.lock.Locked() {
		unlockErr = fl.lock.Unlock()
	}

	if syncErr != nil {
		return fmt.Errorf("failed to sync log file: %w", syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close log file: %w", closeErr)
	}
	return unlockErr
}
