// Package discovery lists the library archives of a single directory.
//
// Listing is never recursive: sub-directories are skipped, and so are
// directory entries whose own name happens to end with the extension.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/harrison/jarcompare/internal/models"
)

// DefaultExtension is the archive extension scanned when none is configured.
const DefaultExtension = ".jar"

// ErrNotReadable is matched by every error returned when the target
// directory cannot be listed.
var ErrNotReadable = errors.New("directory not readable")

// NotReadableError reports a directory that could not be listed.
// It distinguishes "cannot read" from "no matching files".
type NotReadableError struct {
	Dir string
	Err error
}

func (e *NotReadableError) Error() string {
	return fmt.Sprintf("directory not readable: %s: %v", e.Dir, e.Err)
}

func (e *NotReadableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotReadable) hold for any NotReadableError.
func (e *NotReadableError) Is(target error) bool {
	return target == ErrNotReadable
}

// ScanOptions configures a directory listing.
type ScanOptions struct {
	// Extension is the required filename suffix, e.g. ".jar".
	// Matching is exact and case-sensitive.
	Extension string

	// Exclude lists filenames never returned, such as the run log and its
	// lock file when they live in the scanned directory.
	Exclude []string
}

// ListEntries returns the entries of dir whose name ends with ext, sorted
// ascending by ordinal string comparison.
func ListEntries(dir, ext string) (models.SortedEntryList, error) {
	return Scan(dir, ScanOptions{Extension: ext})
}

// CheckDir verifies that dir exists, is a directory and can be opened.
// Failures are returned as *NotReadableError.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return &NotReadableError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return &NotReadableError{Dir: dir, Err: fmt.Errorf("not a directory")}
	}

	f, err := os.Open(dir)
	if err != nil {
		return &NotReadableError{Dir: dir, Err: err}
	}
	f.Close()
	return nil
}

// Scan lists dir according to opts.
func Scan(dir string, opts ScanOptions) (models.SortedEntryList, error) {
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}

	if err := CheckDir(dir); err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		excluded[name] = true
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &NotReadableError{Dir: dir, Err: err}
	}

	entries := make(models.SortedEntryList, 0, len(dirEntries))
	for _, d := range dirEntries {
		if d.IsDir() {
			continue
		}
		if !strings.HasSuffix(d.Name(), ext) || excluded[d.Name()] {
			continue
		}
		entries = append(entries, models.Entry{Name: d.Name(), Dir: dir})
	}

	// os.ReadDir already sorts by name; sort again so the ordering contract
	// does not depend on that detail.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}
