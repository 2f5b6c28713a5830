// Package detector finds library archives that share a base name.
//
// A base name is a filename with its trailing version suffix removed. The
// suffix starts at the first "-" that is followed by a digit and runs to the
// end of the name, so the extension is part of the suffix whenever a version
// is present:
//
//	commons-io-2.11.0.jar  -> commons-io
//	commons-lang3-3.1.jar  -> commons-lang3
//	readme.jar             -> readme.jar
//
// The extension is never stripped on its own, which is why "readme.jar" and
// "readme-1.0.jar" are not considered the same library.
package detector

import (
	"fmt"
	"regexp"

	"github.com/harrison/jarcompare/internal/models"
)

// Sentinel is the initial "previous" filename of an adjacent pass. It strips
// to itself and carries no archive extension, so it never matches an entry.
const Sentinel = "AbsolutelyNoLibraryWearsThisName"

// versionSuffix matches "-" followed by a digit and anything up to the end of
// the string, or a bare trailing "-".
var versionSuffix = regexp.MustCompile(`-(\d.*)?$`)

// StripVersionSuffix returns name up to the leftmost version suffix match.
// A name without a suffix is returned unchanged. A name whose suffix starts
// at index 0 (e.g. "-1.jar") strips to the empty string.
func StripVersionSuffix(name string) string {
	loc := versionSuffix.FindStringIndex(name)
	if loc == nil {
		return name
	}
	return name[:loc[0]]
}

// SameLibrary strips both names and reports whether they are equal.
// The returned string is the shared base name when they are.
func SameLibrary(a, b string) (string, bool) {
	baseA := StripVersionSuffix(a)
	baseB := StripVersionSuffix(b)
	if baseA != baseB {
		return "", false
	}
	return baseA, true
}

// Detector runs duplicate detection in a fixed mode.
type Detector struct {
	mode string
}

// New returns a Detector for mode, which must be models.ModeAdjacent or
// models.ModeGrouped. An empty mode selects adjacent detection.
func New(mode string) (*Detector, error) {
	switch mode {
	case "":
		mode = models.ModeAdjacent
	case models.ModeAdjacent, models.ModeGrouped:
	default:
		return nil, fmt.Errorf("unknown detection mode %q (want %q or %q)", mode, models.ModeAdjacent, models.ModeGrouped)
	}
	return &Detector{mode: mode}, nil
}

// Mode returns the detection mode.
func (d *Detector) Mode() string {
	return d.mode
}

// Detect flags entries according to the detector's mode.
// entries must be in ascending order; Detect does not re-sort them.
func (d *Detector) Detect(entries models.SortedEntryList) models.DetectionResult {
	if d.mode == models.ModeGrouped {
		return DetectGrouped(entries)
	}
	return DetectAdjacent(entries)
}

// DetectAdjacent compares each entry only with its immediate predecessor.
// Three versions of one library therefore produce two records, one for each
// adjacent pair, and the first version is never flagged.
func DetectAdjacent(entries models.SortedEntryList) models.DetectionResult {
	result := models.DetectionResult{Mode: models.ModeAdjacent}
	marked := make(map[string]bool)
	previous := Sentinel

	for _, entry := range entries {
		base, same := SameLibrary(entry.Name, previous)
		if same && !marked[entry.Name] {
			result.Records = append(result.Records, models.DuplicateRecord{
				BaseName: base,
				File:     entry.Name,
				Previous: previous,
			})
			marked[entry.Name] = true
		}
		previous = entry.Name
	}

	return result
}

// DetectGrouped flags every entry whose base name was already seen earlier
// in the list, whether or not the two entries are adjacent.
func DetectGrouped(entries models.SortedEntryList) models.DetectionResult {
	result := models.DetectionResult{Mode: models.ModeGrouped}
	marked := make(map[string]bool)
	lastByBase := make(map[string]string)

	for _, entry := range entries {
		base := StripVersionSuffix(entry.Name)
		if previous, seen := lastByBase[base]; seen && !marked[entry.Name] {
			result.Records = append(result.Records, models.DuplicateRecord{
				BaseName: base,
				File:     entry.Name,
				Previous: previous,
			})
			marked[entry.Name] = true
		}
		lastByBase[base] = entry.Name
	}

	return result
}
