package models

import "time"

// Detection modes
const (
	ModeAdjacent = "adjacent" // Compare each entry with its sorted predecessor only
	ModeGrouped  = "grouped"  // Compare each entry with every earlier entry
)

// DuplicateRecord is one flagged file.
type DuplicateRecord struct {
	BaseName string // Library name shared by both files
	File     string // The flagged (alphabetically later) filename
	Previous string // The filename it was matched against
}

// DetectionResult is the output of one detection pass.
type DetectionResult struct {
	Mode    string
	Records []DuplicateRecord
}

// Count returns the number of flagged files.
func (r DetectionResult) Count() int {
	return len(r.Records)
}

// HasDuplicates reports whether any file was flagged.
func (r DetectionResult) HasDuplicates() bool {
	return len(r.Records) > 0
}

// RunSummary describes a completed scan.
type RunSummary struct {
	RunID      string
	Dir        string
	Extension  string
	Mode       string
	Scanned    int
	Duplicates []DuplicateRecord
	StartedAt  time.Time
	FinishedAt time.Time
	// WriteFailures counts log lines that could not be written.
	WriteFailures int
}

// Duration returns the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// DuplicateCount returns the number of flagged files.
func (s RunSummary) DuplicateCount() int {
	return len(s.Duplicates)
}
