package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/jarcompare/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

func paint(c *color.Color, useColor bool) *color.Color {
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// Display writes the warning; the whole block is yellow when useColor is set.
func (w Warning) Display(out io.Writer, useColor bool) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}
		for i, file := range w.Files {
			b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, file))
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	paint(color.New(color.FgYellow), useColor).Fprint(out, b.String())
}

// DuplicatesWarning builds the console warning for a run with flagged files.
func DuplicatesWarning(summary models.RunSummary, logPath string) Warning {
	files := make([]string, 0, len(summary.Duplicates))
	for _, d := range summary.Duplicates {
		files = append(files, fmt.Sprintf("%s (library %s, previous %s)", d.File, d.BaseName, d.Previous))
	}

	noun := "library"
	if len(files) != 1 {
		noun = "libraries"
	}

	return Warning{
		Title:      fmt.Sprintf("Found %d duplicated %s in %s", len(files), noun, summary.Dir),
		Message:    fmt.Sprintf("%d %s files scanned (mode: %s)", summary.Scanned, strings.TrimPrefix(summary.Extension, "."), summary.Mode),
		Files:      files,
		Suggestion: fmt.Sprintf("Keep one version of each library; details were appended to %s", logPath),
	}
}

// Summary prints the end-of-run console summary: a warning block when files
// were flagged, a single success line otherwise.
func Summary(out io.Writer, summary models.RunSummary, logPath string, useColor bool) {
	if summary.DuplicateCount() > 0 {
		DuplicatesWarning(summary, logPath).Display(out, useColor)
		return
	}

	check := paint(color.New(color.FgGreen), useColor).Sprint("✓")
	label := strings.TrimPrefix(summary.Extension, ".")
	if summary.Scanned == 0 {
		fmt.Fprintf(out, "%s No %s file found in %s\n", check, label, summary.Dir)
		return
	}
	fmt.Fprintf(out, "%s No duplicated library detected (%d %s files scanned)\n", check, summary.Scanned, label)
}
