// Package report renders a run summary as Markdown or HTML.
//
// HTML is produced by rendering the Markdown report through goldmark, so
// both formats always carry the same content.
package report

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/jarcompare/internal/filelock"
	"github.com/harrison/jarcompare/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format is a report output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported report extension %q (want .md or .html)", filepath.Ext(path))
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"#", `\#`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// Markdown renders the summary as a Markdown document.
func Markdown(summary models.RunSummary) []byte {
	var b bytes.Buffer

	b.WriteString("# Duplicate library report\n\n")

	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	fmt.Fprintf(&b, "| Run | %s |\n", escape(summary.RunID))
	fmt.Fprintf(&b, "| Directory | %s |\n", escape(summary.Dir))
	fmt.Fprintf(&b, "| Extension | %s |\n", escape(summary.Extension))
	fmt.Fprintf(&b, "| Mode | %s |\n", escape(summary.Mode))
	fmt.Fprintf(&b, "| Started | %s |\n", summary.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "| Duration | %s |\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "| Files scanned | %d |\n", summary.Scanned)
	fmt.Fprintf(&b, "| Files flagged | %d |\n", summary.DuplicateCount())
	if summary.WriteFailures > 0 {
		fmt.Fprintf(&b, "| Log write failures | %d |\n", summary.WriteFailures)
	}
	b.WriteString("\n")

	b.WriteString("## Duplicates\n\n")
	switch {
	case summary.Scanned == 0:
		fmt.Fprintf(&b, "No %s file found.\n", escape(strings.TrimPrefix(summary.Extension, ".")))
	case summary.DuplicateCount() == 0:
		b.WriteString("No duplicated library detected.\n")
	default:
		b.WriteString("| # | Library | File | Previous |\n")
		b.WriteString("|---|---------|------|----------|\n")
		for i, d := range summary.Duplicates {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, escape(d.BaseName), escape(d.File), escape(d.Previous))
		}
	}

	return b.Bytes()
}

// HTML renders the summary as a standalone HTML page.
func HTML(summary models.RunSummary) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert(Markdown(summary), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>Duplicate library report - %s</title>\n", html.EscapeString(summary.Dir))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Render returns the report in the requested format.
func Render(summary models.RunSummary, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return Markdown(summary), nil
	case FormatHTML:
		return HTML(summary)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Write renders the summary in the format implied by path and writes it
// atomically.
func Write(path string, summary models.RunSummary) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Render(summary, format)
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
