// Package report renders an analysis run as JSON, a terminal text report,
// Markdown or a standalone HTML page.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"pma/internal/analysis"
	"pma/internal/ruledb"
)

// Format selects a renderer.
type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatText, FormatMarkdown, FormatHTML}
}

// ParseFormat accepts a format name or its common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "text", "txt", "table", "":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json, text, markdown or html)", s)
}

// Extension returns the file extension conventionally used for f.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	default:
		return ".txt"
	}
}

// Options tune the human-readable renderers. JSON always carries everything.
type Options struct {
	// ShowContext prints the surrounding source lines for each issue.
	ShowContext bool
	// ShowExamples prints before/after examples when the rule has them.
	ShowExamples bool
}

// Renderer writes one run.
type Renderer interface {
	Render(w io.Writer, run *analysis.AnalysisRun) error
}

// New returns the renderer for format.
func New(format Format, opts Options) (Renderer, error) {
	switch format {
	case FormatJSON:
		return jsonRenderer{}, nil
	case FormatText:
		return textRenderer{opts: opts}, nil
	case FormatMarkdown:
		return markdownRenderer{opts: opts}, nil
	case FormatHTML:
		return htmlRenderer{opts: opts}, nil
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

// fileGroup holds one file's issues in line order.
type fileGroup struct {
	Path   string
	Issues []analysis.Issue
}

// groupByFile relies on the runner's ordering: issues arrive sorted by
// relative path with each file's issues contiguous.
func groupByFile(issues []analysis.Issue) []fileGroup {
	var groups []fileGroup
	for _, is := range issues {
		n := len(groups)
		if n == 0 || groups[n-1].Path != is.RelativePath {
			groups = append(groups, fileGroup{Path: is.RelativePath})
			n++
		}
		groups[n-1].Issues = append(groups[n-1].Issues, is)
	}
	return groups
}

// contextLines returns the snippet line numbers in ascending order.
func contextLines(ctx map[int]string) []int {
	lines := make([]int, 0, len(ctx))
	for n := range ctx {
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines
}

// severityLabel upper-cases a severity for display.
func severityLabel(s ruledb.Severity) string {
	return strings.ToUpper(string(s))
}

func versionRange(run *analysis.AnalysisRun) string {
	r := fmt.Sprintf("PHP %s -> %s", run.Options.From, run.Options.To)
	if run.Options.Platform != "" {
		r += ", platform " + run.Options.Platform
		if run.Options.PlatformFrom != "" {
			r += " " + run.Options.PlatformFrom
		}
	}
	return r
}
