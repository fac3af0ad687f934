package report

import (
	"fmt"
	"io"
	"strings"

	"pma/internal/analysis"
)

type markdownRenderer struct {
	opts Options
}

func (r markdownRenderer) Render(w io.Writer, run *analysis.AnalysisRun) error {
	fmt.Fprintf(w, "# PHP Migration Analysis\n\n")
	fmt.Fprintf(w, "- **Range:** %s\n", versionRange(run))
	fmt.Fprintf(w, "- **Run:** `%s`\n", run.ID)
	fmt.Fprintf(w, "- **Files scanned:** %d\n", run.Summary.FilesScanned)
	fmt.Fprintf(w, "- **Files with issues:** %d\n", run.Summary.FilesWithIssues)
	fmt.Fprintf(w, "- **Estimated effort:** %s hours\n", formatHours(run.EffortHours))
	if run.Cancelled {
		fmt.Fprintf(w, "\n> **Warning:** analysis was cancelled; results are partial.\n")
	}
	fmt.Fprintln(w)

	if run.Summary.TotalIssues == 0 {
		fmt.Fprintln(w, "No compatibility issues found.")
		return nil
	}

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintln(w, "| Severity | Issues | Hours/issue | Hours |")
	fmt.Fprintln(w, "| --- | ---: | ---: | ---: |")
	for _, line := range run.Summary.EffortBreakdown {
		fmt.Fprintf(w, "| %s | %d | %s | %s |\n", severityLabel(line.Severity), line.Count, formatHours(line.Rate), formatHours(line.Hours))
	}
	fmt.Fprintf(w, "| **Total** | **%d** | | **%s** |\n\n", run.Summary.TotalIssues, formatHours(run.EffortHours))

	fmt.Fprintf(w, "## Issues\n")
	for _, g := range groupByFile(run.Issues) {
		fmt.Fprintf(w, "\n### `%s`\n\n", g.Path)
		fmt.Fprintln(w, "| Line | Severity | Issue | Code |")
		fmt.Fprintln(w, "| ---: | --- | --- | --- |")
		for _, is := range g.Issues {
			fmt.Fprintf(w, "| %d | %s | %s | %s |\n", is.Line, severityLabel(is.Severity), escapeCell(is.Title), codeCell(is.CodeLine))
		}
		if r.opts.ShowContext || r.opts.ShowExamples {
			for _, is := range g.Issues {
				r.renderDetail(w, is)
			}
		}
	}
	return nil
}

func (r markdownRenderer) renderDetail(w io.Writer, is analysis.Issue) {
	fmt.Fprintf(w, "\n#### Line %d: %s\n\n", is.Line, is.Title)
	if is.Description != "" {
		fmt.Fprintf(w, "%s\n\n", is.Description)
	}
	if r.opts.ShowContext && len(is.Context) > 0 {
		fmt.Fprintln(w, "```php")
		for _, n := range contextLines(is.Context) {
			fmt.Fprintf(w, "%4d | %s\n", n, is.Context[n])
		}
		fmt.Fprintln(w, "```")
		fmt.Fprintln(w)
	}
	if r.opts.ShowExamples {
		if is.Replacement != "" {
			fmt.Fprintf(w, "- Replacement: `%s`\n", is.Replacement)
		}
		if is.ExampleOld != "" {
			fmt.Fprintf(w, "- Before: `%s`\n", is.ExampleOld)
		}
		if is.ExampleNew != "" {
			fmt.Fprintf(w, "- After: `%s`\n", is.ExampleNew)
		}
		if is.Recommendation != "" {
			fmt.Fprintf(w, "- Recommendation: %s\n", is.Recommendation)
		}
	}
}

// escapeCell keeps pipes and newlines from breaking a table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func codeCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(escapeCell(s), "`", "'") + "`"
}
