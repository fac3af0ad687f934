package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"pma/internal/analysis"
)

type textRenderer struct {
	opts Options
}

func (r textRenderer) Render(w io.Writer, run *analysis.AnalysisRun) error {
	fmt.Fprintf(w, "PHP Migration Analysis (%s)\n", versionRange(run))
	fmt.Fprintf(w, "Run %s, %s files (%s) in %s\n",
		run.ID,
		humanize.Comma(int64(run.Summary.FilesScanned)),
		humanize.Bytes(uint64(run.BytesScanned)),
		run.Duration().Round(time.Millisecond),
	)
	if run.Cancelled {
		fmt.Fprintln(w, "WARNING: analysis was cancelled; results are partial")
	}
	if len(run.SkippedFiles) > 0 {
		fmt.Fprintf(w, "Skipped %d unreadable or binary file(s)\n", len(run.SkippedFiles))
	}
	fmt.Fprintln(w)

	if run.Summary.TotalIssues == 0 {
		fmt.Fprintln(w, "No compatibility issues found.")
		return nil
	}

	r.renderSummary(w, run)
	for _, g := range groupByFile(run.Issues) {
		r.renderFile(w, g)
	}
	return nil
}

func (r textRenderer) renderSummary(w io.Writer, run *analysis.AnalysisRun) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Summary")
	t.AppendHeader(table.Row{"Severity", "Issues", "Hours/issue", "Hours"})
	for _, line := range run.Summary.EffortBreakdown {
		t.AppendRow(table.Row{severityLabel(line.Severity), line.Count, formatHours(line.Rate), formatHours(line.Hours)})
	}
	t.AppendFooter(table.Row{"Total", run.Summary.TotalIssues, "", formatHours(run.EffortHours)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()

	fmt.Fprintf(w, "%d issue(s) in %d of %d file(s); estimated effort %s hours\n\n",
		run.Summary.TotalIssues, run.Summary.FilesWithIssues, run.Summary.FilesScanned, formatHours(run.EffortHours))
}

func (r textRenderer) renderFile(w io.Writer, g fileGroup) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s (%d)", g.Path, len(g.Issues)))
	t.AppendHeader(table.Row{"Line", "Severity", "Issue", "Code"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: 48},
		{Number: 4, WidthMax: 60},
	})
	for _, is := range g.Issues {
		t.AppendRow(table.Row{is.Line, severityLabel(is.Severity), is.Title, strings.TrimSpace(is.CodeLine)})
	}
	t.Render()

	if r.opts.ShowContext || r.opts.ShowExamples {
		for _, is := range g.Issues {
			r.renderDetail(w, is)
		}
	}
	fmt.Fprintln(w)
}

func (r textRenderer) renderDetail(w io.Writer, is analysis.Issue) {
	fmt.Fprintf(w, "\n  %s:%d %s\n", is.RelativePath, is.Line, is.Title)
	if is.Description != "" {
		fmt.Fprintf(w, "    %s\n", is.Description)
	}
	if r.opts.ShowContext {
		for _, n := range contextLines(is.Context) {
			marker := " "
			if n == is.Line {
				marker = ">"
			}
			fmt.Fprintf(w, "    %s %4d | %s\n", marker, n, is.Context[n])
		}
	}
	if r.opts.ShowExamples {
		if is.Replacement != "" {
			fmt.Fprintf(w, "    Replacement: %s\n", is.Replacement)
		}
		if is.ExampleOld != "" {
			fmt.Fprintf(w, "    Before: %s\n", is.ExampleOld)
		}
		if is.ExampleNew != "" {
			fmt.Fprintf(w, "    After:  %s\n", is.ExampleNew)
		}
		if is.Recommendation != "" {
			fmt.Fprintf(w, "    Recommendation: %s\n", is.Recommendation)
		}
	}
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1f", h)
}
