package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"pma/internal/analysis"
)

type htmlRenderer struct {
	opts Options
}

type htmlContextLine struct {
	Number  int
	Text    string
	Current bool
}

type htmlIssue struct {
	analysis.Issue
	Lines []htmlContextLine
}

type htmlFile struct {
	Path   string
	Issues []htmlIssue
}

type htmlPage struct {
	Run         *analysis.AnalysisRun
	Range       string
	Effort      string
	Duration    string
	Files       []htmlFile
	ShowContext bool
	ShowExample bool
}

func (r htmlRenderer) Render(w io.Writer, run *analysis.AnalysisRun) error {
	page := htmlPage{
		Run:         run,
		Range:       versionRange(run),
		Effort:      formatHours(run.EffortHours),
		Duration:    run.Duration().Round(time.Millisecond).String(),
		ShowContext: r.opts.ShowContext,
		ShowExample: r.opts.ShowExamples,
	}
	for _, g := range groupByFile(run.Issues) {
		f := htmlFile{Path: g.Path}
		for _, is := range g.Issues {
			hi := htmlIssue{Issue: is}
			for _, n := range contextLines(is.Context) {
				hi.Lines = append(hi.Lines, htmlContextLine{Number: n, Text: is.Context[n], Current: n == is.Line})
			}
			f.Issues = append(f.Issues, hi)
		}
		page.Files = append(page.Files, f)
	}

	if err := htmlTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"label": severityLabel,
	"hours": formatHours,
}).Parse(htmlReport))

const htmlReport = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>PHP Migration Analysis</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0 auto; max-width: 1100px; padding: 24px; color: #222; }
h1 { border-bottom: 2px solid #4f5b93; padding-bottom: 8px; }
table { border-collapse: collapse; width: 100%; margin: 12px 0 24px; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; vertical-align: top; }
th { background: #f4f5fa; }
td.num { text-align: right; }
code, pre { font-family: Menlo, Consolas, monospace; font-size: 13px; }
pre { background: #f7f7f7; padding: 8px; overflow-x: auto; }
.current { background: #fff3c4; }
.warning { background: #fff3cd; border: 1px solid #e0c36b; padding: 8px 12px; }
.severity-critical { color: #fff; background: #b02a37; padding: 2px 6px; border-radius: 3px; }
.severity-high { color: #fff; background: #d9480f; padding: 2px 6px; border-radius: 3px; }
.severity-medium { background: #ffd43b; padding: 2px 6px; border-radius: 3px; }
.severity-low { background: #a5d8ff; padding: 2px 6px; border-radius: 3px; }
.severity-info { background: #e9ecef; padding: 2px 6px; border-radius: 3px; }
</style>
</head>
<body>
<h1>PHP Migration Analysis</h1>
<ul>
<li><strong>Range:</strong> {{.Range}}</li>
<li><strong>Run:</strong> <code>{{.Run.ID}}</code></li>
<li><strong>Files scanned:</strong> {{.Run.Summary.FilesScanned}}</li>
<li><strong>Files with issues:</strong> {{.Run.Summary.FilesWithIssues}}</li>
<li><strong>Duration:</strong> {{.Duration}}</li>
<li><strong>Estimated effort:</strong> {{.Effort}} hours</li>
</ul>
{{if .Run.Cancelled}}<p class="warning"><strong>Warning:</strong> analysis was cancelled; results are partial.</p>{{end}}
{{if eq .Run.Summary.TotalIssues 0}}
<p>No compatibility issues found.</p>
{{else}}
<h2>Summary</h2>
<table>
<tr><th>Severity</th><th>Issues</th><th>Hours/issue</th><th>Hours</th></tr>
{{range .Run.Summary.EffortBreakdown}}<tr><td><span class="severity-{{lower (printf "%s" .Severity)}}">{{label .Severity}}</span></td><td class="num">{{.Count}}</td><td class="num">{{hours .Rate}}</td><td class="num">{{hours .Hours}}</td></tr>
{{end}}<tr><th>Total</th><th class="num">{{.Run.Summary.TotalIssues}}</th><th></th><th class="num">{{.Effort}}</th></tr>
</table>
<h2>Issues</h2>
{{range .Files}}
<h3><code>{{.Path}}</code> ({{len .Issues}})</h3>
<table>
<tr><th>Line</th><th>Severity</th><th>Issue</th><th>Code</th></tr>
{{range .Issues}}<tr><td class="num">{{.Line}}</td><td><span class="severity-{{lower (printf "%s" .Severity)}}">{{label .Severity}}</span></td><td>{{.Title}}</td><td><code>{{.CodeLine}}</code></td></tr>
{{end}}</table>
{{if or $.ShowContext $.ShowExample}}{{range .Issues}}
<h4>Line {{.Line}}: {{.Title}}</h4>
{{if .Description}}<p>{{.Description}}</p>{{end}}
{{if and $.ShowContext .Lines}}<pre>{{range .Lines}}<span{{if .Current}} class="current"{{end}}>{{printf "%4d" .Number}} | {{.Text}}</span>
{{end}}</pre>{{end}}
{{if $.ShowExample}}<ul>
{{if .Replacement}}<li>Replacement: <code>{{.Replacement}}</code></li>{{end}}
{{if .ExampleOld}}<li>Before: <code>{{.ExampleOld}}</code></li>{{end}}
{{if .ExampleNew}}<li>After: <code>{{.ExampleNew}}</code></li>{{end}}
{{if .Recommendation}}<li>Recommendation: {{.Recommendation}}</li>{{end}}
</ul>{{end}}
{{end}}{{end}}
{{end}}
{{end}}
</body>
</html>
`
