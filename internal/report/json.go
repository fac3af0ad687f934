package report

import (
	"encoding/json"
	"io"

	"pma/internal/analysis"
	"pma/internal/version"
)

// document is the JSON report envelope.
type document struct {
	Tool       string                `json:"tool"`
	Version    string                `json:"version"`
	DurationMs int64                 `json:"durationMs"`
	Run        *analysis.AnalysisRun `json:"run"`
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, run *analysis.AnalysisRun) error {
	doc := document{
		Tool:       "pma",
		Version:    version.Version,
		DurationMs: run.Duration().Milliseconds(),
		Run:        run,
	}
	if doc.Run.Issues == nil {
		clone := *run
		clone.Issues = []analysis.Issue{}
		doc.Run = &clone
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
