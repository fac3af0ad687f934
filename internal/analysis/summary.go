package analysis

import (
	"pma/internal/effort"
	"pma/internal/ruledb"
)

// Summary is the run-wide tally of issues.
type Summary struct {
	TotalIssues     int               `json:"totalIssues"`
	BySeverity      effort.Histogram  `json:"bySeverity"`
	ByCategory      map[Category]int  `json:"byCategory"`
	ByKind          map[IssueKind]int `json:"byKind"`
	FilesScanned    int               `json:"filesScanned"`
	FilesWithIssues int               `json:"filesWithIssues"`
	EffortBreakdown []effort.Line     `json:"effortBreakdown,omitempty"`
}

// Summarize tallies issues. filesScanned is the number of files analyzed,
// including those without issues.
func Summarize(issues []Issue, filesScanned int, rates effort.Rates) Summary {
	s := Summary{
		TotalIssues:  len(issues),
		BySeverity:   effort.Histogram{},
		ByCategory:   make(map[Category]int),
		ByKind:       make(map[IssueKind]int),
		FilesScanned: filesScanned,
	}

	files := make(map[string]bool)
	for _, is := range issues {
		s.BySeverity.Add(is.Severity)
		s.ByCategory[is.Category]++
		s.ByKind[is.Kind]++
		files[is.RelativePath] = true
	}
	s.FilesWithIssues = len(files)
	s.EffortBreakdown = effort.Breakdown(s.BySeverity, rates)
	return s
}

// FilterBySeverity keeps issues at or above min. An invalid min keeps all.
func FilterBySeverity(issues []Issue, min ruledb.Severity) []Issue {
	if !min.Valid() {
		return issues
	}
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Severity.Weight() >= min.Weight() {
			out = append(out, is)
		}
	}
	return out
}

// HasSeverityAtLeast reports whether any issue is at or above min.
func HasSeverityAtLeast(issues []Issue, min ruledb.Severity) bool {
	for _, is := range issues {
		if is.Severity.Weight() >= min.Weight() {
			return true
		}
	}
	return false
}
