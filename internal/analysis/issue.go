// Package analysis fuses structural and textual detections into ordered
// issues and runs them across a project.
package analysis

import (
	"pma/internal/ruledb"
)

// IssueKind names the rule family that produced an issue.
type IssueKind string

const (
	KindRemovedFunction    IssueKind = "removed_function"
	KindDeprecatedFeature  IssueKind = "deprecated_feature"
	KindBehaviorChange     IssueKind = "behavior_change"
	KindDeprecatedPlatform IssueKind = "deprecated_platform_function"
)

// Category groups issues for reporting.
type Category string

const (
	CategoryPHP      Category = "php_compatibility"
	CategoryPlatform Category = "platform_compatibility"
)

// Detection records how an issue was found.
type Detection string

const (
	DetectionStructural Detection = "structural"
	DetectionTextual    Detection = "textual"
)

// rank orders structural detections before textual ones on the same line.
func (d Detection) rank() int {
	if d == DetectionStructural {
		return 0
	}
	return 1
}

// Issue is one reported compatibility problem. Issues are built once by the
// aggregator and only read afterwards.
type Issue struct {
	Kind         IssueKind       `json:"kind"`
	Category     Category        `json:"category"`
	Severity     ruledb.Severity `json:"severity"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	File         string          `json:"file"`
	RelativePath string          `json:"relativePath"`
	Line         int             `json:"line"`
	CodeLine     string          `json:"codeLine"`
	Context      map[int]string  `json:"context,omitempty"`

	Replacement     string `json:"replacement,omitempty"`
	ExampleOld      string `json:"exampleOld,omitempty"`
	ExampleNew      string `json:"exampleNew,omitempty"`
	Recommendation  string `json:"recommendation,omitempty"`
	DeprecatedSince string `json:"deprecatedSince,omitempty"`
	RemovedIn       string `json:"removedIn,omitempty"`
	Platform        string `json:"platform,omitempty"`

	RuleID    string    `json:"ruleId"`
	Detection Detection `json:"detection"`
}
