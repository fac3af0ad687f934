package ruledb

import (
	"regexp"
)

// Detector is a rule's compiled detection regex. Pattern holds the raw text
// from the rule file; Err is set when it failed to compile.
type Detector struct {
	Pattern string         `json:"regex,omitempty"`
	Regex   *regexp.Regexp `json:"-"`
	Err     error          `json:"-"`
}

// Usable reports whether the detector can run against source text.
func (d Detector) Usable() bool {
	return d.Regex != nil && d.Err == nil
}

// NewDetector compiles pattern case-insensitively. An empty pattern gives an
// inert detector; a bad one records the compile error.
func NewDetector(pattern string) Detector {
	d := Detector{Pattern: pattern}
	if pattern == "" {
		return d
	}
	d.Regex, d.Err = regexp.Compile("(?i)" + pattern)
	return d
}

// RemovedFunctionRule describes a function that no longer exists in the
// target version. Function is matched structurally against call sites.
type RemovedFunctionRule struct {
	Function    string   `json:"function"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
	Replacement string   `json:"replacement,omitempty"`
	ExampleOld  string   `json:"example_old,omitempty"`
	ExampleNew  string   `json:"example_new,omitempty"`
	Detector
}

// ID is the rule identifier used for deduplication.
func (r *RemovedFunctionRule) ID() string { return "removed:" + r.Function }

// DeprecatedFeatureRule is a syntax or API pattern deprecated in the target
// version. It has no structural anchor.
type DeprecatedFeatureRule struct {
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
	Replacement string   `json:"replacement,omitempty"`
	ExampleOld  string   `json:"example_old,omitempty"`
	ExampleNew  string   `json:"example_new,omitempty"`
	Detector
}

func (r *DeprecatedFeatureRule) ID() string { return "deprecated:" + r.Title }

// BehaviorChangeRule is code that still runs but behaves differently.
type BehaviorChangeRule struct {
	Title          string   `json:"title"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Detector
}

func (r *BehaviorChangeRule) ID() string { return "behavior:" + r.Title }

// NewFeature is informational only; it is listed in reports, never matched.
type NewFeature struct {
	Feature     string `json:"feature"`
	Description string `json:"description,omitempty"`
}

// PlatformDeprecatedRule is a framework or CMS function that is deprecated
// and possibly removed in a given platform version.
type PlatformDeprecatedRule struct {
	Function        string   `json:"function"`
	Severity        Severity `json:"severity"`
	DeprecatedSince string   `json:"deprecated_since,omitempty"`
	RemovedIn       string   `json:"removed_in,omitempty"`
	Replacement     string   `json:"replacement,omitempty"`
	ExampleOld      string   `json:"example_old,omitempty"`
	ExampleNew      string   `json:"example_new,omitempty"`
	Detector
}

func (r *PlatformDeprecatedRule) ID() string { return "platform:" + r.Function }

// VersionRuleSet holds the rules for a version range. A composed set is the
// in-order concatenation of every adjacent hop in the range. It is never
// mutated after composition and is safe for concurrent readers.
type VersionRuleSet struct {
	From               string                  `json:"from"`
	To                 string                  `json:"to"`
	RemovedFunctions   []RemovedFunctionRule   `json:"removed_functions"`
	DeprecatedFeatures []DeprecatedFeatureRule `json:"deprecated_features"`
	BehaviorChanges    []BehaviorChangeRule    `json:"behavior_changes"`
	NewFeatures        []NewFeature            `json:"new_features"`

	// Fingerprint identifies the rule file contents the set was built from.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Len counts matchable rules; new features are not included.
func (s *VersionRuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.RemovedFunctions) + len(s.DeprecatedFeatures) + len(s.BehaviorChanges)
}

// Empty reports whether the set has no matchable rules.
func (s *VersionRuleSet) Empty() bool {
	return s.Len() == 0
}

func (s *VersionRuleSet) append(hop *VersionRuleSet) {
	s.RemovedFunctions = append(s.RemovedFunctions, hop.RemovedFunctions...)
	s.DeprecatedFeatures = append(s.DeprecatedFeatures, hop.DeprecatedFeatures...)
	s.BehaviorChanges = append(s.BehaviorChanges, hop.BehaviorChanges...)
	s.NewFeatures = append(s.NewFeatures, hop.NewFeatures...)
}

// PlatformRuleSet holds deprecation rules for one platform.
type PlatformRuleSet struct {
	Platform    string                   `json:"platform"`
	Functions   []PlatformDeprecatedRule `json:"functions"`
	Fingerprint string                   `json:"fingerprint,omitempty"`
}

// Empty reports whether the set has no rules.
func (s *PlatformRuleSet) Empty() bool {
	return s == nil || len(s.Functions) == 0
}
