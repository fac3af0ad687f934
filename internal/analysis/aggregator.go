package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"pma/internal/matcher"
	"pma/internal/phpast"
	"pma/internal/ruledb"
)

// FileInput is everything the aggregator needs for one file. Tree is nil
// when the file failed to parse; Lines is derived from Content when nil.
type FileInput struct {
	Path         string
	RelativePath string
	Content      string
	Lines        []string
	Tree         *phpast.Node
}

// PlatformScope selects platform rules for a run. Rules removed before
// FromVersion are already obsolete and are not matched.
type PlatformScope struct {
	Rules       *ruledb.PlatformRuleSet
	FromVersion string
}

// Aggregator turns one file's detections into ordered issues. It holds no
// per-file state and is safe for concurrent use.
type Aggregator struct {
	matcher      *matcher.Matcher
	logger       *slog.Logger
	contextLines int
}

// NewAggregator creates an aggregator capturing contextLines of context
// around each issue.
func NewAggregator(logger *slog.Logger, contextLines int) *Aggregator {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	return &Aggregator{
		matcher:      matcher.New(logger),
		logger:       logger,
		contextLines: contextLines,
	}
}

type dedupKey struct {
	line int
	rule string
}

// textRule pairs a pattern with the issue it produces when matched.
type textRule struct {
	removed bool
	ruleID  string
	build   func(line int) Issue
}

// AggregateFile detects every issue in one file:
//
//  1. removed functions matched structurally against call constructs
//  2. removed functions matched textually, dropped when (line, rule) was
//     already reported
//  3. deprecated features and behavior changes matched textually
//  4. platform rules, minus those removed before the platform start version
//
// Issues are ordered by line, structural before textual, and carry a
// context snippet.
func (a *Aggregator) AggregateFile(in FileInput, rules *ruledb.VersionRuleSet, platform *PlatformScope) []Issue {
	lines := in.Lines
	if lines == nil {
		lines = SplitLines(in.Content)
	}

	var issues []Issue
	seen := make(map[dedupKey]bool)

	if rules != nil && len(rules.RemovedFunctions) > 0 {
		calls := callConstructs(phpast.Extract(in.Path, in.Tree))
		for _, c := range calls {
			for i := range rules.RemovedFunctions {
				r := &rules.RemovedFunctions[i]
				if !strings.EqualFold(c.Name, r.Function) {
					continue
				}
				key := dedupKey{c.Line, r.ID()}
				if seen[key] {
					continue
				}
				seen[key] = true
				issue := removedIssue(r, c.Line)
				issue.Detection = DetectionStructural
				issues = append(issues, issue)
			}
		}
	}

	patterns, refs := a.textRules(rules, platform)
	for _, m := range a.matcher.MatchAll(in.Content, patterns) {
		ref := refs[m.Rule]
		if ref.removed {
			key := dedupKey{m.Line, ref.ruleID}
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		issue := ref.build(m.Line)
		issue.Detection = DetectionTextual
		issues = append(issues, issue)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Detection.rank() < issues[j].Detection.rank()
	})

	for i := range issues {
		issues[i].File = in.Path
		issues[i].RelativePath = in.RelativePath
		issues[i].CodeLine = lineText(lines, issues[i].Line)
		issues[i].Context = Snippet(lines, issues[i].Line, a.contextLines)
	}
	return issues
}

func callConstructs(all []phpast.Construct) []phpast.Construct {
	calls := all[:0:0]
	for _, c := range all {
		if c.Kind.IsCall() {
			calls = append(calls, c)
		}
	}
	return calls
}

func (a *Aggregator) textRules(rules *ruledb.VersionRuleSet, platform *PlatformScope) ([]matcher.Pattern, []textRule) {
	var patterns []matcher.Pattern
	var refs []textRule

	add := func(id string, d ruledb.Detector, removed bool, build func(int) Issue) {
		if d.Pattern == "" {
			return
		}
		patterns = append(patterns, matcher.Pattern{ID: id, Regex: d.Regex, Err: d.Err})
		refs = append(refs, textRule{removed: removed, ruleID: id, build: build})
	}

	if rules != nil {
		for i := range rules.RemovedFunctions {
			r := &rules.RemovedFunctions[i]
			add(r.ID(), r.Detector, true, func(line int) Issue { return removedIssue(r, line) })
		}
		for i := range rules.DeprecatedFeatures {
			r := &rules.DeprecatedFeatures[i]
			add(r.ID(), r.Detector, false, func(line int) Issue { return deprecatedIssue(r, line) })
		}
		for i := range rules.BehaviorChanges {
			r := &rules.BehaviorChanges[i]
			add(r.ID(), r.Detector, false, func(line int) Issue { return behaviorIssue(r, line) })
		}
	}

	if platform != nil && !platform.Rules.Empty() {
		name := platform.Rules.Platform
		for i := range platform.Rules.Functions {
			r := &platform.Rules.Functions[i]
			if removedBefore(r.RemovedIn, platform.FromVersion) {
				continue
			}
			add(r.ID(), r.Detector, false, func(line int) Issue { return platformIssue(r, name, line) })
		}
	}

	return patterns, refs
}

// removedBefore reports whether removedIn < from. Missing or unparseable
// versions never filter a rule out.
func removedBefore(removedIn, from string) bool {
	if removedIn == "" || from == "" {
		return false
	}
	rv, err := semver.NewVersion(removedIn)
	if err != nil {
		return false
	}
	fv, err := semver.NewVersion(from)
	if err != nil {
		return false
	}
	return rv.LessThan(fv)
}

func removedIssue(r *ruledb.RemovedFunctionRule, line int) Issue {
	desc := r.Description
	if desc == "" {
		desc = fmt.Sprintf("Function %s() has been removed", r.Function)
	}
	return Issue{
		Kind:        KindRemovedFunction,
		Category:    CategoryPHP,
		Severity:    r.Severity,
		Title:       fmt.Sprintf("Removed function: %s()", r.Function),
		Description: desc,
		Line:        line,
		Replacement: r.Replacement,
		ExampleOld:  r.ExampleOld,
		ExampleNew:  r.ExampleNew,
		RuleID:      r.ID(),
	}
}

func deprecatedIssue(r *ruledb.DeprecatedFeatureRule, line int) Issue {
	return Issue{
		Kind:        KindDeprecatedFeature,
		Category:    CategoryPHP,
		Severity:    r.Severity,
		Title:       r.Title,
		Description: r.Description,
		Line:        line,
		Replacement: r.Replacement,
		ExampleOld:  r.ExampleOld,
		ExampleNew:  r.ExampleNew,
		RuleID:      r.ID(),
	}
}

func behaviorIssue(r *ruledb.BehaviorChangeRule, line int) Issue {
	return Issue{
		Kind:           KindBehaviorChange,
		Category:       CategoryPHP,
		Severity:       r.Severity,
		Title:          r.Title,
		Description:    r.Description,
		Line:           line,
		Recommendation: r.Recommendation,
		RuleID:         r.ID(),
	}
}

func platformIssue(r *ruledb.PlatformDeprecatedRule, platform string, line int) Issue {
	desc := fmt.Sprintf("Function %s is deprecated", r.Function)
	if r.DeprecatedSince != "" {
		desc += " since version " + r.DeprecatedSince
	}
	if r.RemovedIn != "" {
		desc += " and removed in " + r.RemovedIn
	}
	return Issue{
		Kind:            KindDeprecatedPlatform,
		Category:        CategoryPlatform,
		Severity:        r.Severity,
		Title:           "Deprecated function: " + r.Function,
		Description:     desc,
		Line:            line,
		Replacement:     r.Replacement,
		ExampleOld:      r.ExampleOld,
		ExampleNew:      r.ExampleNew,
		DeprecatedSince: r.DeprecatedSince,
		RemovedIn:       r.RemovedIn,
		Platform:        platform,
		RuleID:          r.ID(),
	}
}
