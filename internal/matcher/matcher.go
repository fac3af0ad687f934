package matcher

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
)

// Match is one regex hit. Offset and End are byte offsets into the content.
type Match struct {
	Offset int
	End    int
	Line   int
}

// Find returns all non-overlapping matches of re in content in ascending
// offset order. idx may be nil, in which case one is built.
func Find(re *regexp.Regexp, content string, idx *LineIndex) []Match {
	if re == nil {
		return nil
	}
	if idx == nil {
		idx = NewLineIndex(content)
	}

	locs := re.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Match, len(locs))
	for i, loc := range locs {
		out[i] = Match{Offset: loc[0], End: loc[1], Line: idx.Line(loc[0])}
	}
	return out
}

// Pattern is a rule's detection regex as seen by the matcher. Err carries a
// compile failure from rule loading.
type Pattern struct {
	ID    string
	Regex *regexp.Regexp
	Err   error
}

// RuleMatch is a Match attributed to the pattern at Rule in the input slice.
type RuleMatch struct {
	Match
	Rule int
}

// Matcher runs a set of patterns over one file's content.
type Matcher struct {
	logger *slog.Logger
}

// New creates a matcher that reports skipped patterns to logger.
func New(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// MatchAll applies every usable pattern to content. A pattern that is
// missing, failed to compile, or panics while matching is skipped and
// logged; the others still run. Results are ordered by offset, then by
// pattern position.
func (m *Matcher) MatchAll(content string, patterns []Pattern) []RuleMatch {
	idx := NewLineIndex(content)

	var out []RuleMatch
	for i, p := range patterns {
		if p.Err != nil {
			m.logger.Debug("Skipping pattern with invalid regex", "rule", p.ID, "error", p.Err.Error())
			continue
		}
		if p.Regex == nil {
			continue
		}

		matches, err := m.find(p, content, idx)
		if err != nil {
			m.logger.Warn("Pattern failed while matching, skipped", "rule", p.ID, "error", err.Error())
			continue
		}
		for _, match := range matches {
			out = append(out, RuleMatch{Match: match, Rule: i})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

func (m *Matcher) find(p Pattern, content string, idx *LineIndex) (matches []Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return Find(p.Regex, content, idx), nil
}
