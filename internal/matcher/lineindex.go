// Package matcher applies rule regexes to raw source text and maps match
// offsets to line numbers.
package matcher

import "sort"

// LineIndex maps byte offsets to 1-based line numbers. It is built once per
// file; each lookup is a binary search over line-start offsets.
type LineIndex struct {
	starts []int
}

// NewLineIndex scans content once and records where each line begins.
func NewLineIndex(content string) *LineIndex {
	starts := make([]int, 1, 64)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts}
}

// Line returns the 1-based line containing offset. Offsets past the end
// clamp to the last line.
func (idx *LineIndex) Line(offset int) int {
	if offset <= 0 {
		return 1
	}
	// First line start strictly greater than offset; the line is the one before.
	return sort.Search(len(idx.starts), func(i int) bool {
		return idx.starts[i] > offset
	})
}
