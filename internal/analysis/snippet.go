package analysis

import "strings"

// DefaultContextLines is the snippet radius around an issue line.
const DefaultContextLines = 2

// SplitLines splits content on \n and strips a trailing \r from each line.
// A final newline does not start an extra line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Snippet returns lines line-radius..line+radius keyed by 1-based line
// number, clamped to the file. A line outside the file yields nil.
func Snippet(lines []string, line, radius int) map[int]string {
	if line < 1 || line > len(lines) {
		return nil
	}
	if radius < 0 {
		radius = 0
	}

	start := line - radius
	if start < 1 {
		start = 1
	}
	end := line + radius
	if end > len(lines) {
		end = len(lines)
	}

	out := make(map[int]string, end-start+1)
	for n := start; n <= end; n++ {
		out[n] = lines[n-1]
	}
	return out
}

func lineText(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}
