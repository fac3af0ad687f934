// Package effort converts a severity histogram into an hours estimate.
package effort

import (
	"math"
	"sort"

	"pma/internal/ruledb"
)

// DefaultRate applies to severities missing from a rate table.
const DefaultRate = 1.0

// Histogram counts issues per severity.
type Histogram map[ruledb.Severity]int

// Add counts one issue of severity s.
func (h Histogram) Add(s ruledb.Severity) {
	h[s]++
}

// Total returns the number of counted issues.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Rates are hours per issue by severity.
type Rates map[ruledb.Severity]float64

// DefaultRates returns the built-in hours per issue.
func DefaultRates() Rates {
	return Rates{
		ruledb.SeverityCritical: 4,
		ruledb.SeverityHigh:     2,
		ruledb.SeverityMedium:   1,
		ruledb.SeverityLow:      0.5,
		ruledb.SeverityInfo:     0.1,
	}
}

// RatesFromConfig converts a severity-name keyed table. Unknown names are
// dropped; a nil or empty table yields DefaultRates.
func RatesFromConfig(table map[string]float64) Rates {
	if len(table) == 0 {
		return DefaultRates()
	}
	r := make(Rates, len(table))
	for name, rate := range table {
		if sev, ok := ruledb.ParseSeverity(name); ok {
			r[sev] = rate
		}
	}
	return r
}

func (r Rates) rate(s ruledb.Severity) float64 {
	if v, ok := r[s]; ok {
		return v
	}
	return DefaultRate
}

// Estimate returns Σ count×rate rounded to one decimal place.
func Estimate(h Histogram, r Rates) float64 {
	sevs := make([]ruledb.Severity, 0, len(h))
	for sev := range h {
		sevs = append(sevs, sev)
	}
	// Fixed summation order keeps repeated calls bit-identical.
	sortSeverities(sevs)

	total := 0.0
	for _, sev := range sevs {
		total += float64(h[sev]) * r.rate(sev)
	}
	return round1(total)
}

// Line is one severity's contribution to an estimate.
type Line struct {
	Severity ruledb.Severity `json:"severity"`
	Count    int             `json:"count"`
	Rate     float64         `json:"rate"`
	Hours    float64         `json:"hours"`
}

// Breakdown lists each severity present in h, most urgent first. Severities
// outside the known set follow in name order.
func Breakdown(h Histogram, r Rates) []Line {
	var lines []Line
	seen := make(map[ruledb.Severity]bool)
	for _, sev := range ruledb.Severities() {
		seen[sev] = true
		if h[sev] == 0 {
			continue
		}
		lines = append(lines, line(sev, h[sev], r))
	}

	var extra []ruledb.Severity
	for sev, count := range h {
		if !seen[sev] && count > 0 {
			extra = append(extra, sev)
		}
	}
	sortSeverities(extra)
	for _, sev := range extra {
		lines = append(lines, line(sev, h[sev], r))
	}
	return lines
}

func line(sev ruledb.Severity, count int, r Rates) Line {
	rate := r.rate(sev)
	return Line{Severity: sev, Count: count, Rate: rate, Hours: round1(float64(count) * rate)}
}

func sortSeverities(s []ruledb.Severity) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
