package ruledb

import "strings"

// Severity grades how urgently an issue must be fixed before migrating.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least urgent.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s.Weight() > 0
}

// Weight orders severities; higher is more urgent. Unknown severities weigh 0.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// ParseSeverity accepts any casing and surrounding whitespace.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	return sev, sev.Valid()
}

func severityOr(raw string, def Severity) Severity {
	if sev, ok := ParseSeverity(raw); ok {
		return sev
	}
	return def
}
