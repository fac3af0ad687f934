// Package version holds build information for pma.
package version

import "fmt"

// Overridden at build time:
// go build -ldflags "-X pma/internal/version.Version=1.2.0 -X pma/internal/version.Commit=$(git rev-parse HEAD)"
var (
	// Version is the semantic version of the analyzer.
	Version = "1.0.0"

	// Commit is the git commit the binary was built from.
	Commit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// RuleSchemaVersion is the rule database layout this build understands.
// Cached analysis results are invalidated when it changes.
const RuleSchemaVersion = 1

// Info returns the version, with a short commit suffix when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns the multi-line version banner printed by `pma version`.
func Full() string {
	return fmt.Sprintf("pma version %s\nCommit: %s\nBuilt: %s\nRule schema: v%d",
		Version, Commit, BuildDate, RuleSchemaVersion)
}
