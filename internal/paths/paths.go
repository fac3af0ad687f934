// Package paths resolves the on-disk layout pma uses inside an analyzed project.
//
//	<root>/.pma/config.json     project configuration
//	<root>/.pma/pma.db          result cache and run history
//	<root>/.pma/logs/analysis.log
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ProjectDirName is the per-project state directory.
	ProjectDirName = ".pma"

	// HomeEnvVar overrides the global pma home (~/.pma).
	HomeEnvVar = "PMA_HOME"
)

// ProjectDir returns <root>/.pma.
func ProjectDir(root string) string {
	return filepath.Join(root, ProjectDirName)
}

// DBPath returns the SQLite database path for a project.
func DBPath(root string) string {
	return filepath.Join(ProjectDir(root), "pma.db")
}

// LogsDir returns the project log directory.
func LogsDir(root string) string {
	return filepath.Join(ProjectDir(root), "logs")
}

// AnalysisLogPath returns the log file written during `pma analyze`.
func AnalysisLogPath(root string) string {
	return filepath.Join(LogsDir(root), "analysis.log")
}

// EnsureLogsDir creates the project log directory if needed.
func EnsureLogsDir(root string) (string, error) {
	dir := LogsDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}
	return dir, nil
}

// EnsureProjectDir creates <root>/.pma if needed.
func EnsureProjectDir(root string) (string, error) {
	dir := ProjectDir(root)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", ProjectDirName, err)
	}
	return dir, nil
}

// Home returns $PMA_HOME, or ~/.pma when unset.
func Home() (string, error) {
	if h := os.Getenv(HomeEnvVar); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(userHome, ProjectDirName), nil
}

// ResolveDatabase turns a configured rule database path into an absolute one.
// Relative paths are tried against the project root first, then the pma home.
func ResolveDatabase(root, configured string) string {
	if configured == "" {
		configured = "database"
	}
	if filepath.IsAbs(configured) {
		return configured
	}
	local := filepath.Join(root, configured)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	if home, err := Home(); err == nil {
		global := filepath.Join(home, configured)
		if info, err := os.Stat(global); err == nil && info.IsDir() {
			return global
		}
	}
	return local
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks on both sides when they exist.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot reports whether path lies inside root.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes.
func NormalizePath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
