// Package testutil provides fixtures for rule database and project tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixtureContext points at a checked-in fixture under testdata/fixtures.
type FixtureContext struct {
	// Name is the fixture directory name (e.g., "ruledb", "project")
	Name string

	// Root is the absolute path to the fixture directory
	Root string
}

// LoadFixture resolves a checked-in fixture, failing the test if it is absent.
func LoadFixture(t *testing.T, name string) *FixtureContext {
	t.Helper()

	dir := filepath.Join(getFixturesRoot(t), name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Fatalf("Fixture directory not found: %s", dir)
	}
	return &FixtureContext{Name: name, Root: dir}
}

// Path joins elem onto the fixture root.
func (f *FixtureContext) Path(elem ...string) string {
	return filepath.Join(append([]string{f.Root}, elem...)...)
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	fixturesRoot := filepath.Join(projectRoot, "testdata", "fixtures")

	if _, err := os.Stat(fixturesRoot); os.IsNotExist(err) {
		t.Fatalf("Fixtures root not found: %s", fixturesRoot)
	}
	return fixturesRoot
}

// WriteFiles creates files (relative path -> content) under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// RuleDB is a scratch rule database built in a temp directory.
type RuleDB struct {
	t    *testing.T
	Root string
}

// NewRuleDB creates an empty rule database under t.TempDir().
func NewRuleDB(t *testing.T) *RuleDB {
	t.Helper()
	return &RuleDB{t: t, Root: t.TempDir()}
}

// Hop writes php-changes/<from>-to-<to>.json.
func (db *RuleDB) Hop(from, to, content string) *RuleDB {
	db.t.Helper()
	WriteFiles(db.t, db.Root, map[string]string{
		"php-changes/" + from + "-to-" + to + ".json": content,
	})
	return db
}

// Platform writes platforms/<name>/deprecated-functions.json.
func (db *RuleDB) Platform(name, content string) *RuleDB {
	db.t.Helper()
	WriteFiles(db.t, db.Root, map[string]string{
		"platforms/" + name + "/deprecated-functions.json": content,
	})
	return db
}

// CopyTo copies the fixture tree into dst so a test can write next to it
// (for example the .pma state directory).
func (f *FixtureContext) CopyTo(t *testing.T, dst string) {
	t.Helper()

	err := filepath.WalkDir(f.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.Root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("copy fixture %s: %v", f.Name, err)
	}
}
