package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"pma/internal/discovery"
	"pma/internal/phpast"
	"pma/internal/ruledb"
	"pma/internal/slogutil"
	"pma/internal/testutil"
)

type failingParser struct{}

func (failingParser) Parse(context.Context, []byte) (*phpast.Node, error) {
	return nil, errors.New("parser unavailable")
}

// cancellingParser cancels the run while parsing and then behaves like a
// context-aware parser.
type cancellingParser struct {
	cancel context.CancelFunc
}

func (p cancellingParser) Parse(ctx context.Context, _ []byte) (*phpast.Node, error) {
	p.cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &phpast.Node{Line: 1, Children: []*phpast.Node{
		{Type: phpast.NodeFunctionCall, Names: []string{"each"}, Line: 2},
	}}, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[CacheKey][]Issue
}

func (c *memoryCache) Lookup(_ context.Context, key CacheKey) ([]Issue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	issues, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return append([]Issue(nil), issues...), true
}

func (c *memoryCache) Store(_ context.Context, key CacheKey, issues []Issue) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]Issue(nil), issues...)
	return nil
}

func fixtureRun(t *testing.T) (*Runner, []discovery.FileRef) {
	t.Helper()
	logger := slogutil.NewDiscardLogger()

	db := testutil.LoadFixture(t, "ruledb")
	project := testutil.LoadFixture(t, "project")

	files, err := discovery.NewScanner(discovery.Options{
		Extensions: []string{"php"},
		Exclude:    []string{"vendor/"},
	}, logger).Scan(project.Root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	runner := NewRunner(ruledb.New(db.Root, []string{"7.4", "8.0", "8.1"}, logger), logger).
		WithParser(func() StructureParser { return failingParser{} })
	return runner, files
}

func defaultOpts() RunOptions {
	return RunOptions{
		From:         "7.4",
		To:           "8.1",
		Platform:     "moodle",
		PlatformFrom: "3.9",
		Workers:      2,
		ContextLines: 2,
	}
}

func TestRun_Fixture(t *testing.T) {
	runner, files := fixtureRun(t)

	run, err := runner.Run(context.Background(), files, defaultOpts())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []struct {
		rel  string
		line int
		kind IssueKind
	}{
		{"index.php", 5, KindRemovedFunction},
		{"index.php", 9, KindBehaviorChange},
		{"index.php", 10, KindDeprecatedPlatform},
		{"lib/legacy.php", 3, KindRemovedFunction},
		{"lib/legacy.php", 4, KindDeprecatedFeature},
	}
	if len(run.Issues) != len(want) {
		t.Fatalf("got %d issues, want %d: %+v", len(run.Issues), len(want), run.Issues)
	}
	for i, w := range want {
		got := run.Issues[i]
		if got.RelativePath != w.rel || got.Line != w.line || got.Kind != w.kind {
			t.Errorf("issue %d = %s:%d %s, want %s:%d %s", i, got.RelativePath, got.Line, got.Kind, w.rel, w.line, w.kind)
		}
	}

	if run.ID == "" || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("run metadata = %s %v %v", run.ID, run.StartedAt, run.FinishedAt)
	}
	if run.Summary.FilesScanned != 2 || run.Summary.FilesWithIssues != 2 {
		t.Errorf("summary files = %d/%d", run.Summary.FilesScanned, run.Summary.FilesWithIssues)
	}
	if run.Summary.BySeverity[ruledb.SeverityCritical] != 2 || run.Summary.BySeverity[ruledb.SeverityHigh] != 2 {
		t.Errorf("BySeverity = %v", run.Summary.BySeverity)
	}
	if run.Summary.ByCategory[CategoryPlatform] != 1 || run.Summary.ByCategory[CategoryPHP] != 4 {
		t.Errorf("ByCategory = %v", run.Summary.ByCategory)
	}
	if run.EffortHours != 13 {
		t.Errorf("EffortHours = %v, want 13", run.EffortHours)
	}
	if run.Cancelled {
		t.Error("run should not be cancelled")
	}
}

func TestRun_Deterministic(t *testing.T) {
	runner, files := fixtureRun(t)

	first, err := runner.Run(context.Background(), files, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		opts := defaultOpts()
		opts.Workers = i + 1
		again, err := runner.Run(context.Background(), files, opts)
		if err != nil {
			t.Fatal(err)
		}
		if len(again.Issues) != len(first.Issues) {
			t.Fatalf("run %d: %d issues, want %d", i, len(again.Issues), len(first.Issues))
		}
		for j := range first.Issues {
			if again.Issues[j].RelativePath != first.Issues[j].RelativePath || again.Issues[j].Line != first.Issues[j].Line {
				t.Errorf("run %d issue %d differs", i, j)
			}
		}
		if again.ID == first.ID {
			t.Error("each run should get a fresh id")
		}
	}
}

func TestRun_Cache(t *testing.T) {
	runner, files := fixtureRun(t)
	cache := &memoryCache{entries: make(map[CacheKey][]Issue)}
	runner.WithCache(cache)

	cold, err := runner.Run(context.Background(), files, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if cold.CacheHits != 0 {
		t.Errorf("cold CacheHits = %d", cold.CacheHits)
	}

	warm, err := runner.Run(context.Background(), files, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if warm.CacheHits != 2 {
		t.Errorf("warm CacheHits = %d, want 2", warm.CacheHits)
	}
	if len(warm.Issues) != len(cold.Issues) {
		t.Errorf("warm issues = %d, cold = %d", len(warm.Issues), len(cold.Issues))
	}

	opts := defaultOpts()
	opts.PlatformFrom = "3.0"
	changed, err := runner.Run(context.Background(), files, opts)
	if err != nil {
		t.Fatal(err)
	}
	if changed.CacheHits != 0 {
		t.Errorf("changing the platform start version must invalidate the cache, hits = %d", changed.CacheHits)
	}
	if len(changed.Issues) != len(cold.Issues)+1 {
		t.Errorf("add_to_log should be reported from 3.0, got %d issues", len(changed.Issues))
	}
}

func TestRun_Cancelled(t *testing.T) {
	runner, files := fixtureRun(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := runner.Run(ctx, files, defaultOpts())
	if err != nil {
		t.Fatalf("cancelled run should still return results: %v", err)
	}
	if !run.Cancelled {
		t.Error("Cancelled should be set")
	}
	if len(run.Issues) != 0 || run.Summary.FilesScanned != 0 {
		t.Errorf("no file should have been scheduled, got %d issues", len(run.Issues))
	}
}

func TestRun_CancelDuringParseKeepsFileComplete(t *testing.T) {
	logger := slogutil.NewDiscardLogger()
	db := testutil.NewRuleDB(t).
		Hop("7.4", "8.0", `{"removed_functions": [{"function": "each", "severity": "critical"}]}`)
	project := t.TempDir()
	testutil.WriteFiles(t, project, map[string]string{"a.php": "<?php\neach($a);\n"})
	files, err := discovery.NewScanner(discovery.Options{Extensions: []string{"php"}}, logger).Scan(project)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cache := &memoryCache{entries: make(map[CacheKey][]Issue)}
	runner := NewRunner(ruledb.New(db.Root, []string{"7.4", "8.0"}, logger), logger).
		WithParser(func() StructureParser { return cancellingParser{cancel: cancel} }).
		WithCache(cache)

	run, err := runner.Run(ctx, files, RunOptions{From: "7.4", To: "8.0", Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !run.Cancelled {
		t.Error("Cancelled should be set")
	}
	if run.Summary.FilesScanned != 1 {
		t.Fatalf("FilesScanned = %d, want 1", run.Summary.FilesScanned)
	}
	if len(run.Issues) != 1 || run.Issues[0].Detection != DetectionStructural || run.Issues[0].Line != 2 {
		t.Fatalf("issues = %+v, want the structural each() hit on line 2", run.Issues)
	}
	for key, issues := range cache.entries {
		if len(issues) != 1 {
			t.Errorf("cached %s with %d issues, want 1", key.Path, len(issues))
		}
	}
}

func TestRun_SkipsUnreadableFiles(t *testing.T) {
	runner, files := fixtureRun(t)
	files = append(files, discovery.FileRef{
		AbsPath: filepath.Join(t.TempDir(), "gone.php"),
		RelPath: "gone.php",
	})

	run, err := runner.Run(context.Background(), files, defaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	if len(run.SkippedFiles) != 1 || run.SkippedFiles[0] != "gone.php" {
		t.Errorf("SkippedFiles = %v", run.SkippedFiles)
	}
	if len(run.Issues) != 5 {
		t.Errorf("other files should still be analyzed, got %d issues", len(run.Issues))
	}
}

func TestRun_InvalidRangeKeepsPlatformRules(t *testing.T) {
	runner, files := fixtureRun(t)
	opts := defaultOpts()
	opts.From, opts.To = "8.1", "7.4"

	run, err := runner.Run(context.Background(), files, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.Issues) != 1 || run.Issues[0].Kind != KindDeprecatedPlatform {
		t.Errorf("only the platform issue should remain, got %+v", run.Issues)
	}
}
