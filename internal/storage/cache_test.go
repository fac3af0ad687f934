package storage

import (
	"context"
	"testing"
	"time"

	"pma/internal/analysis"
	"pma/internal/ruledb"
)

func sampleIssues() []analysis.Issue {
	return []analysis.Issue{
		{
			Kind:         analysis.KindRemovedFunction,
			Category:     analysis.CategoryPHP,
			Severity:     ruledb.SeverityCritical,
			Title:        "Removed function: each()",
			RelativePath: "index.php",
			Line:         5,
			CodeLine:     "while (list($k, $v) = each($arr)) {",
			Context:      map[int]string{4: "", 5: "while (list($k, $v) = each($arr)) {"},
			RuleID:       "removed:each",
			Detection:    analysis.DetectionStructural,
		},
	}
}

func TestResultCacheLookup(t *testing.T) {
	db, _ := setupTestDB(t)
	cache := NewResultCache(db, time.Hour, db.logger)
	ctx := context.Background()

	key := analysis.CacheKey{Path: "index.php", ContentHash: "h1", Fingerprint: "f1"}

	if _, ok := cache.Lookup(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := cache.Store(ctx, key, sampleIssues()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	tests := []struct {
		name string
		key  analysis.CacheKey
		hit  bool
	}{
		{"same key", key, true},
		{"content changed", analysis.CacheKey{Path: "index.php", ContentHash: "h2", Fingerprint: "f1"}, false},
		{"rules changed", analysis.CacheKey{Path: "index.php", ContentHash: "h1", Fingerprint: "f2"}, false},
		{"other path", analysis.CacheKey{Path: "lib.php", ContentHash: "h1", Fingerprint: "f1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, ok := cache.Lookup(ctx, tt.key)
			if ok != tt.hit {
				t.Fatalf("Lookup() hit = %v, want %v", ok, tt.hit)
			}
			if !tt.hit {
				return
			}
			if len(issues) != 1 {
				t.Fatalf("got %d issues, want 1", len(issues))
			}
			if issues[0].RuleID != "removed:each" || issues[0].Context[5] == "" {
				t.Errorf("decoded issue = %+v", issues[0])
			}
		})
	}
}

func TestResultCacheEmptyResult(t *testing.T) {
	db, _ := setupTestDB(t)
	cache := NewResultCache(db, 0, db.logger)
	ctx := context.Background()
	key := analysis.CacheKey{Path: "clean.php", ContentHash: "h", Fingerprint: "f"}

	if err := cache.Store(ctx, key, nil); err != nil {
		t.Fatal(err)
	}
	issues, ok := cache.Lookup(ctx, key)
	if !ok {
		t.Fatal("clean files should be cached too")
	}
	if len(issues) != 0 {
		t.Errorf("got %d issues, want 0", len(issues))
	}
}

func TestResultCacheExpiry(t *testing.T) {
	db, _ := setupTestDB(t)
	cache := NewResultCache(db, time.Hour, db.logger)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	key := analysis.CacheKey{Path: "a.php", ContentHash: "h", Fingerprint: "f"}
	if err := cache.Store(ctx, key, sampleIssues()); err != nil {
		t.Fatal(err)
	}

	cache.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, ok := cache.Lookup(ctx, key); !ok {
		t.Error("entry should still be fresh")
	}

	cache.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, ok := cache.Lookup(ctx, key); ok {
		t.Error("entry should have expired")
	}

	n, err := cache.Purge(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Purge() removed %d, want 1", n)
	}
}

func TestResultCacheStatsAndClear(t *testing.T) {
	db, _ := setupTestDB(t)
	cache := NewResultCache(db, DefaultResultTTL, db.logger)
	ctx := context.Background()

	for _, p := range []string{"a.php", "b.php"} {
		key := analysis.CacheKey{Path: p, ContentHash: "h", Fingerprint: "f"}
		if err := cache.Store(ctx, key, sampleIssues()); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := cache.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 2 || stats.Issues != 2 {
		t.Errorf("Stats() = %+v, want 2 entries and 2 issues", stats)
	}
	if stats.PayloadLen <= 0 {
		t.Error("expected non-zero payload size")
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	stats, _ = cache.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("entries after Clear() = %d", stats.Entries)
	}
}

func TestResultCacheCorruptPayload(t *testing.T) {
	db, _ := setupTestDB(t)
	cache := NewResultCache(db, 0, db.logger)
	ctx := context.Background()
	key := analysis.CacheKey{Path: "x.php", ContentHash: "h", Fingerprint: "f"}

	_, err := db.Exec(`INSERT INTO result_cache (path, content_hash, fingerprint, issue_count, payload, created_at)
		VALUES (?, ?, ?, 0, ?, ?)`, key.Path, key.ContentHash, key.Fingerprint, []byte("garbage"), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Lookup(ctx, key); ok {
		t.Error("corrupt payload should be a miss")
	}
}
