package analysis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"pma/internal/discovery"
	"pma/internal/effort"
	"pma/internal/phpast"
	"pma/internal/ruledb"
	"pma/internal/version"
)

// RunOptions select the rules and resources for one run.
type RunOptions struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Platform     string       `json:"platform,omitempty"`
	PlatformFrom string       `json:"platformFrom,omitempty"`
	Workers      int          `json:"workers"`
	ContextLines int          `json:"contextLines"`
	Rates        effort.Rates `json:"rates"`
}

// AnalysisRun is the result of analyzing a set of files. Issues are grouped
// by relative path; each file's issues keep their line order.
type AnalysisRun struct {
	ID           string                  `json:"id"`
	StartedAt    time.Time               `json:"startedAt"`
	FinishedAt   time.Time               `json:"finishedAt"`
	Options      RunOptions              `json:"options"`
	Files        int                     `json:"files"`
	BytesScanned int64                   `json:"bytesScanned"`
	RuleCount    int                     `json:"ruleCount"`
	Rules        *ruledb.VersionRuleSet  `json:"-"`
	PlatformSet  *ruledb.PlatformRuleSet `json:"-"`
	Issues       []Issue                 `json:"issues"`
	Summary      Summary                 `json:"summary"`
	EffortHours  float64                 `json:"effortHours"`
	Cancelled    bool                    `json:"cancelled"`
	SkippedFiles []string                `json:"skippedFiles,omitempty"`
	CacheHits    int                     `json:"cacheHits"`
}

// Duration is the wall time of the run.
func (r *AnalysisRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// CacheKey identifies one file's issues for one rule configuration.
type CacheKey struct {
	Path        string
	ContentHash string
	Fingerprint string
}

// ResultCache stores per-file issues between runs.
type ResultCache interface {
	Lookup(ctx context.Context, key CacheKey) ([]Issue, bool)
	Store(ctx context.Context, key CacheKey, issues []Issue) error
}

// StructureParser produces a normalized tree for PHP source.
type StructureParser interface {
	Parse(ctx context.Context, source []byte) (*phpast.Node, error)
}

// Runner analyzes files against a rule database.
type Runner struct {
	db        *ruledb.Database
	logger    *slog.Logger
	cache     ResultCache
	newParser func() StructureParser
}

// NewRunner creates a runner using the tree-sitter parser.
func NewRunner(db *ruledb.Database, logger *slog.Logger) *Runner {
	return &Runner{
		db:        db,
		logger:    logger,
		newParser: func() StructureParser { return phpast.NewParser() },
	}
}

// WithCache enables the per-file result cache.
func (r *Runner) WithCache(c ResultCache) *Runner {
	r.cache = c
	return r
}

// WithParser overrides the parser factory. Each worker gets its own parser.
func (r *Runner) WithParser(factory func() StructureParser) *Runner {
	r.newParser = factory
	return r
}

var errBinary = errors.New("binary content")

type fileResult struct {
	rel    string
	issues []Issue
}

// Run composes rules once, analyzes files on a bounded worker pool and
// folds the results into an AnalysisRun. When ctx is cancelled, files not
// yet started are skipped and the partial run is returned with Cancelled
// set. Per-file failures never fail the run.
func (r *Runner) Run(ctx context.Context, files []discovery.FileRef, opts RunOptions) (*AnalysisRun, error) {
	if opts.Rates == nil {
		opts.Rates = effort.DefaultRates()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	run := &AnalysisRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Options:   opts,
		Files:     len(files),
	}

	rules := r.db.ComposeVersionRules(opts.From, opts.To)
	if rules.Empty() {
		r.logger.Warn("No PHP change data found", "from", opts.From, "to", opts.To)
	}
	run.Rules = rules
	run.RuleCount = rules.Len()

	var scope *PlatformScope
	if opts.Platform != "" {
		set := r.db.PlatformRules(opts.Platform)
		if set.Empty() {
			r.logger.Warn("No platform rule data found", "platform", opts.Platform)
		}
		run.PlatformSet = set
		run.RuleCount += len(set.Functions)
		scope = &PlatformScope{Rules: set, FromVersion: opts.PlatformFrom}
	}

	agg := NewAggregator(r.logger, opts.ContextLines)
	fingerprint := runFingerprint(rules, scope, opts.ContextLines)
	parsers := sync.Pool{New: func() interface{} { return r.newParser() }}

	var (
		mu        sync.Mutex
		results   []fileResult
		scanned   int
		cacheHits int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		f := f
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			issues, hit, err := r.analyzeFile(gctx, f, agg, &parsers, rules, scope, fingerprint)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.logger.Warn("Skipping file", "path", f.RelPath, "error", err.Error())
				run.SkippedFiles = append(run.SkippedFiles, f.RelPath)
				return nil
			}
			scanned++
			run.BytesScanned += f.Size
			if hit {
				cacheHits++
			}
			if len(issues) > 0 {
				results = append(results, fileResult{rel: f.RelPath, issues: issues})
			}
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()

	if ctx.Err() != nil {
		run.Cancelled = true
		r.logger.Warn("Analysis cancelled, returning partial results", "scanned", scanned, "files", len(files), "reason", ctx.Err().Error())
	}

	sort.Slice(results, func(i, j int) bool { return results[i].rel < results[j].rel })
	for _, res := range results {
		run.Issues = append(run.Issues, res.issues...)
	}
	sort.Strings(run.SkippedFiles)

	run.CacheHits = cacheHits
	run.Summary = Summarize(run.Issues, scanned, opts.Rates)
	run.EffortHours = effort.Estimate(run.Summary.BySeverity, opts.Rates)
	run.FinishedAt = time.Now().UTC()

	r.logger.Info("Analysis complete",
		"run", run.ID,
		"files", scanned,
		"issues", len(run.Issues),
		"effortHours", run.EffortHours,
		"duration", run.Duration().String(),
	)
	return run, nil
}

func (r *Runner) analyzeFile(
	ctx context.Context,
	f discovery.FileRef,
	agg *Aggregator,
	parsers *sync.Pool,
	rules *ruledb.VersionRuleSet,
	scope *PlatformScope,
	fingerprint string,
) ([]Issue, bool, error) {
	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, false, fmt.Errorf("read: %w", err)
	}
	if discovery.IsBinary(content) {
		return nil, false, errBinary
	}

	var key CacheKey
	if r.cache != nil {
		key = CacheKey{Path: f.RelPath, ContentHash: discovery.HashContent(content), Fingerprint: fingerprint}
		if issues, ok := r.cache.Lookup(ctx, key); ok {
			return rebase(issues, f), true, nil
		}
	}

	// A file that has been read is always analyzed to completion, so a
	// cancellation never leaves it with textual results only.
	fileCtx := context.WithoutCancel(ctx)

	var tree *phpast.Node
	if rules != nil && len(rules.RemovedFunctions) > 0 {
		parser := parsers.Get().(StructureParser)
		tree, err = parser.Parse(fileCtx, content)
		parsers.Put(parser)
		if err != nil {
			r.logger.Debug("Structural parse failed, using textual detection only", "path", f.RelPath, "error", err.Error())
			tree = nil
		}
	}

	issues := agg.AggregateFile(FileInput{
		Path:         f.AbsPath,
		RelativePath: f.RelPath,
		Content:      string(content),
		Tree:         tree,
	}, rules, scope)

	if r.cache != nil {
		if err := r.cache.Store(fileCtx, key, issues); err != nil {
			r.logger.Debug("Result cache store failed", "path", f.RelPath, "error", err.Error())
		}
	}
	return issues, false, nil
}

// rebase points cached issues at the file's current location.
func rebase(issues []Issue, f discovery.FileRef) []Issue {
	for i := range issues {
		issues[i].File = f.AbsPath
		issues[i].RelativePath = f.RelPath
	}
	return issues
}

// runFingerprint identifies everything besides file content that shapes a
// file's issues.
func runFingerprint(rules *ruledb.VersionRuleSet, scope *PlatformScope, contextLines int) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "schema=%d;context=%d;rules=%s", version.RuleSchemaVersion, contextLines, rules.Fingerprint)
	if scope != nil && scope.Rules != nil {
		fmt.Fprintf(h, ";platform=%s;from=%s;prules=%s", scope.Rules.Platform, scope.FromVersion, scope.Rules.Fingerprint)
	}
	return hex.EncodeToString(h.Sum(nil))
}
