package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"pma/internal/analysis"
	"pma/internal/discovery"
	"pma/internal/effort"
	pmaerrors "pma/internal/errors"
	"pma/internal/report"
	"pma/internal/ruledb"
	"pma/internal/storage"
)

var (
	analyzeFrom         string
	analyzeTo           string
	analyzePlatform     string
	analyzePlatformFrom string
	analyzeFormat       string
	analyzeOutput       string
	analyzeMinSeverity  string
	analyzeFailOn       string
	analyzeWorkers      int
	analyzeTimeout      time.Duration
	analyzeNoCache      bool
	analyzeExclude      []string
	analyzeIncludePaths []string
	analyzeGitignore    bool
	analyzeMaxFileSize  string
	analyzeContextLines int
	analyzeShowContext  bool
	analyzeNoExamples   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Analyze a PHP project for migration issues",
	Long: `Analyze every PHP source file under path (default: current directory)
against the rules for upgrading from one PHP version to another, and
optionally against a platform's deprecated function list.

Exit codes:
  0  analysis completed
  1  usage, configuration or rule database error
  2  --fail-on was set and an issue at or above that severity was found

Examples:
  pma analyze --from 7.4 --to 8.1
  pma analyze ./site --from php7.4 --to 8.2 --platform moodle --platform-from 3.9
  pma analyze --from 7.4 --to 8.0 --format json --output report.json
  pma analyze --from 7.4 --to 8.0 --min-severity high --fail-on critical`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFrom, "from", "", "Current PHP version (e.g. 7.4)")
	f.StringVar(&analyzeTo, "to", "", "Target PHP version (e.g. 8.1)")
	f.StringVar(&analyzePlatform, "platform", "", "Platform whose deprecated functions to check (e.g. moodle)")
	f.StringVar(&analyzePlatformFrom, "platform-from", "", "Current platform version; rules removed before it are skipped")
	f.StringVar(&analyzeFormat, "format", "", "Report format: text, json, markdown, html (default: reports.defaultFormat)")
	f.StringVarP(&analyzeOutput, "output", "o", "", "Write the report to a file instead of stdout")
	f.StringVar(&analyzeMinSeverity, "min-severity", "", "Only report issues at or above this severity")
	f.StringVar(&analyzeFailOn, "fail-on", "", "Exit with code 2 if an issue at or above this severity is found")
	f.IntVar(&analyzeWorkers, "workers", 0, "Parallel workers (default: analysis.workers, 0 = CPU count)")
	f.DurationVar(&analyzeTimeout, "timeout", 0, "Analysis deadline (default: analysis.timeoutSeconds)")
	f.BoolVar(&analyzeNoCache, "no-cache", false, "Ignore and do not update the result cache")
	f.StringSliceVar(&analyzeExclude, "exclude", nil, "Additional gitignore-style exclude patterns")
	f.StringSliceVar(&analyzeIncludePaths, "include-path", nil, "Additional paths to scan")
	f.BoolVar(&analyzeGitignore, "gitignore", false, "Also honour the project .gitignore")
	f.StringVar(&analyzeMaxFileSize, "max-file-size", "", "Skip files larger than this (e.g. 5MB)")
	f.IntVar(&analyzeContextLines, "context-lines", -1, "Source lines of context around each issue")
	f.BoolVar(&analyzeShowContext, "show-context", false, "Print context snippets in text and markdown reports")
	f.BoolVar(&analyzeNoExamples, "no-examples", false, "Omit fix examples from text and markdown reports")
	_ = analyzeCmd.MarkFlagRequired("from")
	_ = analyzeCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	env, err := newEnv(cmd, root)
	if err != nil {
		return err
	}
	defer env.Close()
	logger := env.logger

	opts, err := analyzeRunOptions(env)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(firstNonEmpty(analyzeFormat, env.cfg.Reports.DefaultFormat))
	if err != nil {
		return err
	}
	minSeverity, err := parseSeverityFlag("min-severity", analyzeMinSeverity)
	if err != nil {
		return err
	}
	failOn, err := parseSeverityFlag("fail-on", analyzeFailOn)
	if err != nil {
		return err
	}

	db, err := env.openRuleDB()
	if err != nil {
		return err
	}
	if err := db.CheckRange(opts.From, opts.To); err != nil {
		return err
	}

	scanOpts, err := scannerOptions(env)
	if err != nil {
		return err
	}
	files, err := discovery.NewScanner(scanOpts, logger).Scan(env.root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", env.root, err)
	}
	if len(files) == 0 {
		logger.Warn("No PHP files found", "root", env.root)
	}
	logger.Info("Starting analysis", "files", len(files), "from", opts.From, "to", opts.To, "platform", opts.Platform)

	ctx, cancel := analysisContext(cmd.Context(), env)
	defer cancel()

	runner := analysis.NewRunner(db, logger)

	var store *storage.DB
	if env.cfg.Cache.Enabled && !analyzeNoCache {
		store, err = env.openStorage()
		if err != nil {
			logger.Warn("Result cache unavailable, analyzing without it", "error", err.Error())
			store = nil
		} else {
			defer store.Close()
			ttl := time.Duration(env.cfg.Cache.TtlSeconds) * time.Second
			runner.WithCache(storage.NewResultCache(store, ttl, logger))
		}
	}

	run, err := runner.Run(ctx, files, opts)
	if err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("Analysis deadline exceeded", "code", string(pmaerrors.Timeout), "scanned", run.Summary.FilesScanned, "files", run.Files)
	}

	if store != nil {
		// History uses a fresh context; the run context may already be done.
		if err := store.SaveRun(context.Background(), run); err != nil {
			logger.Warn("Failed to record run history", "error", err.Error())
		}
	}

	view := filteredView(run, minSeverity)
	renderer, err := report.New(format, report.Options{
		ShowContext:  analyzeShowContext,
		ShowExamples: env.cfg.Reports.IncludeExamples && !analyzeNoExamples,
	})
	if err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), analyzeOutput, renderer, view); err != nil {
		return err
	}
	if analyzeOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", analyzeOutput)
	}

	if failOn != "" && analysis.HasSeverityAtLeast(run.Issues, failOn) {
		return &exitError{
			code: exitIssuesFound,
			msg:  fmt.Sprintf("Found issues at or above severity %s", failOn),
		}
	}
	return nil
}

// analyzeRunOptions merges flags over configuration. Versions are
// normalized so "php7.4.33" selects "7.4".
func analyzeRunOptions(env *cliEnv) (analysis.RunOptions, error) {
	from, err := ruledb.NormalizeVersion(analyzeFrom)
	if err != nil {
		return analysis.RunOptions{}, err
	}
	to, err := ruledb.NormalizeVersion(analyzeTo)
	if err != nil {
		return analysis.RunOptions{}, err
	}

	opts := analysis.RunOptions{
		From:         from,
		To:           to,
		Platform:     analyzePlatform,
		PlatformFrom: analyzePlatformFrom,
		Workers:      env.cfg.Analysis.Workers,
		ContextLines: env.cfg.Analysis.ContextLines,
		Rates:        effort.RatesFromConfig(env.cfg.Effort),
	}
	if analyzeWorkers > 0 {
		opts.Workers = analyzeWorkers
	}
	if analyzeContextLines >= 0 {
		opts.ContextLines = analyzeContextLines
	}
	return opts, nil
}

func scannerOptions(env *cliEnv) (discovery.Options, error) {
	opts := discovery.Options{
		Extensions:      env.cfg.Analysis.FileExtensions,
		Exclude:         append(append([]string{}, env.cfg.Analysis.ExcludePatterns...), analyzeExclude...),
		UseGitignore:    env.cfg.Analysis.UseGitignore || analyzeGitignore,
		MaxFileSize:     env.cfg.Analysis.MaxFileSize,
		AdditionalPaths: analyzeIncludePaths,
	}
	if analyzeMaxFileSize != "" {
		n, err := humanize.ParseBytes(analyzeMaxFileSize)
		if err != nil {
			return opts, fmt.Errorf("invalid --max-file-size %q: %w", analyzeMaxFileSize, err)
		}
		opts.MaxFileSize = int64(n)
	}
	return opts, nil
}

// analysisContext applies the deadline and cancels on interrupt.
func analysisContext(parent context.Context, env *cliEnv) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	timeout := analyzeTimeout
	if timeout <= 0 && env.cfg.Analysis.TimeoutSeconds > 0 {
		timeout = time.Duration(env.cfg.Analysis.TimeoutSeconds) * time.Second
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// filteredView narrows the reported issues without touching the stored run.
func filteredView(run *analysis.AnalysisRun, min ruledb.Severity) *analysis.AnalysisRun {
	if min == "" {
		return run
	}
	view := *run
	view.Issues = analysis.FilterBySeverity(run.Issues, min)
	view.Summary = analysis.Summarize(view.Issues, run.Summary.FilesScanned, run.Options.Rates)
	view.EffortHours = effort.Estimate(view.Summary.BySeverity, run.Options.Rates)
	return &view
}

func writeReport(stdout io.Writer, path string, r report.Renderer, run *analysis.AnalysisRun) error {
	if path == "" {
		return r.Render(stdout, run)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := r.Render(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseSeverityFlag(name, value string) (ruledb.Severity, error) {
	if value == "" {
		return "", nil
	}
	sev, ok := ruledb.ParseSeverity(value)
	if !ok {
		return "", fmt.Errorf("invalid --%s %q (want one of %v)", name, value, ruledb.Severities())
	}
	return sev, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
