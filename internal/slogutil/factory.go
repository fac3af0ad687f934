package slogutil

import (
	"io"
	"log/slog"

	"pma/internal/config"
	"pma/internal/paths"
)

// LoggerFactory builds the loggers used by a single pma invocation.
// Level precedence: CLI flag > config > default (info).
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel slog.Level
	cliSet   bool
	closers  []io.Closer
}

// NewLoggerFactory creates a factory rooted at the analyzed project.
func NewLoggerFactory(root string, cfg *config.Config) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{root: root, config: cfg}
}

// WithCLILevel records an explicit level from -v/-q flags.
func (f *LoggerFactory) WithCLILevel(level slog.Level) *LoggerFactory {
	f.cliLevel = level
	f.cliSet = true
	return f
}

// AnalysisLogger writes to <root>/.pma/logs/analysis.log. Any failure to
// open the file yields a discard logger; logging never blocks analysis.
func (f *LoggerFactory) AnalysisLogger() *slog.Logger {
	if f.root == "" {
		return NewDiscardLogger()
	}
	if _, err := paths.EnsureLogsDir(f.root); err != nil {
		return NewDiscardLogger()
	}

	logger, closer, err := NewFileLoggerWithRotation(
		paths.AnalysisLogPath(f.root),
		f.fileLevel(),
		f.config.Logging.MaxSize,
		f.config.Logging.MaxBackups,
	)
	if err != nil {
		return NewDiscardLogger()
	}
	f.closers = append(f.closers, closer)
	return logger
}

// CLILogger writes to w at the CLI level and, when the project root is
// known, tees into the analysis log at the configured level.
func (f *LoggerFactory) CLILogger(w io.Writer) *slog.Logger {
	console := NewHandler(w, &slog.HandlerOptions{Level: f.consoleLevel()})
	file := f.AnalysisLogger()
	return slog.New(NewTeeHandler(console, file.Handler()))
}

func (f *LoggerFactory) consoleLevel() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	return slog.LevelWarn
}

func (f *LoggerFactory) fileLevel() slog.Level {
	if f.cliSet && f.cliLevel < slog.LevelInfo {
		return f.cliLevel
	}
	if f.config.Logging.Level != "" {
		return LevelFromString(f.config.Logging.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
