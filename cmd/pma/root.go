package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pma/internal/config"
	pmaerrors "pma/internal/errors"
	"pma/internal/paths"
	"pma/internal/ruledb"
	"pma/internal/slogutil"
	"pma/internal/storage"
	"pma/internal/version"
)

var (
	// rootFlag is the analyzed project root; defaults to the working directory
	rootFlag     string
	configFlag   string
	databaseFlag string
	verboseFlag  int
	quietFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "pma",
	Short: "PMA - PHP Migration Analyzer",
	Long: `PMA scans a PHP code base for constructs that break or change behaviour
when upgrading between PHP versions, and for deprecated platform (framework
or CMS) functions. It reports each issue with its location, severity and a
fix hint, and estimates the migration effort in hours.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("pma version {{.Version}}\n")
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlag, "root", "", "Project root (default: current directory)")
	pf.StringVar(&configFlag, "config", "", "Config file (default: <root>/.pma/config.json)")
	pf.StringVar(&databaseFlag, "database", "", "Rule database directory (overrides paths.database)")
	pf.CountVarP(&verboseFlag, "verbose", "v", "Log more (-v info, -vv debug)")
	pf.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
}

// cliEnv is the state shared by a single command invocation.
type cliEnv struct {
	root   string
	cfg    *config.Config
	logs   *slogutil.LoggerFactory
	logger *slog.Logger
}

// newEnv loads configuration for root and builds the command logger.
func newEnv(cmd *cobra.Command, root string) (*cliEnv, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg, err := loadConfig(abs)
	if err != nil {
		return nil, err
	}

	logs := slogutil.NewLoggerFactory(abs, cfg)
	if verboseFlag > 0 || quietFlag {
		logs.WithCLILevel(slogutil.LevelFromVerbosity(verboseFlag, quietFlag))
	}

	return &cliEnv{
		root:   abs,
		cfg:    cfg,
		logs:   logs,
		logger: logs.CLILogger(cmd.ErrOrStderr()),
	}, nil
}

func (e *cliEnv) Close() {
	_ = e.logs.Close()
}

// loadConfig reads --config when given, otherwise <root>/.pma/config.*.
func loadConfig(root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadConfigFromPath(configFlag)
	} else {
		cfg, err = config.LoadConfig(root)
	}
	if err != nil {
		return nil, pmaerrors.New(pmaerrors.ConfigInvalid, "failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, pmaerrors.New(pmaerrors.ConfigInvalid, "invalid configuration", err)
	}
	return cfg, nil
}

// ruleDatabaseDir resolves the rule database: --database, then
// paths.database relative to the project, then the pma home.
func (e *cliEnv) ruleDatabaseDir() string {
	if databaseFlag != "" {
		if abs, err := filepath.Abs(databaseFlag); err == nil {
			return abs
		}
		return databaseFlag
	}
	return paths.ResolveDatabase(e.root, e.cfg.Paths.Database)
}

// ruleVersions returns the manifest ordering when the database carries
// one, else the configured ordering.
func (e *cliEnv) ruleVersions(dir string) ([]string, error) {
	manifest, err := ruledb.LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	if manifest != nil && len(manifest.Versions) > 0 {
		e.logger.Debug("Using manifest version ordering", "versions", len(manifest.Versions))
		return manifest.Versions, nil
	}
	return e.cfg.Versions, nil
}

// openRuleDB opens the rule database or fails with RULE_DATABASE_MISSING.
func (e *cliEnv) openRuleDB() (*ruledb.Database, error) {
	dir := e.ruleDatabaseDir()
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, pmaerrors.Newf(pmaerrors.RuleDatabaseMissing, "rule database not found at %s", dir)
	}
	versions, err := e.ruleVersions(dir)
	if err != nil {
		return nil, err
	}
	return ruledb.New(dir, versions, e.logger), nil
}

// openStorage opens <root>/.pma/pma.db.
func (e *cliEnv) openStorage() (*storage.DB, error) {
	db, err := storage.Open(e.root, e.logger)
	if err != nil {
		return nil, pmaerrors.New(pmaerrors.StorageUnavailable, "failed to open result store", err)
	}
	return db, nil
}

// projectRoot picks the positional path, then --root, then the working
// directory.
func projectRoot(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if rootFlag != "" {
		return rootFlag, nil
	}
	return os.Getwd()
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}
