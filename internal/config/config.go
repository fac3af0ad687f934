package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"pma/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. PMA_ANALYSIS_WORKERS=8.
const EnvPrefix = "PMA"

// Config represents the complete pma configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// Versions is the strict ordering of known language versions. Rule files
	// exist for each adjacent pair.
	Versions []string `json:"versions" mapstructure:"versions"`

	Paths    PathsConfig        `json:"paths" mapstructure:"paths"`
	Analysis AnalysisConfig     `json:"analysis" mapstructure:"analysis"`
	Effort   map[string]float64 `json:"effort" mapstructure:"effort"`
	Cache    CacheConfig        `json:"cache" mapstructure:"cache"`
	Logging  LoggingConfig      `json:"logging" mapstructure:"logging"`
	Reports  ReportsConfig      `json:"reports" mapstructure:"reports"`
}

// PathsConfig locates external data
type PathsConfig struct {
	// Database is the rule database root (php-changes/, platforms/).
	Database string `json:"database" mapstructure:"database"`
}

// AnalysisConfig controls file discovery and the worker pool
type AnalysisConfig struct {
	FileExtensions  []string `json:"fileExtensions" mapstructure:"fileExtensions"`
	ExcludePatterns []string `json:"excludePatterns" mapstructure:"excludePatterns"`
	UseGitignore    bool     `json:"useGitignore" mapstructure:"useGitignore"`
	MaxFileSize     int64    `json:"maxFileSize" mapstructure:"maxFileSize"`
	Workers         int      `json:"workers" mapstructure:"workers"`
	TimeoutSeconds  int      `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	ContextLines    int      `json:"contextLines" mapstructure:"contextLines"`
}

// CacheConfig controls the per-file result cache
type CacheConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	TtlSeconds int  `json:"ttlSeconds" mapstructure:"ttlSeconds"`
}

// LoggingConfig controls the analysis log file
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// ReportsConfig holds report defaults
type ReportsConfig struct {
	DefaultFormat   string `json:"defaultFormat" mapstructure:"defaultFormat"`
	IncludeExamples bool   `json:"includeExamples" mapstructure:"includeExamples"`
}

// DefaultVersions is the built-in PHP version ordering.
func DefaultVersions() []string {
	return []string{"7.2", "7.3", "7.4", "8.0", "8.1", "8.2", "8.3", "8.4"}
}

// DefaultEffortRates are hours per issue by severity.
func DefaultEffortRates() map[string]float64 {
	return map[string]float64{
		"critical": 4,
		"high":     2,
		"medium":   1,
		"low":      0.5,
		"info":     0.1,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentVersion,
		Versions: DefaultVersions(),
		Paths: PathsConfig{
			Database: "database",
		},
		Analysis: AnalysisConfig{
			FileExtensions: []string{"php", "inc", "module", "install"},
			ExcludePatterns: []string{
				"vendor/",
				"node_modules/",
				".git/",
				"cache/",
				"temp/",
				"tmp/",
			},
			UseGitignore:   false,
			MaxFileSize:    5 * 1024 * 1024,
			Workers:        0, // 0 = runtime.NumCPU()
			TimeoutSeconds: 300,
			ContextLines:   2,
		},
		Effort: DefaultEffortRates(),
		Cache: CacheConfig{
			Enabled:    true,
			TtlSeconds: 3600,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		Reports: ReportsConfig{
			DefaultFormat:   "text",
			IncludeExamples: true,
		},
	}
}

// LoadConfig loads <root>/.pma/config.{json,yaml,toml}, falling back to the
// defaults when no file exists. PMA_* environment variables override both.
func LoadConfig(root string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath(paths.ProjectDir(root))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{Field: "file", Message: err.Error()}
		}
	}
	return decode(v)
}

// LoadConfigFromPath loads an explicit config file (--config flag).
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can resolve it on Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("versions", d.Versions)
	v.SetDefault("paths.database", d.Paths.Database)
	v.SetDefault("analysis.fileExtensions", d.Analysis.FileExtensions)
	v.SetDefault("analysis.excludePatterns", d.Analysis.ExcludePatterns)
	v.SetDefault("analysis.useGitignore", d.Analysis.UseGitignore)
	v.SetDefault("analysis.maxFileSize", d.Analysis.MaxFileSize)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.timeoutSeconds", d.Analysis.TimeoutSeconds)
	v.SetDefault("analysis.contextLines", d.Analysis.ContextLines)
	for sev, rate := range d.Effort {
		v.SetDefault("effort."+sev, rate)
	}
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttlSeconds", d.Cache.TtlSeconds)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
	v.SetDefault("reports.defaultFormat", d.Reports.DefaultFormat)
	v.SetDefault("reports.includeExamples", d.Reports.IncludeExamples)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "file", Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.pma/config.json
func (c *Config) Save(root string) error {
	dir, err := paths.EnsureProjectDir(root)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if len(c.Versions) < 2 {
		return &ConfigError{Field: "versions", Message: "at least two versions are required"}
	}
	seen := make(map[string]bool, len(c.Versions))
	for _, ver := range c.Versions {
		if ver == "" {
			return &ConfigError{Field: "versions", Message: "empty version identifier"}
		}
		if seen[ver] {
			return &ConfigError{Field: "versions", Message: "duplicate version " + ver}
		}
		seen[ver] = true
	}
	if c.Analysis.Workers < 0 {
		return &ConfigError{Field: "analysis.workers", Message: "must not be negative"}
	}
	if c.Analysis.ContextLines < 0 {
		return &ConfigError{Field: "analysis.contextLines", Message: "must not be negative"}
	}
	for sev, rate := range c.Effort {
		if rate < 0 {
			return &ConfigError{Field: "effort." + sev, Message: "rate must not be negative"}
		}
	}
	switch c.Reports.DefaultFormat {
	case "", "text", "json", "markdown", "html":
	default:
		return &ConfigError{Field: "reports.defaultFormat", Message: "unknown format " + c.Reports.DefaultFormat}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
