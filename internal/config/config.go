package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/jarcompare/internal/logger"
	"github.com/harrison/jarcompare/internal/models"
	"gopkg.in/yaml.v3"
)

// HistoryConfig controls the optional run history store.
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database path (empty = $JARCOMPARE_HOME/history.db)
	DBPath string `yaml:"db_path"`

	// KeepRuns is the number of most recent runs kept (0 = keep all)
	KeepRuns int `yaml:"keep_runs"`
}

// Config is the run configuration. It is built once at startup and passed
// by value, so no stage can change what another stage sees.
type Config struct {
	// Dir is the directory to scan
	Dir string `yaml:"dir"`

	// Extension is the archive filename suffix, e.g. ".jar"
	Extension string `yaml:"extension"`

	// LogFile is the run log path; relative paths resolve against Dir
	LogFile string `yaml:"log_file"`

	// Mode selects adjacent or grouped duplicate detection
	Mode string `yaml:"mode"`

	// LogLevel sets console diagnostic verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Report is an optional .md or .html report path
	Report string `yaml:"report"`

	// Quiet suppresses the console duplicate summary
	Quiet bool `yaml:"quiet"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Dir:       ".",
		Extension: ".jar",
		LogFile:   logger.DefaultLogFile,
		Mode:      models.ModeAdjacent,
		LogLevel:  "info",
		History: HistoryConfig{
			Enabled:  false,
			KeepRuns: 100,
		},
	}
}

// LoadConfig loads configuration from path, merged over the defaults.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fileCfg.Dir != "" {
		cfg.Dir = fileCfg.Dir
	}
	if fileCfg.Extension != "" {
		cfg.Extension = fileCfg.Extension
	}
	if fileCfg.LogFile != "" {
		cfg.LogFile = fileCfg.LogFile
	}
	if fileCfg.Mode != "" {
		cfg.Mode = fileCfg.Mode
	}
	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if fileCfg.Report != "" {
		cfg.Report = fileCfg.Report
	}
	if fileCfg.Quiet {
		cfg.Quiet = true
	}

	// Nested booleans and zero values can be meaningful, so history keys are
	// applied only when present in the file.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, ok := rawMap["history"].(map[string]interface{}); ok {
			if _, exists := section["enabled"]; exists {
				cfg.History.Enabled = fileCfg.History.Enabled
			}
			if _, exists := section["db_path"]; exists {
				cfg.History.DBPath = fileCfg.History.DBPath
			}
			if _, exists := section["keep_runs"]; exists {
				cfg.History.KeepRuns = fileCfg.History.KeepRuns
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads .jarcompare/config.yaml under dir.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".jarcompare", "config.yaml"))
}

// FlagOverrides carries CLI flag values. Nil fields were not set on the
// command line and leave the configuration untouched.
type FlagOverrides struct {
	Dir            *string
	Extension      *string
	LogFile        *string
	Mode           *string
	LogLevel       *string
	Report         *string
	Quiet          *bool
	HistoryEnabled *bool
	HistoryDBPath  *string
}

// MergeWithFlags applies flag values over the configuration.
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if f.Dir != nil {
		c.Dir = *f.Dir
	}
	if f.Extension != nil {
		c.Extension = *f.Extension
	}
	if f.LogFile != nil {
		c.LogFile = *f.LogFile
	}
	if f.Mode != nil {
		c.Mode = *f.Mode
	}
	if f.LogLevel != nil {
		c.LogLevel = *f.LogLevel
	}
	if f.Report != nil {
		c.Report = *f.Report
	}
	if f.Quiet != nil {
		c.Quiet = *f.Quiet
	}
	if f.HistoryEnabled != nil {
		c.History.Enabled = *f.HistoryEnabled
	}
	if f.HistoryDBPath != nil {
		c.History.DBPath = *f.HistoryDBPath
	}
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}
	if c.Extension == "" {
		return fmt.Errorf("extension cannot be empty")
	}
	if strings.ContainsAny(c.Extension, `/\`) {
		return fmt.Errorf("extension %q must not contain path separators", c.Extension)
	}
	if c.LogFile == "" {
		return fmt.Errorf("log_file cannot be empty")
	}
	if c.Mode != models.ModeAdjacent && c.Mode != models.ModeGrouped {
		return fmt.Errorf("invalid mode %q, must be one of: %s, %s", c.Mode, models.ModeAdjacent, models.ModeGrouped)
	}
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: %s", c.LogLevel, strings.Join(logger.ValidLevels, ", "))
	}
	if c.Report != "" {
		switch strings.ToLower(filepath.Ext(c.Report)) {
		case ".md", ".markdown", ".html", ".htm":
		default:
			return fmt.Errorf("report %q must end in .md or .html", c.Report)
		}
	}
	if c.History.KeepRuns < 0 {
		return fmt.Errorf("history.keep_runs must be >= 0, got %d", c.History.KeepRuns)
	}
	return nil
}

// LogPath returns the run log path, resolving a relative LogFile against Dir.
func (c Config) LogPath() string {
	if filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}
	return filepath.Join(c.Dir, c.LogFile)
}

// ExtensionLabel returns the extension without its leading dot ("jar"),
// as used in run log messages.
func (c Config) ExtensionLabel() string {
	return strings.TrimPrefix(c.Extension, ".")
}

// HistoryPath returns the configured history database path, or the default
// one under the jarcompare home directory.
func (c Config) HistoryPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	return GetHistoryDBPath()
}
