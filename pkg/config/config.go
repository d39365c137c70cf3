// Package config provides configuration management for stackagg.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/stack-analysis/pkg/errors"
)

// EnvPrefix is prepended to every environment override, e.g.
// STACKAGG_ANALYSIS_WORKING_DIR.
const EnvPrefix = "STACKAGG"

// Config holds all configuration for the application.
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Input    InputConfig    `mapstructure:"input"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// AnalysisConfig selects what a run computes and where it writes.
type AnalysisConfig struct {
	WorkingDir  string   `mapstructure:"working_dir"`
	TraceID     string   `mapstructure:"trace_id"`
	Analyzers   []string `mapstructure:"analyzers"`
	Formats     []string `mapstructure:"formats"`
	Tags        []string `mapstructure:"tags"`
	CSVSource   string   `mapstructure:"csv_source"`  // tree or keyed
	Compression string   `mapstructure:"compression"` // none, gzip or zstd
	MinPercent  float64  `mapstructure:"min_percent"` // flame graph and call graph pruning threshold
	TopN        int      `mapstructure:"top_n"`
}

// InputConfig describes the trace to read.
type InputConfig struct {
	Format     string `mapstructure:"format"` // collapsed, pprof or jsonl
	Path       string `mapstructure:"path"`
	Process    string `mapstructure:"process"`
	SampleType string `mapstructure:"sample_type"`
	MaxEvents  int    `mapstructure:"max_events"`
	Strict     bool   `mapstructure:"strict"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // none, local or cos
	Prefix    string `mapstructure:"prefix"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	Endpoint  string `mapstructure:"endpoint"`   // overrides the COS bucket URL
	LocalPath string `mapstructure:"local_path"` // for local storage
}

// DatabaseConfig holds the run ledger connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // none, sqlite, postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"` // file path for sqlite
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	// Driver is gorm, or sql to record runs with plain database/sql
	// statements on postgres and mysql.
	Driver string `mapstructure:"driver"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"` // empty logs to stderr
	Format     string `mapstructure:"format"`      // json or text
}

// New returns a viper instance carrying the defaults and env overrides.
// Callers may bind flags to it before calling Decode.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the specified file path. A missing file
// leaves the defaults in place.
func Load(configPath string) (*Config, error) {
	v := New()
	if err := ReadFile(v, configPath); err != nil {
		return nil, err
	}
	return Decode(v)
}

// ReadFile reads configPath into v. With an empty path the standard
// locations are searched.
func ReadFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("stackagg")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/stackagg")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeConfigError, "failed to read config file", err)
	}
	return nil
}

// Decode unmarshals and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to unmarshal config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from raw content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to read config", err)
	}
	return Decode(v)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.working_dir", "./out")
	v.SetDefault("analysis.analyzers", []string{"cpu"})
	v.SetDefault("analysis.formats", []string{"csv", "xml", "speedscope"})
	v.SetDefault("analysis.csv_source", "tree")
	v.SetDefault("analysis.compression", "none")
	v.SetDefault("analysis.min_percent", 0.01)
	v.SetDefault("analysis.top_n", 20)

	v.SetDefault("input.format", "collapsed")
	v.SetDefault("input.process", "unknown")

	v.SetDefault("storage.type", "none")
	v.SetDefault("storage.local_path", "./storage")

	v.SetDefault("database.type", "none")
	v.SetDefault("database.database", "stackagg.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.driver", "gorm")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks the settings that do not depend on the registries.
// Analyzer and format names are checked by the run itself.
func (c *Config) Validate() error {
	switch c.Analysis.CSVSource {
	case "", "tree", "keyed":
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported csv source: %s", c.Analysis.CSVSource)
	}
	switch c.Analysis.Compression {
	case "", "none", "gzip", "zstd":
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported compression: %s", c.Analysis.Compression)
	}
	if c.Analysis.MinPercent < 0 || c.Analysis.MinPercent >= 100 {
		return apperrors.Newf(apperrors.CodeConfigError, "min percent must be in [0, 100): %v", c.Analysis.MinPercent)
	}

	switch c.Storage.Type {
	case "", "none":
	case "local":
		if c.Storage.LocalPath == "" {
			return apperrors.New(apperrors.CodeConfigError, "local storage path is required")
		}
	case "cos":
		if c.Storage.Bucket == "" || c.Storage.Region == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS bucket and region are required")
		}
		if c.Storage.SecretID == "" || c.Storage.SecretKey == "" {
			return apperrors.New(apperrors.CodeConfigError, "COS credentials are required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", c.Storage.Type)
	}

	switch c.Database.Type {
	case "", "none", "sqlite":
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return apperrors.New(apperrors.CodeConfigError, "database host is required")
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported database type: %s", c.Database.Type)
	}
	switch c.Database.Driver {
	case "", "gorm":
	case "sql":
		if c.Database.Type != "postgres" && c.Database.Type != "mysql" {
			return apperrors.Newf(apperrors.CodeConfigError, "database driver sql needs postgres or mysql, not %q", c.Database.Type)
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}

// StorageEnabled reports whether exported files are published.
func (c *Config) StorageEnabled() bool {
	return c.Storage.Type != "" && c.Storage.Type != "none"
}

// DatabaseEnabled reports whether runs are recorded in the ledger.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Type != "" && c.Database.Type != "none"
}

// String renders the non-secret settings for logging.
func (c *Config) String() string {
	return fmt.Sprintf("analyzers=%v formats=%v input=%s:%s storage=%s database=%s",
		c.Analysis.Analyzers, c.Analysis.Formats, c.Input.Format, c.Input.Path,
		c.Storage.Type, c.Database.Type)
}
