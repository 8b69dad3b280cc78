package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/platinummonkey/lineage/pkg/migration"
)

// EnvPrefix prefixes every environment variable, e.g. LINEAGE_LOG_LEVEL
const EnvPrefix = "LINEAGE"

// Config holds all runtime configuration.
// Values are populated from .lineage.yaml, LINEAGE_* env vars and defaults.
type Config struct {
	// Definitions is a YAML file or directory of definition files
	Definitions string `mapstructure:"definitions"`

	Log       LogConfig       `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Checker   CheckerConfig   `mapstructure:"checker"`
	Migration MigrationConfig `mapstructure:"migration"`
	Audit     AuditConfig     `mapstructure:"audit"`

	// Matrix restricts direct migration hops per entity type. Entity types
	// without entries use the default predicate.
	Matrix []MatrixRule `mapstructure:"matrix"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds rules engine settings
type EngineConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	MaxConcurrency int  `mapstructure:"max_concurrency"`
}

// CheckerConfig holds facade settings
type CheckerConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheSize     int           `mapstructure:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	MatrixWorkers int           `mapstructure:"matrix_workers"`
}

// MigrationConfig holds path calculator settings
type MigrationConfig struct {
	MaxCandidatePaths int `mapstructure:"max_candidate_paths"`
}

// AuditConfig holds audit log settings. An empty directory disables the
// file log.
type AuditConfig struct {
	Dir       string `mapstructure:"dir"`
	MaxSizeMB int64  `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// MatrixRule allows direct hops from one version to a list of versions
type MatrixRule struct {
	EntityType string   `mapstructure:"entity_type"`
	From       string   `mapstructure:"from"`
	To         []string `mapstructure:"to"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("definitions", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("engine.metrics_enabled", false)
	v.SetDefault("engine.max_concurrency", 0)
	v.SetDefault("checker.timeout", 30*time.Second)
	v.SetDefault("checker.cache_size", 1024)
	v.SetDefault("checker.cache_ttl", 10*time.Minute)
	v.SetDefault("checker.matrix_workers", 4)
	v.SetDefault("migration.max_candidate_paths", migration.DefaultMaxCandidatePaths)
	v.SetDefault("audit.dir", "")
	v.SetDefault("audit.max_size_mb", 100)
	v.SetDefault("audit.max_files", 10)
}

// newViper creates a viper instance with defaults and env binding. An empty
// path searches for .lineage.yaml in the working and home directories.
func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".lineage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from a file (optional when path is empty), the
// environment and defaults, then validates it
func Load(path string) (*Config, error) {
	return NewLoader(path, nil).Load()
}

func read(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.Engine.MaxConcurrency < 0 {
		return fmt.Errorf("engine max concurrency must not be negative")
	}
	if c.Checker.Timeout < 0 {
		return fmt.Errorf("checker timeout must not be negative")
	}
	if c.Checker.CacheSize < 0 {
		return fmt.Errorf("checker cache size must not be negative")
	}
	if c.Checker.CacheTTL < 0 {
		return fmt.Errorf("checker cache TTL must not be negative")
	}
	if c.Checker.MatrixWorkers <= 0 {
		return fmt.Errorf("checker matrix workers must be positive")
	}
	if c.Migration.MaxCandidatePaths <= 0 {
		return fmt.Errorf("migration max candidate paths must be positive")
	}
	if c.Audit.Dir != "" && (c.Audit.MaxSizeMB <= 0 || c.Audit.MaxFiles <= 0) {
		return fmt.Errorf("audit max size and max files must be positive when the audit log is enabled")
	}

	for i, rule := range c.Matrix {
		if rule.EntityType == "" {
			return fmt.Errorf("matrix rule %d: entity type is required", i)
		}
	}
	if _, err := c.Matrices(); err != nil {
		return err
	}

	return nil
}

// Matrices builds the compatibility matrix of every configured entity type
func (c *Config) Matrices() (map[string]*migration.Matrix, error) {
	edges := make(map[string]map[string][]string)
	for _, rule := range c.Matrix {
		if edges[rule.EntityType] == nil {
			edges[rule.EntityType] = make(map[string][]string)
		}
		edges[rule.EntityType][rule.From] = append(edges[rule.EntityType][rule.From], rule.To...)
	}

	out := make(map[string]*migration.Matrix, len(edges))
	for entityType, e := range edges {
		m, err := migration.ParseMatrix(e)
		if err != nil {
			return nil, fmt.Errorf("matrix for %s: %w", entityType, err)
		}
		out[entityType] = m
	}
	return out, nil
}

// ApplyMatrix installs the configured matrices on a calculator. Entity types
// that had a matrix in previous but no longer do revert to the default
// predicate. Each affected entity type's graph is rebuilt on next use.
func (c *Config) ApplyMatrix(calc *migration.Calculator, previous *Config) error {
	matrices, err := c.Matrices()
	if err != nil {
		return err
	}

	if previous != nil {
		old, err := previous.Matrices()
		if err == nil {
			for entityType := range old {
				if _, ok := matrices[entityType]; !ok {
					calc.SetEntityPredicate(entityType, nil)
				}
			}
		}
	}

	for entityType, m := range matrices {
		calc.SetEntityPredicate(entityType, migration.MatrixPredicate(m))
	}
	return nil
}
