// Package config provides configuration management for the reconciliation pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vendorrecon/internal/models"
)

// Environment variables that override file settings.
const (
	EnvLogLevel     = "RECON_LOG_LEVEL"
	EnvLogFormat    = "RECON_LOG_FORMAT"
	EnvOutputDir    = "RECON_OUTPUT_DIR"
	EnvMappingTable = "RECON_MAPPING_TABLE"
)

// Configuration validation errors.
var (
	ErrNoSources                = errors.New("at least one source is required")
	ErrSourceMissingID          = errors.New("source id is required")
	ErrSourceMissingURLOrFile   = errors.New("either url or file is required")
	ErrDuplicateSourceID        = errors.New("source id must be unique")
	ErrDuplicateCleanedPath     = errors.New("sources would share a cleaned file")
	ErrNoEnabledSources         = errors.New("at least one source must be enabled")
	ErrInvalidDelimiter         = errors.New("delimiter must be a single character")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingOutputPath        = errors.New("output.base_path is required")
	ErrMissingMappingTable      = errors.New("mapping.table_path is required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrStandardFieldMissingName = errors.New("standard_fields entries need a name")
	ErrIdentifierNotStandard    = errors.New("standard_fields must include " + models.IdentifierField)
)

// Config represents the complete pipeline configuration.
type Config struct {
	Sources        []SourceConfig         `yaml:"sources"`
	StandardFields []models.StandardField `yaml:"standard_fields"`
	Cleaning       CleaningConfig         `yaml:"cleaning"`
	Mapping        MappingConfig          `yaml:"mapping"`
	Output         OutputConfig           `yaml:"output"`
	Logging        LoggingConfig          `yaml:"logging"`
	Retry          RetryPolicy            `yaml:"retry"`
}

// SourceConfig describes one national vendor export.
type SourceConfig struct {
	ID        string `yaml:"id"`
	File      string `yaml:"file"`
	URL       string `yaml:"url"`
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`
	Sheet     string `yaml:"sheet"`
	Enabled   bool   `yaml:"enabled"`
}

// IsLocalFile returns true if this source uses a local file.
func (s *SourceConfig) IsLocalFile() bool {
	return s.File != ""
}

// GetSource returns the file path if local, or URL if remote.
func (s *SourceConfig) GetSource() string {
	if s.IsLocalFile() {
		return s.File
	}

	return s.URL
}

// DelimiterRune returns the configured delimiter, or zero for the default.
func (s *SourceConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	if r == utf8.RuneError {
		return 0
	}

	return r
}

// MappingConfig controls the mapping table and its review gate.
type MappingConfig struct {
	TablePath       string `yaml:"table_path"`
	RequireReviewed bool   `yaml:"require_reviewed"`
	AllowUnmapped   bool   `yaml:"allow_unmapped"`
}

// CleaningRule binds a named cleaning rule to a standard field.
type CleaningRule struct {
	Field string `yaml:"field"`
	Rule  string `yaml:"rule"`
}

// CleaningConfig lists the field cleaning rules in application order.
type CleaningConfig struct {
	Rules []CleaningRule `yaml:"rules"`
}

// OutputConfig defines where artifacts are written.
type OutputConfig struct {
	BasePath        string `yaml:"base_path"`
	RawDir          string `yaml:"raw_dir"`
	CleanedDir      string `yaml:"cleaned_dir"`
	ConsolidatedDir string `yaml:"consolidated_dir"`
	SQLitePath      string `yaml:"sqlite_path"`
	Workbook        bool   `yaml:"workbook"`
}

// RetryPolicy defines retry behavior for remote sources.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when a file leaves a setting out.
// Default paths keep everything under data/ in the usual stage directories.
func Default() *Config {
	return &Config{
		StandardFields: models.DefaultStandardFields,
		Cleaning: CleaningConfig{Rules: []CleaningRule{
			{Field: models.IdentifierField, Rule: "strip-non-alphanumeric"},
			{Field: "vat_number", Rule: "strip-whitespace"},
		}},
		Mapping: MappingConfig{
			TablePath:     "mapping/mapping_table.csv",
			AllowUnmapped: true,
		},
		Output: OutputConfig{
			BasePath:        ".",
			RawDir:          "raw_csvs",
			CleanedDir:      "cleaned_data",
			ConsolidatedDir: "consolidated_data",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults,
// applies environment overrides (including a .env file next to the working
// directory, if present) and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// A missing .env file is the normal case.
	_ = godotenv.Load()

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from RECON_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.BasePath = v
	}

	if v := os.Getenv(EnvMappingTable); v != "" {
		c.Mapping.TablePath = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	enabledCount := 0
	ids := make(map[string]bool, len(c.Sources))
	cleaned := make(map[string]string, len(c.Sources))

	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: source[%d]", ErrSourceMissingID, i)
		}

		if ids[src.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceID, src.ID)
		}

		ids[src.ID] = true

		// BE.csv, BE.txt and be.xlsx all clean to the same file.
		cleanedKey := strings.ToLower(c.CleanedPath(src.ID))
		if other, ok := cleaned[cleanedKey]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", ErrDuplicateCleanedPath, other, src.ID, c.CleanedPath(src.ID))
		}

		cleaned[cleanedKey] = src.ID

		if src.URL == "" && src.File == "" {
			return fmt.Errorf("%w: source %s", ErrSourceMissingURLOrFile, src.ID)
		}

		if utf8.RuneCountInString(src.Delimiter) > 1 {
			return fmt.Errorf("%w: source %s", ErrInvalidDelimiter, src.ID)
		}

		if src.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSources
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Output.BasePath == "" {
		return ErrMissingOutputPath
	}

	if c.Mapping.TablePath == "" {
		return ErrMissingMappingTable
	}

	hasIdentifier := false

	for i, f := range c.StandardFields {
		if f.Name == "" {
			return fmt.Errorf("%w: standard_fields[%d]", ErrStandardFieldMissingName, i)
		}

		if f.Name == models.IdentifierField {
			hasIdentifier = true
		}
	}

	if !hasIdentifier {
		return ErrIdentifierNotStandard
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return ErrInvalidLogLevel
	}

	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// GetEnabledSources returns only enabled sources.
func (c *Config) GetEnabledSources() []SourceConfig {
	var enabled []SourceConfig

	for _, src := range c.Sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	return enabled
}

// FieldCatalog builds the alias catalog from the configured standard fields.
func (c *Config) FieldCatalog() *models.FieldCatalog {
	return models.NewFieldCatalog(c.StandardFields)
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// resolve joins rel onto the output base path unless it is absolute.
func (c *Config) resolve(parts ...string) string {
	if len(parts) > 0 && filepath.IsAbs(parts[0]) {
		return filepath.Join(parts...)
	}

	return filepath.Join(append([]string{c.Output.BasePath}, parts...)...)
}

// MappingTablePath returns the location of the mapping table.
func (c *Config) MappingTablePath() string {
	return c.resolve(c.Mapping.TablePath)
}

// RawPath returns where a downloaded copy of a remote source is stored.
func (c *Config) RawPath(src SourceConfig) string {
	name := filepath.Base(src.ID)
	if filepath.Ext(name) == "" {
		name += ".csv"
	}

	return c.resolve(c.Output.RawDir, name)
}

// CleanedPath returns the cleaned per-source file for a source id.
func (c *Config) CleanedPath(sourceID string) string {
	name := strings.TrimSuffix(filepath.Base(sourceID), filepath.Ext(sourceID)) + ".csv"
	return c.resolve(c.Output.CleanedDir, name)
}

// ConsolidatedPath returns a file inside the consolidated output directory.
func (c *Config) ConsolidatedPath(name string) string {
	return c.resolve(c.Output.ConsolidatedDir, name)
}

// SQLitePath returns the export database path, or "" when export is off.
func (c *Config) SQLitePath() string {
	if c.Output.SQLitePath == "" {
		return ""
	}

	return c.resolve(c.Output.SQLitePath)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sources: %d, MappingTable: %s, Output: %s}",
		len(c.Sources),
		c.Mapping.TablePath,
		c.Output.BasePath,
	)
}
