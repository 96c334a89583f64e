package config

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/minietl/pkg/compression"
	"github.com/ajitpratap0/minietl/pkg/etlerrors"
)

// Config is the resolved configuration of one pipeline run. It holds only
// value fields, so copies are independent and a resolved Config never changes.
type Config struct {
	// Logging controls the log file written by every stage
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	// DataPaths locates the three sources and the output file
	DataPaths DataPaths `yaml:"data_paths" mapstructure:"data_paths"`
	// Database describes the relational sink
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Pipeline holds output settings
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
}

// LoggingConfig locates the log file and sets its verbosity.
type LoggingConfig struct {
	Dir        string `yaml:"log_dir" mapstructure:"log_dir"`
	File       string `yaml:"log_file" mapstructure:"log_file"`
	Level      string `yaml:"log_level" mapstructure:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	// Console mirrors log lines to stderr
	Console bool `yaml:"console" mapstructure:"console"`
}

// DataPaths holds the source and output file paths.
type DataPaths struct {
	CSVFile     string `yaml:"csv_file" mapstructure:"csv_file"`
	JSONFile    string `yaml:"json_file" mapstructure:"json_file"`
	ParquetFile string `yaml:"parquet_file" mapstructure:"parquet_file"`
	OutputFile  string `yaml:"output_file" mapstructure:"output_file"`
}

// DatabaseConfig describes the relational sink. Type selects the target:
// postgres and mysql are network targets, sqlite and duckdb are embedded
// targets where Name is a file path.
type DatabaseConfig struct {
	Type     string `yaml:"type" mapstructure:"type"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Name     string `yaml:"name" mapstructure:"name"`
	Table    string `yaml:"table" mapstructure:"table"`
}

// PipelineConfig holds output settings.
type PipelineConfig struct {
	// OutputFormat is the file sink format (csv or parquet)
	OutputFormat string `yaml:"output_format" mapstructure:"output_format"`
	// Compression is the output codec (none, gzip, zstd, lz4, snappy)
	Compression string `yaml:"compression" mapstructure:"compression"`
}

// Default values applied beneath the configuration document.
const (
	DefaultLogDir       = "logs"
	DefaultLogFile      = "pipeline.log"
	DefaultLogLevel     = "info"
	DefaultOutputFormat = "csv"
	DefaultCompression  = "none"
	DefaultTable        = "merged_data"
	DefaultMaxSizeMB    = 100
	DefaultMaxBackups   = 3
)

const redacted = "****"

// Validate checks values that would prevent the run from starting. Output
// formats and database types are deliberately not checked here: the sinks
// treat unsupported values as soft failures.
func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "invalid log level").
			WithDetail("log_level", c.Logging.Level)
	}
	if _, err := compression.Parse(c.Pipeline.Compression); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "invalid compression").
			WithDetail("compression", c.Pipeline.Compression)
	}
	if c.Logging.File == "" {
		return etlerrors.New(etlerrors.ErrorTypeConfig, "logging.log_file is required")
	}
	return nil
}

// Redacted returns a copy with the database password masked.
func (c Config) Redacted() Config {
	if c.Database.Password != "" {
		c.Database.Password = redacted
	}
	return c
}

// ParseLogLevel parses a level name case-insensitively. "warning" is accepted
// as an alias for "warn".
func ParseLogLevel(level string) (zapcore.Level, error) {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == "warning" {
		l = "warn"
	}
	return zapcore.ParseLevel(l)
}
