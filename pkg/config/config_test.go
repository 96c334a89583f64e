package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
)

const sampleConfig = `
logging:
  log_dir: /var/log/etl
  log_file: etl.log
  log_level: debug
data_paths:
  csv_file: data/sales.csv
  json_file: data/products.json
  parquet_file: data/regions.parquet
  output_file: data/merged.csv
database:
  type: postgres
  user: file_user
  password: file_password
  host: file_host
  port: 5432
  name: file_db
  table: merged_data
pipeline:
  output_format: csv
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearDatabaseEnv blanks every override variable for the test's duration.
// Empty values count as unset.
func clearDatabaseEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func databaseField(cfg Config, key string) string {
	switch key {
	case "database.user":
		return cfg.Database.User
	case "database.password":
		return cfg.Database.Password
	case "database.host":
		return cfg.Database.Host
	case "database.port":
		return cfg.Database.Port
	case "database.name":
		return cfg.Database.Name
	}
	return ""
}

func TestResolveFileValues(t *testing.T) {
	clearDatabaseEnv(t)
	cfg, err := Resolve(writeConfig(t, sampleConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, "/var/log/etl", cfg.Logging.Dir)
	assert.Equal(t, "etl.log", cfg.Logging.File)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "data/sales.csv", cfg.DataPaths.CSVFile)
	assert.Equal(t, "data/regions.parquet", cfg.DataPaths.ParquetFile)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "file_db", cfg.Database.Name)
	assert.Equal(t, "csv", cfg.Pipeline.OutputFormat)
	assert.Equal(t, DefaultCompression, cfg.Pipeline.Compression)
}

func TestResolveDefaults(t *testing.T) {
	clearDatabaseEnv(t)
	cfg, err := Resolve(writeConfig(t, "data_paths:\n  csv_file: a.csv\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogDir, cfg.Logging.Dir)
	assert.Equal(t, DefaultLogFile, cfg.Logging.File)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultOutputFormat, cfg.Pipeline.OutputFormat)
	assert.Equal(t, DefaultTable, cfg.Database.Table)
	assert.Equal(t, DefaultMaxBackups, cfg.Logging.MaxBackups)
}

func TestResolveEnvironmentPrecedence(t *testing.T) {
	keys := []string{"database.user", "database.password", "database.host", "database.port", "database.name"}
	clearDatabaseEnv(t)
	path := writeConfig(t, sampleConfig)
	fileValues, err := Resolve(path, nil)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	// Every subset of the five variables, plus random repeats.
	for mask := 0; mask < 1<<len(keys)+32; mask++ {
		subset := mask
		if mask >= 1<<len(keys) {
			subset = rng.Intn(1 << len(keys))
		}

		t.Run("", func(t *testing.T) {
			clearDatabaseEnv(t)
			want := make(map[string]string, len(keys))
			for i, key := range keys {
				if subset&(1<<i) == 0 {
					want[key] = databaseField(fileValues, key)
					continue
				}
				env, _ := EnvVar(key)
				value := "env_" + env
				t.Setenv(env, value)
				want[key] = value
			}

			cfg, err := Resolve(path, nil)
			require.NoError(t, err)
			for _, key := range keys {
				assert.Equal(t, want[key], databaseField(cfg, key), key)
			}
		})
	}
}

func TestResolveOverridesWin(t *testing.T) {
	clearDatabaseEnv(t)
	cfg, err := Resolve(writeConfig(t, sampleConfig), map[string]string{
		"output_file":   "/tmp/out.parquet",
		"output_format": "parquet",
		"csv_file":      "",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out.parquet", cfg.DataPaths.OutputFile)
	assert.Equal(t, "parquet", cfg.Pipeline.OutputFormat)
	assert.Equal(t, "data/sales.csv", cfg.DataPaths.CSVFile)
}

func TestResolveUnknownOverride(t *testing.T) {
	clearDatabaseEnv(t)
	_, err := Resolve(writeConfig(t, sampleConfig), map[string]string{"table": "x"})
	require.Error(t, err)
	assert.True(t, etlerrors.IsType(err, etlerrors.ErrorTypeConfig))
}

func TestResolveFailures(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{"missing file", nil},
		{"unparsable document", ptr("logging: [unterminated")},
		{"invalid log level", ptr("logging:\n  log_level: loud\n")},
		{"invalid compression", ptr("pipeline:\n  compression: brotli\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.content != nil {
				path = writeConfig(t, *tt.content)
			}
			_, err := Resolve(path, nil)
			require.Error(t, err)
			assert.Equal(t, etlerrors.ErrorTypeConfig, etlerrors.KindOf(err))
			assert.True(t, etlerrors.IsFatal(err))
		})
	}
}

func TestResolveSubstitutesPlaceholders(t *testing.T) {
	clearDatabaseEnv(t)
	t.Setenv("ETL_TEST_TABLE", "from_placeholder")
	cfg, err := Resolve(writeConfig(t, "database:\n  table: ${ETL_TEST_TABLE}\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from_placeholder", cfg.Database.Table)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("ETL_A", "alpha")
	t.Setenv("ETL_EMPTY", "")
	assert.Equal(t, "x alpha y  z", substituteEnvVars("x ${ETL_A} y ${ETL_EMPTY} z"))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace"))
}

func TestRedactedAndSave(t *testing.T) {
	clearDatabaseEnv(t)
	cfg, err := Resolve(writeConfig(t, sampleConfig), nil)
	require.NoError(t, err)

	red := cfg.Redacted()
	assert.Equal(t, "****", red.Database.Password)
	assert.Equal(t, "file_password", cfg.Database.Password)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, Save(path, red))

	again, err := Resolve(path, nil)
	require.NoError(t, err)
	assert.Equal(t, red, again)
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warning", "warn", "error"} {
		_, err := ParseLogLevel(level)
		assert.NoError(t, err, level)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestOverrideKeys(t *testing.T) {
	assert.Equal(t, []string{"csv_file", "json_file", "output_file", "output_format", "parquet_file"}, OverrideKeys())
}

func ptr(s string) *string { return &s }
