package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
)

// envBindings maps database keys to the environment variables that override
// them. A variable only applies when it is set to a non-empty value.
var envBindings = map[string]string{
	"database.user":     "POSTGRES_USER",
	"database.password": "POSTGRES_PASSWORD",
	"database.host":     "POSTGRES_HOST",
	"database.port":     "POSTGRES_PORT",
	"database.name":     "POSTGRES_DB",
}

// overrideKeys maps per-run override names to configuration keys.
var overrideKeys = map[string]string{
	"csv_file":      "data_paths.csv_file",
	"json_file":     "data_paths.json_file",
	"parquet_file":  "data_paths.parquet_file",
	"output_file":   "data_paths.output_file",
	"output_format": "pipeline.output_format",
}

var defaults = map[string]interface{}{
	"logging.log_dir":        DefaultLogDir,
	"logging.log_file":       DefaultLogFile,
	"logging.log_level":      DefaultLogLevel,
	"logging.max_size_mb":    DefaultMaxSizeMB,
	"logging.max_backups":    DefaultMaxBackups,
	"pipeline.output_format": DefaultOutputFormat,
	"pipeline.compression":   DefaultCompression,
	"database.table":         DefaultTable,
}

// OverrideKeys returns the accepted per-run override names, sorted.
func OverrideKeys() []string {
	keys := make([]string, 0, len(overrideKeys))
	for k := range overrideKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvVar returns the environment variable overriding a database key such as
// "database.host".
func EnvVar(key string) (string, bool) {
	v, ok := envBindings[key]
	return v, ok
}

// Resolve loads the configuration document at path and layers environment
// and per-run overrides on top of it. Empty override values are ignored.
// Every failure is an etlerrors.ErrorTypeConfig error.
func Resolve(path string, overrides map[string]string) (Config, error) {
	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "configuration file not found").
				WithDetail("path", path)
		}
		return Config{}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to read configuration file").
			WithDetail("path", path)
	}

	v := viper.New()
	v.SetConfigType(configType(path))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	content := substituteEnvVars(string(raw))
	if err := v.ReadConfig(bytes.NewBufferString(content)); err != nil {
		return Config{}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to parse configuration file").
			WithDetail("path", path)
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to bind environment variable").
				WithDetail("env", env)
		}
	}

	if err := applyOverrides(v, overrides); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to decode configuration").
			WithDetail("path", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyOverrides(v *viper.Viper, overrides map[string]string) error {
	for name, value := range overrides {
		key, ok := overrideKeys[name]
		if !ok {
			return etlerrors.Newf(etlerrors.ErrorTypeConfig, "unknown override %q", name).
				WithDetail("accepted", strings.Join(OverrideKeys(), ","))
		}
		if value == "" {
			continue
		}
		v.Set(key, value)
	}
	return nil
}

// configType picks the viper decoder from the file extension. YAML is the
// fallback since JSON documents parse as YAML too.
func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// Marshal renders a configuration as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "failed to marshal configuration")
	}
	return data, nil
}

// Save writes a configuration to a YAML file.
func Save(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "failed to write configuration file").
			WithDetail("path", path)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Unset variables become empty strings.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
