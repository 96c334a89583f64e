package sink

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/minietl/pkg/config"
	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/logger"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// DatabaseSinkLoggerName is the name of the database sink's child logger.
const DatabaseSinkLoggerName = "db_sink"

// Target is an open connection to a relational database.
type Target interface {
	// Replace drops the named table if it exists, recreates it from schema
	// and inserts rows, as one transaction where the database allows it.
	Replace(ctx context.Context, name string, schema table.Schema, rows [][]any) error
	// Close releases the connection.
	Close() error
}

// Opener connects to a target described by cfg.
type Opener func(ctx context.Context, cfg config.DatabaseConfig) (Target, error)

// TargetSpec registers a database type with the sink.
type TargetSpec struct {
	Open Opener
	// Network targets need user, password, host, port and name. Embedded
	// targets only need name, a file path.
	Network bool
}

// DatabaseSink replaces a table on a relational target.
type DatabaseSink struct {
	log     *zap.Logger
	targets map[string]TargetSpec
}

// DatabaseSinkOption configures a DatabaseSink.
type DatabaseSinkOption func(*DatabaseSink)

// WithTarget registers or replaces the target for a database type.
func WithTarget(dbType string, spec TargetSpec) DatabaseSinkOption {
	return func(s *DatabaseSink) {
		s.targets[strings.ToLower(dbType)] = spec
	}
}

// NewDatabaseSink creates a database sink with the built-in targets:
// postgres (alias postgresql), mysql, sqlite (alias sqlite3) and duckdb.
func NewDatabaseSink(log *zap.Logger, opts ...DatabaseSinkOption) *DatabaseSink {
	if log == nil {
		log = zap.NewNop()
	}
	s := &DatabaseSink{
		log:     log.Named(DatabaseSinkLoggerName),
		targets: defaultTargets(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fully replaces the configured table with ds. The connection is closed
// on every exit path. An unknown database type is logged and nothing happens.
func (s *DatabaseSink) Load(ctx context.Context, ds *table.Dataset, cfg config.DatabaseConfig) error {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("type", cfg.Type),
		zap.String("table", cfg.Table))

	spec, ok := s.targets[strings.ToLower(strings.TrimSpace(cfg.Type))]
	if !ok {
		err := etlerrors.New(etlerrors.ErrorTypeUnsupportedFormat, "unsupported database type").
			WithDetail("supported", strings.Join(s.Types(), ","))
		log.Error("unsupported database type", etlerrors.Fields(err, false)...)
		return err
	}

	if missing := missingFields(cfg, spec.Network); len(missing) > 0 {
		err := etlerrors.New(etlerrors.ErrorTypeConnection, "incomplete database configuration").
			WithDetail("missing", strings.Join(missing, ","))
		log.Error("failed to connect to database", etlerrors.Fields(err, false)...)
		return err
	}

	name := cfg.Table
	if name == "" {
		name = config.DefaultTable
	}

	err := s.withTarget(ctx, spec.Open, cfg, func(t Target) error {
		return t.Replace(ctx, name, ds.Schema(), ds.Rows())
	})
	if err != nil {
		switch etlerrors.KindOf(err) {
		case etlerrors.ErrorTypeConnection:
			log.Error("failed to connect to database", etlerrors.Fields(err, true)...)
		default:
			log.Error("failed to load table", etlerrors.Fields(err, true)...)
		}
		return err
	}

	log.Info("table replaced", zap.Int("rows", ds.NumRows()))
	return nil
}

// Types returns the registered database types, sorted.
func (s *DatabaseSink) Types() []string {
	types := make([]string, 0, len(s.targets))
	for t := range s.targets {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// withTarget opens a target, runs fn and closes the target whatever fn does,
// including panicking.
func (s *DatabaseSink) withTarget(ctx context.Context, open Opener, cfg config.DatabaseConfig, fn func(Target) error) (err error) {
	t, err := open(ctx, cfg)
	if err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeConnection, "failed to connect to database").
			WithDetail("host", cfg.Host).
			WithDetail("name", cfg.Name)
	}

	defer func() {
		if p := recover(); p != nil {
			err = etlerrors.Newf(etlerrors.ErrorTypeLoadFailed, "load panic: %v", p).
				WithDetail("panic_stack", string(debug.Stack()))
		}
		if cerr := t.Close(); cerr != nil {
			s.log.Warn("failed to close database connection", zap.Error(cerr))
		}
	}()

	if err := fn(t); err != nil {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeLoadFailed, "failed to load table")
	}
	return nil
}

func missingFields(cfg config.DatabaseConfig, network bool) []string {
	fields := []struct {
		name, value string
		network     bool
	}{
		{"user", cfg.User, true},
		{"password", cfg.Password, true},
		{"host", cfg.Host, true},
		{"port", cfg.Port, true},
		{"name", cfg.Name, false},
	}

	var missing []string
	for _, f := range fields {
		if f.network && !network {
			continue
		}
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// createTableSQL renders the CREATE TABLE statement for schema.
func createTableSQL(d dialect, name string, schema table.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (", d.quote(name))
	for i, f := range schema.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", d.quote(f.Name), d.types[f.Type])
	}
	b.WriteString(")")
	return b.String()
}

// insertSQL renders a single-row INSERT for schema.
func insertSQL(d dialect, name string, schema table.Schema) string {
	cols := make([]string, len(schema.Fields))
	marks := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = d.quote(f.Name)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// coerceRows converts every cell to its column's schema type.
func coerceRows(schema table.Schema, rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for r, row := range rows {
		coerced := make([]any, len(row))
		for c, v := range row {
			coerced[c] = table.Coerce(v, schema.Fields[c].Type)
		}
		out[r] = coerced
	}
	return out
}
