package sink

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/ajitpratap0/minietl/pkg/config"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// dialect holds the SQL differences between targets.
type dialect struct {
	quote       func(ident string) string
	placeholder func(n int) string
	types       map[table.FieldType]string
}

func doubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func backQuote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func questionMark(int) string { return "?" }

var (
	postgresDialect = dialect{
		quote:       func(ident string) string { return pgx.Identifier{ident}.Sanitize() },
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		types: map[table.FieldType]string{
			table.FieldTypeString:    "TEXT",
			table.FieldTypeInt:       "BIGINT",
			table.FieldTypeFloat:     "DOUBLE PRECISION",
			table.FieldTypeBool:      "BOOLEAN",
			table.FieldTypeTimestamp: "TIMESTAMPTZ",
		},
	}
	mysqlDialect = dialect{
		quote:       backQuote,
		placeholder: questionMark,
		types: map[table.FieldType]string{
			table.FieldTypeString:    "TEXT",
			table.FieldTypeInt:       "BIGINT",
			table.FieldTypeFloat:     "DOUBLE",
			table.FieldTypeBool:      "BOOLEAN",
			table.FieldTypeTimestamp: "DATETIME(6)",
		},
	}
	sqliteDialect = dialect{
		quote:       doubleQuote,
		placeholder: questionMark,
		types: map[table.FieldType]string{
			table.FieldTypeString:    "TEXT",
			table.FieldTypeInt:       "INTEGER",
			table.FieldTypeFloat:     "REAL",
			table.FieldTypeBool:      "BOOLEAN",
			table.FieldTypeTimestamp: "TIMESTAMP",
		},
	}
	duckdbDialect = dialect{
		quote:       doubleQuote,
		placeholder: questionMark,
		types: map[table.FieldType]string{
			table.FieldTypeString:    "VARCHAR",
			table.FieldTypeInt:       "BIGINT",
			table.FieldTypeFloat:     "DOUBLE",
			table.FieldTypeBool:      "BOOLEAN",
			table.FieldTypeTimestamp: "TIMESTAMP",
		},
	}
)

func defaultTargets() map[string]TargetSpec {
	postgres := TargetSpec{Open: openPostgres, Network: true}
	sqlite := TargetSpec{Open: openSQL("sqlite3", sqliteDialect, func(cfg config.DatabaseConfig) string { return cfg.Name })}
	return map[string]TargetSpec{
		"postgres":   postgres,
		"postgresql": postgres,
		"mysql":      {Open: openSQL("mysql", mysqlDialect, mysqlDSN), Network: true},
		"sqlite":     sqlite,
		"sqlite3":    sqlite,
		"duckdb":     {Open: openSQL("duckdb", duckdbDialect, func(cfg config.DatabaseConfig) string { return cfg.Name })},
	}
}

// PostgresDSN builds a postgres:// connection URL.
func PostgresDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	return u.String()
}

func mysqlDSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.Name
	mc.ParseTime = true
	return mc.FormatDSN()
}

// sqlTarget loads through database/sql.
type sqlTarget struct {
	db      *sql.DB
	dialect dialect
}

func openSQL(driver string, d dialect, dsn func(config.DatabaseConfig) string) Opener {
	return func(ctx context.Context, cfg config.DatabaseConfig) (Target, error) {
		db, err := sql.Open(driver, dsn(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s ping failed: %w", driver, err)
		}
		return &sqlTarget{db: db, dialect: d}, nil
	}
}

func (t *sqlTarget) Replace(ctx context.Context, name string, schema table.Schema, rows [][]any) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+t.dialect.quote(name)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(t.dialect, name, schema)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(t.dialect, name, schema))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range coerceRows(schema, rows) {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (t *sqlTarget) Close() error {
	return t.db.Close()
}

// postgresTarget loads through a native pgx connection using COPY.
type postgresTarget struct {
	conn *pgx.Conn
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (Target, error) {
	conn, err := pgx.Connect(ctx, PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &postgresTarget{conn: conn}, nil
}

func (t *postgresTarget) Replace(ctx context.Context, name string, schema table.Schema, rows [][]any) (err error) {
	tx, err := t.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	ident := pgx.Identifier{name}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(postgresDialect, name, schema)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	columns := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		columns[i] = f.Name
	}
	if _, err := tx.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(coerceRows(schema, rows))); err != nil {
		return fmt.Errorf("failed to copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (t *postgresTarget) Close() error {
	return t.conn.Close(context.Background())
}
