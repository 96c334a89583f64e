// Package config resolves the pipeline configuration.
//
// Resolution layers four sources, lowest precedence first:
//
//  1. built-in defaults (log directory, output format, table name)
//  2. the YAML configuration document
//  3. environment variables for the database connection fields
//  4. explicit per-run overrides supplied by the command line
//
// # Configuration Document
//
//	logging:
//	  log_dir: logs
//	  log_file: pipeline.log
//	  log_level: info
//	data_paths:
//	  csv_file: data/sales.csv
//	  json_file: data/products.json
//	  parquet_file: data/region.parquet
//	  output_file: data/merged_data.csv
//	database:
//	  type: postgres
//	  user: etl
//	  password: ${DB_PASSWORD}
//	  host: localhost
//	  port: 5432
//	  name: warehouse
//	  table: merged_data
//	pipeline:
//	  output_format: csv
//
// ${VAR_NAME} placeholders are substituted from the environment before the
// document is parsed.
//
// # Environment Overrides
//
// POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_PORT and
// POSTGRES_DB replace database.user, database.password, database.host,
// database.port and database.name when set to a non-empty value. Each field
// is overridden independently.
//
// # Usage
//
//	cfg, err := config.Resolve("config/config.yaml", map[string]string{
//	    "output_file": "/tmp/merged.parquet",
//	    "output_format": "parquet",
//	})
//	if err != nil {
//	    log.Fatal(err) // always an etlerrors.ErrorTypeConfig error
//	}
package config
