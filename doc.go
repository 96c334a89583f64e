// Package minietl is a small batch Extract, Transform and Load pipeline that
// merges three sources into one table.
//
// A run reads sales from CSV, products from JSON and regions from Parquet,
// left joins sales with products on product_id and the result with regions
// on order_id, then writes the merged dataset to an output file (CSV or
// Parquet) and replaces a relational table with it (PostgreSQL, MySQL,
// SQLite or DuckDB).
//
// # Failure Model
//
// Only configuration failures stop a run. A missing or malformed source, a
// failed join or a failed sink is logged by the component that hit it and
// represented downstream as an empty dataset. When the merged dataset is
// empty the load stage is skipped with a warning.
//
// # Quick Start
//
//	minietl run --config config/config.yaml
//	minietl run --config config/config.yaml --output-file out/merged.parquet --output-format parquet
//	minietl config --config config/config.yaml
//
// From Go:
//
//	import "github.com/ajitpratap0/minietl/internal/pipeline"
//
//	report, err := pipeline.Run(ctx, pipeline.Options{ConfigPath: "config/config.yaml"})
//	if err != nil {
//	    // the configuration could not be resolved
//	}
//	for _, f := range report.Failures {
//	    fmt.Println(f.Stage, f.Component, f.Kind)
//	}
//
// # Key Packages
//
//	pkg/config        - Configuration resolution (file, environment, overrides)
//	pkg/source        - CSV, JSON and Parquet readers
//	pkg/table         - In-memory dataset, type inference and left join
//	pkg/merge         - The two joins of the transform stage
//	pkg/sink          - File and database sinks
//	pkg/formats       - Format tags and the Parquet codec
//	pkg/compression   - gzip, zstd, snappy and lz4 stream codecs
//	pkg/etlerrors     - Classified errors
//	pkg/logger        - Structured logging to a rotated file
//	pkg/metrics       - Run metrics in the Prometheus text format
//	pkg/observability - One trace span per stage
//
// # Configuration
//
// The configuration document is YAML:
//
//	logging:
//	  log_dir: logs
//	  log_file: pipeline.log
//	data_paths:
//	  csv_file: data/sales.csv
//	  json_file: data/products.json
//	  parquet_file: data/regions.parquet
//	  output_file: output/merged_data.csv
//	database:
//	  type: postgres
//	  host: localhost
//	  port: "5432"
//	  name: warehouse
//	  table: merged_data
//
// POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_HOST, POSTGRES_PORT and
// POSTGRES_DB override the database settings when set. ${VAR_NAME}
// placeholders in the document are substituted from the environment.
package minietl
