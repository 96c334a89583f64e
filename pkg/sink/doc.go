// Package sink writes the merged dataset to its destinations.
//
// FileSink writes a CSV or Parquet file. DatabaseSink replaces a relational
// table on a Postgres, MySQL, SQLite or DuckDB target. Both sinks log their
// own failures and return them classified with an etlerrors type; neither
// panics, and a failure in one never affects the other.
package sink
