// Package formats defines the closed set of tabular file formats the pipeline
// can read and write.
package formats

import (
	"fmt"
	"strings"
)

// Format represents a tabular file format tag.
type Format string

const (
	// CSV is row-delimited text with a header row
	CSV Format = "csv"
	// JSON is an array of objects or JSON Lines
	JSON Format = "json"
	// Parquet is Apache Parquet columnar binary
	Parquet Format = "parquet"
)

var (
	inputFormats  = []Format{CSV, JSON, Parquet}
	outputFormats = []Format{CSV, Parquet}
)

// Parse normalizes a format tag. Unknown tags are returned as-is (lowercased)
// together with an error so that callers can still log the offending value.
func Parse(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range inputFormats {
		if f == known {
			return f, nil
		}
	}
	return f, fmt.Errorf("unknown format %q", s)
}

// IsInput reports whether f can be read by a source reader.
func (f Format) IsInput() bool {
	return contains(inputFormats, f)
}

// IsOutput reports whether f can be written by the file sink.
func (f Format) IsOutput() bool {
	return contains(outputFormats, f)
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return string(f)
}

// Inputs returns the readable formats.
func Inputs() []Format {
	return append([]Format(nil), inputFormats...)
}

// Outputs returns the writable formats.
func Outputs() []Format {
	return append([]Format(nil), outputFormats...)
}

func contains(set []Format, f Format) bool {
	for _, s := range set {
		if s == f {
			return true
		}
	}
	return false
}
