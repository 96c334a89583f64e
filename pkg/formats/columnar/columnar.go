// Package columnar converts datasets to and from Apache Parquet through
// Apache Arrow.
package columnar

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet/compress"

	"github.com/ajitpratap0/minietl/pkg/compression"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// indexColumnPrefix marks index columns stored by dataframe libraries. They
// are not part of the data and are dropped on read.
const indexColumnPrefix = "__index_level_"

// WriterConfig configures the Parquet writer
type WriterConfig struct {
	// Compression is the column codec (none, snappy, gzip, zstd, lz4)
	Compression compression.Algorithm
	// RowGroupSize caps the rows per row group, 0 for the library default
	RowGroupSize int64
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Compression: compression.None,
	}
}

// parquetCodec maps a stream compression algorithm to a Parquet column codec.
func parquetCodec(alg compression.Algorithm) (compress.Compression, error) {
	switch alg {
	case compression.None, "":
		return compress.Codecs.Uncompressed, nil
	case compression.Snappy:
		return compress.Codecs.Snappy, nil
	case compression.Gzip:
		return compress.Codecs.Gzip, nil
	case compression.Zstd:
		return compress.Codecs.Zstd, nil
	case compression.LZ4:
		return compress.Codecs.Lz4Raw, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("unsupported parquet codec: %s", alg)
	}
}

// arrowSchema converts a dataset schema to an Arrow schema.
func arrowSchema(schema table.Schema) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		fields = append(fields, arrow.Field{
			Name:     f.Name,
			Type:     arrowType(f.Type),
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t table.FieldType) arrow.DataType {
	switch t {
	case table.FieldTypeInt:
		return arrow.PrimitiveTypes.Int64
	case table.FieldTypeFloat:
		return arrow.PrimitiveTypes.Float64
	case table.FieldTypeBool:
		return arrow.FixedWidthTypes.Boolean
	case table.FieldTypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func isIndexColumn(name string) bool {
	return strings.HasPrefix(name, indexColumnPrefix)
}
