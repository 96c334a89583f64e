package columnar

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// WriteParquet writes the dataset to w as a single Parquet file. Column types
// come from the dataset's inferred schema. w is never closed, even when it
// is an io.Closer.
func WriteParquet(w io.Writer, ds *table.Dataset, config WriterConfig) error {
	codec, err := parquetCodec(config.Compression)
	if err != nil {
		return err
	}

	schema := ds.Schema()
	arrowSch := arrowSchema(schema)

	pool := memory.NewGoAllocator()
	builder := array.NewRecordBuilder(pool, arrowSch)
	defer builder.Release()

	for r := 0; r < ds.NumRows(); r++ {
		row := ds.Row(r)
		for c, field := range schema.Fields {
			if err := appendValue(builder.Field(c), table.Coerce(row[c], field.Type)); err != nil {
				return fmt.Errorf("failed to append value for field %s: %w", field.Name, err)
			}
		}
	}

	opts := []parquet.WriterProperty{parquet.WithCompression(codec)}
	if config.RowGroupSize > 0 {
		opts = append(opts, parquet.WithMaxRowGroupLength(config.RowGroupSize))
	}
	props := parquet.NewWriterProperties(opts...)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(pool))

	// pqarrow closes sinks that implement io.Closer
	fw, err := pqarrow.NewFileWriter(arrowSch, struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	record := builder.NewRecord()
	defer record.Release()

	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	return nil
}

func appendValue(builder array.Builder, value any) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		b.Append(v)
	case *array.Int64Builder:
		v, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", value)
		}
		b.Append(v)
	case *array.Float64Builder:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", value)
		}
		b.Append(v)
	case *array.StringBuilder:
		b.Append(table.FormatCell(value))
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return fmt.Errorf("expected time.Time, got %T", value)
		}
		b.Append(arrow.Timestamp(v.UnixMicro()))
	default:
		return fmt.Errorf("unsupported builder type: %T", builder)
	}
	return nil
}

// ReadParquet decodes a whole Parquet file into a dataset. Files that are not
// valid Parquet fail with an etlerrors.ErrorTypeMalformed error.
func ReadParquet(ctx context.Context, r parquet.ReaderAtSeeker) (*table.Dataset, error) {
	fr, err := file.NewParquetReader(r)
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "failed to open Parquet file")
	}
	defer fr.Close()

	arrowReader, err := pqarrow.NewFileReader(fr, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "failed to create Arrow reader")
	}

	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "failed to read Parquet data")
	}
	defer tbl.Release()

	numRows := int(tbl.NumRows())
	var columns []string
	var cells [][]any
	for i := 0; i < int(tbl.NumCols()); i++ {
		name := tbl.Schema().Field(i).Name
		if isIndexColumn(name) {
			continue
		}
		columns = append(columns, name)
		cells = append(cells, columnValues(tbl.Column(i), numRows))
	}

	rows := make([][]any, numRows)
	for r := range rows {
		row := make([]any, len(columns))
		for c := range columns {
			row[c] = cells[c][r]
		}
		rows[r] = row
	}

	ds, err := table.New(columns, rows)
	if err != nil {
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "invalid Parquet columns")
	}
	return ds, nil
}

func columnValues(col *arrow.Column, numRows int) []any {
	out := make([]any, 0, numRows)
	for _, chunk := range col.Data().Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			out = append(out, columnValue(chunk, i))
		}
	}
	return out
}

func columnValue(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i)
	case *array.Int8:
		return int64(c.Value(i))
	case *array.Int16:
		return int64(c.Value(i))
	case *array.Int32:
		return int64(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Uint8:
		return int64(c.Value(i))
	case *array.Uint16:
		return int64(c.Value(i))
	case *array.Uint32:
		return int64(c.Value(i))
	case *array.Uint64:
		return table.Normalize(c.Value(i))
	case *array.Float32:
		return float64(c.Value(i))
	case *array.Float64:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Binary:
		return string(c.Value(i))
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return c.Value(i).ToTime(unit)
	case *array.Date32:
		return c.Value(i).ToTime()
	case *array.Date64:
		return c.Value(i).ToTime()
	default:
		return col.ValueStr(i)
	}
}
