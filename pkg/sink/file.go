package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/minietl/pkg/compression"
	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/formats"
	"github.com/ajitpratap0/minietl/pkg/formats/columnar"
	"github.com/ajitpratap0/minietl/pkg/logger"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// FileSinkLoggerName is the name of the file sink's child logger.
const FileSinkLoggerName = "file_sink"

type encodeFunc func(w io.Writer, ds *table.Dataset, alg compression.Algorithm) error

// FileSink writes datasets to files.
type FileSink struct {
	log         *zap.Logger
	compression compression.Algorithm
	encoders    map[formats.Format]encodeFunc
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithCompression sets the output codec. CSV output is compressed as a
// stream; Parquet output uses it as the column codec.
func WithCompression(alg compression.Algorithm) FileSinkOption {
	return func(s *FileSink) {
		s.compression = alg
	}
}

// NewFileSink creates a file sink logging to a child of log.
func NewFileSink(log *zap.Logger, opts ...FileSinkOption) *FileSink {
	if log == nil {
		log = zap.NewNop()
	}
	s := &FileSink{
		log:         log.Named(FileSinkLoggerName),
		compression: compression.None,
		encoders: map[formats.Format]encodeFunc{
			formats.CSV:     encodeCSV,
			formats.Parquet: encodeParquet,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes ds to path in the given format, replacing any existing file.
// No index column is written. An unsupported format writes nothing.
func (s *FileSink) Save(ctx context.Context, ds *table.Dataset, path, format string) error {
	log := logger.WithContext(ctx, s.log)

	f, _ := formats.Parse(format)
	encode, ok := s.encoders[f]
	if !ok || !f.IsOutput() {
		err := etlerrors.New(etlerrors.ErrorTypeUnsupportedFormat, "unsupported output format").
			WithDetail("path", path).
			WithDetail("format", format)
		log.Error("unsupported output format", etlerrors.Fields(err, false)...)
		return err
	}

	if err := s.write(ds, path, encode); err != nil {
		serr := etlerrors.Wrap(err, etlerrors.ErrorTypeSaveFailed, "failed to save dataset").
			WithDetail("path", path).
			WithDetail("format", format)
		log.Error("failed to save dataset", etlerrors.Fields(serr, true)...)
		return serr
	}

	log.Info("dataset saved",
		zap.String("path", path),
		zap.String("format", format),
		zap.Int("rows", ds.NumRows()),
		zap.String("compression", string(s.compression)))
	return nil
}

func (s *FileSink) write(ds *table.Dataset, path string, encode encodeFunc) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	return encode(f, ds, s.compression)
}

func encodeCSV(w io.Writer, ds *table.Dataset, alg compression.Algorithm) error {
	cw, err := compression.NewWriter(w, alg, compression.Default)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(cw)
	if err := writer.Write(ds.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, ds.NumColumns())
	for r := 0; r < ds.NumRows(); r++ {
		for c, v := range ds.Row(r) {
			record[c] = table.FormatCell(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return cw.Close()
}

func encodeParquet(w io.Writer, ds *table.Dataset, alg compression.Algorithm) error {
	return columnar.WriteParquet(w, ds, columnar.WriterConfig{Compression: alg})
}
