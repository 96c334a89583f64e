// Package source reads the pipeline's input files into datasets.
//
// Read never returns a nil dataset: every failure degrades to table.Empty()
// alongside a classified error that has already been logged, so callers that
// only care about the data may ignore the error.
package source

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ajitpratap0/minietl/pkg/compression"
	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/formats"
	"github.com/ajitpratap0/minietl/pkg/formats/columnar"
	"github.com/ajitpratap0/minietl/pkg/logger"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// LoggerName is the name of the reader's child logger.
const LoggerName = "reader"

// decodeFunc decodes the file at path into a dataset.
type decodeFunc func(ctx context.Context, path string) (*table.Dataset, error)

// Reader dispatches input files to format decoders.
type Reader struct {
	log      *zap.Logger
	decoders map[formats.Format]decodeFunc
}

// NewReader creates a reader logging to a child of log.
func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		log: log.Named(LoggerName),
		decoders: map[formats.Format]decodeFunc{
			formats.CSV:     decodeStream(decodeCSV),
			formats.JSON:    decodeStream(decodeJSON),
			formats.Parquet: decodeParquet,
		},
	}
}

// Read loads the file at path in the given format.
func (r *Reader) Read(ctx context.Context, path, format string) (ds *table.Dataset, err error) {
	log := logger.WithContext(ctx, r.log).With(zap.String("format", format))

	defer func() {
		if p := recover(); p != nil {
			ds = table.Empty()
			err = etlerrors.Newf(etlerrors.ErrorTypeInternal, "decoder panic: %v", p).
				WithDetail("path", path).
				WithDetail("panic_stack", string(debug.Stack()))
			log.Error("unexpected failure reading source", etlerrors.Fields(err, true)...)
		}
	}()

	f, perr := formats.Parse(format)
	decode, ok := r.decoders[f]
	if perr != nil || !ok {
		err = etlerrors.New(etlerrors.ErrorTypeUnsupported, "unsupported source format").
			WithDetail("path", path)
		log.Error("unsupported source format", etlerrors.Fields(err, false)...)
		return table.Empty(), err
	}

	log.Info("reading source", zap.String("path", path))
	ds, err = decode(ctx, path)
	if err != nil {
		err = classify(err, path)
		switch etlerrors.KindOf(err) {
		case etlerrors.ErrorTypeNotFound:
			log.Error("source file not found", etlerrors.Fields(err, false)...)
		case etlerrors.ErrorTypeMalformed:
			log.Error("malformed source file", etlerrors.Fields(err, false)...)
		default:
			log.Error("unexpected failure reading source", etlerrors.Fields(err, true)...)
		}
		return table.Empty(), err
	}

	log.Info("source loaded", zap.String("path", path), zap.Int("rows", ds.NumRows()), zap.Int("columns", ds.NumColumns()))
	return ds, nil
}

// classify maps decoder errors onto the read taxonomy. Errors already typed
// by a decoder keep their type; anything else is internal.
func classify(err error, path string) error {
	var typed *etlerrors.Error
	if errors.As(err, &typed) {
		return typed.WithDetail("path", path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return etlerrors.Wrap(err, etlerrors.ErrorTypeNotFound, "source file not found").WithDetail("path", path)
	}
	return etlerrors.Wrap(err, etlerrors.ErrorTypeInternal, "failed to read source").WithDetail("path", path)
}

// decodeStream adapts a stream decoder to a path decoder, decompressing
// files whose extension names a codec.
func decodeStream(decode func(ctx context.Context, r io.Reader) (*table.Dataset, error)) decodeFunc {
	return func(ctx context.Context, path string) (*table.Dataset, error) {
		f, err := os.Open(path) //nolint:gosec
		if err != nil {
			return nil, err
		}
		defer f.Close()

		rc, err := compression.NewReader(f, compression.FromPath(path))
		if err != nil {
			return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "failed to open compressed stream")
		}
		defer rc.Close()

		return decode(ctx, withoutBOM(rc))
	}
}

// withoutBOM strips a leading UTF-8 byte order mark and decodes UTF-16 input
// that starts with one. Other input passes through as UTF-8.
func withoutBOM(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

func decodeParquet(ctx context.Context, path string) (*table.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return columnar.ReadParquet(ctx, f)
}
