// Package pipeline runs the extract, transform and load stages.
//
// A run moves through Init, Extract, Transform, Load and Done. Only Init can
// fail the run: every later failure is absorbed by the stage that hit it,
// logged, and represented downstream as an empty dataset. When the merged
// dataset is empty the Load stage is skipped.
//
//	report, err := pipeline.Run(ctx, pipeline.Options{ConfigPath: "config/config.yaml"})
//	if err != nil {
//	    // configuration could not be resolved
//	}
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/minietl/pkg/compression"
	"github.com/ajitpratap0/minietl/pkg/config"
	"github.com/ajitpratap0/minietl/pkg/logger"
	"github.com/ajitpratap0/minietl/pkg/merge"
	"github.com/ajitpratap0/minietl/pkg/metrics"
	"github.com/ajitpratap0/minietl/pkg/observability"
	"github.com/ajitpratap0/minietl/pkg/sink"
	"github.com/ajitpratap0/minietl/pkg/source"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// LoggerName is the name of the pipeline logger. Components log to children
// of it.
const LoggerName = "pipeline"

// Pipeline executes one run over a resolved configuration.
type Pipeline struct {
	cfg     config.Config
	log     *zap.Logger
	reader  Extractor
	merger  Transformer
	file    FileWriter
	db      TableLoader
	metrics *metrics.Collector
	tracer  *observability.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReader replaces the source reader.
func WithReader(r Extractor) Option {
	return func(p *Pipeline) { p.reader = r }
}

// WithMerger replaces the merger.
func WithMerger(m Transformer) Option {
	return func(p *Pipeline) { p.merger = m }
}

// WithFileSink replaces the file sink.
func WithFileSink(w FileWriter) Option {
	return func(p *Pipeline) { p.file = w }
}

// WithDBSink replaces the database sink.
func WithDBSink(l TableLoader) Option {
	return func(p *Pipeline) { p.db = l }
}

// WithMetrics sets the run's metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// WithTracer sets the stage tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New creates a pipeline. Components not supplied through options are built
// from cfg and log to children of log.
func New(cfg config.Config, log *zap.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		cfg: cfg,
		log: log.Named(LoggerName),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.reader == nil {
		p.reader = source.NewReader(p.log)
	}
	if p.merger == nil {
		p.merger = merge.NewMerger(p.log)
	}
	if p.file == nil {
		alg, _ := compression.Parse(cfg.Pipeline.Compression)
		p.file = sink.NewFileSink(p.log, sink.WithCompression(alg))
	}
	if p.db == nil {
		p.db = sink.NewDatabaseSink(p.log)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewCollector()
	}
	if p.tracer == nil {
		p.tracer = observability.NoopTracer()
	}
	return p
}

// Execute runs Extract, Transform and, unless the merged dataset is empty,
// Load. It always completes; absorbed failures are listed in the report.
func (p *Pipeline) Execute(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		State:      StateInit,
		SourceRows: make(map[string]int, 3),
	}
	ctx = logger.WithRunID(ctx, report.RunID)
	log := logger.WithContext(ctx, p.log)
	log.Info("pipeline started")

	sales, products, regions := p.extract(ctx, report)

	merged := p.transform(ctx, report, sales, products, regions)

	if merged.IsEmpty() {
		report.LoadSkipped = true
		log.Warn("merged dataset is empty, skipping load")
	} else {
		p.load(ctx, report, merged)
	}

	report.State = StateDone
	report.Duration = time.Since(start)
	log.Info("pipeline completed",
		zap.Int("merged_rows", report.MergedRows),
		zap.Int("failures", len(report.Failures)),
		zap.Bool("load_skipped", report.LoadSkipped),
		zap.Duration("duration", report.Duration))
	return report
}

func (p *Pipeline) extract(ctx context.Context, report *Report) (sales, products, regions *table.Dataset) {
	ctx, end := p.enter(ctx, report, StateExtract)
	defer end()

	paths := p.cfg.DataPaths
	sales = p.read(ctx, report, SourceSales, paths.CSVFile, "csv")
	products = p.read(ctx, report, SourceProducts, paths.JSONFile, "json")
	regions = p.read(ctx, report, SourceRegions, paths.ParquetFile, "parquet")
	return sales, products, regions
}

func (p *Pipeline) read(ctx context.Context, report *Report, name, path, format string) *table.Dataset {
	ds, err := p.reader.Read(ctx, path, format)
	if err != nil {
		report.addFailure(StateExtract, name, err)
		p.metrics.RecordFailure(string(StateExtract), err)
	}
	ds = orEmpty(ds, err)
	report.SourceRows[name] = ds.NumRows()
	p.metrics.RecordRowsRead(name, ds.NumRows())
	return ds
}

func (p *Pipeline) transform(ctx context.Context, report *Report, sales, products, regions *table.Dataset) *table.Dataset {
	ctx, end := p.enter(ctx, report, StateTransform)
	defer end()

	merged, err := p.merger.Merge(ctx, sales, products, regions)
	if err != nil {
		report.addFailure(StateTransform, "merger", err)
		p.metrics.RecordFailure(string(StateTransform), err)
	}
	merged = orEmpty(merged, err)
	report.MergedRows = merged.NumRows()
	p.metrics.RecordMergedRows(merged.NumRows())
	return merged
}

// load runs both sinks. A file sink failure does not prevent the database
// attempt. A sink with no destination configured is skipped.
func (p *Pipeline) load(ctx context.Context, report *Report, merged *table.Dataset) {
	ctx, end := p.enter(ctx, report, StateLoad)
	defer end()
	log := logger.WithContext(ctx, p.log)

	if path := p.cfg.DataPaths.OutputFile; path != "" {
		err := p.file.Save(ctx, merged, path, p.cfg.Pipeline.OutputFormat)
		p.recordSink(report, SinkFile, err)
	} else {
		log.Info("no output file configured, skipping file sink")
	}

	if p.cfg.Database.Type != "" {
		err := p.db.Load(ctx, merged, p.cfg.Database)
		p.recordSink(report, SinkDatabase, err)
	} else {
		log.Info("no database configured, skipping database sink")
	}
}

func (p *Pipeline) recordSink(report *Report, name string, err error) {
	if err != nil {
		report.addFailure(StateLoad, name, err)
		p.metrics.RecordFailure(string(StateLoad), err)
	}
	p.metrics.RecordSinkWrite(name, err)
}

// enter moves the run to state and returns the stage context and a function
// closing the stage's span and timer.
func (p *Pipeline) enter(ctx context.Context, report *Report, state State) (context.Context, func()) {
	report.State = state
	ctx = logger.WithStage(ctx, string(state))
	ctx, span := p.tracer.StartStage(ctx, string(state))
	timer := metrics.NewTimer(string(state))
	failures := len(report.Failures)

	logger.WithContext(ctx, p.log).Debug("stage started")
	return ctx, func() {
		for _, f := range report.Failures[failures:] {
			span.RecordError(f.Err)
		}
		d := p.metrics.ObserveStage(timer)
		span.End()
		logger.WithContext(ctx, p.log).Debug("stage finished", zap.Duration("duration", d))
	}
}

// orEmpty folds a failed or missing result into the empty dataset.
func orEmpty(ds *table.Dataset, err error) *table.Dataset {
	if err != nil || ds == nil {
		return table.Empty()
	}
	return ds
}
