package pipeline

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/ajitpratap0/minietl/pkg/config"
	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/logger"
	"github.com/ajitpratap0/minietl/pkg/metrics"
	"github.com/ajitpratap0/minietl/pkg/observability"
)

// Options configures Run.
type Options struct {
	// ConfigPath locates the configuration document
	ConfigPath string
	// Overrides are per-run values keyed by override name, see config.OverrideKeys
	Overrides map[string]string
	// Verbose mirrors log lines to stderr
	Verbose bool
	// MetricsFile receives the run's metrics in the Prometheus text format
	MetricsFile string
	// Trace exports one span per stage to TraceWriter
	Trace       bool
	TraceWriter io.Writer
	// Version is reported as the service version of exported spans
	Version string
}

// Run performs Init, resolving the configuration and building the logger,
// then executes the pipeline. The returned error is always an
// etlerrors.ErrorTypeConfig error from Init; once Init succeeds the run
// completes and stage failures are only reported.
func Run(ctx context.Context, opts Options) (*Report, error) {
	cfg, err := config.Resolve(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return &Report{State: StateInit}, err
	}
	if opts.Verbose {
		cfg.Logging.Console = true
	}

	log, closeLog, err := logger.New(cfg.Logging)
	if err != nil {
		return &Report{State: StateInit}, etlerrors.Wrap(err, etlerrors.ErrorTypeConfig, "failed to initialize logging").
			WithDetail("log_dir", cfg.Logging.Dir)
	}
	defer closeLog()

	tracer, err := observability.NewTracer(observability.TracingConfig{
		Enabled:        opts.Trace,
		ServiceName:    "minietl",
		ServiceVersion: opts.Version,
		Writer:         opts.TraceWriter,
	})
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
		tracer = observability.NoopTracer()
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Warn("failed to shut down tracer", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()
	report := New(cfg, log, WithMetrics(collector), WithTracer(tracer)).Execute(ctx)

	if opts.MetricsFile != "" {
		if err := collector.WriteFile(opts.MetricsFile); err != nil {
			log.Warn("failed to write metrics file", zap.String("path", opts.MetricsFile), zap.Error(err))
		}
	}
	return report, nil
}
