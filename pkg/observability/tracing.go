// Package observability traces pipeline stages with OpenTelemetry.
//
// Tracing is off unless enabled; a disabled tracer is a no-op, so stages can
// always start spans.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// Writer receives exported spans, stderr when nil
	Writer io.Writer
}

// Tracer starts stage spans.
type Tracer struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// NewTracer creates a tracer exporting spans synchronously to the configured
// writer. A disabled configuration yields a no-op tracer.
func NewTracer(cfg TracingConfig) (*Tracer, error) {
	if !cfg.Enabled {
		return NoopTracer(), nil
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
	)

	return NewTracerWithProcessor(sdktrace.NewSimpleSpanProcessor(exporter), res), nil
}

// NewTracerWithProcessor creates a tracer sending spans to processor.
func NewTracerWithProcessor(processor sdktrace.SpanProcessor, res *resource.Resource) *Tracer {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if res != nil {
		opts = append(opts, sdktrace.WithResource(res))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	return &Tracer{
		tracer:   tp.Tracer("github.com/ajitpratap0/minietl"),
		shutdown: tp.Shutdown,
	}
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() *Tracer {
	return &Tracer{
		tracer:   noop.NewTracerProvider().Tracer(""),
		shutdown: func(context.Context) error { return nil },
	}
}

// Shutdown flushes and stops the tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

// Span wraps a stage span.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// StartStage starts a span named after the pipeline stage.
func (t *Tracer) StartStage(ctx context.Context, stage string) (context.Context, *Span) {
	ctx, span := t.tracer.Start(ctx, "pipeline."+stage)
	return ctx, &Span{
		span:       span,
		startTime:  time.Now(),
		attributes: []attribute.KeyValue{attribute.String("pipeline.stage", stage)},
	}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// RecordError marks the span failed with the error's kind. Nil is ignored.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.attributes = append(s.attributes, attribute.String("error.kind", string(etlerrors.KindOf(err))))
}

// End ends the span.
func (s *Span) End() {
	s.attributes = append(s.attributes, attribute.Float64("duration_seconds", time.Since(s.startTime).Seconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}
