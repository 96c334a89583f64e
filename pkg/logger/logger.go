// Package logger builds the structured logger shared by the pipeline stages.
//
// There is no process-wide logger: New returns a *zap.Logger that the caller
// passes explicitly to each component, which names its own child logger.
// Lines are written in the form
//
//	2024-05-01 12:00:00 - pipeline.reader - INFO - source loaded - {"path": "sales.csv", "rows": 3}
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ajitpratap0/minietl/pkg/config"
)

// TimeLayout is the timestamp layout of every log line.
const TimeLayout = "2006-01-02 15:04:05"

// Separator joins the leading fields of a log line.
const Separator = " - "

// contextKey is the type for context keys
type contextKey string

const (
	// RunIDKey is the context key for the pipeline run ID
	RunIDKey contextKey = "run_id"
	// StageKey is the context key for the current pipeline stage
	StageKey contextKey = "stage"
)

// New builds a logger writing to the rotated file cfg.Dir/cfg.File, creating
// the directory if needed. When cfg.Console is set lines are mirrored to
// stderr. The returned function flushes and closes the file.
func New(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := config.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, cfg.File),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	var out io.Writer = file
	if cfg.Console {
		out = io.MultiWriter(file, os.Stderr)
	}

	log := zap.New(NewCore(zapcore.AddSync(out), level))
	closer := func() {
		_ = log.Sync()
		_ = file.Close()
	}
	return log, closer, nil
}

// NewCore returns a core encoding lines in the pipeline's console layout:
// timestamp, component, level and message.
func NewCore(ws zapcore.WriteSyncer, level zapcore.LevelEnabler) zapcore.Core {
	return componentCore{zapcore.NewCore(zapcore.NewConsoleEncoder(EncoderConfig()), ws, level)}
}

// componentCore writes the level after the logger name. The console encoder
// always places the level first, so the level is folded into the name and
// the encoder's own level field is omitted.
type componentCore struct {
	zapcore.Core
}

func (c componentCore) With(fields []zapcore.Field) zapcore.Core {
	return componentCore{c.Core.With(fields)}
}

func (c componentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c componentCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if ent.LoggerName == "" {
		ent.LoggerName = ent.Level.CapitalString()
	} else {
		ent.LoggerName += Separator + ent.Level.CapitalString()
	}
	return c.Core.Write(ent, fields)
}

// EncoderConfig returns the encoder configuration of the console layout.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "timestamp",
		LevelKey:         zapcore.OmitKey,
		NameKey:          "logger",
		MessageKey:       "message",
		StacktraceKey:    "stacktrace",
		FunctionKey:      zapcore.OmitKey,
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout(TimeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: Separator,
	}
}

// WithRunID returns a copy of ctx carrying the run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithStage returns a copy of ctx carrying the current stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithContext returns log annotated with the run ID and stage found in ctx.
func WithContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		log = log.With(zap.String("run_id", runID))
	}
	if stage, ok := ctx.Value(StageKey).(string); ok {
		log = log.With(zap.String("stage", stage))
	}
	return log
}
