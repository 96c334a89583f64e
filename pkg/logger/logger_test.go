package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/minietl/pkg/config"
)

func TestNewWritesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, closeLog, err := New(config.LoggingConfig{
		Dir:   dir,
		File:  "pipeline.log",
		Level: "info",
	})
	require.NoError(t, err)

	log.Named("pipeline").Named("reader").Info("source loaded", zap.Int("rows", 3))
	log.Debug("hidden")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, "pipeline.log"))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, " - pipeline.reader - INFO - source loaded")
	assert.Contains(t, content, `"rows": 3`)
	assert.NotContains(t, content, "hidden")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Dir: t.TempDir(), File: "x.log", Level: "loud"})
	assert.Error(t, err)
}

func TestCoreLayout(t *testing.T) {
	var buf bytes.Buffer
	log := zap.New(NewCore(zapcore.AddSync(&buf), zapcore.DebugLevel)).Named("pipeline")
	log.Warn("merged dataset is empty")

	line := strings.TrimSpace(buf.String())
	parts := strings.Split(line, Separator)
	require.Len(t, parts, 4)
	assert.Len(t, parts[0], len(TimeLayout))
	assert.Equal(t, "pipeline", parts[1])
	assert.Equal(t, "WARN", parts[2])
	assert.Equal(t, "merged dataset is empty", parts[3])
}

func TestCoreLayoutUnnamed(t *testing.T) {
	var buf bytes.Buffer
	log := zap.New(NewCore(zapcore.AddSync(&buf), zapcore.InfoLevel)).With(zap.String("run_id", "r1"))
	log.Error("boom")
	log.Debug("hidden")

	line := strings.TrimSpace(buf.String())
	parts := strings.Split(line, Separator)
	require.Len(t, parts, 4)
	assert.Equal(t, "ERROR", parts[1])
	assert.Equal(t, "boom", parts[2])
	assert.Equal(t, `{"run_id": "r1"}`, parts[3])
	assert.NotContains(t, line, "hidden")
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithStage(WithRunID(context.Background(), "run-1"), "extract")

	WithContext(ctx, zap.New(core)).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "extract", fields["stage"])
}
