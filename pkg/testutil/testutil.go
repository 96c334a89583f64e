// Package testutil provides testing utilities for minietl
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// DatabaseEnv lists the environment variables that override database settings.
var DatabaseEnv = []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB"}

// ObservedLogger creates a logger recording every entry at debug level and
// above, for assertions on what a component logged.
func ObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// TestContext creates a test context with a 30-second timeout, cancelled
// when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ClearDatabaseEnv blanks the database environment variables for the
// duration of the test. Blank values are ignored by config.Resolve.
func ClearDatabaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range DatabaseEnv {
		t.Setenv(key, "")
	}
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
