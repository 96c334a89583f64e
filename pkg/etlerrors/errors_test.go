package etlerrors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCauseAndStack(t *testing.T) {
	inner := New(ErrorTypeNotFound, "missing")
	outer := Wrap(inner, ErrorTypeInternal, "outer")

	require.NotNil(t, outer)
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, errors.Is(outer, inner))
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
}

func TestWrapForeignErrorCapturesStack(t *testing.T) {
	err := Wrap(os.ErrNotExist, ErrorTypeNotFound, "open failed")

	assert.NotEmpty(t, err.Stack)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, "not_found: open failed: file does not exist", err.Error())
}

func TestKindOfFollowsChain(t *testing.T) {
	base := New(ErrorTypeLoadFailed, "copy failed")
	wrapped := fmt.Errorf("load: %w", base)

	assert.Equal(t, ErrorTypeLoadFailed, KindOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeLoadFailed))
	assert.False(t, IsFatal(wrapped))
	assert.True(t, IsFatal(New(ErrorTypeConfig, "bad")))
}

func TestFields(t *testing.T) {
	err := New(ErrorTypeSaveFailed, "write failed").
		WithDetail("path", "/tmp/out.csv").
		WithDetail("format", "csv")

	fields := Fields(err, true)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"error", "kind", "format", "path", "stack"}, keys)

	assert.Len(t, Fields(errors.New("plain"), true), 2)
	assert.Nil(t, Fields(nil, false))
}
