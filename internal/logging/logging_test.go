package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := ComponentLogger(NewLogger(Config{Level: "debug", Format: FormatJSON, Output: &buf}), "cart")

	l.Debug().Str("item_id", "01H").Msg("item added")

	out := buf.String()
	assert.Contains(t, out, `"component":"cart"`)
	assert.Contains(t, out, `"item_id":"01H"`)
	assert.Contains(t, out, `"message":"item added"`)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: "warn", Format: FormatJSON, Output: &buf})
	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewLoggerWithPath_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cvindex.log")
	result := NewLoggerWithPath(Config{Level: "info", File: path})
	require.True(t, result.UsingFile)
	assert.False(t, result.FallbackUsed)

	result.Logger.Info().Msg("hello")
	require.NoError(t, result.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestNewLoggerWithPath_Fallback(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var buf bytes.Buffer
	result := NewLoggerWithPath(Config{File: filepath.Join(blocker, "nested", "x.log"), Output: &buf})
	assert.False(t, result.UsingFile)
	assert.True(t, result.FallbackUsed)
	assert.NotEmpty(t, result.FallbackReason)
	assert.NoError(t, result.Close())
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	generated := GetOrGenerateTraceID(ctx)
	assert.Len(t, generated, 36)

	ctx = ContextWithTraceID(ctx, "trace-1")
	assert.Equal(t, "trace-1", GetOrGenerateTraceID(ctx))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Format: FormatJSON, Output: &buf})
	ctx := ContextWithTraceID(l.WithContext(context.Background()), "abc")

	FromContext(ctx).Info().Msg("traced")
	assert.Contains(t, buf.String(), `"trace_id":"abc"`)

	// No logger attached: must not panic and must not write.
	FromContext(context.Background()).Info().Msg("dropped")
	FromContext(nil).Info().Msg("dropped") //nolint:staticcheck // nil context is handled explicitly.
}
