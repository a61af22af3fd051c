package xlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xschedule/pkg/observability/xlog"
)

func build(t *testing.T, b *xlog.Builder) xlog.Logger {
	t.Helper()
	logger, cleanup, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cleanup()) })
	return logger
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug))
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	for _, want := range []string{"debug message", "info message", "warn message", "error message"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().SetOutput(&buf).SetLevelString("warning"))
	ctx := context.Background()

	logger.Info(ctx, "hidden")
	assert.Empty(t, buf.String())

	child := logger.With(slog.String("k", "v"))
	child.Warn(ctx, "visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "k=v")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLogger_JSONWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := build(t, xlog.New().
		SetOutput(&buf).
		SetFormat("json").
		SetAttrs(xlog.Component("scheduler")))

	logger.Error(context.Background(), "run failed", xlog.Err(errors.New("boom")), xlog.Count(3))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "run failed", lines[0]["msg"])
	assert.Equal(t, "boom", lines[0][xlog.KeyError])
	assert.Equal(t, "scheduler", lines[0][xlog.KeyComponent])
	assert.EqualValues(t, 3, lines[0][xlog.KeyCount])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestLogger_OnError(t *testing.T) {
	var got []error
	logger := build(t, xlog.New().
		SetOutput(failingWriter{}).
		SetOnError(func(err error) { got = append(got, err) }))

	logger.Info(context.Background(), "lost")

	require.Len(t, got, 1)
	assert.EqualValues(t, 1, xlog.ErrorCount(logger))
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("bad format", func(t *testing.T) {
		_, _, err := xlog.New().SetFormat("xml").Build()
		assert.ErrorContains(t, err, `unknown format "xml"`)
	})

	t.Run("bad level", func(t *testing.T) {
		_, _, err := xlog.New().SetLevelString("loud").Build()
		assert.ErrorContains(t, err, `unknown level "loud"`)
	})

	t.Run("first error wins", func(t *testing.T) {
		_, _, err := xlog.New().SetLevelString("loud").SetFormat("xml").Build()
		assert.ErrorContains(t, err, "unknown level")
	})

	t.Run("empty rotation path", func(t *testing.T) {
		_, _, err := xlog.New().SetRotation("").Build()
		assert.ErrorIs(t, err, xlog.ErrEmptyFilename)
	})

	t.Run("bad rotation size", func(t *testing.T) {
		_, _, err := xlog.New().SetRotation(t.TempDir()+"/x.log", xlog.WithMaxSize(0)).Build()
		assert.Error(t, err)
	})
}

func TestNop(t *testing.T) {
	logger := xlog.Nop()
	logger.Error(context.Background(), "discarded")
	logger.With(xlog.Component("x")).Warn(context.Background(), "discarded")
	assert.Zero(t, xlog.ErrorCount(logger))
}

func TestDefault(t *testing.T) {
	first := xlog.Default()
	assert.Same(t, first, xlog.Default())
	assert.Same(t, first, xlog.OrDefault(nil))

	custom := xlog.Nop()
	assert.Same(t, custom, xlog.OrDefault(custom))
}
