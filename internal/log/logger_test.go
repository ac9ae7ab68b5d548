package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentBot, Output: &buf})
	logger.Info("hello", FieldSessionID, 42)
	assert.Contains(t, buf.String(), "component=bot")
	assert.Contains(t, buf.String(), "session_id=42")

	buf.Reset()
	child := logger.WithComponent(ComponentLedger)
	child.Debug("child")
	assert.Equal(t, ComponentLedger, child.Component())
	assert.Contains(t, buf.String(), "component=ledger")
	assert.NotContains(t, buf.String(), "component=bot")
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("dropped")
	assert.Empty(t, buf.String())
	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentLedger).
		WithOperation(OpAddExpense).
		WithAmount(decimal.RequireFromString("12.50")).
		WithCategory("food").
		WithError(errors.New("boom")).
		WithError(nil)

	assert.Equal(t, "12.5", f[FieldAmount])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 10)
}
