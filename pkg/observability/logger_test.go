package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestRunHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewRunHandler(inner, "regmetal", "ci", observability.ModeCLI))

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.InfoContext(ctx, "header rendered")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "regmetal", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestRunHandler_NoSpanNoTraceIDs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewRunHandler(inner, "regmetal", "", observability.ModeMCP))

	logger.Info("no span")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.Equal(t, "mcp", record["mode"])
}

func TestRunHandler_GroupKeepsServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewRunHandler(inner, "regmetal", "", observability.ModeCLI)).
		WithGroup("device")

	logger.Info("extracted", "name", "uart")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "regmetal", record["service"])

	group, ok := record["device"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "uart", group["name"])
}

func TestRunHandler_RunScope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewRunHandler(inner, "regmetal", "", observability.ModeCLI))

	ctx := observability.WithRun(context.Background(), "uart", "sifive")
	logger.InfoContext(ctx, "rendered", "fields", 3)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "uart", record[observability.KeyDevice])
	assert.Equal(t, "sifive", record[observability.KeyVendor])
	assert.InDelta(t, 3.0, record["fields"], 0)
}

func TestRunHandler_EmptyVendorOmitted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(observability.NewRunHandler(inner, "regmetal", "", observability.ModeMCP))

	logger.InfoContext(observability.WithRun(context.Background(), "spi", ""), "extracted")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "spi", record[observability.KeyDevice])
	assert.NotContains(t, record, observability.KeyVendor)
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(cfg, &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}
