package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "regmetal", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5, cfg.ShutdownTimeoutSec)
	assert.Empty(t, cfg.OTLP.Endpoint)
	assert.Empty(t, cfg.MetricsTextfile)
}

func TestInit_NoopWhenNothingConfigured(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	providers, err := observability.InitWithWriter(observability.DefaultConfig(), &logs)
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	_, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_WritesMetricsTextfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "regmetal.prom")

	cfg := observability.DefaultConfig()
	cfg.MetricsTextfile = path
	cfg.ServiceVersion = "1.0.0"

	var logs bytes.Buffer

	providers, err := observability.InitWithWriter(cfg, &logs)
	require.NoError(t, err)

	metrics, err := observability.NewGenerationMetrics(providers.Meter)
	require.NoError(t, err)

	metrics.RecordModel(context.Background(), "generate", 4, 1)

	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "regmetal_fields")
	assert.Contains(t, string(data), "target_info")
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"api-key": "abc", "tenant": "hw"},
		observability.ParseOTLPHeaders(" api-key = abc ,tenant=hw"),
	)
}
