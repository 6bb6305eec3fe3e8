package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.GenerationMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	gm, err := observability.NewGenerationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return gm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestGenerationMetrics_RecordRun(t *testing.T) {
	t.Parallel()

	gm, reader := setupTestMeter(t)
	ctx := context.Background()

	gm.RecordRun(ctx, "header", observability.StatusOK, 20*time.Millisecond)
	gm.RecordRun(ctx, "header", observability.StatusError, 5*time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "regmetal.runs.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "regmetal.errors.total")))

	duration := findMetric(rm, "regmetal.run.duration.seconds")
	require.NotNil(t, duration)

	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}

	assert.Equal(t, uint64(2), count)
}

func TestGenerationMetrics_ModelAndFiles(t *testing.T) {
	t.Parallel()

	gm, reader := setupTestMeter(t)
	ctx := context.Background()

	gm.RecordModel(ctx, "driver", 7, 2)
	gm.RecordFile(ctx, "written")
	gm.RecordFile(ctx, "skipped")

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(7), sumOf(t, findMetric(rm, "regmetal.fields.total")))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "regmetal.collisions.total")))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "regmetal.files.total")))
}

func TestGenerationMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	gm, reader := setupTestMeter(t)
	ctx := context.Background()

	done := gm.TrackInflight(ctx, "generate")
	assert.Equal(t, int64(1), sumOf(t, findMetric(collectMetrics(t, reader), "regmetal.inflight.runs")))

	done()
	assert.Equal(t, int64(0), sumOf(t, findMetric(collectMetrics(t, reader), "regmetal.inflight.runs")))
}
