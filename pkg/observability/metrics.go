package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal       = "regmetal.runs.total"
	metricRunDuration     = "regmetal.run.duration.seconds"
	metricErrorsTotal     = "regmetal.errors.total"
	metricInflightRuns    = "regmetal.inflight.runs"
	metricFieldsTotal     = "regmetal.fields.total"
	metricCollisionsTotal = "regmetal.collisions.total"
	metricFilesTotal      = "regmetal.files.total"

	attrOp      = "op"
	attrStatus  = "status"
	attrOutcome = "outcome"

	// StatusOK marks a successful run.
	StatusOK = "ok"
	// StatusError marks a failed run.
	StatusError = "error"
)

// durationBucketBoundaries spans 1ms to 60s; a generation run rarely
// leaves the low end.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 60}

// GenerationMetrics holds the instruments recorded by generation runs,
// in RED form (rate, errors, duration) plus model size counters.
type GenerationMetrics struct {
	runsTotal       metric.Int64Counter
	runDuration     metric.Float64Histogram
	errorsTotal     metric.Int64Counter
	inflightRuns    metric.Int64UpDownCounter
	fieldsTotal     metric.Int64Counter
	collisionsTotal metric.Int64Counter
	filesTotal      metric.Int64Counter
}

// NewGenerationMetrics creates the instruments from meter.
func NewGenerationMetrics(mt metric.Meter) (*GenerationMetrics, error) {
	runsTotal, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Total number of generation runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	runDuration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Generation run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed runs"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRuns,
		metric.WithDescription("Number of runs in progress"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRuns, err)
	}

	fieldsTotal, err := mt.Int64Counter(metricFieldsTotal,
		metric.WithDescription("Register fields extracted"),
		metric.WithUnit("{field}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFieldsTotal, err)
	}

	collisionsTotal, err := mt.Int64Counter(metricCollisionsTotal,
		metric.WithDescription("Macro names produced more than once"),
		metric.WithUnit("{name}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCollisionsTotal, err)
	}

	filesTotal, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Output files handled, by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	return &GenerationMetrics{
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		errorsTotal:     errorsTotal,
		inflightRuns:    inflight,
		fieldsTotal:     fieldsTotal,
		collisionsTotal: collisionsTotal,
		filesTotal:      filesTotal,
	}, nil
}

// RecordRun records a finished run with its operation, status and duration.
func (gm *GenerationMetrics) RecordRun(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	gm.runsTotal.Add(ctx, 1, attrs)
	gm.runDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		gm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// RecordModel records the size of an extracted model.
func (gm *GenerationMetrics) RecordModel(ctx context.Context, op string, fields, collisions int) {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))

	gm.fieldsTotal.Add(ctx, int64(fields), attrs)
	gm.collisionsTotal.Add(ctx, int64(collisions), attrs)
}

// RecordFile records one output file and what happened to it.
func (gm *GenerationMetrics) RecordFile(ctx context.Context, outcome string) {
	gm.filesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

// TrackInflight increments the in-progress gauge and returns its decrement.
func (gm *GenerationMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	gm.inflightRuns.Add(ctx, 1, attrs)

	return func() {
		gm.inflightRuns.Add(ctx, -1, attrs)
	}
}
