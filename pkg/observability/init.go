package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/Sumatoshi-tech/regmetal"

// Providers holds the initialized observability providers.
type Providers struct {
	// Tracer emits the regmetal.generate, regmetal.extract and regmetal.render spans.
	Tracer trace.Tracer

	// Meter backs GenerationMetrics.
	Meter metric.Meter

	// Logger is the context-aware structured logger.
	Logger *slog.Logger

	// Shutdown flushes pending telemetry, writes the metrics textfile when
	// configured and releases resources. Must be called before process exit.
	Shutdown func(ctx context.Context) error
}

// closer releases one telemetry component.
type closer func(ctx context.Context) error

// closers shut down in reverse registration order.
type closers []closer

func (cs closers) close(ctx context.Context) error {
	var errs []error

	for _, c := range slices.Backward(cs) {
		errs = append(errs, c(ctx))
	}

	return errors.Join(errs...)
}

// Init initializes tracing, metrics and logging, writing logs to stderr.
func Init(cfg Config) (Providers, error) {
	return InitWithWriter(cfg, os.Stderr)
}

// InitWithWriter is Init with an explicit log destination. A one-shot
// generation with no OTLP endpoint and no metrics textfile gets no-op
// tracer and meter.
func InitWithWriter(cfg Config, logOut io.Writer) (Providers, error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return Providers{}, err
	}

	var cleanup closers

	tp, err := newTracerProvider(ctx, cfg, res, &cleanup)
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, err := newMeterProvider(ctx, cfg, res, &cleanup)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), cleanup.close(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	limit := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if limit <= 0 {
		limit = defaultShutdownTimeoutSec * time.Second
	}

	return Providers{
		Tracer: tp.Tracer(instrumentationName),
		Meter:  mp.Meter(instrumentationName),
		Logger: NewLogger(cfg, logOut),
		Shutdown: func(shutdownCtx context.Context) error {
			flushCtx, cancel := context.WithTimeout(shutdownCtx, limit)
			defer cancel()

			return cleanup.close(flushCtx)
		},
	}, nil
}

// NewLogger returns the logger shared by CLI and MCP modes, text unless
// cfg.LogJSON is set.
func NewLogger(cfg Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var base slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		base = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewRunHandler(base, cfg.ServiceName, cfg.Environment, cfg.Mode))
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String("regmetal.app_mode", string(cfg.Mode)))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource, cleanup *closers) (trace.TracerProvider, error) {
	if cfg.OTLP.Endpoint == "" {
		return nooptrace.NewTracerProvider(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLP.Endpoint), otlptracegrpc.WithHeaders(cfg.OTLP.Headers)}
	if cfg.OTLP.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	root := sdktrace.AlwaysSample()
	if cfg.OTLP.SampleRatio > 0 {
		root = sdktrace.TraceIDRatioBased(cfg.OTLP.SampleRatio)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(root)),
	)

	*cleanup = append(*cleanup, tp.Shutdown)

	return tp, nil
}

// newMeterProvider attaches an OTLP periodic reader, a Prometheus textfile
// sink, or both. The sink is written before the provider shuts down.
func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource, cleanup *closers) (metric.MeterProvider, error) {
	if !cfg.exporting() {
		return noopmetric.NewMeterProvider(), nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.OTLP.Endpoint != "" {
		exporterOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.OTLP.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.OTLP.Headers),
		}
		if cfg.OTLP.Insecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}

		exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("create metric exporter: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	var sink *TextfileSink

	if cfg.MetricsTextfile != "" {
		var err error

		sink, err = NewTextfileSink(cfg.MetricsTextfile)
		if err != nil {
			return nil, err
		}

		opts = append(opts, sdkmetric.WithReader(sink.Reader()))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	*cleanup = append(*cleanup, mp.Shutdown)
	if sink != nil {
		// Registered last, so it runs first.
		*cleanup = append(*cleanup, func(context.Context) error { return sink.Write() })
	}

	return mp, nil
}

// ParseOTLPHeaders parses the observability.otlp_headers setting,
// "key=value,key=value". Pairs without '=' are skipped; nil when none remain.
func ParseOTLPHeaders(raw string) map[string]string {
	var headers map[string]string

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		if headers == nil {
			headers = make(map[string]string)
		}

		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return headers
}
