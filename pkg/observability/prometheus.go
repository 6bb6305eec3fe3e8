package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TextfileSink bridges OTel instruments into a private Prometheus registry
// and dumps it to a file in the text exposition format, for pickup by the
// node_exporter textfile collector.
type TextfileSink struct {
	path     string
	registry *prometheus.Registry
	exporter *promexporter.Exporter
}

// NewTextfileSink creates a sink writing to path. Each sink owns its
// registry, so several may coexist in one process.
func NewTextfileSink(path string) (*TextfileSink, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &TextfileSink{path: path, registry: registry, exporter: exporter}, nil
}

// Reader returns the metric reader to attach to a MeterProvider.
func (s *TextfileSink) Reader() sdkmetric.Reader {
	return s.exporter
}

// Registry exposes the underlying registry.
func (s *TextfileSink) Registry() *prometheus.Registry {
	return s.registry
}

// Write gathers the registry and atomically replaces the textfile.
func (s *TextfileSink) Write() error {
	err := prometheus.WriteToTextfile(s.path, s.registry)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", s.path, err)
	}

	return nil
}
