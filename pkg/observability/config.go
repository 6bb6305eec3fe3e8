// Package observability provides OpenTelemetry tracing, metrics and
// structured logging for every regmetal mode (CLI generation and the MCP
// server), plus an optional Prometheus textfile dump of the run's metrics.
package observability

import "log/slog"

// AppMode is how the regmetal binary was launched.
type AppMode string

const (
	// ModeCLI is a one-shot generate, inspect or validate command.
	ModeCLI AppMode = "cli"
	// ModeMCP serves generation tools over MCP stdio.
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "regmetal"
	defaultShutdownTimeoutSec = 5
)

// OTLP addresses a gRPC collector. The zero value exports nothing.
type OTLP struct {
	Endpoint string
	Headers  map[string]string
	Insecure bool

	// SampleRatio applies to root spans; zero keeps every trace.
	SampleRatio float64
}

// Config holds all observability configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Environment tags logs and the resource when set.
	Environment string
	Mode        AppMode

	OTLP OTLP

	// MetricsTextfile receives the Prometheus exposition of the run's
	// metrics at shutdown, in node_exporter textfile collector format.
	MetricsTextfile string

	LogLevel slog.Level
	LogJSON  bool

	ShutdownTimeoutSec int
}

// exporting reports whether any metric or trace data leaves the process.
func (c Config) exporting() bool {
	return c.OTLP.Endpoint != "" || c.MetricsTextfile != ""
}

// DefaultConfig is what a bare `regmetal generate` runs with: text logs at
// info, no exporters.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
