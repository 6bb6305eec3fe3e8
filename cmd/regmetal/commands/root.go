// Package commands implements the regmetal CLI command handlers.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/regmetal/pkg/config"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
	"github.com/Sumatoshi-tech/regmetal/pkg/version"
)

// ExitError ends the process with Code after the command has already
// reported the failure itself.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// NewRootCommand assembles the regmetal command tree.
func NewRootCommand() *cobra.Command {
	globals := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "regmetal",
		Short: "Generate C register headers and drivers from hardware descriptions",
		Long: `regmetal extracts registers, fields, interrupts and address blocks from
DUH component documents and object models and renders C macros and
accessor functions for every device instance.

Commands:
  generate  base header, device header and driver from both documents
  header    base header from an object model
  driver    device header and driver source from a DUH document
  inspect   print the extracted model and naming decisions
  validate  check a document's shape
  mcp       serve the tools over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globals.ConfigPath, "config", "", "config file (default: .regmetal.yaml in ., ./config, /etc/regmetal)")
	rootCmd.PersistentFlags().BoolVarP(&globals.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(
		NewGenerateCommand(globals),
		NewHeaderCommand(globals),
		NewDriverCommand(globals),
		NewInspectCommand(globals),
		NewValidateCommand(globals),
		NewMCPCommand(globals),
		newVersionCommand(),
	)

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regmetal %s\n", version.String())
		},
	}
}

// runtime is the per-invocation environment: configuration and telemetry.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.GenerationMetrics
	logger    *slog.Logger
}

func newRuntime(globals *GlobalOptions, mode observability.AppMode, logOut io.Writer) (*runtime, error) {
	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	switch {
	case globals.Verbose:
		level = slog.LevelDebug
	case globals.Quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.Mode = mode
	obsCfg.OTLP = observability.OTLP{
		Endpoint: cfg.Observability.OTLPEndpoint,
		Headers:  observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders),
		Insecure: cfg.Observability.OTLPInsecure,
	}
	obsCfg.MetricsTextfile = cfg.Observability.MetricsTextfile
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON || mode == observability.ModeMCP

	providers, err := observability.InitWithWriter(obsCfg, logOut)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewGenerationMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &runtime{cfg: cfg, providers: providers, metrics: metrics, logger: providers.Logger}, nil
}

func (rt *runtime) close(ctx context.Context) {
	err := rt.providers.Shutdown(ctx)
	if err != nil {
		rt.logger.Warn("observability shutdown failed", "error", err)
	}
}
