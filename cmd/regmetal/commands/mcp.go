package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/regmetal/pkg/mcp"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
)

// NewMCPCommand starts the MCP server on stdio.
func NewMCPCommand(globals *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server for AI agent integration",
		Long: `Start a Model Context Protocol server on stdio exposing:
  - regmetal_render:   render headers and driver sources
  - regmetal_inspect:  extract the register model and naming decisions
  - regmetal_validate: check a document's shape

Logs go to stderr as JSON.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(globals, observability.ModeMCP, cobraCmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer rt.close(cobraCmd.Context())

			maxInput, err := rt.cfg.MaxInputBytes()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:       rt.logger,
				Metrics:      rt.metrics,
				Tracer:       rt.providers.Tracer,
				MaxInputSize: maxInput,
			})

			return srv.Run(cobraCmd.Context())
		},
	}
}
