package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/regmetal/pkg/config"
	"github.com/Sumatoshi-tech/regmetal/pkg/generate"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
	"github.com/Sumatoshi-tech/regmetal/pkg/report"
)

// InspectOptions holds the inspect command flags.
type InspectOptions struct {
	ObjectModel  string
	DUH          string
	Device       string
	MacroPrefix  string
	MaxInputSize string
	JSON         bool
}

// NewInspectCommand prints the extracted model without writing files.
func NewInspectCommand(globals *GlobalOptions) *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the extracted register model and naming decisions",
		Long: `Extract the model from the given documents and print its instances,
address blocks, fields with their macro names and layout, flat registers
and macro name collisions. Nothing is written to disk.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runInspect(cobraCmd, globals, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.ObjectModel, flagObjectModel, "o", "", "object model document")
	flags.StringVarP(&opts.DUH, flagDUH, "d", "", "DUH component document")
	flags.StringVarP(&opts.Device, flagDevice, "D", "", "device name (default: DUH component name)")
	flags.StringVar(&opts.MacroPrefix, flagMacroPrefix, config.DefaultMacroPrefix, "prefix of placement, address-block and field macros")
	flags.StringVar(&opts.MaxInputSize, flagMaxInputSize, config.DefaultMaxInputSize, "largest accepted input document")
	flags.BoolVar(&opts.JSON, "json", false, "print the model as JSON")

	return cmd
}

func inspectMode(opts *InspectOptions) (generate.Mode, error) {
	switch {
	case opts.ObjectModel != "" && opts.DUH != "":
		return generate.ModeAll, nil
	case opts.DUH != "":
		return generate.ModeDriver, nil
	case opts.ObjectModel != "":
		if opts.Device == "" {
			return "", fmt.Errorf("%w: --%s", ErrMissingFlag, flagDevice)
		}

		return generate.ModeHeader, nil
	default:
		return "", fmt.Errorf("%w: --%s or --%s", ErrMissingFlag, flagObjectModel, flagDUH)
	}
}

func runInspect(cmd *cobra.Command, globals *GlobalOptions, opts *InspectOptions) error {
	mode, err := inspectMode(opts)
	if err != nil {
		return err
	}

	rt, err := newRuntime(globals, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	defer rt.close(ctx)

	if !cmd.Flags().Changed(flagMacroPrefix) {
		opts.MacroPrefix = rt.cfg.Render.MacroPrefix
	}

	if !cmd.Flags().Changed(flagMaxInputSize) {
		opts.MaxInputSize = rt.cfg.Input.MaxSize
	}

	loader, err := newLoader(rt, opts.MaxInputSize)
	if err != nil {
		return err
	}

	sources, err := generate.LoadSources(loader, opts.ObjectModel, opts.DUH)
	if err != nil {
		return err
	}

	pipeline := generate.NewPipeline(rt.logger, rt.providers.Tracer, rt.metrics)

	result, err := pipeline.Run(ctx, mode, generate.Options{
		Vendor:      rt.cfg.Vendor,
		Device:      opts.Device,
		MacroPrefix: opts.MacroPrefix,
	}, sources)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		encodeErr := enc.Encode(result.Model)
		if encodeErr != nil {
			return fmt.Errorf("encode model: %w", encodeErr)
		}

		return nil
	}

	report.Inspect(cmd.OutOrStdout(), result.Model, result.Names, result.Stats)
	report.Collisions(cmd.OutOrStdout(), result.Collisions)

	return nil
}
