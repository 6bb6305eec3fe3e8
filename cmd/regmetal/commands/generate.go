package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/regmetal/pkg/bsp"
	"github.com/Sumatoshi-tech/regmetal/pkg/config"
	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/generate"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
	"github.com/Sumatoshi-tech/regmetal/pkg/report"
)

// ErrMissingFlag is returned when a mode's required document flag is absent.
var ErrMissingFlag = errors.New("required flag not set")

// Flag names shared by the generation commands.
const (
	flagObjectModel  = "object-model"
	flagDUH          = "duh-document"
	flagVendor       = "vendor"
	flagDevice       = "device"
	flagBSPDir       = "bsp-dir"
	flagMetalDir     = "metal-dir"
	flagOverwrite    = "overwrite-existing"
	flagDiff         = "diff"
	flagMacroPrefix  = "macro-prefix"
	flagMaxInputSize = "max-input-size"
)

// GenerationOptions holds the flags of generate, header and driver.
type GenerationOptions struct {
	ObjectModel  string
	DUH          string
	Vendor       string
	Device       string
	BSPDir       string
	MetalDir     string
	MacroPrefix  string
	MaxInputSize string
	Index        int
	Overwrite    bool
	Diff         bool
}

// NewGenerateCommand renders all three artifacts from both documents.
func NewGenerateCommand(globals *GlobalOptions) *cobra.Command {
	return newGenerationCommand(globals, generate.ModeAll,
		"generate",
		"Generate the base header, device header and driver source",
		`Extract instance placement from the object model and the register layout
from the DUH document, then write:

  <bsp-dir>/bsp_<device>/<vendor>_<device>.h     base header
  <metal-dir>/<device>/<vendor>_<device>0.h      device header
  <metal-dir>/<vendor>_<device>.c                driver source

Existing files are kept unless --overwrite-existing is given.`)
}

// NewHeaderCommand renders the base header from an object model.
func NewHeaderCommand(globals *GlobalOptions) *cobra.Command {
	return newGenerationCommand(globals, generate.ModeHeader,
		"header",
		"Generate the base header from an object model",
		`Write <bsp-dir>/bsp_<device>/<vendor>_<device>.h with instance bases,
interrupt offsets, address block geometry and field offset macros.`)
}

// NewDriverCommand renders the device header and driver source from a DUH document.
func NewDriverCommand(globals *GlobalOptions) *cobra.Command {
	return newGenerationCommand(globals, generate.ModeDriver,
		"driver",
		"Generate the device header and driver source from a DUH document",
		`Write <metal-dir>/<device>/<vendor>_<device>0.h and <metal-dir>/<vendor>_<device>.c
with per-register and per-field accessors dispatched through a vtable.`)
}

func newGenerationCommand(globals *GlobalOptions, mode generate.Mode, use, short, long string) *cobra.Command {
	opts := &GenerationOptions{}

	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runGeneration(cobraCmd, globals, mode, opts)
		},
	}

	addGenerationFlags(cmd, opts)

	return cmd
}

func addGenerationFlags(cmd *cobra.Command, opts *GenerationOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.ObjectModel, flagObjectModel, "o", "", "object model document")
	flags.StringVarP(&opts.DUH, flagDUH, "d", "", "DUH component document")
	flags.StringVar(&opts.Vendor, flagVendor, config.DefaultVendor, "vendor prefix for file names and guards")
	flags.StringVarP(&opts.Device, flagDevice, "D", "", "device name (default: DUH component name)")
	flags.StringVarP(&opts.BSPDir, flagBSPDir, "b", config.DefaultBSPDir, "BSP output directory")
	flags.StringVarP(&opts.MetalDir, flagMetalDir, "m", config.DefaultMetalDir, "driver output directory")
	flags.StringVar(&opts.MacroPrefix, flagMacroPrefix, config.DefaultMacroPrefix, "prefix of placement, address-block and field macros")
	flags.StringVar(&opts.MaxInputSize, flagMaxInputSize, config.DefaultMaxInputSize, "largest accepted input document (e.g. 64MiB, 0 for no limit)")
	flags.IntVar(&opts.Index, "index", generate.DefaultDeviceIndex, "instance number of the device header")
	flags.BoolVarP(&opts.Overwrite, flagOverwrite, "x", config.DefaultOverwrite, "overwrite existing files")
	flags.BoolVar(&opts.Diff, flagDiff, config.DefaultShowDiff, "show a diff for existing files that are kept")
}

// mergeConfig fills every flag the user did not set from cfg.
func mergeConfig(cmd *cobra.Command, opts *GenerationOptions, cfg *config.Config) {
	flags := cmd.Flags()

	if !flags.Changed(flagVendor) {
		opts.Vendor = cfg.Vendor
	}

	if !flags.Changed(flagBSPDir) {
		opts.BSPDir = cfg.Output.BSPDir
	}

	if !flags.Changed(flagMetalDir) {
		opts.MetalDir = cfg.Output.MetalDir
	}

	if !flags.Changed(flagMacroPrefix) {
		opts.MacroPrefix = cfg.Render.MacroPrefix
	}

	if !flags.Changed(flagMaxInputSize) {
		opts.MaxInputSize = cfg.Input.MaxSize
	}

	if !flags.Changed(flagOverwrite) {
		opts.Overwrite = cfg.Output.Overwrite
	}

	if !flags.Changed(flagDiff) {
		opts.Diff = cfg.Output.ShowDiff
	}
}

func requiredDocuments(mode generate.Mode, opts *GenerationOptions) error {
	if (mode == generate.ModeHeader || mode == generate.ModeAll) && opts.ObjectModel == "" {
		return fmt.Errorf("%w: --%s", ErrMissingFlag, flagObjectModel)
	}

	if (mode == generate.ModeDriver || mode == generate.ModeAll) && opts.DUH == "" {
		return fmt.Errorf("%w: --%s", ErrMissingFlag, flagDUH)
	}

	if mode == generate.ModeHeader && opts.Device == "" {
		return fmt.Errorf("%w: --%s", ErrMissingFlag, flagDevice)
	}

	return nil
}

// newLoader builds a document loader bounded by the configured input size.
func newLoader(rt *runtime, maxInputSize string) (*docload.Loader, error) {
	limits := config.Config{Input: config.InputConfig{MaxSize: maxInputSize}}

	maxBytes, err := limits.MaxInputBytes()
	if err != nil {
		return nil, err
	}

	loader := docload.NewLoader(rt.logger)
	loader.MaxSize = maxBytes

	return loader, nil
}

func runGeneration(cmd *cobra.Command, globals *GlobalOptions, mode generate.Mode, opts *GenerationOptions) error {
	rt, err := newRuntime(globals, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	defer rt.close(ctx)

	mergeConfig(cmd, opts, rt.cfg)

	err = requiredDocuments(mode, opts)
	if err != nil {
		return err
	}

	err = config.ValidateVendor(opts.Vendor)
	if err != nil {
		return err
	}

	loader, err := newLoader(rt, opts.MaxInputSize)
	if err != nil {
		return err
	}

	objectModelPath := opts.ObjectModel
	if mode == generate.ModeDriver {
		objectModelPath = ""
	}

	duhPath := opts.DUH
	if mode == generate.ModeHeader {
		duhPath = ""
	}

	sources, err := generate.LoadSources(loader, objectModelPath, duhPath)
	if err != nil {
		return err
	}

	pipeline := generate.NewPipeline(rt.logger, rt.providers.Tracer, rt.metrics)

	result, err := pipeline.Run(ctx, mode, generate.Options{
		Vendor:      opts.Vendor,
		Device:      opts.Device,
		MacroPrefix: opts.MacroPrefix,
		DeviceIndex: opts.Index,
	}, sources)
	if err != nil {
		return err
	}

	writer := bsp.NewWriter(opts.BSPDir, opts.MetalDir, rt.logger, rt.metrics)
	writer.Overwrite = opts.Overwrite
	writer.ShowDiff = opts.Diff
	writer.Notices = cmd.ErrOrStderr()

	files, err := writer.Write(ctx, result.Artifacts)
	if err != nil {
		return err
	}

	if !globals.Quiet {
		report.Collisions(cmd.ErrOrStderr(), result.Collisions)
		report.Files(cmd.OutOrStdout(), files)
	}

	return nil
}
