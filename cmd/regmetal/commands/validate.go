package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/observability"
	"github.com/Sumatoshi-tech/regmetal/pkg/report"
)

// exitCodeValidationFailure is the exit status of a failed shape check.
const exitCodeValidationFailure = 2

// ValidateOptions holds the validate command flags.
type ValidateOptions struct {
	Shape   string
	NoColor bool
}

// NewValidateCommand checks documents against the embedded shape schemas.
func NewValidateCommand(globals *GlobalOptions) *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that DUH documents and object models have the expected shape",
		Long: `Check each document against the minimal DUH or object model schema.
The shape is inferred from the document (a top-level "component" key
means DUH) unless --shape is given. Exits with status 2 when any document
fails.

Examples:
  regmetal validate uart.json5
  regmetal validate --shape objectmodel design.objectModel.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return runValidate(cobraCmd, globals, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Shape, "shape", "", "duh or objectmodel (default: inferred)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	return cmd
}

func inferShape(doc docnode.Node) docload.Shape {
	if mapping, ok := doc.(*docnode.Mapping); ok && mapping.Has("component") {
		return docload.ShapeDUH
	}

	return docload.ShapeObjectModel
}

func runValidate(cmd *cobra.Command, globals *GlobalOptions, opts *ValidateOptions, paths []string) error {
	if opts.NoColor {
		color.NoColor = true //nolint:reassign // library global
	}

	rt, err := newRuntime(globals, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer rt.close(cmd.Context())

	loader, err := newLoader(rt, rt.cfg.Input.MaxSize)
	if err != nil {
		return err
	}

	failed := 0

	for _, path := range paths {
		doc, loadErr := loader.Load(path)
		if loadErr != nil {
			color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, loadErr)

			failed++

			continue
		}

		shape := docload.Shape(strings.ToLower(opts.Shape))
		if shape == "" {
			shape = inferShape(doc)
		}

		issues, checkErr := docload.CheckShape(doc, shape)
		if checkErr != nil {
			return fmt.Errorf("%s: %w", path, checkErr)
		}

		if !globals.Quiet || len(issues) > 0 {
			report.ShapeIssues(cmd.OutOrStdout(), path, shape, issues)
		}

		if len(issues) > 0 {
			failed++
		}
	}

	if failed > 0 {
		return &ExitError{Code: exitCodeValidationFailure}
	}

	return nil
}
