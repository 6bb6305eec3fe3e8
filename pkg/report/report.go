// Package report formats pipeline results for the terminal: collision
// tables, model inspection tables, output file outcomes and shape check
// findings.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/regmetal/pkg/bsp"
	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/extract"
	"github.com/Sumatoshi-tech/regmetal/pkg/layout"
	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

// Collisions prints names produced more than once. Prints nothing when
// there are none.
func Collisions(w io.Writer, collisions []naming.Collision) {
	if len(collisions) == 0 {
		return
	}

	color.New(color.FgYellow).Fprintf(w, "%d macro name collisions (legacy names suppressed after first use)\n", len(collisions))

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Name", "Count"})

	for _, collision := range collisions {
		tbl.AppendRow(table.Row{collision.Name, collision.Count})
	}

	fmt.Fprintln(w, tbl.Render())
}

// Files prints one line per output file, colored by outcome, followed by
// the diff of skipped files when one was computed.
func Files(w io.Writer, results []bsp.FileResult) {
	for _, result := range results {
		attr := color.FgGreen

		switch result.Outcome {
		case bsp.OutcomeSkipped:
			attr = color.FgYellow
		case bsp.OutcomeUnchanged:
			attr = color.FgCyan
		case bsp.OutcomeCreated, bsp.OutcomeOverwritten:
		}

		color.New(attr).Fprintf(w, "%-11s %s\n", result.Outcome, result.Path)

		if result.Diff != "" {
			fmt.Fprint(w, result.Diff)
		}
	}
}

// Inspect prints a summary of model: instances, address blocks, fields
// with their names and layout, and flat registers.
func Inspect(w io.Writer, model *regmodel.DeviceModel, names []naming.FieldNames, stats extract.SessionStats) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "%s: %d instances, %d fields, %d registers\n",
		model.Device, len(model.Instances), len(names), len(model.Registers))
	fmt.Fprintf(w, "session: %d unique fields, %d unique interrupts, %d reused definitions\n\n",
		stats.UniqueFields, stats.UniqueInterrupts, stats.Reused)

	writeInstances(w, model)
	writeBlocks(w, model)
	writeFields(w, names)
	writeRegisters(w, model)
}

func writeInstances(w io.Writer, model *regmodel.DeviceModel) {
	tbl := newTable()
	tbl.SetTitle("Instances")
	tbl.AppendHeader(table.Row{"Index", "Base", "Regions", "Base IRQ", "Interrupts"})

	for _, inst := range model.Instances {
		regions := make([]string, len(inst.BaseAddressesByRegion))
		for idx, region := range inst.BaseAddressesByRegion {
			regions[idx] = fmt.Sprintf("%s@%#x", region.Region, region.Address)
		}

		baseIRQ := "-"
		if inst.BaseInterrupt != nil {
			baseIRQ = strconv.FormatInt(*inst.BaseInterrupt, 10)
		}

		irqs := make([]string, len(inst.Interrupts))
		for idx, irq := range inst.Interrupts {
			label := irq.Name
			if !irq.Named() {
				label = "#" + strconv.Itoa(idx)
			}

			irqs[idx] = fmt.Sprintf("%s=%d", label, irq.Number)
		}

		tbl.AppendRow(table.Row{inst.Index, fmt.Sprintf("%#x", inst.BaseAddress),
			strings.Join(regions, " "), baseIRQ, strings.Join(irqs, " ")})
	}

	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintln(w)
}

func writeBlocks(w io.Writer, model *regmodel.DeviceModel) {
	blocks := model.AddressBlocks()
	if len(blocks) == 0 {
		return
	}

	tbl := newTable()
	tbl.SetTitle("Address blocks")
	tbl.AppendHeader(table.Row{"Name", "Base", "Range", "Size", "Width"})

	for _, block := range blocks {
		tbl.AppendRow(table.Row{block.Name, fmt.Sprintf("%#x", block.BaseAddress),
			fmt.Sprintf("%#x", block.Range), humanize.IBytes(block.Range), block.Width})
	}

	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintln(w)
}

func writeFields(w io.Writer, names []naming.FieldNames) {
	if len(names) == 0 {
		return
	}

	tbl := newTable()
	tbl.SetTitle("Fields")
	tbl.AppendHeader(table.Row{"Name", "Legacy", "Bit", "Byte.Bit", "Width", "Word", "Mask"})

	for _, fieldNames := range names {
		field := fieldNames.Field
		flat := layout.FlatOf(field.BitOffset)
		word := layout.FieldOf(field.BitOffset, field.BitWidth)

		legacy := fieldNames.Legacy
		if !fieldNames.EmitLegacy {
			legacy = "(suppressed)"
		}

		tbl.AppendRow(table.Row{fieldNames.Primary(), legacy, field.BitOffset,
			fmt.Sprintf("%d.%d", flat.Byte, flat.Bit), field.BitWidth,
			fmt.Sprintf("%#x", word.RegisterByte), fmt.Sprintf("0x%08x", word.Mask)})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d fields", len(names))})

	fmt.Fprintln(w, tbl.Render())
	fmt.Fprintln(w)
}

func writeRegisters(w io.Writer, model *regmodel.DeviceModel) {
	if len(model.Registers) == 0 {
		return
	}

	tbl := newTable()
	tbl.SetTitle("Registers")
	tbl.AppendHeader(table.Row{"Name", "Block", "Offset", "Width", "Fields"})

	for _, reg := range model.Registers {
		tbl.AppendRow(table.Row{reg.Name, reg.AddressBlock.Name, reg.OffsetBytes, reg.WidthBits, len(reg.Fields)})
	}

	fmt.Fprintln(w, tbl.Render())
}

// ShapeIssues prints the result of a shape check for the document at label.
func ShapeIssues(w io.Writer, label string, shape docload.Shape, issues []docload.ShapeIssue) {
	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintf(w, "%s is a valid %s document\n", label, shape)

		return
	}

	color.New(color.FgRed).Fprintf(w, "%s failed %s shape check\n", label, shape)

	for _, issue := range issues {
		color.New(color.FgRed).Fprintf(w, "  - %s: %s\n", issue.Field, issue.Description)
	}
}
