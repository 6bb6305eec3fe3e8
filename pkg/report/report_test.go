package report_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/regmetal/pkg/bsp"
	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/extract"
	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/report"
)

func TestCollisions(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.Collisions(&buf, nil)
	assert.Empty(t, buf.String())

	report.Collisions(&buf, []naming.Collision{{Name: "GPIO_REGISTER_PIN_VALUE", Count: 3}})
	assert.Contains(t, buf.String(), "1 macro name collisions")
	assert.Contains(t, buf.String(), "GPIO_REGISTER_PIN_VALUE")
}

func TestFiles(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.Files(&buf, []bsp.FileResult{
		{Path: "out/sifive_uart.c", Outcome: bsp.OutcomeCreated},
		{Path: "out/uart/sifive_uart0.h", Outcome: bsp.OutcomeSkipped, Diff: "-old\n+new\n"},
	})

	out := buf.String()
	assert.Contains(t, out, "out/sifive_uart.c")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "-old\n+new\n")
}

func TestInspect(t *testing.T) {
	t.Parallel()

	base := int64(4)
	field := regmodel.RegisterField{Name: "enable", GroupName: "control", AddressBlockName: "CTRL", BitOffset: 35, BitWidth: 1}
	model := &regmodel.DeviceModel{
		Device: "uart",
		Instances: []regmodel.DeviceInstance{{
			Name:                  "uart",
			BaseAddress:           0x10013000,
			BaseAddressesByRegion: []regmodel.RegionBase{{Region: "control", Address: 0x10013000}},
			BaseInterrupt:         &base,
			Interrupts:            []regmodel.Interrupt{{Name: "rx", Number: 4}, {Number: 5}},
			RegisterFields:        []regmodel.RegisterField{field},
			AddressBlocks:         []regmodel.AddressBlock{{Name: "CTRL", Range: 4096, Width: 32}},
		}},
		Registers: []regmodel.Register{{Name: "control", WidthBits: 32, AddressBlock: regmodel.AddressBlock{Name: "CTRL"}}},
	}

	names := naming.NewEngine("uart", nil).NameAll(model.Fields())

	var buf bytes.Buffer

	report.Inspect(&buf, model, names, extract.SessionStats{UniqueFields: 1, UniqueInterrupts: 1})

	out := buf.String()
	assert.Contains(t, out, "uart: 1 instances, 1 fields, 1 registers")
	assert.Contains(t, out, "control@0x10013000")
	assert.Contains(t, out, "rx=4")
	assert.Contains(t, out, "#1=5")
	assert.Contains(t, out, "4.0 KiB")
	assert.Contains(t, out, "UART_REGISTER_CTRL_CONTROL_ENABLE")
	assert.Contains(t, out, "4.3")
	assert.Contains(t, out, "0x00000008")
}

func TestShapeIssues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.ShapeIssues(&buf, "uart.duh", docload.ShapeDUH, nil)
	assert.Contains(t, buf.String(), "uart.duh is a valid duh document")

	buf.Reset()
	report.ShapeIssues(&buf, "bad.json", docload.ShapeObjectModel, []docload.ShapeIssue{
		{Field: "(root)", Description: "Must validate at least one schema (anyOf)"},
	})
	assert.Contains(t, buf.String(), "bad.json failed objectmodel shape check")
	assert.Contains(t, buf.String(), "(root): Must validate")
}
