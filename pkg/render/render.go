// Package render turns an annotated device model into C text: the base
// header with offset/width macros, the per-device driver header and the
// driver source. Every function here is pure; nothing touches the disk.
package render

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/regmetal/pkg/layout"
	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

// DefaultMacroPrefix is prepended to placement, interrupt, address-block
// and field macros. Empty keeps the legacy names, e.g. UART_COUNT.
const DefaultMacroPrefix = ""

// accessPrefix marks the macros libmetal code refers to directly: the
// REG/REGW helpers and the flat register offsets and widths.
const accessPrefix = "METAL"

// Input is a device model together with the names chosen for its fields.
type Input struct {
	Model *regmodel.DeviceModel
	Names []naming.FieldNames
}

// Annotate names the representative instance's fields with engine.
func Annotate(model *regmodel.DeviceModel, engine *naming.Engine) Input {
	return Input{Model: model, Names: engine.NameAll(model.Fields())}
}

// Renderer holds the settings shared by every generated file.
type Renderer struct {
	// Vendor appears in header guards and include paths.
	Vendor string
	// MacroPrefix is prepended to every macro outside the METAL_ access
	// family. Empty emits bare names.
	MacroPrefix string
}

// New creates a renderer.
func New(vendor, macroPrefix string) *Renderer {
	return &Renderer{Vendor: vendor, MacroPrefix: macroPrefix}
}

// macro joins the prefix and parts with underscores.
func (r *Renderer) macro(parts ...string) string {
	if r.MacroPrefix != "" {
		parts = append([]string{r.MacroPrefix}, parts...)
	}

	return strings.Join(parts, "_")
}

// access names a METAL_ access macro; MacroPrefix does not apply.
func (r *Renderer) access(parts ...string) string {
	return strings.Join(append([]string{accessPrefix}, parts...), "_")
}

// names derives the identifiers used for one device type.
type names struct {
	lower string // C identifier stem, e.g. uart
	upper string // macro stem, e.g. UART
}

func deviceNames(device string) names {
	upper := naming.Identifier(device)

	return names{lower: strings.ToLower(upper), upper: upper}
}

// accessorKind distinguishes whole-register and field accessors.
type accessorKind uint8

const (
	accessRegister accessorKind = iota + 1
	accessField
)

// accessor describes one private read/write function pair.
type accessor struct {
	ident  string // lowercase function stem, device prefixed
	macro  string // offset macro the body refers to
	ctype  string // data type
	kind   accessorKind
	layout layout.Field
}

// accessors lists flat registers first, then fields by primary name.
// Fields with no emitted macro and identifiers already taken are skipped.
func (r *Renderer) accessors(in Input) []accessor {
	dev := deviceNames(in.Model.Device)
	seen := make(map[string]bool)

	var out []accessor

	for _, reg := range uniqueRegisters(in) {
		regName := naming.Identifier(reg.Name)
		ident := dev.lower + "_" + strings.ToLower(regName)

		if seen[ident] {
			continue
		}

		seen[ident] = true
		out = append(out, accessor{
			ident: ident,
			macro: r.access(dev.upper, regName),
			ctype: fmt.Sprintf("uint%d_t", reg.WidthBits),
			kind:  accessRegister,
		})
	}

	for _, fieldNames := range in.Names {
		if len(fieldNames.Emitted()) == 0 {
			continue
		}

		primary := fieldNames.Primary()
		ident := strings.ToLower(primary)

		if seen[ident] {
			continue
		}

		seen[ident] = true
		out = append(out, accessor{
			ident:  ident,
			macro:  r.macro(primary),
			ctype:  "uint32_t",
			kind:   accessField,
			layout: layout.FieldOf(fieldNames.Field.BitOffset, fieldNames.Field.BitWidth),
		})
	}

	return out
}

// builder wraps strings.Builder with line helpers.
type builder struct {
	sb strings.Builder
}

func (b *builder) line(s string) {
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

func (b *builder) linef(format string, args ...any) {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteByte('\n')
}

func (b *builder) blank() {
	b.sb.WriteByte('\n')
}

func (b *builder) String() string {
	return b.sb.String()
}

func hexList(values []uint64) string {
	parts := make([]string, len(values))

	for idx, value := range values {
		parts[idx] = fmt.Sprintf("%#x", value)
	}

	return "{" + strings.Join(parts, ", ") + "}"
}
