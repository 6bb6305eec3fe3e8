package render

import (
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/regmetal/pkg/layout"
	"github.com/Sumatoshi-tech/regmetal/pkg/naming"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

// noInterrupt stands in for instances without interrupts in the
// base interrupt list.
const noInterrupt = -1

// blockSegment keeps address-block macros apart from flat register macros.
const blockSegment = "BLOCK"

// BaseHeader renders the constants header: instance count and bases,
// per-region bases, interrupt offsets, register access helpers,
// address-block geometry, field offset/byte/bit/width macros and flat
// register offset/width macros.
func (r *Renderer) BaseHeader(in Input) string {
	dev := deviceNames(in.Model.Device)
	guard := r.Vendor + "_" + dev.lower + "_h"

	var b builder

	b.line("#include <metal/compiler.h>")
	b.line("#include <metal/io.h>")
	b.blank()
	b.linef("#ifndef %s", guard)
	b.linef("#define %s", guard)
	b.blank()

	r.writeInstances(&b, in, dev)
	r.writeInterrupts(&b, in, dev)

	b.line("// Note: these macros have control_base as a hidden input")
	b.linef("#define %s(offset) (((unsigned long)control_base + offset))", r.access(dev.upper, "REG"))
	b.linef("#define %s(offset) \\", r.access(dev.upper, "REGW"))
	b.linef("   (__METAL_ACCESS_ONCE((__metal_io_u32 *)%s(offset)))", r.access(dev.upper, "REG"))
	b.blank()

	r.writeAddressBlocks(&b, in, dev)
	r.writeFields(&b, in)
	r.writeRegisters(&b, in, dev)

	b.line("#endif")

	return b.String()
}

func (r *Renderer) writeInstances(b *builder, in Input, dev names) {
	bases := r.macro(dev.upper, "BASES")

	b.linef("// To use %s, use it as the", bases)
	b.line("// initializer to an array of ints, i.e.")
	b.linef("// int bases[] = %s;", bases)
	b.blank()
	b.linef("#define %s %d", r.macro(dev.upper, "COUNT"), len(in.Model.Instances))
	b.linef("#define %s %s", bases, hexList(in.Model.BaseAddresses()))

	for _, region := range in.Model.RegionNames() {
		b.linef("#define %s %s", r.macro(dev.upper, naming.Identifier(region), "BASES"), hexList(in.Model.RegionBases(region)))
	}

	b.blank()
}

func (r *Renderer) writeInterrupts(b *builder, in Input, dev names) {
	hasInterrupts := false
	baseList := make([]string, len(in.Model.Instances))

	for idx, inst := range in.Model.Instances {
		if inst.BaseInterrupt == nil {
			baseList[idx] = strconv.Itoa(noInterrupt)

			continue
		}

		hasInterrupts = true
		baseList[idx] = strconv.FormatInt(*inst.BaseInterrupt, 10)
	}

	if !hasInterrupts {
		return
	}

	b.linef("#define %s {%s}", r.macro(dev.upper, "BASE_INTERRUPTS"), strings.Join(baseList, ", "))

	first, _ := in.Model.Representative()

	for idx, irq := range first.Interrupts {
		offset, ok := first.InterruptOffset(irq)
		if !ok {
			continue
		}

		label := strconv.Itoa(idx)
		if irq.Named() {
			label = naming.Identifier(irq.Name)
		}

		b.linef("#define %s %d", r.macro(dev.upper, "INTERRUPT", label), offset)
	}

	b.blank()
}

func (r *Renderer) writeAddressBlocks(b *builder, in Input, dev names) {
	blocks := in.Model.AddressBlocks()
	if len(blocks) == 0 {
		return
	}

	for _, block := range blocks {
		name := naming.Identifier(block.Name)

		b.linef("#define %s %#x", r.macro(dev.upper, blockSegment, name, "BASE_ADDRESS"), block.BaseAddress)
		b.linef("#define %s %#x", r.macro(dev.upper, blockSegment, name, "RANGE"), block.Range)
		b.linef("#define %s %d", r.macro(dev.upper, blockSegment, name, "WIDTH"), block.Width)
	}

	b.blank()
}

func (r *Renderer) writeFields(b *builder, in Input) {
	if len(in.Names) == 0 {
		return
	}

	for _, fieldNames := range in.Names {
		field := fieldNames.Field
		flat := layout.FlatOf(field.BitOffset)

		for _, name := range fieldNames.Emitted() {
			b.linef("#define %s %d", r.macro(name), field.BitOffset)
			b.linef("#define %s %d", r.macro(name, "BYTE"), flat.Byte)
			b.linef("#define %s %d", r.macro(name, "BIT"), flat.Bit)
			b.linef("#define %s %d", r.macro(name, "WIDTH"), field.BitWidth)
		}
	}

	b.blank()
}

func (r *Renderer) writeRegisters(b *builder, in Input, dev names) {
	if len(in.Model.Registers) == 0 {
		return
	}

	regs := uniqueRegisters(in)

	for _, reg := range regs {
		b.linef("#define %s %d", r.access(dev.upper, naming.Identifier(reg.Name)), reg.OffsetBytes)
	}

	b.blank()

	for _, reg := range regs {
		b.linef("#define %s %d", r.access(dev.upper, naming.Identifier(reg.Name), "WIDTH"), reg.WidthBits)
	}

	b.blank()
}

// uniqueRegisters drops flat registers whose macro name was already used;
// a register repeated in two address blocks keeps its first definition.
func uniqueRegisters(in Input) []regmodel.Register {
	seen := make(map[string]bool, len(in.Model.Registers))
	out := make([]regmodel.Register, 0, len(in.Model.Registers))

	for _, reg := range in.Model.Registers {
		name := naming.Identifier(reg.Name)
		if seen[name] {
			continue
		}

		seen[name] = true
		out = append(out, reg)
	}

	return out
}
