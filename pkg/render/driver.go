package render

import (
	"strconv"
)

const indent = "    "

// DeviceHeader renders the per-device driver header: the vtable struct,
// the device struct and the public prototypes.
func (r *Renderer) DeviceHeader(in Input, index int) string {
	dev := deviceNames(in.Model.Device)
	accs := r.accessors(in)
	guard := r.Vendor + "_" + dev.lower + strconv.Itoa(index) + "_h"

	var b builder

	b.line("#include <metal/compiler.h>")
	b.line("#include <stdint.h>")
	b.line("#include <stdlib.h>")
	b.linef("#include <bsp_%s/%s_%s.h>", dev.lower, r.Vendor, dev.lower)
	b.blank()
	b.linef("#ifndef %s", guard)
	b.linef("#define %s", guard)
	b.blank()
	b.linef("struct metal_%s;", dev.lower)
	b.blank()
	b.linef("struct metal_%s_vtable {", dev.lower)

	for _, acc := range accs {
		b.linef("%svoid (*v_%s_write)(uint32_t *%s_base, %s data);", indent, acc.ident, dev.lower, acc.ctype)
		b.linef("%s%s (*v_%s_read)(uint32_t *%s_base);", indent, acc.ctype, acc.ident, dev.lower)
	}

	b.line("};")
	b.blank()
	b.linef("struct metal_%s {", dev.lower)
	b.linef("%suint32_t *%s_base;", indent, dev.lower)
	b.linef("%sstruct metal_%s_vtable vtable;", indent, dev.lower)
	b.line("};")
	b.blank()

	handle := "const struct metal_" + dev.lower + " *" + dev.lower

	for _, acc := range accs {
		b.linef("void metal_%s_write(%s, %s data);", acc.ident, handle, acc.ctype)
		b.linef("%s metal_%s_read(%s);", acc.ctype, acc.ident, handle)
	}

	b.linef("const struct metal_%s *get_metal_%s(uint8_t index);", dev.lower, dev.lower)
	b.blank()
	b.line("#endif")

	return b.String()
}

// DriverSource renders the driver unit: private accessors operating on a
// raw base pointer, public wrappers dispatching through the vtable, the
// instance table and the lazily initialized lookup by index.
func (r *Renderer) DriverSource(in Input, index int) string {
	dev := deviceNames(in.Model.Device)
	accs := r.accessors(in)

	var b builder

	b.line("#include <stdint.h>")
	b.line("#include <stdlib.h>")
	b.blank()
	b.linef("#include <%s/%s_%s%d.h>", dev.lower, r.Vendor, dev.lower, index)
	b.line("#include <metal/compiler.h>")
	b.line("#include <metal/io.h>")
	b.blank()

	for _, acc := range accs {
		r.writePrivateAccessors(&b, dev, acc)
	}

	for _, acc := range accs {
		r.writePublicAccessors(&b, dev, acc)
	}

	r.writeInstanceTable(&b, dev, accs)

	return b.String()
}

func (r *Renderer) writePrivateAccessors(b *builder, dev names, acc accessor) {
	regw := r.access(dev.upper, "REGW")

	switch acc.kind {
	case accessRegister:
		b.linef("static void %s_write(uint32_t *%s_base, %s data)", acc.ident, dev.lower, acc.ctype)
		b.line("{")
		b.linef("%svolatile uint32_t *control_base = %s_base;", indent, dev.lower)
		b.linef("%s%s(%s) = data;", indent, regw, acc.macro)
		b.line("}")
		b.blank()
		b.linef("static %s %s_read(uint32_t *%s_base)", acc.ctype, acc.ident, dev.lower)
		b.line("{")
		b.linef("%svolatile uint32_t *control_base = %s_base;", indent, dev.lower)
		b.linef("%sreturn %s(%s);", indent, regw, acc.macro)
		b.line("}")
		b.blank()
	case accessField:
		reg := regw + "((" + acc.macro + " / 32) * 4)"
		shift := "(" + acc.macro + " % 32)"

		b.linef("static void %s_write(uint32_t *%s_base, %s data)", acc.ident, dev.lower, acc.ctype)
		b.line("{")
		b.linef("%svolatile uint32_t *control_base = %s_base;", indent, dev.lower)
		b.linef("%suint32_t mask = 0x%08xU;", indent, acc.layout.Mask)
		b.linef("%suint32_t original = %s;", indent, reg)
		b.linef("%s%s = (original & ~mask) | ((data << %s) & mask);", indent, reg, shift)
		b.line("}")
		b.blank()
		b.linef("static %s %s_read(uint32_t *%s_base)", acc.ctype, acc.ident, dev.lower)
		b.line("{")
		b.linef("%svolatile uint32_t *control_base = %s_base;", indent, dev.lower)
		b.linef("%suint32_t mask = 0x%08xU;", indent, acc.layout.Mask)
		b.linef("%sreturn (%s & mask) >> %s;", indent, reg, shift)
		b.line("}")
		b.blank()
	}
}

func (r *Renderer) writePublicAccessors(b *builder, dev names, acc accessor) {
	handle := "const struct metal_" + dev.lower + " *" + dev.lower

	b.linef("void metal_%s_write(%s, %s data)", acc.ident, handle, acc.ctype)
	b.line("{")
	b.linef("%sif (%s != NULL)", indent, dev.lower)
	b.linef("%s%s%s->vtable.v_%s_write(%s->%s_base, data);", indent, indent, dev.lower, acc.ident, dev.lower, dev.lower)
	b.line("}")
	b.blank()
	b.linef("%s metal_%s_read(%s)", acc.ctype, acc.ident, handle)
	b.line("{")
	b.linef("%sif (%s != NULL)", indent, dev.lower)
	b.linef("%s%sreturn %s->vtable.v_%s_read(%s->%s_base);", indent, indent, dev.lower, acc.ident, dev.lower, dev.lower)
	b.linef("%sreturn (%s)-1;", indent, acc.ctype)
	b.line("}")
	b.blank()
}

func (r *Renderer) writeInstanceTable(b *builder, dev names, accs []accessor) {
	count := r.macro(dev.upper, "COUNT")
	device := "metal_" + dev.lower + "s[i]"

	b.linef("struct metal_%s metal_%ss[%s];", dev.lower, dev.lower, count)
	b.linef("struct metal_%s *%s_tables[%s];", dev.lower, dev.lower, count)
	b.linef("uint8_t %s_tables_cnt = %s;", dev.lower, count)
	b.blank()
	b.linef("static void %s_init_devices(void)", dev.lower)
	b.line("{")
	b.linef("%sunsigned long bases[] = %s;", indent, r.macro(dev.upper, "BASES"))
	b.linef("%sint i;", indent)
	b.blank()
	b.linef("%sfor (i = 0; i < %s; i++) {", indent, count)
	b.linef("%s%s%s.%s_base = (uint32_t *)bases[i];", indent, indent, device, dev.lower)

	for _, acc := range accs {
		b.linef("%s%s%s.vtable.v_%s_write = %s_write;", indent, indent, device, acc.ident, acc.ident)
		b.linef("%s%s%s.vtable.v_%s_read = %s_read;", indent, indent, device, acc.ident, acc.ident)
	}

	b.linef("%s%s%s_tables[i] = &%s;", indent, indent, dev.lower, device)
	b.linef("%s}", indent)
	b.line("}")
	b.blank()
	b.linef("const struct metal_%s *get_metal_%s(uint8_t idx)", dev.lower, dev.lower)
	b.line("{")
	b.linef("%sstatic uint8_t initted = 0;", indent)
	b.blank()
	b.linef("%sif (!initted) {", indent)
	b.linef("%s%s%s_init_devices();", indent, indent, dev.lower)
	b.linef("%s%sinitted = 1;", indent, indent)
	b.linef("%s}", indent)
	b.blank()
	b.linef("%sif (idx >= %s_tables_cnt)", indent, dev.lower)
	b.linef("%s%sreturn NULL;", indent, indent)
	b.linef("%sreturn %s_tables[idx];", indent, dev.lower)
	b.line("}")
}
