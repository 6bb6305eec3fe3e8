// Package layout decomposes absolute field bit offsets into register byte
// offsets, bit positions and masks, assuming 32-bit register granularity.
package layout

const (
	bitsPerByte     = 8
	registerBits    = 32
	registerBytes   = registerBits / bitsPerByte
	fullMask        = uint32(0xFFFFFFFF)
	maxShiftedWidth = registerBits
)

// Flat is the byte/bit split used by the offset macros.
type Flat struct {
	Byte uint64
	Bit  uint64
}

// FlatOf splits an absolute bit offset into byte and bit-within-byte.
func FlatOf(bitOffset uint64) Flat {
	return Flat{Byte: bitOffset / bitsPerByte, Bit: bitOffset % bitsPerByte}
}

// Field locates a field inside its 32-bit register.
type Field struct {
	// RegisterByte is the byte offset of the containing 32-bit register.
	RegisterByte uint64
	// Shift is the field's bit position within that register.
	Shift uint64
	// Width is the field width in bits.
	Width uint64
	// Mask selects the field's bits within the register.
	Mask uint32
}

// FieldOf computes the register-relative layout of a field.
func FieldOf(bitOffset, width uint64) Field {
	shift := bitOffset % registerBits

	return Field{
		RegisterByte: (bitOffset / registerBits) * registerBytes,
		Shift:        shift,
		Width:        width,
		Mask:         Mask(width, shift),
	}
}

// Mask returns ((1<<width)-1) << shift truncated to 32 bits. Widths of 32 or
// more select the whole register.
func Mask(width, shift uint64) uint32 {
	if width >= maxShiftedWidth {
		return fullMask
	}

	return uint32(((uint64(1) << width) - 1) << shift)
}

// Read extracts the field value from a register value.
func (f Field) Read(register uint32) uint32 {
	return (register & f.Mask) >> f.Shift
}

// Write merges data into the current register value: the field bits are
// replaced and every other bit is preserved.
func (f Field) Write(current, data uint32) uint32 {
	return (current &^ f.Mask) | ((data << f.Shift) & f.Mask)
}
