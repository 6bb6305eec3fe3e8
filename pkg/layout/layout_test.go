package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/regmetal/pkg/layout"
)

func TestFieldOf_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, bit := range []uint64{0, 3, 31, 32, 33, 63, 64, 95, 1000, 4099} {
		field := layout.FieldOf(bit, 1)

		assert.Equal(t, (bit/32)*4, field.RegisterByte)
		assert.Equal(t, bit%32, field.Shift)
		assert.Equal(t, bit, field.RegisterByte*8+field.Shift, "bit %d", bit)
	}
}

func TestFlatOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, layout.Flat{Byte: 0, Bit: 3}, layout.FlatOf(3))
	assert.Equal(t, layout.Flat{Byte: 4, Bit: 1}, layout.FlatOf(33))
}

func TestMask(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0x8), layout.Mask(1, 3))
	assert.Equal(t, uint32(0xFF00), layout.Mask(8, 8))
	assert.Equal(t, uint32(0x80000000), layout.Mask(1, 31))
	assert.Equal(t, uint32(0xFFFFFFFF), layout.Mask(32, 0))
	assert.Equal(t, uint32(0xFFFFFFFF), layout.Mask(64, 0))
}

func TestWrite_ReadModifyWrite(t *testing.T) {
	t.Parallel()

	const prior = uint32(0xA5A5A5A5)

	for _, tc := range []struct{ offset, width uint64 }{{0, 1}, {3, 1}, {4, 4}, {8, 8}, {31, 1}, {16, 16}, {5, 20}} {
		field := layout.FieldOf(tc.offset, tc.width)

		for _, data := range []uint32{0, 1, 0x5, 0xFFFFFFFF, 0x12345678} {
			valueMask := uint32((uint64(1) << tc.width) - 1)
			mask := valueMask << tc.offset
			want := (prior &^ mask) | ((data & valueMask) << tc.offset)

			got := field.Write(prior, data)
			assert.Equal(t, want, got, "offset %d width %d data %#x", tc.offset, tc.width, data)
			assert.Equal(t, data&valueMask, field.Read(got))
		}
	}
}

func TestWrite_FullWidth(t *testing.T) {
	t.Parallel()

	field := layout.FieldOf(64, 32)

	assert.Equal(t, uint64(8), field.RegisterByte)
	assert.Equal(t, uint32(0xFFFFFFFF), field.Mask)

	for _, data := range []uint32{0, 1, 0xDEADBEEF, 0xFFFFFFFF} {
		assert.Equal(t, data, field.Write(0x13579BDF, data))
		assert.Equal(t, data, field.Read(data))
	}
}
