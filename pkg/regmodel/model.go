// Package regmodel defines the normalized register model shared by the
// extractors, the naming engine and the renderer.
package regmodel

import (
	"fmt"
	"slices"
)

// AddressBlock is a named, based, ranged sub-region of a memory region.
type AddressBlock struct {
	Name        string `json:"name"`
	BaseAddress uint64 `json:"base_address"`
	Range       uint64 `json:"range"`
	Width       uint64 `json:"width"`
}

// RegisterField is a named bit range. BitOffset is absolute within the
// device register block.
type RegisterField struct {
	Name             string `json:"name"`
	GroupName        string `json:"group"`
	AddressBlockName string `json:"address_block,omitempty"`
	BitOffset        uint64 `json:"bit_offset"`
	BitWidth         uint64 `json:"bit_width"`
}

// FieldKey is the deduplication identity of a RegisterField.
type FieldKey struct {
	Name         string
	Group        string
	AddressBlock string
}

// Key returns the identity key of the field.
func (f RegisterField) Key() FieldKey {
	return FieldKey{Name: f.Name, Group: f.GroupName, AddressBlock: f.AddressBlockName}
}

// String formats the key for error messages.
func (k FieldKey) String() string {
	return fmt.Sprintf("field %q (group %q, address block %q)", k.Name, k.Group, k.AddressBlock)
}

// Register is the flat, whole-register view used by DUH documents.
type Register struct {
	Name         string          `json:"name"`
	Fields       []RegisterField `json:"fields,omitempty"`
	AddressBlock AddressBlock    `json:"address_block"`
	OffsetBytes  uint64          `json:"offset_bytes"`
	WidthBits    uint64          `json:"width_bits"`
}

// ValidRegisterWidths lists the accepted register widths in bits.
var ValidRegisterWidths = []uint64{8, 16, 32, 64}

// NewRegister builds a register, rejecting widths outside ValidRegisterWidths.
func NewRegister(name string, offsetBytes, widthBits uint64, fields []RegisterField, block AddressBlock) (Register, error) {
	if !slices.Contains(ValidRegisterWidths, widthBits) {
		return Register{}, fmt.Errorf("%w %d for register %s: width should be 8, 16, 32, or 64",
			ErrInvalidRegisterWidth, widthBits, name)
	}

	return Register{
		Name:         name,
		OffsetBytes:  offsetBytes,
		WidthBits:    widthBits,
		Fields:       fields,
		AddressBlock: block,
	}, nil
}

// Interrupt is an interrupt line. An empty Name marks an unnamed interrupt.
type Interrupt struct {
	Name   string `json:"name,omitempty"`
	Number int64  `json:"number"`
}

// Named reports whether the interrupt takes part in deduplication.
func (i Interrupt) Named() bool {
	return i.Name != ""
}

// RegionBase pairs a memory region name with its base address.
type RegionBase struct {
	Region  string `json:"region"`
	Address uint64 `json:"address"`
}

// DeviceInstance is one physical occurrence of a device type on the chip.
type DeviceInstance struct {
	BaseInterrupt         *int64          `json:"base_interrupt,omitempty"`
	Name                  string          `json:"name"`
	BaseAddressesByRegion []RegionBase    `json:"regions,omitempty"`
	Interrupts            []Interrupt     `json:"interrupts,omitempty"`
	RegisterFields        []RegisterField `json:"fields,omitempty"`
	AddressBlocks         []AddressBlock  `json:"address_blocks,omitempty"`
	Index                 int             `json:"index"`
	BaseAddress           uint64          `json:"base_address"`
}

// InterruptOffset returns the interrupt's offset from the instance's base
// interrupt, or false when the instance has no interrupts.
func (d DeviceInstance) InterruptOffset(irq Interrupt) (int64, bool) {
	if d.BaseInterrupt == nil {
		return 0, false
	}

	return irq.Number - *d.BaseInterrupt, true
}

// DeviceModel is the normalized extraction result for one device type.
type DeviceModel struct {
	Device    string           `json:"device"`
	Instances []DeviceInstance `json:"instances"`
	Registers []Register       `json:"registers,omitempty"`
}

// Representative returns the first instance. All instances of a device type
// share one register layout, so renderers read only this one.
func (m *DeviceModel) Representative() (DeviceInstance, bool) {
	if len(m.Instances) == 0 {
		return DeviceInstance{}, false
	}

	return m.Instances[0], true
}

// Fields returns the representative instance's register fields.
func (m *DeviceModel) Fields() []RegisterField {
	first, ok := m.Representative()
	if !ok {
		return nil
	}

	return first.RegisterFields
}

// AddressBlocks returns the representative instance's address blocks.
func (m *DeviceModel) AddressBlocks() []AddressBlock {
	first, ok := m.Representative()
	if !ok {
		return nil
	}

	return first.AddressBlocks
}

// BaseAddresses returns every instance's base address in index order.
func (m *DeviceModel) BaseAddresses() []uint64 {
	bases := make([]uint64, len(m.Instances))

	for idx, inst := range m.Instances {
		bases[idx] = inst.BaseAddress
	}

	return bases
}

// RegionNames returns the region names of the representative instance.
func (m *DeviceModel) RegionNames() []string {
	first, ok := m.Representative()
	if !ok {
		return nil
	}

	names := make([]string, len(first.BaseAddressesByRegion))

	for idx, region := range first.BaseAddressesByRegion {
		names[idx] = region.Region
	}

	return names
}

// RegionBases returns every instance's base address for the named region.
// Instances lacking the region contribute 0.
func (m *DeviceModel) RegionBases(region string) []uint64 {
	bases := make([]uint64, len(m.Instances))

	for idx, inst := range m.Instances {
		for _, entry := range inst.BaseAddressesByRegion {
			if entry.Region == region {
				bases[idx] = entry.Address

				break
			}
		}
	}

	return bases
}

// WithLayout returns a copy of m whose instances carry the register layout
// (fields, address blocks, flat registers) of layout's representative
// instance. Placement (bases, interrupts) stays with m.
func (m *DeviceModel) WithLayout(layout *DeviceModel) *DeviceModel {
	merged := &DeviceModel{
		Device:    m.Device,
		Instances: make([]DeviceInstance, len(m.Instances)),
		Registers: slices.Clone(layout.Registers),
	}

	fields := layout.Fields()
	blocks := layout.AddressBlocks()

	for idx, inst := range m.Instances {
		inst.RegisterFields = slices.Clone(fields)
		inst.AddressBlocks = slices.Clone(blocks)
		merged.Instances[idx] = inst
	}

	return merged
}
