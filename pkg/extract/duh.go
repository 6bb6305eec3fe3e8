package extract

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/symtab"
)

// FormatDUH names the DUH component format.
const FormatDUH = "duh"

const (
	bitsPerByte      = 8
	defaultMapName   = "mem"
	componentKey     = "component"
	addressBlocksKey = "addressBlocks"
)

// DuhAdapter extracts registers and fields from a DUH component document
// (memoryMaps[].addressBlocks[].registers[].fields[]). DUH documents carry
// no placement, so the model holds a single instance at base 0.
type DuhAdapter struct {
	// Device overrides the device name. Empty uses component.name.
	Device string
	// Only restricts extraction to address blocks with these names.
	// Empty accepts every block.
	Only []string
}

// Format implements Adapter.
func (a DuhAdapter) Format() string { return FormatDUH }

// Extract implements Adapter.
func (a DuhAdapter) Extract(ctx context.Context, session *Session, doc docnode.Node) (*regmodel.DeviceModel, error) {
	symbols := symtab.Resolve(doc)

	device := a.Device
	if device == "" {
		if component, ok := docnode.Lookup(doc, componentKey); ok {
			if mapping, isMapping := component.(*docnode.Mapping); isMapping {
				device, _ = mapping.Text("name")
			}
		}
	}

	if device == "" {
		return nil, fmt.Errorf("%w: device name (component.name)", regmodel.ErrMissingProperty)
	}

	session.logger.DebugContext(ctx, "extracting duh document", "component", device, "symbols", symbols.Len())

	inst := regmodel.DeviceInstance{Name: device}
	fields := newFieldList()

	var registers []regmodel.Register

	memoryMaps := docnode.Filter(docnode.Mappings(docnode.Walk(doc)), docnode.HasKey(addressBlocksKey))

	for memMap := range memoryMaps {
		mapName, ok := memMap.Text("name")
		if !ok {
			mapName = defaultMapName
		}

		inst.BaseAddressesByRegion = append(inst.BaseAddressesByRegion, regmodel.RegionBase{Region: mapName})

		blocks, _ := memMap.Sequence(addressBlocksKey)

		for _, blockNode := range blocks.Items {
			block, err := readAddressBlock(symbols, blockNode)
			if err != nil {
				return nil, fmt.Errorf("memory map %s: %w", mapName, err)
			}

			if len(a.Only) > 0 && !slices.Contains(a.Only, block.Name) {
				continue
			}

			inst.AddressBlocks = append(inst.AddressBlocks, block)

			blockRegs, err := a.readRegisters(session, symbols, blockNode.(*docnode.Mapping), block, fields)
			if err != nil {
				return nil, fmt.Errorf("address block %s: %w", block.Name, err)
			}

			registers = append(registers, blockRegs...)
		}
	}

	inst.RegisterFields = fields.fields

	return &regmodel.DeviceModel{
		Device:    device,
		Instances: []regmodel.DeviceInstance{inst},
		Registers: registers,
	}, nil
}

func (a DuhAdapter) readRegisters(
	session *Session,
	symbols *symtab.Table,
	blockNode *docnode.Mapping,
	block regmodel.AddressBlock,
	fields *fieldList,
) ([]regmodel.Register, error) {
	regs, ok := blockNode.Sequence("registers")
	if !ok {
		return nil, nil
	}

	out := make([]regmodel.Register, 0, regs.Len())

	for _, regNode := range regs.Items {
		reg, err := interpretRegister(session, symbols, regNode, block, fields)
		if err != nil {
			return nil, err
		}

		out = append(out, reg)
	}

	return out, nil
}

// interpretRegister reads one DUH register. addressOffset is in bits; the
// flat register offset is its byte equivalent.
func interpretRegister(
	session *Session,
	symbols *symtab.Table,
	node docnode.Node,
	block regmodel.AddressBlock,
	fields *fieldList,
) (regmodel.Register, error) {
	mapping, ok := node.(*docnode.Mapping)
	if !ok {
		return regmodel.Register{}, fmt.Errorf("%w: register must be a mapping", regmodel.ErrMissingProperty)
	}

	name, err := requireText(mapping, "name")
	if err != nil {
		return regmodel.Register{}, fmt.Errorf("register: %w", err)
	}

	offsetBits, err := symbols.Field(mapping, "addressOffset")
	if err != nil {
		return regmodel.Register{}, fmt.Errorf("register %s: %w", name, err)
	}

	width, err := symbols.Field(mapping, "size")
	if err != nil {
		return regmodel.Register{}, fmt.Errorf("register %s: %w", name, err)
	}

	regFields, err := interpretFields(symbols, mapping, name, block, block.BaseAddress*bitsPerByte+offsetBits)
	if err != nil {
		return regmodel.Register{}, fmt.Errorf("register %s: %w", name, err)
	}

	for _, field := range regFields {
		addErr := fields.add(session, field)
		if addErr != nil {
			return regmodel.Register{}, addErr
		}
	}

	return regmodel.NewRegister(name, offsetBits/bitsPerByte, width, regFields, block)
}

func interpretFields(
	symbols *symtab.Table,
	register *docnode.Mapping,
	group string,
	block regmodel.AddressBlock,
	registerBit uint64,
) ([]regmodel.RegisterField, error) {
	seq, ok := register.Sequence("fields")
	if !ok {
		return nil, nil
	}

	out := make([]regmodel.RegisterField, 0, seq.Len())

	for _, fieldNode := range seq.Items {
		mapping, isMapping := fieldNode.(*docnode.Mapping)
		if !isMapping {
			return nil, fmt.Errorf("%w: field must be a mapping", regmodel.ErrMissingProperty)
		}

		name, err := requireText(mapping, "name")
		if err != nil {
			return nil, fmt.Errorf("field: %w", err)
		}

		bitOffset, err := symbols.Field(mapping, "bitOffset")
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}

		bitWidth, err := symbols.Field(mapping, "bitWidth")
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}

		out = append(out, regmodel.RegisterField{
			Name:             name,
			GroupName:        group,
			AddressBlockName: block.Name,
			BitOffset:        registerBit + bitOffset,
			BitWidth:         bitWidth,
		})
	}

	return out, nil
}
