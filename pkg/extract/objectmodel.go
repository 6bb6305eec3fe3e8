package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/levenshtein"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/symtab"
)

// FormatObjectModel names the object-model format.
const FormatObjectModel = "object-model"

const (
	typeTagPrefix       = "OM"
	interruptTag        = "OMInterrupt"
	unnamedMarker       = "@"
	memoryRegionsKey    = "memoryRegions"
	addressSetsKey      = "addressSets"
	registerMapKey      = "registerMap"
	registerFieldsKey   = "registerFields"
	descriptionKey      = "description"
	fieldAddressKey     = "addressBlock"
	numberAtReceiverKey = "numberAtReceiver"

	maxSuggestDistance = 2
)

// ObjectModelAdapter discovers device instances by their _types tag
// ("OM" + device name, suffix compared case-insensitively) and reads their
// memory regions, register fields, address blocks and interrupts.
type ObjectModelAdapter struct {
	Device string
}

// Format implements Adapter.
func (a ObjectModelAdapter) Format() string { return FormatObjectModel }

// Extract implements Adapter.
func (a ObjectModelAdapter) Extract(ctx context.Context, session *Session, doc docnode.Node) (*regmodel.DeviceModel, error) {
	if a.Device == "" {
		return nil, fmt.Errorf("%w: device name", regmodel.ErrMissingProperty)
	}

	symbols := symtab.Resolve(doc)
	model := &regmodel.DeviceModel{Device: a.Device}

	devices := docnode.Filter(
		docnode.Mappings(docnode.Walk(doc)),
		docnode.TypeTagged(docnode.TagSuffixFold(typeTagPrefix, a.Device)),
	)

	for devNode := range devices {
		index := len(model.Instances)

		inst, err := a.readDevice(session, symbols, devNode, index)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", a.Device, index, err)
		}

		model.Instances = append(model.Instances, inst)
	}

	if len(model.Instances) == 0 {
		if hint, ok := levenshtein.Closest(a.Device, deviceTags(doc), maxSuggestDistance); ok {
			return nil, fmt.Errorf("%w: OM%s (did you mean %q?)", ErrNoDevices, a.Device, hint)
		}

		return nil, fmt.Errorf("%w: OM%s", ErrNoDevices, a.Device)
	}

	registers, err := groupRegisters(model.Instances[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Device, err)
	}

	model.Registers = registers

	session.logger.DebugContext(ctx, "extracted object model", "instances", len(model.Instances))

	return model, nil
}

// registerWordBits is the access granularity flat registers are aligned to.
const registerWordBits = 32

// groupRegisters builds one flat register per (address block, group) of
// inst's fields, in first-appearance order. A register starts at the
// 32-bit word holding its lowest field and is 32 bits wide, or 64 when
// its fields run past the first word; anything wider fails the register
// width check. Ungrouped fields get no register.
func groupRegisters(inst regmodel.DeviceInstance) ([]regmodel.Register, error) {
	type groupKey struct{ block, group string }

	var order []groupKey

	groups := make(map[groupKey][]regmodel.RegisterField)

	for _, field := range inst.RegisterFields {
		if field.GroupName == "" {
			continue
		}

		key := groupKey{block: field.AddressBlockName, group: field.GroupName}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}

		groups[key] = append(groups[key], field)
	}

	registers := make([]regmodel.Register, 0, len(order))

	for _, key := range order {
		fields := groups[key]

		start, end := fields[0].BitOffset, uint64(0)
		for _, field := range fields {
			start = min(start, field.BitOffset)
			end = max(end, field.BitOffset+field.BitWidth)
		}

		first := start / registerWordBits * registerWordBits

		width := uint64(registerWordBits)
		if span := end - first; span > width {
			width = max(2*registerWordBits, span)
		}

		var block regmodel.AddressBlock

		for _, candidate := range inst.AddressBlocks {
			if candidate.Name == key.block {
				block = candidate

				break
			}
		}

		reg, err := regmodel.NewRegister(key.group, first/8, width, fields, block)
		if err != nil {
			return nil, err
		}

		registers = append(registers, reg)
	}

	return registers, nil
}

// deviceTags lists the distinct device names behind every OM type tag in doc.
func deviceTags(doc docnode.Node) []string {
	seen := make(map[string]bool)

	var names []string

	for mapping := range docnode.Mappings(docnode.Walk(doc)) {
		for _, tag := range docnode.TypeTags(mapping) {
			name, ok := strings.CutPrefix(tag, typeTagPrefix)
			if !ok || name == "" || seen[name] {
				continue
			}

			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}

func (a ObjectModelAdapter) readDevice(
	session *Session,
	symbols *symtab.Table,
	devNode *docnode.Mapping,
	index int,
) (regmodel.DeviceInstance, error) {
	inst := regmodel.DeviceInstance{Name: a.Device, Index: index}
	fields := newFieldList()

	if regions, ok := devNode.Sequence(memoryRegionsKey); ok {
		for regionIdx, regionNode := range regions.Items {
			region, isMapping := regionNode.(*docnode.Mapping)
			if !isMapping {
				return inst, fmt.Errorf("%w: memory region %d must be a mapping", regmodel.ErrMissingProperty, regionIdx)
			}

			err := readRegion(session, symbols, region, regionIdx, &inst, fields)
			if err != nil {
				return inst, err
			}
		}
	}

	if len(inst.BaseAddressesByRegion) > 0 {
		inst.BaseAddress = inst.BaseAddressesByRegion[0].Address
	}

	inst.RegisterFields = fields.fields

	err := readInterrupts(session, devNode, &inst)
	if err != nil {
		return inst, err
	}

	return inst, nil
}

func readRegion(
	session *Session,
	symbols *symtab.Table,
	region *docnode.Mapping,
	regionIdx int,
	inst *regmodel.DeviceInstance,
	fields *fieldList,
) error {
	name, ok := region.Text("name")
	if !ok {
		name = fmt.Sprintf("region%d", regionIdx)
	}

	sets, ok := region.Sequence(addressSetsKey)
	if !ok || sets.Len() == 0 {
		return fmt.Errorf("region %s: %w: %q", name, regmodel.ErrMissingProperty, addressSetsKey)
	}

	if sets.Len() > 1 {
		return fmt.Errorf("region %s: %w (%d sets)", name, regmodel.ErrUnsupportedMultipleAddressSets, sets.Len())
	}

	set, ok := sets.Items[0].(*docnode.Mapping)
	if !ok {
		return fmt.Errorf("region %s: %w: address set must be a mapping", name, regmodel.ErrMissingProperty)
	}

	base, err := symbols.Field(set, "base")
	if err != nil {
		return fmt.Errorf("region %s: %w", name, err)
	}

	inst.BaseAddressesByRegion = append(inst.BaseAddressesByRegion, regmodel.RegionBase{Region: name, Address: base})

	blockNodes := docnode.Items(
		docnode.Filter(docnode.Mappings(docnode.Walk(region)), docnode.HasKey(addressBlocksKey)),
		addressBlocksKey,
	)

	for blockNode := range blockNodes {
		block, blockErr := readAddressBlock(symbols, blockNode)
		if blockErr != nil {
			return fmt.Errorf("region %s: %w", name, blockErr)
		}

		inst.AddressBlocks = append(inst.AddressBlocks, block)
	}

	regMap, ok := region.Mapping(registerMapKey)
	if !ok {
		return nil
	}

	regFields, ok := regMap.Sequence(registerFieldsKey)
	if !ok {
		return nil
	}

	for fieldIdx, fieldNode := range regFields.Items {
		field, fieldErr := readRegisterField(symbols, fieldNode)
		if fieldErr != nil {
			return fmt.Errorf("region %s field %d: %w", name, fieldIdx, fieldErr)
		}

		addErr := fields.add(session, field)
		if addErr != nil {
			return fmt.Errorf("region %s: %w", name, addErr)
		}
	}

	return nil
}

// readRegisterField reads {bitRange: {base, size}, description: {name, group}}.
// The address block may sit on the field or on its description.
func readRegisterField(symbols *symtab.Table, node docnode.Node) (regmodel.RegisterField, error) {
	mapping, ok := node.(*docnode.Mapping)
	if !ok {
		return regmodel.RegisterField{}, fmt.Errorf("%w: register field must be a mapping", regmodel.ErrMissingProperty)
	}

	desc, ok := mapping.Mapping(descriptionKey)
	if !ok {
		return regmodel.RegisterField{}, fmt.Errorf("%w: %q", regmodel.ErrMissingProperty, descriptionKey)
	}

	name, err := requireText(desc, "name")
	if err != nil {
		return regmodel.RegisterField{}, err
	}

	bitRange, ok := mapping.Mapping("bitRange")
	if !ok {
		return regmodel.RegisterField{}, fmt.Errorf("field %s: %w: %q", name, regmodel.ErrMissingProperty, "bitRange")
	}

	offset, err := symbols.Field(bitRange, "base")
	if err != nil {
		return regmodel.RegisterField{}, fmt.Errorf("field %s: %w", name, err)
	}

	width, err := symbols.Field(bitRange, "size")
	if err != nil {
		return regmodel.RegisterField{}, fmt.Errorf("field %s: %w", name, err)
	}

	group, _ := desc.Text("group")

	block, ok := mapping.Text(fieldAddressKey)
	if !ok {
		block, _ = desc.Text(fieldAddressKey)
	}

	return regmodel.RegisterField{
		Name:             name,
		GroupName:        group,
		AddressBlockName: block,
		BitOffset:        offset,
		BitWidth:         width,
	}, nil
}

func readInterrupts(session *Session, devNode *docnode.Mapping, inst *regmodel.DeviceInstance) error {
	irqNodes := docnode.Filter(
		docnode.Mappings(docnode.Walk(devNode)),
		docnode.TypeTagged(docnode.TagEquals(interruptTag)),
	)

	for irqNode := range irqNodes {
		numberNode, ok := irqNode.Get(numberAtReceiverKey)
		if !ok {
			return fmt.Errorf("interrupt: %w: %q", regmodel.ErrMissingProperty, numberAtReceiverKey)
		}

		scalar, ok := numberNode.(docnode.Scalar)
		if !ok {
			return fmt.Errorf("interrupt: %w: %q must be a number", regmodel.ErrMissingProperty, numberAtReceiverKey)
		}

		number, err := scalar.Int()
		if err != nil {
			return fmt.Errorf("interrupt: %w", err)
		}

		name, _ := irqNode.Text("name")
		if strings.Contains(name, unnamedMarker) {
			name = ""
		}

		irq, err := session.Interrupt(regmodel.Interrupt{Name: name, Number: number})
		if err != nil {
			return err
		}

		inst.Interrupts = append(inst.Interrupts, irq)

		if inst.BaseInterrupt == nil || irq.Number < *inst.BaseInterrupt {
			base := irq.Number
			inst.BaseInterrupt = &base
		}
	}

	return nil
}
