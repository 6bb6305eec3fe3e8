// Package extract turns parsed hardware descriptions into the normalized
// register model. Two adapters exist, one per input format; both produce
// regmodel.DeviceModel values.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/symtab"
)

// ErrNoDevices indicates that a document holds no instance of the requested device.
var ErrNoDevices = errors.New("no matching devices found")

// Adapter extracts a device model from one document format.
type Adapter interface {
	// Format names the input format handled by the adapter.
	Format() string
	// Extract walks doc and builds the device model, registering every field
	// and interrupt with session. ctx scopes the session's log records.
	Extract(ctx context.Context, session *Session, doc docnode.Node) (*regmodel.DeviceModel, error)
}

// fieldList accumulates one instance's fields, dropping consistent repeats.
type fieldList struct {
	seen   map[regmodel.FieldKey]struct{}
	fields []regmodel.RegisterField
}

func newFieldList() *fieldList {
	return &fieldList{seen: make(map[regmodel.FieldKey]struct{})}
}

func (l *fieldList) add(session *Session, field regmodel.RegisterField) error {
	canonical, err := session.Field(field)
	if err != nil {
		return err
	}

	if _, dup := l.seen[canonical.Key()]; dup {
		return nil
	}

	l.seen[canonical.Key()] = struct{}{}
	l.fields = append(l.fields, canonical)

	return nil
}

func requireText(mapping *docnode.Mapping, key string) (string, error) {
	text, ok := mapping.Text(key)
	if !ok || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %q", regmodel.ErrMissingProperty, key)
	}

	return text, nil
}

// optionalUint resolves key when present and returns 0 otherwise.
func optionalUint(symbols *symtab.Table, mapping *docnode.Mapping, key string) (uint64, error) {
	if !mapping.Has(key) {
		return 0, nil
	}

	return symbols.Field(mapping, key)
}

func readAddressBlock(symbols *symtab.Table, node docnode.Node) (regmodel.AddressBlock, error) {
	mapping, ok := node.(*docnode.Mapping)
	if !ok {
		return regmodel.AddressBlock{}, fmt.Errorf("%w: address block must be a mapping", regmodel.ErrMissingProperty)
	}

	name, err := requireText(mapping, "name")
	if err != nil {
		return regmodel.AddressBlock{}, fmt.Errorf("address block: %w", err)
	}

	block := regmodel.AddressBlock{Name: name}

	targets := []struct {
		dst *uint64
		key string
	}{
		{key: "baseAddress", dst: &block.BaseAddress},
		{key: "range", dst: &block.Range},
		{key: "width", dst: &block.Width},
	}

	for _, target := range targets {
		value, resolveErr := optionalUint(symbols, mapping, target.key)
		if resolveErr != nil {
			return regmodel.AddressBlock{}, fmt.Errorf("address block %s: %w", name, resolveErr)
		}

		*target.dst = value
	}

	return block, nil
}
