// Package symtab resolves indirect ("named default") values through the
// schema-properties section of a hardware description.
package symtab

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

const (
	schemaKey     = "pSchema"
	propertiesKey = "properties"
	defaultKey    = "default"
)

// Table maps a property name to its declaration ({default: value, ...}).
type Table struct {
	entries map[string]docnode.Node
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]docnode.Node)}
}

// Resolve builds a table from every pSchema.properties section reachable
// from doc. Later sections overwrite earlier entries.
func Resolve(doc docnode.Node) *Table {
	table := New()

	schemas := docnode.Filter(docnode.Mappings(docnode.Walk(doc)), docnode.HasKey(schemaKey))

	for holder := range schemas {
		schema, ok := holder.Mapping(schemaKey)
		if !ok {
			continue
		}

		props, ok := schema.Mapping(propertiesKey)
		if !ok {
			continue
		}

		for _, name := range props.Keys() {
			decl, _ := props.Get(name)
			table.entries[name] = decl
		}
	}

	return table
}

// Define adds or replaces a declaration with the given default.
func (t *Table) Define(name string, defaultValue any) {
	decl := docnode.NewMapping()
	decl.Set(defaultKey, docnode.FromAny(defaultValue))
	t.entries[name] = decl
}

// Len returns the number of declared symbols.
func (t *Table) Len() int {
	return len(t.entries)
}

// Names returns the declared symbol names, sorted.
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.entries))
}

// Lookup returns the default value of the named symbol.
func (t *Table) Lookup(name string) (docnode.Node, error) {
	decl, ok := t.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", regmodel.ErrUnknownSymbol, name)
	}

	mapping, ok := decl.(*docnode.Mapping)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no default", regmodel.ErrUnknownSymbol, name)
	}

	value, ok := mapping.Get(defaultKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no default", regmodel.ErrUnknownSymbol, name)
	}

	return value, nil
}

// Uint resolves value into an unsigned integer. Numeric scalars are used as
// is; string scalars name a symbol whose default is used instead.
func (t *Table) Uint(value docnode.Node) (uint64, error) {
	scalar, ok := value.(docnode.Scalar)
	if !ok {
		return 0, fmt.Errorf("%w: expected a number, got %s", regmodel.ErrMissingProperty, value.Kind())
	}

	if name, err := scalar.Text(); err == nil {
		resolved, lookupErr := t.Lookup(name)
		if lookupErr != nil {
			return 0, lookupErr
		}

		resolvedScalar, isScalar := resolved.(docnode.Scalar)
		if !isScalar {
			return 0, fmt.Errorf("%w: default of %q is not a number", regmodel.ErrUnknownSymbol, name)
		}

		number, convErr := resolvedScalar.Uint()
		if convErr != nil {
			return 0, fmt.Errorf("symbol %q: %w", name, convErr)
		}

		return number, nil
	}

	number, err := scalar.Uint()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", regmodel.ErrMissingProperty, err)
	}

	return number, nil
}

// Field resolves the named property of mapping via Uint.
func (t *Table) Field(mapping *docnode.Mapping, key string) (uint64, error) {
	value, ok := mapping.Get(key)
	if !ok {
		return 0, fmt.Errorf("%w: %q", regmodel.ErrMissingProperty, key)
	}

	number, err := t.Uint(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return number, nil
}
