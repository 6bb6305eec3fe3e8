// Package naming derives C macro names for register fields and tracks how
// often each name is produced during one generation run.
package naming

import (
	"maps"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

const (
	registerSegment = "REGISTER"
	separator       = "_"
)

// Sanitize uppercases s, trims surrounding whitespace and drops embedded spaces.
func Sanitize(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "")
}

// CollisionTable counts how many times each derived name was produced.
type CollisionTable struct {
	counts map[string]int
}

// NewCollisionTable creates an empty table.
func NewCollisionTable() *CollisionTable {
	return &CollisionTable{counts: make(map[string]int)}
}

// Add increments name's count and returns the new count.
func (c *CollisionTable) Add(name string) int {
	c.counts[name]++

	return c.counts[name]
}

// Count returns how many times name was produced.
func (c *CollisionTable) Count(name string) int {
	return c.counts[name]
}

// Collision is a name produced more than once.
type Collision struct {
	Name  string
	Count int
}

// Collisions returns every name produced more than once, sorted by name.
func (c *CollisionTable) Collisions() []Collision {
	var out []Collision

	for _, name := range slices.Sorted(maps.Keys(c.counts)) {
		if count := c.counts[name]; count > 1 {
			out = append(out, Collision{Name: name, Count: count})
		}
	}

	return out
}

// FieldNames holds the names derived for one register field.
type FieldNames struct {
	Field regmodel.RegisterField
	// Legacy is {DEVICE}_REGISTER[_{GROUP}]_{FIELD}.
	Legacy string
	// Qualified adds _{ADDRESSBLOCK} after REGISTER. Empty when the field
	// has no address block.
	Qualified string
	// EmitQualified is false when Qualified was already produced earlier in
	// the run, possibly as another field's legacy name.
	EmitQualified bool
	// EmitLegacy is false when Legacy was already produced earlier in the run.
	EmitLegacy bool
}

// Emitted returns the names that become macros, qualified name first.
func (n FieldNames) Emitted() []string {
	names := make([]string, 0, 2)

	if n.EmitQualified {
		names = append(names, n.Qualified)
	}

	if n.EmitLegacy {
		names = append(names, n.Legacy)
	}

	return names
}

// Primary returns the first emitted name. A field with nothing emitted falls
// back to its most specific derived name.
func (n FieldNames) Primary() string {
	if emitted := n.Emitted(); len(emitted) > 0 {
		return emitted[0]
	}

	if n.Qualified != "" {
		return n.Qualified
	}

	return n.Legacy
}

// Engine derives names for one device type and records them in a
// collision table owned by the caller.
type Engine struct {
	table  *CollisionTable
	device string
}

// NewEngine creates an engine for device. A nil table gets a fresh one.
func NewEngine(device string, table *CollisionTable) *Engine {
	if table == nil {
		table = NewCollisionTable()
	}

	return &Engine{device: Sanitize(device), table: table}
}

// Table returns the engine's collision table.
func (e *Engine) Table() *CollisionTable {
	return e.table
}

// LegacyName returns {DEVICE}_REGISTER[_{GROUP}]_{FIELD} without recording it.
func (e *Engine) LegacyName(field regmodel.RegisterField) string {
	return e.join("", field)
}

// QualifiedName returns the address-block-qualified name without recording
// it, or "" when the field has no address block.
func (e *Engine) QualifiedName(field regmodel.RegisterField) string {
	block := Sanitize(field.AddressBlockName)
	if block == "" {
		return ""
	}

	return e.join(block, field)
}

func (e *Engine) join(block string, field regmodel.RegisterField) string {
	parts := []string{e.device, registerSegment}

	if block != "" {
		parts = append(parts, block)
	}

	fieldName := Sanitize(field.Name)

	if group := Sanitize(field.GroupName); group != "" && !stutters(group, fieldName) {
		parts = append(parts, group)
	}

	parts = append(parts, fieldName)

	return strings.Join(parts, separator)
}

// stutters reports whether fieldName already starts with the trailing token
// of group, as in group CTRL and field CTRL_ENABLE.
func stutters(group, fieldName string) bool {
	token := group
	if idx := strings.LastIndex(group, separator); idx >= 0 {
		token = group[idx+1:]
	}

	if token == "" {
		return false
	}

	return fieldName == token || strings.HasPrefix(fieldName, token+separator)
}

// Name derives and records the names of one field. Each name is emitted
// only the first time it is produced in the run; a repeat is left to the
// collision report.
func (e *Engine) Name(field regmodel.RegisterField) FieldNames {
	names := FieldNames{
		Field:     field,
		Legacy:    e.LegacyName(field),
		Qualified: e.QualifiedName(field),
	}

	if names.Qualified != "" {
		names.EmitQualified = e.table.Add(names.Qualified) == 1
	}

	names.EmitLegacy = e.table.Add(names.Legacy) == 1

	return names
}

// NameAll names fields in order.
func (e *Engine) NameAll(fields []regmodel.RegisterField) []FieldNames {
	out := make([]FieldNames, len(fields))

	for idx, field := range fields {
		out[idx] = e.Name(field)
	}

	return out
}

// Identifier sanitizes s and replaces every character that cannot appear
// in a C identifier with an underscore.
func Identifier(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, Sanitize(s))
}
