// Package docnode provides an untyped, read-only document tree (mapping,
// sequence, scalar) and lazy pre-order walks over it.
package docnode

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Kind discriminates the three node variants.
type Kind uint8

// Node kinds.
const (
	KindScalar Kind = iota + 1
	KindMapping
	KindSequence
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Scalar conversion errors.
var (
	ErrNotNumber  = errors.New("value is not a number")
	ErrNotInteger = errors.New("value is not an integer")
	ErrNegative   = errors.New("value is negative")
	ErrNotString  = errors.New("value is not a string")
)

// Node is one of *Mapping, *Sequence or Scalar.
type Node interface {
	Kind() Kind
	// Interface converts the subtree into plain Go values
	// (map[string]any, []any, scalars).
	Interface() any
}

// Mapping is a string-keyed container that remembers key insertion order.
type Mapping struct {
	values map[string]Node
	keys   []string
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Node)}
}

// Kind implements Node.
func (m *Mapping) Kind() Kind { return KindMapping }

// Set stores value under key. Re-setting a key keeps its original position.
func (m *Mapping) Set(key string, value Node) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Node, bool) {
	value, ok := m.values[key]

	return value, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.values[key]

	return ok
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	return slices.Clone(m.keys)
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// Mapping returns the child mapping stored under key.
func (m *Mapping) Mapping(key string) (*Mapping, bool) {
	value, ok := m.values[key]
	if !ok {
		return nil, false
	}

	child, ok := value.(*Mapping)

	return child, ok
}

// Sequence returns the child sequence stored under key.
func (m *Mapping) Sequence(key string) (*Sequence, bool) {
	value, ok := m.values[key]
	if !ok {
		return nil, false
	}

	child, ok := value.(*Sequence)

	return child, ok
}

// Text returns the string scalar stored under key.
func (m *Mapping) Text(key string) (string, bool) {
	value, ok := m.values[key]
	if !ok {
		return "", false
	}

	scalar, ok := value.(Scalar)
	if !ok {
		return "", false
	}

	text, err := scalar.Text()
	if err != nil {
		return "", false
	}

	return text, true
}

// Interface implements Node.
func (m *Mapping) Interface() any {
	out := make(map[string]any, len(m.keys))

	for _, key := range m.keys {
		out[key] = m.values[key].Interface()
	}

	return out
}

// Sequence is an ordered list of nodes.
type Sequence struct {
	Items []Node
}

// NewSequence creates a sequence holding items.
func NewSequence(items ...Node) *Sequence {
	return &Sequence{Items: items}
}

// Kind implements Node.
func (s *Sequence) Kind() Kind { return KindSequence }

// Len returns the number of items.
func (s *Sequence) Len() int {
	return len(s.Items)
}

// Interface implements Node.
func (s *Sequence) Interface() any {
	out := make([]any, len(s.Items))

	for idx, item := range s.Items {
		out[idx] = item.Interface()
	}

	return out
}

// Scalar wraps a leaf value: string, bool, nil, json.Number or a Go numeric type.
type Scalar struct {
	Value any
}

// Kind implements Node.
func (s Scalar) Kind() Kind { return KindScalar }

// Interface implements Node.
func (s Scalar) Interface() any {
	return s.Value
}

// IsString reports whether the scalar holds a string.
func (s Scalar) IsString() bool {
	_, ok := s.Value.(string)

	return ok
}

// Text returns the held string.
func (s Scalar) Text() (string, error) {
	text, ok := s.Value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrNotString, s.Value)
	}

	return text, nil
}

// Uint converts a numeric scalar into an unsigned integer.
func (s Scalar) Uint() (uint64, error) {
	switch value := s.Value.(type) {
	case json.Number:
		return parseUintText(value.String())
	case float64:
		return floatToUint(value)
	case float32:
		return floatToUint(float64(value))
	case int:
		return signedToUint(int64(value))
	case int64:
		return signedToUint(value)
	case int32:
		return signedToUint(int64(value))
	case uint:
		return uint64(value), nil
	case uint64:
		return value, nil
	case uint32:
		return uint64(value), nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrNotNumber, s.Value)
	}
}

// Int converts a numeric scalar into a signed integer.
func (s Scalar) Int() (int64, error) {
	switch value := s.Value.(type) {
	case json.Number:
		parsed, err := strconv.ParseInt(value.String(), 0, 64)
		if err == nil {
			return parsed, nil
		}

		floatVal, floatErr := value.Float64()
		if floatErr != nil {
			return 0, fmt.Errorf("%w: %s", ErrNotNumber, value)
		}

		return floatToInt(floatVal)
	case float64:
		return floatToInt(value)
	case int:
		return int64(value), nil
	case int64:
		return value, nil
	case uint64:
		if value > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", ErrNotInteger, value)
		}

		return int64(value), nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrNotNumber, s.Value)
	}
}

func parseUintText(text string) (uint64, error) {
	parsed, err := strconv.ParseUint(text, 0, 64)
	if err == nil {
		return parsed, nil
	}

	if strings.HasPrefix(text, "-") {
		return 0, fmt.Errorf("%w: %s", ErrNegative, text)
	}

	floatVal, floatErr := strconv.ParseFloat(text, 64)
	if floatErr != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotNumber, text)
	}

	return floatToUint(floatVal)
}

func floatToUint(value float64) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegative, value)
	}

	if value != math.Trunc(value) || value > math.MaxUint64 {
		return 0, fmt.Errorf("%w: %v", ErrNotInteger, value)
	}

	return uint64(value), nil
}

func floatToInt(value float64) (int64, error) {
	if value != math.Trunc(value) || value > math.MaxInt64 || value < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v", ErrNotInteger, value)
	}

	return int64(value), nil
}

func signedToUint(value int64) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegative, value)
	}

	return uint64(value), nil
}

// FromAny converts plain Go values (as produced by encoding/json style
// decoders) into a node tree. Go maps carry no order, so mapping keys are
// sorted to keep walks deterministic.
func FromAny(value any) Node {
	switch typed := value.(type) {
	case map[string]any:
		mapping := NewMapping()

		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}

		slices.Sort(keys)

		for _, key := range keys {
			mapping.Set(key, FromAny(typed[key]))
		}

		return mapping
	case []any:
		seq := &Sequence{Items: make([]Node, len(typed))}

		for idx, item := range typed {
			seq.Items[idx] = FromAny(item)
		}

		return seq
	case Node:
		return typed
	default:
		return Scalar{Value: typed}
	}
}

// Lookup follows a chain of mapping keys starting at root.
func Lookup(root Node, path ...string) (Node, bool) {
	current := root

	for _, key := range path {
		mapping, ok := current.(*Mapping)
		if !ok {
			return nil, false
		}

		next, found := mapping.Get(key)
		if !found {
			return nil, false
		}

		current = next
	}

	return current, true
}
