package docnode_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
)

func TestMapping_KeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	mapping := docnode.NewMapping()
	mapping.Set("zeta", docnode.Scalar{Value: 1})
	mapping.Set("alpha", docnode.Scalar{Value: 2})
	mapping.Set("zeta", docnode.Scalar{Value: 3})

	assert.Equal(t, []string{"zeta", "alpha"}, mapping.Keys())
	assert.Equal(t, 2, mapping.Len())

	value, ok := mapping.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, docnode.Scalar{Value: 3}, value)
}

func TestMapping_TypedAccessors(t *testing.T) {
	t.Parallel()

	root := docnode.FromAny(map[string]any{
		"name":   "uart",
		"count":  2,
		"child":  map[string]any{"x": 1},
		"items":  []any{1, 2},
		"number": json.Number("7"),
	}).(*docnode.Mapping)

	name, ok := root.Text("name")
	require.True(t, ok)
	assert.Equal(t, "uart", name)

	_, ok = root.Text("count")
	assert.False(t, ok)

	_, ok = root.Mapping("child")
	assert.True(t, ok)

	_, ok = root.Mapping("items")
	assert.False(t, ok)

	items, ok := root.Sequence("items")
	require.True(t, ok)
	assert.Equal(t, 2, items.Len())

	assert.Equal(t, []string{"child", "count", "items", "name", "number"}, root.Keys())
}

func TestScalar_Uint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value any
		want  uint64
		err   error
	}{
		{value: json.Number("32"), want: 32},
		{value: json.Number("0x1000"), want: 0x1000},
		{value: json.Number("8.0"), want: 8},
		{value: float64(16), want: 16},
		{value: 64, want: 64},
		{value: uint64(1 << 40), want: 1 << 40},
		{value: json.Number("-1"), err: docnode.ErrNegative},
		{value: 1.5, err: docnode.ErrNotInteger},
		{value: -3, err: docnode.ErrNegative},
		{value: "RegWidth", err: docnode.ErrNotNumber},
		{value: true, err: docnode.ErrNotNumber},
	}

	for _, tt := range tests {
		got, err := docnode.Scalar{Value: tt.value}.Uint()
		if tt.err != nil {
			require.ErrorIs(t, err, tt.err, "value %v", tt.value)

			continue
		}

		require.NoError(t, err, "value %v", tt.value)
		assert.Equal(t, tt.want, got)
	}
}

func TestScalar_IntAndText(t *testing.T) {
	t.Parallel()

	got, err := docnode.Scalar{Value: json.Number("-4")}.Int()
	require.NoError(t, err)
	assert.Equal(t, int64(-4), got)

	_, err = docnode.Scalar{Value: "x"}.Int()
	require.ErrorIs(t, err, docnode.ErrNotNumber)

	text, err := docnode.Scalar{Value: "hello"}.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.True(t, docnode.Scalar{Value: "hello"}.IsString())

	_, err = docnode.Scalar{Value: 1}.Text()
	require.ErrorIs(t, err, docnode.ErrNotString)
}

func TestInterface_RoundTrip(t *testing.T) {
	t.Parallel()

	plain := map[string]any{
		"a": []any{"x", map[string]any{"b": true}},
		"c": nil,
	}

	assert.Equal(t, plain, docnode.FromAny(plain).Interface())
}

func TestLookup(t *testing.T) {
	t.Parallel()

	root := docnode.FromAny(map[string]any{
		"component": map[string]any{"name": "uart"},
	})

	node, ok := docnode.Lookup(root, "component", "name")
	require.True(t, ok)
	assert.Equal(t, docnode.Scalar{Value: "uart"}, node)

	_, ok = docnode.Lookup(root, "component", "missing")
	assert.False(t, ok)

	_, ok = docnode.Lookup(root, "component", "name", "deeper")
	assert.False(t, ok)
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mapping", docnode.NewMapping().Kind().String())
	assert.Equal(t, "sequence", docnode.NewSequence().Kind().String())
	assert.Equal(t, "scalar", docnode.Scalar{}.Kind().String())
}
