package symtab_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
	"github.com/Sumatoshi-tech/regmetal/pkg/symtab"
)

func schemaDoc() docnode.Node {
	return docnode.FromAny(map[string]any{
		"component": map[string]any{
			"pSchema": map[string]any{
				"properties": map[string]any{
					"RegWidth": map[string]any{"type": "integer", "default": json.Number("32")},
					"Bad":      map[string]any{"default": "text"},
					"NoDef":    map[string]any{"type": "integer"},
				},
			},
		},
	})
}

func TestResolve_CollectsProperties(t *testing.T) {
	t.Parallel()

	table := symtab.Resolve(schemaDoc())

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"Bad", "NoDef", "RegWidth"}, table.Names())
}

func TestUint_IndirectDefault(t *testing.T) {
	t.Parallel()

	table := symtab.Resolve(schemaDoc())

	width, err := table.Uint(docnode.Scalar{Value: "RegWidth"})
	require.NoError(t, err)
	assert.Equal(t, uint64(32), width)

	literal, err := table.Uint(docnode.Scalar{Value: json.Number("8")})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), literal)
}

func TestUint_Failures(t *testing.T) {
	t.Parallel()

	table := symtab.Resolve(schemaDoc())

	_, err := table.Uint(docnode.Scalar{Value: "Missing"})
	require.ErrorIs(t, err, regmodel.ErrUnknownSymbol)

	_, err = table.Uint(docnode.Scalar{Value: "NoDef"})
	require.ErrorIs(t, err, regmodel.ErrUnknownSymbol)

	_, err = table.Uint(docnode.Scalar{Value: "Bad"})
	require.ErrorIs(t, err, docnode.ErrNotNumber)

	_, err = table.Uint(docnode.NewMapping())
	require.ErrorIs(t, err, regmodel.ErrMissingProperty)

	_, err = table.Uint(docnode.Scalar{Value: true})
	require.ErrorIs(t, err, regmodel.ErrMissingProperty)
}

func TestField(t *testing.T) {
	t.Parallel()

	table := symtab.New()
	table.Define("RegWidth", 32)

	register := docnode.FromAny(map[string]any{"size": "RegWidth", "addressOffset": 64}).(*docnode.Mapping)

	size, err := table.Field(register, "size")
	require.NoError(t, err)
	assert.Equal(t, uint64(32), size)

	offset, err := table.Field(register, "addressOffset")
	require.NoError(t, err)
	assert.Equal(t, uint64(64), offset)

	_, err = table.Field(register, "bitWidth")
	require.ErrorIs(t, err, regmodel.ErrMissingProperty)
}

func TestResolve_LaterSectionWins(t *testing.T) {
	t.Parallel()

	doc := docnode.FromAny(map[string]any{
		"a": map[string]any{"pSchema": map[string]any{"properties": map[string]any{"W": map[string]any{"default": 8}}}},
		"b": map[string]any{"pSchema": map[string]any{"properties": map[string]any{"W": map[string]any{"default": 16}}}},
	})

	value, err := symtab.Resolve(doc).Uint(docnode.Scalar{Value: "W"})
	require.NoError(t, err)
	assert.Equal(t, uint64(16), value)
}
