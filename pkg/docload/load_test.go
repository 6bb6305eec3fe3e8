package docload_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/regmetal/pkg/docload"
	"github.com/Sumatoshi-tech/regmetal/pkg/docnode"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path       string
		format     docload.Format
		compressed bool
	}{
		{"design.json", docload.FormatJSON, false},
		{"uart.duh", docload.FormatJSON5, false},
		{"uart.JSON5", docload.FormatJSON5, false},
		{"om.yaml", docload.FormatYAML, false},
		{"om.yml.lz4", docload.FormatYAML, true},
		{"/tmp/x/design.json.lz4", docload.FormatJSON, true},
	}

	for _, tc := range cases {
		format, compressed, err := docload.FormatFromPath(tc.path)
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.format, format, tc.path)
		assert.Equal(t, tc.compressed, compressed, tc.path)
	}

	_, _, err := docload.FormatFromPath("design.xml")
	require.ErrorIs(t, err, docload.ErrUnsupportedFormat)
}

func TestParse_JSONKeepsOrder(t *testing.T) {
	t.Parallel()

	doc, err := docload.Parse([]byte(`{"zeta": 1, "alpha": {"y": [1, "two", null, true], "b": 2}}`), docload.FormatJSON)
	require.NoError(t, err)

	root, ok := doc.(*docnode.Mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha"}, root.Keys())

	alpha, ok := root.Mapping("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, alpha.Keys())

	seq, ok := alpha.Sequence("y")
	require.True(t, ok)
	assert.Equal(t, 4, seq.Len())

	zeta, _ := root.Get("zeta")
	value, err := zeta.(docnode.Scalar).Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), value)
}

func TestParse_JSONErrors(t *testing.T) {
	t.Parallel()

	_, err := docload.Parse([]byte(`{"a": 1} {"b": 2}`), docload.FormatJSON)
	require.ErrorIs(t, err, docload.ErrTrailingData)

	_, err = docload.Parse([]byte(`{"a": `), docload.FormatJSON)
	require.Error(t, err)

	_, err = docload.Parse([]byte(`{}`), docload.Format("toml"))
	require.ErrorIs(t, err, docload.ErrUnsupportedFormat)
}

func TestParse_JSON5(t *testing.T) {
	t.Parallel()

	doc, err := docload.Parse([]byte(`{
		// DUH components are usually JSON5
		component: {name: 'uart', size: 32, tags: [1, 2]}
	}`), docload.FormatJSON5)
	require.NoError(t, err)

	name, ok := docnode.Lookup(doc, "component", "name")
	require.True(t, ok)

	text, err := name.(docnode.Scalar).Text()
	require.NoError(t, err)
	assert.Equal(t, "uart", text)

	size, ok := docnode.Lookup(doc, "component", "size")
	require.True(t, ok)

	value, err := size.(docnode.Scalar).Uint()
	require.NoError(t, err)
	assert.Equal(t, uint64(32), value)
}

func TestParse_YAMLKeepsOrder(t *testing.T) {
	t.Parallel()

	doc, err := docload.Parse([]byte("b: 1\na:\n  - &x {k: v}\n  - *x\n"), docload.FormatYAML)
	require.NoError(t, err)

	root, ok := doc.(*docnode.Mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, root.Keys())

	seq, ok := root.Sequence("a")
	require.True(t, ok)
	require.Equal(t, 2, seq.Len())

	alias, ok := seq.Items[1].(*docnode.Mapping)
	require.True(t, ok)

	text, ok := alias.Text("k")
	require.True(t, ok)
	assert.Equal(t, "v", text)

	empty, err := docload.Parse(nil, docload.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, docnode.KindScalar, empty.Kind())
}

func TestReadFile_LZ4(t *testing.T) {
	t.Parallel()

	content := []byte(`{"component": {"name": "uart"}}`)

	var buf bytes.Buffer

	writer := lz4.NewWriter(&buf)
	_, err := writer.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	path := filepath.Join(t.TempDir(), "uart.json.lz4")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	data, err := docload.ReadFile(path, true, 0)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	doc, err := docload.NewLoader(nil).Load(path)
	require.NoError(t, err)

	_, ok := docnode.Lookup(doc, "component", "name")
	assert.True(t, ok)
}

func TestReadFile_SizeLimit(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "big.json", `{"padding": "0123456789"}`)

	_, err := docload.ReadFile(path, false, 8)
	require.ErrorIs(t, err, docload.ErrInputTooLarge)

	data, err := docload.ReadFile(path, false, 1024)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = docload.ReadFile(filepath.Join(t.TempDir(), "missing.json"), false, 0)
	require.Error(t, err)
}
