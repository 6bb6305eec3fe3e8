package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/regmetal/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".regmetal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultVendor, cfg.Vendor)
	assert.Equal(t, config.DefaultMacroPrefix, cfg.Render.MacroPrefix)
	assert.Equal(t, config.DefaultBSPDir, cfg.Output.BSPDir)
	assert.Equal(t, config.DefaultMetalDir, cfg.Output.MetalDir)
	assert.False(t, cfg.Output.Overwrite)
	assert.False(t, cfg.Output.ShowDiff)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)

	size, err := cfg.MaxInputBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(64<<20), size)
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `vendor: acme
render:
  macro_prefix: ""
output:
  bsp_dir: bsp
  metal_dir: drivers
  overwrite: true
  show_diff: true
input:
  max_size: 1MB
logging:
  level: debug
  json: true
observability:
  metrics_textfile: /tmp/regmetal.prom
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Vendor)
	assert.Empty(t, cfg.Render.MacroPrefix)
	assert.Equal(t, "bsp", cfg.Output.BSPDir)
	assert.Equal(t, "drivers", cfg.Output.MetalDir)
	assert.True(t, cfg.Output.Overwrite)
	assert.True(t, cfg.Output.ShowDiff)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "/tmp/regmetal.prom", cfg.Observability.MetricsTextfile)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	size, err := cfg.MaxInputBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), size)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "vendor", content: "vendor: \"9bad\"\n", want: config.ErrInvalidVendor},
		{name: "prefix", content: "render:\n  macro_prefix: \"A-B\"\n", want: config.ErrInvalidMacroPrefix},
		{name: "level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "size", content: "input:\n  max_size: lots\n", want: config.ErrInvalidInputSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("REGMETAL_VENDOR", "envvendor")
	t.Setenv("REGMETAL_OUTPUT_BSP_DIR", "/env/bsp")

	cfg, err := config.LoadConfig(writeConfig(t, "vendor: filevendor\n"))
	require.NoError(t, err)

	assert.Equal(t, "envvendor", cfg.Vendor)
	assert.Equal(t, "/env/bsp", cfg.Output.BSPDir)
}

func TestValidateVendor(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.ValidateVendor("sifive"))
	require.ErrorIs(t, config.ValidateVendor("si five"), config.ErrInvalidVendor)
}
