package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_FillsFromBuildInfo(t *testing.T) {
	Version, Commit, Date = "dev", "none", "unknown"

	t.Cleanup(func() { Version, Commit, Date = "dev", "none", "unknown" })

	apply(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	assert.Equal(t, "v1.4.0", Version)
	assert.Equal(t, "0123456789ab", Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", Date)
	assert.Equal(t, "v1.4.0 (commit: 0123456789ab, built: 2026-01-02T03:04:05Z)", String())
}

func TestApply_KeepsLdflagsValues(t *testing.T) {
	Version, Commit, Date = "v2.0.0", "abc", "today"

	t.Cleanup(func() { Version, Commit, Date = "dev", "none", "unknown" })

	apply(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})

	assert.Equal(t, "v2.0.0", Version)
	assert.Equal(t, "abc", Commit)
	assert.Equal(t, "today", Date)
}
