package config

// Output defaults.
const (
	DefaultVendor       = "sifive"
	DefaultMacroPrefix  = ""
	DefaultBSPDir       = "."
	DefaultMetalDir     = "."
	DefaultOverwrite    = false
	DefaultShowDiff     = false
	DefaultMaxInputSize = "64MiB"
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)
