package config

// Input defaults.
const (
	DefaultSeedMode = SeedModePoints
	DefaultFromUnit = "seed"
	DefaultToUnit   = "location"
)

// Solve defaults.
const (
	DefaultFormat  = FormatText
	DefaultWorkers = 0 // 0 = GOMAXPROCS.
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Logging defaults.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = LogFormatText
)
