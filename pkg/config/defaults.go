package config

import "time"

// Workload defaults.
const (
	DefaultCapacity   = 1024
	DefaultOperations = 100_000
	DefaultSeed       = 1
	DefaultKeySpace   = 4096
	DefaultEraseRatio = 0.4
	DefaultMaxMemory  = "256MiB"
	DefaultTimeout    = 5 * time.Minute
)

// DefaultCapacities is the capacity sweep used by the bench command.
func DefaultCapacities() []int {
	return []int{64, 256, 1024, 4096, 16384}
}

// Fault defaults.
const (
	DefaultFaultPolicy = "silent"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Telemetry defaults.
const (
	DefaultMetricsAddr = ""
	DefaultSampleRatio = 1.0
)

// Report defaults.
const (
	DefaultReportFormat = ReportFormatTable
	DefaultPlotPath     = ""
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Report formats.
const (
	ReportFormatTable = "table"
	ReportFormatJSON  = "json"
	ReportFormatYAML  = "yaml"
)
