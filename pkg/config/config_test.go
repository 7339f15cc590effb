package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/fixedkit/pkg/config"
	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

const (
	testCapacity   = 512
	testOperations = 2000
	testSeed       = 42
	testKeySpace   = 900
	testMiB        = 1 << 20
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixedkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultCapacity, cfg.Workload.Capacity)
	assert.Equal(t, config.DefaultOperations, cfg.Workload.Operations)
	assert.Equal(t, int64(config.DefaultSeed), cfg.Workload.Seed)
	assert.Equal(t, config.DefaultKeySpace, cfg.Workload.KeySpace)
	assert.InDelta(t, config.DefaultEraseRatio, cfg.Workload.EraseRatio, 0.001)
	assert.Equal(t, config.DefaultCapacities(), cfg.Workload.Capacities)
	assert.Equal(t, config.DefaultTimeout, cfg.Workload.Timeout)
	assert.Equal(t, config.DefaultFaultPolicy, cfg.Fault.Policy)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, config.DefaultReportFormat, cfg.Report.Format)
	assert.False(t, cfg.Report.NoColor)

	maxMem, err := cfg.Workload.MaxMemoryBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(256*testMiB), maxMem)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `workload:
  capacity: 512
  operations: 2000
  seed: 42
  key_space: 900
  erase_ratio: 0.25
  capacities: [16, 32]
  max_memory: "64MiB"
  timeout: "90s"
fault:
  policy: panic
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: "localhost:4317"
  otlp_headers: "api-key=abc"
  otlp_insecure: true
  metrics_addr: ":9464"
  sample_ratio: 0.5
  environment: ci
report:
  format: yaml
  plot_path: bench.html
  no_color: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, testCapacity, cfg.Workload.Capacity)
	assert.Equal(t, testOperations, cfg.Workload.Operations)
	assert.Equal(t, int64(testSeed), cfg.Workload.Seed)
	assert.Equal(t, testKeySpace, cfg.Workload.KeySpace)
	assert.InDelta(t, 0.25, cfg.Workload.EraseRatio, 0.001)
	assert.Equal(t, []int{16, 32}, cfg.Workload.Capacities)
	assert.Equal(t, 90*time.Second, cfg.Workload.Timeout)
	assert.Equal(t, "panic", cfg.Fault.Policy)
	assert.Equal(t, ":9464", cfg.Telemetry.MetricsAddr)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.Equal(t, config.ReportFormatYAML, cfg.Report.Format)
	assert.Equal(t, "bench.html", cfg.Report.PlotPath)
	assert.True(t, cfg.Report.NoColor)

	maxMem, err := cfg.Workload.MaxMemoryBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(64*testMiB), maxMem)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("FIXEDKIT_WORKLOAD_CAPACITY", "77")
	t.Setenv("FIXEDKIT_FAULT_POLICY", "log")

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 77, cfg.Workload.Capacity)
	assert.Equal(t, "log", cfg.Fault.Policy)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"zero capacity", "workload:\n  capacity: 0\n", config.ErrInvalidCapacity},
		{"negative operations", "workload:\n  operations: -1\n", config.ErrInvalidOperations},
		{"zero key space", "workload:\n  key_space: 0\n", config.ErrInvalidKeySpace},
		{"erase ratio", "workload:\n  erase_ratio: 1.5\n", config.ErrInvalidEraseRatio},
		{"capacities", "workload:\n  capacities: [8, 0]\n", config.ErrInvalidCapacities},
		{"max memory", "workload:\n  max_memory: lots\n", config.ErrInvalidMaxMemory},
		{"fault policy", "fault:\n  policy: ignore\n", fault.ErrUnknownPolicy},
		{"log level", "logging:\n  level: chatty\n", config.ErrInvalidLogLevel},
		{"log format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"sample ratio", "telemetry:\n  sample_ratio: -0.1\n", config.ErrInvalidSample},
		{"report format", "report:\n  format: csv\n", config.ErrInvalidReport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_FaultHandler(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Fault: config.FaultConfig{Policy: "panic"}}

	h, err := cfg.FaultHandler(slog.Default())
	require.NoError(t, err)
	assert.IsType(t, fault.PanicHandler{}, h)
}

func TestConfig_Observability(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: "warn", Format: config.LogFormatJSON},
		Telemetry: config.TelemetryConfig{
			OTLPEndpoint: "collector:4317",
			OTLPHeaders:  "k=v",
			Environment:  "ci",
			SampleRatio:  0.5,
		},
	}

	obs := cfg.Observability(observability.ModeBench, "1.2.3")

	assert.Equal(t, "fixedkit", obs.ServiceName)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, observability.ModeBench, obs.Mode)
	assert.Equal(t, "collector:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"k": "v"}, obs.OTLPHeaders)
	assert.Equal(t, slog.LevelWarn, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.InDelta(t, 0.5, obs.SampleRatio, 0.001)
}
