// Package config provides configuration loading and validation for fixedkit.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/fixedkit/pkg/fault"
	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

// Sentinel validation errors.
var (
	ErrInvalidCapacity   = errors.New("workload capacity must be positive")
	ErrInvalidOperations = errors.New("workload operations must be positive")
	ErrInvalidKeySpace   = errors.New("workload key space must be positive")
	ErrInvalidEraseRatio = errors.New("workload erase ratio must be within [0, 1]")
	ErrInvalidCapacities = errors.New("workload capacities must all be positive")
	ErrInvalidMaxMemory  = errors.New("invalid workload max memory")
	ErrInvalidTimeout    = errors.New("workload timeout must not be negative")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("invalid log format")
	ErrInvalidSample     = errors.New("telemetry sample ratio must be within [0, 1]")
	ErrInvalidReport     = errors.New("invalid report format")
)

const envPrefix = "FIXEDKIT"

// Config holds all configuration for fixedkit.
type Config struct {
	Workload  WorkloadConfig  `mapstructure:"workload"`
	Fault     FaultConfig     `mapstructure:"fault"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Report    ReportConfig    `mapstructure:"report"`
}

// WorkloadConfig drives the verify and bench runners.
type WorkloadConfig struct {
	MaxMemory  string        `mapstructure:"max_memory"`
	Capacities []int         `mapstructure:"capacities"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Seed       int64         `mapstructure:"seed"`
	EraseRatio float64       `mapstructure:"erase_ratio"`
	Capacity   int           `mapstructure:"capacity"`
	Operations int           `mapstructure:"operations"`
	KeySpace   int           `mapstructure:"key_space"`
}

// FaultConfig selects the failure handler installed into containers.
type FaultConfig struct {
	Policy string `mapstructure:"policy"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// ReportConfig controls result rendering.
type ReportConfig struct {
	Format   string `mapstructure:"format"`
	PlotPath string `mapstructure:"plot_path"`
	NoColor  bool   `mapstructure:"no_color"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("fixedkit")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/fixedkit")
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("workload.capacity", DefaultCapacity)
	viperCfg.SetDefault("workload.operations", DefaultOperations)
	viperCfg.SetDefault("workload.seed", DefaultSeed)
	viperCfg.SetDefault("workload.key_space", DefaultKeySpace)
	viperCfg.SetDefault("workload.erase_ratio", DefaultEraseRatio)
	viperCfg.SetDefault("workload.capacities", DefaultCapacities())
	viperCfg.SetDefault("workload.max_memory", DefaultMaxMemory)
	viperCfg.SetDefault("workload.timeout", DefaultTimeout)

	viperCfg.SetDefault("fault.policy", DefaultFaultPolicy)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.environment", "")

	viperCfg.SetDefault("report.format", DefaultReportFormat)
	viperCfg.SetDefault("report.plot_path", DefaultPlotPath)
	viperCfg.SetDefault("report.no_color", false)
}

// Validate checks every section and returns the first violation.
func (c *Config) Validate() error {
	err := c.Workload.validate()
	if err != nil {
		return err
	}

	_, err = fault.ByName(c.Fault.Policy, nil)
	if err != nil {
		return err
	}

	_, err = observability.ParseLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Logging.Format != LogFormatText && c.Logging.Format != LogFormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSample, c.Telemetry.SampleRatio)
	}

	if !slices.Contains([]string{ReportFormatTable, ReportFormatJSON, ReportFormatYAML}, c.Report.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidReport, c.Report.Format)
	}

	return nil
}

func (w *WorkloadConfig) validate() error {
	if w.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, w.Capacity)
	}

	if w.Operations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOperations, w.Operations)
	}

	if w.KeySpace <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKeySpace, w.KeySpace)
	}

	if w.EraseRatio < 0 || w.EraseRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidEraseRatio, w.EraseRatio)
	}

	for _, c := range w.Capacities {
		if c <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidCapacities, c)
		}
	}

	if w.Timeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, w.Timeout)
	}

	_, err := w.MaxMemoryBytes()

	return err
}

// MaxMemoryBytes parses MaxMemory ("256MiB", "1GB"). Empty means no limit
// and yields zero.
func (w *WorkloadConfig) MaxMemoryBytes() (uint64, error) {
	if w.MaxMemory == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(w.MaxMemory)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxMemory, w.MaxMemory, err)
	}

	return n, nil
}

// FaultHandler builds the configured failure handler. The log policy writes
// through logger.
func (c *Config) FaultHandler(logger *slog.Logger) (fault.Handler, error) {
	return fault.ByName(c.Fault.Policy, logger)
}

// Observability maps the logging and telemetry sections onto an
// observability configuration for the given run mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version
	obs.Environment = c.Telemetry.Environment
	obs.Mode = mode
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.LogJSON = c.Logging.Format == LogFormatJSON

	level, err := observability.ParseLevel(c.Logging.Level)
	if err == nil {
		obs.LogLevel = level
	}

	return obs
}
