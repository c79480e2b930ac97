// Package observability wires OpenTelemetry tracing, engine metrics and
// structured logging for the almanac CLI.
package observability

import (
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/almanac/pkg/config"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "almanac"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "dev").
	Environment string

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio. Zero samples everything.
	SampleRatio float64

	// Metrics attaches a Prometheus registry to the meter provider so the
	// collected engine metrics can be dumped after a run.
	Metrics bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		LogLevel:           slog.LevelWarn,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// FromAppConfig derives the observability settings from the loaded
// application configuration.
func FromAppConfig(cfg *config.Config, serviceVersion string) (Config, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return Config{}, err
	}

	obs := DefaultConfig()
	obs.ServiceVersion = serviceVersion
	obs.Environment = cfg.Telemetry.Environment
	obs.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obs.SampleRatio = cfg.Telemetry.SampleRatio
	obs.Metrics = cfg.Telemetry.DumpMetrics
	obs.LogLevel = level
	obs.LogJSON = cfg.Logging.Format == config.LogFormatJSON

	return obs, nil
}
