package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/almanac/pkg/config"
)

const (
	testWorkers     = 8
	testSampleRatio = 0.25
	testFilePerm    = 0o600
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "almanac.yaml")

	err := os.WriteFile(path, []byte(content), testFilePerm)
	require.NoError(t, err)

	return path
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
input:
  path: "day5.txt"
  seed_mode: ranges
  from: soil
  to: humidity
solve:
  format: yaml
  workers: 8
  trace: true
logging:
  level: debug
  format: json
telemetry:
  otlp_endpoint: "localhost:4317"
  otlp_insecure: true
  sample_ratio: 0.25
  dump_metrics: true
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "day5.txt", cfg.Input.Path)
	assert.Equal(t, config.SeedModeRanges, cfg.Input.SeedMode)
	assert.Equal(t, "soil", cfg.Input.From)
	assert.Equal(t, "humidity", cfg.Input.To)
	assert.Equal(t, config.FormatYAML, cfg.Solve.Format)
	assert.Equal(t, testWorkers, cfg.Solve.Workers)
	assert.True(t, cfg.Solve.Trace)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, config.LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)
	assert.InDelta(t, testSampleRatio, cfg.Telemetry.SampleRatio, 1e-9)
	assert.True(t, cfg.Telemetry.DumpMetrics)
}

func TestLoadConfig_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "solve:\n  workers: 2\n")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Solve.Workers)
	assert.Equal(t, config.DefaultSeedMode, cfg.Input.SeedMode)
	assert.Equal(t, config.DefaultFormat, cfg.Solve.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    error
	}{
		{name: "seed mode", content: "input:\n  seed_mode: pairs\n", want: config.ErrInvalidSeedMode},
		{name: "empty unit", content: "input:\n  from: \"\"\n", want: config.ErrEmptyUnit},
		{name: "format", content: "solve:\n  format: xml\n", want: config.ErrInvalidFormat},
		{name: "workers", content: "solve:\n  workers: -1\n", want: config.ErrInvalidWorkers},
		{name: "log level", content: "logging:\n  level: loud\n", want: config.ErrInvalidLogLevel},
		{name: "log format", content: "logging:\n  format: xml\n", want: config.ErrInvalidLogFormat},
		{name: "ratio", content: "telemetry:\n  sample_ratio: 2\n", want: config.ErrInvalidRatio},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tc.content))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "solve: [unclosed\n"))
	require.Error(t, err)
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_EnvOverride_NestedKey(t *testing.T) {
	t.Setenv("ALMANAC_SOLVE_WORKERS", "3")
	t.Setenv("ALMANAC_INPUT_SEED_MODE", "ranges")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Solve.Workers)
	assert.Equal(t, config.SeedModeRanges, cfg.Input.SeedMode)
}

func TestLoadWith_FlagOverride(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("solve.format", config.FormatJSON)

	cfg, err := config.LoadWith(v, writeConfig(t, "solve:\n  format: yaml\n"))
	require.NoError(t, err)

	assert.Equal(t, config.FormatJSON, cfg.Solve.Format)
}
