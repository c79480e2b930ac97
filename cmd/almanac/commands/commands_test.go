package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
	"github.com/Sumatoshi-tech/almanac/pkg/config"
)

const (
	examplePointsMin = 35
	exampleSpansMin  = 46
	exampleSpanSeeds = 27
	exampleTables    = 7
	testFilePerm     = 0o600
)

var exampleFile = filepath.Join("testdata", "example.txt")

// execute runs cmd with args and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func TestSolveCommand_PointsText(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildSolveCommand(), exampleFile, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Lowest location: 35")
	assert.Contains(t, out, "seed-to-soil -> soil-to-fertilizer")
	assert.Contains(t, out, "mode:   points")
}

func TestSolveCommand_RangesJSON(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildSolveCommand(), exampleFile, "--mode", "ranges", "--format", "json", "--workers", "2")
	require.NoError(t, err)

	var result SolveResult

	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(exampleSpansMin), result.MinLocation)
	assert.Equal(t, uint64(exampleSpanSeeds), result.Seeds)
	assert.Equal(t, config.SeedModeRanges, result.Mode)
	assert.Len(t, result.Tables, exampleTables)
	assert.Empty(t, result.Traces)
}

func TestSolveCommand_TraceYAML(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildSolveCommand(), exampleFile, "--trace", "--format", "yaml")
	require.NoError(t, err)

	var result SolveResult

	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(examplePointsMin), result.MinLocation)
	require.Len(t, result.Traces, 4)

	locations := map[uint64]uint64{}
	for _, tr := range result.Traces {
		require.Len(t, tr.Steps, exampleTables)
		assert.Equal(t, tr.Location, tr.Steps[len(tr.Steps)-1].Output)

		locations[tr.Seed] = tr.Location
	}

	assert.Equal(t, map[uint64]uint64{79: 82, 14: 43, 55: 86, 13: 35}, locations)
}

func TestSolveCommand_TraceText(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildSolveCommand(), exampleFile, "--trace", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Traces")
	assert.Contains(t, out, "LOCATION")
	assert.Contains(t, out, "82")
}

func TestSolveCommand_MetricsDump(t *testing.T) {
	t.Parallel()

	_, errOut, err := execute(t, buildSolveCommand(), exampleFile, "--metrics")
	require.NoError(t, err)

	assert.Regexp(t, `almanac.seeds.mapped`, errOut)
	assert.Regexp(t, `almanac.tables.ranges`, errOut)
	assert.Regexp(t, `almanac.solve.duration.seconds`, errOut)
}

func TestSolveCommand_DebugLogging(t *testing.T) {
	t.Parallel()

	_, errOut, err := execute(t, buildSolveCommand(), exampleFile, "--log-level", "debug", "--log-format", "json")
	require.NoError(t, err)

	assert.Contains(t, errOut, `"msg":"table built"`)
	assert.Contains(t, errOut, `"msg":"solved"`)
	assert.Contains(t, errOut, `"table":"humidity-to-location"`)
}

func TestSolveCommand_ConfigFile(t *testing.T) {
	t.Parallel()

	abs, err := filepath.Abs(exampleFile)
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "almanac.yaml")
	content := "input:\n  path: " + abs + "\n  seed_mode: ranges\nsolve:\n  format: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), testFilePerm))

	out, _, err := execute(t, buildSolveCommand(), "--config", cfgPath)
	require.NoError(t, err)

	var result SolveResult

	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(exampleSpansMin), result.MinLocation)

	// Flags the user sets win over the file.
	out, _, err = execute(t, buildSolveCommand(), "--config", cfgPath, "--mode", "points")
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(examplePointsMin), result.MinLocation)
}

func TestSolveCommand_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args []string
		want error
	}{
		{name: "no input", args: nil, want: ErrNoInput},
		{name: "bad mode", args: []string{exampleFile, "--mode", "pairs"}, want: config.ErrInvalidSeedMode},
		{name: "bad format", args: []string{exampleFile, "--format", "xml"}, want: config.ErrInvalidFormat},
		{name: "negative workers", args: []string{exampleFile, "--workers", "-1"}, want: config.ErrInvalidWorkers},
		{name: "unused table", args: []string{exampleFile, "--from", "soil"}, want: almanac.ErrUnusedTable},
		{name: "broken chain", args: []string{exampleFile, "--to", "planet"}, want: almanac.ErrBrokenChain},
		{name: "missing file", args: []string{filepath.Join("testdata", "missing.txt")}, want: os.ErrNotExist},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := execute(t, buildSolveCommand(), tc.args...)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInspectCommand_JSON(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildInspectCommand(), exampleFile, "--format", "json")
	require.NoError(t, err)

	var stats []TableStats

	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, exampleTables)

	first := stats[0]
	assert.Equal(t, "seed-to-soil", first.Name)
	assert.Equal(t, 2, first.Ranges)
	assert.Equal(t, uint64(50), first.Covered)
	assert.Positive(t, first.Nodes)
	assert.GreaterOrEqual(t, first.Depth, 1)
	assert.GreaterOrEqual(t, first.MaxOverlaps, 1)

	assert.Equal(t, "humidity-to-location", stats[exampleTables-1].Name)
}

func TestInspectCommand_Text(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildInspectCommand(), exampleFile, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Tables in "+exampleFile)
	assert.Contains(t, out, "water-to-light")
	// go-pretty upper-cases footers.
	assert.Contains(t, strings.ToLower(out), "7 tables")
}

func TestComposeCommand_MatchesPipeline(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildComposeCommand(), exampleFile, "--format", "json")
	require.NoError(t, err)

	var composed ComposedTable

	require.NoError(t, json.Unmarshal([]byte(out), &composed))
	assert.Equal(t, "seed-to-location", composed.Name)
	assert.Equal(t, exampleTables, composed.Stages)
	require.NotEmpty(t, composed.Ranges)

	flat, err := almanac.NewTableFromRanges(composed.Name, composed.Ranges)
	require.NoError(t, err)

	got, err := almanac.NewPipeline(flat).MinLocation(context.Background(), []uint64{79, 14, 55, 13}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(examplePointsMin), got)
}

func TestComposeCommand_Text(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, buildComposeCommand(), exampleFile, "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "seed-to-location (7 stages")
	assert.Contains(t, out, "DESTINATION")
}

func TestComma(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234,567", comma(1234567))
	assert.Equal(t, "18,446,744,073,709,551,615", comma(^uint64(0)))
}
