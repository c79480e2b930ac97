package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/almanac/internal/observability"
	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
	"github.com/Sumatoshi-tech/almanac/pkg/config"
	"github.com/Sumatoshi-tech/almanac/pkg/safeconv"
)

const (
	solveCmdUse   = "solve [file]"
	solveCmdShort = "Find the lowest location reachable from the seeds"

	flagMode    = "mode"
	flagWorkers = "workers"
	flagTrace   = "trace"
)

// SolveResult is the outcome of one solve.
type SolveResult struct {
	Input       string      `json:"input"        yaml:"input"`
	Mode        string      `json:"mode"         yaml:"mode"`
	From        string      `json:"from"         yaml:"from"`
	To          string      `json:"to"           yaml:"to"`
	Seeds       uint64      `json:"seeds"        yaml:"seeds"`
	Tables      []string    `json:"tables"       yaml:"tables"`
	MinLocation uint64      `json:"min_location" yaml:"min_location"`
	Traces      []SeedTrace `json:"traces,omitempty" yaml:"traces,omitempty"`
}

// SeedTrace is the stage-by-stage path of one seed.
type SeedTrace struct {
	Seed     uint64         `json:"seed"     yaml:"seed"`
	Location uint64         `json:"location" yaml:"location"`
	Steps    []almanac.Step `json:"steps"    yaml:"steps"`
}

// NewSolveCommand creates the solve subcommand.
func NewSolveCommand() *cobra.Command {
	return buildSolveCommand()
}

func buildSolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   solveCmdUse,
		Short: solveCmdShort,
		Long: `Solve feeds the seeds through every mapping table, from --from to --to,
and reports the lowest resulting location.

In "points" mode every seed number is mapped on its own. In "ranges" mode the
seeds line is read as start/length pairs and whole spans are carried through
the tables without enumerating their members.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSolve,
	}

	addCommonFlags(cmd)
	cmd.Flags().String(flagMode, config.DefaultSeedMode, "Seed mode: points, ranges")
	cmd.Flags().Int(flagWorkers, config.DefaultWorkers, "Parallel workers (0 = GOMAXPROCS)")
	cmd.Flags().Bool(flagTrace, false, "Show the stage-by-stage path of every seed (or span start)")

	return cmd
}

func runSolve(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}

	sess, err := openSession(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	defer func() {
		if closeErr := sess.close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err = sess.load(ctx); err != nil {
		return err
	}

	result, err := solve(ctx, sess)
	if err != nil {
		return err
	}

	if cfg.Solve.Format == config.FormatText {
		renderSolve(sess, result)

		return nil
	}

	return sess.writeStructured(result)
}

func solve(ctx context.Context, sess *session) (*SolveResult, error) {
	cfg := sess.cfg

	ctx, span := sess.providers.Tracer.Start(ctx, "almanac.solve",
		trace.WithAttributes(
			attribute.String("almanac.mode", cfg.Input.SeedMode),
			attribute.Int("almanac.workers", cfg.Solve.Workers),
		))
	defer span.End()

	start := time.Now()

	result, err := evaluate(ctx, sess)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	var seeds uint64
	if result != nil {
		seeds = result.Seeds
	}

	elapsed := time.Since(start)
	sess.metrics.RecordSolve(ctx, cfg.Input.SeedMode, status, safeconv.SaturatingInt64(seeds), elapsed)

	if err != nil {
		return nil, err
	}

	sess.providers.Logger.InfoContext(ctx, "solved",
		"mode", cfg.Input.SeedMode, "seeds", seeds, "min_location", result.MinLocation, "elapsed", elapsed)

	return result, nil
}

func evaluate(ctx context.Context, sess *session) (*SolveResult, error) {
	cfg := sess.cfg
	p := sess.pipeline

	result := &SolveResult{
		Input: cfg.Input.Path,
		Mode:  cfg.Input.SeedMode,
		From:  cfg.Input.From,
		To:    cfg.Input.To,
	}

	for _, t := range p.Tables() {
		result.Tables = append(result.Tables, t.Name())
	}

	var starts []uint64

	switch cfg.Input.SeedMode {
	case config.SeedModeRanges:
		pairs, err := sess.doc.SeedPairs()
		if err != nil {
			return nil, err
		}

		spans, err := almanac.SeedSpans(pairs)
		if err != nil {
			return nil, err
		}

		minLoc, err := p.MinLocationOverSpans(ctx, spans, cfg.Solve.Workers)
		if err != nil {
			return nil, err
		}

		for _, s := range spans {
			result.Seeds = safeconv.SaturatingAdd(result.Seeds, s.Length)
			starts = append(starts, s.SourceStart)
		}

		result.MinLocation = minLoc
	default:
		minLoc, err := p.MinLocation(ctx, sess.doc.Seeds, cfg.Solve.Workers)
		if err != nil {
			return nil, err
		}

		result.Seeds = safeconv.MustIntToUint64(len(sess.doc.Seeds))
		result.MinLocation = minLoc
		starts = sess.doc.Seeds
	}

	if cfg.Solve.Trace {
		for _, seed := range starts {
			steps := p.Trace(seed)
			result.Traces = append(result.Traces, SeedTrace{
				Seed:     seed,
				Location: p.FeedForward(seed),
				Steps:    steps,
			})
		}
	}

	return result, nil
}

func renderSolve(sess *session, result *SolveResult) {
	sess.heading("Almanac %s", result.Input)
	fmt.Fprintf(sess.stdout, "  chain:  %s\n", strings.Join(result.Tables, " -> "))
	fmt.Fprintf(sess.stdout, "  mode:   %s\n", result.Mode)
	fmt.Fprintf(sess.stdout, "  seeds:  %s\n", comma(result.Seeds))

	if len(result.Traces) > 0 {
		fmt.Fprintln(sess.stdout)
		sess.heading("Traces")

		tbl := newTableWriter()

		header := table.Row{"seed"}
		for _, name := range result.Tables {
			_, dest, _ := strings.Cut(name, "-to-")
			header = append(header, dest)
		}

		tbl.AppendHeader(header)

		for _, tr := range result.Traces {
			row := table.Row{tr.Seed}
			for _, step := range tr.Steps {
				row = append(row, step.Output)
			}

			tbl.AppendRow(row)
		}

		fmt.Fprintln(sess.stdout, tbl.Render())
	}

	fmt.Fprintln(sess.stdout)
	sess.heading("Lowest %s: %s", result.To, comma(result.MinLocation))
}
