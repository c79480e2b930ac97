// Package commands implements the almanac CLI subcommands.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/almanac/internal/observability"
	"github.com/Sumatoshi-tech/almanac/internal/parser"
	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
	"github.com/Sumatoshi-tech/almanac/pkg/config"
	"github.com/Sumatoshi-tech/almanac/pkg/version"
)

// ErrNoInput is returned when neither an argument nor input.path names a file.
var ErrNoInput = errors.New("no almanac file given (pass a path or set input.path)")

// Flags shared by every subcommand that reads an almanac.
const (
	flagConfig    = "config"
	flagFormat    = "format"
	flagFrom      = "from"
	flagTo        = "to"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagNoColor   = "no-color"
	flagMetrics   = "metrics"
)

// flagKeys maps command flags onto configuration keys.
var flagKeys = map[string]string{
	flagFormat:    "solve.format",
	flagFrom:      "input.from",
	flagTo:        "input.to",
	flagLogLevel:  "logging.level",
	flagLogFormat: "logging.format",
	flagNoColor:   "solve.no_color",
	flagMetrics:   "telemetry.dump_metrics",
	flagMode:      "input.seed_mode",
	flagWorkers:   "solve.workers",
	flagTrace:     "solve.trace",
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagConfig, "", "Config file (default: ./almanac.yaml or ~/.config/almanac/almanac.yaml)")
	cmd.Flags().String(flagFormat, config.DefaultFormat, "Output format: text, json, yaml")
	cmd.Flags().String(flagFrom, config.DefaultFromUnit, "Unit the chain starts from")
	cmd.Flags().String(flagTo, config.DefaultToUnit, "Unit the chain ends at")
	cmd.Flags().String(flagLogLevel, config.DefaultLogLevel, "Log level: debug, info, warn, error")
	cmd.Flags().String(flagLogFormat, config.DefaultLogFormat, "Log format: text, json")
	cmd.Flags().Bool(flagNoColor, false, "Disable colored output")
	cmd.Flags().Bool(flagMetrics, false, "Dump engine metrics in Prometheus text format to stderr")
}

// loadSettings merges defaults, config file, environment and the flags
// the user actually set, in increasing precedence.
func loadSettings(cmd *cobra.Command, args []string) (*config.Config, error) {
	v := viper.New()

	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("read --%s: %w", flagConfig, err)
	}

	cfg, err := config.LoadWith(v, path)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Input.Path = args[0]
	}

	if cfg.Input.Path == "" {
		return nil, ErrNoInput
	}

	return cfg, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// session carries the per-invocation telemetry and the loaded almanac.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.EngineMetrics
	stdout    io.Writer
	stderr    io.Writer

	doc      *parser.Document
	pipeline *almanac.Pipeline
}

func openSession(cmd *cobra.Command, cfg *config.Config) (*session, error) {
	obsCfg, err := observability.FromAppConfig(cfg, version.Version)
	if err != nil {
		return nil, err
	}

	obsCfg.LogWriter = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewEngineMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create engine metrics: %w", err), providers.Shutdown(context.Background()))
	}

	return &session{
		cfg:       cfg,
		providers: providers,
		metrics:   metrics,
		stdout:    cmd.OutOrStdout(),
		stderr:    cmd.ErrOrStderr(),
	}, nil
}

// close dumps collected metrics when asked to and flushes telemetry.
func (s *session) close(ctx context.Context) error {
	var dumpErr error

	if s.providers.Registry != nil {
		dumpErr = observability.WriteMetrics(s.stderr, s.providers.Registry)
	}

	return errors.Join(dumpErr, s.providers.Shutdown(ctx))
}

// load parses the input file and builds the chained pipeline.
func (s *session) load(ctx context.Context) error {
	ctx, span := s.providers.Tracer.Start(ctx, "almanac.load",
		trace.WithAttributes(attribute.String("almanac.input", s.cfg.Input.Path)))
	defer span.End()

	err := s.parse(ctx)
	if err == nil {
		err = s.build(ctx)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}

func (s *session) parse(ctx context.Context) error {
	f, err := os.Open(s.cfg.Input.Path)
	if err != nil {
		return fmt.Errorf("open almanac: %w", err)
	}
	defer f.Close()

	doc, err := parser.Parse(ctx, f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", s.cfg.Input.Path, err)
	}

	s.doc = doc
	s.providers.Logger.DebugContext(ctx, "almanac parsed",
		"seeds", len(doc.Seeds), "blocks", len(doc.Blocks))

	return nil
}

func (s *session) build(ctx context.Context) error {
	if len(s.doc.Blocks) == 0 {
		return fmt.Errorf("parse %s: %w", s.cfg.Input.Path, parser.ErrNoTables)
	}

	tables := make([]*almanac.Table, 0, len(s.doc.Blocks))

	for _, block := range s.doc.Blocks {
		start := time.Now()

		t, err := block.Table()
		if err != nil {
			return fmt.Errorf("build %s: %w", s.cfg.Input.Path, err)
		}

		elapsed := time.Since(start)
		s.metrics.RecordTable(ctx, t.Name(), t.Tree().Len(), t.Tree().Depth(), elapsed)
		s.providers.Logger.DebugContext(ctx, "table built",
			"table", t.Name(), "ranges", t.Tree().Len(), "depth", t.Tree().Depth(), "elapsed", elapsed)

		tables = append(tables, t)
	}

	p, err := almanac.ChainPipeline(tables, s.cfg.Input.From, s.cfg.Input.To)
	if err != nil {
		return fmt.Errorf("chain tables: %w", err)
	}

	s.pipeline = p

	return nil
}

// heading prints a colored section title unless color is disabled.
func (s *session) heading(format string, a ...any) {
	c := color.New(color.FgCyan, color.Bold)
	if s.cfg.Solve.NoColor {
		c.DisableColor()
	}

	c.Fprintf(s.stdout, format+"\n", a...)
}

// writeStructured encodes v as JSON or YAML.
func (s *session) writeStructured(v any) error {
	switch s.cfg.Solve.Format {
	case config.FormatJSON:
		enc := json.NewEncoder(s.stdout)
		enc.SetIndent("", "  ")

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case config.FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		if _, err = s.stdout.Write(out); err != nil {
			return fmt.Errorf("write yaml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidFormat, s.cfg.Solve.Format)
	}

	return nil
}

func newTableWriter() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

// comma formats v with thousands separators across the full uint64 range.
func comma(v uint64) string {
	return humanize.BigComma(new(big.Int).SetUint64(v))
}
