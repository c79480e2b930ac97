package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/almanac/pkg/almanac"
	"github.com/Sumatoshi-tech/almanac/pkg/alg/interval"
	"github.com/Sumatoshi-tech/almanac/pkg/config"
	"github.com/Sumatoshi-tech/almanac/pkg/safeconv"
)

const (
	inspectCmdUse   = "inspect [file]"
	inspectCmdShort = "Show per-table interval tree statistics"
)

// TableStats summarizes one table and its interval tree.
type TableStats struct {
	Name        string `json:"name"         yaml:"name"`
	Ranges      int    `json:"ranges"       yaml:"ranges"`
	Identity    int    `json:"identity"     yaml:"identity"`
	Covered     uint64 `json:"covered"      yaml:"covered"`
	Nodes       int    `json:"nodes"        yaml:"nodes"`
	Depth       int    `json:"depth"        yaml:"depth"`
	MaxOverlaps int    `json:"max_overlaps" yaml:"max_overlaps"`
}

// NewInspectCommand creates the inspect subcommand.
func NewInspectCommand() *cobra.Command {
	return buildInspectCommand()
}

func buildInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   inspectCmdUse,
		Short: inspectCmdShort,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInspect,
	}

	addCommonFlags(cmd)

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) (err error) {
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
		if closeErr := sess.close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err = sess.load(ctx); err != nil {
		return err
	}

	stats := make([]TableStats, 0, len(sess.pipeline.Tables()))
	for _, t := range sess.pipeline.Tables() {
		stats = append(stats, tableStats(t))
	}

	if cfg.Solve.Format != config.FormatText {
		return sess.writeStructured(stats)
	}

	renderInspect(sess, stats)

	return nil
}

func tableStats(t *almanac.Table) TableStats {
	st := TableStats{
		Name:   t.Name(),
		Ranges: t.Tree().Len(),
		Depth:  t.Tree().Depth(),
	}

	for _, r := range t.Ranges() {
		st.Covered = safeconv.SaturatingAdd(st.Covered, r.Length)

		if r.IsIdentity() {
			st.Identity++
		}
	}

	t.Tree().Walk(func(n interval.NodeInfo) {
		st.Nodes++
		st.MaxOverlaps = max(st.MaxOverlaps, n.Overlaps)
	})

	return st
}

func renderInspect(sess *session, stats []TableStats) {
	sess.heading("Tables in %s", sess.cfg.Input.Path)

	tbl := newTableWriter()
	tbl.AppendHeader(table.Row{"table", "ranges", "identity", "covered", "nodes", "depth", "max overlaps"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	totalRanges := 0

	for _, st := range stats {
		totalRanges += st.Ranges
		tbl.AppendRow(table.Row{
			st.Name, st.Ranges, st.Identity, comma(st.Covered), st.Nodes, st.Depth, st.MaxOverlaps,
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d tables", len(stats)), humanize.Comma(int64(totalRanges)),
	})

	fmt.Fprintln(sess.stdout, tbl.Render())
}
