package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/almanac/pkg/config"
	"github.com/Sumatoshi-tech/almanac/pkg/rangemap"
)

const (
	composeCmdUse   = "compose [file]"
	composeCmdShort = "Flatten the table chain into one equivalent table"
)

// ComposedTable is the flattened chain.
type ComposedTable struct {
	Name   string           `json:"name"   yaml:"name"`
	Stages int              `json:"stages" yaml:"stages"`
	Ranges []rangemap.Range `json:"ranges" yaml:"ranges"`
}

// NewComposeCommand creates the compose subcommand.
func NewComposeCommand() *cobra.Command {
	return buildComposeCommand()
}

func buildComposeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   composeCmdUse,
		Short: composeCmdShort,
		Long: `Compose folds every table of the chain into a single table that maps a
value straight from --from to --to. Values outside its ranges map to themselves.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompose,
	}

	addCommonFlags(cmd)

	return cmd
}

func runCompose(cmd *cobra.Command, args []string) (err error) {
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

	_, span := sess.providers.Tracer.Start(ctx, "almanac.compose")
	flat := sess.pipeline.Flatten()
	span.End()

	result := ComposedTable{
		Name:   flat.Name(),
		Stages: len(sess.pipeline.Tables()),
		Ranges: flat.Ranges(),
	}

	sess.providers.Logger.InfoContext(ctx, "chain flattened",
		"stages", result.Stages, "ranges", len(result.Ranges))

	if cfg.Solve.Format != config.FormatText {
		return sess.writeStructured(result)
	}

	sess.heading("%s (%d stages, %d ranges)", result.Name, result.Stages, len(result.Ranges))

	tbl := newTableWriter()
	tbl.AppendHeader(table.Row{"source", "destination", "length"})

	for _, r := range result.Ranges {
		tbl.AppendRow(table.Row{r.SourceStart, r.DestinationStart, r.Length})
	}

	fmt.Fprintln(sess.stdout, tbl.Render())

	return nil
}
