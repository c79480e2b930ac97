package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSeedsMapped        = "almanac.seeds.mapped"
	metricTableRanges        = "almanac.tables.ranges"
	metricTableBuildDuration = "almanac.table.build.duration.seconds"
	metricTreeDepth          = "almanac.tree.depth"
	metricSolveDuration      = "almanac.solve.duration.seconds"

	attrTable  = "table"
	attrMode   = "mode"
	attrStatus = "status"

	// StatusOK marks a successful solve.
	StatusOK = "ok"
	// StatusError marks a failed solve.
	StatusError = "error"
)

// buildBuckets covers tree construction from microseconds for toy inputs
// up to seconds for tables with millions of ranges.
var buildBuckets = []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5}

// solveBuckets covers a whole run, including billions of point seeds.
var solveBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300}

// EngineMetrics holds the instruments recorded by the solver.
type EngineMetrics struct {
	seedsMapped        metric.Int64Counter
	tableRanges        metric.Int64Counter
	tableBuildDuration metric.Float64Histogram
	treeDepth          metric.Int64Gauge
	solveDuration      metric.Float64Histogram
}

// NewEngineMetrics creates the engine instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	b := newMetricBuilder(mt)

	em := &EngineMetrics{
		seedsMapped:        b.counter(metricSeedsMapped, "Seed identifiers fed through the pipeline", "{seed}"),
		tableRanges:        b.counter(metricTableRanges, "Ranges loaded into mapping tables", "{range}"),
		tableBuildDuration: b.histogram(metricTableBuildDuration, "Interval tree build time", "s", buildBuckets...),
		treeDepth:          b.gauge(metricTreeDepth, "Interval tree depth per table", "{level}"),
		solveDuration:      b.histogram(metricSolveDuration, "End-to-end solve time", "s", solveBuckets...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return em, nil
}

// RecordTable records the size, depth and build time of one table.
func (em *EngineMetrics) RecordTable(ctx context.Context, name string, ranges, depth int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrTable, name))

	em.tableRanges.Add(ctx, int64(ranges), attrs)
	em.treeDepth.Record(ctx, int64(depth), attrs)
	em.tableBuildDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSolve records a finished solve. Seeds counts individual identifiers,
// so a span-mode solve reports the summed span lengths.
func (em *EngineMetrics) RecordSolve(ctx context.Context, mode, status string, seeds int64, elapsed time.Duration) {
	em.seedsMapped.Add(ctx, seeds, metric.WithAttributes(attribute.String(attrMode, mode)))
	em.solveDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String(attrMode, mode),
		attribute.String(attrStatus, status),
	))
}
