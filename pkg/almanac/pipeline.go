package almanac

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Sentinel errors.
var (
	// ErrNoSeeds is returned when an aggregate is requested over no input.
	ErrNoSeeds = errors.New("no seeds to map")
	// ErrBrokenChain is returned when no table continues the unit chain.
	ErrBrokenChain = errors.New("no table continues the chain")
	// ErrDuplicateSource is returned when two tables map from the same unit.
	ErrDuplicateSource = errors.New("duplicate source unit")
	// ErrUnusedTable is returned when a table is not reachable in the chain.
	ErrUnusedTable = errors.New("table not part of the chain")
)

// seedsPerTask is the number of seeds each worker maps before reporting.
const seedsPerTask = 4096

// Pipeline applies its tables in order.
type Pipeline struct {
	tables []*Table
}

// Step is the value after one stage of a traced feed-forward.
type Step struct {
	Table  string `json:"table"  yaml:"table"`
	Input  uint64 `json:"input"  yaml:"input"`
	Output uint64 `json:"output" yaml:"output"`
	Mapped bool   `json:"mapped" yaml:"mapped"`
}

// NewPipeline returns a pipeline applying tables in the given order.
func NewPipeline(tables ...*Table) *Pipeline {
	return &Pipeline{tables: tables}
}

// ChainPipeline orders tables by following unit links from one unit to
// another, e.g. "seed" to "location". Every table must lie on the chain.
func ChainPipeline(tables []*Table, from, to string) (*Pipeline, error) {
	bySource := make(map[string]*Table, len(tables))

	for _, t := range tables {
		if _, dup := bySource[t.Source()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSource, t.Source())
		}

		bySource[t.Source()] = t
	}

	ordered := make([]*Table, 0, len(tables))

	for unit := from; unit != to; {
		next, ok := bySource[unit]
		if !ok {
			return nil, fmt.Errorf("%w: nothing maps from %q", ErrBrokenChain, unit)
		}

		delete(bySource, unit)

		ordered = append(ordered, next)
		unit = next.Destination()
	}

	if len(bySource) > 0 {
		names := make([]string, 0, len(bySource))
		for _, t := range bySource {
			names = append(names, t.Name())
		}

		slices.Sort(names)

		return nil, fmt.Errorf("%w: %s", ErrUnusedTable, strings.Join(names, ", "))
	}

	return NewPipeline(ordered...), nil
}

// Tables returns the pipeline stages in order.
func (p *Pipeline) Tables() []*Table {
	return p.tables
}

// FeedForward passes v through every table. Unmapped values pass through.
func (p *Pipeline) FeedForward(v uint64) uint64 {
	for _, t := range p.tables {
		v = t.Map(v)
	}

	return v
}

// Trace is FeedForward that records every stage.
func (p *Pipeline) Trace(v uint64) []Step {
	steps := make([]Step, 0, len(p.tables))

	for _, t := range p.tables {
		out, ok := t.Lookup(v)
		if !ok {
			out = v
		}

		steps = append(steps, Step{Table: t.Name(), Input: v, Output: out, Mapped: ok})
		v = out
	}

	return steps
}

// MinLocation returns the smallest FeedForward result over seeds. Seeds are
// split into chunks mapped concurrently by up to workers goroutines; zero or
// negative workers uses GOMAXPROCS.
func (p *Pipeline) MinLocation(ctx context.Context, seeds []uint64, workers int) (uint64, error) {
	if len(seeds) == 0 {
		return 0, ErrNoSeeds
	}

	chunks := (len(seeds) + seedsPerTask - 1) / seedsPerTask
	minima := make([]uint64, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))

	for i := range chunks {
		lo := i * seedsPerTask
		hi := min(lo+seedsPerTask, len(seeds))

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			best := p.FeedForward(seeds[lo])
			for _, s := range seeds[lo+1 : hi] {
				best = min(best, p.FeedForward(s))
			}

			minima[i] = best

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("map seeds: %w", err)
	}

	result := minima[0]
	for _, m := range minima[1:] {
		result = min(result, m)
	}

	return result, nil
}

func workerCount(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}

	return workers
}
