// Package almanac chains mapping tables into a pipeline that translates seed
// identifiers into locations. Each table is backed by a static interval tree.
package almanac

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/almanac/pkg/alg/interval"
	"github.com/Sumatoshi-tech/almanac/pkg/rangemap"
)

// Sentinel errors.
var (
	// ErrOverlappingRanges is returned when two source ranges of a table intersect.
	ErrOverlappingRanges = errors.New("overlapping source ranges")
	// ErrInvalidTriple is returned when a triple does not form a valid range.
	ErrInvalidTriple = errors.New("invalid range triple")
)

const unitSeparator = "-to-"

// Triple is one "destination source length" line of a table block.
type Triple struct {
	Destination uint64 `json:"destination" yaml:"destination"`
	Source      uint64 `json:"source"      yaml:"source"`
	Length      uint64 `json:"length"      yaml:"length"`
}

// Table maps identifiers of one unit onto another.
type Table struct {
	name        string
	source      string
	destination string
	tree        *interval.Tree
}

// NewTable validates triples and builds the table's interval tree.
// A name of the form "soil-to-fertilizer" sets the source and destination units.
func NewTable(name string, triples []Triple) (*Table, error) {
	ranges := make([]rangemap.Range, 0, len(triples))

	for i, tr := range triples {
		r, err := rangemap.New(tr.Destination, tr.Source, tr.Length)
		if err != nil {
			return nil, fmt.Errorf("%s: triple %d: %w: %w", name, i+1, ErrInvalidTriple, err)
		}

		ranges = append(ranges, r)
	}

	return NewTableFromRanges(name, ranges)
}

// NewTableFromRanges builds a table from already validated ranges.
func NewTableFromRanges(name string, ranges []rangemap.Range) (*Table, error) {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b rangemap.Range) int {
		return cmp.Compare(a.SourceStart, b.SourceStart)
	})

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Intersects(sorted[i]) {
			return nil, fmt.Errorf("%s: %w: %s and %s", name, ErrOverlappingRanges, sorted[i-1], sorted[i])
		}
	}

	source, destination, _ := strings.Cut(name, unitSeparator)

	return &Table{
		name:        name,
		source:      source,
		destination: destination,
		tree:        interval.Build(sorted),
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Source returns the unit the table maps from.
func (t *Table) Source() string { return t.source }

// Destination returns the unit the table maps to.
func (t *Table) Destination() string { return t.destination }

// Tree exposes the table's interval tree.
func (t *Table) Tree() *interval.Tree { return t.tree }

// Ranges returns the table's ranges ascending by source start.
func (t *Table) Ranges() []rangemap.Range { return t.tree.Ranges() }

// Map translates v, passing it through unchanged when no range covers it.
func (t *Table) Map(v uint64) uint64 {
	if mapped, ok := t.tree.Map(v); ok {
		return mapped
	}

	return v
}

// Lookup is Map that also reports whether a range matched.
func (t *Table) Lookup(v uint64) (uint64, bool) {
	return t.tree.Map(v)
}
