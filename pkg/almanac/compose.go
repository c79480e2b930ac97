package almanac

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/almanac/pkg/rangemap"
)

// Compose returns a table equivalent to applying first and then second.
// Identity pieces are dropped since unmapped values pass through anyway.
func Compose(first, second *Table) *Table {
	var ranges []rangemap.Range

	// Values covered by first: carry each destination span through second.
	for _, r := range first.Ranges() {
		image := rangemap.Identity(r.DestinationStart, r.Length)

		for _, piece := range second.MapSpan(image) {
			ranges = append(ranges, rangemap.Range{
				SourceStart:      r.SourceStart + (piece.SourceStart - r.DestinationStart),
				DestinationStart: piece.DestinationStart,
				Length:           piece.Length,
			})
		}
	}

	// Values first passes through: second applies directly on the gaps of first.
	for _, r := range second.Ranges() {
		for _, gap := range uncovered(first, r) {
			ranges = append(ranges, rangemap.Range{
				SourceStart:      gap.SourceStart,
				DestinationStart: r.MustMapPoint(gap.SourceStart),
				Length:           gap.Length,
			})
		}
	}

	ranges = slices.DeleteFunc(ranges, rangemap.Range.IsIdentity)
	slices.SortFunc(ranges, func(a, b rangemap.Range) int {
		return cmp.Compare(a.SourceStart, b.SourceStart)
	})

	// Sources are disjoint by construction: the first loop stays inside
	// first's ranges, the second loop stays outside them.
	table, err := NewTableFromRanges(first.Source()+unitSeparator+second.Destination(), ranges)
	if err != nil {
		panic("almanac: composed table overlaps: " + err.Error())
	}

	return table
}

// Flatten composes every stage into one equivalent table. An empty pipeline
// flattens to an empty table.
func (p *Pipeline) Flatten() *Table {
	if len(p.tables) == 0 {
		table, _ := NewTableFromRanges("", nil)

		return table
	}

	flat := p.tables[0]
	for _, t := range p.tables[1:] {
		flat = Compose(flat, t)
	}

	return flat
}

// uncovered returns the parts of span's source interval that no range of t covers.
func uncovered(t *Table, span rangemap.Range) []rangemap.Range {
	var gaps []rangemap.Range

	cursor := span.SourceStart

	for _, covered := range t.tree.Overlapping(span) {
		if covered.SourceStart > cursor {
			gaps = append(gaps, rangemap.Identity(cursor, covered.SourceStart-cursor))
		}

		cursor = max(cursor, covered.End())
	}

	if cursor < span.End() {
		gaps = append(gaps, rangemap.Identity(cursor, span.End()-cursor))
	}

	return gaps
}
