package almanac

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/almanac/pkg/rangemap"
)

// ErrEmptySpan is returned when a seed span has zero length.
var ErrEmptySpan = errors.New("seed span must have positive length")

// SeedSpans validates "start length" pairs as identity ranges.
func SeedSpans(pairs [][2]uint64) ([]rangemap.Range, error) {
	spans := make([]rangemap.Range, 0, len(pairs))

	for i, pair := range pairs {
		span, err := rangemap.New(pair[0], pair[0], pair[1])
		if err != nil {
			return nil, fmt.Errorf("seed span %d: %w: %w", i+1, ErrEmptySpan, err)
		}

		spans = append(spans, span)
	}

	return spans, nil
}

// MapSpan maps every source point of span through the table. The result
// tiles span's source interval in ascending order: pieces covered by a table
// range carry that range's mapping, gaps pass through unchanged.
func (t *Table) MapSpan(span rangemap.Range) []rangemap.Range {
	if span.Length == 0 {
		return nil
	}

	input := rangemap.Identity(span.SourceStart, span.Length)
	pieces := make([]rangemap.Range, 0, 1)

	cursor := input.SourceStart

	for _, r := range t.tree.Overlapping(input) {
		rest := rangemap.Identity(cursor, input.End()-cursor)

		// Keep the gap before r and the part inside r; the tail is cut again by the next range.
		for _, piece := range r.SplitAgainst(rest) {
			if piece.SourceStart >= r.End() {
				break
			}

			pieces = append(pieces, piece)
			cursor = piece.End()
		}
	}

	if cursor < input.End() {
		pieces = append(pieces, rangemap.Identity(cursor, input.End()-cursor))
	}

	return pieces
}

// MapSpans carries spans through every stage and returns the resulting
// destination spans, merged where they touch or overlap.
func (p *Pipeline) MapSpans(spans []rangemap.Range) []rangemap.Range {
	current := mergeSpans(spans)

	for _, t := range p.tables {
		next := make([]rangemap.Range, 0, len(current))

		for _, span := range current {
			for _, piece := range t.MapSpan(span) {
				next = append(next, rangemap.Identity(piece.DestinationStart, piece.Length))
			}
		}

		current = mergeSpans(next)
	}

	return current
}

// MinLocationOverSpans returns the smallest location reachable from any
// point of spans. Each span is carried through the pipeline independently on
// up to workers goroutines.
func (p *Pipeline) MinLocationOverSpans(ctx context.Context, spans []rangemap.Range, workers int) (uint64, error) {
	if len(spans) == 0 {
		return 0, ErrNoSeeds
	}

	minima := make([]uint64, len(spans))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))

	for i, span := range spans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out := p.MapSpans([]rangemap.Range{span})
			if len(out) == 0 {
				return fmt.Errorf("%w: span %s", ErrEmptySpan, span)
			}

			minima[i] = out[0].SourceStart

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("map seed spans: %w", err)
	}

	return slices.Min(minima), nil
}

// mergeSpans sorts identity spans and joins those that touch or overlap.
func mergeSpans(spans []rangemap.Range) []rangemap.Range {
	sorted := make([]rangemap.Range, 0, len(spans))

	for _, s := range spans {
		if s.Length > 0 {
			sorted = append(sorted, rangemap.Identity(s.SourceStart, s.Length))
		}
	}

	slices.SortFunc(sorted, func(a, b rangemap.Range) int {
		return cmp.Compare(a.SourceStart, b.SourceStart)
	})

	merged := sorted[:0]

	for _, s := range sorted {
		if n := len(merged); n > 0 && s.SourceStart <= merged[n-1].End() {
			last := &merged[n-1]
			end := max(last.End(), s.End())
			last.Length = end - last.SourceStart
			last.DestinationStart = last.SourceStart

			continue
		}

		merged = append(merged, s)
	}

	return merged
}
