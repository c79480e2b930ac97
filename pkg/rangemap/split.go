package rangemap

import "slices"

// SplitAgainst cuts other at every boundary of r and returns the pieces of
// other in ascending order. Pieces that also lie inside r carry r's mapping;
// the remaining pieces pass through unchanged. Two ranges that do not
// intersect produce no pieces.
func (r Range) SplitAgainst(other Range) []Range {
	if !r.Intersects(other) {
		return nil
	}

	points := []uint64{0, r.SourceStart, r.End(), other.SourceStart, other.End()}
	slices.Sort(points)
	points = slices.Compact(points)

	pieces := make([]Range, 0, len(points)-1)

	for i := 1; i < len(points); i++ {
		start, end := points[i-1], points[i]
		if end == start || !other.FullyContains(start, end) {
			continue
		}

		piece := Identity(start, end-start)
		if r.FullyContains(start, end) {
			piece.DestinationStart = r.MustMapPoint(start)
		}

		pieces = append(pieces, piece)
	}

	return pieces
}
