// Package rangemap provides the half-open mapping range used by almanac tables
// and the arithmetic that classifies, maps and splits points and ranges
// against it.
package rangemap

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors.
var (
	// ErrOutOfRange is returned when a point outside the source interval is mapped.
	ErrOutOfRange = errors.New("point outside range")
	// ErrZeroLength is returned when a range is constructed with length 0.
	ErrZeroLength = errors.New("range length must be positive")
	// ErrOverflow is returned when the source or destination end exceeds uint64.
	ErrOverflow = errors.New("range end overflows uint64")
)

// Relation describes where a range lies relative to a point.
//
// The names follow the tree's search direction: a range that starts after the
// point is RightOf it, a range that ends at or before the point is LeftOf it.
type Relation int

const (
	// Contains means the point lies in [SourceStart, End()).
	Contains Relation = iota
	// LeftOf means the range ends at or before the point.
	LeftOf
	// RightOf means the range starts after the point.
	RightOf
)

// String returns the relation name.
func (r Relation) String() string {
	switch r {
	case Contains:
		return "contains"
	case LeftOf:
		return "left-of"
	case RightOf:
		return "right-of"
	}

	return fmt.Sprintf("relation(%d)", int(r))
}

// Range maps the source interval [SourceStart, SourceStart+Length) onto
// [DestinationStart, DestinationStart+Length).
type Range struct {
	SourceStart      uint64 `json:"source_start"      yaml:"source_start"`
	DestinationStart uint64 `json:"destination_start" yaml:"destination_start"`
	Length           uint64 `json:"length"            yaml:"length"`
}

// New validates and returns a Range. The argument order matches the
// "destination source length" order of almanac input lines.
func New(destination, source, length uint64) (Range, error) {
	if length == 0 {
		return Range{}, ErrZeroLength
	}

	if source > math.MaxUint64-length {
		return Range{}, fmt.Errorf("%w: source %d + length %d", ErrOverflow, source, length)
	}

	if destination > math.MaxUint64-length {
		return Range{}, fmt.Errorf("%w: destination %d + length %d", ErrOverflow, destination, length)
	}

	return Range{SourceStart: source, DestinationStart: destination, Length: length}, nil
}

// Identity returns a pass-through range covering [start, start+length).
func Identity(start, length uint64) Range {
	return Range{SourceStart: start, DestinationStart: start, Length: length}
}

// End returns the exclusive end of the source interval.
func (r Range) End() uint64 {
	return r.SourceStart + r.Length
}

// Last returns the last source point covered by the range.
func (r Range) Last() uint64 {
	return r.End() - 1
}

// DestinationEnd returns the exclusive end of the destination interval.
func (r Range) DestinationEnd() uint64 {
	return r.DestinationStart + r.Length
}

// IsIdentity reports whether the range maps every point onto itself.
func (r Range) IsIdentity() bool {
	return r.SourceStart == r.DestinationStart
}

// Classify reports where the range lies relative to point.
func (r Range) Classify(point uint64) Relation {
	switch {
	case point < r.SourceStart:
		return RightOf
	case point-r.SourceStart >= r.Length:
		return LeftOf
	default:
		return Contains
	}
}

// MapPoint translates point into the destination interval.
func (r Range) MapPoint(point uint64) (uint64, error) {
	if r.Classify(point) != Contains {
		return 0, fmt.Errorf("%w: %d not in %s", ErrOutOfRange, point, r)
	}

	return r.DestinationStart + (point - r.SourceStart), nil
}

// MustMapPoint is MapPoint for callers that already checked Classify.
// It panics when point is outside the range.
func (r Range) MustMapPoint(point uint64) uint64 {
	mapped, err := r.MapPoint(point)
	if err != nil {
		panic("rangemap: " + err.Error())
	}

	return mapped
}

// FullyContains reports whether [start, end) lies inside the source interval.
func (r Range) FullyContains(start, end uint64) bool {
	return r.SourceStart <= start && end <= r.End()
}

// Intersects reports whether the source intervals of r and other share a point.
func (r Range) Intersects(other Range) bool {
	return r.SourceStart < other.End() && other.SourceStart < r.End()
}

// Intersection returns the part of r whose source interval lies inside other.
// The returned range keeps r's mapping.
func (r Range) Intersection(other Range) (Range, bool) {
	if !r.Intersects(other) {
		return Range{}, false
	}

	start := max(r.SourceStart, other.SourceStart)
	end := min(r.End(), other.End())

	return Range{
		SourceStart:      start,
		DestinationStart: r.MustMapPoint(start),
		Length:           end - start,
	}, true
}

// String formats the range as "[src,end)->dst".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)->%d", r.SourceStart, r.End(), r.DestinationStart)
}
