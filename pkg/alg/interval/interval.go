// Package interval provides a static centered interval tree over mapping
// ranges. The tree is built once from a fixed set of ranges and supports
// point lookup in O(log N + k) and overlap queries in O(log N + m), where k
// is the number of ranges scanned at visited nodes and m the number of
// results.
//
// Each node stores a center point, the ranges containing it (twice: ascending
// by start and descending by end), and exclusively owned subtrees holding the
// ranges strictly below and strictly above the center.
package interval

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/almanac/pkg/rangemap"
)

// Tree is an immutable centered interval tree. The zero value is an empty tree.
type Tree struct {
	root *node
	size int
}

// node is one center of the tree.
type node struct {
	center uint64
	left   *node
	right  *node

	// byStart holds the ranges containing center, ascending by SourceStart.
	byStart []rangemap.Range
	// byEnd holds the same ranges, descending by End().
	byEnd []rangemap.Range
}

// NodeInfo describes one node for Walk.
type NodeInfo struct {
	Center   uint64
	Depth    int
	Overlaps int
}

// Build constructs a tree from ranges. An empty input yields an empty tree.
// The input slice is not modified.
func Build(ranges []rangemap.Range) *Tree {
	return &Tree{
		root: buildNode(slices.Clone(ranges)),
		size: len(ranges),
	}
}

// buildNode partitions ranges around the midpoint of their smallest and
// largest start. Every call strictly shrinks its input: the range with the
// largest start goes right unless all starts are equal, in which case all
// ranges contain the center.
func buildNode(ranges []rangemap.Range) *node {
	if len(ranges) == 0 {
		return nil
	}

	lo, hi := ranges[0].SourceStart, ranges[0].SourceStart

	for _, r := range ranges[1:] {
		lo = min(lo, r.SourceStart)
		hi = max(hi, r.SourceStart)
	}

	center := lo + (hi-lo)/2

	var left, right, overlap []rangemap.Range

	for _, r := range ranges {
		switch r.Classify(center) {
		case rangemap.LeftOf:
			left = append(left, r)
		case rangemap.RightOf:
			right = append(right, r)
		case rangemap.Contains:
			overlap = append(overlap, r)
		}
	}

	byStart := slices.Clone(overlap)
	slices.SortStableFunc(byStart, func(a, b rangemap.Range) int {
		return cmp.Compare(a.SourceStart, b.SourceStart)
	})

	byEnd := overlap
	slices.SortStableFunc(byEnd, func(a, b rangemap.Range) int {
		return cmp.Compare(b.End(), a.End())
	})

	return &node{
		center:  center,
		left:    buildNode(left),
		right:   buildNode(right),
		byStart: byStart,
		byEnd:   byEnd,
	}
}

// Len returns the number of ranges in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}

	return t.size
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if t == nil {
		return 0
	}

	return depth(t.root)
}

func depth(n *node) int {
	if n == nil {
		return 0
	}

	return 1 + max(depth(n.left), depth(n.right))
}

// Map translates point through the first range containing it. The boolean is
// false when no range contains point; callers treat that as identity.
func (t *Tree) Map(point uint64) (uint64, bool) {
	if t == nil {
		return 0, false
	}

	for n := t.root; n != nil; {
		switch {
		case point < n.center:
			// Every range here ends after center, so only the start can exclude point.
			for _, r := range n.byStart {
				if r.SourceStart > point {
					break
				}

				return r.MustMapPoint(point), true
			}

			n = n.left
		case point > n.center:
			// Every range here starts at or before center, so only the end can exclude point.
			for _, r := range n.byEnd {
				if r.End() <= point {
					break
				}

				return r.MustMapPoint(point), true
			}

			n = n.right
		default:
			if len(n.byStart) > 0 {
				return n.byStart[0].MustMapPoint(point), true
			}

			return 0, false
		}
	}

	return 0, false
}

// Overlapping returns every stored range whose source interval intersects the
// source interval of query, ascending by SourceStart.
func (t *Tree) Overlapping(query rangemap.Range) []rangemap.Range {
	if t == nil || t.root == nil || query.Length == 0 {
		return nil
	}

	var results []rangemap.Range

	collectOverlap(t.root, query.SourceStart, query.End(), &results)

	slices.SortStableFunc(results, func(a, b rangemap.Range) int {
		return cmp.Compare(a.SourceStart, b.SourceStart)
	})

	return results
}

// collectOverlap gathers ranges intersecting [lo, hi).
func collectOverlap(n *node, lo, hi uint64, results *[]rangemap.Range) {
	if n == nil {
		return
	}

	switch {
	case hi <= n.center:
		for _, r := range n.byStart {
			if r.SourceStart >= hi {
				break
			}

			*results = append(*results, r)
		}

		collectOverlap(n.left, lo, hi, results)
	case lo > n.center:
		for _, r := range n.byEnd {
			if r.End() <= lo {
				break
			}

			*results = append(*results, r)
		}

		collectOverlap(n.right, lo, hi, results)
	default:
		// The query covers center, so every range stored here intersects it.
		*results = append(*results, n.byStart...)

		collectOverlap(n.left, lo, hi, results)
		collectOverlap(n.right, lo, hi, results)
	}
}

// Ranges returns all stored ranges ascending by SourceStart.
func (t *Tree) Ranges() []rangemap.Range {
	if t == nil || t.root == nil {
		return nil
	}

	results := make([]rangemap.Range, 0, t.size)

	collectAll(t.root, &results)

	// In-order is already sorted for disjoint ranges; overlapping input may
	// interleave with neighbouring subtrees.
	slices.SortStableFunc(results, func(a, b rangemap.Range) int {
		return cmp.Compare(a.SourceStart, b.SourceStart)
	})

	return results
}

func collectAll(n *node, results *[]rangemap.Range) {
	if n == nil {
		return
	}

	collectAll(n.left, results)
	*results = append(*results, n.byStart...)
	collectAll(n.right, results)
}

// Walk visits every node in pre-order.
func (t *Tree) Walk(fn func(NodeInfo)) {
	if t == nil {
		return
	}

	walk(t.root, 1, fn)
}

func walk(n *node, level int, fn func(NodeInfo)) {
	if n == nil {
		return
	}

	fn(NodeInfo{Center: n.center, Depth: level, Overlaps: len(n.byStart)})

	walk(n.left, level+1, fn)
	walk(n.right, level+1, fn)
}
