// Package safeconv provides overflow-aware integer conversions.
package safeconv

import "math"

// SaturatingInt64 converts v to int64, clamping at math.MaxInt64.
func SaturatingInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(v)
}

// SaturatingAdd returns a+b, clamping at math.MaxUint64.
func SaturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}

	return sum
}

// MustIntToUint64 converts a non-negative int, panicking otherwise.
// Use only when a negative value is logically impossible.
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		panic("safeconv: negative int to uint64 conversion")
	}

	return uint64(v)
}
