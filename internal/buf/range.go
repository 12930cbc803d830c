// Package buf implements the reference-counted, reclaimable byte-buffer
// subsystem: a slab allocator handing out mutable buffer handles, and the
// shared/immutable views derived from them.
package buf

import "fmt"

// Range is a half-open interval [Start, End) where either bound may be
// absent. An absent bound means "unbounded in that direction" — resolving a
// Range against a concrete (lo, hi) pair fills in the missing side.
type Range struct {
	start    int
	end      int
	hasStart bool
	hasEnd   bool
}

// FullRange spans an entire buffer once resolved.
func FullRange() Range { return Range{} }

// From builds a Range with only a lower bound: [start, ...).
func From(start int) Range { return Range{start: start, hasStart: true} }

// To builds a Range with only an upper bound (exclusive): [..., end).
func To(end int) Range { return Range{end: end, hasEnd: true} }

// Between builds a Range with both bounds: [start, end).
func Between(start, end int) Range {
	return Range{start: start, end: end, hasStart: true, hasEnd: true}
}

// RangeOutOfBounds reports that a Range could not be resolved within the
// required host bounds.
type RangeOutOfBounds struct {
	Required Range
	Bounds   [2]int // [lo, hi]
}

func (e *RangeOutOfBounds) Error() string {
	return fmt.Sprintf("range %s out of bounds %v", e.Required, e.Bounds)
}

func (r Range) String() string {
	lo := ".."
	if r.hasStart {
		lo = fmt.Sprintf("%d..", r.start)
	}
	hi := ""
	if r.hasEnd {
		hi = fmt.Sprintf("%d", r.end)
	}
	return lo + hi
}

// ResolveCheckedIn resolves the range against [lo, hi], returning
// (start, end) such that lo <= start <= end <= hi, or a RangeOutOfBounds
// error if the range exceeds those bounds.
func (r Range) ResolveCheckedIn(lo, hi int) (int, int, error) {
	start := lo
	if r.hasStart {
		start = r.start
	}
	end := hi
	if r.hasEnd {
		end = r.end
	}
	if start < lo || end > hi || start > end {
		return 0, 0, &RangeOutOfBounds{Required: r, Bounds: [2]int{lo, hi}}
	}
	return start, end, nil
}

// ResolveClamped resolves the range against [lo, hi], clamping out-of-range
// bounds instead of failing. It never panics.
func (r Range) ResolveClamped(lo, hi int) (int, int) {
	start := lo
	if r.hasStart {
		start = r.start
	}
	end := hi
	if r.hasEnd {
		end = r.end
	}
	if start < lo {
		start = lo
	}
	if start > hi {
		start = hi
	}
	if end < start {
		end = start
	}
	if end > hi {
		end = hi
	}
	return start, end
}

// HasStart and HasEnd report whether each bound is present. StartValue
// returns the lower bound, or 0 when it is absent; EndValue returns the
// upper bound, or 0 when it is absent.
func (r Range) HasStart() bool { return r.hasStart }
func (r Range) HasEnd() bool   { return r.hasEnd }
func (r Range) StartValue() int {
	if r.hasStart {
		return r.start
	}
	return 0
}
func (r Range) EndValue() int {
	return r.end
}
