// Package rope implements a zero-copy segmented buffer: an ordered list of
// non-empty ArcBuf segments addressed by a binary-searched offset table.
package rope

import (
	"sort"

	"github.com/gocksec/skunk/internal/buf"
)

// segment pairs an ArcBuf with the cumulative offset of its first byte.
type segment struct {
	offset int
	data   buf.ArcBuf
}

// Rope is an ordered sequence of non-empty segments. Its length is the
// offset of the last segment plus that segment's own length, or 0 if it
// holds no segments.
type Rope struct {
	segments []segment
}

// New returns an empty rope.
func New() *Rope { return &Rope{} }

// Push appends a segment. Empty buffers are a no-op: the invariant that
// every segment is non-empty must hold for binary search to work.
func (r *Rope) Push(b buf.ArcBuf) {
	if b.Len() == 0 {
		return
	}
	r.segments = append(r.segments, segment{offset: r.Len(), data: b})
}

// Len reports the rope's total length.
func (r *Rope) Len() int {
	if len(r.segments) == 0 {
		return 0
	}
	last := r.segments[len(r.segments)-1]
	return last.offset + last.data.Len()
}

// NumSegments reports how many segments currently make up the rope.
func (r *Rope) NumSegments() int { return len(r.segments) }

// findSegment binary-searches for the index of the segment containing a
// probe offset. When spillOver is true, a probe exactly at a segment's end
// offset is attributed to the following segment (used when resolving a
// range's start bound); when false, it is attributed to the segment itself
// (used when resolving a range's end bound).
func findSegment(segments []segment, probe int, spillOver bool) int {
	return sort.Search(len(segments), func(i int) bool {
		end := segments[i].offset + segments[i].data.Len()
		if spillOver {
			return probe < end
		}
		return probe <= end
	})
}
