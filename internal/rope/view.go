package rope

import "github.com/gocksec/skunk/internal/buf"

// View is a zero-copy slice of a Rope: a contiguous sub-range of segments
// plus the byte offsets into the boundary segments where the view actually
// starts and ends.
type View struct {
	segments []segment // shared slice, restricted to [startSeg, endSeg]
	startOff int        // offset into segments[0], when len(segments) > 0
	endOff   int        // offset into segments[len-1], when len(segments) > 0
}

// View resolves r against [0, rope.Len()) and returns the corresponding
// zero-copy View.
func (r *Rope) View(rg buf.Range) (View, error) {
	start, end, err := rg.ResolveCheckedIn(0, r.Len())
	if err != nil {
		return View{}, err
	}
	return sliceSegments(r.segments, start, end), nil
}

// View further restricts this view by a range resolved against
// [0, v.Len()), composing offsets by binary-searching within the
// already-restricted segment slice.
func (v View) View(rg buf.Range) (View, error) {
	start, end, err := rg.ResolveCheckedIn(0, v.Len())
	if err != nil {
		return View{}, err
	}
	if len(v.segments) == 0 {
		return View{}, nil
	}
	// v.segments retain the absolute offsets assigned by the owning Rope;
	// re-express the view-relative start/end in that same coordinate
	// space so sliceSegments's binary search applies unchanged.
	absoluteBase := v.segments[0].offset + v.startOff
	return sliceSegments(v.segments, absoluteBase+start, absoluteBase+end), nil
}

func sliceSegments(segments []segment, start, end int) View {
	if start == end {
		return View{}
	}
	startIdx := findSegment(segments, start, true)
	endIdx := findSegment(segments, end, false)

	restricted := segments[startIdx : endIdx+1]
	startOff := start - segments[startIdx].offset
	endOff := end - segments[endIdx].offset

	return View{segments: restricted, startOff: startOff, endOff: endOff}
}

// Len reports the view's length.
func (v View) Len() int {
	if len(v.segments) == 0 {
		return 0
	}
	if len(v.segments) == 1 {
		return v.endOff - v.startOff
	}
	total := v.segments[0].data.Len() - v.startOff
	for _, seg := range v.segments[1 : len(v.segments)-1] {
		total += seg.data.Len()
	}
	total += v.endOff
	return total
}

// IsEmpty reports whether the view has zero length.
func (v View) IsEmpty() bool { return v.Len() == 0 }

// Chunks returns the view's content as an ordered list of non-empty byte
// slices, one per contributing segment, each already clipped to the
// view's bounds.
func (v View) Chunks() [][]byte {
	if len(v.segments) == 0 {
		return nil
	}
	if len(v.segments) == 1 {
		return [][]byte{v.segments[0].data.Bytes()[v.startOff:v.endOff]}
	}
	chunks := make([][]byte, 0, len(v.segments))
	chunks = append(chunks, v.segments[0].data.Bytes()[v.startOff:])
	for _, seg := range v.segments[1 : len(v.segments)-1] {
		chunks = append(chunks, seg.data.Bytes())
	}
	last := v.segments[len(v.segments)-1]
	chunks = append(chunks, last.data.Bytes()[:v.endOff])
	return chunks
}

// IntoVec copies the view's content into a single contiguous slice.
func (v View) IntoVec() []byte {
	out := make([]byte, 0, v.Len())
	for _, c := range v.Chunks() {
		out = append(out, c...)
	}
	return out
}
