package buf

// ArcBufMut is a mutable, exclusively-held window onto a buffer with an
// initialized high-water mark: bytes in [0, Len()) are readable, bytes in
// [Len(), Cap()) are uninitialized.
type ArcBufMut struct {
	buf         *buffer
	start       int
	end         int // start+Cap()
	initialized int // relative to start
}

// Len returns the number of initialized bytes.
func (m ArcBufMut) Len() int { return m.initialized }

// Cap returns the handle's total capacity.
func (m ArcBufMut) Cap() int { return m.end - m.start }

// Reserve reports Full if the handle cannot hold n bytes. Slab-backed
// handles have a fixed capacity, so this never grows anything; it exists
// so BufMut satisfies the generic Copy contract.
func (m ArcBufMut) Reserve(n int) error {
	if n > m.Cap() {
		return &Full{Required: n, Capacity: m.Cap()}
	}
	return nil
}

// Grow zero/fill-extends the initialized region up to newLen.
func (m *ArcBufMut) Grow(newLen int, fill byte) error {
	if newLen > m.Cap() {
		return &Full{Required: newLen, Capacity: m.Cap()}
	}
	if newLen <= m.initialized {
		return nil
	}
	if m.buf != nil {
		window := m.buf.data[m.start:m.end]
		for i := m.initialized; i < newLen; i++ {
			window[i] = fill
		}
	}
	m.initialized = newLen
	return nil
}

// Extend appends bytes, failing with Full if they would exceed capacity.
func (m *ArcBufMut) Extend(p []byte) error {
	need := m.initialized + len(p)
	if need > m.Cap() {
		return &Full{Required: need, Capacity: m.Cap()}
	}
	if len(p) > 0 && m.buf != nil {
		copy(m.buf.data[m.start+m.initialized:m.start+need], p)
	}
	m.initialized = need
	return nil
}

// Spare returns the writable-but-uninitialized window [Len(), Cap()). A
// caller may write into it directly (e.g. io.ReadFull) and then call Commit
// to record how much it filled in, without the zero-fill Grow always pays
// for.
func (m ArcBufMut) Spare() []byte {
	if m.buf == nil {
		return nil
	}
	return m.buf.data[m.start+m.initialized : m.end]
}

// Commit advances the initialized high-water mark by n bytes, which the
// caller must already have written into the slice returned by Spare. Unlike
// Grow, it never touches the bytes themselves.
func (m *ArcBufMut) Commit(n int) error {
	if n < 0 || m.initialized+n > m.Cap() {
		return &Full{Required: m.initialized + n, Capacity: m.Cap()}
	}
	m.initialized += n
	return nil
}

// Chunks returns the single initialized chunk, or none for a static handle.
func (m ArcBufMut) Chunks() [][]byte {
	if m.buf == nil || m.initialized == 0 {
		return nil
	}
	return [][]byte{m.buf.data[m.start : m.start+m.initialized]}
}

// ChunksMut is identical to Chunks — the backing slice is already mutable.
func (m ArcBufMut) ChunksMut() [][]byte { return m.Chunks() }

// SplitAt partitions the initialized prefix into two non-overlapping
// handles sharing the same underlying buffer. It consumes the receiver:
// callers must not use m after calling SplitAt.
func (m ArcBufMut) SplitAt(at int) (left, right ArcBufMut, err error) {
	if at < 0 || at > m.initialized {
		return ArcBufMut{}, ArcBufMut{}, &RangeOutOfBounds{
			Required: Between(0, at),
			Bounds:   [2]int{0, m.initialized},
		}
	}
	if m.buf != nil {
		m.buf.increment() // right half needs its own reference
	}
	left = ArcBufMut{buf: m.buf, start: m.start, end: m.start + at, initialized: at}
	right = ArcBufMut{buf: m.buf, start: m.start + at, end: m.end, initialized: m.initialized - at}
	return left, right, nil
}

// Freeze consumes the mutable handle and produces an immutable ArcBuf
// shrunk to the initialized prefix. An empty handle freezes to the
// static zero-sized ArcBuf and releases its reference.
func (m ArcBufMut) Freeze() ArcBuf {
	if m.initialized == 0 {
		if m.buf != nil {
			m.buf.decrement()
		}
		return ArcBuf{}
	}
	return ArcBuf{buf: m.buf, start: m.start, end: m.start + m.initialized}
}

// Release drops the handle's reference without freezing it. Call this
// when a mutable handle is abandoned (e.g. after an error).
func (m ArcBufMut) Release() {
	if m.buf != nil {
		m.buf.decrement()
	}
}

// RefCount reports this handle's buffer lifecycle state, for observation.
func (m ArcBufMut) RefCount() RefCountInfo { return decodeState(m.buf) }

// ArcBuf is an immutable, cheaply-clonable, fully-initialized view onto a
// buffer. Clones share the window and atomically increment the ref-count.
type ArcBuf struct {
	buf   *buffer
	start int
	end   int
}

// Len returns the view's length.
func (a ArcBuf) Len() int { return a.end - a.start }

// IsEmpty reports whether the view has zero length.
func (a ArcBuf) IsEmpty() bool { return a.Len() == 0 }

// Chunks returns the single contiguous chunk backing this view.
func (a ArcBuf) Chunks() [][]byte {
	if a.buf == nil {
		return nil
	}
	return [][]byte{a.buf.data[a.start:a.end]}
}

// Bytes returns the view's content. The returned slice aliases the
// underlying buffer; callers must not retain it past the ArcBuf's life.
func (a ArcBuf) Bytes() []byte {
	if a.buf == nil {
		return nil
	}
	return a.buf.data[a.start:a.end]
}

// Clone increments the reference count and returns a new handle sharing
// the same window. No bytes are copied.
func (a ArcBuf) Clone() ArcBuf {
	if a.buf != nil {
		a.buf.increment()
	}
	return a
}

// Release drops this handle's reference.
func (a ArcBuf) Release() {
	if a.buf != nil {
		a.buf.decrement()
	}
}

// View returns a sub-range of this view sharing the same buffer. The
// returned ArcBuf holds its own reference and must be Released
// independently of the parent.
func (a ArcBuf) View(r Range) (ArcBuf, error) {
	s, e, err := r.ResolveCheckedIn(0, a.Len())
	if err != nil {
		return ArcBuf{}, err
	}
	if a.buf != nil {
		a.buf.increment()
	}
	return ArcBuf{buf: a.buf, start: a.start + s, end: a.start + e}, nil
}

// RefCount reports this buffer's lifecycle state, for observation.
func (a ArcBuf) RefCount() RefCountInfo { return decodeState(a.buf) }
