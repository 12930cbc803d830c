package codec

// SliceReader is the simplest Reader: a plain contiguous byte slice.
// Its View yields []byte directly (the spec's "the Reader of a byte slice
// is &[u8]" note).
type SliceReader struct {
	data []byte
	pos  int
}

// NewSliceReader wraps p for reading. p is not copied; the reader aliases it.
func NewSliceReader(p []byte) *SliceReader { return &SliceReader{data: p} }

func (r *SliceReader) PeekChunk() []byte { return r.data[r.pos:] }

func (r *SliceReader) Remaining() int { return len(r.data) - r.pos }

func (r *SliceReader) Advance(n int) error {
	if n > r.Remaining() {
		return End
	}
	r.pos += n
	return nil
}

func (r *SliceReader) View(n int) ([]byte, error) {
	if n > r.Remaining() {
		return nil, End
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *SliceReader) Rest() []byte {
	out := r.data[r.pos:]
	r.pos = len(r.data)
	return out
}

// SliceWriter is a growable-buffer Writer backed by a plain []byte.
type SliceWriter struct {
	buf []byte
}

// NewSliceWriter returns an empty SliceWriter.
func NewSliceWriter() *SliceWriter { return &SliceWriter{} }

func (w *SliceWriter) Write(p []byte) error {
	w.buf = append(w.buf, p...)
	return nil
}

// Bytes returns everything written so far.
func (w *SliceWriter) Bytes() []byte { return w.buf }

// Limit wraps a Reader, capping how many further bytes may be consumed
// through it regardless of how much the underlying Reader actually holds.
// It's for records that carry an explicit payload length.
type Limit struct {
	inner Reader
	cap   int
}

// NewLimit caps r to at most n further bytes.
func NewLimit(r Reader, n int) *Limit { return &Limit{inner: r, cap: n} }

func (l *Limit) Remaining() int {
	if rem := l.inner.Remaining(); rem < l.cap {
		return rem
	}
	return l.cap
}

func (l *Limit) PeekChunk() []byte {
	chunk := l.inner.PeekChunk()
	if len(chunk) > l.cap {
		return chunk[:l.cap]
	}
	return chunk
}

func (l *Limit) Advance(n int) error {
	if n > l.Remaining() {
		return End
	}
	if err := l.inner.Advance(n); err != nil {
		return err
	}
	l.cap -= n
	return nil
}

func (l *Limit) View(n int) ([]byte, error) {
	if n > l.Remaining() {
		return nil, End
	}
	b, err := l.inner.View(n)
	if err != nil {
		return nil, err
	}
	l.cap -= n
	return b, nil
}

func (l *Limit) Rest() []byte {
	b, _ := l.View(l.Remaining())
	return b
}

// SkipRemaining advances past whatever is left within the cap.
func (l *Limit) SkipRemaining() error {
	return l.Advance(l.Remaining())
}
