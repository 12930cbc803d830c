package buf

import "testing"

// fixedBuf is a minimal single-chunk BufMut used to test Copy in isolation
// from ArcBufMut's slab plumbing.
type fixedBuf struct {
	data []byte
	len  int
}

func (f *fixedBuf) Len() int { return f.len }
func (f *fixedBuf) Cap() int { return len(f.data) }
func (f *fixedBuf) Chunks() [][]byte {
	if f.len == 0 {
		return nil
	}
	return [][]byte{f.data[:f.len]}
}
func (f *fixedBuf) ChunksMut() [][]byte { return f.Chunks() }
func (f *fixedBuf) Reserve(n int) error {
	if n > len(f.data) {
		return &Full{Required: n, Capacity: len(f.data)}
	}
	return nil
}
func (f *fixedBuf) Grow(newLen int, fill byte) error {
	if newLen > len(f.data) {
		return &Full{Required: newLen, Capacity: len(f.data)}
	}
	for i := f.len; i < newLen; i++ {
		f.data[i] = fill
	}
	f.len = newLen
	return nil
}
func (f *fixedBuf) Extend(p []byte) error {
	if f.len+len(p) > len(f.data) {
		return &Full{Required: f.len + len(p), Capacity: len(f.data)}
	}
	copy(f.data[f.len:], p)
	f.len += len(p)
	return nil
}

type roBuf struct{ data []byte }

func (r roBuf) Len() int          { return len(r.data) }
func (r roBuf) Chunks() [][]byte { return [][]byte{r.data} }

func TestCopyInPlaceOverlap(t *testing.T) {
	dst := &fixedBuf{data: make([]byte, 10), len: 6}
	for i := range dst.data[:6] {
		dst.data[i] = byte('a' + i)
	}
	src := roBuf{data: []byte("XYZ")}

	n, err := Copy(dst, Between(1, 4), src, FullRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("got n=%d, want 3", n)
	}
	want := "aXYZef"
	if string(dst.data[:6]) != want {
		t.Fatalf("got %q, want %q", dst.data[:6], want)
	}
}

func TestCopyAppendsPastCurrentLength(t *testing.T) {
	dst := &fixedBuf{data: make([]byte, 10), len: 2}
	dst.data[0], dst.data[1] = 'a', 'b'
	src := roBuf{data: []byte("hi")}

	n, err := Copy(dst, Between(2, 4), src, FullRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || dst.len != 4 {
		t.Fatalf("n=%d len=%d", n, dst.len)
	}
	if string(dst.data[:4]) != "abhi" {
		t.Fatalf("got %q", dst.data[:4])
	}
}

func TestCopyZeroFillsGap(t *testing.T) {
	dst := &fixedBuf{data: make([]byte, 10), len: 1}
	dst.data[0] = 'a'
	src := roBuf{data: []byte("Z")}

	_, err := Copy(dst, Between(4, 5), src, FullRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.len != 5 {
		t.Fatalf("len=%d, want 5", dst.len)
	}
	want := []byte{'a', 0, 0, 0, 'Z'}
	for i, b := range want {
		if dst.data[i] != b {
			t.Fatalf("byte %d: got %d want %d", i, dst.data[i], b)
		}
	}
}

func TestCopyLengthMismatch(t *testing.T) {
	dst := &fixedBuf{data: make([]byte, 10), len: 4}
	src := roBuf{data: []byte("abc")}

	_, err := Copy(dst, Between(0, 2), src, FullRange())
	if err == nil {
		t.Fatal("expected LengthMismatch error")
	}
	if _, isType := err.(*LengthMismatch); !isType {
		t.Fatalf("got %T, want *LengthMismatch", err)
	}
}

func TestCopyFullDestination(t *testing.T) {
	dst := &fixedBuf{data: make([]byte, 2), len: 0}
	src := roBuf{data: []byte("abc")}

	_, err := Copy(dst, FullRange(), src, FullRange())
	if err == nil {
		t.Fatal("expected Full error")
	}
	if _, isType := err.(*Full); !isType {
		t.Fatalf("got %T, want *Full", err)
	}
}

func TestCopyChunksMultiChunkSource(t *testing.T) {
	dst := &fixedBuf{data: make([]byte, 6), len: 0}
	multi := multiChunkBuf{chunks: [][]byte{[]byte("ab"), []byte("cd"), []byte("ef")}}

	n, err := Copy(dst, FullRange(), multi, FullRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 6 {
		t.Fatalf("n=%d, want 6", n)
	}
	if string(dst.data) != "abcdef" {
		t.Fatalf("got %q", dst.data)
	}
}

type multiChunkBuf struct{ chunks [][]byte }

func (m multiChunkBuf) Len() int {
	total := 0
	for _, c := range m.chunks {
		total += len(c)
	}
	return total
}
func (m multiChunkBuf) Chunks() [][]byte { return m.chunks }
