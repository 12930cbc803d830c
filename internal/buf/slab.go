package buf

import "sync"

// Reclaim is the slab's own handle on a buffer it allocated, whether or
// not ArcBuf/ArcBufMut references to it are still outstanding. It is the
// bookkeeping entry a Slab keeps in its in-use and available lists.
type Reclaim struct {
	buf *buffer
}

// CanReclaim reports whether the underlying buffer has no outstanding
// references right now (it may gain one concurrently before TryReclaim).
func (r Reclaim) CanReclaim() bool {
	return r.buf != nil && r.buf.canReclaim()
}

// TryReclaim attempts to hand this buffer back out as a fresh ArcBufMut.
// It fails if a reference was taken out from under it concurrently.
func (r Reclaim) TryReclaim() (ArcBufMut, bool) {
	if r.buf == nil || !r.buf.tryReclaim() {
		return ArcBufMut{}, false
	}
	return ArcBufMut{buf: r.buf, start: 0, end: len(r.buf.data)}, true
}

// Close orphans the buffer: the slab relinquishes its implicit reference,
// leaving the buffer alive only for as long as outstanding handles exist.
func (r Reclaim) Close() {
	if r.buf != nil {
		r.buf.orphan()
	}
}

// Slab is a pool of same-sized buffers. Get reuses a reclaimable buffer
// when one is available, opportunistically sweeping the in-use list for
// further reclaimable entries before falling back to a fresh allocation.
type Slab struct {
	mu         sync.Mutex
	bufSize    int
	reuseCount int

	inUse     []Reclaim
	available []Reclaim
}

// NewSlab creates a slab handing out buffers of size bufSize, retaining up
// to reuseCount reclaimed buffers in its available list for fast reuse.
func NewSlab(bufSize, reuseCount int) *Slab {
	return &Slab{bufSize: bufSize, reuseCount: reuseCount}
}

// Get acquires a buffer handle. A zero-sized slab hands out the static,
// unallocated handle. Otherwise it: pops a reusable buffer from
// available; failing that, scans in-use for the first reclaimable buffer
// (sweeping any further reclaimable entries it finds along the way into
// available, up to reuseCount, orphaning the rest); failing that,
// allocates a fresh buffer.
func (s *Slab) Get() ArcBufMut {
	if s.bufSize == 0 {
		return ArcBufMut{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.available) > 0 {
		last := len(s.available) - 1
		candidate := s.available[last]
		s.available = s.available[:last]
		if mut, ok := candidate.TryReclaim(); ok {
			s.inUse = append(s.inUse, candidate)
			return mut
		}
		// Lost the race (shouldn't happen for entries only this slab
		// can see, but stay defensive): drop it.
	}

	var reclaimed ArcBufMut
	found := false
	var kept []Reclaim
	for _, entry := range s.inUse {
		if !entry.CanReclaim() {
			kept = append(kept, entry)
			continue
		}
		if !found {
			if mut, ok := entry.TryReclaim(); ok {
				reclaimed = mut
				found = true
				kept = append(kept, entry)
				continue
			}
			kept = append(kept, entry)
			continue
		}
		// Opportunistically sweep further reclaimable entries: keep up
		// to reuseCount on hand for fast reuse, orphan the rest.
		if len(s.available) < s.reuseCount {
			s.available = append(s.available, entry)
		} else {
			entry.Close()
		}
	}
	s.inUse = kept
	if found {
		return reclaimed
	}

	fresh := newBuffer(s.bufSize)
	s.inUse = append(s.inUse, Reclaim{buf: fresh})
	return ArcBufMut{buf: fresh, start: 0, end: s.bufSize}
}

// NumInUse reports how many buffers the slab currently considers checked
// out (including ones that have since become reclaimable but haven't been
// swept yet).
func (s *Slab) NumInUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inUse)
}

// NumAvailable reports how many buffers are sitting ready for immediate
// reuse.
func (s *Slab) NumAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.available)
}

// NumTotal reports the total number of buffers the slab currently tracks.
func (s *Slab) NumTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inUse) + len(s.available)
}

// BufSize reports the fixed size of buffers this slab allocates.
func (s *Slab) BufSize() int { return s.bufSize }

// ReuseCount reports the slab's current reuse-list capacity.
func (s *Slab) ReuseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reuseCount
}

// SetReuseCount adjusts the slab's reuse-list capacity. Shrinking it
// orphans any now-surplus available entries immediately.
func (s *Slab) SetReuseCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reuseCount = n
	for len(s.available) > n {
		last := len(s.available) - 1
		s.available[last].Close()
		s.available = s.available[:last]
	}
}

// Close orphans every buffer the slab still tracks, relinquishing the
// slab's implicit references. Buffers with outstanding ArcBuf/ArcBufMut
// handles remain alive until those handles are released.
func (s *Slab) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.inUse {
		entry.Close()
	}
	for _, entry := range s.available {
		entry.Close()
	}
	s.inUse = nil
	s.available = nil
}
