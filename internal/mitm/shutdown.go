package mitm

import (
	"context"
	"net"
	"sync"
)

// CancellationToken is a process-wide signal checked alongside every
// accept/recv: when fired, listeners stop accepting and in-flight
// connections are allowed to finish their current HTTP pump, but no new
// request is dispatched. It wraps a context.Context and its CancelFunc so
// callers can either poll Done() or select on it.
type CancellationToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCancellationToken returns a token derived from parent (or
// context.Background() if parent is nil).
func NewCancellationToken(parent context.Context) CancellationToken {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return CancellationToken{ctx: ctx, cancel: cancel}
}

// Done returns a channel closed once Cancel has been called.
func (t CancellationToken) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Cancelled reports whether Cancel has already been called.
func (t CancellationToken) Cancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Cancel fires the token.
func (t CancellationToken) Cancel() {
	t.cancel()
}

// ConnTracker records connections for a graceful shutdown: each
// orchestrated connection registers itself on start and deregisters on
// exit, and Drain closes every connection still registered so shutdown
// doesn't wait for idle timeouts.
type ConnTracker struct {
	mu    sync.Mutex
	wg    sync.WaitGroup
	conns map[net.Conn]struct{}
}

// NewConnTracker returns an empty tracker.
func NewConnTracker() *ConnTracker {
	return &ConnTracker{conns: make(map[net.Conn]struct{})}
}

// Track registers conn and returns a func that deregisters it; callers
// defer the returned func. Only its first call has an effect, so Drain's
// wait is released exactly once per Track.
func (t *ConnTracker) Track(conn net.Conn) func() {
	t.mu.Lock()
	t.conns[conn] = struct{}{}
	t.mu.Unlock()
	t.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.conns, conn)
			t.mu.Unlock()
			t.wg.Done()
		})
	}
}

// Drain closes every tracked connection and waits for all Track callers
// to have deregistered.
func (t *ConnTracker) Drain() {
	t.mu.Lock()
	conns := make([]net.Conn, 0, len(t.conns))
	for c := range t.conns {
		conns = append(conns, c)
	}
	t.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	t.wg.Wait()
}

// Len reports how many connections are currently tracked.
func (t *ConnTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
