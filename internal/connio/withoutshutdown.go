package connio

import "net"

// WithoutShutdown wraps a net.Conn and swallows Close, recording that it
// was asked to close instead of tearing the connection down. It lets an
// HTTP driver believe it has finished with a connection — so it can run
// to completion after an Upgrade — while the real socket stays open for
// the caller to hand to whatever comes next.
type WithoutShutdown struct {
	net.Conn
	closed bool
}

// NewWithoutShutdown wraps conn so Close is a no-op recorded on Closed.
func NewWithoutShutdown(conn net.Conn) *WithoutShutdown {
	return &WithoutShutdown{Conn: conn}
}

// Close records the close request without closing the underlying
// connection.
func (w *WithoutShutdown) Close() error {
	w.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (w *WithoutShutdown) Closed() bool {
	return w.closed
}

// Unwrap returns the underlying connection, still open.
func (w *WithoutShutdown) Unwrap() net.Conn {
	return w.Conn
}
