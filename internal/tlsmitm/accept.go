package tlsmitm

import (
	"context"
	"crypto/tls"
	"io"
	"net"

	"github.com/gocksec/skunk/internal/buf"
	"github.com/gocksec/skunk/internal/codec"
	"github.com/gocksec/skunk/internal/codec/wire"
	"github.com/gocksec/skunk/internal/connio"
)

// recordHeaderSlab backs the 5-byte peeks every Accept performs to confirm
// a downstream connection opens with a genuine TLS record before handing
// it to crypto/tls. 32 reusable handles comfortably covers one accept loop's
// worth of concurrent handshakes without falling back to fresh allocations.
var recordHeaderSlab = buf.NewSlab(5, 32)

// Accept is a lazily-started downstream TLS handshake: constructing it
// reads only as much of the incoming connection as needed to inspect the
// ClientHello (via GetConfigForClient), exposing the SNI before the
// handshake is allowed to proceed. Finish supplies the forged leaf and
// lets the handshake complete.
type Accept struct {
	serverName string

	helloSeen    chan struct{}
	config       chan *tls.Config // sent to once Finish is called
	tlsConn      *tls.Conn
	handshakeErr chan error
}

// peekRecordHeader reads the first 5 bytes off conn, validates them as a
// TLS record header, and returns a connio.Rewind that replays those bytes
// before the rest of the stream — so the caller can hand the wrapped
// connection to crypto/tls as if nothing had been consumed. It fails with
// NotTLS if the leading bytes don't parse as a record header at all.
func peekRecordHeader(conn net.Conn) (net.Conn, error) {
	handle := recordHeaderSlab.Get()
	if _, err := io.ReadFull(conn, handle.Spare()[:5]); err != nil {
		handle.Release()
		return nil, &NotTLS{Cause: err}
	}
	if err := handle.Commit(5); err != nil {
		handle.Release()
		return nil, &NotTLS{Cause: err}
	}
	frozen := handle.Freeze()
	defer frozen.Release()

	if _, err := wire.ReadRecordHeader(codec.NewSliceReader(frozen.Bytes())); err != nil {
		return nil, &NotTLS{Cause: err}
	}

	prefix := append([]byte(nil), frozen.Bytes()...)
	return connio.NewRewind(conn, prefix), nil
}

// startAccept begins a lazy downstream handshake on conn, blocking until
// the ClientHello has been read and its SNI extracted. conn's first 5 bytes
// are validated as a TLS record header before the handshake is attempted.
func startAccept(conn net.Conn) (*Accept, error) {
	wrapped, err := peekRecordHeader(conn)
	if err != nil {
		return nil, err
	}

	a := &Accept{
		helloSeen: make(chan struct{}),
		config:    make(chan *tls.Config, 1),
	}

	base := &tls.Config{
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			a.serverName = hello.ServerName
			close(a.helloSeen)
			return <-a.config, nil
		},
	}

	tlsConn := tls.Server(wrapped, base)
	handshakeErr := make(chan error, 1)
	go func() { handshakeErr <- tlsConn.HandshakeContext(context.Background()) }()

	select {
	case <-a.helloSeen:
	case err := <-handshakeErr:
		if err == nil {
			err = &NoServerName{}
		}
		return nil, err
	}

	a.tlsConn = tlsConn
	a.handshakeErr = handshakeErr
	return a, nil
}

// ServerName returns the SNI extracted from the ClientHello, or "" if
// absent.
func (a *Accept) ServerName() string { return a.serverName }

// Finish supplies the downstream TLS config (built around the forged
// leaf) and waits for the handshake to complete, returning the now-ready
// plaintext *tls.Conn.
func (a *Accept) Finish(cfg *tls.Config) (*tls.Conn, error) {
	a.config <- cfg
	if err := <-a.handshakeErr; err != nil {
		return nil, err
	}
	return a.tlsConn, nil
}
