// Package mitm wires the SOCKS5 server to the TLS interception and HTTP
// proxy pump layers: for every accepted CONNECT destination it decides
// whether to decrypt, speak plaintext HTTP, or tunnel opaquely, the way
// the teacher's HTTP CONNECT handler once did directly inside its
// http.Server — except here the front door is SOCKS5, not CONNECT.
package mitm

import (
	"log/slog"
	"net"
	"time"

	"github.com/gocksec/skunk/internal/codec/wire"
	"github.com/gocksec/skunk/internal/connio"
	"github.com/gocksec/skunk/internal/httppump"
	"github.com/gocksec/skunk/internal/socks5"
	"github.com/gocksec/skunk/internal/tlsmitm"
)

const defaultDialTimeout = 10 * time.Second

// Orchestrator turns accepted SOCKS5 CONNECT requests into either a TLS
// interception session feeding the HTTP proxy pump, a plaintext HTTP pump
// session, or an opaque passthrough tunnel.
type Orchestrator struct {
	TLS         *tlsmitm.Context
	Filter      TargetFilter
	Handler     httppump.Handler
	Logger      *slog.Logger
	Tracker     *ConnTracker
	Token       CancellationToken
	DialTimeout time.Duration
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) dialTimeout() time.Duration {
	if o.DialTimeout > 0 {
		return o.DialTimeout
	}
	return defaultDialTimeout
}

// Run dispatches ConnectionRequests to Handle on their own goroutine
// until requests closes or the cancellation token fires; it then stops
// accepting new work but does not itself wait for in-flight handlers —
// call Tracker.Drain for that.
func (o *Orchestrator) Run(requests <-chan socks5.ConnectionRequest) {
	for {
		select {
		case <-o.Token.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			go o.Handle(req)
		}
	}
}

// Handle resolves a single CONNECT request: dial upstream, accept the
// downstream connection, and route it to decryption, plaintext pumping,
// or opaque tunneling depending on the destination port and TargetFilter.
func (o *Orchestrator) Handle(req socks5.ConnectionRequest) {
	if o.Token.Cancelled() {
		req.Reject(socks5.RejectConnectionRefused)
		return
	}

	target := req.DestinationAddress
	upstream, err := net.DialTimeout("tcp", target.String(), o.dialTimeout())
	if err != nil {
		req.Reject(rejectReasonForDialError(err))
		return
	}

	clientConn, err := req.Accept(wire.Address{IP: net.IPv4zero, Port: 0})
	if err != nil {
		upstream.Close()
		return
	}

	releaseClient := o.Tracker.Track(clientConn)
	releaseUpstream := o.Tracker.Track(upstream)
	defer releaseClient()
	defer releaseUpstream()

	hostname := target.Domain
	if hostname == "" {
		hostname = target.IP.String()
	}

	connLogger := o.logger().With("conn_id", req.ID)

	if target.Port != 443 && target.Port != 80 {
		connio.Tunnel(clientConn, upstream, connLogger, hostname)
		return
	}
	if !o.Filter.ShouldIntercept(hostname) {
		connio.Tunnel(clientConn, upstream, connLogger, hostname)
		return
	}

	if target.Port == 80 {
		defer clientConn.Close()
		defer upstream.Close()
		if err := httppump.Pump(clientConn, upstream, "http", hostname, o.Handler, connLogger); err != nil {
			connLogger.Debug("http pump ended", "host", hostname, "error", err)
		}
		return
	}

	decrypted, err := o.TLS.MaybeDecrypt(clientConn, upstream, true)
	if err != nil {
		connLogger.Debug("tls interception failed", "host", hostname, "error", err)
		clientConn.Close()
		upstream.Close()
		return
	}
	defer decrypted.Incoming.Close()
	defer decrypted.Outgoing.Close()

	if err := httppump.Pump(decrypted.Incoming, decrypted.Outgoing, "https", hostname, o.Handler, connLogger); err != nil {
		connLogger.Debug("https pump ended", "host", hostname, "error", err)
	}
}

func rejectReasonForDialError(err error) socks5.RejectReason {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return socks5.RejectNetworkUnreachable
	}
	return socks5.RejectHostUnreachable
}
