package socks5

import (
	"bufio"
	"net"
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gocksec/skunk/internal/codec/wire"
)

// RejectReason names why a request is being refused, mapped to a SOCKS5
// reply code when the rejection is sent on the wire.
type RejectReason int

const (
	RejectGeneralFailure RejectReason = iota
	RejectConnectionNotAllowed
	RejectNetworkUnreachable
	RejectHostUnreachable
	RejectConnectionRefused
	RejectCommandNotSupported
	RejectAddressTypeNotSupported
)

func (r RejectReason) replyCode() wire.ReplyCode {
	switch r {
	case RejectConnectionNotAllowed:
		return wire.ReplyConnectionNotAllowed
	case RejectNetworkUnreachable:
		return wire.ReplyNetworkUnreachable
	case RejectHostUnreachable:
		return wire.ReplyHostUnreachable
	case RejectConnectionRefused:
		return wire.ReplyConnectionRefused
	case RejectCommandNotSupported:
		return wire.ReplyCommandNotSupported
	case RejectAddressTypeNotSupported:
		return wire.ReplyAddressTypeNotSupported
	default:
		return wire.ReplyGeneralFailure
	}
}

// ConnectRequest is a parsed CONNECT command awaiting the application's
// accept/reject decision.
type ConnectRequest struct {
	DestinationAddress wire.Address
	// ID identifies this connection for log correlation across the
	// SOCKS5 request, the mitm orchestrator, and the HTTP pump.
	ID uuid.UUID

	conn     net.Conn
	bw       *bufio.Writer
	resolved atomic.Bool // set once Accept or Reject has run
}

// newConnectRequest arms a finalizer so that a ConnectRequest the
// application never calls Accept or Reject on is still rejected —
// mirroring the source's Drop-triggered ConnectionRefused behavior,
// since Go has no deterministic destructor to hook directly.
func newConnectRequest(conn net.Conn, bw *bufio.Writer, target wire.Address) *ConnectRequest {
	r := &ConnectRequest{DestinationAddress: target, ID: uuid.New(), conn: conn, bw: bw}
	runtime.SetFinalizer(r, func(r *ConnectRequest) {
		if r.resolved.CompareAndSwap(false, true) {
			writeReply(r.bw, wire.ReplyConnectionRefused, zeroAddress)
			r.conn.Close()
		}
	})
	return r
}

// Accept replies Succeeded with boundAddr and returns the now-plaintext
// connection, ready to relay.
func (r *ConnectRequest) Accept(boundAddr wire.Address) (net.Conn, error) {
	if !r.resolved.CompareAndSwap(false, true) {
		return nil, &InvalidRequest{Reason: "request already accepted or rejected"}
	}
	if err := writeReply(r.bw, wire.ReplySucceeded, boundAddr); err != nil {
		r.conn.Close()
		return nil, err
	}
	return r.conn, nil
}

// Reject replies with reason's mapped code and closes the connection.
func (r *ConnectRequest) Reject(reason RejectReason) error {
	if !r.resolved.CompareAndSwap(false, true) {
		return &InvalidRequest{Reason: "request already accepted or rejected"}
	}
	defer r.conn.Close()
	return writeReply(r.bw, reason.replyCode(), zeroAddress)
}

// BindRequest is a parsed BIND command. Accept sends the first reply
// (the address the proxy is listening on for the second connection) and
// returns a BindAccept used to send the second reply once a peer
// connects.
type BindRequest struct {
	DestinationAddress wire.Address

	conn net.Conn
	bw   *bufio.Writer
}

func (r *BindRequest) Accept(listenAddr wire.Address) (*BindAccept, error) {
	if err := writeReply(r.bw, wire.ReplySucceeded, listenAddr); err != nil {
		r.conn.Close()
		return nil, err
	}
	return &BindAccept{conn: r.conn, bw: r.bw}, nil
}

func (r *BindRequest) Reject(reason RejectReason) error {
	defer r.conn.Close()
	return writeReply(r.bw, reason.replyCode(), zeroAddress)
}

// BindAccept sends the second BIND reply once the expected peer connects.
type BindAccept struct {
	conn net.Conn
	bw   *bufio.Writer
}

func (a *BindAccept) Accept(peerAddr wire.Address) (net.Conn, error) {
	if err := writeReply(a.bw, wire.ReplySucceeded, peerAddr); err != nil {
		a.conn.Close()
		return nil, err
	}
	return a.conn, nil
}

func (a *BindAccept) Reject(reason RejectReason) error {
	defer a.conn.Close()
	return writeReply(a.bw, reason.replyCode(), zeroAddress)
}

// AssociateRequest is a parsed ASSOCIATE command. UDP relay is not
// implemented, so only Reject is meaningful.
type AssociateRequest struct {
	conn net.Conn
	bw   *bufio.Writer
}

func (r *AssociateRequest) Reject(reason RejectReason) error {
	defer r.conn.Close()
	return writeReply(r.bw, reason.replyCode(), zeroAddress)
}
