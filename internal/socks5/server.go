package socks5

import (
	"bufio"
	"log/slog"
	"net"

	"github.com/gocksec/skunk/internal/codec/wire"
)

// ConnectionRequest is what the server hands to the application for
// every successfully parsed CONNECT command. Accept/Reject drive the
// embedded ConnectRequest; if the application drops this value without
// calling either, the connection is rejected with ConnectionRefused.
type ConnectionRequest struct {
	*ConnectRequest
}

// Server is a SOCKS5 listener: it accepts TCP connections, runs the
// handshake and request parsing on a goroutine per connection, and
// forwards parsed CONNECT requests into a bounded channel for the
// application to accept or reject.
type Server struct {
	Auth     AuthProvider
	Requests chan ConnectionRequest
	Logger   *slog.Logger

	// OnBind and OnAssociate receive BIND/ASSOCIATE requests if set;
	// otherwise those commands are rejected as CommandNotSupported.
	OnBind      func(*BindRequest)
	OnAssociate func(*AssociateRequest)
}

// NewServer creates a Server whose Requests channel buffers up to
// backlog pending connection requests.
func NewServer(auth AuthProvider, backlog int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Auth:     auth,
		Requests: make(chan ConnectionRequest, backlog),
		Logger:   logger,
	}
}

// Listen accepts connections on ln until it returns an error (e.g. the
// listener was closed), spawning one goroutine per accepted connection.
func (s *Server) Listen(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	result, rw, err := handshake(conn, s.Auth)
	if err != nil {
		s.Logger.Debug("socks5 handshake failed", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	_ = result

	req, err := readRequest(rw)
	if err != nil {
		s.Logger.Debug("socks5 request parse failed", "remote", conn.RemoteAddr(), "error", err)
		writeReply(rw.Writer, wire.ReplyAddressTypeNotSupported, zeroAddress)
		conn.Close()
		return
	}

	switch req.Command {
	case wire.CommandConnect:
		s.dispatchConnect(conn, rw.Writer, req.Target)
	case wire.CommandBind:
		s.dispatchBind(conn, rw.Writer, req.Target)
	case wire.CommandAssociate:
		s.dispatchAssociate(conn, rw.Writer)
	default:
		writeReply(rw.Writer, wire.ReplyCommandNotSupported, zeroAddress)
		conn.Close()
	}
}

func (s *Server) dispatchConnect(conn net.Conn, bw *bufio.Writer, target wire.Address) {
	cr := newConnectRequest(conn, bw, target)
	s.Logger.Debug("socks5 connect request", "conn_id", cr.ID, "target", target, "remote", conn.RemoteAddr())
	select {
	case s.Requests <- ConnectionRequest{cr}:
	default:
		// Backlog full: reject immediately rather than block the
		// accept-loop goroutine indefinitely.
		cr.Reject(RejectConnectionRefused)
	}
}

func (s *Server) dispatchBind(conn net.Conn, bw *bufio.Writer, target wire.Address) {
	br := &BindRequest{DestinationAddress: target, conn: conn, bw: bw}
	if s.OnBind == nil {
		br.Reject(RejectCommandNotSupported)
		return
	}
	s.OnBind(br)
}

func (s *Server) dispatchAssociate(conn net.Conn, bw *bufio.Writer) {
	ar := &AssociateRequest{conn: conn, bw: bw}
	if s.OnAssociate == nil {
		ar.Reject(RejectCommandNotSupported)
		return
	}
	s.OnAssociate(ar)
}
