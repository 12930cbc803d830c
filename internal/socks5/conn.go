package socks5

import (
	"bufio"
	"io"
	"net"
	"unicode/utf8"

	"github.com/gocksec/skunk/internal/codec"
	"github.com/gocksec/skunk/internal/codec/wire"
)

// handshake runs the version/method negotiation and, if required, the
// chosen auth sub-protocol. On success it returns the AuthResult and the
// buffered reader/writer ready for the request phase. On failure the
// caller must close conn; handshake itself never closes it.
func handshake(conn net.Conn, auth AuthProvider) (AuthResult, *bufio.ReadWriter, error) {
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)
	rw := bufio.NewReadWriter(br, bw)

	ver, err := br.ReadByte()
	if err != nil {
		return AuthResult{}, nil, err
	}
	if ver != wire.Version5 {
		return AuthResult{}, nil, &InvalidVersion{Version: ver}
	}

	nmethods, err := br.ReadByte()
	if err != nil {
		return AuthResult{}, nil, err
	}
	offered := make([]Method, nmethods)
	for i := range offered {
		b, err := br.ReadByte()
		if err != nil {
			return AuthResult{}, nil, err
		}
		offered[i] = Method(b)
	}

	selected := auth.SelectMethod(offered)
	if _, err := bw.Write([]byte{wire.Version5, byte(selected)}); err != nil {
		return AuthResult{}, nil, err
	}
	if err := bw.Flush(); err != nil {
		return AuthResult{}, nil, err
	}
	if selected == MethodNoAcceptable {
		return AuthResult{}, nil, &NoAcceptableMethod{}
	}

	result, err := auth.Authenticate(selected, rw)
	if err != nil {
		return AuthResult{}, nil, err
	}
	if !result.Success {
		return AuthResult{}, nil, &AuthenticationFailed{}
	}

	return result, rw, nil
}

// bufReader adapts a *bufio.Reader to codec.Reader for parsing the
// request frame without copying the whole connection buffer up front.
type bufReader struct{ r *bufio.Reader }

func (b bufReader) PeekChunk() []byte {
	chunk, _ := b.r.Peek(b.r.Buffered())
	return chunk
}
func (b bufReader) Remaining() int { return b.r.Buffered() }
func (b bufReader) Advance(n int) error {
	_, err := b.r.Discard(n)
	return err
}
func (b bufReader) View(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(b.r, out); err != nil {
		return nil, codec.End
	}
	return out, nil
}
func (b bufReader) Rest() []byte {
	out, _ := io.ReadAll(b.r)
	return out
}

// readRequest parses the request frame directly off rw, translating any
// codec-level failure into the SOCKS error taxonomy.
func readRequest(rw *bufio.ReadWriter) (wire.Request, error) {
	req, err := wire.ReadRequest(bufReader{r: rw.Reader})
	if err != nil {
		if _, isType := err.(*codec.InvalidDiscriminant); isType {
			return wire.Request{}, &InvalidRequest{Reason: "unsupported command or address type"}
		}
		return wire.Request{}, err
	}
	if req.Target.Domain != "" && !utf8.ValidString(req.Target.Domain) {
		return wire.Request{}, &InvalidHostName{}
	}
	return req, nil
}

func writeReply(bw *bufio.Writer, code wire.ReplyCode, bound wire.Address) error {
	w := &bufioWriter{w: bw}
	if err := wire.WriteReply(w, code, bound); err != nil {
		return err
	}
	return bw.Flush()
}

type bufioWriter struct{ w *bufio.Writer }

func (b *bufioWriter) Write(p []byte) error {
	_, err := b.w.Write(p)
	return err
}

// zeroAddress is the 0.0.0.0:0 address every failure reply carries.
var zeroAddress = wire.Address{IP: net.IPv4zero, Port: 0}
