// Package httppump runs the HTTP/1.1 request/response loop over an
// already-established pair of plaintext streams — either raw TCP (port 80)
// or the downstream/upstream halves of a completed TLS interception
// (port 443). It has no opinion about how those streams came to exist;
// internal/mitm owns that wiring.
package httppump

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"
)

// SendRequest forwards req to the upstream connection bound by Pump and
// returns its response. Handlers call it zero or more times per incoming
// request — zero to synthesize a response locally, more than once to
// retry or to issue requests the downstream never asked for.
type SendRequest func(req *http.Request) (*http.Response, error)

// Handler is the sole injection point for inspecting or rewriting traffic
// flowing through the pump. It receives each request read off the
// downstream connection and a SendRequest handle bound to the upstream
// connection, and returns the response to relay back to downstream. A
// returned error becomes a 502 Bad Gateway to the client; the pump keeps
// serving subsequent requests on the same connection.
type Handler func(req *http.Request, send SendRequest) (*http.Response, error)

// Pump drives the HTTP/1.1 request loop: it reads requests off downstream,
// invokes handler with a SendRequest bound to upstream, and writes the
// resulting response back to downstream, repeating until downstream closes
// or a non-EOF framing error occurs.
//
// scheme and host are used to fix up each parsed request's URL, since
// requests read directly off a CONNECT tunnel arrive with only a path.
//
// Pump never calls Close on upstream or downstream itself; on return the
// caller decides whether to tear the streams down or, after an Upgrade,
// hand them on to something else. Wrap a connection in connio.WithoutShutdown
// before passing it to code that insists on closing what it's given.
func Pump(downstream, upstream net.Conn, scheme, host string, handler Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	downstreamReader := bufio.NewReader(downstream)
	upstreamReader := bufio.NewReader(upstream)

	send := func(req *http.Request) (*http.Response, error) {
		if err := req.Write(upstream); err != nil {
			return nil, fmt.Errorf("write upstream request: %w", err)
		}
		return http.ReadResponse(upstreamReader, req)
	}

	for {
		req, err := http.ReadRequest(downstreamReader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read downstream request: %w", err)
		}

		req.URL.Scheme = scheme
		req.URL.Host = host
		reqID := uuid.New()
		logger.Debug("pump request", "request_id", reqID, "method", req.Method, "host", host, "path", req.URL.Path)

		resp, err := handler(req, send)
		if err != nil {
			logger.Debug("handler error", "request_id", reqID, "host", host, "error", err)
			writeError(downstream, http.StatusBadGateway, "Bad Gateway")
			continue
		}

		if err := writeResponse(downstream, resp); err != nil {
			return fmt.Errorf("write downstream response: %w", err)
		}
	}
}

// writeResponse relays resp to downstream, stripping hop-by-hop headers.
// Responses with a known length are written with Content-Length; anything
// else (chunked upstream bodies, streaming responses with no declared
// length) is relayed with chunked transfer-encoding so the client still
// sees proper HTTP/1.1 framing.
func writeResponse(downstream net.Conn, resp *http.Response) error {
	defer resp.Body.Close()

	headers := resp.Header.Clone()
	removeHopByHopHeaders(headers)

	if resp.ContentLength >= 0 {
		headers.Set("Content-Length", fmt.Sprintf("%d", resp.ContentLength))

		var head bytes.Buffer
		fmt.Fprintf(&head, "HTTP/1.1 %s\r\n", resp.Status)
		_ = headers.Write(&head)
		head.WriteString("\r\n")
		if _, err := downstream.Write(head.Bytes()); err != nil {
			return err
		}
		_, err := io.Copy(downstream, resp.Body)
		return err
	}

	headers.Del("Content-Length")
	headers.Set("Transfer-Encoding", "chunked")

	var head bytes.Buffer
	fmt.Fprintf(&head, "HTTP/1.1 %s\r\n", resp.Status)
	_ = headers.Write(&head)
	head.WriteString("\r\n")
	if _, err := downstream.Write(head.Bytes()); err != nil {
		return err
	}

	cw := newChunkedWriter(downstream)
	if _, err := io.Copy(cw, resp.Body); err != nil {
		return err
	}
	return cw.Close()
}

// writeError sends a minimal HTTP error response over a raw connection.
// It deliberately omits Connection: close — a handler error doesn't end
// the pump loop, so the client can keep issuing requests on this connection.
func writeError(conn net.Conn, status int, message string) {
	response := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\n\r\n%s",
		status, http.StatusText(status), len(message), message)
	_, _ = conn.Write([]byte(response))
}

// hopByHopHeaders lists headers that apply to a single hop and must not be
// forwarded across the proxy boundary (RFC 7230 §6.1).
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopByHopHeaders(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}

// chunkedWriter implements HTTP/1.1 chunked transfer encoding for
// responses whose body length isn't known up front.
type chunkedWriter struct {
	w io.Writer
}

func newChunkedWriter(w io.Writer) *chunkedWriter {
	return &chunkedWriter{w: w}
}

func (c *chunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(c.w, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := c.w.Write([]byte("\r\n")); err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the terminating zero-length chunk.
func (c *chunkedWriter) Close() error {
	_, err := c.w.Write([]byte("0\r\n\r\n"))
	return err
}
