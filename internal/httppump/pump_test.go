package httppump

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUpstream answers a single HTTP request with a fixed response, acting
// as the far end of the "upstream" net.Conn half of a pipe pair.
func fakeUpstream(t *testing.T, conn net.Conn, status, body string) {
	t.Helper()
	br := bufio.NewReader(conn)
	req, err := http.ReadRequest(br)
	if err != nil {
		t.Errorf("fake upstream: read request: %v", err)
		return
	}
	io.Copy(io.Discard, req.Body)
	resp := "HTTP/1.1 " + status + "\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	conn.Write([]byte(resp))
}

func TestPumpForwardsRequestAndRelaysResponse(t *testing.T) {
	downClient, downServer := net.Pipe()
	upServer, upClient := net.Pipe()
	defer downClient.Close()

	go fakeUpstream(t, upServer, "200 OK", "hello")

	handlerCalled := make(chan *http.Request, 1)
	handler := func(req *http.Request, send SendRequest) (*http.Response, error) {
		handlerCalled <- req
		return send(req)
	}

	done := make(chan error, 1)
	go func() {
		done <- Pump(downServer, upClient, "http", "example.com", handler, testLogger())
	}()

	if _, err := downClient.Write([]byte("GET /widgets HTTP/1.1\r\nHost: example.com\r\n\r\n")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	select {
	case req := <-handlerCalled:
		if req.URL.Scheme != "http" || req.URL.Host != "example.com" {
			t.Fatalf("got url %v, want scheme/host fixed up to http/example.com", req.URL)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}

	br := bufio.NewReader(downClient)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello" {
		t.Fatalf("got body %q, want %q", body, "hello")
	}

	downClient.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Pump did not return after downstream close")
	}
}

func TestPumpHandlerErrorYieldsBadGateway(t *testing.T) {
	downClient, downServer := net.Pipe()
	_, upClient := net.Pipe()
	defer downClient.Close()
	defer downServer.Close()
	defer upClient.Close()

	handler := func(req *http.Request, send SendRequest) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	}

	go Pump(downServer, upClient, "http", "example.com", handler, testLogger())

	if _, err := downClient.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	br := bufio.NewReader(downClient)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("got status %d, want 502", resp.StatusCode)
	}
}

func TestPumpStreamsResponseWithoutContentLength(t *testing.T) {
	downClient, downServer := net.Pipe()
	defer downClient.Close()

	handler := func(req *http.Request, send SendRequest) (*http.Response, error) {
		pr, pw := io.Pipe()
		go func() {
			pw.Write([]byte("chunk-one"))
			pw.Close()
		}()
		return &http.Response{
			StatusCode:    http.StatusOK,
			Status:        "200 OK",
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        http.Header{},
			Body:          io.NopCloser(pr),
			ContentLength: -1,
		}, nil
	}

	_, upClient := net.Pipe()
	defer upClient.Close()
	go Pump(downServer, upClient, "http", "example.com", handler, testLogger())

	if _, err := downClient.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")); err != nil {
		t.Fatalf("client write: %v", err)
	}

	br := bufio.NewReader(downClient)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "chunk-one" {
		t.Fatalf("got body %q, want %q", body, "chunk-one")
	}
}
