package mitm

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/gocksec/skunk/internal/socks5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startEchoServer returns a listener that echoes back whatever it reads.
func startEchoServer(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go io.Copy(conn, conn)
		}
	}()
	return ln
}

// socksConnect performs the client side of a SOCKS5 NoAuth handshake plus a
// CONNECT request against addr, returning the raw connection for relaying.
func socksConnect(t *testing.T, socksAddr, targetHost string, targetPort int) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", socksAddr)
	if err != nil {
		t.Fatalf("dial socks: %v", err)
	}
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		t.Fatalf("read method reply: %v", err)
	}
	if reply[1] != 0x00 {
		t.Fatalf("got method %d, want 0 (no auth)", reply[1])
	}

	ip := net.ParseIP(targetHost).To4()
	frame := []byte{0x05, 0x01, 0x00, 0x01}
	frame = append(frame, ip...)
	frame = append(frame, byte(targetPort>>8), byte(targetPort))
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write connect: %v", err)
	}

	br := bufio.NewReader(conn)
	header := make([]byte, 4)
	if _, err := io.ReadFull(br, header); err != nil {
		t.Fatalf("read connect reply header: %v", err)
	}
	if header[1] != 0x00 {
		t.Fatalf("got reply code %d, want 0 (succeeded)", header[1])
	}
	rest := make([]byte, 6) // IPv4 + port
	if _, err := io.ReadFull(br, rest); err != nil {
		t.Fatalf("read connect reply body: %v", err)
	}
	return conn
}

func TestOrchestratorTunnelsNonInterceptedTarget(t *testing.T) {
	echo := startEchoServer(t)
	defer echo.Close()
	echoAddr := echo.Addr().(*net.TCPAddr)

	socksLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen socks: %v", err)
	}
	defer socksLn.Close()

	server := socks5.NewServer(socks5.NoAuthProvider{}, 4, testLogger())
	go server.Listen(socksLn)

	tracker := NewConnTracker()
	orch := &Orchestrator{
		Filter:  TargetFilter{}, // empty intercept + empty passthrough => everything is a candidate, but port isn't 80/443 so it tunnels regardless
		Logger:  testLogger(),
		Tracker: tracker,
		Token:   NewCancellationToken(nil),
	}

	go func() {
		req := <-server.Requests
		orch.Handle(req)
	}()

	client := socksConnect(t, socksLn.Addr().String(), echoAddr.IP.String(), echoAddr.Port)
	defer client.Close()

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("client write: %v", err)
	}
	buf := make([]byte, 4)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("client read echo: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want %q", buf, "ping")
	}
}

func TestOrchestratorHandleRejectsWhenCancelled(t *testing.T) {
	echo := startEchoServer(t)
	defer echo.Close()
	echoAddr := echo.Addr().(*net.TCPAddr)

	socksLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen socks: %v", err)
	}
	defer socksLn.Close()

	server := socks5.NewServer(socks5.NoAuthProvider{}, 4, testLogger())
	go server.Listen(socksLn)

	tracker := NewConnTracker()
	token := NewCancellationToken(nil)
	token.Cancel()
	orch := &Orchestrator{Filter: TargetFilter{}, Logger: testLogger(), Tracker: tracker, Token: token}

	go func() {
		req := <-server.Requests
		orch.Handle(req)
	}()

	conn, err := net.Dial("tcp", socksLn.Addr().String())
	if err != nil {
		t.Fatalf("dial socks: %v", err)
	}
	defer conn.Close()
	conn.Write([]byte{0x05, 0x01, 0x00})
	reply := make([]byte, 2)
	io.ReadFull(conn, reply)

	ip := echoAddr.IP.To4()
	port := echoAddr.Port
	frame := []byte{0x05, 0x01, 0x00, 0x01}
	frame = append(frame, ip...)
	frame = append(frame, byte(port>>8), byte(port))
	conn.Write(frame)

	header := make([]byte, 4)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(conn, header); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if header[1] != 0x05 {
		t.Fatalf("got reply code %d, want 5 (connection refused)", header[1])
	}
}
