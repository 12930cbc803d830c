package socks5

import (
	"bufio"
	"net"
	"runtime"
	"testing"
	"time"

	"github.com/gocksec/skunk/internal/codec/wire"
)

func TestHandshakeNoAuthConnectRequest(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		_, err := client.Write([]byte{0x05, 0x01, 0x00})
		if err != nil {
			done <- err
			return
		}
		reply := make([]byte, 2)
		if _, err := client.Read(reply); err != nil {
			done <- err
			return
		}
		// 05 01 00 05 01 00 01 7f 00 00 01 00 50
		_, err = client.Write([]byte{0x05, 0x01, 0x00, 0x01, 0x7f, 0x00, 0x00, 0x01, 0x00, 0x50})
		done <- err
	}()

	result, rw, err := handshake(server, NoAuthProvider{})
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if !result.Success {
		t.Fatal("expected successful NoAuth handshake")
	}
	if err := <-done; err != nil {
		t.Fatalf("client side: %v", err)
	}

	req, err := readRequest(rw)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if req.Target.Port != 0x50 || req.Target.IP.String() != "127.0.0.1" {
		t.Fatalf("got target=%+v, want 127.0.0.1:80", req.Target)
	}
}

func TestHandshakeInvalidVersion(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go client.Write([]byte{0x04, 0x01, 0x00})

	_, _, err := handshake(server, NoAuthProvider{})
	ve, isType := err.(*InvalidVersion)
	if !isType {
		t.Fatalf("got %T, want *InvalidVersion", err)
	}
	if ve.Version != 4 {
		t.Fatalf("got version=%d, want 4", ve.Version)
	}
}

func TestReadRequestInvalidHostName(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		client.Write([]byte{0x05, 0x01, 0x00})
		reply := make([]byte, 2)
		client.Read(reply)

		domain := []byte{0xff, 0xfe} // invalid UTF-8
		frame := []byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}
		frame = append(frame, domain...)
		frame = append(frame, 0x00, 0x50)
		client.Write(frame)
	}()

	_, rw, err := handshake(server, NoAuthProvider{})
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	_, err = readRequest(rw)
	if _, isType := err.(*InvalidHostName); !isType {
		t.Fatalf("got %T, want *InvalidHostName", err)
	}
}

func TestNoAuthProviderRejectsUnofferedMethods(t *testing.T) {
	p := NoAuthProvider{}
	if got := p.SelectMethod([]Method{MethodUserPassword}); got != MethodNoAcceptable {
		t.Fatalf("got %v, want MethodNoAcceptable", got)
	}
	if got := p.SelectMethod([]Method{MethodNoAuth}); got != MethodNoAuth {
		t.Fatalf("got %v, want MethodNoAuth", got)
	}
}

func TestUserPassAuthProviderAcceptsValidCredentials(t *testing.T) {
	p := &UserPassAuthProvider{Credentials: []UserPassCredentials{{Username: "alice", Password: "wonderland"}}}

	client, server := net.Pipe()
	defer client.Close()

	go func() {
		frame := []byte{0x01, byte(len("alice")), 'a', 'l', 'i', 'c', 'e', byte(len("wonderland"))}
		frame = append(frame, []byte("wonderland")...)
		client.Write(frame)
		resp := make([]byte, 2)
		client.Read(resp)
	}()

	br := bufio.NewReader(server)
	bw := bufio.NewWriter(server)
	rw := bufio.NewReadWriter(br, bw)

	result, err := p.Authenticate(MethodUserPassword, rw)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !result.Success || result.Data["username"] != "alice" {
		t.Fatalf("got %+v", result)
	}
}

func TestConnectRequestDropTriggersReject(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	bw := bufio.NewWriter(server)
	func() {
		_ = newConnectRequest(server, bw, wire.Address{})
	}()

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 10)
		n, _ := client.Read(buf)
		readDone <- buf[:n]
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		select {
		case reply := <-readDone:
			if len(reply) < 2 || reply[1] != 0x05 {
				t.Fatalf("got reply %v, want reject code 0x05", reply)
			}
			return
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatal("timed out waiting for finalizer-triggered reject reply")
}
