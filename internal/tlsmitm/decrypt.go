package tlsmitm

import (
	"crypto/tls"
	"fmt"
	"net"
)

// Decrypt runs the full interception handshake: read the downstream
// ClientHello lazily to learn the SNI, dial upstream under that name,
// copy the real leaf's identity into a forged (cached-by-SNI) leaf, and
// complete the downstream handshake with it. On success it returns a
// plaintext stream pair ready for the HTTP proxy pump.
func (c *Context) Decrypt(incoming net.Conn, outgoing net.Conn) (*tls.Conn, *tls.Conn, error) {
	accept, err := startAccept(incoming)
	if err != nil {
		return nil, nil, err
	}

	host := accept.ServerName()
	if host == "" {
		return nil, nil, &NoServerName{}
	}

	upstreamConn, err := c.connect(outgoing, host)
	if err != nil {
		return nil, nil, err
	}

	leaf, err := upstreamLeaf(upstreamConn)
	if err != nil {
		return nil, nil, err
	}

	der, err := c.cache.getOrSign(host, leafParamsFromUpstream(leaf, c.serverKey))
	if err != nil {
		return nil, nil, err
	}

	serverCert := tls.Certificate{
		Certificate: [][]byte{der, c.ca.Certificate().Raw},
		PrivateKey:  c.serverKey,
	}
	downstreamConn, err := accept.Finish(&tls.Config{
		Certificates: []tls.Certificate{serverCert},
		ClientAuth:   tls.NoClientCert,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("tlsmitm: downstream handshake for %s: %w", host, err)
	}

	return downstreamConn, upstreamConn, nil
}

// Stream is the read/write contract both a decrypted TLS pair and a
// plain-TCP pair satisfy, letting callers treat the two uniformly.
type Stream interface {
	net.Conn
}

// MaybeDecrypted is the sum type Context.MaybeDecrypt resolves to: either
// a decrypted stream pair or a plain passthrough connection, depending on
// whether interception was requested for this connection.
type MaybeDecrypted struct {
	Decrypted bool
	Incoming  Stream
	Outgoing  Stream
}

// MaybeDecrypt runs Decrypt when decrypt is true; otherwise it returns
// incoming/outgoing unchanged so the caller can treat both cases through
// the same Stream contract.
func (c *Context) MaybeDecrypt(incoming, outgoing net.Conn, decrypt bool) (MaybeDecrypted, error) {
	if !decrypt {
		return MaybeDecrypted{Decrypted: false, Incoming: incoming, Outgoing: outgoing}, nil
	}
	in, out, err := c.Decrypt(incoming, outgoing)
	if err != nil {
		return MaybeDecrypted{}, err
	}
	return MaybeDecrypted{Decrypted: true, Incoming: in, Outgoing: out}, nil
}
