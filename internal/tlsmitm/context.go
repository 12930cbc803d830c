// Package tlsmitm implements the MITM TLS interception engine: a per-SNI
// forged-certificate cache, a lazy server-side accept that reads the
// ClientHello before deciding how to proceed, an upstream dial that
// copies the real leaf's identity, and the downstream handshake that
// hands the caller a plaintext stream pair.
package tlsmitm

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"

	"github.com/gocksec/skunk/internal/ca"
)

// DefaultMaxCacheSize bounds the forged-certificate cache. An unbounded
// cache is a real memory-exhaustion bug class on a proxy that may see an
// unbounded number of distinct hostnames, so this is carried as ambient
// hardening.
const DefaultMaxCacheSize = 1000

// Context holds everything interception needs across every connection:
// the shared upstream TLS client config, the forged-certificate cache,
// the CA, and a single process-wide server key pair reused for every
// forged leaf (signing is cheap per-connection only if the key isn't
// regenerated each time).
type Context struct {
	clientConfig *tls.Config
	cache        *CertCache
	ca           *ca.CA
	serverKey    *rsa.PrivateKey
}

// NewContext builds a Context: a shared client config trusting the host
// OS root store, an empty per-SNI cert cache, and a freshly generated
// per-process leaf key pair.
func NewContext(root *ca.CA, maxCacheSize int) (*Context, error) {
	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("tlsmitm: generating process server key: %w", err)
	}
	return &Context{
		clientConfig: &tls.Config{}, // nil RootCAs means "use host OS trust store"
		cache:        NewCertCache(root, maxCacheSize),
		ca:           root,
		serverKey:    serverKey,
	}, nil
}

// connect performs the upstream TLS handshake against serverName using
// the context's shared client config.
func (c *Context) connect(conn net.Conn, serverName string) (*tls.Conn, error) {
	cfg := c.clientConfig.Clone()
	cfg.ServerName = serverName
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		return nil, fmt.Errorf("tlsmitm: upstream handshake to %s: %w", serverName, err)
	}
	return tlsConn, nil
}

// upstreamLeaf extracts the upstream peer's leaf certificate, failing
// with NoTargetCertificate if the chain is empty.
func upstreamLeaf(tlsConn *tls.Conn) (*x509.Certificate, error) {
	chain := tlsConn.ConnectionState().PeerCertificates
	if len(chain) == 0 {
		return nil, &NoTargetCertificate{}
	}
	return chain[0], nil
}
