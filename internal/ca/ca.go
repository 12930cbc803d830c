// Package ca manages skunk's local interception certificate authority:
// a self-signed root used to sign forged leaf certificates for every
// TLS host the proxy decrypts.
package ca

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	// KeySize is the RSA key size used for both the root and every
	// forged leaf.
	KeySize = 2048

	// ValidityYears is how long a freshly generated root is valid for.
	ValidityYears = 2

	// LeafValidityDays is how long a forged leaf certificate is valid for.
	LeafValidityDays = 30
)

// CA is skunk's local root: a self-signed certificate and the key that
// signs every forged leaf handed out during interception.
type CA struct {
	cert    *x509.Certificate
	key     *rsa.PrivateKey
	certPEM []byte
	keyPEM  []byte
}

// Open loads an existing CA from a PEM key and the first PEM certificate
// found at the given paths.
func Open(keyPath, certPath string) (*CA, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("ca: failed to decode certificate PEM at %s", certPath)
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ca: parsing certificate: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("ca: failed to decode private key PEM at %s", keyPath)
	}
	key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("ca: parsing private key: %w", err)
	}

	return &CA{cert: cert, key: key, certPEM: certPEM, keyPEM: keyPEM}, nil
}

// Generate creates a new self-signed root: CN="skunk root ca",
// O="gocksec", key usages {KeyCertSign, DigitalSignature}, isCa=true,
// with unconstrained basic constraints.
func Generate() (*CA, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, fmt.Errorf("ca: generating private key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("ca: generating serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "skunk root ca",
			Organization: []string{"gocksec"},
		},
		NotBefore:             time.Now().Add(-24 * time.Hour),
		NotAfter:              time.Now().AddDate(ValidityYears, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("ca: self-signing root: %w", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("ca: parsing freshly signed root: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	return &CA{cert: cert, key: key, certPEM: certPEM, keyPEM: keyPEM}, nil
}

// Save writes the key and the (re-)self-signed root cert to disk. The key
// is written with owner-only permissions.
func (c *CA) Save(keyPath, certPath string) error {
	if dir := filepath.Dir(certPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("ca: creating cert directory: %w", err)
		}
	}
	if err := os.WriteFile(certPath, c.certPEM, 0644); err != nil {
		return fmt.Errorf("ca: writing certificate: %w", err)
	}
	if err := os.WriteFile(keyPath, c.keyPEM, 0600); err != nil {
		return fmt.Errorf("ca: writing private key: %w", err)
	}
	return nil
}

// CertPEM returns the root certificate in PEM form, for distribution to
// clients that need to trust it.
func (c *CA) CertPEM() []byte { return c.certPEM }

// Certificate returns the parsed root certificate.
func (c *CA) Certificate() *x509.Certificate { return c.cert }

// LeafParams describes the forged leaf to sign: the subject and SAN
// fields are normally copied straight from the real upstream leaf, so
// the forgery is indistinguishable from the original except for the
// issuer.
type LeafParams struct {
	PublicKey   *rsa.PublicKey
	Subject     pkix.Name
	DNSNames    []string
	IPAddresses []net.IP
	NotBefore   time.Time
	NotAfter    time.Time
}

// Sign assigns a fresh random serial number (LeafParams carries none, so
// every interception gets its own serial) and signs a new leaf
// certificate under the CA's key, returning the DER encoding. The actual
// signing happens synchronously here; callers on a hot path should run it
// on a separate goroutine, matching the "runs on a blocking worker" note
// the forging flow is built around in tlsmitm.
func (c *CA) Sign(params LeafParams) ([]byte, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("ca: generating leaf serial: %w", err)
	}

	notBefore := params.NotBefore
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-24 * time.Hour)
	}
	notAfter := params.NotAfter
	if notAfter.IsZero() {
		notAfter = time.Now().AddDate(0, 0, LeafValidityDays)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               params.Subject,
		DNSNames:              params.DNSNames,
		IPAddresses:           params.IPAddresses,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	return x509.CreateCertificate(rand.Reader, template, c.cert, params.PublicKey, c.key)
}

func randomSerial() (*big.Int, error) {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, max)
	if err != nil {
		return nil, err
	}
	serial.Add(serial, big.NewInt(1))
	return serial, nil
}
