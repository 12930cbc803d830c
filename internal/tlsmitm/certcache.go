package tlsmitm

import (
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gocksec/skunk/internal/ca"
)

// CertCache is an LRU cache of forged leaf certificates keyed by SNI. It
// exists so a second connection to the same host reuses the forged cert
// instead of paying for another CA signing call. Signing itself
// (x509.CreateCertificate under the hood) runs entirely off a single
// background worker, outside c.mu, so one host's slow sign never blocks
// another host's cache lookup.
type CertCache struct {
	root    *ca.CA
	maxSize int

	mu    sync.Mutex
	cache map[string][]byte // host -> leaf DER
	order []string          // LRU order, oldest first

	group singleflight.Group
	jobs  chan signJob
}

// signJob is a request for the background worker to sign a forged leaf.
type signJob struct {
	host   string
	params leafParams
	result chan signResult
}

type signResult struct {
	der []byte
	err error
}

// NewCertCache creates a cache bounded to maxSize entries (DefaultMaxCacheSize if <= 0).
func NewCertCache(root *ca.CA, maxSize int) *CertCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxCacheSize
	}
	c := &CertCache{
		root:    root,
		maxSize: maxSize,
		cache:   make(map[string][]byte),
		jobs:    make(chan signJob),
	}
	go c.signWorker()
	return c
}

// signWorker runs the CPU-bound CA signing calls one at a time, off the
// cache's own goroutine, so getOrSign's lock is never held across a sign.
func (c *CertCache) signWorker() {
	for job := range c.jobs {
		der, err := c.root.Sign(ca.LeafParams{
			PublicKey:   job.params.publicKey,
			Subject:     job.params.subject,
			DNSNames:    job.params.dnsNames,
			IPAddresses: job.params.ipAddresses,
		})
		job.result <- signResult{der: der, err: err}
	}
}

// leafParams carries the upstream identity to copy into a forged leaf.
type leafParams struct {
	publicKey   *rsa.PublicKey
	subject     pkix.Name
	dnsNames    []string
	ipAddresses []net.IP
}

func leafParamsFromUpstream(upstream *x509.Certificate, serverKey *rsa.PrivateKey) leafParams {
	return leafParams{
		publicKey:   &serverKey.PublicKey,
		subject:     upstream.Subject,
		dnsNames:    upstream.DNSNames,
		ipAddresses: upstream.IPAddresses,
	}
}

// getOrSign returns a cached forged leaf for host, signing and caching a
// new one under the CA if this is the first request for that host. The
// mutex is held only across the initial lookup and the final insert; the
// sign call itself happens on the background worker with the lock released,
// and singleflight collapses concurrent callers for the same host onto one
// sign.
func (c *CertCache) getOrSign(host string, params leafParams) ([]byte, error) {
	c.mu.Lock()
	if der, ok := c.cache[host]; ok {
		c.moveToEnd(host)
		c.mu.Unlock()
		return der, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(host, func() (any, error) {
		result := make(chan signResult, 1)
		c.jobs <- signJob{host: host, params: params, result: result}
		res := <-result
		if res.err != nil {
			return nil, fmt.Errorf("tlsmitm: signing forged leaf for %s: %w", host, res.err)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.cache[host]; ok {
			c.moveToEnd(host)
			return existing, nil
		}
		if len(c.cache) >= c.maxSize {
			c.evictOldest()
		}
		c.cache[host] = res.der
		c.order = append(c.order, host)
		return res.der, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *CertCache) moveToEnd(host string) {
	for i, h := range c.order {
		if h == host {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, host)
}

func (c *CertCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.cache, oldest)
}

// Size reports the current number of cached leaves.
func (c *CertCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Clear empties the cache.
func (c *CertCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]byte)
	c.order = nil
}
