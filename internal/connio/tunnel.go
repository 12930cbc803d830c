package connio

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gocksec/skunk/internal/buf"
)

// tunnelChunkSize mirrors the old plain []byte buffer this pool replaced.
const tunnelChunkSize = 32 * 1024

const defaultIdleTimeout = 5 * time.Minute

// Tunnel copies data bidirectionally between left and right until either
// side closes or goes idle (no reads for the default idle timeout), then
// tears down both.
func Tunnel(left, right net.Conn, logger *slog.Logger, label string) {
	TunnelWithTimeout(left, right, logger, label, defaultIdleTimeout)
}

// TunnelWithTimeout is the testable core that accepts an explicit idle
// timeout.
func TunnelWithTimeout(left, right net.Conn, logger *slog.Logger, label string, idleTimeout time.Duration) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("tunnel established", "target", label)

	var once sync.Once
	closeAll := func() {
		once.Do(func() {
			left.Close()
			right.Close()
			logger.Debug("tunnel closed", "target", label)
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		copyWithIdleTimeout(right, left, idleTimeout)
		closeAll()
	}()

	go func() {
		defer wg.Done()
		copyWithIdleTimeout(left, right, idleTimeout)
		closeAll()
	}()

	wg.Wait()
}

// copyWithIdleTimeout copies from src to dst, resetting a read deadline on
// src after every successful read. If no data arrives within idleTimeout,
// the copy stops and the caller tears down both sides.
//
// Each read's destination is a pooled ArcBufMut rather than a private
// []byte: the slab recycles a small handful of chunk-sized buffers for the
// lifetime of this direction's loop instead of letting one escape to the
// heap per iteration.
func copyWithIdleTimeout(dst io.Writer, src net.Conn, idleTimeout time.Duration) {
	slab := buf.NewSlab(tunnelChunkSize, 2)
	defer slab.Close()

	for {
		handle := slab.Get()
		_ = src.SetReadDeadline(time.Now().Add(idleTimeout))
		n, readErr := src.Read(handle.Spare())
		if n > 0 {
			if err := handle.Commit(n); err != nil {
				handle.Release()
				return
			}
		}

		frozen := handle.Freeze()
		if n > 0 {
			_, writeErr := dst.Write(frozen.Bytes())
			frozen.Release()
			if writeErr != nil {
				return
			}
		} else {
			frozen.Release()
		}

		if readErr != nil {
			return
		}
	}
}
