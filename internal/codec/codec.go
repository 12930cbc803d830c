// Package codec provides a generic, allocation-conscious read/write
// framework for fixed-shape binary records: wire headers, protocol frames,
// and the like. It mirrors a two-parameter "read with context" design —
// a type T is read from a Reader given a context C (an endianness marker,
// an explicit length, or nothing at all) — expressed in Go as function
// values rather than a trait, and composite records are decoded by a
// hand-written Decode method calling field-level functions directly.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gocksec/skunk/internal/buf"
)

// End is returned when a read or advance is requested past the data
// remaining in a Reader.
var End = errors.New("codec: end of input")

// Reader exposes the primitive operations typed decoders are built on.
type Reader interface {
	// PeekChunk borrows the next contiguous chunk of unread data without
	// advancing. It may be shorter than Remaining() for segmented
	// sources (e.g. a rope view); callers that need a specific length
	// contiguous should use View.
	PeekChunk() []byte
	// Advance skips n bytes, failing with End if fewer remain.
	Advance(n int) error
	// View returns exactly n bytes, failing with End if fewer remain, and
	// advances past them. The returned slice may alias the reader's
	// underlying data; callers that keep it must copy it.
	View(n int) ([]byte, error)
	// Rest takes and returns all remaining bytes, advancing to the end.
	Rest() []byte
	// Remaining reports how many bytes are left to read.
	Remaining() int
}

// Writer exposes the primitive operations typed encoders are built on.
type Writer interface {
	// Write appends p, growing the destination as needed.
	Write(p []byte) error
}

// Endianness selects the byte order used to decode/encode fixed-width
// integers. NativeEndian resolves to the host's order at read/write time.
type Endianness int

const (
	BigEndian Endianness = iota
	LittleEndian
	NetworkEndian // alias for BigEndian, kept distinct for call-site clarity
	NativeEndian
)

func (e Endianness) order() binary.ByteOrder {
	switch e {
	case LittleEndian:
		return binary.LittleEndian
	case BigEndian, NetworkEndian:
		return binary.BigEndian
	case NativeEndian:
		return binary.NativeEndian
	default:
		return binary.BigEndian
	}
}

// ReadFunc is the function-value stand-in for a two-parameter Read<R, C>
// implementation: given a reader and a context, produce a T or an error.
type ReadFunc[T any, C any] func(r Reader, ctx C) (T, error)

// WriteFunc is the symmetric stand-in for Write<W, C>.
type WriteFunc[T any, C any] func(w Writer, ctx C, v T) error

// ReadUint16 reads a 2-byte unsigned integer under the given byte order.
func ReadUint16(r Reader, e Endianness) (uint16, error) {
	b, err := r.View(2)
	if err != nil {
		return 0, err
	}
	return e.order().Uint16(b), nil
}

// ReadUint32 reads a 4-byte unsigned integer under the given byte order.
func ReadUint32(r Reader, e Endianness) (uint32, error) {
	b, err := r.View(4)
	if err != nil {
		return 0, err
	}
	return e.order().Uint32(b), nil
}

// ReadUint64 reads an 8-byte unsigned integer under the given byte order.
func ReadUint64(r Reader, e Endianness) (uint64, error) {
	b, err := r.View(8)
	if err != nil {
		return 0, err
	}
	return e.order().Uint64(b), nil
}

// ReadByte reads a single byte (no endianness applies).
func ReadByte(r Reader, _ struct{}) (byte, error) {
	b, err := r.View(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteUint16 writes a 2-byte unsigned integer under the given byte order.
func WriteUint16(w Writer, e Endianness, v uint16) error {
	b := make([]byte, 2)
	e.order().PutUint16(b, v)
	return w.Write(b)
}

// WriteUint32 writes a 4-byte unsigned integer under the given byte order.
func WriteUint32(w Writer, e Endianness, v uint32) error {
	b := make([]byte, 4)
	e.order().PutUint32(b, v)
	return w.Write(b)
}

// WriteByte writes a single byte.
func WriteByte(w Writer, v byte) error {
	return w.Write([]byte{v})
}

// ReadInto copies bytes from r into dest until limit bytes have been moved,
// dest has no room left, or r runs out, whichever comes first. It returns
// the number of bytes copied. It never allocates an intermediate buffer:
// each PeekChunk is extended into dest directly.
func ReadInto(r Reader, dest buf.BufMut, limit int) (int, error) {
	total := 0
	for total < limit {
		chunk := r.PeekChunk()
		if len(chunk) == 0 {
			break
		}
		room := dest.Cap() - dest.Len()
		if room <= 0 {
			break
		}
		n := len(chunk)
		if rem := limit - total; n > rem {
			n = rem
		}
		if n > room {
			n = room
		}
		if err := dest.Extend(chunk[:n]); err != nil {
			return total, err
		}
		if err := r.Advance(n); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// InvalidDiscriminant reports that an enum record's leading tag matched no
// known variant.
type InvalidDiscriminant struct {
	Tag uint64
}

func (e *InvalidDiscriminant) Error() string {
	return fmt.Sprintf("codec: invalid discriminant %#x", e.Tag)
}
