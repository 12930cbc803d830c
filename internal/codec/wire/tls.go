// Package wire supplies a small set of statically-typed record decoders
// built on internal/codec, demonstrating the tag-dispatch and
// fixed-length-record machinery the rest of the proxy's protocol framing
// would be built on. It intentionally does not attempt to cover the full
// packet-capture protocol suite (Ethernet/ARP/IPv4/DHCP) — only the
// records skunk itself needs to peek at on the wire.
package wire

import (
	"fmt"

	"github.com/gocksec/skunk/internal/codec"
)

// ContentType is a TLS record's leading content-type tag (RFC 8446 §5.1).
type ContentType byte

const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeChangeCipherSpec:
		return "ChangeCipherSpec"
	case ContentTypeAlert:
		return "Alert"
	case ContentTypeHandshake:
		return "Handshake"
	case ContentTypeApplicationData:
		return "ApplicationData"
	default:
		return fmt.Sprintf("ContentType(%d)", byte(c))
	}
}

// RecordHeader is a TLS record layer header: a one-byte content-type tag,
// a two-byte legacy protocol version, and a two-byte payload length.
type RecordHeader struct {
	Type          ContentType
	LegacyVersion uint16
	Length        uint16
}

// ReadRecordHeader decodes a 5-byte TLS record header, dispatching on the
// leading content-type tag. An unrecognized tag fails with
// InvalidDiscriminant rather than being silently accepted, so callers can
// tell a real TLS record apart from an unrelated protocol on the same port.
func ReadRecordHeader(r codec.Reader) (RecordHeader, error) {
	tagByte, err := codec.ReadByte(r, struct{}{})
	if err != nil {
		return RecordHeader{}, err
	}
	tag := ContentType(tagByte)
	switch tag {
	case ContentTypeChangeCipherSpec, ContentTypeAlert, ContentTypeHandshake, ContentTypeApplicationData:
	default:
		return RecordHeader{}, &codec.InvalidDiscriminant{Tag: uint64(tagByte)}
	}

	version, err := codec.ReadUint16(r, codec.BigEndian)
	if err != nil {
		return RecordHeader{}, err
	}
	length, err := codec.ReadUint16(r, codec.BigEndian)
	if err != nil {
		return RecordHeader{}, err
	}
	return RecordHeader{Type: tag, LegacyVersion: version, Length: length}, nil
}

// WriteRecordHeader encodes h back to wire form.
func WriteRecordHeader(w codec.Writer, h RecordHeader) error {
	if err := codec.WriteByte(w, byte(h.Type)); err != nil {
		return err
	}
	if err := codec.WriteUint16(w, codec.BigEndian, h.LegacyVersion); err != nil {
		return err
	}
	return codec.WriteUint16(w, codec.BigEndian, h.Length)
}
