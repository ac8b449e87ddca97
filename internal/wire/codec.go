// Package wire implements the big-endian, length-prefixed-vector codec
// shared by every handshake message parser and serializer. It is a thin
// set of conventions over cryptobyte so that bounds checks on untrusted
// network input happen in exactly one place.
package wire

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// Reader wraps cryptobyte.String with the vector-bounds conventions used
// throughout the ClientHello/ClientKeyExchange parsers: every
// length-prefixed read either succeeds with the advertised number of
// bytes available, or fails outright. Reader never returns a partially
// consumed vector.
type Reader struct {
	s cryptobyte.String
}

// NewReader wraps buf for sequential, bounds-checked reads. buf is never
// retained past the reader's lifetime by callers that copy out fields
// before returning.
func NewReader(buf []byte) *Reader {
	return &Reader{s: cryptobyte.String(buf)}
}

// Len reports the number of unread bytes.
func (r *Reader) Len() int { return len(r.s) }

// Empty reports whether every byte has been consumed.
func (r *Reader) Empty() bool { return len(r.s) == 0 }

// U8 reads one byte.
func (r *Reader) U8() (byte, error) {
	var v uint8
	if !r.s.ReadUint8(&v) {
		return 0, errTruncated
	}
	return v, nil
}

// U16 reads a 2-byte big-endian integer.
func (r *Reader) U16() (uint16, error) {
	var v uint16
	if !r.s.ReadUint16(&v) {
		return 0, errTruncated
	}
	return v, nil
}

// U24 reads a 3-byte big-endian integer (the certificate_list and
// per-certificate lengths of a Certificate message).
func (r *Reader) U24() (uint32, error) {
	var v uint32
	if !r.s.ReadUint24(&v) {
		return 0, errTruncated
	}
	return v, nil
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	out := make([]byte, n)
	if !r.s.ReadBytes(&out, n) {
		return nil, errTruncated
	}
	return out, nil
}

// Vec8 reads a vector prefixed by a 1-byte length.
func (r *Reader) Vec8() ([]byte, error) {
	var v cryptobyte.String
	if !r.s.ReadUint8LengthPrefixed(&v) {
		return nil, errTruncated
	}
	return []byte(v), nil
}

// Vec16 reads a vector prefixed by a 2-byte length.
func (r *Reader) Vec16() ([]byte, error) {
	var v cryptobyte.String
	if !r.s.ReadUint16LengthPrefixed(&v) {
		return nil, errTruncated
	}
	return []byte(v), nil
}

// errTruncated is returned for every bounds failure; callers translate
// it into the taxonomy code appropriate to the message being parsed
// (BadHSClientHello, BadHSClientKeyExchange, ...).
var errTruncated = fmt.Errorf("wire: truncated or length-tampered input")

// ErrTruncated exposes errTruncated for errors.Is comparisons by callers
// that need to distinguish "ran out of bytes" from other codec errors.
func ErrTruncated() error { return errTruncated }

// Builder wraps cryptobyte.Builder with panic-free, error-returning
// helpers. cryptobyte.Builder only panics on programmer error (e.g.
// overflowing a length prefix), which cannot happen here since every
// vector we emit is bounded by protocol constants, not attacker input;
// Bytes still surfaces that class of bug as an error instead of a panic
// so a future serializer mistake fails a test rather than crashing a
// server process.
type Builder struct {
	b *cryptobyte.Builder
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{b: cryptobyte.NewBuilder(nil)}
}

func (b *Builder) AddU8(v byte) *Builder {
	b.b.AddUint8(v)
	return b
}

func (b *Builder) AddU16(v uint16) *Builder {
	b.b.AddUint16(v)
	return b
}

func (b *Builder) AddU24(v uint32) *Builder {
	b.b.AddUint24(v)
	return b
}

func (b *Builder) AddBytes(p []byte) *Builder {
	b.b.AddBytes(p)
	return b
}

// AddVec8 appends p as a 1-byte-length-prefixed vector.
func (b *Builder) AddVec8(p []byte) *Builder {
	b.b.AddUint8LengthPrefixed(func(c *cryptobyte.Builder) { c.AddBytes(p) })
	return b
}

// AddVec16 appends p as a 2-byte-length-prefixed vector.
func (b *Builder) AddVec16(p []byte) *Builder {
	b.b.AddUint16LengthPrefixed(func(c *cryptobyte.Builder) { c.AddBytes(p) })
	return b
}

// Vec16Func opens a 2-byte-length-prefixed child builder, letting the
// caller assemble nested fields (extensions, DN lists) without
// pre-computing their total length — mirrors how CertificateRequest's
// total_dn_len and each extension's ext_size are derived in the original
// two-pass C implementation, but in one pass.
func (b *Builder) Vec16Func(fn func(*Builder)) *Builder {
	b.b.AddUint16LengthPrefixed(func(c *cryptobyte.Builder) {
		fn(&Builder{b: c})
	})
	return b
}

// Bytes finalizes the builder.
func (b *Builder) Bytes() ([]byte, error) {
	return b.b.Bytes()
}
