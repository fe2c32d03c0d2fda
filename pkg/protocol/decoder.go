package protocol

import (
	"errors"
	"io"
)

// Common decoding errors.
var (
	ErrBufferTooShort     = errors.New("protocol: buffer too short")
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrNegativeLength     = errors.New("protocol: negative length")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder is a binary decoder that reads from a byte buffer.
//
// Reads past the end of the buffer fail with io.ErrUnexpectedEOF so that a
// truncated message surfaces as a stream failure to the caller.
type Decoder struct {
	buf      []byte
	pos      int
	maxAlloc int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf, maxAlloc: DefaultMaxAllocation}
}

// NewDecoderAt creates a decoder positioned at offset within buf. Offsets
// outside buf leave the decoder at EOF.
func NewDecoderAt(buf []byte, offset int) *Decoder {
	d := NewDecoder(buf)
	if offset < 0 || offset > len(buf) {
		offset = len(buf)
	}
	d.pos = offset
	return d
}

// SetMaxAllocation changes the largest copy ReadSizedBytes and ReadCopy
// will make. Values above HardMaxAllocation are clamped.
func (d *Decoder) SetMaxAllocation(n int) {
	if n <= 0 || n > HardMaxAllocation {
		n = HardMaxAllocation
	}
	d.maxAlloc = n
}

// Buffer returns the whole underlying buffer, including bytes already read.
// Callers use it together with Position to hand off a region without copying.
func (d *Decoder) Buffer() []byte {
	return d.buf
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Position returns the current read position.
func (d *Decoder) Position() int {
	return d.pos
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes and returns them.
// The returned slice references the decoder's buffer; do not modify.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint

	for {
		if d.pos >= len(d.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

// ReadString reads a length-prefixed UTF-8 string.
// Returns ErrAllocationTooLarge if the string exceeds the allocation limit.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	// Bounds check: length must fit in remaining buffer
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	if length > uint64(d.maxAlloc) {
		return "", ErrAllocationTooLarge
	}
	n := int(length)
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadSizedBytes reads an int32 length followed by that many bytes, the
// inverse of Encoder.WriteSizedBytes. The sentinel length -1 yields a nil
// slice; a zero length yields an empty, non-nil slice.
// Returns a copy of the bytes (safe to retain).
func (d *Decoder) ReadSizedBytes() ([]byte, error) {
	length, err := d.ReadInt32()
	if err != nil {
		return nil, err
	}
	if length == -1 {
		return nil, nil
	}
	if length < 0 {
		return nil, ErrNegativeLength
	}
	if int(length) > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	return d.copyOut(int(length))
}

// ReadCopy reads exactly n bytes into a freshly allocated slice.
func (d *Decoder) ReadCopy(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	return d.copyOut(n)
}

func (d *Decoder) copyOut(n int) ([]byte, error) {
	// Allocation limit check: prevent DoS via huge length prefix
	if n > d.maxAlloc {
		return nil, ErrAllocationTooLarge
	}
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// ReadBool reads a boolean (single byte: 0x00=false, anything else=true).
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0x00, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint32 reads a uint32 in big-endian byte order.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

// ReadUint64 reads a uint64 in big-endian byte order.
func (d *Decoder) ReadUint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint64(d.buf[d.pos])<<56 | uint64(d.buf[d.pos+1])<<48 |
		uint64(d.buf[d.pos+2])<<40 | uint64(d.buf[d.pos+3])<<32 |
		uint64(d.buf[d.pos+4])<<24 | uint64(d.buf[d.pos+5])<<16 |
		uint64(d.buf[d.pos+6])<<8 | uint64(d.buf[d.pos+7])
	d.pos += 8
	return v, nil
}

// ReadInt16 reads an int16 in big-endian byte order.
func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads an int32 in big-endian byte order.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

// ReadCount reads a uint16 element count and validates it against max and
// against the bytes left, assuming each element takes at least minSize bytes.
// It guards header sections from preallocating for counts the buffer could
// never satisfy.
func (d *Decoder) ReadCount(max, minSize int) (int, error) {
	count, err := d.ReadUint16()
	if err != nil {
		return 0, err
	}
	n := int(count)
	if max > 0 && n > max {
		return 0, ErrCollectionTooLarge
	}
	if minSize > 0 && n*minSize > d.Remaining() {
		return 0, io.ErrUnexpectedEOF
	}
	return n, nil
}
