package message

import (
	"fmt"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// BytesMessage carries a window (offset, length) into a caller-owned byte
// slice. The slice is referenced, never copied, so its previous owner must
// not modify it after handing it over.
type BytesMessage struct {
	Envelope

	buf        []byte
	offset     int
	length     int
	marshaller marshal.Marshaller
}

// NewBytesMessage returns a message for dest whose payload is all of b.
func NewBytesMessage(dest address.Address, b []byte) *BytesMessage {
	m := &BytesMessage{}
	m.dest = dest
	_ = m.SetBufferWindow(b, 0, len(b))
	return m
}

// NewBytesMessageWindow returns a message for dest whose payload is
// b[offset:offset+length].
func NewBytesMessageWindow(dest address.Address, b []byte, offset, length int) (*BytesMessage, error) {
	m := &BytesMessage{}
	m.dest = dest
	if err := m.SetBufferWindow(b, offset, length); err != nil {
		return nil, err
	}
	return m, nil
}

// Type implements Message.
func (m *BytesMessage) Type() Type { return TypeBytes }

// SetMarshaller sets the marshaller used by SetObject and Object.
// The default is gob.
func (m *BytesMessage) SetMarshaller(mr marshal.Marshaller) { m.marshaller = mr }

func (m *BytesMessage) objectMarshaller() marshal.Marshaller {
	if m.marshaller == nil {
		return marshal.Gob{}
	}
	return m.marshaller
}

// SetBufferWindow points the payload at b[offset:offset+length] without
// copying. A nil b clears the payload.
func (m *BytesMessage) SetBufferWindow(b []byte, offset, length int) error {
	if b == nil {
		m.buf, m.offset, m.length = nil, 0, 0
		return nil
	}
	if offset < 0 || offset > len(b) || length < 0 || offset+length > len(b) {
		return fmt.Errorf("%w: offset=%d length=%d size=%d", ErrBufferBounds, offset, length, len(b))
	}
	m.buf, m.offset, m.length = b, offset, length
	return nil
}

// SetBuffer points the payload at all of b.
func (m *BytesMessage) SetBuffer(b []byte) error {
	return m.SetBufferWindow(b, 0, len(b))
}

// Buffer returns the payload. When the window spans the whole backing slice
// the slice itself is returned; otherwise a copy of the window.
func (m *BytesMessage) Buffer() ([]byte, error) {
	if m.buf == nil {
		return nil, nil
	}
	if m.offset == 0 && m.length == len(m.buf) {
		return m.buf, nil
	}
	out := make([]byte, m.length)
	copy(out, m.buf[m.offset:m.offset+m.length])
	return out, nil
}

// RawBuffer returns the backing slice, ignoring the window.
func (m *BytesMessage) RawBuffer() ([]byte, error) { return m.buf, nil }

// Window returns the payload window without copying.
func (m *BytesMessage) Window() []byte {
	if m.buf == nil {
		return nil
	}
	return m.buf[m.offset : m.offset+m.length]
}

// Offset implements Message.
func (m *BytesMessage) Offset() int { return m.offset }

// Length implements Message.
func (m *BytesMessage) Length() (int, error) { return m.length, nil }

// HasPayload implements Message.
func (m *BytesMessage) HasPayload() bool { return m.buf != nil }

// SetObject marshals v and makes the result the payload. A []byte is used as
// is and nil leaves the message unchanged. On failure the message is not
// modified.
func (m *BytesMessage) SetObject(v any) error {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		return m.SetBuffer(b)
	}
	data, err := m.objectMarshaller().Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	return m.SetBuffer(data)
}

// Object unmarshals the payload window. hint is handed to the marshaller as
// the decode target.
func (m *BytesMessage) Object(hint any) (any, error) {
	if m.buf == nil {
		return nil, nil
	}
	v, err := m.objectMarshaller().Unmarshal(m.Window(), hint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	return v, nil
}

// Copy implements Message. The payload window is shared with m.
func (m *BytesMessage) Copy(copyPayload, copyHeaders bool) Message {
	c := &BytesMessage{marshaller: m.marshaller}
	m.CopyTo(&c.Envelope, copyHeaders)
	if copyPayload && m.buf != nil {
		c.buf, c.offset, c.length = m.buf, m.offset, m.length
	}
	return c
}

// CopyFiltered implements Message.
func (m *BytesMessage) CopyFiltered(copyPayload bool, startingID int16, copyOnly ...int16) Message {
	c := m.Copy(copyPayload, false).(*BytesMessage)
	m.CopyFilteredTo(&c.Envelope, startingID, copyOnly...)
	return c
}

// MakeReply implements Message.
func (m *BytesMessage) MakeReply() Message {
	r := &BytesMessage{marshaller: m.marshaller}
	r.dest = m.src
	if m.dest != nil {
		r.src = m.dest
	}
	return r
}

// String implements Message.
func (m *BytesMessage) String() string {
	return m.describe(m.length)
}

// PayloadFlags implements Message.
func (m *BytesMessage) PayloadFlags() byte {
	if m.buf != nil {
		return BufSet
	}
	return 0
}

// WritePayload implements Message.
func (m *BytesMessage) WritePayload(e *protocol.Encoder, _ *Codec) error {
	if m.buf == nil {
		return nil
	}
	e.WriteInt32(int32(m.length))
	e.WriteBytes(m.buf[m.offset : m.offset+m.length])
	return nil
}

// ReadPayload implements Message. The payload is copied out of the decoder.
func (m *BytesMessage) ReadPayload(d *protocol.Decoder, _ *Codec, leading byte) error {
	if leading&BufSet == 0 {
		m.buf, m.offset, m.length = nil, 0, 0
		return nil
	}
	n, err := readLength(d)
	if err != nil {
		return err
	}
	b, err := d.ReadCopy(n)
	if err != nil {
		return err
	}
	m.buf, m.offset, m.length = b, 0, n
	return nil
}

// PayloadSize implements Message.
func (m *BytesMessage) PayloadSize(_ *Codec) (int, error) {
	if m.buf == nil {
		return 0, nil
	}
	return 4 + m.length, nil
}

// readLength reads a non-negative int32 payload length.
func readLength(d *protocol.Decoder) (int, error) {
	n, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	return int(n), nil
}
