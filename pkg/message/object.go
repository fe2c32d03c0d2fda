package message

import (
	"fmt"
	"sync/atomic"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// ObjectMessage carries an arbitrary value. Values implementing Streamable
// write themselves; anything else goes through a marshal.Marshaller the first
// time its bytes or length are needed. The serialized form is kept until the
// value is replaced.
type ObjectMessage struct {
	Envelope

	obj        any
	memo       atomic.Pointer[[]byte]
	marshaller marshal.Marshaller
}

// NewObjectMessage returns a message for dest carrying v.
func NewObjectMessage(dest address.Address, v any) *ObjectMessage {
	m := &ObjectMessage{}
	m.dest = dest
	m.obj = v
	return m
}

// Type implements Message.
func (m *ObjectMessage) Type() Type { return TypeObject }

// SetMarshaller sets the marshaller for non-Streamable values and clears any
// serialized form made with the previous one. The default is gob.
func (m *ObjectMessage) SetMarshaller(mr marshal.Marshaller) {
	m.marshaller = mr
	m.memo.Store(nil)
}

func (m *ObjectMessage) objectMarshaller() marshal.Marshaller {
	if m.marshaller == nil {
		return marshal.Gob{}
	}
	return m.marshaller
}

// SetObject replaces the value and drops its serialized form. Nothing is
// marshalled until it is needed. A nil v leaves the message unchanged.
func (m *ObjectMessage) SetObject(v any) error {
	if v == nil {
		return nil
	}
	m.obj = v
	m.memo.Store(nil)
	return nil
}

// Object returns the value. The hint is not used.
func (m *ObjectMessage) Object(_ any) (any, error) { return m.obj, nil }

// HasPayload implements Message.
func (m *ObjectMessage) HasPayload() bool { return m.obj != nil }

// Offset implements Message. It is always 0.
func (m *ObjectMessage) Offset() int { return 0 }

// SetBuffer is not supported by the object variant.
func (m *ObjectMessage) SetBuffer([]byte) error { return ErrUnsupported }

// SetBufferWindow is not supported by the object variant.
func (m *ObjectMessage) SetBufferWindow([]byte, int, int) error { return ErrUnsupported }

// Length returns 0 without a value, WireSize for a Streamable value, and the
// serialized length otherwise.
func (m *ObjectMessage) Length() (int, error) {
	switch v := m.obj.(type) {
	case nil:
		return 0, nil
	case Streamable:
		return v.WireSize(), nil
	}
	b, err := m.serialized()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Buffer returns the serialized form of the value, computing it on first use.
// Repeated calls return the same slice until SetObject is called.
func (m *ObjectMessage) Buffer() ([]byte, error) {
	if m.obj == nil {
		return nil, nil
	}
	return m.serialized()
}

// RawBuffer is the same as Buffer.
func (m *ObjectMessage) RawBuffer() ([]byte, error) { return m.Buffer() }

// serialized returns the memoized encoding of the value. Concurrent first
// callers may each marshal, but only the first result is published and all
// of them return it. Failures are not cached.
func (m *ObjectMessage) serialized() ([]byte, error) {
	if p := m.memo.Load(); p != nil {
		return *p, nil
	}
	if m.obj == nil {
		return nil, nil
	}
	data, err := m.marshalObject()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	if data == nil {
		data = []byte{}
	}
	if m.memo.CompareAndSwap(nil, &data) {
		return data, nil
	}
	return *m.memo.Load(), nil
}

// marshalObject encodes a Streamable value as its magic id and body, and
// anything else with the marshaller.
func (m *ObjectMessage) marshalObject() ([]byte, error) {
	s, ok := m.obj.(Streamable)
	if !ok {
		return m.objectMarshaller().Marshal(m.obj)
	}
	e := protocol.NewEncoderWithCap(2 + s.WireSize())
	e.WriteUint16(s.MagicID())
	if err := s.MarshalWire(e); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Copy implements Message. The value is shared; the copy serializes it
// afresh when needed.
func (m *ObjectMessage) Copy(copyPayload, copyHeaders bool) Message {
	c := &ObjectMessage{marshaller: m.marshaller}
	m.CopyTo(&c.Envelope, copyHeaders)
	if copyPayload && m.obj != nil {
		c.obj = m.obj
	}
	return c
}

// CopyFiltered implements Message.
func (m *ObjectMessage) CopyFiltered(copyPayload bool, startingID int16, copyOnly ...int16) Message {
	c := m.Copy(copyPayload, false).(*ObjectMessage)
	m.CopyFilteredTo(&c.Envelope, startingID, copyOnly...)
	return c
}

// MakeReply implements Message.
func (m *ObjectMessage) MakeReply() Message {
	r := &ObjectMessage{marshaller: m.marshaller}
	r.dest = m.src
	if m.dest != nil {
		r.src = m.dest
	}
	return r
}

// String implements Message. It never serializes the value; a value that
// has not been serialized yet reports size 0.
func (m *ObjectMessage) String() string {
	size := 0
	if p := m.memo.Load(); p != nil {
		size = len(*p)
	}
	n := size
	if s, ok := m.obj.(Streamable); ok {
		n = s.WireSize()
	}
	return fmt.Sprintf("%s, serialized size: %d", m.describe(n), size)
}

// PayloadFlags implements Message. The object variant signals presence in
// its own payload section.
func (m *ObjectMessage) PayloadFlags() byte { return 0 }

// WritePayload implements Message.
func (m *ObjectMessage) WritePayload(e *protocol.Encoder, c *Codec) error {
	if s, ok := m.obj.(Streamable); ok {
		e.WriteBool(true)
		return c.EncodeStreamable(e, s)
	}
	e.WriteBool(false)
	if m.obj == nil {
		e.WriteInt32(-1)
		return nil
	}
	data, err := m.serialized()
	if err != nil {
		return err
	}
	e.WriteSizedBytes(data)
	return nil
}

// ReadPayload implements Message. A marshalled value is decoded with the
// message's marshaller, or the codec's when none was set.
func (m *ObjectMessage) ReadPayload(d *protocol.Decoder, c *Codec, _ byte) error {
	m.obj = nil
	m.memo.Store(nil)

	streamable, err := d.ReadBool()
	if err != nil {
		return err
	}
	if streamable {
		s, err := c.DecodeStreamable(d)
		if err != nil {
			return err
		}
		m.obj = s
		return nil
	}

	n, err := d.ReadInt32()
	if err != nil {
		return err
	}
	if n == -1 {
		return nil
	}
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	data, err := d.ReadCopy(int(n))
	if err != nil {
		return err
	}

	if m.marshaller == nil {
		m.marshaller = c.Marshaller()
	}
	v, err := m.objectMarshaller().Unmarshal(data, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMarshal, err)
	}
	m.obj = v
	m.memo.Store(&data)
	return nil
}

// PayloadSize implements Message.
func (m *ObjectMessage) PayloadSize(c *Codec) (int, error) {
	if s, ok := m.obj.(Streamable); ok {
		return 1 + c.StreamableSize(s), nil
	}
	if m.obj == nil {
		return 1 + 4, nil
	}
	data, err := m.serialized()
	if err != nil {
		return 0, err
	}
	return 1 + 4 + len(data), nil
}
