package message

import (
	"errors"
	"sync/atomic"

	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

const (
	magicTestHeader uint16 = 900
	magicPoint      uint16 = 901
)

// testHeader is a string-valued header.
type testHeader struct {
	val string
}

func (h *testHeader) MagicID() uint16 { return magicTestHeader }
func (h *testHeader) WireSize() int   { return protocol.StringLen(h.val) }
func (h *testHeader) String() string  { return h.val }

func (h *testHeader) MarshalWire(e *protocol.Encoder) error {
	e.WriteString(h.val)
	return nil
}

func (h *testHeader) UnmarshalWire(d *protocol.Decoder) error {
	v, err := d.ReadString()
	h.val = v
	return err
}

// point is a self-describing payload.
type point struct {
	X, Y int32
}

func (p *point) MagicID() uint16 { return magicPoint }
func (p *point) WireSize() int   { return 8 }

func (p *point) MarshalWire(e *protocol.Encoder) error {
	e.WriteInt32(p.X)
	e.WriteInt32(p.Y)
	return nil
}

func (p *point) UnmarshalWire(d *protocol.Decoder) error {
	var err error
	if p.X, err = d.ReadInt32(); err != nil {
		return err
	}
	p.Y, err = d.ReadInt32()
	return err
}

// countingMarshaller counts Marshal calls and can be told to fail.
type countingMarshaller struct {
	inner marshal.Marshaller
	calls atomic.Int32
	fail  bool
}

var errBoom = errors.New("boom")

func (c *countingMarshaller) Marshal(v any) ([]byte, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, errBoom
	}
	return c.inner.Marshal(v)
}

func (c *countingMarshaller) Unmarshal(data []byte, hint any) (any, error) {
	return c.inner.Unmarshal(data, hint)
}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	_ = reg.RegisterStreamable(magicTestHeader, func() Streamable { return new(testHeader) })
	_ = reg.RegisterStreamable(magicPoint, func() Streamable { return new(point) })
	return reg
}

func hdr(s string) *testHeader { return &testHeader{val: s} }
