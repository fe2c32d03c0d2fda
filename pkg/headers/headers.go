// Package headers provides general purpose message headers.
//
// Protocol layers normally define their own header types. The ones here carry
// free-form text and a sequence number, and are what the CLI and the
// inspection service use to attach metadata without a protocol stack.
package headers

import (
	"strconv"

	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// Magic ids of the built-in headers.
const (
	MagicText uint16 = 0x0101
	MagicSeq  uint16 = 0x0102
)

// Text is a header holding a UTF-8 string.
type Text struct {
	Value string
}

// NewText returns a Text header.
func NewText(v string) *Text { return &Text{Value: v} }

func (h *Text) MagicID() uint16 { return MagicText }
func (h *Text) WireSize() int   { return protocol.StringLen(h.Value) }
func (h *Text) String() string  { return h.Value }

func (h *Text) MarshalWire(e *protocol.Encoder) error {
	e.WriteString(h.Value)
	return nil
}

func (h *Text) UnmarshalWire(d *protocol.Decoder) error {
	v, err := d.ReadString()
	if err != nil {
		return err
	}
	h.Value = v
	return nil
}

// Seq is a header holding a sequence number.
type Seq struct {
	N uint64
}

// NewSeq returns a Seq header.
func NewSeq(n uint64) *Seq { return &Seq{N: n} }

func (h *Seq) MagicID() uint16 { return MagicSeq }
func (h *Seq) WireSize() int   { return 8 }
func (h *Seq) String() string  { return "seq=" + strconv.FormatUint(h.N, 10) }

func (h *Seq) MarshalWire(e *protocol.Encoder) error {
	e.WriteUint64(h.N)
	return nil
}

func (h *Seq) UnmarshalWire(d *protocol.Decoder) error {
	n, err := d.ReadUint64()
	if err != nil {
		return err
	}
	h.N = n
	return nil
}

// Register adds the built-in headers to reg.
func Register(reg *message.Registry) error {
	if err := reg.RegisterStreamable(MagicText, func() message.Streamable { return new(Text) }); err != nil {
		return err
	}
	return reg.RegisterStreamable(MagicSeq, func() message.Streamable { return new(Seq) })
}

// NewRegistry returns a registry with the built-in headers registered.
func NewRegistry() *message.Registry {
	reg := message.NewRegistry()
	// Registration into a fresh registry cannot collide.
	_ = Register(reg)
	return reg
}
