package message

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// NoPayload is returned by DecodeSkipPayload when the message has no buffer.
const NoPayload = -1

// Observer receives codec events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// MessageEncoded is called after a successful encode of size bytes.
	MessageEncoded(t Type, size int, noAddrs bool)

	// MessageDecoded is called after a successful decode of size bytes.
	// skipped is true for DecodeSkipPayload.
	MessageDecoded(t Type, size int, skipped bool)

	// CodecError is called when op ("encode" or "decode") fails.
	CodecError(op string, err error)
}

type nopObserver struct{}

func (nopObserver) MessageEncoded(Type, int, bool) {}
func (nopObserver) MessageDecoded(Type, int, bool) {}
func (nopObserver) CodecError(string, error)       {}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithAddressCodec sets the codec used for dest and src.
// Default: address.DefaultCodec.
func WithAddressCodec(ac address.Codec) CodecOption {
	return func(c *Codec) {
		if ac != nil {
			c.addrs = ac
		}
	}
}

// WithMarshaller sets the marshaller adopted by decoded object messages that
// have none of their own. Default: gob.
func WithMarshaller(m marshal.Marshaller) CodecOption {
	return func(c *Codec) {
		if m != nil {
			c.marshaller = m
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) CodecOption {
	return func(c *Codec) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CodecOption {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLimits sets the decode limits. Zero fields keep their defaults.
func WithLimits(l protocol.Limits) CodecOption {
	return func(c *Codec) {
		c.limits = l.Normalize()
	}
}

// Codec encodes and decodes messages. It is stateless apart from its
// configuration and safe for concurrent use.
type Codec struct {
	reg        *Registry
	addrs      address.Codec
	marshaller marshal.Marshaller
	observer   Observer
	logger     *slog.Logger
	limits     protocol.Limits
}

// NewCodec returns a codec resolving wire ids through reg.
func NewCodec(reg *Registry, opts ...CodecOption) *Codec {
	if reg == nil {
		reg = NewRegistry()
	}
	c := &Codec{
		reg:        reg,
		addrs:      address.DefaultCodec{},
		marshaller: marshal.Gob{},
		observer:   nopObserver{},
		logger:     slog.Default(),
		limits:     protocol.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "message_codec")
	return c
}

// Registry returns the registry the codec resolves ids through.
func (c *Codec) Registry() *Registry { return c.reg }

// Marshaller returns the default object marshaller.
func (c *Codec) Marshaller() marshal.Marshaller { return c.marshaller }

// Limits returns the decode limits.
func (c *Codec) Limits() protocol.Limits { return c.limits }

// Encode writes m with its addresses. On failure nothing is left in e
// beyond what it held before the call.
func (c *Codec) Encode(e *protocol.Encoder, m Message) error {
	start := e.Len()
	leading := m.PayloadFlags()
	if m.Dest() != nil {
		leading |= destSet
	}
	if m.Src() != nil {
		leading |= srcSet
	}

	e.WriteByte(leading)
	e.WriteUint16(uint16(m.Flags()))

	if leading&destSet != 0 {
		if err := c.addrs.Encode(e, m.Dest()); err != nil {
			return c.abortEncode(e, start, err)
		}
	}
	if leading&srcSet != 0 {
		if err := c.addrs.Encode(e, m.Src()); err != nil {
			return c.abortEncode(e, start, err)
		}
	}
	if err := c.encodeBody(e, m, nil); err != nil {
		return c.abortEncode(e, start, err)
	}

	c.observer.MessageEncoded(m.Type(), e.Len()-start, false)
	return nil
}

// EncodeNoAddrs writes m without its destination. The source is written only
// when it is set and differs from ref, so a receiver that knows the sender
// can restore it with DecodeNoAddrs. Headers whose ids are in excluded are
// left out.
func (c *Codec) EncodeNoAddrs(e *protocol.Encoder, m Message, ref address.Address, excluded ...int16) error {
	start := e.Len()
	src := m.Src()
	writeSrc := src != nil && (ref == nil || !src.Equal(ref))

	leading := m.PayloadFlags()
	if writeSrc {
		leading |= srcSet
	}

	e.WriteByte(leading)
	e.WriteUint16(uint16(m.Flags()))

	if writeSrc {
		if err := c.addrs.Encode(e, src); err != nil {
			return c.abortEncode(e, start, err)
		}
	}
	if err := c.encodeBody(e, m, excluded); err != nil {
		return c.abortEncode(e, start, err)
	}

	c.observer.MessageEncoded(m.Type(), e.Len()-start, true)
	return nil
}

// encodeBody writes the header section and the payload.
func (c *Codec) encodeBody(e *protocol.Encoder, m Message, excluded []int16) error {
	var scratch [8]*headerEntry
	entries := m.Headers().appendEntries(scratch[:0], excluded)
	if len(entries) > protocol.MaxHeaderCount {
		return fmt.Errorf("%w: %d headers", ErrInvalidLength, len(entries))
	}

	e.WriteUint16(uint16(len(entries)))
	for _, entry := range entries {
		e.WriteInt16(entry.id)
		if err := c.EncodeStreamable(e, entry.hdr); err != nil {
			return err
		}
	}
	return m.WritePayload(e, c)
}

// Decode reads a message written by Encode or EncodeNoAddrs into m. On
// failure m is left in an unspecified state and should be discarded. The
// codec's payload limit is applied to d.
func (c *Codec) Decode(d *protocol.Decoder, m Message) error {
	start := d.Position()
	leading, err := c.decodeEnvelope(d, m)
	if err == nil {
		err = m.ReadPayload(d, c, leading)
	}
	if err != nil {
		return c.decodeFailed(d, err)
	}
	c.observer.MessageDecoded(m.Type(), d.Position()-start, false)
	return nil
}

// DecodeNoAddrs is Decode followed by setting the source to sender when the
// stream did not carry one.
func (c *Codec) DecodeNoAddrs(d *protocol.Decoder, m Message, sender address.Address) error {
	if err := c.Decode(d, m); err != nil {
		return err
	}
	if m.Src() == nil {
		m.SetSrc(sender)
	}
	return nil
}

// DecodeSkipPayload decodes everything up to the payload. If a buffer is
// present its length is recorded in m and the position of its first byte in
// d's buffer is returned; the bytes themselves are not read or copied, but
// they must all be present. Without a buffer it returns NoPayload.
func (c *Codec) DecodeSkipPayload(d *protocol.Decoder, m *BytesMessage) (int, error) {
	start := d.Position()
	leading, err := c.decodeEnvelope(d, m)
	if err != nil {
		return 0, c.decodeFailed(d, err)
	}

	m.buf, m.offset, m.length = nil, 0, 0
	if leading&BufSet == 0 {
		c.observer.MessageDecoded(m.Type(), d.Position()-start, true)
		return NoPayload, nil
	}

	n, err := readLength(d)
	if err != nil {
		return 0, c.decodeFailed(d, err)
	}
	if n > d.Remaining() {
		return 0, c.decodeFailed(d, io.ErrUnexpectedEOF)
	}
	m.length = n
	c.observer.MessageDecoded(m.Type(), d.Position()-start, true)
	return d.Position(), nil
}

// decodeEnvelope reads everything before the payload and returns the
// leading byte.
func (c *Codec) decodeEnvelope(d *protocol.Decoder, m Message) (byte, error) {
	d.SetMaxAllocation(c.limits.MaxPayload)

	leading, err := d.ReadByte()
	if err != nil {
		return 0, err
	}
	flags, err := d.ReadUint16()
	if err != nil {
		return 0, err
	}
	m.SetFlagBits(flags)

	var dest, src address.Address
	if leading&destSet != 0 {
		if dest, err = c.addrs.Decode(d); err != nil {
			return 0, err
		}
	}
	if leading&srcSet != 0 {
		if src, err = c.addrs.Decode(d); err != nil {
			return 0, err
		}
	}
	m.SetDest(dest)
	m.SetSrc(src)

	if err := c.decodeHeaders(d, m.Headers()); err != nil {
		return 0, err
	}
	return leading, nil
}

// decodeHeaders reads the header section. Duplicate ids keep the last value.
func (c *Codec) decodeHeaders(d *protocol.Decoder, hs *Headers) error {
	// Each entry takes at least its two ids.
	n, err := d.ReadCount(c.limits.MaxHeaders, 4)
	if err != nil {
		return err
	}
	hs.reset(n)

	for i := 0; i < n; i++ {
		id, err := d.ReadInt16()
		if err != nil {
			return err
		}
		if err := validID(id); err != nil {
			return err
		}
		h, err := c.DecodeStreamable(d)
		if err != nil {
			return err
		}
		if err := hs.Put(id, h); err != nil {
			return err
		}
	}
	return nil
}

// EncodeStreamable writes s as its magic id followed by its body.
func (c *Codec) EncodeStreamable(e *protocol.Encoder, s Streamable) error {
	e.WriteUint16(s.MagicID())
	return s.MarshalWire(e)
}

// DecodeStreamable reads a magic id and the body of the value it names.
func (c *Codec) DecodeStreamable(d *protocol.Decoder) (Streamable, error) {
	pos := d.Position()
	magic, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	s, err := c.reg.NewStreamable(magic)
	if err != nil {
		c.logger.Debug("unknown magic id", "magic", magic, "pos", pos)
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %d has a nil constructor result", ErrUnknownMagic, magic)
	}
	if err := s.UnmarshalWire(d); err != nil {
		return nil, err
	}
	return s, nil
}

// StreamableSize returns the encoded size of s including its magic id.
func (c *Codec) StreamableSize(s Streamable) int {
	return 2 + s.WireSize()
}

// Size returns the number of bytes Encode writes for m.
func (c *Codec) Size(m Message) (int64, error) {
	size := int64(1 + 2) // leading, flags
	if dest := m.Dest(); dest != nil {
		size += int64(c.addrs.Size(dest))
	}
	if src := m.Src(); src != nil {
		size += int64(c.addrs.Size(src))
	}
	size += 2 + int64(m.Headers().WireSize())

	payload, err := m.PayloadSize(c)
	if err != nil {
		return 0, err
	}
	return size + int64(payload), nil
}

// Marshal returns the message type followed by the full encoding of m.
func (c *Codec) Marshal(m Message) ([]byte, error) {
	size, err := c.Size(m)
	if err != nil {
		return nil, c.encodeFailed(err)
	}
	e := protocol.NewEncoderWithCap(int(size) + 1)
	e.WriteByte(byte(m.Type()))
	if err := c.Encode(e, m); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Unmarshal decodes data written by Marshal, creating the message through
// the registry.
func (c *Codec) Unmarshal(data []byte) (Message, error) {
	d := protocol.NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, c.decodeFailed(d, err)
	}
	m, err := c.newMessage(Type(t), d)
	if err != nil {
		return nil, err
	}
	if err := c.Decode(d, m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteMessage writes m to w as a single frame.
func (c *Codec) WriteMessage(w io.Writer, m Message) error {
	size, err := c.Size(m)
	if err != nil {
		return c.encodeFailed(err)
	}
	e := protocol.NewEncoderWithCap(int(size))
	if err := c.Encode(e, m); err != nil {
		return err
	}
	return protocol.WriteFrame(w, protocol.NewFrame(uint8(m.Type()), e.Bytes()))
}

// ReadMessage reads one frame from r and decodes the message it carries.
// It returns io.EOF when r is exhausted between frames.
func (c *Codec) ReadMessage(r io.Reader) (Message, error) {
	f, err := protocol.ReadFrame(r)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.observer.CodecError("decode", err)
		}
		return nil, err
	}
	return c.DecodeFrame(f)
}

// DecodeFrame decodes the message carried by f.
func (c *Codec) DecodeFrame(f *protocol.Frame) (Message, error) {
	d := protocol.NewDecoder(f.Payload)
	m, err := c.newMessage(Type(f.Type), d)
	if err != nil {
		return nil, err
	}
	if err := c.Decode(d, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Codec) newMessage(t Type, d *protocol.Decoder) (Message, error) {
	m, err := c.reg.NewMessage(t)
	if err != nil {
		c.logger.Debug("unknown message type", "type", uint8(t))
		return nil, c.decodeFailed(d, err)
	}
	return m, nil
}

// abortEncode drops the partial message written since start.
func (c *Codec) abortEncode(e *protocol.Encoder, start int, err error) error {
	e.Truncate(start)
	return c.encodeFailed(err)
}

func (c *Codec) encodeFailed(err error) error {
	c.observer.CodecError("encode", err)
	return err
}

func (c *Codec) decodeFailed(d *protocol.Decoder, err error) error {
	c.observer.CodecError("decode", err)
	c.logger.Debug("decode failed", "pos", d.Position(), "error", err)
	return err
}
