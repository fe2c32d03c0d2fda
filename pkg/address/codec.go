package address

import (
	"fmt"
	"net/netip"

	"github.com/vango-dev/groupwire/pkg/protocol"
)

// Codec writes and reads addresses inside a message envelope.
type Codec interface {
	Encode(e *protocol.Encoder, a Address) error
	Decode(d *protocol.Decoder) (Address, error)
	Size(a Address) int
}

// DefaultCodec encodes UUID and IP addresses.
//
// Wire format:
//
//	kind (1 byte)
//	  uuid: 16 raw bytes
//	  ip:   length (1 byte, 4 or 16) + raw address + port (uint16)
type DefaultCodec struct{}

// Encode implements Codec.
func (DefaultCodec) Encode(e *protocol.Encoder, a Address) error {
	switch v := a.(type) {
	case nil:
		return ErrNilAddress
	case UUID:
		e.WriteByte(byte(KindUUID))
		e.WriteBytes(v.id[:])
	case IP:
		if !v.ap.Addr().IsValid() {
			return fmt.Errorf("%w: 0", ErrInvalidIPLen)
		}
		e.WriteByte(byte(KindIP))
		raw := v.ap.Addr().AsSlice()
		e.WriteByte(byte(len(raw)))
		e.WriteBytes(raw)
		e.WriteUint16(v.ap.Port())
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, a)
	}
	return nil
}

// Decode implements Codec.
func (DefaultCodec) Decode(d *protocol.Decoder) (Address, error) {
	kind, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch Kind(kind) {
	case KindUUID:
		raw, err := d.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		var u UUID
		copy(u.id[:], raw)
		return u, nil

	case KindIP:
		n, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		if n != 4 && n != 16 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidIPLen, n)
		}
		raw, err := d.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		port, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		addr, _ := netip.AddrFromSlice(raw)
		return NewIP(netip.AddrPortFrom(addr, port)), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

// Size implements Codec. Unknown address types report 0.
func (DefaultCodec) Size(a Address) int {
	switch v := a.(type) {
	case UUID:
		return 1 + 16
	case IP:
		if v.ap.Addr().Is4() {
			return 1 + 1 + 4 + 2
		}
		return 1 + 1 + 16 + 2
	default:
		return 0
	}
}
