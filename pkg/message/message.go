package message

import (
	"fmt"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// Type discriminates message variants on the wire.
type Type uint8

const (
	TypeBytes  Type = 1
	TypeObject Type = 2
)

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeBytes:
		return "bytes"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Leading byte bits.
const (
	destSet byte = 1 << 0
	srcSet  byte = 1 << 1

	// BufSet marks a present buffer in the leading byte. Variants that own
	// a buffer report it from PayloadFlags.
	BufSet byte = 1 << 2
)

// Message is the unit of data exchanged between cluster members.
//
// The envelope methods are provided by embedding Envelope. The payload hooks
// at the end are called by Codec and let each variant control its own part
// of the wire format.
type Message interface {
	Type() Type

	Dest() address.Address
	SetDest(address.Address)
	Src() address.Address
	SetSrc(address.Address)

	Flags() Flag
	SetFlag(flags ...Flag)
	ClearFlag(flags ...Flag)
	IsFlagSet(f Flag) bool
	SetFlagBits(bits uint16)
	TransientFlags() TransientFlag
	SetTransientFlag(flags ...TransientFlag)
	ClearTransientFlag(flags ...TransientFlag)
	IsTransientFlagSet(f TransientFlag) bool
	SetTransientFlagIfAbsent(f TransientFlag) bool
	SetTransientFlagBits(bits uint8)

	Headers() *Headers
	PutHeader(id int16, h Header) error
	GetHeader(id int16) (Header, error)
	GetHeaderAny(ids ...int16) (Header, error)
	RemoveHeader(id int16) (bool, error)
	NumHeaders() int

	// HasPayload reports whether the message carries a payload.
	HasPayload() bool

	// Length returns the payload size in bytes.
	Length() (int, error)

	// Buffer returns the payload bytes; see the variant for aliasing rules.
	Buffer() ([]byte, error)

	// RawBuffer returns the backing payload bytes, ignoring any window.
	RawBuffer() ([]byte, error)

	// Offset returns the start of the payload window in RawBuffer.
	Offset() int

	SetBuffer(b []byte) error
	SetBufferWindow(b []byte, offset, length int) error
	SetObject(v any) error
	Object(hint any) (any, error)

	// Copy returns an independent envelope. With copyPayload the payload is
	// shared, not cloned; with copyHeaders the header values are shared.
	Copy(copyPayload, copyHeaders bool) Message

	// CopyFiltered is Copy with headers, keeping only those whose id is
	// >= startingID or listed in copyOnly.
	CopyFiltered(copyPayload bool, startingID int16, copyOnly ...int16) Message

	// MakeReply returns an empty message of the same variant addressed to
	// the sender of this one.
	MakeReply() Message

	String() string

	// PayloadFlags returns the leading byte bits the payload contributes.
	PayloadFlags() byte

	// WritePayload writes the payload section.
	WritePayload(e *protocol.Encoder, c *Codec) error

	// ReadPayload reads the payload section given the decoded leading byte.
	ReadPayload(d *protocol.Decoder, c *Codec, leading byte) error

	// PayloadSize returns the encoded size of the payload section.
	PayloadSize(c *Codec) (int, error)
}
