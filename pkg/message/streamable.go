package message

import "github.com/vango-dev/groupwire/pkg/protocol"

// Streamable is a value that knows how to write itself. Its magic id
// identifies the concrete type on the wire and must be registered with the
// Registry used for decoding.
type Streamable interface {
	// MagicID returns the registered wire id of the concrete type.
	MagicID() uint16

	// WireSize returns the exact number of bytes MarshalWire writes.
	WireSize() int

	// MarshalWire writes the value's body.
	MarshalWire(e *protocol.Encoder) error

	// UnmarshalWire reads the value's body into the receiver.
	UnmarshalWire(d *protocol.Decoder) error
}

// Header is per-protocol metadata attached to a message. Header values are
// shared by reference between copies of a message and must not be mutated
// after they have been put.
type Header interface {
	Streamable
}
