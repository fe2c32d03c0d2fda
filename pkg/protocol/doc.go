// Package protocol implements the byte-level primitives of the groupwire
// message format.
//
// The message codec in pkg/message is written entirely in terms of the
// Encoder and Decoder defined here. Fixed-width integers are big-endian.
// Lengths that can be absent are signed 32-bit values with -1 meaning "no
// value"; free-form strings inside headers use a uvarint length prefix.
//
// # Encoder
//
// Encoder appends into a growable buffer and never fails. Callers that know
// the encoded size of a message (message.Codec.Size) preallocate with
// NewEncoderWithCap.
//
// # Decoder
//
// Decoder reads from a byte slice and tracks its position. Every read that
// runs past the end returns io.ErrUnexpectedEOF. Copies made on behalf of
// length-prefixed fields are bounded by an allocation limit, so a hostile
// length prefix cannot force a large allocation.
//
// # Frames
//
// A Frame carries one typed message on a stream:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Msg Type    │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// The payload is the full encoding of the message. Frames are used by the
// inspection service and the CLI when messages are read from or written to
// files and sockets.
package protocol
