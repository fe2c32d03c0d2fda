// Package message implements the message envelope exchanged between cluster
// members and its binary wire codec.
//
// A message carries an optional destination (nil means the whole group), an
// optional source, a set of per-protocol headers keyed by small integer ids,
// persistent and transient flags, and a payload. Two payload variants ship
// with the package:
//
//   - BytesMessage references a window of a caller-owned byte slice without
//     copying it.
//   - ObjectMessage holds an arbitrary value and serializes it lazily, at most
//     once, the first time its length or bytes are needed.
//
// Further variants register a constructor with a Registry under their own
// Type and embed Envelope for the shared state.
//
// # Wire Format
//
// All integers are big-endian:
//
//	leading   byte    bit 0: dest present, bit 1: src present, bit 2: buffer present
//	flags     uint16
//	dest      address (if bit 0)
//	src       address (if bit 1)
//	count     uint16
//	count x   { protocol id int16, magic id uint16, header body }
//	payload   variant specific
//
// The bytes variant writes an int32 length and the windowed bytes when bit 2
// is set. The object variant writes a bool: true is followed by the value's
// magic id and its own encoding, false by an int32 length (-1 for no value)
// and the marshalled bytes.
//
// # Concurrency
//
// Header puts serialize on a per-message mutex while readers iterate a
// snapshot without locking. Flag words are updated with atomic OR/AND. All
// other fields follow the usual rule: one goroutine mutates, then hands the
// message off.
//
// # Usage
//
//	reg := message.NewRegistry()
//	codec := message.NewCodec(reg)
//
//	msg := message.NewBytesMessage(nil, []byte("hello"))
//	msg.SetSrc(self)
//	msg.SetFlag(message.OOB)
//	_ = msg.PutHeader(5, myHeader)
//
//	data, err := codec.Marshal(msg)
package message
