package message

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/vango-dev/groupwire/pkg/address"
)

// Envelope holds the state every message variant shares: addresses, flags
// and headers. Variants embed it by value; an Envelope must not be copied
// after first use.
type Envelope struct {
	dest      address.Address
	src       address.Address
	flags     atomic.Uint32
	transient atomic.Uint32
	headers   Headers
}

// Dest returns the destination. Nil means every member of the group.
func (m *Envelope) Dest() address.Address { return m.dest }

// SetDest sets the destination.
func (m *Envelope) SetDest(a address.Address) { m.dest = a }

// Src returns the sender, or nil if it has not been stamped yet.
func (m *Envelope) Src() address.Address { return m.src }

// SetSrc sets the sender.
func (m *Envelope) SetSrc(a address.Address) { m.src = a }

// Flags returns the persistent flags.
func (m *Envelope) Flags() Flag { return Flag(m.flags.Load()) }

// SetFlag sets the given flags, leaving others unchanged.
func (m *Envelope) SetFlag(flags ...Flag) {
	m.flags.Or(flagMask(flags))
}

// ClearFlag clears the given flags, leaving others unchanged.
func (m *Envelope) ClearFlag(flags ...Flag) {
	m.flags.And(^flagMask(flags))
}

// IsFlagSet reports whether every bit of f is set.
func (m *Envelope) IsFlagSet(f Flag) bool {
	return f != 0 && Flag(m.flags.Load())&f == f
}

// SetFlagBits replaces all persistent flags with bits.
func (m *Envelope) SetFlagBits(bits uint16) {
	m.flags.Store(uint32(bits))
}

// TransientFlags returns the process-local flags.
func (m *Envelope) TransientFlags() TransientFlag {
	return TransientFlag(m.transient.Load())
}

// SetTransientFlag sets the given transient flags.
func (m *Envelope) SetTransientFlag(flags ...TransientFlag) {
	m.transient.Or(transientMask(flags))
}

// ClearTransientFlag clears the given transient flags.
func (m *Envelope) ClearTransientFlag(flags ...TransientFlag) {
	m.transient.And(^transientMask(flags))
}

// IsTransientFlagSet reports whether every bit of f is set.
func (m *Envelope) IsTransientFlagSet(f TransientFlag) bool {
	return f != 0 && TransientFlag(m.transient.Load())&f == f
}

// SetTransientFlagIfAbsent sets f and reports whether this call set it.
// Exactly one of any number of concurrent callers observes true.
func (m *Envelope) SetTransientFlagIfAbsent(f TransientFlag) bool {
	old := m.transient.Or(uint32(f))
	return TransientFlag(old)&f == 0
}

// SetTransientFlagBits replaces all transient flags with bits.
func (m *Envelope) SetTransientFlagBits(bits uint8) {
	m.transient.Store(uint32(bits))
}

// Headers returns the header collection.
func (m *Envelope) Headers() *Headers { return &m.headers }

// PutHeader adds or replaces the header for protocol id.
func (m *Envelope) PutHeader(id int16, h Header) error {
	return m.headers.Put(id, h)
}

// GetHeader returns the header for protocol id, or nil if absent.
func (m *Envelope) GetHeader(id int16) (Header, error) {
	return m.headers.Get(id)
}

// GetHeaderAny returns the first header whose id is one of ids.
func (m *Envelope) GetHeaderAny(ids ...int16) (Header, error) {
	return m.headers.GetAny(ids...)
}

// RemoveHeader removes the header for protocol id.
func (m *Envelope) RemoveHeader(id int16) (bool, error) {
	return m.headers.Remove(id)
}

// NumHeaders returns the number of headers.
func (m *Envelope) NumHeaders() int {
	return m.headers.Len()
}

// CopyTo copies addresses and flags into dst. Headers are copied when
// copyHeaders is true; the copy shares header values with m.
//
// CopyTo does not synchronize with concurrent header puts on m: the copy
// reflects whatever snapshot it observes.
func (m *Envelope) CopyTo(dst *Envelope, copyHeaders bool) {
	m.copyTo(dst, copyHeaders, nil)
}

// CopyFilteredTo is CopyTo keeping only headers whose id is >= startingID or
// listed in copyOnly.
func (m *Envelope) CopyFilteredTo(dst *Envelope, startingID int16, copyOnly ...int16) {
	m.copyTo(dst, true, filterIDs(startingID, copyOnly))
}

func (m *Envelope) copyTo(dst *Envelope, copyHeaders bool, keep func(int16) bool) {
	dst.dest = m.dest
	dst.src = m.src
	dst.flags.Store(m.flags.Load())
	dst.transient.Store(m.transient.Load())
	if copyHeaders {
		dst.headers.copyFrom(&m.headers, keep)
	}
}

// filterIDs returns a predicate keeping ids >= startingID or listed in only.
func filterIDs(startingID int16, only []int16) func(int16) bool {
	return func(id int16) bool {
		if id >= startingID {
			return true
		}
		for _, o := range only {
			if o == id {
				return true
			}
		}
		return false
	}
}

// describe renders the envelope part of String for a payload of size bytes.
func (m *Envelope) describe(size int) string {
	var sb strings.Builder
	sb.WriteString("[dst: ")
	sb.WriteString(addrString(m.dest))
	sb.WriteString(", src: ")
	sb.WriteString(addrString(m.src))
	if n := m.NumHeaders(); n > 0 {
		fmt.Fprintf(&sb, " (%d headers)", n)
	}
	fmt.Fprintf(&sb, ", size=%d bytes", size)
	if f := m.Flags(); f != 0 {
		sb.WriteString(", flags=")
		sb.WriteString(f.String())
	}
	if tf := m.TransientFlags(); tf != 0 {
		sb.WriteString(", transient_flags=")
		sb.WriteString(tf.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func addrString(a address.Address) string {
	if a == nil {
		return "<null>"
	}
	return a.String()
}
