package message

import (
	"fmt"
	"strings"
)

// Flag is a persistent message flag. Flags travel on the wire.
type Flag uint16

const (
	OOB           Flag = 1 << 0  // Out of band: may be delivered out of order
	DontBundle    Flag = 1 << 1  // Send immediately instead of batching
	NoFC          Flag = 1 << 2  // Bypass flow control
	NoReliability Flag = 1 << 4  // No retransmission or ordering
	NoTotalOrder  Flag = 1 << 5  // Bypass total order
	NoRelay       Flag = 1 << 6  // Do not relay across sites
	RSVP          Flag = 1 << 7  // Block until all recipients acknowledge
	RSVPNB        Flag = 1 << 8  // As RSVP but non-blocking
	Internal      Flag = 1 << 9  // Generated by the stack itself
	SkipBarrier   Flag = 1 << 10 // Pass through a closed barrier
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{OOB, "OOB"},
	{DontBundle, "DONT_BUNDLE"},
	{NoFC, "NO_FC"},
	{NoReliability, "NO_RELIABILITY"},
	{NoTotalOrder, "NO_TOTAL_ORDER"},
	{NoRelay, "NO_RELAY"},
	{RSVP, "RSVP"},
	{RSVPNB, "RSVP_NB"},
	{Internal, "INTERNAL"},
	{SkipBarrier, "SKIP_BARRIER"},
}

// String renders the set flags as a "|" separated list, e.g. "OOB|NO_FC".
// Bits without a name are ignored.
func (f Flag) String() string {
	var sb strings.Builder
	for _, n := range flagNames {
		if f&n.flag != 0 {
			if sb.Len() > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(n.name)
		}
	}
	return sb.String()
}

// ParseFlag parses a single flag name as produced by String. Matching is
// case-insensitive and accepts '-' in place of '_'.
func ParseFlag(s string) (Flag, error) {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
	for _, n := range flagNames {
		if n.name == key {
			return n.flag, nil
		}
	}
	return 0, fmt.Errorf("message: unknown flag %q", s)
}

// TransientFlag is a process-local flag. Transient flags are never encoded.
type TransientFlag uint8

const (
	OOBDelivered TransientFlag = 1 << 0 // OOB message already handed to the application
	DontLoopback TransientFlag = 1 << 1 // Do not deliver a multicast to its sender
)

// String renders the set transient flags as a "|" separated list.
func (f TransientFlag) String() string {
	var parts []string
	if f&OOBDelivered != 0 {
		parts = append(parts, "OOB_DELIVERED")
	}
	if f&DontLoopback != 0 {
		parts = append(parts, "DONT_LOOPBACK")
	}
	return strings.Join(parts, "|")
}

func flagMask(flags []Flag) uint32 {
	var m uint32
	for _, f := range flags {
		m |= uint32(f)
	}
	return m
}

func transientMask(flags []TransientFlag) uint32 {
	var m uint32
	for _, f := range flags {
		m |= uint32(f)
	}
	return m
}
