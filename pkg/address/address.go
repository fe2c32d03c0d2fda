// Package address defines the cluster member address consumed by the message
// codec, together with a default binary codec.
//
// The message layer only ever compares addresses for equality and hands them
// to a Codec; how they route is outside its concern. Two concrete kinds ship
// here: a random UUID (the usual logical member identity) and an IP:port pair.
package address

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/google/uuid"
)

// Kind tags the concrete address type on the wire.
type Kind uint8

const (
	KindUUID Kind = 1
	KindIP   Kind = 2
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUUID:
		return "uuid"
	case KindIP:
		return "ip"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Address errors.
var (
	ErrNilAddress   = errors.New("address: nil address")
	ErrUnknownKind  = errors.New("address: unknown kind")
	ErrInvalidIPLen = errors.New("address: invalid ip length")
	ErrParse        = errors.New("address: cannot parse")
)

// Address identifies a cluster member.
type Address interface {
	fmt.Stringer

	// Equal reports whether other names the same member.
	Equal(other Address) bool

	// Kind returns the wire tag of the concrete type.
	Kind() Kind
}

// UUID is a member address backed by a random 128-bit identifier.
type UUID struct {
	id uuid.UUID
}

// NewUUID returns a fresh random UUID address.
func NewUUID() UUID {
	return UUID{id: uuid.New()}
}

// UUIDFrom wraps an existing identifier.
func UUIDFrom(id uuid.UUID) UUID {
	return UUID{id: id}
}

// ID returns the underlying identifier.
func (u UUID) ID() uuid.UUID { return u.id }

func (u UUID) Kind() Kind { return KindUUID }

func (u UUID) String() string { return u.id.String() }

func (u UUID) Equal(other Address) bool {
	o, ok := other.(UUID)
	return ok && o.id == u.id
}

// IP is a member address backed by an IP address and port.
type IP struct {
	ap netip.AddrPort
}

// NewIP returns an IP address for ap. IPv4-mapped IPv6 addresses are
// unmapped so that the same host always encodes the same way.
func NewIP(ap netip.AddrPort) IP {
	return IP{ap: netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())}
}

// AddrPort returns the underlying address and port.
func (a IP) AddrPort() netip.AddrPort { return a.ap }

func (a IP) Kind() Kind { return KindIP }

func (a IP) String() string { return a.ap.String() }

func (a IP) Equal(other Address) bool {
	o, ok := other.(IP)
	return ok && o.ap == a.ap
}

// Parse parses the textual forms produced by String, optionally prefixed
// with "uuid:" or "ip:". Unprefixed input is tried as a UUID first.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "uuid:"):
		return parseUUID(strings.TrimPrefix(s, "uuid:"))
	case strings.HasPrefix(s, "ip:"):
		return parseIP(strings.TrimPrefix(s, "ip:"))
	}
	if a, err := parseUUID(s); err == nil {
		return a, nil
	}
	return parseIP(s)
}

func parseUUID(s string) (Address, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrParse, s, err)
	}
	return UUIDFrom(id), nil
}

func parseIP(s string) (Address, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrParse, s, err)
	}
	return NewIP(ap), nil
}

// Equal reports whether a and b name the same member. Two nil addresses are
// equal; a nil and a non-nil address are not.
func Equal(a, b Address) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}
