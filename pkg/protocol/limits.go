package protocol

// Allocation limits applied while decoding untrusted input.
const (
	// DefaultMaxAllocation is the default maximum allocation size (4MB).
	// It bounds every length-prefixed copy a Decoder makes.
	DefaultMaxAllocation = 4 * 1024 * 1024

	// HardMaxAllocation is the absolute ceiling for allocations (16MB).
	// Even if configured higher, allocations are capped at this limit.
	HardMaxAllocation = 16 * 1024 * 1024

	// MaxHeaderCount is the largest header count a message may carry on the
	// wire. The count field is 16 bits wide, so this is also the format limit.
	MaxHeaderCount = 1<<16 - 1
)

// Limits bounds what a message decode may allocate.
// Use DefaultLimits() for sensible defaults.
type Limits struct {
	// MaxPayload is the largest payload, in bytes, a decode will copy.
	MaxPayload int

	// MaxHeaders is the largest header count a decode will accept.
	MaxHeaders int
}

// DefaultLimits returns the default decode limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPayload: DefaultMaxAllocation,
		MaxHeaders: 1024,
	}
}

// Normalize clamps l into the range the wire format and the hard allocation
// ceiling allow. Zero fields take their defaults.
func (l Limits) Normalize() Limits {
	def := DefaultLimits()
	if l.MaxPayload <= 0 {
		l.MaxPayload = def.MaxPayload
	}
	if l.MaxPayload > HardMaxAllocation {
		l.MaxPayload = HardMaxAllocation
	}
	if l.MaxHeaders <= 0 {
		l.MaxHeaders = def.MaxHeaders
	}
	if l.MaxHeaders > MaxHeaderCount {
		l.MaxHeaders = MaxHeaderCount
	}
	return l
}
