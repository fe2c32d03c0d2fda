package message

import "errors"

// Message errors.
var (
	ErrInvalidHeaderID = errors.New("message: invalid header id")
	ErrNilHeader       = errors.New("message: nil header")
	ErrBufferBounds    = errors.New("message: buffer window out of bounds")
	ErrInvalidLength   = errors.New("message: invalid length")
	ErrUnsupported     = errors.New("message: operation not supported by this variant")
	ErrMarshal         = errors.New("message: marshalling failed")
	ErrUnknownMagic    = errors.New("message: unknown magic id")
	ErrUnknownType     = errors.New("message: unknown message type")
	ErrDuplicateMagic  = errors.New("message: magic id already registered")
	ErrDuplicateType   = errors.New("message: message type already registered")
)
