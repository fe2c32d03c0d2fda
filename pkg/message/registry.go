package message

import (
	"errors"
	"fmt"

	"github.com/vango-dev/groupwire/pkg/registry"
)

// Registry maps wire ids to constructors: magic ids to Streamable types
// (headers and self-describing payloads) and message types to variants.
//
// A Registry is created by the caller and injected into a Codec; there is no
// process-wide instance. It is safe for concurrent use.
type Registry struct {
	streamables *registry.Table[uint16, func() Streamable]
	messages    *registry.Table[Type, func() Message]
}

// NewRegistry returns a registry with the built-in message variants
// registered.
func NewRegistry() *Registry {
	r := &Registry{
		streamables: registry.New[uint16, func() Streamable](),
		messages:    registry.New[Type, func() Message](),
	}
	r.messages.Replace(TypeBytes, func() Message { return &BytesMessage{} })
	r.messages.Replace(TypeObject, func() Message { return &ObjectMessage{} })
	return r
}

// RegisterStreamable registers the constructor for magic.
func (r *Registry) RegisterStreamable(magic uint16, fn func() Streamable) error {
	if fn == nil {
		return fmt.Errorf("%w: nil constructor for magic %d", ErrUnknownMagic, magic)
	}
	if err := r.streamables.Register(magic, fn); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			return fmt.Errorf("%w: %d", ErrDuplicateMagic, magic)
		}
		return err
	}
	return nil
}

// NewStreamable returns a fresh value for magic.
func (r *Registry) NewStreamable(magic uint16) (Streamable, error) {
	fn, ok := r.streamables.Get(magic)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMagic, magic)
	}
	return fn(), nil
}

// RegisterMessage registers the constructor for a message type.
func (r *Registry) RegisterMessage(t Type, fn func() Message) error {
	if fn == nil {
		return fmt.Errorf("%w: nil constructor for type %d", ErrUnknownType, t)
	}
	if err := r.messages.Register(t, fn); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			return fmt.Errorf("%w: %d", ErrDuplicateType, t)
		}
		return err
	}
	return nil
}

// NewMessage returns an empty message of type t.
func (r *Registry) NewMessage(t Type) (Message, error) {
	fn, ok := r.messages.Get(t)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	return fn(), nil
}

// Magics returns the registered magic ids in ascending order.
func (r *Registry) Magics() []uint16 { return r.streamables.Keys() }

// Types returns the registered message types in ascending order.
func (r *Registry) Types() []Type { return r.messages.Keys() }
