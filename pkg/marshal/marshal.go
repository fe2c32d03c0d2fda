// Package marshal provides the generic object marshallers used for payloads
// that do not know how to write themselves.
//
// A Marshaller turns an arbitrary value into bytes and back. Gob is the
// default because it preserves the dynamic type of the value across a round
// trip. CBOR and JSON produce portable encodings but need a decode target
// (the hint) to recover anything richer than maps and slices. Any of them can
// be wrapped by Compress.
package marshal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Marshaller errors.
var (
	ErrUnknownMarshaller = errors.New("marshal: unknown marshaller")
	ErrBadHint           = errors.New("marshal: hint must be a non-nil pointer")
)

// Marshaller serializes arbitrary values.
type Marshaller interface {
	// Marshal encodes v.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data. hint is an optional decode target: when it is
	// a non-nil pointer the value is decoded into it and the pointed-to
	// value is returned. Type-preserving marshallers may ignore it.
	Unmarshal(data []byte, hint any) (any, error)
}

// Named returns the marshaller registered under name, wrapped in the given
// compression. Names are "gob", "cbor" and "json"; compression names are
// those accepted by ParseAlgorithm.
func Named(name, compression string) (Marshaller, error) {
	var m Marshaller
	switch strings.ToLower(name) {
	case "", "gob":
		m = Gob{}
	case "cbor":
		c, err := NewCBOR()
		if err != nil {
			return nil, err
		}
		m = c
	case "json":
		m = JSON{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarshaller, name)
	}

	algo, err := ParseAlgorithm(compression)
	if err != nil {
		return nil, err
	}
	if algo == None {
		return m, nil
	}
	c, err := Compress(m, algo)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// decodeInto runs fn against the target chosen from hint and returns the
// decoded value. With no hint the value is decoded into an empty interface.
func decodeInto(hint any, fn func(target any) error) (any, error) {
	if hint == nil {
		var v any
		if err := fn(&v); err != nil {
			return nil, err
		}
		return v, nil
	}

	rv := reflect.ValueOf(hint)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("%w: got %T", ErrBadHint, hint)
	}
	if err := fn(hint); err != nil {
		return nil, err
	}
	return rv.Elem().Interface(), nil
}
