package marshal

import (
	"bytes"
	"encoding/gob"
)

// Gob marshals values with encoding/gob, wrapping them in an interface so the
// concrete type travels with the data. Types other than Go's basic types must
// be made known with Register before they can be decoded.
type Gob struct{}

// Register records the concrete type of v for interface encoding.
func Register(v any) {
	gob.Register(v)
}

// Marshal implements Marshaller.
func (Gob) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal implements Marshaller. The hint is not needed and is ignored.
func (Gob) Unmarshal(data []byte, _ any) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
