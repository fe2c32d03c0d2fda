package marshal

import (
	cbor "github.com/fxamacker/cbor/v2"
)

// CBOR marshals values as deterministic CBOR (RFC 8949 core profile), so the
// same value always produces the same bytes.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR returns a CBOR marshaller using canonical encoding options.
func NewCBOR() (*CBOR, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBOR{enc: em, dec: dm}, nil
}

// Marshal implements Marshaller.
func (c *CBOR) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

// Unmarshal implements Marshaller.
func (c *CBOR) Unmarshal(data []byte, hint any) (any, error) {
	return decodeInto(hint, func(target any) error {
		return c.dec.Unmarshal(data, target)
	})
}
