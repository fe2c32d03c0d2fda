package marshal

import "encoding/json"

// JSON marshals values with encoding/json. Without a hint, numbers decode as
// float64 and objects as map[string]any.
type JSON struct{}

// Marshal implements Marshaller.
func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Marshaller.
func (JSON) Unmarshal(data []byte, hint any) (any, error) {
	return decodeInto(hint, func(target any) error {
		return json.Unmarshal(data, target)
	})
}
