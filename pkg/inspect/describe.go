package inspect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/headers"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/message"
)

// JSON objects sent for the object variant decode into these types, and gob
// needs them registered to carry them inside an interface.
func init() {
	marshal.Register(map[string]any{})
	marshal.Register([]any{})
}

// Description is the JSON view of a decoded message.
type Description struct {
	Type          string              `json:"type"`
	Dest          string              `json:"dest,omitempty"`
	Src           string              `json:"src,omitempty"`
	Flags         []string            `json:"flags,omitempty"`
	FlagBits      uint16              `json:"flag_bits"`
	Headers       []HeaderDescription `json:"headers,omitempty"`
	Length        int                 `json:"length"`
	Payload       []byte              `json:"payload,omitempty"`
	PayloadOffset *int                `json:"payload_offset,omitempty"`
	Object        string              `json:"object,omitempty"`
	Summary       string              `json:"summary"`
}

// HeaderDescription describes one header of a message.
type HeaderDescription struct {
	ID    int16  `json:"id"`
	Magic uint16 `json:"magic"`
	Value string `json:"value"`
}

// Describe builds the Description of m.
func Describe(m message.Message) Description {
	desc := Description{
		Type:     m.Type().String(),
		FlagBits: uint16(m.Flags()),
		Summary:  m.String(),
	}
	if dest := m.Dest(); dest != nil {
		desc.Dest = dest.String()
	}
	if src := m.Src(); src != nil {
		desc.Src = src.String()
	}
	if s := m.Flags().String(); s != "" {
		desc.Flags = strings.Split(s, "|")
	}

	m.Headers().Each(func(id int16, h message.Header) bool {
		desc.Headers = append(desc.Headers, HeaderDescription{
			ID:    id,
			Magic: h.MagicID(),
			Value: fmt.Sprint(h),
		})
		return true
	})

	desc.Length, _ = m.Length()
	switch m := m.(type) {
	case *message.BytesMessage:
		desc.Payload = m.Window()
	case *message.ObjectMessage:
		if v, _ := m.Object(nil); v != nil {
			desc.Object = fmt.Sprintf("%v", v)
		}
	}
	return desc
}

// EncodeRequest is the JSON body of an encode call.
type EncodeRequest struct {
	// Type is "bytes" (default) or "object".
	Type    string       `json:"type,omitempty"`
	Dest    string       `json:"dest,omitempty"`
	Src     string       `json:"src,omitempty"`
	Flags   []string     `json:"flags,omitempty"`
	Headers []HeaderSpec `json:"headers,omitempty"`

	// Payload is the buffer of a bytes message (base64 in JSON).
	Payload []byte `json:"payload,omitempty"`

	// Object is the value of an object message.
	Object any `json:"object,omitempty"`
}

// HeaderSpec is a header to attach. Exactly one of Text and Seq is set.
type HeaderSpec struct {
	ID   int16   `json:"id"`
	Text *string `json:"text,omitempty"`
	Seq  *uint64 `json:"seq,omitempty"`
}

// Request validation errors.
var (
	ErrBadRequest = errors.New("inspect: bad request")
)

// Build creates the message described by req.
func Build(req EncodeRequest) (message.Message, error) {
	var m message.Message
	switch strings.ToLower(req.Type) {
	case "", "bytes":
		m = message.NewBytesMessage(nil, req.Payload)
	case "object":
		if req.Payload != nil {
			return nil, fmt.Errorf("%w: payload is only valid for bytes messages", ErrBadRequest)
		}
		m = message.NewObjectMessage(nil, req.Object)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrBadRequest, req.Type)
	}

	if req.Dest != "" {
		a, err := address.Parse(req.Dest)
		if err != nil {
			return nil, fmt.Errorf("%w: dest: %w", ErrBadRequest, err)
		}
		m.SetDest(a)
	}
	if req.Src != "" {
		a, err := address.Parse(req.Src)
		if err != nil {
			return nil, fmt.Errorf("%w: src: %w", ErrBadRequest, err)
		}
		m.SetSrc(a)
	}

	for _, name := range req.Flags {
		f, err := message.ParseFlag(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		m.SetFlag(f)
	}

	for _, hs := range req.Headers {
		var h message.Header
		switch {
		case hs.Text != nil && hs.Seq == nil:
			h = headers.NewText(*hs.Text)
		case hs.Seq != nil && hs.Text == nil:
			h = headers.NewSeq(*hs.Seq)
		default:
			return nil, fmt.Errorf("%w: header %d needs exactly one of text or seq", ErrBadRequest, hs.ID)
		}
		if err := m.PutHeader(hs.ID, h); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
	}
	return m, nil
}
