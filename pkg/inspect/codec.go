package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DecodeOptions selects the decode mode.
type DecodeOptions struct {
	// SkipPayload stops before the buffer of a bytes message and reports
	// its offset instead.
	SkipPayload bool

	// Sender restores the source of a message encoded without addresses.
	Sender address.Address
}

// EncodeOptions selects the encode mode.
type EncodeOptions struct {
	// NoAddrs leaves out the destination, and the source when it equals Ref.
	NoAddrs bool
	Ref     address.Address
}

// Decode decodes data, a type byte followed by an encoded message.
func (s *Server) Decode(ctx context.Context, data []byte, opts DecodeOptions) (desc Description, err error) {
	_, span := s.tracer.Start(ctx, "groupwire.decode",
		trace.WithAttributes(
			attribute.Int("groupwire.size", len(data)),
			attribute.Bool("groupwire.skip_payload", opts.SkipPayload),
		))
	defer func() { endSpan(span, err) }()

	if len(data) == 0 {
		return Description{}, io.ErrUnexpectedEOF
	}
	m, err := s.codec.Registry().NewMessage(message.Type(data[0]))
	if err != nil {
		return Description{}, err
	}
	span.SetAttributes(attribute.String("groupwire.type", m.Type().String()))

	d := protocol.NewDecoderAt(data, 1)
	if opts.SkipPayload {
		bm, ok := m.(*message.BytesMessage)
		if !ok {
			return Description{}, fmt.Errorf("%w: skip_payload needs a bytes message, got %s", ErrBadRequest, m.Type())
		}
		pos, err := s.codec.DecodeSkipPayload(d, bm)
		if err != nil {
			return Description{}, err
		}
		desc = Describe(bm)
		desc.PayloadOffset = &pos
		span.SetAttributes(attribute.Int("groupwire.headers", bm.NumHeaders()))
		return desc, nil
	}

	if opts.Sender != nil {
		err = s.codec.DecodeNoAddrs(d, m, opts.Sender)
	} else {
		err = s.codec.Decode(d, m)
	}
	if err != nil {
		return Description{}, err
	}
	span.SetAttributes(attribute.Int("groupwire.headers", m.NumHeaders()))
	return Describe(m), nil
}

// Encode builds the message described by req and returns its type byte
// followed by its encoding.
func (s *Server) Encode(ctx context.Context, req EncodeRequest, opts EncodeOptions) (data []byte, err error) {
	_, span := s.tracer.Start(ctx, "groupwire.encode",
		trace.WithAttributes(attribute.Bool("groupwire.no_addrs", opts.NoAddrs)))
	defer func() { endSpan(span, err) }()

	m, err := Build(req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("groupwire.type", m.Type().String()),
		attribute.Int("groupwire.headers", m.NumHeaders()),
	)

	if !opts.NoAddrs {
		data, err = s.codec.Marshal(m)
		if err != nil {
			return nil, err
		}
	} else {
		e := protocol.NewEncoder()
		e.WriteByte(byte(m.Type()))
		if err := s.codec.EncodeNoAddrs(e, m, opts.Ref); err != nil {
			return nil, err
		}
		data = e.Bytes()
	}
	span.SetAttributes(attribute.Int("groupwire.size", len(data)))
	return data, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
