package metrics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

func TestCollectorCountsCodecEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New(WithRegistry(reg))
	codec := message.NewCodec(nil, message.WithObserver(obs))

	m := message.NewBytesMessage(nil, []byte("hello"))
	e := protocol.NewEncoder()
	if err := codec.Encode(e, m); err != nil {
		t.Fatal(err)
	}
	if err := codec.EncodeNoAddrs(protocol.NewEncoder(), m, nil); err != nil {
		t.Fatal(err)
	}
	if err := codec.Decode(protocol.NewDecoder(e.Bytes()), &message.BytesMessage{}); err != nil {
		t.Fatal(err)
	}
	if _, err := codec.DecodeSkipPayload(protocol.NewDecoder(e.Bytes()), &message.BytesMessage{}); err != nil {
		t.Fatal(err)
	}
	_ = codec.Decode(protocol.NewDecoder(e.Bytes()[:3]), &message.BytesMessage{})

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"encoded full", obs.encoded.WithLabelValues("bytes", "full"), 1},
		{"encoded no_addrs", obs.encoded.WithLabelValues("bytes", "no_addrs"), 1},
		{"decoded full", obs.decoded.WithLabelValues("bytes", "full"), 1},
		{"decoded skip", obs.decoded.WithLabelValues("bytes", "skip_payload"), 1},
		{"truncated", obs.errors.WithLabelValues("decode", "truncated"), 1},
	}
	for _, tc := range tests {
		if got := testutil.ToFloat64(tc.c); got != tc.want {
			t.Errorf("%s = %v; want %v", tc.name, got, tc.want)
		}
	}

	// Two encodes and one full decode observed
	if n := testutil.CollectAndCount(obs.size); n != 2 {
		t.Errorf("size series = %d; want 2", n)
	}
}

func TestCollectorNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := New(WithRegistry(reg), WithNamespace("cluster"), WithSubsystem("wire"),
		WithConstLabels(prometheus.Labels{"node": "a"}))
	obs.CodecError("encode", message.ErrMarshal)

	expected := `
# HELP cluster_wire_errors_total Total number of codec failures
# TYPE cluster_wire_errors_total counter
cluster_wire_errors_total{error_type="marshal",node="a",op="encode"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "cluster_wire_errors_total"); err != nil {
		t.Error(err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{io.ErrUnexpectedEOF, "truncated"},
		{fmt.Errorf("reading header: %w", io.ErrUnexpectedEOF), "truncated"},
		{message.ErrUnknownMagic, "unknown_magic"},
		{message.ErrUnknownType, "unknown_type"},
		{protocol.ErrCollectionTooLarge, "limit"},
		{protocol.ErrFrameTooLarge, "limit"},
		{fmt.Errorf("%w: %w", message.ErrMarshal, errors.New("gob")), "marshal"},
		{message.ErrInvalidHeaderID, "malformed"},
		{address.ErrUnknownKind, "address"},
		{errors.New("disk on fire"), "internal"},
	}
	for _, tc := range tests {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %q; want %q", tc.err, got, tc.want)
		}
	}
}
