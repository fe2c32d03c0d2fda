package message

import (
	"bytes"
	"testing"

	"github.com/vango-dev/groupwire/pkg/protocol"
)

func benchMessage() *BytesMessage {
	m := NewBytesMessage(fixedUUID, bytes.Repeat([]byte{0xAB}, 1024))
	m.SetSrc(fixedUUID)
	m.SetFlag(OOB, DontBundle)
	_ = m.PutHeader(5, hdr("UNICAST3"))
	_ = m.PutHeader(12, hdr("NAKACK2"))
	return m
}

func BenchmarkEncode(b *testing.B) {
	c := NewCodec(newTestRegistry())
	m := benchMessage()
	e := protocol.NewEncoderWithCap(2048)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Reset()
		if err := c.Encode(e, m); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(e.Len()))
}

func BenchmarkDecode(b *testing.B) {
	c := NewCodec(newTestRegistry())
	e := protocol.NewEncoder()
	_ = c.Encode(e, benchMessage())
	data := e.Bytes()

	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Decode(protocol.NewDecoder(data), &BytesMessage{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeSkipPayload(b *testing.B) {
	c := NewCodec(newTestRegistry())
	e := protocol.NewEncoder()
	_ = c.Encode(e, benchMessage())
	data := e.Bytes()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.DecodeSkipPayload(protocol.NewDecoder(data), &BytesMessage{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHeadersGet(b *testing.B) {
	m := benchMessage()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if h, _ := m.GetHeader(12); h == nil {
			b.Fatal("missing header")
		}
	}
}
