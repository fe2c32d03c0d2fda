package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/headers"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/metrics"
)

const (
	addrA = "00112233-4455-6677-8899-aabbccddeeff"
	addrB = "10.0.0.2:7800"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return New(message.NewCodec(headers.NewRegistry()), opts...)
}

func post(t *testing.T, h http.Handler, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func encodeVia(t *testing.T, s *Server, req EncodeRequest, query string) []byte {
	t.Helper()
	body, _ := json.Marshal(req)
	rec := post(t, s, "/v1/encode"+query, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("encode status = %d, body = %s", rec.Code, rec.Body)
	}
	return rec.Body.Bytes()
}

func decodeVia(t *testing.T, s *Server, data []byte, query string) Description {
	t.Helper()
	rec := post(t, s, "/v1/decode"+query, data)
	if rec.Code != http.StatusOK {
		t.Fatalf("decode status = %d, body = %s", rec.Code, rec.Body)
	}
	var desc Description
	if err := json.Unmarshal(rec.Body.Bytes(), &desc); err != nil {
		t.Fatalf("bad description JSON: %v", err)
	}
	return desc
}

func strp(s string) *string { return &s }
func u64p(n uint64) *uint64 { return &n }

func TestEncodeDecode(t *testing.T) {
	s := newTestServer(t)

	data := encodeVia(t, s, EncodeRequest{
		Src:     addrA,
		Dest:    addrB,
		Flags:   []string{"oob", "no-fc"},
		Headers: []HeaderSpec{{ID: 5, Text: strp("X")}, {ID: 9, Seq: u64p(42)}},
		Payload: []byte{1, 2, 3, 4},
	}, "")

	if data[0] != byte(message.TypeBytes) {
		t.Fatalf("type byte = %d", data[0])
	}

	desc := decodeVia(t, s, data, "")
	if desc.Type != "bytes" || desc.Src != addrA || desc.Dest != addrB {
		t.Errorf("envelope = %+v", desc)
	}
	if strings.Join(desc.Flags, "|") != "OOB|NO_FC" {
		t.Errorf("Flags = %v", desc.Flags)
	}
	if desc.Length != 4 || !bytes.Equal(desc.Payload, []byte{1, 2, 3, 4}) {
		t.Errorf("payload = %v (length %d)", desc.Payload, desc.Length)
	}
	want := []HeaderDescription{
		{ID: 5, Magic: headers.MagicText, Value: "X"},
		{ID: 9, Magic: headers.MagicSeq, Value: "seq=42"},
	}
	if len(desc.Headers) != len(want) {
		t.Fatalf("Headers = %+v", desc.Headers)
	}
	for i := range want {
		if desc.Headers[i] != want[i] {
			t.Errorf("Headers[%d] = %+v; want %+v", i, desc.Headers[i], want[i])
		}
	}
	if desc.PayloadOffset != nil {
		t.Error("payload_offset set on a full decode")
	}
}

func TestEncodeDecodeObject(t *testing.T) {
	s := newTestServer(t)

	data := encodeVia(t, s, EncodeRequest{
		Type:   "object",
		Object: map[string]any{"k": "v"},
	}, "")
	desc := decodeVia(t, s, data, "")
	if desc.Type != "object" || desc.Object != "map[k:v]" {
		t.Errorf("Describe() = %+v", desc)
	}
	if desc.Length == 0 {
		t.Error("object length not reported")
	}
}

func TestDecodeSkipPayload(t *testing.T) {
	s := newTestServer(t)
	payload := []byte("zero copy")

	data := encodeVia(t, s, EncodeRequest{Src: addrA, Payload: payload}, "")
	desc := decodeVia(t, s, data, "?skip_payload=true")

	if desc.PayloadOffset == nil {
		t.Fatal("payload_offset missing")
	}
	if want := len(data) - len(payload); *desc.PayloadOffset != want {
		t.Errorf("payload_offset = %d; want %d", *desc.PayloadOffset, want)
	}
	if desc.Length != len(payload) || desc.Payload != nil {
		t.Errorf("Length = %d, Payload = %v", desc.Length, desc.Payload)
	}
}

func TestEncodeNoAddrs(t *testing.T) {
	s := newTestServer(t)
	req := EncodeRequest{Src: addrA, Dest: addrB, Payload: []byte("x")}

	full := encodeVia(t, s, req, "")
	elided := encodeVia(t, s, req, "?no_addrs=1&ref="+addrA)
	if len(full)-len(elided) != 17+8 {
		t.Errorf("eliding saved %d bytes; want 25", len(full)-len(elided))
	}

	desc := decodeVia(t, s, elided, "?sender=uuid:"+addrA)
	if desc.Src != addrA || desc.Dest != "" {
		t.Errorf("src = %q, dest = %q", desc.Src, desc.Dest)
	}
}

func TestDecodeErrors(t *testing.T) {
	s := newTestServer(t, WithReadLimit(64))
	good := encodeVia(t, s, EncodeRequest{Payload: []byte("abc")}, "")

	tests := []struct {
		name       string
		query      string
		body       []byte
		wantStatus int
		wantClass  string
	}{
		{"empty", "", nil, http.StatusUnprocessableEntity, "truncated"},
		{"truncated", "", good[:len(good)-1], http.StatusUnprocessableEntity, "truncated"},
		{"unknown type", "", []byte{0x42, 0, 0, 0, 0, 0}, http.StatusUnprocessableEntity, "unknown_type"},
		{"bad query", "?skip_payload=maybe", good, http.StatusBadRequest, "internal"},
		{"bad sender", "?sender=nowhere", good, http.StatusBadRequest, "internal"},
		{"too large", "", make([]byte, 65), http.StatusRequestEntityTooLarge, "limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, s, "/v1/decode"+tc.query, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d (%s)", rec.Code, tc.wantStatus, rec.Body)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Class != tc.wantClass {
				t.Errorf("class = %q; want %q", resp.Class, tc.wantClass)
			}
		})
	}
}

func TestEncodeBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"unknown type", `{"type":"stream"}`},
		{"bad flag", `{"flags":["FAST"]}`},
		{"bad dest", `{"dest":"nowhere"}`},
		{"header id zero", `{"headers":[{"id":0,"text":"x"}]}`},
		{"header without value", `{"headers":[{"id":1}]}`},
		{"header with both", `{"headers":[{"id":1,"text":"x","seq":1}]}`},
		{"object with payload", `{"type":"object","payload":"AQ=="}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, s, "/v1/encode", []byte(tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want 400 (%s)", rec.Code, rec.Body)
			}
		})
	}
}

func TestBuildHeaderIDError(t *testing.T) {
	_, err := Build(EncodeRequest{Headers: []HeaderSpec{{ID: -3, Text: strp("x")}}})
	if !errors.Is(err, ErrBadRequest) || !errors.Is(err, message.ErrInvalidHeaderID) {
		t.Errorf("Build() error = %v; want ErrBadRequest wrapping ErrInvalidHeaderID", err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	codec := message.NewCodec(headers.NewRegistry(),
		message.WithObserver(metrics.New(metrics.WithRegistry(reg))))
	s := New(codec, WithGatherer(reg))

	data, err := s.Encode(context.Background(), EncodeRequest{Payload: []byte("m")}, EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Decode(context.Background(), data, DecodeOptions{}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("/healthz = %d %q", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`groupwire_codec_messages_encoded_total{mode="full",type="bytes"} 1`,
		`groupwire_codec_messages_decoded_total{mode="full",type="bytes"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %s", want)
		}
	}
}

func TestMetricsRouteAbsentWithoutGatherer(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d; want 404", rec.Code)
	}
}

func TestWebSocketDecodesFrames(t *testing.T) {
	codec := message.NewCodec(headers.NewRegistry())
	s := New(codec)
	ts := httptest.NewServer(s)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	src, _ := address.Parse(addrA)
	m := message.NewBytesMessage(nil, []byte("over the wire"))
	m.SetSrc(src)
	_ = m.PutHeader(3, headers.NewSeq(7))

	var frame bytes.Buffer
	if err := codec.WriteMessage(&frame, m); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Bytes()); err != nil {
		t.Fatal(err)
	}

	var res wsResult
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if res.Message == nil {
		t.Fatalf("error reply: %+v", res.Error)
	}
	if res.Message.Src != addrA || string(res.Message.Payload) != "over the wire" {
		t.Errorf("Description = %+v", res.Message)
	}

	// A malformed frame yields an error reply and the connection stays up.
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 0}); err != nil {
		t.Fatal(err)
	}
	res = wsResult{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.Error == nil || res.Error.Class != "truncated" {
		t.Errorf("reply = %+v; want truncated error", res)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hi")); err != nil {
		t.Fatal(err)
	}
	res = wsResult{}
	if err := conn.ReadJSON(&res); err != nil {
		t.Fatal(err)
	}
	if res.Error == nil {
		t.Error("text frame accepted")
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t, WithLogger(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe() = %v; want nil", err)
	}
}
