package marshal

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

type point struct {
	X, Y int
	Tag  string
}

func init() {
	Register(point{})
}

func TestGobPreservesType(t *testing.T) {
	values := []any{
		"hello",
		42,
		[]byte{1, 2, 3},
		point{X: 1, Y: 2, Tag: "p"},
	}

	var g Gob
	for _, v := range values {
		data, err := g.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%T) error = %v", v, err)
		}
		got, err := g.Unmarshal(data, nil)
		if err != nil {
			t.Fatalf("Unmarshal(%T) error = %v", v, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("round trip %T: got %#v; want %#v", v, got, v)
		}
	}
}

func TestHintedRoundTrip(t *testing.T) {
	c, err := NewCBOR()
	if err != nil {
		t.Fatalf("NewCBOR() error = %v", err)
	}

	tests := []struct {
		name string
		m    Marshaller
	}{
		{"cbor", c},
		{"json", JSON{}},
	}

	want := point{X: 3, Y: -4, Tag: "q"}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := tc.m.Marshal(want)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			got, err := tc.m.Unmarshal(data, &point{})
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got != want {
				t.Errorf("Unmarshal() = %#v; want %#v", got, want)
			}

			if _, err := tc.m.Unmarshal(data, point{}); !errors.Is(err, ErrBadHint) {
				t.Errorf("Unmarshal(non-pointer hint) error = %v; want ErrBadHint", err)
			}
		})
	}
}

func TestUnhintedJSON(t *testing.T) {
	data, _ := JSON{}.Marshal("text")
	got, err := JSON{}.Unmarshal(data, nil)
	if err != nil || got != "text" {
		t.Errorf("Unmarshal() = %#v, %v; want \"text\"", got, err)
	}
}

func TestCBORDeterministic(t *testing.T) {
	c, _ := NewCBOR()
	m := map[string]int{"b": 2, "a": 1, "c": 3}

	first, err := c.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := c.Marshal(m)
		if !bytes.Equal(first, again) {
			t.Fatal("canonical CBOR encoding is not stable")
		}
	}
}

func TestCompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("groupwire "), 500)

	for _, algo := range []Algorithm{None, LZ4, Zstd, Snappy} {
		t.Run(algo.String(), func(t *testing.T) {
			c, err := Compress(Gob{}, algo)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}
			data, err := c.Marshal(payload)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if algo != None && len(data) >= len(payload) {
				t.Errorf("compressed size %d not smaller than %d", len(data), len(payload))
			}
			got, err := c.Unmarshal(data, nil)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !bytes.Equal(got.([]byte), payload) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestCompressCorruptInput(t *testing.T) {
	for _, algo := range []Algorithm{LZ4, Zstd, Snappy} {
		c, _ := Compress(Gob{}, algo)
		if _, err := c.Unmarshal([]byte{0xde, 0xad, 0xbe, 0xef, 0x00}, nil); err == nil {
			t.Errorf("%s: Unmarshal(garbage) succeeded", algo)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"", None},
		{"none", None},
		{"LZ4", LZ4},
		{"zstd", Zstd},
		{"snappy", Snappy},
	}
	for _, tc := range tests {
		got, err := ParseAlgorithm(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseAlgorithm(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}

	if _, err := ParseAlgorithm("brotli"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("ParseAlgorithm(brotli) error = %v; want ErrUnknownAlgorithm", err)
	}
	if _, err := Compress(Gob{}, Algorithm(99)); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Compress(99) error = %v; want ErrUnknownAlgorithm", err)
	}
}

func TestNamed(t *testing.T) {
	tests := []struct {
		name, compression string
		wantType          any
	}{
		{"gob", "", Gob{}},
		{"", "none", Gob{}},
		{"json", "", JSON{}},
		{"cbor", "", &CBOR{}},
		{"gob", "zstd", &Compressed{}},
	}
	for _, tc := range tests {
		m, err := Named(tc.name, tc.compression)
		if err != nil {
			t.Fatalf("Named(%q, %q) error = %v", tc.name, tc.compression, err)
		}
		if reflect.TypeOf(m) != reflect.TypeOf(tc.wantType) {
			t.Errorf("Named(%q, %q) = %T; want %T", tc.name, tc.compression, m, tc.wantType)
		}
	}

	if _, err := Named("xml", ""); !errors.Is(err, ErrUnknownMarshaller) {
		t.Errorf("Named(xml) error = %v; want ErrUnknownMarshaller", err)
	}
	if _, err := Named("gob", "rar"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Named(gob, rar) error = %v; want ErrUnknownAlgorithm", err)
	}
}
