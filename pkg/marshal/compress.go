package marshal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm selects a compression scheme.
type Algorithm uint8

const (
	None Algorithm = iota
	LZ4
	Zstd
	Snappy
)

// maxDecompressed bounds the output of a single decompression.
const maxDecompressed = 16 << 20

// ErrUnknownAlgorithm is returned for unsupported compression names or values.
var ErrUnknownAlgorithm = errors.New("marshal: unknown compression algorithm")

// ErrDecompressedTooLarge is returned when a payload inflates past the limit.
var ErrDecompressedTooLarge = errors.New("marshal: decompressed payload too large")

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm parses a compression name. The empty string means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Compressed wraps a Marshaller and compresses its output.
type Compressed struct {
	inner Marshaller
	algo  Algorithm

	zenc *zstd.Encoder
	zdec *zstd.Decoder

	lz4Writers sync.Pool
	lz4Readers sync.Pool
}

// Compress wraps inner so that its output is compressed with algo.
func Compress(inner Marshaller, algo Algorithm) (*Compressed, error) {
	c := &Compressed{inner: inner, algo: algo}

	switch algo {
	case None, Snappy:
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressed))
		if err != nil {
			return nil, err
		}
		c.zenc, c.zdec = enc, dec
	case LZ4:
		c.lz4Writers.New = func() any { return lz4.NewWriter(nil) }
		c.lz4Readers.New = func() any { return lz4.NewReader(nil) }
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, algo)
	}
	return c, nil
}

// Algorithm returns the compression scheme in use.
func (c *Compressed) Algorithm() Algorithm { return c.algo }

// Marshal implements Marshaller.
func (c *Compressed) Marshal(v any) ([]byte, error) {
	data, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.compress(data)
}

// Unmarshal implements Marshaller.
func (c *Compressed) Unmarshal(data []byte, hint any) (any, error) {
	raw, err := c.decompress(data)
	if err != nil {
		return nil, err
	}
	return c.inner.Unmarshal(raw, hint)
}

func (c *Compressed) compress(data []byte) ([]byte, error) {
	switch c.algo {
	case Snappy:
		return snappy.Encode(nil, data), nil

	case Zstd:
		return c.zenc.EncodeAll(data, make([]byte, 0, len(data))), nil

	case LZ4:
		var buf bytes.Buffer
		w := c.lz4Writers.Get().(*lz4.Writer)
		defer c.lz4Writers.Put(w)
		w.Reset(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return data, nil
	}
}

func (c *Compressed) decompress(data []byte) ([]byte, error) {
	switch c.algo {
	case Snappy:
		n, err := snappy.DecodedLen(data)
		if err != nil {
			return nil, err
		}
		if n > maxDecompressed {
			return nil, ErrDecompressedTooLarge
		}
		return snappy.Decode(nil, data)

	case Zstd:
		return c.zdec.DecodeAll(data, nil)

	case LZ4:
		r := c.lz4Readers.Get().(*lz4.Reader)
		defer c.lz4Readers.Put(r)
		r.Reset(bytes.NewReader(data))
		var buf bytes.Buffer
		n, err := buf.ReadFrom(io.LimitReader(r, maxDecompressed+1))
		if err != nil {
			return nil, err
		}
		if n > maxDecompressed {
			return nil, ErrDecompressedTooLarge
		}
		return buf.Bytes(), nil

	default:
		return data, nil
	}
}
