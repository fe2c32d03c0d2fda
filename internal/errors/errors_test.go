package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "decode error",
			code:    "G001",
			wantMsg: "Truncated input",
			wantCat: CategoryDecode,
		},
		{
			name:    "limit error",
			code:    "G011",
			wantMsg: "Too many headers",
			wantCat: CategoryLimit,
		},
		{
			name:    "config error",
			code:    "G050",
			wantMsg: "Config file not found",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "G999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "flag %q is required", "--type")
	if err.Message != `flag "--type" is required` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	if got, want := New("G001").Error(), "G001: Truncated input"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("G002").Wrap(fmt.Errorf("%w: 77", message.ErrUnknownMagic))
	if got := wrapped.Error(); !strings.HasPrefix(got, "G002: Unknown magic id: ") {
		t.Errorf("Error() = %q", got)
	}

	if got := (&Error{Message: "plain"}).Error(); got != "plain" {
		t.Errorf("Error() = %q, want %q", got, "plain")
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{io.ErrUnexpectedEOF, "G001"},
		{fmt.Errorf("header 3: %w", message.ErrUnknownMagic), "G002"},
		{message.ErrUnknownType, "G003"},
		{message.ErrInvalidHeaderID, "G004"},
		{protocol.ErrNegativeLength, "G005"},
		{protocol.ErrAllocationTooLarge, "G010"},
		{protocol.ErrCollectionTooLarge, "G011"},
		{fmt.Errorf("%w: %w", message.ErrMarshal, stderrors.New("gob")), "G020"},
		{address.ErrInvalidIPLen, "G031"},
		{message.ErrUnsupported, "G041"},
		{stderrors.New("other"), "G099"},
	}
	for _, tt := range tests {
		if got := CodeFor(tt.err, "G099"); got != tt.want {
			t.Errorf("CodeFor(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "G099") != nil {
		t.Error("FromError(nil) should be nil")
	}

	err := FromError(io.ErrUnexpectedEOF, "G099")
	if err.Code != "G001" || !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("FromError() = %v; want G001 wrapping io.ErrUnexpectedEOF", err)
	}

	original := New("G060")
	if got := FromError(fmt.Errorf("context: %w", original), "G099"); got != original {
		t.Error("FromError() should return an existing *Error from the chain")
	}

	if got := FromError(stderrors.New("odd"), "G061"); got.Code != "G061" {
		t.Errorf("fallback code = %s, want G061", got.Code)
	}
}

func TestWithInput(t *testing.T) {
	data := make([]byte, 50)
	for i := range data {
		data[i] = byte(i)
	}

	err := New("G002").WithInput(data, 20)
	if err.Position == nil || err.Position.Offset != 20 {
		t.Fatalf("Position = %v", err.Position)
	}
	// Rows 0, 1 and 2 around row 1
	if len(err.Context) != 3 || err.Context[0].Offset != 0 || err.Context[2].Offset != 32 {
		t.Errorf("Context = %+v", err.Context)
	}

	end := New("G001").WithInput(data, 500)
	if end.Position.Offset != 50 {
		t.Errorf("offset past the end = %d, want 50", end.Position.Offset)
	}
	if last := end.Context[len(end.Context)-1]; last.Offset != 48 || len(last.Bytes) != 2 {
		t.Errorf("last row = %+v", last)
	}

	if New("G001").WithInput(nil, 0).Context != nil {
		t.Error("empty input should have no context")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	data := []byte{0x06, 0x00, 0x01, 0x00, 0x01, 0x00, 0x05, 0x03, 0x84, 0x01, 0x58}
	err := New("G002").
		Wrap(message.ErrUnknownMagic).
		WithInput(data, 7).
		WithDetail("custom detail")

	out := err.Format()
	for _, want := range []string{
		"ERROR G002: Unknown magic id",
		"offset 7 (0x7)",
		"→ 00000000 │ 06 00 01 00 01 00 05 03  84 01 58",
		"│                      ^^",
		"custom detail",
		"Cause: message: unknown magic id",
		"Hint: Register the header type",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() contains color codes with colors disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("G001").WithInput([]byte{1, 2, 3}, 3)
	if got, want := err.FormatCompact(), "offset 3 (0x3): G001: Truncated input"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("G010").Wrap(protocol.ErrAllocationTooLarge).WithInput([]byte{1}, 0)

	var out map[string]any
	if e := json.Unmarshal([]byte(err.FormatJSON()), &out); e != nil {
		t.Fatalf("FormatJSON() is not valid JSON: %v", e)
	}
	if out["code"] != "G010" || out["category"] != "limit" || out["offset"] != float64(0) {
		t.Errorf("FormatJSON() = %v", out)
	}
	if out["cause"] != protocol.ErrAllocationTooLarge.Error() {
		t.Errorf("cause = %v", out["cause"])
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Fprint(&b, New("G060").WithDetail("bad hex"))
	if !strings.Contains(b.String(), "ERROR G060: Invalid input") {
		t.Errorf("Fprint(*Error) = %q", b.String())
	}

	b.Reset()
	Fprint(&b, stderrors.New("plain failure"))
	if !strings.Contains(b.String(), "ERROR: plain failure") {
		t.Errorf("Fprint(error) = %q", b.String())
	}
}

func TestRegistryCodes(t *testing.T) {
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("GetAllCodes() not sorted: %v", codes)
		}
	}
	for _, s := range sentinels {
		if _, ok := GetTemplate(s.code); !ok {
			t.Errorf("sentinel %v maps to unregistered code %s", s.err, s.code)
		}
	}

	Register("G098", ErrorTemplate{Category: CategoryCLI, Message: "Test"})
	if New("G098").Message != "Test" {
		t.Error("Register() did not add the template")
	}
}
