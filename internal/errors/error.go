package errors

import (
	"fmt"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryDecode  Category = "decode"
	CategoryEncode  Category = "encode"
	CategoryLimit   Category = "limit"
	CategoryAddress Category = "address"
	CategoryMarshal Category = "marshal"
	CategoryConfig  Category = "config"
	CategoryCLI     Category = "cli"
)

// Position is the location of a failure within an input buffer.
type Position struct {
	Offset int
}

// String returns the position as a formatted string.
func (p *Position) String() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("offset %d (0x%x)", p.Offset, p.Offset)
}

// Error is a structured error with an input position and a suggestion.
type Error struct {
	// Code is a unique error identifier (e.g., "G001").
	Code string

	// Category is the error type (decode, limit, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Position is where in the input the failure was detected.
	Position *Position

	// Context is a hex dump of the input around Position.
	Context []DumpLine

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// DumpLine is one row of a hex dump.
type DumpLine struct {
	Offset int
	Bytes  []byte
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithInput records the failure position within data and captures the
// surrounding bytes.
func (e *Error) WithInput(data []byte, offset int) *Error {
	if offset < 0 {
		return e
	}
	if offset > len(data) {
		offset = len(data)
	}
	e.Position = &Position{Offset: offset}
	e.Context = dumpAround(data, offset, 1)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

const dumpWidth = 16

// dumpAround returns the dump row holding offset plus up to radius rows on
// either side.
func dumpAround(data []byte, offset, radius int) []DumpLine {
	if len(data) == 0 {
		return nil
	}
	row := offset / dumpWidth
	first := row - radius
	if first < 0 {
		first = 0
	}
	last := row + radius
	if lastRow := (len(data) - 1) / dumpWidth; last > lastRow {
		last = lastRow
	}

	var lines []DumpLine
	for r := first; r <= last; r++ {
		start := r * dumpWidth
		end := start + dumpWidth
		if end > len(data) {
			end = len(data)
		}
		lines = append(lines, DumpLine{Offset: start, Bytes: data[start:end]})
	}
	return lines
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError converts err into an Error. An *Error in the chain is returned
// as is; a known sentinel selects its registered code; anything else gets
// fallback.
func FromError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if As(err, &ge) {
		return ge
	}
	return New(CodeFor(err, fallback)).Wrap(err)
}
