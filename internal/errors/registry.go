package errors

import (
	stderrors "errors"
	"io"
	"sort"

	"github.com/vango-dev/groupwire/pkg/address"
	"github.com/vango-dev/groupwire/pkg/marshal"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/protocol"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Decode Errors (G001-G009)
	// ============================================

	"G001": {
		Category:   CategoryDecode,
		Message:    "Truncated input",
		Detail:     "The input ended before the message was complete.",
		Suggestion: "Check that the whole message was captured, including its payload",
	},
	"G002": {
		Category:   CategoryDecode,
		Message:    "Unknown magic id",
		Detail:     "A header or payload names a magic id that is not registered with the decoding registry.",
		Suggestion: "Register the header type on both sender and receiver",
	},
	"G003": {
		Category:   CategoryDecode,
		Message:    "Unknown message type",
		Detail:     "The type byte does not name a registered message variant.",
		Suggestion: "Use 1 for bytes messages or 2 for object messages",
	},
	"G004": {
		Category: CategoryDecode,
		Message:  "Invalid header id",
		Detail:   "Header ids must be positive.",
	},
	"G005": {
		Category: CategoryDecode,
		Message:  "Invalid length",
		Detail:   "A length field is negative or does not fit the message.",
	},
	"G006": {
		Category: CategoryDecode,
		Message:  "Varint overflow",
		Detail:   "A variable length integer runs past 64 bits.",
	},

	// ============================================
	// Limit Errors (G010-G019)
	// ============================================

	"G010": {
		Category:   CategoryLimit,
		Message:    "Payload exceeds the allocation limit",
		Detail:     "The message declares a payload larger than the configured maximum.",
		Suggestion: "Raise codec.max_payload if the input is trusted",
	},
	"G011": {
		Category:   CategoryLimit,
		Message:    "Too many headers",
		Detail:     "The header count exceeds the configured maximum.",
		Suggestion: "Raise codec.max_headers if the input is trusted",
	},
	"G012": {
		Category: CategoryLimit,
		Message:  "Frame too large",
		Detail:   "A stream frame declares a payload above the frame size limit.",
	},

	// ============================================
	// Marshal Errors (G020-G029)
	// ============================================

	"G020": {
		Category: CategoryMarshal,
		Message:  "Object marshalling failed",
		Detail:   "The object payload could not be serialized or deserialized.",
	},
	"G021": {
		Category: CategoryMarshal,
		Message:  "Decompressed payload too large",
	},
	"G022": {
		Category:   CategoryMarshal,
		Message:    "Unknown marshaller",
		Suggestion: "Use one of gob, cbor or json",
	},
	"G023": {
		Category:   CategoryMarshal,
		Message:    "Unknown compression algorithm",
		Suggestion: "Use one of none, lz4, zstd or snappy",
	},

	// ============================================
	// Address Errors (G030-G039)
	// ============================================

	"G030": {
		Category: CategoryAddress,
		Message:  "Unknown address kind",
	},
	"G031": {
		Category: CategoryAddress,
		Message:  "Invalid IP address length",
		Detail:   "IP addresses are encoded with 4 or 16 address bytes.",
	},
	"G032": {
		Category:   CategoryAddress,
		Message:    "Invalid address",
		Suggestion: "Write addresses as a UUID or as host:port, optionally prefixed with uuid: or ip:",
	},
	"G033": {
		Category: CategoryAddress,
		Message:  "Missing address",
	},

	// ============================================
	// Encode Errors (G040-G049)
	// ============================================

	"G040": {
		Category: CategoryEncode,
		Message:  "Buffer window out of bounds",
		Detail:   "Offset and length must lie within the buffer.",
	},
	"G041": {
		Category: CategoryEncode,
		Message:  "Operation not supported by this message type",
	},
	"G042": {
		Category: CategoryEncode,
		Message:  "Missing header",
	},

	// ============================================
	// Config Errors (G050-G059)
	// ============================================

	"G050": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Suggestion: "Create groupwire.toml or point GROUPWIRE_CONFIG at an existing file",
	},
	"G051": {
		Category:   CategoryConfig,
		Message:    "Invalid config file",
		Suggestion: "Check that the file is valid TOML",
	},
	"G052": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
	},

	// ============================================
	// CLI Errors (G060-G069)
	// ============================================

	"G060": {
		Category: CategoryCLI,
		Message:  "Invalid input",
	},
	"G061": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},

	"G099": {
		Category: CategoryCLI,
		Message:  "Internal error",
	},
}

// sentinels maps library errors to codes, checked in order.
var sentinels = []struct {
	err  error
	code string
}{
	{io.ErrUnexpectedEOF, "G001"},
	{message.ErrUnknownMagic, "G002"},
	{message.ErrUnknownType, "G003"},
	{message.ErrInvalidHeaderID, "G004"},
	{message.ErrInvalidLength, "G005"},
	{protocol.ErrNegativeLength, "G005"},
	{protocol.ErrBufferTooShort, "G005"},
	{protocol.ErrVarintOverflow, "G006"},
	{protocol.ErrAllocationTooLarge, "G010"},
	{protocol.ErrCollectionTooLarge, "G011"},
	{protocol.ErrFrameTooLarge, "G012"},
	{marshal.ErrDecompressedTooLarge, "G021"},
	{message.ErrMarshal, "G020"},
	{marshal.ErrBadHint, "G020"},
	{marshal.ErrUnknownMarshaller, "G022"},
	{marshal.ErrUnknownAlgorithm, "G023"},
	{address.ErrUnknownKind, "G030"},
	{address.ErrInvalidIPLen, "G031"},
	{address.ErrParse, "G032"},
	{address.ErrNilAddress, "G033"},
	{message.ErrBufferBounds, "G040"},
	{message.ErrUnsupported, "G041"},
	{message.ErrNilHeader, "G042"},
}

// CodeFor returns the registered code for the first known sentinel in
// err's chain, or fallback.
func CodeFor(err error, fallback string) string {
	for _, s := range sentinels {
		if stderrors.Is(err, s.err) {
			return s.code
		}
	}
	return fallback
}

// As is errors.As, re-exported since this package shadows the standard one.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
