// Package errors provides structured, actionable error messages for the
// groupwire command line tools.
//
// Codec failures surface as sentinel errors from pkg/message, pkg/protocol,
// pkg/address and pkg/marshal. This package maps them onto coded errors
// that explain what went wrong and how to fix it, and can point at the
// offending byte of the input.
//
// # Error Categories
//
//   - decode: malformed or truncated input
//   - encode: a message that cannot be written
//   - limit: input exceeding a configured ceiling
//   - address: unknown or malformed addresses
//   - marshal: object payload serialization
//   - config: configuration file problems
//   - cli: command line usage
//
// # Usage
//
//	err := errors.FromError(decodeErr, "G099").
//	    WithInput(data, pos).
//	    WithSuggestion("Check that the sender and receiver share a registry")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR G002: Unknown magic id
//	//
//	//   offset 24 (0x18)
//	//
//	//     00000010 │ 88 99 aa bb cc dd ee ff  00 01 00 05 03 84 01 58
//	//   → 00000018 │ 03 84 01 58 00 00 00 04
//	//              │ ^^
//	//
//	//   Hint: Check that the sender and receiver share a registry
package errors
