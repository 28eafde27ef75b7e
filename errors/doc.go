// Package errors provides structured error types for the wasm-codec library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the absolute byte offset of the failure and a field
// path built while decoders unwind, e.g. "sections[3].imports[0].desc".
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindSizeMismatch).
//		Offset(0x2a).
//		Path("code", "[2]").
//		Detail("body declared 12 bytes, decoded 10").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnexpectedEnd(off, 4, 1)
//	err := errors.UnknownDiscriminant("opcode", 0xff, off)
//
// All errors implement the standard error interface and support errors.Is/As;
// the exported Err* sentinels match any error of the same Phase and Kind.
package errors
