// Package wasmcodec reads and writes WebAssembly core module binaries.
//
// Decoding is lazy: section payloads and function bodies stay as raw bytes
// until they are accessed, and anything never touched is written back byte
// for byte. Editing a section re-encodes only that section.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	wasmcodec/           Root package with Decode and Encode shortcuts
//	├── codec/           Binary shape engine: varints, records, unions, lazy values
//	├── wasm/            Module grammar, sections, instructions, feature flags
//	├── errors/          Structured error types with byte offsets and paths
//	├── modgen/          Deterministic random module generator for fuzzing
//	├── roundtrip/       Round-trip checks over single modules and corpora
//	└── cmd/wasmcodec/   Command line inspector and round-trip tool
//
// # Quick Start
//
// Decode, edit and re-encode a module:
//
//	m, err := wasmcodec.Decode(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := m.Find(wasm.SectionExport)
//	exports, err := wasm.GetMut[wasm.ExportSection](s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exports.Exports[0].Name = "main"
//
//	out := wasmcodec.Encode(m) // other sections are copied verbatim
//
// # Extensions
//
// wasm.Features selects the extensions accepted while decoding: tail calls,
// SIMD, reference types, bulk memory and threads. Encoding accepts all of
// them. Opcodes and section forms of a disabled extension decode as unknown.
//
// # Errors
//
// Every failure is an *errors.Error carrying a phase, a kind, the byte
// offset and a field path such as "sections[3].imports[0].desc". Decoding is
// all or nothing: no module is returned on failure.
//
// # Thread Safety
//
// A Module is not safe for concurrent use because reading a lazy section
// mutates it. Grammars returned by wasm.GrammarFor are immutable and shared.
package wasmcodec
