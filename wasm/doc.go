// Package wasm is a lossless codec for WebAssembly core binary modules.
//
// Every construct of the binary format is described as a shape from package
// codec; there is no hand-written reader or writer per section. Decoding
// checks the header and splits the input into sections. Each section payload
// stays raw until it is requested:
//
//	m, err := wasm.DecodeModule(data)
//	if err != nil {
//	    return err
//	}
//	types, err := wasm.Get[wasm.TypeSection](m.Find(wasm.SectionType))
//
// Encoding replays untouched payloads byte for byte, so sections this package
// does not understand and sections read but never modified survive exactly.
// Use GetMut to change a payload; it is re-encoded on the next Encode.
//
//	exports, _ := wasm.GetMut[wasm.ExportSection](m.Find(wasm.SectionExport))
//	exports.Exports = exports.Exports[:1]
//	out := m.Encode()
//
// # Features
//
// Options.Features selects the accepted extensions: tail calls, SIMD,
// reference types, bulk memory and threads. Opcodes, value types and
// segment forms of a disabled extension fail as unknown discriminants.
// The base set (MVP, sign extension and saturating truncation) is always
// accepted. Encoding accepts everything.
//
// # Instructions
//
// An Instruction is an Opcode and an immediate struct. block, loop and if
// carry their bodies, so an Expr is a tree:
//
//	wasm.Instruction{Op: wasm.OpBlock, Imm: wasm.BlockImm{
//	    Type: wasm.BlockEmpty,
//	    Body: wasm.Expr{{Op: wasm.OpNop}},
//	}}
//
// Function bodies in the code section are lazy on their own, so reading one
// body does not decode the others.
package wasm
