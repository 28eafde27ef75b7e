package wasmcodec

import (
	"github.com/wippyai/wasm-codec/wasm"
)

// Decode decodes a core module accepting every extension.
func Decode(data []byte) (*wasm.Module, error) {
	return wasm.DecodeModule(data)
}

// DecodeWithOptions decodes a core module with explicit options.
func DecodeWithOptions(data []byte, opts wasm.Options) (*wasm.Module, error) {
	return wasm.DecodeModuleWithOptions(data, opts)
}

// Encode encodes m, replaying untouched sections verbatim.
func Encode(m *wasm.Module) []byte {
	return wasm.EncodeModule(m)
}

// EncodeCanonical encodes m with minimal size prefixes for every decoded
// section.
func EncodeCanonical(m *wasm.Module) []byte {
	return m.EncodeCanonical()
}
