package wasm

import "bytes"

// Equal reports whether two modules decode to the same values. Both modules
// are fully materialized and compared by their canonical encodings, so
// padded size prefixes and non-minimal integers do not matter.
func Equal(a, b *Module) (bool, error) {
	if err := a.Materialize(); err != nil {
		return false, err
	}
	if err := b.Materialize(); err != nil {
		return false, err
	}
	return bytes.Equal(a.EncodeCanonical(), b.EncodeCanonical()), nil
}
