package codec

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/wippyai/wasm-codec/errors"
)

// Byte is a single raw byte.
func Byte() Codec[byte] {
	return leaf[byte]{
		dec: func(c *Cursor) (byte, error) { return c.ReadByte() },
		enc: func(w *Writer, v byte) { w.Byte(v) },
	}
}

// Unit consumes and writes nothing.
func Unit() Codec[struct{}] {
	return leaf[struct{}]{
		dec: func(*Cursor) (struct{}, error) { return struct{}{}, nil },
		enc: func(*Writer, struct{}) {},
	}
}

// VarUint is an unsigned LEB128 of at most bits bits.
func VarUint(bits uint) Codec[uint64] {
	return leaf[uint64]{
		dec: func(c *Cursor) (uint64, error) { return DecodeVarUint(c, bits) },
		enc: func(w *Writer, v uint64) { w.VarUint(v) },
	}
}

// VarInt is a signed LEB128 of at most bits bits.
func VarInt(bits uint) Codec[int64] {
	return leaf[int64]{
		dec: func(c *Cursor) (int64, error) { return DecodeVarInt(c, bits) },
		enc: func(w *Writer, v int64) { w.VarInt(v) },
	}
}

// U32 is an unsigned 32-bit LEB128.
func U32() Codec[uint32] {
	return leaf[uint32]{
		dec: func(c *Cursor) (uint32, error) {
			v, err := DecodeVarUint(c, 32)
			return uint32(v), err
		},
		enc: func(w *Writer, v uint32) { w.VarUint(uint64(v)) },
	}
}

// U64 is an unsigned 64-bit LEB128.
func U64() Codec[uint64] {
	return VarUint(64)
}

// S32 is a signed 32-bit LEB128.
func S32() Codec[int32] {
	return leaf[int32]{
		dec: func(c *Cursor) (int32, error) {
			v, err := DecodeVarInt(c, 32)
			return int32(v), err
		},
		enc: func(w *Writer, v int32) { w.VarInt(int64(v)) },
	}
}

// S33 is a signed 33-bit LEB128, the width of block types.
func S33() Codec[int64] {
	return VarInt(33)
}

// S64 is a signed 64-bit LEB128.
func S64() Codec[int64] {
	return VarInt(64)
}

// U32As is a 32-bit LEB128 decoded into a named integer type.
func U32As[T ~uint32]() Codec[T] {
	return leaf[T]{
		dec: func(c *Cursor) (T, error) {
			v, err := DecodeVarUint(c, 32)
			return T(v), err
		},
		enc: func(w *Writer, v T) { w.VarUint(uint64(v)) },
	}
}

// Fixed32 is a little-endian uint32.
func Fixed32() Codec[uint32] {
	return leaf[uint32]{
		dec: func(c *Cursor) (uint32, error) {
			b, err := c.Next(4)
			if err != nil {
				return 0, err
			}
			return binary.LittleEndian.Uint32(b), nil
		},
		enc: func(w *Writer, v uint32) { w.U32LE(v) },
	}
}

// Fixed64 is a little-endian uint64.
func Fixed64() Codec[uint64] {
	return leaf[uint64]{
		dec: func(c *Cursor) (uint64, error) {
			b, err := c.Next(8)
			if err != nil {
				return 0, err
			}
			return binary.LittleEndian.Uint64(b), nil
		},
		enc: func(w *Writer, v uint64) { w.U64LE(v) },
	}
}

// Bytes is a length-prefixed blob.
func Bytes() Codec[[]byte] {
	return leaf[[]byte]{
		dec: func(c *Cursor) ([]byte, error) {
			n, err := DecodeVarUint(c, 32)
			if err != nil {
				return nil, err
			}
			return c.Raw(int(n))
		},
		enc: func(w *Writer, v []byte) { w.Blob(v) },
	}
}

// Name is a length-prefixed UTF-8 string.
func Name() Codec[string] {
	return leaf[string]{
		dec: func(c *Cursor) (string, error) {
			n, err := DecodeVarUint(c, 32)
			if err != nil {
				return "", err
			}
			off := c.Offset()
			b, err := c.Next(int(n))
			if err != nil {
				return "", err
			}
			if !utf8.Valid(b) {
				return "", errors.InvalidUTF8(off, b)
			}
			return string(b), nil
		},
		enc: func(w *Writer, v string) {
			w.VarUint(uint64(len(v)))
			w.Write([]byte(v))
		},
	}
}

// FixedBytes is exactly n raw bytes with no prefix. Encoding a value of the
// wrong length writes it zero-padded or truncated to n.
func FixedBytes(n int) Codec[[]byte] {
	return leaf[[]byte]{
		dec: func(c *Cursor) ([]byte, error) { return c.Raw(n) },
		enc: func(w *Writer, v []byte) {
			out := make([]byte, n)
			copy(out, v)
			w.Write(out)
		},
	}
}

// Remaining consumes every byte left in the cursor.
func Remaining() Codec[[]byte] {
	return leaf[[]byte]{
		dec: func(c *Cursor) ([]byte, error) { return c.Rest(), nil },
		enc: func(w *Writer, v []byte) { w.Write(v) },
	}
}

// Bool is a strict 0/1 byte.
func Bool() Codec[bool] {
	return leaf[bool]{
		dec: func(c *Cursor) (bool, error) {
			off := c.Offset()
			b, err := c.ReadByte()
			if err != nil {
				return false, err
			}
			switch b {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
			return false, errors.UnknownDiscriminant("bool", uint64(b), off)
		},
		enc: func(w *Writer, v bool) {
			if v {
				w.Byte(1)
			} else {
				w.Byte(0)
			}
		},
	}
}
