package codec

import (
	"github.com/wippyai/wasm-codec/errors"
)

// ReadVarUint decodes an unsigned LEB128 of at most bits bits from the start
// of p. It returns the value and the number of bytes consumed. Non-minimal
// encodings are accepted as long as the padding fits the width.
func ReadVarUint(p []byte, bits uint) (uint64, int, error) {
	return readVarUint(p, bits, 0)
}

// ReadVarInt decodes a signed LEB128 of at most bits bits from the start of p.
func ReadVarInt(p []byte, bits uint) (int64, int, error) {
	return readVarInt(p, bits, 0)
}

func readVarUint(p []byte, bits uint, base int) (uint64, int, error) {
	maxBytes := int((bits + 6) / 7)
	var result uint64
	for i := 0; i < maxBytes; i++ {
		if i >= len(p) {
			return 0, i, errors.UnexpectedEnd(base+i, 1, 0)
		}
		b := p[i]
		shift := uint(7 * i)
		if i == maxBytes-1 {
			rem := bits - shift
			if b&0x80 != 0 || (rem < 7 && b>>rem != 0) {
				return 0, i + 1, errors.VarIntOverflow(base+i, bits)
			}
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, maxBytes, errors.VarIntOverflow(base+maxBytes-1, bits)
}

func readVarInt(p []byte, bits uint, base int) (int64, int, error) {
	maxBytes := int((bits + 6) / 7)
	var result int64
	for i := 0; i < maxBytes; i++ {
		if i >= len(p) {
			return 0, i, errors.UnexpectedEnd(base+i, 1, 0)
		}
		b := p[i]
		shift := uint(7 * i)
		if i == maxBytes-1 {
			if b&0x80 != 0 {
				return 0, i + 1, errors.VarIntOverflow(base+i, bits)
			}
			// unused high bits must replicate the sign bit
			if rem := bits - shift; rem < 7 {
				mask := byte(0x7f) &^ (byte(1)<<(rem-1) - 1)
				if hi := b & mask; hi != 0 && hi != mask {
					return 0, i + 1, errors.VarIntOverflow(base+i, bits)
				}
			}
		}
		result |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			if next := shift + 7; next < 64 && b&0x40 != 0 {
				result |= -1 << next
			}
			return result, i + 1, nil
		}
	}
	return 0, maxBytes, errors.VarIntOverflow(base+maxBytes-1, bits)
}

// DecodeVarUint reads an unsigned LEB128 of at most bits bits.
func DecodeVarUint(c *Cursor, bits uint) (uint64, error) {
	v, n, err := readVarUint(c.data[c.pos:], bits, c.Offset())
	if err != nil {
		if c.bounded && errors.KindOf(err) == errors.KindUnexpectedEnd {
			return 0, errors.SizeMismatch(c.Offset()+n, "varint runs past declared end")
		}
		return 0, err
	}
	c.pos += n
	return v, nil
}

// DecodeVarInt reads a signed LEB128 of at most bits bits.
func DecodeVarInt(c *Cursor, bits uint) (int64, error) {
	v, n, err := readVarInt(c.data[c.pos:], bits, c.Offset())
	if err != nil {
		if c.bounded && errors.KindOf(err) == errors.KindUnexpectedEnd {
			return 0, errors.SizeMismatch(c.Offset()+n, "varint runs past declared end")
		}
		return 0, err
	}
	c.pos += n
	return v, nil
}

// AppendVarUint appends the minimal unsigned LEB128 encoding of v.
func AppendVarUint(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendVarInt appends the minimal signed LEB128 encoding of v.
func AppendVarInt(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}
