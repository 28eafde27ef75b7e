package codec_test

import (
	"bytes"
	"testing"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/errors"
)

func TestVarUint(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint64
		bits    uint
	}{
		{[]byte{0x00}, 0, 32},
		{[]byte{0x01}, 1, 32},
		{[]byte{0x7f}, 127, 32},
		{[]byte{0x80, 0x01}, 128, 32},
		{[]byte{0xe5, 0x8e, 0x26}, 624485, 32},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF, 32},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, 0xFFFFFFFFFFFFFFFF, 64},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			got := codec.AppendVarUint(nil, tt.value)
			if !bytes.Equal(got, tt.encoded) {
				t.Errorf("encode %d: got %x, want %x", tt.value, got, tt.encoded)
			}

			v, n, err := codec.ReadVarUint(tt.encoded, tt.bits)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if v != tt.value || n != len(tt.encoded) {
				t.Errorf("decode: got (%d, %d), want (%d, %d)", v, n, tt.value, len(tt.encoded))
			}
		})
	}
}

func TestVarInt(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   int64
		bits    uint
	}{
		{[]byte{0x00}, 0, 32},
		{[]byte{0x7f}, -1, 32},
		{[]byte{0x3f}, 63, 32},
		{[]byte{0xc0, 0x00}, 64, 32},
		{[]byte{0x40}, -64, 33},
		{[]byte{0xbf, 0x7f}, -65, 32},
		{[]byte{0x80, 0x7f}, -128, 32},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, -2147483648, 32},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, 2147483647, 32},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF, 33},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f}, -9223372036854775808, 64},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			got := codec.AppendVarInt(nil, tt.value)
			if !bytes.Equal(got, tt.encoded) {
				t.Errorf("encode %d: got %x, want %x", tt.value, got, tt.encoded)
			}

			v, n, err := codec.ReadVarInt(tt.encoded, tt.bits)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if v != tt.value || n != len(tt.encoded) {
				t.Errorf("decode: got (%d, %d), want (%d, %d)", v, n, tt.value, len(tt.encoded))
			}
		})
	}
}

func TestVarUint_NonMinimal(t *testing.T) {
	c := codec.NewCursor([]byte{0x80, 0x00})
	v, err := codec.DecodeVarUint(c, 32)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != 0 || c.Len() != 0 {
		t.Fatalf("got %d with %d bytes left", v, c.Len())
	}

	w := codec.NewWriter()
	w.VarUint(v)
	if !bytes.Equal(w.Bytes(), []byte{0x00}) {
		t.Errorf("re-encode: got %x, want 00", w.Bytes())
	}

	// five-byte padded zero is still a valid u32
	if _, _, err := codec.ReadVarUint([]byte{0x80, 0x80, 0x80, 0x80, 0x00}, 32); err != nil {
		t.Errorf("padded u32: %v", err)
	}
}

func TestVarUint_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		bits  uint
		kind  errors.Kind
	}{
		{"empty", nil, 32, errors.KindUnexpectedEnd},
		{"truncated", []byte{0x80, 0x80}, 32, errors.KindUnexpectedEnd},
		{"u32 sixth byte", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, 32, errors.KindVarIntOverflow},
		{"u32 unused bits", []byte{0xff, 0xff, 0xff, 0xff, 0x1f}, 32, errors.KindVarIntOverflow},
		{"u64 unused bits", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}, 64, errors.KindVarIntOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.ReadVarUint(tt.input, tt.bits)
			if got := errors.KindOf(err); got != tt.kind {
				t.Errorf("kind = %q, want %q (err: %v)", got, tt.kind, err)
			}
		})
	}
}

func TestVarInt_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		bits  uint
	}{
		{"s32 positive overflow", []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 32},
		{"s32 negative overflow", []byte{0x80, 0x80, 0x80, 0x80, 0x70}, 32},
		{"s33 continuation in last byte", []byte{0x80, 0x80, 0x80, 0x80, 0x80}, 33},
		{"s64 bad sign bits", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.ReadVarInt(tt.input, tt.bits)
			if got := errors.KindOf(err); got != errors.KindVarIntOverflow {
				t.Errorf("kind = %q, want varint_overflow (err: %v)", got, err)
			}
		})
	}
}

func TestDecodeVarUint_BoundedIsSizeMismatch(t *testing.T) {
	c := codec.NewBoundedCursor([]byte{0x80}, 10, codec.Config{})
	_, err := codec.DecodeVarUint(c, 32)
	if errors.KindOf(err) != errors.KindSizeMismatch {
		t.Fatalf("expected size mismatch, got %v", err)
	}
}

func TestDecodeVarUint_Offset(t *testing.T) {
	c := codec.NewBoundedCursor([]byte{0x01, 0xff, 0xff, 0xff, 0xff, 0x7f}, 100, codec.Config{})
	if _, err := codec.DecodeVarUint(c, 32); err != nil {
		t.Fatal(err)
	}
	_, err := codec.DecodeVarUint(c, 32)
	var e *errors.Error
	if !asError(err, &e) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if e.Offset != 105 {
		t.Errorf("offset = %d, want 105", e.Offset)
	}
}
