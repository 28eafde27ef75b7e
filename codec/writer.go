package codec

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates encoded output.
type Writer struct {
	buf       *bytes.Buffer
	canonical bool
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// NewCanonicalWriter creates a Writer that re-encodes every materialized lazy
// value instead of replaying its original bytes. Output from two canonical
// writers is equal exactly when the written values are equal.
func NewCanonicalWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}, canonical: true}
}

// Canonical reports whether raw spans are ignored for materialized values.
func (w *Writer) Canonical() bool {
	return w.canonical
}

// scratch returns an empty writer with the same mode.
func (w *Writer) scratch() *Writer {
	return &Writer{buf: &bytes.Buffer{}, canonical: w.canonical}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

// Write writes a byte slice.
func (w *Writer) Write(data []byte) {
	w.buf.Write(data)
}

// VarUint writes v as a minimal unsigned LEB128.
func (w *Writer) VarUint(v uint64) {
	var tmp [10]byte
	w.buf.Write(AppendVarUint(tmp[:0], v))
}

// VarInt writes v as a minimal signed LEB128.
func (w *Writer) VarInt(v int64) {
	var tmp [10]byte
	w.buf.Write(AppendVarInt(tmp[:0], v))
}

// U32LE writes a little-endian uint32.
func (w *Writer) U32LE(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// U64LE writes a little-endian uint64.
func (w *Writer) U64LE(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

// Blob writes a length-prefixed byte string.
func (w *Writer) Blob(data []byte) {
	w.VarUint(uint64(len(data)))
	w.buf.Write(data)
}
