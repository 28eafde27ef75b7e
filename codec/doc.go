// Package codec is a small declarative engine for length-prefixed binary
// formats.
//
// A shape is a value implementing Codec[T]. Leaf shapes cover the primitive
// encodings (LEB128 varints, little-endian fixed-width integers, UTF-8 names
// and blobs). Record, Union, Seq, Terminated, Option and the other
// combinators compose leaves into a grammar, and one generic engine drives
// both directions:
//
//	limits := codec.Record[Limits]("limits",
//		codec.Field("min", codec.U32(), func(l *Limits) *uint32 { return &l.Min }),
//	)
//	v, err := limits.Decode(codec.NewCursor(data))
//
// Decoding reads from a Cursor. Failures are *errors.Error values carrying the
// absolute input offset and the field path assembled while unwinding.
// Encoding writes into a Writer and never fails for well-formed values.
//
// Lazy[T] keeps a span of input undecoded until first access and replays the
// original bytes on encode until the value is mutated. Sized wraps a shape in
// a size-prefixed lazy envelope.
package codec
