package codec

import (
	"fmt"
)

// Option is a two-way union: none decodes to nil, some is followed by the
// payload.
func Option[T any](name string, none, some byte, payload Codec[T]) Codec[*T] {
	return Union[*T](name, ByteTag,
		Variant(uint32(none), "none", Unit(),
			func(struct{}) *T { return nil },
			func(*T) struct{} { return struct{}{} },
		),
		Variant(uint32(some), "some", payload,
			func(v T) *T { return &v },
			func(p *T) T { return *p },
		),
	).KeyedBy(func(p *T) uint32 {
		if p == nil {
			return uint32(none)
		}
		return uint32(some)
	})
}

// Enum is a single byte restricted to the listed values.
func Enum[T ~uint8](name string, values ...T) *UnionCodec[T] {
	variants := make([]VariantSpec[T], 0, len(values))
	for _, v := range values {
		variants = append(variants, Variant(uint32(v), fmt.Sprint(v), Unit(),
			func(struct{}) T { return v },
			func(T) struct{} { return struct{}{} },
		))
	}
	return Union(name, ByteTag, variants...).KeyedBy(func(v T) uint32 { return uint32(v) })
}

// Bounded is a size-prefixed value decoded eagerly. The payload must consume
// the declared size exactly.
func Bounded[T any](shape Codec[T]) Codec[T] {
	return bounded[T]{shape: shape}
}

type bounded[T any] struct {
	shape Codec[T]
}

func (b bounded[T]) Decode(c *Cursor) (T, error) {
	var zero T
	n, err := DecodeVarUint(c, 32)
	if err != nil {
		return zero, err
	}
	sub, err := c.Sub(int(n))
	if err != nil {
		return zero, err
	}
	v, err := b.shape.Decode(sub)
	if err != nil {
		return zero, err
	}
	if err := sub.ExpectEnd(); err != nil {
		return zero, err
	}
	return v, nil
}

func (b bounded[T]) Encode(w *Writer, v T) {
	sub := w.scratch()
	b.shape.Encode(sub, v)
	w.Blob(sub.Bytes())
}
