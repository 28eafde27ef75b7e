package codec

import (
	"github.com/wippyai/wasm-codec/errors"
)

// FieldSpec describes one field of a record shape.
type FieldSpec[S any] struct {
	when   func(*S) bool
	decode func(c *Cursor, s *S) error
	encode func(w *Writer, s *S)
	name   string
}

// Field binds a shape to a location inside S.
func Field[S, T any](name string, shape Codec[T], at func(*S) *T) FieldSpec[S] {
	return FieldSpec[S]{
		name: name,
		decode: func(c *Cursor, s *S) error {
			v, err := shape.Decode(c)
			if err != nil {
				return err
			}
			*at(s) = v
			return nil
		},
		encode: func(w *Writer, s *S) {
			shape.Encode(w, *at(s))
		},
	}
}

// Marker is a field with no storage, such as a magic number or a fixed
// prefix byte.
func Marker[S any](name string, shape Codec[struct{}]) FieldSpec[S] {
	return FieldSpec[S]{
		name: name,
		decode: func(c *Cursor, _ *S) error {
			_, err := shape.Decode(c)
			return err
		},
		encode: func(w *Writer, _ *S) {
			shape.Encode(w, struct{}{})
		},
	}
}

// When makes the field conditional on fields decoded before it.
func (f FieldSpec[S]) When(pred func(*S) bool) FieldSpec[S] {
	f.when = pred
	return f
}

// Name returns the field name used in error paths.
func (f FieldSpec[S]) Name() string {
	return f.name
}

// RecordCodec is an ordered set of fields encoded back to back.
type RecordCodec[S any] struct {
	name   string
	fields []FieldSpec[S]
}

// Record builds a record shape. Field order is the wire order.
func Record[S any](name string, fields ...FieldSpec[S]) *RecordCodec[S] {
	return &RecordCodec[S]{name: name, fields: fields}
}

// Name returns the record name.
func (r *RecordCodec[S]) Name() string {
	return r.name
}

func (r *RecordCodec[S]) Decode(c *Cursor) (S, error) {
	var s S
	for _, f := range r.fields {
		if f.when != nil && !f.when(&s) {
			continue
		}
		if err := f.decode(c, &s); err != nil {
			var zero S
			return zero, errors.WithPath(err, f.name)
		}
	}
	return s, nil
}

func (r *RecordCodec[S]) Encode(w *Writer, v S) {
	for _, f := range r.fields {
		if f.when != nil && !f.when(&v) {
			continue
		}
		f.encode(w, &v)
	}
}
