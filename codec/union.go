package codec

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/wippyai/wasm-codec/errors"
)

// Tag reads and writes a union discriminant.
type Tag interface {
	ReadTag(c *Cursor) (uint32, error)
	WriteTag(w *Writer, tag uint32)
}

// TagFormatter is implemented by tags whose discriminants are not written
// as a single number. FormatTag renders tag the way it appears in the input;
// ok is false to fall back to the numeric form.
type TagFormatter interface {
	FormatTag(tag uint32) (s string, ok bool)
}

type byteTag struct{}

func (byteTag) ReadTag(c *Cursor) (uint32, error) {
	b, err := c.ReadByte()
	return uint32(b), err
}

func (byteTag) WriteTag(w *Writer, tag uint32) {
	w.Byte(byte(tag))
}

type varTag struct{}

func (varTag) ReadTag(c *Cursor) (uint32, error) {
	v, err := DecodeVarUint(c, 32)
	return uint32(v), err
}

func (varTag) WriteTag(w *Writer, tag uint32) {
	w.VarUint(uint64(tag))
}

var (
	// ByteTag is a single-byte discriminant.
	ByteTag Tag = byteTag{}
	// VarTag is a 32-bit LEB128 discriminant.
	VarTag Tag = varTag{}
)

// VariantSpec describes one alternative of a union.
type VariantSpec[U any] struct {
	decode func(c *Cursor) (U, error)
	encode func(w *Writer, v U)
	typ    reflect.Type
	name   string
	tag    uint32
}

// Variant binds a payload shape to a discriminant. wrap and unwrap convert
// between the payload and the union type.
func Variant[U, V any](tag uint32, name string, payload Codec[V], wrap func(V) U, unwrap func(U) V) VariantSpec[U] {
	return VariantSpec[U]{
		tag:  tag,
		name: name,
		decode: func(c *Cursor) (U, error) {
			v, err := payload.Decode(c)
			if err != nil {
				var zero U
				return zero, err
			}
			return wrap(v), nil
		},
		encode: func(w *Writer, u U) {
			payload.Encode(w, unwrap(u))
		},
	}
}

// Case is a variant of an interface union. The concrete type V selects the
// discriminant on encode.
func Case[U, V any](tag uint32, name string, payload Codec[V]) VariantSpec[U] {
	var zero V
	if _, ok := any(zero).(U); !ok {
		panic(fmt.Sprintf("codec: %T does not implement union type", zero))
	}
	spec := Variant(tag, name, payload,
		func(v V) U { return any(v).(U) },
		func(u U) V { return any(u).(V) },
	)
	spec.typ = reflect.TypeOf(zero)
	return spec
}

// FallbackSpec retains discriminants no variant claims.
type FallbackSpec[U any] struct {
	decode func(c *Cursor, tag uint32) (U, error)
	tagOf  func(u U) (uint32, bool)
	encode func(w *Writer, u U)
	name   string
}

// Fallback keeps unknown alternatives as opaque payloads. unwrap reports
// false for values that are not opaque.
func Fallback[U, V any](name string, payload Codec[V], wrap func(tag uint32, v V) U, unwrap func(U) (uint32, V, bool)) FallbackSpec[U] {
	return FallbackSpec[U]{
		name: name,
		decode: func(c *Cursor, tag uint32) (U, error) {
			v, err := payload.Decode(c)
			if err != nil {
				var zero U
				return zero, err
			}
			return wrap(tag, v), nil
		},
		tagOf: func(u U) (uint32, bool) {
			tag, _, ok := unwrap(u)
			return tag, ok
		},
		encode: func(w *Writer, u U) {
			_, v, _ := unwrap(u)
			payload.Encode(w, v)
		},
	}
}

// UnionCodec is a closed set of variants selected by a discriminant.
type UnionCodec[U any] struct {
	tag      Tag
	key      func(U) uint32
	fallback *FallbackSpec[U]
	variants map[uint32]*VariantSpec[U]
	byType   map[reflect.Type]uint32
	name     string
}

// Union builds a tagged union shape. Discriminants must be unique.
func Union[U any](name string, tag Tag, variants ...VariantSpec[U]) *UnionCodec[U] {
	u := &UnionCodec[U]{
		name:     name,
		tag:      tag,
		variants: make(map[uint32]*VariantSpec[U], len(variants)),
		byType:   make(map[reflect.Type]uint32),
	}
	for i := range variants {
		u.add(variants[i])
	}
	return u
}

func (u *UnionCodec[U]) add(v VariantSpec[U]) {
	if _, dup := u.variants[v.tag]; dup {
		panic(fmt.Sprintf("codec: union %s: duplicate discriminant 0x%x", u.name, v.tag))
	}
	u.variants[v.tag] = &v
	if v.typ != nil {
		if prev, dup := u.byType[v.typ]; dup {
			panic(fmt.Sprintf("codec: union %s: type %s used by 0x%x and 0x%x", u.name, v.typ, prev, v.tag))
		}
		u.byType[v.typ] = v.tag
	}
}

// With adds variants to the union.
func (u *UnionCodec[U]) With(variants ...VariantSpec[U]) *UnionCodec[U] {
	for i := range variants {
		u.add(variants[i])
	}
	return u
}

// KeyedBy sets the function that selects the discriminant on encode.
// Unions built only from Case variants do not need one.
func (u *UnionCodec[U]) KeyedBy(key func(U) uint32) *UnionCodec[U] {
	u.key = key
	return u
}

// Otherwise installs an opaque fallback for unknown discriminants.
func (u *UnionCodec[U]) Otherwise(f FallbackSpec[U]) *UnionCodec[U] {
	u.fallback = &f
	return u
}

// Name returns the union name used in errors.
func (u *UnionCodec[U]) Name() string {
	return u.name
}

// Has reports whether a discriminant is claimed by a variant.
func (u *UnionCodec[U]) Has(tag uint32) bool {
	_, ok := u.variants[tag]
	return ok
}

// Tags returns every claimed discriminant in ascending order.
func (u *UnionCodec[U]) Tags() []uint32 {
	tags := make([]uint32, 0, len(u.variants))
	for t := range u.variants {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// VariantName returns the name of the variant claiming tag.
func (u *UnionCodec[U]) VariantName(tag uint32) (string, bool) {
	v, ok := u.variants[tag]
	if !ok {
		return "", false
	}
	return v.name, true
}

func (u *UnionCodec[U]) Decode(c *Cursor) (U, error) {
	off := c.Offset()
	tag, err := u.tag.ReadTag(c)
	if err != nil {
		var zero U
		return zero, err
	}
	v, ok := u.variants[tag]
	if !ok {
		if u.fallback != nil {
			val, err := u.fallback.decode(c, tag)
			if err != nil {
				return val, errors.WithPath(err, u.fallback.name)
			}
			return val, nil
		}
		var zero U
		return zero, u.unknown(tag, off)
	}
	val, err := v.decode(c)
	if err != nil {
		return val, errors.WithPath(err, v.name)
	}
	return val, nil
}

func (u *UnionCodec[U]) unknown(tag uint32, off int) *errors.Error {
	if f, ok := u.tag.(TagFormatter); ok {
		if s, ok := f.FormatTag(tag); ok {
			return errors.UnknownDiscriminantText(u.name, s, off)
		}
	}
	return errors.UnknownDiscriminant(u.name, uint64(tag), off)
}

func (u *UnionCodec[U]) Encode(w *Writer, val U) {
	if v, ok := u.lookup(val); ok {
		u.tag.WriteTag(w, v.tag)
		v.encode(w, val)
		return
	}
	if u.fallback != nil {
		if tag, ok := u.fallback.tagOf(val); ok {
			u.tag.WriteTag(w, tag)
			u.fallback.encode(w, val)
			return
		}
	}
	panic(fmt.Sprintf("codec: union %s: no variant for %T", u.name, val))
}

func (u *UnionCodec[U]) lookup(val U) (*VariantSpec[U], bool) {
	var tag uint32
	if u.key != nil {
		tag = u.key(val)
	} else {
		t, ok := u.byType[reflect.TypeOf(val)]
		if !ok {
			return nil, false
		}
		tag = t
	}
	v, ok := u.variants[tag]
	return v, ok
}
