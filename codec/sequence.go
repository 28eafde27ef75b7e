package codec

import (
	"strconv"

	"github.com/wippyai/wasm-codec/errors"
)

func index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

type seq[T any] struct {
	elem Codec[T]
}

// Seq is a 32-bit LEB128 count followed by exactly that many elements.
// An empty sequence decodes to nil.
func Seq[T any](elem Codec[T]) Codec[[]T] {
	return seq[T]{elem: elem}
}

func (s seq[T]) Decode(c *Cursor) ([]T, error) {
	n, err := DecodeVarUint(c, 32)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	// a hostile count must not drive the allocation
	out := make([]T, 0, min(int(n), c.Len()))
	for i := 0; i < int(n); i++ {
		v, err := s.elem.Decode(c)
		if err != nil {
			return nil, errors.WithPath(err, index(i))
		}
		out = append(out, v)
	}
	return out, nil
}

func (s seq[T]) Encode(w *Writer, v []T) {
	w.VarUint(uint64(len(v)))
	for _, e := range v {
		s.elem.Encode(w, e)
	}
}

type delimited[T any] struct {
	elem    Codec[T]
	stops   []byte
	consume bool
}

// Terminated decodes elements until the end byte, which it consumes.
// Running out of input first is an unterminated block. Each Terminated
// sequence counts as one level of nesting.
func Terminated[T any](elem Codec[T], end byte) Codec[[]T] {
	return delimited[T]{elem: elem, stops: []byte{end}, consume: true}
}

// Until decodes elements until the next byte is one of stops and leaves that
// byte unread. Encoding writes no terminator.
func Until[T any](elem Codec[T], stops ...byte) Codec[[]T] {
	return delimited[T]{elem: elem, stops: stops}
}

func (d delimited[T]) isStop(b byte) bool {
	for _, s := range d.stops {
		if s == b {
			return true
		}
	}
	return false
}

func (d delimited[T]) Decode(c *Cursor) ([]T, error) {
	if err := c.Enter(); err != nil {
		return nil, err
	}
	defer c.Leave()

	var out []T
	for {
		if c.Len() == 0 {
			return nil, errors.UnterminatedBlock(c.Offset(), d.stops[len(d.stops)-1])
		}
		b := c.data[c.pos]
		if d.isStop(b) {
			if d.consume {
				c.pos++
			}
			return out, nil
		}
		v, err := d.elem.Decode(c)
		if err != nil {
			return nil, errors.WithPath(err, index(len(out)))
		}
		out = append(out, v)
	}
}

func (d delimited[T]) Encode(w *Writer, v []T) {
	for _, e := range v {
		d.elem.Encode(w, e)
	}
	if d.consume {
		w.Byte(d.stops[0])
	}
}

type untilEnd[T any] struct {
	elem Codec[T]
}

// UntilEnd decodes elements until the cursor is exhausted.
func UntilEnd[T any](elem Codec[T]) Codec[[]T] {
	return untilEnd[T]{elem: elem}
}

func (u untilEnd[T]) Decode(c *Cursor) ([]T, error) {
	var out []T
	for c.Len() > 0 {
		v, err := u.elem.Decode(c)
		if err != nil {
			return nil, errors.WithPath(err, index(len(out)))
		}
		out = append(out, v)
	}
	return out, nil
}

func (u untilEnd[T]) Encode(w *Writer, v []T) {
	for _, e := range v {
		u.elem.Encode(w, e)
	}
}
