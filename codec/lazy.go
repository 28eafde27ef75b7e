package codec

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-codec/errors"
)

// State is the materialization state of a Lazy value.
type State uint8

const (
	// StateRaw holds only the original bytes.
	StateRaw State = iota + 1
	// StateMaterialized holds only a decoded value.
	StateMaterialized
	// StateBoth holds the original bytes and an equivalent decoded value.
	StateBoth
)

func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateMaterialized:
		return "materialized"
	case StateBoth:
		return "both"
	}
	return "unknown"
}

// Lazy holds a value that may still be in its encoded form.
//
// A decoded Lazy starts Raw. Get decodes it once and keeps the bytes (Both);
// GetMut and Set drop the bytes and mark the value dirty (Materialized).
// Encoding replays the original bytes unless the value is dirty.
// A Lazy is not safe for concurrent use.
type Lazy[T any] struct {
	value  T
	shape  Codec[T]
	raw    []byte
	prefix []byte
	cfg    Config
	offset int
	state  State
	dirty  bool
}

// NewRaw wraps an undecoded span. offset is the absolute position of raw[0]
// in the original input and is used for error reporting.
func NewRaw[T any](raw []byte, offset int, shape Codec[T]) *Lazy[T] {
	return &Lazy[T]{raw: raw, offset: offset, shape: shape, state: StateRaw}
}

// NewValue wraps a value that never had an encoded form.
func NewValue[T any](v T) *Lazy[T] {
	return &Lazy[T]{value: v, state: StateMaterialized, offset: errors.NoOffset, dirty: true}
}

// State returns the current materialization state.
func (l *Lazy[T]) State() State {
	return l.state
}

// Dirty reports whether the value was mutated, never had raw bytes, or holds
// a nested value that is dirty.
func (l *Lazy[T]) Dirty() bool {
	return l.dirty || l.nestedDirty()
}

// Nested is implemented by values that hold Lazy values of their own.
// A decoded Lazy whose value reports Dirty is re-encoded instead of replayed,
// so edits made through GetMut on an inner value reach the output.
type Nested interface {
	Dirty() bool
}

func (l *Lazy[T]) nestedDirty() bool {
	if l.state == StateRaw {
		return false
	}
	n, ok := any(&l.value).(Nested)
	return ok && n.Dirty()
}

// Offset returns the absolute input offset of the raw span, or
// errors.NoOffset for values built in memory.
func (l *Lazy[T]) Offset() int {
	return l.offset
}

// PeekRaw returns the original bytes without decoding. ok is false once the
// bytes have been discarded.
func (l *Lazy[T]) PeekRaw() ([]byte, bool) {
	if l.state == StateMaterialized {
		return nil, false
	}
	return l.raw, true
}

func (l *Lazy[T]) materialize() error {
	if l.state != StateRaw {
		return nil
	}
	if l.shape == nil {
		panic("codec: raw lazy value without a shape")
	}
	c := NewBoundedCursor(l.raw, l.offset, l.cfg)
	v, err := l.shape.Decode(c)
	if err != nil {
		return err
	}
	if err := c.ExpectEnd(); err != nil {
		return err
	}
	Logger().Debug("materialized lazy value",
		zap.Int("offset", l.offset),
		zap.Int("size", len(l.raw)))
	l.value = v
	l.state = StateBoth
	return nil
}

// Get decodes the value on first use and returns it. The raw bytes are kept,
// so changes made through the returned pointer are not encoded. Use GetMut
// to mutate.
func (l *Lazy[T]) Get() (*T, error) {
	if err := l.materialize(); err != nil {
		return nil, err
	}
	return &l.value, nil
}

// GetMut decodes the value if needed, discards the raw bytes and returns a
// pointer for mutation.
func (l *Lazy[T]) GetMut() (*T, error) {
	if err := l.materialize(); err != nil {
		return nil, err
	}
	l.drop()
	return &l.value, nil
}

// Set replaces the value and discards the raw bytes.
func (l *Lazy[T]) Set(v T) {
	l.value = v
	l.drop()
}

func (l *Lazy[T]) drop() {
	l.raw = nil
	l.prefix = nil
	l.state = StateMaterialized
	l.dirty = true
}

// EncodeTo writes the value with no size prefix. Untouched bytes are
// replayed verbatim unless w is canonical and a decoded value exists.
func (l *Lazy[T]) EncodeTo(w *Writer, shape Codec[T]) {
	if l.replay(w) {
		w.Write(l.raw)
		return
	}
	if shape == nil {
		shape = l.shape
	}
	shape.Encode(w, l.value)
}

func (l *Lazy[T]) replay(w *Writer) bool {
	switch l.state {
	case StateRaw:
		return true
	case StateBoth:
		return !w.canonical && !l.nestedDirty()
	}
	return false
}

type sized[T any] struct {
	shape Codec[T]
}

// Sized is a size-prefixed span kept lazy until accessed.
func Sized[T any](shape Codec[T]) Codec[*Lazy[T]] {
	return sized[T]{shape: shape}
}

func (s sized[T]) Decode(c *Cursor) (*Lazy[T], error) {
	start := c.pos
	n, err := DecodeVarUint(c, 32)
	if err != nil {
		return nil, err
	}
	prefix := c.data[start:c.pos]
	off := c.Offset()
	raw, err := c.Raw(int(n))
	if err != nil {
		return nil, err
	}
	l := NewRaw(raw, off, s.shape)
	l.cfg = c.cfg
	// the original prefix may be padded; keep it for verbatim replay
	if len(prefix) != len(AppendVarUint(nil, n)) {
		l.prefix = append([]byte(nil), prefix...)
	}
	return l, nil
}

func (s sized[T]) Encode(w *Writer, l *Lazy[T]) {
	if l.replay(w) {
		if l.prefix != nil && !w.canonical {
			w.Write(l.prefix)
		} else {
			w.VarUint(uint64(len(l.raw)))
		}
		w.Write(l.raw)
		return
	}
	sub := w.scratch()
	l.EncodeTo(sub, s.shape)
	w.Blob(sub.Bytes())
}
