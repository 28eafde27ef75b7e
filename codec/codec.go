package codec

// Codec is a shape: a bidirectional mapping between T and its wire form.
// Decode consumes exactly the bytes of one value. Encode is total for every
// value the shape can represent.
type Codec[T any] interface {
	Decode(c *Cursor) (T, error)
	Encode(w *Writer, v T)
}

type leaf[T any] struct {
	dec func(c *Cursor) (T, error)
	enc func(w *Writer, v T)
}

func (l leaf[T]) Decode(c *Cursor) (T, error) { return l.dec(c) }
func (l leaf[T]) Encode(w *Writer, v T)       { l.enc(w, v) }

type mapped[A, B any] struct {
	inner Codec[A]
	to    func(A) B
	from  func(B) A
}

// Map adapts a shape to another Go type through a pair of total conversions.
func Map[A, B any](inner Codec[A], to func(A) B, from func(B) A) Codec[B] {
	return mapped[A, B]{inner: inner, to: to, from: from}
}

func (m mapped[A, B]) Decode(c *Cursor) (B, error) {
	v, err := m.inner.Decode(c)
	if err != nil {
		var zero B
		return zero, err
	}
	return m.to(v), nil
}

func (m mapped[A, B]) Encode(w *Writer, v B) {
	m.inner.Encode(w, m.from(v))
}

type checked[T any] struct {
	inner Codec[T]
	check func(v T, offset int) error
}

// Check runs check on every decoded value. offset is the absolute position
// where the value started. Encoding is unchanged.
func Check[T any](inner Codec[T], check func(v T, offset int) error) Codec[T] {
	return checked[T]{inner: inner, check: check}
}

func (k checked[T]) Decode(c *Cursor) (T, error) {
	off := c.Offset()
	v, err := k.inner.Decode(c)
	if err != nil {
		return v, err
	}
	if err := k.check(v, off); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (k checked[T]) Encode(w *Writer, v T) {
	k.inner.Encode(w, v)
}

type constant[T comparable] struct {
	inner    Codec[T]
	want     T
	mismatch func(got T, offset int) error
}

// Const matches a fixed value. Decoding anything else fails with the error
// built by mismatch; encoding always writes want.
func Const[T comparable](inner Codec[T], want T, mismatch func(got T, offset int) error) Codec[struct{}] {
	return constant[T]{inner: inner, want: want, mismatch: mismatch}
}

func (k constant[T]) Decode(c *Cursor) (struct{}, error) {
	off := c.Offset()
	v, err := k.inner.Decode(c)
	if err != nil {
		return struct{}{}, err
	}
	if v != k.want {
		return struct{}{}, k.mismatch(v, off)
	}
	return struct{}{}, nil
}

func (k constant[T]) Encode(w *Writer, _ struct{}) {
	k.inner.Encode(w, k.want)
}

// Ref is a forward reference used to build recursive shapes.
type Ref[T any] struct {
	target Codec[T]
}

// Defer returns an unbound reference. Bind must be called before use.
func Defer[T any]() *Ref[T] {
	return &Ref[T]{}
}

// Bind sets the shape the reference resolves to.
func (r *Ref[T]) Bind(c Codec[T]) {
	r.target = c
}

func (r *Ref[T]) Decode(c *Cursor) (T, error) {
	if r.target == nil {
		panic("codec: Defer used before Bind")
	}
	return r.target.Decode(c)
}

func (r *Ref[T]) Encode(w *Writer, v T) {
	if r.target == nil {
		panic("codec: Defer used before Bind")
	}
	r.target.Encode(w, v)
}

type ptr[T any] struct {
	inner Codec[T]
}

// Ptr decodes into a freshly allocated value. Encoding a nil pointer writes
// the zero value.
func Ptr[T any](inner Codec[T]) Codec[*T] {
	return ptr[T]{inner: inner}
}

func (p ptr[T]) Decode(c *Cursor) (*T, error) {
	v, err := p.inner.Decode(c)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (p ptr[T]) Encode(w *Writer, v *T) {
	if v == nil {
		var zero T
		p.inner.Encode(w, zero)
		return
	}
	p.inner.Encode(w, *v)
}
