package codec_test

import (
	"bytes"
	stderrors "errors"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/errors"
)

func asError(err error, target **errors.Error) bool {
	return stderrors.As(err, target)
}

type limits struct {
	Max  *uint32
	Min  uint32
	Flag byte
}

func limitsShape() codec.Codec[limits] {
	return codec.Record[limits]("limits",
		codec.Field("flag", codec.Byte(), func(l *limits) *byte { return &l.Flag }),
		codec.Field("min", codec.U32(), func(l *limits) *uint32 { return &l.Min }),
		codec.Field("max", codec.Ptr(codec.U32()), func(l *limits) **uint32 { return &l.Max }).
			When(func(l *limits) bool { return l.Flag == 1 }),
	)
}

func TestRecord_RoundTrip(t *testing.T) {
	hi := uint32(300)
	tests := []struct {
		name    string
		encoded []byte
		value   limits
	}{
		{"min only", []byte{0x00, 0x05}, limits{Min: 5}},
		{"min max", []byte{0x01, 0x05, 0xac, 0x02}, limits{Flag: 1, Min: 5, Max: &hi}},
	}

	shape := limitsShape()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shape.Decode(codec.NewCursor(tt.encoded))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.value) {
				t.Errorf("decode: got %+v, want %+v", got, tt.value)
			}

			w := codec.NewWriter()
			shape.Encode(w, tt.value)
			if !bytes.Equal(w.Bytes(), tt.encoded) {
				t.Errorf("encode: got %x, want %x", w.Bytes(), tt.encoded)
			}
		})
	}
}

func TestRecord_ErrorPath(t *testing.T) {
	type pair struct {
		Items []limits
	}
	shape := codec.Record[pair]("pair",
		codec.Field("items", codec.Seq(limitsShape()), func(p *pair) *[]limits { return &p.Items }),
	)

	// second element has flag 1 but no max
	_, err := shape.Decode(codec.NewCursor([]byte{0x02, 0x00, 0x01, 0x01, 0x02}))
	var e *errors.Error
	if !asError(err, &e) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if e.Kind != errors.KindUnexpectedEnd {
		t.Errorf("kind = %s", e.Kind)
	}
	if got := strings.Join(e.Path, ""); got != "items[1]max" {
		t.Errorf("path = %v", e.Path)
	}
	if e.Offset != 5 {
		t.Errorf("offset = %d, want 5", e.Offset)
	}
}

func TestSeq_CountMismatch(t *testing.T) {
	shape := codec.Seq(codec.U32())

	_, err := shape.Decode(codec.NewCursor([]byte{0x03, 0x01, 0x02}))
	if errors.KindOf(err) != errors.KindUnexpectedEnd {
		t.Errorf("unbounded: got %v", err)
	}

	_, err = shape.Decode(codec.NewBoundedCursor([]byte{0x03, 0x01, 0x02}, 0, codec.Config{}))
	if errors.KindOf(err) != errors.KindSizeMismatch {
		t.Errorf("bounded: got %v", err)
	}
}

func TestSeq_EmptyIsNil(t *testing.T) {
	got, err := codec.Seq(codec.U32()).Decode(codec.NewCursor([]byte{0x00}))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %#v, want nil", got)
	}
}

func TestSeq_HugeCount(t *testing.T) {
	// a count far beyond the input must fail without allocating for it
	_, err := codec.Seq(codec.Byte()).Decode(codec.NewCursor([]byte{0xff, 0xff, 0xff, 0xff, 0x0f, 0x01}))
	if errors.KindOf(err) != errors.KindUnexpectedEnd {
		t.Errorf("got %v", err)
	}
}

type figure interface{ isFigure() }

type circle struct{ R uint32 }
type square struct{ Side uint32 }

func (circle) isFigure() {}
func (square) isFigure() {}

func figureUnion() *codec.UnionCodec[figure] {
	return codec.Union[figure]("figure", codec.ByteTag,
		codec.Case[figure](0x01, "circle", codec.Record[circle]("circle",
			codec.Field("r", codec.U32(), func(c *circle) *uint32 { return &c.R }))),
		codec.Case[figure](0x02, "square", codec.Record[square]("square",
			codec.Field("side", codec.U32(), func(s *square) *uint32 { return &s.Side }))),
	)
}

func TestUnion_Case(t *testing.T) {
	u := figureUnion()
	for _, v := range []figure{circle{R: 7}, square{Side: 200}} {
		w := codec.NewWriter()
		u.Encode(w, v)
		got, err := u.Decode(codec.NewCursor(w.Bytes()))
		if err != nil {
			t.Fatalf("decode %x: %v", w.Bytes(), err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("got %#v, want %#v", got, v)
		}
	}
}

func TestUnion_UnknownDiscriminant(t *testing.T) {
	c := codec.NewCursor([]byte{0x00, 0x00, 0x09, 0x01})
	c.Next(2)
	_, err := figureUnion().Decode(c)

	var e *errors.Error
	if !asError(err, &e) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	if !stderrors.Is(err, errors.ErrUnknownDiscriminant) {
		t.Errorf("kind = %s", e.Kind)
	}
	if e.Value != uint64(9) || e.Offset != 2 {
		t.Errorf("value = %v offset = %d, want 9 at 2", e.Value, e.Offset)
	}
}

type blob struct {
	Data []byte
	ID   uint32
}

func TestUnion_Fallback(t *testing.T) {
	u := codec.Union[blob]("blob", codec.ByteTag,
		codec.Variant(0x01, "one", codec.Bytes(),
			func(b []byte) blob { return blob{ID: 1, Data: b} },
			func(b blob) []byte { return b.Data }),
	).KeyedBy(func(b blob) uint32 { return b.ID }).
		Otherwise(codec.Fallback("opaque", codec.Bytes(),
			func(tag uint32, b []byte) blob { return blob{ID: tag, Data: b} },
			func(b blob) (uint32, []byte, bool) { return b.ID, b.Data, true }))

	input := []byte{0x2a, 0x02, 0xde, 0xad}
	got, err := u.Decode(codec.NewCursor(input))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 0x2a || !bytes.Equal(got.Data, []byte{0xde, 0xad}) {
		t.Errorf("got %+v", got)
	}

	w := codec.NewWriter()
	u.Encode(w, got)
	if !bytes.Equal(w.Bytes(), input) {
		t.Errorf("encode: got %x, want %x", w.Bytes(), input)
	}
}

func TestOption(t *testing.T) {
	opt := codec.Option("opt", 0x00, 0x01, codec.U32())

	got, err := opt.Decode(codec.NewCursor([]byte{0x00}))
	if err != nil || got != nil {
		t.Errorf("none: got %v, %v", got, err)
	}

	got, err = opt.Decode(codec.NewCursor([]byte{0x01, 0x2a}))
	if err != nil || got == nil || *got != 42 {
		t.Errorf("some: got %v, %v", got, err)
	}

	_, err = opt.Decode(codec.NewCursor([]byte{0x02}))
	if errors.KindOf(err) != errors.KindUnknownDiscriminant {
		t.Errorf("bad tag: got %v", err)
	}
}

func TestBool_Strict(t *testing.T) {
	_, err := codec.Bool().Decode(codec.NewCursor([]byte{0x02}))
	if errors.KindOf(err) != errors.KindUnknownDiscriminant {
		t.Errorf("got %v", err)
	}
}

func TestName_InvalidUTF8(t *testing.T) {
	_, err := codec.Name().Decode(codec.NewCursor([]byte{0x02, 0xc3, 0x28}))
	var e *errors.Error
	if !asError(err, &e) || e.Kind != errors.KindInvalidUTF8 {
		t.Fatalf("got %v", err)
	}
	if e.Offset != 1 {
		t.Errorf("offset = %d, want 1", e.Offset)
	}
}

func TestConst(t *testing.T) {
	magic := codec.Const(codec.Fixed32(), 0x6d736100, func(got uint32, off int) error {
		return errors.BadMagic(got)
	})

	if _, err := magic.Decode(codec.NewCursor([]byte{0x00, 0x61, 0x73, 0x6d})); err != nil {
		t.Errorf("valid magic: %v", err)
	}
	_, err := magic.Decode(codec.NewCursor([]byte{0x00, 0x61, 0x73, 0x6e}))
	if !stderrors.Is(err, errors.ErrBadMagic) {
		t.Errorf("got %v", err)
	}

	w := codec.NewWriter()
	magic.Encode(w, struct{}{})
	if !bytes.Equal(w.Bytes(), []byte{0x00, 0x61, 0x73, 0x6d}) {
		t.Errorf("encode: %x", w.Bytes())
	}
}

type node struct {
	Children []node
	Value    byte
}

func nodeShape() codec.Codec[node] {
	ref := codec.Defer[node]()
	ref.Bind(codec.Record[node]("node",
		codec.Field("value", codec.Byte(), func(n *node) *byte { return &n.Value }),
		codec.Field("children", codec.Terminated[node](ref, 0xff), func(n *node) *[]node { return &n.Children }),
	))
	return ref
}

func TestTerminated_Recursive(t *testing.T) {
	input := []byte{0x01, 0x02, 0xff, 0x03, 0x04, 0xff, 0xff, 0xff}
	n, err := nodeShape().Decode(codec.NewCursor(input))
	if err != nil {
		t.Fatal(err)
	}
	want := node{Value: 1, Children: []node{
		{Value: 2},
		{Value: 3, Children: []node{{Value: 4}}},
	}}
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %+v", n)
	}

	w := codec.NewWriter()
	nodeShape().Encode(w, n)
	if !bytes.Equal(w.Bytes(), input) {
		t.Errorf("encode: got %x, want %x", w.Bytes(), input)
	}
}

func TestTerminated_Unterminated(t *testing.T) {
	_, err := nodeShape().Decode(codec.NewCursor([]byte{0x01, 0x02, 0xff}))
	var e *errors.Error
	if !asError(err, &e) || e.Kind != errors.KindUnterminatedBlock {
		t.Fatalf("got %v", err)
	}
	if e.Offset != 3 {
		t.Errorf("offset = %d, want 3", e.Offset)
	}
}

func TestTerminated_NestingLimit(t *testing.T) {
	input := bytes.Repeat([]byte{0x00}, 20)
	c := codec.NewCursorConfig(input, codec.Config{MaxDepth: 8})
	_, err := nodeShape().Decode(c)
	if errors.KindOf(err) != errors.KindNestingTooDeep {
		t.Fatalf("got %v", err)
	}
}

func TestUntil_LeavesStop(t *testing.T) {
	shape := codec.Until(codec.Byte(), 0x05, 0x0b)
	c := codec.NewCursor([]byte{0x01, 0x02, 0x05, 0x09})
	got, err := shape.Decode(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02}) || c.Len() != 2 {
		t.Errorf("got %x with %d left", got, c.Len())
	}
}

func TestBounded_Trailing(t *testing.T) {
	shape := codec.Bounded(codec.U32())
	if _, err := shape.Decode(codec.NewCursor([]byte{0x01, 0x05})); err != nil {
		t.Errorf("exact: %v", err)
	}
	_, err := shape.Decode(codec.NewCursor([]byte{0x02, 0x05, 0x00}))
	if errors.KindOf(err) != errors.KindSizeMismatch {
		t.Errorf("trailing: got %v", err)
	}
}

func TestEnum(t *testing.T) {
	type kind byte
	e := codec.Enum[kind]("kind", 0x60, 0x70)
	if v, err := e.Decode(codec.NewCursor([]byte{0x70})); err != nil || v != 0x70 {
		t.Errorf("got %v, %v", v, err)
	}
	if _, err := e.Decode(codec.NewCursor([]byte{0x61})); errors.KindOf(err) != errors.KindUnknownDiscriminant {
		t.Errorf("got %v", err)
	}
	if got := e.Tags(); !reflect.DeepEqual(got, []uint32{0x60, 0x70}) {
		t.Errorf("tags = %v", got)
	}
}

func TestCursor_Raw(t *testing.T) {
	input := []byte{1, 2, 3, 4}

	copied, _ := codec.NewCursor(input).Raw(2)
	copied[0] = 9
	if input[0] != 1 {
		t.Error("default policy must copy")
	}

	borrowed, _ := codec.NewCursorConfig(input, codec.Config{Borrow: true}).Raw(2)
	borrowed[0] = 9
	if input[0] != 9 {
		t.Error("borrow policy must alias input")
	}
}
