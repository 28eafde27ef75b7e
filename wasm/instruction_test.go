package wasm_test

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/errors"
	"github.com/wippyai/wasm-codec/wasm"
)

func decodeExpr(f wasm.Features, code []byte) (wasm.Expr, error) {
	return wasm.GrammarFor(f).Expr.Decode(codec.NewCursor(code))
}

func encodeExpr(e wasm.Expr) []byte {
	w := codec.NewWriter()
	wasm.GrammarFor(wasm.FeaturesAll).Expr.Encode(w, e)
	return w.Bytes()
}

func ptr[T any](v T) *T { return &v }

func TestExpr_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want wasm.Expr
	}{
		{
			name: "empty",
			code: []byte{0x0b},
			want: nil,
		},
		{
			name: "empty block",
			code: []byte{0x02, 0x40, 0x0b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockEmpty}}},
		},
		{
			name: "loop with typed result",
			code: []byte{0x03, 0x7f, 0x41, 0x2a, 0x0b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpLoop, Imm: wasm.BlockImm{
				Type: wasm.BlockI32,
				Body: wasm.Expr{{Op: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 42}}},
			}}},
		},
		{
			name: "block with type index",
			code: []byte{0x02, 0x03, 0x0b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockIndex(3)}}},
		},
		{
			name: "if else",
			code: []byte{0x04, 0x7f, 0x41, 0x01, 0x05, 0x41, 0x02, 0x0b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpIf, Imm: wasm.IfImm{
				Type: wasm.BlockI32,
				Then: wasm.Expr{{Op: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}}},
				Else: &wasm.Expr{{Op: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}}},
			}}},
		},
		{
			name: "if without else",
			code: []byte{0x04, 0x40, 0x01, 0x0b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpIf, Imm: wasm.IfImm{
				Type: wasm.BlockEmpty,
				Then: wasm.Expr{{Op: wasm.OpNop}},
			}}},
		},
		{
			name: "if with empty else",
			code: []byte{0x04, 0x40, 0x05, 0x0b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpIf, Imm: wasm.IfImm{
				Type: wasm.BlockEmpty,
				Else: ptr(wasm.Expr(nil)),
			}}},
		},
		{
			name: "br_table",
			code: []byte{0x0e, 0x02, 0x00, 0x01, 0x02, 0x0b},
			want: wasm.Expr{{Op: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1}, Default: 2}}},
		},
		{
			name: "memarg",
			code: []byte{0x28, 0x02, 0x10, 0x0b},
			want: wasm.Expr{{Op: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 16}}},
		},
		{
			name: "negative i64",
			code: []byte{0x42, 0x7f, 0x0b},
			want: wasm.Expr{{Op: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -1}}},
		},
		{
			name: "nan payload",
			code: []byte{0x43, 0x01, 0x00, 0xc0, 0x7f, 0x0b},
			want: wasm.Expr{{Op: wasm.OpF32Const, Imm: wasm.F32Imm{Bits: 0x7fc00001}}},
		},
		{
			name: "call_indirect",
			code: []byte{0x11, 0x05, 0x00, 0x0b},
			want: wasm.Expr{{Op: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{Type: 5}}},
		},
		{
			name: "typed select",
			code: []byte{0x1c, 0x01, 0x7b, 0x0b},
			want: wasm.Expr{{Op: wasm.OpSelectType, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValV128}}}},
		},
		{
			name: "saturating truncation",
			code: []byte{0xfc, 0x00, 0x0b},
			want: wasm.Expr{{Op: wasm.OpI32TruncSatF32S}},
		},
		{
			name: "memory.init",
			code: []byte{0xfc, 0x08, 0x03, 0x00, 0x0b},
			want: wasm.Expr{{Op: wasm.OpMemoryInit, Imm: wasm.MemoryInitImm{Data: 3}}},
		},
		{
			name: "load lane",
			code: []byte{0xfd, 0x54, 0x00, 0x08, 0x0f, 0x0b},
			want: wasm.Expr{{Op: wasm.OpV128Load8Lane, Imm: wasm.MemoryLaneImm{Mem: wasm.MemoryImm{Offset: 8}, Lane: 15}}},
		},
		{
			name: "atomic rmw",
			code: []byte{0xfe, 0x1e, 0x02, 0x00, 0x0b},
			want: wasm.Expr{{Op: wasm.OpI32AtomicRmwAdd, Imm: wasm.MemoryImm{Align: 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeExpr(wasm.FeaturesAll, tt.code)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decode:\n got  %#v\n want %#v", got, tt.want)
			}
			if enc := encodeExpr(tt.want); !bytes.Equal(enc, tt.code) {
				t.Errorf("encode = %x, want %x", enc, tt.code)
			}
		})
	}
}

func TestExpr_EmptyBlockBody(t *testing.T) {
	got, err := decodeExpr(wasm.FeaturesNone, []byte{0x02, 0x40, 0x0b, 0x0b})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	imm, ok := got[0].Imm.(wasm.BlockImm)
	if !ok {
		t.Fatalf("imm = %T", got[0].Imm)
	}
	if len(imm.Body) != 0 {
		t.Errorf("body length = %d, want 0", len(imm.Body))
	}
}

func TestExpr_NonMinimalImmediates(t *testing.T) {
	tests := []struct {
		name      string
		code      []byte
		canonical []byte
	}{
		{"i32.const", []byte{0x41, 0x80, 0x00, 0x0b}, []byte{0x41, 0x00, 0x0b}},
		{"sub-opcode", []byte{0xfc, 0x80, 0x00, 0x0b}, []byte{0xfc, 0x00, 0x0b}},
		{"local index", []byte{0x20, 0x81, 0x80, 0x00, 0x0b}, []byte{0x20, 0x01, 0x0b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeExpr(wasm.FeaturesAll, tt.code)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if enc := encodeExpr(got); !bytes.Equal(enc, tt.canonical) {
				t.Errorf("encode = %x, want %x", enc, tt.canonical)
			}
		})
	}
}

func TestExpr_Errors(t *testing.T) {
	tests := []struct {
		name   string
		code   []byte
		kind   errors.Kind
		offset int
	}{
		{"unknown opcode", []byte{0x01, 0x01, 0xff, 0x0b}, errors.KindUnknownDiscriminant, 2},
		{"stray else", []byte{0x02, 0x40, 0x05, 0x0b, 0x0b}, errors.KindUnknownDiscriminant, 2},
		{"unterminated block", []byte{0x02, 0x40, 0x01}, errors.KindUnterminatedBlock, 3},
		{"unterminated expr", []byte{0x01}, errors.KindUnterminatedBlock, 1},
		{"unterminated else", []byte{0x04, 0x40, 0x05, 0x01}, errors.KindUnterminatedBlock, 4},
		{"bad block type", []byte{0x02, 0x50, 0x0b, 0x0b}, errors.KindUnknownDiscriminant, 1},
		{"lane out of range", []byte{0xfd, 0x15, 0x10, 0x0b}, errors.KindInvalidData, 2},
		{"shuffle lane", append(append([]byte{0xfd, 0x0d}, bytes.Repeat([]byte{0x20}, 16)...), 0x0b), errors.KindInvalidData, 2},
		{"unknown misc", []byte{0xfc, 0x7f, 0x0b}, errors.KindUnknownDiscriminant, 0},
		{"truncated immediate", []byte{0x41}, errors.KindUnexpectedEnd, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeExpr(wasm.FeaturesAll, tt.code)
			e := asError(t, err)
			if e.Kind != tt.kind {
				t.Fatalf("kind = %s (%v), want %s", e.Kind, err, tt.kind)
			}
			if e.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", e.Offset, tt.offset)
			}
		})
	}
}

func TestExpr_UnknownOpcodeInBody(t *testing.T) {
	data := module(codeSection(body(0x01, 0xff, 0x0b)))

	_, err := wasm.DecodeModuleWithOptions(data, eager(wasm.FeaturesAll))
	e := asError(t, err)
	if e.Kind != errors.KindUnknownDiscriminant {
		t.Fatalf("kind = %s", e.Kind)
	}
	// header 8, section id and size 2, count 1, body size 1, locals 1, nop 1
	if e.Offset != 14 {
		t.Errorf("offset = %d, want 14", e.Offset)
	}
	if e.Value != uint64(0xff) {
		t.Errorf("value = %v, want 0xff", e.Value)
	}
	want := []string{"sections[0]", "code", "bodies[0]", "code", "[1]"}
	if !reflect.DeepEqual(e.Path, want) {
		t.Errorf("path = %q, want %q", e.Path, want)
	}
}

func TestExpr_NestingLimit(t *testing.T) {
	code := []byte{0x02, 0x40, 0x02, 0x40, 0x02, 0x40, 0x0b, 0x0b, 0x0b, 0x0b}
	g := wasm.GrammarFor(wasm.FeaturesNone)

	if _, err := g.Expr.Decode(codec.NewCursorConfig(code, codec.Config{MaxDepth: 4})); err != nil {
		t.Fatalf("depth 4: %v", err)
	}
	_, err := g.Expr.Decode(codec.NewCursorConfig(code, codec.Config{MaxDepth: 3}))
	if errors.KindOf(err) != errors.KindNestingTooDeep {
		t.Errorf("depth 3: %v", err)
	}

	data := module(codeSection(body(code...)))
	opts := eager(wasm.FeaturesAll)
	opts.MaxNesting = 2
	if _, err := wasm.DecodeModuleWithOptions(data, opts); errors.KindOf(err) != errors.KindNestingTooDeep {
		t.Errorf("module: %v", err)
	}
}

func TestFeatures_OpcodeGating(t *testing.T) {
	tests := []struct {
		name    string
		feature wasm.Features
		code    []byte
	}{
		{"return_call", wasm.FeatureTailCall, []byte{0x12, 0x00, 0x0b}},
		{"v128.const", wasm.FeatureSIMD, append(append([]byte{0xfd, 0x0c}, make([]byte, 16)...), 0x0b)},
		{"v128 block type", wasm.FeatureSIMD, []byte{0x02, 0x7b, 0x0b, 0x0b}},
		{"ref.null", wasm.FeatureReferenceTypes, []byte{0xd0, 0x6f, 0x0b}},
		{"table.get", wasm.FeatureReferenceTypes, []byte{0x25, 0x00, 0x0b}},
		{"memory.fill", wasm.FeatureBulkMemory, []byte{0xfc, 0x0b, 0x00, 0x0b}},
		{"atomic.fence", wasm.FeatureThreads, []byte{0xfe, 0x03, 0x00, 0x0b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeExpr(tt.feature, tt.code)
			if err != nil {
				t.Fatalf("enabled: %v", err)
			}
			if enc := encodeExpr(got); !bytes.Equal(enc, tt.code) {
				t.Errorf("encode = %x, want %x", enc, tt.code)
			}

			_, err = decodeExpr(wasm.FeaturesNone, tt.code)
			if errors.KindOf(err) != errors.KindUnknownDiscriminant {
				t.Errorf("disabled: got %v, want unknown discriminant", err)
			}
		})
	}
}

func TestFeatures_BaseAlwaysOn(t *testing.T) {
	code := []byte{0xc0, 0xfc, 0x07, 0x0b}
	if _, err := decodeExpr(wasm.FeaturesNone, code); err != nil {
		t.Fatalf("sign extension and saturating truncation: %v", err)
	}
}

func TestOpcode_String(t *testing.T) {
	tests := []struct {
		op   wasm.Opcode
		want string
	}{
		{wasm.OpI32Add, "i32.add"},
		{wasm.OpV128Const, "v128.const"},
		{wasm.OpI32AtomicRmwAdd, "i32.atomic.rmw.add"},
		{wasm.OpTableFill, "table.fill"},
		{wasm.Prefixed(wasm.PrefixMisc, 0x99), "0xfc 0x99"},
		{wasm.Opcode(0xff), "0xff"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%x: got %q, want %q", uint32(tt.op), got, tt.want)
		}
	}
}

func TestOpcodes_ByFeature(t *testing.T) {
	contains := func(ops []wasm.Opcode, op wasm.Opcode) bool {
		for _, o := range ops {
			if o == op {
				return true
			}
		}
		return false
	}

	base := wasm.Opcodes(wasm.FeaturesNone)
	all := wasm.Opcodes(wasm.FeaturesAll)
	if contains(base, wasm.OpV128Const) || !contains(all, wasm.OpV128Const) {
		t.Error("v128.const gating")
	}
	if !contains(base, wasm.OpI32Extend8S) {
		t.Error("sign extension should be in the base set")
	}
	if len(all) <= len(base) {
		t.Errorf("all = %d, base = %d", len(all), len(base))
	}

	g := wasm.GrammarFor(wasm.FeaturesAll)
	for _, op := range all {
		if !g.Instruction.Has(uint32(op)) {
			t.Errorf("%s missing from grammar", op)
		}
	}
}

func TestBlockType(t *testing.T) {
	if v, ok := wasm.BlockI64.ValType(); !ok || v != wasm.ValI64 {
		t.Errorf("BlockI64.ValType() = %s, %v", v, ok)
	}
	if _, ok := wasm.BlockEmpty.ValType(); ok {
		t.Error("empty block has no value type")
	}
	if wasm.BlockOf(wasm.ValF32) != wasm.BlockF32 {
		t.Error("BlockOf(f32)")
	}
	if idx, ok := wasm.BlockIndex(9).TypeIndex(); !ok || idx != 9 {
		t.Errorf("TypeIndex = %d, %v", idx, ok)
	}
}

func TestF32Imm_Value(t *testing.T) {
	imm := wasm.F32Const(1.5)
	if imm.Value() != 1.5 {
		t.Errorf("value = %v", imm.Value())
	}
	if wasm.F64Const(-2).Value() != -2 {
		t.Error("f64 value")
	}
}

func TestExpr_Walk(t *testing.T) {
	// block { nop; if { i32.const 1 } else { loop { nop } } }; i32.add
	e := wasm.Expr{
		{Op: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockEmpty, Body: wasm.Expr{
			{Op: wasm.OpNop},
			{Op: wasm.OpIf, Imm: wasm.IfImm{
				Type: wasm.BlockEmpty,
				Then: wasm.Expr{{Op: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}}},
				Else: ptr(wasm.Expr{{Op: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockEmpty, Body: wasm.Expr{{Op: wasm.OpNop}}}}}),
			}},
		}}},
		{Op: wasm.OpI32Add},
	}

	var ops []wasm.Opcode
	var depths []int
	e.Walk(func(in wasm.Instruction, depth int) bool {
		ops = append(ops, in.Op)
		depths = append(depths, depth)
		return true
	})
	wantOps := []wasm.Opcode{wasm.OpBlock, wasm.OpNop, wasm.OpIf, wasm.OpI32Const, wasm.OpLoop, wasm.OpNop, wasm.OpI32Add}
	if !reflect.DeepEqual(ops, wantOps) {
		t.Errorf("ops = %v", ops)
	}
	if want := []int{0, 1, 1, 2, 2, 3, 0}; !reflect.DeepEqual(depths, want) {
		t.Errorf("depths = %v", depths)
	}

	n := 0
	e.Walk(func(in wasm.Instruction, depth int) bool {
		n++
		return in.Op != wasm.OpBlock
	})
	if n != 2 {
		t.Errorf("skipping block bodies visited %d", n)
	}
}

func TestImmediateOf(t *testing.T) {
	tests := []struct {
		op    wasm.Opcode
		want  any
		lanes int
	}{
		{wasm.OpNop, nil, 0},
		{wasm.OpBlock, wasm.BlockImm{}, 0},
		{wasm.OpI32Const, wasm.I32Imm{}, 0},
		{wasm.OpMemoryCopy, wasm.MemoryCopyImm{}, 0},
		{wasm.OpI8x16ExtractLnS, wasm.LaneImm{}, 16},
		{wasm.OpV128Load8Lane, wasm.MemoryLaneImm{}, 16},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			got, ok := wasm.ImmediateOf(tt.op)
			if !ok {
				t.Fatal("opcode should be known")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("immediate = %#v, want %#v", got, tt.want)
			}
			if l := tt.op.Lanes(); l != tt.lanes {
				t.Errorf("lanes = %d, want %d", l, tt.lanes)
			}
		})
	}

	if _, ok := wasm.ImmediateOf(wasm.Opcode(0x27)); ok {
		t.Error("0x27 is not an opcode")
	}
}

func TestExpr_UnknownPrefixedOpcode(t *testing.T) {
	tests := []struct {
		name string
		f    wasm.Features
		code []byte
		want string
	}{
		{"disabled simd", wasm.FeaturesNone, []byte{0xfd, 0x0f, 0x0b}, "0xfd 0x0f"},
		{"unknown misc", wasm.FeaturesAll, []byte{0xfc, 0x7f, 0x0b}, "0xfc 0x7f"},
		{"sub-opcode too large", wasm.FeaturesAll, []byte{0xfe, 0xff, 0xff, 0xff, 0xff, 0x0f, 0x0b}, "0xfe 0xffffffff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeExpr(tt.f, tt.code)
			e := asError(t, err)
			if e.Kind != errors.KindUnknownDiscriminant {
				t.Fatalf("kind = %s (%v)", e.Kind, err)
			}
			if e.Value != tt.want {
				t.Errorf("value = %v, want %s", e.Value, tt.want)
			}
			if !strings.Contains(e.Detail, tt.want) {
				t.Errorf("detail = %q", e.Detail)
			}
			if e.Offset != 0 {
				t.Errorf("offset = %d, want 0", e.Offset)
			}
		})
	}
}

func TestExpr_EncodeImmediateMismatch(t *testing.T) {
	tests := []struct {
		name string
		in   wasm.Instruction
	}{
		{"pointer immediate", wasm.Instruction{Op: wasm.OpI32Const, Imm: &wasm.I32Imm{Value: 5}}},
		{"wrong immediate", wasm.Instruction{Op: wasm.OpI32Const, Imm: wasm.I64Imm{Value: 5}}},
		{"missing immediate", wasm.Instruction{Op: wasm.OpI32Const}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("encode should panic")
				}
			}()
			encodeExpr(wasm.Expr{tt.in})
		})
	}
}
