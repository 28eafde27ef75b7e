package wasm

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/errors"
)

// Grammar is the set of shapes for one feature set. Grammars are immutable
// once built and safe to share.
type Grammar struct {
	Module      codec.Codec[Module]
	Section     *codec.UnionCodec[*Section]
	Instruction *codec.UnionCodec[Instruction]
	Expr        codec.Codec[Expr]
	FuncBody    codec.Codec[FuncBody]
	ValType     *codec.UnionCodec[ValType]
	BlockType   codec.Codec[BlockType]
	Limits      *codec.UnionCodec[Limits]
	Import      codec.Codec[Import]
	Export      codec.Codec[Export]
	Element     *codec.UnionCodec[Element]
	Data        *codec.UnionCodec[DataSegment]
	Features    Features
}

var grammars sync.Map // Features -> *Grammar

// GrammarFor returns the cached grammar for a feature set.
func GrammarFor(f Features) *Grammar {
	f = f.Normalize()
	if g, ok := grammars.Load(f); ok {
		return g.(*Grammar)
	}
	g, _ := grammars.LoadOrStore(f, buildGrammar(f))
	return g.(*Grammar)
}

// opcodeTag reads single-byte opcodes and prefix byte + LEB128 sub-opcodes.
type opcodeTag struct{}

func (opcodeTag) ReadTag(c *codec.Cursor) (uint32, error) {
	off := c.Offset()
	b, err := c.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case PrefixMisc, PrefixSIMD, PrefixAtomic:
		sub, err := codec.DecodeVarUint(c, 32)
		if err != nil {
			return 0, err
		}
		if sub > maxSubOpcode {
			return 0, errors.UnknownDiscriminantText("opcode", prefixedString(b, sub), off)
		}
		return uint32(Prefixed(b, uint32(sub))), nil
	}
	return uint32(b), nil
}

func (opcodeTag) FormatTag(tag uint32) (string, bool) {
	op := Opcode(tag)
	if p := op.Prefix(); p != 0 {
		return prefixedString(p, uint64(op.Sub())), true
	}
	return "", false
}

func (opcodeTag) WriteTag(w *codec.Writer, tag uint32) {
	op := Opcode(tag)
	if p := op.Prefix(); p != 0 {
		w.Byte(p)
		w.VarUint(uint64(op.Sub()))
		return
	}
	w.Byte(byte(op))
}

func identity[T any](v T) T { return v }

func index[T ~uint32]() codec.Codec[T] { return codec.U32As[T]() }

// grammarBuilder holds the shared shapes while a grammar is assembled.
type grammarBuilder struct {
	g        *Grammar
	u32      codec.Codec[uint32]
	refType  *codec.UnionCodec[RefType]
	memarg   codec.Codec[MemoryImm]
	instr    *codec.Ref[Instruction]
	thenArm  codec.Codec[Expr]
	elseArm  codec.Codec[*Expr]
	features Features
}

func buildGrammar(f Features) *Grammar {
	b := &grammarBuilder{
		g:        &Grammar{Features: f},
		u32:      codec.U32(),
		features: f,
	}
	b.values()
	b.instructions()
	b.sections()
	return b.g
}

func (b *grammarBuilder) values() {
	f := b.features

	vals := []ValType{ValI32, ValI64, ValF32, ValF64}
	if f.Has(FeatureSIMD) {
		vals = append(vals, ValV128)
	}
	refs := []RefType{RefFunc}
	if f.Has(FeatureReferenceTypes) {
		vals = append(vals, ValFuncRef, ValExtern)
		refs = append(refs, RefExtern)
	}
	b.g.ValType = codec.Enum("valtype", vals...)
	b.refType = codec.Enum("reftype", refs...)

	valType := b.g.ValType
	b.g.BlockType = codec.Check(
		codec.Map(codec.S33(),
			func(v int64) BlockType { return BlockType(v) },
			func(t BlockType) int64 { return int64(t) }),
		func(t BlockType, off int) error {
			if t >= 0 || t == BlockEmpty {
				return nil
			}
			if v, ok := t.ValType(); ok && valType.Has(uint32(v)) {
				return nil
			}
			return errors.UnknownDiscriminant("blocktype", uint64(t&0x7f), off)
		})

	b.memarg = codec.Record[MemoryImm]("memarg",
		codec.Field("align", b.u32, func(m *MemoryImm) *uint32 { return &m.Align }),
		codec.Field("offset", b.u32, func(m *MemoryImm) *uint32 { return &m.Offset }),
	)

	b.g.Limits = codec.Union[Limits]("limits", codec.ByteTag,
		b.limitsForm(0x00, "min", false, false),
		b.limitsForm(0x01, "min_max", true, false),
	).KeyedBy(func(l Limits) uint32 {
		var flags uint32
		if l.Max != nil {
			flags |= 0x01
		}
		if l.Shared {
			flags |= 0x02
		}
		return flags
	})
	if f.Has(FeatureThreads) {
		b.g.Limits.With(
			b.limitsForm(0x02, "shared_min", false, true),
			b.limitsForm(0x03, "shared_min_max", true, true),
		)
	}
}

func (b *grammarBuilder) limitsForm(flags uint32, name string, hasMax, shared bool) codec.VariantSpec[Limits] {
	fields := []codec.FieldSpec[Limits]{
		codec.Field("min", b.u32, func(l *Limits) *uint32 { return &l.Min }),
	}
	if hasMax {
		fields = append(fields,
			codec.Field("max", codec.Ptr(b.u32), func(l *Limits) **uint32 { return &l.Max }))
	}
	return codec.Variant(flags, name, codec.Record("limits", fields...),
		func(l Limits) Limits {
			l.Shared = shared
			return l
		},
		identity[Limits],
	)
}

func (b *grammarBuilder) instructions() {
	b.instr = codec.Defer[Instruction]()

	toExpr := func(v []Instruction) Expr { return Expr(v) }
	fromExpr := func(e Expr) []Instruction { return []Instruction(e) }

	b.g.Expr = codec.Map(codec.Terminated[Instruction](b.instr, OpEnd), toExpr, fromExpr)
	b.thenArm = codec.Map(codec.Until[Instruction](b.instr, OpElse, OpEnd), toExpr, fromExpr)
	b.elseArm = codec.Option("else", OpEnd, OpElse, b.g.Expr)

	u := codec.Union[Instruction]("opcode", opcodeTag{}).
		KeyedBy(func(i Instruction) uint32 { return uint32(i.Op) })
	for _, info := range opcodeTable {
		if info.feature != 0 && !b.features.Has(info.feature) {
			continue
		}
		u.With(b.instrVariant(info))
	}
	b.g.Instruction = u
	b.instr.Bind(u)
}

// imm builds an instruction variant whose immediate is a V. Encoding an
// instruction whose Imm is not a V panics.
func imm[V any](info opInfo, payload codec.Codec[V]) codec.VariantSpec[Instruction] {
	op := info.op
	return codec.Variant(uint32(op), info.name, payload,
		func(v V) Instruction { return Instruction{Op: op, Imm: v} },
		func(i Instruction) V {
			v, ok := i.Imm.(V)
			if !ok {
				panic(fmt.Sprintf("wasm: %s immediate is %T, want %T", info.name, i.Imm, v))
			}
			return v
		})
}

func field1[S any](name string, shape codec.Codec[uint32], at func(*S) *uint32) codec.Codec[S] {
	return codec.Record[S](name, codec.Field(name, shape, at))
}

func field2[S any](name, a, b string, shape codec.Codec[uint32], first, second func(*S) *uint32) codec.Codec[S] {
	return codec.Record[S](name, codec.Field(a, shape, first), codec.Field(b, shape, second))
}

func laneIndex(lanes byte) codec.Codec[byte] {
	return codec.Check(codec.Byte(), func(v byte, off int) error {
		if v >= lanes {
			return errors.InvalidData(errors.PhaseDecode, off, fmt.Sprintf("invalid lane index %d (lanes: %d)", v, lanes))
		}
		return nil
	})
}

func bytes16() codec.Codec[[16]byte] {
	return codec.Map(codec.FixedBytes(16),
		func(b []byte) [16]byte { return [16]byte(b) },
		func(a [16]byte) []byte { return a[:] })
}

func (b *grammarBuilder) memoryLane(lanes byte) codec.Codec[MemoryLaneImm] {
	return codec.Record[MemoryLaneImm]("memory_lane",
		codec.Field("memarg", b.memarg, func(m *MemoryLaneImm) *MemoryImm { return &m.Mem }),
		codec.Field("lane", laneIndex(lanes), func(m *MemoryLaneImm) *byte { return &m.Lane }),
	)
}

func (b *grammarBuilder) instrVariant(info opInfo) codec.VariantSpec[Instruction] {
	u32 := b.u32

	switch info.imm {
	case immNone:
		op := info.op
		return codec.Variant(uint32(op), info.name, codec.Unit(),
			func(struct{}) Instruction { return Instruction{Op: op} },
			func(Instruction) struct{} { return struct{}{} })

	case immBlock:
		return imm(info, codec.Record[BlockImm]("block",
			codec.Field("type", b.g.BlockType, func(i *BlockImm) *BlockType { return &i.Type }),
			codec.Field("body", b.g.Expr, func(i *BlockImm) *Expr { return &i.Body }),
		))

	case immIf:
		return imm(info, codec.Record[IfImm]("if",
			codec.Field("type", b.g.BlockType, func(i *IfImm) *BlockType { return &i.Type }),
			codec.Field("then", b.thenArm, func(i *IfImm) *Expr { return &i.Then }),
			codec.Field("else", b.elseArm, func(i *IfImm) **Expr { return &i.Else }),
		))

	case immBranch:
		return imm(info, field1("label", u32, func(i *BranchImm) *uint32 { return &i.Label }))

	case immBrTable:
		return imm(info, codec.Record[BrTableImm]("br_table",
			codec.Field("labels", codec.Seq(u32), func(i *BrTableImm) *[]uint32 { return &i.Labels }),
			codec.Field("default", u32, func(i *BrTableImm) *uint32 { return &i.Default }),
		))

	case immCall:
		return imm(info, field1("func", u32, func(i *CallImm) *uint32 { return &i.Func }))

	case immCallIndirect:
		return imm(info, field2("call_indirect", "type", "table", u32,
			func(i *CallIndirectImm) *uint32 { return &i.Type },
			func(i *CallIndirectImm) *uint32 { return &i.Table }))

	case immLocal:
		return imm(info, field1("local", u32, func(i *LocalImm) *uint32 { return &i.Local }))

	case immGlobal:
		return imm(info, field1("global", u32, func(i *GlobalImm) *uint32 { return &i.Global }))

	case immTable:
		return imm(info, field1("table", u32, func(i *TableImm) *uint32 { return &i.Table }))

	case immMemory:
		return imm(info, b.memarg)

	case immMemoryIdx:
		return imm(info, field1("memory", u32, func(i *MemoryIdxImm) *uint32 { return &i.Mem }))

	case immI32:
		return imm(info, codec.Record[I32Imm]("i32",
			codec.Field("value", codec.S32(), func(i *I32Imm) *int32 { return &i.Value })))

	case immI64:
		return imm(info, codec.Record[I64Imm]("i64",
			codec.Field("value", codec.S64(), func(i *I64Imm) *int64 { return &i.Value })))

	case immF32:
		return imm(info, field1("bits", codec.Fixed32(), func(i *F32Imm) *uint32 { return &i.Bits }))

	case immF64:
		return imm(info, codec.Record[F64Imm]("f64",
			codec.Field("bits", codec.Fixed64(), func(i *F64Imm) *uint64 { return &i.Bits })))

	case immSelectType:
		return imm(info, codec.Record[SelectTypeImm]("select",
			codec.Field("types", codec.Seq[ValType](b.g.ValType), func(i *SelectTypeImm) *[]ValType { return &i.Types })))

	case immRefNull:
		return imm(info, codec.Record[RefNullImm]("ref.null",
			codec.Field("type", codec.Codec[RefType](b.refType), func(i *RefNullImm) *RefType { return &i.Type })))

	case immMemoryInit:
		return imm(info, field2("memory.init", "data", "memory", u32,
			func(i *MemoryInitImm) *uint32 { return &i.Data },
			func(i *MemoryInitImm) *uint32 { return &i.Mem }))

	case immDataDrop:
		return imm(info, field1("data", u32, func(i *DataDropImm) *uint32 { return &i.Data }))

	case immMemoryCopy:
		return imm(info, field2("memory.copy", "dst", "src", u32,
			func(i *MemoryCopyImm) *uint32 { return &i.Dst },
			func(i *MemoryCopyImm) *uint32 { return &i.Src }))

	case immTableInit:
		return imm(info, field2("table.init", "elem", "table", u32,
			func(i *TableInitImm) *uint32 { return &i.Elem },
			func(i *TableInitImm) *uint32 { return &i.Table }))

	case immElemDrop:
		return imm(info, field1("elem", u32, func(i *ElemDropImm) *uint32 { return &i.Elem }))

	case immTableCopy:
		return imm(info, field2("table.copy", "dst", "src", u32,
			func(i *TableCopyImm) *uint32 { return &i.Dst },
			func(i *TableCopyImm) *uint32 { return &i.Src }))

	case immV128:
		return imm(info, codec.Record[V128Imm]("v128",
			codec.Field("bytes", bytes16(), func(i *V128Imm) *[16]byte { return &i.Bytes })))

	case immShuffle:
		lanes := codec.Check(bytes16(), func(v [16]byte, off int) error {
			for i, l := range v {
				if l >= 32 {
					return errors.InvalidData(errors.PhaseDecode, off+i, fmt.Sprintf("invalid lane index %d (lanes: 32)", l))
				}
			}
			return nil
		})
		return imm(info, codec.Record[ShuffleImm]("shuffle",
			codec.Field("lanes", lanes, func(i *ShuffleImm) *[16]byte { return &i.Lanes })))

	case immLane16, immLane8, immLane4, immLane2:
		n := map[immKind]byte{immLane16: 16, immLane8: 8, immLane4: 4, immLane2: 2}[info.imm]
		return imm(info, codec.Record[LaneImm]("lane",
			codec.Field("lane", laneIndex(n), func(i *LaneImm) *byte { return &i.Lane })))

	case immMemoryLane16:
		return imm(info, b.memoryLane(16))
	case immMemoryLane8:
		return imm(info, b.memoryLane(8))
	case immMemoryLane4:
		return imm(info, b.memoryLane(4))
	case immMemoryLane2:
		return imm(info, b.memoryLane(2))

	case immAtomicFence:
		return imm(info, codec.Record[AtomicFenceImm]("atomic.fence",
			codec.Field("flags", codec.Byte(), func(i *AtomicFenceImm) *byte { return &i.Flags })))
	}
	panic(fmt.Sprintf("wasm: no immediate shape for %s", info.name))
}

func (b *grammarBuilder) sections() {
	g := b.g
	f := b.features
	u32 := b.u32
	name := codec.Name()

	funcType := codec.Union[FuncType]("functype", codec.ByteTag,
		codec.Variant(0x60, "func", codec.Record[FuncType]("func",
			codec.Field("params", codec.Seq[ValType](g.ValType), func(t *FuncType) *[]ValType { return &t.Params }),
			codec.Field("results", codec.Seq[ValType](g.ValType), func(t *FuncType) *[]ValType { return &t.Results }),
		), identity[FuncType], identity[FuncType]),
	).KeyedBy(func(FuncType) uint32 { return 0x60 })

	tableType := codec.Record[TableType]("table",
		codec.Field("elem", codec.Codec[RefType](b.refType), func(t *TableType) *RefType { return &t.Elem }),
		codec.Field("limits", codec.Codec[Limits](g.Limits), func(t *TableType) *Limits { return &t.Limits }),
	)
	memType := codec.Record[MemoryType]("memory",
		codec.Field("limits", codec.Codec[Limits](g.Limits), func(t *MemoryType) *Limits { return &t.Limits }),
	)
	globalType := codec.Record[GlobalType]("global",
		codec.Field("type", codec.Codec[ValType](g.ValType), func(t *GlobalType) *ValType { return &t.Type }),
		codec.Field("mutable", codec.Bool(), func(t *GlobalType) *bool { return &t.Mutable }),
	)

	importDesc := codec.Union[ImportDesc]("importdesc", codec.ByteTag,
		codec.Case[ImportDesc, TypeIdx](uint32(KindFunc), "func", index[TypeIdx]()),
		codec.Case[ImportDesc, TableType](uint32(KindTable), "table", tableType),
		codec.Case[ImportDesc, MemoryType](uint32(KindMemory), "memory", memType),
		codec.Case[ImportDesc, GlobalType](uint32(KindGlobal), "global", globalType),
	)
	g.Import = codec.Record[Import]("import",
		codec.Field("module", name, func(i *Import) *string { return &i.Module }),
		codec.Field("name", name, func(i *Import) *string { return &i.Name }),
		codec.Field("desc", codec.Codec[ImportDesc](importDesc), func(i *Import) *ImportDesc { return &i.Desc }),
	)

	exportDesc := codec.Union[ExportDesc]("exportdesc", codec.ByteTag,
		codec.Case[ExportDesc, FuncIdx](uint32(KindFunc), "func", index[FuncIdx]()),
		codec.Case[ExportDesc, TableIdx](uint32(KindTable), "table", index[TableIdx]()),
		codec.Case[ExportDesc, MemIdx](uint32(KindMemory), "memory", index[MemIdx]()),
		codec.Case[ExportDesc, GlobalIdx](uint32(KindGlobal), "global", index[GlobalIdx]()),
	)
	g.Export = codec.Record[Export]("export",
		codec.Field("name", name, func(e *Export) *string { return &e.Name }),
		codec.Field("desc", codec.Codec[ExportDesc](exportDesc), func(e *Export) *ExportDesc { return &e.Desc }),
	)

	global := codec.Record[Global]("global",
		codec.Field("type", codec.Codec[GlobalType](globalType), func(gl *Global) *GlobalType { return &gl.Type }),
		codec.Field("init", g.Expr, func(gl *Global) *Expr { return &gl.Init }),
	)

	b.elements()
	b.data()

	local := codec.Record[LocalEntry]("local",
		codec.Field("count", u32, func(l *LocalEntry) *uint32 { return &l.Count }),
		codec.Field("type", codec.Codec[ValType](g.ValType), func(l *LocalEntry) *ValType { return &l.ValType }),
	)
	g.FuncBody = codec.Record[FuncBody]("body",
		codec.Field("locals", codec.Seq(local), func(fb *FuncBody) *[]LocalEntry { return &fb.Locals }),
		codec.Field("code", g.Expr, func(fb *FuncBody) *Expr { return &fb.Code }),
	)

	g.Section = codec.Union[*Section]("section", codec.ByteTag,
		sectionVariant(SectionCustom, codec.Record[CustomSection]("custom",
			codec.Field("name", name, func(s *CustomSection) *string { return &s.Name }),
			codec.Field("data", codec.Remaining(), func(s *CustomSection) *[]byte { return &s.Data }),
		)),
		sectionVariant(SectionType, codec.Record[TypeSection]("type",
			codec.Field("types", codec.Seq[FuncType](funcType), func(s *TypeSection) *[]FuncType { return &s.Types }))),
		sectionVariant(SectionImport, codec.Record[ImportSection]("import",
			codec.Field("imports", codec.Seq(g.Import), func(s *ImportSection) *[]Import { return &s.Imports }))),
		sectionVariant(SectionFunction, codec.Record[FunctionSection]("function",
			codec.Field("types", codec.Seq(index[TypeIdx]()), func(s *FunctionSection) *[]TypeIdx { return &s.Types }))),
		sectionVariant(SectionTable, codec.Record[TableSection]("table",
			codec.Field("tables", codec.Seq[TableType](tableType), func(s *TableSection) *[]TableType { return &s.Tables }))),
		sectionVariant(SectionMemory, codec.Record[MemorySection]("memory",
			codec.Field("memories", codec.Seq[MemoryType](memType), func(s *MemorySection) *[]MemoryType { return &s.Memories }))),
		sectionVariant(SectionGlobal, codec.Record[GlobalSection]("global",
			codec.Field("globals", codec.Seq[Global](global), func(s *GlobalSection) *[]Global { return &s.Globals }))),
		sectionVariant(SectionExport, codec.Record[ExportSection]("export",
			codec.Field("exports", codec.Seq(g.Export), func(s *ExportSection) *[]Export { return &s.Exports }))),
		sectionVariant(SectionStart, codec.Record[StartSection]("start",
			codec.Field("func", index[FuncIdx](), func(s *StartSection) *FuncIdx { return &s.Func }))),
		sectionVariant(SectionElement, codec.Record[ElementSection]("element",
			codec.Field("elements", codec.Seq[Element](g.Element), func(s *ElementSection) *[]Element { return &s.Elements }))),
		sectionVariant(SectionCode, codec.Record[CodeSection]("code",
			codec.Field("bodies", codec.Seq(codec.Sized(g.FuncBody)), func(s *CodeSection) *[]*codec.Lazy[FuncBody] { return &s.Bodies }))),
		sectionVariant(SectionData, codec.Record[DataSection]("data",
			codec.Field("segments", codec.Seq[DataSegment](g.Data), func(s *DataSection) *[]DataSegment { return &s.Segments }))),
	)
	if f.Has(FeatureBulkMemory) {
		g.Section.With(sectionVariant(SectionDataCount, codec.Record[DataCountSection]("datacount",
			codec.Field("count", u32, func(s *DataCountSection) *uint32 { return &s.Count }))))
	}
	g.Section.
		KeyedBy(func(s *Section) uint32 {
			if s.Unknown() {
				return unknownKey
			}
			return uint32(s.ID)
		}).
		Otherwise(codec.Fallback("unknown", codec.Sized(codec.Record[UnknownSection]("unknown",
			codec.Field("data", codec.Remaining(), func(s *UnknownSection) *[]byte { return &s.Data }))),
			func(tag uint32, l *codec.Lazy[UnknownSection]) *Section {
				id := SectionID(tag)
				logSection(id, l)
				return &Section{ID: id, body: &lazyBody[UnknownSection]{lazy: l}}
			},
			func(s *Section) (uint32, *codec.Lazy[UnknownSection], bool) {
				lb, ok := s.body.(*lazyBody[UnknownSection])
				if !ok {
					return 0, nil, false
				}
				return uint32(s.ID), lb.lazy, true
			}))

	badMagic := func(got uint32, _ int) error { return errors.BadMagic(got) }
	badVersion := func(got uint32, _ int) error { return errors.UnsupportedVersion(got) }
	g.Module = codec.Record[Module]("module",
		codec.Marker[Module]("magic", codec.Const(codec.Fixed32(), Magic, badMagic)),
		codec.Marker[Module]("version", codec.Const(codec.Fixed32(), Version, badVersion)),
		codec.Field("sections", codec.UntilEnd[*Section](g.Section), func(m *Module) *[]*Section { return &m.Sections }),
	)
}

func (b *grammarBuilder) elements() {
	g := b.g

	offset := codec.Field("offset", g.Expr, func(e *Element) *Expr { return &e.Offset })
	table := codec.Field("table", index[TableIdx](), func(e *Element) *TableIdx { return &e.Table })
	kind := codec.Field("kind", codec.Codec[ElemKind](codec.Enum("elemkind", ElemKindFuncRef)), func(e *Element) *ElemKind { return &e.Kind })
	refType := codec.Field("type", codec.Codec[RefType](b.refType), func(e *Element) *RefType { return &e.Type })
	funcs := codec.Field("funcs", codec.Seq(index[FuncIdx]()), func(e *Element) *[]FuncIdx { return &e.Funcs })
	exprs := codec.Field("exprs", codec.Seq(g.Expr), func(e *Element) *[]Expr { return &e.Exprs })

	form := func(flags uint32, fields ...codec.FieldSpec[Element]) codec.VariantSpec[Element] {
		return codec.Variant(flags, fmt.Sprintf("form%d", flags), codec.Record("element", fields...),
			func(e Element) Element {
				e.Flags = flags
				return e
			},
			identity[Element])
	}

	g.Element = codec.Union[Element]("element", codec.VarTag, form(0, offset, funcs)).
		KeyedBy(func(e Element) uint32 { return e.Flags })
	if b.features.Has(FeatureBulkMemory) {
		g.Element.With(
			form(1, kind, funcs),
			form(2, table, offset, kind, funcs),
			form(3, kind, funcs),
			form(4, offset, exprs),
			form(5, refType, exprs),
			form(6, table, offset, refType, exprs),
			form(7, refType, exprs),
		)
	}
}

func (b *grammarBuilder) data() {
	g := b.g

	offset := codec.Field("offset", g.Expr, func(d *DataSegment) *Expr { return &d.Offset })
	memory := codec.Field("memory", index[MemIdx](), func(d *DataSegment) *MemIdx { return &d.Memory })
	init := codec.Field("init", codec.Bytes(), func(d *DataSegment) *[]byte { return &d.Init })

	form := func(flags uint32, fields ...codec.FieldSpec[DataSegment]) codec.VariantSpec[DataSegment] {
		return codec.Variant(flags, fmt.Sprintf("form%d", flags), codec.Record("data", fields...),
			func(d DataSegment) DataSegment {
				d.Flags = flags
				return d
			},
			identity[DataSegment])
	}

	g.Data = codec.Union[DataSegment]("data", codec.VarTag,
		form(0, offset, init),
		form(2, memory, offset, init),
	).KeyedBy(func(d DataSegment) uint32 { return d.Flags })
	if b.features.Has(FeatureBulkMemory) {
		g.Data.With(form(1, init))
	}
}

// sectionVariant binds a section ID to a lazily decoded payload shape.
func sectionVariant[P any](id SectionID, shape codec.Codec[P]) codec.VariantSpec[*Section] {
	return codec.Variant(uint32(id), id.String(), codec.Sized(shape),
		func(l *codec.Lazy[P]) *Section {
			logSection(id, l)
			return &Section{ID: id, body: &lazyBody[P]{lazy: l}}
		},
		func(s *Section) *codec.Lazy[P] {
			lb, ok := s.body.(*lazyBody[P])
			if !ok {
				panic(fmt.Sprintf("wasm: %s section holds %s", id, s.body.typeName()))
			}
			return lb.lazy
		})
}

func logSection[P any](id SectionID, l *codec.Lazy[P]) {
	raw, _ := l.PeekRaw()
	Logger().Debug("decoded section",
		zap.Stringer("id", id),
		zap.Int("offset", l.Offset()),
		zap.Int("size", len(raw)))
}
