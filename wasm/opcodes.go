package wasm

import "fmt"

// immKind selects the immediate shape of an opcode.
type immKind uint8

const (
	immNone immKind = iota
	immBlock
	immIf
	immBranch
	immBrTable
	immCall
	immCallIndirect
	immLocal
	immGlobal
	immTable
	immMemory
	immMemoryIdx
	immI32
	immI64
	immF32
	immF64
	immSelectType
	immRefNull
	immMemoryInit
	immDataDrop
	immMemoryCopy
	immTableInit
	immElemDrop
	immTableCopy
	immV128
	immShuffle
	immLane16
	immLane8
	immLane4
	immLane2
	immMemoryLane16
	immMemoryLane8
	immMemoryLane4
	immMemoryLane2
	immAtomicFence
)

// opInfo is one row of the instruction table.
type opInfo struct {
	name    string
	op      Opcode
	feature Features
	imm     immKind
}

// opcodeTable lists every known instruction. Rows with a feature are only
// decodable when that feature is enabled.
var opcodeTable = buildOpcodeTable()

var opcodeByCode = func() map[Opcode]opInfo {
	m := make(map[Opcode]opInfo, len(opcodeTable))
	for _, info := range opcodeTable {
		if _, dup := m[info.op]; dup {
			panic(fmt.Sprintf("wasm: duplicate opcode %s", info.name))
		}
		m[info.op] = info
	}
	return m
}()

// Opcodes returns the opcodes available with the given features, in table
// order.
func Opcodes(f Features) []Opcode {
	var out []Opcode
	for _, info := range opcodeTable {
		if info.feature == 0 || f.Has(info.feature) {
			out = append(out, info.op)
		}
	}
	return out
}

type tableBuilder struct {
	rows []opInfo
}

func (b *tableBuilder) add(op Opcode, name string, imm immKind, feature Features) {
	b.rows = append(b.rows, opInfo{op: op, name: name, imm: imm, feature: feature})
}

// run adds consecutive opcodes sharing one immediate kind. Empty names are
// reserved encodings and are skipped.
func (b *tableBuilder) run(prefix byte, start uint32, imm immKind, feature Features, names ...string) {
	for i, name := range names {
		if name == "" {
			continue
		}
		sub := start + uint32(i)
		op := Opcode(sub)
		if prefix != 0 {
			op = Prefixed(prefix, sub)
		}
		b.add(op, name, imm, feature)
	}
}

func buildOpcodeTable() []opInfo {
	b := &tableBuilder{}

	// control
	b.add(OpUnreachable, "unreachable", immNone, 0)
	b.add(OpNop, "nop", immNone, 0)
	b.add(OpBlock, "block", immBlock, 0)
	b.add(OpLoop, "loop", immBlock, 0)
	b.add(OpIf, "if", immIf, 0)
	b.add(OpBr, "br", immBranch, 0)
	b.add(OpBrIf, "br_if", immBranch, 0)
	b.add(OpBrTable, "br_table", immBrTable, 0)
	b.add(OpReturn, "return", immNone, 0)
	b.add(OpCall, "call", immCall, 0)
	b.add(OpCallIndirect, "call_indirect", immCallIndirect, 0)
	b.add(OpReturnCall, "return_call", immCall, FeatureTailCall)
	b.add(OpReturnCallIndirect, "return_call_indirect", immCallIndirect, FeatureTailCall)

	// parametric and variables
	b.add(OpDrop, "drop", immNone, 0)
	b.add(OpSelect, "select", immNone, 0)
	b.add(OpSelectType, "select", immSelectType, FeatureReferenceTypes)
	b.run(0, 0x20, immLocal, 0, "local.get", "local.set", "local.tee")
	b.run(0, 0x23, immGlobal, 0, "global.get", "global.set")
	b.run(0, 0x25, immTable, FeatureReferenceTypes, "table.get", "table.set")

	// memory
	b.run(0, 0x28, immMemory, 0,
		"i32.load", "i64.load", "f32.load", "f64.load",
		"i32.load8_s", "i32.load8_u", "i32.load16_s", "i32.load16_u",
		"i64.load8_s", "i64.load8_u", "i64.load16_s", "i64.load16_u",
		"i64.load32_s", "i64.load32_u",
		"i32.store", "i64.store", "f32.store", "f64.store",
		"i32.store8", "i32.store16", "i64.store8", "i64.store16", "i64.store32")
	b.run(0, 0x3F, immMemoryIdx, 0, "memory.size", "memory.grow")

	// constants
	b.add(OpI32Const, "i32.const", immI32, 0)
	b.add(OpI64Const, "i64.const", immI64, 0)
	b.add(OpF32Const, "f32.const", immF32, 0)
	b.add(OpF64Const, "f64.const", immF64, 0)

	// numeric, including sign extension
	b.run(0, 0x45, immNone, 0,
		"i32.eqz", "i32.eq", "i32.ne", "i32.lt_s", "i32.lt_u", "i32.gt_s", "i32.gt_u",
		"i32.le_s", "i32.le_u", "i32.ge_s", "i32.ge_u",
		"i64.eqz", "i64.eq", "i64.ne", "i64.lt_s", "i64.lt_u", "i64.gt_s", "i64.gt_u",
		"i64.le_s", "i64.le_u", "i64.ge_s", "i64.ge_u",
		"f32.eq", "f32.ne", "f32.lt", "f32.gt", "f32.le", "f32.ge",
		"f64.eq", "f64.ne", "f64.lt", "f64.gt", "f64.le", "f64.ge",
		"i32.clz", "i32.ctz", "i32.popcnt", "i32.add", "i32.sub", "i32.mul",
		"i32.div_s", "i32.div_u", "i32.rem_s", "i32.rem_u", "i32.and", "i32.or",
		"i32.xor", "i32.shl", "i32.shr_s", "i32.shr_u", "i32.rotl", "i32.rotr",
		"i64.clz", "i64.ctz", "i64.popcnt", "i64.add", "i64.sub", "i64.mul",
		"i64.div_s", "i64.div_u", "i64.rem_s", "i64.rem_u", "i64.and", "i64.or",
		"i64.xor", "i64.shl", "i64.shr_s", "i64.shr_u", "i64.rotl", "i64.rotr",
		"f32.abs", "f32.neg", "f32.ceil", "f32.floor", "f32.trunc", "f32.nearest",
		"f32.sqrt", "f32.add", "f32.sub", "f32.mul", "f32.div", "f32.min",
		"f32.max", "f32.copysign",
		"f64.abs", "f64.neg", "f64.ceil", "f64.floor", "f64.trunc", "f64.nearest",
		"f64.sqrt", "f64.add", "f64.sub", "f64.mul", "f64.div", "f64.min",
		"f64.max", "f64.copysign",
		"i32.wrap_i64", "i32.trunc_f32_s", "i32.trunc_f32_u", "i32.trunc_f64_s",
		"i32.trunc_f64_u", "i64.extend_i32_s", "i64.extend_i32_u", "i64.trunc_f32_s",
		"i64.trunc_f32_u", "i64.trunc_f64_s", "i64.trunc_f64_u", "f32.convert_i32_s",
		"f32.convert_i32_u", "f32.convert_i64_s", "f32.convert_i64_u", "f32.demote_f64",
		"f64.convert_i32_s", "f64.convert_i32_u", "f64.convert_i64_s", "f64.convert_i64_u",
		"f64.promote_f32", "i32.reinterpret_f32", "i64.reinterpret_f64",
		"f32.reinterpret_i32", "f64.reinterpret_i64",
		"i32.extend8_s", "i32.extend16_s", "i64.extend8_s", "i64.extend16_s", "i64.extend32_s")

	// references
	b.add(OpRefNull, "ref.null", immRefNull, FeatureReferenceTypes)
	b.add(OpRefIsNull, "ref.is_null", immNone, FeatureReferenceTypes)
	b.add(OpRefFunc, "ref.func", immCall, FeatureReferenceTypes)

	// 0xFC: saturating truncation, bulk memory, tables
	b.run(PrefixMisc, 0x00, immNone, 0,
		"i32.trunc_sat_f32_s", "i32.trunc_sat_f32_u", "i32.trunc_sat_f64_s", "i32.trunc_sat_f64_u",
		"i64.trunc_sat_f32_s", "i64.trunc_sat_f32_u", "i64.trunc_sat_f64_s", "i64.trunc_sat_f64_u")
	b.add(OpMemoryInit, "memory.init", immMemoryInit, FeatureBulkMemory)
	b.add(OpDataDrop, "data.drop", immDataDrop, FeatureBulkMemory)
	b.add(OpMemoryCopy, "memory.copy", immMemoryCopy, FeatureBulkMemory)
	b.add(OpMemoryFill, "memory.fill", immMemoryIdx, FeatureBulkMemory)
	b.add(OpTableInit, "table.init", immTableInit, FeatureBulkMemory)
	b.add(OpElemDrop, "elem.drop", immElemDrop, FeatureBulkMemory)
	b.add(OpTableCopy, "table.copy", immTableCopy, FeatureBulkMemory)
	b.run(PrefixMisc, 0x0F, immTable, FeatureReferenceTypes, "table.grow", "table.size", "table.fill")

	addSIMD(b)
	addAtomics(b)

	return b.rows
}

func addSIMD(b *tableBuilder) {
	const f = FeatureSIMD
	p := PrefixSIMD

	b.run(p, 0x00, immMemory, f,
		"v128.load", "v128.load8x8_s", "v128.load8x8_u", "v128.load16x4_s",
		"v128.load16x4_u", "v128.load32x2_s", "v128.load32x2_u", "v128.load8_splat",
		"v128.load16_splat", "v128.load32_splat", "v128.load64_splat", "v128.store")
	b.add(OpV128Const, "v128.const", immV128, f)
	b.add(OpI8x16Shuffle, "i8x16.shuffle", immShuffle, f)
	b.run(p, 0x0E, immNone, f,
		"i8x16.swizzle", "i8x16.splat", "i16x8.splat", "i32x4.splat",
		"i64x2.splat", "f32x4.splat", "f64x2.splat")
	b.run(p, 0x15, immLane16, f, "i8x16.extract_lane_s", "i8x16.extract_lane_u", "i8x16.replace_lane")
	b.run(p, 0x18, immLane8, f, "i16x8.extract_lane_s", "i16x8.extract_lane_u", "i16x8.replace_lane")
	b.run(p, 0x1B, immLane4, f, "i32x4.extract_lane", "i32x4.replace_lane")
	b.run(p, 0x1D, immLane2, f, "i64x2.extract_lane", "i64x2.replace_lane")
	b.run(p, 0x1F, immLane4, f, "f32x4.extract_lane", "f32x4.replace_lane")
	b.run(p, 0x21, immLane2, f, "f64x2.extract_lane", "f64x2.replace_lane")

	b.run(p, 0x23, immNone, f,
		"i8x16.eq", "i8x16.ne", "i8x16.lt_s", "i8x16.lt_u", "i8x16.gt_s",
		"i8x16.gt_u", "i8x16.le_s", "i8x16.le_u", "i8x16.ge_s", "i8x16.ge_u",
		"i16x8.eq", "i16x8.ne", "i16x8.lt_s", "i16x8.lt_u", "i16x8.gt_s",
		"i16x8.gt_u", "i16x8.le_s", "i16x8.le_u", "i16x8.ge_s", "i16x8.ge_u",
		"i32x4.eq", "i32x4.ne", "i32x4.lt_s", "i32x4.lt_u", "i32x4.gt_s",
		"i32x4.gt_u", "i32x4.le_s", "i32x4.le_u", "i32x4.ge_s", "i32x4.ge_u",
		"f32x4.eq", "f32x4.ne", "f32x4.lt", "f32x4.gt", "f32x4.le", "f32x4.ge",
		"f64x2.eq", "f64x2.ne", "f64x2.lt", "f64x2.gt", "f64x2.le", "f64x2.ge",
		"v128.not", "v128.and", "v128.andnot", "v128.or", "v128.xor",
		"v128.bitselect", "v128.any_true")

	b.add(Prefixed(p, 0x54), "v128.load8_lane", immMemoryLane16, f)
	b.add(Prefixed(p, 0x55), "v128.load16_lane", immMemoryLane8, f)
	b.add(Prefixed(p, 0x56), "v128.load32_lane", immMemoryLane4, f)
	b.add(Prefixed(p, 0x57), "v128.load64_lane", immMemoryLane2, f)
	b.add(Prefixed(p, 0x58), "v128.store8_lane", immMemoryLane16, f)
	b.add(Prefixed(p, 0x59), "v128.store16_lane", immMemoryLane8, f)
	b.add(Prefixed(p, 0x5A), "v128.store32_lane", immMemoryLane4, f)
	b.add(Prefixed(p, 0x5B), "v128.store64_lane", immMemoryLane2, f)
	b.run(p, 0x5C, immMemory, f, "v128.load32_zero", "v128.load64_zero")

	b.run(p, 0x5E, immNone, f,
		"f32x4.demote_f64x2_zero", "f64x2.promote_low_f32x4",
		"i8x16.abs", "i8x16.neg", "i8x16.popcnt", "i8x16.all_true", "i8x16.bitmask",
		"i8x16.narrow_i16x8_s", "i8x16.narrow_i16x8_u",
		"f32x4.ceil", "f32x4.floor", "f32x4.trunc", "f32x4.nearest",
		"i8x16.shl", "i8x16.shr_s", "i8x16.shr_u", "i8x16.add", "i8x16.add_sat_s",
		"i8x16.add_sat_u", "i8x16.sub", "i8x16.sub_sat_s", "i8x16.sub_sat_u",
		"f64x2.ceil", "f64x2.floor",
		"i8x16.min_s", "i8x16.min_u", "i8x16.max_s", "i8x16.max_u",
		"f64x2.trunc", "i8x16.avgr_u",
		"i16x8.extadd_pairwise_i8x16_s", "i16x8.extadd_pairwise_i8x16_u",
		"i32x4.extadd_pairwise_i16x8_s", "i32x4.extadd_pairwise_i16x8_u",
		// 0x80
		"i16x8.abs", "i16x8.neg", "i16x8.q15mulr_sat_s", "i16x8.all_true", "i16x8.bitmask",
		"i16x8.narrow_i32x4_s", "i16x8.narrow_i32x4_u",
		"i16x8.extend_low_i8x16_s", "i16x8.extend_high_i8x16_s",
		"i16x8.extend_low_i8x16_u", "i16x8.extend_high_i8x16_u",
		"i16x8.shl", "i16x8.shr_s", "i16x8.shr_u", "i16x8.add", "i16x8.add_sat_s",
		"i16x8.add_sat_u", "i16x8.sub", "i16x8.sub_sat_s", "i16x8.sub_sat_u",
		"f64x2.nearest", "i16x8.mul", "i16x8.min_s", "i16x8.min_u", "i16x8.max_s",
		"i16x8.max_u", "", "i16x8.avgr_u",
		"i16x8.extmul_low_i8x16_s", "i16x8.extmul_high_i8x16_s",
		"i16x8.extmul_low_i8x16_u", "i16x8.extmul_high_i8x16_u",
		// 0xA0
		"i32x4.abs", "i32x4.neg", "", "i32x4.all_true", "i32x4.bitmask", "", "",
		"i32x4.extend_low_i16x8_s", "i32x4.extend_high_i16x8_s",
		"i32x4.extend_low_i16x8_u", "i32x4.extend_high_i16x8_u",
		"i32x4.shl", "i32x4.shr_s", "i32x4.shr_u", "i32x4.add", "", "",
		"i32x4.sub", "", "", "", "i32x4.mul", "i32x4.min_s", "i32x4.min_u",
		"i32x4.max_s", "i32x4.max_u", "i32x4.dot_i16x8_s", "",
		"i32x4.extmul_low_i16x8_s", "i32x4.extmul_high_i16x8_s",
		"i32x4.extmul_low_i16x8_u", "i32x4.extmul_high_i16x8_u",
		// 0xC0
		"i64x2.abs", "i64x2.neg", "", "i64x2.all_true", "i64x2.bitmask", "", "",
		"i64x2.extend_low_i32x4_s", "i64x2.extend_high_i32x4_s",
		"i64x2.extend_low_i32x4_u", "i64x2.extend_high_i32x4_u",
		"i64x2.shl", "i64x2.shr_s", "i64x2.shr_u", "i64x2.add", "", "",
		"i64x2.sub", "", "", "", "i64x2.mul",
		"i64x2.eq", "i64x2.ne", "i64x2.lt_s", "i64x2.gt_s", "i64x2.le_s", "i64x2.ge_s",
		"i64x2.extmul_low_i32x4_s", "i64x2.extmul_high_i32x4_s",
		"i64x2.extmul_low_i32x4_u", "i64x2.extmul_high_i32x4_u",
		// 0xE0
		"f32x4.abs", "f32x4.neg", "", "f32x4.sqrt", "f32x4.add", "f32x4.sub",
		"f32x4.mul", "f32x4.div", "f32x4.min", "f32x4.max", "f32x4.pmin", "f32x4.pmax",
		"f64x2.abs", "f64x2.neg", "", "f64x2.sqrt", "f64x2.add", "f64x2.sub",
		"f64x2.mul", "f64x2.div", "f64x2.min", "f64x2.max", "f64x2.pmin", "f64x2.pmax",
		"i32x4.trunc_sat_f32x4_s", "i32x4.trunc_sat_f32x4_u",
		"f32x4.convert_i32x4_s", "f32x4.convert_i32x4_u",
		"i32x4.trunc_sat_f64x2_s_zero", "i32x4.trunc_sat_f64x2_u_zero",
		"f64x2.convert_low_i32x4_s", "f64x2.convert_low_i32x4_u")
}

func addAtomics(b *tableBuilder) {
	const f = FeatureThreads
	p := PrefixAtomic

	b.run(p, 0x00, immMemory, f, "memory.atomic.notify", "memory.atomic.wait32", "memory.atomic.wait64")
	b.add(OpAtomicFence, "atomic.fence", immAtomicFence, f)
	b.run(p, 0x10, immMemory, f,
		"i32.atomic.load", "i64.atomic.load", "i32.atomic.load8_u", "i32.atomic.load16_u",
		"i64.atomic.load8_u", "i64.atomic.load16_u", "i64.atomic.load32_u",
		"i32.atomic.store", "i64.atomic.store", "i32.atomic.store8", "i32.atomic.store16",
		"i64.atomic.store8", "i64.atomic.store16", "i64.atomic.store32")

	sub := uint32(0x1E)
	for _, op := range []string{"add", "sub", "and", "or", "xor", "xchg", "cmpxchg"} {
		b.run(p, sub, immMemory, f,
			"i32.atomic.rmw."+op, "i64.atomic.rmw."+op,
			"i32.atomic.rmw8."+op+"_u", "i32.atomic.rmw16."+op+"_u",
			"i64.atomic.rmw8."+op+"_u", "i64.atomic.rmw16."+op+"_u", "i64.atomic.rmw32."+op+"_u")
		sub += 7
	}
}

var immPrototypes = map[immKind]any{
	immBlock:        BlockImm{},
	immIf:           IfImm{},
	immBranch:       BranchImm{},
	immBrTable:      BrTableImm{},
	immCall:         CallImm{},
	immCallIndirect: CallIndirectImm{},
	immLocal:        LocalImm{},
	immGlobal:       GlobalImm{},
	immTable:        TableImm{},
	immMemory:       MemoryImm{},
	immMemoryIdx:    MemoryIdxImm{},
	immI32:          I32Imm{},
	immI64:          I64Imm{},
	immF32:          F32Imm{},
	immF64:          F64Imm{},
	immSelectType:   SelectTypeImm{},
	immRefNull:      RefNullImm{},
	immMemoryInit:   MemoryInitImm{},
	immDataDrop:     DataDropImm{},
	immMemoryCopy:   MemoryCopyImm{},
	immTableInit:    TableInitImm{},
	immElemDrop:     ElemDropImm{},
	immTableCopy:    TableCopyImm{},
	immV128:         V128Imm{},
	immShuffle:      ShuffleImm{},
	immLane16:       LaneImm{},
	immLane8:        LaneImm{},
	immLane4:        LaneImm{},
	immLane2:        LaneImm{},
	immMemoryLane16: MemoryLaneImm{},
	immMemoryLane8:  MemoryLaneImm{},
	immMemoryLane4:  MemoryLaneImm{},
	immMemoryLane2:  MemoryLaneImm{},
	immAtomicFence:  AtomicFenceImm{},
}

// ImmediateOf returns the zero immediate of op, or nil when op takes none.
// ok is false for unknown opcodes.
func ImmediateOf(op Opcode) (imm any, ok bool) {
	info, ok := opcodeByCode[op]
	if !ok {
		return nil, false
	}
	return immPrototypes[info.imm], true
}

// Lanes returns the lane count of a lane immediate, or 0 for opcodes
// without one.
func (o Opcode) Lanes() int {
	switch opcodeByCode[o].imm {
	case immLane16, immMemoryLane16:
		return 16
	case immLane8, immMemoryLane8:
		return 8
	case immLane4, immMemoryLane4:
		return 4
	case immLane2, immMemoryLane2:
		return 2
	}
	return 0
}
