package wasm

import (
	"fmt"
	"math"
)

// Opcode identifies an instruction. Single-byte opcodes are their byte
// value; prefixed opcodes are prefix<<24 | sub-opcode.
type Opcode uint32

// maxSubOpcode is the largest sub-opcode representable next to the prefix.
const maxSubOpcode = 1<<24 - 1

// Prefixed builds the opcode for a sub-opcode in a prefixed space.
func Prefixed(prefix byte, sub uint32) Opcode {
	return Opcode(prefix)<<24 | Opcode(sub&maxSubOpcode)
}

// Prefix returns the prefix byte, or 0 for single-byte opcodes.
func (o Opcode) Prefix() byte {
	return byte(o >> 24)
}

// Sub returns the sub-opcode of a prefixed opcode, or the opcode byte.
func (o Opcode) Sub() uint32 {
	return uint32(o) & maxSubOpcode
}

func (o Opcode) String() string {
	if info, ok := opcodeByCode[o]; ok {
		return info.name
	}
	if p := o.Prefix(); p != 0 {
		return prefixedString(p, uint64(o.Sub()))
	}
	return fmt.Sprintf("0x%02x", uint32(o))
}

// prefixedString renders a prefix byte and sub-opcode as they appear in the
// input.
func prefixedString(prefix byte, sub uint64) string {
	return fmt.Sprintf("0x%02x 0x%02x", prefix, sub)
}

// Instruction is one decoded instruction. Imm holds the immediate struct for
// the opcode (BlockImm, MemoryImm, ...) or nil when there is none.
type Instruction struct {
	Imm any
	Op  Opcode
}

// Expr is an instruction sequence. Bodies of block, loop and if nest.
type Expr []Instruction

// Walk calls fn for every instruction in e in order, descending into
// nested bodies. depth is 0 for e itself. Returning false from fn skips
// the instruction's nested bodies.
func (e Expr) Walk(fn func(in Instruction, depth int) bool) {
	e.walk(fn, 0)
}

func (e Expr) walk(fn func(Instruction, int) bool, depth int) {
	for _, in := range e {
		if !fn(in, depth) {
			continue
		}
		switch imm := in.Imm.(type) {
		case BlockImm:
			imm.Body.walk(fn, depth+1)
		case IfImm:
			imm.Then.walk(fn, depth+1)
			if imm.Else != nil {
				imm.Else.walk(fn, depth+1)
			}
		}
	}
}

// BlockType is the signature of a structured instruction: BlockEmpty, a
// negative value type code, or a non-negative type index.
type BlockType int64

// BlockOf returns the block type producing a single value of type v.
func BlockOf(v ValType) BlockType {
	return BlockType(int64(v) - 0x80)
}

// BlockIndex returns the block type referring to a function type.
func BlockIndex(typeIdx uint32) BlockType {
	return BlockType(typeIdx)
}

// ValType returns the result type of a single-value block type.
func (b BlockType) ValType() (ValType, bool) {
	if b < 0 && b != BlockEmpty && b >= -0x40 {
		return ValType(b + 0x80), true
	}
	return 0, false
}

// TypeIndex returns the function type index of a multi-value block type.
func (b BlockType) TypeIndex() (uint32, bool) {
	if b >= 0 {
		return uint32(b), true
	}
	return 0, false
}

// BlockImm is the immediate of block and loop.
type BlockImm struct {
	Body Expr
	Type BlockType
}

// IfImm is the immediate of if. Else is nil when the instruction has no
// else arm, and points to an empty Expr for an explicit empty one.
type IfImm struct {
	Else *Expr
	Then Expr
	Type BlockType
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	Label uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call, return_call and ref.func.
type CallImm struct {
	Func uint32
}

// CallIndirectImm holds type and table indices for call_indirect.
type CallIndirectImm struct {
	Type  uint32
	Table uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	Local uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	Global uint32
}

// TableImm holds the table index for table.get/set/grow/size/fill.
type TableImm struct {
	Table uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Align  uint32
	Offset uint32
}

// MemoryIdxImm holds the memory index for memory.size, memory.grow and
// memory.fill.
type MemoryIdxImm struct {
	Mem uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const instruction.
type I64Imm struct {
	Value int64
}

// F32Imm holds the bit pattern of an f32.const so NaN payloads survive.
type F32Imm struct {
	Bits uint32
}

// F32Const returns the immediate for v.
func F32Const(v float32) F32Imm {
	return F32Imm{Bits: math.Float32bits(v)}
}

// Value returns the constant as a float.
func (f F32Imm) Value() float32 {
	return math.Float32frombits(f.Bits)
}

// F64Imm holds the bit pattern of an f64.const.
type F64Imm struct {
	Bits uint64
}

// F64Const returns the immediate for v.
func F64Const(v float64) F64Imm {
	return F64Imm{Bits: math.Float64bits(v)}
}

// Value returns the constant as a float.
func (f F64Imm) Value() float64 {
	return math.Float64frombits(f.Bits)
}

// SelectTypeImm holds the result types of a typed select.
type SelectTypeImm struct {
	Types []ValType
}

// RefNullImm holds the heap type of ref.null.
type RefNullImm struct {
	Type RefType
}

// MemoryInitImm holds the operands of memory.init.
type MemoryInitImm struct {
	Data uint32
	Mem  uint32
}

// DataDropImm holds the segment index of data.drop.
type DataDropImm struct {
	Data uint32
}

// MemoryCopyImm holds destination and source memories of memory.copy.
type MemoryCopyImm struct {
	Dst uint32
	Src uint32
}

// TableInitImm holds the operands of table.init.
type TableInitImm struct {
	Elem  uint32
	Table uint32
}

// ElemDropImm holds the segment index of elem.drop.
type ElemDropImm struct {
	Elem uint32
}

// TableCopyImm holds destination and source tables of table.copy.
type TableCopyImm struct {
	Dst uint32
	Src uint32
}

// V128Imm holds the 16 bytes of v128.const.
type V128Imm struct {
	Bytes [16]byte
}

// ShuffleImm holds the lane selectors of i8x16.shuffle. Each is below 32.
type ShuffleImm struct {
	Lanes [16]byte
}

// LaneImm holds the lane index of extract_lane and replace_lane.
type LaneImm struct {
	Lane byte
}

// MemoryLaneImm holds the memarg and lane of load_lane and store_lane.
type MemoryLaneImm struct {
	Mem  MemoryImm
	Lane byte
}

// AtomicFenceImm holds the reserved flags byte of atomic.fence.
type AtomicFenceImm struct {
	Flags byte
}
