package wasm

import (
	"github.com/wippyai/wasm-codec/codec"
)

// Index spaces. Import and export descriptors use these as union variants.
type (
	TypeIdx   uint32
	FuncIdx   uint32
	TableIdx  uint32
	MemIdx    uint32
	GlobalIdx uint32
)

// FuncType represents a function signature with parameter and result types.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Limits describes size constraints for tables and memories.
// Shared memories require the threads feature.
type Limits struct {
	Max    *uint32
	Min    uint32
	Shared bool
}

// TableType describes a table with element type and size limits.
type TableType struct {
	Limits Limits
	Elem   RefType
}

// MemoryType describes a linear memory with size limits.
type MemoryType struct {
	Limits Limits
}

// GlobalType describes a global variable's type and mutability.
type GlobalType struct {
	Type    ValType
	Mutable bool
}

// ImportDesc is one of TypeIdx (function), TableType, MemoryType or
// GlobalType.
type ImportDesc interface {
	importDesc()
}

func (TypeIdx) importDesc()    {}
func (TableType) importDesc()  {}
func (MemoryType) importDesc() {}
func (GlobalType) importDesc() {}

// Import represents an imported function, table, memory or global.
type Import struct {
	Desc   ImportDesc
	Module string
	Name   string
}

// ExportDesc is one of FuncIdx, TableIdx, MemIdx or GlobalIdx.
type ExportDesc interface {
	exportDesc()
}

func (FuncIdx) exportDesc()   {}
func (TableIdx) exportDesc()  {}
func (MemIdx) exportDesc()    {}
func (GlobalIdx) exportDesc() {}

// Export describes an exported item.
type Export struct {
	Desc ExportDesc
	Name string
}

// Global represents a global variable with type and initialization.
type Global struct {
	Init Expr
	Type GlobalType
}

// Element represents an element segment.
// Flags determine the format:
//   - 0: active, table 0, offset expr, vec(funcidx)
//   - 1: passive, elemkind, vec(funcidx)
//   - 2: active, table, offset expr, elemkind, vec(funcidx)
//   - 3: declarative, elemkind, vec(funcidx)
//   - 4: active, table 0, offset expr, vec(expr)
//   - 5: passive, reftype, vec(expr)
//   - 6: active, table, offset expr, reftype, vec(expr)
//   - 7: declarative, reftype, vec(expr)
//
// Forms 1 to 7 require bulk memory.
type Element struct {
	Offset Expr
	Funcs  []FuncIdx
	Exprs  []Expr
	Flags  uint32
	Table  TableIdx
	Kind   ElemKind
	Type   RefType
}

// Element segment form bits.
const (
	ElemPassiveOrDeclarative uint32 = 0x01
	ElemExplicitTable        uint32 = 0x02
	ElemExpressions          uint32 = 0x04
)

// Active reports whether the segment initializes a table at instantiation.
func (e *Element) Active() bool {
	return e.Flags&ElemPassiveOrDeclarative == 0
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	Count   uint32
	ValType ValType
}

// FuncBody represents a function's local declarations and code.
type FuncBody struct {
	Locals []LocalEntry
	Code   Expr
}

// DataSegment represents a data segment.
// Flags determine the format:
//   - 0: active, memory 0, offset expr, vec(byte)
//   - 1: passive, vec(byte) (bulk memory)
//   - 2: active, memory, offset expr, vec(byte)
type DataSegment struct {
	Offset Expr
	Init   []byte
	Flags  uint32
	Memory MemIdx
}

// Payload is a typed section body.
type Payload interface {
	SectionID() SectionID
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// TypeSection lists function signatures.
type TypeSection struct {
	Types []FuncType
}

// ImportSection lists imports.
type ImportSection struct {
	Imports []Import
}

// FunctionSection lists the type index of each defined function.
type FunctionSection struct {
	Types []TypeIdx
}

// TableSection lists defined tables.
type TableSection struct {
	Tables []TableType
}

// MemorySection lists defined memories.
type MemorySection struct {
	Memories []MemoryType
}

// GlobalSection lists defined globals.
type GlobalSection struct {
	Globals []Global
}

// ExportSection lists exports.
type ExportSection struct {
	Exports []Export
}

// StartSection names the start function.
type StartSection struct {
	Func FuncIdx
}

// ElementSection lists element segments.
type ElementSection struct {
	Elements []Element
}

// CodeSection holds function bodies. Each body stays raw until accessed.
type CodeSection struct {
	Bodies []*codec.Lazy[FuncBody]
}

// Dirty reports whether any body was changed or built in memory.
func (s *CodeSection) Dirty() bool {
	for _, b := range s.Bodies {
		if b.Dirty() {
			return true
		}
	}
	return false
}

// DataSection lists data segments.
type DataSection struct {
	Segments []DataSegment
}

// DataCountSection declares the number of data segments.
type DataCountSection struct {
	Count uint32
}

// UnknownSection is the opaque payload of a section ID this package does not
// recognize. It is re-encoded byte for byte.
type UnknownSection struct {
	Data []byte
}

func (CustomSection) SectionID() SectionID    { return SectionCustom }
func (TypeSection) SectionID() SectionID      { return SectionType }
func (ImportSection) SectionID() SectionID    { return SectionImport }
func (FunctionSection) SectionID() SectionID  { return SectionFunction }
func (TableSection) SectionID() SectionID     { return SectionTable }
func (MemorySection) SectionID() SectionID    { return SectionMemory }
func (GlobalSection) SectionID() SectionID    { return SectionGlobal }
func (ExportSection) SectionID() SectionID    { return SectionExport }
func (StartSection) SectionID() SectionID     { return SectionStart }
func (ElementSection) SectionID() SectionID   { return SectionElement }
func (CodeSection) SectionID() SectionID      { return SectionCode }
func (DataSection) SectionID() SectionID      { return SectionData }
func (DataCountSection) SectionID() SectionID { return SectionDataCount }
