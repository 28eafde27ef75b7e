package wasm

import "fmt"

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// SectionID is the one-byte identifier preceding every section.
type SectionID byte

// Section IDs define the binary identifiers for each module section.
const (
	SectionCustom    SectionID = 0  // Custom section (can appear anywhere)
	SectionType      SectionID = 1  // Type section (function signatures)
	SectionImport    SectionID = 2  // Import section
	SectionFunction  SectionID = 3  // Function section (type indices)
	SectionTable     SectionID = 4  // Table section
	SectionMemory    SectionID = 5  // Memory section
	SectionGlobal    SectionID = 6  // Global section
	SectionExport    SectionID = 7  // Export section
	SectionStart     SectionID = 8  // Start section
	SectionElement   SectionID = 9  // Element section
	SectionCode      SectionID = 10 // Code section (function bodies)
	SectionData      SectionID = 11 // Data section
	SectionDataCount SectionID = 12 // Data count section (bulk memory)
)

var sectionNames = [...]string{
	"custom", "type", "import", "function", "table", "memory", "global",
	"export", "start", "element", "code", "data", "datacount",
}

func (id SectionID) String() string {
	if int(id) < len(sectionNames) {
		return sectionNames[id]
	}
	return fmt.Sprintf("section(%d)", byte(id))
}

// Known reports whether the ID has a typed payload.
func (id SectionID) Known() bool {
	return int(id) < len(sectionNames)
}

// Import/Export descriptor kinds identify the type of imported or exported item.
const (
	KindFunc   byte = 0 // Function import/export
	KindTable  byte = 1 // Table import/export
	KindMemory byte = 2 // Memory import/export
	KindGlobal byte = 3 // Global import/export
)

// ValType represents a WebAssembly value type.
type ValType byte

// Value type encodings as defined in the WebAssembly binary format.
const (
	ValI32     ValType = 0x7F // 32-bit integer
	ValI64     ValType = 0x7E // 64-bit integer
	ValF32     ValType = 0x7D // 32-bit float
	ValF64     ValType = 0x7C // 64-bit float
	ValV128    ValType = 0x7B // 128-bit vector (SIMD)
	ValFuncRef ValType = 0x70 // Function reference
	ValExtern  ValType = 0x6F // External reference
)

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	default:
		return fmt.Sprintf("valtype(0x%02x)", byte(v))
	}
}

// RefType is the element type of a table or the heap type of ref.null.
type RefType byte

const (
	RefFunc   RefType = 0x70
	RefExtern RefType = 0x6F
)

func (r RefType) String() string {
	return ValType(r).String()
}

// ElemKind is the element kind byte of legacy element segment forms.
// Only funcref (0x00) is defined.
type ElemKind byte

const ElemKindFuncRef ElemKind = 0x00

// Block type constants
const (
	BlockEmpty BlockType = -64 // 0x40
	BlockI32   BlockType = -1  // 0x7F
	BlockI64   BlockType = -2  // 0x7E
	BlockF32   BlockType = -3  // 0x7D
	BlockF64   BlockType = -4  // 0x7C
	BlockV128  BlockType = -5  // 0x7B
)

// Opcode prefixes
const (
	PrefixMisc   byte = 0xFC // saturating trunc, bulk memory, table ops
	PrefixSIMD   byte = 0xFD // 128-bit vector operations
	PrefixAtomic byte = 0xFE // threads: atomic memory operations
)

// Structural bytes that terminate instruction sequences.
const (
	OpElse byte = 0x05
	OpEnd  byte = 0x0B
)

// Control flow opcodes
const (
	OpUnreachable        Opcode = 0x00
	OpNop                Opcode = 0x01
	OpBlock              Opcode = 0x02
	OpLoop               Opcode = 0x03
	OpIf                 Opcode = 0x04
	OpBr                 Opcode = 0x0C
	OpBrIf               Opcode = 0x0D
	OpBrTable            Opcode = 0x0E
	OpReturn             Opcode = 0x0F
	OpCall               Opcode = 0x10
	OpCallIndirect       Opcode = 0x11
	OpReturnCall         Opcode = 0x12 // Tail call proposal
	OpReturnCallIndirect Opcode = 0x13 // Tail call proposal
)

// Parametric and variable opcodes
const (
	OpDrop       Opcode = 0x1A
	OpSelect     Opcode = 0x1B
	OpSelectType Opcode = 0x1C
	OpLocalGet   Opcode = 0x20
	OpLocalSet   Opcode = 0x21
	OpLocalTee   Opcode = 0x22
	OpGlobalGet  Opcode = 0x23
	OpGlobalSet  Opcode = 0x24
	OpTableGet   Opcode = 0x25
	OpTableSet   Opcode = 0x26
)

// Memory opcodes
const (
	OpI32Load    Opcode = 0x28
	OpI64Load    Opcode = 0x29
	OpF32Load    Opcode = 0x2A
	OpF64Load    Opcode = 0x2B
	OpI32Store   Opcode = 0x36
	OpI64Store   Opcode = 0x37
	OpMemorySize Opcode = 0x3F
	OpMemoryGrow Opcode = 0x40
)

// Constant and selected numeric opcodes
const (
	OpI32Const    Opcode = 0x41
	OpI64Const    Opcode = 0x42
	OpF32Const    Opcode = 0x43
	OpF64Const    Opcode = 0x44
	OpI32Eqz      Opcode = 0x45
	OpI32Add      Opcode = 0x6A
	OpI64Add      Opcode = 0x7C
	OpF32Add      Opcode = 0x92
	OpF64Add      Opcode = 0xA0
	OpI32Extend8S Opcode = 0xC0
)

// Reference opcodes
const (
	OpRefNull   Opcode = 0xD0
	OpRefIsNull Opcode = 0xD1
	OpRefFunc   Opcode = 0xD2
)

// Misc opcodes (0xFC prefix)
var (
	OpI32TruncSatF32S = Prefixed(PrefixMisc, 0x00)
	OpMemoryInit      = Prefixed(PrefixMisc, 0x08)
	OpDataDrop        = Prefixed(PrefixMisc, 0x09)
	OpMemoryCopy      = Prefixed(PrefixMisc, 0x0A)
	OpMemoryFill      = Prefixed(PrefixMisc, 0x0B)
	OpTableInit       = Prefixed(PrefixMisc, 0x0C)
	OpElemDrop        = Prefixed(PrefixMisc, 0x0D)
	OpTableCopy       = Prefixed(PrefixMisc, 0x0E)
	OpTableGrow       = Prefixed(PrefixMisc, 0x0F)
	OpTableSize       = Prefixed(PrefixMisc, 0x10)
	OpTableFill       = Prefixed(PrefixMisc, 0x11)
)

// Selected SIMD (0xFD prefix) and atomic (0xFE prefix) opcodes
var (
	OpV128Load        = Prefixed(PrefixSIMD, 0x00)
	OpV128Const       = Prefixed(PrefixSIMD, 0x0C)
	OpI8x16Shuffle    = Prefixed(PrefixSIMD, 0x0D)
	OpI8x16ExtractLnS = Prefixed(PrefixSIMD, 0x15)
	OpV128Load8Lane   = Prefixed(PrefixSIMD, 0x54)
	OpI32x4Add        = Prefixed(PrefixSIMD, 0xAE)

	OpMemoryAtomicNotify = Prefixed(PrefixAtomic, 0x00)
	OpAtomicFence        = Prefixed(PrefixAtomic, 0x03)
	OpI32AtomicLoad      = Prefixed(PrefixAtomic, 0x10)
	OpI32AtomicRmwAdd    = Prefixed(PrefixAtomic, 0x1E)
)
