// Package modgen generates pseudo random, structurally well-formed modules
// for round-trip testing. Generated modules decode with the features they
// were generated for but are not meant to validate or run.
package modgen

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
	"strconv"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/wasm"
)

// maxDepth bounds block nesting in generated code.
const maxDepth = 3

// Gen generates a pseudo random module based on `seed`. The same seed and
// features always produce the same module.
func Gen(seed []byte, features wasm.Features) *wasm.Module {
	if len(seed) == 0 {
		return &wasm.Module{}
	}

	checksum := sha256.Sum256(seed)
	// Use 4 randoms created from the unique sha256 hash value of the seed.
	g := &generator{size: len(seed), rands: make([]random, 4), features: features.Normalize()}
	for i := 0; i < 4; i++ {
		g.rands[i] = rand.New(rand.NewSource(
			int64(binary.LittleEndian.Uint64(checksum[i*8 : (i+1)*8]))))
	}
	return g.gen()
}

type generator struct {
	// rands holds random sources for generating a module.
	rands         []random
	nextRandIndex int

	// size holds the original size of the seed.
	size int

	features wasm.Features
	valTypes []wasm.ValType
	refTypes []wasm.RefType
	ops      []wasm.Opcode
	numTypes int
	numFuncs int
	numData  int

	// m is the resulting module.
	m *wasm.Module
}

type random interface {
	// See rand.Intn.
	Intn(n int) int

	// See rand.Read
	Read(p []byte) (n int, err error)
}

func (g *generator) nextRandom() (ret random) {
	ret = g.rands[g.nextRandIndex]
	g.nextRandIndex = (g.nextRandIndex + 1) % len(g.rands)
	return
}

func (g *generator) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return g.nextRandom().Intn(n)
}

func (g *generator) flip() bool {
	return g.intn(2) == 0
}

// count returns a small element count scaled by the seed size.
func (g *generator) count() int {
	return g.intn(g.size%16 + 1)
}

func (g *generator) u32() uint32 {
	if g.flip() {
		return uint32(g.intn(128))
	}
	return uint32(g.intn(math.MaxInt32))
}

func (g *generator) bytes(n int) []byte {
	b := make([]byte, n)
	_, _ = g.nextRandom().Read(b)
	return b
}

func (g *generator) add(s *wasm.Section) {
	g.m.Sections = append(g.m.Sections, s)
}

func (g *generator) gen() *wasm.Module {
	g.m = &wasm.Module{}

	g.valTypes = []wasm.ValType{wasm.ValI32, wasm.ValI64, wasm.ValF32, wasm.ValF64}
	g.refTypes = []wasm.RefType{wasm.RefFunc}
	if g.features.Has(wasm.FeatureSIMD) {
		g.valTypes = append(g.valTypes, wasm.ValV128)
	}
	if g.features.Has(wasm.FeatureReferenceTypes) {
		g.valTypes = append(g.valTypes, wasm.ValFuncRef, wasm.ValExtern)
		g.refTypes = append(g.refTypes, wasm.RefExtern)
	}
	g.ops = wasm.Opcodes(g.features)

	g.typeSection()
	g.importSection()
	g.functionSection()
	g.tableSection()
	g.memorySection()
	g.globalSection()
	g.exportSection()
	g.startSection()
	g.elementSection()
	g.dataCountSection()
	g.codeSection()
	g.dataSection()
	g.customSections()
	return g.m
}

func (g *generator) newValueType() wasm.ValType {
	return g.valTypes[g.intn(len(g.valTypes))]
}

func (g *generator) newRefType() wasm.RefType {
	return g.refTypes[g.intn(len(g.refTypes))]
}

func (g *generator) typeSection() {
	g.numTypes = g.count()
	if g.numTypes == 0 {
		return
	}
	sec := wasm.TypeSection{}
	for i := 0; i < g.numTypes; i++ {
		ft := wasm.FuncType{}
		for j := g.intn(4); j > 0; j-- {
			ft.Params = append(ft.Params, g.newValueType())
		}
		for j := g.intn(3); j > 0; j-- {
			ft.Results = append(ft.Results, g.newValueType())
		}
		sec.Types = append(sec.Types, ft)
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) newLimits(shareable bool) wasm.Limits {
	min := g.intn(4) // Min in reality is relatively small like 4.
	l := wasm.Limits{Min: uint32(min)}
	if g.flip() {
		max := uint32(g.intn(1<<16-min) + min)
		l.Max = &max
	}
	if shareable && l.Max != nil && g.features.Has(wasm.FeatureThreads) {
		l.Shared = g.flip()
	}
	return l
}

func (g *generator) importSection() {
	numImports := g.count()
	if numImports == 0 {
		return
	}
	sec := wasm.ImportSection{}
	for i := 0; i < numImports; i++ {
		imp := wasm.Import{
			Module: "module-" + strconv.Itoa(i),
			Name:   strconv.Itoa(i),
		}
		switch g.intn(4) {
		case 0:
			imp.Desc = wasm.TypeIdx(g.intn(g.numTypes))
		case 1:
			imp.Desc = wasm.TableType{Elem: g.newRefType(), Limits: g.newLimits(false)}
		case 2:
			imp.Desc = wasm.MemoryType{Limits: g.newLimits(true)}
		case 3:
			imp.Desc = wasm.GlobalType{Type: g.newValueType(), Mutable: g.flip()}
		}
		sec.Imports = append(sec.Imports, imp)
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) functionSection() {
	if g.numTypes == 0 {
		return
	}
	g.numFuncs = g.count()
	if g.numFuncs == 0 {
		return
	}
	sec := wasm.FunctionSection{}
	for i := 0; i < g.numFuncs; i++ {
		sec.Types = append(sec.Types, wasm.TypeIdx(g.intn(g.numTypes)))
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) tableSection() {
	if g.flip() {
		return
	}
	g.add(wasm.NewSection(wasm.TableSection{Tables: []wasm.TableType{{Elem: g.newRefType(), Limits: g.newLimits(false)}}}))
}

func (g *generator) memorySection() {
	if g.flip() {
		return
	}
	g.add(wasm.NewSection(wasm.MemorySection{Memories: []wasm.MemoryType{{Limits: g.newLimits(true)}}}))
}

func (g *generator) globalSection() {
	numGlobals := g.count()
	if numGlobals == 0 {
		return
	}
	sec := wasm.GlobalSection{}
	for i := 0; i < numGlobals; i++ {
		expr, t := g.newConstExpr()
		sec.Globals = append(sec.Globals, wasm.Global{
			Type: wasm.GlobalType{Type: t, Mutable: g.flip()},
			Init: expr,
		})
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) newConstExpr() (wasm.Expr, wasm.ValType) {
	switch g.intn(4) {
	case 0:
		v := int32(g.intn(math.MaxInt32))
		if g.flip() {
			v = -v
		}
		return wasm.Expr{{Op: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}}, wasm.ValI32
	case 1:
		v := int64(binary.LittleEndian.Uint64(g.bytes(8)))
		return wasm.Expr{{Op: wasm.OpI64Const, Imm: wasm.I64Imm{Value: v}}}, wasm.ValI64
	case 2:
		bits := binary.LittleEndian.Uint32(g.bytes(4))
		return wasm.Expr{{Op: wasm.OpF32Const, Imm: wasm.F32Imm{Bits: bits}}}, wasm.ValF32
	default:
		bits := binary.LittleEndian.Uint64(g.bytes(8))
		return wasm.Expr{{Op: wasm.OpF64Const, Imm: wasm.F64Imm{Bits: bits}}}, wasm.ValF64
	}
}

func (g *generator) exportSection() {
	numExports := g.count()
	if numExports == 0 {
		return
	}
	sec := wasm.ExportSection{}
	for i := 0; i < numExports; i++ {
		exp := wasm.Export{Name: strconv.Itoa(i)}
		idx := uint32(g.intn(8))
		switch g.intn(4) {
		case 0:
			exp.Desc = wasm.FuncIdx(idx)
		case 1:
			exp.Desc = wasm.TableIdx(idx)
		case 2:
			exp.Desc = wasm.MemIdx(idx)
		case 3:
			exp.Desc = wasm.GlobalIdx(idx)
		}
		sec.Exports = append(sec.Exports, exp)
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) startSection() {
	if g.numFuncs == 0 || g.flip() {
		return
	}
	g.add(wasm.NewSection(wasm.StartSection{Func: wasm.FuncIdx(g.intn(g.numFuncs))}))
}

func (g *generator) funcIndices() []wasm.FuncIdx {
	var out []wasm.FuncIdx
	for i := g.count(); i > 0; i-- {
		out = append(out, wasm.FuncIdx(g.intn(g.numFuncs+1)))
	}
	return out
}

func (g *generator) elementSection() {
	numElements := g.count()
	if numElements == 0 {
		return
	}
	forms := 1
	if g.features.Has(wasm.FeatureBulkMemory) {
		forms = 8
	}
	sec := wasm.ElementSection{}
	for i := 0; i < numElements; i++ {
		flags := uint32(g.intn(forms))
		e := wasm.Element{Flags: flags}
		if flags&wasm.ElemPassiveOrDeclarative == 0 {
			e.Offset, _ = g.newConstExpr()
		}
		if flags&wasm.ElemExplicitTable != 0 && flags&wasm.ElemPassiveOrDeclarative == 0 {
			e.Table = wasm.TableIdx(g.intn(2))
		}
		if flags&wasm.ElemExpressions != 0 {
			if flags != 4 {
				e.Type = g.newRefType()
			}
			for j := g.count(); j > 0; j-- {
				e.Exprs = append(e.Exprs, g.newExpr(maxDepth))
			}
		} else {
			e.Funcs = g.funcIndices()
		}
		sec.Elements = append(sec.Elements, e)
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) dataCountSection() {
	g.numData = g.count()
	if g.numData == 0 || !g.features.Has(wasm.FeatureBulkMemory) {
		return
	}
	g.add(wasm.NewSection(wasm.DataCountSection{Count: uint32(g.numData)}))
}

func (g *generator) codeSection() {
	if g.numFuncs == 0 {
		return
	}
	sec := wasm.CodeSection{}
	for i := 0; i < g.numFuncs; i++ {
		body := wasm.FuncBody{Code: g.newExpr(0)}
		for j := g.intn(3); j > 0; j-- {
			body.Locals = append(body.Locals, wasm.LocalEntry{Count: uint32(g.intn(8) + 1), ValType: g.newValueType()})
		}
		sec.Bodies = append(sec.Bodies, codec.NewValue(body))
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) dataSection() {
	if g.numData == 0 {
		return
	}
	sec := wasm.DataSection{}
	for i := 0; i < g.numData; i++ {
		d := wasm.DataSegment{Init: g.bytes(g.intn(32))}
		switch g.intn(3) {
		case 0:
			d.Offset, _ = g.newConstExpr()
		case 1:
			if g.features.Has(wasm.FeatureBulkMemory) {
				d.Flags = 1
			} else {
				d.Offset, _ = g.newConstExpr()
			}
		case 2:
			d.Flags = 2
			d.Memory = wasm.MemIdx(g.intn(2))
			d.Offset, _ = g.newConstExpr()
		}
		sec.Segments = append(sec.Segments, d)
	}
	g.add(wasm.NewSection(sec))
}

func (g *generator) customSections() {
	if g.flip() {
		var cs wasm.CustomSection
		names := wasm.NameSection{Subsections: []wasm.NameSubsection{
			wasm.ModuleName{Name: "gen-" + strconv.Itoa(g.size)},
		}}
		if g.numFuncs > 0 {
			var fn wasm.NameMap
			for i := 0; i < g.numFuncs; i++ {
				fn = append(fn, wasm.NameAssoc{Index: uint32(i), Name: "f" + strconv.Itoa(i)})
			}
			names.Subsections = append(names.Subsections, wasm.FunctionNames{Names: fn})
		}
		cs.SetNames(names)
		g.add(wasm.NewSection(cs))
	}
	if g.flip() {
		g.add(wasm.NewSection(wasm.CustomSection{Name: "custom-" + strconv.Itoa(g.intn(100)), Data: g.bytes(g.intn(16))}))
	}
}

func (g *generator) newExpr(depth int) wasm.Expr {
	var e wasm.Expr
	for i := g.intn(6); i > 0; i-- {
		e = append(e, g.newInstruction(depth))
	}
	return e
}

func (g *generator) newBlockType() wasm.BlockType {
	switch g.intn(3) {
	case 0:
		return wasm.BlockEmpty
	case 1:
		return wasm.BlockOf(g.newValueType())
	default:
		return wasm.BlockIndex(uint32(g.intn(g.numTypes + 1)))
	}
}

func (g *generator) newMemarg() wasm.MemoryImm {
	return wasm.MemoryImm{Align: uint32(g.intn(4)), Offset: g.u32()}
}

func (g *generator) newInstruction(depth int) wasm.Instruction {
	op := g.ops[g.intn(len(g.ops))]
	proto, _ := wasm.ImmediateOf(op)

	var imm any
	switch proto.(type) {
	case nil:
	case wasm.BlockImm:
		if depth >= maxDepth {
			return wasm.Instruction{Op: wasm.OpNop}
		}
		imm = wasm.BlockImm{Type: g.newBlockType(), Body: g.newExpr(depth + 1)}
	case wasm.IfImm:
		if depth >= maxDepth {
			return wasm.Instruction{Op: wasm.OpNop}
		}
		v := wasm.IfImm{Type: g.newBlockType(), Then: g.newExpr(depth + 1)}
		if g.flip() {
			els := g.newExpr(depth + 1)
			v.Else = &els
		}
		imm = v
	case wasm.BranchImm:
		imm = wasm.BranchImm{Label: uint32(g.intn(depth + 1))}
	case wasm.BrTableImm:
		v := wasm.BrTableImm{Default: uint32(g.intn(depth + 1))}
		for i := g.intn(4); i > 0; i-- {
			v.Labels = append(v.Labels, uint32(g.intn(depth+1)))
		}
		imm = v
	case wasm.CallImm:
		imm = wasm.CallImm{Func: uint32(g.intn(g.numFuncs + 1))}
	case wasm.CallIndirectImm:
		imm = wasm.CallIndirectImm{Type: uint32(g.intn(g.numTypes + 1)), Table: uint32(g.intn(2))}
	case wasm.LocalImm:
		imm = wasm.LocalImm{Local: g.u32()}
	case wasm.GlobalImm:
		imm = wasm.GlobalImm{Global: uint32(g.intn(8))}
	case wasm.TableImm:
		imm = wasm.TableImm{Table: uint32(g.intn(2))}
	case wasm.MemoryImm:
		imm = g.newMemarg()
	case wasm.MemoryIdxImm:
		imm = wasm.MemoryIdxImm{}
	case wasm.I32Imm:
		imm = wasm.I32Imm{Value: int32(binary.LittleEndian.Uint32(g.bytes(4)))}
	case wasm.I64Imm:
		imm = wasm.I64Imm{Value: int64(binary.LittleEndian.Uint64(g.bytes(8)))}
	case wasm.F32Imm:
		imm = wasm.F32Imm{Bits: binary.LittleEndian.Uint32(g.bytes(4))}
	case wasm.F64Imm:
		imm = wasm.F64Imm{Bits: binary.LittleEndian.Uint64(g.bytes(8))}
	case wasm.SelectTypeImm:
		imm = wasm.SelectTypeImm{Types: []wasm.ValType{g.newValueType()}}
	case wasm.RefNullImm:
		imm = wasm.RefNullImm{Type: g.newRefType()}
	case wasm.MemoryInitImm:
		imm = wasm.MemoryInitImm{Data: uint32(g.intn(g.numData + 1))}
	case wasm.DataDropImm:
		imm = wasm.DataDropImm{Data: uint32(g.intn(g.numData + 1))}
	case wasm.MemoryCopyImm:
		imm = wasm.MemoryCopyImm{}
	case wasm.TableInitImm:
		imm = wasm.TableInitImm{Elem: uint32(g.intn(4)), Table: uint32(g.intn(2))}
	case wasm.ElemDropImm:
		imm = wasm.ElemDropImm{Elem: uint32(g.intn(4))}
	case wasm.TableCopyImm:
		imm = wasm.TableCopyImm{Dst: uint32(g.intn(2)), Src: uint32(g.intn(2))}
	case wasm.V128Imm:
		imm = wasm.V128Imm{Bytes: [16]byte(g.bytes(16))}
	case wasm.ShuffleImm:
		var v wasm.ShuffleImm
		for i := range v.Lanes {
			v.Lanes[i] = byte(g.intn(32))
		}
		imm = v
	case wasm.LaneImm:
		imm = wasm.LaneImm{Lane: byte(g.intn(op.Lanes()))}
	case wasm.MemoryLaneImm:
		imm = wasm.MemoryLaneImm{Mem: g.newMemarg(), Lane: byte(g.intn(op.Lanes()))}
	case wasm.AtomicFenceImm:
		imm = wasm.AtomicFenceImm{}
	default:
		panic("BUG: unhandled immediate")
	}
	return wasm.Instruction{Op: op, Imm: imm}
}
