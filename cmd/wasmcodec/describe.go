package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/wasm-codec/wasm"
)

// sectionLine renders a listing line without decoding the payload.
func sectionLine(i int, s *wasm.Section) string {
	size := "-"
	if raw, ok := s.Raw(); ok {
		size = strconv.Itoa(len(raw))
	}
	return fmt.Sprintf("%3d  %-10s  offset=%-8d size=%-8s %s", i, s.ID, s.Offset(), size, s.State())
}

// sectionView is the JSON form of a section used by -dump.
type sectionView struct {
	Index   int      `json:"index"`
	ID      uint8    `json:"id"`
	Name    string   `json:"name"`
	Offset  int      `json:"offset"`
	Size    int      `json:"size"`
	Unknown bool     `json:"unknown,omitempty"`
	Entries []string `json:"entries,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type moduleView struct {
	File     string        `json:"file"`
	Size     int           `json:"size"`
	Features string        `json:"features"`
	Sections []sectionView `json:"sections"`
}

func viewModule(file string, size int, features wasm.Features, m *wasm.Module) moduleView {
	v := moduleView{File: file, Size: size, Features: features.String()}
	for i, s := range m.Sections {
		sv := sectionView{
			Index:   i,
			ID:      uint8(s.ID),
			Name:    s.ID.String(),
			Offset:  s.Offset(),
			Unknown: s.Unknown(),
		}
		if raw, ok := s.Raw(); ok {
			sv.Size = len(raw)
		}
		entries, err := details(s)
		sv.Entries = entries
		if err != nil {
			sv.Error = err.Error()
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

// details decodes s and renders its contents one entry per line. Entries
// rendered before a failing function body are returned with the error.
func details(s *wasm.Section) ([]string, error) {
	p, err := s.Payload()
	if err != nil {
		return nil, err
	}

	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	switch p := p.(type) {
	case *wasm.CustomSection:
		add("name %q, %d bytes", p.Name, len(p.Data))
		if p.Name == wasm.NameSectionName {
			names, err := p.Names()
			if err != nil {
				return lines, err
			}
			if mod, ok := names.Module(); ok {
				add("module %q", mod)
			}
			for _, sub := range names.Subsections {
				if fn, ok := sub.(wasm.FunctionNames); ok {
					for _, a := range fn.Names {
						add("func %d %q", a.Index, a.Name)
					}
				}
			}
		}
	case *wasm.TypeSection:
		for i, ft := range p.Types {
			add("type %d %s", i, funcType(ft))
		}
	case *wasm.ImportSection:
		for i, im := range p.Imports {
			add("import %d %s.%s %s", i, im.Module, im.Name, importDesc(im.Desc))
		}
	case *wasm.FunctionSection:
		for i, t := range p.Types {
			add("func %d type %d", i, t)
		}
	case *wasm.TableSection:
		for i, t := range p.Tables {
			add("table %d %s %s", i, t.Elem, limits(t.Limits))
		}
	case *wasm.MemorySection:
		for i, mem := range p.Memories {
			add("memory %d %s", i, limits(mem.Limits))
		}
	case *wasm.GlobalSection:
		for i, g := range p.Globals {
			mut := "const"
			if g.Type.Mutable {
				mut = "mut"
			}
			add("global %d %s %s init %s", i, mut, g.Type.Type, exprSummary(g.Init))
		}
	case *wasm.ExportSection:
		for _, e := range p.Exports {
			add("export %q %s", e.Name, exportDesc(e.Desc))
		}
	case *wasm.StartSection:
		add("start func %d", p.Func)
	case *wasm.ElementSection:
		for i, e := range p.Elements {
			mode := "active"
			if !e.Active() {
				mode = "passive"
				if e.Flags&wasm.ElemExplicitTable != 0 {
					mode = "declarative"
				}
			}
			n := len(e.Funcs)
			if e.Flags&wasm.ElemExpressions != 0 {
				n = len(e.Exprs)
			}
			add("elem %d form %d %s table %d, %d entries", i, e.Flags, mode, e.Table, n)
		}
	case *wasm.CodeSection:
		for i, b := range p.Bodies {
			body, err := b.Get()
			if err != nil {
				return lines, fmt.Errorf("body %d: %w", i, err)
			}
			var locals uint64
			for _, l := range body.Locals {
				locals += uint64(l.Count)
			}
			add("body %d, %d locals, %s", i, locals, exprSummary(body.Code))
		}
	case *wasm.DataSection:
		for i, d := range p.Segments {
			mode := "active"
			if d.Flags == 1 {
				mode = "passive"
			}
			add("data %d %s memory %d, %d bytes", i, mode, d.Memory, len(d.Init))
		}
	case *wasm.DataCountSection:
		add("count %d", p.Count)
	case *wasm.UnknownSection:
		add("%d opaque bytes", len(p.Data))
	}
	return lines, nil
}

func funcType(ft wasm.FuncType) string {
	return "(" + valTypes(ft.Params) + ") -> (" + valTypes(ft.Results) + ")"
}

func valTypes(vs []wasm.ValType) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func limits(l wasm.Limits) string {
	s := fmt.Sprintf("min %d", l.Min)
	if l.Max != nil {
		s += fmt.Sprintf(" max %d", *l.Max)
	}
	if l.Shared {
		s += " shared"
	}
	return s
}

func importDesc(d wasm.ImportDesc) string {
	switch d := d.(type) {
	case wasm.TypeIdx:
		return fmt.Sprintf("func type %d", d)
	case wasm.TableType:
		return fmt.Sprintf("table %s %s", d.Elem, limits(d.Limits))
	case wasm.MemoryType:
		return "memory " + limits(d.Limits)
	case wasm.GlobalType:
		return fmt.Sprintf("global %s mutable=%v", d.Type, d.Mutable)
	}
	return fmt.Sprintf("%T", d)
}

func exportDesc(d wasm.ExportDesc) string {
	switch d := d.(type) {
	case wasm.FuncIdx:
		return fmt.Sprintf("func %d", d)
	case wasm.TableIdx:
		return fmt.Sprintf("table %d", d)
	case wasm.MemIdx:
		return fmt.Sprintf("memory %d", d)
	case wasm.GlobalIdx:
		return fmt.Sprintf("global %d", d)
	}
	return fmt.Sprintf("%T", d)
}

// exprSummary counts instructions and reports the deepest nesting.
func exprSummary(e wasm.Expr) string {
	count, deepest := 0, 0
	e.Walk(func(_ wasm.Instruction, depth int) bool {
		count++
		deepest = max(deepest, depth)
		return true
	})
	if count == 1 {
		return e[0].Op.String()
	}
	return fmt.Sprintf("%d instructions, depth %d", count, deepest)
}
