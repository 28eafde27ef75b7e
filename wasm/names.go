package wasm

import (
	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/errors"
)

// NameSectionName is the name of the custom section carrying debug names.
const NameSectionName = "name"

// NameAssoc maps an index to a name.
type NameAssoc struct {
	Name  string
	Index uint32
}

// NameMap is a list of index/name pairs ordered by index.
type NameMap []NameAssoc

// IndirectNameAssoc maps an index to a second level name map, e.g. a
// function index to its local names.
type IndirectNameAssoc struct {
	Names NameMap
	Index uint32
}

// NameSubsection is one of ModuleName, FunctionNames, LocalNames or
// RawNameSubsection.
type NameSubsection interface {
	nameSubsection()
}

// ModuleName is subsection 0.
type ModuleName struct {
	Name string
}

// FunctionNames is subsection 1.
type FunctionNames struct {
	Names NameMap
}

// LocalNames is subsection 2.
type LocalNames struct {
	Funcs []IndirectNameAssoc
}

// RawNameSubsection keeps a subsection this package does not decode.
type RawNameSubsection struct {
	Data []byte
	ID   byte
}

func (ModuleName) nameSubsection()        {}
func (FunctionNames) nameSubsection()     {}
func (LocalNames) nameSubsection()        {}
func (RawNameSubsection) nameSubsection() {}

// NameSection is the decoded payload of the "name" custom section.
type NameSection struct {
	Subsections []NameSubsection
}

var nameSection = func() codec.Codec[NameSection] {
	assoc := codec.Record[NameAssoc]("assoc",
		codec.Field("index", codec.U32(), func(a *NameAssoc) *uint32 { return &a.Index }),
		codec.Field("name", codec.Name(), func(a *NameAssoc) *string { return &a.Name }),
	)
	nameMap := codec.Map(codec.Seq[NameAssoc](assoc),
		func(v []NameAssoc) NameMap { return NameMap(v) },
		func(m NameMap) []NameAssoc { return []NameAssoc(m) })
	indirect := codec.Record[IndirectNameAssoc]("indirect",
		codec.Field("index", codec.U32(), func(a *IndirectNameAssoc) *uint32 { return &a.Index }),
		codec.Field("names", nameMap, func(a *IndirectNameAssoc) *NameMap { return &a.Names }),
	)

	sub := codec.Union[NameSubsection]("name subsection", codec.ByteTag,
		codec.Case[NameSubsection, ModuleName](0, "module", codec.Bounded[ModuleName](codec.Record[ModuleName]("module",
			codec.Field("name", codec.Name(), func(m *ModuleName) *string { return &m.Name })))),
		codec.Case[NameSubsection, FunctionNames](1, "functions", codec.Bounded[FunctionNames](codec.Record[FunctionNames]("functions",
			codec.Field("names", nameMap, func(f *FunctionNames) *NameMap { return &f.Names })))),
		codec.Case[NameSubsection, LocalNames](2, "locals", codec.Bounded[LocalNames](codec.Record[LocalNames]("locals",
			codec.Field("funcs", codec.Seq[IndirectNameAssoc](indirect), func(l *LocalNames) *[]IndirectNameAssoc { return &l.Funcs })))),
	).Otherwise(codec.Fallback("raw", codec.Bytes(),
		func(tag uint32, data []byte) NameSubsection {
			return RawNameSubsection{ID: byte(tag), Data: data}
		},
		func(s NameSubsection) (uint32, []byte, bool) {
			raw, ok := s.(RawNameSubsection)
			return uint32(raw.ID), raw.Data, ok
		}))

	return codec.Record[NameSection]("names",
		codec.Field("subsections", codec.UntilEnd[NameSubsection](sub), func(n *NameSection) *[]NameSubsection { return &n.Subsections }),
	)
}()

// Names decodes the section as a name section.
func (c *CustomSection) Names() (*NameSection, error) {
	if c.Name != NameSectionName {
		return nil, errors.InvalidInput(errors.PhaseMaterialize, "custom section "+c.Name+" is not a name section")
	}
	cur := codec.NewCursor(c.Data)
	n, err := nameSection.Decode(cur)
	if err != nil {
		return nil, errors.WithPath(err, NameSectionName)
	}
	return &n, nil
}

// SetNames replaces the section with an encoded name section.
func (c *CustomSection) SetNames(n NameSection) {
	w := codec.NewWriter()
	nameSection.Encode(w, n)
	c.Name = NameSectionName
	c.Data = w.Bytes()
}

// Module returns the module name, if present.
func (n *NameSection) Module() (string, bool) {
	for _, s := range n.Subsections {
		if m, ok := s.(ModuleName); ok {
			return m.Name, true
		}
	}
	return "", false
}

// Function returns the name of a function, if present.
func (n *NameSection) Function(idx uint32) (string, bool) {
	for _, s := range n.Subsections {
		f, ok := s.(FunctionNames)
		if !ok {
			continue
		}
		for _, a := range f.Names {
			if a.Index == idx {
				return a.Name, true
			}
		}
	}
	return "", false
}
