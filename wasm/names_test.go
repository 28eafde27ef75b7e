package wasm_test

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/wippyai/wasm-codec/errors"
	"github.com/wippyai/wasm-codec/wasm"
)

func TestNameSection(t *testing.T) {
	payload := []byte{
		0x04, 'n', 'a', 'm', 'e',
		// module name "m"
		0x00, 0x02, 0x01, 'm',
		// function names: 0 -> "f"
		0x01, 0x04, 0x01, 0x00, 0x01, 'f',
		// local names: func 0, local 1 -> "x"
		0x02, 0x06, 0x01, 0x00, 0x01, 0x01, 0x01, 'x',
		// unknown subsection 7
		0x07, 0x02, 0xaa, 0xbb,
	}
	data := module(section(wasm.SectionCustom, payload...))

	m, err := wasm.DecodeModule(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, cs, err := m.FindCustom(wasm.NameSectionName)
	if err != nil || s == nil {
		t.Fatalf("find: %v", err)
	}

	names, err := cs.Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names.Subsections) != 4 {
		t.Fatalf("subsections = %d", len(names.Subsections))
	}
	if name, ok := names.Module(); !ok || name != "m" {
		t.Errorf("module = %q, %v", name, ok)
	}
	if name, ok := names.Function(0); !ok || name != "f" {
		t.Errorf("function 0 = %q, %v", name, ok)
	}
	if _, ok := names.Function(1); ok {
		t.Error("function 1 has no name")
	}
	locals, ok := names.Subsections[2].(wasm.LocalNames)
	if !ok {
		t.Fatalf("subsection 2 = %T", names.Subsections[2])
	}
	want := []wasm.IndirectNameAssoc{{Index: 0, Names: wasm.NameMap{{Index: 1, Name: "x"}}}}
	if !reflect.DeepEqual(locals.Funcs, want) {
		t.Errorf("locals = %+v", locals.Funcs)
	}
	raw, ok := names.Subsections[3].(wasm.RawNameSubsection)
	if !ok || raw.ID != 7 || !bytes.Equal(raw.Data, []byte{0xaa, 0xbb}) {
		t.Errorf("raw subsection = %+v", names.Subsections[3])
	}

	// rename the module and re-encode
	names.Subsections[0] = wasm.ModuleName{Name: "renamed"}
	mut, err := wasm.GetMut[wasm.CustomSection](s)
	if err != nil {
		t.Fatal(err)
	}
	mut.SetNames(*names)

	out, err := wasm.DecodeModule(m.Encode())
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	_, cs2, err := out.FindCustom(wasm.NameSectionName)
	if err != nil || cs2 == nil {
		t.Fatalf("find after encode: %v", err)
	}
	names2, err := cs2.Names()
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := names2.Module(); name != "renamed" {
		t.Errorf("module = %q", name)
	}
	if !reflect.DeepEqual(names2.Subsections[1:], names.Subsections[1:]) {
		t.Error("other subsections changed")
	}
}

func TestNameSection_Errors(t *testing.T) {
	cs := wasm.CustomSection{Name: "producers"}
	if _, err := cs.Names(); errors.KindOf(err) != errors.KindInvalidInput {
		t.Errorf("wrong name: %v", err)
	}

	// module name subsection declares 3 bytes but holds 2
	cs = wasm.CustomSection{Name: wasm.NameSectionName, Data: []byte{0x00, 0x03, 0x01, 'm', 0x00}}
	if _, err := cs.Names(); errors.KindOf(err) != errors.KindSizeMismatch {
		t.Errorf("trailing: %v", err)
	}
}
