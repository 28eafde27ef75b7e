package wasm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/errors"
)

// Options configures module decoding.
type Options struct {
	// Features selects the accepted extensions. Encoding always accepts
	// every extension.
	Features Features
	// MaxNesting bounds block nesting. Zero means codec.DefaultMaxDepth.
	MaxNesting int
	// BorrowInput makes raw spans alias the input instead of copying it.
	// The input must then outlive the module and stay unmodified.
	BorrowInput bool
	// Eager materializes every section and function body during decode,
	// so malformed payloads fail the decode instead of the first access.
	Eager bool
}

// DefaultOptions returns options accepting every extension.
func DefaultOptions() Options {
	return Options{
		Features:   FeaturesAll,
		MaxNesting: codec.DefaultMaxDepth,
	}
}

// unknownKey never matches a section variant, so opaque payloads always
// encode through the fallback.
const unknownKey = 0x100

type sectionBody interface {
	state() codec.State
	dirty() bool
	raw() ([]byte, bool)
	offset() int
	materialize() error
	value() (any, error)
	typeName() string
}

type lazyBody[P any] struct {
	lazy *codec.Lazy[P]
}

func (b *lazyBody[P]) state() codec.State  { return b.lazy.State() }
func (b *lazyBody[P]) dirty() bool         { return b.lazy.Dirty() }
func (b *lazyBody[P]) raw() ([]byte, bool) { return b.lazy.PeekRaw() }
func (b *lazyBody[P]) offset() int         { return b.lazy.Offset() }
func (b *lazyBody[P]) typeName() string    { return typeName[P]() }

func (b *lazyBody[P]) materialize() error {
	_, err := b.lazy.Get()
	return err
}

func (b *lazyBody[P]) value() (any, error) {
	return b.lazy.Get()
}

func typeName[P any]() string {
	var zero P
	return fmt.Sprintf("%T", zero)
}

// Section is one section of a module: its ID and a payload that stays
// undecoded until requested.
type Section struct {
	body sectionBody
	ID   SectionID
}

// NewSection wraps a payload built in memory.
func NewSection[P Payload](p P) *Section {
	return &Section{ID: p.SectionID(), body: &lazyBody[P]{lazy: codec.NewValue(p)}}
}

// NewUnknownSection builds an opaque section that is encoded as data.
func NewUnknownSection(id SectionID, data []byte) *Section {
	return &Section{ID: id, body: &lazyBody[UnknownSection]{lazy: codec.NewValue(UnknownSection{Data: data})}}
}

// Get decodes the payload on first use and returns it. Changes through the
// returned pointer are not encoded; use GetMut for that.
func Get[P any](s *Section) (*P, error) {
	lb, ok := s.body.(*lazyBody[P])
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseMaterialize, typeName[P](), s.body.typeName())
	}
	v, err := lb.lazy.Get()
	if err != nil {
		return nil, errors.WithPath(err, s.ID.String())
	}
	return v, nil
}

// GetMut decodes the payload if needed and returns it for mutation. The
// original bytes are discarded and the section is re-encoded.
func GetMut[P any](s *Section) (*P, error) {
	lb, ok := s.body.(*lazyBody[P])
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseMaterialize, typeName[P](), s.body.typeName())
	}
	v, err := lb.lazy.GetMut()
	if err != nil {
		return nil, errors.WithPath(err, s.ID.String())
	}
	return v, nil
}

// Unknown reports whether the section payload is kept as opaque bytes.
func (s *Section) Unknown() bool {
	_, ok := s.body.(*lazyBody[UnknownSection])
	return ok
}

// State returns the payload's materialization state.
func (s *Section) State() codec.State { return s.body.state() }

// Dirty reports whether the payload will be re-encoded.
func (s *Section) Dirty() bool { return s.body.dirty() }

// Raw returns the original payload bytes without decoding them.
func (s *Section) Raw() ([]byte, bool) { return s.body.raw() }

// Offset returns the absolute input offset of the payload.
func (s *Section) Offset() int { return s.body.offset() }

// PayloadType returns the Go type name of the payload.
func (s *Section) PayloadType() string { return s.body.typeName() }

// Payload decodes the payload and returns a pointer to it, such as
// *TypeSection or *UnknownSection.
func (s *Section) Payload() (any, error) {
	v, err := s.body.value()
	if err != nil {
		return nil, errors.WithPath(err, s.ID.String())
	}
	return v, nil
}

// Materialize decodes the payload and, for code sections, every body.
func (s *Section) Materialize() error {
	if err := s.body.materialize(); err != nil {
		return errors.WithPath(err, s.ID.String())
	}
	lb, ok := s.body.(*lazyBody[CodeSection])
	if !ok {
		return nil
	}
	code, _ := lb.lazy.Get()
	for i, body := range code.Bodies {
		if _, err := body.Get(); err != nil {
			return errors.WithPath(errors.WithPath(err, fmt.Sprintf("bodies[%d]", i)), s.ID.String())
		}
	}
	return nil
}

func (s *Section) String() string {
	return fmt.Sprintf("%s(%s)", s.ID, s.State())
}

// Module is a decoded module: the header is implied, sections are kept in
// input order.
type Module struct {
	Sections []*Section
}

// DecodeModule decodes a module accepting every extension.
func DecodeModule(data []byte) (*Module, error) {
	return DecodeModuleWithOptions(data, DefaultOptions())
}

// DecodeModuleWithOptions decodes a module. Section payloads stay raw until
// accessed unless opts.Eager is set. On error no module is returned.
func DecodeModuleWithOptions(data []byte, opts Options) (*Module, error) {
	g := GrammarFor(opts.Features)
	c := codec.NewCursorConfig(data, codec.Config{
		MaxDepth: opts.MaxNesting,
		Borrow:   opts.BorrowInput,
	})
	m, err := g.Module.Decode(c)
	if err != nil {
		return nil, err
	}
	if opts.Eager {
		if err := m.Materialize(); err != nil {
			return nil, err
		}
	}
	Logger().Debug("decoded module",
		zap.Int("size", len(data)),
		zap.Int("sections", len(m.Sections)),
		zap.Stringer("features", g.Features))
	return &m, nil
}

// EncodeModule encodes m. Untouched sections are replayed byte for byte.
func EncodeModule(m *Module) []byte {
	return m.Encode()
}

// Encode encodes the module.
func (m *Module) Encode() []byte {
	w := codec.NewWriter()
	GrammarFor(FeaturesAll).Module.Encode(w, *m)
	return w.Bytes()
}

// EncodeCanonical re-encodes every materialized payload instead of replaying
// its original bytes. Payloads still raw are replayed.
func (m *Module) EncodeCanonical() []byte {
	w := codec.NewCanonicalWriter()
	GrammarFor(FeaturesAll).Module.Encode(w, *m)
	return w.Bytes()
}

// Find returns the first section with the given ID, or nil.
func (m *Module) Find(id SectionID) *Section {
	for _, s := range m.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// FindCustom returns the first custom section with the given name.
func (m *Module) FindCustom(name string) (*Section, *CustomSection, error) {
	for _, s := range m.Sections {
		if s.ID != SectionCustom || s.Unknown() {
			continue
		}
		cs, err := Get[CustomSection](s)
		if err != nil {
			return nil, nil, err
		}
		if cs.Name == name {
			return s, cs, nil
		}
	}
	return nil, nil, nil
}

// StripCustom removes the custom sections named name, or every custom section
// when name is empty, and returns how many were removed. Other sections keep
// their original bytes.
func (m *Module) StripCustom(name string) (int, error) {
	kept := m.Sections[:0]
	removed := 0
	for i, s := range m.Sections {
		if s.ID != SectionCustom || s.Unknown() {
			kept = append(kept, s)
			continue
		}
		cs, err := Get[CustomSection](s)
		if err != nil {
			m.Sections = append(kept, m.Sections[i:]...)
			return removed, errors.WithPath(err, fmt.Sprintf("sections[%d]", i))
		}
		if name != "" && cs.Name != name {
			kept = append(kept, s)
			continue
		}
		removed++
	}
	m.Sections = kept
	return removed, nil
}

// Materialize decodes every section payload and function body.
func (m *Module) Materialize() error {
	for i, s := range m.Sections {
		if err := s.Materialize(); err != nil {
			return errors.WithPath(err, fmt.Sprintf("sections[%d]", i))
		}
	}
	return nil
}
