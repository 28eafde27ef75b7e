package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode      Phase = "decode"      // bytes to values
	PhaseEncode      Phase = "encode"      // values to bytes
	PhaseMaterialize Phase = "materialize" // lazy payload access
	PhaseLoad        Phase = "load"        // reading inputs from disk
	PhaseVerify      Phase = "verify"      // round-trip checks
	PhaseConfig      Phase = "config"      // option and feature parsing
)

// Kind categorizes the error
type Kind string

const (
	KindUnexpectedEnd       Kind = "unexpected_end"
	KindVarIntOverflow      Kind = "varint_overflow"
	KindUnknownDiscriminant Kind = "unknown_discriminant"
	KindBadMagic            Kind = "bad_magic"
	KindUnsupportedVersion  Kind = "unsupported_version"
	KindUnterminatedBlock   Kind = "unterminated_block"
	KindInvalidUTF8         Kind = "invalid_utf8"
	KindSizeMismatch        Kind = "size_mismatch"
	KindNestingTooDeep      Kind = "nesting_too_deep"
	KindInvalidData         Kind = "invalid_data"
	KindTypeMismatch        Kind = "type_mismatch"
	KindRoundTrip           Kind = "round_trip"
	KindInvalidInput        Kind = "invalid_input"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrUnexpectedEnd       = &Error{Phase: PhaseDecode, Kind: KindUnexpectedEnd}
	ErrVarIntOverflow      = &Error{Phase: PhaseDecode, Kind: KindVarIntOverflow}
	ErrUnknownDiscriminant = &Error{Phase: PhaseDecode, Kind: KindUnknownDiscriminant}
	ErrBadMagic            = &Error{Phase: PhaseDecode, Kind: KindBadMagic}
	ErrUnsupportedVersion  = &Error{Phase: PhaseDecode, Kind: KindUnsupportedVersion}
	ErrUnterminatedBlock   = &Error{Phase: PhaseDecode, Kind: KindUnterminatedBlock}
	ErrInvalidUTF8         = &Error{Phase: PhaseDecode, Kind: KindInvalidUTF8}
	ErrSizeMismatch        = &Error{Phase: PhaseDecode, Kind: KindSizeMismatch}
	ErrNestingTooDeep      = &Error{Phase: PhaseDecode, Kind: KindNestingTooDeep}
)

// NoOffset marks an error that is not tied to an input position.
const NoOffset = -1

// Error is the structured error type used throughout the codec
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
	Offset int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(joinPath(e.Path))
	}

	if e.Offset >= 0 {
		fmt.Fprintf(&b, " (offset 0x%x)", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// joinPath renders index segments ("[3]") without a leading dot.
func joinPath(path []string) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 && !strings.HasPrefix(p, "[") {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:  phase,
			Kind:   kind,
			Offset: NoOffset,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Offset sets the absolute input offset
func (b *Builder) Offset(off int) *Builder {
	b.err.Offset = off
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WithPath prepends a path segment to a structured error. Decoders call it
// while unwinding so the innermost field ends up last. Other errors are
// returned unchanged.
func WithPath(err error, segment string) error {
	if e, ok := err.(*Error); ok {
		e.Path = append([]string{segment}, e.Path...)
	}
	return err
}

// KindOf returns the Kind of a structured error, or "" for anything else.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Convenience constructors for decode failures

// UnexpectedEnd reports a cursor exhausted before need bytes were available.
func UnexpectedEnd(offset, need, have int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnexpectedEnd,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d remaining", need, have),
	}
}

// SizeMismatch reports a declared size or count that disagrees with the
// bytes a shape actually consumed.
func SizeMismatch(offset int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindSizeMismatch,
		Offset: offset,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// VarIntOverflow reports a LEB128 value that does not fit its target width.
func VarIntOverflow(offset int, bits uint) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindVarIntOverflow,
		Offset: offset,
		Detail: fmt.Sprintf("value exceeds %d bits", bits),
	}
}

// UnknownDiscriminant reports a tag that no variant of a union claims.
func UnknownDiscriminant(union string, value uint64, offset int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownDiscriminant,
		Offset: offset,
		Value:  value,
		Detail: fmt.Sprintf("unknown %s discriminant 0x%02x", union, value),
	}
}

// UnknownDiscriminantText is UnknownDiscriminant for discriminants spanning
// several input values, such as a prefix byte and a sub-opcode. Value holds
// the rendered form.
func UnknownDiscriminantText(union, value string, offset int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownDiscriminant,
		Offset: offset,
		Value:  value,
		Detail: fmt.Sprintf("unknown %s discriminant %s", union, value),
	}
}

// BadMagic reports a module header that does not start with "\0asm".
func BadMagic(got uint32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindBadMagic,
		Offset: 0,
		Value:  got,
		Detail: fmt.Sprintf("magic 0x%08x", got),
	}
}

// UnsupportedVersion reports a binary format version other than 1.
func UnsupportedVersion(got uint32) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnsupportedVersion,
		Offset: 4,
		Value:  got,
		Detail: fmt.Sprintf("version %d", got),
	}
}

// UnterminatedBlock reports an instruction sequence that ran out of input
// before its terminator.
func UnterminatedBlock(offset int, terminator byte) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnterminatedBlock,
		Offset: offset,
		Detail: fmt.Sprintf("missing terminator 0x%02x", terminator),
	}
}

// NestingTooDeep reports nested sequences beyond the configured limit.
func NestingTooDeep(offset, limit int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindNestingTooDeep,
		Offset: offset,
		Value:  limit,
		Detail: fmt.Sprintf("nesting exceeds %d levels", limit),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(offset int, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidUTF8,
		Offset: offset,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, offset int, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Offset: offset,
		Detail: detail,
	}
}

// TypeMismatch reports a typed accessor used on a value of another type.
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Offset: NoOffset,
		Detail: fmt.Sprintf("want %s, have %s", want, got),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates an input loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Offset: NoOffset,
		Detail: detail,
		Cause:  cause,
	}
}
