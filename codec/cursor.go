package codec

import (
	"github.com/wippyai/wasm-codec/errors"
)

// DefaultMaxDepth bounds nested Terminated/Until sequences.
const DefaultMaxDepth = 1024

// Config controls cursor behavior shared by every cursor carved from a root.
type Config struct {
	// MaxDepth limits nesting of terminator-delimited sequences.
	// Zero means DefaultMaxDepth.
	MaxDepth int

	// Borrow makes raw spans alias the input instead of copying it.
	// The caller must keep the input alive and unmodified.
	Borrow bool
}

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}

// Cursor is a read position over an input buffer.
// A cursor is owned by a single decode call and never shared.
type Cursor struct {
	data    []byte
	cfg     Config
	pos     int
	base    int
	depth   int
	bounded bool
}

// NewCursor creates an unbounded cursor over data with the default config.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// NewCursorConfig creates an unbounded cursor over data.
func NewCursorConfig(data []byte, cfg Config) *Cursor {
	return &Cursor{data: data, cfg: cfg}
}

// NewBoundedCursor creates a cursor over a span whose size was declared by
// the input. base is the absolute offset of data[0] in the original input.
// Reading past the end of a bounded cursor is a size mismatch rather than an
// unexpected end.
func NewBoundedCursor(data []byte, base int, cfg Config) *Cursor {
	return &Cursor{data: data, base: base, cfg: cfg, bounded: true}
}

// Config returns the cursor configuration.
func (c *Cursor) Config() Config {
	return c.cfg
}

// Offset returns the absolute position of the next unread byte.
func (c *Cursor) Offset() int {
	return c.base + c.pos
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.data) - c.pos
}

// Bounded reports whether the cursor was carved from a declared size.
func (c *Cursor) Bounded() bool {
	return c.bounded
}

// Depth returns the current nesting depth.
func (c *Cursor) Depth() int {
	return c.depth
}

func (c *Cursor) short(need int) error {
	have := c.Len()
	if c.bounded {
		return errors.SizeMismatch(c.Offset(), "read of %d bytes past declared end (%d remaining)", need, have)
	}
	return errors.UnexpectedEnd(c.Offset(), need, have)
}

// Next returns the next n bytes and advances past them. The returned slice
// aliases the input.
func (c *Cursor) Next(n int) ([]byte, error) {
	if n < 0 || n > c.Len() {
		return nil, c.short(n)
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Raw returns the next n bytes following the cursor's raw-copy policy.
func (c *Cursor) Raw(n int) ([]byte, error) {
	b, err := c.Next(n)
	if err != nil {
		return nil, err
	}
	if c.cfg.Borrow {
		return b[:n:n], nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadByte reads a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, c.short(1)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (c *Cursor) PeekByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, c.short(1)
	}
	return c.data[c.pos], nil
}

// Rest consumes and returns every unread byte following the raw-copy policy.
func (c *Cursor) Rest() []byte {
	b, _ := c.Raw(c.Len())
	return b
}

// Sub carves a bounded child cursor over the next n bytes. The child shares
// the config and current depth.
func (c *Cursor) Sub(n int) (*Cursor, error) {
	base := c.Offset()
	b, err := c.Next(n)
	if err != nil {
		return nil, err
	}
	return &Cursor{
		data:    b,
		base:    base,
		cfg:     c.cfg,
		depth:   c.depth,
		bounded: true,
	}, nil
}

// Enter increments the nesting depth.
func (c *Cursor) Enter() error {
	if c.depth >= c.cfg.maxDepth() {
		return errors.NestingTooDeep(c.Offset(), c.cfg.maxDepth())
	}
	c.depth++
	return nil
}

// Leave decrements the nesting depth.
func (c *Cursor) Leave() {
	if c.depth > 0 {
		c.depth--
	}
}

// ExpectEnd fails with a size mismatch if any bytes remain unread.
func (c *Cursor) ExpectEnd() error {
	if n := c.Len(); n != 0 {
		return errors.SizeMismatch(c.Offset(), "%d unconsumed bytes before declared end", n)
	}
	return nil
}
